package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/golang/glog"

	"github.com/relaykit/k8090.go/pkg/bridge"
	"github.com/relaykit/k8090.go/pkg/k8090"
)

//go-build: CGO_ENABLED=0

var (
	port    = ""
	mqttURL = "mqtt://localhost:1883/k8090/"
	timeout = time.Second
)

func init() {
	if val := os.Getenv("K8090_PORT"); val != "" {
		port = val
	}
	if val := os.Getenv("K8090_MQTT_URL"); val != "" {
		mqttURL = val
	}
	flag.StringVar(&port, "port", port, "Serial port of the relay card.")
	flag.StringVar(&mqttURL, "mqtt", mqttURL, "MQTT broker URL.")
	flag.DurationVar(&timeout, "timeout", timeout, "Command ack timeout.")
}

func main() {
	flag.Parse()

	session, err := k8090.Open(k8090.Config{Port: port, CommandTimeout: timeout})
	if err != nil {
		glog.Exitf("open board: %v", err)
	}
	defer session.Close()

	q, err := bridge.NewQueue(mqttURL)
	if err != nil {
		glog.Exitf("mqtt: %v", err)
	}
	if err = q.Connect(); err != nil {
		glog.Exitf("mqtt connect: %v", err)
	}
	defer q.Close()

	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	glog.Infof("bridging %s to %s", port, mqttURL)
	if err = bridge.New(session, q).Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		glog.Exitf("bridge: %v", err)
	}
	glog.Info("shut down")
}
