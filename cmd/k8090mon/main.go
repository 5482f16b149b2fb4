package main

import (
	"flag"
	"log"
	"os"

	"github.com/relaykit/k8090.go/pkg/bridge"
)

var (
	mqttURL = "mqtt://localhost:1883/k8090/"
)

func init() {
	if val := os.Getenv("K8090_MQTT_URL"); val != "" {
		mqttURL = val
	}
	flag.StringVar(&mqttURL, "mqtt", mqttURL, "MQTT broker URL.")
}

func main() {
	flag.Parse()
	log.SetFlags(log.Lmicroseconds)

	q, err := bridge.NewQueue(mqttURL)
	if err != nil {
		log.Fatalln(err)
	}
	if err = q.Connect(); err != nil {
		log.Fatalln(err)
	}

	q.Sub("#", bridge.Handler(func(topic string, payload []byte) {
		log.Printf("%s: %s", topic, string(payload))
	}))
	<-(chan struct{})(nil)
}
