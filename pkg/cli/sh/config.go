package sh

import (
	"flag"
	"os"
	"time"
)

// Config provides common options to open a board session.
type Config struct {
	// Port is the serial port the board is attached to.
	Port string

	// CommandTimeout is the per-command ack deadline.
	CommandTimeout time.Duration
}

var defaultConfig = Config{
	CommandTimeout: time.Second,
}

func init() {
	if val := os.Getenv("K8090_PORT"); val != "" {
		defaultConfig.Port = val
	}
	if val := os.Getenv("K8090_TIMEOUT"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			defaultConfig.CommandTimeout = d
		}
	}
}

// SetupFlags sets up command line flags.
func SetupFlags() {
	flag.StringVar(&defaultConfig.Port, "port", defaultConfig.Port, "Serial port of the relay card.")
	flag.DurationVar(&defaultConfig.CommandTimeout, "timeout", defaultConfig.CommandTimeout, "Command ack timeout.")
}

// NewConfig creates a Config with default configurations.
func NewConfig() *Config {
	conf := defaultConfig
	return &conf
}
