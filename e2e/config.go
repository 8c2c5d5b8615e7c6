package e2e

import (
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	// E2E_RELAY_ADDR is the gRPC address of a running relay; empty skips the suites
	RelayAddr string `envconfig:"E2E_RELAY_ADDR"`
	// E2E_RELAY_WS_URL is the websocket endpoint of the same relay
	RelayWSURL string `envconfig:"E2E_RELAY_WS_URL" default:"ws://localhost:4000/ws"`
	// E2E_TOKEN is sent as bearer token when the relay requires authentication
	Token string `envconfig:"E2E_TOKEN"`
	// E2E_DEBUG_JSON allows dumping full gRPC request/response bodies as JSON
	DebugJSON bool `envconfig:"E2E_DEBUG_JSON" default:"false"`
	// E2E_COLOURS enables colorized output for better log readability
	Colours bool `envconfig:"E2E_COLOURS" default:"true"`
}

func LoadConfig() (Config, error) {
	var cfg Config
	err := envconfig.Process("", &cfg)
	return cfg, err
}
