package config

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
)

// Render writes cfg back out as TOML, defaults included.
func Render(cfg Config) ([]byte, error) {
	out, err := toml.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("config render failed: %w", err)
	}
	return out, nil
}

func Template() string {
	return linkTemplate
}

func WriteTemplate(path string, overwrite bool) error {
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config already exists: %s", path)
		}
	}
	return os.WriteFile(path, []byte(linkTemplate), 0o600)
}

const linkTemplate = `name = "sliplink"
status_addr = "127.0.0.1:9300"
cors_origins = ["http://localhost:3000"]
# 0 leaves reassembled frames unbounded
max_frame_bytes = 0
ignore_checksum = false

[backoff]
initial_delay = "250ms"
multiplier = 2.0
max_delay = "5s"
jitter = true

[[links]]
peer = "10.0.0.2"
device = "/dev/ttyUSB0"
baud = 115200

[[links]]
peer = "10.0.0.3"
dial = "127.0.0.1:7001"
`
