package config

import (
	"fmt"
	"net/netip"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/danmuck/sliplink/internal/transport"
)

// Duration is a time.Duration that reads and writes as "250ms" in TOML.
type Duration time.Duration

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

func (d *Duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(strings.TrimSpace(string(b)))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

type BackoffConfig struct {
	InitialDelay Duration `toml:"initial_delay"`
	Multiplier   float64  `toml:"multiplier"`
	MaxDelay     Duration `toml:"max_delay"`
	Jitter       bool     `toml:"jitter"`
}

func (b BackoffConfig) Transport() transport.BackoffConfig {
	return transport.BackoffConfig{
		InitialDelay: time.Duration(b.InitialDelay),
		Multiplier:   b.Multiplier,
		MaxDelay:     time.Duration(b.MaxDelay),
		Jitter:       b.Jitter,
	}
}

// LinkConfig describes one peer and the byte stream that reaches it.
// Exactly one of Device or Dial is set.
type LinkConfig struct {
	Peer   string `toml:"peer"`
	Device string `toml:"device,omitempty"`
	Baud   int    `toml:"baud,omitempty"`
	Dial   string `toml:"dial,omitempty"`
}

type Config struct {
	Name           string        `toml:"name"`
	StatusAddr     string        `toml:"status_addr"`
	CorsOrigins    []string      `toml:"cors_origins"`
	MaxFrameBytes  int           `toml:"max_frame_bytes"`
	IgnoreChecksum bool          `toml:"ignore_checksum"`
	Backoff        BackoffConfig `toml:"backoff"`
	Links          []LinkConfig  `toml:"links"`
}

func DefaultConfig() Config {
	b := transport.DefaultBackoff()
	return Config{
		Name:        "sliplink",
		StatusAddr:  "127.0.0.1:9300",
		CorsOrigins: []string{},
		Backoff: BackoffConfig{
			InitialDelay: Duration(b.InitialDelay),
			Multiplier:   b.Multiplier,
			MaxDelay:     Duration(b.MaxDelay),
			Jitter:       b.Jitter,
		},
	}
}

// Load reads path and overlays defined keys on DefaultConfig.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()

	var raw Config
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return Config{}, fmt.Errorf("config load failed (%s): %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return Config{}, fmt.Errorf("config parse failed (%s): unknown key %q", path, undecoded[0].String())
	}

	if meta.IsDefined("name") {
		cfg.Name = strings.TrimSpace(raw.Name)
	}
	if meta.IsDefined("status_addr") {
		cfg.StatusAddr = strings.TrimSpace(raw.StatusAddr)
	}
	if meta.IsDefined("cors_origins") {
		cfg.CorsOrigins = raw.CorsOrigins
	}
	if meta.IsDefined("max_frame_bytes") {
		cfg.MaxFrameBytes = raw.MaxFrameBytes
	}
	if meta.IsDefined("ignore_checksum") {
		cfg.IgnoreChecksum = raw.IgnoreChecksum
	}
	if meta.IsDefined("backoff", "initial_delay") {
		cfg.Backoff.InitialDelay = raw.Backoff.InitialDelay
	}
	if meta.IsDefined("backoff", "multiplier") {
		cfg.Backoff.Multiplier = raw.Backoff.Multiplier
	}
	if meta.IsDefined("backoff", "max_delay") {
		cfg.Backoff.MaxDelay = raw.Backoff.MaxDelay
	}
	if meta.IsDefined("backoff", "jitter") {
		cfg.Backoff.Jitter = raw.Backoff.Jitter
	}
	for _, l := range raw.Links {
		l.Peer = strings.TrimSpace(l.Peer)
		l.Device = strings.TrimSpace(l.Device)
		l.Dial = strings.TrimSpace(l.Dial)
		if l.Device != "" && l.Baud == 0 {
			l.Baud = transport.DefaultBaud
		}
		cfg.Links = append(cfg.Links, l)
	}

	if err := Validate(cfg); err != nil {
		return Config{}, fmt.Errorf("config invalid (%s): %w", path, err)
	}
	return cfg, nil
}

func Validate(cfg Config) error {
	if strings.TrimSpace(cfg.Name) == "" {
		return fmt.Errorf("name is required")
	}
	if strings.TrimSpace(cfg.StatusAddr) == "" {
		return fmt.Errorf("status_addr is required")
	}
	if cfg.MaxFrameBytes < 0 {
		return fmt.Errorf("max_frame_bytes must be >= 0")
	}
	if cfg.Backoff.InitialDelay < 0 || cfg.Backoff.MaxDelay < 0 {
		return fmt.Errorf("backoff delays must be >= 0")
	}
	if len(cfg.Links) == 0 {
		return fmt.Errorf("at least one [[links]] entry is required")
	}
	seen := make(map[string]struct{}, len(cfg.Links))
	for i, l := range cfg.Links {
		if err := ValidateLink(l); err != nil {
			return fmt.Errorf("links[%d] invalid: %w", i, err)
		}
		if _, dup := seen[l.Peer]; dup {
			return fmt.Errorf("links[%d] invalid: duplicate peer %s", i, l.Peer)
		}
		seen[l.Peer] = struct{}{}
	}
	return nil
}

func ValidateLink(l LinkConfig) error {
	if l.Peer == "" {
		return fmt.Errorf("peer is required")
	}
	addr, err := netip.ParseAddr(l.Peer)
	if err != nil {
		return fmt.Errorf("peer %q is not an IP address", l.Peer)
	}
	if addr.String() != l.Peer {
		return fmt.Errorf("peer %q must be written in canonical form %s", l.Peer, addr)
	}
	switch {
	case l.Device == "" && l.Dial == "":
		return fmt.Errorf("one of device or dial is required")
	case l.Device != "" && l.Dial != "":
		return fmt.Errorf("device and dial are mutually exclusive")
	}
	if l.Device != "" {
		ok := false
		for _, b := range transport.SupportedBauds() {
			if b == l.Baud {
				ok = true
				break
			}
		}
		if !ok {
			return fmt.Errorf("unsupported baud %d", l.Baud)
		}
	}
	return nil
}
