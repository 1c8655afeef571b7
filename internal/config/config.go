// Package config holds the command-line configuration surface for a
// chordring process, mirroring the Params/Config split of
// original_source/src/config.rs: flags are optional, a default is
// substituted for anything unset, and the result is validated once
// before the ring starts.
package config

import (
	"fmt"
	"net"
	"time"
)

// Defaults, lifted verbatim from spec.md §6.1 / original_source's
// constants.rs.
const (
	DefaultPort               = uint16(8820)
	DefaultOutputBufferSize   = 1024
	DefaultStabilizeFrequency = time.Second
	DefaultIDBits             = 32
	DefaultVirtualNodeNumber  = 8
)

// Config is the fully validated, post-default configuration a Server is
// built from.
type Config struct {
	Port               uint16
	Host               string
	OutputBufferSize   int
	StabilizeFrequency time.Duration
	IDBits             int
	VirtualNodeNumber  int
}

// New fills in defaults for zero-valued fields of partial and validates
// the result. Pass a Config literal with only the fields the caller
// wants to override set.
func New(partial Config) (Config, error) {
	cfg := partial

	if cfg.Port == 0 {
		cfg.Port = DefaultPort
	}
	if cfg.Host == "" {
		host, err := firstNonLoopbackIPv4()
		if err != nil {
			return Config{}, fmt.Errorf("config: no --host given and none detected: %w", err)
		}
		cfg.Host = host
	}
	if cfg.OutputBufferSize == 0 {
		cfg.OutputBufferSize = DefaultOutputBufferSize
	}
	if cfg.StabilizeFrequency == 0 {
		cfg.StabilizeFrequency = DefaultStabilizeFrequency
	}
	if cfg.IDBits == 0 {
		cfg.IDBits = DefaultIDBits
	}
	if cfg.VirtualNodeNumber == 0 {
		cfg.VirtualNodeNumber = DefaultVirtualNodeNumber
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if net.ParseIP(c.Host) == nil {
		return fmt.Errorf("config: --host %q is not a parseable IP", c.Host)
	}
	if c.OutputBufferSize <= 0 {
		return fmt.Errorf("config: --output-buffer-size must be > 0, got %d", c.OutputBufferSize)
	}
	if c.IDBits < 8 {
		return fmt.Errorf("config: --id-bits must be >= 8, got %d", c.IDBits)
	}
	if c.IDBits > 255 {
		return fmt.Errorf("config: --id-bits must be <= 255, got %d", c.IDBits)
	}
	if c.VirtualNodeNumber < 1 || c.VirtualNodeNumber > 32 {
		return fmt.Errorf("config: --virtual-node-number must be in 1..=32, got %d", c.VirtualNodeNumber)
	}
	return nil
}

// firstNonLoopbackIPv4 scans local interfaces for the first
// non-loopback IPv4 address, used as the --host default.
func firstNonLoopbackIPv4() (string, error) {
	addrs, err := net.InterfaceAddrs()
	if err != nil {
		return "", err
	}
	for _, addr := range addrs {
		ipNet, ok := addr.(*net.IPNet)
		if !ok || ipNet.IP.IsLoopback() {
			continue
		}
		v4 := ipNet.IP.To4()
		if v4 == nil {
			continue
		}
		return v4.String(), nil
	}
	return "", fmt.Errorf("no non-loopback IPv4 address found on any interface")
}
