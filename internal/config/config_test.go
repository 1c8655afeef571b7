package config

import "testing"

func TestNewAppliesDefaults(t *testing.T) {
	cfg, err := New(Config{Host: "127.0.0.1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Port != DefaultPort {
		t.Fatalf("bad port default: %d", cfg.Port)
	}
	if cfg.OutputBufferSize != DefaultOutputBufferSize {
		t.Fatalf("bad buffer size default: %d", cfg.OutputBufferSize)
	}
	if cfg.StabilizeFrequency != DefaultStabilizeFrequency {
		t.Fatalf("bad stabilize frequency default: %v", cfg.StabilizeFrequency)
	}
	if cfg.IDBits != DefaultIDBits {
		t.Fatalf("bad id bits default: %d", cfg.IDBits)
	}
	if cfg.VirtualNodeNumber != DefaultVirtualNodeNumber {
		t.Fatalf("bad virtual node number default: %d", cfg.VirtualNodeNumber)
	}
}

func TestNewRejectsBadIDBits(t *testing.T) {
	_, err := New(Config{Host: "127.0.0.1", IDBits: 4})
	if err == nil {
		t.Fatalf("expected error for id-bits below 8")
	}
}

func TestNewRejectsBadVirtualNodeNumber(t *testing.T) {
	if _, err := New(Config{Host: "127.0.0.1", VirtualNodeNumber: 33}); err == nil {
		t.Fatalf("expected error for virtual-node-number above 32")
	}
}

func TestNewRejectsBadHost(t *testing.T) {
	if _, err := New(Config{Host: "not-an-ip"}); err == nil {
		t.Fatalf("expected error for unparseable host")
	}
}

func TestNewRejectsNegativeBufferSize(t *testing.T) {
	if _, err := New(Config{Host: "127.0.0.1", OutputBufferSize: -1}); err == nil {
		t.Fatalf("expected error for negative buffer size")
	}
}
