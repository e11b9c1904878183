package internal

import (
	"testing"
)

func TestHTTPConfig_PortRange(t *testing.T) {
	cfg := HTTPConfig{Port: 8080}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("valid port should pass: %v", err)
	}
	if got := cfg.Address(); got != ":8080" {
		t.Errorf("address = %q", got)
	}

	for _, port := range []int{0, -1, 70000} {
		cfg := HTTPConfig{Port: port}
		if err := cfg.Validate(); err == nil {
			t.Errorf("port %d should fail validation", port)
		}
	}
}

func TestEngineConfig_Defaults(t *testing.T) {
	cfg := EngineConfig{}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("zero config should pass: %v", err)
	}

	opts := cfg.Options()
	if opts.DebounceMs != 250 {
		t.Errorf("debounce = %d, want built-in default", opts.DebounceMs)
	}
	if opts.Order.WalkSizeCeiling != 4000 {
		t.Errorf("walk ceiling = %d", opts.Order.WalkSizeCeiling)
	}
	if opts.HopThresholds == nil {
		t.Error("hop thresholds should default")
	}
}

func TestEngineConfig_Overrides(t *testing.T) {
	cfg := EngineConfig{
		DebounceMs:      50,
		SpreadRatio:     0.25,
		WalkSizeCeiling: 100,
		HopThresholds:   map[int]float64{12: 500},
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}

	opts := cfg.Options()
	if opts.DebounceMs != 50 || opts.Order.SpreadRatio != 0.25 || opts.Order.WalkSizeCeiling != 100 {
		t.Errorf("opts = %+v", opts)
	}
	if got := opts.HopThresholds.At(12); got != 500 {
		t.Errorf("hop threshold at zoom 12 = %v", got)
	}
}

func TestEngineConfig_Invalid(t *testing.T) {
	cases := []struct {
		name string
		cfg  EngineConfig
	}{
		{"negative debounce", EngineConfig{DebounceMs: -1}},
		{"spread ratio too large", EngineConfig{SpreadRatio: 1.5}},
		{"negative spread ratio", EngineConfig{SpreadRatio: -0.1}},
		{"zero hop threshold", EngineConfig{HopThresholds: map[int]float64{10: 0}}},
		{"negative zoom", EngineConfig{HopThresholds: map[int]float64{-1: 100}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if err := tc.cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestFullConfig_SectionValidationPropagates(t *testing.T) {
	cfg := NewDefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should pass: %v", err)
	}

	cfg.Store.Path = ""
	if err := cfg.Validate(); err == nil {
		t.Fatal("empty store path should fail")
	}

	cfg = NewDefaultConfig()
	cfg.Engine.SpreadRatio = 2
	if err := cfg.Validate(); err == nil {
		t.Fatal("bad engine section should fail")
	}
}
