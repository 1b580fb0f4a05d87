package imgproc

import "testing"

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should be valid: %v", err)
	}
	if cfg.OpenKernel != 3 || cfg.OpenIterations != 2 || cfg.DilateKernel != 5 || cfg.DilateIterations != 1 {
		t.Errorf("unexpected refinement defaults: %+v", cfg)
	}
	if cfg.BufferCapacity != 15 {
		t.Errorf("expected BufferCapacity=15, got %d", cfg.BufferCapacity)
	}
}

func TestConfigValidate(t *testing.T) {
	bad := []func(*Config){
		func(c *Config) { c.OpenKernel = 0 },
		func(c *Config) { c.DilateKernel = -1 },
		func(c *Config) { c.OpenIterations = -1 },
		func(c *Config) { c.BufferCapacity = 0 },
	}
	for i, mutate := range bad {
		cfg := DefaultConfig()
		mutate(&cfg)
		if err := cfg.Validate(); err == nil {
			t.Errorf("case %d: expected an error for %+v", i, cfg)
		}
	}
}
