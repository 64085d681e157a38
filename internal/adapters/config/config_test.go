package config

import (
	"strings"
	"testing"
)

func validConfig() *Config {
	return &Config{
		Universe: UniverseConfig{
			Symbols:   []string{"SPY", "QQQ"},
			Benchmark: "SPY",
		},
		Macro:  MacroConfig{MaxGapDays: 7},
		Labels: LabelConfig{Policy: "threshold", Threshold: 0.25, ClipSigma: 3.0},
		Pipeline: PipelineConfig{
			Concurrency:       4,
			WarmupTradingDays: 260,
		},
	}
}

func TestValidate_OK(t *testing.T) {
	if err := validConfig().Validate(); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}
}

func TestValidate_BenchmarkMustBeInUniverse(t *testing.T) {
	cfg := validConfig()
	cfg.Universe.Benchmark = "DIA"

	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "benchmark") {
		t.Errorf("expected benchmark error, got %v", err)
	}
}

func TestValidate_LabelPolicyClosedSet(t *testing.T) {
	cfg := validConfig()
	cfg.Labels.Policy = "quantile"

	if err := cfg.Validate(); err == nil {
		t.Error("unknown label policy accepted")
	}

	cfg.Labels.Policy = "binary"
	if err := cfg.Validate(); err != nil {
		t.Errorf("binary policy rejected: %v", err)
	}
}

func TestValidate_GapCeilingRequired(t *testing.T) {
	cfg := validConfig()
	cfg.Macro.MaxGapDays = 0

	if err := cfg.Validate(); err == nil {
		t.Error("zero gap ceiling accepted")
	}
}

func TestValidate_Bounds(t *testing.T) {
	cases := []func(*Config){
		func(c *Config) { c.Universe.Symbols = nil },
		func(c *Config) { c.Labels.Threshold = 0 },
		func(c *Config) { c.Labels.ClipSigma = -1 },
		func(c *Config) { c.Pipeline.Concurrency = 0 },
		func(c *Config) { c.Pipeline.WarmupTradingDays = -1 },
	}
	for i, mutate := range cases {
		cfg := validConfig()
		mutate(cfg)
		if err := cfg.Validate(); err == nil {
			t.Errorf("case %d: invalid config accepted", i)
		}
	}
}

func TestGetDSN(t *testing.T) {
	db := &DatabaseConfig{
		Host: "db", Port: 5432, Name: "etfsignals",
		User: "etl", Password: "secret", SSLMode: "disable",
	}
	dsn := db.GetDSN()
	for _, part := range []string{"host=db", "port=5432", "dbname=etfsignals", "user=etl"} {
		if !strings.Contains(dsn, part) {
			t.Errorf("dsn missing %q: %s", part, dsn)
		}
	}
}
