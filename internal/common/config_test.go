package common

import "testing"

func TestConfig_DefaultPort(t *testing.T) {
	cfg := NewDefaultConfig()
	if cfg.Server.Port != 8080 {
		t.Errorf("Server.Port default = %d, want %d", cfg.Server.Port, 8080)
	}
}

func TestConfig_PortEnvOverride(t *testing.T) {
	t.Setenv("SATQUEUE_PORT", "9090")

	cfg := NewDefaultConfig()
	applyEnvOverrides(cfg)

	if cfg.Server.Port != 9090 {
		t.Errorf("Server.Port = %d after env override, want %d", cfg.Server.Port, 9090)
	}
}

func TestConfig_DefaultPoolBounds(t *testing.T) {
	cfg := NewDefaultConfig()
	if cfg.Store.PoolMin != 1 || cfg.Store.PoolMax != 10 {
		t.Errorf("Store pool bounds = [%d,%d], want [1,10]", cfg.Store.PoolMin, cfg.Store.PoolMax)
	}
	if cfg.Broker.PoolMax != 15 {
		t.Errorf("Broker.PoolMax = %d, want 15", cfg.Broker.PoolMax)
	}
}

func TestConfig_DefaultTimeouts(t *testing.T) {
	cfg := NewDefaultConfig()
	if cfg.Solver.TimeoutSSat != 10 {
		t.Errorf("Solver.TimeoutSSat = %d, want 10", cfg.Solver.TimeoutSSat)
	}
	if cfg.Solver.TimeoutSSudoku != 250 {
		t.Errorf("Solver.TimeoutSSudoku = %d, want 250", cfg.Solver.TimeoutSSudoku)
	}
}

func TestConfig_StoreAndBrokerEnvOverride(t *testing.T) {
	t.Setenv("SATQUEUE_DB_HOST", "db.internal")
	t.Setenv("SATQUEUE_DB_PORT", "6432")
	t.Setenv("SATQUEUE_REDIS_HOST", "cache.internal")

	cfg := NewDefaultConfig()
	applyEnvOverrides(cfg)

	if cfg.Store.Host != "db.internal" {
		t.Errorf("Store.Host = %q, want %q", cfg.Store.Host, "db.internal")
	}
	if cfg.Store.Port != 6432 {
		t.Errorf("Store.Port = %d, want 6432", cfg.Store.Port)
	}
	if cfg.Broker.Host != "cache.internal" {
		t.Errorf("Broker.Host = %q, want %q", cfg.Broker.Host, "cache.internal")
	}
}

func TestConfig_SocketTimeoutExceedsPollTimeout(t *testing.T) {
	cfg := NewDefaultConfig()
	if cfg.Broker.GetSocketTimeout().Seconds() <= float64(cfg.Solver.PollTimeoutS) {
		t.Errorf("broker socket timeout (%v) must exceed poll timeout (%ds)",
			cfg.Broker.GetSocketTimeout(), cfg.Solver.PollTimeoutS)
	}
}

func TestConfig_IsProduction(t *testing.T) {
	cfg := NewDefaultConfig()
	if cfg.IsProduction() {
		t.Error("default environment should not be production")
	}
	cfg.Environment = "production"
	if !cfg.IsProduction() {
		t.Error("Environment=production should report IsProduction() == true")
	}
}

func TestConfig_DSN(t *testing.T) {
	cfg := NewDefaultConfig()
	dsn := cfg.Store.DSN()
	if dsn == "" {
		t.Error("DSN() returned empty string")
	}
}
