package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_EnvOnlyDefaults(t *testing.T) {
	cfg, err := Load("", true)
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if cfg.Server.HTTPAddr != ":8080" {
		t.Fatalf("http_addr=%q want=:8080", cfg.Server.HTTPAddr)
	}
	if cfg.FIFO.UnmatchedSellPolicy != "drop" {
		t.Fatalf("unmatched_sell_policy=%q want=drop", cfg.FIFO.UnmatchedSellPolicy)
	}
	if cfg.Enrichment.BatchSize != 4 {
		t.Fatalf("batch_size=%d want=4", cfg.Enrichment.BatchSize)
	}
	if cfg.Enrichment.BatchDelay != 500*time.Millisecond {
		t.Fatalf("batch_delay=%s want=500ms", cfg.Enrichment.BatchDelay)
	}
	if cfg.Metrics.EntryReferenceHours != 24 || cfg.Metrics.EarlyExitPenalty != 20 {
		t.Fatalf("metrics=%+v", cfg.Metrics)
	}
	if cfg.Overview.WindowDays != 7 {
		t.Fatalf("window_days=%d want=7", cfg.Overview.WindowDays)
	}
	if cfg.Tracker.Interval != 30*time.Minute {
		t.Fatalf("tracker interval=%s want=30m", cfg.Tracker.Interval)
	}
	if cfg.Rug.ScamLiquidityFloorUSD != 1000 {
		t.Fatalf("scam floor=%v want=1000", cfg.Rug.ScamLiquidityFloorUSD)
	}
}

func TestLoad_FileOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	raw := []byte(`
enrichment:
  batch_size: 5
  batch_delay: 2s
fifo:
  unmatched_sell_policy: zero_cost_basis
tracker:
  wallets:
    - wallet-a
    - wallet-b
`)
	if err := os.WriteFile(path, raw, 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg, err := Load(path, false)
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if cfg.Enrichment.BatchSize != 5 || cfg.Enrichment.BatchDelay != 2*time.Second {
		t.Fatalf("enrichment=%+v", cfg.Enrichment)
	}
	if cfg.FIFO.UnmatchedSellPolicy != "zero_cost_basis" {
		t.Fatalf("policy=%q", cfg.FIFO.UnmatchedSellPolicy)
	}
	if len(cfg.Tracker.Wallets) != 2 {
		t.Fatalf("wallets=%v want 2", cfg.Tracker.Wallets)
	}
	// untouched keys keep defaults
	if cfg.Cache.TTL != 10*time.Minute {
		t.Fatalf("cache ttl=%s want=10m", cfg.Cache.TTL)
	}
}
