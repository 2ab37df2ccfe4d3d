package config

import (
	"path/filepath"
	"testing"
)

func TestLoadSaveRoundTrip(t *testing.T) {
	cfg := &Config{
		DBURL:           "postgres://localhost/sb",
		RPCURL:          "https://api.mainnet-beta.solana.com",
		Threads:         4,
		FailedBlocksDir: "/tmp/failed",
		Bigtable: BigtableConfig{
			ProjectID:    "my-project",
			InstanceName: "solana-ledger",
			ChannelSize:  10,
		},
		Stream: StreamConfig{
			Endpoint: "https://grpc.example.com",
		},
	}

	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := Save(path, cfg); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.DBURL != cfg.DBURL || loaded.Threads != cfg.Threads {
		t.Fatalf("round trip mismatch: got %+v", loaded)
	}
	if loaded.Bigtable.ProjectID != cfg.Bigtable.ProjectID {
		t.Fatalf("bigtable section did not round trip: got %+v", loaded.Bigtable)
	}
}

func TestEnvHelpersFallBackToDefault(t *testing.T) {
	if v := GetEnvInt("SB_DL_GO_NONEXISTENT_KEY", 7); v != 7 {
		t.Fatalf("expected default 7, got %d", v)
	}
	if v := GetEnvBool("SB_DL_GO_NONEXISTENT_KEY", true); v != true {
		t.Fatalf("expected default true, got %v", v)
	}
}
