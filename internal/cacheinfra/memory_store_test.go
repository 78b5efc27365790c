package cacheinfra

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestDefaultMemoryConfig(t *testing.T) {
	cfg := DefaultMemoryConfig()

	if cfg.Capacity != 10000 {
		t.Errorf("expected Capacity to be 10000, got %d", cfg.Capacity)
	}

	if cfg.NumShards != 256 {
		t.Errorf("expected NumShards to be 256, got %d", cfg.NumShards)
	}

	if cfg.TTL != 6*time.Hour {
		t.Errorf("expected TTL to be 6 hours, got %v", cfg.TTL)
	}

	if cfg.EvictionPercentage != 10 {
		t.Errorf("expected EvictionPercentage to be 10, got %d", cfg.EvictionPercentage)
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("expected default config to be valid, got %v", err)
	}
}

func TestMemoryConfig_Validate(t *testing.T) {
	tests := []struct {
		name      string
		cfg       MemoryConfig
		wantField string
	}{
		{
			name:      "zero capacity",
			cfg:       MemoryConfig{Capacity: 0, NumShards: 1, TTL: time.Minute, EvictionPercentage: 10},
			wantField: "Capacity",
		},
		{
			name:      "zero shards",
			cfg:       MemoryConfig{Capacity: 10, NumShards: 0, TTL: time.Minute, EvictionPercentage: 10},
			wantField: "NumShards",
		},
		{
			name:      "zero ttl",
			cfg:       MemoryConfig{Capacity: 10, NumShards: 1, TTL: 0, EvictionPercentage: 10},
			wantField: "TTL",
		},
		{
			name:      "eviction percentage too high",
			cfg:       MemoryConfig{Capacity: 10, NumShards: 1, TTL: time.Minute, EvictionPercentage: 101},
			wantField: "EvictionPercentage",
		},
		{
			name:      "negative eviction interval",
			cfg:       MemoryConfig{Capacity: 10, NumShards: 1, TTL: time.Minute, EvictionPercentage: 10, EvictionInterval: -time.Second},
			wantField: "EvictionInterval",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			var cfgErr *ConfigError
			if !errors.As(err, &cfgErr) {
				t.Fatalf("expected ConfigError, got %v", err)
			}
			if cfgErr.Field != tt.wantField {
				t.Errorf("expected field %q, got %q", tt.wantField, cfgErr.Field)
			}
		})
	}
}

func TestConfigError_Error(t *testing.T) {
	err := &ConfigError{Field: "Capacity", Message: "must be greater than 0"}
	if got := err.Error(); got != "config error in field Capacity: must be greater than 0" {
		t.Errorf("unexpected message %q", got)
	}
}

func TestNewMemoryStore_InvalidConfig(t *testing.T) {
	if _, err := NewMemoryStore(MemoryConfig{}); err == nil {
		t.Fatal("expected error for empty config")
	}
}

func TestMemoryStore_SetGetDelete(t *testing.T) {
	store, err := NewMemoryStore(DefaultMemoryConfig())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ctx := context.Background()

	if _, ok, err := store.Get(ctx, "user-data:u1"); ok || err != nil {
		t.Fatalf("expected miss on empty store, got ok=%v err=%v", ok, err)
	}

	if err := store.Set(ctx, "user-data:u1", "@alice", time.Hour); err != nil {
		t.Fatalf("set failed: %v", err)
	}
	if err := store.Set(ctx, "user-data:alice", `{"id":"u1"}`, time.Hour); err != nil {
		t.Fatalf("set failed: %v", err)
	}

	value, ok, err := store.Get(ctx, "user-data:u1")
	if err != nil || !ok || value != "@alice" {
		t.Errorf("unexpected get result %q %v %v", value, ok, err)
	}

	if store.Len() != 2 {
		t.Errorf("expected 2 entries, got %d", store.Len())
	}

	deleted, err := store.Delete(ctx, "user-data:u1", "user-data:alice", "user-data:missing")
	if err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if deleted != 2 {
		t.Errorf("expected 2 deleted keys, got %d", deleted)
	}

	if _, ok, _ := store.Get(ctx, "user-data:alice"); ok {
		t.Error("expected key to be gone after delete")
	}
}

func TestMemoryStore_CanceledContext(t *testing.T) {
	store, err := NewMemoryStore(DefaultMemoryConfig())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, _, err := store.Get(ctx, "k"); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if err := store.Set(ctx, "k", "v", time.Minute); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}
