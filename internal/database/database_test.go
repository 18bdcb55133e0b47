package database

import (
	"context"
	"testing"
	"time"

	"github.com/clubops/memberbill/config"
	"github.com/clubops/memberbill/internal/logger"
)

func TestNew_NoDatabase(t *testing.T) {
	logger.Init("error", "text")

	cfg := config.DatabaseConfig{
		URL: "", // No database URL
	}

	ctx := context.Background()
	db, err := New(ctx, cfg)
	if err != nil {
		t.Errorf("Expected no error for empty database URL, got %v", err)
	}

	if db == nil {
		t.Fatal("Expected DB instance, got nil")
	}

	if db.pool != nil {
		t.Error("Expected pool to be nil when no database URL provided")
	}

	if db.IsConfigured() {
		t.Error("Expected IsConfigured to return false when no database")
	}
}

func TestNew_InvalidURL(t *testing.T) {
	cfg := config.DatabaseConfig{
		URL: "invalid-url",
	}

	ctx := context.Background()
	_, err := New(ctx, cfg)
	if err == nil {
		t.Error("Expected error for invalid database URL, got nil")
	}
}

func TestDB_Operations_NoPool(t *testing.T) {
	db := &DB{
		pool: nil,
		cfg:  config.DatabaseConfig{},
	}

	ctx := context.Background()

	if _, err := db.Exec(ctx, "SELECT 1"); err != nil {
		t.Errorf("Expected no error for Exec with no pool, got %v", err)
	}

	if _, err := db.Query(ctx, "SELECT 1"); err == nil {
		t.Error("Expected error for Query with no pool, got nil")
	}

	if row := db.QueryRow(ctx, "SELECT 1"); row != nil {
		t.Error("Expected nil for QueryRow with no pool")
	}

	if err := db.Health(ctx); err == nil {
		t.Error("Expected error for Health with no pool, got nil")
	}
}

func TestDB_Close(t *testing.T) {
	db := &DB{
		pool: nil,
		cfg:  config.DatabaseConfig{},
	}

	// Should not panic when closing with no pool
	db.Close(context.Background())
}

func TestDB_CollectMetrics_NoPool(t *testing.T) {
	db := &DB{
		pool: nil,
		cfg:  config.DatabaseConfig{},
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Millisecond*100)
	defer cancel()

	// Should return immediately when no pool
	db.collectMetrics(ctx)
}
