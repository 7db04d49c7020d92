package etcd

import (
	"context"
	"testing"
	"time"
)

// TestSeedBridgeConfig_Development siembra la configuración del bridge en ETCD
// para desarrollo.
//
// Uso:
//
//	go test -v -run TestSeedBridgeConfig_Development ./sdk/etcd
//
// Este test puebla el namespace bridge/development con la configuración mínima.
func TestSeedBridgeConfig_Development(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Cliente para bridge/development
	client, err := New(
		WithApp("bridge"),
		WithEnv("development"),
	)
	if err != nil {
		t.Fatalf("Failed to create ETCD client: %v", err)
	}
	defer client.Close()

	config := map[string]string{
		// Endpoints
		"endpoints/hub_addr":              "localhost:8077",
		"endpoints/otel/otlp_endpoint":    "localhost:4317",
		"endpoints/otel/metrics_endpoint": "localhost:4317",

		// Core
		"core/listen_addr":        ":8077",
		"core/auth_secret":        "dev-secret",
		"core/dedupe_window_ms":   "60000",
		"core/ack_timeout_ms":     "60000",
		"core/sweep_interval_ms":  "5000",
		"core/ping_interval_s":    "20",
		"core/dead_after_s":       "90",
		"core/log_level":          "INFO",

		// Agent
		"agent/core_url":           "ws://localhost:8077/ws",
		"agent/auth_secret":        "dev-secret",
		"agent/tick_interval_ms":   "1000",
		"agent/heartbeat_s":        "20",
		"agent/risk_fraction":      "0.01",
		"agent/max_positions":      "5",
		"agent/hedging_enabled":    "false",
		"agent/partial_exit_ratio": "0.75",
		"agent/ledger_path":        "bridge-agent.db",
		"agent/log_level":          "INFO",

		// PostgreSQL
		"postgres/host":           "localhost",
		"postgres/port":           "5432",
		"postgres/database":       "bridge",
		"postgres/user":           "bridge_user",
		"postgres/password":       "bridge",
		"postgres/schema":         "bridge",
		"postgres/pool_max_conns": "10",
		"postgres/pool_min_conns": "2",

		// Telemetry
		"telemetry/service_name":    "bridge",
		"telemetry/service_version": "1.0.0",
		"telemetry/environment":     "development",
	}

	// Escribir todas las claves; si etcd no está accesible, el seed no aplica
	for key, value := range config {
		if err := put(ctx, client, key, value); err != nil {
			t.Skipf("etcd not reachable, skipping seed: %v", err)
		}
		t.Logf("Set: %s = %s", key, value)
	}

	t.Logf("Bridge development config seeded successfully (%d keys)", len(config))

	// Verificar que se pueden leer
	readKey := "core/listen_addr"
	val, err := client.GetVar(ctx, readKey)
	if err != nil {
		t.Fatalf("Failed to read back %s: %v", readKey, err)
	}
	t.Logf("Verification: %s = %s", readKey, val)
}

// TestListAllBridgeKeys lista todas las claves del bridge en ETCD (útil para debugging).
func TestListAllBridgeKeys(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := New(
		WithApp("bridge"),
		WithEnv("development"),
	)
	if err != nil {
		t.Fatalf("Failed to create ETCD client: %v", err)
	}
	defer client.Close()

	keys, err := listAll(ctx, client, "")
	if err != nil {
		t.Skipf("etcd not reachable: %v", err)
	}

	if len(keys) == 0 {
		t.Log("No keys found. Run TestSeedBridgeConfig_Development first.")
		return
	}

	t.Logf("Found %d keys in bridge/development:", len(keys))
	for key, value := range keys {
		t.Logf("  - %s = %s", key, value)
	}
}

// TestCleanupBridgeKeys elimina todas las claves del bridge en development.
func TestCleanupBridgeKeys(t *testing.T) {
	t.Skip("Skipped by default - enable manually to cleanup")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := New(
		WithApp("bridge"),
		WithEnv("development"),
	)
	if err != nil {
		t.Fatalf("Failed to create ETCD client: %v", err)
	}
	defer client.Close()

	keys, err := listAll(ctx, client, "")
	if err != nil {
		t.Fatalf("Failed to list keys: %v", err)
	}

	for key := range keys {
		if err := del(ctx, client, key); err != nil {
			t.Logf("Failed to delete %s: %v", key, err)
		} else {
			t.Logf("Deleted: %s", key)
		}
	}

	t.Logf("Cleanup completed (%d keys deleted)", len(keys))
}

// del es un helper para eliminar una clave en ETCD.
func del(ctx context.Context, client *Client, key string) error {
	return client.DeleteVar(ctx, key)
}
