package internal

import (
	"context"
	"testing"
	"time"

	"github.com/Nishanttwho/Tradingview-to-bridge/sdk/domain"
	"github.com/Nishanttwho/Tradingview-to-bridge/sdk/telemetry"
)

func newTestResolver(t *testing.T, repo domain.SymbolRepository) *SymbolResolver {
	t.Helper()
	ctx := context.Background()

	tel, err := telemetry.New(ctx, "resolver-test", "test",
		telemetry.WithLogsDisabled(),
		telemetry.WithMetricsDisabled(),
		telemetry.WithTracesDisabled(),
	)
	if err != nil {
		t.Fatalf("failed to create telemetry client: %v", err)
	}
	t.Cleanup(func() { _ = tel.Shutdown(ctx) })

	resolver := NewSymbolResolver(ctx, repo, tel, 16)
	resolver.Start()
	t.Cleanup(resolver.Stop)
	return resolver
}

func TestSymbolResolverExplicitMapping(t *testing.T) {
	ctx := context.Background()
	repo := newStubSymbolRepo()
	if err := repo.Upsert(ctx, &domain.SymbolMapping{
		ExternalSymbol: "OANDA:XAUUSD",
		BrokerSymbol:   "GOLD",
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	resolver := newTestResolver(t, repo)

	if got := resolver.Resolve(ctx, "OANDA:XAUUSD"); got != "GOLD" {
		t.Fatalf("expected explicit mapping GOLD, got %s", got)
	}
}

func TestSymbolResolverNormalizationFallback(t *testing.T) {
	ctx := context.Background()
	resolver := newTestResolver(t, newStubSymbolRepo())

	cases := []struct {
		external string
		expect   string
	}{
		{"OANDA:EURUSD", "EURUSD"},
		{"BINANCE:BTCUSDT", "BTCUSDT"},
		{"GBP/USD", "GBPUSD"},
		{"eurusd", "EURUSD"},
	}

	for _, tc := range cases {
		if got := resolver.Resolve(ctx, tc.external); got != tc.expect {
			t.Fatalf("Resolve(%q) = %q, expected %q", tc.external, got, tc.expect)
		}
	}
}

func TestSymbolResolverUpsertMapping(t *testing.T) {
	ctx := context.Background()
	repo := newStubSymbolRepo()
	resolver := newTestResolver(t, repo)

	if err := resolver.UpsertMapping(ctx, "FXCM:US30", "DJ30"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// El caché se actualiza de inmediato
	if got := resolver.Resolve(ctx, "FXCM:US30"); got != "DJ30" {
		t.Fatalf("expected DJ30 from cache, got %s", got)
	}

	// La persistencia es async: esperar al worker
	deadline := time.Now().Add(2 * time.Second)
	for {
		m, err := repo.GetByExternal(ctx, "FXCM:US30")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if m != nil && m.BrokerSymbol == "DJ30" {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("mapping never persisted")
		}
		time.Sleep(10 * time.Millisecond)
	}

	if err := resolver.UpsertMapping(ctx, "", "DJ30"); err == nil {
		t.Fatalf("expected error for empty external symbol")
	}
}

func TestSymbolResolverSeed(t *testing.T) {
	ctx := context.Background()
	repo := newStubSymbolRepo()
	resolver := newTestResolver(t, repo)

	resolver.Seed(ctx, map[string]string{
		"OANDA:XAUUSD":  "GOLD",
		"CAPITAL:US100": "NAS100",
		"":              "IGNORED", // par inválido: se reporta y se omite
	})

	// Los pares válidos resuelven desde el caché de inmediato
	if got := resolver.Resolve(ctx, "OANDA:XAUUSD"); got != "GOLD" {
		t.Fatalf("expected GOLD from seeded mapping, got %s", got)
	}
	if got := resolver.Resolve(ctx, "CAPITAL:US100"); got != "NAS100" {
		t.Fatalf("expected NAS100 from seeded mapping, got %s", got)
	}

	// Y terminan persistidos por el worker async
	deadline := time.Now().Add(2 * time.Second)
	for {
		gold, err := repo.GetByExternal(ctx, "OANDA:XAUUSD")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		nas, err := repo.GetByExternal(ctx, "CAPITAL:US100")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if gold != nil && nas != nil {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("seeded mappings never persisted")
		}
		time.Sleep(10 * time.Millisecond)
	}

	if _, ok := resolver.Mappings()[""]; ok {
		t.Fatalf("invalid pair must not enter the cache")
	}
}
