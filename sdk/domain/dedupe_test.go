package domain

import (
	"testing"
)

func TestNormalizeSymbol(t *testing.T) {
	tests := []struct {
		name   string
		symbol string
		want   string
	}{
		{"plain", "EURUSD", "EURUSD"},
		{"lowercase", "eurusd", "EURUSD"},
		{"exchange prefix", "OANDA:EURUSD", "EURUSD"},
		{"slash separator", "EUR/USD", "EURUSD"},
		{"prefix and separator", "FX:EUR/USD", "EURUSD"},
		{"underscore", "BTC_USDT", "BTCUSDT"},
		{"whitespace", "  XAUUSD ", "XAUUSD"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NormalizeSymbol(tt.symbol)
			if got != tt.want {
				t.Fatalf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestSymbolsEquivalent(t *testing.T) {
	tests := []struct {
		name string
		a, b string
		want bool
	}{
		{"identical", "EURUSD", "EURUSD", true},
		{"cross naming scheme", "OANDA:EUR/USD", "eurusd", true},
		{"different pairs", "EURUSD", "GBPUSD", false},
		{"empty left", "", "EURUSD", false},
		{"both empty", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SymbolsEquivalent(tt.a, tt.b); got != tt.want {
				t.Fatalf("SymbolsEquivalent(%q, %q) = %v, want %v", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestIsDuplicate(t *testing.T) {
	base := int64(1_700_000_000_000)

	mkSignal := func(id, symbol string, direction Direction, status SignalStatus, createdAtMs int64) *Signal {
		return &Signal{
			SignalID:       id,
			Direction:      direction,
			ExternalSymbol: symbol,
			BrokerSymbol:   NormalizeSymbol(symbol),
			Status:         status,
			CreatedAtMs:    createdAtMs,
		}
	}

	tests := []struct {
		name   string
		signal *Signal
		recent []*Signal
		want   bool
	}{
		{
			name:   "repeat within window",
			signal: mkSignal("s2", "EURUSD", DirectionBuy, SignalStatusPending, base+30_000),
			recent: []*Signal{mkSignal("s1", "EURUSD", DirectionBuy, SignalStatusPending, base)},
			want:   true,
		},
		{
			name:   "outside window",
			signal: mkSignal("s2", "EURUSD", DirectionBuy, SignalStatusPending, base+60_000),
			recent: []*Signal{mkSignal("s1", "EURUSD", DirectionBuy, SignalStatusPending, base)},
			want:   false,
		},
		{
			name:   "different direction",
			signal: mkSignal("s2", "EURUSD", DirectionSell, SignalStatusPending, base+1_000),
			recent: []*Signal{mkSignal("s1", "EURUSD", DirectionBuy, SignalStatusPending, base)},
			want:   false,
		},
		{
			name:   "failed prior does not block resend",
			signal: mkSignal("s2", "EURUSD", DirectionBuy, SignalStatusPending, base+1_000),
			recent: []*Signal{mkSignal("s1", "EURUSD", DirectionBuy, SignalStatusFailed, base)},
			want:   false,
		},
		{
			name:   "executed prior still blocks",
			signal: mkSignal("s2", "EURUSD", DirectionBuy, SignalStatusPending, base+1_000),
			recent: []*Signal{mkSignal("s1", "EURUSD", DirectionBuy, SignalStatusExecuted, base)},
			want:   true,
		},
		{
			name:   "cross naming scheme duplicate",
			signal: mkSignal("s2", "OANDA:EUR/USD", DirectionBuy, SignalStatusPending, base+1_000),
			recent: []*Signal{mkSignal("s1", "eurusd", DirectionBuy, SignalStatusPending, base)},
			want:   true,
		},
		{
			name:   "different symbol",
			signal: mkSignal("s2", "GBPUSD", DirectionBuy, SignalStatusPending, base+1_000),
			recent: []*Signal{mkSignal("s1", "EURUSD", DirectionBuy, SignalStatusPending, base)},
			want:   false,
		},
		{
			name:   "same id is not its own duplicate",
			signal: mkSignal("s1", "EURUSD", DirectionBuy, SignalStatusPending, base+1_000),
			recent: []*Signal{mkSignal("s1", "EURUSD", DirectionBuy, SignalStatusPending, base)},
			want:   false,
		},
		{
			name:   "empty window",
			signal: mkSignal("s1", "EURUSD", DirectionBuy, SignalStatusPending, base),
			recent: nil,
			want:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := IsDuplicate(tt.signal, tt.recent, DefaultDedupeWindowMs)
			if got != tt.want {
				t.Fatalf("IsDuplicate = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIsDuplicateWindowBoundary(t *testing.T) {
	base := int64(1_700_000_000_000)
	prev := &Signal{
		SignalID:       "s1",
		Direction:      DirectionBuy,
		ExternalSymbol: "EURUSD",
		BrokerSymbol:   "EURUSD",
		Status:         SignalStatusPending,
		CreatedAtMs:    base,
	}

	inside := &Signal{
		SignalID:       "s2",
		Direction:      DirectionBuy,
		ExternalSymbol: "EURUSD",
		BrokerSymbol:   "EURUSD",
		CreatedAtMs:    base + DefaultDedupeWindowMs - 1,
	}
	if !IsDuplicate(inside, []*Signal{prev}, DefaultDedupeWindowMs) {
		t.Fatalf("signal at window-1 ms should be duplicate")
	}

	outside := &Signal{
		SignalID:       "s3",
		Direction:      DirectionBuy,
		ExternalSymbol: "EURUSD",
		BrokerSymbol:   "EURUSD",
		CreatedAtMs:    base + DefaultDedupeWindowMs,
	}
	if IsDuplicate(outside, []*Signal{prev}, DefaultDedupeWindowMs) {
		t.Fatalf("signal at exactly window ms should not be duplicate")
	}
}
