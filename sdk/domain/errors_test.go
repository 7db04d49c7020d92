package domain

import (
	"fmt"
	"testing"
)

func TestErrorFromTerminalCode(t *testing.T) {
	tests := []struct {
		name string
		code int
		want ErrorCode
	}{
		{"success", 0, ErrNoError},
		{"invalid price", 129, ErrInvalidPrice},
		{"invalid stops", 130, ErrInvalidStops},
		{"invalid volume", 131, ErrInvalidVolume},
		{"market closed", 132, ErrMarketClosed},
		{"trade disabled", 133, ErrTradeDisabled},
		{"not enough money", 134, ErrNoMoney},
		{"price changed", 135, ErrPriceChanged},
		{"off quotes", 136, ErrOffQuotes},
		{"broker busy", 137, ErrBrokerBusy},
		{"requote", 138, ErrRequote},
		{"unknown ticket", 4108, ErrNotFound},
		{"unmapped code", 9999, ErrUnknown},
		{"negative code", -1, ErrUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ErrorFromTerminalCode(tt.code); got != tt.want {
				t.Fatalf("ErrorFromTerminalCode(%d) = %s, want %s", tt.code, got, tt.want)
			}
		})
	}
}

func TestIsErrorCode(t *testing.T) {
	direct := NewError(ErrStateConflict, "command moved by another writer")
	wrapped := fmt.Errorf("transition failed: %w", direct)

	if !IsErrorCode(direct, ErrStateConflict) {
		t.Fatal("expected direct TradingError to match its code")
	}
	if !IsErrorCode(wrapped, ErrStateConflict) {
		t.Fatal("expected wrapped TradingError to match its code")
	}
	if IsErrorCode(direct, ErrNotFound) {
		t.Fatal("expected mismatched code to not match")
	}
	if IsErrorCode(fmt.Errorf("plain error"), ErrStateConflict) {
		t.Fatal("expected plain error to not match")
	}
	if IsErrorCode(nil, ErrStateConflict) {
		t.Fatal("expected nil error to not match")
	}
}
