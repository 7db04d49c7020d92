package internal

import (
	"testing"

	"github.com/Nishanttwho/Tradingview-to-bridge/sdk/domain"
)

func TestTerminalError(t *testing.T) {
	tests := []struct {
		name     string
		response map[string]interface{}
		wantCode domain.ErrorCode
		wantMsg  string
	}{
		{
			name:     "mapped terminal code",
			response: map[string]interface{}{"ok": false, "code": float64(134), "error": "not enough money"},
			wantCode: domain.ErrNoMoney,
			wantMsg:  "not enough money",
		},
		{
			name:     "requote",
			response: map[string]interface{}{"ok": false, "code": float64(138), "error": "requote"},
			wantCode: domain.ErrRequote,
			wantMsg:  "requote",
		},
		{
			name:     "unknown code falls back to execution failure",
			response: map[string]interface{}{"ok": false, "code": float64(7777), "error": "weird state"},
			wantCode: domain.ErrExecutionFailed,
			wantMsg:  "weird state",
		},
		{
			name:     "missing code",
			response: map[string]interface{}{"ok": false, "error": "rejected"},
			wantCode: domain.ErrExecutionFailed,
			wantMsg:  "rejected",
		},
		{
			name:     "missing message",
			response: map[string]interface{}{"ok": false, "code": float64(132)},
			wantCode: domain.ErrMarketClosed,
			wantMsg:  "terminal rejected request",
		},
		{
			name:     "empty response",
			response: map[string]interface{}{},
			wantCode: domain.ErrExecutionFailed,
			wantMsg:  "terminal rejected request",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := terminalError(tt.response)
			if err == nil {
				t.Fatal("expected an error")
			}
			if !domain.IsErrorCode(err, tt.wantCode) {
				t.Fatalf("expected code %s, got %v", tt.wantCode, err)
			}
			terr, ok := err.(*domain.TradingError)
			if !ok {
				t.Fatalf("expected *domain.TradingError, got %T", err)
			}
			if terr.Message != tt.wantMsg {
				t.Fatalf("expected message %q, got %q", tt.wantMsg, terr.Message)
			}
		})
	}
}
