package domain

import (
	"encoding/json"
	"testing"
)

func TestCommandToWire(t *testing.T) {
	stopLoss := 1.08500
	target := 1.09000

	tests := []struct {
		name string
		cmd  *Command
		want CommandMessage
	}{
		{
			name: "trade command",
			cmd: &Command{
				CommandID:  "cmd-1",
				Action:     ActionTrade,
				Symbol:     "EURUSD",
				Direction:  DirectionBuy,
				Volume:     0.10,
				StopLoss:   &stopLoss,
				TakeProfit: &target,
			},
			want: CommandMessage{
				ID:         "cmd-1",
				Action:     ActionTrade,
				Symbol:     "EURUSD",
				Type:       DirectionBuy,
				StopLoss:   &stopLoss,
				TakeProfit: &target,
			},
		},
		{
			name: "close command carries only position id",
			cmd: &Command{
				CommandID:  "cmd-2",
				Action:     ActionClose,
				Symbol:     "EURUSD",
				PositionID: "184523",
			},
			want: CommandMessage{
				ID:         "cmd-2",
				Action:     ActionClose,
				PositionID: "184523",
			},
		},
		{
			name: "ping command has no payload",
			cmd:  &Command{CommandID: "cmd-3", Action: ActionPing},
			want: CommandMessage{ID: "cmd-3", Action: ActionPing},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := CommandToWire(tt.cmd)
			if msg.ID != tt.want.ID || msg.Action != tt.want.Action {
				t.Fatalf("expected id/action %s/%s, got %s/%s", tt.want.ID, tt.want.Action, msg.ID, msg.Action)
			}
			if msg.Symbol != tt.want.Symbol || msg.Type != tt.want.Type {
				t.Fatalf("expected symbol/type %s/%s, got %s/%s", tt.want.Symbol, tt.want.Type, msg.Symbol, msg.Type)
			}
			if msg.PositionID != tt.want.PositionID {
				t.Fatalf("expected positionId %q, got %q", tt.want.PositionID, msg.PositionID)
			}
			if tt.cmd.Action == ActionTrade {
				if msg.Volume == nil || *msg.Volume != tt.cmd.Volume {
					t.Fatalf("trade message must carry volume %v", tt.cmd.Volume)
				}
			} else if msg.Volume != nil {
				t.Fatalf("non-trade message must not carry volume")
			}
		})
	}
}

func TestCommandMessageRoundTrip(t *testing.T) {
	stopLoss := 1.08500
	volume := 0.10
	msg := &CommandMessage{
		ID:       "cmd-1",
		Action:   ActionTrade,
		Symbol:   "EURUSD",
		Type:     DirectionBuy,
		Volume:   &volume,
		StopLoss: &stopLoss,
	}

	data, err := msg.Encode()
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}

	// Los nombres del protocolo son contractuales
	var raw map[string]interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("encoded message is not valid JSON: %v", err)
	}
	for _, key := range []string{"id", "action", "symbol", "type", "volume", "stopLoss"} {
		if _, ok := raw[key]; !ok {
			t.Fatalf("encoded message missing key %q: %s", key, data)
		}
	}
	if _, ok := raw["takeProfit"]; ok {
		t.Fatalf("unset takeProfit must be omitted: %s", data)
	}

	decoded, err := DecodeCommandMessage(data)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if decoded.ID != msg.ID || decoded.Action != msg.Action || decoded.Symbol != msg.Symbol {
		t.Fatalf("round trip mismatch: %+v vs %+v", decoded, msg)
	}
}

func TestDecodeCommandMessage(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		wantErr bool
	}{
		{"valid trade", `{"id":"cmd-1","action":"TRADE","symbol":"EURUSD","type":"BUY","volume":0.1}`, false},
		{"valid close", `{"id":"cmd-2","action":"CLOSE","positionId":"184523"}`, false},
		{"valid ping", `{"id":"cmd-3","action":"PING"}`, false},
		{"missing id", `{"action":"TRADE","symbol":"EURUSD"}`, true},
		{"unknown action", `{"id":"cmd-4","action":"MODIFY"}`, true},
		{"malformed json", `{"id":`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, err := DecodeCommandMessage([]byte(tt.data))
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %+v", msg)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestDecodeAgentMessage(t *testing.T) {
	tests := []struct {
		name          string
		data          string
		wantHeartbeat bool
		wantReport    bool
		wantErr       bool
	}{
		{"heartbeat", `{"type":"HEARTBEAT"}`, true, false, false},
		{"heartbeat lowercase", `{"type":"heartbeat"}`, true, false, false},
		{"success report", `{"commandId":"cmd-1","success":true,"orderId":"184523","positionId":"184523"}`, false, true, false},
		{"failure report", `{"commandId":"cmd-1","success":false,"error":"market closed"}`, false, true, false},
		{"neither report nor heartbeat", `{"type":"STATUS"}`, false, false, true},
		{"empty object", `{}`, false, false, true},
		{"malformed json", `not json`, false, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, err := DecodeAgentMessage([]byte(tt.data))
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %+v", msg)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if msg.Heartbeat != tt.wantHeartbeat {
				t.Fatalf("expected heartbeat %v, got %v", tt.wantHeartbeat, msg.Heartbeat)
			}
			if (msg.Report != nil) != tt.wantReport {
				t.Fatalf("expected report presence %v, got %+v", tt.wantReport, msg.Report)
			}
		})
	}
}

func TestDecodeAgentMessageReportFields(t *testing.T) {
	data := `{"commandId":"cmd-1","success":true,"orderId":"184523","positionId":"184523"}`
	msg, err := DecodeAgentMessage([]byte(data))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	report := msg.Report
	if report.CommandID != "cmd-1" || !report.Success {
		t.Fatalf("report header mismatch: %+v", report)
	}
	if report.OrderID != "184523" || report.PositionID != "184523" {
		t.Fatalf("report ids mismatch: %+v", report)
	}
}
