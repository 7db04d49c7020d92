package domain

import (
	"testing"
)

func TestCommandStatusTransitions(t *testing.T) {
	tests := []struct {
		name string
		from CommandStatus
		to   CommandStatus
		want bool
	}{
		{"pending to sent", CommandStatusPending, CommandStatusSent, true},
		{"pending to failed", CommandStatusPending, CommandStatusFailed, true},
		{"pending to acknowledged", CommandStatusPending, CommandStatusAcknowledged, false},
		{"sent to acknowledged", CommandStatusSent, CommandStatusAcknowledged, true},
		{"sent to failed", CommandStatusSent, CommandStatusFailed, true},
		{"sent to pending", CommandStatusSent, CommandStatusPending, false},
		{"acknowledged is terminal", CommandStatusAcknowledged, CommandStatusFailed, false},
		{"failed is terminal", CommandStatusFailed, CommandStatusPending, false},
		{"failed stays failed", CommandStatusFailed, CommandStatusSent, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.from.CanTransitionTo(tt.to); got != tt.want {
				t.Fatalf("%s -> %s = %v, want %v", tt.from, tt.to, got, tt.want)
			}
		})
	}
}

func TestCommandStatusIsTerminal(t *testing.T) {
	tests := []struct {
		status CommandStatus
		want   bool
	}{
		{CommandStatusPending, false},
		{CommandStatusSent, false},
		{CommandStatusAcknowledged, true},
		{CommandStatusFailed, true},
	}

	for _, tt := range tests {
		if got := tt.status.IsTerminal(); got != tt.want {
			t.Fatalf("%s.IsTerminal() = %v, want %v", tt.status, got, tt.want)
		}
	}
}

func TestSignalStatusIsTerminal(t *testing.T) {
	if SignalStatusPending.IsTerminal() {
		t.Fatalf("pending signal must not be terminal")
	}
	if !SignalStatusExecuted.IsTerminal() || !SignalStatusFailed.IsTerminal() {
		t.Fatalf("executed and failed signals must be terminal")
	}
}

func TestDirectionOpposite(t *testing.T) {
	if DirectionBuy.Opposite() != DirectionSell {
		t.Fatalf("opposite of BUY must be SELL")
	}
	if DirectionSell.Opposite() != DirectionBuy {
		t.Fatalf("opposite of SELL must be BUY")
	}
}

func TestValidateCommand(t *testing.T) {
	tests := []struct {
		name    string
		cmd     *Command
		wantErr bool
	}{
		{
			name: "valid trade",
			cmd: &Command{
				CommandID: "cmd-1",
				Action:    ActionTrade,
				Symbol:    "EURUSD",
				Direction: DirectionBuy,
				Volume:    0.10,
			},
		},
		{
			name: "trade without symbol",
			cmd: &Command{
				CommandID: "cmd-1",
				Action:    ActionTrade,
				Direction: DirectionBuy,
				Volume:    0.10,
			},
			wantErr: true,
		},
		{
			name: "trade with zero volume",
			cmd: &Command{
				CommandID: "cmd-1",
				Action:    ActionTrade,
				Symbol:    "EURUSD",
				Direction: DirectionBuy,
			},
			wantErr: true,
		},
		{
			name: "trade with bad direction",
			cmd: &Command{
				CommandID: "cmd-1",
				Action:    ActionTrade,
				Symbol:    "EURUSD",
				Direction: "HOLD",
				Volume:    0.10,
			},
			wantErr: true,
		},
		{
			name: "valid close",
			cmd:  &Command{CommandID: "cmd-2", Action: ActionClose, PositionID: "184523"},
		},
		{
			name:    "close without position",
			cmd:     &Command{CommandID: "cmd-2", Action: ActionClose},
			wantErr: true,
		},
		{
			name: "valid ping",
			cmd:  &Command{CommandID: "cmd-3", Action: ActionPing},
		},
		{
			name:    "unknown action",
			cmd:     &Command{CommandID: "cmd-4", Action: "MODIFY"},
			wantErr: true,
		},
		{
			name:    "missing id",
			cmd:     &Command{Action: ActionPing},
			wantErr: true,
		},
		{
			name:    "nil command",
			cmd:     nil,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateCommand(tt.cmd)
			if tt.wantErr && err == nil {
				t.Fatalf("expected validation error")
			}
			if !tt.wantErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestValidateSignal(t *testing.T) {
	valid := &Signal{
		SignalID:       "sig-1",
		Direction:      DirectionBuy,
		ExternalSymbol: "EURUSD",
	}
	if err := ValidateSignal(valid); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	negativeStop := -1.0
	tests := []struct {
		name   string
		signal *Signal
	}{
		{"nil signal", nil},
		{"missing id", &Signal{Direction: DirectionBuy, ExternalSymbol: "EURUSD"}},
		{"missing symbol", &Signal{SignalID: "sig-1", Direction: DirectionBuy}},
		{"bad direction", &Signal{SignalID: "sig-1", Direction: "HOLD", ExternalSymbol: "EURUSD"}},
		{"negative stop", &Signal{SignalID: "sig-1", Direction: DirectionBuy, ExternalSymbol: "EURUSD", StopLoss: &negativeStop}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := ValidateSignal(tt.signal); err == nil {
				t.Fatalf("expected validation error")
			}
		})
	}
}
