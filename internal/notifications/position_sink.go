package notifications

import (
	"fmt"

	"github.com/ducminhle1904/regime-trading-bot/internal/position"
)

// PositionSink forwards position lifecycle events to a Notifier.
// Sends are fire-and-forget; a dead notifier must not stall trading.
type PositionSink struct {
	notifier Notifier
}

// NewPositionSink wraps a Notifier as a position.EventSink.
func NewPositionSink(notifier Notifier) *PositionSink {
	return &PositionSink{notifier: notifier}
}

func (s *PositionSink) PositionOpened(p position.Position) {
	msg := fmt.Sprintf("Opened %s %s\nQty: %.6f @ $%.2f\nSL: $%.2f | TP: $%.2f",
		p.Side, p.Symbol, p.Quantity, p.EntryPrice, p.StopLoss, p.TakeProfit)
	go s.notifier.SendAlert("trade", msg)
}

func (s *PositionSink) StopMoved(p position.Position, u position.StopUpdate) {
	msg := fmt.Sprintf("%s trailing stop: $%.2f → $%.2f (%s)",
		p.Symbol, u.OldStop, u.NewStop, u.Mode)
	go s.notifier.SendAlert("info", msg)
}

func (s *PositionSink) PositionClosed(t position.ClosedTrade) {
	level := "success"
	if t.PnL < 0 {
		level = "warning"
	}
	msg := fmt.Sprintf("Closed %s %s (%s)\nEntry: $%.2f | Exit: $%.2f\nPnL: $%.2f",
		t.Side, t.Symbol, t.Reason, t.EntryPrice, t.ExitPrice, t.PnL)
	go s.notifier.SendAlert(level, msg)
}
