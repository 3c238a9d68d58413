package position

import (
	"math"
	"sync"
)

// Ledger accumulates closed trades and derives performance statistics
// from the realized equity curve.
type Ledger struct {
	mu             sync.Mutex
	initialBalance float64
	trades         []ClosedTrade
}

// NewLedger starts a ledger from the given account balance.
func NewLedger(initialBalance float64) *Ledger {
	return &Ledger{initialBalance: initialBalance}
}

// Record appends a closed trade.
func (l *Ledger) Record(t ClosedTrade) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.trades = append(l.trades, t)
}

// Trades returns a copy of the recorded trades in close order.
func (l *Ledger) Trades() []ClosedTrade {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]ClosedTrade, len(l.trades))
	copy(out, l.trades)
	return out
}

// InitialBalance returns the starting balance the ledger was created with.
func (l *Ledger) InitialBalance() float64 {
	return l.initialBalance
}

// Balance returns the starting balance plus realized PnL.
func (l *Ledger) Balance() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	balance := l.initialBalance
	for _, t := range l.trades {
		balance += t.PnL
	}
	return balance
}

// Stats summarizes realized performance.
type Stats struct {
	TotalTrades int
	Wins        int
	Losses      int
	WinRate     float64

	GrossProfit float64
	GrossLoss   float64
	NetPnL      float64
	TotalFees   float64

	ProfitFactor float64
	Expectancy   float64
	AvgWin       float64
	AvgLoss      float64

	MaxDrawdown  float64
	SharpeRatio  float64
	SortinoRatio float64

	InitialBalance float64
	FinalBalance   float64
}

// Stats computes the summary over all recorded trades.
func (l *Ledger) Stats() Stats {
	l.mu.Lock()
	defer l.mu.Unlock()

	s := Stats{InitialBalance: l.initialBalance}
	s.FinalBalance = l.initialBalance
	if len(l.trades) == 0 {
		return s
	}

	returns := make([]float64, 0, len(l.trades))
	equity := l.initialBalance
	peak := equity

	for _, t := range l.trades {
		s.TotalTrades++
		s.TotalFees += t.Fees
		if t.PnL > 0 {
			s.Wins++
			s.GrossProfit += t.PnL
		} else {
			s.Losses++
			s.GrossLoss += math.Abs(t.PnL)
		}

		if equity > 0 {
			returns = append(returns, t.PnL/equity)
		}
		equity += t.PnL
		if equity > peak {
			peak = equity
		}
		if peak > 0 {
			if dd := (peak - equity) / peak * 100; dd > s.MaxDrawdown {
				s.MaxDrawdown = dd
			}
		}
	}

	s.NetPnL = s.GrossProfit - s.GrossLoss
	s.FinalBalance = equity
	s.WinRate = float64(s.Wins) / float64(s.TotalTrades) * 100

	if s.GrossLoss == 0 {
		if s.GrossProfit > 0 {
			s.ProfitFactor = math.Inf(1)
		}
	} else {
		s.ProfitFactor = s.GrossProfit / s.GrossLoss
	}

	s.Expectancy = s.NetPnL / float64(s.TotalTrades)
	if s.Wins > 0 {
		s.AvgWin = s.GrossProfit / float64(s.Wins)
	}
	if s.Losses > 0 {
		s.AvgLoss = s.GrossLoss / float64(s.Losses)
	}

	s.SharpeRatio = sharpe(returns)
	s.SortinoRatio = sortino(returns)
	return s
}

func sharpe(returns []float64) float64 {
	if len(returns) < 2 {
		return 0
	}
	avg := 0.0
	for _, r := range returns {
		avg += r
	}
	avg /= float64(len(returns))

	variance := 0.0
	for _, r := range returns {
		variance += (r - avg) * (r - avg)
	}
	variance /= float64(len(returns))
	stdDev := math.Sqrt(variance)
	if stdDev < 1e-10 {
		return 0
	}
	return avg / stdDev
}

func sortino(returns []float64) float64 {
	if len(returns) < 2 {
		return 0
	}
	avg := 0.0
	for _, r := range returns {
		avg += r
	}
	avg /= float64(len(returns))

	downsideVariance := 0.0
	downsideCount := 0
	for _, r := range returns {
		if r < 0 {
			downsideVariance += r * r
			downsideCount++
		}
	}
	if downsideCount == 0 || downsideVariance == 0 {
		if avg > 0 {
			return math.Inf(1)
		}
		return 0
	}
	downsideStdDev := math.Sqrt(downsideVariance / float64(downsideCount))
	return avg / downsideStdDev
}
