package backtest

import (
	"errors"
	"fmt"
	"time"

	berrors "github.com/ducminhle1904/regime-trading-bot/internal/errors"
	"github.com/ducminhle1904/regime-trading-bot/internal/indicators"
	"github.com/ducminhle1904/regime-trading-bot/internal/position"
	"github.com/ducminhle1904/regime-trading-bot/internal/regime"
	"github.com/ducminhle1904/regime-trading-bot/internal/strategy"
	"github.com/ducminhle1904/regime-trading-bot/pkg/types"
)

// Config drives a single backtest run.
type Config struct {
	Symbol         string
	InitialBalance float64
	WindowSize     int
	ATRPeriod      int

	Regime   regime.Config
	Fusion   strategy.FusionConfig
	Profiles strategy.ProfileTable
	Risk     position.Config
}

// DefaultConfig returns a runnable backtest configuration.
func DefaultConfig(symbol string) Config {
	return Config{
		Symbol:         symbol,
		InitialBalance: 10000,
		WindowSize:     200,
		ATRPeriod:      14,
		Regime:         regime.DefaultConfig(),
		Fusion:         strategy.DefaultFusionConfig(),
		Profiles:       strategy.DefaultProfiles(),
		Risk:           position.DefaultConfig(),
	}
}

// EquityPoint is one sample of the marked-to-market equity curve.
type EquityPoint struct {
	Timestamp time.Time
	Equity    float64
}

// Results holds everything a run produced.
type Results struct {
	Stats         position.Stats
	Trades        []position.ClosedTrade
	EquityCurve   []EquityPoint
	RegimeChanges []regime.Change

	BarsProcessed int
	FinalRegime   regime.Regime
}

// Engine replays historical candles through the regime classifier, the
// fusion engine, and the position manager, bar by bar, exactly as the
// live loop would see them.
type Engine struct {
	config     Config
	classifier *regime.Classifier
	fusion     *strategy.FusionEngine
	manager    *position.Manager
	ledger     *position.Ledger
	atr        *indicators.ATR
}

// NewEngine builds a backtest engine from the given configuration.
func NewEngine(cfg Config) (*Engine, error) {
	if cfg.Symbol == "" {
		return nil, berrors.NewValidationError("backtest", "new_engine", "symbol is required")
	}
	if cfg.InitialBalance <= 0 {
		return nil, berrors.NewValidationError("backtest", "new_engine",
			fmt.Sprintf("initial balance must be positive, got %.2f", cfg.InitialBalance))
	}
	if cfg.WindowSize < cfg.Regime.MinWindow {
		return nil, berrors.NewValidationError("backtest", "new_engine",
			fmt.Sprintf("window size %d is below the regime minimum %d", cfg.WindowSize, cfg.Regime.MinWindow))
	}

	ledger := position.NewLedger(cfg.InitialBalance)
	manager, err := position.NewManager(cfg.Risk, ledger)
	if err != nil {
		return nil, err
	}

	profiles := cfg.Profiles
	if profiles == nil {
		profiles = strategy.DefaultProfiles()
	}

	return &Engine{
		config:     cfg,
		classifier: regime.NewClassifier(cfg.Regime),
		fusion:     strategy.NewFusionEngine(profiles, cfg.Fusion),
		manager:    manager,
		ledger:     ledger,
		atr:        indicators.NewATR(cfg.ATRPeriod),
	}, nil
}

// Manager exposes the position manager, mainly for event sink wiring.
func (e *Engine) Manager() *position.Manager {
	return e.manager
}

// Run replays the candle series. Any open position at the end of the
// data is force-closed at the final close so the stats are complete.
func (e *Engine) Run(data []types.OHLCV) (*Results, error) {
	if len(data) <= e.config.WindowSize {
		return nil, berrors.NewValidationError("backtest", "run",
			fmt.Sprintf("need more than %d candles, got %d", e.config.WindowSize, len(data)))
	}

	results := &Results{}
	symbol := e.config.Symbol
	lastRegime := e.classifier.Current()

	for i := e.config.WindowSize; i < len(data); i++ {
		window := data[i-e.config.WindowSize : i+1]
		bar := data[i]
		results.BarsProcessed++

		state := e.classifier.Classify(window)
		if state.Current != lastRegime && state.Current != regime.RegimeMixed {
			results.RegimeChanges = append(results.RegimeChanges, regime.Change{
				Timestamp:    bar.Timestamp,
				OldRegime:    lastRegime,
				NewRegime:    state.Current,
				TriggerPrice: bar.Close,
			})
			lastRegime = state.Current
		}
		atr, err := e.atr.Calculate(window)
		if err != nil {
			atr = 0
		}

		// Advance the open position first so stop and take-profit checks
		// run against this bar before any new decision is acted on.
		_, hadPosition := e.manager.Get(symbol)
		if hadPosition {
			if _, err := e.manager.OnBar(symbol, bar, atr); err != nil {
				return nil, err
			}
		}

		signal := e.fusion.GenerateSignal(window, state)

		if p, open := e.manager.Get(symbol); open {
			if reversed(p.Side, signal.Direction) {
				if _, err := e.manager.Close(symbol, bar.Close, position.ExitSignalReversal, bar.Timestamp); err != nil {
					return nil, err
				}
			}
		} else if !hadPosition && atr > 0 {
			if side, ok := entrySide(signal.Direction); ok {
				req := position.OpenRequest{
					Symbol:     symbol,
					Side:       side,
					EntryPrice: bar.Close,
					ATR:        atr,
					Balance:    e.ledger.Balance(),
					Regime:     state.Current,
					Timestamp:  bar.Timestamp,
				}
				if _, err := e.manager.Open(req); err != nil {
					if !isSizingError(err) {
						return nil, err
					}
					// Unsizable entries (zero balance, degenerate stop) are skipped.
				} else if _, err := e.manager.Confirm(symbol); err != nil {
					return nil, err
				}
			}
		}

		results.EquityCurve = append(results.EquityCurve, EquityPoint{
			Timestamp: bar.Timestamp,
			Equity:    e.markedEquity(symbol, bar.Close),
		})
	}

	last := data[len(data)-1]
	if _, open := e.manager.Get(symbol); open {
		if _, err := e.manager.Close(symbol, last.Close, position.ExitForceClose, last.Timestamp); err != nil {
			return nil, err
		}
	}

	results.Stats = e.ledger.Stats()
	results.Trades = e.ledger.Trades()
	results.FinalRegime = e.classifier.Current()
	return results, nil
}

// markedEquity is realized balance plus unrealized PnL at price.
func (e *Engine) markedEquity(symbol string, price float64) float64 {
	return e.ledger.Balance() + e.manager.UnrealizedPnL(map[string]float64{symbol: price})
}

func entrySide(d strategy.Direction) (position.Side, bool) {
	switch d {
	case strategy.DirectionLong:
		return position.SideLong, true
	case strategy.DirectionShort:
		return position.SideShort, true
	default:
		return 0, false
	}
}

// reversed reports whether the signal points against the open side.
// A flat signal holds the position; only an opposite signal exits.
func reversed(side position.Side, d strategy.Direction) bool {
	switch side {
	case position.SideLong:
		return d == strategy.DirectionShort
	case position.SideShort:
		return d == strategy.DirectionLong
	default:
		return false
	}
}

func isSizingError(err error) bool {
	var be *berrors.BotError
	if !errors.As(err, &be) {
		return false
	}
	return be.Category == berrors.ErrorCategorySizing
}
