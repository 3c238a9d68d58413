package bot

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ducminhle1904/regime-trading-bot/internal/config"
	"github.com/ducminhle1904/regime-trading-bot/internal/exchange"
	"github.com/ducminhle1904/regime-trading-bot/internal/indicators"
	"github.com/ducminhle1904/regime-trading-bot/internal/logger"
	"github.com/ducminhle1904/regime-trading-bot/internal/monitoring"
	"github.com/ducminhle1904/regime-trading-bot/internal/notifications"
	"github.com/ducminhle1904/regime-trading-bot/internal/position"
	"github.com/ducminhle1904/regime-trading-bot/internal/regime"
	"github.com/ducminhle1904/regime-trading-bot/internal/safety"
	"github.com/ducminhle1904/regime-trading-bot/internal/state"
	"github.com/ducminhle1904/regime-trading-bot/internal/strategy"
	"github.com/ducminhle1904/regime-trading-bot/pkg/types"
)

// LiveBot runs the regime-aware decision loop against a live exchange:
// one analysis cycle per closed candle, orders and protective stops
// mirrored to the venue.
type LiveBot struct {
	config   *config.BotConfig
	exchange exchange.Exchange
	logger   *logger.Logger
	notifier notifications.Notifier
	health   *monitoring.HealthChecker

	classifier *regime.Classifier
	fusion     *strategy.FusionEngine
	manager    *position.Manager
	ledger     *position.Ledger
	atr        *indicators.ATR
	breaker    *safety.CircuitBreaker
	store      *state.Store

	symbol   string
	interval string

	mu         sync.Mutex
	balance    float64
	lastRegime regime.Regime
	fundingDue time.Time

	running  bool
	stopOnce sync.Once
	stopChan chan struct{}
	done     chan struct{}
}

// NewLiveBot wires the decision engine from config. It does not touch
// the network; Start performs the exchange handshake.
func NewLiveBot(cfg *config.BotConfig) (*LiveBot, error) {
	if cfg == nil {
		return nil, fmt.Errorf("bot configuration is required")
	}

	ex, err := exchange.NewExchange(cfg.Exchange)
	if err != nil {
		return nil, fmt.Errorf("failed to create exchange: %w", err)
	}

	fileLogger, err := logger.NewLogger(cfg.Strategy.Symbol, cfg.Strategy.Interval)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	store, err := state.NewStore(cfg.StateDir, cfg.Strategy.Symbol)
	if err != nil {
		return nil, fmt.Errorf("failed to create state store: %w", err)
	}

	profiles := cfg.Strategy.Profiles
	if profiles == nil {
		profiles = strategy.DefaultProfiles()
	}

	bot := &LiveBot{
		config:     cfg,
		exchange:   ex,
		logger:     fileLogger,
		health:     monitoring.NewHealthChecker(),
		classifier: regime.NewClassifier(cfg.Strategy.Regime),
		fusion: strategy.NewFusionEngine(profiles, strategy.FusionConfig{
			LongThreshold:  cfg.Strategy.LongThreshold,
			ShortThreshold: cfg.Strategy.ShortThreshold,
		}),
		atr:        indicators.NewATR(cfg.Strategy.ATRPeriod),
		breaker:    safety.NewCircuitBreaker("exchange", safety.DefaultBreakerConfig()),
		store:      store,
		symbol:     cfg.Strategy.Symbol,
		interval:   cfg.Strategy.Interval,
		lastRegime: regime.RegimeUnknown,
		stopChan:   make(chan struct{}),
		done:       make(chan struct{}),
	}

	if n := cfg.Notifications; n != nil && n.Enabled {
		bot.notifier = notifications.NewTelegramNotifier(n.TelegramToken, n.TelegramChat)
	}

	return bot, nil
}

// Health exposes the health checker for the HTTP endpoint.
func (bot *LiveBot) Health() *monitoring.HealthChecker {
	return bot.health
}

// Start connects to the exchange, seeds the ledger from the live
// balance, and launches the trading loop.
func (bot *LiveBot) Start() error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	balance, err := bot.getBalance(ctx)
	if err != nil {
		bot.health.SetConnected(false)
		return fmt.Errorf("failed to fetch account balance: %w", err)
	}
	bot.health.SetConnected(true)
	bot.balance = balance.Available

	bot.ledger = position.NewLedger(bot.balance)
	manager, err := position.NewManager(bot.config.Risk, bot.ledger)
	if err != nil {
		return err
	}
	bot.manager = manager
	if bot.notifier != nil {
		bot.manager.SetEventSink(notifications.NewPositionSink(bot.notifier))
	}

	if err := bot.exchange.SetLeverage(ctx, bot.symbol, bot.config.Risk.Leverage); err != nil {
		// Bybit rejects a no-op leverage change; anything else is fatal.
		bot.logger.Warning("Could not set leverage: %v", err)
	}

	if err := bot.restoreSavedPosition(ctx); err != nil {
		bot.logger.Warning("Could not restore saved position: %v", err)
	}
	if _, managed := bot.manager.Get(bot.symbol); !managed {
		if err := bot.adoptExistingPosition(ctx); err != nil {
			bot.logger.Warning("Could not check existing position: %v", err)
		}
	}

	bot.printStartupInfo()
	fmt.Printf("📝 Trading logs: %s\n", bot.logger.GetLogPath())
	fmt.Printf("🔄 Bot is running... (trading activity logged to file)\n\n")

	bot.running = true
	go bot.tradingLoop()
	return nil
}

// Stop signals the loop, waits for it to exit, and closes the logger.
// Open positions are left running; their stops live on the exchange.
func (bot *LiveBot) Stop() {
	if !bot.running {
		return
	}
	bot.running = false
	bot.stopOnce.Do(func() { close(bot.stopChan) })

	select {
	case <-bot.done:
	case <-time.After(15 * time.Second):
		fmt.Printf("⚠️ Trading loop did not stop in time - forcing exit\n")
	}

	if p, ok := bot.manager.Get(bot.symbol); ok {
		bot.logger.Info("Leaving %s %s open with stop %.4f on the exchange", p.Side, p.Symbol, p.StopLoss)
	}
	bot.logger.Close()
}

// tradingLoop waits for the next candle close, then runs one analysis
// cycle per interval.
func (bot *LiveBot) tradingLoop() {
	defer close(bot.done)

	interval := intervalDuration(bot.interval)
	wait := timeUntilNextCandle(bot.interval)
	bot.logger.Info("Trading interval: %s, first check in %.0fs", bot.interval, wait.Seconds())

	timer := time.NewTimer(wait + 5*time.Second)
	defer timer.Stop()

	select {
	case <-timer.C:
		bot.checkAndTrade()
	case <-bot.stopChan:
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			bot.checkAndTrade()
		case <-bot.stopChan:
			return
		}
	}
}

// checkAndTrade runs one full decision cycle: refresh state, classify
// the regime, advance the open position, fuse a signal, and act on it.
func (bot *LiveBot) checkAndTrade() {
	defer func() {
		if r := recover(); r != nil {
			bot.logger.Error("Panic in trading cycle: %v", r)
			monitoring.RecordError("PANIC")
		}
	}()

	bot.mu.Lock()
	defer bot.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if balance, err := bot.getBalance(ctx); err != nil {
		bot.logger.Warning("Could not refresh balance: %v", err)
		bot.health.SetConnected(false)
	} else {
		bot.balance = balance.Available
		bot.health.SetConnected(true)
	}

	timeframe := bot.manager.AnalysisTimeframe(bot.symbol)
	window, err := bot.closedCandles(ctx, timeframe)
	if err != nil {
		bot.logger.Error("Failed to get klines: %v", err)
		bot.health.RecordError(err.Error())
		monitoring.RecordError("NETWORK")
		return
	}
	if len(window) < bot.config.Strategy.Regime.MinWindow {
		bot.logger.Warning("Insufficient data: %d candles on %s", len(window), timeframe)
		return
	}

	bar := window[len(window)-1]
	price := bar.Close
	monitoring.UpdatePrice(bot.symbol, price)

	state := bot.classifier.Classify(window)
	monitoring.UpdateRegime(bot.symbol, int(state.Current))
	if state.Current != bot.lastRegime {
		bot.logger.LogRegimeChange(bot.lastRegime.String(), state.Current.String(), price)
		monitoring.RecordRegimeChange(bot.symbol)
		bot.notify("regime", fmt.Sprintf("Regime change: %s → %s at %.4f", bot.lastRegime, state.Current, price))
		bot.lastRegime = state.Current
	}

	atr, err := bot.atr.Calculate(window)
	if err != nil {
		atr = 0
	}

	bot.applyFunding(ctx)

	closedThisBar := false
	if _, open := bot.manager.Get(bot.symbol); open {
		closedThisBar = bot.advancePosition(ctx, bar, atr)
	}

	signal := bot.fusion.GenerateSignal(window, state)
	bot.logger.LogSignal(signal.Direction.String(), signal.Score, signal.Confidence, state.Current.String(), signal.Reason)
	monitoring.UpdateSignal(bot.symbol, signal.Score, signal.Confidence)

	if p, open := bot.manager.Get(bot.symbol); open {
		if opposes(p.Side, signal.Direction) {
			bot.closeOnExchange(ctx, p, price, position.ExitSignalReversal, bar.Timestamp)
		}
	} else if !closedThisBar && atr > 0 {
		bot.maybeEnter(ctx, signal, state.Current, price, atr, bar.Timestamp)
	}

	bot.persistPosition()

	bot.health.MarkCycle(price)
	monitoring.SetOpenPositions(bot.symbol, bot.manager.Count())
	bot.logger.LogMarketStatus(price, state.Current.String(), signal.Score, bot.balance, bot.manager.TotalMargin())
}

// advancePosition feeds the closed candle to the manager and mirrors
// any stop move or exit to the exchange. Returns true when the
// position closed on this bar.
func (bot *LiveBot) advancePosition(ctx context.Context, bar types.OHLCV, atr float64) bool {
	result, err := bot.manager.OnBar(bot.symbol, bar, atr)
	if err != nil {
		bot.logger.Error("Position update failed: %v", err)
		return false
	}

	if result.TimeframeEscalated {
		bot.logger.Info("Profit milestone reached, escalating analysis to %s", bot.manager.AnalysisTimeframe(bot.symbol))
	}
	if result.TrailingActivated {
		bot.logger.Info("Trailing stop activated for %s", bot.symbol)
	}

	if result.Stop != nil {
		p, _ := bot.manager.Get(bot.symbol)
		if err := bot.setTradingStop(ctx, result.Stop.NewStop, p.TakeProfit); err != nil {
			bot.logger.Error("Failed to sync stop to exchange: %v", err)
			monitoring.RecordError("EXCHANGE")
		}
		bot.logger.LogStopMoved(result.Stop.OldStop, result.Stop.NewStop, string(result.Stop.Mode))
		monitoring.SetTrailingStop(bot.symbol, result.Stop.NewStop)
	}

	if result.Closed != nil {
		// The venue-side stop or take-profit fired; reconcile in case
		// the exchange still shows size.
		bot.reconcileExchangeClose(ctx, *result.Closed)
		bot.recordClose(*result.Closed)
		return true
	}
	return false
}

// maybeEnter opens a position when the fused signal clears the dead zone.
func (bot *LiveBot) maybeEnter(ctx context.Context, signal *strategy.Signal, reg regime.Regime, price, atr float64, at time.Time) {
	var side position.Side
	switch signal.Direction {
	case strategy.DirectionLong:
		side = position.SideLong
	case strategy.DirectionShort:
		side = position.SideShort
	default:
		return
	}

	p, err := bot.manager.Open(position.OpenRequest{
		Symbol:     bot.symbol,
		Side:       side,
		EntryPrice: price,
		ATR:        atr,
		Balance:    bot.balance,
		Regime:     reg,
		Timestamp:  at,
	})
	if err != nil {
		bot.logger.Warning("Entry skipped: %v", err)
		return
	}

	orderSide := exchange.OrderBuy
	if side == position.SideShort {
		orderSide = exchange.OrderSell
	}
	orderID, err := bot.placeMarketOrder(ctx, orderSide, p.Quantity, false)
	if err != nil {
		bot.logger.Error("Entry order failed: %v", err)
		monitoring.RecordError("EXCHANGE")
		if aerr := bot.manager.Abort(bot.symbol); aerr != nil {
			bot.logger.Error("Failed to discard pending position: %v", aerr)
		}
		return
	}

	if _, err := bot.manager.Confirm(bot.symbol); err != nil {
		bot.logger.Error("Failed to confirm position: %v", err)
		return
	}
	if err := bot.setTradingStop(ctx, p.StopLoss, p.TakeProfit); err != nil {
		bot.logger.Error("Failed to place protective stops: %v", err)
		monitoring.RecordError("EXCHANGE")
	}

	bot.logger.LogPositionOpened(side.String(), p.Quantity, p.EntryPrice, p.StopLoss, p.TakeProfit, p.Margin)
	bot.logger.Info("Entry order %s placed: %s", orderID, signal.Reason)
	monitoring.SetTrailingStop(bot.symbol, p.StopLoss)
}

// closeOnExchange exits via a reduce-only market order and settles the
// position in the manager.
func (bot *LiveBot) closeOnExchange(ctx context.Context, p position.Position, price float64, reason position.ExitReason, at time.Time) {
	orderSide := exchange.OrderSell
	if p.Side == position.SideShort {
		orderSide = exchange.OrderBuy
	}
	if _, err := bot.placeMarketOrder(ctx, orderSide, p.Quantity, true); err != nil {
		bot.logger.Error("Close order failed: %v", err)
		monitoring.RecordError("EXCHANGE")
		return
	}

	trade, err := bot.manager.Close(bot.symbol, price, reason, at)
	if err != nil {
		bot.logger.Error("Failed to settle close: %v", err)
		return
	}
	bot.recordClose(trade)
}

// reconcileExchangeClose flattens any residual size after the manager
// saw a stop or take-profit exit.
func (bot *LiveBot) reconcileExchangeClose(ctx context.Context, trade position.ClosedTrade) {
	info, err := bot.getPosition(ctx)
	if err != nil {
		bot.logger.Warning("Could not verify exchange position after exit: %v", err)
		return
	}
	if info == nil || info.Size == 0 {
		return
	}

	orderSide := exchange.OrderSell
	if trade.Side == position.SideShort {
		orderSide = exchange.OrderBuy
	}
	bot.logger.Warning("Exchange still shows %.6f %s after %s exit, flattening", info.Size, bot.symbol, trade.Reason)
	if _, err := bot.placeMarketOrder(ctx, orderSide, info.Size, true); err != nil {
		bot.logger.Error("Failed to flatten residual position: %v", err)
		monitoring.RecordError("EXCHANGE")
	}
}

func (bot *LiveBot) recordClose(trade position.ClosedTrade) {
	if err := bot.store.Clear(); err != nil {
		bot.logger.Warning("Could not clear position snapshot: %v", err)
	}

	bot.logger.LogTradeClosed(trade.Side.String(), trade.EntryPrice, trade.ExitPrice, trade.PnL, string(trade.Reason))
	monitoring.RecordTrade(trade.Symbol, trade.Side.String(), string(trade.Reason), trade.PnL)
	monitoring.SetOpenPositions(bot.symbol, bot.manager.Count())

	stats := bot.ledger.Stats()
	bot.logger.Info("Session: %d trades, %.1f%% win rate, net %.2f", stats.TotalTrades, stats.WinRate, stats.NetPnL)
}

// applyFunding accrues the funding payment once per funding interval.
func (bot *LiveBot) applyFunding(ctx context.Context) {
	if _, open := bot.manager.Get(bot.symbol); !open {
		bot.fundingDue = time.Time{}
		return
	}

	rate, nextFunding, err := bot.getFundingRate(ctx)
	if err != nil {
		bot.logger.Warning("Could not fetch funding rate: %v", err)
		return
	}

	now := time.Now().UTC()
	if bot.fundingDue.IsZero() {
		bot.fundingDue = nextFunding
		return
	}
	if now.Before(bot.fundingDue) {
		return
	}

	payment := types.FundingPayment{Rate: rate, Timestamp: bot.fundingDue}
	if err := bot.manager.RecordFunding(bot.symbol, payment); err != nil {
		bot.logger.Warning("Could not record funding: %v", err)
		return
	}
	bot.logger.Info("Funding accrued at rate %.6f", rate)
	bot.fundingDue = nextFunding
}

// persistPosition snapshots the managed position so a restart can
// resume the trailing discipline. No open position means nothing to do.
func (bot *LiveBot) persistPosition() {
	p, ok := bot.manager.Get(bot.symbol)
	if !ok {
		return
	}
	snapshot := state.Snapshot{Position: p, FundingDue: bot.fundingDue}
	if err := bot.store.Save(snapshot); err != nil {
		bot.logger.Warning("Could not persist position snapshot: %v", err)
	}
}

// restoreSavedPosition resumes a position persisted by a previous
// session, but only if the exchange still shows size for it. A stale
// snapshot is cleared so the bot starts flat.
func (bot *LiveBot) restoreSavedPosition(ctx context.Context) error {
	snapshot, err := bot.store.Load()
	if err != nil {
		return err
	}
	if snapshot == nil {
		return nil
	}

	info, err := bot.getPosition(ctx)
	if err != nil {
		return fmt.Errorf("could not verify saved position against exchange: %w", err)
	}
	if info == nil || info.Size == 0 {
		bot.logger.Info("Saved %s position no longer exists on the exchange, discarding snapshot", snapshot.Position.Side)
		return bot.store.Clear()
	}

	if err := bot.manager.Restore(snapshot.Position); err != nil {
		return fmt.Errorf("could not restore saved position: %w", err)
	}
	bot.fundingDue = snapshot.FundingDue

	p := snapshot.Position
	bot.logger.Info("Resumed %s %s position: qty %.6f, entry %.4f, stop %.4f, status %s",
		p.Side, p.Symbol, p.Quantity, p.EntryPrice, p.StopLoss, p.Status)
	bot.notify("info", fmt.Sprintf("Resumed %s %s position from saved state", p.Side, p.Symbol))
	return nil
}

// Exchange calls route through the circuit breaker so a flapping venue
// trips the bot into fail-fast mode instead of hammering the API.

func (bot *LiveBot) getBalance(ctx context.Context) (*types.Balance, error) {
	var balance *types.Balance
	err := bot.breaker.Call(func() error {
		var cerr error
		balance, cerr = bot.exchange.GetBalance(ctx, "USDT")
		return cerr
	})
	return balance, err
}

func (bot *LiveBot) getKlines(ctx context.Context, timeframe string, limit int) ([]types.OHLCV, error) {
	var klines []types.OHLCV
	err := bot.breaker.Call(func() error {
		var cerr error
		klines, cerr = bot.exchange.GetKlines(ctx, bot.symbol, timeframe, limit)
		return cerr
	})
	return klines, err
}

func (bot *LiveBot) placeMarketOrder(ctx context.Context, side exchange.OrderSide, quantity float64, reduceOnly bool) (string, error) {
	var orderID string
	err := bot.breaker.Call(func() error {
		var cerr error
		orderID, cerr = bot.exchange.PlaceMarketOrder(ctx, bot.symbol, side, quantity, reduceOnly)
		return cerr
	})
	return orderID, err
}

func (bot *LiveBot) setTradingStop(ctx context.Context, stopLoss, takeProfit float64) error {
	return bot.breaker.Call(func() error {
		return bot.exchange.SetTradingStop(ctx, bot.symbol, stopLoss, takeProfit)
	})
}

func (bot *LiveBot) getPosition(ctx context.Context) (*exchange.PositionInfo, error) {
	var info *exchange.PositionInfo
	err := bot.breaker.Call(func() error {
		var cerr error
		info, cerr = bot.exchange.GetPosition(ctx, bot.symbol)
		return cerr
	})
	return info, err
}

func (bot *LiveBot) getFundingRate(ctx context.Context) (float64, time.Time, error) {
	var (
		rate        float64
		nextFunding time.Time
	)
	err := bot.breaker.Call(func() error {
		var cerr error
		rate, nextFunding, cerr = bot.exchange.GetFundingRate(ctx, bot.symbol)
		return cerr
	})
	return rate, nextFunding, err
}

// notify sends a telegram alert when notifications are enabled.
func (bot *LiveBot) notify(level, message string) {
	if bot.notifier == nil {
		return
	}
	go func() {
		if err := bot.notifier.SendAlert(level, message); err != nil {
			bot.logger.Warning("Notification failed: %v", err)
		}
	}()
}
