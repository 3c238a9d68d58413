package logger

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Logger represents a file logger for trading activities
type Logger struct {
	symbol   string
	interval string
	logFile  *os.File
	logger   *log.Logger
	mu       sync.Mutex
	logDir   string
}

// LogLevel represents different types of log entries
type LogLevel string

const (
	LogLevelInfo    LogLevel = "INFO"
	LogLevelWarning LogLevel = "WARN"
	LogLevelError   LogLevel = "ERROR"
	LogLevelTrade   LogLevel = "TRADE"
	LogLevelRegime  LogLevel = "REGIME"
	LogLevelStatus  LogLevel = "STATUS"
)

// NewLogger creates a new file logger for the specified symbol and interval
func NewLogger(symbol, interval string) (*Logger, error) {
	logDir := "logs"
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	timestamp := time.Now().Format("2006-01-02")
	filename := fmt.Sprintf("%s_%s_%s.log", symbol, interval, timestamp)
	logPath := filepath.Join(logDir, filename)

	file, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}

	l := &Logger{
		symbol:   symbol,
		interval: interval,
		logFile:  file,
		logger:   log.New(file, "", 0),
		logDir:   logDir,
	}

	l.writeSessionHeader()
	return l, nil
}

func (l *Logger) writeSessionHeader() {
	l.mu.Lock()
	defer l.mu.Unlock()

	header := fmt.Sprintf(`
================================================================================
🚀 REGIME TRADING SESSION STARTED
================================================================================
Symbol: %s | Interval: %s
Started: %s
Log File: %s_%s_%s.log
================================================================================
`, l.symbol, l.interval, time.Now().Format("2006-01-02 15:04:05"),
		l.symbol, l.interval, time.Now().Format("2006-01-02"))

	l.logger.Print(header)
}

// Log writes a formatted log entry with the specified level
func (l *Logger) Log(level LogLevel, format string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()

	timestamp := time.Now().Format("2006-01-02 15:04:05")
	message := fmt.Sprintf(format, args...)
	l.logger.Println(fmt.Sprintf("[%s] [%s] %s", timestamp, level, message))
}

// Info logs an info message
func (l *Logger) Info(format string, args ...interface{}) {
	l.Log(LogLevelInfo, format, args...)
}

// Warning logs a warning message
func (l *Logger) Warning(format string, args ...interface{}) {
	l.Log(LogLevelWarning, format, args...)
}

// Error logs an error message
func (l *Logger) Error(format string, args ...interface{}) {
	l.Log(LogLevelError, format, args...)
}

// Trade logs a trading action
func (l *Logger) Trade(format string, args ...interface{}) {
	l.Log(LogLevelTrade, format, args...)
}

// Regime logs a market regime event
func (l *Logger) Regime(format string, args ...interface{}) {
	l.Log(LogLevelRegime, format, args...)
}

// Status logs market status information
func (l *Logger) Status(format string, args ...interface{}) {
	l.Log(LogLevelStatus, format, args...)
}

// LogRegimeChange logs a confirmed regime transition
func (l *Logger) LogRegimeChange(oldRegime, newRegime string, price float64) {
	l.Regime("🔀 Regime change: %s -> %s at $%.2f", oldRegime, newRegime, price)
}

// LogSignal logs the fused strategy decision for one cycle
func (l *Logger) LogSignal(direction string, score float64, confidence float64, regime string, reason string) {
	l.Info("🧭 Signal: %s | Score: %.3f | Confidence: %.1f%% | Regime: %s | %s",
		direction, score, confidence, regime, reason)
}

// LogPositionOpened logs a new position with its protective levels
func (l *Logger) LogPositionOpened(side string, quantity, entry, stopLoss, takeProfit, margin float64) {
	l.mu.Lock()
	defer l.mu.Unlock()

	timestamp := time.Now().Format("2006-01-02 15:04:05")
	tradeLog := fmt.Sprintf(`
[%s] [TRADE] ==================== POSITION OPENED ====================
✅ Side: %s
📦 Quantity: %.6f %s
💰 Entry: $%.2f
🛡️ Stop Loss: $%.2f | Take Profit: $%.2f
💼 Margin: $%.2f
==============================================================`,
		timestamp, side, quantity, l.symbol, entry, stopLoss, takeProfit, margin)

	l.logger.Println(tradeLog)
}

// LogStopMoved logs a trailing-stop tightening
func (l *Logger) LogStopMoved(oldStop, newStop float64, mode string) {
	l.Trade("🔒 Trailing stop moved: $%.2f -> $%.2f (%s)", oldStop, newStop, mode)
}

// LogTradeClosed logs a finished position with its realized outcome
func (l *Logger) LogTradeClosed(side string, entry, exit, pnl float64, reason string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	timestamp := time.Now().Format("2006-01-02 15:04:05")
	emoji := "🟢"
	if pnl < 0 {
		emoji = "🔴"
	}
	tradeLog := fmt.Sprintf(`
[%s] [TRADE] ==================== POSITION CLOSED ====================
🚪 Side: %s | Reason: %s
🎯 Entry: $%.2f | Exit: $%.2f
%s Realized PnL: $%.2f
==============================================================`,
		timestamp, side, reason, entry, exit, emoji, pnl)

	l.logger.Println(tradeLog)
}

// LogMarketStatus logs a per-cycle market summary
func (l *Logger) LogMarketStatus(currentPrice float64, regime string, score float64, balance float64, openMargin float64) {
	l.mu.Lock()
	defer l.mu.Unlock()

	timestamp := time.Now().Format("2006-01-02 15:04:05")
	statusLog := fmt.Sprintf(`
[%s] [STATUS] ==================== MARKET STATUS ====================
💰 Current Price: $%.2f | Regime: %s | Score: %.3f
💼 Balance: $%.2f | Margin In Use: $%.2f
==========================================================`,
		timestamp, currentPrice, regime, score, balance, openMargin)

	l.logger.Println(statusLog)
}

// LogError logs error with context
func (l *Logger) LogError(context string, err error) {
	l.Error("%s: %v", context, err)
}

// Close closes the log file
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.logFile != nil {
		timestamp := time.Now().Format("2006-01-02 15:04:05")
		footer := fmt.Sprintf(`
================================================================================
🛑 REGIME TRADING SESSION ENDED
================================================================================
Ended: %s
================================================================================

`, timestamp)
		l.logger.Print(footer)
		return l.logFile.Close()
	}
	return nil
}

// GetLogPath returns the current log file path
func (l *Logger) GetLogPath() string {
	timestamp := time.Now().Format("2006-01-02")
	filename := fmt.Sprintf("%s_%s_%s.log", l.symbol, l.interval, timestamp)
	return filepath.Join(l.logDir, filename)
}
