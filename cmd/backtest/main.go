package main

import (
	"flag"
	"fmt"
	"log"

	"github.com/ducminhle1904/regime-trading-bot/internal/backtest"
	"github.com/ducminhle1904/regime-trading-bot/internal/config"
	"github.com/ducminhle1904/regime-trading-bot/pkg/data"
	"github.com/ducminhle1904/regime-trading-bot/pkg/reporting"
)

func main() {
	var (
		dataFile   = flag.String("data", "", "CSV file with historical candles")
		configFile = flag.String("config", "", "Optional bot config file; defaults are used when omitted")
		symbol     = flag.String("symbol", "BTCUSDT", "Trading symbol")
		balance    = flag.Float64("balance", 10000, "Initial balance")
		window     = flag.Int("window", 0, "Analysis window size, 0 keeps the config value")
		tradesOut  = flag.String("output", "", "Write trades to this path (.csv or .xlsx)")
		equityOut  = flag.String("equity", "", "Write the equity curve to this CSV path")
	)
	flag.Parse()

	if *dataFile == "" {
		log.Fatal("Please specify a data file with -data")
	}

	cfg, err := buildConfig(*configFile, *symbol, *balance, *window)
	if err != nil {
		log.Fatalf("Failed to build config: %v", err)
	}

	provider := data.NewCachedProvider(data.NewCSVProvider())
	candles, err := provider.LoadData(*dataFile)
	if err != nil {
		log.Fatalf("Failed to load data: %v", err)
	}
	if err := provider.ValidateData(candles); err != nil {
		log.Fatalf("Invalid data: %v", err)
	}
	fmt.Printf("📂 Loaded %d candles from %s\n", len(candles), *dataFile)

	engine, err := backtest.NewEngine(cfg)
	if err != nil {
		log.Fatalf("Failed to create engine: %v", err)
	}

	results, err := engine.Run(candles)
	if err != nil {
		log.Fatalf("Backtest failed: %v", err)
	}

	reporting.NewConsoleReporter().OutputResults(results, cfg.Symbol)

	if *tradesOut != "" {
		if err := reporting.WriteTradesCSV(results, *tradesOut); err != nil {
			log.Fatalf("Failed to write trades: %v", err)
		}
		fmt.Printf("💾 Trades written to %s\n", *tradesOut)
	}
	if *equityOut != "" {
		if err := reporting.NewCSVReporter().WriteEquityCurve(results, *equityOut); err != nil {
			log.Fatalf("Failed to write equity curve: %v", err)
		}
		fmt.Printf("💾 Equity curve written to %s\n", *equityOut)
	}
}

// buildConfig derives the engine configuration, optionally seeded from a
// bot config file so backtests and live trading share parameters.
func buildConfig(configFile, symbol string, balance float64, window int) (backtest.Config, error) {
	cfg := backtest.DefaultConfig(symbol)
	cfg.InitialBalance = balance

	if configFile != "" {
		botCfg, err := config.LoadBacktestConfig(configFile)
		if err != nil {
			return cfg, err
		}
		cfg.Symbol = botCfg.Strategy.Symbol
		cfg.WindowSize = botCfg.Strategy.WindowSize
		cfg.ATRPeriod = botCfg.Strategy.ATRPeriod
		cfg.Regime = botCfg.Strategy.Regime
		cfg.Fusion.LongThreshold = botCfg.Strategy.LongThreshold
		cfg.Fusion.ShortThreshold = botCfg.Strategy.ShortThreshold
		cfg.Profiles = botCfg.Strategy.Profiles
		cfg.Risk = botCfg.Risk
	}

	if window > 0 {
		cfg.WindowSize = window
	}
	return cfg, nil
}
