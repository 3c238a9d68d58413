package main

import (
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/ducminhle1904/regime-trading-bot/internal/bot"
	"github.com/ducminhle1904/regime-trading-bot/internal/config"
	"github.com/ducminhle1904/regime-trading-bot/internal/monitoring"
)

func main() {
	var (
		configFile = flag.String("config", "", "Configuration file (e.g., btc_1h.json)")
		symbol     = flag.String("symbol", "", "Trading symbol, used with default config when -config is omitted")
		envFile    = flag.String("env", ".env", "Environment file path")
	)
	flag.Parse()

	if err := loadEnvFile(*envFile); err != nil {
		log.Printf("Warning: could not load env file (%v), relying on environment variables", err)
	}

	cfg, err := resolveConfig(*configFile, *symbol)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	fmt.Println("🚀 Regime Trading Bot Starting...")

	liveBot, err := bot.NewLiveBot(cfg)
	if err != nil {
		log.Fatalf("Failed to create bot: %v", err)
	}

	if cfg.Monitoring.Enabled {
		startMonitoringServers(cfg.Monitoring, liveBot)
	}

	if err := liveBot.Start(); err != nil {
		log.Fatalf("Failed to start bot: %v", err)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	fmt.Println("\n🛑 Shutdown signal received...")
	liveBot.Stop()
	fmt.Println("✅ Bot stopped")
}

func loadEnvFile(envFile string) error {
	if _, err := os.Stat(envFile); err != nil {
		return fmt.Errorf("env file %s not found", envFile)
	}
	return godotenv.Load(envFile)
}

func resolveConfig(configFile, symbol string) (*config.BotConfig, error) {
	if configFile != "" {
		return config.LoadBotConfig(configFile)
	}
	if symbol == "" {
		return nil, fmt.Errorf("specify -config or -symbol")
	}
	return config.DefaultBotConfig(symbol), nil
}

// startMonitoringServers exposes the Prometheus metrics and health
// endpoints on their configured ports.
func startMonitoringServers(cfg config.MonitoringConfig, liveBot *bot.LiveBot) {
	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", monitoring.NewMetricsHandler())
	metricsServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.PrometheusPort),
		Handler:           metricsMux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("Metrics server error: %v", err)
		}
	}()

	healthMux := http.NewServeMux()
	healthMux.Handle("/health", liveBot.Health())
	healthMux.Handle("/healthz", liveBot.Health())
	healthServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HealthPort),
		Handler:           healthMux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := healthServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("Health server error: %v", err)
		}
	}()

	fmt.Printf("📡 Metrics on :%d/metrics, health on :%d/health\n", cfg.PrometheusPort, cfg.HealthPort)
}
