package exchange

import (
	"strings"

	berrors "github.com/ducminhle1904/regime-trading-bot/internal/errors"
)

// NewExchange builds an Exchange from config. Bybit is the only venue
// currently wired up.
func NewExchange(cfg ExchangeConfig) (Exchange, error) {
	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}

	switch strings.ToLower(cfg.Name) {
	case "bybit", "":
		return NewBybitAdapter(*cfg.Bybit), nil
	default:
		return nil, berrors.NewConfigurationError("exchange", "new_exchange",
			"unsupported exchange: "+cfg.Name)
	}
}

// ValidateConfig checks that the selected venue has usable credentials.
func ValidateConfig(cfg ExchangeConfig) error {
	switch strings.ToLower(cfg.Name) {
	case "bybit", "":
		if cfg.Bybit == nil {
			return berrors.NewConfigurationError("exchange", "validate_config",
				"bybit configuration is missing")
		}
		if cfg.Bybit.APIKey == "" || cfg.Bybit.APISecret == "" {
			return berrors.NewCredentialsError("exchange", "validate_config",
				"bybit api key and secret are required")
		}
		return nil
	default:
		return berrors.NewConfigurationError("exchange", "validate_config",
			"unsupported exchange: "+cfg.Name)
	}
}
