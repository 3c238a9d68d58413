package notifications

// Notifier delivers alerts raised by the trading loop.
type Notifier interface {
	// SendAlert sends one alert; level selects the severity prefix.
	SendAlert(level, message string) error
}
