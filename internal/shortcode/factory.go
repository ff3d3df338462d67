package shortcode

import "fmt"

// StrategyType selects which Strategy implementation a deployment uses.
type StrategyType string

const (
	StrategyBase62 StrategyType = "base62"
	StrategyRandom StrategyType = "random"
)

// Config carries the parameters needed to build any Strategy.
type Config struct {
	Type       StrategyType
	Salt       int64
	Length     int
	MaxRetries int
	Checker    UniquenessChecker // only required for StrategyRandom
}

// New constructs the Strategy named by cfg.Type.
func New(cfg Config) (Strategy, error) {
	switch cfg.Type {
	case StrategyBase62:
		return NewBase62Strategy(cfg.Salt, cfg.Length), nil
	case StrategyRandom:
		if cfg.Checker == nil {
			return nil, fmt.Errorf("shortcode: random strategy requires a uniqueness checker")
		}
		return NewRandomStrategy(cfg.Length, cfg.MaxRetries, cfg.Checker), nil
	default:
		return nil, fmt.Errorf("shortcode: unknown strategy %q", cfg.Type)
	}
}
