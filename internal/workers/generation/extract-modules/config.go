// internal/workers/generation/extract-modules/config.go
package extractmodules

import (
	"fmt"
	"time"

	"story-workers/internal/common/config"
)

type Config struct {
	Enabled bool
	Timeout time.Duration
}

// ConfigFromApp reads the worker section of the application config.
func ConfigFromApp(cfg *config.Config) *Config {
	wcfg := config.GetWorkerConfig(cfg, TaskType)
	return &Config{
		Enabled: wcfg.Enabled,
		Timeout: config.GetDuration(wcfg.Timeout),
	}
}

func (c *Config) Validate() error {
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	return nil
}
