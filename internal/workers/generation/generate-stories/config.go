// internal/workers/generation/generate-stories/config.go
package generatestories

import (
	"fmt"
	"time"

	"story-workers/internal/common/config"
)

type Config struct {
	Enabled bool
	Timeout time.Duration
	// BatchSize and Iterations apply when the job does not set them.
	BatchSize  int
	Iterations int
}

func ConfigFromApp(cfg *config.Config) *Config {
	wcfg := config.GetWorkerConfig(cfg, TaskType)
	return &Config{
		Enabled:    wcfg.Enabled,
		Timeout:    config.GetDuration(wcfg.Timeout),
		BatchSize:  cfg.Generation.StoryBatchSize,
		Iterations: cfg.Generation.StoryIterations,
	}
}

func (c *Config) Validate() error {
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if c.BatchSize < 1 {
		return fmt.Errorf("batch size must be positive")
	}
	if c.Iterations < 1 {
		return fmt.Errorf("iterations must be positive")
	}
	return nil
}
