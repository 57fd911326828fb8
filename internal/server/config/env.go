package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"

	"github.com/dmitrijs2005/taskkeeper/internal/common"
)

// parseEnv overlays TASKKEEPER_* variables. Unset variables leave the
// current value alone.
func parseEnv(config *Config) error {
	if err := env.ParseWithOptions(config, env.Options{Prefix: "TASKKEEPER_"}); err != nil {
		return fmt.Errorf("%w: parse env: %v", common.ErrConfiguration, err)
	}
	return nil
}
