// Package autoload initializes the global logger from LOG_* environment
// variables on import. Blank-import it from main.
package autoload

import (
	configx "github.com/paytalk/dialogue-orchestrator/pkg/config"
	logx "github.com/paytalk/dialogue-orchestrator/pkg/logger"
)

func init() {
	logx.Init(*configx.MustNew[logx.Config]("LOG"))
}
