// Package di contains dependency injection tokens for the workflow context.
package di

import (
	"github.com/ncoria/txflow/business/workflow/app"
	"github.com/ncoria/txflow/internal/di"
)

// Public service tokens - exposed to the commands
var (
	WatcherFactory      = di.NewToken[app.WatcherFactory]("workflow.WatcherFactory")
	OrchestratorFactory = di.NewToken[app.OrchestratorFactory]("workflow.OrchestratorFactory")
)

// Helper functions for type-safe access
func GetWatcherFactory(c di.ServiceRegistry) app.WatcherFactory {
	return di.GetToken(c, WatcherFactory)
}

func GetOrchestratorFactory(c di.ServiceRegistry) app.OrchestratorFactory {
	return di.GetToken(c, OrchestratorFactory)
}
