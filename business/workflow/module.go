// Package workflow implements the workflow bounded context tying the chain
// and venue contexts into runnable programs.
package workflow

import (
	"context"

	chainDI "github.com/ncoria/txflow/business/chain/di"
	venueDI "github.com/ncoria/txflow/business/venue/di"
	"github.com/ncoria/txflow/business/workflow/app"
	workflowDI "github.com/ncoria/txflow/business/workflow/di"
	"github.com/ncoria/txflow/internal/config"
	"github.com/ncoria/txflow/internal/di"
	"github.com/ncoria/txflow/internal/logger"
	"github.com/ncoria/txflow/internal/monolith"
)

// Module implements the workflow bounded context.
type Module struct{}

// RegisterServices registers the program factories. Run parameters come from
// the command line at invocation; everything else is bound here.
func (m *Module) RegisterServices(c di.Container) error {
	di.RegisterToken(c, workflowDI.WatcherFactory, func(sr di.ServiceRegistry) app.WatcherFactory {
		log := sr.Get("logger").(logger.LoggerInterface)

		return func(params app.WatcherParams) (*app.BlockWatcher, error) {
			return app.NewBlockWatcher(params, chainDI.GetChainService(sr), log)
		}
	})

	di.RegisterToken(c, workflowDI.OrchestratorFactory, func(sr di.ServiceRegistry) app.OrchestratorFactory {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)

		return func(params app.ArbitrageParams) (*app.ArbitrageOrchestrator, error) {
			legs := []app.Leg{
				{
					Name:     "venue-a",
					SellCoin: venueDI.GetVenueAToken(sr),
					BuyCoin:  cfg.Arbitrage.VenueA.BuyCoinHex(),
					Swapper:  venueDI.GetVenueASwapper(sr),
				},
				{
					Name:     "venue-b",
					SellCoin: venueDI.GetVenueBToken(sr),
					BuyCoin:  cfg.Arbitrage.VenueB.BuyCoinHex(),
					Swapper:  venueDI.GetVenueBSwapper(sr),
				},
			}
			return app.NewArbitrageOrchestrator(params, legs, log)
		}
	})

	return nil
}

// Startup initializes the workflow module.
func (m *Module) Startup(ctx context.Context, mono monolith.Monolith) error {
	mono.Logger().Info(ctx, "workflow module started")
	return nil
}
