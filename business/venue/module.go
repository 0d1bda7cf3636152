// Package venue implements the venue bounded context for token approvals and
// swap contracts.
package venue

import (
	"context"

	"github.com/ncoria/txflow/business/chain/di"
	venueApp "github.com/ncoria/txflow/business/venue/app"
	venueDI "github.com/ncoria/txflow/business/venue/di"
	"github.com/ncoria/txflow/business/venue/infra/curve"
	"github.com/ncoria/txflow/business/venue/infra/erc20"
	"github.com/ncoria/txflow/business/venue/infra/uniswap"
	"github.com/ncoria/txflow/internal/config"
	internalDI "github.com/ncoria/txflow/internal/di"
	"github.com/ncoria/txflow/internal/logger"
	"github.com/ncoria/txflow/internal/monolith"
)

// Module implements the venue bounded context.
type Module struct{}

// RegisterServices registers all venue services with the DI container. Venue
// A is a fee-tier router venue; venue B is an index-addressed pool venue.
func (m *Module) RegisterServices(c internalDI.Container) error {
	internalDI.RegisterToken(c, venueDI.VenueAToken, func(sr internalDI.ServiceRegistry) venueApp.Token {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)

		token, err := erc20.NewToken(cfg.Arbitrage.VenueA.SellCoin, di.GetVenueAClient(sr), log)
		if err != nil {
			panic("failed to create venue A token: " + err.Error())
		}
		return token
	})

	internalDI.RegisterToken(c, venueDI.VenueASwapper, func(sr internalDI.ServiceRegistry) venueApp.Swapper {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)

		swapper, err := uniswap.NewSwapper(cfg.Arbitrage.VenueA.SwapAddress, di.GetVenueAClient(sr), log)
		if err != nil {
			panic("failed to create venue A swapper: " + err.Error())
		}
		return swapper
	})

	internalDI.RegisterToken(c, venueDI.VenueBToken, func(sr internalDI.ServiceRegistry) venueApp.Token {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)

		token, err := erc20.NewToken(cfg.Arbitrage.VenueB.SellCoin, di.GetVenueBClient(sr), log)
		if err != nil {
			panic("failed to create venue B token: " + err.Error())
		}
		return token
	})

	internalDI.RegisterToken(c, venueDI.VenueBSwapper, func(sr internalDI.ServiceRegistry) venueApp.Swapper {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)

		swapper, err := curve.NewSwapper(cfg.Arbitrage.VenueB.SwapAddress, di.GetVenueBClient(sr), log)
		if err != nil {
			panic("failed to create venue B swapper: " + err.Error())
		}
		return swapper
	})

	return nil
}

// Startup initializes the venue module.
func (m *Module) Startup(ctx context.Context, mono monolith.Monolith) error {
	mono.Logger().Info(ctx, "venue module started")
	return nil
}
