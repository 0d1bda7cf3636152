// Package chain implements the chain bounded context for node access and
// transaction submission.
package chain

import (
	"context"

	"github.com/ncoria/txflow/business/chain/app"
	chainDI "github.com/ncoria/txflow/business/chain/di"
	"github.com/ncoria/txflow/business/chain/infra/ethereum"
	"github.com/ncoria/txflow/internal/config"
	"github.com/ncoria/txflow/internal/di"
	"github.com/ncoria/txflow/internal/logger"
	"github.com/ncoria/txflow/internal/monolith"
)

// Module implements the chain bounded context.
type Module struct{}

// RegisterServices registers all chain services with the DI container.
// Client factories are lazy, so a program only dials the endpoints it
// actually resolves.
func (m *Module) RegisterServices(c di.Container) error {
	di.RegisterToken(c, chainDI.TransferClient, func(sr di.ServiceRegistry) app.ChainClient {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)
		return mustNode(cfg, cfg.Transfer.Endpoint, log)
	})

	di.RegisterToken(c, chainDI.VenueAClient, func(sr di.ServiceRegistry) app.ChainClient {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)
		return mustNode(cfg, cfg.Arbitrage.VenueA.Endpoint, log)
	})

	di.RegisterToken(c, chainDI.VenueBClient, func(sr di.ServiceRegistry) app.ChainClient {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)
		return mustNode(cfg, cfg.Arbitrage.VenueB.Endpoint, log)
	})

	// ChainService rides on the transfer client (public - exposed to other modules)
	di.RegisterToken(c, chainDI.ChainService, func(sr di.ServiceRegistry) *app.ChainService {
		return app.NewChainService(chainDI.GetTransferClient(sr))
	})

	return nil
}

func mustNode(cfg *config.Config, endpoint string, log logger.LoggerInterface) *ethereum.Node {
	nodeCfg := ethereum.DefaultNodeConfig(endpoint)
	nodeCfg.ConnectRetries = cfg.Node.ConnectRetries
	nodeCfg.ConnectBackoff = cfg.Node.ConnectBackoff
	nodeCfg.ReceiptTimeout = cfg.Node.ReceiptTimeout
	nodeCfg.PollRate = cfg.Node.PollRate

	node, err := ethereum.NewNode(nodeCfg, cfg.Wallet.PrivateKey, log)
	if err != nil {
		panic("failed to create chain node: " + err.Error())
	}
	return node
}

// Startup initializes the chain module. Connections are established by the
// commands that resolve each client, not here.
func (m *Module) Startup(ctx context.Context, mono monolith.Monolith) error {
	mono.Logger().Info(ctx, "chain module started")
	return nil
}
