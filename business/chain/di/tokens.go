// Package di contains dependency injection tokens for the chain context.
package di

import (
	"github.com/ncoria/txflow/business/chain/app"
	"github.com/ncoria/txflow/internal/di"
)

// Public service tokens - exposed to other modules
var (
	ChainService = di.NewToken[*app.ChainService]("chain.ChainService")
)

// Private dependency tokens - internal to chain module. Each token covers one
// endpoint; a client is only dialed when the running program resolves it.
var (
	TransferClient = di.NewToken[app.ChainClient]("chain:transferClient")
	VenueAClient   = di.NewToken[app.ChainClient]("chain:venueAClient")
	VenueBClient   = di.NewToken[app.ChainClient]("chain:venueBClient")
)

// Helper functions for type-safe access
func GetChainService(c di.ServiceRegistry) *app.ChainService {
	return di.GetToken(c, ChainService)
}

func GetTransferClient(c di.ServiceRegistry) app.ChainClient {
	return di.GetToken(c, TransferClient)
}

func GetVenueAClient(c di.ServiceRegistry) app.ChainClient {
	return di.GetToken(c, VenueAClient)
}

func GetVenueBClient(c di.ServiceRegistry) app.ChainClient {
	return di.GetToken(c, VenueBClient)
}
