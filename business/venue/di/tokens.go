// Package di contains dependency injection tokens for the venue context.
package di

import (
	"github.com/ncoria/txflow/business/venue/app"
	"github.com/ncoria/txflow/internal/di"
)

// Public service tokens - exposed to other modules. Each venue leg gets its
// own sell-side token and swap contract, bound to that venue's endpoint.
var (
	VenueAToken   = di.NewToken[app.Token]("venue.VenueAToken")
	VenueASwapper = di.NewToken[app.Swapper]("venue.VenueASwapper")
	VenueBToken   = di.NewToken[app.Token]("venue.VenueBToken")
	VenueBSwapper = di.NewToken[app.Swapper]("venue.VenueBSwapper")
)

// Helper functions for type-safe access
func GetVenueAToken(c di.ServiceRegistry) app.Token {
	return di.GetToken(c, VenueAToken)
}

func GetVenueASwapper(c di.ServiceRegistry) app.Swapper {
	return di.GetToken(c, VenueASwapper)
}

func GetVenueBToken(c di.ServiceRegistry) app.Token {
	return di.GetToken(c, VenueBToken)
}

func GetVenueBSwapper(c di.ServiceRegistry) app.Swapper {
	return di.GetToken(c, VenueBSwapper)
}
