package adapters

import (
	"context"

	"fieldops_backend/internal/geocode"
	routeshandler "fieldops_backend/internal/routes/handler"
	"fieldops_backend/platform/apperr"
	"fieldops_backend/platform/geo"
)

// RouteOriginResolver adapts the geocoding service to the route optimizer's
// OriginResolver port, so a rep can start a route from a typed address
// instead of a live GPS fix.
type RouteOriginResolver struct {
	svc *geocode.Service
}

func NewRouteOriginResolver(svc *geocode.Service) *RouteOriginResolver {
	return &RouteOriginResolver{svc: svc}
}

func (a *RouteOriginResolver) Resolve(ctx context.Context, address string) (geo.Point, error) {
	results, err := a.svc.Search(ctx, address)
	if err != nil {
		return geo.Point{}, apperr.Wrap(apperr.KindUnavailable, "geocoding service unavailable", err)
	}
	if len(results) == 0 {
		return geo.Point{}, apperr.Validation("could not resolve start address").WithDetails(address)
	}
	return geo.Point{Lat: results[0].Lat, Lng: results[0].Lng}, nil
}

var _ routeshandler.OriginResolver = (*RouteOriginResolver)(nil)
