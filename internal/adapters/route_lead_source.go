package adapters

import (
	"context"
	"strings"

	leadrepo "fieldops_backend/internal/leads/repository"
	routesvc "fieldops_backend/internal/routes/service"
	"fieldops_backend/platform/geo"

	"github.com/google/uuid"
)

// RouteLeadSource adapts the leads repository to the route optimizer's
// LeadSource port: the routable subset is the user's claimed or assigned
// leads that carry coordinates.
type RouteLeadSource struct {
	repo *leadrepo.Repository
}

func NewRouteLeadSource(repo *leadrepo.Repository) *RouteLeadSource {
	return &RouteLeadSource{repo: repo}
}

func (a *RouteLeadSource) RoutableLeads(ctx context.Context, userID uuid.UUID) ([]routesvc.Stop, error) {
	leads, err := a.repo.ListRoutable(ctx, userID)
	if err != nil {
		return nil, err
	}

	stops := make([]routesvc.Stop, 0, len(leads))
	for _, l := range leads {
		stops = append(stops, routesvc.Stop{
			LeadID:   l.ID,
			Name:     strings.TrimSpace(l.FirstName + " " + l.LastName),
			Address:  formatAddress(l),
			Position: leadPosition(l),
		})
	}
	return stops, nil
}

func formatAddress(l leadrepo.Lead) string {
	parts := make([]string, 0, 4)
	for _, p := range []string{l.AddressStreet, l.AddressCity, l.AddressState, l.AddressZip} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}

// leadPosition assumes the lead carries coordinates; callers only pass leads
// from coordinate-filtered queries.
func leadPosition(l leadrepo.Lead) geo.Point {
	return geo.Point{Lat: *l.Latitude, Lng: *l.Longitude}
}

var _ routesvc.LeadSource = (*RouteLeadSource)(nil)
