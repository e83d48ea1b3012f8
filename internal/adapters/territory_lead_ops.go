package adapters

import (
	"context"

	leadrepo "fieldops_backend/internal/leads/repository"
	territorysvc "fieldops_backend/internal/territory/service"

	"github.com/google/uuid"
)

// TerritoryLeadOps adapts the leads repository to the territory engine's
// LeadOps port. Bulk operations write through the repository directly: the
// role check already happened at the territory route boundary, and routing
// each item through the lifecycle service would re-run it per lead.
type TerritoryLeadOps struct {
	repo *leadrepo.Repository
}

func NewTerritoryLeadOps(repo *leadrepo.Repository) *TerritoryLeadOps {
	return &TerritoryLeadOps{repo: repo}
}

func (a *TerritoryLeadOps) ListGeocoded(ctx context.Context) ([]territorysvc.CandidateLead, error) {
	leads, err := a.repo.ListWithCoordinates(ctx)
	if err != nil {
		return nil, err
	}

	candidates := make([]territorysvc.CandidateLead, 0, len(leads))
	for _, l := range leads {
		candidates = append(candidates, territorysvc.CandidateLead{
			ID:       l.ID,
			Position: leadPosition(l),
		})
	}
	return candidates, nil
}

func (a *TerritoryLeadOps) Assign(ctx context.Context, leadID, assigneeID uuid.UUID) error {
	_, err := a.repo.SetAssigned(ctx, leadID, &assigneeID)
	return err
}

func (a *TerritoryLeadOps) Unclaim(ctx context.Context, leadID uuid.UUID) error {
	_, err := a.repo.Unclaim(ctx, leadID)
	return err
}

var _ territorysvc.LeadOps = (*TerritoryLeadOps)(nil)
