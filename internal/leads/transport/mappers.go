package transport

import "fieldops_backend/internal/leads/repository"

// ToLeadResponse maps a repository lead to its API shape.
func ToLeadResponse(l repository.Lead) LeadResponse {
	return LeadResponse{
		ID:              l.ID,
		FirstName:       l.FirstName,
		LastName:        l.LastName,
		Phone:           l.Phone,
		Email:           l.Email,
		Street:          l.AddressStreet,
		City:            l.AddressCity,
		State:           l.AddressState,
		Zip:             l.AddressZip,
		Latitude:        l.Latitude,
		Longitude:       l.Longitude,
		Status:          l.Status,
		ClaimedBy:       l.ClaimedBy,
		AssignedTo:      l.AssignedTo,
		DispositionedAt: l.DispositionedAt,
		CreatedAt:       l.CreatedAt,
		UpdatedAt:       l.UpdatedAt,
	}
}

// ToHistoryResponse maps history entries, preserving newest-first order.
func ToHistoryResponse(entries []repository.HistoryEntry) []HistoryEntryResponse {
	out := make([]HistoryEntryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, HistoryEntryResponse{
			ID:                e.ID,
			Disposition:       e.Disposition,
			CountsAsDoorKnock: e.CountsAsDoorKnock,
			UserID:            e.UserID,
			UserName:          e.UserName,
			GPSLat:            e.GPSLat,
			GPSLng:            e.GPSLng,
			GPSAccuracyM:      e.GPSAccuracyM,
			DistanceFromAddrM: e.DistanceFromAddrM,
			Timestamp:         e.CreatedAt,
		})
	}
	return out
}
