// Package client implements the HTTP client for the external route
// optimization service.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"time"

	"fieldops_backend/internal/routes/service"
	"fieldops_backend/platform/config"
	"fieldops_backend/platform/geo"
	"fieldops_backend/platform/logger"
)

type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	log        *logger.Logger
}

func New(cfg config.RoutingConfig, log *logger.Logger) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		baseURL:    cfg.GetRoutingServiceURL(),
		apiKey:     cfg.GetRoutingServiceAPIKey(),
		log:        log,
	}
}

type waypoint struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

type optimizeRequest struct {
	Waypoints    []waypoint `json:"waypoints"`
	StartAddress string     `json:"startAddress"`
	EndAddress   string     `json:"endAddress"`
}

type optimizedStop struct {
	Lat            float64  `json:"lat"`
	Lng            float64  `json:"lng"`
	Order          int      `json:"order"`
	DistanceMeters *float64 `json:"distanceMeters"`
	Duration       *float64 `json:"duration"`
}

type optimizeResponse struct {
	DistanceMiles   float64         `json:"distanceMiles"`
	DurationMinutes float64         `json:"durationMinutes"`
	OptimizedStops  []optimizedStop `json:"optimizedStops"`
}

// Refine submits the locally ordered route for optimization. Without an
// explicit end address the route loops back to the start; an origin without
// an address is sent as its bare coordinate.
func (c *Client) Refine(ctx context.Context, origin service.Origin, stops []service.Stop) (service.Refinement, error) {
	startAddress := origin.Address
	if startAddress == "" {
		startAddress = fmt.Sprintf("%f,%f", origin.Position.Lat, origin.Position.Lng)
	}
	endAddress := origin.EndAddress
	if endAddress == "" {
		endAddress = startAddress
	}

	payload := optimizeRequest{
		Waypoints:    make([]waypoint, 0, len(stops)),
		StartAddress: startAddress,
		EndAddress:   endAddress,
	}
	for _, s := range stops {
		payload.Waypoints = append(payload.Waypoints, waypoint{Lat: s.Position.Lat, Lng: s.Position.Lng})
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return service.Refinement{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/optimize", bytes.NewReader(body))
	if err != nil {
		return service.Refinement{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.Error("routing service request failed", "error", err)
		return service.Refinement{}, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		c.log.Error("routing service upstream error", "status", resp.StatusCode)
		return service.Refinement{}, fmt.Errorf("routing service error: %d", resp.StatusCode)
	}

	var decoded optimizeResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		c.log.Error("failed to decode routing service payload", "error", err)
		return service.Refinement{}, err
	}

	sort.SliceStable(decoded.OptimizedStops, func(i, j int) bool {
		return decoded.OptimizedStops[i].Order < decoded.OptimizedStops[j].Order
	})

	refinement := service.Refinement{
		DistanceMiles:   decoded.DistanceMiles,
		DurationMinutes: decoded.DurationMinutes,
		Stops:           make([]service.RefinedStop, 0, len(decoded.OptimizedStops)),
	}
	for _, s := range decoded.OptimizedStops {
		refinement.Stops = append(refinement.Stops, service.RefinedStop{
			Position:        geo.Point{Lat: s.Lat, Lng: s.Lng},
			DistanceMeters:  s.DistanceMeters,
			DurationMinutes: s.Duration,
		})
	}
	return refinement, nil
}
