// Package geocode resolves addresses to coordinates through the OSM
// Nominatim service, fronted by a Redis cache.
package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"fieldops_backend/platform/logger"
)

const nominatimURL = "https://nominatim.openstreetmap.org/search"

type Service struct {
	client       *http.Client
	cache        *Cache
	countryCodes string
	log          *logger.Logger
}

// NewService creates the geocoding service. cache may be nil to disable
// caching, which the backfill CLI uses for one-shot runs.
func NewService(cache *Cache, countryCodes string, log *logger.Logger) *Service {
	return &Service{
		client:       &http.Client{Timeout: 5 * time.Second},
		cache:        cache,
		countryCodes: countryCodes,
		log:          log,
	}
}

// Search resolves a free-form address query to candidate coordinates.
func (s *Service) Search(ctx context.Context, query string) ([]Result, error) {
	normalized := strings.ToLower(strings.TrimSpace(query))

	if s.cache != nil {
		if results, ok := s.cache.Get(ctx, normalized); ok {
			return results, nil
		}
	}

	results, err := s.lookup(ctx, normalized)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		s.cache.Set(ctx, normalized, results)
	}
	return results, nil
}

func (s *Service) lookup(ctx context.Context, query string) ([]Result, error) {
	params := url.Values{}
	params.Add("q", query)
	params.Add("format", "json")
	params.Add("addressdetails", "1")
	params.Add("limit", "5")
	if s.countryCodes != "" {
		params.Add("countrycodes", s.countryCodes)
	}

	reqURL := fmt.Sprintf("%s?%s", nominatimURL, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, err
	}

	req.Header.Set("User-Agent", "FieldOpsBackend/1.0")

	resp, err := s.client.Do(req)
	if err != nil {
		s.log.Error("nominatim request failed", "error", err)
		return nil, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		s.log.Error("nominatim upstream error", "status", resp.StatusCode)
		return nil, fmt.Errorf("upstream api error: %d", resp.StatusCode)
	}

	var rawResults []nominatimResponse
	if err := json.NewDecoder(resp.Body).Decode(&rawResults); err != nil {
		s.log.Error("failed to decode nominatim payload", "error", err)
		return nil, err
	}

	results := make([]Result, 0, len(rawResults))
	for _, raw := range rawResults {
		result, ok := buildResult(raw)
		if !ok {
			continue
		}
		results = append(results, result)
	}
	return results, nil
}

func buildResult(raw nominatimResponse) (Result, bool) {
	lat, err := strconv.ParseFloat(raw.Lat, 64)
	if err != nil {
		return Result{}, false
	}
	lng, err := strconv.ParseFloat(raw.Lon, 64)
	if err != nil {
		return Result{}, false
	}

	city := pickCity(raw.Address)
	result := Result{
		Street: strings.TrimSpace(raw.Address.HouseNumber + " " + raw.Address.Road),
		City:   city,
		State:  raw.Address.State,
		Zip:    raw.Address.Postcode,
		Lat:    lat,
		Lng:    lng,
	}
	result.Label = buildLabel(result, raw.DisplayName)
	return result, true
}

func pickCity(address nominatimAddress) string {
	if address.City != "" {
		return address.City
	}
	if address.Town != "" {
		return address.Town
	}
	if address.Village != "" {
		return address.Village
	}
	if address.Municipality != "" {
		return address.Municipality
	}
	return address.Hamlet
}

func buildLabel(result Result, fallback string) string {
	if result.Street == "" || result.City == "" {
		return fallback
	}
	parts := []string{result.Street + ",", result.City}
	if result.State != "" {
		parts = append(parts, result.State)
	}
	if result.Zip != "" {
		parts = append(parts, result.Zip)
	}
	return strings.Join(parts, " ")
}
