package geocode

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"package-tracking-service/internal/domain"
	"package-tracking-service/internal/platform/logger"
	"package-tracking-service/internal/platform/obs"
	"package-tracking-service/internal/ports"
	"strings"
	"time"
)

// Cache is the persistence the geocoder consults before calling out.
type Cache interface {
	Get(ctx context.Context, address string) (domain.Coordinates, bool, error)
	Put(ctx context.Context, address string, c domain.Coordinates) error
}

type geocodeResponse struct {
	Features []struct {
		Geometry struct {
			Coordinates []float64 `json:"coordinates"`
		} `json:"geometry"`
	} `json:"features"`
}

// ORSGeocoder implements ports.Geocoder using OpenRouteService (/geocode/search).
// Results are cached by normalized address. Safe for concurrent use.
type ORSGeocoder struct {
	session       *http.Client
	apiKey        string
	baseURL       string
	cache         Cache
	log           *logger.Logger
	maxAttempts   int
	backoff       time.Duration
	maxRetryAfter time.Duration
}

func NewORSGeocoder(apiKey string, cache Cache, log *logger.Logger) (*ORSGeocoder, error) {
	if apiKey == "" {
		return nil, errors.New("ORS api key is empty")
	}
	if log == nil {
		log = logger.Nop()
	}

	return &ORSGeocoder{
		session:       &http.Client{Timeout: 10 * time.Second},
		apiKey:        apiKey,
		baseURL:       "https://api.openrouteservice.org",
		cache:         cache,
		log:           log,
		maxAttempts:   4,
		backoff:       200 * time.Millisecond,
		maxRetryAfter: 5 * time.Second,
	}, nil
}

var _ ports.Geocoder = (*ORSGeocoder)(nil)

// normalize ensures consistent cache keys by collapsing whitespace.
func normalize(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func (o *ORSGeocoder) Geocode(ctx context.Context, address string) (_ domain.Coordinates, err error) {
	defer obs.Time(ctx, o.log, "ors.Geocode")(&err)

	norm := normalize(address)
	if norm == "" {
		return domain.Coordinates{}, errors.New("geocode: address must be non-empty")
	}

	// Check the persistent cache before issuing external API calls.
	if o.cache != nil {
		c, ok, err := o.cache.Get(ctx, norm)
		if err != nil {
			o.log.Warn("geocode cache read failed", "address", norm, "err", err)
		} else if ok {
			return c, nil
		}
	}

	resp, err := o.get(ctx, "/geocode/search", url.Values{"text": {norm}, "size": {"1"}})
	if err != nil {
		return domain.Coordinates{}, fmt.Errorf("geocode %q: %w", norm, err)
	}
	defer resp.Body.Close()

	var decoded geocodeResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return domain.Coordinates{}, fmt.Errorf("geocode %q: decode response: %w", norm, err)
	}
	if len(decoded.Features) == 0 {
		return domain.Coordinates{}, fmt.Errorf("geocode %q: no results", norm)
	}

	// ORS returns GeoJSON order: [lon, lat].
	coords := decoded.Features[0].Geometry.Coordinates
	if len(coords) != 2 {
		return domain.Coordinates{}, fmt.Errorf("geocode %q: invalid coordinate format", norm)
	}
	c := domain.Coordinates{Lat: coords[1], Lng: coords[0]}

	if o.cache != nil {
		if err := o.cache.Put(ctx, norm, c); err != nil {
			o.log.Warn("geocode cache write failed", "address", norm, "err", err)
		}
	}
	return c, nil
}
