package pipeline

import (
	"context"
	"fmt"
	"math"
	"sync"

	"go.uber.org/zap"

	"github.com/nz-insights/popgrid/pkg/nominatim"
)

// geoKeyPrecision is the coordinate rounding applied before cache lookup.
// Three decimals is roughly 100m, enough to absorb centroid jitter between
// neighbouring chunks while keeping cache cardinality bounded.
const geoKeyPrecision = 3

// GeoKey is a rounded coordinate pair used as the geocode cache key.
type GeoKey struct {
	Lon float64
	Lat float64
}

// NewGeoKey rounds lon/lat to the cache precision.
func NewGeoKey(lon, lat float64) GeoKey {
	return GeoKey{Lon: roundTo(lon, geoKeyPrecision), Lat: roundTo(lat, geoKeyPrecision)}
}

func roundTo(v float64, digits int) float64 {
	scale := math.Pow(10, float64(digits))
	return math.Round(v*scale) / scale
}

// PlaceResolver maps coordinates to place names through a memoizing,
// rate-limited reverse-geocoding lookup. Its cache lives for one pipeline
// run; nothing is persisted across runs.
type PlaceResolver struct {
	mu     sync.Mutex
	client nominatim.Client
	pacer  *Pacer
	cache  map[GeoKey]string
	log    *zap.Logger
}

// NewPlaceResolver creates a resolver around the given geocoding client.
func NewPlaceResolver(client nominatim.Client, pacer *Pacer) *PlaceResolver {
	return &PlaceResolver{
		client: client,
		pacer:  pacer,
		cache:  make(map[GeoKey]string),
		log:    zap.L().With(zap.String("component", "pipeline.resolver")),
	}
}

// Resolve returns a place name for the coordinate. It never fails: a network
// error yields a synthesized error label, an empty response a synthesized
// unknown label. Only real resolutions (including unknown labels) are cached;
// error labels are not, so a later chunk near the same key retries the
// service. The lookup, the network call and the cache write form one critical
// section so concurrent callers cannot duplicate requests for a key.
func (r *PlaceResolver) Resolve(ctx context.Context, lon, lat float64) string {
	key := NewGeoKey(lon, lat)

	r.mu.Lock()
	defer r.mu.Unlock()

	if name, ok := r.cache[key]; ok {
		r.log.Debug("geocode cache hit",
			zap.Float64("lon", key.Lon),
			zap.Float64("lat", key.Lat),
		)
		return name
	}

	name, ok := r.lookup(ctx, lon, lat)
	if ok {
		r.cache[key] = name
	}
	return name
}

// lookup performs a single reverse-geocoding attempt. ok reports whether the
// result is cacheable. The usage-policy delay is deferred so it fires after
// the attempt on success and failure alike.
func (r *PlaceResolver) lookup(ctx context.Context, lon, lat float64) (name string, ok bool) {
	defer r.pacer.Pace(ctx)

	place, err := r.client.Reverse(ctx, lat, lon)
	if err != nil {
		r.log.Warn("reverse geocode failed",
			zap.Float64("lat", lat),
			zap.Float64("lon", lon),
			zap.Error(err),
		)
		return fmt.Sprintf("Error Region (%.2f,%.2f)", lat, lon), false
	}

	if best := place.BestName(); best != "" {
		return best, true
	}
	return fmt.Sprintf("Unknown Region (%.2f,%.2f)", lat, lon), true
}

// CacheSize reports the number of memoized keys.
func (r *PlaceResolver) CacheSize() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.cache)
}
