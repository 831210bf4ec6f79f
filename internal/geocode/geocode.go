// Package geocode implements the reverse-geocoding capability: resolving a
// rounded coordinate pair to a human-readable place description.
package geocode

import (
	geo "github.com/codingsince1985/geo-golang"
	"github.com/codingsince1985/geo-golang/openstreetmap"

	"frame-cache/internal/logging"
	"frame-cache/internal/metrics"
)

// Resolver resolves coordinates to a place description. An empty string
// with a nil error means the provider had no answer for the location.
type Resolver interface {
	Resolve(lat, lon float64) (string, error)
}

// OSM resolves locations against the OpenStreetMap Nominatim service.
type OSM struct {
	geocoder geo.Geocoder
}

// NewOSM returns a Nominatim-backed Resolver.
func NewOSM() *OSM {
	return &OSM{geocoder: openstreetmap.Geocoder()}
}

// Resolve performs a reverse geocode lookup. Empty results are reported as
// such and not treated as errors; the caller decides whether to cache.
// Note empty results are retried on every later lookup of the same
// coordinates, so a permanently unresolvable location keeps generating
// requests. The "empty" counter below makes that cost visible.
func (o *OSM) Resolve(lat, lon float64) (string, error) {
	address, err := o.geocoder.ReverseGeocode(lat, lon)
	if err != nil {
		metrics.GeocodeLookups.WithLabelValues("error").Inc()
		return "", err
	}
	if address == nil || address.FormattedAddress == "" {
		metrics.GeocodeLookups.WithLabelValues("empty").Inc()
		logging.Debug("no geocode result for (%f, %f)", lat, lon)
		return "", nil
	}

	metrics.GeocodeLookups.WithLabelValues("hit").Inc()
	return address.FormattedAddress, nil
}

// Disabled is a Resolver that never answers, used when geocoding is
// switched off in configuration.
type Disabled struct{}

// Resolve always returns an empty result.
func (Disabled) Resolve(lat, lon float64) (string, error) {
	return "", nil
}
