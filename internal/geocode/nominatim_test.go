package geocode_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"

	"shoebox/internal/config"
	"shoebox/internal/geocode"
	"shoebox/internal/logging"
	"shoebox/internal/media"
)

func geocoderConfig(baseURL, cacheFile string) config.Geocoder {
	return config.Geocoder{
		Enabled:        true,
		BaseURL:        baseURL,
		UserAgent:      "shoebox-test",
		TimeoutSeconds: 5,
		CacheFile:      cacheFile,
		MinIntervalMS:  0,
	}
}

func TestResolveNilCoordinatesIsNoLocation(t *testing.T) {
	resolver := geocode.NewNominatim(geocoderConfig("http://127.0.0.1:0", ""), logging.NewNop())
	if got := resolver.Resolve(context.Background(), nil); got != geocode.NoLocationLabel {
		t.Fatalf("Resolve(nil) = %q, want %q", got, geocode.NoLocationLabel)
	}
}

func TestResolveInvalidCoordinatesIsUnknown(t *testing.T) {
	resolver := geocode.NewNominatim(geocoderConfig("http://127.0.0.1:0", ""), logging.NewNop())
	coords := &media.Coordinates{Lat: 123, Lon: 456}
	if got := resolver.Resolve(context.Background(), coords); got != geocode.UnknownLabel {
		t.Fatalf("Resolve(invalid) = %q, want %q", got, geocode.UnknownLabel)
	}
}

func TestResolvePicksMostSpecificSettlement(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("User-Agent"); got != "shoebox-test" {
			t.Errorf("User-Agent = %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"address":{"town":"Giverny","state":"Normandy","country":"France"}}`))
	}))
	defer server.Close()

	resolver := geocode.NewNominatim(geocoderConfig(server.URL, ""), logging.NewNop())
	coords := &media.Coordinates{Lat: 49.0756, Lon: 1.5339}
	if got := resolver.Resolve(context.Background(), coords); got != "Giverny" {
		t.Fatalf("Resolve = %q, want Giverny", got)
	}
}

func TestResolveFailureDegradesToUnknown(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer server.Close()

	resolver := geocode.NewNominatim(geocoderConfig(server.URL, ""), logging.NewNop())
	coords := &media.Coordinates{Lat: 48.8566, Lon: 2.3522}
	if got := resolver.Resolve(context.Background(), coords); got != geocode.UnknownLabel {
		t.Fatalf("Resolve = %q, want %q", got, geocode.UnknownLabel)
	}
}

func TestResolveCachesAcrossInstances(t *testing.T) {
	var calls atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		_, _ = w.Write([]byte(`{"address":{"city":"Paris"}}`))
	}))
	defer server.Close()

	cacheFile := filepath.Join(t.TempDir(), "geocache.json")
	coords := &media.Coordinates{Lat: 48.8566, Lon: 2.3522}

	first := geocode.NewNominatim(geocoderConfig(server.URL, cacheFile), logging.NewNop())
	if got := first.Resolve(context.Background(), coords); got != "Paris" {
		t.Fatalf("first Resolve = %q", got)
	}
	if got := first.Resolve(context.Background(), coords); got != "Paris" {
		t.Fatalf("repeat Resolve = %q", got)
	}

	// A fresh resolver warms up from the disk cache and never hits the server.
	second := geocode.NewNominatim(geocoderConfig(server.URL, cacheFile), logging.NewNop())
	if got := second.Resolve(context.Background(), coords); got != "Paris" {
		t.Fatalf("second instance Resolve = %q", got)
	}

	if calls.Load() != 1 {
		t.Fatalf("server calls = %d, want 1", calls.Load())
	}
}

func TestDisabledResolver(t *testing.T) {
	var resolver geocode.Resolver = geocode.Disabled{}
	if got := resolver.Resolve(context.Background(), nil); got != geocode.NoLocationLabel {
		t.Fatalf("Resolve(nil) = %q", got)
	}
	coords := &media.Coordinates{Lat: 48.8566, Lon: 2.3522}
	if got := resolver.Resolve(context.Background(), coords); got != geocode.UnknownLabel {
		t.Fatalf("Resolve(coords) = %q, want %q", got, geocode.UnknownLabel)
	}
}
