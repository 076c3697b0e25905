package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"shoebox/internal/config"
	"shoebox/internal/logging"
	"shoebox/internal/media"
)

// nominatimResponse is the subset of the reverse-geocoding payload we read.
type nominatimResponse struct {
	Address struct {
		City    string `json:"city"`
		Town    string `json:"town"`
		Village string `json:"village"`
		County  string `json:"county"`
		State   string `json:"state"`
		Country string `json:"country"`
	} `json:"address"`
}

// Nominatim resolves coordinates through a reverse-geocoding endpoint with a
// persistent JSON disk cache and polite spacing between requests. Lookup
// failures degrade to UnknownLabel; the job never fails because of geocoding.
type Nominatim struct {
	baseURL     string
	userAgent   string
	client      *http.Client
	minInterval time.Duration
	cachePath   string
	logger      *slog.Logger

	mu       sync.Mutex
	cache    map[string]string
	lastCall time.Time
}

// NewNominatim builds a resolver from geocoder config. The disk cache is
// loaded best-effort; a missing or corrupt cache file just means cold lookups.
func NewNominatim(cfg config.Geocoder, logger *slog.Logger) *Nominatim {
	n := &Nominatim{
		baseURL:     cfg.BaseURL,
		userAgent:   cfg.UserAgent,
		client:      &http.Client{Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second},
		minInterval: time.Duration(cfg.MinIntervalMS) * time.Millisecond,
		cachePath:   cfg.CacheFile,
		logger:      logging.WithComponent(logger, "geocoder"),
		cache:       make(map[string]string),
	}
	n.loadCache()
	return n
}

// FromConfig returns the resolver the config asks for.
func FromConfig(cfg *config.Config, logger *slog.Logger) Resolver {
	if cfg == nil || !cfg.Geocoder.Enabled {
		return Disabled{}
	}
	return NewNominatim(cfg.Geocoder, logger)
}

// Resolve implements Resolver.
func (n *Nominatim) Resolve(ctx context.Context, coords *media.Coordinates) string {
	if coords == nil {
		return NoLocationLabel
	}
	if !coords.Valid() {
		return UnknownLabel
	}

	key := coords.Key()
	n.mu.Lock()
	if label, ok := n.cache[key]; ok {
		n.mu.Unlock()
		return label
	}
	n.mu.Unlock()

	label, err := n.lookup(ctx, coords.Lat, coords.Lon)
	if err != nil {
		n.logger.Debug("reverse geocode failed", logging.String("coords", key), logging.Error(err))
		return UnknownLabel
	}

	n.mu.Lock()
	n.cache[key] = label
	n.saveCacheLocked()
	n.mu.Unlock()
	return label
}

func (n *Nominatim) lookup(ctx context.Context, lat, lon float64) (string, error) {
	n.throttle(ctx)

	query := url.Values{}
	query.Set("lat", fmt.Sprintf("%f", lat))
	query.Set("lon", fmt.Sprintf("%f", lon))
	query.Set("format", "json")
	query.Set("addressdetails", "1")
	query.Set("accept-language", "en")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, n.baseURL+"?"+query.Encode(), nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", n.userAgent)

	resp, err := n.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("geocoding request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("geocoding status %d", resp.StatusCode)
	}

	var payload nominatimResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("parse geocoding response: %w", err)
	}

	label := pickLabel(payload)
	if label == "" {
		return "", fmt.Errorf("geocoding response had no usable address")
	}
	return label, nil
}

// throttle spaces requests at least minInterval apart, per endpoint policy.
func (n *Nominatim) throttle(ctx context.Context) {
	n.mu.Lock()
	wait := n.minInterval - time.Since(n.lastCall)
	n.lastCall = time.Now().Add(wait)
	n.mu.Unlock()

	if wait <= 0 {
		return
	}
	select {
	case <-time.After(wait):
	case <-ctx.Done():
	}
}

// pickLabel prefers the most specific settlement name available.
func pickLabel(payload nominatimResponse) string {
	addr := payload.Address
	for _, candidate := range []string{addr.City, addr.Town, addr.Village, addr.County, addr.State, addr.Country} {
		if trimmed := strings.TrimSpace(candidate); trimmed != "" {
			return trimmed
		}
	}
	return ""
}

func (n *Nominatim) loadCache() {
	if n.cachePath == "" {
		return
	}
	data, err := os.ReadFile(n.cachePath)
	if err != nil {
		return
	}
	var stored map[string]string
	if err := json.Unmarshal(data, &stored); err != nil {
		n.logger.Warn("geocode cache unreadable, starting cold", logging.Error(err))
		return
	}
	n.cache = stored
}

func (n *Nominatim) saveCacheLocked() {
	if n.cachePath == "" {
		return
	}
	data, err := json.MarshalIndent(n.cache, "", "  ")
	if err != nil {
		return
	}
	if err := os.MkdirAll(filepath.Dir(n.cachePath), 0o755); err != nil {
		return
	}
	if err := os.WriteFile(n.cachePath, data, 0o644); err != nil {
		n.logger.Warn("write geocode cache", logging.Error(err))
	}
}
