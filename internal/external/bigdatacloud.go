package external

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"vaichover/internal/types"
)

const bigDataCloudReverseURL = "https://api.bigdatacloud.net/data/reverse-geocode-client"

type bigDataCloudResponse struct {
	City                 string `json:"city"`
	Locality             string `json:"locality"`
	PrincipalSubdivision string `json:"principalSubdivision"`
	CountryName          string `json:"countryName"`
}

// label joins locality (or city), subdivision and country, skipping blanks.
func (r bigDataCloudResponse) label() string {
	primary := r.Locality
	if primary == "" {
		primary = r.City
	}
	return joinNonEmpty(primary, r.PrincipalSubdivision, r.CountryName)
}

// BigDataCloudClient implements ReverseGeocoder with the free client-side
// reverse geocoding endpoint.
type BigDataCloudClient struct {
	base     *BaseClient
	endpoint string
	language string
	logger   *slog.Logger
}

// NewBigDataCloudClient creates a BigDataCloudClient. Reverse geocoding is
// decorative, so it gets a single retry.
func NewBigDataCloudClient(httpClient *http.Client, endpoint, language, userAgent string, logger *slog.Logger) *BigDataCloudClient {
	base := NewBaseClient(
		httpClient,
		"bigdatacloud",
		RetryPolicy{MaxRetries: 1, MinWait: 250 * time.Millisecond, MaxWait: 2 * time.Second},
		userAgent,
	)
	return NewBigDataCloudClientWithBase(base, endpoint, language, logger)
}

// NewBigDataCloudClientWithBase creates a BigDataCloudClient with a
// pre-configured BaseClient.
func NewBigDataCloudClientWithBase(base *BaseClient, endpoint, language string, logger *slog.Logger) *BigDataCloudClient {
	if endpoint == "" {
		endpoint = bigDataCloudReverseURL
	}
	if language == "" {
		language = "pt"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &BigDataCloudClient{base: base, endpoint: endpoint, language: language, logger: logger}
}

// ReverseGeocode returns a "Locality, Region, Country" label for the
// coordinate, or an empty string when the provider knows nothing about it.
func (c *BigDataCloudClient) ReverseGeocode(ctx context.Context, lat, lon float64) (string, error) {
	q := url.Values{}
	q.Set("latitude", formatCoord(lat))
	q.Set("longitude", formatCoord(lon))
	q.Set("localityLanguage", c.language)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"?"+q.Encode(), nil)
	if err != nil {
		return "", types.NewAppError(types.ErrCodeInternalUnexpected, "failed to create reverse geocode request", err)
	}
	req.Header.Set("Cache-Control", "no-store")

	resp, err := c.base.Do(req)
	if err != nil {
		return "", wrapUpstream("BigDataCloud", "ReverseGeocode", types.ErrCodeUpstreamUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return "", types.NewAppError(
			types.ErrCodeUpstreamUnavailable,
			fmt.Sprintf("BigDataCloud ReverseGeocode returned %d", resp.StatusCode),
			nil,
		)
	}

	var payload bigDataCloudResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", types.NewAppError(types.ErrCodeUpstreamUnavailable, "failed to decode reverse geocode response", err)
	}
	return payload.label(), nil
}

// FormatCitySuggestionLabel renders "Name, Admin1, Country" for a search hit,
// falling back to the country code when the full name is absent.
func FormatCitySuggestionLabel(c types.CitySuggestion) string {
	country := c.Country
	if country == "" {
		country = c.CountryCode
	}
	return joinNonEmpty(c.Name, c.Admin1, country)
}

func joinNonEmpty(parts ...string) string {
	kept := parts[:0:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, ", ")
}

var _ ReverseGeocoder = (*BigDataCloudClient)(nil)
