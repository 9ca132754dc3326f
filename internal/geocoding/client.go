package geocoding

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"panchayat-connect/internal/models"
	"panchayat-connect/internal/region"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	CodeTimeout     = "LOCATION_TIMEOUT"
	CodeUnavailable = "LOCATION_UNAVAILABLE"
	CodeInvalid     = "LOCATION_INVALID"

	UnknownLocation   = "Unknown Location"
	AddressNotFound   = "Address not found"
	FallbackAddress   = "Unable to detect address"
	FallbackPanchayat = "Unknown Panchayat"
)

// errLimiterWait marks a request that could not get a rate limiter slot
// before its deadline.
var errLimiterWait = errors.New("rate limiter wait")

// LocationError carries a machine code and, for upstream failures, a
// fallback location the client can offer for manual correction.
type LocationError struct {
	Code     string
	Fallback *models.LocationData
	Err      error
}

func (e *LocationError) Error() string {
	return fmt.Sprintf("%s: %v", e.Code, e.Err)
}

func (e *LocationError) Unwrap() error {
	return e.Err
}

type Options struct {
	BaseURL    string
	UserAgent  string
	Timeout    time.Duration
	RateLimit  rate.Limit
	MaxRetries int
	Backoff    time.Duration
}

// Client reverse-geocodes coordinates through a Nominatim-compatible API.
type Client struct {
	baseURL    string
	userAgent  string
	timeout    time.Duration
	maxRetries int
	backoff    time.Duration
	httpClient *http.Client
	limiter    *rate.Limiter
	regions    *region.Directory
	logger     *zap.Logger
}

// NewClient creates a new geocoding client
func NewClient(opts Options, regions *region.Directory, logger *zap.Logger) *Client {
	if opts.RateLimit == 0 {
		opts.RateLimit = 1
	}
	if opts.Timeout == 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.Backoff == 0 {
		opts.Backoff = 500 * time.Millisecond
	}
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	}
	return &Client{
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		userAgent:  opts.UserAgent,
		timeout:    opts.Timeout,
		maxRetries: opts.MaxRetries,
		backoff:    opts.Backoff,
		httpClient: &http.Client{},
		limiter:    rate.NewLimiter(opts.RateLimit, 1),
		regions:    regions,
		logger:     logger,
	}
}

type nominatimAddress struct {
	Road          string `json:"road"`
	Neighbourhood string `json:"neighbourhood"`
	Suburb        string `json:"suburb"`
	Village       string `json:"village"`
	Town          string `json:"town"`
	City          string `json:"city"`
	CityDistrict  string `json:"city_district"`
	Municipality  string `json:"municipality"`
	County        string `json:"county"`
	StateDistrict string `json:"state_district"`
	State         string `json:"state"`
	Postcode      string `json:"postcode"`
}

type nominatimResponse struct {
	DisplayName string           `json:"display_name"`
	Address     nominatimAddress `json:"address"`
	Error       string           `json:"error"`
}

// ValidCoordinates reports whether lat/lng are on the globe.
func ValidCoordinates(lat, lng float64) bool {
	return lat >= -90 && lat <= 90 && lng >= -180 && lng <= 180
}

// Fallback is the location returned alongside upstream failures.
func Fallback(lat, lng float64) *models.LocationData {
	return &models.LocationData{Lat: lat, Lng: lng, Address: FallbackAddress, Panchayat: FallbackPanchayat}
}

// Reverse resolves coordinates to an address and panchayat.
func (c *Client) Reverse(ctx context.Context, lat, lng float64) (*models.LocationData, error) {
	if !ValidCoordinates(lat, lng) {
		return nil, &LocationError{Code: CodeInvalid, Err: fmt.Errorf("coordinates out of range: %f,%f", lat, lng)}
	}

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, c.fail(lat, lng, ctx.Err())
			case <-time.After(c.backoff * time.Duration(attempt)):
			}
		}

		result, retry, err := c.fetch(ctx, lat, lng)
		if err == nil {
			return c.toLocation(lat, lng, result), nil
		}
		lastErr = err
		if !retry {
			break
		}
		c.logger.Warn("Retrying reverse geocode", zap.Int("attempt", attempt+1), zap.Error(err))
	}

	return nil, c.fail(lat, lng, lastErr)
}

func (c *Client) fail(lat, lng float64, err error) *LocationError {
	code := CodeUnavailable
	if isTimeout(err) {
		code = CodeTimeout
	}
	c.logger.Error("Reverse geocode failed", zap.String("code", code), zap.Error(err))
	return &LocationError{Code: code, Fallback: Fallback(lat, lng), Err: err}
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, errLimiterWait) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// fetch performs one request. The bool reports whether the failure is worth retrying.
func (c *Client) fetch(ctx context.Context, lat, lng float64) (*nominatimResponse, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, false, fmt.Errorf("%w: %w", errLimiterWait, err)
	}

	params := url.Values{}
	params.Set("format", "json")
	params.Set("lat", strconv.FormatFloat(lat, 'f', -1, 64))
	params.Set("lon", strconv.FormatFloat(lng, 'f', -1, 64))
	params.Set("addressdetails", "1")
	params.Set("accept-language", "en")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/reverse?"+params.Encode(), nil)
	if err != nil {
		return nil, false, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, !isTimeout(err), fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		retry := resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests
		return nil, retry, fmt.Errorf("geocoding service returned status %d: %s", resp.StatusCode, string(body))
	}

	var result nominatimResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, false, fmt.Errorf("failed to decode response: %w", err)
	}
	if result.Error != "" {
		return nil, false, fmt.Errorf("geocoding service error: %s", result.Error)
	}
	return &result, false, nil
}

func (c *Client) toLocation(lat, lng float64, result *nominatimResponse) *models.LocationData {
	a := result.Address
	loc := &models.LocationData{
		Lat:       lat,
		Lng:       lng,
		Panchayat: firstNonEmpty(a.Village, a.Suburb, a.Town, a.CityDistrict, a.Municipality, a.City, a.County),
	}
	if loc.Panchayat == "" {
		loc.Panchayat = UnknownLocation
	}

	parts := nonEmpty(a.Road, a.Neighbourhood, a.Suburb, firstNonEmpty(a.Village, a.Town, a.City),
		a.StateDistrict, a.State, a.Postcode)
	switch {
	case len(parts) > 0:
		loc.Address = strings.Join(parts, ", ")
	case result.DisplayName != "":
		loc.Address = result.DisplayName
	default:
		loc.Address = AddressNotFound
	}

	if possible := nonEmpty(a.Village, a.Suburb, a.Town, a.CityDistrict, a.Municipality); len(possible) > 1 {
		loc.PossiblePanchayats = possible
	}
	loc.District = c.detectDistrict(a.StateDistrict, loc.Panchayat)
	return loc
}

func (c *Client) detectDistrict(stateDistrict, panchayat string) string {
	if c.regions == nil {
		return ""
	}
	name := strings.TrimSpace(stateDistrict)
	if len(name) > len(" district") && strings.EqualFold(name[len(name)-len(" district"):], " district") {
		name = name[:len(name)-len(" district")]
	}
	if district, ok := c.regions.District(name); ok {
		return district
	}
	if district, ok := c.regions.DistrictOf(panchayat); ok {
		return district
	}
	return ""
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func nonEmpty(values ...string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}
