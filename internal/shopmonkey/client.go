// Package shopmonkey wraps the Shopmonkey v3 REST API endpoints the
// scheduling service depends on: canned services, appointments, customers,
// vehicles, and users.
package shopmonkey

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ridgelineauto/scheduling-api/pkg/logging"
)

const (
	defaultBaseURL   = "https://api.shopmonkey.cloud"
	defaultUserAgent = "ridgeline-scheduling/0.1"
)

// Config controls how the Shopmonkey client behaves.
type Config struct {
	BaseURL    string
	APIToken   string
	LocationID string
	Timeout    time.Duration
	MaxRetries int
	Backoff    time.Duration
	HTTPClient *http.Client
	Logger     *logging.Logger
	UserAgent  string
}

// Client wraps the Shopmonkey REST endpoints relevant to scheduling.
type Client struct {
	apiToken   string
	baseURL    string
	locationID string
	httpClient *http.Client
	maxRetries int
	backoff    time.Duration
	logger     *logging.Logger
	userAgent  string
}

// New creates a configured Client with sane defaults.
func New(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.APIToken) == "" {
		return nil, errors.New("shopmonkey: API token is required")
	}
	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	baseURL = strings.TrimRight(baseURL, "/")
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	maxRetries := cfg.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}
	backoff := cfg.Backoff
	if backoff <= 0 {
		backoff = 250 * time.Millisecond
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}
	userAgent := strings.TrimSpace(cfg.UserAgent)
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	return &Client{
		apiToken:   cfg.APIToken,
		baseURL:    baseURL,
		locationID: cfg.LocationID,
		httpClient: httpClient,
		maxRetries: maxRetries,
		backoff:    backoff,
		logger:     logger,
		userAgent:  userAgent,
	}, nil
}

// GetBookableCannedServices fetches every canned service flagged bookable.
func (c *Client) GetBookableCannedServices(ctx context.Context) ([]Service, error) {
	q, err := c.whereQuery(map[string]any{"bookable": true})
	if err != nil {
		return nil, err
	}
	data, err := c.invoke(ctx, http.MethodGet, "/v3/canned_service", q, nil)
	if err != nil {
		return nil, err
	}
	return decodeDataList[Service](data)
}

// GetCannedService fetches one canned service by ID. A missing service is
// (nil, nil), not an error.
func (c *Client) GetCannedService(ctx context.Context, serviceID string) (*Service, error) {
	if strings.TrimSpace(serviceID) == "" {
		return nil, errors.New("shopmonkey: service id required")
	}
	data, err := c.invoke(ctx, http.MethodGet, "/v3/canned_service/"+url.PathEscape(serviceID), nil, nil)
	if err != nil {
		var apiErr *apiError
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
			return nil, nil
		}
		return nil, err
	}
	return decodeDataWrapper[Service](data)
}

// GetAppointmentsForDate fetches the full-day appointment snapshot for an
// ISO date. techIDs, when non-empty, filters to appointments attributed to
// those technicians.
func (c *Client) GetAppointmentsForDate(ctx context.Context, date string, techIDs []string) ([]Appointment, error) {
	if strings.TrimSpace(date) == "" {
		return nil, errors.New("shopmonkey: date required")
	}
	q, err := c.whereQuery(map[string]any{
		"startDate": map[string]string{
			"$gte": date + "T00:00:00Z",
			"$lt":  date + "T23:59:59Z",
		},
	})
	if err != nil {
		return nil, err
	}
	data, err := c.invoke(ctx, http.MethodGet, "/v3/appointment", q, nil)
	if err != nil {
		return nil, err
	}
	appointments, err := decodeDataList[Appointment](data)
	if err != nil {
		return nil, err
	}
	if len(techIDs) == 0 {
		return appointments, nil
	}
	wanted := make(map[string]struct{}, len(techIDs))
	for _, id := range techIDs {
		wanted[id] = struct{}{}
	}
	filtered := appointments[:0]
	for _, appt := range appointments {
		if _, ok := wanted[appt.TechnicianID]; ok {
			filtered = append(filtered, appt)
			continue
		}
		if _, ok := wanted[appt.UserID]; ok {
			filtered = append(filtered, appt)
		}
	}
	return filtered, nil
}

// FindOrCreateCustomer looks a customer up by email, then phone, and
// creates one when neither matches.
func (c *Client) FindOrCreateCustomer(ctx context.Context, firstName, lastName, email, phone string) (*Customer, error) {
	if email != "" {
		found, err := c.findCustomers(ctx, map[string]any{"email": email})
		if err != nil {
			return nil, err
		}
		if len(found) > 0 {
			return &found[0], nil
		}
	}
	if phone != "" {
		found, err := c.findCustomers(ctx, map[string]any{"phone": phone})
		if err != nil {
			return nil, err
		}
		if len(found) > 0 {
			return &found[0], nil
		}
	}

	payload := map[string]any{
		"firstName": firstName,
		"lastName":  lastName,
	}
	if email != "" {
		payload["email"] = email
	}
	if phone != "" {
		payload["phone"] = phone
	}
	c.stampLocation(payload)
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("shopmonkey: marshal customer payload: %w", err)
	}
	data, err := c.invoke(ctx, http.MethodPost, "/v3/customer", nil, body)
	if err != nil {
		return nil, err
	}
	return decodeDataOrSelf[Customer](data)
}

func (c *Client) findCustomers(ctx context.Context, where map[string]any) ([]Customer, error) {
	q, err := c.whereQuery(where)
	if err != nil {
		return nil, err
	}
	data, err := c.invoke(ctx, http.MethodGet, "/v3/customer", q, nil)
	if err != nil {
		return nil, err
	}
	return decodeDataList[Customer](data)
}

// FindOrCreateVehicle finds a vehicle by VIN, then by customer plus
// year/make/model, and creates one when neither matches.
func (c *Client) FindOrCreateVehicle(ctx context.Context, customerID string, year int, make, model, vin string) (*Vehicle, error) {
	if strings.TrimSpace(customerID) == "" {
		return nil, errors.New("shopmonkey: customer id required")
	}
	if vin != "" {
		found, err := c.findVehicles(ctx, map[string]any{"vin": vin})
		if err != nil {
			return nil, err
		}
		if len(found) > 0 {
			return &found[0], nil
		}
	}
	found, err := c.findVehicles(ctx, map[string]any{
		"customerId": customerID,
		"year":       year,
		"make":       make,
		"model":      model,
	})
	if err != nil {
		return nil, err
	}
	if len(found) > 0 {
		return &found[0], nil
	}

	payload := map[string]any{
		"customerId": customerID,
		"year":       year,
		"make":       make,
		"model":      model,
	}
	if vin != "" {
		payload["vin"] = vin
	}
	c.stampLocation(payload)
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("shopmonkey: marshal vehicle payload: %w", err)
	}
	data, err := c.invoke(ctx, http.MethodPost, "/v3/vehicle", nil, body)
	if err != nil {
		return nil, err
	}
	return decodeDataOrSelf[Vehicle](data)
}

func (c *Client) findVehicles(ctx context.Context, where map[string]any) ([]Vehicle, error) {
	q, err := c.whereQuery(where)
	if err != nil {
		return nil, err
	}
	data, err := c.invoke(ctx, http.MethodGet, "/v3/vehicle", q, nil)
	if err != nil {
		return nil, err
	}
	return decodeDataList[Vehicle](data)
}

// CreateAppointment creates a work-order appointment.
func (c *Client) CreateAppointment(ctx context.Context, req CreateAppointmentRequest) (*Appointment, error) {
	if strings.TrimSpace(req.CustomerID) == "" || strings.TrimSpace(req.VehicleID) == "" {
		return nil, errors.New("shopmonkey: customer and vehicle ids required")
	}
	if req.StartDate == "" || req.EndDate == "" {
		return nil, errors.New("shopmonkey: appointment dates required")
	}
	payload := map[string]any{
		"customerId": req.CustomerID,
		"vehicleId":  req.VehicleID,
		"startDate":  req.StartDate,
		"endDate":    req.EndDate,
	}
	if req.Title != "" {
		payload["title"] = req.Title
	}
	if req.Note != "" {
		payload["note"] = req.Note
	}
	if req.TechnicianID != "" {
		payload["technicianId"] = req.TechnicianID
	}
	c.stampLocation(payload)
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("shopmonkey: marshal appointment payload: %w", err)
	}
	data, err := c.invoke(ctx, http.MethodPost, "/v3/appointment", nil, body)
	if err != nil {
		return nil, err
	}
	return decodeDataOrSelf[Appointment](data)
}

// GetUsers fetches all staff users for the configured location.
func (c *Client) GetUsers(ctx context.Context) ([]User, error) {
	var q url.Values
	if c.locationID != "" {
		q = url.Values{}
		q.Set("locationId", c.locationID)
	}
	data, err := c.invoke(ctx, http.MethodGet, "/v3/user", q, nil)
	if err != nil {
		return nil, err
	}
	return decodeDataList[User](data)
}

// HealthCheck probes the API with a minimal canned-service query.
func (c *Client) HealthCheck(ctx context.Context) error {
	q := url.Values{}
	q.Set("limit", "1")
	if c.locationID != "" {
		q.Set("locationId", c.locationID)
	}
	_, err := c.invoke(ctx, http.MethodGet, "/v3/canned_service", q, nil)
	return err
}

// whereQuery builds the JSON where-clause query Shopmonkey list endpoints
// expect, stamping the configured location when present.
func (c *Client) whereQuery(where map[string]any) (url.Values, error) {
	clause, err := json.Marshal(where)
	if err != nil {
		return nil, fmt.Errorf("shopmonkey: marshal where clause: %w", err)
	}
	q := url.Values{}
	q.Set("where", string(clause))
	if c.locationID != "" {
		q.Set("locationId", c.locationID)
	}
	return q, nil
}

func (c *Client) stampLocation(payload map[string]any) {
	if c.locationID != "" {
		payload["locationId"] = c.locationID
	}
}

func (c *Client) invoke(ctx context.Context, method, path string, query url.Values, body []byte) ([]byte, error) {
	fullURL := c.buildURL(path, query)
	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		var bodyReader io.Reader
		if body != nil {
			bodyReader = bytes.NewReader(body)
		}
		req, err := http.NewRequestWithContext(ctx, method, fullURL, bodyReader)
		if err != nil {
			return nil, fmt.Errorf("shopmonkey: build request: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+c.apiToken)
		req.Header.Set("User-Agent", c.userAgent)
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		resp, err := c.httpClient.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			if !shouldRetry(method, 0, err) || attempt == c.maxRetries {
				return nil, fmt.Errorf("shopmonkey: http error: %w", err)
			}
			lastErr = err
			c.logRetry(path, attempt, 0, err)
			if sleepErr := c.sleep(ctx, attempt); sleepErr != nil {
				return nil, sleepErr
			}
			continue
		}
		data, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()
		if readErr != nil {
			return nil, fmt.Errorf("shopmonkey: read response: %w", readErr)
		}
		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return data, nil
		}
		apiErr := decodeAPIError(resp.StatusCode, data)
		if attempt < c.maxRetries && shouldRetry(method, resp.StatusCode, nil) {
			lastErr = apiErr
			c.logRetry(path, attempt, resp.StatusCode, apiErr)
			if sleepErr := c.sleep(ctx, attempt); sleepErr != nil {
				return nil, sleepErr
			}
			continue
		}
		return nil, apiErr
	}
	if lastErr != nil {
		return nil, lastErr
	}
	return nil, errors.New("shopmonkey: request failed without response")
}

func (c *Client) buildURL(path string, query url.Values) string {
	full := c.baseURL + "/" + strings.TrimLeft(path, "/")
	if len(query) > 0 {
		full = full + "?" + query.Encode()
	}
	return full
}

func (c *Client) sleep(ctx context.Context, attempt int) error {
	delay := c.backoff * time.Duration(1<<attempt)
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (c *Client) logRetry(path string, attempt int, status int, err error) {
	if c.logger == nil {
		return
	}
	c.logger.Warn("shopmonkey retry",
		"path", path,
		"attempt", attempt+1,
		"status", status,
		"error", err,
	)
}

// shouldRetry permits retries only for transient failures: network
// timeouts, rate limiting, and server errors. Client errors are final.
// Transport errors are retried only on GET: a write request may have been
// delivered before the connection dropped, and replaying it would
// duplicate the record.
func shouldRetry(method string, status int, err error) bool {
	if err != nil {
		if method != http.MethodGet {
			return false
		}
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return true
		}
		return !errors.Is(err, context.Canceled)
	}
	if status == http.StatusTooManyRequests {
		return true
	}
	if status >= 500 && status <= 599 {
		return true
	}
	return false
}

type apiError struct {
	StatusCode int    `json:"-"`
	Message    string `json:"message,omitempty"`
	ErrorText  string `json:"error,omitempty"`
}

func (e *apiError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("shopmonkey: %s (status=%d)", e.Message, e.StatusCode)
	}
	if e.ErrorText != "" {
		return fmt.Sprintf("shopmonkey: %s (status=%d)", e.ErrorText, e.StatusCode)
	}
	return fmt.Sprintf("shopmonkey: http status %d", e.StatusCode)
}

func decodeAPIError(status int, body []byte) error {
	var parsed apiError
	if err := json.Unmarshal(body, &parsed); err != nil {
		return &apiError{StatusCode: status, Message: string(body)}
	}
	parsed.StatusCode = status
	return &parsed
}

func decodeDataWrapper[T any](body []byte) (*T, error) {
	var wrapper struct {
		Data T `json:"data"`
	}
	if err := json.Unmarshal(body, &wrapper); err != nil {
		return nil, fmt.Errorf("shopmonkey: decode response: %w", err)
	}
	return &wrapper.Data, nil
}

func decodeDataList[T any](body []byte) ([]T, error) {
	var wrapper struct {
		Data []T `json:"data"`
	}
	if err := json.Unmarshal(body, &wrapper); err != nil {
		return nil, fmt.Errorf("shopmonkey: decode response: %w", err)
	}
	return wrapper.Data, nil
}

// decodeDataOrSelf handles create responses, which some deployments wrap
// in a data envelope and some return bare.
func decodeDataOrSelf[T any](body []byte) (*T, error) {
	var wrapper struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(body, &wrapper); err == nil && len(wrapper.Data) > 0 && string(wrapper.Data) != "null" {
		var out T
		if err := json.Unmarshal(wrapper.Data, &out); err != nil {
			return nil, fmt.Errorf("shopmonkey: decode response: %w", err)
		}
		return &out, nil
	}
	var out T
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("shopmonkey: decode response: %w", err)
	}
	return &out, nil
}
