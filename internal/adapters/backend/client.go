package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/atvirokodosprendimai/campuswatch/internal/domain"
)

// Client talks to the campus crowd-monitoring backend over HTTP. It
// implements domain.AuthorityClient: network failures and non-2xx responses
// surface as domain.ErrTransport, undecodable payloads as
// domain.ErrMalformed, and a refused entry as an unaccepted CommandResult.
type Client struct {
	httpClient *http.Client
	baseURL    string

	mu    sync.RWMutex
	token string
}

func New(baseURL string, timeout time.Duration) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(baseURL, "/"),
	}
}

// UseSession installs the bearer token sent with every subsequent request.
// An empty token clears it.
func (c *Client) UseSession(session domain.Session) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = session.Token
}

func (c *Client) bearer() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

func (c *Client) request(ctx context.Context, method, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrTransport, err)
	}
	if token := c.bearer(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s %s: %v", domain.ErrTransport, method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: %s %s: status %d", domain.ErrTransport, method, path, resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: %s %s: %v", domain.ErrMalformed, method, path, err)
	}
	return nil
}

type rosterRow struct {
	ID           int    `json:"id"`
	Name         string `json:"name"`
	Capacity     int    `json:"capacity"`
	CurrentCount int    `json:"current_count"`
}

// FetchRoster polls GET /status. The backend ships its own derived fields,
// but only the counters are trusted; status, load and availability are
// recomputed locally so one classifier rules the whole engine. Rows with a
// non-positive capacity cannot be classified and are dropped with a log line.
func (c *Client) FetchRoster(ctx context.Context) ([]domain.Location, error) {
	var payload struct {
		Locations []rosterRow `json:"locations"`
	}
	if err := c.request(ctx, http.MethodGet, "/status", &payload); err != nil {
		return nil, err
	}
	if payload.Locations == nil {
		return nil, fmt.Errorf("%w: /status response missing locations", domain.ErrMalformed)
	}

	locations := make([]domain.Location, 0, len(payload.Locations))
	for _, row := range payload.Locations {
		loc, err := domain.Reclassify(domain.Location{
			ID:           row.ID,
			Name:         row.Name,
			Capacity:     row.Capacity,
			CurrentCount: row.CurrentCount,
		})
		if err != nil {
			log.Printf("backend: dropping location %d (%s): %v", row.ID, row.Name, err)
			continue
		}
		locations = append(locations, loc)
	}
	return locations, nil
}

type alertRow struct {
	ID           int       `json:"id"`
	LocationID   int       `json:"location_id"`
	LocationName string    `json:"location_name"`
	AlertType    string    `json:"alert_type"`
	Message      string    `json:"message"`
	Timestamp    time.Time `json:"timestamp"`
}

// FetchAlerts pulls GET /alerts. The rows come back oldest-first and
// unfiltered; the application layer prunes them against the live roster.
func (c *Client) FetchAlerts(ctx context.Context) ([]domain.Alert, error) {
	var payload struct {
		Alerts []alertRow `json:"alerts"`
	}
	if err := c.request(ctx, http.MethodGet, "/alerts", &payload); err != nil {
		return nil, err
	}

	alerts := make([]domain.Alert, 0, len(payload.Alerts))
	for _, row := range payload.Alerts {
		alerts = append(alerts, domain.Alert{
			ID:           strconv.Itoa(row.ID),
			LocationID:   row.LocationID,
			LocationName: row.LocationName,
			Kind:         domain.AlertKind(row.AlertType),
			Message:      row.Message,
			Timestamp:    row.Timestamp,
		})
	}
	return alerts, nil
}

type commandResponse struct {
	Success         bool   `json:"success"`
	Message         string `json:"message"`
	CurrentCount    *int   `json:"current_count"`
	IsReroute       bool   `json:"is_reroute"`
	RerouteLocation string `json:"reroute_location"`
}

func (r commandResponse) toResult() domain.CommandResult {
	return domain.CommandResult{
		Accepted:     r.Success,
		Message:      r.Message,
		CurrentCount: r.CurrentCount,
		Reroute:      r.RerouteLocation,
	}
}

// RecordEntry posts POST /enter. A closed or full location answers with
// success=false and possibly a reroute suggestion; that is a rejected
// command, not an error.
func (c *Client) RecordEntry(ctx context.Context, locationID int) (domain.CommandResult, error) {
	var resp commandResponse
	path := "/enter?location_id=" + strconv.Itoa(locationID)
	if err := c.request(ctx, http.MethodPost, path, &resp); err != nil {
		return domain.CommandResult{}, err
	}
	return resp.toResult(), nil
}

// RecordExit posts POST /exit. The backend floors the count at zero itself.
func (c *Client) RecordExit(ctx context.Context, locationID int) (domain.CommandResult, error) {
	var resp commandResponse
	path := "/exit?location_id=" + strconv.Itoa(locationID)
	if err := c.request(ctx, http.MethodPost, path, &resp); err != nil {
		return domain.CommandResult{}, err
	}
	return resp.toResult(), nil
}

// RunSimulation asks the backend for one random crowd-movement tick.
func (c *Client) RunSimulation(ctx context.Context) error {
	return c.request(ctx, http.MethodPost, "/simulate", nil)
}

// ResetCounts zeroes every location counter on the backend.
func (c *Client) ResetCounts(ctx context.Context) error {
	return c.request(ctx, http.MethodPost, "/reset", nil)
}

// Forecast fetches GET /forecast/{id}, the backend's predicted crowd levels
// for the next few hours.
func (c *Client) Forecast(ctx context.Context, locationID int) (domain.Forecast, error) {
	var forecast domain.Forecast
	if err := c.request(ctx, http.MethodGet, "/forecast/"+strconv.Itoa(locationID), &forecast); err != nil {
		return domain.Forecast{}, err
	}
	return forecast, nil
}

// History fetches GET /history, the backend's recent entry/exit log,
// optionally narrowed to one location.
func (c *Client) History(ctx context.Context, locationID *int) ([]domain.HistoryEntry, error) {
	path := "/history"
	if locationID != nil {
		path += "?location_id=" + strconv.Itoa(*locationID)
	}
	var payload struct {
		Logs []domain.HistoryEntry `json:"logs"`
	}
	if err := c.request(ctx, http.MethodGet, path, &payload); err != nil {
		return nil, err
	}
	return payload.Logs, nil
}

// Login exchanges operator credentials for a bearer token via POST /login.
// A 401 means bad credentials; other failures are transport errors.
func (c *Client) Login(ctx context.Context, username, password string) (domain.Session, error) {
	query := url.Values{"username": {username}, "password": {password}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/login?"+query.Encode(), nil)
	if err != nil {
		return domain.Session{}, fmt.Errorf("%w: %v", domain.ErrTransport, err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.Session{}, fmt.Errorf("%w: POST /login: %v", domain.ErrTransport, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusUnauthorized {
		return domain.Session{}, fmt.Errorf("invalid credentials")
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return domain.Session{}, fmt.Errorf("%w: POST /login: status %d", domain.ErrTransport, resp.StatusCode)
	}

	var payload struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return domain.Session{}, fmt.Errorf("%w: POST /login: %v", domain.ErrMalformed, err)
	}
	if payload.AccessToken == "" {
		return domain.Session{}, fmt.Errorf("%w: /login response missing access_token", domain.ErrMalformed)
	}
	return domain.Session{Token: payload.AccessToken}, nil
}
