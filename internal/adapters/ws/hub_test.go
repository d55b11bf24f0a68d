package ws

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/atvirokodosprendimai/campuswatch/internal/application"
	"github.com/atvirokodosprendimai/campuswatch/internal/domain"
)

type stubAuthority struct{}

func (stubAuthority) FetchRoster(ctx context.Context) ([]domain.Location, error) { return nil, nil }
func (stubAuthority) FetchAlerts(ctx context.Context) ([]domain.Alert, error)    { return nil, nil }
func (stubAuthority) RecordEntry(ctx context.Context, locationID int) (domain.CommandResult, error) {
	return domain.CommandResult{}, nil
}
func (stubAuthority) RecordExit(ctx context.Context, locationID int) (domain.CommandResult, error) {
	return domain.CommandResult{}, nil
}
func (stubAuthority) RunSimulation(ctx context.Context) error { return nil }
func (stubAuthority) ResetCounts(ctx context.Context) error   { return nil }
func (stubAuthority) Forecast(ctx context.Context, locationID int) (domain.Forecast, error) {
	return domain.Forecast{}, nil
}
func (stubAuthority) History(ctx context.Context, locationID *int) ([]domain.HistoryEntry, error) {
	return nil, nil
}
func (stubAuthority) Login(ctx context.Context, username, password string) (domain.Session, error) {
	return domain.Session{}, nil
}
func (stubAuthority) UseSession(session domain.Session) {}

func TestServeWSAfterShutdownClosesConnection(t *testing.T) {
	svc := application.NewMonitorService(stubAuthority{}, application.NewStore())
	hub := NewHub(svc)

	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)
	cancel()
	select {
	case <-hub.done:
	case <-time.After(time.Second):
		t.Fatalf("hub did not shut down")
	}

	srv := httptest.NewServer(http.HandlerFunc(hub.ServeWS))
	defer srv.Close()

	// A connection arriving after shutdown must be closed, not parked on a
	// dead register channel.
	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer func() { _ = conn.Close() }()

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Fatalf("expected closed connection")
	} else if ne, ok := err.(net.Error); ok && ne.Timeout() {
		t.Fatalf("connection left open after shutdown")
	}
}
