package rpcjson

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"strings"

	"github.com/atvirokodosprendimai/campuswatch/internal/application"
	"github.com/atvirokodosprendimai/campuswatch/internal/domain"
)

// Server exposes the monitor over a unix domain socket for the local
// operator CLI. JSON-RPC 2.0, newline-delimited, one connection per
// invocation.
type Server struct {
	service   *application.MonitorService
	scheduler *application.Scheduler
	listener  net.Listener
	path      string
}

type request struct {
	JSONRPC string          `json:"jsonrpc"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params"`
	ID      any             `json:"id"`
}

type response struct {
	JSONRPC string    `json:"jsonrpc"`
	Result  any       `json:"result,omitempty"`
	Error   *rpcError `json:"error,omitempty"`
	ID      any       `json:"id"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func Start(path string, service *application.MonitorService, scheduler *application.Scheduler) (*Server, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("rpc socket path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	_ = os.Remove(path)
	ln, err := net.Listen("unix", path)
	if err != nil {
		return nil, err
	}
	if err := os.Chmod(path, 0o600); err != nil {
		_ = ln.Close()
		_ = os.Remove(path)
		return nil, err
	}

	s := &Server{service: service, scheduler: scheduler, listener: ln, path: path}
	go s.serve()
	return s, nil
}

func (s *Server) serve() {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			return
		}
		go s.handleConn(conn)
	}
}

func (s *Server) Close() error {
	err := s.listener.Close()
	_ = os.Remove(s.path)
	return err
}

func (s *Server) handleConn(conn net.Conn) {
	defer func() { _ = conn.Close() }()
	dec := json.NewDecoder(conn)
	enc := json.NewEncoder(conn)

	for {
		var req request
		if err := dec.Decode(&req); err != nil {
			if errors.Is(err, io.EOF) {
				return
			}
			_ = enc.Encode(response{JSONRPC: "2.0", Error: &rpcError{Code: -32700, Message: "parse error"}, ID: nil})
			return
		}

		resp := s.dispatch(context.Background(), req)
		if err := enc.Encode(resp); err != nil {
			return
		}
	}
}

func (s *Server) dispatch(ctx context.Context, req request) response {
	if req.JSONRPC != "2.0" || strings.TrimSpace(req.Method) == "" {
		return response{JSONRPC: "2.0", Error: &rpcError{Code: -32600, Message: "invalid request"}, ID: req.ID}
	}

	switch req.Method {
	case "status.get":
		return result(req.ID, s.service.Snapshot())
	case "report.get":
		return result(req.ID, s.service.Report())
	case "alerts.list":
		return result(req.ID, map[string]any{"alerts": s.service.Alerts()})
	case "location.enter":
		return s.handleCommand(ctx, req, s.service.Enter)
	case "location.exit":
		return s.handleCommand(ctx, req, s.service.Exit)
	case "refresh.force":
		if err := s.scheduler.ForceRefresh(ctx); err != nil {
			return upstreamError(req.ID, err)
		}
		return result(req.ID, s.service.Snapshot())
	case "sim.run":
		if err := s.service.Simulate(ctx); err != nil {
			return upstreamError(req.ID, err)
		}
		if err := s.service.Refresh(ctx); err != nil {
			return upstreamError(req.ID, err)
		}
		return result(req.ID, s.service.Snapshot())
	case "counts.reset":
		if err := s.service.Reset(ctx); err != nil {
			return upstreamError(req.ID, err)
		}
		return result(req.ID, s.service.Snapshot())
	case "auto.enable":
		s.scheduler.EnableAuto()
		return result(req.ID, map[string]any{"auto": true})
	case "auto.disable":
		s.scheduler.DisableAuto()
		return result(req.ID, map[string]any{"auto": false})
	case "scheduler.state":
		return result(req.ID, map[string]any{"state": s.scheduler.State(), "auto": s.scheduler.AutoEnabled()})
	case "forecast.get":
		var p struct {
			LocationID int `json:"location_id"`
		}
		if !decodeParams(req.Params, &p) {
			return invalidParams(req.ID)
		}
		forecast, err := s.service.Forecast(ctx, p.LocationID)
		if err != nil {
			return upstreamError(req.ID, err)
		}
		return result(req.ID, forecast)
	case "history.list":
		var p struct {
			LocationID *int `json:"location_id"`
		}
		if len(req.Params) > 0 && !decodeParams(req.Params, &p) {
			return invalidParams(req.ID)
		}
		logs, err := s.service.History(ctx, p.LocationID)
		if err != nil {
			return upstreamError(req.ID, err)
		}
		return result(req.ID, map[string]any{"logs": logs})
	case "session.login":
		var p struct {
			Username string `json:"username"`
			Password string `json:"password"`
		}
		if !decodeParams(req.Params, &p) {
			return invalidParams(req.ID)
		}
		session, err := s.service.Login(ctx, p.Username, p.Password)
		if err != nil {
			if errors.Is(err, domain.ErrTransport) {
				return upstreamError(req.ID, err)
			}
			return response{JSONRPC: "2.0", Error: &rpcError{Code: 40100, Message: "invalid credentials"}, ID: req.ID}
		}
		return result(req.ID, map[string]any{"token": session.Token})
	case "session.set":
		var p struct {
			Token string `json:"token"`
		}
		if !decodeParams(req.Params, &p) || p.Token == "" {
			return invalidParams(req.ID)
		}
		s.service.SetSession(domain.Session{Token: p.Token})
		return result(req.ID, map[string]any{"ok": true})
	case "session.clear":
		s.service.ClearSession()
		return result(req.ID, map[string]any{"ok": true})
	case "archive.list":
		var p struct {
			Limit int `json:"limit"`
		}
		if len(req.Params) > 0 && !decodeParams(req.Params, &p) {
			return invalidParams(req.ID)
		}
		entries, err := s.service.ArchivedSnapshots(ctx, p.Limit)
		if err != nil {
			return appError(req.ID, err)
		}
		return result(req.ID, map[string]any{"snapshots": entries})
	case "archive.get":
		var p struct {
			ID uint `json:"id"`
		}
		if !decodeParams(req.Params, &p) || p.ID == 0 {
			return invalidParams(req.ID)
		}
		locations, err := s.service.ArchivedSnapshotDetail(ctx, p.ID)
		if err != nil {
			return appError(req.ID, err)
		}
		return result(req.ID, map[string]any{"locations": locations})
	default:
		return response{JSONRPC: "2.0", Error: &rpcError{Code: -32601, Message: "method not found"}, ID: req.ID}
	}
}

func (s *Server) handleCommand(ctx context.Context, req request, command func(context.Context, int) (domain.CommandResult, error)) response {
	var p struct {
		LocationID int `json:"location_id"`
	}
	if !decodeParams(req.Params, &p) {
		return invalidParams(req.ID)
	}
	out, err := command(ctx, p.LocationID)
	switch {
	case errors.Is(err, application.ErrUnknownLocation):
		return response{JSONRPC: "2.0", Error: &rpcError{Code: 40400, Message: err.Error()}, ID: req.ID}
	case errors.Is(err, application.ErrCommandInFlight):
		return response{JSONRPC: "2.0", Error: &rpcError{Code: 40900, Message: err.Error()}, ID: req.ID}
	case err != nil:
		return upstreamError(req.ID, err)
	}
	return result(req.ID, out)
}

func decodeParams(raw json.RawMessage, out any) bool {
	if len(raw) == 0 {
		return false
	}
	return json.Unmarshal(raw, out) == nil
}

func result(id any, payload any) response {
	return response{JSONRPC: "2.0", Result: payload, ID: id}
}

func invalidParams(id any) response {
	return response{JSONRPC: "2.0", Error: &rpcError{Code: -32602, Message: "invalid params"}, ID: id}
}

func appError(id any, err error) response {
	return response{JSONRPC: "2.0", Error: &rpcError{Code: 40000, Message: err.Error()}, ID: id}
}

func upstreamError(id any, err error) response {
	return response{JSONRPC: "2.0", Error: &rpcError{Code: 50200, Message: fmt.Sprintf("authority unreachable: %v", err)}, ID: id}
}
