package main

import (
	"context"
	"net/http"
	"strconv"
)

func doStatus(ctx context.Context, cfg cliConfig, out any) error {
	if cfg.Transport == "uds" {
		return newRPCClient(cfg.Socket).call(ctx, "status.get", nil, out)
	}
	return newAPIClient(cfg.Server).request(ctx, http.MethodGet, "/api/snapshot", nil, out)
}

func doReport(ctx context.Context, cfg cliConfig, out any) error {
	if cfg.Transport == "uds" {
		return newRPCClient(cfg.Socket).call(ctx, "report.get", nil, out)
	}
	return newAPIClient(cfg.Server).request(ctx, http.MethodGet, "/api/report", nil, out)
}

func doAlerts(ctx context.Context, cfg cliConfig, out any) error {
	if cfg.Transport == "uds" {
		return newRPCClient(cfg.Socket).call(ctx, "alerts.list", nil, out)
	}
	return newAPIClient(cfg.Server).request(ctx, http.MethodGet, "/api/alerts", nil, out)
}

func doEnter(ctx context.Context, cfg cliConfig, locationID int, out any) error {
	if cfg.Transport == "uds" {
		return newRPCClient(cfg.Socket).call(ctx, "location.enter", map[string]any{"location_id": locationID}, out)
	}
	return newAPIClient(cfg.Server).request(ctx, http.MethodPost, "/api/locations/"+strconv.Itoa(locationID)+"/enter", nil, out)
}

func doExit(ctx context.Context, cfg cliConfig, locationID int, out any) error {
	if cfg.Transport == "uds" {
		return newRPCClient(cfg.Socket).call(ctx, "location.exit", map[string]any{"location_id": locationID}, out)
	}
	return newAPIClient(cfg.Server).request(ctx, http.MethodPost, "/api/locations/"+strconv.Itoa(locationID)+"/exit", nil, out)
}

func doRefresh(ctx context.Context, cfg cliConfig, out any) error {
	if cfg.Transport == "uds" {
		return newRPCClient(cfg.Socket).call(ctx, "refresh.force", nil, out)
	}
	return newAPIClient(cfg.Server).request(ctx, http.MethodPost, "/api/refresh", nil, out)
}

func doSimulate(ctx context.Context, cfg cliConfig, out any) error {
	if cfg.Transport == "uds" {
		return newRPCClient(cfg.Socket).call(ctx, "sim.run", nil, out)
	}
	return newAPIClient(cfg.Server).request(ctx, http.MethodPost, "/api/simulate", nil, out)
}

func doReset(ctx context.Context, cfg cliConfig, out any) error {
	if cfg.Transport == "uds" {
		return newRPCClient(cfg.Socket).call(ctx, "counts.reset", nil, out)
	}
	return newAPIClient(cfg.Server).request(ctx, http.MethodPost, "/api/reset", nil, out)
}

func doAutoEnable(ctx context.Context, cfg cliConfig) error {
	if cfg.Transport == "uds" {
		return newRPCClient(cfg.Socket).call(ctx, "auto.enable", nil, nil)
	}
	return newAPIClient(cfg.Server).request(ctx, http.MethodPost, "/api/auto/enable", nil, nil)
}

func doAutoDisable(ctx context.Context, cfg cliConfig) error {
	if cfg.Transport == "uds" {
		return newRPCClient(cfg.Socket).call(ctx, "auto.disable", nil, nil)
	}
	return newAPIClient(cfg.Server).request(ctx, http.MethodPost, "/api/auto/disable", nil, nil)
}

func doSchedulerState(ctx context.Context, cfg cliConfig, out any) error {
	if cfg.Transport == "uds" {
		return newRPCClient(cfg.Socket).call(ctx, "scheduler.state", nil, out)
	}
	return newAPIClient(cfg.Server).request(ctx, http.MethodGet, "/api/scheduler", nil, out)
}

func doForecast(ctx context.Context, cfg cliConfig, locationID int, out any) error {
	if cfg.Transport == "uds" {
		return newRPCClient(cfg.Socket).call(ctx, "forecast.get", map[string]any{"location_id": locationID}, out)
	}
	return newAPIClient(cfg.Server).request(ctx, http.MethodGet, "/api/forecast/"+strconv.Itoa(locationID), nil, out)
}

func doHistory(ctx context.Context, cfg cliConfig, locationID *int, out any) error {
	if cfg.Transport == "uds" {
		params := map[string]any{}
		if locationID != nil {
			params["location_id"] = *locationID
		}
		return newRPCClient(cfg.Socket).call(ctx, "history.list", params, out)
	}
	path := "/api/history"
	if locationID != nil {
		path += "?location_id=" + strconv.Itoa(*locationID)
	}
	return newAPIClient(cfg.Server).request(ctx, http.MethodGet, path, nil, out)
}

func doLogin(ctx context.Context, cfg cliConfig, username, password string, out any) error {
	if cfg.Transport == "uds" {
		return newRPCClient(cfg.Socket).call(ctx, "session.login", map[string]any{"username": username, "password": password}, out)
	}
	return newAPIClient(cfg.Server).request(ctx, http.MethodPost, "/api/login", map[string]any{"username": username, "password": password}, out)
}

func doSessionSet(ctx context.Context, cfg cliConfig, token string) error {
	if cfg.Transport == "uds" {
		return newRPCClient(cfg.Socket).call(ctx, "session.set", map[string]any{"token": token}, nil)
	}
	return newAPIClient(cfg.Server).request(ctx, http.MethodPost, "/api/session", map[string]any{"token": token}, nil)
}

func doLogout(ctx context.Context, cfg cliConfig) error {
	if cfg.Transport == "uds" {
		return newRPCClient(cfg.Socket).call(ctx, "session.clear", nil, nil)
	}
	return newAPIClient(cfg.Server).request(ctx, http.MethodDelete, "/api/session", nil, nil)
}

func doArchiveList(ctx context.Context, cfg cliConfig, limit int, out any) error {
	if cfg.Transport == "uds" {
		params := map[string]any{}
		if limit > 0 {
			params["limit"] = limit
		}
		return newRPCClient(cfg.Socket).call(ctx, "archive.list", params, out)
	}
	path := "/api/archive"
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}
	return newAPIClient(cfg.Server).request(ctx, http.MethodGet, path, nil, out)
}

func doArchiveGet(ctx context.Context, cfg cliConfig, snapshotID uint, out any) error {
	if cfg.Transport == "uds" {
		return newRPCClient(cfg.Socket).call(ctx, "archive.get", map[string]any{"id": snapshotID}, out)
	}
	return newAPIClient(cfg.Server).request(ctx, http.MethodGet, "/api/archive/"+strconv.FormatUint(uint64(snapshotID), 10), nil, out)
}
