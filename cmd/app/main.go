package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	backendadapter "github.com/atvirokodosprendimai/campuswatch/internal/adapters/backend"
	sqliteadapter "github.com/atvirokodosprendimai/campuswatch/internal/adapters/db/sqlite"
	httpadapter "github.com/atvirokodosprendimai/campuswatch/internal/adapters/http"
	rpcadapter "github.com/atvirokodosprendimai/campuswatch/internal/adapters/rpcjson"
	wsadapter "github.com/atvirokodosprendimai/campuswatch/internal/adapters/ws"
	"github.com/atvirokodosprendimai/campuswatch/internal/application"
	"github.com/atvirokodosprendimai/campuswatch/internal/config"
	"github.com/atvirokodosprendimai/campuswatch/internal/domain"
	"github.com/urfave/cli/v3"
)

func main() {
	args := os.Args
	if len(args) == 1 {
		args = append(args, "--help")
	}

	root := &cli.Command{
		Name:  "campuswatch",
		Usage: "Campus occupancy monitoring daemon and CLI",
		Commands: []*cli.Command{
			serveCommand(),
			statusCommand(),
			reportCommand(),
			alertsCommand(),
			enterCommand(),
			exitCommand(),
			refreshCommand(),
			simulateCommand(),
			resetCommand(),
			autoCommand(),
			forecastCommand(),
			historyCommand(),
			sessionCommand(),
			archiveCommand(),
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			return runServer(ctx, cfg, true)
		},
	}

	if err := root.Run(context.Background(), args); err != nil {
		log.Fatal(err)
	}
}

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the monitoring daemon",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "addr", Usage: "HTTP listen address"},
			&cli.StringFlag{Name: "rpc-socket", Usage: "JSON-RPC unix socket path"},
			&cli.StringFlag{Name: "backend", Usage: "occupancy backend base URL"},
			&cli.DurationFlag{Name: "poll", Usage: "auto-refresh interval"},
			&cli.StringFlag{Name: "archive-db", Usage: "SQLite snapshot archive path (empty disables archiving)"},
			&cli.StringFlag{Name: "alert-source", Usage: "alert source: local or backend"},
			&cli.BoolFlag{Name: "auto", Value: true, Usage: "start automatic polling immediately"},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if c.IsSet("addr") {
				cfg.ListenAddr = c.String("addr")
			}
			if c.IsSet("rpc-socket") {
				cfg.RPCSocket = c.String("rpc-socket")
			}
			if c.IsSet("backend") {
				cfg.BackendURL = c.String("backend")
			}
			if c.IsSet("poll") {
				cfg.PollInterval = c.Duration("poll")
			}
			if c.IsSet("archive-db") {
				cfg.ArchiveDBPath = c.String("archive-db")
			}
			if c.IsSet("alert-source") {
				switch src := config.AlertSource(c.String("alert-source")); src {
				case config.AlertSourceLocal, config.AlertSourceBackend:
					cfg.AlertSource = src
				default:
					return fmt.Errorf("invalid alert source %q (want local or backend)", src)
				}
			}
			return runServer(ctx, cfg, c.Bool("auto"))
		},
	}
}

func runServer(ctx context.Context, cfg config.Config, autoStart bool) error {
	authority := backendadapter.New(cfg.BackendURL, cfg.RequestTimeout)
	service := application.NewMonitorService(authority, application.NewStore()).
		WithBackendAlerts(cfg.AlertSource == config.AlertSourceBackend)

	if cfg.ArchiveDBPath != "" {
		db, err := sqliteadapter.Open(cfg.ArchiveDBPath)
		if err != nil {
			return err
		}
		if err := sqliteadapter.RunMigrations(ctx, db); err != nil {
			return err
		}
		service = service.WithArchive(sqliteadapter.NewArchiveRepository(db))
		log.Printf("snapshot archive at %s", cfg.ArchiveDBPath)
	}

	scheduler := application.NewScheduler(service, cfg.PollInterval)

	hub := wsadapter.NewHub(service)
	hubCtx, stopHub := context.WithCancel(ctx)
	defer stopHub()
	go hub.Run(hubCtx)

	// An unreachable backend is not fatal; the daemon starts offline and
	// the scheduler keeps retrying.
	if err := service.Refresh(ctx); err != nil {
		log.Printf("initial refresh failed, starting offline: %v", err)
	}
	if autoStart {
		scheduler.EnableAuto()
	}

	router := httpadapter.NewRouter(service, scheduler, hub.ServeWS)
	srv := &http.Server{Addr: cfg.ListenAddr, Handler: router, ReadHeaderTimeout: 5 * time.Second}
	rpcSrv, err := rpcadapter.Start(cfg.RPCSocket, service, scheduler)
	if err != nil {
		return err
	}

	defer func() {
		_ = rpcSrv.Close()
	}()
	log.Printf("json-rpc listening on unix://%s", cfg.RPCSocket)

	errCh := make(chan error, 1)
	go func() {
		log.Printf("server listening on %s (backend %s, poll %s)", srv.Addr, cfg.BackendURL, cfg.PollInterval)
		errCh <- srv.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Printf("received signal %s, shutting down", sig)
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return err
		}
	}

	scheduler.DisableAuto()
	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func statusCommand() *cli.Command {
	return &cli.Command{
		Name:  "status",
		Usage: "Show the current campus roster",
		Flags: []cli.Flag{&cli.BoolFlag{Name: "json", Usage: "output raw JSON"}},
		Action: func(ctx context.Context, c *cli.Command) error {
			cfg, err := loadCLIConfig()
			if err != nil {
				return err
			}
			var out domain.Snapshot
			if err := doStatus(ctx, cfg, &out); err != nil {
				return err
			}
			if c.Bool("json") {
				return printJSON(out)
			}
			printSnapshot(out)
			return nil
		},
	}
}

func reportCommand() *cli.Command {
	return &cli.Command{
		Name:  "report",
		Usage: "Show the campus-wide aggregate report",
		Flags: []cli.Flag{&cli.BoolFlag{Name: "json", Usage: "output raw JSON"}},
		Action: func(ctx context.Context, c *cli.Command) error {
			cfg, err := loadCLIConfig()
			if err != nil {
				return err
			}
			var out domain.CampusReport
			if err := doReport(ctx, cfg, &out); err != nil {
				return err
			}
			if c.Bool("json") {
				return printJSON(out)
			}
			printReport(out)
			return nil
		},
	}
}

func alertsCommand() *cli.Command {
	return &cli.Command{
		Name:  "alerts",
		Usage: "List active alerts",
		Flags: []cli.Flag{&cli.BoolFlag{Name: "json", Usage: "output raw JSON"}},
		Action: func(ctx context.Context, c *cli.Command) error {
			cfg, err := loadCLIConfig()
			if err != nil {
				return err
			}
			var out struct {
				Alerts []domain.Alert `json:"alerts"`
			}
			if err := doAlerts(ctx, cfg, &out); err != nil {
				return err
			}
			if c.Bool("json") {
				return printJSON(out.Alerts)
			}
			printAlerts(out.Alerts)
			return nil
		},
	}
}

func enterCommand() *cli.Command {
	return &cli.Command{
		Name:  "enter",
		Usage: "Record one person entering a location",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "location", Required: true, Usage: "location id"},
			&cli.BoolFlag{Name: "json", Usage: "output raw JSON"},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			cfg, err := loadCLIConfig()
			if err != nil {
				return err
			}
			var out domain.CommandResult
			if err := doEnter(ctx, cfg, c.Int("location"), &out); err != nil {
				return err
			}
			if c.Bool("json") {
				return printJSON(out)
			}
			printCommandResult(out)
			return nil
		},
	}
}

func exitCommand() *cli.Command {
	return &cli.Command{
		Name:  "exit",
		Usage: "Record one person leaving a location",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "location", Required: true, Usage: "location id"},
			&cli.BoolFlag{Name: "json", Usage: "output raw JSON"},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			cfg, err := loadCLIConfig()
			if err != nil {
				return err
			}
			var out domain.CommandResult
			if err := doExit(ctx, cfg, c.Int("location"), &out); err != nil {
				return err
			}
			if c.Bool("json") {
				return printJSON(out)
			}
			printCommandResult(out)
			return nil
		},
	}
}

func refreshCommand() *cli.Command {
	return &cli.Command{
		Name:  "refresh",
		Usage: "Force an immediate backend sync",
		Flags: []cli.Flag{&cli.BoolFlag{Name: "json", Usage: "output raw JSON"}},
		Action: func(ctx context.Context, c *cli.Command) error {
			cfg, err := loadCLIConfig()
			if err != nil {
				return err
			}
			var out domain.Snapshot
			if err := doRefresh(ctx, cfg, &out); err != nil {
				return err
			}
			if c.Bool("json") {
				return printJSON(out)
			}
			printSnapshot(out)
			return nil
		},
	}
}

func simulateCommand() *cli.Command {
	return &cli.Command{
		Name:  "simulate",
		Usage: "Run one backend crowd simulation step and re-sync",
		Flags: []cli.Flag{&cli.BoolFlag{Name: "json", Usage: "output raw JSON"}},
		Action: func(ctx context.Context, c *cli.Command) error {
			cfg, err := loadCLIConfig()
			if err != nil {
				return err
			}
			var out domain.Snapshot
			if err := doSimulate(ctx, cfg, &out); err != nil {
				return err
			}
			if c.Bool("json") {
				return printJSON(out)
			}
			printSnapshot(out)
			return nil
		},
	}
}

func resetCommand() *cli.Command {
	return &cli.Command{
		Name:  "reset",
		Usage: "Zero every location counter on the backend",
		Flags: []cli.Flag{&cli.BoolFlag{Name: "json", Usage: "output raw JSON"}},
		Action: func(ctx context.Context, c *cli.Command) error {
			cfg, err := loadCLIConfig()
			if err != nil {
				return err
			}
			var out domain.Snapshot
			if err := doReset(ctx, cfg, &out); err != nil {
				return err
			}
			if c.Bool("json") {
				return printJSON(out)
			}
			printSnapshot(out)
			return nil
		},
	}
}

func autoCommand() *cli.Command {
	return &cli.Command{
		Name:  "auto",
		Usage: "Control automatic polling",
		Commands: []*cli.Command{
			{
				Name:  "on",
				Usage: "Enable automatic polling",
				Action: func(ctx context.Context, c *cli.Command) error {
					cfg, err := loadCLIConfig()
					if err != nil {
						return err
					}
					if err := doAutoEnable(ctx, cfg); err != nil {
						return err
					}
					fmt.Println("auto polling enabled")
					return nil
				},
			},
			{
				Name:  "off",
				Usage: "Disable automatic polling",
				Action: func(ctx context.Context, c *cli.Command) error {
					cfg, err := loadCLIConfig()
					if err != nil {
						return err
					}
					if err := doAutoDisable(ctx, cfg); err != nil {
						return err
					}
					fmt.Println("auto polling disabled")
					return nil
				},
			},
			{
				Name:  "state",
				Usage: "Show scheduler state",
				Flags: []cli.Flag{&cli.BoolFlag{Name: "json", Usage: "output raw JSON"}},
				Action: func(ctx context.Context, c *cli.Command) error {
					cfg, err := loadCLIConfig()
					if err != nil {
						return err
					}
					var out struct {
						State string `json:"state"`
						Auto  bool   `json:"auto"`
					}
					if err := doSchedulerState(ctx, cfg, &out); err != nil {
						return err
					}
					if c.Bool("json") {
						return printJSON(out)
					}
					printKV([][2]string{{"state", out.State}, {"auto", fmt.Sprintf("%t", out.Auto)}})
					return nil
				},
			},
		},
	}
}

func forecastCommand() *cli.Command {
	return &cli.Command{
		Name:  "forecast",
		Usage: "Show predicted crowd levels for a location",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "location", Required: true, Usage: "location id"},
			&cli.BoolFlag{Name: "json", Usage: "output raw JSON"},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			cfg, err := loadCLIConfig()
			if err != nil {
				return err
			}
			var out domain.Forecast
			if err := doForecast(ctx, cfg, c.Int("location"), &out); err != nil {
				return err
			}
			if c.Bool("json") {
				return printJSON(out)
			}
			printForecast(out)
			return nil
		},
	}
}

func historyCommand() *cli.Command {
	return &cli.Command{
		Name:  "history",
		Usage: "Show the recent entry/exit log",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "location", Usage: "narrow to one location id"},
			&cli.BoolFlag{Name: "json", Usage: "output raw JSON"},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			cfg, err := loadCLIConfig()
			if err != nil {
				return err
			}
			var locationID *int
			if c.IsSet("location") {
				v := c.Int("location")
				locationID = &v
			}
			var out struct {
				Logs []domain.HistoryEntry `json:"logs"`
			}
			if err := doHistory(ctx, cfg, locationID, &out); err != nil {
				return err
			}
			if c.Bool("json") {
				return printJSON(out.Logs)
			}
			printHistory(out.Logs)
			return nil
		},
	}
}

func sessionCommand() *cli.Command {
	return &cli.Command{
		Name:  "session",
		Usage: "Manage the daemon's backend session",
		Commands: []*cli.Command{
			{
				Name:  "login",
				Usage: "Login against the backend and store the token",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "username", Required: true},
					&cli.StringFlag{Name: "password", Required: true},
				},
				Action: func(ctx context.Context, c *cli.Command) error {
					cfg, err := loadCLIConfig()
					if err != nil {
						return err
					}
					var out struct {
						Token string `json:"token"`
					}
					if err := doLogin(ctx, cfg, c.String("username"), c.String("password"), &out); err != nil {
						return err
					}
					cfg.Token = out.Token
					if err := saveCLIConfig(cfg); err != nil {
						return err
					}
					fmt.Printf("logged in as %s\n", c.String("username"))
					return nil
				},
			},
			{
				Name:  "restore",
				Usage: "Push the locally stored token back to the daemon",
				Action: func(ctx context.Context, c *cli.Command) error {
					cfg, err := loadCLIConfig()
					if err != nil {
						return err
					}
					if cfg.Token == "" {
						return fmt.Errorf("no stored token; run session login first")
					}
					if err := doSessionSet(ctx, cfg, cfg.Token); err != nil {
						return err
					}
					fmt.Println("session restored")
					return nil
				},
			},
			{
				Name:  "logout",
				Usage: "Clear the session on the daemon and locally",
				Action: func(ctx context.Context, c *cli.Command) error {
					cfg, err := loadCLIConfig()
					if err != nil {
						return err
					}
					_ = doLogout(ctx, cfg)
					cfg.Token = ""
					if err := saveCLIConfig(cfg); err != nil {
						return err
					}
					fmt.Println("logged out")
					return nil
				},
			},
		},
	}
}

func archiveCommand() *cli.Command {
	return &cli.Command{
		Name:  "archive",
		Usage: "Inspect locally archived snapshots",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "limit", Value: 20, Usage: "max rows"},
			&cli.UintFlag{Name: "id", Usage: "show one archived snapshot's locations"},
			&cli.BoolFlag{Name: "json", Usage: "output raw JSON"},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			cfg, err := loadCLIConfig()
			if err != nil {
				return err
			}
			if c.IsSet("id") {
				var out struct {
					Locations []domain.Location `json:"locations"`
				}
				if err := doArchiveGet(ctx, cfg, c.Uint("id"), &out); err != nil {
					return err
				}
				if c.Bool("json") {
					return printJSON(out.Locations)
				}
				printLocations(out.Locations)
				return nil
			}
			var out struct {
				Snapshots []domain.ArchiveEntry `json:"snapshots"`
			}
			if err := doArchiveList(ctx, cfg, c.Int("limit"), &out); err != nil {
				return err
			}
			if c.Bool("json") {
				return printJSON(out.Snapshots)
			}
			printArchiveEntries(out.Snapshots)
			return nil
		},
	}
}

func jsonMarshal(v any) ([]byte, error) {
	return json.MarshalIndent(v, "", "  ")
}
