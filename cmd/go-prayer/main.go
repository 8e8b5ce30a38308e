package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"github.com/joho/godotenv"
	prom "github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"github.com/tartampluch/go-prayer/internal/config"
	"github.com/tartampluch/go-prayer/internal/engine"
	"github.com/tartampluch/go-prayer/internal/metrics"
	"github.com/tartampluch/go-prayer/internal/publish"
	"github.com/tartampluch/go-prayer/internal/server"
	"github.com/tartampluch/go-prayer/internal/settings"
	"github.com/tartampluch/go-prayer/internal/store"
	"github.com/tartampluch/go-prayer/internal/ui"
	"github.com/tartampluch/go-prayer/internal/wake"
)

// options carries the parsed command line.
type options struct {
	headless     bool
	settingsPath string
}

// main is the application entry point.
// It delegates execution to runMain to ensure that deferred function calls
// (like closing log files) are executed before the process terminates.
func main() {
	os.Exit(runMain())
}

// runMain manages the application lifecycle, argument parsing, and exit codes.
func runMain() int {
	// -------------------------------------------------------------------------
	// 1. CLI Argument Parsing
	// -------------------------------------------------------------------------
	showVersion := flag.Bool(config.FlagVersion, false, config.FlagDescVersion)
	debugMode := flag.Bool(config.FlagDebug, false, config.FlagDescDebug)
	headless := flag.Bool(config.FlagHeadless, false, config.FlagDescHeadless)
	settingsPath := flag.String(config.FlagSettings, config.DefaultSettingsFile, config.FlagDescSettings)
	flag.Parse()

	if *showVersion {
		printVersion()
		return config.ExitCodeSuccess
	}

	// -------------------------------------------------------------------------
	// 2. Environment & Logging
	// -------------------------------------------------------------------------
	envErr := godotenv.Load(config.EnvFile)

	logCloser := setupLogging(*debugMode)
	if logCloser != nil {
		defer func() {
			_ = logCloser.Close()
		}()
	}
	if envErr != nil && !errors.Is(envErr, fs.ErrNotExist) {
		slog.Warn(config.MsgEnvSkipped,
			config.LogKeyComponent, config.CompMain,
			config.LogKeyError, envErr)
	}

	// -------------------------------------------------------------------------
	// 3. Context & Signal Handling
	// -------------------------------------------------------------------------
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	opts := options{headless: *headless, settingsPath: *settingsPath}
	logStartupInfo(opts)

	// -------------------------------------------------------------------------
	// 4. Application Logic
	// -------------------------------------------------------------------------
	if err := run(ctx, opts); err != nil {
		slog.Error(config.ErrAppFailed,
			config.LogKeyComponent, config.CompMain,
			config.LogKeyError, err,
		)
		return config.ExitCodeError
	}

	slog.Info(config.MsgAppStop, config.LogKeyComponent, config.CompMain)
	return config.ExitCodeSuccess
}

// services holds the host-independent parts of the application.
type services struct {
	store     *store.SQLiteStore
	wake      *wake.Scheduler
	server    *server.FeedServer
	mqtt      *publish.MQTTRenderer
	refresher *engine.Refresher
	resume    *wake.ResumeDetector
}

func (s *services) close() {
	if err := s.wake.Stop(); err != nil {
		slog.Warn(config.ErrScheduleFailed, config.LogKeyComponent, config.CompMain, config.LogKeyError, err)
	}
	if s.mqtt != nil {
		s.mqtt.Close()
	}
	if err := s.store.Close(); err != nil {
		slog.Warn(config.ErrStoreWrite, config.LogKeyComponent, config.CompMain, config.LogKeyError, err)
	}
}

// buildServices wires storage, provider, metrics, wake-ups and the feed server
// around a refresher whose host-specific fields are filled by the caller.
func buildServices(ctx context.Context, port string) (*services, error) {
	dbPath := os.Getenv(config.EnvDBPath)
	if dbPath == "" {
		dir, err := appDir()
		if err != nil {
			return nil, err
		}
		dbPath = filepath.Join(dir, config.DBFileName)
	}
	st, err := store.Open(ctx, dbPath)
	if err != nil {
		return nil, err
	}

	reg := prom.NewRegistry()
	rec := metrics.NewPrometheusRecorder(reg)

	ws, err := wake.NewScheduler()
	if err != nil {
		_ = st.Close()
		return nil, err
	}
	ws.SetMetrics(rec)

	srv := server.NewFeedServer(port)
	srv.Metrics = metrics.HTTPHandler(reg)

	clock := engine.RealClock{}
	r := &engine.Refresher{
		Clock: clock,
		Cache: &engine.DailyCache{
			Clock:    clock,
			Provider: engine.NewHTTPProvider(os.Getenv(config.EnvProviderURL)),
			Store:    st,
			Metrics:  rec,
		},
		Gate:     &engine.NotificationGate{Store: st},
		Store:    st,
		Wake:     ws,
		Calendar: srv,
		Metrics:  rec,
	}
	srv.State = r
	ws.SetHandler(wake.Dispatch(r))

	svc := &services{
		store:     st,
		wake:      ws,
		server:    srv,
		refresher: r,
		resume:    wake.NewResumeDetector(func() { r.Trigger(engine.TriggerReschedule) }),
	}

	if broker := os.Getenv(config.EnvMQTTBroker); broker != "" {
		m, err := publish.NewMQTTRenderer(broker, os.Getenv(config.EnvMQTTTopic))
		if err != nil {
			// Remote displays are optional; the local surface keeps working.
			slog.Error(config.ErrMQTTConnect,
				config.LogKeyComponent, config.CompMain,
				config.LogKeyBroker, broker,
				config.LogKeyError, err)
		} else {
			svc.mqtt = m
		}
	}
	return svc, nil
}

// renderers returns local plus the MQTT renderer when connected.
func (s *services) renderers(local engine.Renderer) engine.Renderer {
	if s.mqtt == nil {
		return local
	}
	return engine.MultiRenderer{local, s.mqtt}
}

// start launches the background workers on g.
func (s *services) start(ctx context.Context, g *errgroup.Group, onServerErr func(error) error) {
	s.wake.Start()
	g.Go(func() error {
		if err := s.server.Start(ctx); err != nil {
			return onServerErr(err)
		}
		return nil
	})
	g.Go(func() error {
		s.refresher.Run(ctx)
		return nil
	})
	g.Go(func() error {
		s.resume.Run(ctx)
		return nil
	})
	s.refresher.Trigger(engine.TriggerRefresh)
}

func run(ctx context.Context, opts options) error {
	if opts.headless {
		return runHeadless(ctx, opts)
	}
	return runTray(ctx)
}

// runHeadless serves the feed and logs each rendered state, reading settings
// from a YAML file that is watched for changes.
func runHeadless(ctx context.Context, opts options) error {
	src, err := settings.NewFileSource(opts.settingsPath)
	if err != nil {
		return err
	}

	port := os.Getenv(config.EnvPort)
	if port == "" {
		port = config.DefaultPort
	}
	svc, err := buildServices(ctx, port)
	if err != nil {
		return err
	}
	defer svc.close()

	r := svc.refresher
	r.Settings = src
	r.Cache.Settings = src
	r.Renderer = svc.renderers(publish.NewLogRenderer(slog.Default()))
	r.Notifier = &publish.LogNotifier{}

	g, gctx := errgroup.WithContext(ctx)
	svc.start(gctx, g, func(err error) error { return err })

	watcher := settings.NewWatcher(src, func() { r.Trigger(engine.TriggerSettings) })
	g.Go(func() error { return watcher.Run(gctx) })

	return g.Wait()
}

// runTray initializes the Fyne application, wires dependencies, and starts the UI loop.
func runTray(ctx context.Context) error {
	a := app.NewWithID(config.AppID)
	a.Preferences().SetString(config.PrefLastRun, config.Version)

	port := os.Getenv(config.EnvPort)
	if port == "" {
		port = a.Preferences().StringWithFallback(config.PrefServerPort, config.DefaultPort)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	svc, err := buildServices(ctx, port)
	if err != nil {
		return err
	}
	defer svc.close()

	gui := ui.NewPrayerApp(a, ctx)
	gui.SetupI18n()

	src := gui.Source
	r := svc.refresher
	r.Settings = src
	r.Cache.Settings = src
	r.Renderer = svc.renderers(gui)
	r.Notifier = gui
	r.Labels = gui.Labels()
	gui.Attach(r)

	g, gctx := errgroup.WithContext(ctx)
	svc.start(gctx, g, func(err error) error {
		// The tray keeps working without the feed.
		slog.Error(config.ErrServerStartup,
			config.LogKeyComponent, config.CompMain,
			config.LogKeyPort, port,
			config.LogKeyError, err)
		a.SendNotification(fyne.NewNotification(config.AppName, err.Error()))
		return nil
	})

	// Lifecycle Bridge: quit the UI when the context is cancelled.
	go func() {
		<-ctx.Done()
		slog.Info(config.MsgCtxCancel, config.LogKeyComponent, config.CompMain)
		fyne.Do(a.Quit)
	}()

	// Blocks until the user quits from the tray.
	gui.Run()

	cancel()
	return g.Wait()
}

// printVersion outputs the build information to stdout.
func printVersion() {
	fmt.Printf(config.MsgVersionOutput,
		config.AppName,
		config.Version,
		runtime.GOOS,
		runtime.GOARCH,
	)
}

// logStartupInfo logs environment details useful for debugging.
func logStartupInfo(opts options) {
	mode := config.ModeTray
	if opts.headless {
		mode = config.ModeHeadless
	}
	slog.Info(config.MsgAppStarting,
		config.LogKeyComponent, config.CompMain,
		config.LogKeyMode, mode,
		slog.Group(config.LogKeyBuild,
			slog.String(config.LogKeyApp, config.AppName),
			slog.String(config.LogKeyVersion, config.Version),
			slog.String(config.LogKeyCommit, config.Commit),
			slog.String(config.LogKeyBuilt, config.Date),
			slog.String(config.LogKeyGoVer, runtime.Version()),
		),
		slog.Group(config.LogKeyEnv,
			slog.String(config.LogKeyOS, runtime.GOOS),
			slog.String(config.LogKeyArch, runtime.GOARCH),
			slog.Int(config.LogKeyPID, os.Getpid()),
		),
	)
}

// setupLogging configures the default slog logger.
func setupLogging(debugMode bool) io.Closer {
	writers := []io.Writer{os.Stdout}
	var logFile *os.File

	if dir, err := appDir(); err == nil {
		logPath := filepath.Join(dir, config.LogFileName)
		// O_TRUNC resets logs on restart to prevent indefinite growth.
		f, err := os.OpenFile(logPath, os.O_TRUNC|os.O_CREATE|os.O_WRONLY, config.FilePermUserRW)
		if err == nil {
			writers = append(writers, f)
			logFile = f
		} else {
			fmt.Fprintf(os.Stderr, config.MsgLogWarning, config.ErrLogFile, logPath, err)
		}
	}

	level := slog.LevelInfo
	if debugMode {
		level = slog.LevelDebug
	}

	logger := slog.New(slog.NewJSONHandler(io.MultiWriter(writers...), &slog.HandlerOptions{
		Level:     level,
		AddSource: debugMode,
	}))
	slog.SetDefault(logger)

	if logFile == nil {
		return nil
	}
	return logFile
}

// appDir returns the per-user cache directory holding logs and the database.
func appDir() (string, error) {
	cacheDir, err := os.UserCacheDir()
	if err != nil {
		return "", fmt.Errorf("%s: %w", config.ErrCacheDir, err)
	}

	dir := filepath.Join(cacheDir, config.AppID)
	if err := os.MkdirAll(dir, config.DirPermUserRWX); err != nil {
		return "", fmt.Errorf("%s: %w", config.ErrCreateDir, err)
	}
	return dir, nil
}
