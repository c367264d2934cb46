package daemon

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/harun/rudder/internal/config"
	"github.com/harun/rudder/internal/logger"
	"github.com/harun/rudder/internal/observability"
	"github.com/harun/rudder/internal/tracing"
	"github.com/harun/rudder/pkg/actions"
	"github.com/harun/rudder/pkg/browser"
	"github.com/harun/rudder/pkg/executor"
	"github.com/harun/rudder/pkg/gateway"
	"github.com/harun/rudder/pkg/history"
	"github.com/harun/rudder/pkg/scenario"
	"github.com/harun/rudder/pkg/schedule"
)

const serviceVersion = "0.1.0"

// prunePeriod is how often the history retention policy is applied.
const prunePeriod = time.Hour

// Daemon is the long-running rudder service. It owns the browser session,
// the command executor that serializes access to it, and the services that
// feed work into the executor: the gateway, the scheduler and the scenario
// runner.
type Daemon struct {
	config *config.Config
	logger *logger.Logger

	// Core modules
	session   *browser.Session
	executor  *executor.Executor
	actions   *actions.Runner
	loader    *scenario.Loader
	scenarios *scenario.Runner

	// Services
	historyStore *history.Store
	scheduler    *schedule.Service
	gateway      *gateway.Server

	// Internal
	lifecycle *LifecycleManager

	// Run and scheduler events are forwarded onto the gateway's event
	// stream; the target is bound after the gateway exists.
	forwardMu       sync.RWMutex
	scenarioForward scenario.EventSink
	scheduleForward func(evt schedule.Event)

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	startTime time.Time
	running   bool
	mu        sync.RWMutex

	tracingEnabled bool
}

// New creates a new daemon instance
func New(cfg *config.Config, log *logger.Logger) (*Daemon, error) {
	config.ApplyDerivedDefaults(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	observability.EnsureRegistered()
	tracingEnabled := true
	if err := tracing.InitOpenTelemetry("rudder-daemon", serviceVersion); err != nil {
		log.Warn().Err(err).Msg("Failed to initialize tracing, continuing without distributed tracing")
		tracingEnabled = false
	}

	d := &Daemon{
		config:         cfg,
		logger:         log,
		ctx:            ctx,
		cancel:         cancel,
		tracingEnabled: tracingEnabled,
	}

	// Initialize core modules in dependency order
	if err := d.initializeCoreModules(); err != nil {
		cancel()
		d.shutdownTracing()
		return nil, fmt.Errorf("failed to initialize core modules: %w", err)
	}

	// Initialize services
	if err := d.initializeServices(); err != nil {
		cancel()
		d.closeCoreModules()
		d.shutdownTracing()
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	d.lifecycle = NewLifecycleManager(d)

	return d, nil
}

// initializeCoreModules builds the browser session, the executor and the
// runners on top of it. The browser process itself is only launched when the
// first open command executes.
func (d *Daemon) initializeCoreModules() error {
	auditPath := filepath.Join(d.config.DataDir, "audit.log")
	if err := observability.InitAuditLogger(auditPath); err != nil {
		d.logger.Warn().Err(err).Msg("Failed to initialize audit logger, using default stderr")
	} else {
		d.logger.Info().Str("path", auditPath).Msg("Audit logger initialized")
	}

	policy := browser.NewSecurityPolicy(browser.SecurityPolicyConfig{
		AllowFileURLs:  d.config.Browser.AllowFileURLs,
		AllowLocalhost: d.config.Browser.AllowLocalhost,
		AllowedDomains: d.config.Browser.AllowedDomains,
		BlockedDomains: d.config.Browser.BlockedDomains,
	})
	d.session = browser.NewSession(policy, browser.Defaults{
		Headless:          d.config.Browser.Headless,
		ExecPath:          d.config.Browser.ExecPath,
		Timeout:           time.Duration(d.config.Browser.DefaultTimeoutMs) * time.Millisecond,
		NavigationTimeout: time.Duration(d.config.Browser.NavigationTimeoutMs) * time.Millisecond,
	})
	d.logger.Info().Bool("headless", d.config.Browser.Headless).Msg("Browser session initialized")

	d.executor = executor.New(d.session)
	d.logger.Info().Msg("Command executor initialized")

	actionRunner, err := actions.NewRunner(d.executor, d.session, nil)
	if err != nil {
		return fmt.Errorf("failed to create action runner: %w", err)
	}
	d.actions = actionRunner
	d.logger.Info().Msg("Action runner initialized")

	d.loader = scenario.NewLoader(d.logger.GetZerolog())

	var sinks []scenario.EventSink
	if d.config.History.Enabled {
		store, err := history.NewStore(history.Config{
			DBPath: d.config.History.Path,
			Logger: d.logger.GetZerolog(),
			MaxAge: time.Duration(d.config.History.RetentionDays) * 24 * time.Hour,
		})
		if err != nil {
			return fmt.Errorf("failed to open history store: %w", err)
		}
		d.historyStore = store
		sinks = append(sinks, history.NewRecorder(store, d.logger.GetZerolog()))
		d.logger.Info().Str("path", d.config.History.Path).Msg("History store initialized")
	}
	sinks = append(sinks, d)

	d.scenarios = scenario.NewRunner(d.actions, sinks...)
	d.logger.Info().Msg("Scenario runner initialized")

	return nil
}

// initializeServices builds the scheduler and the gateway. The scheduler
// arms its timers on construction, like the executor starts its worker, so
// persisted jobs are live as soon as New returns.
func (d *Daemon) initializeServices() error {
	if d.config.Schedule.Enabled {
		svc, err := schedule.NewService(schedule.Options{
			StorePath: d.config.Schedule.Path,
			Run:       d.runScheduledJob,
			OnEvent:   d.forwardScheduleEvent,
		})
		if err != nil {
			return fmt.Errorf("failed to create scheduler: %w", err)
		}
		d.scheduler = svc
		d.logger.Info().Str("path", d.config.Schedule.Path).Msg("Scheduler initialized")
	}

	if d.config.Gateway.Enabled {
		srv, err := gateway.NewServer(gateway.Config{
			Host:         d.config.Gateway.Host,
			Port:         d.config.Gateway.Port,
			SharedSecret: d.config.Gateway.SharedSecret,
			Actions:      d.actions,
			Scenarios:    d.scenarios,
			Loader:       d.loader,
			Executor:     d.executor,
			History:      d.historyStore,
			Scheduler:    d.scheduler,
			Logger:       d.logger.GetZerolog(),
		})
		if err != nil {
			return fmt.Errorf("failed to create gateway server: %w", err)
		}
		d.gateway = srv
		d.bindGatewayForwarders()

		// Daemon state is not known to the gateway at construction, so the
		// status method is registered late, closing over the daemon.
		if err := srv.RegisterMethod("daemon.status", func(ctx context.Context, params map[string]interface{}) (interface{}, error) {
			st := d.Status()
			return map[string]interface{}{
				"running":           st.Running,
				"uptime_ms":         st.Uptime.Milliseconds(),
				"queue_depth":       st.QueueDepth,
				"busy":              st.Busy,
				"browser_open":      st.BrowserOpen,
				"connected_clients": st.ConnectedClients,
			}, nil
		}); err != nil {
			return fmt.Errorf("failed to register daemon.status method: %w", err)
		}

		d.logger.Info().
			Str("host", d.config.Gateway.Host).
			Int("port", d.config.Gateway.Port).
			Msg("Gateway server initialized")
	}

	return nil
}

// closeCoreModules releases what initializeCoreModules opened. Used when
// service initialization fails after the core came up.
func (d *Daemon) closeCoreModules() {
	if d.executor != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		_ = d.executor.Shutdown(shutdownCtx)
		cancel()
	}
	if d.historyStore != nil {
		_ = d.historyStore.Close()
	}
}

func (d *Daemon) shutdownTracing() {
	if !d.tracingEnabled {
		return
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	if err := tracing.ShutdownOpenTelemetry(shutdownCtx); err != nil {
		d.logger.Error().Err(err).Msg("Failed to shutdown tracing")
	}
	cancel()
	d.tracingEnabled = false
}

// bindGatewayForwarders points the run and scheduler event forwarders at the
// gateway's broadcaster.
func (d *Daemon) bindGatewayForwarders() {
	d.forwardMu.Lock()
	d.scenarioForward = gateway.NewScenarioSink(d.gateway.Broadcaster())
	d.scheduleForward = gateway.ScheduleEvents(d.gateway.Broadcaster())
	d.forwardMu.Unlock()
}

// ScenarioEvent implements scenario.EventSink. Run events reach connected
// gateway clients; without a gateway they go nowhere.
func (d *Daemon) ScenarioEvent(event scenario.Event) {
	d.forwardMu.RLock()
	sink := d.scenarioForward
	d.forwardMu.RUnlock()
	if sink != nil {
		sink.ScenarioEvent(event)
	}
}

func (d *Daemon) forwardScheduleEvent(evt schedule.Event) {
	d.forwardMu.RLock()
	forward := d.scheduleForward
	d.forwardMu.RUnlock()
	if forward != nil {
		forward(evt)
	}
}

// runScheduledJob is the scheduler's Run callback. It loads the job's
// scenario, overlays the job context and runs it through the shared
// executor queue like any other run.
func (d *Daemon) runScheduledJob(job *schedule.Job) error {
	path := d.resolveScenarioPath(job.Scenario)

	sc, err := d.loader.Load(path)
	if err != nil {
		return fmt.Errorf("failed to load scenario for job %s: %w", job.ID, err)
	}

	if len(job.Context) > 0 {
		merged := make(map[string]string, len(sc.Context)+len(job.Context))
		for k, v := range sc.Context {
			merged[k] = v
		}
		for k, v := range job.Context {
			merged[k] = v
		}
		sc.Context = merged
	}

	d.logger.Info().
		Str("jobId", job.ID).
		Str("scenario", sc.Name).
		Msg("Running scheduled scenario")

	// Tag the run so its log lines carry the job that fired it.
	ctx := tracing.WithScenarioID(d.ctx, job.ID)
	_, err = d.scenarios.Run(ctx, sc)
	return err
}

// resolveScenarioPath resolves a job's scenario reference. Relative paths
// that do not exist as given are looked up under the scenarios directory.
func (d *Daemon) resolveScenarioPath(path string) string {
	if filepath.IsAbs(path) || d.config.Scenarios.Dir == "" {
		return path
	}
	if _, err := os.Stat(path); err == nil {
		return path
	}
	return filepath.Join(d.config.Scenarios.Dir, path)
}

// Start starts the daemon service
func (d *Daemon) Start() error {
	d.mu.Lock()
	if d.running {
		d.mu.Unlock()
		return fmt.Errorf("daemon is already running")
	}
	d.running = true
	d.startTime = time.Now()
	d.mu.Unlock()

	traceID := tracing.NewTraceID()
	logger := d.logger.GetZerolog().With().Str("trace_id", traceID).Logger()
	logger.Info().Str("version", serviceVersion).Msg("Starting rudder daemon")

	// Start lifecycle manager
	if err := d.lifecycle.Start(); err != nil {
		return fmt.Errorf("failed to start lifecycle manager: %w", err)
	}

	// Start gateway server
	if d.gateway != nil {
		if err := d.gateway.Start(); err != nil {
			return fmt.Errorf("failed to start gateway server: %w", err)
		}
		logger.Info().Msg("Gateway server started")
	}

	// Start history retention loop
	if d.historyStore != nil {
		d.wg.Add(1)
		go func() {
			defer d.wg.Done()
			d.pruneLoop()
		}()
	}

	logger.Info().Msg("Daemon started successfully")

	return nil
}

// Stop stops the daemon service gracefully
func (d *Daemon) Stop() error {
	d.mu.Lock()
	if !d.running {
		d.mu.Unlock()
		return fmt.Errorf("daemon is not running")
	}
	d.running = false
	uptime := time.Since(d.startTime)
	d.mu.Unlock()

	traceID := tracing.NewTraceID()
	logger := d.logger.GetZerolog().With().Str("trace_id", traceID).Logger()
	logger.Info().Msg("Stopping rudder daemon")

	// Stop intake first so nothing new reaches the executor. Clients get a
	// lifecycle event before the gateway starts draining.
	if d.gateway != nil {
		d.gateway.BroadcastTyped(gateway.EventMessage{
			Event:  "daemon.stopping",
			Stream: gateway.StreamTypeLifecycle,
			Phase:  "stopping",
			Data:   map[string]interface{}{"uptime_ms": uptime.Milliseconds()},
		})
		if err := d.gateway.Stop(); err != nil {
			logger.Error().Err(err).Msg("Failed to stop gateway server")
		}
	}

	if d.scheduler != nil {
		if err := d.scheduler.Stop(); err != nil {
			logger.Error().Err(err).Msg("Failed to stop scheduler")
		}
	}

	// Cancel context
	d.cancel()

	// Drain queued commands and close the browser.
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 30*time.Second)
	if err := d.executor.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("Failed to shutdown executor")
	}
	cancelShutdown()

	// Wait for goroutines to finish (with timeout)
	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		logger.Info().Msg("All goroutines stopped")
	case <-time.After(5 * time.Second):
		logger.Warn().Msg("Timeout waiting for goroutines to stop")
	}

	if d.historyStore != nil {
		if err := d.historyStore.Close(); err != nil {
			logger.Error().Err(err).Msg("Failed to close history store")
		}
	}

	d.shutdownTracing()

	if err := observability.GetAuditLogger().Close(); err != nil {
		logger.Error().Err(err).Msg("Failed to close audit logger")
	}

	// Stop lifecycle manager
	if err := d.lifecycle.Stop(); err != nil {
		logger.Error().Err(err).Msg("Failed to stop lifecycle manager")
	}

	logger.Info().Msg("Daemon stopped successfully")

	return nil
}

// pruneLoop applies the history retention policy on an interval, so the
// store does not grow without bound between restarts.
func (d *Daemon) pruneLoop() {
	ticker := time.NewTicker(prunePeriod)
	defer ticker.Stop()

	for {
		select {
		case <-d.ctx.Done():
			return
		case <-ticker.C:
			pruned, err := d.historyStore.Prune(d.ctx)
			if err != nil {
				d.logger.Error().Err(err).Msg("History prune failed")
				continue
			}
			if pruned > 0 {
				d.logger.Info().Int("runs", pruned).Msg("Pruned run history")
			}
		}
	}
}

// Status returns the daemon status
func (d *Daemon) Status() Status {
	d.mu.RLock()
	defer d.mu.RUnlock()

	status := Status{
		Running: d.running,
	}

	if d.running {
		status.Uptime = time.Since(d.startTime)
		status.StartTime = d.startTime
		status.QueueDepth = d.executor.Depth()
		status.Busy = d.executor.Busy()
		status.BrowserOpen = d.session.IsOpen()
		if d.gateway != nil {
			status.ConnectedClients = len(d.gateway.GetConnectedClients())
		}
	}

	return status
}

// Wait waits for the daemon to stop
func (d *Daemon) Wait() {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigChan
	d.logger.Info().Str("signal", sig.String()).Msg("Received signal")

	if err := d.Stop(); err != nil {
		d.logger.Error().Err(err).Msg("Failed to stop daemon")
	}
}

// Status represents daemon status
type Status struct {
	Running          bool
	Uptime           time.Duration
	StartTime        time.Time
	QueueDepth       int
	Busy             bool
	BrowserOpen      bool
	ConnectedClients int
}

// GetConfig returns the daemon configuration
func (d *Daemon) GetConfig() *config.Config {
	return d.config
}

// GetLogger returns the daemon logger
func (d *Daemon) GetLogger() *logger.Logger {
	return d.logger
}

// GetExecutor returns the command executor
func (d *Daemon) GetExecutor() *executor.Executor {
	return d.executor
}

// GetSession returns the browser session
func (d *Daemon) GetSession() *browser.Session {
	return d.session
}

// GetActionRunner returns the action runner
func (d *Daemon) GetActionRunner() *actions.Runner {
	return d.actions
}

// GetLoader returns the scenario loader
func (d *Daemon) GetLoader() *scenario.Loader {
	return d.loader
}

// GetScenarioRunner returns the scenario runner
func (d *Daemon) GetScenarioRunner() *scenario.Runner {
	return d.scenarios
}

// GetHistoryStore returns the history store, nil when history is disabled
func (d *Daemon) GetHistoryStore() *history.Store {
	return d.historyStore
}

// GetScheduler returns the scheduler, nil when scheduling is disabled
func (d *Daemon) GetScheduler() *schedule.Service {
	return d.scheduler
}

// GetGatewayServer returns the gateway server, nil when the gateway is disabled
func (d *Daemon) GetGatewayServer() *gateway.Server {
	return d.gateway
}
