package app

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/nats-io/nats.go"

	"squashd/internal/retention"
	"squashd/pkg/api"
	"squashd/pkg/archive"
	"squashd/pkg/config"
	"squashd/pkg/events"
	"squashd/pkg/logger"
	"squashd/pkg/squash"
	"squashd/pkg/state"
	"squashd/pkg/store"
)

// Run wires the daemon together and blocks until ctx is cancelled: state
// dirs, audit sink, archive db, NATS bridge, squash engine, event
// listener, retention scheduler and the admin HTTP server.
func Run(ctx context.Context, cfg *config.Config) error {
	paths, err := state.EnsureStateDirs(cfg.Storage.DBPath)
	if err != nil {
		return err
	}
	if err := logger.AttachAuditFileSink(paths.Audit); err != nil {
		logger.Warn("audit_sink_unavailable", "error", err)
	}

	log, err := archive.Open(paths.Store)
	if err != nil {
		return err
	}
	defer func() {
		if err := log.Close(); err != nil {
			logger.Error("archive_close_failed", "error", err)
		}
	}()

	nc, err := nats.Connect(cfg.Transport.URL,
		nats.Name("squashd"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return err
	}
	defer nc.Close()
	logger.Info("bridge_connected", "url", cfg.Transport.URL)

	bridge := store.NewBridge(nc, store.BridgeOptions{
		SubjectPrefix: cfg.Transport.SubjectPrefix,
		RPCTimeout:    cfg.Transport.RPCTimeout.Duration(),
		RPS:           cfg.Transport.RateLimit.RPS,
		Burst:         cfg.Transport.RateLimit.Burst,
	})

	engine := squash.New(bridge, log, squash.Options{
		MaxMessageLen:      cfg.Squash.MaxMessageLen,
		MarkerWindow:       cfg.Squash.MarkerWindow,
		SmartWindow:        cfg.Squash.SmartWindow,
		DryRun:             cfg.Squash.DryRun,
		Autosquash:         cfg.Squash.Autosquash,
		ToggleCleanupDelay: cfg.Squash.ToggleCleanupDelay.Duration(),
	})

	events.SetMaxPooledBuffer(int(cfg.Events.MaxPooledBufferBytes.Int64()))
	queue := events.NewQueue(cfg.Events.QueueCapacity)
	listener := events.NewListener(nc, cfg.Transport.SubjectPrefix, queue, engine, cfg.Events.Workers)

	stopRetention, err := retention.Start(ctx, cfg.Retention, log)
	if err != nil {
		return err
	}
	defer stopRetention()

	srv := &http.Server{
		Addr: cfg.Addr(),
		Handler: api.Handler(log, func() api.Status {
			return api.Status{
				Autosquash: engine.Enabled(),
				DryRun:     cfg.Squash.DryRun,
				QueueDepth: queue.Len(),
			}
		}),
	}
	go func() {
		logger.Info("admin_listening", "addr", cfg.Addr())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("admin_server_failed", "error", err)
		}
	}()

	err = listener.Run(ctx)

	shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if serr := srv.Shutdown(shutCtx); serr != nil {
		logger.Warn("admin_shutdown_failed", "error", serr)
	}
	return err
}
