package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Engine and archive counters. Registered on the default registry and
// exposed by the admin server at /metrics.
var (
	ChainsStarted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "squashd_chains_started_total",
		Help: "Chains opened by the autosquash watcher.",
	})
	ChainsClosed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "squashd_chains_closed_total",
		Help: "Chains closed (boundary hit, toggle off, or continuity break).",
	})
	ChainsRotated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "squashd_chains_rotated_total",
		Help: "Chains rotated because a merge would exceed the length limit.",
	})
	Merges = promauto.NewCounter(prometheus.CounterOpts{
		Name: "squashd_merges_total",
		Help: "Messages merged into an open chain by the watcher.",
	})
	Squashes = promauto.NewCounter(prometheus.CounterOpts{
		Name: "squashd_squashes_total",
		Help: "Completed !squash command invocations.",
	})
	MessagesArchived = promauto.NewCounter(prometheus.CounterOpts{
		Name: "squashd_messages_archived_total",
		Help: "Messages durably archived before deletion.",
	})
	MessagesDeleted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "squashd_messages_deleted_total",
		Help: "Messages deleted through the safe-delete procedure.",
	})
	DryRunSkips = promauto.NewCounter(prometheus.CounterOpts{
		Name: "squashd_dry_run_skips_total",
		Help: "Mutations suppressed by dry-run mode.",
	})
	StoreErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "squashd_store_errors_total",
		Help: "Message store call failures by kind.",
	}, []string{"kind"})
	ArchiveWriteErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "squashd_archive_write_errors_total",
		Help: "Archive log write failures (each one blocked a delete).",
	})
	EventsDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "squashd_events_dropped_total",
		Help: "Inbound chat events dropped because the queue was full.",
	})
	EventsHandled = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "squashd_events_handled_total",
		Help: "Inbound chat events dispatched by kind.",
	}, []string{"kind"})
)
