package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	SnapshotWrites = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tribu_snapshot_writes_total",
		Help: "Total number of snapshot persistence attempts, labelled by key.",
	}, []string{"key"})

	SnapshotFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tribu_snapshot_failures_total",
		Help: "Total number of snapshot writes that failed and were discarded.",
	}, []string{"key"})

	DirectorySyncs = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tribu_directory_syncs_total",
		Help: "Total number of remote directory pulls, labelled by status.",
	}, []string{"status"})

	BackupsExported = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tribu_backups_exported_total",
		Help: "Total number of JSON backups generated.",
	})

	ImportsRejected = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tribu_imports_rejected_total",
		Help: "Total number of backup imports rejected as malformed.",
	})
)
