package config

// SyncConfig controls the scheduled reconciliation and stats jobs.
type SyncConfig struct {
	// ReconcileSchedule is a cron expression for the subscription
	// reconciliation run. Empty disables the schedule.
	ReconcileSchedule string `yaml:"reconcile_schedule"`

	// StatsSchedule is a cron expression for the daily stats snapshot.
	StatsSchedule string `yaml:"stats_schedule"`

	// BatchSize limits how many local subscriptions are loaded per page
	// during a reconciliation run.
	BatchSize int `yaml:"batch_size"`
}
