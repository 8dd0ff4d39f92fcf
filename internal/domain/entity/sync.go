package entity

import "time"

// SyncReport summarizes one reconciliation run. Per-subscription failures are
// collected here rather than aborting the run.
type SyncReport struct {
	Provider   string        `json:"provider,omitempty"`
	StartedAt  time.Time     `json:"started_at"`
	FinishedAt time.Time     `json:"finished_at"`
	Checked    int           `json:"checked"`
	Updated    int           `json:"updated"`
	Canceled   int           `json:"canceled"`
	Discovered int           `json:"discovered"`
	Relinked   int           `json:"relinked"`
	Failed     int           `json:"failed"`
	Failures   []SyncFailure `json:"failures,omitempty"`
}

// SyncFailure records one subscription the run could not reconcile.
type SyncFailure struct {
	ProviderSubscriptionID string `json:"provider_subscription_id"`
	Provider               string `json:"provider"`
	Reason                 string `json:"reason"`
}

// Merge folds another report into this one.
func (r *SyncReport) Merge(other *SyncReport) {
	if other == nil {
		return
	}
	r.Checked += other.Checked
	r.Updated += other.Updated
	r.Canceled += other.Canceled
	r.Discovered += other.Discovered
	r.Relinked += other.Relinked
	r.Failed += other.Failed
	r.Failures = append(r.Failures, other.Failures...)
}
