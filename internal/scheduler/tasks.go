// Package scheduler drives periodic sweeps (media_cleanup, lease recovery)
// on top of asynq's cron-style scheduler. These are ticks, not the job
// queue itself: each fire either runs the sweep inline or enqueues the
// corresponding job-queue handler.
package scheduler

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

// TaskMediaCleanup fires the media_cleanup sweep: expired media_assets rows
// are deleted from object storage then from the table.
const TaskMediaCleanup = "sweep.media_cleanup"

// TaskLeaseRecovery fires the stuck-job sweep: jobs stuck in "running" past
// the lease horizon are reset to "pending".
const TaskLeaseRecovery = "sweep.lease_recovery"

// MediaCleanupPayload carries no per-run parameters; the handler always
// operates on all tenants' expired assets.
type MediaCleanupPayload struct{}

// LeaseRecoveryPayload carries no per-run parameters; the handler always
// resets every stale row regardless of tenant.
type LeaseRecoveryPayload struct{}

// NewMediaCleanupTask builds the asynq task for a media_cleanup tick.
func NewMediaCleanupTask() (*asynq.Task, error) {
	data, err := json.Marshal(MediaCleanupPayload{})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskMediaCleanup, data), nil
}

// NewLeaseRecoveryTask builds the asynq task for a lease-recovery tick.
func NewLeaseRecoveryTask() (*asynq.Task, error) {
	data, err := json.Marshal(LeaseRecoveryPayload{})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskLeaseRecovery, data), nil
}
