package services

import (
	"context"
	"fmt"

	"github.com/bubtconnect/backend/src/models"
	"github.com/bubtconnect/backend/src/workflow"
)

// JobDispatcher routes claimed jobs to their handler by kind.
type JobDispatcher struct {
	notifier *ConnectionNotifier
	identity *IdentitySync
}

func NewJobDispatcher(notifier *ConnectionNotifier, identity *IdentitySync) *JobDispatcher {
	return &JobDispatcher{notifier: notifier, identity: identity}
}

func (d *JobDispatcher) Dispatch(ctx context.Context, job *models.Job, step *workflow.Step) error {
	switch job.Kind {
	case models.JobConnectionRequest:
		return d.notifier.Handle(ctx, job, step)
	case models.JobIdentityCreated, models.JobIdentityUpdated, models.JobIdentityDeleted:
		return d.identity.Handle(ctx, job, step)
	}
	return workflow.Permanent(fmt.Errorf("unknown job kind %q", job.Kind))
}
