// Package events mirrors job messages onto NATS subjects.
package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/repopackd/internal/job"
	"github.com/fyrsmithlabs/repopackd/internal/logging"
)

// SubjectPrefix roots every job subject.
const SubjectPrefix = "repopack.jobs"

// Subject returns the subject for one job message:
//
//	repopack.jobs.{job_id}.{progress|selection|completed|failed}
func Subject(jobID string, msg job.Message) string {
	return fmt.Sprintf("%s.%s.%s", SubjectPrefix, jobID, msg.Kind())
}

// envelope is the published payload.
type envelope struct {
	JobID string `json:"jobId"`
	job.Message
}

// NATSPublisher publishes job messages as JSON. Publish failures are
// logged and never reach the job.
type NATSPublisher struct {
	nc     *nats.Conn
	logger *logging.Logger
}

// NewNATSPublisher wraps an established connection.
func NewNATSPublisher(nc *nats.Conn, logger *logging.Logger) *NATSPublisher {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &NATSPublisher{nc: nc, logger: logger.Named("events")}
}

// Publish implements job.EventSink.
func (p *NATSPublisher) Publish(ctx context.Context, jobID string, msg job.Message) {
	data, err := json.Marshal(envelope{JobID: jobID, Message: msg})
	if err != nil {
		p.logger.Warn(ctx, "failed to marshal job event", zap.Error(err))
		return
	}
	subject := Subject(jobID, msg)
	if err := p.nc.Publish(subject, data); err != nil {
		p.logger.Warn(ctx, "failed to publish job event",
			zap.String("subject", subject), zap.Error(err))
	}
}
