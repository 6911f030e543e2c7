package mailer

import (
	"context"
	"encoding/json"

	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-ddd-auth-core/pkg/mailer/templates"
)

// Outcome tells the queue consumer what to do with a delivery.
type Outcome int

const (
	Ack     Outcome = iota // sent, or dropped for good
	Requeue                // first delivery failed, try once more
	Reject                 // malformed job or failed redelivery, dropped
)

// Worker renders queued email jobs and hands them to a Sender.
type Worker struct {
	Sender Sender
	Logger *logrus.Logger
	// Options are applied to every template job (branding).
	Options []templates.Option
}

func NewWorker(sender Sender, logger *logrus.Logger, opts ...templates.Option) *Worker {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Worker{Sender: sender, Logger: logger, Options: opts}
}

// Handle processes one raw queue message. A send failure is retried once:
// a message that was already redelivered is rejected.
func (w *Worker) Handle(ctx context.Context, body []byte, redelivered bool) Outcome {
	var job EmailJob
	if err := json.Unmarshal(body, &job); err != nil {
		w.Logger.WithError(err).Warn("email job: bad message")
		return Reject
	}
	log := w.Logger.WithFields(logrus.Fields{"template": job.Template})

	msg, err := job.Compose(w.Options...)
	if err != nil {
		log.WithError(err).Warn("email job: compose failed")
		return Reject
	}
	if err := w.Sender.Send(ctx, msg); err != nil {
		log.WithError(err).WithField("redelivered", redelivered).Error("email job: send failed")
		if redelivered {
			return Reject
		}
		return Requeue
	}
	log.Debug("email job: sent")
	return Ack
}
