package audit

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/syncwire/clerk-sync/internal/model"
	"github.com/syncwire/clerk-sync/internal/repository"
	"github.com/syncwire/clerk-sync/internal/util"
)

// Recorder writes one audit row per processed delivery. Writes are
// best-effort: failures are logged and counted against the breaker, never
// surfaced to the webhook handler.
type Recorder struct {
	deliveries repository.DeliveriesRepository
	breaker    *sinkBreaker
	log        *zap.Logger
	timeout    time.Duration
}

func NewRecorder(deliveries repository.DeliveriesRepository, log *zap.Logger) *Recorder {
	return &Recorder{
		deliveries: deliveries,
		breaker:    newSinkBreaker(5, 30*time.Second),
		log:        log,
		timeout:    2 * time.Second,
	}
}

// Record persists the delivery outcome. It never returns an error; a sink
// outage must not fail webhook handling.
func (r *Recorder) Record(ctx context.Context, evt *model.Event, outcome string) {
	if !r.breaker.Allow() {
		r.log.Debug("audit sink open, dropping delivery record",
			zap.String("message_id", evt.ID))
		return
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	err := r.deliveries.Insert(ctx, model.Delivery{
		ID:         util.New(),
		MessageID:  evt.ID,
		EventType:  evt.Type.String(),
		Outcome:    outcome,
		ClerkID:    evt.User.ClerkID,
		Email:      util.NormalizeEmail(evt.User.Email),
		ReceivedAt: time.Now().UTC(),
	})
	if err != nil {
		r.breaker.OnFailure()
		r.log.Warn("audit insert failed",
			zap.String("message_id", evt.ID), zap.Error(err))
		return
	}
	r.breaker.OnSuccess()
}
