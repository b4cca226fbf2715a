package http

import (
	"errors"
	"io"
	"net/http"

	echo "github.com/labstack/echo/v4"
	"github.com/labstack/gommon/log"

	"github.com/syncwire/clerk-sync/internal/audit"
	"github.com/syncwire/clerk-sync/internal/metrics"
	"github.com/syncwire/clerk-sync/internal/service/reconcile"
	"github.com/syncwire/clerk-sync/internal/webhook"
)

// clerkSyncHandler is the webhook ingress: verify, dedup, reconcile,
// record. The response never carries internal detail; the provider only
// sees the status code and a short reason.
func clerkSyncHandler(verifier *webhook.Verifier, svc *reconcile.Service, guard *webhook.ReplayGuard, recorder *audit.Recorder) echo.HandlerFunc {
	return func(c echo.Context) error {
		if verifier == nil {
			metrics.WebhookRejectionsTotal.WithLabelValues("config").Inc()
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "webhook not configured"})
		}

		// exact wire bytes; never re-serialized before verification
		body, err := io.ReadAll(c.Request().Body)
		if err != nil {
			metrics.WebhookRejectionsTotal.WithLabelValues("payload").Inc()
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "unreadable body"})
		}

		evt, err := verifier.Verify(c.Request().Header, body)
		if err != nil {
			reason := "signature"
			msg := "invalid webhook signature"
			if errors.Is(err, webhook.ErrInvalidPayload) {
				reason = "payload"
				msg = "invalid payload"
			}
			log.Warnf("webhook verification failed: %v", err)
			metrics.WebhookRejectionsTotal.WithLabelValues(reason).Inc()
			return c.JSON(http.StatusBadRequest, map[string]string{"error": msg})
		}

		ctx := c.Request().Context()

		if guard != nil {
			seen, err := guard.Seen(ctx, evt.ID)
			if err != nil {
				log.Warnf("replay guard unavailable: %v", err)
			} else if seen {
				if recorder != nil {
					recorder.Record(ctx, evt, "duplicate")
				}
				metrics.WebhookEventsTotal.WithLabelValues(evt.Type.String(), "duplicate").Inc()
				return c.JSON(http.StatusOK, map[string]any{"ok": true})
			}
		}

		outcome, err := svc.Apply(ctx, evt)
		if err != nil {
			if errors.Is(err, reconcile.ErrEmptySubject) {
				metrics.WebhookRejectionsTotal.WithLabelValues("payload").Inc()
				return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid payload"})
			}
			log.Errorf("reconcile failed: %v", err)
			metrics.WebhookRejectionsTotal.WithLabelValues("store").Inc()
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "store error"})
		}

		// mark only after the store mutation succeeded: a failed delivery
		// must stay eligible for the provider's redelivery
		if guard != nil {
			if err := guard.Mark(ctx, evt.ID); err != nil {
				log.Warnf("replay guard mark failed: %v", err)
			}
		}

		if recorder != nil {
			recorder.Record(ctx, evt, outcome.String())
		}
		metrics.WebhookEventsTotal.WithLabelValues(evt.Type.String(), outcome.String()).Inc()

		return c.JSON(http.StatusOK, map[string]any{"ok": true})
	}
}
