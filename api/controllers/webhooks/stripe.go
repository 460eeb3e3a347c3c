package webhooks

import (
	"context"
	"io"
	"net/http"

	"github.com/stripe/stripe-go/v84"
	"github.com/stripe/stripe-go/v84/webhook"

	"github.com/delacruzdev/designvault-backend/api/responses"
	pkgerrors "github.com/delacruzdev/designvault-backend/pkg/errors"
	"github.com/delacruzdev/designvault-backend/pkg/logger"
)

// Stripe caps webhook payloads at 64KB; anything larger is not ours.
const maxBodyBytes = int64(65536)

type eventHandler interface {
	HandleEvent(ctx context.Context, event *stripe.Event) error
}

type stripeClient interface {
	SigningSecret() string
}

type idempotencyGuard interface {
	CheckAndMark(ctx context.Context, eventID string) (bool, error)
}

// StripeWebhook verifies the event signature, claims the event ID so Stripe
// redeliveries are acknowledged without side effects, and dispatches the
// event. Once the signature checks out the response is 200 no matter what
// happens downstream; dispatch errors are logged and reconciled through the
// confirm endpoint rather than bounced back to Stripe.
func StripeWebhook(svc eventHandler, client stripeClient, guard idempotencyGuard, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil || client == nil || guard == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "webhook handler unavailable"))
			return
		}

		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read webhook body"))
			return
		}

		signature := r.Header.Get("Stripe-Signature")
		if signature == "" {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "missing stripe signature"))
			return
		}

		event, err := webhook.ConstructEvent(body, signature, client.SigningSecret())
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid stripe signature"))
			return
		}

		if logg != nil {
			ctx = logg.WithStripeEventID(ctx, event.ID)
		}

		alreadyProcessed, err := guard.CheckAndMark(ctx, event.ID)
		if err != nil {
			// a guard outage must not bounce the event back to Stripe
			if logg != nil {
				logg.Error(ctx, "webhook.idempotency.check", err)
			}
			alreadyProcessed = false
		}
		if alreadyProcessed {
			if logg != nil {
				logg.Info(ctx, "stripe event already processed")
			}
			responses.WriteSuccess(w, nil)
			return
		}

		if err := svc.HandleEvent(ctx, &event); err != nil && logg != nil {
			logg.Error(ctx, "webhook.dispatch", err)
		}

		responses.WriteSuccess(w, nil)
	}
}
