package stripewebhook

import (
	"context"
	"encoding/json"

	"github.com/stripe/stripe-go/v84"

	pkgerrors "github.com/delacruzdev/designvault-backend/pkg/errors"
	"github.com/delacruzdev/designvault-backend/pkg/logger"
)

// paymentApplier is the payment-side surface the webhook drives.
type paymentApplier interface {
	ApplyIntentSucceeded(ctx context.Context, intentID string) error
	ApplyIntentFailed(ctx context.Context, intentID string, failureMessage string) error
	ApplyIntentCanceled(ctx context.Context, intentID string) error
	ApplyIntentRefunded(ctx context.Context, intentID string) error
}

// Service reconciles Stripe payment events with the local payment records.
type Service struct {
	payments paymentApplier
	logg     *logger.Logger
}

func NewService(payments paymentApplier, logg *logger.Logger) (*Service, error) {
	if payments == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "payment service required")
	}
	return &Service{payments: payments, logg: logg}, nil
}

// HandleEvent dispatches one verified Stripe event. Unknown event types are
// acknowledged and skipped.
func (s *Service) HandleEvent(ctx context.Context, event *stripe.Event) error {
	if event == nil || event.Data == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "stripe event data required")
	}

	switch event.Type {
	case stripe.EventTypePaymentIntentSucceeded:
		intent, err := decodeIntent(event)
		if err != nil {
			return err
		}
		return s.payments.ApplyIntentSucceeded(s.intentCtx(ctx, intent.ID), intent.ID)

	case stripe.EventTypePaymentIntentPaymentFailed:
		intent, err := decodeIntent(event)
		if err != nil {
			return err
		}
		message := ""
		if intent.LastPaymentError != nil {
			message = intent.LastPaymentError.Msg
		}
		return s.payments.ApplyIntentFailed(s.intentCtx(ctx, intent.ID), intent.ID, message)

	case stripe.EventTypePaymentIntentCanceled:
		intent, err := decodeIntent(event)
		if err != nil {
			return err
		}
		return s.payments.ApplyIntentCanceled(s.intentCtx(ctx, intent.ID), intent.ID)

	case stripe.EventTypeChargeRefunded:
		var charge stripe.Charge
		if err := json.Unmarshal(event.Data.Raw, &charge); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode charge event")
		}
		if charge.PaymentIntent == nil || charge.PaymentIntent.ID == "" {
			return pkgerrors.New(pkgerrors.CodeValidation, "charge missing payment intent")
		}
		intentID := charge.PaymentIntent.ID
		return s.payments.ApplyIntentRefunded(s.intentCtx(ctx, intentID), intentID)

	default:
		return nil
	}
}

func (s *Service) intentCtx(ctx context.Context, intentID string) context.Context {
	if s.logg == nil {
		return ctx
	}
	return s.logg.WithPaymentIntentID(ctx, intentID)
}

func decodeIntent(event *stripe.Event) (*stripe.PaymentIntent, error) {
	var intent stripe.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &intent); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode payment intent event")
	}
	return &intent, nil
}
