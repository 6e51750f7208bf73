package webhooks

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/sokonihq/sokoni-backend/api/responses"
	paystackwebhook "github.com/sokonihq/sokoni-backend/internal/webhooks/paystack"
	pkgerrors "github.com/sokonihq/sokoni-backend/pkg/errors"
	"github.com/sokonihq/sokoni-backend/pkg/logger"
)

type PaystackWebhookService interface {
	HandleEvent(ctx context.Context, event paystackwebhook.Event) error
}

type paystackWebhookGuard interface {
	CheckAndMark(ctx context.Context, eventName, reference string) (bool, error)
	Release(ctx context.Context, eventName, reference string) error
}

type signatureVerifier interface {
	VerifySignature(body []byte, signature string) bool
}

// PaystackWebhook handles gateway payment notifications. The webhook is the
// authoritative paid write for orders; the client return path is only a hint.
func PaystackWebhook(svc PaystackWebhookService, verifier signatureVerifier, guard paystackWebhookGuard, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "webhook service unavailable"))
			return
		}
		if verifier == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "paystack client unavailable"))
			return
		}
		if guard == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "idempotency guard unavailable"))
			return
		}

		payload, err := io.ReadAll(r.Body)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read request body"))
			return
		}

		signature := r.Header.Get("x-paystack-signature")
		if signature == "" {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "paystack signature missing"))
			return
		}
		if !verifier.VerifySignature(payload, signature) {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "paystack signature mismatch"))
			return
		}

		var event paystackwebhook.Event
		if err := json.Unmarshal(payload, &event); err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode webhook payload"))
			return
		}

		reference := eventReference(event)
		alreadyProcessed, err := guard.CheckAndMark(ctx, event.Event, reference)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check idempotency"))
			return
		}
		if alreadyProcessed {
			responses.WriteSuccess(w, nil)
			return
		}

		if err := svc.HandleEvent(ctx, event); err != nil {
			_ = guard.Release(ctx, event.Event, reference)
			responses.WriteError(ctx, logg, w, err)
			return
		}

		if logg != nil {
			logg.Info(ctx, fmt.Sprintf("paystack event %s processed", event.Event))
		}
		responses.WriteSuccess(w, nil)
	}
}

// Paystack events carry no stable id, so the data.reference plus the event
// name is the dedupe key.
func eventReference(event paystackwebhook.Event) string {
	var data struct {
		Reference string `json:"reference"`
	}
	if err := json.Unmarshal(event.Data, &data); err != nil {
		return ""
	}
	return data.Reference
}
