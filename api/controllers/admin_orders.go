package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/sokonihq/sokoni-backend/api/middleware"
	"github.com/sokonihq/sokoni-backend/api/responses"
	"github.com/sokonihq/sokoni-backend/api/validators"
	internalorders "github.com/sokonihq/sokoni-backend/internal/orders"
	"github.com/sokonihq/sokoni-backend/pkg/enums"
	pkgerrors "github.com/sokonihq/sokoni-backend/pkg/errors"
	"github.com/sokonihq/sokoni-backend/pkg/logger"
)

type adminCancelRequest struct {
	Reason *string `json:"reason,omitempty"`
}

// AdminCancelOrder is the support path that voids a pending order. Paid and
// later states never cancel; refunds are a manual support process.
func AdminCancelOrder(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		actor, err := requestActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		rawOrderID := strings.TrimSpace(chi.URLParam(r, "orderID"))
		orderID, err := uuid.Parse(rawOrderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid order id"))
			return
		}

		input := internalorders.CancelOrderInput{
			Actor:   actor,
			OrderID: orderID,
		}
		if r.ContentLength > 0 {
			var payload adminCancelRequest
			if err := validators.DecodeJSONBody(r, &payload); err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			if payload.Reason != nil {
				reason := validators.SanitizeString(*payload.Reason, 500)
				input.Reason = &reason
			}
		}

		if err := svc.CancelOrder(r.Context(), input); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, nil)
	}
}

func requestActor(r *http.Request) (internalorders.Actor, error) {
	rawID := middleware.UserIDFromContext(r.Context())
	if rawID == "" {
		return internalorders.Actor{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing")
	}
	userID, err := uuid.Parse(rawID)
	if err != nil {
		return internalorders.Actor{}, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid user id")
	}
	role, err := enums.ParseUserRole(middleware.RoleFromContext(r.Context()))
	if err != nil {
		return internalorders.Actor{}, pkgerrors.Wrap(pkgerrors.CodeForbidden, err, "unknown actor role")
	}
	return internalorders.Actor{UserID: userID, Role: role}, nil
}
