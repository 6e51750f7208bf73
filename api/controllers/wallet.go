package controllers

import (
	"net/http"
	"strings"

	"github.com/sokonihq/sokoni-backend/api/responses"
	"github.com/sokonihq/sokoni-backend/api/validators"
	"github.com/sokonihq/sokoni-backend/internal/wallets"
	pkgerrors "github.com/sokonihq/sokoni-backend/pkg/errors"
	"github.com/sokonihq/sokoni-backend/pkg/logger"
	"github.com/sokonihq/sokoni-backend/pkg/pagination"
)

// WalletStatement returns the caller's balance plus a page of ledger entries.
func WalletStatement(svc wallets.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "wallets service unavailable"))
			return
		}

		actor, err := requestActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		params := pagination.Params{
			Limit:  limit,
			Cursor: strings.TrimSpace(r.URL.Query().Get("cursor")),
		}

		statement, err := svc.Statement(r.Context(), actor.UserID, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, statement)
	}
}
