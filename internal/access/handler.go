package access

import (
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/innsuite/innsuite/internal/platform/httpx"
)

// SubscriptionView is the body of GET /subscription.
type SubscriptionView struct {
	Subscription *Subscription `json:"subscription"`
	Components   []string      `json:"components"`
}

// SubscriptionHandler reports the caller's tenant subscription and the
// components the decider was built with. A tenant without an active plan
// yields a null subscription and no components.
func SubscriptionHandler(store Store, logger *slog.Logger) http.HandlerFunc {
	if logger == nil {
		logger = slog.Default()
	}
	return func(w http.ResponseWriter, r *http.Request) {
		d := DeciderFromContext(r.Context())
		id := d.Identity()
		if id == nil {
			httpx.RespondError(w, httpx.ErrUnauthorized)
			return
		}
		view := SubscriptionView{Components: []string{}}
		view.Components = append(view.Components, d.grants.SubscriptionComponents...)
		if tenant := id.TenantID(); store != nil && tenant != uuid.Nil {
			sub, err := store.ActiveSubscription(r.Context(), tenant)
			if err != nil {
				logger.Warn("load subscription", slog.String("restaurant_id", tenant.String()), slog.Any("error", err))
			} else {
				view.Subscription = sub
			}
		}
		httpx.JSON(w, http.StatusOK, view)
	}
}
