package access

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/innsuite/innsuite/internal/shared"
)

type deciderContextKey struct{}

// ContextWithDecider stores the decider in context.
func ContextWithDecider(ctx context.Context, d *Decider) context.Context {
	return context.WithValue(ctx, deciderContextKey{}, d)
}

// DeciderFromContext extracts the decider. The result may be nil, which
// denies every check.
func DeciderFromContext(ctx context.Context) *Decider {
	d, _ := ctx.Value(deciderContextKey{}).(*Decider)
	return d
}

// Middleware wires the access core into HTTP handlers.
type Middleware struct {
	Manager *Manager
	Logger  *slog.Logger
}

// Attach resolves the decider for the session's identity and stores it in
// the request context. Requests without an identity carry a nil decider.
func (m Middleware) Attach(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess := shared.SessionFromContext(r.Context())
		if sess == nil || sess.User() == "" {
			next.ServeHTTP(w, r)
			return
		}
		userID, err := uuid.Parse(sess.User())
		if err != nil {
			if m.Logger != nil {
				m.Logger.Error("access parse user id", slog.String("value", sess.User()))
			}
			next.ServeHTTP(w, r)
			return
		}
		d := m.Manager.Decider(r.Context(), userID, sess.Get(shared.SessionEmailKey))
		next.ServeHTTP(w, r.WithContext(ContextWithDecider(r.Context(), d)))
	})
}

// Forbidden is the default guard fallback: an empty 403.
var Forbidden http.Handler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusForbidden)
})

// Guard serves next only when the identity holds permission and the tenant is
// licensed for component. Otherwise fallback is served, Forbidden when nil.
func Guard(permission, component string, fallback http.Handler) func(http.Handler) http.Handler {
	if fallback == nil {
		fallback = Forbidden
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if DeciderFromContext(r.Context()).Allows(permission, component) {
				next.ServeHTTP(w, r)
				return
			}
			fallback.ServeHTTP(w, r)
		})
	}
}

// RequireAny serves next when at least one permission is held.
func RequireAny(perms ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if len(perms) == 0 || DeciderFromContext(r.Context()).HasAnyPermission(perms...) {
				next.ServeHTTP(w, r)
				return
			}
			Forbidden.ServeHTTP(w, r)
		})
	}
}

// RequireIdentity rejects requests without a resolved identity.
func RequireIdentity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if DeciderFromContext(r.Context()).Identity() == nil {
			http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Render picks children when both keys are open and fallback otherwise.
func Render[T any](d *Decider, permission, component string, children, fallback T) T {
	if d.Allows(permission, component) {
		return children
	}
	return fallback
}
