// Package rbac guards routes by dashboard role. Every signed-in user holds
// exactly one of the five roles; there is no permission matrix beneath them.
package rbac

import (
	"log/slog"
	"net/http"

	"github.com/madaris-app/madaris/internal/shared"
)

// Role is a dashboard role.
type Role string

const (
	RoleAdmin      Role = "admin"
	RoleTeacher    Role = "teacher"
	RoleStudent    Role = "student"
	RoleParent     Role = "parent"
	RoleAccountant Role = "accountant"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleTeacher, RoleStudent, RoleParent, RoleAccountant:
		return true
	}
	return false
}

// Middleware wires role checks for HTTP handlers.
type Middleware struct {
	Logger *slog.Logger
}

// RequireAny ensures the current user holds at least one of the given roles.
// Admins pass every check.
func (m Middleware) RequireAny(roles ...Role) func(http.Handler) http.Handler {
	allowed := make(map[Role]struct{}, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess := shared.SessionFromContext(r.Context())
			if sess == nil || sess.User() == "" {
				http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
				return
			}
			role := Role(sess.Role())
			if role == RoleAdmin {
				next.ServeHTTP(w, r)
				return
			}
			if _, ok := allowed[role]; !ok {
				if m.Logger != nil {
					m.Logger.Warn("role denied",
						slog.String("path", r.URL.Path), slog.String("role", string(role)))
				}
				http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireSignedIn only checks that a user is signed in, any role.
func (m Middleware) RequireSignedIn() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess := shared.SessionFromContext(r.Context())
			if sess == nil || sess.User() == "" {
				http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
