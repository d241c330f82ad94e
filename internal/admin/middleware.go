package admin

import (
	"context"
	"net/http"
	"strings"

	"github.com/apestel/hardwire/internal/hwerr"
	"github.com/apestel/hardwire/internal/storage"
)

type contextKey string

const adminUserContextKey contextKey = "admin_user"

// RequireBearer validates the Authorization header and attaches the
// resolved admin_users row to the request context. A present-but-
// invalid token yields AuthInvalid; an absent one yields AuthMissing;
// a valid token whose subject has no admin_users row yields
// AuthForbidden, matching the binary-authorization model of §3.
func (s *Server) RequireBearer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if header == "" {
			hwerr.WriteJSON(w, hwerr.New(hwerr.KindAuthMissing, "missing authorization header"))
			return
		}
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			hwerr.WriteJSON(w, hwerr.New(hwerr.KindAuthInvalid, "malformed authorization header"))
			return
		}

		userID, err := s.tokens.Verify(parts[1])
		if err != nil {
			hwerr.WriteJSON(w, hwerr.Wrap(hwerr.KindAuthInvalid, "invalid token", err))
			return
		}

		user, err := s.store.GetAdminUser(userID)
		if err != nil {
			hwerr.WriteJSON(w, err)
			return
		}

		ctx := context.WithValue(r.Context(), adminUserContextKey, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func adminUserFromContext(r *http.Request) *storage.AdminUser {
	u, _ := r.Context().Value(adminUserContextKey).(*storage.AdminUser)
	return u
}
