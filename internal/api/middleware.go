package api

import (
	"net/http"

	"github.com/starford/folio/internal/session"
)

// RequireSession lets signed-in requests through. A pending session gets 202
// so the client keeps showing its loading state; anything else is 401.
func RequireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		st := session.FromContext(r.Context())
		switch st.Status {
		case session.SignedIn:
			next.ServeHTTP(w, r)
		case session.Pending:
			writeJSON(w, http.StatusAccepted, st)
		default:
			writeJSON(w, http.StatusUnauthorized, errorBody("unauthorized"))
		}
	})
}
