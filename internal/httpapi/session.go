package httpapi

import (
	"net/http"

	"github.com/mpetrov/cardtidy/internal/session"
)

// handleInit establishes a session. A request with a valid session cookie
// keeps its session and gets the existing CSRF token back; anything else
// gets a fresh session.
func (h *Handler) handleInit(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(session.CookieName); err == nil {
		if claims, err := h.sessions.Validate(cookie.Value); err == nil {
			writeData(w, map[string]string{"csrfToken": claims.CSRF})
			return
		}
	}

	token, claims, err := h.sessions.Issue()
	if err != nil {
		writeServiceError(w, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     session.CookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Expires:  claims.ExpiresAt.Time,
	})
	writeData(w, map[string]string{"csrfToken": claims.CSRF})
}

// withSession authenticates the request's session cookie and, for mutating
// methods, checks the CSRF header. A non-empty action is charged against
// the session's rate budget.
func (h *Handler) withSession(action string, fn func(http.ResponseWriter, *http.Request, *session.Claims)) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(session.CookieName)
		if err != nil {
			writeError(w, http.StatusUnauthorized, session.ErrMissingToken.Error())
			return
		}
		claims, err := h.sessions.Validate(cookie.Value)
		if err != nil {
			writeError(w, http.StatusUnauthorized, session.ErrInvalidToken.Error())
			return
		}

		if r.Method != http.MethodGet {
			if err := h.sessions.CheckCSRF(claims, r.Header.Get(session.CSRFHeader)); err != nil {
				writeError(w, http.StatusForbidden, err.Error())
				return
			}
		}

		if action != "" && !h.limiter.Allow(claims.SessionID, action) {
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded, try again shortly")
			return
		}

		fn(w, r, claims)
	})
}
