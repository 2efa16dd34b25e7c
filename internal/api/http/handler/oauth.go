package handler

import (
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/quietpages/quietpages-server/internal/logger"
	"github.com/quietpages/quietpages-server/internal/model"
	"github.com/quietpages/quietpages-server/internal/oauth"
	"github.com/quietpages/quietpages-server/internal/service"
)

const stateCookieName = "oauth_state"

const stateCookieTTL = 10 * time.Minute

// OAuth drives the provider sign-in flow over HTTP.
type OAuth struct {
	auth     *service.Auth
	provider oauth.Provider
	logger   *logger.Logger
}

func NewOAuth(auth *service.Auth, provider oauth.Provider, logger *logger.Logger) *OAuth {
	return &OAuth{auth: auth, provider: provider, logger: logger}
}

// Redirect sends the user to the provider's consent page. The state value
// is pinned in a short-lived cookie and checked again on callback.
func (h *OAuth) Redirect(w http.ResponseWriter, r *http.Request) {
	state := uuid.NewString()

	http.SetCookie(w, &http.Cookie{
		Name:     stateCookieName,
		Value:    state,
		Path:     "/api/auth/oauth",
		MaxAge:   int(stateCookieTTL.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, h.provider.AuthCodeURL(state), http.StatusFound)
}

// Callback completes the flow: it verifies the state, exchanges the code
// for a provider identity and answers with the same session payload as a
// password sign-in.
func (h *OAuth) Callback(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(stateCookieName)
	if err != nil || cookie.Value == "" || cookie.Value != r.URL.Query().Get("state") {
		writeBadRequest(w, "oauth state mismatch")
		return
	}

	// The state is single-use.
	http.SetCookie(w, &http.Cookie{
		Name:     stateCookieName,
		Value:    "",
		Path:     "/api/auth/oauth",
		MaxAge:   -1,
		HttpOnly: true,
	})

	code := r.URL.Query().Get("code")
	if code == "" {
		writeBadRequest(w, "missing authorization code")
		return
	}

	email, err := h.provider.Exchange(r.Context(), code)
	if err != nil {
		h.logger.Error("oauth code exchange failed", "error", err)
		writeError(w, fmt.Errorf("%w: %w", model.ErrProviderAuth, err))
		return
	}

	session, err := h.auth.SignInWithProvider(r.Context(), email)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toSessionResponse(session))
}
