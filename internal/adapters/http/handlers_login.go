package http

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
)

// loginRedirect sends the browser to the provider's authorization page.
// The anti-CSRF state is created here and verified again on callback.
func (h *Handler) loginRedirect(w http.ResponseWriter, r *http.Request) {
	provider := chi.URLParam(r, "provider")
	redirectURI := r.URL.Query().Get("redirect_uri")

	directive, err := h.login.Redirect(r.Context(), provider, redirectURI, readIP(r))
	if err != nil {
		writeMappedError(r.Context(), w, "login_redirect", err)
		return
	}

	// API clients can opt into a JSON directive instead of a browser redirect.
	if r.URL.Query().Get("response_mode") == "json" || strings.Contains(r.Header.Get("Accept"), "application/json") {
		writeSuccess(w, http.StatusOK, directive)
		return
	}
	http.Redirect(w, r, directive.AuthorizeURL, http.StatusFound)
}

func (h *Handler) loginCallback(w http.ResponseWriter, r *http.Request) {
	provider := chi.URLParam(r, "provider")
	query := r.URL.Query()

	result, err := h.login.Callback(r.Context(), provider, query.Get("code"), query.Get("state"))
	if err != nil {
		writeMappedError(r.Context(), w, "login_callback", err)
		return
	}

	writeSuccess(w, http.StatusOK, map[string]any{
		"user":   userResource(result.User),
		"client": result.Client,
		"tokens": result.Tokens,
	})
}

func (h *Handler) refresh(w http.ResponseWriter, r *http.Request) {
	token, err := bearerTokenFromHeader(r.Header.Get("Authorization"))
	if err != nil {
		writeMissingBearerError(r.Context(), w, "refresh")
		return
	}
	tokens, err := h.login.RefreshCredentials(r.Context(), token)
	if err != nil {
		writeMappedError(r.Context(), w, "refresh", err)
		return
	}
	writeSuccess(w, http.StatusOK, tokens)
}

func (h *Handler) me(w http.ResponseWriter, r *http.Request) {
	user, ok := userFromContext(r.Context())
	if !ok {
		writeMissingBearerError(r.Context(), w, "me")
		return
	}
	writeSuccess(w, http.StatusOK, userResource(user))
}
