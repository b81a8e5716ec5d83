package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/ikidnapmyself/pp-api/internal/application"
)

// Handler is the HTTP adapter entrypoint for messaging and login use-cases.
// Keeping only application dependencies here preserves clean adapter boundaries.
type Handler struct {
	messaging *application.MessagingService
	login     *application.LoginService
	ready     func() error
}

// NewHandler constructs an HTTP handler bound to the application services.
// The ready probe is optional; without one readyz always succeeds.
func NewHandler(messaging *application.MessagingService, login *application.LoginService, ready func() error) *Handler {
	return &Handler{
		messaging: messaging,
		login:     login,
		ready:     ready,
	}
}

// NewRouter registers HTTP routes and the middleware stack.
// Centralizing routes here ensures consistent auth and error behavior across endpoints.
func NewRouter(handler *Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(recoverMiddleware)
	r.Use(loggingMiddleware)

	r.Get("/healthz", handler.healthz)
	r.Get("/readyz", handler.readyz)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/login/{provider}", handler.loginRedirect)
		r.Get("/login/{provider}/callback", handler.loginCallback)
		r.Post("/refresh", handler.refresh)

		r.Group(func(r chi.Router) {
			r.Use(handler.authMiddleware)
			r.Get("/me", handler.me)

			r.Get("/threads", handler.listThreads)
			r.Post("/threads", handler.createThread)
			r.Get("/threads/{thread_id}", handler.getThread)
			r.Get("/threads/{thread_id}/participants", handler.getThreadParticipants)
			r.Post("/threads/{thread_id}/participants", handler.addParticipant)
			r.Post("/threads/{thread_id}/messages", handler.postMessage)
			r.Put("/threads/{thread_id}/read", handler.markThreadRead)

			r.Get("/me/threads", handler.myThreads)
			r.Get("/me/threads/unread", handler.myUnreadThreads)
			r.Put("/me/threads/read", handler.markAllThreadsRead)
			r.Get("/me/contacts", handler.myContacts)
		})
	})

	return r
}

func (h *Handler) healthz(w http.ResponseWriter, _ *http.Request) {
	writeMessage(w, http.StatusOK, "ok")
}

func (h *Handler) readyz(w http.ResponseWriter, r *http.Request) {
	if h.ready != nil {
		if err := h.ready(); err != nil {
			writeMappedError(r.Context(), w, "readyz", err)
			return
		}
	}
	writeMessage(w, http.StatusOK, "ready")
}
