package http

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/ikidnapmyself/pp-api/internal/domain"
)

type createThreadRequest struct {
	Subject    string         `json:"subject"`
	Body       map[string]any `json:"body"`
	Recipients []string       `json:"recipients"`
}

type postMessageRequest struct {
	Body map[string]any `json:"body"`
}

type addParticipantRequest struct {
	UserID     string `json:"user_id"`
	MarkAsRead bool   `json:"mark_as_read"`
}

func (h *Handler) listThreads(w http.ResponseWriter, r *http.Request) {
	page := parseIntDefault(r.URL.Query().Get("page"), 1)
	result, err := h.messaging.ListAllThreads(r.Context(), page)
	if err != nil {
		writeMappedError(r.Context(), w, "list_threads", err)
		return
	}
	writePage(w, http.StatusOK, threadResources(result.Threads), result.Total, result.Page, result.PageSize)
}

func (h *Handler) createThread(w http.ResponseWriter, r *http.Request) {
	author, ok := userFromContext(r.Context())
	if !ok {
		writeMissingBearerError(r.Context(), w, "create_thread")
		return
	}
	var req createThreadRequest
	if err := decodeBody(r, &req); err != nil {
		writeValidationError(r.Context(), w, "create_thread", err)
		return
	}
	// Malformed recipient ids fail the request; ids of unknown users do not.
	recipientIDs := make([]uuid.UUID, 0, len(req.Recipients))
	for _, raw := range req.Recipients {
		id, err := uuid.Parse(raw)
		if err != nil {
			writeValidationError(r.Context(), w, "create_thread", fmt.Errorf("invalid recipient id %q", raw))
			return
		}
		recipientIDs = append(recipientIDs, id)
	}

	thread, err := h.messaging.CreateThread(r.Context(), req.Subject, author, req.Body, recipientIDs)
	if err != nil {
		writeMappedError(r.Context(), w, "create_thread", err)
		return
	}
	writeSuccess(w, http.StatusCreated, threadResource(thread))
}

func (h *Handler) getThread(w http.ResponseWriter, r *http.Request) {
	threadID, err := threadIDFromRequest(r)
	if err != nil {
		writeValidationError(r.Context(), w, "get_thread", err)
		return
	}
	thread, err := h.messaging.GetThread(r.Context(), threadID)
	if err != nil {
		writeMappedError(r.Context(), w, "get_thread", err)
		return
	}
	writeSuccess(w, http.StatusOK, threadResource(thread))
}

func (h *Handler) getThreadParticipants(w http.ResponseWriter, r *http.Request) {
	threadID, err := threadIDFromRequest(r)
	if err != nil {
		writeValidationError(r.Context(), w, "get_thread_participants", err)
		return
	}
	participants, err := h.messaging.GetThreadParticipants(r.Context(), threadID)
	if err != nil {
		writeMappedError(r.Context(), w, "get_thread_participants", err)
		return
	}
	writeSuccess(w, http.StatusOK, participantResources(participants))
}

func (h *Handler) addParticipant(w http.ResponseWriter, r *http.Request) {
	threadID, err := threadIDFromRequest(r)
	if err != nil {
		writeValidationError(r.Context(), w, "add_participant", err)
		return
	}
	var req addParticipantRequest
	if err := decodeBody(r, &req); err != nil {
		writeValidationError(r.Context(), w, "add_participant", err)
		return
	}
	userID, err := uuid.Parse(req.UserID)
	if err != nil {
		writeValidationError(r.Context(), w, "add_participant", fmt.Errorf("invalid user id %q", req.UserID))
		return
	}

	thread, err := h.messaging.GetThread(r.Context(), threadID)
	if err != nil {
		writeMappedError(r.Context(), w, "add_participant", err)
		return
	}
	user, err := h.messaging.GetUser(r.Context(), userID)
	if err != nil {
		writeMappedError(r.Context(), w, "add_participant", err)
		return
	}

	participant, err := h.messaging.AddParticipant(r.Context(), thread, user, req.MarkAsRead)
	if err != nil {
		writeMappedError(r.Context(), w, "add_participant", err)
		return
	}
	writeSuccess(w, http.StatusCreated, participantResource(participant))
}

func (h *Handler) postMessage(w http.ResponseWriter, r *http.Request) {
	author, ok := userFromContext(r.Context())
	if !ok {
		writeMissingBearerError(r.Context(), w, "post_message")
		return
	}
	threadID, err := threadIDFromRequest(r)
	if err != nil {
		writeValidationError(r.Context(), w, "post_message", err)
		return
	}
	var req postMessageRequest
	if err := decodeBody(r, &req); err != nil {
		writeValidationError(r.Context(), w, "post_message", err)
		return
	}

	thread, err := h.messaging.GetThread(r.Context(), threadID)
	if err != nil {
		writeMappedError(r.Context(), w, "post_message", err)
		return
	}
	message, err := h.messaging.PostMessage(r.Context(), thread, author, req.Body)
	if err != nil {
		writeMappedError(r.Context(), w, "post_message", err)
		return
	}
	writeSuccess(w, http.StatusCreated, messageResource(message))
}

func (h *Handler) markThreadRead(w http.ResponseWriter, r *http.Request) {
	user, ok := userFromContext(r.Context())
	if !ok {
		writeMissingBearerError(r.Context(), w, "mark_thread_read")
		return
	}
	threadID, err := threadIDFromRequest(r)
	if err != nil {
		writeValidationError(r.Context(), w, "mark_thread_read", err)
		return
	}

	thread, err := h.messaging.GetThread(r.Context(), threadID)
	if err != nil {
		writeMappedError(r.Context(), w, "mark_thread_read", err)
		return
	}
	participant, err := h.messaging.MarkThreadRead(r.Context(), thread, user.UserID)
	if err != nil {
		writeMappedError(r.Context(), w, "mark_thread_read", err)
		return
	}
	writeSuccess(w, http.StatusOK, participantResource(participant))
}

func (h *Handler) myThreads(w http.ResponseWriter, r *http.Request) {
	user, ok := userFromContext(r.Context())
	if !ok {
		writeMissingBearerError(r.Context(), w, "my_threads")
		return
	}
	page := parseIntDefault(r.URL.Query().Get("page"), 1)
	result, err := h.messaging.ListThreadsForUser(r.Context(), user.UserID, page)
	if err != nil {
		writeMappedError(r.Context(), w, "my_threads", err)
		return
	}
	writePage(w, http.StatusOK, threadResources(result.Threads), result.Total, result.Page, result.PageSize)
}

func (h *Handler) myUnreadThreads(w http.ResponseWriter, r *http.Request) {
	user, ok := userFromContext(r.Context())
	if !ok {
		writeMissingBearerError(r.Context(), w, "my_unread_threads")
		return
	}
	threads, err := h.messaging.ListUnreadThreadsForUser(r.Context(), user.UserID)
	if err != nil {
		writeMappedError(r.Context(), w, "my_unread_threads", err)
		return
	}
	writeSuccess(w, http.StatusOK, threadResources(threads))
}

func (h *Handler) markAllThreadsRead(w http.ResponseWriter, r *http.Request) {
	user, ok := userFromContext(r.Context())
	if !ok {
		writeMissingBearerError(r.Context(), w, "mark_all_threads_read")
		return
	}
	updated, err := h.messaging.MarkAllThreadsRead(r.Context(), user.UserID)
	if err != nil {
		writeMappedError(r.Context(), w, "mark_all_threads_read", err)
		return
	}
	writeSuccess(w, http.StatusOK, map[string]any{"updated": updated})
}

func (h *Handler) myContacts(w http.ResponseWriter, r *http.Request) {
	user, ok := userFromContext(r.Context())
	if !ok {
		writeMissingBearerError(r.Context(), w, "my_contacts")
		return
	}
	page := parseIntDefault(r.URL.Query().Get("page"), 1)
	result, err := h.messaging.ListAllPossibleParticipants(r.Context(), user.UserID, page)
	if err != nil {
		writeMappedError(r.Context(), w, "my_contacts", err)
		return
	}
	writePage(w, http.StatusOK, userResources(result.Users), result.Total, result.Page, result.PageSize)
}

func threadIDFromRequest(r *http.Request) (uuid.UUID, error) {
	raw := chi.URLParam(r, "thread_id")
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: invalid thread id %q", domain.ErrInvalidInput, raw)
	}
	return id, nil
}
