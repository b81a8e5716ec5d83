package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/ikidnapmyself/pp-api/internal/domain"
)

func TestUserResourceHidesProviderCredentials(t *testing.T) {
	t.Parallel()
	refresh := "provider-refresh"
	user := domain.User{
		UserID:       uuid.New(),
		Name:         "octo",
		Email:        "octo@example.com",
		ProviderName: "github",
		ProviderID:   "42",
		AccessToken:  "provider-access",
		RefreshToken: &refresh,
		CreatedAt:    time.Now().UTC(),
		UpdatedAt:    time.Now().UTC(),
	}

	raw, err := json.Marshal(userResource(user))
	if err != nil {
		t.Fatalf("marshal user resource: %v", err)
	}
	body := string(raw)
	if strings.Contains(body, "provider-access") || strings.Contains(body, "provider-refresh") {
		t.Fatalf("serialized user must not leak provider tokens: %s", body)
	}
	if !strings.Contains(body, `"id":"`+user.UserID.String()+`"`) {
		t.Fatalf("expected string id in resource: %s", body)
	}
	if !strings.Contains(body, `"type":"users"`) {
		t.Fatalf("expected users type: %s", body)
	}
}

func TestThreadResourceAttachesRelationsOnlyWhenLoaded(t *testing.T) {
	t.Parallel()
	thread := domain.Thread{ThreadID: uuid.New(), Subject: "plain"}

	bare := threadResource(thread)
	if _, ok := bare.Attributes["participants"]; ok {
		t.Fatalf("unloaded participants must be omitted")
	}
	if _, ok := bare.Attributes["messages"]; ok {
		t.Fatalf("unloaded messages must be omitted")
	}

	thread.Participants = []domain.Participant{{ParticipantID: uuid.New(), ThreadID: thread.ThreadID, UserID: uuid.New()}}
	thread.Messages = []domain.Message{{MessageID: uuid.New(), ThreadID: thread.ThreadID, Body: map[string]any{"text": "hi"}}}

	loaded := threadResource(thread)
	if _, ok := loaded.Attributes["participants"]; !ok {
		t.Fatalf("eagerly loaded participants must be embedded")
	}
	if _, ok := loaded.Attributes["messages"]; !ok {
		t.Fatalf("eagerly loaded messages must be embedded")
	}
}

func TestParticipantResourceNullsUnsetTimestamps(t *testing.T) {
	t.Parallel()
	participant := domain.Participant{
		ParticipantID: uuid.New(),
		ThreadID:      uuid.New(),
		UserID:        uuid.New(),
	}

	res := participantResource(participant)
	if res.Attributes["last_read"] != nil {
		t.Fatalf("unset last_read must serialize as null")
	}
	if res.Attributes["archived_at"] != nil {
		t.Fatalf("unset archived_at must serialize as null")
	}
	if _, ok := res.Attributes["user"]; ok {
		t.Fatalf("user relation must be omitted when not loaded")
	}
}

func TestMapDomainError(t *testing.T) {
	t.Parallel()
	cases := []struct {
		err    error
		status int
		code   string
	}{
		{fmt.Errorf("%w: subject is required", domain.ErrInvalidInput), http.StatusBadRequest, "VALIDATION_ERROR"},
		{domain.ErrUnauthorized, http.StatusUnauthorized, "UNAUTHORIZED"},
		{domain.ErrRateLimited, http.StatusTooManyRequests, "RATE_LIMITED"},
		{domain.ErrConflict, http.StatusConflict, "CONFLICT"},
		{domain.ErrNotFound, http.StatusNotFound, "NOT_FOUND"},
		{errors.New("boom"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}
	for _, tc := range cases {
		status, code, _ := mapDomainError(tc.err)
		if status != tc.status || code != tc.code {
			t.Fatalf("mapDomainError(%v) = %d/%s, want %d/%s", tc.err, status, code, tc.status, tc.code)
		}
	}
}

func TestBearerTokenFromHeader(t *testing.T) {
	t.Parallel()
	if _, err := bearerTokenFromHeader(""); err == nil {
		t.Fatalf("empty header must be rejected")
	}
	if _, err := bearerTokenFromHeader("Basic abc"); err == nil {
		t.Fatalf("non-bearer scheme must be rejected")
	}
	if _, err := bearerTokenFromHeader("Bearer "); err == nil {
		t.Fatalf("blank token must be rejected")
	}
	token, err := bearerTokenFromHeader("Bearer abc.def")
	if err != nil {
		t.Fatalf("valid header returned error: %v", err)
	}
	if token != "abc.def" {
		t.Fatalf("unexpected token %q", token)
	}
}
