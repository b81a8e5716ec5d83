package postgres

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/ikidnapmyself/pp-api/internal/domain"
	"gorm.io/gorm"
)

func toDomainUser(row userModel) domain.User {
	email := ""
	if row.Email != nil {
		email = *row.Email
	}
	return domain.User{
		UserID:       row.UserID,
		Name:         row.Name,
		Email:        email,
		ProviderName: row.ProviderName,
		ProviderID:   row.ProviderID,
		AccessToken:  row.AccessToken,
		RefreshToken: row.RefreshToken,
		Profile:      decodeJSONMap(row.Profile),
		NotifyVia:    decodeJSONStrings(row.NotifyVia),
		CreatedAt:    row.CreatedAt,
		UpdatedAt:    row.UpdatedAt,
	}
}

func toDomainThread(row threadModel) domain.Thread {
	return domain.Thread{
		ThreadID:  row.ThreadID,
		Subject:   row.Subject,
		CreatedAt: row.CreatedAt,
		UpdatedAt: row.UpdatedAt,
	}
}

func toDomainParticipant(row participantModel) domain.Participant {
	return domain.Participant{
		ParticipantID: row.ParticipantID,
		ThreadID:      row.ThreadID,
		UserID:        row.UserID,
		LastRead:      row.LastRead,
		ArchivedAt:    row.ArchivedAt,
		CreatedAt:     row.CreatedAt,
		UpdatedAt:     row.UpdatedAt,
	}
}

func toDomainMessage(row messageModel) domain.Message {
	body := map[string]any{}
	_ = json.Unmarshal([]byte(row.Body), &body)
	return domain.Message{
		MessageID: row.MessageID,
		ThreadID:  row.ThreadID,
		UserID:    row.UserID,
		Body:      body,
		CreatedAt: row.CreatedAt,
		UpdatedAt: row.UpdatedAt,
	}
}

func toDomainClient(row oauthClientModel) domain.Client {
	return domain.Client{
		ClientID:    row.ClientID,
		UserID:      row.UserID,
		Name:        row.Name,
		SecretHash:  row.SecretHash,
		RedirectURI: row.RedirectURI,
		CreatedAt:   row.CreatedAt,
		UpdatedAt:   row.UpdatedAt,
	}
}

func encodeJSONMap(m map[string]any) *string {
	if len(m) == 0 {
		return nil
	}
	raw, err := json.Marshal(m)
	if err != nil {
		return nil
	}
	encoded := string(raw)
	return &encoded
}

func decodeJSONMap(raw *string) map[string]any {
	if raw == nil || *raw == "" {
		return nil
	}
	m := map[string]any{}
	if err := json.Unmarshal([]byte(*raw), &m); err != nil {
		return nil
	}
	return m
}

func encodeJSONStrings(values []string) *string {
	if len(values) == 0 {
		return nil
	}
	raw, err := json.Marshal(values)
	if err != nil {
		return nil
	}
	encoded := string(raw)
	return &encoded
}

func decodeJSONStrings(raw *string) []string {
	if raw == nil || *raw == "" {
		return nil
	}
	var values []string
	if err := json.Unmarshal([]byte(*raw), &values); err != nil {
		return nil
	}
	return values
}

func nullableString(v string) *string {
	trimmed := strings.TrimSpace(v)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func isUniqueViolation(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey)
}
