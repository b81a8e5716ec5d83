package http

import (
	"time"

	"github.com/ikidnapmyself/pp-api/internal/domain"
)

// resource is the envelope every API object is serialized into. Ids travel as
// strings so consumers never touch raw uuid bytes.
type resource struct {
	Type       string         `json:"type"`
	ID         string         `json:"id"`
	Attributes map[string]any `json:"attributes"`
}

// userResource never exposes provider credentials; the tokens stay server-side.
func userResource(user domain.User) resource {
	return resource{
		Type: "users",
		ID:   user.UserID.String(),
		Attributes: map[string]any{
			"name":          user.Name,
			"email":         user.Email,
			"provider_name": user.ProviderName,
			"provider_id":   user.ProviderID,
			"profile":       user.Profile,
			"notify_via":    user.NotifyVia,
			"created_at":    user.CreatedAt,
			"updated_at":    user.UpdatedAt,
		},
	}
}

func userResources(users []domain.User) []resource {
	out := make([]resource, 0, len(users))
	for _, user := range users {
		out = append(out, userResource(user))
	}
	return out
}

func threadResource(thread domain.Thread) resource {
	attributes := map[string]any{
		"subject":    thread.Subject,
		"created_at": thread.CreatedAt,
		"updated_at": thread.UpdatedAt,
	}
	if len(thread.Participants) > 0 {
		attributes["participants"] = participantResources(thread.Participants)
	}
	if len(thread.Messages) > 0 {
		attributes["messages"] = messageResources(thread.Messages)
	}
	return resource{
		Type:       "threads",
		ID:         thread.ThreadID.String(),
		Attributes: attributes,
	}
}

func threadResources(threads []domain.Thread) []resource {
	out := make([]resource, 0, len(threads))
	for _, thread := range threads {
		out = append(out, threadResource(thread))
	}
	return out
}

func participantResource(participant domain.Participant) resource {
	attributes := map[string]any{
		"thread_id":   participant.ThreadID.String(),
		"user_id":     participant.UserID.String(),
		"last_read":   timeOrNil(participant.LastRead),
		"archived_at": timeOrNil(participant.ArchivedAt),
		"created_at":  participant.CreatedAt,
		"updated_at":  participant.UpdatedAt,
	}
	// Relations appear only when the lookup eagerly loaded them.
	if participant.User != nil {
		attributes["user"] = userResource(*participant.User)
	}
	if participant.Thread != nil {
		attributes["thread"] = threadResource(*participant.Thread)
	}
	return resource{
		Type:       "participants",
		ID:         participant.ParticipantID.String(),
		Attributes: attributes,
	}
}

func participantResources(participants []domain.Participant) []resource {
	out := make([]resource, 0, len(participants))
	for _, participant := range participants {
		out = append(out, participantResource(participant))
	}
	return out
}

func messageResource(message domain.Message) resource {
	return resource{
		Type: "messages",
		ID:   message.MessageID.String(),
		Attributes: map[string]any{
			"thread_id":  message.ThreadID.String(),
			"user_id":    message.UserID.String(),
			"body":       message.Body,
			"created_at": message.CreatedAt,
			"updated_at": message.UpdatedAt,
		},
	}
}

func messageResources(messages []domain.Message) []resource {
	out := make([]resource, 0, len(messages))
	for _, message := range messages {
		out = append(out, messageResource(message))
	}
	return out
}

func timeOrNil(t *time.Time) any {
	if t == nil {
		return nil
	}
	return *t
}
