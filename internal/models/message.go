package models

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
)

// Message filter views.
const (
	MessageFilterUnread   = "unread"
	MessageFilterRead     = "read"
	MessageFilterStarred  = "starred"
	MessageFilterArchived = "archived"
)

// MessageFilters lists the message views in sidebar order.
var MessageFilters = []string{FilterAll, MessageFilterUnread, MessageFilterRead, MessageFilterStarred, MessageFilterArchived}

// Message is a contact-form submission from a site visitor.
type Message struct {
	ID         string    `json:"_id,omitempty"`
	Name       string    `json:"name"`
	Email      string    `json:"email"`
	Subject    string    `json:"subject"`
	Message    string    `json:"message"`
	IsRead     bool      `json:"isRead"`
	IsStarred  bool      `json:"isStarred"`
	IsArchived bool      `json:"isArchived"`
	CreatedAt  time.Time `json:"createdAt"`
}

func (m Message) GetID() string { return m.ID }

func (m Message) Validate() error {
	return validation.ValidateStruct(&m,
		validation.Field(&m.Name, validation.Required),
		validation.Field(&m.Email, validation.Required, is.EmailFormat),
		validation.Field(&m.Subject, validation.Required),
		validation.Field(&m.Message, validation.Required),
	)
}

func (m Message) SearchText() string {
	return joinText(m.Name, m.Email, m.Subject, m.Message)
}

// MatchesFilter implements the inbox views. Archived messages only appear in
// the archived view.
func (m Message) MatchesFilter(filter string) bool {
	switch filter {
	case "", FilterAll:
		return !m.IsArchived
	case MessageFilterUnread:
		return !m.IsRead && !m.IsArchived
	case MessageFilterRead:
		return m.IsRead && !m.IsArchived
	case MessageFilterStarred:
		return m.IsStarred && !m.IsArchived
	case MessageFilterArchived:
		return m.IsArchived
	default:
		return false
	}
}

func (m Message) FlagValue(flag string) (bool, bool) {
	switch flag {
	case "read":
		return m.IsRead, true
	case "starred":
		return m.IsStarred, true
	case "archived":
		return m.IsArchived, true
	}
	return false, false
}

func (m Message) FlagPatch(flag string, v bool) map[string]any {
	switch flag {
	case "read":
		return map[string]any{"isRead": v}
	case "starred":
		return map[string]any{"isStarred": v}
	case "archived":
		return map[string]any{"isArchived": v}
	}
	return nil
}
