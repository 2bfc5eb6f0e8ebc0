package api

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/folio/internal/notify"
	"github.com/starford/folio/internal/panel"
)

// SwitchRequest is the request body for changing the active panel.
type SwitchRequest struct {
	Active string `json:"active" example:"skills" validate:"required"`
}

// Validate checks the request.
func (r SwitchRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Active, validation.Required),
	)
}

// ReorderRequest carries the full new order of a panel.
type ReorderRequest struct {
	IDs []string `json:"ids" validate:"required"`
}

// Validate checks the request.
func (r ReorderRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.IDs, validation.Required, validation.Each(validation.Required)),
	)
}

// SelectRequest marks the record shown in the detail view. An empty id
// clears the selection.
type SelectRequest struct {
	ID string `json:"id" example:"65a1f0"`
}

// NavItem is one sidebar entry.
type NavItem struct {
	panel.Spec
	Active bool `json:"active"`
	Badge  int  `json:"badge,omitempty"`
}

// ShellResponse describes the navigation shell of the signed-in operator.
type ShellResponse struct {
	Operator string    `json:"operator" example:"admin" validate:"required"`
	Active   string    `json:"active" example:"messages" validate:"required"`
	Panels   []NavItem `json:"panels" validate:"required"`
}

// NotificationListResponse wraps the live notifications.
type NotificationListResponse struct {
	Notifications []notify.Notification `json:"notifications" validate:"required"`
}
