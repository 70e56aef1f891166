// Package interaction turns platform interactions (buttons, modal submits and
// slash commands) into service calls and renders their outcome.
package interaction

import (
	"github.com/spec-kit/guild-tickets/internal/platform"
)

// GenericFailure is shown for any error whose message is not meant for users.
const GenericFailure = "Something went wrong. Please try again or contact staff."

// Field ids used in modals.
const (
	FieldReason = "reason"
	FieldUserID = "user_id"
)

// ModalField is one text input of a modal.
type ModalField struct {
	ID        string
	Label     string
	Paragraph bool
	Required  bool
	MaxLength int
}

// Modal asks the user for input. Its CustomID is the token of the button
// that opened it, so the submit routes back to the same action.
type Modal struct {
	CustomID string
	Title    string
	Fields   []ModalField
}

// File is an attachment sent with a response.
type File struct {
	Name    string
	Content []byte
}

// Response is what the platform adapter sends back. Exactly one of Modal or
// Content (optionally with File and Buttons) is used.
type Response struct {
	Content   string
	Ephemeral bool
	Modal     *Modal
	File      *File
	Buttons   []platform.Button
}

func ephemeral(content string) *Response {
	return &Response{Content: content, Ephemeral: true}
}
