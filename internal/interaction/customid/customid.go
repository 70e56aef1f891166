// Package customid encodes the ticket action tokens carried by buttons and
// modals: "ticket:<action>" or "ticket:<action>:<id>".
package customid

import (
	"strconv"
	"strings"
)

const scope = "ticket"

// Action names a ticket interaction.
type Action string

const (
	ActionOpen        Action = "open"
	ActionOpenPanel   Action = "openpanel"
	ActionClose       Action = "close"
	ActionCloseReason Action = "closereason"
	ActionReopen      Action = "reopen"
	ActionClaim       Action = "claim"
	ActionUnclaim     Action = "unclaim"
	ActionAddUser     Action = "adduser"
	ActionRemoveUser  Action = "removeuser"
	ActionTranscript  Action = "transcript"
)

var known = map[Action]bool{
	ActionOpen:        true,
	ActionOpenPanel:   true,
	ActionClose:       true,
	ActionCloseReason: true,
	ActionReopen:      true,
	ActionClaim:       true,
	ActionUnclaim:     true,
	ActionAddUser:     true,
	ActionRemoveUser:  true,
	ActionTranscript:  true,
}

// Token is a parsed custom id. ID is the ticket id, or the panel id for
// ActionOpenPanel, and is zero when the token carries none.
type Token struct {
	Action Action
	ID     int64
}

// HasID reports whether the token names a ticket or panel.
func (t Token) HasID() bool { return t.ID > 0 }

// String renders the token.
func (t Token) String() string {
	if t.ID > 0 {
		return scope + ":" + string(t.Action) + ":" + strconv.FormatInt(t.ID, 10)
	}
	return scope + ":" + string(t.Action)
}

// Format is shorthand for Token{action, id}.String().
func Format(action Action, id int64) string {
	return Token{Action: action, ID: id}.String()
}

// Parse decodes a custom id. Anything outside the ticket scope, an unknown
// action or a malformed id yields ok=false and must be ignored.
func Parse(customID string) (Token, bool) {
	parts := strings.Split(customID, ":")
	if len(parts) < 2 || len(parts) > 3 || parts[0] != scope {
		return Token{}, false
	}
	action := Action(parts[1])
	if !known[action] {
		return Token{}, false
	}
	token := Token{Action: action}
	if len(parts) == 3 && parts[2] != "" {
		id, err := strconv.ParseInt(parts[2], 10, 64)
		if err != nil || id <= 0 {
			return Token{}, false
		}
		token.ID = id
	}
	if action == ActionOpenPanel && token.ID == 0 {
		return Token{}, false
	}
	return token, true
}
