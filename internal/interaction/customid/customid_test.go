package customid

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParse(t *testing.T) {
	tests := []struct {
		in     string
		want   Token
		wantOK bool
	}{
		{"ticket:open", Token{Action: ActionOpen}, true},
		{"ticket:close:12", Token{Action: ActionClose, ID: 12}, true},
		{"ticket:close:", Token{Action: ActionClose}, true},
		{"ticket:openpanel:3", Token{Action: ActionOpenPanel, ID: 3}, true},
		{"ticket:openpanel", Token{}, false},
		{"ticket:explode:1", Token{}, false},
		{"ticket:close:abc", Token{}, false},
		{"ticket:close:-4", Token{}, false},
		{"ticket:close:1:2", Token{}, false},
		{"poll:close:1", Token{}, false},
		{"", Token{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := Parse(tt.in)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFormatRoundTrip(t *testing.T) {
	for action := range known {
		token := Token{Action: action, ID: 42}
		got, ok := Parse(token.String())
		assert.True(t, ok)
		assert.Equal(t, token, got)
	}
	assert.Equal(t, "ticket:open", Format(ActionOpen, 0))
	assert.Equal(t, "ticket:claim:9", Format(ActionClaim, 9))
}
