// Package platformtest provides a scriptable in-memory Platform for tests.
package platformtest

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/spec-kit/guild-tickets/internal/platform"
)

// Fake implements platform.Platform. Each method runs its Func field when set
// and otherwise behaves like a small consistent guild: created channels can be
// looked up, deleted channels disappear. Every call is recorded.
type Fake struct {
	CreateStaffRoleFunc     func(ctx context.Context, guildID string) (string, error)
	CreateCategoryFunc      func(ctx context.Context, guildID string) (string, error)
	LookupChannelFunc       func(ctx context.Context, guildID, channelID string) (*platform.Channel, error)
	CreateTicketChannelFunc func(ctx context.Context, spec platform.TicketChannelSpec) (string, error)
	DeleteChannelFunc       func(ctx context.Context, channelID string) error
	RenameChannelFunc       func(ctx context.Context, channelID, name string) error
	GrantAccessFunc         func(ctx context.Context, channelID, userID string) error
	RevokeAccessFunc        func(ctx context.Context, channelID, userID string) error
	SendMessageFunc         func(ctx context.Context, channelID, content string) error
	ChannelMessagesFunc     func(ctx context.Context, channelID string, limit int) ([]platform.Message, error)

	mu       sync.Mutex
	nextID   int
	channels map[string]platform.Channel
	calls    []string
	specs    []platform.TicketChannelSpec
	sent     []SentMessage
}

// SentMessage is one recorded SendMessage call.
type SentMessage struct {
	ChannelID string
	Content   string
	Buttons   []platform.Button
}

// NewFake returns an empty fake guild.
func NewFake() *Fake {
	return &Fake{channels: make(map[string]platform.Channel)}
}

// AddChannel seeds an existing channel.
func (f *Fake) AddChannel(ch platform.Channel) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.channels[ch.ID] = ch
}

// Calls returns the recorded calls as "Method:arg".
func (f *Fake) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string{}, f.calls...)
}

// Count returns how many recorded calls start with prefix.
func (f *Fake) Count(prefix string) int {
	n := 0
	for _, call := range f.Calls() {
		if strings.HasPrefix(call, prefix) {
			n++
		}
	}
	return n
}

// Specs returns every ticket channel spec passed to CreateTicketChannel.
func (f *Fake) Specs() []platform.TicketChannelSpec {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]platform.TicketChannelSpec{}, f.specs...)
}

// Sent returns every message passed to SendMessage.
func (f *Fake) Sent() []SentMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]SentMessage{}, f.sent...)
}

func (f *Fake) record(call string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
}

func (f *Fake) newID(kind string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	return fmt.Sprintf("%s-%d", kind, f.nextID)
}

func (f *Fake) CreateStaffRole(ctx context.Context, guildID string) (string, error) {
	f.record("CreateStaffRole:" + guildID)
	if f.CreateStaffRoleFunc != nil {
		return f.CreateStaffRoleFunc(ctx, guildID)
	}
	return f.newID("role"), nil
}

func (f *Fake) CreateCategory(ctx context.Context, guildID string) (string, error) {
	f.record("CreateCategory:" + guildID)
	if f.CreateCategoryFunc != nil {
		return f.CreateCategoryFunc(ctx, guildID)
	}
	id := f.newID("category")
	f.AddChannel(platform.Channel{ID: id, Name: platform.TicketsCategory, IsCategory: true})
	return id, nil
}

func (f *Fake) LookupChannel(ctx context.Context, guildID, channelID string) (*platform.Channel, error) {
	f.record("LookupChannel:" + channelID)
	if f.LookupChannelFunc != nil {
		return f.LookupChannelFunc(ctx, guildID, channelID)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	ch, ok := f.channels[channelID]
	if !ok {
		return nil, platform.ErrResourceNotFound
	}
	return &ch, nil
}

func (f *Fake) CreateTicketChannel(ctx context.Context, spec platform.TicketChannelSpec) (string, error) {
	f.record("CreateTicketChannel:" + spec.Name)
	f.mu.Lock()
	f.specs = append(f.specs, spec)
	f.mu.Unlock()
	if f.CreateTicketChannelFunc != nil {
		return f.CreateTicketChannelFunc(ctx, spec)
	}
	id := f.newID("channel")
	f.AddChannel(platform.Channel{ID: id, Name: spec.Name})
	return id, nil
}

func (f *Fake) DeleteChannel(ctx context.Context, channelID string) error {
	f.record("DeleteChannel:" + channelID)
	if f.DeleteChannelFunc != nil {
		return f.DeleteChannelFunc(ctx, channelID)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.channels, channelID)
	return nil
}

func (f *Fake) RenameChannel(ctx context.Context, channelID, name string) error {
	f.record("RenameChannel:" + channelID + ":" + name)
	if f.RenameChannelFunc != nil {
		return f.RenameChannelFunc(ctx, channelID, name)
	}
	return nil
}

func (f *Fake) GrantAccess(ctx context.Context, channelID, userID string) error {
	f.record("GrantAccess:" + channelID + ":" + userID)
	if f.GrantAccessFunc != nil {
		return f.GrantAccessFunc(ctx, channelID, userID)
	}
	return nil
}

func (f *Fake) RevokeAccess(ctx context.Context, channelID, userID string) error {
	f.record("RevokeAccess:" + channelID + ":" + userID)
	if f.RevokeAccessFunc != nil {
		return f.RevokeAccessFunc(ctx, channelID, userID)
	}
	return nil
}

func (f *Fake) SendMessage(ctx context.Context, channelID, content string, buttons ...platform.Button) error {
	f.record("SendMessage:" + channelID)
	f.mu.Lock()
	f.sent = append(f.sent, SentMessage{ChannelID: channelID, Content: content, Buttons: buttons})
	f.mu.Unlock()
	if f.SendMessageFunc != nil {
		return f.SendMessageFunc(ctx, channelID, content)
	}
	return nil
}

func (f *Fake) ChannelMessages(ctx context.Context, channelID string, limit int) ([]platform.Message, error) {
	f.record("ChannelMessages:" + channelID)
	if f.ChannelMessagesFunc != nil {
		return f.ChannelMessagesFunc(ctx, channelID, limit)
	}
	return nil, nil
}

var _ platform.Platform = (*Fake)(nil)
