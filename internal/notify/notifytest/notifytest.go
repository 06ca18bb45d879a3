// Package notifytest provides an in-memory notify.Notifier for tests.
package notifytest

import (
	"errors"
	"fmt"
	"sync"

	"reelbot/internal/notify"
)

var _ notify.Notifier = (*Memory)(nil)

var ErrUnknownMessage = errors.New("unknown message")

type Message struct {
	Handle    notify.Handle
	GuildID   string
	Content   string
	Reactions []string
	Deleted   bool
}

// Memory is a notify.Notifier that keeps every message in memory. Announcement channels are
// named after the guild
type Memory struct {
	mu       sync.Mutex
	next     int
	messages []*Message
	Fail     error
}

func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) Send(guildID string, content string) (notify.Handle, error) {
	return m.post(guildID, "announcements-"+guildID, content)
}

func (m *Memory) Reply(channelID string, content string) (notify.Handle, error) {
	return m.post("", channelID, content)
}

func (m *Memory) post(guildID string, channelID string, content string) (notify.Handle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Fail != nil {
		return notify.Handle{}, m.Fail
	}
	m.next++
	handle := notify.Handle{ChannelID: channelID, MessageID: fmt.Sprint(m.next)}
	m.messages = append(m.messages, &Message{Handle: handle, GuildID: guildID, Content: content})
	return handle, nil
}

func (m *Memory) Edit(handle notify.Handle, content string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	msg := m.find(handle)
	if msg == nil {
		return ErrUnknownMessage
	}
	msg.Content = content
	return nil
}

func (m *Memory) Delete(handle notify.Handle) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	msg := m.find(handle)
	if msg == nil {
		return ErrUnknownMessage
	}
	msg.Deleted = true
	return nil
}

func (m *Memory) React(handle notify.Handle, emoji string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	msg := m.find(handle)
	if msg == nil {
		return ErrUnknownMessage
	}
	msg.Reactions = append(msg.Reactions, emoji)
	return nil
}

func (m *Memory) find(handle notify.Handle) *Message {
	for _, msg := range m.messages {
		if msg.Handle == handle {
			return msg
		}
	}
	return nil
}

// Messages returns copies of every message posted so far, deleted ones included
func (m *Memory) Messages() []Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]Message, 0, len(m.messages))
	for _, msg := range m.messages {
		result = append(result, *msg)
	}
	return result
}

// Get returns a copy of one message
func (m *Memory) Get(handle notify.Handle) (Message, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if msg := m.find(handle); msg != nil {
		return *msg, true
	}
	return Message{}, false
}
