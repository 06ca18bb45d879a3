// Package notify defines how the game talks back to a guild.
package notify

// Handle points at a message that has been posted
type Handle struct {
	ChannelID string
	MessageID string
}

func (h Handle) IsZero() bool {
	return h.MessageID == ""
}

// Notifier is the sink for everything the game posts.
// Send goes to the guild's announcement channel, Reply to a specific channel
type Notifier interface {
	Send(guildID string, content string) (Handle, error)
	Reply(channelID string, content string) (Handle, error)
	Edit(handle Handle, content string) error
	Delete(handle Handle) error
	React(handle Handle, emoji string) error
}
