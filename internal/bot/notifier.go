package bot

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"reelbot/internal/common"
	"reelbot/internal/notify"
)

var (
	ErrNoChannel   = errors.New("guild has no announcement channel")
	ErrRateLimited = errors.New("announcement dropped by the rate limiter")
)

// How long a reply may wait for the rate limiter
const replyTimeout = 30 * time.Second

// Notifier posts to Discord. Every channel has its own rate limiter:
// announcements are dropped when over the limit, replies wait their turn
type Notifier struct {
	messenger    Messenger
	channels     *Channels
	restrictions []common.Restriction
	clock        common.Clock

	mu       sync.Mutex
	limiters map[string]*common.RateLimiter
}

func NewNotifier(messenger Messenger, channels *Channels, restrictions []common.Restriction, clock common.Clock) *Notifier {
	return &Notifier{
		messenger:    messenger,
		channels:     channels,
		restrictions: restrictions,
		clock:        clock,
		limiters:     make(map[string]*common.RateLimiter),
	}
}

func (n *Notifier) limiter(channelID string) *common.RateLimiter {
	n.mu.Lock()
	defer n.mu.Unlock()
	rl, ok := n.limiters[channelID]
	if !ok {
		rl = common.NewRateLimiter(n.restrictions, n.clock)
		n.limiters[channelID] = rl
	}
	return rl
}

func (n *Notifier) Send(guildID string, content string) (notify.Handle, error) {
	channelID, ok := n.channels.Get(guildID)
	if !ok {
		return notify.Handle{}, fmt.Errorf("%w: %s", ErrNoChannel, guildID)
	}
	if !n.limiter(channelID).Allowed(context.Background(), false) {
		log.Info().Msg(fmt.Sprintf("Dropping announcement for guild %s", guildID))
		return notify.Handle{}, ErrRateLimited
	}
	return n.post(channelID, content)
}

func (n *Notifier) Reply(channelID string, content string) (notify.Handle, error) {
	ctx, cancel := context.WithTimeout(context.Background(), replyTimeout)
	defer cancel()
	if !n.limiter(channelID).Allowed(ctx, true) {
		return notify.Handle{}, ctx.Err()
	}
	return n.post(channelID, content)
}

func (n *Notifier) post(channelID string, content string) (notify.Handle, error) {
	messageID, err := n.messenger.Send(channelID, content)
	if err != nil {
		return notify.Handle{}, fmt.Errorf("send to channel %s: %w", channelID, err)
	}
	return notify.Handle{ChannelID: channelID, MessageID: messageID}, nil
}

func (n *Notifier) Edit(handle notify.Handle, content string) error {
	return n.messenger.Edit(handle.ChannelID, handle.MessageID, content)
}

func (n *Notifier) Delete(handle notify.Handle) error {
	return n.messenger.Delete(handle.ChannelID, handle.MessageID)
}

func (n *Notifier) React(handle notify.Handle, emoji string) error {
	return n.messenger.React(handle.ChannelID, handle.MessageID, emoji)
}

// Send command responses to a channel, as replies
func (n *Notifier) Respond(channelID string, responses []Response) {
	ctx, cancel := context.WithTimeout(context.Background(), replyTimeout)
	defer cancel()
	for _, response := range responses {
		if !n.limiter(channelID).Allowed(ctx, true) {
			log.Warn().Msg(fmt.Sprintf("Gave up responding in channel %s", channelID))
			return
		}
		if err := response.Send(channelID, n.messenger); err != nil {
			log.Error().Err(err).Msg(fmt.Sprintf("Could not respond in channel %s", channelID))
		}
	}
}
