package bot

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog/log"

	"reelbot/internal/common"
	"reelbot/internal/database"
	"reelbot/internal/fishing"
	"reelbot/internal/scheduler"
	"reelbot/internal/treasure"
)

const intents = discordgo.IntentsGuilds |
	discordgo.IntentsGuildMessages |
	discordgo.IntentsGuildMessageReactions |
	discordgo.IntentMessageContent

type Bot struct {
	session      *discordgo.Session
	game         *Game
	notifier     *Notifier
	presence     *Presence
	channels     *Channels
	database     *database.Database
	schedulers   *scheduler.Manager
	treasure     *treasure.Orchestrator
	spawner      *fishing.Spawner
	housekeeping common.TimedExecutor
	mainCycle    time.Duration

	// Context of the running session, handed to the schedulers it starts
	ctx context.Context
}

type BotDeps struct {
	Session      *discordgo.Session
	Game         *Game
	Notifier     *Notifier
	Presence     *Presence
	Channels     *Channels
	Database     *database.Database
	Schedulers   *scheduler.Manager
	Treasure     *treasure.Orchestrator
	Spawner      *fishing.Spawner
	Clock        common.Clock
	Housekeeping time.Duration
	MainCycle    time.Duration
}

func NewBot(deps BotDeps) *Bot {
	bot := &Bot{
		session:    deps.Session,
		game:       deps.Game,
		notifier:   deps.Notifier,
		presence:   deps.Presence,
		channels:   deps.Channels,
		database:   deps.Database,
		schedulers: deps.Schedulers,
		treasure:   deps.Treasure,
		spawner:    deps.Spawner,
		mainCycle:  deps.MainCycle,
		ctx:        context.Background(),
	}
	bot.housekeeping = common.NewTimedExecutor(deps.Housekeeping, deps.Clock, bot.runHousekeeping)
	return bot
}

// Create a session that is not connected yet
func NewSession(token string) (*discordgo.Session, error) {
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("could not create discord session: %w", err)
	}
	session.Identify.Intents = intents
	return session, nil
}

// Run the bot until the context is cancelled
func (bot *Bot) Run(ctx context.Context) error {
	bot.ctx = ctx

	// Event handlers
	bot.session.AddHandler(bot.receive)
	bot.session.AddHandler(bot.reactionAdded)
	bot.session.AddHandler(bot.guildCreated)
	bot.session.AddHandler(bot.guildDeleted)

	// Open session
	if err := bot.session.Open(); err != nil {
		return fmt.Errorf("could not open discord session: %w", err)
	}
	defer bot.session.Close()
	defer bot.schedulers.StopAll()

	log.Info().Msg("Starting main loop")
	ticker := time.NewTicker(bot.mainCycle)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("Shutting down")
			return nil
		case <-ticker.C:
			bot.housekeeping.Execute()
		}
	}
}

func (bot *Bot) runHousekeeping() {
	if pruned := bot.presence.Prune(); pruned > 0 {
		log.Debug().Msg(fmt.Sprintf("Forgot %d inactive players", pruned))
	}
	// Spawns whose activity never ended, e.g. after a scheduler stopped
	if expired := bot.spawner.Sweep(bot.ctx); expired > 0 {
		log.Info().Msg(fmt.Sprintf("Swept %d expired fish populations", expired))
	}
}

func (bot *Bot) receive(discord *discordgo.Session, message *discordgo.MessageCreate) {

	// Reject my own messages and the ones of other bots
	if message.Author == nil || message.Author.Bot || message.Author.ID == discord.State.User.ID {
		return
	}

	// Ignore messages from private channels
	if message.GuildID == "" {
		log.Debug().Msg("Ignoring private message")
		bot.notifier.Respond(message.ChannelID, []Response{ResponseString{"For the time being, I am ignoring private messages"}})
		return
	}

	responses := bot.game.Handle(bot.ctx, message.GuildID, message.ChannelID, message.Author.ID, message.Content)
	bot.notifier.Respond(message.ChannelID, responses)
}

func (bot *Bot) reactionAdded(discord *discordgo.Session, reaction *discordgo.MessageReactionAdd) {
	if reaction.GuildID == "" {
		return
	}
	isBot := reaction.UserID == discord.State.User.ID
	if reaction.Member != nil && reaction.Member.User != nil {
		isBot = isBot || reaction.Member.User.Bot
	}
	bot.presence.Seen(reaction.GuildID, reaction.UserID)
	bot.treasure.React(reaction.GuildID, reaction.MessageID, reaction.UserID, isBot, reaction.Emoji.Name)
}

// Discord sends one of these for every guild when the session opens
func (bot *Bot) guildCreated(discord *discordgo.Session, event *discordgo.GuildCreate) {
	guildID := event.Guild.ID
	if _, ok := bot.channels.Get(guildID); !ok && event.Guild.SystemChannelID != "" {
		log.Info().Msg(fmt.Sprintf("Using the system channel of guild %s for announcements", guildID))
		if _, err := bot.database.AddGuild(bot.ctx, guildID, event.Guild.SystemChannelID); err != nil {
			log.Error().Err(err).Msg(fmt.Sprintf("Could not store guild %s", guildID))
		}
		bot.channels.Set(guildID, event.Guild.SystemChannelID)
	}
	bot.schedulers.Start(bot.ctx, guildID)
}

func (bot *Bot) guildDeleted(discord *discordgo.Session, event *discordgo.GuildDelete) {
	// Outages send these too, only a removal forgets the guild
	if event.Guild.Unavailable {
		return
	}
	guildID := event.Guild.ID
	log.Info().Msg(fmt.Sprintf("Removed from guild %s", guildID))
	bot.schedulers.Stop(guildID)
	bot.treasure.StopHunt(guildID)
	bot.presence.Forget(guildID)
	bot.channels.Remove(guildID)
	if err := bot.database.RemoveGuild(bot.ctx, guildID); err != nil {
		log.Error().Err(err).Msg(fmt.Sprintf("Could not remove guild %s", guildID))
	}
}

// ChannelDirectory backed by the guild channels Discord knows of
type sessionDirectory struct {
	session *discordgo.Session
}

func NewSessionDirectory(session *discordgo.Session) ChannelDirectory {
	return sessionDirectory{session}
}

func (d sessionDirectory) ChannelName(guildid string, channelid string) (string, error) {

	channels, err := d.session.GuildChannels(guildid)
	if err != nil {
		return "", fmt.Errorf("could not extract list of channels of guild id %s", guildid)
	}
	for _, ch := range channels {
		if ch.ID == channelid {
			return ch.Name, nil
		}
	}
	return "", fmt.Errorf("no channel name found for channel id %s", channelid)
}

func (d sessionDirectory) ChannelID(guildid string, channelName string) (string, error) {

	channels, err := d.session.GuildChannels(guildid)
	if err != nil {
		return "", fmt.Errorf("could not extract list of channels of guild id %s", guildid)
	}
	for _, ch := range channels {
		if ch.Name == channelName {
			return ch.ID, nil
		}
	}
	return "", fmt.Errorf("no channel id found for channel name %s", channelName)
}

func NewSessionMessenger(session *discordgo.Session) Messenger {
	return sessionMessenger{session}
}
