package bot

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"reelbot/internal/common"
	"reelbot/internal/database"
	"reelbot/internal/fishing"
	"reelbot/internal/hunger"
	"reelbot/internal/notify"
	"reelbot/internal/scheduler"
	"reelbot/internal/settings"
	"reelbot/internal/treasure"
)

// Looks channels up by name and by id within a guild
type ChannelDirectory interface {
	ChannelID(guildID string, name string) (string, error)
	ChannelName(guildID string, channelID string) (string, error)
}

// Game turns player messages into game actions and responses
type Game struct {
	prefix     string
	parser     Parser
	catalog    *fishing.Catalog
	database   *database.Database
	presence   *Presence
	channels   *Channels
	directory  ChannelDirectory
	notifier   notify.Notifier
	fishing    *fishing.Orchestrator
	hunger     *hunger.Tracker
	treasure   *treasure.Orchestrator
	schedulers *scheduler.Manager
	clock      common.Clock
}

type GameDeps struct {
	Prefix     string
	Catalog    *fishing.Catalog
	Database   *database.Database
	Presence   *Presence
	Channels   *Channels
	Directory  ChannelDirectory
	Notifier   notify.Notifier
	Fishing    *fishing.Orchestrator
	Hunger     *hunger.Tracker
	Treasure   *treasure.Orchestrator
	Schedulers *scheduler.Manager
	Clock      common.Clock
}

func NewGame(deps GameDeps) *Game {
	return &Game{
		prefix:     deps.Prefix,
		parser:     NewParser(deps.Prefix),
		catalog:    deps.Catalog,
		database:   deps.Database,
		presence:   deps.Presence,
		channels:   deps.Channels,
		directory:  deps.Directory,
		notifier:   deps.Notifier,
		fishing:    deps.Fishing,
		hunger:     deps.Hunger,
		treasure:   deps.Treasure,
		schedulers: deps.Schedulers,
		clock:      deps.Clock,
	}
}

// Handle a message sent by a player in a guild channel
func (g *Game) Handle(ctx context.Context, guildID string, channelID string, userID string, content string) []Response {

	// Every message counts as activity
	g.presence.Seen(guildID, userID)
	g.hunger.Update(guildID)
	g.hunger.MaybeAnnounce(ctx, guildID)

	var responses []Response
	if _, ok := g.channels.Get(guildID); !ok {
		responses = append(responses, g.registerGuild(ctx, guildID, channelID)...)
	}

	parseResult := g.parser.Parse(content)
	switch parseResult.parseid {
	case PARSEID_NO_BOT_PREFIX:
		return responses
	case PARSEID_OK:
	default:
		log.Info().Msg(fmt.Sprintf("Wrong input: '%s'. Reason: %s", content, parseResult.errorMessage))
		return append(responses, InputNotValid(parseResult.errorMessage)...)
	}

	log.Debug().Msg(fmt.Sprintf("Command understood: %s", content))
	if _, err := g.database.EnsurePlayer(ctx, guildID, userID, g.catalog.DefaultRod().Name); err != nil {
		log.Error().Err(err).Msg("Could not register the player")
		return append(responses, SomethingWentWrong()...)
	}

	switch parseResult.command {
	case COMMAND_CAST:
		responses = append(responses, g.cast(ctx, guildID, channelID, userID)...)
	case COMMAND_FEED:
		args := parseResult.arguments.(FeedArguments)
		responses = append(responses, g.feed(ctx, guildID, userID, args.Fish, args.Quantity)...)
	case COMMAND_HUNGER:
		responses = append(responses, HungerStatus(g.hunger.Level(guildID))...)
	case COMMAND_INVENTORY:
		responses = append(responses, g.inventory(ctx, guildID, userID)...)
	case COMMAND_BALANCE:
		balance, err := g.database.Balance(ctx, guildID, userID)
		if err != nil {
			log.Error().Err(err).Msg("Could not read the balance")
			return append(responses, SomethingWentWrong()...)
		}
		responses = append(responses, Balance(userID, balance)...)
	case COMMAND_EQUIP:
		responses = append(responses, g.equip(ctx, guildID, userID, parseResult.arguments.(string))...)
	case COMMAND_SHOP:
		responses = append(responses, ShopMessage(g.catalog.Rods(), g.catalog.Baits())...)
	case COMMAND_BUY:
		args := parseResult.arguments.(TradeArguments)
		responses = append(responses, g.buy(ctx, guildID, userID, args.Item, args.Quantity)...)
	case COMMAND_SELL:
		args := parseResult.arguments.(TradeArguments)
		responses = append(responses, g.sell(ctx, guildID, userID, args.Item, args.Quantity)...)
	case COMMAND_CHANNEL:
		responses = append(responses, g.channel(ctx, guildID, parseResult.arguments.(string))...)
	case COMMAND_SETTINGS:
		args := parseResult.arguments.(SettingArguments)
		responses = append(responses, g.setting(ctx, guildID, args.Key, args.Enabled)...)
	case COMMAND_SCHEDULE:
		var activities []scheduler.Activity
		if s, ok := g.schedulers.Get(guildID); ok {
			activities = s.Activities()
		}
		responses = append(responses, ScheduleMessage(activities, g.clock.Now())...)
	case COMMAND_HELP:
		responses = append(responses, HelpMessage(g.prefix)...)
	default:
		panic(fmt.Sprintf("Command %d is not one of the possible ones", parseResult.command))
	}
	return responses
}

// Register the guild the first time it talks to the bot.
// The channel of that first message becomes the announcement channel
func (g *Game) registerGuild(ctx context.Context, guildID string, channelID string) []Response {
	log.Info().Msg(fmt.Sprintf("Initialising guild %s", guildID))
	if _, err := g.database.AddGuild(ctx, guildID, channelID); err != nil {
		log.Error().Err(err).Msg(fmt.Sprintf("Could not store guild %s", guildID))
	}
	g.channels.Set(guildID, channelID)
	channelName, err := g.directory.ChannelName(guildID, channelID)
	if err != nil {
		log.Warn().Err(err).Msg(fmt.Sprintf("Could not extract channel name for channel id %s", channelID))
		channelName = fmt.Sprintf("<#%s>", channelID)
	}
	return Welcome(g.prefix, channelName)
}

func (g *Game) cast(ctx context.Context, guildID string, channelID string, userID string) []Response {
	result, err := g.fishing.Cast(ctx, guildID, channelID, userID)
	if err == nil {
		return nil
	}
	if result.Message.IsZero() {
		return SomethingWentWrong()
	}
	if err := g.notifier.Edit(result.Message, SomethingWentWrong()[0].Text()); err != nil {
		log.Warn().Err(err).Msg("Could not edit the failed cast message")
	}
	return nil
}

// Take the fish out of the inventory first, and give them back if the mascot refuses them
func (g *Game) feed(ctx context.Context, guildID string, userID string, name string, quantity int) []Response {
	fish, ok := g.catalog.Fish(name)
	if !ok {
		return UnknownFish(name)
	}
	err := g.database.RemoveFromInventory(ctx, guildID, userID, fish.Name, quantity)
	if errors.Is(err, database.ErrNotOwned) || errors.Is(err, database.ErrNotEnough) {
		owned, _ := g.database.Quantity(ctx, guildID, userID, fish.Name)
		return NotEnoughFish(fish.Name, owned, quantity)
	}
	if err != nil {
		log.Error().Err(err).Msg("Could not take the fish out of the inventory")
		return SomethingWentWrong()
	}

	level, err := g.hunger.Feed(guildID, fish, quantity)
	if err != nil {
		if err := g.database.AddToInventory(ctx, guildID, userID, fish.Name, quantity); err != nil {
			log.Error().Err(err).Msg(fmt.Sprintf("Could not give back %d %s to user %s", quantity, fish.Name, userID))
		}
		if errors.Is(err, hunger.ErrTooFull) {
			return TooFull(level)
		}
		return SomethingWentWrong()
	}
	return Fed(fish.Name, quantity, level)
}

func (g *Game) inventory(ctx context.Context, guildID string, userID string) []Response {
	items, err := g.database.Inventory(ctx, guildID, userID)
	if err != nil {
		log.Error().Err(err).Msg("Could not read the inventory")
		return SomethingWentWrong()
	}
	rod, _ := g.database.EquippedRod(ctx, guildID, userID)
	bait, _ := g.database.EquippedBait(ctx, guildID, userID)
	achievements, _ := g.database.Achievements(ctx, guildID, userID)
	xp, level, _ := g.database.Progress(ctx, guildID, userID)
	return InventoryMessage(items, g.catalog.RodOrDefault(rod).Name, bait, achievements, xp, level)
}

// Rods are bought one at a time and only once
func (g *Game) buy(ctx context.Context, guildID string, userID string, name string, quantity int) []Response {
	item, price, ok := g.catalog.Price(name)
	if !ok {
		return NotForSale(name)
	}
	if g.catalog.ItemKind(item) == "rod" {
		if owned, _ := g.database.Quantity(ctx, guildID, userID, item); owned > 0 {
			return AlreadyOwned(item)
		}
		quantity = 1
	}
	left, err := g.database.Buy(ctx, guildID, userID, item, price, quantity)
	if errors.Is(err, database.ErrNoCoins) {
		balance, _ := g.database.Balance(ctx, guildID, userID)
		return NotEnoughCoins(price*quantity, balance)
	}
	if err != nil {
		log.Error().Err(err).Msg(fmt.Sprintf("Could not sell %d %s to user %s", quantity, item, userID))
		return SomethingWentWrong()
	}
	log.Info().Msg(fmt.Sprintf("User %s bought %d %s in guild %s", userID, quantity, item, guildID))
	return Bought(item, quantity, left)
}

func (g *Game) sell(ctx context.Context, guildID string, userID string, name string, quantity int) []Response {
	fish, ok := g.catalog.Fish(name)
	if !ok {
		return UnknownFish(name)
	}
	balance, err := g.database.Sell(ctx, guildID, userID, fish.Name, fish.Value, quantity)
	if errors.Is(err, database.ErrNotOwned) || errors.Is(err, database.ErrNotEnough) {
		owned, _ := g.database.Quantity(ctx, guildID, userID, fish.Name)
		return NotEnoughFish(fish.Name, owned, quantity)
	}
	if err != nil {
		log.Error().Err(err).Msg(fmt.Sprintf("Could not buy %d %s from user %s", quantity, fish.Name, userID))
		return SomethingWentWrong()
	}
	return Sold(fish.Name, quantity, fish.Value*quantity, balance)
}

func (g *Game) equip(ctx context.Context, guildID string, userID string, name string) []Response {
	var slot string
	switch g.catalog.ItemKind(name) {
	case "rod":
		rod, _ := g.catalog.Rod(name)
		slot, name = database.SlotRod, rod.Name
	case "bait":
		bait, _ := g.catalog.Bait(name)
		slot, name = database.SlotBait, bait.Name
	default:
		return CannotEquip(name)
	}
	err := g.database.Equip(ctx, guildID, userID, slot, name)
	if errors.Is(err, database.ErrNotOwned) {
		return NotOwned(name)
	}
	if err != nil {
		log.Error().Err(err).Msg("Could not equip")
		return SomethingWentWrong()
	}
	return Equipped(name, slot)
}

func (g *Game) channel(ctx context.Context, guildID string, channelName string) []Response {

	// Try to find the id from the channel name
	channelID, err := g.directory.ChannelID(guildID, channelName)
	if err != nil {
		log.Info().Msg(fmt.Sprintf("Could not extract channel id from channel name %s", channelName))
		return ChannelDoesNotExist(channelName)
	}

	// We have a new channel to send messages to
	log.Info().Msg(fmt.Sprintf("Changing channel used by guild %s to %s", guildID, channelName))
	if err := g.database.SetChannel(ctx, guildID, channelID); err != nil {
		log.Error().Err(err).Msg("Could not store the channel")
		return SomethingWentWrong()
	}
	g.channels.Set(guildID, channelID)
	return ChannelChanged(channelName)
}

func (g *Game) setting(ctx context.Context, guildID string, key string, enabled bool) []Response {
	if !settings.Valid(key) {
		panic(fmt.Sprintf("unexpected setting %s", key))
	}
	if err := g.database.SetEnabled(ctx, guildID, key, enabled); err != nil {
		log.Error().Err(err).Msg("Could not store the setting")
		return SomethingWentWrong()
	}
	// Hunts stop queueing themselves while disabled
	if key == settings.TreasureHunts && enabled {
		if s, ok := g.schedulers.Get(guildID); ok {
			if _, queued := s.UpcomingActivityByKind(scheduler.KindTreasureHunt); !queued {
				g.treasure.Request(guildID)
			}
		}
	}
	return SettingChanged(key, enabled)
}
