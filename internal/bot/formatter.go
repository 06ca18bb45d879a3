package bot

import (
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"

	"reelbot/internal/database"
	"reelbot/internal/fishing"
	"reelbot/internal/hunger"
	"reelbot/internal/scheduler"
	"reelbot/internal/settings"
)

// Use "sea green" color for the bot
const color int = 0x2e8b57

func Welcome(prefix string, channelName string) []Response {

	content := fmt.Sprintf("Hi, I will be announcing fish, hunts and a hungry %s in channel %s\n", hunger.Mascot, channelName)
	content += fmt.Sprintf("You can change this anytime by typing \n> `%s channel <channel_name>`", prefix)
	return []Response{ResponseString{content}}
}

func InputNotValid(errorMessage string) []Response {

	return []Response{ResponseString{fmt.Sprintf("Input not valid: \n> %s", errorMessage)}}
}

func SomethingWentWrong() []Response {
	return []Response{ResponseString{"🪝 Something went wrong, try again in a moment."}}
}

func HelpMessage(prefix string) []Response {

	embed := discordgo.MessageEmbed{Title: "Commands available", Color: color}
	add := func(usage string, description string) {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:   fmt.Sprintf("`%s %s`", prefix, usage),
			Value:  description,
			Inline: false,
		})
	}
	add("cast", "Cast a line and try to catch one of the fish around")
	add("feed <fish> [quantity]", fmt.Sprintf("Feed fish from your inventory to %s", hunger.Mascot))
	add("hunger", fmt.Sprintf("Check how hungry %s is", hunger.Mascot))
	add("inventory", "List what you own, what you have equipped and your achievements")
	add("balance", "Print your coins")
	add("equip <item>", "Equip a rod or a bait you own")
	add("shop", "List the rods and baits for sale")
	add("buy <item> [quantity]", "Buy a rod or some bait with your coins")
	add("sell <fish> [quantity]", "Sell fish from your inventory for coins")
	add("channel <channel_name>", "Change the channel the bot announces things in")
	add("settings <announcements|hunts> <on|off>", "Turn fishing announcements or treasure hunts on or off")
	add("schedule", "Print the upcoming activities of this server")
	add("help", "Print the usage of the different commands")
	return []Response{ResponseEmbed{embed}}
}

func ChannelDoesNotExist(channelName string) []Response {

	return []Response{ResponseString{fmt.Sprintf("Channel `%s` does not exist in this server", channelName)}}
}

func ChannelChanged(channelName string) []Response {
	return []Response{ResponseString{fmt.Sprintf("From now on, I will be announcing things in `%s`", channelName)}}
}

func UnknownFish(name string) []Response {
	return []Response{ResponseString{fmt.Sprintf("There is no fish called `%s`", name)}}
}

func NotEnoughFish(name string, owned int, wanted int) []Response {
	if owned == 0 {
		return []Response{ResponseString{fmt.Sprintf("You do not have any `%s`", name)}}
	}
	return []Response{ResponseString{fmt.Sprintf("You only have %d `%s`, not %d", owned, name, wanted)}}
}

func TooFull(level float64) []Response {
	return []Response{ResponseString{fmt.Sprintf("😾 %s is too full for that (%.0f/100). Try a smaller snack.", hunger.Mascot, level)}}
}

func Fed(name string, quantity int, level float64) []Response {
	return []Response{ResponseString{fmt.Sprintf("😻 %s gobbled up %d %s! Hunger is now %.0f/100.", hunger.Mascot, quantity, name, level)}}
}

func HungerStatus(level float64) []Response {
	return []Response{ResponseString{hunger.Message(level)}}
}

func Balance(userID string, balance int) []Response {
	return []Response{ResponseString{fmt.Sprintf("💰 <@%s>, you have **%d** coins.", userID, balance)}}
}

func CannotEquip(name string) []Response {
	return []Response{ResponseString{fmt.Sprintf("`%s` is not a rod nor a bait", name)}}
}

func NotOwned(name string) []Response {
	return []Response{ResponseString{fmt.Sprintf("You do not own any `%s`", name)}}
}

func Equipped(name string, slot string) []Response {
	return []Response{ResponseString{fmt.Sprintf("🎣 `%s` equipped as your %s", name, slot)}}
}

func SettingChanged(key string, enabled bool) []Response {
	names := map[string]string{
		settings.FishingAnnouncements: "Fishing announcements",
		settings.TreasureHunts:        "Treasure hunts",
	}
	state := "off"
	if enabled {
		state = "on"
	}
	return []Response{ResponseString{fmt.Sprintf("%s are now **%s**", names[key], state)}}
}

func ShopMessage(rods []fishing.Rod, baits []fishing.Bait) []Response {

	embed := discordgo.MessageEmbed{Title: "Bait & tackle shop", Color: color}
	lines := make([]string, 0, len(rods))
	for _, rod := range rods {
		lines = append(lines, fmt.Sprintf("%s: **%d** coins (%d casts, up to %s fish)", rod.Name, rod.Price, rod.Casts, rod.Tier))
	}
	embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{Name: "Rods:", Value: strings.Join(lines, "\n")})
	lines = make([]string, 0, len(baits))
	for _, bait := range baits {
		lines = append(lines, fmt.Sprintf("%s: **%d** coins (+%.0f%% catch chance)", bait.Name, bait.Price, bait.Bonus*100))
	}
	if len(lines) > 0 {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{Name: "Baits:", Value: strings.Join(lines, "\n")})
	}
	embed.Footer = &discordgo.MessageEmbedFooter{Text: "Fish sell for their value, check it with the sell command"}
	return []Response{ResponseEmbed{embed}}
}

func NotForSale(name string) []Response {
	return []Response{ResponseString{fmt.Sprintf("The shop does not sell `%s`", name)}}
}

func AlreadyOwned(name string) []Response {
	return []Response{ResponseString{fmt.Sprintf("You already own a `%s`", name)}}
}

func NotEnoughCoins(cost int, balance int) []Response {
	return []Response{ResponseString{fmt.Sprintf("💸 That costs **%d** coins and you only have **%d**.", cost, balance)}}
}

func Bought(name string, quantity int, balance int) []Response {
	return []Response{ResponseString{fmt.Sprintf("🛒 You bought %d `%s`. **%d** coins left.", quantity, name, balance)}}
}

func Sold(name string, quantity int, earned int, balance int) []Response {
	return []Response{ResponseString{fmt.Sprintf("🪙 You sold %d `%s` for **%d** coins. You now have **%d**.", quantity, name, earned, balance)}}
}

func InventoryMessage(items []database.Item, rod string, bait string, achievements []string, xp int, level int) []Response {

	embed := discordgo.MessageEmbed{Title: "Your tackle box", Color: color}
	embed.Description = fmt.Sprintf("Level **%d** (%d XP)", level, xp)

	value := "Empty"
	if len(items) > 0 {
		lines := make([]string, 0, len(items))
		for _, item := range items {
			lines = append(lines, fmt.Sprintf("%d x %s", item.Quantity, item.Name))
		}
		value = strings.Join(lines, "\n")
	}
	embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{Name: "Items:", Value: value})

	if bait == "" {
		bait = "None"
	}
	embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
		Name:  "Equipped:",
		Value: fmt.Sprintf("Rod: %s\nBait: %s", rod, bait),
	})

	value = "None yet"
	if len(achievements) > 0 {
		value = strings.Join(achievements, "\n")
	}
	embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{Name: "Achievements:", Value: value})

	return []Response{ResponseEmbed{embed}}
}

func ScheduleMessage(activities []scheduler.Activity, now time.Time) []Response {

	embed := discordgo.MessageEmbed{Title: "Upcoming activities", Color: color}
	if len(activities) == 0 {
		embed.Description = "Nothing planned"
	}
	for _, activity := range activities {
		var when string
		if activity.Contains(now) {
			when = fmt.Sprintf("Happening now, %s left", FormatDuration(activity.End.Sub(now)))
		} else {
			when = fmt.Sprintf("In %s, lasts %s", FormatDuration(activity.Start.Sub(now)), FormatDuration(activity.Duration()))
		}
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{Name: activityNames[activity.Kind], Value: when})
	}
	return []Response{ResponseEmbed{embed}}
}

var activityNames = map[scheduler.Kind]string{
	scheduler.KindFishSpawn:          "🐟 Fish spawn",
	scheduler.KindHungerAnnouncement: "🐱 Hunger check",
	scheduler.KindTreasureHunt:       "🗝️ Treasure hunt",
}

func FormatDuration(d time.Duration) string {
	if d < time.Minute {
		return "less than a minute"
	}
	d = d.Round(time.Minute)
	hours := int(d.Hours())
	minutes := int(d.Minutes()) % 60
	switch {
	case hours == 0:
		return fmt.Sprintf("%dm", minutes)
	case minutes == 0:
		return fmt.Sprintf("%dh", hours)
	default:
		return fmt.Sprintf("%dh%02dm", hours, minutes)
	}
}
