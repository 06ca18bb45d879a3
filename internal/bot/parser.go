package bot

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"reelbot/internal/settings"
)

const (
	COMMAND_CAST = iota
	COMMAND_FEED
	COMMAND_HUNGER
	COMMAND_INVENTORY
	COMMAND_BALANCE
	COMMAND_EQUIP
	COMMAND_CHANNEL
	COMMAND_SETTINGS
	COMMAND_SCHEDULE
	COMMAND_HELP
	COMMAND_SHOP
	COMMAND_BUY
	COMMAND_SELL
)

const (
	PARSEID_OK = iota
	PARSEID_NO_BOT_PREFIX
	PARSEID_NO_COMMAND
	PARSEID_COMMAND_NOT_RECOGNISED
	PARSEID_NO_INPUT
	PARSEID_NOT_A_QUANTITY
	PARSEID_NOT_A_SETTING
	PARSEID_NOT_A_SWITCH
)

var errorMessages map[int]string = map[int]string{
	PARSEID_NO_COMMAND:             "No command provided",
	PARSEID_COMMAND_NOT_RECOGNISED: "Command `%s` not recognised",
	PARSEID_NO_INPUT:               "Command `%s` requires an argument",
	PARSEID_NOT_A_QUANTITY:         "`%s` is not a valid quantity",
	PARSEID_NOT_A_SETTING:          "`%s` is not a setting, use `announcements` or `hunts`",
	PARSEID_NOT_A_SWITCH:           "`%s` is not `on` or `off`",
}

// Setting names as typed by players
var settingNames = map[string]string{
	"announcements": settings.FishingAnnouncements,
	"hunts":         settings.TreasureHunts,
}

type FeedArguments struct {
	Fish     string
	Quantity int
}

// Item bought or sold in the shop
type TradeArguments struct {
	Item     string
	Quantity int
}

type SettingArguments struct {
	Key     string
	Enabled bool
}

type ParseResult struct {
	command      int
	parseid      int
	errorMessage string
	arguments    interface{}
}

type Parser struct {
	prefix string
}

func NewParser(prefix string) Parser {
	return Parser{prefix: strings.ToLower(prefix)}
}

func (parser Parser) Parse(message string) ParseResult {

	fail := func(parseid int, args ...any) ParseResult {
		return ParseResult{parseid: parseid, errorMessage: fmt.Sprintf(errorMessages[parseid], args...)}
	}

	// The message has to start with the bot prefix, as a word of its own
	words := strings.Fields(message)
	if len(words) == 0 || strings.ToLower(words[0]) != parser.prefix {
		log.Debug().Msg("Reject message not intended for the bot")
		return ParseResult{parseid: PARSEID_NO_BOT_PREFIX}
	}
	words = words[1:]
	if len(words) == 0 {
		return fail(PARSEID_NO_COMMAND)
	}
	commandString := strings.ToLower(words[0])
	words = words[1:]

	switch commandString {
	case "cast", "fish":
		return ParseResult{command: COMMAND_CAST, parseid: PARSEID_OK}
	case "feed":
		// reel feed <fish> [quantity]
		if len(words) == 0 {
			return fail(PARSEID_NO_INPUT, commandString)
		}
		name, quantity, bad := splitQuantity(words)
		if bad != "" {
			return fail(PARSEID_NOT_A_QUANTITY, bad)
		}
		return ParseResult{command: COMMAND_FEED, parseid: PARSEID_OK, arguments: FeedArguments{Fish: name, Quantity: quantity}}
	case "shop":
		return ParseResult{command: COMMAND_SHOP, parseid: PARSEID_OK}
	case "buy", "sell":
		// reel buy|sell <item> [quantity]
		if len(words) == 0 {
			return fail(PARSEID_NO_INPUT, commandString)
		}
		name, quantity, bad := splitQuantity(words)
		if bad != "" {
			return fail(PARSEID_NOT_A_QUANTITY, bad)
		}
		command := COMMAND_BUY
		if commandString == "sell" {
			command = COMMAND_SELL
		}
		return ParseResult{command: command, parseid: PARSEID_OK, arguments: TradeArguments{Item: name, Quantity: quantity}}
	case "hunger":
		return ParseResult{command: COMMAND_HUNGER, parseid: PARSEID_OK}
	case "inventory", "inv":
		return ParseResult{command: COMMAND_INVENTORY, parseid: PARSEID_OK}
	case "balance":
		return ParseResult{command: COMMAND_BALANCE, parseid: PARSEID_OK}
	case "equip":
		// reel equip <item>
		if len(words) == 0 {
			return fail(PARSEID_NO_INPUT, commandString)
		}
		return ParseResult{command: COMMAND_EQUIP, parseid: PARSEID_OK, arguments: strings.Join(words, " ")}
	case "channel":
		// reel channel <channel_name>
		if len(words) == 0 {
			return fail(PARSEID_NO_INPUT, commandString)
		}
		return ParseResult{command: COMMAND_CHANNEL, parseid: PARSEID_OK, arguments: strings.Join(words, " ")}
	case "settings":
		// reel settings <announcements|hunts> <on|off>
		if len(words) < 2 {
			return fail(PARSEID_NO_INPUT, commandString)
		}
		key, ok := settingNames[strings.ToLower(words[0])]
		if !ok {
			return fail(PARSEID_NOT_A_SETTING, words[0])
		}
		var enabled bool
		switch strings.ToLower(words[1]) {
		case "on":
			enabled = true
		case "off":
			enabled = false
		default:
			return fail(PARSEID_NOT_A_SWITCH, words[1])
		}
		return ParseResult{command: COMMAND_SETTINGS, parseid: PARSEID_OK, arguments: SettingArguments{Key: key, Enabled: enabled}}
	case "schedule":
		return ParseResult{command: COMMAND_SCHEDULE, parseid: PARSEID_OK}
	case "help":
		return ParseResult{command: COMMAND_HELP, parseid: PARSEID_OK}
	default:
		return fail(PARSEID_COMMAND_NOT_RECOGNISED, commandString)
	}
}

// Split "<name> [quantity]", the quantity defaulting to one. A trailing
// number that is not a valid quantity is returned as bad
func splitQuantity(words []string) (name string, quantity int, bad string) {
	quantity = 1
	if last := words[len(words)-1]; len(words) > 1 && isNumber(last) {
		n, err := strconv.Atoi(last)
		if err != nil || n <= 0 {
			return "", 0, last
		}
		quantity = n
		words = words[:len(words)-1]
	}
	return strings.Join(words, " "), quantity, ""
}

func isNumber(word string) bool {
	if word == "" {
		return false
	}
	for _, r := range word {
		if (r < '0' || r > '9') && r != '-' {
			return false
		}
	}
	return true
}
