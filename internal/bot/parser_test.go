package bot

import (
	"testing"

	"reelbot/internal/settings"
)

func TestParse(t *testing.T) {
	parser := NewParser("reel")

	tests := []struct {
		message   string
		parseid   int
		command   int
		arguments interface{}
	}{
		{"hello there", PARSEID_NO_BOT_PREFIX, 0, nil},
		{"reeling in the years", PARSEID_NO_BOT_PREFIX, 0, nil},
		{"reel", PARSEID_NO_COMMAND, 0, nil},
		{"reel   ", PARSEID_NO_COMMAND, 0, nil},
		{"reel dance", PARSEID_COMMAND_NOT_RECOGNISED, 0, nil},
		{"reel cast", PARSEID_OK, COMMAND_CAST, nil},
		{"REEL Cast", PARSEID_OK, COMMAND_CAST, nil},
		{"reel feed", PARSEID_NO_INPUT, 0, nil},
		{"reel feed cod", PARSEID_OK, COMMAND_FEED, FeedArguments{"cod", 1}},
		{"reel feed golden koi 2", PARSEID_OK, COMMAND_FEED, FeedArguments{"golden koi", 2}},
		{"reel feed cod 0", PARSEID_NOT_A_QUANTITY, 0, nil},
		{"reel feed cod -3", PARSEID_NOT_A_QUANTITY, 0, nil},
		{"reel shop", PARSEID_OK, COMMAND_SHOP, nil},
		{"reel buy", PARSEID_NO_INPUT, 0, nil},
		{"reel buy glow lure 3", PARSEID_OK, COMMAND_BUY, TradeArguments{"glow lure", 3}},
		{"reel buy carbon rod", PARSEID_OK, COMMAND_BUY, TradeArguments{"carbon rod", 1}},
		{"reel sell golden koi", PARSEID_OK, COMMAND_SELL, TradeArguments{"golden koi", 1}},
		{"reel sell cod 0", PARSEID_NOT_A_QUANTITY, 0, nil},
		{"reel hunger", PARSEID_OK, COMMAND_HUNGER, nil},
		{"reel inventory", PARSEID_OK, COMMAND_INVENTORY, nil},
		{"reel balance", PARSEID_OK, COMMAND_BALANCE, nil},
		{"reel equip", PARSEID_NO_INPUT, 0, nil},
		{"reel equip  Glow   Lure", PARSEID_OK, COMMAND_EQUIP, "Glow Lure"},
		{"reel channel fishing-spot", PARSEID_OK, COMMAND_CHANNEL, "fishing-spot"},
		{"reel settings hunts", PARSEID_NO_INPUT, 0, nil},
		{"reel settings weather on", PARSEID_NOT_A_SETTING, 0, nil},
		{"reel settings hunts maybe", PARSEID_NOT_A_SWITCH, 0, nil},
		{"reel settings hunts off", PARSEID_OK, COMMAND_SETTINGS, SettingArguments{settings.TreasureHunts, false}},
		{"reel settings announcements ON", PARSEID_OK, COMMAND_SETTINGS, SettingArguments{settings.FishingAnnouncements, true}},
		{"reel schedule", PARSEID_OK, COMMAND_SCHEDULE, nil},
		{"reel help", PARSEID_OK, COMMAND_HELP, nil},
	}
	for _, test := range tests {
		result := parser.Parse(test.message)
		if result.parseid != test.parseid {
			t.Fatalf("%q: parseid=%d want=%d (%s)", test.message, result.parseid, test.parseid, result.errorMessage)
		}
		if result.parseid != PARSEID_OK {
			if test.parseid != PARSEID_NO_BOT_PREFIX && result.errorMessage == "" {
				t.Fatalf("%q: no error message", test.message)
			}
			continue
		}
		if result.command != test.command {
			t.Fatalf("%q: command=%d want=%d", test.message, result.command, test.command)
		}
		if result.arguments != test.arguments {
			t.Fatalf("%q: arguments=%v want=%v", test.message, result.arguments, test.arguments)
		}
	}
}
