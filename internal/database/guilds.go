package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
)

// Guilds known to the bot and their announcement channel
type Guilds map[string]string

// Register a guild the first time it is seen. A known guild keeps its channel
func (d *Database) AddGuild(ctx context.Context, guildID string, channelID string) (bool, error) {
	res, err := d.db.ExecContext(ctx, `INSERT OR IGNORE INTO guilds(guild_id, channel_id) VALUES(?, ?)`, guildID, channelID)
	if err != nil {
		return false, fmt.Errorf("add guild %s: %w", guildID, err)
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

func (d *Database) GetGuilds(ctx context.Context) (Guilds, error) {
	rows, err := d.db.QueryContext(ctx, `SELECT guild_id, channel_id FROM guilds`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	guilds := Guilds{}
	for rows.Next() {
		var guildID, channelID string
		if err := rows.Scan(&guildID, &channelID); err != nil {
			return nil, err
		}
		guilds[guildID] = channelID
	}
	return guilds, rows.Err()
}

func (d *Database) Channel(ctx context.Context, guildID string) (string, bool, error) {
	var channelID string
	err := d.db.QueryRowContext(ctx, `SELECT channel_id FROM guilds WHERE guild_id = ?`, guildID).Scan(&channelID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return channelID, true, nil
}

func (d *Database) SetChannel(ctx context.Context, guildID string, channelID string) error {
	_, err := d.db.ExecContext(ctx, `INSERT INTO guilds(guild_id, channel_id) VALUES(?, ?)
		ON CONFLICT(guild_id) DO UPDATE SET channel_id = excluded.channel_id`, guildID, channelID)
	return err
}

func (d *Database) RemoveGuild(ctx context.Context, guildID string) error {
	_, err := d.db.ExecContext(ctx, `DELETE FROM guilds WHERE guild_id = ?`, guildID)
	return err
}

// Enabled tells if a toggle is on for the guild. Toggles never set are on,
// and so are toggles that cannot be read
func (d *Database) Enabled(ctx context.Context, guildID string, key string) bool {
	var enabled bool
	err := d.db.QueryRowContext(ctx, `SELECT enabled FROM guild_settings WHERE guild_id = ? AND key = ?`, guildID, key).Scan(&enabled)
	if errors.Is(err, sql.ErrNoRows) {
		return true
	}
	if err != nil {
		log.Error().Err(err).Msg(fmt.Sprintf("Could not read setting %s of guild %s", key, guildID))
		return true
	}
	return enabled
}

func (d *Database) SetEnabled(ctx context.Context, guildID string, key string, enabled bool) error {
	_, err := d.db.ExecContext(ctx, `INSERT INTO guild_settings(guild_id, key, enabled) VALUES(?, ?, ?)
		ON CONFLICT(guild_id, key) DO UPDATE SET enabled = excluded.enabled`, guildID, key, enabled)
	return err
}
