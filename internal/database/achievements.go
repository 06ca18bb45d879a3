package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

type catchStats struct {
	total     int
	rare      int // Rare or better
	legendary int
}

type achievement struct {
	name     string
	unlocked func(s catchStats) bool
}

var achievements = []achievement{
	{"First Catch", func(s catchStats) bool { return s.total >= 1 }},
	{"Ten Catches", func(s catchStats) bool { return s.total >= 10 }},
	{"Fifty Catches", func(s catchStats) bool { return s.total >= 50 }},
	{"Rare Find", func(s catchStats) bool { return s.rare >= 1 }},
	{"Legend of the Deep", func(s catchStats) bool { return s.legendary >= 1 }},
}

// Unlock the achievements the catches of the player qualify for.
// Returns only the ones unlocked by this call
func (d *Database) CheckAchievements(ctx context.Context, guildID string, userID string) ([]string, error) {
	var unlocked []string
	err := d.tx(ctx, func(tx *sql.Tx) error {
		var s catchStats
		err := tx.QueryRowContext(ctx, `SELECT
				COUNT(*),
				COALESCE(SUM(CASE WHEN rarity IN ('rare', 'epic', 'legendary') THEN 1 ELSE 0 END), 0),
				COALESCE(SUM(CASE WHEN rarity = 'legendary' THEN 1 ELSE 0 END), 0)
			FROM catches WHERE guild_id = ? AND user_id = ?`, guildID, userID).Scan(&s.total, &s.rare, &s.legendary)
		if err != nil {
			return err
		}
		now := time.Now().UnixMilli()
		for _, a := range achievements {
			if !a.unlocked(s) {
				continue
			}
			res, err := tx.ExecContext(ctx, `INSERT OR IGNORE INTO achievements(guild_id, user_id, name, unlocked_at) VALUES(?, ?, ?, ?)`,
				guildID, userID, a.name, now)
			if err != nil {
				return err
			}
			if n, _ := res.RowsAffected(); n > 0 {
				unlocked = append(unlocked, a.name)
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("check achievements of %s: %w", userID, err)
	}
	return unlocked, nil
}

// Achievements of the player in the order they were unlocked
func (d *Database) Achievements(ctx context.Context, guildID string, userID string) ([]string, error) {
	rows, err := d.db.QueryContext(ctx, `SELECT name FROM achievements WHERE guild_id = ? AND user_id = ? ORDER BY unlocked_at, name`,
		guildID, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

func (d *Database) CatchCount(ctx context.Context, guildID string, userID string) (int, error) {
	var n int
	err := d.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM catches WHERE guild_id = ? AND user_id = ?`, guildID, userID).Scan(&n)
	return n, err
}
