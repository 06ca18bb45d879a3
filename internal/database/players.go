package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

const (
	SlotRod  = "rod"
	SlotBait = "bait"
)

type Item struct {
	Name     string
	Quantity int
}

// Create the player the first time it shows up, with the starter rod in
// the inventory and equipped. Returns true for a new player
func (d *Database) EnsurePlayer(ctx context.Context, guildID string, userID string, starterRod string) (bool, error) {
	created := false
	err := d.tx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `INSERT OR IGNORE INTO players(guild_id, user_id) VALUES(?, ?)`, guildID, userID)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil || n == 0 {
			return err
		}
		created = true
		if starterRod == "" {
			return nil
		}
		if err := addItem(ctx, tx, guildID, userID, starterRod, 1); err != nil {
			return err
		}
		return equip(ctx, tx, guildID, userID, SlotRod, starterRod)
	})
	if err != nil {
		return false, fmt.Errorf("ensure player %s: %w", userID, err)
	}
	return created, nil
}

func addItem(ctx context.Context, tx *sql.Tx, guildID string, userID string, item string, quantity int) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO inventory(guild_id, user_id, item, quantity) VALUES(?, ?, ?, ?)
		ON CONFLICT(guild_id, user_id, item) DO UPDATE SET quantity = quantity + excluded.quantity`,
		guildID, userID, item, quantity)
	return err
}

func equip(ctx context.Context, tx *sql.Tx, guildID string, userID string, slot string, item string) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO equipment(guild_id, user_id, slot, item) VALUES(?, ?, ?, ?)
		ON CONFLICT(guild_id, user_id, slot) DO UPDATE SET item = excluded.item`, guildID, userID, slot, item)
	return err
}

func (d *Database) AddToInventory(ctx context.Context, guildID string, userID string, item string, quantity int) error {
	if quantity <= 0 {
		return fmt.Errorf("add %d %s: quantity must be positive", quantity, item)
	}
	return d.tx(ctx, func(tx *sql.Tx) error {
		return addItem(ctx, tx, guildID, userID, item, quantity)
	})
}

// Remove items, failing with ErrNotEnough when the player has fewer.
// Running out of the equipped bait unequips it
func (d *Database) RemoveFromInventory(ctx context.Context, guildID string, userID string, item string, quantity int) error {
	return d.tx(ctx, func(tx *sql.Tx) error {
		return removeItem(ctx, tx, guildID, userID, item, quantity)
	})
}

func removeItem(ctx context.Context, tx *sql.Tx, guildID string, userID string, item string, quantity int) error {
	var owned int
	err := tx.QueryRowContext(ctx, `SELECT quantity FROM inventory WHERE guild_id = ? AND user_id = ? AND item = ?`,
		guildID, userID, item).Scan(&owned)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotOwned
	}
	if err != nil {
		return err
	}
	if owned < quantity {
		return ErrNotEnough
	}
	if owned > quantity {
		_, err = tx.ExecContext(ctx, `UPDATE inventory SET quantity = quantity - ? WHERE guild_id = ? AND user_id = ? AND item = ?`,
			quantity, guildID, userID, item)
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM inventory WHERE guild_id = ? AND user_id = ? AND item = ?`,
		guildID, userID, item); err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, `DELETE FROM equipment WHERE guild_id = ? AND user_id = ? AND slot = ? AND item = ?`,
		guildID, userID, SlotBait, item)
	return err
}

func (d *Database) ConsumeBait(ctx context.Context, guildID string, userID string, bait string) error {
	if err := d.RemoveFromInventory(ctx, guildID, userID, bait, 1); err != nil {
		return fmt.Errorf("consume %s: %w", bait, err)
	}
	return nil
}

func (d *Database) Quantity(ctx context.Context, guildID string, userID string, item string) (int, error) {
	var quantity int
	err := d.db.QueryRowContext(ctx, `SELECT quantity FROM inventory WHERE guild_id = ? AND user_id = ? AND item = ?`,
		guildID, userID, item).Scan(&quantity)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	return quantity, err
}

// Everything the player owns, sorted by name
func (d *Database) Inventory(ctx context.Context, guildID string, userID string) ([]Item, error) {
	rows, err := d.db.QueryContext(ctx, `SELECT item, quantity FROM inventory WHERE guild_id = ? AND user_id = ? ORDER BY item`,
		guildID, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Item
	for rows.Next() {
		var item Item
		if err := rows.Scan(&item.Name, &item.Quantity); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// Equip an item the player owns
func (d *Database) Equip(ctx context.Context, guildID string, userID string, slot string, item string) error {
	return d.tx(ctx, func(tx *sql.Tx) error {
		var owned int
		err := tx.QueryRowContext(ctx, `SELECT quantity FROM inventory WHERE guild_id = ? AND user_id = ? AND item = ?`,
			guildID, userID, item).Scan(&owned)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotOwned
		}
		if err != nil {
			return err
		}
		return equip(ctx, tx, guildID, userID, slot, item)
	})
}

func (d *Database) equipped(ctx context.Context, guildID string, userID string, slot string) (string, error) {
	var item string
	err := d.db.QueryRowContext(ctx, `SELECT e.item FROM equipment e
		JOIN inventory i ON i.guild_id = e.guild_id AND i.user_id = e.user_id AND i.item = e.item
		WHERE e.guild_id = ? AND e.user_id = ? AND e.slot = ?`, guildID, userID, slot).Scan(&item)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return item, err
}

// The equipped rod, empty when there is none
func (d *Database) EquippedRod(ctx context.Context, guildID string, userID string) (string, error) {
	return d.equipped(ctx, guildID, userID, SlotRod)
}

// The equipped bait, empty when there is none or it ran out
func (d *Database) EquippedBait(ctx context.Context, guildID string, userID string) (string, error) {
	return d.equipped(ctx, guildID, userID, SlotBait)
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func addToBalance(ctx context.Context, ex execer, guildID string, userID string, amount int) error {
	_, err := ex.ExecContext(ctx, `INSERT INTO players(guild_id, user_id, balance) VALUES(?, ?, ?)
		ON CONFLICT(guild_id, user_id) DO UPDATE SET balance = balance + excluded.balance`, guildID, userID, amount)
	return err
}

func balance(ctx context.Context, q queryer, guildID string, userID string) (int, error) {
	var coins int
	err := q.QueryRowContext(ctx, `SELECT balance FROM players WHERE guild_id = ? AND user_id = ?`, guildID, userID).Scan(&coins)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	return coins, err
}

func (d *Database) AddToBalance(ctx context.Context, guildID string, userID string, amount int) error {
	if err := addToBalance(ctx, d.db, guildID, userID, amount); err != nil {
		return fmt.Errorf("add %d to the balance of %s: %w", amount, userID, err)
	}
	return nil
}

func (d *Database) Balance(ctx context.Context, guildID string, userID string) (int, error) {
	return balance(ctx, d.db, guildID, userID)
}

// Pay for the items and add them to the inventory, failing with
// ErrNoCoins when the balance does not cover them. Returns the balance left
func (d *Database) Buy(ctx context.Context, guildID string, userID string, item string, unitPrice int, quantity int) (int, error) {
	if quantity <= 0 {
		return 0, fmt.Errorf("buy %d %s: quantity must be positive", quantity, item)
	}
	var left int
	err := d.tx(ctx, func(tx *sql.Tx) error {
		coins, err := balance(ctx, tx, guildID, userID)
		if err != nil {
			return err
		}
		cost := unitPrice * quantity
		if coins < cost {
			return ErrNoCoins
		}
		if err := addToBalance(ctx, tx, guildID, userID, -cost); err != nil {
			return err
		}
		left = coins - cost
		return addItem(ctx, tx, guildID, userID, item, quantity)
	})
	return left, err
}

// Take the items out of the inventory and pay their value.
// Returns the new balance
func (d *Database) Sell(ctx context.Context, guildID string, userID string, item string, unitValue int, quantity int) (int, error) {
	if quantity <= 0 {
		return 0, fmt.Errorf("sell %d %s: quantity must be positive", quantity, item)
	}
	var coins int
	err := d.tx(ctx, func(tx *sql.Tx) error {
		if err := removeItem(ctx, tx, guildID, userID, item, quantity); err != nil {
			return err
		}
		if err := addToBalance(ctx, tx, guildID, userID, unitValue*quantity); err != nil {
			return err
		}
		var err error
		coins, err = balance(ctx, tx, guildID, userID)
		return err
	})
	return coins, err
}

// Level reached with that much experience. Level n needs 50*n*(n-1) XP
func LevelFor(xp int) int {
	level := 1
	for 50*level*(level+1) <= xp {
		level++
	}
	return level
}

// Record the catch and its experience. Returns the new level when the
// catch made the player level up, zero otherwise
func (d *Database) LogCatch(ctx context.Context, guildID string, userID string, fish string, rarity string, xp int, at time.Time) (int, error) {
	levelUp := 0
	err := d.tx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `INSERT INTO catches(guild_id, user_id, fish, rarity, caught_at) VALUES(?, ?, ?, ?, ?)`,
			guildID, userID, fish, rarity, at.UnixMilli()); err != nil {
			return err
		}
		var before int
		err := tx.QueryRowContext(ctx, `INSERT INTO players(guild_id, user_id, xp) VALUES(?, ?, ?)
			ON CONFLICT(guild_id, user_id) DO UPDATE SET xp = xp + excluded.xp
			RETURNING xp - ?`, guildID, userID, xp, xp).Scan(&before)
		if err != nil {
			return err
		}
		if after := LevelFor(before + xp); after > LevelFor(before) {
			levelUp = after
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("log catch of %s: %w", userID, err)
	}
	return levelUp, nil
}

// Experience and level of the player
func (d *Database) Progress(ctx context.Context, guildID string, userID string) (int, int, error) {
	var xp int
	err := d.db.QueryRowContext(ctx, `SELECT xp FROM players WHERE guild_id = ? AND user_id = ?`, guildID, userID).Scan(&xp)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return 0, 0, err
	}
	return xp, LevelFor(xp), nil
}
