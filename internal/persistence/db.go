// Package persistence provides SQLite-based storage for turn history and
// the world state needed to resume a run.
package persistence

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"slices"
	"strconv"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/talgya/statecraft/internal/engine"
	"github.com/talgya/statecraft/internal/social"
	"github.com/talgya/statecraft/internal/world"
)

// Meta keys. MetaSavedTurn belongs to the saved world and MetaHistoryTurn to
// the turn history; the two drift apart between saves.
const (
	MetaSavedTurn   = "saved_turn"
	MetaHistoryTurn = "history_turn"
	MetaCycleTurn   = "cycle_turn"
	MetaPrices      = "prices"
	MetaBoosts      = "boosts"
)

// DB wraps a SQLite connection for history and world state.
type DB struct {
	conn *sqlx.DB
}

// PricePoint is one resource's market state at the end of a turn.
type PricePoint struct {
	Turn     int     `json:"turn" db:"turn"`
	Resource string  `json:"resource" db:"resource"`
	Price    float64 `json:"price" db:"price"`
	Supply   float64 `json:"supply" db:"supply"`
	Demand   float64 `json:"demand" db:"demand"`
}

type regionRow struct {
	ID    string `db:"id"`
	Owner string `db:"owner"`
	State string `db:"state_json"`
}

type nationRow struct {
	ID       string `db:"id"`
	Position int    `db:"position"`
	Regions  string `db:"regions_json"`
	State    string `db:"state_json"`
}

// Open opens or creates a SQLite database at the given path.
func Open(path string) (*DB, error) {
	conn, err := sqlx.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS regions (
		id TEXT PRIMARY KEY,
		owner TEXT NOT NULL,
		state_json TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS nations (
		id TEXT PRIMARY KEY,
		position INTEGER NOT NULL,
		regions_json TEXT NOT NULL,
		state_json TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS nation_stats (
		turn INTEGER NOT NULL,
		nation_id TEXT NOT NULL,
		name TEXT NOT NULL,
		regions INTEGER NOT NULL,
		total_wealth INTEGER NOT NULL,
		total_production INTEGER NOT NULL,
		average_infrastructure REAL NOT NULL,
		treasury INTEGER NOT NULL,
		tax_rate REAL NOT NULL,
		gdp REAL NOT NULL,
		gdp_growth REAL NOT NULL,
		inflation REAL NOT NULL,
		stability REAL NOT NULL,
		unrest REAL NOT NULL,
		influence REAL NOT NULL,
		reputation REAL NOT NULL,
		active_policies INTEGER NOT NULL,
		PRIMARY KEY (turn, nation_id)
	);

	CREATE TABLE IF NOT EXISTS prices (
		turn INTEGER NOT NULL,
		resource TEXT NOT NULL,
		price REAL NOT NULL,
		supply REAL NOT NULL,
		demand REAL NOT NULL,
		PRIMARY KEY (turn, resource)
	);

	CREATE TABLE IF NOT EXISTS events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		turn INTEGER NOT NULL,
		description TEXT NOT NULL,
		category TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS world_meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_events_turn ON events(turn);
	CREATE INDEX IF NOT EXISTS idx_nation_stats_nation ON nation_stats(nation_id, turn);
	CREATE INDEX IF NOT EXISTS idx_prices_resource ON prices(resource, turn);
	`
	_, err := db.conn.Exec(schema)
	return err
}

// RecordTurn appends one turn's nation statistics, prices and events.
// Recording the same turn twice replaces its statistics and prices.
func (db *DB) RecordTurn(snap engine.TurnSnapshot) error {
	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, ns := range snap.Nations {
		_, err := tx.NamedExec(`INSERT OR REPLACE INTO nation_stats
			(turn, nation_id, name, regions, total_wealth, total_production,
			 average_infrastructure, treasury, tax_rate, gdp, gdp_growth, inflation,
			 stability, unrest, influence, reputation, active_policies)
			VALUES (:turn, :nation_id, :name, :regions, :total_wealth, :total_production,
			 :average_infrastructure, :treasury, :tax_rate, :gdp, :gdp_growth, :inflation,
			 :stability, :unrest, :influence, :reputation, :active_policies)`, ns)
		if err != nil {
			return fmt.Errorf("insert nation stats %s: %w", ns.NationID, err)
		}
	}

	for _, p := range snap.Prices {
		_, err := tx.Exec(
			"INSERT OR REPLACE INTO prices (turn, resource, price, supply, demand) VALUES (?, ?, ?, ?, ?)",
			snap.Turn, p.Resource, p.Price, p.Supply, p.Demand,
		)
		if err != nil {
			return fmt.Errorf("insert price %s: %w", p.Resource, err)
		}
	}

	for _, e := range snap.Events {
		_, err := tx.Exec(
			"INSERT INTO events (turn, description, category) VALUES (?, ?, ?)",
			e.Turn, e.Description, e.Category,
		)
		if err != nil {
			return err
		}
	}

	if _, err := tx.Exec(
		"INSERT OR REPLACE INTO world_meta (key, value) VALUES (?, ?)",
		MetaHistoryTurn, strconv.Itoa(snap.Turn),
	); err != nil {
		return err
	}

	return tx.Commit()
}

// TruncateHistory drops statistics, prices and events recorded after turn.
// A resumed run calls it so turns past the save are not recorded twice.
func (db *DB) TruncateHistory(turn int) error {
	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, table := range []string{"nation_stats", "prices", "events"} {
		if _, err := tx.Exec("DELETE FROM "+table+" WHERE turn > ?", turn); err != nil {
			return fmt.Errorf("truncate %s: %w", table, err)
		}
	}
	if _, err := tx.Exec(
		"INSERT OR REPLACE INTO world_meta (key, value) VALUES (?, ?)",
		MetaHistoryTurn, strconv.Itoa(turn),
	); err != nil {
		return err
	}
	return tx.Commit()
}

// NationHistory returns up to limit of a nation's most recent statistics,
// oldest first.
func (db *DB) NationHistory(nationID string, limit int) ([]engine.NationStats, error) {
	var rows []engine.NationStats
	err := db.conn.Select(&rows,
		"SELECT * FROM nation_stats WHERE nation_id = ? ORDER BY turn DESC LIMIT ?",
		nationID, limit,
	)
	slices.Reverse(rows)
	return rows, err
}

// PriceHistory returns up to limit of a resource's most recent prices,
// oldest first.
func (db *DB) PriceHistory(resource string, limit int) ([]PricePoint, error) {
	var rows []PricePoint
	err := db.conn.Select(&rows,
		"SELECT turn, resource, price, supply, demand FROM prices WHERE resource = ? ORDER BY turn DESC LIMIT ?",
		resource, limit,
	)
	slices.Reverse(rows)
	return rows, err
}

// RecentEvents returns the most recent N events, newest first.
func (db *DB) RecentEvents(limit int) ([]engine.Event, error) {
	var events []engine.Event
	err := db.conn.Select(&events,
		"SELECT turn, description, category FROM events ORDER BY id DESC LIMIT ?",
		limit,
	)
	return events, err
}

// SaveMeta stores a key-value pair in world metadata.
func (db *DB) SaveMeta(key, value string) error {
	_, err := db.conn.Exec(
		"INSERT OR REPLACE INTO world_meta (key, value) VALUES (?, ?)",
		key, value,
	)
	return err
}

// GetMeta retrieves a metadata value.
func (db *DB) GetMeta(key string) (string, error) {
	var value string
	err := db.conn.Get(&value, "SELECT value FROM world_meta WHERE key = ?", key)
	return value, err
}

// SaveWorldState replaces the saved regions and nations with the current
// ones. The simulation is read between turns.
func (db *DB) SaveWorldState(sim *engine.Simulation) error {
	var (
		regions   []regionRow
		nations   []nationRow
		prices    = make(map[string]float64)
		boosts    []engine.ProductionBoost
		turn      int
		cycleTurn int
		encodeErr error
	)
	sim.View(func() {
		for _, r := range sim.Economy.Regions() {
			state, err := json.Marshal(r)
			if err != nil {
				encodeErr = fmt.Errorf("encode region %s: %w", r.ID, err)
				return
			}
			owner, _ := sim.Nations.NationOf(r.ID)
			regions = append(regions, regionRow{ID: r.ID, Owner: owner, State: string(state)})
		}
		for i, n := range sim.Nations.Nations() {
			state, err := json.Marshal(n)
			if err != nil {
				encodeErr = fmt.Errorf("encode nation %s: %w", n.ID, err)
				return
			}
			ids, _ := json.Marshal(n.RegionIDs())
			nations = append(nations, nationRow{ID: n.ID, Position: i, Regions: string(ids), State: string(state)})
		}
		for _, e := range sim.Economy.Ledger().Entries() {
			prices[e.Resource] = e.Price
		}
		boosts = sim.ActiveBoosts()
		turn = sim.Stats.Turn
		cycleTurn = sim.Economy.Cycle().Turn()
	})
	if encodeErr != nil {
		return encodeErr
	}
	pricesJSON, _ := json.Marshal(prices)
	boostsJSON, _ := json.Marshal(boosts)

	slog.Info("saving world state", "regions", len(regions), "nations", len(nations), "turn", turn)

	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM regions"); err != nil {
		return err
	}
	if _, err := tx.Exec("DELETE FROM nations"); err != nil {
		return err
	}

	stmt, err := tx.Preparex("INSERT INTO regions (id, owner, state_json) VALUES (?, ?, ?)")
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, r := range regions {
		if _, err := stmt.Exec(r.ID, r.Owner, r.State); err != nil {
			return fmt.Errorf("insert region %s: %w", r.ID, err)
		}
	}

	for _, n := range nations {
		if _, err := tx.NamedExec(
			"INSERT INTO nations (id, position, regions_json, state_json) VALUES (:id, :position, :regions_json, :state_json)", n,
		); err != nil {
			return fmt.Errorf("insert nation %s: %w", n.ID, err)
		}
	}

	meta := map[string]string{
		MetaSavedTurn: strconv.Itoa(turn),
		MetaCycleTurn: strconv.Itoa(cycleTurn),
		MetaPrices:    string(pricesJSON),
		MetaBoosts:    string(boostsJSON),
	}
	for k, v := range meta {
		if _, err := tx.Exec("INSERT OR REPLACE INTO world_meta (key, value) VALUES (?, ?)", k, v); err != nil {
			return fmt.Errorf("save meta %s: %w", k, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	slog.Info("world state saved")
	return nil
}

// HasWorldState reports whether a saved world exists.
func (db *DB) HasWorldState() bool {
	var count int
	if err := db.conn.Get(&count, "SELECT COUNT(*) FROM regions"); err != nil {
		return false
	}
	return count > 0
}

// LoadWorldState reads the saved world. resourceTypes seeds any resource a
// saved region is missing.
func (db *DB) LoadWorldState(resourceTypes []string) (engine.WorldState, error) {
	var ws engine.WorldState

	var regions []regionRow
	if err := db.conn.Select(&regions, "SELECT id, owner, state_json FROM regions ORDER BY rowid"); err != nil {
		return ws, fmt.Errorf("load regions: %w", err)
	}
	for _, row := range regions {
		r := world.NewRegion(world.RegionSpec{ID: row.ID}, resourceTypes)
		if err := json.Unmarshal([]byte(row.State), r); err != nil {
			return ws, fmt.Errorf("decode region %s: %w", row.ID, err)
		}
		ws.Regions = append(ws.Regions, r)
	}

	var nations []nationRow
	if err := db.conn.Select(&nations, "SELECT id, position, regions_json, state_json FROM nations ORDER BY position"); err != nil {
		return ws, fmt.Errorf("load nations: %w", err)
	}
	for _, row := range nations {
		n := social.NewNation(row.ID, "", "")
		if err := json.Unmarshal([]byte(row.State), n); err != nil {
			return ws, fmt.Errorf("decode nation %s: %w", row.ID, err)
		}
		var ids []string
		if err := json.Unmarshal([]byte(row.Regions), &ids); err != nil {
			return ws, fmt.Errorf("decode nation %s regions: %w", row.ID, err)
		}
		for _, id := range ids {
			n.AddRegion(id)
		}
		ws.Nations = append(ws.Nations, n)
	}

	if v, err := db.GetMeta(MetaSavedTurn); err == nil {
		ws.Turn, _ = strconv.Atoi(v)
	}
	if v, err := db.GetMeta(MetaCycleTurn); err == nil {
		ws.CycleTurn, _ = strconv.Atoi(v)
	}
	if v, err := db.GetMeta(MetaPrices); err == nil {
		if err := json.Unmarshal([]byte(v), &ws.Prices); err != nil {
			return ws, fmt.Errorf("decode prices: %w", err)
		}
	}
	if v, err := db.GetMeta(MetaBoosts); err == nil {
		if err := json.Unmarshal([]byte(v), &ws.Boosts); err != nil {
			return ws, fmt.Errorf("decode boosts: %w", err)
		}
	}
	return ws, nil
}
