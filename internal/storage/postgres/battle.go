package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	rpgerr "github.com/cory-johannsen/dnd-combat/internal/errors"
	"github.com/cory-johannsen/dnd-combat/internal/game/event"
)

// Battle is one recorded simulation.
type Battle struct {
	ID          int64
	EncounterID string
	Seed        int64
	Outcome     string
	Rounds      int
	Turns       int
	GameTime    time.Duration
	Survivors   []string
	CreatedAt   time.Time
}

// BattleRepository persists battles and their event logs.
type BattleRepository struct {
	db *pgxpool.Pool
}

// NewBattleRepository creates a BattleRepository backed by db.
//
// Precondition: db must be a valid, open connection pool.
func NewBattleRepository(db *pgxpool.Pool) *BattleRepository {
	return &BattleRepository{db: db}
}

// Record inserts b and its events in one transaction.
//
// Precondition: b.EncounterID and b.Outcome must be non-empty.
// Postcondition: returns b with ID and CreatedAt set; events are stored with
// seq numbers 1..len(events) in the given order.
func (r *BattleRepository) Record(ctx context.Context, b Battle, events []event.Event) (*Battle, error) {
	if b.EncounterID == "" || b.Outcome == "" {
		return nil, rpgerr.InvalidInput("battle: encounter id and outcome are required")
	}
	survivors := b.Survivors
	if survivors == nil {
		survivors = []string{}
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("beginning battle transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	out := b
	out.Survivors = survivors
	err = tx.QueryRow(ctx, `
		INSERT INTO battles (encounter_id, seed, outcome, rounds, turns, game_time_ms, survivors)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		RETURNING id, created_at`,
		b.EncounterID, b.Seed, b.Outcome, b.Rounds, b.Turns, b.GameTime.Milliseconds(), survivors,
	).Scan(&out.ID, &out.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("inserting battle: %w", err)
	}

	if len(events) > 0 {
		rows := make([][]any, len(events))
		for i, e := range events {
			rows[i] = []any{out.ID, i + 1, string(e.Type), e.Actor, e.Target, e.Amount, e.Detail}
		}
		_, err = tx.CopyFrom(ctx,
			pgx.Identifier{"battle_events"},
			[]string{"battle_id", "seq", "type", "actor", "target", "amount", "detail"},
			pgx.CopyFromRows(rows),
		)
		if err != nil {
			return nil, fmt.Errorf("copying battle events: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("committing battle: %w", err)
	}
	return &out, nil
}

// Get returns the battle with id or a not_found error.
func (r *BattleRepository) Get(ctx context.Context, id int64) (*Battle, error) {
	row := r.db.QueryRow(ctx, `
		SELECT id, encounter_id, seed, outcome, rounds, turns, game_time_ms, survivors, created_at
		FROM battles WHERE id = $1`, id)
	b, err := scanBattle(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, rpgerr.NotFoundf("battle %d not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("querying battle: %w", err)
	}
	return b, nil
}

// ListRecent returns up to limit battles, newest first. An empty
// encounterID lists every encounter.
//
// Precondition: limit must be > 0.
// Postcondition: Returns a slice (may be empty) or a non-nil error.
func (r *BattleRepository) ListRecent(ctx context.Context, encounterID string, limit int) ([]*Battle, error) {
	if limit <= 0 {
		return nil, rpgerr.InvalidInputf("battle: limit must be > 0, got %d", limit)
	}
	rows, err := r.db.Query(ctx, `
		SELECT id, encounter_id, seed, outcome, rounds, turns, game_time_ms, survivors, created_at
		FROM battles
		WHERE $1::text = '' OR encounter_id = $1::text
		ORDER BY created_at DESC, id DESC
		LIMIT $2`,
		encounterID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("listing battles: %w", err)
	}
	defer rows.Close()

	battles := []*Battle{}
	for rows.Next() {
		b, err := scanBattle(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning battle: %w", err)
		}
		battles = append(battles, b)
	}
	return battles, rows.Err()
}

// Events returns the recorded event log of battle id in order.
func (r *BattleRepository) Events(ctx context.Context, id int64) ([]event.Event, error) {
	rows, err := r.db.Query(ctx, `
		SELECT type, actor, target, amount, detail
		FROM battle_events WHERE battle_id = $1 ORDER BY seq`, id)
	if err != nil {
		return nil, fmt.Errorf("listing battle events: %w", err)
	}
	defer rows.Close()

	events := []event.Event{}
	for rows.Next() {
		var e event.Event
		var typ string
		if err := rows.Scan(&typ, &e.Actor, &e.Target, &e.Amount, &e.Detail); err != nil {
			return nil, fmt.Errorf("scanning battle event: %w", err)
		}
		e.Type = event.Type(typ)
		events = append(events, e)
	}
	return events, rows.Err()
}

// OutcomeCounts tallies the outcomes recorded for encounterID.
func (r *BattleRepository) OutcomeCounts(ctx context.Context, encounterID string) (map[string]int, error) {
	rows, err := r.db.Query(ctx, `
		SELECT outcome, COUNT(*) FROM battles WHERE encounter_id = $1 GROUP BY outcome`, encounterID)
	if err != nil {
		return nil, fmt.Errorf("counting outcomes: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var outcome string
		var n int
		if err := rows.Scan(&outcome, &n); err != nil {
			return nil, fmt.Errorf("scanning outcome count: %w", err)
		}
		counts[outcome] = n
	}
	return counts, rows.Err()
}

func scanBattle(row pgx.Row) (*Battle, error) {
	var b Battle
	var ms int64
	err := row.Scan(&b.ID, &b.EncounterID, &b.Seed, &b.Outcome, &b.Rounds, &b.Turns, &ms, &b.Survivors, &b.CreatedAt)
	if err != nil {
		return nil, err
	}
	b.GameTime = time.Duration(ms) * time.Millisecond
	return &b, nil
}
