package db

import (
	"context"
	"database/sql"
	"time"
)

// DBTX is satisfied by both *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}

type Queries struct {
	db DBTX
}

func NewQueries(db DBTX) *Queries {
	return &Queries{db: db}
}

type MatchSet struct {
	ID                   string
	Name                 string
	GameMode             string
	TournamentType       string
	RoundDurationMinutes int64
	BreakMinutes         int64
	NumberOfGroups       int64
	ThirdPlaceMatch      bool
	StartTime            time.Time
	CreatedAt            time.Time
}

type Match struct {
	ID          string
	MatchSetID  string
	Slot        int64
	Round       int64
	GroupName   string
	Stage       string
	HomeKind    string
	Home        string
	AwayKind    string
	Away        string
	ScheduledAt sql.NullTime
}

const createMatchSet = `
INSERT INTO match_sets (
    id, name, game_mode, tournament_type, round_duration_minutes, break_minutes, number_of_groups, third_place_match, start_time, created_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`

func (q *Queries) CreateMatchSet(ctx context.Context, arg MatchSet) error {
	_, err := q.db.ExecContext(ctx, createMatchSet,
		arg.ID,
		arg.Name,
		arg.GameMode,
		arg.TournamentType,
		arg.RoundDurationMinutes,
		arg.BreakMinutes,
		arg.NumberOfGroups,
		arg.ThirdPlaceMatch,
		arg.StartTime,
		arg.CreatedAt,
	)
	return err
}

const createMatch = `
INSERT INTO matches (
    id, match_set_id, slot, round, group_name, stage, home_kind, home, away_kind, away, scheduled_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`

func (q *Queries) CreateMatch(ctx context.Context, arg Match) error {
	_, err := q.db.ExecContext(ctx, createMatch,
		arg.ID,
		arg.MatchSetID,
		arg.Slot,
		arg.Round,
		arg.GroupName,
		arg.Stage,
		arg.HomeKind,
		arg.Home,
		arg.AwayKind,
		arg.Away,
		arg.ScheduledAt,
	)
	return err
}

const getMatchSet = `
SELECT id, name, game_mode, tournament_type, round_duration_minutes, break_minutes, number_of_groups, third_place_match, start_time, created_at
FROM match_sets
WHERE id = ?
`

func (q *Queries) GetMatchSet(ctx context.Context, id string) (MatchSet, error) {
	row := q.db.QueryRowContext(ctx, getMatchSet, id)
	var i MatchSet
	err := row.Scan(
		&i.ID,
		&i.Name,
		&i.GameMode,
		&i.TournamentType,
		&i.RoundDurationMinutes,
		&i.BreakMinutes,
		&i.NumberOfGroups,
		&i.ThirdPlaceMatch,
		&i.StartTime,
		&i.CreatedAt,
	)
	return i, err
}

const listMatchesByMatchSet = `
SELECT id, match_set_id, slot, round, group_name, stage, home_kind, home, away_kind, away, scheduled_at
FROM matches
WHERE match_set_id = ?
ORDER BY slot
`

func (q *Queries) ListMatchesByMatchSet(ctx context.Context, matchSetID string) ([]Match, error) {
	rows, err := q.db.QueryContext(ctx, listMatchesByMatchSet, matchSetID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []Match
	for rows.Next() {
		var i Match
		if err := rows.Scan(
			&i.ID,
			&i.MatchSetID,
			&i.Slot,
			&i.Round,
			&i.GroupName,
			&i.Stage,
			&i.HomeKind,
			&i.Home,
			&i.AwayKind,
			&i.Away,
			&i.ScheduledAt,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const deleteMatchSet = `
DELETE FROM match_sets
WHERE id = ?
`

func (q *Queries) DeleteMatchSet(ctx context.Context, id string) (int64, error) {
	result, err := q.db.ExecContext(ctx, deleteMatchSet, id)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
