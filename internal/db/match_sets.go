package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/codr1/matchday/internal/schedule"
)

var ErrMatchSetNotFound = errors.New("match set not found")

const (
	participantKindTeam        = "team"
	participantKindPlaceholder = "placeholder"
)

// StoredMatchSet is a finalized schedule as read back from the database.
type StoredMatchSet struct {
	ID        string                    `json:"id"`
	Name      string                    `json:"name"`
	Config    schedule.TournamentConfig `json:"-"`
	Matches   []schedule.Match          `json:"-"`
	CreatedAt time.Time                 `json:"createdAt"`
}

// SaveMatchSet writes a finalized match list and its configuration in one
// transaction and returns the new match set id.
func (db *DB) SaveMatchSet(ctx context.Context, name string, cfg schedule.TournamentConfig, matches []schedule.Match) (string, error) {
	matchSetID := uuid.NewString()
	err := db.RunInTx(ctx, func(txdb *DB) error {
		qtx := txdb.Queries
		if err := qtx.CreateMatchSet(ctx, MatchSet{
			ID:                   matchSetID,
			Name:                 name,
			GameMode:             string(cfg.GameMode),
			TournamentType:       string(cfg.TournamentType),
			RoundDurationMinutes: int64(cfg.RoundDurationMinutes),
			BreakMinutes:         int64(cfg.BreakMinutes),
			NumberOfGroups:       int64(cfg.NumberOfGroups),
			ThirdPlaceMatch:      cfg.ThirdPlaceMatch,
			StartTime:            cfg.StartTime.UTC(),
			CreatedAt:            time.Now().UTC(),
		}); err != nil {
			return fmt.Errorf("create match set: %w", err)
		}

		for _, match := range matches {
			row := Match{
				ID:         match.ID.String(),
				MatchSetID: matchSetID,
				Slot:       int64(match.Slot),
				Round:      int64(match.Round),
				GroupName:  match.Group,
				Stage:      string(match.Stage),
				HomeKind:   participantKind(match.Home),
				Home:       match.Home.Value(),
				AwayKind:   participantKind(match.Away),
				Away:       match.Away.Value(),
			}
			if match.IsScheduled() {
				row.ScheduledAt = sql.NullTime{Time: match.ScheduledAt.UTC(), Valid: true}
			}
			if err := qtx.CreateMatch(ctx, row); err != nil {
				return fmt.Errorf("create match %d: %w", match.Slot, err)
			}
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return matchSetID, nil
}

// LoadMatchSet reads a match set with its matches in slot order.
func (db *DB) LoadMatchSet(ctx context.Context, id string) (*StoredMatchSet, error) {
	header, err := db.Queries.GetMatchSet(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMatchSetNotFound
		}
		return nil, fmt.Errorf("get match set: %w", err)
	}

	rows, err := db.Queries.ListMatchesByMatchSet(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("list matches: %w", err)
	}

	matches := make([]schedule.Match, 0, len(rows))
	for _, row := range rows {
		matchID, err := uuid.Parse(row.ID)
		if err != nil {
			return nil, fmt.Errorf("match %s: %w", row.ID, err)
		}
		match := schedule.Match{
			ID:    matchID,
			Home:  participantFromRow(row.HomeKind, row.Home),
			Away:  participantFromRow(row.AwayKind, row.Away),
			Round: int(row.Round),
			Slot:  int(row.Slot),
			Group: row.GroupName,
			Stage: schedule.Stage(row.Stage),
		}
		if row.ScheduledAt.Valid {
			match.ScheduledAt = row.ScheduledAt.Time
		}
		matches = append(matches, match)
	}

	return &StoredMatchSet{
		ID:   header.ID,
		Name: header.Name,
		Config: schedule.TournamentConfig{
			GameMode:             schedule.GameMode(header.GameMode),
			TournamentType:       schedule.TournamentType(header.TournamentType),
			RoundDurationMinutes: int(header.RoundDurationMinutes),
			BreakMinutes:         int(header.BreakMinutes),
			NumberOfGroups:       int(header.NumberOfGroups),
			ThirdPlaceMatch:      header.ThirdPlaceMatch,
			StartTime:            header.StartTime,
		},
		Matches:   matches,
		CreatedAt: header.CreatedAt,
	}, nil
}

func participantKind(p schedule.Participant) string {
	if p.IsTeam() {
		return participantKindTeam
	}
	return participantKindPlaceholder
}

func participantFromRow(kind, value string) schedule.Participant {
	if kind == participantKindTeam {
		return schedule.TeamRef(value)
	}
	return schedule.Placeholder(value)
}
