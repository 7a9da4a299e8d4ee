package schedule

import (
	"time"

	"github.com/google/uuid"
)

type GameMode string

const (
	GameModeRoundRobin       GameMode = "round_robin"
	GameModeGroupsWithFinals GameMode = "groups_with_finals"
)

type TournamentType string

const (
	// TournamentTypeIndoorHall plays one match at a time on a single shared field.
	TournamentTypeIndoorHall TournamentType = "indoor_hall"
	// TournamentTypeNormal plays every match of a round in parallel.
	TournamentTypeNormal TournamentType = "normal"
)

type Stage string

const (
	StageGroup        Stage = "group"
	StageRoundOf16    Stage = "round_of_16"
	StageQuarterfinal Stage = "quarterfinal"
	StageSemifinal    Stage = "semifinal"
	StageThirdPlace   Stage = "third_place"
	StageFinal        Stage = "final"
)

const (
	MinGroups = 1
	MaxGroups = 12
)

type Team struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
}

type ParticipantKind int

const (
	ParticipantNone ParticipantKind = iota
	ParticipantTeam
	ParticipantPlaceholder
)

// Participant is one side of a match: a concrete team or a bracket slot
// that is resolved after the fact.
type Participant struct {
	Kind   ParticipantKind
	TeamID string
	Label  string
}

func TeamRef(id string) Participant {
	return Participant{Kind: ParticipantTeam, TeamID: id}
}

func Placeholder(label string) Participant {
	return Participant{Kind: ParticipantPlaceholder, Label: label}
}

func (p Participant) IsZero() bool {
	return p.Kind == ParticipantNone
}

func (p Participant) IsTeam() bool {
	return p.Kind == ParticipantTeam
}

func (p Participant) IsPlaceholder() bool {
	return p.Kind == ParticipantPlaceholder
}

// Value returns the team id or the placeholder label.
func (p Participant) Value() string {
	switch p.Kind {
	case ParticipantTeam:
		return p.TeamID
	case ParticipantPlaceholder:
		return p.Label
	default:
		return ""
	}
}

// SameTeam reports whether both participants are the same concrete team.
// Placeholders never compare equal, even with identical labels.
func (p Participant) SameTeam(other Participant) bool {
	return p.IsTeam() && other.IsTeam() && p.TeamID == other.TeamID
}

type Match struct {
	ID          uuid.UUID
	Home        Participant
	Away        Participant
	Round       int
	Slot        int
	Group       string
	Stage       Stage
	ScheduledAt time.Time
}

func (m Match) IsScheduled() bool {
	return !m.ScheduledAt.IsZero()
}

// MatchSet is the ordered schedule owned by an editor session.
type MatchSet []Match

func (s MatchSet) Clone() MatchSet {
	if s == nil {
		return nil
	}
	out := make(MatchSet, len(s))
	copy(out, s)
	return out
}

func (s MatchSet) IndexOf(id uuid.UUID) int {
	for i, match := range s {
		if match.ID == id {
			return i
		}
	}
	return -1
}

type TournamentConfig struct {
	GameMode             GameMode
	TournamentType       TournamentType
	RoundDurationMinutes int
	BreakMinutes         int
	NumberOfGroups       int
	StartTime            time.Time
	ThirdPlaceMatch      bool
	// Seeding pairs group qualifiers for more than two groups.
	// RankedSeeding is used when nil.
	Seeding SeedingStrategy
}

// SlotInterval is the distance between two consecutive kickoffs.
func (c TournamentConfig) SlotInterval() time.Duration {
	return time.Duration(c.RoundDurationMinutes+c.BreakMinutes) * time.Minute
}

// Validate checks the format and timing settings. Team dependent bounds are
// checked by Generate.
func (c TournamentConfig) Validate() error {
	switch c.GameMode {
	case GameModeRoundRobin:
	case GameModeGroupsWithFinals:
		if c.NumberOfGroups < MinGroups || c.NumberOfGroups > MaxGroups {
			return configErrorf("numberOfGroups", "must be between %d and %d", MinGroups, MaxGroups)
		}
	default:
		return configErrorf("gameMode", "unsupported game mode %q", c.GameMode)
	}
	switch c.TournamentType {
	case TournamentTypeIndoorHall, TournamentTypeNormal:
	default:
		return configErrorf("tournamentType", "unsupported tournament type %q", c.TournamentType)
	}
	if c.RoundDurationMinutes <= 0 {
		return configErrorf("roundDurationMinutes", "must be greater than 0")
	}
	if c.BreakMinutes < 0 {
		return configErrorf("breakMinutes", "must be 0 or greater")
	}
	return nil
}
