package schedule

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

type State int

const (
	StateEmpty State = iota
	StatePopulated
	StateFinalized
)

func (s State) String() string {
	switch s {
	case StateEmpty:
		return "empty"
	case StatePopulated:
		return "populated"
	case StateFinalized:
		return "finalized"
	default:
		return "unknown"
	}
}

type Field string

const (
	FieldHome        Field = "home"
	FieldAway        Field = "away"
	FieldGroup       Field = "group"
	FieldStage       Field = "stage"
	FieldScheduledAt Field = "scheduledAt"
)

// MatchPatch holds the raw values of a manually added match. Home and away
// are team ids or placeholder text; empty values stay blank.
type MatchPatch struct {
	Home  string
	Away  string
	Group string
	Stage Stage
}

// Editor is one editing session over a match list. It is not safe for
// concurrent use; callers serialize access per session.
type Editor struct {
	teams   []Team
	roster  map[string]struct{}
	cfg     TournamentConfig
	matches MatchSet
	state   State
}

func NewEditor(teams []Team, cfg TournamentConfig) *Editor {
	e := &Editor{cfg: cfg}
	e.setTeams(teams)
	return e
}

func (e *Editor) setTeams(teams []Team) {
	e.teams = append([]Team(nil), teams...)
	e.roster = make(map[string]struct{}, len(teams))
	for _, team := range teams {
		e.roster[strings.TrimSpace(team.ID)] = struct{}{}
	}
}

func (e *Editor) State() State {
	return e.state
}

func (e *Editor) Config() TournamentConfig {
	return e.cfg
}

func (e *Editor) Teams() []Team {
	return append([]Team(nil), e.teams...)
}

// Matches returns a copy of the current list.
func (e *Editor) Matches() MatchSet {
	return e.matches.Clone()
}

// Regenerate discards the current list and replaces it with a freshly
// generated and scheduled one.
func (e *Editor) Regenerate(teams []Team, cfg TournamentConfig) error {
	if e.state == StateFinalized {
		return ErrFinalized
	}
	matches, err := Generate(teams, cfg)
	if err != nil {
		return err
	}
	e.setTeams(teams)
	e.cfg = cfg
	e.replace(Schedule(matches, cfg))
	return nil
}

// Import replaces the list with externally supplied requests. Every entry
// starts at round and slot 1; Submit computes the final ordering.
func (e *Editor) Import(requests []MatchRequest) error {
	if e.state == StateFinalized {
		return ErrFinalized
	}
	matches := make(MatchSet, 0, len(requests))
	for i, req := range requests {
		scheduledAt, err := ParseScheduledAt(req.ScheduledAt)
		if err != nil {
			return fmt.Errorf("match %d: %w", i+1, err)
		}
		matches = append(matches, Match{
			ID:          uuid.New(),
			Home:        e.participant(req.HomeTeamID),
			Away:        e.participant(req.AwayTeamID),
			Round:       1,
			Slot:        1,
			Group:       strings.TrimSpace(req.Group),
			Stage:       Stage(strings.TrimSpace(req.Stage)),
			ScheduledAt: scheduledAt,
		})
	}
	e.replace(matches)
	return nil
}

// Discard drops the list and returns the session to empty.
func (e *Editor) Discard() {
	e.matches = nil
	e.state = StateEmpty
}

func (e *Editor) replace(matches MatchSet) {
	e.matches = matches
	if len(matches) == 0 {
		e.state = StateEmpty
		return
	}
	e.state = StatePopulated
}

// Add appends a match in a round of its own. Only the new entry is stamped,
// one interval after the previous match, so earlier manual kickoffs are kept.
func (e *Editor) Add(patch MatchPatch) (Match, error) {
	if e.state == StateFinalized {
		return Match{}, ErrFinalized
	}
	match := Match{
		ID:    uuid.New(),
		Home:  e.participant(patch.Home),
		Away:  e.participant(patch.Away),
		Round: 1,
		Slot:  len(e.matches) + 1,
		Group: strings.TrimSpace(patch.Group),
		Stage: patch.Stage,
	}
	if len(e.matches) == 0 {
		match.ScheduledAt = e.cfg.StartTime
	} else {
		prev := e.matches[len(e.matches)-1]
		match.Round = prev.Round + 1
		if prev.IsScheduled() {
			match.ScheduledAt = prev.ScheduledAt.Add(e.cfg.SlotInterval())
		}
	}
	e.matches = append(e.matches, match)
	e.state = StatePopulated
	return match, nil
}

// Remove deletes a match and retimes the whole list from the first kickoff
// as it was before the removal.
func (e *Editor) Remove(id uuid.UUID) error {
	if e.state == StateFinalized {
		return ErrFinalized
	}
	idx := e.matches.IndexOf(id)
	if idx < 0 {
		return ErrMatchNotFound
	}
	anchor := e.anchor()
	remaining := make(MatchSet, 0, len(e.matches)-1)
	remaining = append(remaining, e.matches[:idx]...)
	remaining = append(remaining, e.matches[idx+1:]...)
	e.matches = e.restamp(remaining, anchor)
	return nil
}

// Reorder moves the match at from to position to (both zero-based) and
// retimes the whole list. Manual kickoffs are not carried across a move.
func (e *Editor) Reorder(from, to int) error {
	if e.state == StateFinalized {
		return ErrFinalized
	}
	if from < 0 || from >= len(e.matches) || to < 0 || to >= len(e.matches) {
		return ErrIndexOutOfRange
	}
	if from == to {
		return nil
	}
	anchor := e.anchor()
	moved := e.matches[from]
	reordered := make(MatchSet, 0, len(e.matches))
	reordered = append(reordered, e.matches[:from]...)
	reordered = append(reordered, e.matches[from+1:]...)
	reordered = append(reordered[:to], append(MatchSet{moved}, reordered[to:]...)...)
	e.matches = e.restamp(reordered, anchor)
	return nil
}

// UpdateField sets one field of a match. A new kickoff is taken as is and
// does not move any other match.
func (e *Editor) UpdateField(id uuid.UUID, field Field, value string) error {
	if e.state == StateFinalized {
		return ErrFinalized
	}
	idx := e.matches.IndexOf(id)
	if idx < 0 {
		return ErrMatchNotFound
	}
	match := e.matches[idx]
	switch field {
	case FieldHome:
		match.Home = e.participant(value)
	case FieldAway:
		match.Away = e.participant(value)
	case FieldGroup:
		match.Group = strings.TrimSpace(value)
	case FieldStage:
		match.Stage = Stage(strings.TrimSpace(value))
	case FieldScheduledAt:
		scheduledAt, err := ParseScheduledAt(value)
		if err != nil {
			return err
		}
		match.ScheduledAt = scheduledAt
	default:
		return fmt.Errorf("%w: %s", ErrUnknownField, field)
	}
	e.matches[idx] = match
	return nil
}

// SetGroupCount changes the group alphabet to A..n. Matches whose group
// falls outside it lose their group; zero disables groups.
func (e *Editor) SetGroupCount(n int) error {
	if e.state == StateFinalized {
		return ErrFinalized
	}
	if n < 0 || n > MaxGroups {
		return configErrorf("numberOfGroups", "must be between 0 and %d", MaxGroups)
	}
	e.cfg.NumberOfGroups = n
	alphabet := groupAlphabet(n)
	for i := range e.matches {
		if e.matches[i].Group == "" {
			continue
		}
		if _, ok := alphabet[e.matches[i].Group]; !ok {
			e.matches[i].Group = ""
		}
	}
	return nil
}

// Submit validates the list and finalizes the session. On failure it
// returns ValidationErrors and leaves the session untouched. On success
// slots follow list order and rounds count matches per group.
func (e *Editor) Submit() (MatchSet, error) {
	if e.state == StateFinalized {
		return nil, ErrFinalized
	}
	if errs := e.validate(); len(errs) > 0 {
		return nil, errs
	}

	final := e.matches.Clone()
	rounds := make(map[string]int)
	for i := range final {
		rounds[final[i].Group]++
		final[i].Slot = i + 1
		final[i].Round = rounds[final[i].Group]
	}
	e.matches = final
	e.state = StateFinalized
	return final.Clone(), nil
}

// Reopen returns a finalized session to editing, keeping the submitted
// ordering. It is used when the finalized list could not be stored.
func (e *Editor) Reopen() {
	if e.state != StateFinalized {
		return
	}
	e.state = StatePopulated
}

func (e *Editor) validate() ValidationErrors {
	if len(e.matches) == 0 {
		return ValidationErrors{{Field: "matches", Reason: "at least one match is required"}}
	}

	alphabet := groupAlphabet(e.cfg.NumberOfGroups)

	var errs ValidationErrors
	for i, match := range e.matches {
		fail := func(field, reason string) {
			errs = append(errs, ValidationError{MatchID: match.ID, Position: i + 1, Field: field, Reason: reason})
		}
		if reason := e.participantProblem(match.Home); reason != "" {
			fail(string(FieldHome), reason)
		}
		if reason := e.participantProblem(match.Away); reason != "" {
			fail(string(FieldAway), reason)
		}
		if match.Home.SameTeam(match.Away) {
			fail(string(FieldAway), "must differ from the home team")
		}
		if match.Group != "" {
			if _, ok := alphabet[match.Group]; !ok {
				fail(string(FieldGroup), e.groupProblem())
			}
		}
	}
	return errs
}

func (e *Editor) groupProblem() string {
	if e.cfg.NumberOfGroups == 0 {
		return "must be empty when the tournament has no groups"
	}
	return fmt.Sprintf("must be one of A-%s", GroupName(e.cfg.NumberOfGroups-1))
}

func (e *Editor) participantProblem(p Participant) string {
	switch {
	case p.IsZero():
		return "is required"
	case p.IsTeam():
		if _, ok := e.roster[p.TeamID]; !ok {
			return "references an unknown team"
		}
	case !IsPlaceholder(p.Label):
		return "must be a team or a placeholder"
	}
	return ""
}

// participant resolves raw input against the roster. Anything that is not a
// known team id is kept as placeholder text and checked on submit.
func (e *Editor) participant(raw string) Participant {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Participant{}
	}
	if _, ok := e.roster[raw]; ok {
		return TeamRef(raw)
	}
	return Placeholder(raw)
}

func (e *Editor) anchor() time.Time {
	if len(e.matches) > 0 && e.matches[0].IsScheduled() {
		return e.matches[0].ScheduledAt
	}
	return e.cfg.StartTime
}

func (e *Editor) restamp(matches MatchSet, anchor time.Time) MatchSet {
	parallel := e.cfg.TournamentType == TournamentTypeNormal && roundsOrdered(matches)
	out := stampFrom(matches, anchor, e.cfg.SlotInterval(), parallel)
	for i := range out {
		out[i].Slot = i + 1
	}
	return out
}
