package schedules

import (
	"strings"
	"time"

	"github.com/codr1/matchday/internal/api/apiutil"
	"github.com/codr1/matchday/internal/importer"
	"github.com/codr1/matchday/internal/schedule"
	"github.com/codr1/matchday/internal/sessions"
)

const (
	importFormatCSV  = "csv"
	importFormatJSON = "json"
)

type configPayload struct {
	GameMode             string `json:"gameMode,omitempty"`
	TournamentType       string `json:"tournamentType,omitempty"`
	RoundDurationMinutes int    `json:"roundDurationMinutes,omitempty"`
	BreakMinutes         int    `json:"breakMinutes,omitempty"`
	NumberOfGroups       int    `json:"numberOfGroups,omitempty"`
	StartTime            string `json:"startTime,omitempty"`
	ThirdPlaceMatch      *bool  `json:"thirdPlaceMatch,omitempty"`
}

type generateRequest struct {
	Name   string          `json:"name"`
	Teams  []schedule.Team `json:"teams"`
	Config configPayload   `json:"config"`
}

// importRequest carries either ready match rows or raw CSV/JSON data that
// is parsed with the importer.
type importRequest struct {
	Name    string                  `json:"name"`
	Teams   []schedule.Team         `json:"teams"`
	Config  configPayload           `json:"config"`
	Format  string                  `json:"format,omitempty"`
	Data    string                  `json:"data,omitempty"`
	Mapping importer.Mapping        `json:"mapping"`
	Matches []schedule.MatchRequest `json:"matches,omitempty"`
}

type addMatchRequest struct {
	HomeTeamID string `json:"homeTeamId"`
	AwayTeamID string `json:"awayTeamId"`
	Group      string `json:"group"`
	Stage      string `json:"stage"`
}

type updateMatchRequest struct {
	Field string `json:"field"`
	Value string `json:"value"`
}

type reorderRequest struct {
	From int `json:"from"`
	To   int `json:"to"`
}

type groupsRequest struct {
	NumberOfGroups int `json:"numberOfGroups"`
}

type regenerateRequest struct {
	Teams  []schedule.Team `json:"teams"`
	Config *configPayload  `json:"config"`
}

type sessionResponse struct {
	ID      string                  `json:"id"`
	Name    string                  `json:"name"`
	State   string                  `json:"state"`
	Config  configPayload           `json:"config"`
	Teams   []schedule.Team         `json:"teams"`
	Matches []schedule.MatchRequest `json:"matches"`
}

type submitResponse struct {
	MatchSetID string                  `json:"matchSetId"`
	Matches    []schedule.MatchRequest `json:"matches"`
}

type matchSetResponse struct {
	ID        string                  `json:"id"`
	Name      string                  `json:"name"`
	Config    configPayload           `json:"config"`
	Matches   []schedule.MatchRequest `json:"matches"`
	CreatedAt time.Time               `json:"createdAt"`
}

// toConfig builds a tournament config with server defaults for omitted
// timing fields. Generation needs a start time, imports do not.
func (p configPayload) toConfig(requireStart bool) (schedule.TournamentConfig, error) {
	start, err := schedule.ParseScheduledAt(p.StartTime)
	if err != nil {
		return schedule.TournamentConfig{}, apiutil.FieldError{Field: "startTime", Reason: "must be an ISO-8601 timestamp"}
	}
	if requireStart && start.IsZero() {
		return schedule.TournamentConfig{}, apiutil.FieldError{Field: "startTime", Reason: "is required"}
	}

	cfg := schedule.TournamentConfig{
		GameMode:             schedule.GameMode(strings.TrimSpace(p.GameMode)),
		TournamentType:       schedule.TournamentType(strings.TrimSpace(p.TournamentType)),
		RoundDurationMinutes: p.RoundDurationMinutes,
		BreakMinutes:         p.BreakMinutes,
		NumberOfGroups:       p.NumberOfGroups,
		StartTime:            start,
	}
	if cfg.GameMode == "" {
		cfg.GameMode = schedule.GameModeRoundRobin
	}
	if appConfig != nil {
		cfg = appConfig.TournamentDefaults(cfg)
		cfg.ThirdPlaceMatch = appConfig.Scheduling.ThirdPlaceMatch
	}
	if p.ThirdPlaceMatch != nil {
		cfg.ThirdPlaceMatch = *p.ThirdPlaceMatch
	}
	return cfg, nil
}

func (req importRequest) matchRequests() ([]schedule.MatchRequest, error) {
	if len(req.Matches) > 0 {
		return req.Matches, nil
	}
	if strings.TrimSpace(req.Data) == "" {
		return nil, apiutil.FieldError{Field: "data", Reason: "is required when no matches are given"}
	}

	switch strings.ToLower(apiutil.FirstNonEmpty(req.Format, importFormatCSV)) {
	case importFormatCSV:
		return importer.ParseCSV(strings.NewReader(req.Data), req.Mapping)
	case importFormatJSON:
		return importer.ParseJSON(strings.NewReader(req.Data))
	default:
		return nil, apiutil.FieldError{Field: "format", Reason: "must be csv or json"}
	}
}

func configPayloadFrom(cfg schedule.TournamentConfig) configPayload {
	thirdPlace := cfg.ThirdPlaceMatch
	payload := configPayload{
		GameMode:             string(cfg.GameMode),
		TournamentType:       string(cfg.TournamentType),
		RoundDurationMinutes: cfg.RoundDurationMinutes,
		BreakMinutes:         cfg.BreakMinutes,
		NumberOfGroups:       cfg.NumberOfGroups,
		ThirdPlaceMatch:      &thirdPlace,
	}
	if !cfg.StartTime.IsZero() {
		payload.StartTime = cfg.StartTime.Format(time.RFC3339)
	}
	return payload
}

func sessionPayload(session *sessions.Session, editor *schedule.Editor) sessionResponse {
	teams := editor.Teams()
	if teams == nil {
		teams = []schedule.Team{}
	}
	return sessionResponse{
		ID:      session.ID.String(),
		Name:    session.Name,
		State:   editor.State().String(),
		Config:  configPayloadFrom(editor.Config()),
		Teams:   teams,
		Matches: schedule.ToRequests(editor.Matches()),
	}
}
