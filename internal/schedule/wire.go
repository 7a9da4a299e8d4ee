package schedule

import (
	"fmt"
	"strings"
	"time"
)

// MatchRequest is the boundary shape shared with import and persistence.
// Home and away carry either a team id or placeholder text.
type MatchRequest struct {
	ID          string `json:"id,omitempty"`
	HomeTeamID  string `json:"homeTeamId"`
	AwayTeamID  string `json:"awayTeamId"`
	Round       int    `json:"round,omitempty"`
	Slot        int    `json:"slot,omitempty"`
	Group       string `json:"group,omitempty"`
	Stage       string `json:"stage,omitempty"`
	ScheduledAt string `json:"scheduledAt,omitempty"`
}

// scheduledAtLayouts are tried in order. The zone-less forms come from
// browser datetime inputs and spreadsheets and are read as UTC.
var scheduledAtLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	"2006-01-02 15:04:05",
}

// ParseScheduledAt reads an ISO-8601 kickoff. An empty value is the zero
// time.
func ParseScheduledAt(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, nil
	}
	for _, layout := range scheduledAtLayouts {
		if parsed, err := time.Parse(layout, raw); err == nil {
			return parsed, nil
		}
	}
	return time.Time{}, fmt.Errorf("scheduledAt %q must be an ISO-8601 timestamp", raw)
}

func ToRequest(m Match) MatchRequest {
	req := MatchRequest{
		ID:         m.ID.String(),
		HomeTeamID: m.Home.Value(),
		AwayTeamID: m.Away.Value(),
		Round:      m.Round,
		Slot:       m.Slot,
		Group:      m.Group,
		Stage:      string(m.Stage),
	}
	if m.IsScheduled() {
		req.ScheduledAt = m.ScheduledAt.Format(time.RFC3339)
	}
	return req
}

func ToRequests(matches []Match) []MatchRequest {
	out := make([]MatchRequest, 0, len(matches))
	for _, match := range matches {
		out = append(out, ToRequest(match))
	}
	return out
}
