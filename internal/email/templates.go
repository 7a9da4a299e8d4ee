package email

import (
	"fmt"
	"strings"
	"time"

	"github.com/codr1/matchday/internal/schedule"
)

type Message struct {
	Subject string
	Body    string
}

// PublishedDetails describes a finalized match set for the organizer mail.
type PublishedDetails struct {
	Name       string
	MatchSetID string
	Teams      []schedule.Team
	Matches    []schedule.Match
	Location   *time.Location
}

// BuildSchedulePublished renders the plain text mail listing every match
// with its slot, kickoff and pairing.
func BuildSchedulePublished(details PublishedDetails) Message {
	name := strings.TrimSpace(details.Name)
	if name == "" {
		name = "Spielplan"
	}
	loc := details.Location
	if loc == nil {
		loc = time.UTC
	}

	names := make(map[string]string, len(details.Teams))
	for _, team := range details.Teams {
		if label := strings.TrimSpace(team.DisplayName); label != "" {
			names[strings.TrimSpace(team.ID)] = label
		}
	}
	label := func(p schedule.Participant) string {
		if p.IsTeam() {
			if display, ok := names[p.TeamID]; ok {
				return display
			}
		}
		return p.Value()
	}

	var body strings.Builder
	fmt.Fprintf(&body, "The match schedule %q has been published.\n", name)
	if details.MatchSetID != "" {
		fmt.Fprintf(&body, "Reference: %s\n", details.MatchSetID)
	}
	fmt.Fprintf(&body, "Matches: %d\n\n", len(details.Matches))

	for _, match := range details.Matches {
		kickoff := "--:--"
		if match.IsScheduled() {
			kickoff = match.ScheduledAt.In(loc).Format("02.01.2006 15:04")
		}
		fmt.Fprintf(&body, "%3d  %s  %s - %s", match.Slot, kickoff, label(match.Home), label(match.Away))
		switch {
		case match.Group != "":
			fmt.Fprintf(&body, "  (Gruppe %s)", match.Group)
		case match.Stage != "" && match.Stage != schedule.StageGroup:
			fmt.Fprintf(&body, "  (%s)", match.Stage)
		}
		body.WriteString("\n")
	}

	return Message{
		Subject: fmt.Sprintf("Match schedule published: %s", name),
		Body:    body.String(),
	}
}
