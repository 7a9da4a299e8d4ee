package schedule

import (
	"fmt"
	"regexp"
	"strings"
)

// rankToken matches the short group-relative form, e.g. "A1" for the
// winner of group A.
var rankToken = regexp.MustCompile(`^[A-Z]\d$`)

// placeholderKeywords are matched case-sensitively anywhere in the value.
var placeholderKeywords = []string{
	"Sieger",
	"Verlierer",
	"Platz",
	"Finale",
	"Halbfinale",
	"HF",
	"VF",
	"AF",
	"Spiel um",
}

// IsPlaceholder reports whether value names a bracket slot rather than a
// team.
func IsPlaceholder(value string) bool {
	value = strings.TrimSpace(value)
	if value == "" {
		return false
	}
	if rankToken.MatchString(value) {
		return true
	}
	for _, keyword := range placeholderKeywords {
		if strings.Contains(value, keyword) {
			return true
		}
	}
	return strings.Contains(strings.ToLower(value), "tbd")
}

type LabelKind int

const (
	GroupWinner LabelKind = iota
	WinnerRoundOf16
	WinnerQuarterfinal
	WinnerSemifinal
	LoserSemifinal
)

// Label renders the placeholder text for a bracket progression. index is
// 1-based: the group number for GroupWinner, the match number otherwise.
func Label(kind LabelKind, index int) string {
	switch kind {
	case GroupWinner:
		return "Sieger Gruppe " + GroupName(index-1)
	case WinnerRoundOf16:
		return fmt.Sprintf("Sieger AF%d", index)
	case WinnerQuarterfinal:
		return fmt.Sprintf("Sieger VF%d", index)
	case WinnerSemifinal:
		return fmt.Sprintf("Sieger HF%d", index)
	case LoserSemifinal:
		return fmt.Sprintf("Verlierer HF%d", index)
	default:
		return ""
	}
}

// GroupName returns the letter for the zero-based group index.
func GroupName(index int) string {
	if index < 0 || index >= 26 {
		return ""
	}
	return string(rune('A' + index))
}

// GroupRankLabel names the team finishing at rank in group, e.g.
// "1. Platz Gruppe A".
func GroupRankLabel(rank int, group string) string {
	return fmt.Sprintf("%d. Platz Gruppe %s", rank, group)
}

func groupAlphabet(count int) map[string]struct{} {
	names := make(map[string]struct{}, count)
	for i := 0; i < count; i++ {
		names[GroupName(i)] = struct{}{}
	}
	return names
}
