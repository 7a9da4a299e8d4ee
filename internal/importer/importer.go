// Package importer turns user supplied CSV or JSON fixtures into match
// requests for a schedule editor session.
package importer

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/codr1/matchday/internal/schedule"
)

var (
	ErrEmptyInput     = errors.New("import data is empty")
	ErrMissingColumn  = errors.New("mapped column not found in header")
	ErrMappingMissing = errors.New("home and away columns must be mapped")
)

// RowError points at the 1-based data row (header excluded) that failed.
type RowError struct {
	Row int
	Err error
}

func (e *RowError) Error() string {
	return fmt.Sprintf("row %d: %v", e.Row, e.Err)
}

func (e *RowError) Unwrap() error {
	return e.Err
}

// Mapping names the header column that feeds each match field. Date and
// Time are used when the kickoff is split over two columns.
type Mapping struct {
	Home        string `json:"home"`
	Away        string `json:"away"`
	Group       string `json:"group,omitempty"`
	Stage       string `json:"stage,omitempty"`
	ScheduledAt string `json:"scheduledAt,omitempty"`
	Date        string `json:"date,omitempty"`
	Time        string `json:"time,omitempty"`
}

var dateLayouts = []string{"2006-01-02", "02.01.2006", "2.1.2006", "01/02/2006"}

// ParseCSV reads a header row and maps each following row to a request.
// The separator is detected from the header: semicolon when it holds more
// semicolons than commas, comma otherwise. Blank rows are skipped.
func ParseCSV(r io.Reader, mapping Mapping) ([]schedule.MatchRequest, error) {
	if strings.TrimSpace(mapping.Home) == "" || strings.TrimSpace(mapping.Away) == "" {
		return nil, ErrMappingMissing
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, ErrEmptyInput
	}

	reader := csv.NewReader(bytes.NewReader(data))
	reader.Comma = detectSeparator(data)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}
	columns := make(map[string]int, len(header))
	for i, name := range header {
		columns[normalizeColumn(name)] = i
	}

	lookup := func(name string) (int, error) {
		if strings.TrimSpace(name) == "" {
			return -1, nil
		}
		idx, ok := columns[normalizeColumn(name)]
		if !ok {
			return -1, fmt.Errorf("%w: %q", ErrMissingColumn, name)
		}
		return idx, nil
	}

	var idx struct{ home, away, group, stage, scheduledAt, date, clock int }
	for _, field := range []struct {
		name string
		dst  *int
	}{
		{mapping.Home, &idx.home},
		{mapping.Away, &idx.away},
		{mapping.Group, &idx.group},
		{mapping.Stage, &idx.stage},
		{mapping.ScheduledAt, &idx.scheduledAt},
		{mapping.Date, &idx.date},
		{mapping.Time, &idx.clock},
	} {
		if *field.dst, err = lookup(field.name); err != nil {
			return nil, err
		}
	}

	var requests []schedule.MatchRequest
	row := 0
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		row++
		if err != nil {
			return nil, &RowError{Row: row, Err: err}
		}
		if blankRecord(record) {
			continue
		}

		req := schedule.MatchRequest{
			HomeTeamID: cell(record, idx.home),
			AwayTeamID: cell(record, idx.away),
			Group:      strings.ToUpper(cell(record, idx.group)),
			Stage:      cell(record, idx.stage),
		}
		scheduledAt, err := kickoff(cell(record, idx.scheduledAt), cell(record, idx.date), cell(record, idx.clock))
		if err != nil {
			return nil, &RowError{Row: row, Err: err}
		}
		req.ScheduledAt = scheduledAt
		requests = append(requests, req)
	}

	if len(requests) == 0 {
		return nil, ErrEmptyInput
	}
	return requests, nil
}

// ParseJSON accepts either a bare array of requests or an object with a
// "matches" array.
func ParseJSON(r io.Reader) ([]schedule.MatchRequest, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read json: %w", err)
	}
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, ErrEmptyInput
	}

	var requests []schedule.MatchRequest
	if data[0] == '{' {
		var wrapper struct {
			Matches []schedule.MatchRequest `json:"matches"`
		}
		if err := json.Unmarshal(data, &wrapper); err != nil {
			return nil, fmt.Errorf("parse json: %w", err)
		}
		requests = wrapper.Matches
	} else if err := json.Unmarshal(data, &requests); err != nil {
		return nil, fmt.Errorf("parse json: %w", err)
	}

	if len(requests) == 0 {
		return nil, ErrEmptyInput
	}
	for i := range requests {
		requests[i].HomeTeamID = strings.TrimSpace(requests[i].HomeTeamID)
		requests[i].AwayTeamID = strings.TrimSpace(requests[i].AwayTeamID)
		if _, err := schedule.ParseScheduledAt(requests[i].ScheduledAt); err != nil {
			return nil, &RowError{Row: i + 1, Err: err}
		}
	}
	return requests, nil
}

func detectSeparator(data []byte) rune {
	firstLine, _, _ := bufio.NewReader(bytes.NewReader(data)).ReadLine()
	if bytes.Count(firstLine, []byte(";")) > bytes.Count(firstLine, []byte(",")) {
		return ';'
	}
	return ','
}

func normalizeColumn(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

func cell(record []string, idx int) string {
	if idx < 0 || idx >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[idx])
}

func blankRecord(record []string) bool {
	for _, value := range record {
		if strings.TrimSpace(value) != "" {
			return false
		}
	}
	return true
}

// kickoff normalizes the kickoff columns to RFC 3339. A combined column
// wins over split date and time columns.
func kickoff(combined, date, clock string) (string, error) {
	if combined != "" {
		parsed, err := schedule.ParseScheduledAt(combined)
		if err != nil {
			return "", err
		}
		return parsed.Format(time.RFC3339), nil
	}
	if date == "" {
		if clock != "" {
			return "", fmt.Errorf("time %q needs a date column", clock)
		}
		return "", nil
	}

	var day time.Time
	var err error
	for _, layout := range dateLayouts {
		if day, err = time.Parse(layout, date); err == nil {
			break
		}
	}
	if err != nil {
		return "", fmt.Errorf("date %q is not a recognized date", date)
	}
	if clock == "" {
		return day.Format(time.RFC3339), nil
	}
	tod, err := time.Parse("15:04", clock)
	if err != nil {
		return "", fmt.Errorf("time %q must be HH:MM", clock)
	}
	return time.Date(day.Year(), day.Month(), day.Day(), tod.Hour(), tod.Minute(), 0, 0, time.UTC).Format(time.RFC3339), nil
}
