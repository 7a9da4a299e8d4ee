package schedules

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/codr1/matchday/internal/api/apiutil"
	"github.com/codr1/matchday/internal/config"
	"github.com/codr1/matchday/internal/email"
	"github.com/codr1/matchday/internal/sessions"
	"github.com/codr1/matchday/internal/testutil"
)

type fakeEmailSender struct {
	sent chan string
}

func (f *fakeEmailSender) Send(ctx context.Context, recipient, subject, body string) error {
	return f.SendFrom(ctx, recipient, subject, body, "")
}

func (f *fakeEmailSender) SendFrom(ctx context.Context, recipient, subject, body, sender string) error {
	f.sent <- subject
	return nil
}

func newTestMux(t *testing.T) (*http.ServeMux, *fakeEmailSender) {
	t.Helper()

	cfg := &config.Config{}
	cfg.Scheduling = config.SchedulingConfig{
		RoundDurationMinutes: 10,
		BreakMinutes:         2,
		TournamentType:       "indoor_hall",
	}
	sender := &fakeEmailSender{sent: make(chan string, 4)}
	InitHandlers(testutil.NewTestDB(t), sessions.NewStore(nil), cfg, email.NewNotifier(sender, "orga@example.com", ""))
	t.Cleanup(func() { InitHandlers(nil, nil, nil, nil) })

	mux := http.NewServeMux()
	RegisterRoutes(mux)
	return mux, sender
}

func doJSON(t *testing.T, mux *http.ServeMux, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func decodeSession(t *testing.T, rec *httptest.ResponseRecorder) sessionResponse {
	t.Helper()

	var session sessionResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &session); err != nil {
		t.Fatalf("decode session: %v (%s)", err, rec.Body.String())
	}
	return session
}

func fourTeams() []map[string]string {
	return []map[string]string{
		{"id": "T1", "displayName": "Adler"},
		{"id": "T2"},
		{"id": "T3"},
		{"id": "T4"},
	}
}

func generateRoundRobin(t *testing.T, mux *http.ServeMux) sessionResponse {
	t.Helper()

	rec := doJSON(t, mux, http.MethodPost, "/api/v1/schedules", map[string]any{
		"name":  "Hallencup",
		"teams": fourTeams(),
		"config": map[string]any{
			"gameMode":  "round_robin",
			"startTime": "2024-06-01T09:00:00Z",
		},
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	return decodeSession(t, rec)
}

func TestGenerateAppliesServerDefaults(t *testing.T) {
	mux, _ := newTestMux(t)
	session := generateRoundRobin(t, mux)

	if session.State != "populated" || session.Name != "Hallencup" {
		t.Fatalf("unexpected session header %+v", session)
	}
	if len(session.Matches) != 6 {
		t.Fatalf("expected 6 matches, got %d", len(session.Matches))
	}
	if session.Config.TournamentType != "indoor_hall" || session.Config.RoundDurationMinutes != 10 || session.Config.BreakMinutes != 2 {
		t.Fatalf("expected server defaults, got %+v", session.Config)
	}
	if session.Matches[0].ScheduledAt != "2024-06-01T09:00:00Z" || session.Matches[1].ScheduledAt != "2024-06-01T09:12:00Z" {
		t.Fatalf("unexpected kickoffs %q %q", session.Matches[0].ScheduledAt, session.Matches[1].ScheduledAt)
	}
}

func TestGenerateRejectsBadInput(t *testing.T) {
	mux, _ := newTestMux(t)

	rec := doJSON(t, mux, http.MethodPost, "/api/v1/schedules", map[string]any{
		"teams": fourTeams(),
		"config": map[string]any{
			"gameMode":       "groups_with_finals",
			"numberOfGroups": 13,
			"startTime":      "2024-06-01T09:00:00Z",
		},
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	var body apiutil.ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Field != "numberOfGroups" {
		t.Fatalf("expected numberOfGroups field error, got %+v", body)
	}

	rec = doJSON(t, mux, http.MethodPost, "/api/v1/schedules", map[string]any{
		"teams":  fourTeams(),
		"config": map[string]any{"gameMode": "round_robin"},
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without start time, got %d", rec.Code)
	}

	rec = doJSON(t, mux, http.MethodPost, "/api/v1/schedules", map[string]any{"unknown": true})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown field, got %d", rec.Code)
	}
}

func TestEditEndpoints(t *testing.T) {
	mux, _ := newTestMux(t)
	session := generateRoundRobin(t, mux)
	base := "/api/v1/schedules/" + session.ID

	rec := doJSON(t, mux, http.MethodPost, base+"/matches", map[string]string{
		"homeTeamId": "T1",
		"awayTeamId": "Sieger HF1",
		"stage":      "final",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("add: expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	session = decodeSession(t, rec)
	if len(session.Matches) != 7 || session.Matches[6].ScheduledAt != "2024-06-01T10:12:00Z" {
		t.Fatalf("unexpected match list after add: %+v", session.Matches)
	}

	added := session.Matches[6].ID
	rec = doJSON(t, mux, http.MethodPatch, base+"/matches/"+added, map[string]string{
		"field": "away",
		"value": "T2",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("update: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if got := decodeSession(t, rec).Matches[6].AwayTeamID; got != "T2" {
		t.Fatalf("expected away T2, got %q", got)
	}

	rec = doJSON(t, mux, http.MethodPatch, base+"/matches/"+added, map[string]string{"field": "venue", "value": "x"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("unknown field: expected 400, got %d", rec.Code)
	}

	rec = doJSON(t, mux, http.MethodPost, base+"/reorder", map[string]int{"from": 6, "to": 0})
	if rec.Code != http.StatusOK {
		t.Fatalf("reorder: expected 200, got %d", rec.Code)
	}
	session = decodeSession(t, rec)
	if session.Matches[0].ID != added || session.Matches[0].ScheduledAt != "2024-06-01T09:00:00Z" {
		t.Fatalf("expected moved match first at 09:00, got %+v", session.Matches[0])
	}

	rec = doJSON(t, mux, http.MethodPost, base+"/reorder", map[string]int{"from": 0, "to": 7})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("reorder out of range: expected 400, got %d", rec.Code)
	}

	rec = doJSON(t, mux, http.MethodDelete, base+"/matches/"+added, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("remove: expected 200, got %d", rec.Code)
	}
	if got := len(decodeSession(t, rec).Matches); got != 6 {
		t.Fatalf("expected 6 matches after remove, got %d", got)
	}

	rec = doJSON(t, mux, http.MethodDelete, base+"/matches/"+added, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("remove twice: expected 404, got %d", rec.Code)
	}

	rec = doJSON(t, mux, http.MethodPut, base+"/groups", map[string]int{"numberOfGroups": 13})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("groups: expected 400, got %d", rec.Code)
	}
	rec = doJSON(t, mux, http.MethodPut, base+"/groups", map[string]int{"numberOfGroups": 2})
	if rec.Code != http.StatusOK || decodeSession(t, rec).Config.NumberOfGroups != 2 {
		t.Fatalf("groups: expected 200 with two groups, got %d", rec.Code)
	}
}

func TestSessionLookupErrors(t *testing.T) {
	mux, _ := newTestMux(t)

	rec := doJSON(t, mux, http.MethodGet, "/api/v1/schedules/not-a-uuid", nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	rec = doJSON(t, mux, http.MethodGet, "/api/v1/schedules/6f1c8a36-3f0e-4b8e-9d83-4d6f1a0b2c11", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}

	session := generateRoundRobin(t, mux)
	rec = doJSON(t, mux, http.MethodDelete, "/api/v1/schedules/"+session.ID, nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete: expected 204, got %d", rec.Code)
	}
	rec = doJSON(t, mux, http.MethodGet, "/api/v1/schedules/"+session.ID, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected deleted session to be gone, got %d", rec.Code)
	}
}

func TestRegenerateAndDiscard(t *testing.T) {
	mux, _ := newTestMux(t)
	session := generateRoundRobin(t, mux)
	base := "/api/v1/schedules/" + session.ID

	rec := doJSON(t, mux, http.MethodPost, base+"/regenerate", map[string]any{
		"config": map[string]any{
			"gameMode":        "groups_with_finals",
			"numberOfGroups":  2,
			"thirdPlaceMatch": true,
			"startTime":       "2024-06-01T10:00:00Z",
		},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("regenerate: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	session = decodeSession(t, rec)
	// two groups of two play one match each, then HF1, HF2, third place and final
	if len(session.Matches) != 6 {
		t.Fatalf("expected 6 matches, got %d", len(session.Matches))
	}
	if last := session.Matches[len(session.Matches)-1]; last.Stage != "final" {
		t.Fatalf("expected final last, got %+v", last)
	}

	rec = doJSON(t, mux, http.MethodPost, base+"/regenerate", nil)
	if rec.Code != http.StatusOK || len(decodeSession(t, rec).Matches) != 6 {
		t.Fatalf("regenerate without body: expected 200, got %d", rec.Code)
	}

	rec = doJSON(t, mux, http.MethodPost, base+"/discard", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("discard: expected 200, got %d", rec.Code)
	}
	if session = decodeSession(t, rec); session.State != "empty" || len(session.Matches) != 0 {
		t.Fatalf("expected empty session, got %+v", session)
	}
}

func TestSubmitValidatesPersistsAndNotifies(t *testing.T) {
	mux, sender := newTestMux(t)
	session := generateRoundRobin(t, mux)
	base := "/api/v1/schedules/" + session.ID

	rec := doJSON(t, mux, http.MethodPost, base+"/matches", map[string]string{
		"homeTeamId": "T1",
		"awayTeamId": "Bogus",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("add: expected 201, got %d", rec.Code)
	}
	bogus := decodeSession(t, rec).Matches[6].ID

	rec = doJSON(t, mux, http.MethodPost, base+"/submit", nil)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("submit: expected 422, got %d: %s", rec.Code, rec.Body.String())
	}
	var problem struct {
		Details []struct {
			Position int    `json:"position"`
			Field    string `json:"field"`
		} `json:"details"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &problem); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(problem.Details) != 1 || problem.Details[0].Position != 7 || problem.Details[0].Field != "away" {
		t.Fatalf("unexpected validation details %+v", problem.Details)
	}

	rec = doJSON(t, mux, http.MethodPatch, base+"/matches/"+bogus, map[string]string{"field": "away", "value": "T3"})
	if rec.Code != http.StatusOK {
		t.Fatalf("fix: expected 200, got %d", rec.Code)
	}

	rec = doJSON(t, mux, http.MethodPost, base+"/submit", nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("submit: expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var submitted submitResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &submitted); err != nil {
		t.Fatalf("decode submit: %v", err)
	}
	if submitted.MatchSetID == "" || len(submitted.Matches) != 7 {
		t.Fatalf("unexpected submit response %+v", submitted)
	}
	for i, match := range submitted.Matches {
		if match.Slot != i+1 {
			t.Fatalf("expected slot %d, got %d", i+1, match.Slot)
		}
	}

	select {
	case subject := <-sender.sent:
		if !strings.Contains(subject, "Hallencup") {
			t.Fatalf("unexpected subject %q", subject)
		}
	case <-time.After(time.Second):
		t.Fatal("expected publish mail")
	}

	rec = doJSON(t, mux, http.MethodPost, base+"/matches", map[string]string{"homeTeamId": "T1", "awayTeamId": "T2"})
	if rec.Code != http.StatusConflict {
		t.Fatalf("edit after submit: expected 409, got %d", rec.Code)
	}

	rec = doJSON(t, mux, http.MethodGet, "/api/v1/match-sets/"+submitted.MatchSetID, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get match set: expected 200, got %d", rec.Code)
	}
	var stored matchSetResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &stored); err != nil {
		t.Fatalf("decode match set: %v", err)
	}
	if stored.Name != "Hallencup" || len(stored.Matches) != 7 || stored.Config.GameMode != "round_robin" {
		t.Fatalf("unexpected stored match set %+v", stored)
	}
	if stored.Matches[6].AwayTeamID != "T3" {
		t.Fatalf("expected fixed away team to be stored, got %q", stored.Matches[6].AwayTeamID)
	}

	rec = doJSON(t, mux, http.MethodGet, "/api/v1/match-sets/missing", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("missing match set: expected 404, got %d", rec.Code)
	}
}

func TestImportCSV(t *testing.T) {
	mux, _ := newTestMux(t)

	rec := doJSON(t, mux, http.MethodPost, "/api/v1/schedules/import", map[string]any{
		"name":  "Import",
		"teams": fourTeams(),
		"format": "csv",
		"data": "Heim;Gast;Gruppe;Anstoss\n" +
			"T1;T2;A;2024-06-01 09:00\n" +
			"T3;T4;B;2024-06-01 09:00\n" +
			"Sieger Gruppe A;Sieger Gruppe B;;\n",
		"mapping": map[string]string{
			"home":        "Heim",
			"away":        "Gast",
			"group":       "Gruppe",
			"scheduledAt": "Anstoss",
		},
		"config": map[string]any{"numberOfGroups": 2},
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("import: expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	session := decodeSession(t, rec)
	if len(session.Matches) != 3 {
		t.Fatalf("expected 3 matches, got %d", len(session.Matches))
	}
	if session.Matches[2].HomeTeamID != "Sieger Gruppe A" || session.Matches[2].ScheduledAt != "" {
		t.Fatalf("unexpected placeholder row %+v", session.Matches[2])
	}

	rec = doJSON(t, mux, http.MethodPost, "/api/v1/schedules/import", map[string]any{
		"teams":   fourTeams(),
		"format":  "csv",
		"data":    "Heim;Gast\nT1;T2\n",
		"mapping": map[string]string{"home": "Home", "away": "Gast"},
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("bad mapping: expected 400, got %d", rec.Code)
	}
}
