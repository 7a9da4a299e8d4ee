// internal/api/schedules/handlers.go
package schedules

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/codr1/matchday/internal/api/apiutil"
	"github.com/codr1/matchday/internal/config"
	appdb "github.com/codr1/matchday/internal/db"
	"github.com/codr1/matchday/internal/email"
	"github.com/codr1/matchday/internal/schedule"
	"github.com/codr1/matchday/internal/sessions"
)

const (
	scheduleQueryTimeout = 5 * time.Second
	sessionIDPathKey     = "id"
	matchIDPathKey       = "matchID"
	matchSetIDPathKey    = "id"
)

var (
	database  *appdb.DB
	store     *sessions.Store
	appConfig *config.Config
	notifier  *email.Notifier
)

// InitHandlers must be called during server startup before handling requests.
// A nil notifier disables publish mails.
func InitHandlers(db *appdb.DB, sessionStore *sessions.Store, cfg *config.Config, publishNotifier *email.Notifier) {
	database = db
	store = sessionStore
	appConfig = cfg
	notifier = publishNotifier
}

// RegisterRoutes mounts the schedule API on mux.
func RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/v1/schedules", HandleGenerate)
	mux.HandleFunc("POST /api/v1/schedules/import", HandleImport)
	mux.HandleFunc("GET /api/v1/schedules/{id}", HandleGetSession)
	mux.HandleFunc("DELETE /api/v1/schedules/{id}", HandleDeleteSession)
	mux.HandleFunc("POST /api/v1/schedules/{id}/matches", HandleAddMatch)
	mux.HandleFunc("PATCH /api/v1/schedules/{id}/matches/{matchID}", HandleUpdateMatch)
	mux.HandleFunc("DELETE /api/v1/schedules/{id}/matches/{matchID}", HandleRemoveMatch)
	mux.HandleFunc("POST /api/v1/schedules/{id}/reorder", HandleReorder)
	mux.HandleFunc("PUT /api/v1/schedules/{id}/groups", HandleSetGroups)
	mux.HandleFunc("POST /api/v1/schedules/{id}/regenerate", HandleRegenerate)
	mux.HandleFunc("POST /api/v1/schedules/{id}/discard", HandleDiscard)
	mux.HandleFunc("POST /api/v1/schedules/{id}/submit", HandleSubmit)
	mux.HandleFunc("GET /api/v1/match-sets/{id}", HandleGetMatchSet)
}

// POST /api/v1/schedules
func HandleGenerate(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())
	if !storeReady(w, r) {
		return
	}

	var req generateRequest
	if err := apiutil.DecodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	cfg, err := req.Config.toConfig(true)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	editor := schedule.NewEditor(req.Teams, cfg)
	if err := editor.Regenerate(req.Teams, cfg); err != nil {
		writeEditError(w, err)
		return
	}

	session := store.Create(strings.TrimSpace(req.Name), editor)
	logger.Info().
		Str("session_id", session.ID.String()).
		Str("game_mode", string(cfg.GameMode)).
		Int("teams", len(req.Teams)).
		Int("matches", len(editor.Matches())).
		Msg("Schedule generated")

	writeSession(w, r, http.StatusCreated, session)
}

// POST /api/v1/schedules/import
func HandleImport(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())
	if !storeReady(w, r) {
		return
	}

	var req importRequest
	if err := apiutil.DecodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	cfg, err := req.Config.toConfig(false)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	requests, err := req.matchRequests()
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	editor := schedule.NewEditor(req.Teams, cfg)
	if err := editor.Import(requests); err != nil {
		writeEditError(w, err)
		return
	}

	session := store.Create(strings.TrimSpace(req.Name), editor)
	logger.Info().
		Str("session_id", session.ID.String()).
		Str("format", req.Format).
		Int("matches", len(requests)).
		Msg("Schedule imported")

	writeSession(w, r, http.StatusCreated, session)
}

// GET /api/v1/schedules/{id}
func HandleGetSession(w http.ResponseWriter, r *http.Request) {
	session, ok := loadSession(w, r)
	if !ok {
		return
	}
	writeSession(w, r, http.StatusOK, session)
}

// DELETE /api/v1/schedules/{id}
func HandleDeleteSession(w http.ResponseWriter, r *http.Request) {
	if !storeReady(w, r) {
		return
	}
	id, err := apiutil.PathUUID(r, sessionIDPathKey)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if !store.Delete(id) {
		writeError(w, http.StatusNotFound, sessions.ErrSessionNotFound)
		return
	}
	log.Ctx(r.Context()).Info().Str("session_id", id.String()).Msg("Editor session deleted")
	w.WriteHeader(http.StatusNoContent)
}

// POST /api/v1/schedules/{id}/matches
func HandleAddMatch(w http.ResponseWriter, r *http.Request) {
	var req addMatchRequest
	edit(w, r, &req, http.StatusCreated, func(editor *schedule.Editor) error {
		_, err := editor.Add(schedule.MatchPatch{
			Home:  req.HomeTeamID,
			Away:  req.AwayTeamID,
			Group: req.Group,
			Stage: schedule.Stage(strings.TrimSpace(req.Stage)),
		})
		return err
	})
}

// PATCH /api/v1/schedules/{id}/matches/{matchID}
func HandleUpdateMatch(w http.ResponseWriter, r *http.Request) {
	matchID, err := apiutil.PathUUID(r, matchIDPathKey)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	var req updateMatchRequest
	edit(w, r, &req, http.StatusOK, func(editor *schedule.Editor) error {
		return editor.UpdateField(matchID, schedule.Field(strings.TrimSpace(req.Field)), req.Value)
	})
}

// DELETE /api/v1/schedules/{id}/matches/{matchID}
func HandleRemoveMatch(w http.ResponseWriter, r *http.Request) {
	matchID, err := apiutil.PathUUID(r, matchIDPathKey)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	edit(w, r, nil, http.StatusOK, func(editor *schedule.Editor) error {
		return editor.Remove(matchID)
	})
}

// POST /api/v1/schedules/{id}/reorder
func HandleReorder(w http.ResponseWriter, r *http.Request) {
	var req reorderRequest
	edit(w, r, &req, http.StatusOK, func(editor *schedule.Editor) error {
		return editor.Reorder(req.From, req.To)
	})
}

// PUT /api/v1/schedules/{id}/groups
func HandleSetGroups(w http.ResponseWriter, r *http.Request) {
	var req groupsRequest
	edit(w, r, &req, http.StatusOK, func(editor *schedule.Editor) error {
		return editor.SetGroupCount(req.NumberOfGroups)
	})
}

// POST /api/v1/schedules/{id}/regenerate
func HandleRegenerate(w http.ResponseWriter, r *http.Request) {
	var req regenerateRequest
	var body any
	if r.ContentLength != 0 {
		body = &req
	}
	edit(w, r, body, http.StatusOK, func(editor *schedule.Editor) error {
		teams := req.Teams
		if len(teams) == 0 {
			teams = editor.Teams()
		}
		cfg := editor.Config()
		if req.Config != nil {
			next, err := req.Config.toConfig(true)
			if err != nil {
				return err
			}
			cfg = next
		}
		return editor.Regenerate(teams, cfg)
	})
}

// POST /api/v1/schedules/{id}/discard
func HandleDiscard(w http.ResponseWriter, r *http.Request) {
	edit(w, r, nil, http.StatusOK, func(editor *schedule.Editor) error {
		editor.Discard()
		return nil
	})
}

// POST /api/v1/schedules/{id}/submit
func HandleSubmit(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	if database == nil {
		logger.Error().Msg("Database not initialized")
		writeError(w, http.StatusInternalServerError, errors.New("database not initialized"))
		return
	}
	session, ok := loadSession(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), scheduleQueryTimeout)
	defer cancel()

	var (
		matchSetID string
		final      schedule.MatchSet
		teams      []schedule.Team
	)
	err := session.Do(func(editor *schedule.Editor) error {
		submitted, err := editor.Submit()
		if err != nil {
			return err
		}
		id, err := database.SaveMatchSet(ctx, session.Name, editor.Config(), submitted)
		if err != nil {
			editor.Reopen()
			return apiutil.HandlerError{Status: http.StatusInternalServerError, Message: "failed to store match set", Err: err}
		}
		matchSetID = id
		final = submitted
		teams = editor.Teams()
		return nil
	})
	if err != nil {
		var handlerErr apiutil.HandlerError
		if errors.As(err, &handlerErr) {
			logger.Error().Err(handlerErr.Err).Str("session_id", session.ID.String()).Msg("Failed to store match set")
		}
		writeEditError(w, err)
		return
	}

	logger.Info().
		Str("session_id", session.ID.String()).
		Str("match_set_id", matchSetID).
		Int("matches", len(final)).
		Msg("Match set published")

	notifier.SchedulePublished(r.Context(), email.PublishedDetails{
		Name:       session.Name,
		MatchSetID: matchSetID,
		Teams:      teams,
		Matches:    final,
	}, logger)

	if err := apiutil.WriteJSON(w, http.StatusCreated, submitResponse{
		MatchSetID: matchSetID,
		Matches:    schedule.ToRequests(final),
	}); err != nil {
		logger.Error().Err(err).Msg("Failed to write submit response")
	}
}

// GET /api/v1/match-sets/{id}
func HandleGetMatchSet(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	if database == nil {
		logger.Error().Msg("Database not initialized")
		writeError(w, http.StatusInternalServerError, errors.New("database not initialized"))
		return
	}
	id := strings.TrimSpace(r.PathValue(matchSetIDPathKey))
	if id == "" {
		writeError(w, http.StatusBadRequest, apiutil.FieldError{Field: matchSetIDPathKey, Reason: "is required"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), scheduleQueryTimeout)
	defer cancel()

	stored, err := database.LoadMatchSet(ctx, id)
	if err != nil {
		if errors.Is(err, appdb.ErrMatchSetNotFound) {
			writeError(w, http.StatusNotFound, err)
			return
		}
		logger.Error().Err(err).Str("match_set_id", id).Msg("Failed to load match set")
		writeError(w, http.StatusInternalServerError, errors.New("failed to load match set"))
		return
	}

	if err := apiutil.WriteJSON(w, http.StatusOK, matchSetResponse{
		ID:        stored.ID,
		Name:      stored.Name,
		Config:    configPayloadFrom(stored.Config),
		Matches:   schedule.ToRequests(stored.Matches),
		CreatedAt: stored.CreatedAt,
	}); err != nil {
		logger.Error().Err(err).Msg("Failed to write match set response")
	}
}

// edit decodes body (when non-nil) and applies fn to the session's editor
// under its lock, then writes the resulting session state.
func edit(w http.ResponseWriter, r *http.Request, body any, status int, fn func(*schedule.Editor) error) {
	session, ok := loadSession(w, r)
	if !ok {
		return
	}
	if body != nil {
		if err := apiutil.DecodeJSON(r, body); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
	}

	var snapshot sessionResponse
	err := session.Do(func(editor *schedule.Editor) error {
		if err := fn(editor); err != nil {
			return err
		}
		snapshot = sessionPayload(session, editor)
		return nil
	})
	if err != nil {
		log.Ctx(r.Context()).Debug().Err(err).Str("session_id", session.ID.String()).Msg("Schedule edit rejected")
		writeEditError(w, err)
		return
	}

	if err := apiutil.WriteJSON(w, status, snapshot); err != nil {
		log.Ctx(r.Context()).Error().Err(err).Msg("Failed to write session response")
	}
}

func storeReady(w http.ResponseWriter, r *http.Request) bool {
	if store == nil {
		log.Ctx(r.Context()).Error().Msg("Session store not initialized")
		writeError(w, http.StatusInternalServerError, errors.New("session store not initialized"))
		return false
	}
	return true
}

func loadSession(w http.ResponseWriter, r *http.Request) (*sessions.Session, bool) {
	if !storeReady(w, r) {
		return nil, false
	}
	id, err := apiutil.PathUUID(r, sessionIDPathKey)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return nil, false
	}
	session, err := store.Get(id)
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return nil, false
	}
	return session, true
}

func writeSession(w http.ResponseWriter, r *http.Request, status int, session *sessions.Session) {
	var snapshot sessionResponse
	_ = session.Do(func(editor *schedule.Editor) error {
		snapshot = sessionPayload(session, editor)
		return nil
	})
	if err := apiutil.WriteJSON(w, status, snapshot); err != nil {
		log.Ctx(r.Context()).Error().Err(err).Msg("Failed to write session response")
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	if writeErr := apiutil.WriteError(w, status, err); writeErr != nil {
		log.Error().Err(writeErr).Msg("Failed to write error response")
	}
}

// writeEditError maps editor and generator errors onto HTTP statuses.
// Anything unrecognized is treated as bad input.
func writeEditError(w http.ResponseWriter, err error) {
	var (
		validationErrs schedule.ValidationErrors
		configErr      *schedule.ConfigurationError
		handlerErr     apiutil.HandlerError
		fieldErr       apiutil.FieldError
	)
	switch {
	case errors.As(err, &validationErrs):
		if writeErr := apiutil.WriteJSON(w, http.StatusUnprocessableEntity, apiutil.ErrorResponse{
			Error:   "schedule has invalid matches",
			Details: []schedule.ValidationError(validationErrs),
		}); writeErr != nil {
			log.Error().Err(writeErr).Msg("Failed to write validation response")
		}
	case errors.As(err, &configErr):
		writeError(w, http.StatusBadRequest, apiutil.FieldError{Field: configErr.Field, Reason: configErr.Reason})
	case errors.As(err, &handlerErr):
		writeError(w, handlerErr.Status, errors.New(handlerErr.Message))
	case errors.As(err, &fieldErr):
		writeError(w, http.StatusBadRequest, fieldErr)
	case errors.Is(err, schedule.ErrFinalized):
		writeError(w, http.StatusConflict, err)
	case errors.Is(err, schedule.ErrMatchNotFound):
		writeError(w, http.StatusNotFound, err)
	default:
		writeError(w, http.StatusBadRequest, err)
	}
}
