package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/cyfral-controller/internal/intercom"
	"github.com/nerrad567/cyfral-controller/internal/journal"
)

const healthCheckTimeout = 3 * time.Second

// handleHealth runs every registered check and answers 503 if any fails.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
	defer cancel()

	names := make([]string, 0, len(s.checks))
	for name := range s.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	status, code := "ok", http.StatusOK
	results := make(map[string]string, len(names))
	for _, name := range names {
		if err := s.checks[name].HealthCheck(ctx); err != nil {
			results[name] = err.Error()
			status, code = "degraded", http.StatusServiceUnavailable
			continue
		}
		results[name] = "ok"
	}

	writeJSON(w, code, map[string]any{
		"status":  status,
		"version": s.version,
		"checks":  results,
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	status, err := s.controller.Snapshot(r.Context())
	if err != nil {
		s.writeControllerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

func (s *Server) handleListCommands(w http.ResponseWriter, _ *http.Request) {
	cmds := intercom.Commands()
	names := make([]string, len(cmds))
	for i, c := range cmds {
		names[i] = c.String()
	}
	writeJSON(w, http.StatusOK, map[string]any{"commands": names})
}

// handleCommand accepts the command name in either case, e.g. open_door.
func (s *Server) handleCommand(w http.ResponseWriter, r *http.Request) {
	cmd, err := intercom.ParseCommand(strings.ToUpper(chi.URLParam(r, "command")))
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	if err := s.controller.Submit(r.Context(), cmd); err != nil {
		s.writeControllerError(w, err)
		return
	}

	resp := map[string]any{"command": cmd.String(), "result": "ok"}
	if status, err := s.controller.Snapshot(r.Context()); err == nil {
		resp["status"] = status
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) writeControllerError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, intercom.ErrPrecondition):
		writeError(w, http.StatusConflict, ErrCodeConflict, err.Error())
	case errors.Is(err, intercom.ErrStopped),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		writeUnavailable(w, err.Error())
	default:
		s.logger.Error("controller request failed", "error", err)
		writeInternalError(w, err.Error())
	}
}

func (s *Server) handleListEvents(w http.ResponseWriter, r *http.Request) {
	if s.journal == nil {
		writeUnavailable(w, "event journal is disabled")
		return
	}

	filter, err := parseEventFilter(r.URL.Query())
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	res, err := s.journal.List(r.Context(), filter)
	if err != nil {
		s.logger.Error("listing journal entries", "error", err)
		writeInternalError(w, "failed to list events")
		return
	}
	writeJSON(w, http.StatusOK, res)
}

var errBadQuery = errors.New("invalid query parameter")

func parseEventFilter(q url.Values) (journal.Filter, error) {
	f := journal.Filter{
		Kind:   intercom.EventKind(q.Get("kind")),
		Source: intercom.EventSource(q.Get("source")),
	}

	var err error
	if f.Since, err = parseTimeParam(q, "since"); err != nil {
		return f, err
	}
	if f.Until, err = parseTimeParam(q, "until"); err != nil {
		return f, err
	}
	if f.Limit, err = parseIntParam(q, "limit"); err != nil {
		return f, err
	}
	if f.Offset, err = parseIntParam(q, "offset"); err != nil {
		return f, err
	}
	return f, nil
}

func parseTimeParam(q url.Values, key string) (time.Time, error) {
	v := q.Get(key)
	if v == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %s must be an RFC 3339 timestamp", errBadQuery, key)
	}
	return t, nil
}

func parseIntParam(q url.Values, key string) (int, error) {
	v := q.Get(key)
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%w: %s must be a non-negative integer", errBadQuery, key)
	}
	return n, nil
}
