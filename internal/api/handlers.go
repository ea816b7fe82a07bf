package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/IshaanNene/MapGoat/internal/engine"
	"github.com/IshaanNene/MapGoat/internal/export"
	"github.com/IshaanNene/MapGoat/internal/task"
	"github.com/IshaanNene/MapGoat/internal/types"
)

// flexInt accepts a JSON number or a numeric string.
type flexInt int

func (f *flexInt) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "null" || s == `""` {
		*f = 0
		return nil
	}
	if unq, err := strconv.Unquote(s); err == nil {
		s = strings.TrimSpace(unq)
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		if fl, ferr := strconv.ParseFloat(s, 64); ferr == nil {
			*f = flexInt(fl)
			return nil
		}
		return fmt.Errorf("many must be a number, got %s", string(b))
	}
	*f = flexInt(n)
	return nil
}

type parseRequest struct {
	Query      string  `json:"query"`
	Many       flexInt `json:"many"`
	Lang       string  `json:"lang"`
	Region     string  `json:"region"`
	DeepSearch *bool   `json:"deep_search"`
}

func (s *Server) handleParse(w http.ResponseWriter, r *http.Request) {
	var body parseRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.jsonError(w, r, http.StatusBadRequest, fmt.Sprintf("invalid JSON: %v", err))
		return
	}

	deep := s.cfg.Scraper.DeepSearch
	if body.DeepSearch != nil {
		deep = *body.DeepSearch
	}
	params := engine.Params{
		Query:      body.Query,
		Many:       int(body.Many),
		Lang:       body.Lang,
		Region:     body.Region,
		DeepSearch: deep,
	}

	t, err := s.runner.Start(params)
	if err != nil {
		if errors.Is(err, types.ErrInvalidQuery) {
			s.jsonError(w, r, http.StatusBadRequest, "query is required")
			return
		}
		s.jsonError(w, r, http.StatusInternalServerError, err.Error())
		return
	}
	s.jsonResponse(w, r, http.StatusOK, map[string]string{"task_id": t.ID()})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	t, err := s.runner.Tasks().Get(r.PathValue("id"))
	if err != nil {
		s.jsonError(w, r, http.StatusNotFound, "Task not found")
		return
	}
	s.jsonResponse(w, r, http.StatusOK, t.Snapshot())
}

type taskSummary struct {
	ID        string      `json:"id"`
	Status    task.Status `json:"status"`
	Query     string      `json:"query"`
	Many      int         `json:"many"`
	Results   int         `json:"results"`
	StartTime time.Time   `json:"start_time"`
	EndTime   *time.Time  `json:"end_time,omitempty"`
}

func (s *Server) handleListTasks(w http.ResponseWriter, r *http.Request) {
	tasks := s.runner.Tasks().List()
	out := make([]taskSummary, 0, len(tasks))
	for _, t := range tasks {
		snap := t.Snapshot()
		out = append(out, taskSummary{
			ID:        snap.ID,
			Status:    snap.Status,
			Query:     snap.Query,
			Many:      snap.Many,
			Results:   len(snap.Results),
			StartTime: snap.StartTime,
			EndTime:   snap.EndTime,
		})
	}
	s.jsonResponse(w, r, http.StatusOK, out)
}

func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	t, err := s.runner.Tasks().Get(id)
	if err != nil {
		s.jsonError(w, r, http.StatusNotFound, "Task not found")
		return
	}
	if !s.runner.Cancel(id) {
		s.jsonError(w, r, http.StatusConflict, fmt.Sprintf("task is %s", t.Status()))
		return
	}
	s.jsonResponse(w, r, http.StatusOK, map[string]string{"task_id": id, "status": "cancelling"})
}

func (s *Server) historyLimit(r *http.Request) int {
	limit := s.cfg.Storage.HistoryLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n < limit {
			limit = n
		}
	}
	return limit
}

func (s *Server) recentRecords(r *http.Request) []types.Record {
	records, err := s.runner.Store().Recent(r.Context(), s.historyLimit(r))
	if err != nil {
		if !errors.Is(err, types.ErrNoDatabase) {
			s.logger.Warn("history query failed", "error", err)
		}
		return []types.Record{}
	}
	return records
}

func (s *Server) handleHistoryPage(w http.ResponseWriter, r *http.Request) {
	s.render(w, s.history, map[string]any{"Results": s.recentRecords(r)})
}

func (s *Server) handleHistoryJSON(w http.ResponseWriter, r *http.Request) {
	s.jsonResponse(w, r, http.StatusOK, s.recentRecords(r))
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	format, err := export.ByName(r.URL.Query().Get("format"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	records, err := s.runner.Store().ByTask(r.Context(), id)
	if err != nil {
		if errors.Is(err, types.ErrNoDatabase) {
			http.Error(w, "Database not connected", http.StatusInternalServerError)
			return
		}
		s.logger.Error("export query failed", "task_id", id, "error", err)
		http.Error(w, "Database error", http.StatusInternalServerError)
		return
	}
	if len(records) == 0 {
		http.Error(w, "No results found", http.StatusNotFound)
		return
	}

	var buf bytes.Buffer
	if err := export.Write(&buf, format, records); err != nil {
		s.logger.Error("export render failed", "task_id", id, "format", format, "error", err)
		http.Error(w, "Export failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, export.Filename(id, format)))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	_, _ = buf.WriteTo(w)
}
