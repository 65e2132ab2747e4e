package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/magma/magma-sub003/internal/models"
	"github.com/magma/magma-sub003/internal/storage"
)

// HandleListEvents lists event logs
func (s *RESTServer) HandleListEvents(w http.ResponseWriter, r *http.Request) {
	page, err := s.parsePage(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	q := r.URL.Query()
	var filters storage.EventLogFilters
	if v := q.Get("serial"); v != "" {
		filters.Serial = &v
	}
	if v := q.Get("type"); v != "" {
		t := models.EventType(strings.ToUpper(v))
		filters.Type = &t
	}
	if v := q.Get("level"); v != "" {
		l := models.EventLevel(strings.ToUpper(v))
		filters.Level = &l
	}
	for key, dst := range map[string]**time.Time{"start": &filters.StartTime, "end": &filters.EndTime} {
		v := q.Get(key)
		if v == "" {
			continue
		}
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			s.respondError(w, http.StatusBadRequest, "invalid "+key+" time")
			return
		}
		*dst = &t
	}

	events, total, err := s.deps.Store.ListEventLogs(r.Context(), filters, page.Limit, page.Offset)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"events": events,
		"total":  total,
	})
}
