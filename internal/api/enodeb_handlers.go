package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/magma/magma-sub003/internal/acs"
	"github.com/magma/magma-sub003/internal/config"
	"github.com/magma/magma-sub003/internal/devicecfg"
	"github.com/magma/magma-sub003/internal/models"
	"github.com/magma/magma-sub003/internal/status"
	"github.com/magma/magma-sub003/internal/storage"
)

// HandleListENodeBs lists the fleet status
func (s *RESTServer) HandleListENodeBs(w http.ResponseWriter, r *http.Request) {
	fleet := s.deps.Aggregator.Fleet()
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"enodebs": fleet,
		"summary": status.Summarize(fleet),
	})
}

// HandleGetENodeB returns the status, registry record and parameter
// values of one eNodeB
func (s *RESTServer) HandleGetENodeB(w http.ResponseWriter, r *http.Request) {
	serial := chi.URLParam(r, "serial")

	snap, live := s.deps.Manager.Snapshot(serial)
	enb, err := s.deps.Store.GetENodeB(r.Context(), serial)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if !live && enb == nil {
		s.respondError(w, http.StatusNotFound, "enodeb not found")
		return
	}

	resp := map[string]interface{}{
		"status": s.deps.Aggregator.Status(serial),
	}
	if enb != nil {
		resp["enodeb"] = enb
	}
	if live {
		resp["observed"] = parameters(snap.Observed)
		resp["desired"] = parameters(snap.Desired)
		resp["rebootPending"] = snap.RebootPending
	}
	s.respondJSON(w, http.StatusOK, resp)
}

// HandleListRegistry lists every eNodeB that ever sent an Inform
func (s *RESTServer) HandleListRegistry(w http.ResponseWriter, r *http.Request) {
	page, err := s.parsePage(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	enodebs, total, err := s.deps.Store.ListENodeBs(r.Context(), page.Limit, page.Offset)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"enodebs": enodebs,
		"total":   total,
	})
}

// HandleENodeBHistory lists stored status records, newest first
func (s *RESTServer) HandleENodeBHistory(w http.ResponseWriter, r *http.Request) {
	page, err := s.parsePage(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	records, total, err := s.deps.Store.ListStatusRecords(r.Context(), chi.URLParam(r, "serial"), page.Limit, page.Offset)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"history": records,
		"total":   total,
	})
}

// HandleRebootENodeB schedules a reboot for the next session
func (s *RESTServer) HandleRebootENodeB(w http.ResponseWriter, r *http.Request) {
	serial := chi.URLParam(r, "serial")
	if err := s.deps.Manager.RequestReboot(serial); err != nil {
		s.respondManagerError(w, err)
		return
	}

	s.deps.Recorder.Record(r.Context(), &models.EventLog{
		Serial:      serial,
		Type:        models.EventTypeRebootRequested,
		Level:       models.EventLevelInfo,
		Description: fmt.Sprintf("Reboot requested by %s", operator(r)),
	})
	s.respondJSON(w, http.StatusAccepted, map[string]string{"status": "reboot scheduled"})
}

// HandleDisconnectENodeB resets the session machine of an eNodeB
func (s *RESTServer) HandleDisconnectENodeB(w http.ResponseWriter, r *http.Request) {
	serial := chi.URLParam(r, "serial")
	if err := s.deps.Manager.Disconnect(serial); err != nil {
		s.respondManagerError(w, err)
		return
	}

	s.deps.Recorder.Record(r.Context(), &models.EventLog{
		Serial:      serial,
		Type:        models.EventTypeDisconnected,
		Level:       models.EventLevelInfo,
		Description: fmt.Sprintf("Disconnected by %s", operator(r)),
	})
	w.WriteHeader(http.StatusNoContent)
}

// HandleReloadConfig re-reads the managed configuration file
func (s *RESTServer) HandleReloadConfig(w http.ResponseWriter, r *http.Request) {
	if s.deps.ManagedPath == "" {
		s.respondError(w, http.StatusConflict, "no managed configuration file")
		return
	}

	mc, err := config.LoadManaged(s.deps.ManagedPath)
	if err != nil {
		log.Error().Err(err).Str("path", s.deps.ManagedPath).Msg("Managed configuration reload failed")
		s.respondError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	s.deps.Manager.ReloadManaged(mc)

	s.deps.Recorder.Record(r.Context(), &models.EventLog{
		Type:        models.EventTypeConfigReload,
		Level:       models.EventLevelInfo,
		Description: fmt.Sprintf("Managed configuration reloaded by %s", operator(r)),
		Details:     models.Variables{"path": s.deps.ManagedPath},
	})
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "reloaded",
		"overrides": mc.OverriddenSerials(),
	})
}

func (s *RESTServer) respondManagerError(w http.ResponseWriter, err error) {
	if errors.Is(err, acs.ErrUnknownDevice) {
		s.respondError(w, http.StatusNotFound, "enodeb not found")
		return
	}
	s.respondError(w, http.StatusInternalServerError, err.Error())
}

// parameters flattens a configuration for JSON, object instances keyed
// by their name
func parameters(c *devicecfg.Configuration) map[string]interface{} {
	out := make(map[string]interface{})
	if c == nil {
		return out
	}
	for name, v := range c.Values() {
		out[string(name)] = v
	}
	for _, obj := range c.Objects() {
		params := make(map[string]interface{})
		for name, v := range c.ObjectParams(obj) {
			params[string(name)] = v
		}
		out[string(obj)] = params
	}
	return out
}
