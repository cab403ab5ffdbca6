package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/charmbracelet/log"

	"asnlookup/internal/config"
)

func (s *Server) postReload(w http.ResponseWriter, r *http.Request) {
	gen, err := s.reloader.Reload(r.Context(), "admin", true)
	if err != nil {
		log.Error("Admin reload failed", "error", err)
		writeError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	log.Info("Admin reload completed", "generation", gen.ID)
	writeJSON(w, http.StatusOK, s.reloader.Status())
}

func (s *Server) getStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.reloader.Status())
}

func getSettings(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, config.GetConfig())
}

type settingsResponse struct {
	Settings        config.Config `json:"settings"`
	RestartRequired bool          `json:"restart_required"`
}

func (s *Server) postSettings(w http.ResponseWriter, r *http.Request) {
	var newConfig config.Config
	if err := json.NewDecoder(r.Body).Decode(&newConfig); err != nil {
		writeError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	previous := config.GetConfig()
	if err := config.SetConfig(newConfig); err != nil {
		if errors.Is(err, config.ErrInvalidConfig) {
			writeError(w, err.Error(), http.StatusBadRequest)
			return
		}
		log.Error("Saving settings failed", "error", err)
		writeError(w, "Failed to save settings", http.StatusInternalServerError)
		return
	}

	current := config.GetConfig()
	if current.Bulk.Workers != previous.Bulk.Workers {
		s.bulkPool.Tune(current.Bulk.Workers)
	}

	restart := config.RequiresRestart(previous, current)
	if restart {
		log.Warn("Settings saved; dataset, index, server or DNS changes apply after a restart")
	}
	writeJSON(w, http.StatusOK, settingsResponse{Settings: current, RestartRequired: restart})
}
