package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/dvloznov/autoledger/internal/api/middleware"
	"github.com/dvloznov/autoledger/internal/store"
)

// BackupHandler handles ledger export and import.
type BackupHandler struct {
	store *store.Store
	log   zerolog.Logger
}

// NewBackupHandler creates a new backup handler.
func NewBackupHandler(s *store.Store, log zerolog.Logger) *BackupHandler {
	return &BackupHandler{store: s, log: log}
}

// Export handles GET /api/backup. The response body is the full transaction
// list as a JSON array, newest first, served as a download.
func (h *BackupHandler) Export(w http.ResponseWriter, r *http.Request) {
	filename := fmt.Sprintf("autoledger_backup_%s.json", time.Now().Format("2006-01-02"))
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))

	if err := h.store.ExportJSON(r.Context(), w); err != nil {
		h.log.Error().Err(err).Msg("Failed to export backup")
		// Headers are already out; all we can do is log.
		return
	}
}

// Import handles POST /api/backup. The body must be a complete backup array;
// the existing ledger is replaced wholesale, or left untouched on any error.
func (h *BackupHandler) Import(w http.ResponseWriter, r *http.Request) {
	count, err := h.store.ImportJSON(r.Context(), r.Body)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to import backup")
		middleware.WriteError(w, http.StatusBadRequest, "Invalid backup file")
		return
	}

	h.log.Info().Int("count", count).Msg("Backup imported")
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"imported": count,
	})
}
