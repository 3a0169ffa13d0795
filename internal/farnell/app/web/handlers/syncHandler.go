package handlers

import (
	"context"
	"net/http"

	"partscatalog_api/internal/farnell/business/services/update"
)

type SyncHandler struct {
	syncService *update.SyncService
}

func NewSyncHandler(syncService *update.SyncService) *SyncHandler {
	return &SyncHandler{syncService: syncService}
}

// ServeHTTP is the administrative manual trigger. A trigger while a run is
// active answers 409; it is never queued.
func (h *SyncHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if h.syncService.Running() {
		http.Error(w, "sync already running", http.StatusConflict)
		return
	}

	go h.syncService.RunSync(context.Background())

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	writeJSON(w, map[string]string{"status": "triggered"})
}
