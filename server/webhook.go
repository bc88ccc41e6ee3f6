package server

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"

	"tasksync/integration"
	"tasksync/internal/config"
	"tasksync/store"
)

// WebhookTokenHeader carries the shared credential on webhook pushes
const WebhookTokenHeader = "X-Integration-Token"

// webhookPayload is a single task push from the integration platform
type webhookPayload struct {
	ExternalTaskID string             `json:"externalTaskId"`
	Data           integration.Record `json:"data"`
}

// handleWebhook ingests one pushed task. The credential header must be
// present; when a webhook secret is configured the value is also verified
// with a constant-time compare. The record is normalized exactly like a
// sync page item, so replaying the same payload is a no-op apart from the
// update timestamp.
func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	token := r.Header.Get(WebhookTokenHeader)
	if token == "" {
		writeError(w, http.StatusUnauthorized, "missing webhook token")
		return
	}
	if secret := s.cfg.Webhook.Secret; secret != "" {
		if subtle.ConstantTimeCompare([]byte(token), []byte(secret)) != 1 {
			writeError(w, http.StatusUnauthorized, "invalid webhook token")
			return
		}
	}

	var payload webhookPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid webhook payload")
		return
	}
	if payload.ExternalTaskID == "" && payload.Data.ID == "" && payload.Data.Fields.ID == "" {
		writeError(w, http.StatusBadRequest, "webhook payload has no task id")
		return
	}
	if payload.Data.ID == "" {
		payload.Data.ID = payload.ExternalTaskID
	}

	userID := s.cfg.Webhook.DefaultUserID
	if userID == "" {
		s.logger.Printf("Webhook rejected: webhook.default_user_id is not configured")
		writeError(w, http.StatusInternalServerError, "webhook intake is not configured")
		return
	}

	task := integration.ToTask(payload.Data, userID, "")

	var err error
	switch s.cfg.Webhook.Scope {
	case config.WebhookScopeGlobal:
		err = s.tasks.UpsertTaskGlobal(r.Context(), task)
	default:
		// Webhook pushes carry no source attribution; keep what a prior
		// sync recorded for the row
		if existing, getErr := s.tasks.GetTask(r.Context(), userID, task.ExternalID); getErr == nil {
			task.Source = existing.Source
			task.CreatedAt = existing.CreatedAt
		}
		err = s.tasks.UpsertTasks(r.Context(), []store.Task{task})
	}
	if err != nil {
		s.logger.Printf("Webhook upsert failed for task %s: %v", task.ExternalID, err)
		writeError(w, http.StatusInternalServerError, "failed to store task")
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}
