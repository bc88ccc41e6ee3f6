package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"

	"tasksync/store"
	"tasksync/syncjob"
)

var validate = validator.New()

// startSyncRequest is the optional body of a sync-tasks call
type startSyncRequest struct {
	IntegrationID string `json:"integrationId"`
}

// startSyncResponse acknowledges a started job
type startSyncResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	JobID   string `json:"jobId,omitempty"`
}

// handleStartSync begins a background sync for one connection and returns
// immediately; progress is observed through the sync-status endpoint.
func (s *Server) handleStartSync(w http.ResponseWriter, r *http.Request) {
	connectionID := r.PathValue("connectionId")
	userID := userFromContext(r.Context())

	var req startSyncRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}

	jobID, err := s.controller.StartSync(r.Context(), connectionID, req.IntegrationID, userID)
	if err != nil {
		kind := syncjob.KindOf(err)
		s.logger.Printf("Start sync failed for connection %s: %v", connectionID, err)
		writeError(w, statusForKind(kind), err.Error())
		return
	}

	writeJSON(w, http.StatusAccepted, startSyncResponse{
		Success: true,
		Message: "Task sync started",
		JobID:   jobID,
	})
}

// handleSyncStatus returns the latest sync job for a connection, or 404
// when the connection has never synced
func (s *Server) handleSyncStatus(w http.ResponseWriter, r *http.Request) {
	connectionID := r.PathValue("connectionId")

	job, err := s.jobs.GetLatestSyncJob(r.Context(), connectionID)
	if err != nil {
		if store.IsNotFound(err) {
			writeError(w, http.StatusNotFound, "no sync job found for connection")
			return
		}
		s.logger.Printf("Sync status lookup failed for connection %s: %v", connectionID, err)
		writeError(w, http.StatusInternalServerError, "failed to fetch sync status")
		return
	}

	writeJSON(w, http.StatusOK, job)
}

// handleListTasks returns the user's tasks newest-first, with optional
// title search and freelancer filter
func (s *Server) handleListTasks(w http.ResponseWriter, r *http.Request) {
	userID := userFromContext(r.Context())

	filter := &store.TaskFilter{
		Search:       r.URL.Query().Get("search"),
		FreelancerID: r.URL.Query().Get("freelancerId"),
	}

	tasks, err := s.tasks.ListTasks(r.Context(), userID, filter)
	if err != nil {
		s.logger.Printf("List tasks failed for user %s: %v", userID, err)
		writeError(w, http.StatusInternalServerError, "failed to fetch tasks")
		return
	}

	if tasks == nil {
		tasks = []store.Task{}
	}
	writeJSON(w, http.StatusOK, map[string][]store.Task{"tasks": tasks})
}

// handleListFreelancers returns the known assignees, for populating the
// freelancer filter
func (s *Server) handleListFreelancers(w http.ResponseWriter, r *http.Request) {
	freelancers, err := s.freelancers.ListFreelancers(r.Context())
	if err != nil {
		s.logger.Printf("List freelancers failed: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to fetch freelancers")
		return
	}

	if freelancers == nil {
		freelancers = []store.Freelancer{}
	}
	writeJSON(w, http.StatusOK, map[string][]store.Freelancer{"freelancers": freelancers})
}

// updateTaskRequest is the body of a task status patch
type updateTaskRequest struct {
	Status string `json:"status" validate:"required"`
}

// handleUpdateTask changes one task's status. The task must belong to the
// requesting user. The change is forwarded to the external system first;
// an upstream failure is logged but does not block the local update.
func (s *Server) handleUpdateTask(w http.ResponseWriter, r *http.Request) {
	externalID := r.PathValue("id")
	userID := userFromContext(r.Context())

	var req updateTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "status is required")
		return
	}

	task, err := s.tasks.GetTask(r.Context(), userID, externalID)
	if err != nil {
		if store.IsNotFound(err) {
			writeError(w, http.StatusNotFound, "task not found")
			return
		}
		s.logger.Printf("Task lookup failed for %s: %v", externalID, err)
		writeError(w, http.StatusInternalServerError, "failed to fetch task")
		return
	}

	// Forward to the task's originating connection before persisting
	if err := s.pushStatusUpstream(r, task, req.Status); err != nil {
		s.logger.Printf("Upstream status push failed for task %s: %v", externalID, err)
	}

	if err := s.tasks.UpdateTaskStatus(r.Context(), userID, externalID, req.Status); err != nil {
		s.logger.Printf("Status update failed for task %s: %v", externalID, err)
		writeError(w, http.StatusInternalServerError, "failed to update task")
		return
	}

	task.Status = req.Status
	writeJSON(w, http.StatusOK, map[string]*store.Task{"task": task})
}

// pushStatusUpstream finds the user's connection for the task's source
// integration and runs the update action against it
func (s *Server) pushStatusUpstream(r *http.Request, task *store.Task, status string) error {
	connections, err := s.source.FindConnections(r.Context(), "")
	if err != nil {
		return err
	}

	for _, conn := range connections {
		if conn.Integration.Key == task.Source {
			return s.source.UpdateTask(r.Context(), conn, task.ExternalID, status)
		}
	}

	return errors.New("no connection found for source " + task.Source)
}
