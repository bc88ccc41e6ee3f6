package integration

import (
	"time"

	"tasksync/store"
)

// ToTask normalizes one external record into the local task shape.
// External field names map to internal attributes, a missing description
// defaults to the empty string, and the record is stamped with the owning
// user and the originating integration key.
func ToTask(record Record, userID, sourceKey string) store.Task {
	task := store.Task{
		ExternalID:      record.Fields.ID,
		UserID:          userID,
		Title:           record.Fields.Title,
		Description:     record.Fields.Description, // "" when absent
		Status:          record.Fields.Status,
		Source:          sourceKey,
		FreelancerEmail: record.Fields.FreelancerEmail,
	}

	// Some connectors put the id only on the record envelope
	if task.ExternalID == "" {
		task.ExternalID = record.ID
	}

	// Parse due date (connectors send either a date or a full timestamp)
	if record.Fields.DueDate != "" {
		if due, err := time.Parse(time.RFC3339, record.Fields.DueDate); err == nil {
			task.DueDate = &due
		} else if due, err := time.Parse("2006-01-02", record.Fields.DueDate); err == nil {
			task.DueDate = &due
		}
	}

	if record.CreatedTime != "" {
		if created, err := time.Parse(time.RFC3339, record.CreatedTime); err == nil {
			task.CreatedAt = created
		}
	}
	if record.UpdatedTime != "" {
		if updated, err := time.Parse(time.RFC3339, record.UpdatedTime); err == nil {
			task.UpdatedAt = updated
		}
	}

	return task
}

// ToTasks normalizes a whole page of records
func ToTasks(records []Record, userID, sourceKey string) []store.Task {
	tasks := make([]store.Task, 0, len(records))
	for _, record := range records {
		tasks = append(tasks, ToTask(record, userID, sourceKey))
	}
	return tasks
}
