package scheduler

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const TaskTerritoryBulkAssign = "territory.bulk-assign"

const TaskRevisitReminder = "leads.revisit.reminder"

type TerritoryBulkAssignPayload struct {
	TerritoryID string `json:"territoryId"`
	Op          string `json:"op"`
	AssigneeID  string `json:"assigneeId,omitempty"`
}

type RevisitReminderPayload struct {
	LeadID    string `json:"leadId"`
	RevisitID string `json:"revisitId"`
	UserID    string `json:"userId"`
}

func NewTerritoryBulkAssignTask(payload TerritoryBulkAssignPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTerritoryBulkAssign, data), nil
}

func ParseTerritoryBulkAssignPayload(task *asynq.Task) (TerritoryBulkAssignPayload, error) {
	var payload TerritoryBulkAssignPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return TerritoryBulkAssignPayload{}, err
	}
	return payload, nil
}

func NewRevisitReminderTask(payload RevisitReminderPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskRevisitReminder, data), nil
}

func ParseRevisitReminderPayload(task *asynq.Task) (RevisitReminderPayload, error) {
	var payload RevisitReminderPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return RevisitReminderPayload{}, err
	}
	return payload, nil
}
