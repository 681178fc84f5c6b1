package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/yungbote/neurobridge-backend/internal/validator"
)

// FlexibleID decodes spec §6's "integer or numeric string" id fields,
// following the teacher's OptionalUUID/OptionalString UnmarshalJSON pattern
// (internal/services/session_state.go) rather than a bespoke one-off parser.
type FlexibleID int64

func (f *FlexibleID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if string(data) == "null" {
		*f = 0
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		v, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
		if err != nil {
			return fmt.Errorf("invalid id %q: %w", s, err)
		}
		*f = FlexibleID(v)
		return nil
	}
	var v int64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*f = FlexibleID(v)
	return nil
}

// stagePayload / taskPayload / taskConfigPayload are the strict JSON shapes
// of spec §6's TaskConfigPayload, decoded by TaskHandler.save with
// encoding/json's DisallowUnknownFields (unknown keys rejected) and then
// converted into the validator package's DB-agnostic payload types.
type stagePayloadDTO struct {
	ID                FlexibleID     `json:"id"`
	Name              string         `json:"name"`
	StartTime         *string        `json:"startTime"`
	EndTime           *string        `json:"endTime"`
	Duration          *int           `json:"duration"`
	PredecessorStages []FlexibleID   `json:"predecessorStages"`
	SuccessorStages   []FlexibleID   `json:"successorStages"`
	Position          map[string]any `json:"position"`
	ProjectID         FlexibleID     `json:"projectId"`
}

type taskPayloadDTO struct {
	ID               FlexibleID     `json:"id"`
	Name             string         `json:"name"`
	Description      string         `json:"description"`
	StartTime        *string        `json:"startTime"`
	EndTime          *string        `json:"endTime"`
	Duration         *int           `json:"duration"`
	JobNumber        string         `json:"jobNumber"`
	StageID          *FlexibleID    `json:"stageId"`
	PredecessorTasks []FlexibleID   `json:"predecessorTasks"`
	SuccessorTasks   []FlexibleID   `json:"successorTasks"`
	Position         map[string]any `json:"position"`
	ProjectID        FlexibleID     `json:"projectId"`
	ApprovalType     string         `json:"approvalType"`
	ApprovalNodes    []FlexibleID   `json:"approvalNodes"`
}

type taskConfigPayloadDTO struct {
	ProjectID FlexibleID        `json:"projectId"`
	Stages    []stagePayloadDTO `json:"stages"`
	Tasks     []taskPayloadDTO  `json:"tasks"`
}

func idSlice(ids []FlexibleID) []int64 {
	out := make([]int64, len(ids))
	for i, id := range ids {
		out[i] = int64(id)
	}
	return out
}

func (d taskConfigPayloadDTO) toValidator() validator.TaskConfigPayload {
	payload := validator.TaskConfigPayload{ProjectID: int64(d.ProjectID)}
	for _, s := range d.Stages {
		payload.Stages = append(payload.Stages, validator.StagePayload{
			ID:                int64(s.ID),
			Name:              s.Name,
			StartTime:         s.StartTime,
			EndTime:           s.EndTime,
			Duration:          s.Duration,
			PredecessorStages: idSlice(s.PredecessorStages),
			SuccessorStages:   idSlice(s.SuccessorStages),
			Position:          s.Position,
			ProjectID:         int64(s.ProjectID),
		})
	}
	for _, t := range d.Tasks {
		var stageID *int64
		if t.StageID != nil {
			v := int64(*t.StageID)
			stageID = &v
		}
		payload.Tasks = append(payload.Tasks, validator.TaskPayload{
			ID:               int64(t.ID),
			Name:             t.Name,
			Description:      t.Description,
			StartTime:        t.StartTime,
			EndTime:          t.EndTime,
			Duration:         t.Duration,
			JobNumber:        t.JobNumber,
			StageID:          stageID,
			PredecessorTasks: idSlice(t.PredecessorTasks),
			SuccessorTasks:   idSlice(t.SuccessorTasks),
			Position:         t.Position,
			ProjectID:        int64(t.ProjectID),
			ApprovalType:     validator.ApprovalType(t.ApprovalType),
			ApprovalNodes:    idSlice(t.ApprovalNodes),
		})
	}
	return payload
}
