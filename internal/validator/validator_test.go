package validator

import (
	"strings"
	"testing"
)

func strPtr(s string) *string { return &s }
func i64Ptr(v int64) *int64   { return &v }

func TestValidate_StageSelfLoop(t *testing.T) {
	payload := TaskConfigPayload{
		ProjectID: 1,
		Stages: []StagePayload{
			{ID: 1, Name: "S1", PredecessorStages: []int64{1}},
		},
	}
	_, err := Validate(payload)
	if err == nil {
		t.Fatal("expected self-loop error, got nil")
	}
	if !strings.Contains(err.Error(), "self-loop") {
		t.Fatalf("expected self-loop message, got: %v", err)
	}
}

func TestValidate_StageCycle(t *testing.T) {
	// spec §8 scenario 2: stages [{id:1,succ:[2]},{id:2,succ:[1]}]
	payload := TaskConfigPayload{
		ProjectID: 1,
		Stages: []StagePayload{
			{ID: 1, Name: "S1", SuccessorStages: []int64{2}},
			{ID: 2, Name: "S2", SuccessorStages: []int64{1}},
		},
	}
	_, err := Validate(payload)
	if err == nil {
		t.Fatal("expected cycle error, got nil")
	}
	ve, ok := err.(*ValidationError)
	if !ok {
		t.Fatalf("expected *ValidationError, got %T", err)
	}
	if ve.EntityID != 1 && ve.EntityID != 2 {
		t.Fatalf("expected cycle to name stage 1 or 2, got %d", ve.EntityID)
	}
}

func TestValidate_CrossStageTaskEdgeRejected(t *testing.T) {
	// spec §8 scenario 3
	payload := TaskConfigPayload{
		ProjectID: 1,
		Stages: []StagePayload{
			{ID: 1, Name: "S1"},
			{ID: 2, Name: "S2"},
		},
		Tasks: []TaskPayload{
			{ID: 10, Name: "T1", StageID: i64Ptr(1), SuccessorTasks: []int64{20}},
			{ID: 20, Name: "T2", StageID: i64Ptr(2)},
		},
	}
	_, err := Validate(payload)
	if err == nil {
		t.Fatal("expected cross-stage error, got nil")
	}
	if !strings.Contains(err.Error(), "cross-stage") {
		t.Fatalf("expected cross-stage message, got: %v", err)
	}
}

func TestValidate_UnassignedTaskWithEdgesRejected(t *testing.T) {
	payload := TaskConfigPayload{
		ProjectID: 1,
		Tasks: []TaskPayload{
			{ID: 10, Name: "T1", SuccessorTasks: []int64{20}},
			{ID: 20, Name: "T2"},
		},
	}
	_, err := Validate(payload)
	if err == nil {
		t.Fatal("expected error for unassigned task with edges")
	}
}

func TestValidate_ValidLinearPlanPasses(t *testing.T) {
	payload := TaskConfigPayload{
		ProjectID: 100,
		Stages: []StagePayload{
			{ID: -1, Name: "S1", StartTime: strPtr("2025-01-01"), EndTime: strPtr("2025-01-05"), SuccessorStages: []int64{-2}},
			{ID: -2, Name: "S2", StartTime: strPtr("2025-01-06"), EndTime: strPtr("2025-01-10"), PredecessorStages: []int64{-1}},
		},
		Tasks: []TaskPayload{
			{ID: -10, Name: "T1", StageID: i64Ptr(-1), JobNumber: "E001", StartTime: strPtr("2025-01-01"), EndTime: strPtr("2025-01-05"), ApprovalType: ApprovalTypeSpecified, ApprovalNodes: []int64{500}},
			{ID: -20, Name: "T2", StageID: i64Ptr(-2), JobNumber: "E002", StartTime: strPtr("2025-01-06"), EndTime: strPtr("2025-01-10"), ApprovalType: ApprovalTypeSpecified, ApprovalNodes: []int64{501}},
		},
	}
	res, err := Validate(payload)
	if err != nil {
		t.Fatalf("expected valid plan to pass, got: %v", err)
	}
	if len(res.Warnings) != 0 {
		t.Fatalf("expected no time warnings, got: %+v", res.Warnings)
	}
}

func TestValidate_TimeOrderWarningNonFatal(t *testing.T) {
	payload := TaskConfigPayload{
		ProjectID: 1,
		Stages: []StagePayload{
			{ID: 1, Name: "S1", StartTime: strPtr("2025-01-01"), EndTime: strPtr("2025-01-10"), SuccessorStages: []int64{2}},
			{ID: 2, Name: "S2", StartTime: strPtr("2025-01-05"), EndTime: strPtr("2025-01-15"), PredecessorStages: []int64{1}},
		},
	}
	res, err := Validate(payload)
	if err != nil {
		t.Fatalf("time-order violations must not block persistence, got: %v", err)
	}
	if len(res.Warnings) == 0 {
		t.Fatal("expected a time-order warning")
	}
}
