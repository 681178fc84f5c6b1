package validator

import (
	"sort"
)

type color int

const (
	white color = iota // unvisited
	gray               // in progress (on the current DFS stack)
	black              // fully visited
)

// TimeWarning is a non-fatal time-order violation (spec §4.2 step 8).
// Recorded but never blocks persistence.
type TimeWarning struct {
	EntityKind string
	EntityName string
	EntityID   int64
	Message    string
}

// Result carries the non-fatal warnings collected during an otherwise
// successful validation pass.
type Result struct {
	Warnings []TimeWarning
}

// Validate runs every structural check from spec §4.2 in order, aborting on
// the first failure. It never touches the database.
func Validate(payload TaskConfigPayload) (*Result, error) {
	stageMap := stageMapOf(payload.Stages)

	if err := validateStageSelfLoops(payload.Stages); err != nil {
		return nil, err
	}
	if err := validateStageEdgeEndpoints(payload.Stages, stageMap); err != nil {
		return nil, err
	}
	if err := validateStageAcyclic(payload.Stages, stageMap); err != nil {
		return nil, err
	}

	taskMap := taskMapOf(payload.Tasks)

	if err := validateTaskSelfLoops(payload.Tasks); err != nil {
		return nil, err
	}
	if err := validateTaskEdgeEndpoints(payload.Tasks, taskMap); err != nil {
		return nil, err
	}
	if err := validateCrossStageTaskEdges(payload.Tasks, taskMap); err != nil {
		return nil, err
	}
	if err := validateTaskAcyclicPerStage(payload.Tasks); err != nil {
		return nil, err
	}

	res := &Result{}
	res.Warnings = append(res.Warnings, stageTimeWarnings(payload.Stages, stageMap)...)
	res.Warnings = append(res.Warnings, taskTimeWarnings(payload.Tasks, taskMap)...)
	return res, nil
}

func stageMapOf(stages []StagePayload) map[int64]StagePayload {
	m := make(map[int64]StagePayload, len(stages))
	for _, s := range stages {
		m[s.ID] = s
	}
	return m
}

func taskMapOf(tasks []TaskPayload) map[int64]TaskPayload {
	m := make(map[int64]TaskPayload, len(tasks))
	for _, t := range tasks {
		m[t.ID] = t
	}
	return m
}

// --- 1. Stage self-loop ---

func validateStageSelfLoops(stages []StagePayload) error {
	for _, s := range stages {
		if containsInt64(s.PredecessorStages, s.ID) {
			return newStageErr(s, "stage cannot name itself as a predecessor (self-loop)")
		}
		if containsInt64(s.SuccessorStages, s.ID) {
			return newStageErr(s, "stage cannot name itself as a successor (self-loop)")
		}
	}
	return nil
}

// --- 2. Stage edge endpoint existence ---

func validateStageEdgeEndpoints(stages []StagePayload, stageMap map[int64]StagePayload) error {
	for _, s := range stages {
		for _, pred := range s.PredecessorStages {
			if _, ok := stageMap[pred]; !ok {
				return newStageErr(s, "predecessor stage does not exist in the submitted stage list")
			}
		}
		for _, succ := range s.SuccessorStages {
			if _, ok := stageMap[succ]; !ok {
				return newStageErr(s, "successor stage does not exist in the submitted stage list")
			}
		}
	}
	return nil
}

// --- 3. Stage graph acyclicity ---

func validateStageAcyclic(stages []StagePayload, stageMap map[int64]StagePayload) error {
	adj := buildStageAdjacency(stages)
	colors := make(map[int64]color, len(stages))
	for id := range stageMap {
		colors[id] = white
	}

	ids := sortedKeys(stageMap)
	for _, id := range ids {
		if colors[id] != white {
			continue
		}
		if cyclePath := dfsDetectCycle(id, adj, colors); cyclePath != nil {
			first := stageMap[cyclePath[0]]
			return newStageErr(first, "cycle detected among stage predecessor/successor relationships")
		}
	}
	return nil
}

// buildStageAdjacency builds a combined directed graph from both
// pred(A)->A and A->succ(A) edges, exactly as the reference implementation
// does, so that either direction of a cycle is caught.
func buildStageAdjacency(stages []StagePayload) map[int64][]int64 {
	adj := map[int64][]int64{}
	for _, s := range stages {
		if _, ok := adj[s.ID]; !ok {
			adj[s.ID] = nil
		}
		adj[s.ID] = append(adj[s.ID], s.SuccessorStages...)
		for _, pred := range s.PredecessorStages {
			if !containsInt64(adj[pred], s.ID) {
				adj[pred] = append(adj[pred], s.ID)
			}
		}
	}
	return adj
}

// --- 4. Task self-loop ---

func validateTaskSelfLoops(tasks []TaskPayload) error {
	for _, t := range tasks {
		if containsInt64(t.PredecessorTasks, t.ID) {
			return newTaskErr(t, "task cannot name itself as a predecessor (self-loop)")
		}
		if containsInt64(t.SuccessorTasks, t.ID) {
			return newTaskErr(t, "task cannot name itself as a successor (self-loop)")
		}
	}
	return nil
}

// --- 5. Task edge endpoint existence ---

func validateTaskEdgeEndpoints(tasks []TaskPayload, taskMap map[int64]TaskPayload) error {
	for _, t := range tasks {
		for _, pred := range t.PredecessorTasks {
			if _, ok := taskMap[pred]; !ok {
				return newTaskErr(t, "predecessor task does not exist in the submitted task list")
			}
		}
		for _, succ := range t.SuccessorTasks {
			if _, ok := taskMap[succ]; !ok {
				return newTaskErr(t, "successor task does not exist in the submitted task list")
			}
		}
	}
	return nil
}

// --- 6. Cross-stage task edges ---

func validateCrossStageTaskEdges(tasks []TaskPayload, taskMap map[int64]TaskPayload) error {
	for _, t := range tasks {
		if t.StageID == nil {
			if len(t.PredecessorTasks) > 0 || len(t.SuccessorTasks) > 0 {
				return newTaskErr(t, "a task with no stage cannot have predecessor or successor edges")
			}
			continue
		}
		for _, predID := range t.PredecessorTasks {
			pred := taskMap[predID]
			if pred.StageID == nil || *pred.StageID != *t.StageID {
				return newTaskErr(t, "cross-stage task link: predecessor belongs to a different stage")
			}
		}
		for _, succID := range t.SuccessorTasks {
			succ := taskMap[succID]
			if succ.StageID == nil || *succ.StageID != *t.StageID {
				return newTaskErr(t, "cross-stage task link: successor belongs to a different stage")
			}
		}
	}
	return nil
}

// --- 7. Task graph acyclicity (per stage) ---

func validateTaskAcyclicPerStage(tasks []TaskPayload) error {
	byStage := map[int64][]TaskPayload{}
	for _, t := range tasks {
		if t.StageID == nil {
			continue
		}
		byStage[*t.StageID] = append(byStage[*t.StageID], t)
	}

	stageIDs := make([]int64, 0, len(byStage))
	for sid := range byStage {
		stageIDs = append(stageIDs, sid)
	}
	sort.Slice(stageIDs, func(i, j int) bool { return stageIDs[i] < stageIDs[j] })

	for _, sid := range stageIDs {
		stageTasks := byStage[sid]
		taskMap := taskMapOf(stageTasks)
		adj := buildTaskAdjacency(stageTasks)

		colors := make(map[int64]color, len(stageTasks))
		for id := range taskMap {
			colors[id] = white
		}

		ids := sortedKeys(taskMap)
		for _, id := range ids {
			if colors[id] != white {
				continue
			}
			if cyclePath := dfsDetectCycle(id, adj, colors); cyclePath != nil {
				first := taskMap[cyclePath[0]]
				return newTaskErr(first, "cycle detected among task predecessor/successor relationships within the stage")
			}
		}
	}
	return nil
}

func buildTaskAdjacency(tasks []TaskPayload) map[int64][]int64 {
	adj := map[int64][]int64{}
	for _, t := range tasks {
		if _, ok := adj[t.ID]; !ok {
			adj[t.ID] = nil
		}
		adj[t.ID] = append(adj[t.ID], t.SuccessorTasks...)
		for _, pred := range t.PredecessorTasks {
			if !containsInt64(adj[pred], t.ID) {
				adj[pred] = append(adj[pred], t.ID)
			}
		}
	}
	return adj
}

// --- shared 3-color DFS ---

// dfsDetectCycle runs a three-color DFS from start. On finding a back-edge it
// returns the cycle path (node IDs, first element first); otherwise nil.
func dfsDetectCycle(start int64, adj map[int64][]int64, colors map[int64]color) []int64 {
	var path []int64
	var cycle []int64

	var visit func(node int64) bool
	visit = func(node int64) bool {
		if colors[node] == gray {
			idx := indexOf(path, node)
			cycle = append(append([]int64{}, path[idx:]...), node)
			return true
		}
		if colors[node] == black {
			return false
		}
		colors[node] = gray
		path = append(path, node)

		for _, next := range adj[node] {
			if visit(next) {
				return true
			}
		}

		colors[node] = black
		path = path[:len(path)-1]
		return false
	}

	if visit(start) {
		return cycle
	}
	return nil
}

// --- 8. Time-order warnings (non-fatal) ---

func stageTimeWarnings(stages []StagePayload, stageMap map[int64]StagePayload) []TimeWarning {
	var warnings []TimeWarning
	for _, s := range stages {
		warned := false
		if s.StartTime != nil {
			for _, predID := range s.PredecessorStages {
				pred, ok := stageMap[predID]
				if !ok || pred.EndTime == nil {
					continue
				}
				if *s.StartTime <= *pred.EndTime {
					warnings = append(warnings, TimeWarning{
						EntityKind: "stage", EntityName: s.Name, EntityID: s.ID,
						Message: "start time is not after predecessor stage's end time",
					})
					warned = true
					break
				}
			}
		}
		if !warned && s.EndTime != nil {
			for _, succID := range s.SuccessorStages {
				succ, ok := stageMap[succID]
				if !ok || succ.StartTime == nil {
					continue
				}
				if *s.EndTime >= *succ.StartTime {
					warnings = append(warnings, TimeWarning{
						EntityKind: "stage", EntityName: s.Name, EntityID: s.ID,
						Message: "end time is not before successor stage's start time",
					})
					break
				}
			}
		}
	}
	return warnings
}

func taskTimeWarnings(tasks []TaskPayload, taskMap map[int64]TaskPayload) []TimeWarning {
	var warnings []TimeWarning
	for _, t := range tasks {
		warned := false
		if t.StartTime != nil {
			for _, predID := range t.PredecessorTasks {
				pred, ok := taskMap[predID]
				if !ok || pred.EndTime == nil {
					continue
				}
				if *t.StartTime <= *pred.EndTime {
					warnings = append(warnings, TimeWarning{
						EntityKind: "task", EntityName: t.Name, EntityID: t.ID,
						Message: "start time is not after predecessor task's end time",
					})
					warned = true
					break
				}
			}
		}
		if !warned && t.EndTime != nil {
			for _, succID := range t.SuccessorTasks {
				succ, ok := taskMap[succID]
				if !ok || succ.StartTime == nil {
					continue
				}
				if *t.EndTime >= *succ.StartTime {
					warnings = append(warnings, TimeWarning{
						EntityKind: "task", EntityName: t.Name, EntityID: t.ID,
						Message: "end time is not before successor task's start time",
					})
					break
				}
			}
		}
	}
	return warnings
}

// --- helpers ---

func containsInt64(s []int64, v int64) bool {
	for _, x := range s {
		if x == v {
			return true
		}
	}
	return false
}

func indexOf(s []int64, v int64) int {
	for i, x := range s {
		if x == v {
			return i
		}
	}
	return -1
}

func sortedKeys[K int64, V any](m map[K]V) []K {
	keys := make([]K, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}
