package task

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/cadencehq/greenlight/events"
)

// defaultSearchLimit caps Search results when the caller passes no limit.
const defaultSearchLimit = 10

// verificationStatuses are the checkpoints that get a dedicated
// verification-step event on top of the generic status change.
var verificationStatuses = map[Status]bool{
	StatusUnderReview: true,
	StatusCMOReview:   true,
	StatusCompleted:   true,
	StatusRejected:    true,
}

// Manager is the single source of truth for all tasks. It owns the
// authoritative id → Task map, keeps the secondary indices in sync on
// every mutation, and persists the whole collection to the store after
// each write.
//
// Within a process all mutations are serialized by the internal lock.
// Across processes sharing one store file, consistency is advisory:
// each save rewrites the full document under a file lock, and a process
// observes foreign writes only by calling Reload.
type Manager struct {
	mu     sync.RWMutex
	store  *Store
	logger *slog.Logger
	bus    events.Bus

	tasks           map[string]*Task
	byStatus        map[Status][]string
	agentTasks      map[string][]string
	managerTasks    map[string][]string
	departmentTasks map[string][]string

	totalCreated   int
	totalCompleted int
	totalFailed    int
}

// NewManager builds a repository over the given store and loads any
// existing collection from it. A corrupt store file is logged loudly
// and the repository starts empty rather than failing; this favors
// availability over strict durability. bus may be nil.
func NewManager(store *Store, logger *slog.Logger, bus events.Bus) (*Manager, error) {
	if logger == nil {
		logger = slog.Default()
	}
	m := &Manager{
		store:  store,
		logger: logger,
		bus:    bus,
	}
	m.reset()

	snap, err := store.Load()
	switch {
	case errors.Is(err, ErrNoStore):
		// First run: nothing to load.
	case err != nil:
		logger.Error("task store unreadable, starting empty; previous data is NOT loaded",
			slog.String("path", store.Path()), slog.Any("err", err))
	default:
		m.restore(snap)
	}
	return m, nil
}

// Close persists the collection one final time.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.store.Save(m.snapshotLocked())
}

// reset clears the authoritative map, every index, and the counters.
// Caller must hold the write lock (or be the constructor).
func (m *Manager) reset() {
	m.tasks = make(map[string]*Task)
	m.byStatus = make(map[Status][]string)
	m.agentTasks = make(map[string][]string)
	m.managerTasks = make(map[string][]string)
	m.departmentTasks = make(map[string][]string)
	m.totalCreated = 0
	m.totalCompleted = 0
	m.totalFailed = 0
}

// restore rebuilds in-memory state from a store snapshot. Indices are
// always re-derived from the tasks themselves, never trusted from disk.
func (m *Manager) restore(snap *snapshot) {
	for _, t := range snap.Tasks {
		m.tasks[t.ID] = t
		m.indexLocked(t)
	}
	m.totalCreated = snap.TotalCreated
	m.totalCompleted = snap.TotalCompleted
	m.totalFailed = snap.TotalFailed
	if m.totalCreated == 0 && len(m.tasks) > 0 {
		// Older store generations carried no counters; recompute.
		m.totalCreated = len(m.tasks)
		for _, t := range m.tasks {
			switch t.Status {
			case StatusCompleted:
				m.totalCompleted++
			case StatusRejected:
				m.totalFailed++
			}
		}
	}
}

// indexLocked derives every secondary index entry for t. The assignee
// bucket (agent vs manager) is decided by a naming heuristic: an
// assignee whose name contains "manager" is indexed as a manager.
func (m *Manager) indexLocked(t *Task) {
	m.byStatus[t.Status] = appendUnique(m.byStatus[t.Status], t.ID)
	if dept := t.Department(); dept != "" {
		m.departmentTasks[dept] = appendUnique(m.departmentTasks[dept], t.ID)
	}
	if t.Assignee != "" {
		if strings.Contains(strings.ToLower(t.Assignee), "manager") {
			m.managerTasks[t.Assignee] = appendUnique(m.managerTasks[t.Assignee], t.ID)
		} else {
			m.agentTasks[t.Assignee] = appendUnique(m.agentTasks[t.Assignee], t.ID)
		}
	}
}

// CreateTask inserts a new task with status pending and persists the
// collection. An empty id gets a generated UUID. A duplicate id
// silently replaces the existing task (accepted design risk); the
// collision is logged at warn level.
func (m *Manager) CreateTask(id, title, description, department string, priority Priority, createdBy string, taskCtx map[string]string) *Task {
	if id == "" {
		id = uuid.New().String()
	}
	if priority == "" {
		priority = PriorityMedium
	}

	ctxCopy := make(map[string]string, len(taskCtx)+2)
	for k, v := range taskCtx {
		ctxCopy[k] = v
	}
	if department != "" {
		ctxCopy["department"] = department
	}
	if createdBy != "" {
		ctxCopy["created_by"] = createdBy
	}

	t := &Task{
		ID:          id,
		Title:       title,
		Description: description,
		Priority:    priority,
		Context:     ctxCopy,
		CreatedAt:   time.Now().UTC(),
	}
	t.ApplyStatus(StatusPending, createdBy, "task created")

	m.mu.Lock()
	if _, exists := m.tasks[id]; exists {
		m.logger.Warn("task id collision, overwriting previous task", slog.String("task_id", id))
		m.dropFromIndicesLocked(id)
	}
	m.tasks[id] = t
	m.byStatus[StatusPending] = appendUnique(m.byStatus[StatusPending], id)
	if dept := t.Department(); dept != "" {
		m.departmentTasks[dept] = appendUnique(m.departmentTasks[dept], id)
	}
	m.totalCreated++
	m.persistLocked()
	out := t.clone()
	m.mu.Unlock()

	m.logger.Info("task created",
		slog.String("task_id", id),
		slog.String("title", title),
		slog.String("department", department),
		slog.String("priority", string(priority)))
	m.publish(&events.Event{
		Type:    events.TypeTaskCreated,
		TaskID:  id,
		Actor:   createdBy,
		Message: title,
		Metadata: map[string]string{
			"department": department,
			"priority":   string(priority),
		},
	})
	return out
}

// AssignTaskToAgent assigns the task to an agent and indexes it under
// that agent (and under managerName as co-owner, if given). Status is
// not changed. Returns false if the task is unknown.
func (m *Manager) AssignTaskToAgent(taskID, agentName, managerName string) bool {
	m.mu.Lock()
	t, ok := m.tasks[taskID]
	if !ok {
		m.mu.Unlock()
		return false
	}
	now := time.Now().UTC()
	t.Assignee = agentName
	t.AssignedAt = &now
	t.UpdatedAt = now
	m.agentTasks[agentName] = appendUnique(m.agentTasks[agentName], taskID)
	if managerName != "" {
		m.managerTasks[managerName] = appendUnique(m.managerTasks[managerName], taskID)
	}
	m.persistLocked()
	m.mu.Unlock()

	m.logger.Info("task assigned to agent",
		slog.String("task_id", taskID),
		slog.String("agent", agentName),
		slog.String("manager", managerName))
	m.publish(&events.Event{
		Type:     events.TypeTaskAssigned,
		TaskID:   taskID,
		Actor:    agentName,
		Metadata: map[string]string{"manager": managerName},
	})
	return true
}

// AssignTaskToManager assigns the task to a manager and indexes it
// under that manager. Returns false if the task is unknown.
func (m *Manager) AssignTaskToManager(taskID, managerName string) bool {
	m.mu.Lock()
	t, ok := m.tasks[taskID]
	if !ok {
		m.mu.Unlock()
		return false
	}
	now := time.Now().UTC()
	t.Assignee = managerName
	t.AssignedAt = &now
	t.UpdatedAt = now
	m.managerTasks[managerName] = appendUnique(m.managerTasks[managerName], taskID)
	m.persistLocked()
	m.mu.Unlock()

	m.logger.Info("task assigned to manager",
		slog.String("task_id", taskID),
		slog.String("manager", managerName))
	m.publish(&events.Event{
		Type:   events.TypeTaskAssigned,
		TaskID: taskID,
		Actor:  managerName,
	})
	return true
}

// UpdateStatus is the single authorized mutator of a task's status.
// It moves the id between status index buckets, appends the workflow
// history entry, bumps the terminal counters, and persists. Returns
// (false, nil) for an unknown task id; an invalid status is a contract
// violation and returns an error.
func (m *Manager) UpdateStatus(taskID string, status Status, actor, message string) (bool, error) {
	if !status.Valid() {
		return false, fmt.Errorf("unsupported status %q", status)
	}

	m.mu.Lock()
	t, ok := m.tasks[taskID]
	if !ok {
		m.mu.Unlock()
		return false, nil
	}
	old := t.Status
	m.byStatus[old] = removeID(m.byStatus[old], taskID)
	m.byStatus[status] = appendUnique(m.byStatus[status], taskID)
	t.ApplyStatus(status, actor, message)
	switch status {
	case StatusCompleted:
		m.totalCompleted++
	case StatusRejected:
		m.totalFailed++
	}
	m.persistLocked()
	m.mu.Unlock()

	m.logger.Info("task status updated",
		slog.String("task_id", taskID),
		slog.String("from", string(old)),
		slog.String("to", string(status)),
		slog.String("actor", actor))
	m.publish(&events.Event{
		Type:     events.TypeStatusChanged,
		TaskID:   taskID,
		Actor:    actor,
		Message:  message,
		Metadata: map[string]string{"from": string(old), "to": string(status)},
	})
	if verificationStatuses[status] {
		m.publish(&events.Event{
			Type:     events.TypeVerificationStep,
			TaskID:   taskID,
			Actor:    actor,
			Message:  message,
			Metadata: map[string]string{"status": string(status)},
		})
	}
	return true, nil
}

// SetOutput stores the worker's output text, overwriting any previous
// output from an earlier revision. Returns false if the task is unknown.
func (m *Manager) SetOutput(taskID, output string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tasks[taskID]
	if !ok {
		return false
	}
	t.Output = output
	t.UpdatedAt = time.Now().UTC()
	m.persistLocked()
	return true
}

// RecordApproval stores a reviewer's approval reasoning, overwriting
// the previous verdict. Returns false if the task is unknown.
func (m *Manager) RecordApproval(taskID, reason string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tasks[taskID]
	if !ok {
		return false
	}
	t.ApprovalReason = reason
	t.UpdatedAt = time.Now().UTC()
	m.persistLocked()
	return true
}

// RecordRejection stores a reviewer's rejection reasoning, overwriting
// the previous verdict. When revise is true the task is being returned
// for rework and its revision counter is incremented. Returns false if
// the task is unknown.
func (m *Manager) RecordRejection(taskID, reason string, revise bool) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tasks[taskID]
	if !ok {
		return false
	}
	t.RejectionReason = reason
	if revise {
		t.RevisionCount++
	}
	t.UpdatedAt = time.Now().UTC()
	m.persistLocked()
	return true
}

// Task returns a copy of the task with the given id.
func (m *Manager) Task(id string) (*Task, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.tasks[id]
	if !ok {
		return nil, false
	}
	return t.clone(), true
}

// AgentTasks returns the tasks indexed under the given agent, optionally
// post-filtered by status (zero value means no filter).
func (m *Manager) AgentTasks(agentName string, statusFilter Status) []*Task {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.collectLocked(m.agentTasks[agentName], statusFilter)
}

// ManagerTasks returns the tasks indexed under the given manager.
func (m *Manager) ManagerTasks(managerName string, statusFilter Status) []*Task {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.collectLocked(m.managerTasks[managerName], statusFilter)
}

// DepartmentTasks returns the tasks indexed under the given department.
func (m *Manager) DepartmentTasks(department string, statusFilter Status) []*Task {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.collectLocked(m.departmentTasks[department], statusFilter)
}

// TasksByStatus returns all tasks currently in the given status.
func (m *Manager) TasksByStatus(status Status) []*Task {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.collectLocked(m.byStatus[status], "")
}

// AllTasks returns every task, ordered by creation time.
func (m *Manager) AllTasks() []*Task {
	m.mu.RLock()
	defer m.mu.RUnlock()
	sorted := m.sortedLocked()
	out := make([]*Task, 0, len(sorted))
	for _, t := range sorted {
		out = append(out, t.clone())
	}
	return out
}

// Search scans titles and descriptions in creation order for a
// case-insensitive substring match, stopping once limit tasks are found
// (default 10). The ordered scan keeps the limit cut deterministic.
func (m *Manager) Search(query string, limit int) []*Task {
	if limit <= 0 {
		limit = defaultSearchLimit
	}
	q := strings.ToLower(query)

	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*Task
	for _, t := range m.sortedLocked() {
		if strings.Contains(strings.ToLower(t.Title), q) ||
			strings.Contains(strings.ToLower(t.Description), q) {
			out = append(out, t.clone())
			if len(out) >= limit {
				break
			}
		}
	}
	return out
}

// Metrics summarizes repository counters and index fan-out.
type Metrics struct {
	TotalCreated   int            `json:"total_created"`
	TotalCompleted int            `json:"total_completed"`
	TotalFailed    int            `json:"total_failed"`
	SuccessRate    float64        `json:"success_rate"`
	ByStatus       map[Status]int `json:"by_status"`
	ByDepartment   map[string]int `json:"by_department"`
	ActiveAgents   int            `json:"active_agents"`
	ActiveManagers int            `json:"active_managers"`
}

// Metrics aggregates the current system metrics. SuccessRate is
// total_completed / total_created * 100, or 0 when nothing was created.
func (m *Manager) Metrics() Metrics {
	m.mu.RLock()
	defer m.mu.RUnlock()

	mt := Metrics{
		TotalCreated:   m.totalCreated,
		TotalCompleted: m.totalCompleted,
		TotalFailed:    m.totalFailed,
		ByStatus:       make(map[Status]int),
		ByDepartment:   make(map[string]int),
	}
	if m.totalCreated > 0 {
		mt.SuccessRate = float64(m.totalCompleted) / float64(m.totalCreated) * 100
	}
	for status, ids := range m.byStatus {
		if len(ids) > 0 {
			mt.ByStatus[status] = len(ids)
		}
	}
	for dept, ids := range m.departmentTasks {
		if len(ids) > 0 {
			mt.ByDepartment[dept] = len(ids)
		}
	}
	for _, ids := range m.agentTasks {
		if len(ids) > 0 {
			mt.ActiveAgents++
		}
	}
	for _, ids := range m.managerTasks {
		if len(ids) > 0 {
			mt.ActiveManagers++
		}
	}
	return mt
}

// Reload discards all in-memory state and re-reads the store file. This
// is how one process observes mutations made by another sharing the
// same store.
func (m *Manager) Reload() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	snap, err := m.store.Load()
	if err != nil && !errors.Is(err, ErrNoStore) {
		return fmt.Errorf("reload tasks: %w", err)
	}
	m.reset()
	if snap != nil {
		m.restore(snap)
	}
	return nil
}

// collectLocked resolves ids to task copies, applying the optional
// status post-filter. Caller must hold at least the read lock.
func (m *Manager) collectLocked(ids []string, statusFilter Status) []*Task {
	var out []*Task
	for _, id := range ids {
		t, ok := m.tasks[id]
		if !ok {
			continue
		}
		if statusFilter != "" && t.Status != statusFilter {
			continue
		}
		out = append(out, t.clone())
	}
	return out
}

// dropFromIndicesLocked removes every index entry for id. Used only on
// id collision before re-inserting the replacement task.
func (m *Manager) dropFromIndicesLocked(id string) {
	for status, ids := range m.byStatus {
		m.byStatus[status] = removeID(ids, id)
	}
	for k, ids := range m.agentTasks {
		m.agentTasks[k] = removeID(ids, id)
	}
	for k, ids := range m.managerTasks {
		m.managerTasks[k] = removeID(ids, id)
	}
	for k, ids := range m.departmentTasks {
		m.departmentTasks[k] = removeID(ids, id)
	}
}

// sortedLocked returns the tasks ordered by creation time, then id.
// Entries are not cloned; caller must hold at least the read lock.
func (m *Manager) sortedLocked() []*Task {
	out := make([]*Task, 0, len(m.tasks))
	for _, t := range m.tasks {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// snapshotLocked serializes the collection in deterministic order.
func (m *Manager) snapshotLocked() *snapshot {
	return &snapshot{
		Tasks:          m.sortedLocked(),
		TotalCreated:   m.totalCreated,
		TotalCompleted: m.totalCompleted,
		TotalFailed:    m.totalFailed,
	}
}

// persistLocked saves the collection; a failed save already restored
// the backup inside the store, so it is logged and not propagated.
func (m *Manager) persistLocked() {
	if err := m.store.Save(m.snapshotLocked()); err != nil {
		m.logger.Error("persist tasks", slog.Any("err", err))
	}
}

// publish emits an activity event, fire-and-forget.
func (m *Manager) publish(ev *events.Event) {
	if m.bus == nil {
		return
	}
	if err := m.bus.Publish(context.Background(), ev); err != nil {
		m.logger.Warn("publish activity event", slog.Any("err", err))
	}
}

func appendUnique(ids []string, id string) []string {
	for _, existing := range ids {
		if existing == id {
			return ids
		}
	}
	return append(ids, id)
}

func removeID(ids []string, id string) []string {
	for i, existing := range ids {
		if existing == id {
			return append(ids[:i], ids[i+1:]...)
		}
	}
	return ids
}
