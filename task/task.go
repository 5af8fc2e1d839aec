// Package task defines the task model and the repository that owns it.
package task

import "time"

// Status represents the lifecycle state of a task in the review pipeline.
type Status string

const (
	StatusPending     Status = "pending"
	StatusInProgress  Status = "in_progress"
	StatusUnderReview Status = "under_review"
	StatusCMOReview   Status = "cmo_review" // executive review checkpoint
	StatusCompleted   Status = "completed"
	StatusRejected    Status = "rejected"
)

// Statuses lists every valid status, in pipeline order.
var Statuses = []Status{
	StatusPending,
	StatusInProgress,
	StatusUnderReview,
	StatusCMOReview,
	StatusCompleted,
	StatusRejected,
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	for _, known := range Statuses {
		if s == known {
			return true
		}
	}
	return false
}

// Priority indicates task urgency. It is set at creation and not
// expected to change afterwards.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// Priorities lists every valid priority, lowest first.
var Priorities = []Priority{PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent}

// Valid reports whether p is a known priority.
func (p Priority) Valid() bool {
	for _, known := range Priorities {
		if p == known {
			return true
		}
	}
	return false
}

// WorkflowEntry is one immutable record in a task's audit trail.
type WorkflowEntry struct {
	Status    Status    `json:"status"`
	Actor     string    `json:"actor"`
	Message   string    `json:"message,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Task is a unit of work tracked through creation, assignment,
// execution, and multi-stage review. Identity is immutable; state is
// mutated only through the Manager.
type Task struct {
	ID              string            `json:"id"`
	Title           string            `json:"title"`
	Description     string            `json:"description"`
	Assignee        string            `json:"assignee,omitempty"`
	Priority        Priority          `json:"priority"`
	Status          Status            `json:"status"`
	Context         map[string]string `json:"context,omitempty"`
	Output          string            `json:"output,omitempty"`
	RejectionReason string            `json:"rejection_reason,omitempty"`
	ApprovalReason  string            `json:"approval_reason,omitempty"`
	RevisionCount   int               `json:"revision_count"`
	AssignedAt      *time.Time        `json:"assigned_at,omitempty"`
	CreatedAt       time.Time         `json:"created_at"`
	UpdatedAt       time.Time         `json:"updated_at"`
	WorkflowHistory []WorkflowEntry   `json:"workflow_history"`
}

// Department returns the department recorded in the task's creation
// context, or "" if none was set.
func (t *Task) Department() string {
	if t.Context == nil {
		return ""
	}
	return t.Context["department"]
}

// ApplyStatus sets the task's status, appends the matching workflow
// history entry, and bumps UpdatedAt. This is the entity-level half of
// a status transition; callers go through Manager.UpdateStatus so the
// repository indices stay in sync.
func (t *Task) ApplyStatus(status Status, actor, message string) {
	now := time.Now().UTC()
	t.Status = status
	t.UpdatedAt = now
	t.WorkflowHistory = append(t.WorkflowHistory, WorkflowEntry{
		Status:    status,
		Actor:     actor,
		Message:   message,
		Timestamp: now,
	})
}

// Terminal reports whether the task is in a terminal state for metric
// counting. A rejected task may still be reopened by a human override.
func (t *Task) Terminal() bool {
	return t.Status == StatusCompleted || t.Status == StatusRejected
}

// clone returns a deep copy so repository reads never alias internal state.
func (t *Task) clone() *Task {
	cp := *t
	if t.Context != nil {
		cp.Context = make(map[string]string, len(t.Context))
		for k, v := range t.Context {
			cp.Context[k] = v
		}
	}
	if t.AssignedAt != nil {
		at := *t.AssignedAt
		cp.AssignedAt = &at
	}
	cp.WorkflowHistory = append([]WorkflowEntry(nil), t.WorkflowHistory...)
	return &cp
}
