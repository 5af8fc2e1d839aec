package task

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/cadencehq/greenlight/events"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestManager(t *testing.T) (*Manager, *Store) {
	t.Helper()
	store := NewStore(filepath.Join(t.TempDir(), "tasks.json"))
	m, err := NewManager(store, testLogger(), nil)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	t.Cleanup(func() { m.Close() })
	return m, store
}

func TestCreateTask(t *testing.T) {
	m, _ := newTestManager(t)

	tk := m.CreateTask("t1", "Write copy", "Landing page copy", "marketing", PriorityHigh, "ceo", map[string]string{"origin": "chat"})
	if tk.ID != "t1" {
		t.Errorf("ID = %q, want t1", tk.ID)
	}
	if tk.Status != StatusPending {
		t.Errorf("Status = %q, want pending", tk.Status)
	}
	if len(tk.WorkflowHistory) != 1 || tk.WorkflowHistory[0].Actor != "ceo" {
		t.Errorf("creation history = %+v", tk.WorkflowHistory)
	}
	if tk.Context["department"] != "marketing" || tk.Context["created_by"] != "ceo" || tk.Context["origin"] != "chat" {
		t.Errorf("context = %v", tk.Context)
	}

	if got := m.TasksByStatus(StatusPending); len(got) != 1 {
		t.Errorf("pending index has %d tasks, want 1", len(got))
	}
	if got := m.DepartmentTasks("marketing", ""); len(got) != 1 {
		t.Errorf("department index has %d tasks, want 1", len(got))
	}
	if mt := m.Metrics(); mt.TotalCreated != 1 {
		t.Errorf("TotalCreated = %d, want 1", mt.TotalCreated)
	}
}

func TestCreateTask_GeneratesID(t *testing.T) {
	m, _ := newTestManager(t)
	tk := m.CreateTask("", "Untitled", "", "", "", "cli", nil)
	if tk.ID == "" {
		t.Fatal("expected generated id")
	}
	if tk.Priority != PriorityMedium {
		t.Errorf("default priority = %q, want medium", tk.Priority)
	}
}

func TestCreateTask_DuplicateIDOverwrites(t *testing.T) {
	m, _ := newTestManager(t)
	m.CreateTask("t1", "first", "", "ops", PriorityLow, "a", nil)
	m.CreateTask("t1", "second", "", "sales", PriorityHigh, "b", nil)

	tk, ok := m.Task("t1")
	if !ok || tk.Title != "second" {
		t.Fatalf("duplicate create did not overwrite: %+v", tk)
	}
	if got := m.DepartmentTasks("ops", ""); len(got) != 0 {
		t.Errorf("stale ops index entry after overwrite: %d", len(got))
	}
	if got := m.DepartmentTasks("sales", ""); len(got) != 1 {
		t.Errorf("sales index has %d, want 1", len(got))
	}
}

func TestAssignTaskToAgent(t *testing.T) {
	m, _ := newTestManager(t)
	m.CreateTask("t1", "work", "", "ops", PriorityMedium, "x", nil)

	if !m.AssignTaskToAgent("t1", "agent-1", "manager-ops") {
		t.Fatal("AssignTaskToAgent returned false")
	}
	tk, _ := m.Task("t1")
	if tk.Assignee != "agent-1" {
		t.Errorf("Assignee = %q, want agent-1", tk.Assignee)
	}
	if tk.AssignedAt == nil {
		t.Error("AssignedAt not set")
	}
	if tk.Status != StatusPending {
		t.Errorf("assignment changed status to %q", tk.Status)
	}
	if got := m.AgentTasks("agent-1", ""); len(got) != 1 {
		t.Errorf("agent index has %d, want 1", len(got))
	}
	if got := m.ManagerTasks("manager-ops", ""); len(got) != 1 {
		t.Errorf("manager co-owner index has %d, want 1", len(got))
	}

	if m.AssignTaskToAgent("missing", "agent-1", "") {
		t.Error("assignment of unknown task should return false")
	}
}

func TestAssignTaskToManager(t *testing.T) {
	m, _ := newTestManager(t)
	m.CreateTask("t1", "review process", "", "", PriorityMedium, "x", nil)

	if !m.AssignTaskToManager("t1", "manager-content") {
		t.Fatal("AssignTaskToManager returned false")
	}
	if got := m.ManagerTasks("manager-content", ""); len(got) != 1 {
		t.Errorf("manager index has %d, want 1", len(got))
	}
	if m.AssignTaskToManager("missing", "manager-content") {
		t.Error("assignment of unknown task should return false")
	}
}

func TestUpdateStatus(t *testing.T) {
	m, _ := newTestManager(t)
	m.CreateTask("t1", "work", "", "ops", PriorityMedium, "x", nil)

	ok, err := m.UpdateStatus("t1", StatusInProgress, "agent-1", "work started")
	if err != nil || !ok {
		t.Fatalf("UpdateStatus = (%v, %v)", ok, err)
	}

	tk, _ := m.Task("t1")
	if tk.Status != StatusInProgress {
		t.Errorf("Status = %q", tk.Status)
	}
	if len(tk.WorkflowHistory) != 2 {
		t.Errorf("history length = %d, want 2", len(tk.WorkflowHistory))
	}
	if last := tk.WorkflowHistory[len(tk.WorkflowHistory)-1]; last.Status != tk.Status {
		t.Errorf("last history status %q != task status %q", last.Status, tk.Status)
	}
	if got := m.TasksByStatus(StatusPending); len(got) != 0 {
		t.Errorf("stale pending index entry")
	}
	if got := m.TasksByStatus(StatusInProgress); len(got) != 1 {
		t.Errorf("in_progress index has %d, want 1", len(got))
	}
}

func TestUpdateStatus_UnknownTask(t *testing.T) {
	m, _ := newTestManager(t)
	m.CreateTask("t1", "work", "", "", PriorityMedium, "x", nil)
	before := m.Metrics()

	ok, err := m.UpdateStatus("nonexistent", StatusCompleted, "actor", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Fatal("UpdateStatus on unknown task should return false")
	}
	after := m.Metrics()
	if after.TotalCompleted != before.TotalCompleted || after.TotalCreated != before.TotalCreated {
		t.Error("counters changed for a failed update")
	}
}

func TestUpdateStatus_InvalidStatus(t *testing.T) {
	m, _ := newTestManager(t)
	m.CreateTask("t1", "work", "", "", PriorityMedium, "x", nil)

	if _, err := m.UpdateStatus("t1", Status("archived"), "actor", ""); err == nil {
		t.Fatal("expected error for unsupported status")
	}
}

func TestUpdateStatus_Counters(t *testing.T) {
	m, _ := newTestManager(t)
	m.CreateTask("t1", "a", "", "", PriorityMedium, "x", nil)
	m.CreateTask("t2", "b", "", "", PriorityMedium, "x", nil)

	m.UpdateStatus("t1", StatusCompleted, "exec", "done")
	m.UpdateStatus("t2", StatusRejected, "worker", "failed")

	mt := m.Metrics()
	if mt.TotalCompleted != 1 || mt.TotalFailed != 1 {
		t.Errorf("counters = completed %d failed %d", mt.TotalCompleted, mt.TotalFailed)
	}
	if mt.SuccessRate != 50 {
		t.Errorf("SuccessRate = %v, want 50", mt.SuccessRate)
	}
}

func TestStatusIndexConsistency(t *testing.T) {
	m, _ := newTestManager(t)
	m.CreateTask("t1", "a", "", "", PriorityMedium, "x", nil)
	m.CreateTask("t2", "b", "", "", PriorityMedium, "x", nil)
	m.CreateTask("t3", "c", "", "", PriorityMedium, "x", nil)

	m.UpdateStatus("t1", StatusInProgress, "w", "")
	m.UpdateStatus("t1", StatusUnderReview, "w", "")
	m.UpdateStatus("t2", StatusInProgress, "w", "")
	m.UpdateStatus("t1", StatusCMOReview, "mgr", "")
	m.UpdateStatus("t1", StatusCompleted, "exec", "")

	for _, status := range Statuses {
		inBucket := make(map[string]bool)
		for _, tk := range m.TasksByStatus(status) {
			inBucket[tk.ID] = true
		}
		for _, tk := range m.AllTasks() {
			if (tk.Status == status) != inBucket[tk.ID] {
				t.Errorf("index mismatch: task %s status %q, bucket %q membership %v",
					tk.ID, tk.Status, status, inBucket[tk.ID])
			}
		}
	}
}

func TestMetrics_SuccessRateBounds(t *testing.T) {
	m, _ := newTestManager(t)
	if mt := m.Metrics(); mt.SuccessRate != 0 {
		t.Errorf("empty repository SuccessRate = %v, want 0", mt.SuccessRate)
	}

	for i := 0; i < 5; i++ {
		id := string(rune('a' + i))
		m.CreateTask(id, "t", "", "", PriorityMedium, "x", nil)
		m.UpdateStatus(id, StatusCompleted, "exec", "")
	}
	mt := m.Metrics()
	if mt.SuccessRate < 0 || mt.SuccessRate > 100 {
		t.Errorf("SuccessRate out of bounds: %v", mt.SuccessRate)
	}
	if mt.SuccessRate != 100 {
		t.Errorf("SuccessRate = %v, want 100", mt.SuccessRate)
	}
}

func TestSearch(t *testing.T) {
	m, _ := newTestManager(t)
	m.CreateTask("t1", "Write Blog Post", "about Go concurrency", "", PriorityMedium, "x", nil)
	m.CreateTask("t2", "Fix pipeline", "the BLOG deploy pipeline is broken", "", PriorityMedium, "x", nil)
	m.CreateTask("t3", "Unrelated", "nothing here", "", PriorityMedium, "x", nil)

	got := m.Search("blog", 0)
	if len(got) != 2 {
		t.Fatalf("Search(blog) = %d results, want 2", len(got))
	}
	if got := m.Search("blog", 1); len(got) != 1 {
		t.Errorf("limit not applied: %d results", len(got))
	}
	if got := m.Search("zebra", 0); len(got) != 0 {
		t.Errorf("Search(zebra) = %d results, want 0", len(got))
	}
}

func TestSearch_DeterministicOrder(t *testing.T) {
	m, _ := newTestManager(t)
	m.CreateTask("a", "report one", "", "", PriorityMedium, "x", nil)
	m.CreateTask("b", "report two", "", "", PriorityMedium, "x", nil)
	m.CreateTask("c", "report three", "", "", PriorityMedium, "x", nil)

	for i := 0; i < 5; i++ {
		got := m.Search("report", 2)
		if len(got) != 2 {
			t.Fatalf("run %d: %d results, want 2", i, len(got))
		}
		if got[0].ID != "a" || got[1].ID != "b" {
			t.Fatalf("run %d: limit cut kept %s, %s; want the oldest matches a, b", i, got[0].ID, got[1].ID)
		}
	}
}

func TestReload_Idempotent(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(filepath.Join(dir, "tasks.json"))
	m, err := NewManager(store, testLogger(), nil)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}

	m.CreateTask("t1", "alpha", "first", "marketing", PriorityHigh, "ceo", nil)
	m.CreateTask("t2", "beta", "second", "ops", PriorityLow, "ceo", nil)
	m.AssignTaskToAgent("t1", "agent-writer", "manager-content")
	m.AssignTaskToManager("t2", "manager-ops")
	m.UpdateStatus("t1", StatusInProgress, "agent-writer", "")
	m.UpdateStatus("t1", StatusUnderReview, "agent-writer", "ready for review")
	m.UpdateStatus("t2", StatusRejected, "worker", "failed")

	before := m.AllTasks()
	beforeMetrics := m.Metrics()

	if err := m.Reload(); err != nil {
		t.Fatalf("Reload: %v", err)
	}

	after := m.AllTasks()
	if len(after) != len(before) {
		t.Fatalf("task count changed across reload: %d -> %d", len(before), len(after))
	}
	for i := range before {
		b, a := before[i], after[i]
		if a.ID != b.ID || a.Status != b.Status || a.Assignee != b.Assignee ||
			len(a.WorkflowHistory) != len(b.WorkflowHistory) {
			t.Errorf("task %s diverged across reload:\nbefore %+v\nafter  %+v", b.ID, b, a)
		}
	}

	afterMetrics := m.Metrics()
	if !metricsEqual(beforeMetrics, afterMetrics) {
		t.Errorf("metrics diverged across reload:\nbefore %+v\nafter  %+v", beforeMetrics, afterMetrics)
	}

	// Index buckets survive the rebuild.
	if got := m.AgentTasks("agent-writer", StatusUnderReview); len(got) != 1 {
		t.Errorf("agent index lost across reload: %d", len(got))
	}
	if got := m.ManagerTasks("manager-ops", ""); len(got) != 1 {
		t.Errorf("manager index lost across reload: %d", len(got))
	}
	// Co-ownership from AssignTaskToAgent is an in-memory convenience,
	// not part of the task document, so it does not survive a reload.
	if got := m.ManagerTasks("manager-content", ""); len(got) != 0 {
		t.Errorf("co-owner bucket unexpectedly persisted: %d", len(got))
	}
	if got := m.DepartmentTasks("marketing", ""); len(got) != 1 {
		t.Errorf("department index lost across reload: %d", len(got))
	}
}

func metricsEqual(a, b Metrics) bool {
	if a.TotalCreated != b.TotalCreated || a.TotalCompleted != b.TotalCompleted ||
		a.TotalFailed != b.TotalFailed || a.SuccessRate != b.SuccessRate ||
		a.ActiveAgents != b.ActiveAgents || a.ActiveManagers != b.ActiveManagers {
		return false
	}
	if len(a.ByStatus) != len(b.ByStatus) || len(a.ByDepartment) != len(b.ByDepartment) {
		return false
	}
	for k, v := range a.ByStatus {
		if b.ByStatus[k] != v {
			return false
		}
	}
	for k, v := range a.ByDepartment {
		if b.ByDepartment[k] != v {
			return false
		}
	}
	return true
}

func TestReload_ObservesForeignWrites(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tasks.json")

	m1, err := NewManager(NewStore(path), testLogger(), nil)
	if err != nil {
		t.Fatal(err)
	}
	m2, err := NewManager(NewStore(path), testLogger(), nil)
	if err != nil {
		t.Fatal(err)
	}

	m1.CreateTask("t1", "from process one", "", "", PriorityMedium, "p1", nil)

	if _, ok := m2.Task("t1"); ok {
		t.Fatal("second instance saw the task before reload")
	}
	if err := m2.Reload(); err != nil {
		t.Fatalf("Reload: %v", err)
	}
	if _, ok := m2.Task("t1"); !ok {
		t.Fatal("second instance did not observe the foreign write after reload")
	}
}

func TestLoad_AssigneeHeuristic(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tasks.json")

	m1, err := NewManager(NewStore(path), testLogger(), nil)
	if err != nil {
		t.Fatal(err)
	}
	m1.CreateTask("t1", "agent work", "", "", PriorityMedium, "x", nil)
	m1.CreateTask("t2", "manager work", "", "", PriorityMedium, "x", nil)
	m1.AssignTaskToAgent("t1", "agent-writer", "")
	m1.AssignTaskToManager("t2", "content-manager")

	m2, err := NewManager(NewStore(path), testLogger(), nil)
	if err != nil {
		t.Fatal(err)
	}
	if got := m2.AgentTasks("agent-writer", ""); len(got) != 1 {
		t.Errorf("agent bucket after load = %d, want 1", len(got))
	}
	if got := m2.ManagerTasks("content-manager", ""); len(got) != 1 {
		t.Errorf("manager bucket after load = %d, want 1", len(got))
	}
	if got := m2.AgentTasks("content-manager", ""); len(got) != 0 {
		t.Errorf("manager-named assignee leaked into agent bucket")
	}
}

func TestManager_PublishesActivityEvents(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "tasks.json"))
	bus := events.NewInMemoryBus()
	m, err := NewManager(store, testLogger(), bus)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	t.Cleanup(func() { m.Close() })

	var seen []events.Type
	bus.Subscribe(events.TypeAll, func(_ context.Context, ev *events.Event) error {
		seen = append(seen, ev.Type)
		return nil
	})

	m.CreateTask("t1", "work", "", "ops", PriorityMedium, "ceo", nil)
	m.AssignTaskToAgent("t1", "agent-1", "manager-ops")
	m.UpdateStatus("t1", StatusInProgress, "agent-1", "work started")
	m.UpdateStatus("t1", StatusUnderReview, "agent-1", "ready for review")

	want := []events.Type{
		events.TypeTaskCreated,
		events.TypeTaskAssigned,
		events.TypeStatusChanged, // in_progress: no verification step
		events.TypeStatusChanged,
		events.TypeVerificationStep, // under_review is a checkpoint
	}
	if len(seen) != len(want) {
		t.Fatalf("events = %v, want %v", seen, want)
	}
	for i := range want {
		if seen[i] != want[i] {
			t.Errorf("event %d = %q, want %q", i, seen[i], want[i])
		}
	}
}

func TestUpdateStatus_VerificationStepFanOut(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "tasks.json"))
	bus := events.NewInMemoryBus()
	m, err := NewManager(store, testLogger(), bus)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	t.Cleanup(func() { m.Close() })

	verifications := make(map[Status]int)
	bus.Subscribe(events.TypeVerificationStep, func(_ context.Context, ev *events.Event) error {
		verifications[Status(ev.Metadata["status"])]++
		return nil
	})

	m.CreateTask("t1", "work", "", "", PriorityMedium, "ceo", nil)
	for _, status := range []Status{StatusInProgress, StatusUnderReview, StatusCMOReview, StatusCompleted} {
		if ok, err := m.UpdateStatus("t1", status, "actor", ""); err != nil || !ok {
			t.Fatalf("UpdateStatus(%s) = (%v, %v)", status, ok, err)
		}
	}
	m.CreateTask("t2", "doomed", "", "", PriorityMedium, "ceo", nil)
	if ok, err := m.UpdateStatus("t2", StatusRejected, "actor", ""); err != nil || !ok {
		t.Fatalf("UpdateStatus(rejected) = (%v, %v)", ok, err)
	}

	for _, status := range []Status{StatusUnderReview, StatusCMOReview, StatusCompleted, StatusRejected} {
		if verifications[status] != 1 {
			t.Errorf("verification steps for %q = %d, want 1", status, verifications[status])
		}
	}
	if verifications[StatusInProgress] != 0 || verifications[StatusPending] != 0 {
		t.Errorf("non-checkpoint statuses produced verification steps: %v", verifications)
	}
}

func TestManager_StartsEmptyOnCorruptStore(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tasks.json")
	store := NewStore(path)
	if err := store.Save(sampleSnapshot(1)); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("{corrupt"), 0o644); err != nil {
		t.Fatal(err)
	}

	m, err := NewManager(NewStore(path), testLogger(), nil)
	if err != nil {
		t.Fatalf("NewManager should not fail on corrupt store: %v", err)
	}
	if got := m.AllTasks(); len(got) != 0 {
		t.Errorf("expected empty repository, got %d tasks", len(got))
	}
}
