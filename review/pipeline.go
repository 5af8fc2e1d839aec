// Package review implements the multi-stage review pipeline: worker
// execution, manager screening, executive screening, and the advisory
// human override ledger. Each stage maps its outcome — including stage
// failures — to a recorded status transition, so no invocation ever
// leaves a task in limbo.
package review

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/cadencehq/greenlight/audit"
	"github.com/cadencehq/greenlight/events"
	"github.com/cadencehq/greenlight/task"
)

// Pipeline drives tasks through the review stages against the task
// repository. Stages are invoked by external callers (CLI, API); the
// pipeline has no internal scheduler.
type Pipeline struct {
	tasks     *task.Manager
	worker    Worker
	manager   Reviewer
	executive Reviewer
	ledger    *audit.Ledger // optional
	bus       events.Bus    // optional
	logger    *slog.Logger
}

// NewPipeline wires the pipeline over the repository and the three
// stage capabilities. logger may be nil.
func NewPipeline(tasks *task.Manager, worker Worker, manager, executive Reviewer, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		tasks:     tasks,
		worker:    worker,
		manager:   manager,
		executive: executive,
		logger:    logger,
	}
}

// SetOverrideLedger attaches the human override ledger.
func (p *Pipeline) SetOverrideLedger(l *audit.Ledger) { p.ledger = l }

// SetBus attaches an activity bus for override events.
func (p *Pipeline) SetBus(b events.Bus) { p.bus = b }

// ExecuteTask runs the worker stage: the task moves to in_progress,
// the worker produces output, and the task advances to under_review.
// A worker failure rejects the task outright — the only path that
// skips both review stages. The returned error covers contract
// problems (unknown task) only, never worker failures.
func (p *Pipeline) ExecuteTask(ctx context.Context, taskID, workerName string) error {
	t, ok := p.tasks.Task(taskID)
	if !ok {
		return fmt.Errorf("task %s not found", taskID)
	}

	if _, err := p.tasks.UpdateStatus(taskID, task.StatusInProgress, workerName, "work started"); err != nil {
		return err
	}

	output, err := p.worker.Produce(ctx, t)
	if err != nil {
		p.logger.Warn("worker stage failed",
			slog.String("task_id", taskID),
			slog.String("worker", workerName),
			slog.Any("err", err))
		p.tasks.RecordRejection(taskID, err.Error(), false)
		_, uerr := p.tasks.UpdateStatus(taskID, task.StatusRejected, workerName, "worker failed: "+err.Error())
		return uerr
	}

	p.tasks.SetOutput(taskID, output)
	_, err = p.tasks.UpdateStatus(taskID, task.StatusUnderReview, workerName, "ready for review")
	return err
}

// ManagerReview runs the manager stage over the task's current output.
// Approve advances the task to cmo_review; reject keeps it in
// under_review with the rejection reason attached and the revision
// counter bumped, assigned to the same worker for rework. A reviewer
// failure rejects the task terminally. The verdict describes what was
// recorded; the error covers contract problems only.
func (p *Pipeline) ManagerReview(ctx context.Context, taskID, reviewerName string) (Verdict, error) {
	t, ok := p.tasks.Task(taskID)
	if !ok {
		return Verdict{}, fmt.Errorf("task %s not found", taskID)
	}

	raw, err := p.manager.Review(ctx, Request{Description: t.Description, Output: t.Output})
	if err != nil {
		return p.failStage(taskID, reviewerName, "manager review failed", err)
	}

	verdict := ParseVerdict(raw, false)
	if verdict.Approved {
		p.tasks.RecordApproval(taskID, verdict.Reasoning)
		if _, err := p.tasks.UpdateStatus(taskID, task.StatusCMOReview, reviewerName, "manager approved: "+verdict.Reasoning); err != nil {
			return verdict, err
		}
		return verdict, nil
	}

	// Return to sender: the task stays with its worker in under_review.
	// No new history entry is appended when the status is unchanged.
	p.tasks.RecordRejection(taskID, verdict.Reasoning, true)
	if t.Status != task.StatusUnderReview {
		if _, err := p.tasks.UpdateStatus(taskID, task.StatusUnderReview, reviewerName, "returned for revision: "+verdict.Reasoning); err != nil {
			return verdict, err
		}
	}
	p.logger.Info("manager rejected task for revision",
		slog.String("task_id", taskID),
		slog.String("reviewer", reviewerName),
		slog.String("reason", verdict.Reasoning))
	return verdict, nil
}

// ExecutiveReview runs the final stage over the task's output and the
// manager's approval reasoning. Approve completes the task; reject
// sends it back to under_review for another loop. A reviewer failure
// rejects the task terminally.
func (p *Pipeline) ExecutiveReview(ctx context.Context, taskID, reviewerName string) (Verdict, error) {
	t, ok := p.tasks.Task(taskID)
	if !ok {
		return Verdict{}, fmt.Errorf("task %s not found", taskID)
	}

	raw, err := p.executive.Review(ctx, Request{
		Description:   t.Description,
		Output:        t.Output,
		PriorApproval: t.ApprovalReason,
	})
	if err != nil {
		return p.failStage(taskID, reviewerName, "executive review failed", err)
	}

	verdict := ParseVerdict(raw, true)
	if verdict.Approved {
		p.tasks.RecordApproval(taskID, verdict.Reasoning)
		if _, err := p.tasks.UpdateStatus(taskID, task.StatusCompleted, reviewerName, "executive approved: "+verdict.Reasoning); err != nil {
			return verdict, err
		}
		return verdict, nil
	}

	p.tasks.RecordRejection(taskID, verdict.Reasoning, true)
	if _, err := p.tasks.UpdateStatus(taskID, task.StatusUnderReview, reviewerName, "executive returned for revision: "+verdict.Reasoning); err != nil {
		return verdict, err
	}
	return verdict, nil
}

// RecordOverride writes a human override decision to the audit ledger
// and emits an activity event. It never mutates the task's status; a
// human reopening a task does so explicitly through the repository.
func (p *Pipeline) RecordOverride(ctx context.Context, taskID string, checkpoint audit.Checkpoint, decision audit.Decision, reviewer, comment string) (audit.Override, error) {
	if p.ledger == nil {
		return audit.Override{}, fmt.Errorf("no override ledger configured")
	}
	o, err := p.ledger.Record(ctx, audit.Override{
		TaskID:     taskID,
		Checkpoint: checkpoint,
		Decision:   decision,
		Reviewer:   reviewer,
		Comment:    comment,
	})
	if err != nil {
		return audit.Override{}, err
	}
	if p.bus != nil {
		_ = p.bus.Publish(ctx, &events.Event{
			Type:    events.TypeOverrideRecorded,
			TaskID:  taskID,
			Actor:   reviewer,
			Message: comment,
			Metadata: map[string]string{
				"checkpoint": string(checkpoint),
				"decision":   string(decision),
			},
		})
	}
	return o, nil
}

// Reopen moves a rejected task back to under_review. Rejected tasks are
// revisable: the failure counter keeps the original rejection, and the
// task re-enters the review loop.
func (p *Pipeline) Reopen(taskID, actor, message string) (bool, error) {
	if message == "" {
		message = "reopened by override"
	}
	return p.tasks.UpdateStatus(taskID, task.StatusUnderReview, actor, message)
}

// failStage maps a stage execution error to a terminal rejection, per
// the pipeline guarantee that every stage invocation ends in a recorded
// transition.
func (p *Pipeline) failStage(taskID, actor, msg string, cause error) (Verdict, error) {
	p.logger.Warn(msg,
		slog.String("task_id", taskID),
		slog.String("actor", actor),
		slog.Any("err", cause))
	p.tasks.RecordRejection(taskID, cause.Error(), false)
	if _, err := p.tasks.UpdateStatus(taskID, task.StatusRejected, actor, msg+": "+cause.Error()); err != nil {
		return Verdict{}, err
	}
	return Verdict{Approved: false, Reasoning: cause.Error()}, nil
}
