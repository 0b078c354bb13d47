package domain

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrOracleUnavailable marks an oracle call that failed after exhausting
// its retry budget. Callers absorb it locally and degrade the affected
// signal to its neutral value; it is never fatal to a run.
var ErrOracleUnavailable = errors.New("oracle unavailable")

// ErrInvariantViolation marks an internal bug class, e.g. an accepted edge
// set found cyclic after the fact. It aborts the run.
var ErrInvariantViolation = errors.New("invariant violation")

// RunStatus distinguishes clean success from best-effort completion.
type RunStatus string

const (
	// RunRunning: discovery is in progress.
	RunRunning RunStatus = "running"
	// RunSatisfied: validation passed within the iteration budget.
	RunSatisfied RunStatus = "satisfied"
	// RunPartial: the run was cancelled and returned the best graph so far.
	RunPartial RunStatus = "partial"
	// RunDegraded: the iteration budget was exhausted with validation
	// still unsatisfied, or oracle signals were lost along the way.
	RunDegraded RunStatus = "degraded"
	// RunFailed: the run aborted without a usable graph.
	RunFailed RunStatus = "failed"
)

func ValidRunStatus(s string) bool {
	switch RunStatus(s) {
	case RunRunning, RunSatisfied, RunPartial, RunDegraded, RunFailed:
		return true
	}
	return false
}

// DiscoveryResult is the full outcome of one discovery run: the accepted
// DAG with its ledger, the final validation report, and run bookkeeping.
type DiscoveryResult struct {
	Graph      *CausalGraph      `json:"-"`
	Snapshot   *Snapshot         `json:"graph"`
	Validation *ValidationReport `json:"validation"`
	Status     RunStatus         `json:"status"`
	Iterations int               `json:"iterations"`
	Warnings   []string          `json:"warnings,omitempty"`
}

// DiscoveryRun is the persisted form of a run.
type DiscoveryRun struct {
	ID         uuid.UUID         `json:"id"`
	Status     RunStatus         `json:"status"`
	Iterations int               `json:"iterations"`
	Graph      *Snapshot         `json:"graph,omitempty"`
	Validation *ValidationReport `json:"validation,omitempty"`
	Warnings   []string          `json:"warnings,omitempty"`
	CreatedAt  time.Time         `json:"created_at"`
	FinishedAt *time.Time        `json:"finished_at,omitempty"`
}

type RunStore interface {
	Create(ctx context.Context, run *DiscoveryRun) error
	Finish(ctx context.Context, run *DiscoveryRun) error
	GetByID(ctx context.Context, id uuid.UUID) (*DiscoveryRun, error)
	List(ctx context.Context, limit int) ([]DiscoveryRun, error)
}
