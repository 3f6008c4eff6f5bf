// Package audit defines the immutable AuditEntry written for every security-
// and money-relevant event, and the pure risk-scoring function applied to it.
package audit

import (
	"time"

	"github.com/corebank/ledger/pkg/domain"
	"github.com/google/uuid"
)

// Action is the closed set of domain events the trail records.
type Action string

const (
	ActionAccountOpened        Action = "ACCOUNT_OPENED"
	ActionAccountStatusChanged Action = "ACCOUNT_STATUS_CHANGED"
	ActionAccountClosed        Action = "ACCOUNT_CLOSED"
	ActionDeposit              Action = "DEPOSIT"
	ActionWithdrawal           Action = "WITHDRAWAL"
	ActionTransfer             Action = "TRANSFER"
	ActionPayment              Action = "PAYMENT"
	ActionFee                  Action = "FEE"
	ActionInterest             Action = "INTEREST"
	ActionRefund               Action = "REFUND"
	ActionTransactionFailed    Action = "TRANSACTION_FAILED"
	ActionTransactionCancelled Action = "TRANSACTION_CANCELLED"
	ActionSuspiciousActivity   Action = "SUSPICIOUS_ACTIVITY"
)

// IsValid reports whether a is a known action.
func (a Action) IsValid() bool {
	switch a {
	case ActionAccountOpened, ActionAccountStatusChanged, ActionAccountClosed,
		ActionDeposit, ActionWithdrawal, ActionTransfer, ActionPayment,
		ActionFee, ActionInterest, ActionRefund, ActionTransactionFailed,
		ActionTransactionCancelled, ActionSuspiciousActivity:
		return true
	}
	return false
}

// Severity classifies how much an event matters to compliance. HIGH and
// CRITICAL entries must never be lost: their write failure aborts the
// triggering mutation.
type Severity string

const (
	SeverityLow      Severity = "LOW"
	SeverityMedium   Severity = "MEDIUM"
	SeverityHigh     Severity = "HIGH"
	SeverityCritical Severity = "CRITICAL"
)

// IsValid reports whether s is a known severity.
func (s Severity) IsValid() bool {
	switch s {
	case SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical:
		return true
	}
	return false
}

// MustNotDrop reports whether losing an entry of this severity is acceptable.
func (s Severity) MustNotDrop() bool {
	return s == SeverityHigh || s == SeverityCritical
}

// Entry is one immutable audit record. Created exactly once per event by the
// component performing the mutation; never updated or deleted afterwards.
type Entry struct {
	ID         uuid.UUID
	UserID     *uuid.UUID // nil for system-initiated events
	Action     Action
	Severity   Severity
	EntityType string
	EntityID   string
	OldValue   string
	NewValue   string
	Success    bool
	RiskScore  int
	Timestamp  time.Time
}

// NewEntry builds an audit entry, validating the closed enums and computing
// the risk score from the action, the actor's prior failure count, and the
// severity.
func NewEntry(userID *uuid.UUID, action Action, severity Severity, priorFailures int) (*Entry, error) {
	if !action.IsValid() {
		return nil, domain.NewValidationError("action", "unknown audit action")
	}
	if !severity.IsValid() {
		return nil, domain.NewValidationError("severity", "unknown severity")
	}
	return &Entry{
		ID:        uuid.New(),
		UserID:    userID,
		Action:    action,
		Severity:  severity,
		Success:   true,
		RiskScore: Score(action, priorFailures, severity),
		Timestamp: time.Now(),
	}, nil
}

// WithEntity sets the back-reference to the entity the event concerns.
func (e *Entry) WithEntity(entityType, entityID string) *Entry {
	e.EntityType = entityType
	e.EntityID = entityID
	return e
}

// WithChange records before/after snapshots of the mutated state.
func (e *Entry) WithChange(oldValue, newValue string) *Entry {
	e.OldValue = oldValue
	e.NewValue = newValue
	return e
}

// WithSuccess flags whether the triggering operation succeeded.
func (e *Entry) WithSuccess(ok bool) *Entry {
	e.Success = ok
	return e
}

// severityBase is the risk contribution of each severity level.
var severityBase = map[Severity]int{
	SeverityLow:      5,
	SeverityMedium:   20,
	SeverityHigh:     45,
	SeverityCritical: 70,
}

// actionWeight is the extra risk carried by inherently riskier actions.
var actionWeight = map[Action]int{
	ActionTransactionFailed:  15,
	ActionSuspiciousActivity: 25,
	ActionAccountClosed:      10,
}

// Score computes a risk score in [0, 100] from the action, the number of
// prior failures recorded for the same actor, and the severity. It is a pure
// function: scoring never blocks an operation by itself.
func Score(action Action, priorFailures int, severity Severity) int {
	score := severityBase[severity] + actionWeight[action]
	if priorFailures > 0 {
		score += priorFailures * 5
	}
	if score > 100 {
		score = 100
	}
	if score < 0 {
		score = 0
	}
	return score
}
