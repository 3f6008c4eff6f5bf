package dto

import (
	"time"

	"github.com/corebank/ledger/pkg/domain/audit"
	"github.com/google/uuid"
)

// AuditEntryRead is the outbound audit snapshot consumed by the reporting
// and compliance collaborators.
type AuditEntryRead struct {
	ID         uuid.UUID
	UserID     *uuid.UUID
	Action     string
	Severity   string
	EntityType string
	EntityID   string
	OldValue   string
	NewValue   string
	Success    bool
	RiskScore  int
	Timestamp  time.Time
}

// NewAuditEntryRead maps an audit entry to its outbound snapshot.
func NewAuditEntryRead(e *audit.Entry) *AuditEntryRead {
	return &AuditEntryRead{
		ID:         e.ID,
		UserID:     e.UserID,
		Action:     string(e.Action),
		Severity:   string(e.Severity),
		EntityType: e.EntityType,
		EntityID:   e.EntityID,
		OldValue:   e.OldValue,
		NewValue:   e.NewValue,
		Success:    e.Success,
		RiskScore:  e.RiskScore,
		Timestamp:  e.Timestamp,
	}
}
