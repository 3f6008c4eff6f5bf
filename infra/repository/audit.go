package repository

import (
	"context"
	"time"

	"github.com/corebank/ledger/pkg/domain/audit"
	"github.com/corebank/ledger/pkg/repository"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type auditRepository struct {
	db *gorm.DB
}

// NewAuditRepository creates an audit repository bound to the given session.
func NewAuditRepository(db *gorm.DB) repository.AuditRepository {
	return &auditRepository{db: db}
}

func (r *auditRepository) Create(ctx context.Context, e *audit.Entry) error {
	row := mapAuditDomainToRow(e)
	return WrapError(func() error {
		return r.db.WithContext(ctx).Create(&row).Error
	})
}

func (r *auditRepository) ByUser(ctx context.Context, userID uuid.UUID) ([]*audit.Entry, error) {
	return r.list(ctx, "user_id = ?", userID)
}

func (r *auditRepository) ByAction(ctx context.Context, action audit.Action) ([]*audit.Entry, error) {
	return r.list(ctx, "action = ?", string(action))
}

func (r *auditRepository) ByEntity(ctx context.Context, entityType, entityID string) ([]*audit.Entry, error) {
	return r.list(ctx, "entity_type = ? AND entity_id = ?", entityType, entityID)
}

func (r *auditRepository) BySeverity(ctx context.Context, severity audit.Severity) ([]*audit.Entry, error) {
	return r.list(ctx, "severity = ?", string(severity))
}

func (r *auditRepository) ByDateRange(ctx context.Context, from, to time.Time) ([]*audit.Entry, error) {
	return r.list(ctx, "timestamp BETWEEN ? AND ?", from, to)
}

func (r *auditRepository) ByRiskThreshold(ctx context.Context, minScore int) ([]*audit.Entry, error) {
	return r.list(ctx, "risk_score >= ?", minScore)
}

func (r *auditRepository) CountFailuresByUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&AuditEntry{}).
		Where("user_id = ? AND success = ?", userID, false).
		Count(&count).Error
	return count, MapGormErrorToDomain(err)
}

// list runs a filtered query, newest first.
func (r *auditRepository) list(ctx context.Context, query string, args ...any) ([]*audit.Entry, error) {
	var rows []AuditEntry
	if err := r.db.WithContext(ctx).
		Where(query, args...).
		Order("timestamp DESC").
		Find(&rows).Error; err != nil {
		return nil, MapGormErrorToDomain(err)
	}
	result := make([]*audit.Entry, 0, len(rows))
	for i := range rows {
		result = append(result, mapAuditRowToDomain(&rows[i]))
	}
	return result, nil
}

func mapAuditDomainToRow(e *audit.Entry) AuditEntry {
	return AuditEntry{
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

func mapAuditRowToDomain(row *AuditEntry) *audit.Entry {
	return &audit.Entry{
		ID:         row.ID,
		UserID:     row.UserID,
		Action:     audit.Action(row.Action),
		Severity:   audit.Severity(row.Severity),
		EntityType: row.EntityType,
		EntityID:   row.EntityID,
		OldValue:   row.OldValue,
		NewValue:   row.NewValue,
		Success:    row.Success,
		RiskScore:  row.RiskScore,
		Timestamp:  row.Timestamp,
	}
}
