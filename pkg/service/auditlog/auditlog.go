// Package auditlog implements the Audit Trail: a durable, queryable,
// append-only record of every security- and money-relevant event. Writes for
// HIGH/CRITICAL events are load-bearing — if the entry cannot be stored, the
// triggering mutation must fail rather than complete un-audited. LOW/MEDIUM
// entries may fall back to a bounded deferred queue instead.
package auditlog

import (
	"context"
	"log/slog"
	"time"

	"github.com/corebank/ledger/pkg/domain"
	"github.com/corebank/ledger/pkg/domain/audit"
	"github.com/corebank/ledger/pkg/dto"
	"github.com/corebank/ledger/pkg/repository"
	"github.com/google/uuid"
)

// Service provides append and query access to the audit trail.
type Service struct {
	uow      repository.UnitOfWork
	logger   *slog.Logger
	deferred chan *audit.Entry
}

// NewService creates an audit trail service. queueSize bounds the deferred
// queue for LOW/MEDIUM entries whose immediate write failed.
func NewService(uow repository.UnitOfWork, logger *slog.Logger, queueSize int) *Service {
	if queueSize <= 0 {
		queueSize = 256
	}
	return &Service{
		uow:      uow,
		logger:   logger,
		deferred: make(chan *audit.Entry, queueSize),
	}
}

// Record appends an entry in its own transaction boundary. Components that
// mutate ledger state call RecordIn instead so the entry commits atomically
// with the mutation.
func (s *Service) Record(ctx context.Context, entry *audit.Entry) error {
	return s.uow.Do(ctx, func(uow repository.UnitOfWork) error {
		return s.RecordIn(ctx, uow, entry)
	})
}

// RecordIn appends an entry using the caller's unit of work. A failed write
// of a HIGH/CRITICAL entry surfaces as AuditWriteFailure so the enclosing
// transaction aborts; LOW/MEDIUM entries are parked on the deferred queue
// and the caller proceeds.
func (s *Service) RecordIn(ctx context.Context, uow repository.UnitOfWork, entry *audit.Entry) error {
	repo, err := uow.AuditRepository()
	if err != nil {
		return &domain.AuditWriteError{Err: err}
	}
	if err := repo.Create(ctx, entry); err != nil {
		if entry.Severity.MustNotDrop() {
			s.logger.Error("audit write failed for high-severity event, aborting trigger",
				"action", entry.Action, "severity", entry.Severity, "error", err)
			return &domain.AuditWriteError{Err: err}
		}
		select {
		case s.deferred <- entry:
			s.logger.Warn("audit write failed, entry deferred",
				"action", entry.Action, "severity", entry.Severity, "error", err)
		default:
			s.logger.Error("audit write failed and deferred queue is full, entry dropped",
				"action", entry.Action, "severity", entry.Severity, "error", err)
		}
	}
	return nil
}

// FlushDeferred retries every queued deferred entry and returns how many were
// written. Entries that fail again go back on the queue.
func (s *Service) FlushDeferred(ctx context.Context) int {
	flushed := 0
	pending := len(s.deferred)
	for i := 0; i < pending; i++ {
		select {
		case entry := <-s.deferred:
			err := s.uow.Do(ctx, func(uow repository.UnitOfWork) error {
				repo, err := uow.AuditRepository()
				if err != nil {
					return err
				}
				return repo.Create(ctx, entry)
			})
			if err != nil {
				select {
				case s.deferred <- entry:
				default:
					s.logger.Error("deferred audit entry dropped on re-queue",
						"action", entry.Action, "error", err)
				}
				continue
			}
			flushed++
		default:
			return flushed
		}
	}
	return flushed
}

// DeferredCount returns the number of entries waiting on the deferred queue.
func (s *Service) DeferredCount() int { return len(s.deferred) }

// PriorFailures returns the number of failed events already recorded for the
// actor, feeding the risk score. A nil actor has no failure history.
func (s *Service) PriorFailures(ctx context.Context, uow repository.UnitOfWork, userID *uuid.UUID) int {
	if userID == nil {
		return 0
	}
	repo, err := uow.AuditRepository()
	if err != nil {
		return 0
	}
	count, err := repo.CountFailuresByUser(ctx, *userID)
	if err != nil {
		s.logger.Warn("prior failure count unavailable, scoring without it",
			"user_id", userID, "error", err)
		return 0
	}
	return int(count)
}

func (s *Service) query(ctx context.Context, fn func(repo repository.AuditRepository) ([]*audit.Entry, error)) ([]*dto.AuditEntryRead, error) {
	var entries []*audit.Entry
	err := s.uow.Do(ctx, func(uow repository.UnitOfWork) error {
		repo, err := uow.AuditRepository()
		if err != nil {
			return err
		}
		entries, err = fn(repo)
		return err
	})
	if err != nil {
		return nil, err
	}
	reads := make([]*dto.AuditEntryRead, 0, len(entries))
	for _, e := range entries {
		reads = append(reads, dto.NewAuditEntryRead(e))
	}
	return reads, nil
}

// ByUser returns the entries recorded for a user, newest first.
func (s *Service) ByUser(ctx context.Context, userID uuid.UUID) ([]*dto.AuditEntryRead, error) {
	return s.query(ctx, func(repo repository.AuditRepository) ([]*audit.Entry, error) {
		return repo.ByUser(ctx, userID)
	})
}

// ByAction returns the entries for a given action, newest first.
func (s *Service) ByAction(ctx context.Context, action audit.Action) ([]*dto.AuditEntryRead, error) {
	return s.query(ctx, func(repo repository.AuditRepository) ([]*audit.Entry, error) {
		return repo.ByAction(ctx, action)
	})
}

// ByEntity returns the entries referencing a given entity, newest first.
func (s *Service) ByEntity(ctx context.Context, entityType, entityID string) ([]*dto.AuditEntryRead, error) {
	return s.query(ctx, func(repo repository.AuditRepository) ([]*audit.Entry, error) {
		return repo.ByEntity(ctx, entityType, entityID)
	})
}

// BySeverity returns the entries at a given severity level, newest first.
func (s *Service) BySeverity(ctx context.Context, severity audit.Severity) ([]*dto.AuditEntryRead, error) {
	return s.query(ctx, func(repo repository.AuditRepository) ([]*audit.Entry, error) {
		return repo.BySeverity(ctx, severity)
	})
}

// ByDateRange returns the entries recorded in [from, to], newest first.
func (s *Service) ByDateRange(ctx context.Context, from, to time.Time) ([]*dto.AuditEntryRead, error) {
	return s.query(ctx, func(repo repository.AuditRepository) ([]*audit.Entry, error) {
		return repo.ByDateRange(ctx, from, to)
	})
}

// ByRiskThreshold returns the entries with riskScore >= minScore, newest
// first. Used by the suspicious-activity reports; never consulted by the
// transaction path to block an operation.
func (s *Service) ByRiskThreshold(ctx context.Context, minScore int) ([]*dto.AuditEntryRead, error) {
	return s.query(ctx, func(repo repository.AuditRepository) ([]*audit.Entry, error) {
		return repo.ByRiskThreshold(ctx, minScore)
	})
}
