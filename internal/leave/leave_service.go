package leave

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"go-leave/internal/employee"
	employeeerrors "go-leave/internal/employee/errors"
	"go-leave/internal/events"
	leaveerrors "go-leave/internal/leave/errors"
	"go-leave/internal/messaging/kafka"
	"go-leave/internal/rbac"
	"go-leave/internal/shared/apperror"
	"go-leave/internal/shared/contextutil"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	StatusPending  = "PENDING"
	StatusApproved = "APPROVED"
	StatusRejected = "REJECTED"
)

const minReviewCommentLen = 10

//go:generate mockgen -source=leave_service.go -destination=mock/leave_service_mock.go -package=mock
type Service interface {
	Apply(ctx context.Context, actorID string, req ApplyLeaveRequest) (LeaveResponse, error)
	GetAll(ctx context.Context, actorID, role string, q ListQuery) ([]LeaveResponse, int64, error)
	GetByID(ctx context.Context, actorID, role, id string) (LeaveResponse, error)
	Approve(ctx context.Context, actorID, id, reviewComment string) (LeaveResponse, error)
	Reject(ctx context.Context, actorID, id, reviewComment string) (LeaveResponse, error)
	Withdraw(ctx context.Context, actorID, role, id string) error
	Balance(ctx context.Context, actorID, role, employeeID string, year int) (BalanceResponse, error)
}

type service struct {
	db        *sql.DB
	repo      Repository
	employees employee.Repository
	outbox    kafka.OutboxRepository
	logger    *zap.Logger
}

func NewService(db *sql.DB, repo Repository, employees employee.Repository, logger ...*zap.Logger) Service {
	return NewServiceWithOutbox(db, repo, employees, nil, logger...)
}

func NewServiceWithOutbox(
	db *sql.DB,
	repo Repository,
	employees employee.Repository,
	outboxRepo kafka.OutboxRepository,
	logger ...*zap.Logger,
) Service {
	l := zap.L().Named("leave.service")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("leave.service")
	}
	return &service{
		db:        db,
		repo:      repo,
		employees: employees,
		outbox:    outboxRepo,
		logger:    l,
	}
}

// Apply validates and persists a new pending request. Guards run in
// order and the first failure aborts with nothing written: date format,
// end >= start, start >= today, start >= joining date, at least one
// working day, no overlap, enough balance in the start date's year.
func (s *service) Apply(ctx context.Context, actorID string, req ApplyLeaveRequest) (LeaveResponse, error) {
	s.logger.Debug("apply leave requested",
		zap.String("request_id", contextutil.GetRequestID(ctx)),
		zap.String("actor_id", actorID),
		zap.String("start_date", req.StartDate),
		zap.String("end_date", req.EndDate),
	)

	actorUUID, err := uuid.Parse(actorID)
	if err != nil {
		return LeaveResponse{}, leaveerrors.ErrInvalidActorID
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		s.logger.Error("apply leave begin tx failed", zap.Error(err))
		return LeaveResponse{}, err
	}
	defer tx.Rollback()

	qtx := s.repo.WithTx(tx)

	emp, err := s.employees.FindByID(ctx, actorID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return LeaveResponse{}, employeeerrors.ErrEmployeeNotFound
		}
		return LeaveResponse{}, err
	}

	startDate, err := parseDate(req.StartDate)
	if err != nil {
		return LeaveResponse{}, err
	}
	endDate, err := parseDate(req.EndDate)
	if err != nil {
		return LeaveResponse{}, err
	}
	if startDate.After(endDate) {
		return LeaveResponse{}, leaveerrors.ErrInvalidDateRange
	}

	// Compared at day granularity: a request starting today is valid.
	if startDate.Before(todayUTC()) {
		return LeaveResponse{}, leaveerrors.ErrStartDateInPast
	}
	if startDate.Before(dateOnly(emp.JoiningDate)) {
		return LeaveResponse{}, leaveerrors.ErrStartBeforeJoining
	}

	workingDays := CountWorkingDays(startDate, endDate)
	if workingDays < 1 {
		return LeaveResponse{}, leaveerrors.ErrNoWorkingDays
	}

	overlap, err := qtx.HasOverlappingPeriod(ctx, actorID, startDate, endDate, nil)
	if err != nil {
		s.logger.Error("apply leave overlap check failed", zap.Error(err))
		return LeaveResponse{}, err
	}
	if overlap {
		s.logger.Warn("apply leave overlap detected",
			zap.String("actor_id", actorID),
			zap.String("start_date", req.StartDate),
			zap.String("end_date", req.EndDate),
		)
		return LeaveResponse{}, leaveerrors.ErrLeaveOverlap
	}

	available, err := s.availableDays(ctx, qtx, emp, startDate.Year())
	if err != nil {
		s.logger.Error("apply leave balance check failed", zap.Error(err))
		return LeaveResponse{}, err
	}
	if workingDays > available {
		s.logger.Warn("apply leave insufficient balance",
			zap.String("actor_id", actorID),
			zap.Int("working_days", workingDays),
			zap.Int("available", available),
		)
		return LeaveResponse{}, leaveerrors.ErrInsufficientBalance
	}

	l := &LeaveRequest{
		ID:          uuid.New(),
		EmployeeID:  actorUUID,
		LeaveType:   req.LeaveType,
		StartDate:   startDate,
		EndDate:     endDate,
		WorkingDays: workingDays,
		Reason:      req.Reason,
		Status:      StatusPending,
	}

	if err := qtx.Create(ctx, l); err != nil {
		s.logger.Error("apply leave persist failed", zap.Error(err))
		return LeaveResponse{}, err
	}

	if err := tx.Commit(); err != nil {
		s.logger.Error("apply leave commit failed", zap.Error(err))
		return LeaveResponse{}, err
	}
	s.logger.Info("apply leave success",
		zap.String("leave_id", l.ID.String()),
		zap.String("employee_id", actorID),
		zap.Int("working_days", workingDays),
	)

	return mapToResponse(*l), nil
}

// GetAll lists requests. Employees only ever see their own records; the
// wider scope for managers and HR comes from the caller's role.
func (s *service) GetAll(ctx context.Context, actorID, role string, q ListQuery) ([]LeaveResponse, int64, error) {
	filter := ListFilter{
		Status:     q.Status,
		EmployeeID: q.EmployeeID,
	}
	if role == rbac.RoleEmployee {
		filter.EmployeeID = actorID
	}

	if q.Page < 1 {
		q.Page = 1
	}
	if q.PageSize < 1 {
		q.PageSize = 10
	}
	filter.Limit = q.PageSize
	filter.Offset = (q.Page - 1) * q.PageSize

	total, err := s.repo.Count(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	requests, err := s.repo.FindAll(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	return mapToListResponse(requests), total, nil
}

func (s *service) GetByID(ctx context.Context, actorID, role, id string) (LeaveResponse, error) {
	if _, err := uuid.Parse(id); err != nil {
		return LeaveResponse{}, leaveerrors.ErrInvalidLeaveID
	}

	l, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return LeaveResponse{}, leaveerrors.ErrLeaveNotFound
		}
		return LeaveResponse{}, err
	}

	if role == rbac.RoleEmployee && l.EmployeeID.String() != actorID {
		return LeaveResponse{}, leaveerrors.ErrNotRequestOwner
	}
	return mapToResponse(*l), nil
}

// Approve moves a pending request to APPROVED. The balance is
// re-checked against the currently approved total for the start date's
// year before the conditional write: approvals granted since this
// request was submitted may have exhausted the allocation.
func (s *service) Approve(ctx context.Context, actorID, id, reviewComment string) (LeaveResponse, error) {
	var comment *string
	if trimmed := strings.TrimSpace(reviewComment); trimmed != "" {
		comment = &trimmed
	}
	return s.decide(ctx, actorID, id, StatusApproved, comment)
}

// Reject moves a pending request to REJECTED. The reason for rejection
// must be recorded.
func (s *service) Reject(ctx context.Context, actorID, id, reviewComment string) (LeaveResponse, error) {
	trimmed := strings.TrimSpace(reviewComment)
	if len(trimmed) < minReviewCommentLen {
		return LeaveResponse{}, leaveerrors.ErrReviewCommentRequired
	}
	return s.decide(ctx, actorID, id, StatusRejected, &trimmed)
}

func (s *service) decide(ctx context.Context, actorID, id, targetStatus string, reviewComment *string) (LeaveResponse, error) {
	s.logger.Debug("decide leave requested",
		zap.String("leave_id", id),
		zap.String("actor_id", actorID),
		zap.String("target_status", targetStatus),
	)

	actorUUID, err := uuid.Parse(actorID)
	if err != nil {
		return LeaveResponse{}, leaveerrors.ErrInvalidActorID
	}
	if _, err := uuid.Parse(id); err != nil {
		return LeaveResponse{}, leaveerrors.ErrInvalidLeaveID
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		s.logger.Error("decide leave begin tx failed", zap.Error(err))
		return LeaveResponse{}, err
	}
	defer tx.Rollback()

	qtx := s.repo.WithTx(tx)

	l, err := qtx.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return LeaveResponse{}, leaveerrors.ErrLeaveNotFound
		}
		return LeaveResponse{}, err
	}
	if l.Status != StatusPending {
		s.logger.Warn("decide leave already decided",
			zap.String("leave_id", id),
			zap.String("status", l.Status),
		)
		return LeaveResponse{}, leaveerrors.AlreadyDecided(l.Status)
	}

	if targetStatus == StatusApproved {
		emp, err := s.employees.FindByID(ctx, l.EmployeeID.String())
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return LeaveResponse{}, employeeerrors.ErrEmployeeNotFound
			}
			return LeaveResponse{}, err
		}

		available, err := s.availableDays(ctx, qtx, emp, l.StartDate.Year())
		if err != nil {
			s.logger.Error("decide leave balance recheck failed", zap.Error(err))
			return LeaveResponse{}, err
		}
		if l.WorkingDays > available {
			s.logger.Warn("decide leave balance exhausted since submission",
				zap.String("leave_id", id),
				zap.Int("working_days", l.WorkingDays),
				zap.Int("available", available),
			)
			return LeaveResponse{}, leaveerrors.ErrInsufficientBalance
		}
	}

	now := time.Now().UTC()
	decided, err := qtx.DecideIfPending(ctx, id, Decision{
		Status:        targetStatus,
		ReviewedBy:    actorUUID,
		ReviewedAt:    now,
		ReviewComment: reviewComment,
	})
	if err != nil {
		s.logger.Error("decide leave persist failed",
			zap.String("leave_id", id),
			zap.String("target_status", targetStatus),
			zap.Error(err),
		)
		return LeaveResponse{}, err
	}
	if !decided {
		// Lost the race: someone else decided between our read and the
		// conditional write. Report the fresh status.
		fresh, err := qtx.FindByID(ctx, id)
		if err != nil {
			return LeaveResponse{}, leaveerrors.AlreadyDecided("decided")
		}
		return LeaveResponse{}, leaveerrors.AlreadyDecided(fresh.Status)
	}

	l.Status = targetStatus
	l.ReviewedBy = &actorUUID
	l.ReviewedAt = &now
	l.ReviewComment = reviewComment

	if err := s.enqueueDecidedEvent(ctx, qtx, tx, l, actorID); err != nil {
		s.logger.Error("decide leave enqueue event failed", zap.Error(err))
		return LeaveResponse{}, err
	}

	if err := tx.Commit(); err != nil {
		s.logger.Error("decide leave commit failed",
			zap.String("leave_id", id),
			zap.Error(err),
		)
		return LeaveResponse{}, err
	}
	s.logger.Info("decide leave success",
		zap.String("leave_id", id),
		zap.String("status", targetStatus),
		zap.String("reviewed_by", actorID),
	)

	return mapToResponse(*l), nil
}

// Withdraw deletes a request while it is still pending. Only the owner
// or HR may withdraw; a decided request stays on record.
func (s *service) Withdraw(ctx context.Context, actorID, role, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return leaveerrors.ErrInvalidLeaveID
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	qtx := s.repo.WithTx(tx)

	l, err := qtx.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return leaveerrors.ErrLeaveNotFound
		}
		return err
	}

	if l.EmployeeID.String() != actorID && role != rbac.RoleHR {
		return leaveerrors.ErrNotRequestOwner
	}
	if l.Status != StatusPending {
		return leaveerrors.CannotWithdraw(l.Status)
	}

	deleted, err := qtx.DeleteIfPending(ctx, id)
	if err != nil {
		return err
	}
	if !deleted {
		fresh, err := qtx.FindByID(ctx, id)
		if err != nil {
			return leaveerrors.CannotWithdraw("decided")
		}
		return leaveerrors.CannotWithdraw(fresh.Status)
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	s.logger.Info("withdraw leave success",
		zap.String("leave_id", id),
		zap.String("actor_id", actorID),
	)
	return nil
}

// Balance derives the employee's position for a calendar year from the
// approved history. Nothing is cached or incrementally maintained, so
// repeated calls without intervening mutations always agree.
func (s *service) Balance(ctx context.Context, actorID, role, employeeID string, year int) (BalanceResponse, error) {
	if employeeID == "" || employeeID == "self" {
		employeeID = actorID
	}
	if employeeID != actorID && role == rbac.RoleEmployee {
		return BalanceResponse{}, apperror.ErrForbidden
	}
	if _, err := uuid.Parse(employeeID); err != nil {
		return BalanceResponse{}, employeeerrors.ErrInvalidEmployeeID
	}

	emp, err := s.employees.FindByID(ctx, employeeID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return BalanceResponse{}, employeeerrors.ErrEmployeeNotFound
		}
		return BalanceResponse{}, err
	}

	if year == 0 {
		year = time.Now().UTC().Year()
	}

	used, err := s.repo.SumApprovedWorkingDays(ctx, employeeID, year)
	if err != nil {
		return BalanceResponse{}, err
	}

	available := emp.AllocatedLeaveDays - used
	if available < 0 {
		available = 0
	}

	return BalanceResponse{
		EmployeeID: employeeID,
		Year:       year,
		Total:      emp.AllocatedLeaveDays,
		Used:       used,
		Available:  available,
		Accrued:    AccruedDays(emp.JoiningDate, time.Now().UTC(), emp.AllocatedLeaveDays),
	}, nil
}

func (s *service) availableDays(ctx context.Context, qtx Repository, emp *employee.Employee, year int) (int, error) {
	used, err := qtx.SumApprovedWorkingDays(ctx, emp.ID.String(), year)
	if err != nil {
		return 0, err
	}

	available := emp.AllocatedLeaveDays - used
	if available < 0 {
		available = 0
	}
	return available, nil
}

func (s *service) enqueueDecidedEvent(ctx context.Context, qtx Repository, tx *sql.Tx, l *LeaveRequest, actorID string) error {
	if s.outbox == nil {
		return nil
	}

	eventType := events.EventLeaveApproved
	if l.Status == StatusRejected {
		eventType = events.EventLeaveRejected
	}

	payload, err := json.Marshal(events.LeaveDecidedEvent{
		EventType:   eventType,
		LeaveID:     l.ID.String(),
		EmployeeID:  l.EmployeeID.String(),
		Status:      l.Status,
		WorkingDays: l.WorkingDays,
		StartDate:   l.StartDate.Format("2006-01-02"),
		EndDate:     l.EndDate.Format("2006-01-02"),
		DecidedBy:   actorID,
		OccurredAt:  time.Now().UTC(),
	})
	if err != nil {
		return err
	}

	return s.outbox.WithTx(tx).Create(ctx, kafka.OutboxEvent{
		ID:            uuid.New().String(),
		RequestID:     contextutil.GetRequestID(ctx),
		AggregateType: "leave_request",
		AggregateID:   l.ID.String(),
		EventType:     eventType,
		Topic:         events.LeaveDecidedTopic,
		Payload:       payload,
		Status:        kafka.OutboxStatusPending,
	})
}

func parseDate(v string) (time.Time, error) {
	t, err := time.Parse("2006-01-02", v)
	if err != nil {
		return time.Time{}, leaveerrors.ErrInvalidDateFormat
	}
	return t, nil
}

func todayUTC() time.Time {
	return dateOnly(time.Now().UTC())
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func mapToResponse(l LeaveRequest) LeaveResponse {
	resp := LeaveResponse{
		ID:          l.ID.String(),
		EmployeeID:  l.EmployeeID.String(),
		LeaveType:   l.LeaveType,
		StartDate:   l.StartDate.Format("2006-01-02"),
		EndDate:     l.EndDate.Format("2006-01-02"),
		WorkingDays: l.WorkingDays,
		Reason:      l.Reason,
		Status:      l.Status,
		CreatedAt:   l.CreatedAt.UTC().Format(time.RFC3339),
	}
	if l.ReviewedBy != nil {
		v := l.ReviewedBy.String()
		resp.ReviewedBy = &v
	}
	if l.ReviewedAt != nil {
		v := l.ReviewedAt.UTC().Format(time.RFC3339)
		resp.ReviewedAt = &v
	}
	resp.ReviewComment = l.ReviewComment
	return resp
}

func mapToListResponse(requests []LeaveRequest) []LeaveResponse {
	resp := make([]LeaveResponse, len(requests))
	for i, l := range requests {
		resp[i] = mapToResponse(l)
	}
	return resp
}
