package leave

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ListFilter narrows FindAll/Count; zero values mean "no filter".
type ListFilter struct {
	EmployeeID string
	Status     string
	Limit      int
	Offset     int
}

// Decision carries the terminal-state fields written by a single
// conditional update.
type Decision struct {
	Status        string
	ReviewedBy    uuid.UUID
	ReviewedAt    time.Time
	ReviewComment *string
}

//go:generate mockgen -source=leave_repo.go -destination=mock/leave_repo_mock.go -package=mock
type Repository interface {
	WithTx(tx *sql.Tx) Repository
	Create(ctx context.Context, l *LeaveRequest) error
	FindAll(ctx context.Context, filter ListFilter) ([]LeaveRequest, error)
	Count(ctx context.Context, filter ListFilter) (int64, error)
	FindByID(ctx context.Context, id string) (*LeaveRequest, error)
	DecideIfPending(ctx context.Context, id string, d Decision) (bool, error)
	DeleteIfPending(ctx context.Context, id string) (bool, error)
	HasOverlappingPeriod(ctx context.Context, employeeID string, startDate, endDate time.Time, excludeID *string) (bool, error)
	SumApprovedWorkingDays(ctx context.Context, employeeID string, year int) (int, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

// WithTx returns a repository whose statements execute on tx, so a
// caller can commit or roll back several repository writes as one unit.
func (r *repository) WithTx(tx *sql.Tx) Repository {
	db := r.db.Session(&gorm.Session{NewDB: true})
	db.Statement.ConnPool = tx
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, l *LeaveRequest) error {
	return r.db.WithContext(ctx).Create(l).Error
}

func (r *repository) scopedQuery(ctx context.Context, filter ListFilter) *gorm.DB {
	db := r.db.WithContext(ctx).Model(&LeaveRequest{})
	if filter.EmployeeID != "" {
		db = db.Where("employee_id = ?", filter.EmployeeID)
	}
	if filter.Status != "" {
		db = db.Where("status = ?", filter.Status)
	}
	return db
}

func (r *repository) FindAll(ctx context.Context, filter ListFilter) ([]LeaveRequest, error) {
	var requests []LeaveRequest
	db := r.scopedQuery(ctx, filter).Order("start_date DESC")
	if filter.Limit > 0 {
		db = db.Limit(filter.Limit).Offset(filter.Offset)
	}
	err := db.Find(&requests).Error
	return requests, err
}

func (r *repository) Count(ctx context.Context, filter ListFilter) (int64, error) {
	var count int64
	err := r.scopedQuery(ctx, filter).Count(&count).Error
	return count, err
}

func (r *repository) FindByID(ctx context.Context, id string) (*LeaveRequest, error) {
	var l LeaveRequest
	err := r.db.WithContext(ctx).
		First(&l, "id = ?", id).Error
	return &l, err
}

// DecideIfPending moves a request into a terminal state with a single
// conditional write keyed on the current status. When two decisions
// race, the loser's update matches zero rows instead of clobbering the
// winner or double-charging the balance.
func (r *repository) DecideIfPending(ctx context.Context, id string, d Decision) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&LeaveRequest{}).
		Where("id = ?", id).
		Where("status = ?", StatusPending).
		Updates(map[string]any{
			"status":         d.Status,
			"reviewed_by":    d.ReviewedBy,
			"reviewed_at":    d.ReviewedAt,
			"review_comment": d.ReviewComment,
			"updated_at":     time.Now().UTC(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// DeleteIfPending withdraws a request; the status condition keeps a
// racing approval from being silently erased.
func (r *repository) DeleteIfPending(ctx context.Context, id string) (bool, error) {
	res := r.db.WithContext(ctx).
		Where("status = ?", StatusPending).
		Delete(&LeaveRequest{}, "id = ?", id)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// HasOverlappingPeriod reports whether any pending or approved request
// for the employee intersects [startDate, endDate]. Boundaries count:
// two ranges sharing a single day overlap. Rejected requests never
// conflict.
func (r *repository) HasOverlappingPeriod(ctx context.Context, employeeID string, startDate, endDate time.Time, excludeID *string) (bool, error) {
	db := r.db.WithContext(ctx).
		Model(&LeaveRequest{}).
		Where("employee_id = ?", employeeID).
		Where("status IN ?", []string{StatusPending, StatusApproved}).
		Where("NOT (end_date < ? OR start_date > ?)", startDate, endDate)

	if excludeID != nil && *excludeID != "" {
		db = db.Where("id <> ?", *excludeID)
	}

	var count int64
	err := db.Count(&count).Error
	return count > 0, err
}

// SumApprovedWorkingDays aggregates the chargeable days of approved
// requests whose start date falls inside the given calendar year. The
// balance is always re-derived from this aggregate, never stored as a
// running counter.
func (r *repository) SumApprovedWorkingDays(ctx context.Context, employeeID string, year int) (int, error) {
	yearStart := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	yearEnd := yearStart.AddDate(1, 0, 0)

	var total int
	err := r.db.WithContext(ctx).
		Model(&LeaveRequest{}).
		Select("COALESCE(SUM(working_days), 0)").
		Where("employee_id = ?", employeeID).
		Where("status = ?", StatusApproved).
		Where("start_date >= ? AND start_date < ?", yearStart, yearEnd).
		Scan(&total).Error
	return total, err
}
