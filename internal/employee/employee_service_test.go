package employee_test

import (
	"context"
	"database/sql"
	"encoding/json"
	"testing"
	"time"

	"go-leave/internal/employee"
	employeeerrors "go-leave/internal/employee/errors"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-redis/redismock/v9"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

type fakeRepository struct {
	withTxFn         func(tx *sql.Tx) employee.Repository
	createFn         func(ctx context.Context, e *employee.Employee) error
	findAllFn        func(ctx context.Context) ([]employee.Employee, error)
	findByIDFn       func(ctx context.Context, id string) (*employee.Employee, error)
	findByEmailFn    func(ctx context.Context, email string) (*employee.Employee, error)
	updateFn         func(ctx context.Context, e *employee.Employee) error
	deleteFn         func(ctx context.Context, id string) error
	hasAnyWithRoleFn func(ctx context.Context, role string) (bool, error)
}

func (f *fakeRepository) WithTx(tx *sql.Tx) employee.Repository {
	if f.withTxFn != nil {
		return f.withTxFn(tx)
	}
	return f
}

func (f *fakeRepository) Create(ctx context.Context, e *employee.Employee) error {
	if f.createFn != nil {
		return f.createFn(ctx, e)
	}
	return nil
}

func (f *fakeRepository) FindAll(ctx context.Context) ([]employee.Employee, error) {
	if f.findAllFn != nil {
		return f.findAllFn(ctx)
	}
	return nil, nil
}

func (f *fakeRepository) FindByID(ctx context.Context, id string) (*employee.Employee, error) {
	if f.findByIDFn != nil {
		return f.findByIDFn(ctx, id)
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeRepository) FindByEmail(ctx context.Context, email string) (*employee.Employee, error) {
	if f.findByEmailFn != nil {
		return f.findByEmailFn(ctx, email)
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeRepository) Update(ctx context.Context, e *employee.Employee) error {
	if f.updateFn != nil {
		return f.updateFn(ctx, e)
	}
	return nil
}

func (f *fakeRepository) Delete(ctx context.Context, id string) error {
	if f.deleteFn != nil {
		return f.deleteFn(ctx, id)
	}
	return nil
}

func (f *fakeRepository) HasAnyWithRole(ctx context.Context, role string) (bool, error) {
	if f.hasAnyWithRoleFn != nil {
		return f.hasAnyWithRoleFn(ctx, role)
	}
	return false, nil
}

type employeeServiceDeps struct {
	db      *sql.DB
	sqlMock sqlmock.Sqlmock
	service employee.Service
	repo    *fakeRepository
}

func setupEmployeeServiceTest(t *testing.T, rdb *redis.Client) *employeeServiceDeps {
	t.Helper()

	db, sqlMock, err := sqlmock.New()
	assert.NoError(t, err)

	repo := &fakeRepository{}
	svc := employee.NewService(db, repo, rdb)

	return &employeeServiceDeps{
		db:      db,
		sqlMock: sqlMock,
		service: svc,
		repo:    repo,
	}
}

func expectTx(t *testing.T, mock sqlmock.Sqlmock, commit bool) {
	t.Helper()
	mock.ExpectBegin()
	if commit {
		mock.ExpectCommit()
	} else {
		mock.ExpectRollback()
	}
}

func TestEmployeeService_Create(t *testing.T) {
	ctx := context.Background()

	req := employee.CreateEmployeeRequest{
		FullName:    "Dewi Lestari",
		Email:       "dewi@example.com",
		Department:  "Engineering",
		JoiningDate: "2024-02-01",
	}

	t.Run("success applies default allocation", func(t *testing.T) {
		deps := setupEmployeeServiceTest(t, nil)
		defer deps.db.Close()

		expectTx(t, deps.sqlMock, true)

		deps.repo.createFn = func(ctx context.Context, e *employee.Employee) error {
			assert.Equal(t, "dewi@example.com", e.Email)
			assert.Equal(t, "EMPLOYEE", e.Role)
			assert.Equal(t, employee.DefaultAllocatedLeaveDays, e.AllocatedLeaveDays)
			assert.True(t, e.IsActive)
			return nil
		}

		resp, err := deps.service.Create(ctx, req)

		assert.NoError(t, err)
		assert.Equal(t, "2024-02-01", resp.JoiningDate)
		assert.Equal(t, employee.DefaultAllocatedLeaveDays, resp.AllocatedLeaveDays)
		assert.NoError(t, deps.sqlMock.ExpectationsWereMet())
	})

	t.Run("negative duplicate email", func(t *testing.T) {
		deps := setupEmployeeServiceTest(t, nil)
		defer deps.db.Close()

		expectTx(t, deps.sqlMock, false)

		deps.repo.createFn = func(ctx context.Context, e *employee.Employee) error {
			return &pgconn.PgError{Code: "23505", ConstraintName: "idx_employees_email"}
		}

		_, err := deps.service.Create(ctx, req)

		assert.ErrorIs(t, err, employeeerrors.ErrEmailTaken)
	})

	t.Run("negative joining date in future", func(t *testing.T) {
		deps := setupEmployeeServiceTest(t, nil)
		defer deps.db.Close()

		expectTx(t, deps.sqlMock, false)

		future := req
		future.JoiningDate = time.Now().UTC().AddDate(1, 0, 0).Format("2006-01-02")

		_, err := deps.service.Create(ctx, future)

		assert.ErrorIs(t, err, employeeerrors.ErrJoiningDateInFuture)
	})
}

func TestEmployeeService_GetByID(t *testing.T) {
	ctx := context.Background()

	t.Run("negative malformed id", func(t *testing.T) {
		deps := setupEmployeeServiceTest(t, nil)
		defer deps.db.Close()

		_, err := deps.service.GetByID(ctx, "not-a-uuid")

		assert.ErrorIs(t, err, employeeerrors.ErrInvalidEmployeeID)
	})

	t.Run("negative not found", func(t *testing.T) {
		deps := setupEmployeeServiceTest(t, nil)
		defer deps.db.Close()

		_, err := deps.service.GetByID(ctx, uuid.New().String())

		assert.ErrorIs(t, err, employeeerrors.ErrEmployeeNotFound)
	})
}

func TestEmployeeService_GetOptions(t *testing.T) {
	ctx := context.Background()

	t.Run("filters inactive employees", func(t *testing.T) {
		deps := setupEmployeeServiceTest(t, nil)
		defer deps.db.Close()

		active := uuid.New()
		deps.repo.findAllFn = func(ctx context.Context) ([]employee.Employee, error) {
			return []employee.Employee{
				{ID: active, FullName: "Active One", IsActive: true},
				{ID: uuid.New(), FullName: "Gone Already", IsActive: false},
			}, nil
		}

		options, err := deps.service.GetOptions(ctx)

		assert.NoError(t, err)
		assert.Len(t, options, 1)
		assert.Equal(t, active.String(), options[0].ID)
	})

	t.Run("cache hit skips the repository", func(t *testing.T) {
		rdb, redisMock := redismock.NewClientMock()
		deps := setupEmployeeServiceTest(t, rdb)
		defer deps.db.Close()

		cached := []employee.EmployeeOption{{ID: uuid.New().String(), FullName: "Cached"}}
		payload, err := json.Marshal(cached)
		assert.NoError(t, err)
		redisMock.ExpectGet(employee.EmployeeOptionsKey).SetVal(string(payload))

		repoHit := false
		deps.repo.findAllFn = func(ctx context.Context) ([]employee.Employee, error) {
			repoHit = true
			return nil, nil
		}

		options, err := deps.service.GetOptions(ctx)

		assert.NoError(t, err)
		assert.False(t, repoHit)
		assert.Equal(t, cached, options)
		assert.NoError(t, redisMock.ExpectationsWereMet())
	})
}

func TestEmployeeService_Update(t *testing.T) {
	ctx := context.Background()
	id := uuid.New()

	t.Run("success", func(t *testing.T) {
		deps := setupEmployeeServiceTest(t, nil)
		defer deps.db.Close()

		expectTx(t, deps.sqlMock, true)

		deps.repo.findByIDFn = func(ctx context.Context, targetID string) (*employee.Employee, error) {
			return &employee.Employee{
				ID:                 id,
				FullName:           "Old Name",
				Email:              "old@example.com",
				Role:               "EMPLOYEE",
				JoiningDate:        time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
				AllocatedLeaveDays: 20,
				IsActive:           true,
			}, nil
		}

		newDays := 25
		deps.repo.updateFn = func(ctx context.Context, e *employee.Employee) error {
			assert.Equal(t, "New Name", e.FullName)
			assert.Equal(t, "MANAGER", e.Role)
			assert.Equal(t, 25, e.AllocatedLeaveDays)
			return nil
		}

		resp, err := deps.service.Update(ctx, id.String(), employee.UpdateEmployeeRequest{
			FullName:           "New Name",
			Role:               "MANAGER",
			AllocatedLeaveDays: &newDays,
		})

		assert.NoError(t, err)
		assert.Equal(t, "MANAGER", resp.Role)
		assert.Equal(t, 25, resp.AllocatedLeaveDays)
		assert.NoError(t, deps.sqlMock.ExpectationsWereMet())
	})
}
