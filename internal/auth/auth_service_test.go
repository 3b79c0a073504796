package auth_test

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"go-leave/internal/auth"
	autherrors "go-leave/internal/auth/errors"
	"go-leave/internal/employee"
	employeeerrors "go-leave/internal/employee/errors"
	"go-leave/internal/rbac"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type fakeUserRepository struct {
	createFn     func(ctx context.Context, u *auth.User) error
	getByEmailFn func(ctx context.Context, email string) (*auth.User, error)
	getByIDFn    func(ctx context.Context, id uuid.UUID) (*auth.User, error)
}

func (f *fakeUserRepository) WithTx(tx *sql.Tx) auth.Repository { return f }

func (f *fakeUserRepository) Create(ctx context.Context, u *auth.User) error {
	if f.createFn != nil {
		return f.createFn(ctx, u)
	}
	return nil
}

func (f *fakeUserRepository) GetByEmail(ctx context.Context, email string) (*auth.User, error) {
	if f.getByEmailFn != nil {
		return f.getByEmailFn(ctx, email)
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeUserRepository) GetByID(ctx context.Context, id uuid.UUID) (*auth.User, error) {
	if f.getByIDFn != nil {
		return f.getByIDFn(ctx, id)
	}
	return nil, gorm.ErrRecordNotFound
}

type fakeEmployeeRepository struct {
	createFn         func(ctx context.Context, e *employee.Employee) error
	findByIDFn       func(ctx context.Context, id string) (*employee.Employee, error)
	hasAnyWithRoleFn func(ctx context.Context, role string) (bool, error)
}

func (f *fakeEmployeeRepository) WithTx(tx *sql.Tx) employee.Repository { return f }

func (f *fakeEmployeeRepository) Create(ctx context.Context, e *employee.Employee) error {
	if f.createFn != nil {
		return f.createFn(ctx, e)
	}
	return nil
}

func (f *fakeEmployeeRepository) FindAll(ctx context.Context) ([]employee.Employee, error) {
	return nil, nil
}

func (f *fakeEmployeeRepository) FindByID(ctx context.Context, id string) (*employee.Employee, error) {
	if f.findByIDFn != nil {
		return f.findByIDFn(ctx, id)
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeEmployeeRepository) FindByEmail(ctx context.Context, email string) (*employee.Employee, error) {
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeEmployeeRepository) Update(ctx context.Context, e *employee.Employee) error { return nil }
func (f *fakeEmployeeRepository) Delete(ctx context.Context, id string) error            { return nil }

func (f *fakeEmployeeRepository) HasAnyWithRole(ctx context.Context, role string) (bool, error) {
	if f.hasAnyWithRoleFn != nil {
		return f.hasAnyWithRoleFn(ctx, role)
	}
	return false, nil
}

type authServiceDeps struct {
	db        *sql.DB
	sqlMock   sqlmock.Sqlmock
	service   auth.Service
	users     *fakeUserRepository
	employees *fakeEmployeeRepository
}

func setupAuthServiceTest(t *testing.T) *authServiceDeps {
	t.Helper()
	t.Setenv("JWT_SECRET", "test-secret")

	db, sqlMock, err := sqlmock.New()
	assert.NoError(t, err)

	users := &fakeUserRepository{}
	employees := &fakeEmployeeRepository{}
	svc := auth.NewService(db, users, employees)

	return &authServiceDeps{
		db:        db,
		sqlMock:   sqlMock,
		service:   svc,
		users:     users,
		employees: employees,
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

func TestAuthService_Register(t *testing.T) {
	ctx := context.Background()

	req := auth.RegisterRequest{
		FullName: "Rina Kusuma",
		Email:    "rina@example.com",
		Password: "secret123",
	}

	t.Run("first registrant becomes hr", func(t *testing.T) {
		deps := setupAuthServiceTest(t)
		defer deps.db.Close()

		expectTx(t, deps.sqlMock, true)

		deps.employees.hasAnyWithRoleFn = func(ctx context.Context, role string) (bool, error) {
			assert.Equal(t, rbac.RoleHR, role)
			return false, nil
		}
		deps.employees.createFn = func(ctx context.Context, e *employee.Employee) error {
			assert.Equal(t, rbac.RoleHR, e.Role)
			assert.Equal(t, employee.DefaultAllocatedLeaveDays, e.AllocatedLeaveDays)
			assert.True(t, e.IsActive)
			return nil
		}

		resp, err := deps.service.Register(ctx, req)

		assert.NoError(t, err)
		assert.Equal(t, rbac.RoleHR, resp.Role)
		assert.NoError(t, deps.sqlMock.ExpectationsWereMet())
	})

	t.Run("later registrants default to employee", func(t *testing.T) {
		deps := setupAuthServiceTest(t)
		defer deps.db.Close()

		expectTx(t, deps.sqlMock, true)

		deps.employees.hasAnyWithRoleFn = func(ctx context.Context, role string) (bool, error) {
			return true, nil
		}

		resp, err := deps.service.Register(ctx, req)

		assert.NoError(t, err)
		assert.Equal(t, rbac.RoleEmployee, resp.Role)
	})

	t.Run("negative duplicate email", func(t *testing.T) {
		deps := setupAuthServiceTest(t)
		defer deps.db.Close()

		expectTx(t, deps.sqlMock, false)

		deps.employees.createFn = func(ctx context.Context, e *employee.Employee) error {
			return gorm.ErrDuplicatedKey
		}

		_, err := deps.service.Register(ctx, req)

		assert.ErrorIs(t, err, autherrors.ErrEmailAlreadyRegistered)
	})

	t.Run("negative future joining date", func(t *testing.T) {
		deps := setupAuthServiceTest(t)
		defer deps.db.Close()

		futureReq := req
		futureReq.JoiningDate = time.Now().UTC().AddDate(0, 0, 1).Format("2006-01-02")

		_, err := deps.service.Register(ctx, futureReq)

		assert.ErrorIs(t, err, employeeerrors.ErrJoiningDateInFuture)
	})

	t.Run("negative storage failure is not reported as duplicate", func(t *testing.T) {
		deps := setupAuthServiceTest(t)
		defer deps.db.Close()

		expectTx(t, deps.sqlMock, false)

		storageErr := errors.New("connection refused")
		deps.employees.createFn = func(ctx context.Context, e *employee.Employee) error {
			return storageErr
		}

		_, err := deps.service.Register(ctx, req)

		assert.ErrorIs(t, err, storageErr)
		assert.NotErrorIs(t, err, autherrors.ErrEmailAlreadyRegistered)
	})
}

func TestAuthService_Login(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()
	employeeID := uuid.New()

	hashed, err := bcrypt.GenerateFromPassword([]byte("secret123"), bcrypt.MinCost)
	assert.NoError(t, err)

	storedUser := &auth.User{
		ID:         userID,
		EmployeeID: employeeID,
		Email:      "rina@example.com",
		Password:   string(hashed),
	}
	storedEmployee := &employee.Employee{
		ID:                 employeeID,
		FullName:           "Rina Kusuma",
		Email:              "rina@example.com",
		Role:               rbac.RoleManager,
		JoiningDate:        time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		AllocatedLeaveDays: 20,
		IsActive:           true,
	}

	t.Run("success issues token pair with role claim", func(t *testing.T) {
		deps := setupAuthServiceTest(t)
		defer deps.db.Close()

		deps.users.getByEmailFn = func(ctx context.Context, email string) (*auth.User, error) {
			return storedUser, nil
		}
		deps.employees.findByIDFn = func(ctx context.Context, id string) (*employee.Employee, error) {
			return storedEmployee, nil
		}

		access, refresh, resp, err := deps.service.Login(ctx, "rina@example.com", "secret123")

		assert.NoError(t, err)
		assert.NotEmpty(t, access)
		assert.NotEmpty(t, refresh)
		assert.Equal(t, rbac.RoleManager, resp.Role)

		token, err := jwt.Parse(access, func(token *jwt.Token) (interface{}, error) {
			return []byte("test-secret"), nil
		})
		assert.NoError(t, err)
		claims := token.Claims.(jwt.MapClaims)
		assert.Equal(t, userID.String(), claims["user_id"])
		assert.Equal(t, employeeID.String(), claims["employee_id"])
		assert.Equal(t, rbac.RoleManager, claims["role"])
	})

	t.Run("negative wrong password", func(t *testing.T) {
		deps := setupAuthServiceTest(t)
		defer deps.db.Close()

		deps.users.getByEmailFn = func(ctx context.Context, email string) (*auth.User, error) {
			return storedUser, nil
		}

		_, _, _, err := deps.service.Login(ctx, "rina@example.com", "wrong")

		assert.ErrorIs(t, err, autherrors.ErrInvalidCredentials)
	})

	t.Run("negative unknown email", func(t *testing.T) {
		deps := setupAuthServiceTest(t)
		defer deps.db.Close()

		_, _, _, err := deps.service.Login(ctx, "nobody@example.com", "secret123")

		assert.ErrorIs(t, err, autherrors.ErrInvalidCredentials)
	})
}

func TestAuthService_RefreshToken(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()
	employeeID := uuid.New()

	hashed, err := bcrypt.GenerateFromPassword([]byte("secret123"), bcrypt.MinCost)
	assert.NoError(t, err)

	storedUser := &auth.User{
		ID:         userID,
		EmployeeID: employeeID,
		Email:      "rina@example.com",
		Password:   string(hashed),
	}

	t.Run("role change takes effect on refresh", func(t *testing.T) {
		deps := setupAuthServiceTest(t)
		defer deps.db.Close()

		role := rbac.RoleEmployee
		deps.users.getByEmailFn = func(ctx context.Context, email string) (*auth.User, error) {
			return storedUser, nil
		}
		deps.users.getByIDFn = func(ctx context.Context, id uuid.UUID) (*auth.User, error) {
			assert.Equal(t, userID, id)
			return storedUser, nil
		}
		deps.employees.findByIDFn = func(ctx context.Context, id string) (*employee.Employee, error) {
			return &employee.Employee{
				ID:       employeeID,
				FullName: "Rina Kusuma",
				Role:     role,
			}, nil
		}

		_, refresh, _, err := deps.service.Login(ctx, "rina@example.com", "secret123")
		assert.NoError(t, err)

		// Promotion lands after the token was issued.
		role = rbac.RoleHR

		_, _, resp, err := deps.service.RefreshToken(ctx, refresh)

		assert.NoError(t, err)
		assert.Equal(t, rbac.RoleHR, resp.Role)
	})

	t.Run("negative garbage token", func(t *testing.T) {
		deps := setupAuthServiceTest(t)
		defer deps.db.Close()

		_, _, _, err := deps.service.RefreshToken(ctx, "not.a.token")

		assert.ErrorIs(t, err, autherrors.ErrInvalidRefreshToken)
	})
}
