package auth

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"time"

	autherrors "go-leave/internal/auth/errors"
	"go-leave/internal/employee"
	employeeerrors "go-leave/internal/employee/errors"
	"go-leave/internal/rbac"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const (
	accessTokenTTL  = time.Minute * 15
	refreshTokenTTL = time.Hour * 24 * 7
)

//go:generate mockgen -source=auth_service.go -destination=mock/auth_service_mock.go -package=mock
type Service interface {
	Register(ctx context.Context, req RegisterRequest) (AuthResponse, error)

	Login(ctx context.Context, email, password string) (accessToken, refreshToken string, resp AuthResponse, err error)

	RefreshToken(ctx context.Context, refreshToken string) (newAccessToken, newRefreshToken string, resp AuthResponse, err error)

	GetMe(ctx context.Context, userID string) (*AuthResponse, error)
}

type service struct {
	db        *sql.DB
	repo      Repository
	employees employee.Repository
	logger    *zap.Logger
}

func NewService(db *sql.DB, repo Repository, employees employee.Repository, logger ...*zap.Logger) Service {
	l := zap.L().Named("auth.service")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("auth.service")
	}
	return &service{db: db, repo: repo, employees: employees, logger: l}
}

// Register creates the employee record and its credentials in one
// transaction. The very first registrant becomes HR so the fresh system
// has an administrator; everyone after that defaults to EMPLOYEE. The
// record store is the source of truth for "does an HR exist", there is
// no process-wide flag.
func (s *service) Register(ctx context.Context, req RegisterRequest) (AuthResponse, error) {
	s.logger.Debug("register requested", zap.String("email", req.Email))

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return AuthResponse{}, err
	}

	joiningDate := time.Now().UTC()
	joiningDate = time.Date(joiningDate.Year(), joiningDate.Month(), joiningDate.Day(), 0, 0, 0, 0, time.UTC)
	if req.JoiningDate != "" {
		joiningDate, err = employee.ParseJoiningDate(req.JoiningDate)
		if err != nil {
			return AuthResponse{}, err
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		s.logger.Error("register begin tx failed", zap.Error(err))
		return AuthResponse{}, err
	}
	defer tx.Rollback()

	qEmployees := s.employees.WithTx(tx)
	qUsers := s.repo.WithTx(tx)

	hrExists, err := qEmployees.HasAnyWithRole(ctx, rbac.RoleHR)
	if err != nil {
		s.logger.Error("register hr existence check failed", zap.Error(err))
		return AuthResponse{}, err
	}
	role := rbac.RoleEmployee
	if !hrExists {
		role = rbac.RoleHR
	}

	emp := &employee.Employee{
		ID:                 uuid.New(),
		FullName:           req.FullName,
		Email:              req.Email,
		Department:         req.Department,
		Role:               role,
		JoiningDate:        joiningDate,
		AllocatedLeaveDays: employee.DefaultAllocatedLeaveDays,
		IsActive:           true,
	}
	if err := qEmployees.Create(ctx, emp); err != nil {
		s.logger.Warn("register create employee failed", zap.Error(err))
		return AuthResponse{}, mapPersistError(err)
	}

	user := &User{
		ID:         uuid.New(),
		EmployeeID: emp.ID,
		Email:      req.Email,
		Password:   string(hashed),
	}
	if err := qUsers.Create(ctx, user); err != nil {
		s.logger.Warn("register create user failed", zap.Error(err))
		return AuthResponse{}, mapPersistError(err)
	}

	if err := tx.Commit(); err != nil {
		s.logger.Error("register commit failed", zap.Error(err))
		return AuthResponse{}, err
	}

	s.logger.Info("register success",
		zap.String("user_id", user.ID.String()),
		zap.String("employee_id", emp.ID.String()),
		zap.String("role", role),
	)

	return AuthResponse{
		ID:         user.ID.String(),
		EmployeeID: emp.ID.String(),
		Email:      user.Email,
		FullName:   emp.FullName,
		Role:       role,
	}, nil
}

func (s *service) Login(ctx context.Context, email, password string) (string, string, AuthResponse, error) {
	user, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		return "", "", AuthResponse{}, autherrors.ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return "", "", AuthResponse{}, autherrors.ErrInvalidCredentials
	}

	emp, err := s.employees.FindByID(ctx, user.EmployeeID.String())
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", "", AuthResponse{}, employeeerrors.ErrEmployeeNotFound
		}
		return "", "", AuthResponse{}, err
	}

	accessToken, err := s.generateToken(user.ID.String(), emp.ID.String(), emp.Role, accessTokenTTL)
	if err != nil {
		return "", "", AuthResponse{}, autherrors.ErrTokenGenerationFailed
	}
	refreshToken, err := s.generateToken(user.ID.String(), emp.ID.String(), emp.Role, refreshTokenTTL)
	if err != nil {
		return "", "", AuthResponse{}, autherrors.ErrTokenGenerationFailed
	}

	return accessToken, refreshToken, AuthResponse{
		ID:         user.ID.String(),
		EmployeeID: emp.ID.String(),
		Email:      user.Email,
		FullName:   emp.FullName,
		Role:       emp.Role,
	}, nil
}

func (s *service) RefreshToken(ctx context.Context, refreshToken string) (string, string, AuthResponse, error) {
	token, err := jwt.Parse(refreshToken, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, autherrors.ErrInvalidToken
		}
		return []byte(os.Getenv("JWT_SECRET")), nil
	})

	if err != nil || !token.Valid {
		return "", "", AuthResponse{}, autherrors.ErrInvalidRefreshToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", "", AuthResponse{}, autherrors.ErrInvalidToken
	}

	userIDStr, ok := claims["user_id"].(string)
	if !ok {
		return "", "", AuthResponse{}, autherrors.ErrInvalidToken
	}

	userID, err := uuid.Parse(userIDStr)
	if err != nil {
		return "", "", AuthResponse{}, autherrors.ErrInvalidUserID
	}

	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return "", "", AuthResponse{}, autherrors.ErrUserNotFound
	}

	// Role is re-read from the employee record, not trusted from the
	// old token, so a role change takes effect on refresh.
	emp, err := s.employees.FindByID(ctx, user.EmployeeID.String())
	if err != nil {
		return "", "", AuthResponse{}, employeeerrors.ErrEmployeeNotFound
	}

	newAccessToken, err := s.generateToken(user.ID.String(), emp.ID.String(), emp.Role, accessTokenTTL)
	if err != nil {
		return "", "", AuthResponse{}, autherrors.ErrTokenGenerationFailed
	}
	newRefreshToken, err := s.generateToken(user.ID.String(), emp.ID.String(), emp.Role, refreshTokenTTL)
	if err != nil {
		return "", "", AuthResponse{}, autherrors.ErrTokenGenerationFailed
	}

	return newAccessToken, newRefreshToken, AuthResponse{
		ID:         user.ID.String(),
		EmployeeID: emp.ID.String(),
		Email:      user.Email,
		FullName:   emp.FullName,
		Role:       emp.Role,
	}, nil
}

func (s *service) GetMe(ctx context.Context, userID string) (*AuthResponse, error) {
	id, err := uuid.Parse(userID)
	if err != nil {
		return nil, autherrors.ErrInvalidUserID
	}

	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, autherrors.ErrUserNotFound
	}

	emp, err := s.employees.FindByID(ctx, u.EmployeeID.String())
	if err != nil {
		return nil, employeeerrors.ErrEmployeeNotFound
	}

	return &AuthResponse{
		ID:         u.ID.String(),
		EmployeeID: emp.ID.String(),
		Email:      u.Email,
		FullName:   emp.FullName,
		Role:       emp.Role,
	}, nil
}

// reusable token generator
func (s *service) generateToken(userID, employeeID, role string, expiry time.Duration) (string, error) {
	claims := jwt.MapClaims{
		"user_id":     userID,
		"employee_id": employeeID,
		"role":        role,
		"exp":         time.Now().Add(expiry).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(os.Getenv("JWT_SECRET")))
}
