package rbac

import (
	"sync"

	"go-leave/internal/domain"

	"github.com/casbin/casbin/v2"
)

// Role names as stored on the employee record and carried in JWT claims.
const (
	RoleEmployee = "EMPLOYEE"
	RoleManager  = "MANAGER"
	RoleHR       = "HR"
)

//go:generate mockgen -source=rbac_service.go -destination=mock/rbac_service_mock.go -package=mock
type Service interface {
	Enforce(req domain.EnforceRequest) (bool, error)
}

type service struct {
	enforcer *casbin.Enforcer
	mu       sync.Mutex
}

// NewService loads the static role policy into the enforcer.
// Roles are fixed (EMPLOYEE < MANAGER < HR); there is no per-tenant
// policy store. Ownership rules (own requests only, owner-or-HR
// withdrawal) live in the leave service, not here.
func NewService(enforcer *casbin.Enforcer) (Service, error) {
	s := &service{enforcer: enforcer}
	if err := s.loadStaticPolicy(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *service) loadStaticPolicy() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.enforcer.ClearPolicy()

	groupings := [][]string{
		{RoleManager, RoleEmployee},
		{RoleHR, RoleManager},
	}
	for _, g := range groupings {
		if _, err := s.enforcer.AddGroupingPolicy(g[0], g[1]); err != nil {
			return err
		}
	}

	policies := [][]string{
		{RoleEmployee, "leave", "create"},
		{RoleEmployee, "leave", "read"},
		{RoleEmployee, "leave", "withdraw"},
		{RoleEmployee, "balance", "read"},
		{RoleManager, "leave", "decide"},
		{RoleManager, "employee", "read"},
		{RoleHR, "employee", "create"},
		{RoleHR, "employee", "update"},
		{RoleHR, "employee", "delete"},
	}
	for _, p := range policies {
		if _, err := s.enforcer.AddPolicy(p[0], p[1], p[2]); err != nil {
			return err
		}
	}

	return nil
}

func (s *service) Enforce(req domain.EnforceRequest) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.enforcer.Enforce(req.Role, req.Resource, req.Action)
}
