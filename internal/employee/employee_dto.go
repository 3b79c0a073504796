package employee

type CreateEmployeeRequest struct {
	FullName           string `json:"full_name" binding:"required"`
	Email              string `json:"email" binding:"required,email"`
	Department         string `json:"department"`
	Role               string `json:"role" binding:"omitempty,oneof=EMPLOYEE MANAGER HR"`
	JoiningDate        string `json:"joining_date" binding:"required"`
	AllocatedLeaveDays *int   `json:"allocated_leave_days" binding:"omitempty,gte=0"`
}

type UpdateEmployeeRequest struct {
	FullName           string `json:"full_name" binding:"required"`
	Department         string `json:"department"`
	Role               string `json:"role" binding:"required,oneof=EMPLOYEE MANAGER HR"`
	AllocatedLeaveDays *int   `json:"allocated_leave_days" binding:"omitempty,gte=0"`
	IsActive           *bool  `json:"is_active"`
}

type EmployeeResponse struct {
	ID                 string `json:"id"`
	FullName           string `json:"full_name"`
	Email              string `json:"email"`
	Department         string `json:"department,omitempty"`
	Role               string `json:"role"`
	JoiningDate        string `json:"joining_date"`
	AllocatedLeaveDays int    `json:"allocated_leave_days"`
	IsActive           bool   `json:"is_active"`
}

type EmployeeOption struct {
	ID       string `json:"id"`
	FullName string `json:"full_name"`
}
