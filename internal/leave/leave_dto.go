package leave

type ApplyLeaveRequest struct {
	LeaveType string `json:"leave_type" binding:"required,oneof=SICK VACATION PERSONAL EMERGENCY MATERNITY PATERNITY"`
	StartDate string `json:"start_date" binding:"required"`
	EndDate   string `json:"end_date" binding:"required"`
	Reason    string `json:"reason" binding:"required,min=1,max=500"`
}

type ApproveLeaveRequest struct {
	ReviewComment string `json:"review_comment" binding:"omitempty,max=500"`
}

type RejectLeaveRequest struct {
	ReviewComment string `json:"review_comment" binding:"required,min=10,max=500"`
}

type ListQuery struct {
	Status     string
	EmployeeID string
	Page       int
	PageSize   int
}

type LeaveResponse struct {
	ID            string  `json:"id"`
	EmployeeID    string  `json:"employee_id"`
	LeaveType     string  `json:"leave_type"`
	StartDate     string  `json:"start_date"`
	EndDate       string  `json:"end_date"`
	WorkingDays   int     `json:"working_days"`
	Reason        string  `json:"reason"`
	Status        string  `json:"status"`
	ReviewedBy    *string `json:"reviewed_by,omitempty"`
	ReviewedAt    *string `json:"reviewed_at,omitempty"`
	ReviewComment *string `json:"review_comment,omitempty"`
	CreatedAt     string  `json:"created_at"`
}

type BalanceResponse struct {
	EmployeeID string `json:"employee_id"`
	Year       int    `json:"year"`
	Total      int    `json:"total"`
	Used       int    `json:"used"`
	Available  int    `json:"available"`
	// Accrued is the tenure-prorated estimate; informational only.
	Accrued int `json:"accrued"`
}
