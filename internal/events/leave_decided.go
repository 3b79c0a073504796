package events

import "time"

const LeaveDecidedTopic = "hr.leave.decisions.v1"

const (
	EventLeaveApproved = "leave.approved"
	EventLeaveRejected = "leave.rejected"
)

type LeaveDecidedEvent struct {
	EventType   string    `json:"event_type"`
	LeaveID     string    `json:"leave_id"`
	EmployeeID  string    `json:"employee_id"`
	Status      string    `json:"status"`
	WorkingDays int       `json:"working_days"`
	StartDate   string    `json:"start_date"`
	EndDate     string    `json:"end_date"`
	DecidedBy   string    `json:"decided_by"`
	OccurredAt  time.Time `json:"occurred_at"`
}
