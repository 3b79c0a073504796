package employee

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DefaultAllocatedLeaveDays is the flat annual entitlement assigned when
// a record is created without an explicit allocation.
const DefaultAllocatedLeaveDays = 20

type Employee struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	FullName   string    `gorm:"type:varchar(255);not null"`
	Email      string    `gorm:"type:varchar(255);uniqueIndex;not null"`
	Department string    `gorm:"type:varchar(100)"`

	Role               string    `gorm:"type:varchar(20);not null;default:'EMPLOYEE';index:idx_employees_role"`
	JoiningDate        time.Time `gorm:"type:date;not null"`
	AllocatedLeaveDays int       `gorm:"type:int;not null;default:20"`
	IsActive           bool      `gorm:"default:true"`

	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt gorm.DeletedAt `gorm:"index:idx_employees_deleted_at"`
}
