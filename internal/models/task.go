package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Task is a paid micro-task published by an admin
type Task struct {
	ID                   uint            `gorm:"primaryKey" json:"-"`
	PublicID             uuid.UUID       `gorm:"type:uuid;uniqueIndex" json:"id"`
	Title                string          `gorm:"size:255;not null" json:"title"`
	Description          string          `gorm:"type:text" json:"description"`
	Reward               decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"reward"`
	TaskType             string          `gorm:"size:50" json:"type"`
	DurationMinutes      int             `gorm:"default:0" json:"duration"`
	URL                  string          `gorm:"size:500" json:"url"`
	MaxCompletions       int             `gorm:"not null" json:"max_completions"`
	CurrentCompletions   int             `gorm:"default:0" json:"current_completions"`
	RequiresScreenshot   bool            `gorm:"default:false" json:"requires_screenshot"`
	RequiresQuestion     bool            `gorm:"default:false" json:"requires_question"`
	VerificationQuestion string          `gorm:"type:text" json:"verification_question"`
	IsActive             bool            `gorm:"default:true;index" json:"is_active"`
	CreatedBy            uint            `json:"created_by"`
	CreatedAt            time.Time       `json:"created_at"`
	UpdatedAt            time.Time       `json:"updated_at"`
}

// TableName specifies the table name for Task model
func (Task) TableName() string {
	return "tasks"
}

func (t *Task) BeforeCreate(tx *gorm.DB) error {
	if t.PublicID == uuid.Nil {
		t.PublicID = uuid.New()
	}
	return nil
}

// UserTaskStatus is the per-user task state
type UserTaskStatus string

const (
	UserTaskPending   UserTaskStatus = "pending"
	UserTaskCompleted UserTaskStatus = "completed"
	UserTaskApproved  UserTaskStatus = "approved"
	UserTaskRejected  UserTaskStatus = "rejected"
)

// UserTask tracks one user's progress on one task. The (user, task) pair is
// unique; a rejected task may be restarted, which resets the submission.
type UserTask struct {
	ID            uint           `gorm:"primaryKey" json:"id"`
	UserID        uint           `gorm:"not null;uniqueIndex:idx_user_task" json:"user_id"`
	User          *User          `gorm:"foreignKey:UserID" json:"user,omitempty"`
	TaskID        uint           `gorm:"not null;uniqueIndex:idx_user_task" json:"task_id"`
	Task          *Task          `gorm:"foreignKey:TaskID" json:"task,omitempty"`
	Status        UserTaskStatus `gorm:"size:20;default:pending;index" json:"status"`
	ScreenshotURL *string        `gorm:"size:500" json:"screenshot_url,omitempty"`
	Answer        *string        `gorm:"type:text" json:"answer,omitempty"`
	SubmittedAt   *time.Time     `json:"submitted_at,omitempty"`
	ApprovedAt    *time.Time     `json:"approved_at,omitempty"`
	ApprovedBy    *uint          `json:"approved_by,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

// TableName specifies the table name for UserTask model
func (UserTask) TableName() string {
	return "user_tasks"
}
