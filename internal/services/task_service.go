package services

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"nulex/internal/models"
)

// ReviewDecision is an admin's verdict on a submitted task
type ReviewDecision string

const (
	ReviewApprove ReviewDecision = "approve"
	ReviewReject  ReviewDecision = "reject"
)

// TaskService drives the per-user task state machine:
// pending -> completed -> approved|rejected, with rejected restartable.
type TaskService struct {
	db     *gorm.DB
	ledger *LedgerService
}

func NewTaskService(db *gorm.DB, ledger *LedgerService) *TaskService {
	return &TaskService{db: db, ledger: ledger}
}

// TaskInput is the admin-supplied definition of a new task
type TaskInput struct {
	Title                string          `json:"title" binding:"required"`
	Description          string          `json:"description"`
	Reward               decimal.Decimal `json:"reward" binding:"required"`
	TaskType             string          `json:"type"`
	DurationMinutes      int             `json:"duration"`
	URL                  string          `json:"url"`
	MaxCompletions       int             `json:"max_completions" binding:"required"`
	RequiresScreenshot   bool            `json:"requires_screenshot"`
	RequiresQuestion     bool            `json:"requires_question"`
	VerificationQuestion string          `json:"verification_question"`
}

// TaskSubmission is what a user hands in when completing a task
type TaskSubmission struct {
	ScreenshotURL string `json:"screenshot_url"`
	Answer        string `json:"answer"`
}

// CreateTask publishes a new task and logs the admin action
func (s *TaskService) CreateTask(input TaskInput, adminID uint) (*models.Task, error) {
	if input.Reward.Sign() <= 0 || input.MaxCompletions <= 0 {
		return nil, errors.New("reward and max completions must be positive")
	}

	task := models.Task{
		Title:                input.Title,
		Description:          input.Description,
		Reward:               input.Reward,
		TaskType:             input.TaskType,
		DurationMinutes:      input.DurationMinutes,
		URL:                  input.URL,
		MaxCompletions:       input.MaxCompletions,
		RequiresScreenshot:   input.RequiresScreenshot,
		RequiresQuestion:     input.RequiresQuestion,
		VerificationQuestion: input.VerificationQuestion,
		IsActive:             true,
		CreatedBy:            adminID,
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&task).Error; err != nil {
			return err
		}
		return logAdminAction(tx, adminID, "CREATE_TASK", "tasks", task.ID, nil,
			models.JSONB{"title": task.Title, "reward": task.Reward.String()})
	})

	if err != nil {
		return nil, err
	}
	return &task, nil
}

// SetTaskActive toggles a task's visibility and logs the change
func (s *TaskService) SetTaskActive(taskID uuid.UUID, active bool, adminID uint) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		var task models.Task
		if err := tx.First(&task, "public_id = ?", taskID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrTaskNotFound
			}
			return err
		}

		if task.IsActive == active {
			return nil
		}

		if err := tx.Model(&task).Update("is_active", active).Error; err != nil {
			return err
		}

		return logAdminAction(tx, adminID, "UPDATE_TASK", "tasks", task.ID,
			models.JSONB{"is_active": task.IsActive},
			models.JSONB{"is_active": active})
	})
}

// ListActiveTasks returns active tasks, newest first
func (s *TaskService) ListActiveTasks(page, limit int) ([]models.Task, int64, error) {
	query := s.db.Model(&models.Task{}).Where("is_active = ?", true)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var tasks []models.Task
	if err := query.Order("created_at DESC").
		Offset((page - 1) * limit).Limit(limit).
		Find(&tasks).Error; err != nil {
		return nil, 0, err
	}

	return tasks, total, nil
}

// GetTask fetches one active task by its public ID
func (s *TaskService) GetTask(taskID uuid.UUID) (*models.Task, error) {
	var task models.Task
	err := s.db.Where("public_id = ? AND is_active = ?", taskID, true).First(&task).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, err
	}
	return &task, nil
}

// GetUserTasks returns a user's task history, optionally filtered by status
func (s *TaskService) GetUserTasks(userID uint, status models.UserTaskStatus) ([]models.UserTask, error) {
	query := s.db.Where("user_id = ?", userID).Preload("Task")
	if status != "" {
		query = query.Where("status = ?", status)
	}

	var userTasks []models.UserTask
	if err := query.Order("created_at DESC").Find(&userTasks).Error; err != nil {
		return nil, err
	}
	return userTasks, nil
}

// PendingReviews returns submitted tasks awaiting an admin verdict
func (s *TaskService) PendingReviews(page, limit int) ([]models.UserTask, int64, error) {
	query := s.db.Model(&models.UserTask{}).Where("status = ?", models.UserTaskCompleted)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var userTasks []models.UserTask
	if err := query.Preload("Task").Preload("User").
		Order("submitted_at ASC").
		Offset((page - 1) * limit).Limit(limit).
		Find(&userTasks).Error; err != nil {
		return nil, 0, err
	}

	return userTasks, total, nil
}

// StartTask claims a slot-eligible task for a user. Rejected tasks may be
// restarted, which wipes the previous submission. The task row is locked so
// the slot check and the start cannot interleave with submissions.
func (s *TaskService) StartTask(taskID uuid.UUID, userID uint) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		var task models.Task
		err := lockForUpdate(tx).
			Where("public_id = ? AND is_active = ?", taskID, true).
			First(&task).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrTaskNotFound
			}
			return err
		}

		if task.CurrentCompletions >= task.MaxCompletions {
			return ErrTaskFull
		}

		var userTask models.UserTask
		err = tx.Where("user_id = ? AND task_id = ?", userID, task.ID).First(&userTask).Error
		if err != nil {
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}
			userTask = models.UserTask{
				UserID: userID,
				TaskID: task.ID,
				Status: models.UserTaskPending,
			}
			return tx.Create(&userTask).Error
		}

		if userTask.Status != models.UserTaskRejected {
			return ErrAlreadyStarted
		}

		// Restart after rejection: back to pending with a clean submission
		return tx.Model(&userTask).Updates(map[string]interface{}{
			"status":         models.UserTaskPending,
			"screenshot_url": nil,
			"answer":         nil,
			"submitted_at":   nil,
			"approved_at":    nil,
			"approved_by":    nil,
		}).Error
	})
}

// SubmitTask hands in a started task. The slot counter is incremented under
// the same task lock as the existence check, so concurrent submissions can
// never oversell maxCompletions.
func (s *TaskService) SubmitTask(taskID uuid.UUID, userID uint, submission TaskSubmission) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		var task models.Task
		err := lockForUpdate(tx).
			Where("public_id = ? AND is_active = ?", taskID, true).
			First(&task).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrTaskNotFound
			}
			return err
		}

		var userTask models.UserTask
		err = tx.Where("user_id = ? AND task_id = ?", userID, task.ID).First(&userTask).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotStarted
			}
			return err
		}

		if userTask.Status != models.UserTaskPending {
			return ErrAlreadySubmitted
		}

		if task.RequiresScreenshot && submission.ScreenshotURL == "" {
			return ErrScreenshotRequired
		}
		if task.RequiresQuestion && submission.Answer == "" {
			return ErrAnswerRequired
		}

		// Re-validated here because slots may have filled since StartTask
		if task.CurrentCompletions >= task.MaxCompletions {
			return ErrTaskFull
		}

		now := time.Now()
		updates := map[string]interface{}{
			"status":       models.UserTaskCompleted,
			"submitted_at": now,
		}
		if submission.ScreenshotURL != "" {
			updates["screenshot_url"] = submission.ScreenshotURL
		}
		if submission.Answer != "" {
			updates["answer"] = submission.Answer
		}

		if err := tx.Model(&userTask).Updates(updates).Error; err != nil {
			return err
		}

		return tx.Model(&task).
			Update("current_completions", task.CurrentCompletions+1).Error
	})
}

// ReviewUserTask applies an admin verdict to a submitted task. Approval
// posts the task reward to the user's task balance; rejection frees the user
// to restart. Either way the verdict lands in the audit log.
func (s *TaskService) ReviewUserTask(userTaskID uint, decision ReviewDecision, adminID uint, notes string) (*models.UserTask, error) {
	if decision != ReviewApprove && decision != ReviewReject {
		return nil, errors.New("decision must be approve or reject")
	}

	var userTask models.UserTask

	err := s.db.Transaction(func(tx *gorm.DB) error {
		err := lockForUpdate(tx).First(&userTask, "id = ?", userTaskID).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotReviewable
			}
			return err
		}

		if userTask.Status != models.UserTaskCompleted {
			return ErrNotReviewable
		}

		oldStatus := userTask.Status
		newStatus := models.UserTaskRejected
		updates := map[string]interface{}{}

		if decision == ReviewApprove {
			var task models.Task
			if err := tx.First(&task, "id = ?", userTask.TaskID).Error; err != nil {
				return err
			}

			_, _, err := s.ledger.PostTransaction(tx, userTask.UserID, models.KindTaskEarning,
				task.Reward, models.BalanceTask, "Task completion reward", models.TransactionCompleted)
			if err != nil {
				return err
			}

			newStatus = models.UserTaskApproved
			now := time.Now()
			updates["approved_at"] = now
			updates["approved_by"] = adminID
		}

		updates["status"] = newStatus
		if err := tx.Model(&userTask).Updates(updates).Error; err != nil {
			return err
		}

		newValues := models.JSONB{"status": string(newStatus)}
		if notes != "" {
			newValues["notes"] = notes
		}

		return logAdminAction(tx, adminID, "REVIEW_TASK", "user_tasks", userTask.ID,
			models.JSONB{"status": string(oldStatus)}, newValues)
	})

	if err != nil {
		return nil, err
	}
	return &userTask, nil
}
