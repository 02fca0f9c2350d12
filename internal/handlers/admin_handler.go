package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"nulex/internal/auth"
	"nulex/internal/models"
	"nulex/internal/services"
)

type AdminHandler struct {
	db                *gorm.DB
	adminService      *services.AdminService
	taskService       *services.TaskService
	withdrawalService *services.WithdrawalService
	settingsService   *services.SettingsService
}

func NewAdminHandler(db *gorm.DB, adminService *services.AdminService, taskService *services.TaskService,
	withdrawalService *services.WithdrawalService, settingsService *services.SettingsService) *AdminHandler {
	return &AdminHandler{
		db:                db,
		adminService:      adminService,
		taskService:       taskService,
		withdrawalService: withdrawalService,
		settingsService:   settingsService,
	}
}

// AdminMiddleware checks if user is admin
func (h *AdminHandler) AdminMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, exists := auth.GetUserID(c)
		if !exists {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			c.Abort()
			return
		}

		if !h.adminService.IsAdmin(userID) {
			c.JSON(http.StatusForbidden, gin.H{"error": "Not an admin"})
			c.Abort()
			return
		}

		c.Set("admin_id", userID)
		c.Next()
	}
}

func adminID(c *gin.Context) uint {
	id, _ := c.Get("admin_id")
	adminID, _ := id.(uint)
	return adminID
}

// GetDashboard returns platform counters for the admin overview
func (h *AdminHandler) GetDashboard(c *gin.Context) {
	var totalUsers, activeTasks, pendingReviews, pendingWithdrawals int64

	h.db.Model(&models.User{}).Count(&totalUsers)
	h.db.Model(&models.Task{}).Where("is_active = ?", true).Count(&activeTasks)
	h.db.Model(&models.UserTask{}).Where("status = ?", models.UserTaskCompleted).Count(&pendingReviews)
	h.db.Model(&models.Withdrawal{}).Where("status = ?", models.WithdrawalPending).Count(&pendingWithdrawals)

	var recentLogs []models.AdminLog
	h.db.Order("created_at DESC").Limit(10).Find(&recentLogs)

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"total_users":         totalUsers,
			"active_tasks":        activeTasks,
			"pending_reviews":     pendingReviews,
			"pending_withdrawals": pendingWithdrawals,
			"recent_activity":     recentLogs,
		},
	})
}

// GetUsers lists users with optional search
func (h *AdminHandler) GetUsers(c *gin.Context) {
	page, limit := pagination(c)

	users, total, err := h.adminService.GetUsers(c.Query("search"), page, limit)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    users,
		"total":   total,
		"page":    page,
	})
}

// SetUserBlocked blocks or unblocks a user
func (h *AdminHandler) SetUserBlocked(c *gin.Context) {
	userID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user id"})
		return
	}

	var req struct {
		Blocked *bool `json:"blocked" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.adminService.SetUserBlocked(uint(userID), *req.Blocked, adminID(c)); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "User updated",
	})
}

// CreateTask publishes a new task
func (h *AdminHandler) CreateTask(c *gin.Context) {
	var input services.TaskInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	task, err := h.taskService.CreateTask(input, adminID(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"data":    task,
	})
}

// SetTaskActive toggles a task's visibility
func (h *AdminHandler) SetTaskActive(c *gin.Context) {
	taskID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid task id"})
		return
	}

	var req struct {
		Active *bool `json:"active" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.taskService.SetTaskActive(taskID, *req.Active, adminID(c)); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Task updated",
	})
}

// GetPendingReviews lists submissions awaiting a verdict
func (h *AdminHandler) GetPendingReviews(c *gin.Context) {
	page, limit := pagination(c)

	userTasks, total, err := h.taskService.PendingReviews(page, limit)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    userTasks,
		"total":   total,
		"page":    page,
	})
}

// ReviewTask approves or rejects a submitted task
func (h *AdminHandler) ReviewTask(c *gin.Context) {
	userTaskID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid submission id"})
		return
	}

	var req struct {
		Decision services.ReviewDecision `json:"decision" binding:"required"`
		Notes    string                  `json:"notes"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userTask, err := h.taskService.ReviewUserTask(uint(userTaskID), req.Decision, adminID(c), req.Notes)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    userTask,
	})
}

// GetWithdrawals lists withdrawal requests, optionally filtered by status
func (h *AdminHandler) GetWithdrawals(c *gin.Context) {
	page, limit := pagination(c)
	status := models.WithdrawalStatus(c.Query("status"))

	withdrawals, total, err := h.withdrawalService.ListWithdrawals(status, page, limit)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    withdrawals,
		"total":   total,
		"page":    page,
	})
}

// UpdateWithdrawalStatus approves or rejects a pending withdrawal
func (h *AdminHandler) UpdateWithdrawalStatus(c *gin.Context) {
	withdrawalID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid withdrawal id"})
		return
	}

	var req struct {
		Status models.WithdrawalStatus `json:"status" binding:"required"`
		Notes  string                  `json:"notes"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	withdrawal, err := h.withdrawalService.UpdateStatus(withdrawalID, req.Status, adminID(c), req.Notes)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    withdrawal,
	})
}

// SettleWithdrawal pays out an approved withdrawal through the processor
func (h *AdminHandler) SettleWithdrawal(c *gin.Context) {
	withdrawalID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid withdrawal id"})
		return
	}

	var req struct {
		BankCode string `json:"bank_code" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	withdrawal, err := h.withdrawalService.Settle(c.Request.Context(), withdrawalID, req.BankCode, adminID(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    withdrawal,
	})
}

// UpdatePortal opens or closes the withdrawal portal
func (h *AdminHandler) UpdatePortal(c *gin.Context) {
	var req struct {
		IsOpen    *bool      `json:"is_open" binding:"required"`
		OpenUntil *time.Time `json:"open_until"`
		Notes     string     `json:"notes"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	portal, err := h.withdrawalService.UpdatePortal(*req.IsOpen, req.OpenUntil, req.Notes, adminID(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    portal,
	})
}

// GetSettings lists all system settings
func (h *AdminHandler) GetSettings(c *gin.Context) {
	settings, err := h.settingsService.GetAll()
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    settings,
	})
}

// UpdateSetting upserts one settings row
func (h *AdminHandler) UpdateSetting(c *gin.Context) {
	var req struct {
		Key         string `json:"key" binding:"required"`
		Value       string `json:"value" binding:"required"`
		Description string `json:"description"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	setting, err := h.settingsService.Update(req.Key, req.Value, req.Description, adminID(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    setting,
	})
}

// GetAdminLogs returns the audit trail
func (h *AdminHandler) GetAdminLogs(c *gin.Context) {
	page, limit := pagination(c)

	logs, total, err := h.adminService.GetAdminLogs(page, limit)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    logs,
		"total":   total,
		"page":    page,
	})
}
