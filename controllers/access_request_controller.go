package controller

import (
	"errors"
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"fifohub/models"
	"fifohub/utils"
)

type AccessRequestController struct {
	DB     *gorm.DB
	Logger *log.Logger
	Hub    *RequestHub
}

func NewAccessRequestController(db *gorm.DB, logger *log.Logger, hub *RequestHub) *AccessRequestController {
	return &AccessRequestController{
		DB:     db,
		Logger: logger,
		Hub:    hub,
	}
}

type CreateAccessRequestRequest struct {
	WorkspaceID string `json:"workspace_id" validate:"required,uuid"`
	JoinCodeID  string `json:"join_code_id" validate:"omitempty,uuid"`
}

// CreateAccessRequest records a join request for the acting user. Someone
// who is already a member is routed straight to PIN entry instead; a
// requester with a pending request is told so. Both checks are UX
// short-circuits. The partial unique index is the real guard, and a
// constraint violation maps to the same "already pending" answer.
func (ac *AccessRequestController) CreateAccessRequest(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	var req CreateAccessRequestRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if err := utils.ValidateStruct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	workspaceID := uuid.MustParse(req.WorkspaceID)

	var workspace models.Workspace
	if err := ac.DB.First(&workspace, "id = ?", workspaceID).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Workspace not found",
		})
	}

	// Already a member: no request row, go sign in at the kiosk
	var membership models.WorkspaceMember
	err := ac.DB.Where("workspace_id = ? AND user_id = ?", workspaceID, user.ID).
		First(&membership).Error
	if err == nil {
		return c.JSON(fiber.Map{
			"already_member": true,
			"member_id":      membership.ID,
		})
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		ac.Logger.Printf("Failed to check membership for %s: %v", user.ID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to create access request",
		})
	}

	var pending models.AccessRequest
	err = ac.DB.Where("workspace_id = ? AND requester_id = ? AND status = ?",
		workspaceID, user.ID, models.RequestStatusPending).First(&pending).Error
	if err == nil {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error": "You already have a pending request for this workspace",
		})
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		ac.Logger.Printf("Failed to check pending request for %s: %v", user.ID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to create access request",
		})
	}

	request := models.AccessRequest{
		WorkspaceID:    workspaceID,
		RequesterID:    user.ID,
		RequesterEmail: user.Email,
		Status:         models.RequestStatusPending,
	}
	if req.JoinCodeID != "" {
		id := uuid.MustParse(req.JoinCodeID)
		request.JoinCodeID = &id
	}

	if err := ac.DB.Create(&request).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			// Raced another submit from the same account
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{
				"error": "You already have a pending request for this workspace",
			})
		}
		ac.Logger.Printf("Failed to create access request for %s: %v", user.ID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to create access request",
		})
	}

	ac.Hub.Broadcast(workspaceID, RequestEvent{Type: "request_created", Request: &request})

	return c.Status(fiber.StatusCreated).JSON(request)
}

// ListAccessRequests returns a workspace's requests, optionally filtered
// by status, newest first. Owner only.
func (ac *AccessRequestController) ListAccessRequests(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	workspaceID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid workspace id",
		})
	}

	workspace := requireWorkspaceOwner(c, ac.DB, workspaceID, user.ID)
	if workspace == nil {
		return nil
	}

	query := ac.DB.Where("workspace_id = ?", workspaceID).Order("created_at DESC")
	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}

	var requests []models.AccessRequest
	if err := query.Find(&requests).Error; err != nil {
		ac.Logger.Printf("Failed to list access requests for %s: %v", workspaceID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to list access requests",
		})
	}

	return c.JSON(fiber.Map{
		"requests": requests,
	})
}

// ApproveAccessRequest resolves a pending request and ensures the
// requester has a membership. The transition is first-writer-wins: a
// request that is no longer pending returns a conflict. Membership
// creation is idempotent; an existing row short-circuits, and approval
// still stands.
func (ac *AccessRequestController) ApproveAccessRequest(c *fiber.Ctx) error {
	return ac.resolveRequest(c, models.RequestStatusApproved)
}

// RejectAccessRequest resolves a pending request with no membership side
// effect.
func (ac *AccessRequestController) RejectAccessRequest(c *fiber.Ctx) error {
	return ac.resolveRequest(c, models.RequestStatusRejected)
}

func (ac *AccessRequestController) resolveRequest(c *fiber.Ctx, status string) error {
	user := c.Locals("user").(*models.User)

	requestID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request id",
		})
	}

	var request models.AccessRequest
	if err := ac.DB.First(&request, "id = ?", requestID).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Access request not found",
		})
	}

	workspace := requireWorkspaceOwner(c, ac.DB, request.WorkspaceID, user.ID)
	if workspace == nil {
		return nil
	}

	now := time.Now()
	result := ac.DB.Model(&models.AccessRequest{}).
		Where("id = ? AND status = ?", requestID, models.RequestStatusPending).
		Updates(map[string]interface{}{
			"status":      status,
			"reviewed_by": user.ID,
			"reviewed_at": now,
		})
	if result.Error != nil {
		ac.Logger.Printf("Failed to resolve request %s: %v", requestID, result.Error)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to update access request",
		})
	}
	if result.RowsAffected == 0 {
		// Another reviewer got here first
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error": "Request has already been resolved",
		})
	}

	request.Status = status
	request.ReviewedBy = &user.ID
	request.ReviewedAt = &now

	if status == models.RequestStatusApproved {
		if err := ac.ensureMembership(&request); err != nil {
			// The request stays approved; surface the failure so the
			// owner can retry membership creation by re-inviting
			ac.Logger.Printf("Request %s approved but membership creation failed: %v", requestID, err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Request approved but adding the member failed",
			})
		}
	}

	ac.Hub.Broadcast(request.WorkspaceID, RequestEvent{Type: "request_resolved", Request: &request})

	return c.JSON(request)
}

func (ac *AccessRequestController) ensureMembership(request *models.AccessRequest) error {
	var existing models.WorkspaceMember
	err := ac.DB.Where("workspace_id = ? AND user_id = ?", request.WorkspaceID, request.RequesterID).
		First(&existing).Error
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	// Default capability set on approval; admins are promoted later
	// through member administration
	membership := models.WorkspaceMember{
		WorkspaceID: request.WorkspaceID,
		UserID:      request.RequesterID,
	}
	membership.ApplyRoleDefaults(models.RoleMember)

	if err := ac.DB.Create(&membership).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil
		}
		return err
	}
	return nil
}
