package controller

import (
	"errors"
	"log"
	"sort"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"fifohub/models"
	"fifohub/utils"
)

type MemberController struct {
	DB     *gorm.DB
	Logger *log.Logger
}

func NewMemberController(db *gorm.DB, logger *log.Logger) *MemberController {
	return &MemberController{
		DB:     db,
		Logger: logger,
	}
}

type SetMemberPINRequest struct {
	PINCode string `json:"pin_code"`
}

type InviteMembersRequest struct {
	UserIDs []string `json:"user_ids" validate:"required,min=1,dive,uuid"`
	Role    string   `json:"role" validate:"required,oneof=member admin"`
}

// MemberView is a membership joined with its display profile. A member
// whose profile is missing falls back to the raw user id string.
type MemberView struct {
	models.WorkspaceMember
	DisplayName string  `json:"display_name"`
	Handle      string  `json:"handle"`
	AvatarURL   *string `json:"avatar_url,omitempty"`
	HasPIN      bool    `json:"has_pin"`
}

// ListMembers returns a workspace's memberships with display profiles
// batch-fetched in one query and joined in code.
func (mc *MemberController) ListMembers(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	workspaceID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid workspace id",
		})
	}

	workspace := requireWorkspaceOwner(c, mc.DB, workspaceID, user.ID)
	if workspace == nil {
		return nil
	}

	var members []models.WorkspaceMember
	if err := mc.DB.Where("workspace_id = ?", workspaceID).
		Order("created_at ASC").Find(&members).Error; err != nil {
		mc.Logger.Printf("Failed to list members for %s: %v", workspaceID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to list members",
		})
	}

	userIDs := make([]uuid.UUID, 0, len(members))
	seen := make(map[uuid.UUID]struct{}, len(members))
	for _, m := range members {
		if _, ok := seen[m.UserID]; !ok {
			seen[m.UserID] = struct{}{}
			userIDs = append(userIDs, m.UserID)
		}
	}

	var profiles []models.User
	if len(userIDs) > 0 {
		if err := mc.DB.Where("id IN ?", userIDs).Find(&profiles).Error; err != nil {
			mc.Logger.Printf("Failed to fetch profiles for %s: %v", workspaceID, err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Failed to list members",
			})
		}
	}

	return c.JSON(fiber.Map{
		"members": BuildMemberViews(members, profiles),
	})
}

// SetMemberPIN assigns, rotates or removes a membership's kiosk code.
// An empty code removes the PIN silently; a successful non-empty set
// enqueues a best-effort notification that never fails the operation.
func (mc *MemberController) SetMemberPIN(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	memberID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid member id",
		})
	}

	var req SetMemberPINRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	var member models.WorkspaceMember
	if err := mc.DB.First(&member, "id = ?", memberID).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Member not found",
		})
	}

	workspace := requireWorkspaceOwner(c, mc.DB, member.WorkspaceID, user.ID)
	if workspace == nil {
		return nil
	}

	// Empty code removes the PIN; no notification in that case
	if req.PINCode == "" {
		if err := mc.DB.Model(&member).Update("pin_code", nil).Error; err != nil {
			mc.Logger.Printf("Failed to remove PIN for member %s: %v", memberID, err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Failed to remove PIN",
			})
		}
		return c.SendStatus(fiber.StatusOK)
	}

	if err := utils.ValidatePIN(req.PINCode); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	if err := mc.DB.Model(&member).Update("pin_code", req.PINCode).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			// Distinct people need distinct codes at the same kiosk
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{
				"error": "Another member of this workspace already uses that PIN",
			})
		}
		mc.Logger.Printf("Failed to set PIN for member %s: %v", memberID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to set PIN",
		})
	}

	mc.enqueuePINNotification(&member, workspace)

	return c.SendStatus(fiber.StatusOK)
}

// RemoveMember revokes a membership. The owner's own membership row is
// protected; ownership transfer is a different operation.
func (mc *MemberController) RemoveMember(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	memberID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid member id",
		})
	}

	var member models.WorkspaceMember
	if err := mc.DB.First(&member, "id = ?", memberID).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Member not found",
		})
	}

	workspace := requireWorkspaceOwner(c, mc.DB, member.WorkspaceID, user.ID)
	if workspace == nil {
		return nil
	}

	if member.UserID == workspace.OwnerID {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "The workspace owner cannot be removed",
		})
	}

	if err := mc.DB.Delete(&member).Error; err != nil {
		mc.Logger.Printf("Failed to remove member %s: %v", memberID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to remove member",
		})
	}

	return c.SendStatus(fiber.StatusOK)
}

// InviteCandidates computes who the owner can invite: the union of their
// inbound and outbound accepted connections, minus existing members,
// deduplicated and sorted by handle.
func (mc *MemberController) InviteCandidates(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	workspaceID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid workspace id",
		})
	}

	workspace := requireWorkspaceOwner(c, mc.DB, workspaceID, user.ID)
	if workspace == nil {
		return nil
	}

	var connections []models.Connection
	if err := mc.DB.Where("(from_user_id = ? OR to_user_id = ?) AND status = ?",
		user.ID, user.ID, "accepted").Find(&connections).Error; err != nil {
		mc.Logger.Printf("Failed to fetch connections for %s: %v", user.ID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch invite candidates",
		})
	}

	var members []models.WorkspaceMember
	if err := mc.DB.Where("workspace_id = ?", workspaceID).Find(&members).Error; err != nil {
		mc.Logger.Printf("Failed to fetch members for %s: %v", workspaceID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch invite candidates",
		})
	}

	candidateIDs := CandidatePool(user.ID, connections, members)

	var candidates []models.User
	if len(candidateIDs) > 0 {
		if err := mc.DB.Where("id IN ?", candidateIDs).
			Order("handle ASC").Find(&candidates).Error; err != nil {
			mc.Logger.Printf("Failed to fetch candidate profiles: %v", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Failed to fetch invite candidates",
			})
		}
	}

	return c.JSON(fiber.Map{
		"candidates": candidates,
	})
}

// InviteMembers adds the selected candidates in one transaction with a
// role-derived capability set. A partial failure aborts the whole batch.
func (mc *MemberController) InviteMembers(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	workspaceID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid workspace id",
		})
	}

	var req InviteMembersRequest
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

	workspace := requireWorkspaceOwner(c, mc.DB, workspaceID, user.ID)
	if workspace == nil {
		return nil
	}

	memberships := make([]models.WorkspaceMember, 0, len(req.UserIDs))
	for _, raw := range req.UserIDs {
		m := models.WorkspaceMember{
			WorkspaceID: workspaceID,
			UserID:      uuid.MustParse(raw),
		}
		m.ApplyRoleDefaults(req.Role)
		memberships = append(memberships, m)
	}

	err = mc.DB.Transaction(func(tx *gorm.DB) error {
		return tx.Create(&memberships).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{
				"error": "One or more selected people are already members",
			})
		}
		mc.Logger.Printf("Failed to invite members to %s: %v", workspaceID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to invite members",
		})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"members": memberships,
	})
}

// enqueuePINNotification writes an outbox row for the notifier worker.
// Failures are logged and swallowed: the PIN change already happened.
func (mc *MemberController) enqueuePINNotification(member *models.WorkspaceMember, workspace *models.Workspace) {
	var recipient models.User
	if err := mc.DB.First(&recipient, "id = ?", member.UserID).Error; err != nil {
		mc.Logger.Printf("Skipping PIN notification, no profile for %s: %v", member.UserID, err)
		return
	}

	body, err := utils.RenderEmail("pin_changed", utils.EmailData{
		Subject: "Your kiosk PIN was updated",
		Data: utils.PINChangedEmailData{
			Name:          recipient.DisplayName(),
			WorkspaceName: workspace.Name,
		},
	})
	if err != nil {
		mc.Logger.Printf("Skipping PIN notification, render failed: %v", err)
		return
	}

	notification := models.Notification{
		RecipientID: recipient.ID,
		Kind:        models.NotificationKindPINChanged,
		Subject:     "Your kiosk PIN was updated",
		Body:        body,
		Status:      models.NotificationStatusPending,
	}
	if err := mc.DB.Create(&notification).Error; err != nil {
		mc.Logger.Printf("Failed to enqueue PIN notification for %s: %v", recipient.ID, err)
	}
}

// BuildMemberViews joins memberships with their profiles. Memberships
// whose user has no profile row fall back to the raw user id.
func BuildMemberViews(members []models.WorkspaceMember, profiles []models.User) []MemberView {
	byID := make(map[uuid.UUID]models.User, len(profiles))
	for _, p := range profiles {
		byID[p.ID] = p
	}

	views := make([]MemberView, 0, len(members))
	for _, m := range members {
		view := MemberView{
			WorkspaceMember: m,
			DisplayName:     m.UserID.String(),
			HasPIN:          m.PINCode != nil && *m.PINCode != "",
		}
		// Never ship the code itself in listings
		view.PINCode = nil

		if p, ok := byID[m.UserID]; ok {
			view.DisplayName = p.DisplayName()
			view.Handle = p.Handle
			view.AvatarURL = p.AvatarURL
		}
		views = append(views, view)
	}
	return views
}

// CandidatePool computes invitable user ids from the owner's connections:
// union of both directions, minus the owner, minus existing members,
// deduplicated. Profile ordering happens at query time.
func CandidatePool(ownerID uuid.UUID, connections []models.Connection, members []models.WorkspaceMember) []uuid.UUID {
	existing := make(map[uuid.UUID]struct{}, len(members)+1)
	existing[ownerID] = struct{}{}
	for _, m := range members {
		existing[m.UserID] = struct{}{}
	}

	seen := make(map[uuid.UUID]struct{})
	pool := make([]uuid.UUID, 0, len(connections))
	for _, conn := range connections {
		other := conn.ToUserID
		if conn.ToUserID == ownerID {
			other = conn.FromUserID
		}
		if _, ok := existing[other]; ok {
			continue
		}
		if _, ok := seen[other]; ok {
			continue
		}
		seen[other] = struct{}{}
		pool = append(pool, other)
	}

	sort.Slice(pool, func(i, j int) bool {
		return pool[i].String() < pool[j].String()
	})
	return pool
}
