package controller

import (
	"errors"
	"log"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"fifohub/config"
	"fifohub/models"
	"fifohub/utils"
)

type KioskController struct {
	DB     *gorm.DB
	Logger *log.Logger
}

func NewKioskController(db *gorm.DB, logger *log.Logger) *KioskController {
	return &KioskController{
		DB:     db,
		Logger: logger,
	}
}

type VerifyPINRequest struct {
	PINCode string `json:"pin_code" validate:"required"`
}

type VerifyPINResponse struct {
	Token   string              `json:"token"`
	Session *utils.KioskSession `json:"session"`
}

// VerifyPIN authenticates whoever is standing at the kiosk against one
// workspace using a short numeric code. An unknown workspace and a wrong
// code get the same generic answer so the endpoint leaks nothing about
// membership existence. Malformed codes are rejected before any store
// access.
func (kc *KioskController) VerifyPIN(c *fiber.Ctx) error {
	workspaceID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid workspace id",
		})
	}

	var req VerifyPINRequest
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

	if err := utils.ValidatePIN(req.PINCode); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	row, err := kc.lookupKioskMember(workspaceID, req.PINCode)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Check your PIN and try again",
		})
	}
	if err != nil {
		kc.Logger.Printf("PIN verification failed for workspace %s: %v", workspaceID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Verification failed",
		})
	}

	displayName := row.MemberName
	if strings.TrimSpace(displayName) == "" {
		displayName = row.Handle
	}

	session := &utils.KioskSession{
		Member: utils.KioskSessionMember{
			ID:          row.ID,
			UserID:      row.UserID,
			Role:        row.Role,
			WorkspaceID: row.WorkspaceID,
		},
		Workspace: utils.KioskSessionWorkspace{
			ID:   row.WorkspaceID,
			Name: row.WorkspaceName,
		},
		Name:      displayName,
		CreatedAt: time.Now().UTC(),
	}

	token, err := utils.GenerateKioskToken(row.ID, row.WorkspaceID, config.AppConfig.KioskSessionTTL)
	if err != nil {
		kc.Logger.Printf("Failed to mint kiosk token: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Verification failed",
		})
	}

	if err := utils.SaveKioskSession(c.Context(), token, session); err != nil {
		kc.Logger.Printf("Failed to persist kiosk session: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Verification failed",
		})
	}

	return c.JSON(VerifyPINResponse{
		Token:   token,
		Session: session,
	})
}

// GetSession resolves a kiosk token back to its session. Kiosk clients
// call this on every visit to gate between PIN entry and the action menu.
func (kc *KioskController) GetSession(c *fiber.Ctx) error {
	token, ok := kioskToken(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Kiosk token required",
		})
	}

	if _, err := utils.ParseKioskToken(token); err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Invalid or expired kiosk token",
		})
	}

	session, err := utils.GetKioskSession(c.Context(), token)
	if err != nil {
		kc.Logger.Printf("Failed to load kiosk session: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load session",
		})
	}
	if session == nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Session has ended",
		})
	}

	return c.JSON(session)
}

// Logout destroys the kiosk session and returns the device to PIN entry.
func (kc *KioskController) Logout(c *fiber.Ctx) error {
	token, ok := kioskToken(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Kiosk token required",
		})
	}

	if err := utils.DeleteKioskSession(c.Context(), token); err != nil {
		kc.Logger.Printf("Failed to delete kiosk session: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to log out",
		})
	}

	return c.SendStatus(fiber.StatusOK)
}

// kioskMemberRow is the single lookup joining membership, workspace and
// profile. Zero rows means wrong code, unknown workspace, or both;
// callers must not distinguish them.
type kioskMemberRow struct {
	ID            uuid.UUID
	UserID        uuid.UUID
	Role          string
	WorkspaceID   uuid.UUID
	WorkspaceName string
	MemberName    string
	Handle        string
}

// lookupKioskMember resolves a (workspace, pin) pair to the member
// holding that code. Soft-deleted workspaces and accounts are invisible
// here, same as everywhere else.
func (kc *KioskController) lookupKioskMember(workspaceID uuid.UUID, pinCode string) (kioskMemberRow, error) {
	var row kioskMemberRow
	err := kc.DB.Model(&models.WorkspaceMember{}).
		Select(`workspace_members.id, workspace_members.user_id, workspace_members.role,
			workspace_members.workspace_id, workspaces.name AS workspace_name,
			COALESCE(users.name, '') AS member_name, users.handle`).
		Joins("JOIN workspaces ON workspaces.id = workspace_members.workspace_id AND workspaces.deleted_at IS NULL").
		Joins("JOIN users ON users.id = workspace_members.user_id AND users.deleted_at IS NULL").
		Where("workspace_members.workspace_id = ? AND workspace_members.pin_code = ?",
			workspaceID, pinCode).
		Take(&row).Error
	return row, err
}

func kioskToken(c *fiber.Ctx) (string, bool) {
	authHeader := c.Get("Authorization")
	if authHeader == "" {
		return "", false
	}
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return "", false
	}
	return parts[1], true
}
