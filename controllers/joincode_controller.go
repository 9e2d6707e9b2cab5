package controller

import (
	"errors"
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"fifohub/config"
	"fifohub/models"
	"fifohub/utils"
)

type JoinCodeController struct {
	DB     *gorm.DB
	Logger *log.Logger
}

func NewJoinCodeController(db *gorm.DB, logger *log.Logger) *JoinCodeController {
	return &JoinCodeController{
		DB:     db,
		Logger: logger,
	}
}

type ResolveJoinCodeRequest struct {
	Code string `json:"code" validate:"required,max=2048"`
}

type JoinCodeResponse struct {
	JoinCode *models.JoinCode `json:"join_code"`
	JoinURL  string           `json:"join_url"`
}

// IssueJoinCode returns the workspace's durable access code, creating one
// lazily on first issue and reusing it afterwards.
func (jc *JoinCodeController) IssueJoinCode(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	workspaceID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid workspace id",
		})
	}

	workspace := requireWorkspaceOwner(c, jc.DB, workspaceID, user.ID)
	if workspace == nil {
		return nil
	}

	code, err := jc.findOrCreateCode(workspace.ID, user.ID)
	if err != nil {
		jc.Logger.Printf("Failed to issue join code for workspace %s: %v", workspace.ID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to issue join code",
		})
	}

	return c.JSON(JoinCodeResponse{
		JoinCode: code,
		JoinURL:  utils.BuildJoinURL(config.AppConfig.AppBaseURL, workspace.ID),
	})
}

// GetJoinCodeQR renders the workspace's join URL as a PNG. Issuing and
// rendering share the same reuse-or-create path so the scanned target is
// always the current code's workspace URL.
func (jc *JoinCodeController) GetJoinCodeQR(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	workspaceID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid workspace id",
		})
	}

	workspace := requireWorkspaceOwner(c, jc.DB, workspaceID, user.ID)
	if workspace == nil {
		return nil
	}

	if _, err := jc.findOrCreateCode(workspace.ID, user.ID); err != nil {
		jc.Logger.Printf("Failed to issue join code for workspace %s: %v", workspace.ID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to issue join code",
		})
	}

	png, err := utils.RenderJoinQR(utils.BuildJoinURL(config.AppConfig.AppBaseURL, workspace.ID))
	if err != nil {
		jc.Logger.Printf("Failed to render QR for workspace %s: %v", workspace.ID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to render QR code",
		})
	}

	c.Set("Content-Type", "image/png")
	return c.Send(png)
}

// ResolveJoinCode turns a scanned or pasted string into a workspace.
// Ordered, first match wins: join URL, join-code record id, bare
// workspace id. "Not found" and "unrecognized" are distinct outcomes.
func (jc *JoinCodeController) ResolveJoinCode(c *fiber.Ctx) error {
	var req ResolveJoinCodeRequest
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

	kind, id := utils.ClassifyJoinInput(req.Code)

	var workspaceID uuid.UUID
	switch kind {
	case utils.JoinInputWorkspaceURL:
		workspaceID = id

	case utils.JoinInputUUID:
		// Prefer a join-code record; fall back to treating the UUID as
		// a workspace id so stale codes still resolve
		var code models.JoinCode
		err := jc.DB.Where("id = ? AND purpose = ?", id, models.JoinCodePurposeAccess).
			First(&code).Error
		switch {
		case err == nil:
			workspaceID = code.WorkspaceID
		case errors.Is(err, gorm.ErrRecordNotFound):
			workspaceID = id
		default:
			jc.Logger.Printf("Failed to look up join code %s: %v", id, err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Failed to resolve code",
			})
		}

	default:
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
			"error": "Unrecognized code",
		})
	}

	var workspace models.Workspace
	err := jc.DB.Select("id", "name", "description").
		First(&workspace, "id = ?", workspaceID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "No workspace found for this code",
		})
	}
	if err != nil {
		jc.Logger.Printf("Failed to fetch workspace %s: %v", workspaceID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to resolve code",
		})
	}

	return c.JSON(fiber.Map{
		"workspace": fiber.Map{
			"id":          workspace.ID,
			"name":        workspace.Name,
			"description": workspace.Description,
		},
	})
}

func (jc *JoinCodeController) findOrCreateCode(workspaceID, issuerID uuid.UUID) (*models.JoinCode, error) {
	var code models.JoinCode
	err := jc.DB.Where("workspace_id = ? AND purpose = ?", workspaceID, models.JoinCodePurposeAccess).
		Order("created_at DESC").
		First(&code).Error
	if err == nil {
		return &code, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	code = models.JoinCode{
		WorkspaceID: workspaceID,
		Purpose:     models.JoinCodePurposeAccess,
		CreatedByID: issuerID,
	}
	if err := jc.DB.Create(&code).Error; err != nil {
		return nil, err
	}
	return &code, nil
}
