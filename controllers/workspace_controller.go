package controller

import (
	"log"
	"sort"
	"sync"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"fifohub/config"
	"fifohub/models"
	"fifohub/utils"
)

type WorkspaceController struct {
	DB     *gorm.DB
	Logger *log.Logger
}

func NewWorkspaceController(db *gorm.DB, logger *log.Logger) *WorkspaceController {
	return &WorkspaceController{
		DB:     db,
		Logger: logger,
	}
}

type CreateWorkspaceRequest struct {
	Name        string `json:"name" validate:"required,min=1,max=120"`
	Description string `json:"description" validate:"omitempty,max=500"`
}

// GetWorkspaces returns every workspace the caller owns or belongs to,
// restricted to FIFO workspaces when the kind column exists, enriched
// with member and store counts. Results are deduplicated by workspace id
// and ordered newest-first.
func (wc *WorkspaceController) GetWorkspaces(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	var (
		owned, member []models.Workspace
		ownedErr      error
		memberErr     error
		wg            sync.WaitGroup
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		ownedErr = wc.kindScoped().Where("owner_id = ?", user.ID).
			Order("created_at DESC").Find(&owned).Error
	}()
	go func() {
		defer wg.Done()
		memberErr = wc.kindScoped().
			Joins("JOIN workspace_members ON workspace_members.workspace_id = workspaces.id").
			Where("workspace_members.user_id = ? AND workspace_members.deleted_at IS NULL", user.ID).
			Order("workspaces.created_at DESC").
			Find(&member).Error
	}()
	wg.Wait()

	if ownedErr != nil {
		wc.Logger.Printf("Failed to fetch owned workspaces for %s: %v", user.ID, ownedErr)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch workspaces",
		})
	}
	if memberErr != nil {
		wc.Logger.Printf("Failed to fetch member workspaces for %s: %v", user.ID, memberErr)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch workspaces",
		})
	}

	workspaces := MergeWorkspaces(owned, member)

	if err := wc.attachCounts(workspaces); err != nil {
		wc.Logger.Printf("Failed to fetch workspace counts: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch workspaces",
		})
	}

	return c.JSON(fiber.Map{
		"workspaces": workspaces,
	})
}

func (wc *WorkspaceController) CreateWorkspace(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	var req CreateWorkspaceRequest
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

	workspace := models.Workspace{
		Name:        req.Name,
		Description: req.Description,
		OwnerID:     user.ID,
		Kind:        models.WorkspaceKindFIFO,
	}

	// The owner also gets a membership row so kiosk PIN sign-in works
	// for them like for anyone else
	err := wc.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&workspace).Error; err != nil {
			return err
		}
		membership := models.WorkspaceMember{
			WorkspaceID: workspace.ID,
			UserID:      user.ID,
		}
		membership.ApplyRoleDefaults(models.RoleAdmin)
		return tx.Create(&membership).Error
	})
	if err != nil {
		wc.Logger.Printf("Failed to create workspace for %s: %v", user.ID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to create workspace",
		})
	}

	return c.Status(fiber.StatusCreated).JSON(workspace)
}

// kindScoped narrows a workspace query to FIFO workspaces when the kind
// column is known to exist. The capability flag is resolved once at
// startup; legacy schemas simply return every workspace tagged unknown.
func (wc *WorkspaceController) kindScoped() *gorm.DB {
	q := wc.DB.Model(&models.Workspace{})
	if config.AppConfig.HasWorkspaceKindColumn {
		q = q.Where("workspaces.kind = ?", models.WorkspaceKindFIFO)
	}
	return q
}

// attachCounts fills member and store aggregates, one workspace at a time
// but concurrently across workspaces.
func (wc *WorkspaceController) attachCounts(workspaces []models.Workspace) error {
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
	)

	for i := range workspaces {
		wg.Add(1)
		go func(w *models.Workspace) {
			defer wg.Done()

			var memberCount, storeCount int64
			err := wc.DB.Model(&models.WorkspaceMember{}).
				Where("workspace_id = ?", w.ID).Count(&memberCount).Error
			if err == nil {
				err = wc.DB.Model(&models.Store{}).
					Where("workspace_id = ?", w.ID).Count(&storeCount).Error
			}

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if firstErr == nil {
					firstErr = err
				}
				return
			}
			w.MemberCount = memberCount
			w.StoreCount = storeCount
		}(&workspaces[i])
	}
	wg.Wait()

	return firstErr
}

// MergeWorkspaces combines the owned and member lists, deduplicated by
// workspace id with the later list winning on duplicates, ordered
// newest-first.
func MergeWorkspaces(owned, member []models.Workspace) []models.Workspace {
	byID := make(map[uuid.UUID]models.Workspace, len(owned)+len(member))
	for _, w := range owned {
		byID[w.ID] = w
	}
	for _, w := range member {
		byID[w.ID] = w
	}

	merged := make([]models.Workspace, 0, len(byID))
	for _, w := range byID {
		merged = append(merged, w)
	}
	sort.Slice(merged, func(i, j int) bool {
		return merged[i].CreatedAt.After(merged[j].CreatedAt)
	})
	return merged
}

// requireWorkspaceOwner loads a workspace and verifies the acting user
// owns it. Returns nil after writing the error response when not.
func requireWorkspaceOwner(c *fiber.Ctx, db *gorm.DB, workspaceID, userID uuid.UUID) *models.Workspace {
	var workspace models.Workspace
	if err := db.First(&workspace, "id = ?", workspaceID).Error; err != nil {
		c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Workspace not found",
		})
		return nil
	}
	if workspace.OwnerID != userID {
		c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "Only the workspace owner can do this",
		})
		return nil
	}
	return &workspace
}
