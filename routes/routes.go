package routes

import (
	"log"
	"os"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	controller "fifohub/controllers"
	"fifohub/middleware"
	"fifohub/models"
)

func SetupAuthRoutes(app *fiber.App, db *gorm.DB) {
	authLogger := log.New(os.Stdout, "AUTH: ", log.Ldate|log.Ltime|log.Lshortfile)

	// Auth routes group with logging middleware
	auth := app.Group("/auth", logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))

	// Public auth endpoints (no authentication required)
	auth.Post("/register", controller.Register)
	auth.Post("/login", controller.Login)
	auth.Post("/refresh", controller.RefreshToken)

	// Google OAuth routes
	auth.Get("/google", controller.GoogleOAuth)
	auth.Get("/google/callback", controller.GoogleOAuthCallback)

	// Protected auth endpoints (require valid JWT)
	protectedAuth := auth.Group("", middleware.Protected())
	protectedAuth.Post("/logout", controller.Logout)
	protectedAuth.Post("/change-password", controller.ChangePassword)
	protectedAuth.Get("/me", controller.GetCurrentUser)

	authLogger.Println("Authentication routes initialized successfully")
}

func SetupAPIRoutes(app *fiber.App, db *gorm.DB, hub *controller.RequestHub) {
	workspaceController := controller.NewWorkspaceController(db, log.New(os.Stdout, "WORKSPACE: ", log.LstdFlags))
	joinCodeController := controller.NewJoinCodeController(db, log.New(os.Stdout, "JOINCODE: ", log.LstdFlags))
	requestController := controller.NewAccessRequestController(db, log.New(os.Stdout, "REQUEST: ", log.LstdFlags), hub)
	memberController := controller.NewMemberController(db, log.New(os.Stdout, "MEMBER: ", log.LstdFlags))
	kioskController := controller.NewKioskController(db, log.New(os.Stdout, "KIOSK: ", log.LstdFlags))

	// API group with versioning and protection
	api := app.Group("/api/v1", middleware.Protected(), logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))

	// Workspace directory
	workspaceRoutes := api.Group("/workspaces")
	workspaceRoutes.Get("/", workspaceController.GetWorkspaces)
	workspaceRoutes.Post("/", workspaceController.CreateWorkspace)

	// Join codes
	workspaceRoutes.Post("/:id/join-code", joinCodeController.IssueJoinCode)
	workspaceRoutes.Get("/:id/join-code/qr", joinCodeController.GetJoinCodeQR)
	api.Post("/join-codes/resolve", joinCodeController.ResolveJoinCode)

	// Access requests
	api.Post("/access-requests", requestController.CreateAccessRequest)
	api.Post("/access-requests/:id/approve", requestController.ApproveAccessRequest)
	api.Post("/access-requests/:id/reject", requestController.RejectAccessRequest)
	workspaceRoutes.Get("/:id/access-requests", requestController.ListAccessRequests)

	// Member administration
	workspaceRoutes.Get("/:id/members", memberController.ListMembers)
	workspaceRoutes.Get("/:id/invite-candidates", memberController.InviteCandidates)
	workspaceRoutes.Post("/:id/members/invite", memberController.InviteMembers)
	api.Put("/members/:id/pin", memberController.SetMemberPIN)
	api.Delete("/members/:id", memberController.RemoveMember)

	// Live access-request feed for workspace owners. The upgrade
	// middleware runs inside the protected group, so ownership is
	// checked before the connection is handed to the hub.
	workspaceRoutes.Get("/:id/requests/ws", requireOwnerUpgrade(db), websocket.New(hub.HandleRequestFeedWS))

	// Kiosk PIN verification is public by design: the person at the
	// device has no account session. It lives outside /api/v1 because
	// fiber group middleware matches by path prefix, and these must not
	// pass through Protected(). Rate limited instead.
	kiosk := app.Group("/kiosk", logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))
	kiosk.Post("/workspaces/:id/verify-pin", middleware.PINRateLimiter(), kioskController.VerifyPIN)
	kiosk.Get("/session", kioskController.GetSession)
	kiosk.Post("/logout", kioskController.Logout)

	log.Println("API routes initialized successfully")
}

// requireOwnerUpgrade gates the websocket upgrade on workspace ownership.
func requireOwnerUpgrade(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !websocket.IsWebSocketUpgrade(c) {
			return fiber.ErrUpgradeRequired
		}

		user := c.Locals("user").(*models.User)
		workspaceID, err := uuid.Parse(c.Params("id"))
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Invalid workspace id",
			})
		}

		var workspace models.Workspace
		if err := db.First(&workspace, "id = ?", workspaceID).Error; err != nil {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Workspace not found",
			})
		}
		if workspace.OwnerID != user.ID {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": "Only the workspace owner can watch requests",
			})
		}

		return c.Next()
	}
}

func SetupRoutes(app *fiber.App, db *gorm.DB, hub *controller.RequestHub) {
	// Setup health check endpoint
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	SetupAuthRoutes(app, db)
	SetupAPIRoutes(app, db, hub)

	// Setup 404 handler
	app.Use(func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error":   "Not Found",
			"message": "The requested resource was not found",
		})
	})
}
