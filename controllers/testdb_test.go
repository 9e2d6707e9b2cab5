package controller

import (
	"bytes"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"fifohub/models"
	"fifohub/utils"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to get DB instance: %v", err)
	}
	// Each pool connection would see its own empty in-memory database
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(
		&models.User{},
		&models.Workspace{},
		&models.WorkspaceMember{},
		&models.JoinCode{},
		&models.AccessRequest{},
		&models.Notification{},
	); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}
	return db
}

func testLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

// newAuthedApp builds a fiber app whose requests carry the given user,
// standing in for the JWT middleware.
func newAuthedApp(user *models.User) *fiber.App {
	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		c.Locals("user", user)
		c.Locals("userID", user.ID)
		return c.Next()
	})
	return app
}

func jsonRequest(t *testing.T, method, target string, body interface{}) *http.Request {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("failed to encode request body: %v", err)
		}
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	return req
}

func decodeBody(t *testing.T, resp *http.Response, out interface{}) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		t.Fatalf("failed to decode response body: %v", err)
	}
}

func seedUser(t *testing.T, db *gorm.DB, handle string) *models.User {
	t.Helper()
	user := &models.User{
		Email:        handle + "@example.com",
		PasswordHash: "x",
		Handle:       handle,
		IsActive:     true,
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("failed to seed user %s: %v", handle, err)
	}
	return user
}

func seedWorkspace(t *testing.T, db *gorm.DB, owner *models.User, name string) *models.Workspace {
	t.Helper()
	workspace := &models.Workspace{
		Name:    name,
		OwnerID: owner.ID,
		Kind:    models.WorkspaceKindFIFO,
	}
	if err := db.Create(workspace).Error; err != nil {
		t.Fatalf("failed to seed workspace %s: %v", name, err)
	}
	return workspace
}

func seedMember(t *testing.T, db *gorm.DB, workspace *models.Workspace, user *models.User, role, pin string) *models.WorkspaceMember {
	t.Helper()
	member := &models.WorkspaceMember{
		WorkspaceID: workspace.ID,
		UserID:      user.ID,
	}
	member.ApplyRoleDefaults(role)
	if pin != "" {
		member.PINCode = utils.Pointer(pin)
	}
	if err := db.Create(member).Error; err != nil {
		t.Fatalf("failed to seed member: %v", err)
	}
	return member
}

func seedAccessRequest(t *testing.T, db *gorm.DB, workspace *models.Workspace, requester *models.User) *models.AccessRequest {
	t.Helper()
	request := &models.AccessRequest{
		WorkspaceID:    workspace.ID,
		RequesterID:    requester.ID,
		RequesterEmail: requester.Email,
		Status:         models.RequestStatusPending,
	}
	if err := db.Create(request).Error; err != nil {
		t.Fatalf("failed to seed access request: %v", err)
	}
	return request
}
