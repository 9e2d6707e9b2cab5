package controller

import (
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"fifohub/models"
)

func setupRequestController(t *testing.T) (*AccessRequestController, *fiber.App, *models.User, *models.Workspace, *models.User) {
	t.Helper()

	db := newTestDB(t)
	owner := seedUser(t, db, "owner")
	requester := seedUser(t, db, "requester")
	workspace := seedWorkspace(t, db, owner, "Main Kitchen")

	rc := NewAccessRequestController(db, testLogger(), NewRequestHub())

	app := newAuthedApp(owner)
	app.Post("/api/v1/access-requests", rc.CreateAccessRequest)
	app.Post("/api/v1/access-requests/:id/approve", rc.ApproveAccessRequest)
	app.Post("/api/v1/access-requests/:id/reject", rc.RejectAccessRequest)

	return rc, app, owner, workspace, requester
}

// Approving a request whose requester already holds a membership must not
// create a second one, and the approval itself still stands.
func TestApproveAccessRequestExistingMembership(t *testing.T) {
	rc, app, _, workspace, requester := setupRequestController(t)
	seedMember(t, rc.DB, workspace, requester, models.RoleMember, "")
	request := seedAccessRequest(t, rc.DB, workspace, requester)

	resp, err := app.Test(jsonRequest(t, "POST", "/api/v1/access-requests/"+request.ID.String()+"/approve", nil), -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var reloaded models.AccessRequest
	require.NoError(t, rc.DB.First(&reloaded, "id = ?", request.ID).Error)
	require.Equal(t, models.RequestStatusApproved, reloaded.Status)
	require.NotNil(t, reloaded.ReviewedBy)

	var count int64
	require.NoError(t, rc.DB.Model(&models.WorkspaceMember{}).
		Where("workspace_id = ? AND user_id = ?", workspace.ID, requester.ID).
		Count(&count).Error)
	require.EqualValues(t, 1, count)
}

// A request resolves exactly once: whoever updates it while it is still
// pending wins, and every later attempt gets a conflict without touching
// the recorded outcome.
func TestResolveAccessRequestFirstWriterWins(t *testing.T) {
	rc, app, _, workspace, requester := setupRequestController(t)
	request := seedAccessRequest(t, rc.DB, workspace, requester)

	resp, err := app.Test(jsonRequest(t, "POST", "/api/v1/access-requests/"+request.ID.String()+"/approve", nil), -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp, err = app.Test(jsonRequest(t, "POST", "/api/v1/access-requests/"+request.ID.String()+"/reject", nil), -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusConflict, resp.StatusCode)

	var reloaded models.AccessRequest
	require.NoError(t, rc.DB.First(&reloaded, "id = ?", request.ID).Error)
	require.Equal(t, models.RequestStatusApproved, reloaded.Status)

	var count int64
	require.NoError(t, rc.DB.Model(&models.WorkspaceMember{}).
		Where("workspace_id = ? AND user_id = ?", workspace.ID, requester.ID).
		Count(&count).Error)
	require.EqualValues(t, 1, count)
}

// Approval grants the default member capability set.
func TestApproveAccessRequestGrantsMemberDefaults(t *testing.T) {
	rc, app, _, workspace, requester := setupRequestController(t)
	request := seedAccessRequest(t, rc.DB, workspace, requester)

	resp, err := app.Test(jsonRequest(t, "POST", "/api/v1/access-requests/"+request.ID.String()+"/approve", nil), -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var member models.WorkspaceMember
	require.NoError(t, rc.DB.
		Where("workspace_id = ? AND user_id = ?", workspace.ID, requester.ID).
		First(&member).Error)
	require.Equal(t, models.RoleMember, member.Role)
	require.True(t, member.CanReceive)
	require.True(t, member.CanTransfer)
	require.False(t, member.CanManage)
	require.False(t, member.CanDelete)
}

// Someone who is already a member gets routed to PIN entry; no request
// row is written.
func TestCreateAccessRequestAlreadyMember(t *testing.T) {
	rc, _, _, workspace, requester := setupRequestController(t)
	member := seedMember(t, rc.DB, workspace, requester, models.RoleMember, "")

	app := newAuthedApp(requester)
	app.Post("/api/v1/access-requests", rc.CreateAccessRequest)

	resp, err := app.Test(jsonRequest(t, "POST", "/api/v1/access-requests", fiber.Map{
		"workspace_id": workspace.ID.String(),
	}), -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var body struct {
		AlreadyMember bool      `json:"already_member"`
		MemberID      uuid.UUID `json:"member_id"`
	}
	decodeBody(t, resp, &body)
	require.True(t, body.AlreadyMember)
	require.Equal(t, member.ID, body.MemberID)

	var count int64
	require.NoError(t, rc.DB.Model(&models.AccessRequest{}).Count(&count).Error)
	require.EqualValues(t, 0, count)
}

// A second submit while the first is still pending conflicts and leaves a
// single row behind.
func TestCreateAccessRequestPendingConflict(t *testing.T) {
	rc, _, _, workspace, requester := setupRequestController(t)
	seedAccessRequest(t, rc.DB, workspace, requester)

	app := newAuthedApp(requester)
	app.Post("/api/v1/access-requests", rc.CreateAccessRequest)

	resp, err := app.Test(jsonRequest(t, "POST", "/api/v1/access-requests", fiber.Map{
		"workspace_id": workspace.ID.String(),
	}), -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusConflict, resp.StatusCode)

	var count int64
	require.NoError(t, rc.DB.Model(&models.AccessRequest{}).
		Where("workspace_id = ? AND requester_id = ?", workspace.ID, requester.ID).
		Count(&count).Error)
	require.EqualValues(t, 1, count)
}
