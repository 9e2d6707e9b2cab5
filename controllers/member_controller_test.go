package controller

import (
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"fifohub/models"
	"fifohub/utils"
)

func TestCandidatePool(t *testing.T) {
	owner := uuid.New()
	friendA := uuid.New()
	friendB := uuid.New()
	alreadyMember := uuid.New()

	connections := []models.Connection{
		// Outbound
		{FromUserID: owner, ToUserID: friendA},
		// Inbound
		{FromUserID: friendB, ToUserID: owner},
		// Both directions with the same person must not duplicate
		{FromUserID: owner, ToUserID: friendB},
		// Connection to an existing member is excluded
		{FromUserID: alreadyMember, ToUserID: owner},
	}
	members := []models.WorkspaceMember{
		{UserID: alreadyMember},
	}

	pool := CandidatePool(owner, connections, members)

	require.Len(t, pool, 2)
	require.ElementsMatch(t, []uuid.UUID{friendA, friendB}, pool)
}

func TestCandidatePoolExcludesOwner(t *testing.T) {
	owner := uuid.New()

	// A self-connection must never make the owner invitable
	connections := []models.Connection{
		{FromUserID: owner, ToUserID: owner},
	}

	pool := CandidatePool(owner, connections, nil)
	require.Empty(t, pool)
}

func TestCandidatePoolEmptyConnections(t *testing.T) {
	pool := CandidatePool(uuid.New(), nil, nil)
	require.Empty(t, pool)
}

func TestBuildMemberViewsProfileFallback(t *testing.T) {
	withProfile := uuid.New()
	withoutProfile := uuid.New()
	name := "Dana"

	members := []models.WorkspaceMember{
		{UserID: withProfile, PINCode: utils.Pointer("1234")},
		{UserID: withoutProfile},
	}
	profiles := []models.User{
		{ID: withProfile, Handle: "dana", Name: &name},
	}

	views := BuildMemberViews(members, profiles)
	require.Len(t, views, 2)

	require.Equal(t, "Dana", views[0].DisplayName)
	require.Equal(t, "dana", views[0].Handle)
	require.True(t, views[0].HasPIN)
	// The code itself never leaves the server in listings
	require.Nil(t, views[0].PINCode)

	// No profile row: fall back to the raw user id
	require.Equal(t, withoutProfile.String(), views[1].DisplayName)
	require.Empty(t, views[1].Handle)
	require.False(t, views[1].HasPIN)
}

func TestBuildMemberViewsHandleOnlyProfile(t *testing.T) {
	userID := uuid.New()

	members := []models.WorkspaceMember{{UserID: userID}}
	profiles := []models.User{{ID: userID, Handle: "prep-cook"}}

	views := BuildMemberViews(members, profiles)
	require.Len(t, views, 1)
	require.Equal(t, "prep-cook", views[0].DisplayName)
}

func setupMemberController(t *testing.T) (*MemberController, *fiber.App, *models.WorkspaceMember) {
	t.Helper()

	db := newTestDB(t)
	owner := seedUser(t, db, "owner")
	staff := seedUser(t, db, "staff")
	workspace := seedWorkspace(t, db, owner, "Main Kitchen")
	member := seedMember(t, db, workspace, staff, models.RoleMember, "1234")

	mc := NewMemberController(db, testLogger())
	app := newAuthedApp(owner)
	app.Put("/api/v1/members/:id/pin", mc.SetMemberPIN)

	return mc, app, member
}

// An empty code removes the PIN and enqueues nothing: there is no new
// code to tell the member about.
func TestSetMemberPINEmptyRemovesWithoutNotification(t *testing.T) {
	mc, app, member := setupMemberController(t)

	resp, err := app.Test(jsonRequest(t, "PUT", "/api/v1/members/"+member.ID.String()+"/pin", fiber.Map{
		"pin_code": "",
	}), -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var reloaded models.WorkspaceMember
	require.NoError(t, mc.DB.First(&reloaded, "id = ?", member.ID).Error)
	require.Nil(t, reloaded.PINCode)

	var count int64
	require.NoError(t, mc.DB.Model(&models.Notification{}).Count(&count).Error)
	require.EqualValues(t, 0, count)
}

// A successful assignment stores the code and leaves one pending outbox
// row for the notifier worker.
func TestSetMemberPINEnqueuesNotification(t *testing.T) {
	mc, app, member := setupMemberController(t)

	resp, err := app.Test(jsonRequest(t, "PUT", "/api/v1/members/"+member.ID.String()+"/pin", fiber.Map{
		"pin_code": "4321",
	}), -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var reloaded models.WorkspaceMember
	require.NoError(t, mc.DB.First(&reloaded, "id = ?", member.ID).Error)
	require.NotNil(t, reloaded.PINCode)
	require.Equal(t, "4321", *reloaded.PINCode)

	var notifications []models.Notification
	require.NoError(t, mc.DB.Find(&notifications).Error)
	require.Len(t, notifications, 1)
	require.Equal(t, models.NotificationKindPINChanged, notifications[0].Kind)
	require.Equal(t, models.NotificationStatusPending, notifications[0].Status)
	require.Equal(t, member.UserID, notifications[0].RecipientID)
}

// A malformed code is rejected before anything is written.
func TestSetMemberPINRejectsMalformedCode(t *testing.T) {
	mc, app, member := setupMemberController(t)

	resp, err := app.Test(jsonRequest(t, "PUT", "/api/v1/members/"+member.ID.String()+"/pin", fiber.Map{
		"pin_code": "12a",
	}), -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	var reloaded models.WorkspaceMember
	require.NoError(t, mc.DB.First(&reloaded, "id = ?", member.ID).Error)
	require.NotNil(t, reloaded.PINCode)
	require.Equal(t, "1234", *reloaded.PINCode)
}
