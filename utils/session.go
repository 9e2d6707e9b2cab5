package utils

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"

	"fifohub/config"
)

const kioskSessionKeyPrefix = "kiosk:session:"

// KioskSessionMember is the membership slice of a kiosk session payload.
type KioskSessionMember struct {
	ID          uuid.UUID `json:"id"`
	UserID      uuid.UUID `json:"user_id"`
	Role        string    `json:"role"`
	WorkspaceID uuid.UUID `json:"workspace_id"`
}

// KioskSessionWorkspace is the workspace slice of a kiosk session payload.
type KioskSessionWorkspace struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}

// KioskSession is the payload minted by PIN verification and handed to the
// kiosk client. The field names are a wire contract with existing clients.
// The authoritative membership record stays in the database; this is a
// capability snapshot with a server-side TTL.
type KioskSession struct {
	Member    KioskSessionMember    `json:"member"`
	Workspace KioskSessionWorkspace `json:"workspace"`
	Name      string                `json:"name"`
	CreatedAt time.Time             `json:"createdAt"`
}

func kioskSessionKey(token string) string {
	return kioskSessionKeyPrefix + token
}

// SaveKioskSession stores a session payload under its token with the
// configured TTL.
func SaveKioskSession(ctx context.Context, token string, session *KioskSession) error {
	data, err := json.Marshal(session)
	if err != nil {
		return err
	}
	return config.Redis.Set(ctx, kioskSessionKey(token), data, config.AppConfig.KioskSessionTTL).Err()
}

// GetKioskSession resolves a token back to its payload. A missing or
// expired session returns (nil, nil); callers treat that as signed out.
func GetKioskSession(ctx context.Context, token string) (*KioskSession, error) {
	data, err := config.Redis.Get(ctx, kioskSessionKey(token)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var session KioskSession
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

// DeleteKioskSession signs a kiosk out. Deleting an absent session is not
// an error.
func DeleteKioskSession(ctx context.Context, token string) error {
	return config.Redis.Del(ctx, kioskSessionKey(token)).Err()
}
