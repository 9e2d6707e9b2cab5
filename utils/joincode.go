package utils

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/google/uuid"
)

// RequestAccessPath is the web path a scanned join code opens. Scanned
// codes from other installations resolve against this exact path and
// query parameter, so neither may change.
const (
	RequestAccessPath   = "/fifo-request-access"
	WorkspaceQueryParam = "workspace"
)

// JoinInputKind classifies what a scanned or pasted string turned out to be.
type JoinInputKind int

const (
	// JoinInputWorkspaceURL is a join URL carrying a workspace id.
	JoinInputWorkspaceURL JoinInputKind = iota
	// JoinInputUUID is a bare UUID: a join-code record id, or failing
	// that, a workspace id.
	JoinInputUUID
	// JoinInputUnrecognized is anything else.
	JoinInputUnrecognized
)

// BuildJoinURL derives the stable scan target for a workspace. The URL
// always carries the workspace id, never the join-code record id, so it
// survives code rotation.
func BuildJoinURL(baseURL string, workspaceID uuid.UUID) string {
	return fmt.Sprintf("%s%s?%s=%s",
		strings.TrimRight(baseURL, "/"), RequestAccessPath, WorkspaceQueryParam, workspaceID)
}

// ClassifyJoinInput inspects a scanned or pasted string and extracts the
// candidate id. Ordered, first match wins:
//  1. URL with a syntactically valid UUID in the workspace parameter
//  2. the string itself is a UUID
//  3. unrecognized
//
// For JoinInputUUID the caller still has to decide whether the UUID is a
// join-code record id or a workspace id; that needs a store lookup.
func ClassifyJoinInput(input string) (JoinInputKind, uuid.UUID) {
	input = strings.TrimSpace(input)

	if u, err := url.Parse(input); err == nil && (u.Scheme == "http" || u.Scheme == "https") {
		if raw := u.Query().Get(WorkspaceQueryParam); raw != "" {
			if id, err := uuid.Parse(raw); err == nil {
				return JoinInputWorkspaceURL, id
			}
		}
		return JoinInputUnrecognized, uuid.Nil
	}

	if id, err := uuid.Parse(input); err == nil {
		return JoinInputUUID, id
	}

	return JoinInputUnrecognized, uuid.Nil
}
