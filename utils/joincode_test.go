package utils

import (
	"fmt"
	"testing"

	"github.com/google/uuid"
)

func TestBuildJoinURL(t *testing.T) {
	id := uuid.MustParse("3f9c2f1e-8a44-4a2b-9d7a-6a1d2c3b4e5f")

	got := BuildJoinURL("https://example.com", id)
	want := "https://example.com/fifo-request-access?workspace=3f9c2f1e-8a44-4a2b-9d7a-6a1d2c3b4e5f"
	if got != want {
		t.Fatalf("unexpected join URL:\nwant: %s\ngot:  %s", want, got)
	}

	// A trailing slash on the base must not double up
	if BuildJoinURL("https://example.com/", id) != want {
		t.Fatalf("trailing slash on base changed the URL")
	}
}

func TestClassifyJoinInput(t *testing.T) {
	workspaceID := uuid.New()

	tests := []struct {
		name     string
		input    string
		wantKind JoinInputKind
		wantID   uuid.UUID
	}{
		{
			"join url",
			fmt.Sprintf("https://example.com/fifo-request-access?workspace=%s", workspaceID),
			JoinInputWorkspaceURL, workspaceID,
		},
		{
			"join url with extra params",
			fmt.Sprintf("https://example.com/fifo-request-access?utm=x&workspace=%s", workspaceID),
			JoinInputWorkspaceURL, workspaceID,
		},
		{
			"url without workspace param",
			"https://example.com/fifo-request-access",
			JoinInputUnrecognized, uuid.Nil,
		},
		{
			"url with malformed workspace param",
			"https://example.com/fifo-request-access?workspace=not-a-uuid",
			JoinInputUnrecognized, uuid.Nil,
		},
		{"bare uuid", workspaceID.String(), JoinInputUUID, workspaceID},
		{"uuid with whitespace", "  " + workspaceID.String() + "\n", JoinInputUUID, workspaceID},
		{"garbage", "open sesame", JoinInputUnrecognized, uuid.Nil},
		{"empty", "", JoinInputUnrecognized, uuid.Nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kind, id := ClassifyJoinInput(tt.input)
			if kind != tt.wantKind {
				t.Fatalf("ClassifyJoinInput(%q) kind = %v, want %v", tt.input, kind, tt.wantKind)
			}
			if id != tt.wantID {
				t.Fatalf("ClassifyJoinInput(%q) id = %s, want %s", tt.input, id, tt.wantID)
			}
		})
	}
}

// A code issued for a workspace must scan back to the same workspace.
func TestJoinURLRoundTrip(t *testing.T) {
	id := uuid.New()
	url := BuildJoinURL("https://example.com", id)

	kind, resolved := ClassifyJoinInput(url)
	if kind != JoinInputWorkspaceURL {
		t.Fatalf("expected issued URL to classify as workspace URL, got %v", kind)
	}
	if resolved != id {
		t.Fatalf("round trip lost the workspace id: issued %s, resolved %s", id, resolved)
	}
}
