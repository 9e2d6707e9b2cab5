package controller

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"fifohub/models"
)

func workspaceAt(id uuid.UUID, name string, createdAt time.Time) models.Workspace {
	return models.Workspace{
		ID:        id,
		Name:      name,
		CreatedAt: createdAt,
	}
}

func TestMergeWorkspacesDeduplicates(t *testing.T) {
	now := time.Now()
	shared := uuid.New()

	owned := []models.Workspace{
		workspaceAt(shared, "owned copy", now.Add(-time.Hour)),
		workspaceAt(uuid.New(), "only owned", now.Add(-2*time.Hour)),
	}
	member := []models.Workspace{
		workspaceAt(shared, "member copy", now.Add(-time.Hour)),
		workspaceAt(uuid.New(), "only member", now),
	}

	merged := MergeWorkspaces(owned, member)
	if len(merged) != 3 {
		t.Fatalf("expected 3 distinct workspaces, got %d", len(merged))
	}

	seen := make(map[uuid.UUID]int)
	for _, w := range merged {
		seen[w.ID]++
	}
	for id, count := range seen {
		if count != 1 {
			t.Fatalf("workspace %s appears %d times", id, count)
		}
	}

	// The member list is merged second, so its copy wins on duplicates
	for _, w := range merged {
		if w.ID == shared && w.Name != "member copy" {
			t.Fatalf("expected member copy to win on duplicate key, got %q", w.Name)
		}
	}
}

func TestMergeWorkspacesOrdersNewestFirst(t *testing.T) {
	now := time.Now()
	owned := []models.Workspace{
		workspaceAt(uuid.New(), "oldest", now.Add(-3*time.Hour)),
		workspaceAt(uuid.New(), "newest", now),
	}
	member := []models.Workspace{
		workspaceAt(uuid.New(), "middle", now.Add(-time.Hour)),
	}

	merged := MergeWorkspaces(owned, member)
	if len(merged) != 3 {
		t.Fatalf("expected 3 workspaces, got %d", len(merged))
	}

	wantOrder := []string{"newest", "middle", "oldest"}
	for i, want := range wantOrder {
		if merged[i].Name != want {
			t.Fatalf("position %d: expected %q, got %q", i, want, merged[i].Name)
		}
	}
}

func TestMergeWorkspacesEmptyInputs(t *testing.T) {
	if got := MergeWorkspaces(nil, nil); len(got) != 0 {
		t.Fatalf("expected empty result for empty inputs, got %d entries", len(got))
	}
}
