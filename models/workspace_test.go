package models

import "testing"

// The default capability set is a contract with downstream permission
// checks: approval must always yield exactly these values for members.
func TestApplyRoleDefaultsMember(t *testing.T) {
	var m WorkspaceMember
	m.ApplyRoleDefaults(RoleMember)

	if m.Role != RoleMember {
		t.Fatalf("expected role %q, got %q", RoleMember, m.Role)
	}
	if !m.CanReceive || !m.CanTransfer {
		t.Fatalf("members must be able to receive and transfer, got receive=%t transfer=%t",
			m.CanReceive, m.CanTransfer)
	}
	if m.CanManage || m.CanDelete {
		t.Fatalf("members must not manage or delete, got manage=%t delete=%t",
			m.CanManage, m.CanDelete)
	}
}

func TestApplyRoleDefaultsAdmin(t *testing.T) {
	var m WorkspaceMember
	m.ApplyRoleDefaults(RoleAdmin)

	if m.Role != RoleAdmin {
		t.Fatalf("expected role %q, got %q", RoleAdmin, m.Role)
	}
	if !m.CanReceive || !m.CanTransfer || !m.CanManage || !m.CanDelete {
		t.Fatalf("admins get the full capability set, got receive=%t transfer=%t manage=%t delete=%t",
			m.CanReceive, m.CanTransfer, m.CanManage, m.CanDelete)
	}
}

// Re-applying member defaults after an admin grant must revoke the
// elevated capabilities, not leave them behind.
func TestApplyRoleDefaultsDemotion(t *testing.T) {
	var m WorkspaceMember
	m.ApplyRoleDefaults(RoleAdmin)
	m.ApplyRoleDefaults(RoleMember)

	if m.CanManage || m.CanDelete {
		t.Fatalf("demotion left elevated capabilities behind")
	}
}
