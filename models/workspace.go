package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Workspace kinds. Only FIFO workspaces show up in the ops directory;
// other kinds belong to the social side of the product.
const (
	WorkspaceKindFIFO    = "fifo"
	WorkspaceKindUnknown = ""
)

// Membership roles
const (
	RoleMember = "member"
	RoleAdmin  = "admin"
)

// JoinCodePurposeAccess is the only purpose tag in use today. The column
// exists so future code kinds (e.g. vendor onboarding) don't collide.
const JoinCodePurposeAccess = "workspace_access"

// Access request statuses
const (
	RequestStatusPending  = "pending"
	RequestStatusApproved = "approved"
	RequestStatusRejected = "rejected"
)

// Workspace is a tenant-scoped container owning stores, members and activity
type Workspace struct {
	ID        uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	Name        string    `gorm:"not null" json:"name"`
	Description string    `json:"description"`
	OwnerID     uuid.UUID `gorm:"type:uuid;not null;index" json:"owner_id"`
	Kind        string    `gorm:"default:'fifo';index" json:"kind"`

	// Aggregates populated by the directory, not stored
	MemberCount int64 `gorm:"-" json:"member_count"`
	StoreCount  int64 `gorm:"-" json:"store_count"`

	// Relations
	Owner   User              `json:"-"`
	Members []WorkspaceMember `gorm:"foreignKey:WorkspaceID" json:"members,omitempty"`
	Stores  []Store           `gorm:"foreignKey:WorkspaceID" json:"stores,omitempty"`
}

func (w *Workspace) BeforeCreate(tx *gorm.DB) error {
	if w.ID == uuid.Nil {
		w.ID = uuid.New()
	}
	return nil
}

// WorkspaceMember links a person to a workspace with a role, a capability
// set, and an optional kiosk PIN
type WorkspaceMember struct {
	ID        uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	WorkspaceID uuid.UUID `gorm:"type:uuid;not null;index" json:"workspace_id"`
	UserID      uuid.UUID `gorm:"type:uuid;not null;index" json:"user_id"`

	Role        string `gorm:"default:'member'" json:"role"` // member, admin
	CanReceive  bool   `gorm:"default:true" json:"can_receive"`
	CanTransfer bool   `gorm:"default:true" json:"can_transfer"`
	CanManage   bool   `gorm:"default:false" json:"can_manage"`
	CanDelete   bool   `gorm:"default:false" json:"can_delete"`

	// Kiosk sign-in code, >= 4 digits, unique per workspace. Absent until
	// an owner assigns one.
	PINCode *string `gorm:"column:pin_code" json:"pin_code,omitempty"`

	// Relations
	Workspace Workspace `json:"-"`
	User      User      `json:"-"`
}

func (m *WorkspaceMember) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}

// ApplyRoleDefaults sets the capability set derived from a role: admins get
// management and deletion rights, plain members do not. Approval of an
// access request always produces the member defaults.
func (m *WorkspaceMember) ApplyRoleDefaults(role string) {
	m.Role = role
	m.CanReceive = true
	m.CanTransfer = true
	m.CanManage = role == RoleAdmin
	m.CanDelete = role == RoleAdmin
}

// Store is a stock location inside a workspace
type Store struct {
	ID        uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	WorkspaceID uuid.UUID `gorm:"type:uuid;not null;index" json:"workspace_id"`
	Name        string    `gorm:"not null" json:"name"`

	// Relations
	Workspace Workspace `json:"-"`
}

func (s *Store) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

// JoinCode is a durable per-workspace artifact encoded into a scannable
// code. The encoded URL always carries the workspace id, never the code's
// own id, so the scan target survives code rotation.
type JoinCode struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`

	WorkspaceID uuid.UUID `gorm:"type:uuid;not null;index" json:"workspace_id"`
	Purpose     string    `gorm:"not null;default:'workspace_access'" json:"purpose"`
	CreatedByID uuid.UUID `gorm:"type:uuid;not null" json:"created_by_id"`

	// Relations
	Workspace Workspace `json:"-"`
	CreatedBy User      `json:"-"`
}

func (jc *JoinCode) BeforeCreate(tx *gorm.DB) error {
	if jc.ID == uuid.Nil {
		jc.ID = uuid.New()
	}
	return nil
}

// AccessRequest is a pending ask by a non-member to join a workspace
type AccessRequest struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	WorkspaceID    uuid.UUID  `gorm:"type:uuid;not null;index" json:"workspace_id"`
	RequesterID    uuid.UUID  `gorm:"type:uuid;not null;index" json:"requester_id"`
	RequesterEmail string     `json:"requester_email"`
	JoinCodeID     *uuid.UUID `gorm:"type:uuid" json:"join_code_id,omitempty"`

	Status     string     `gorm:"default:'pending';index" json:"status"` // pending, approved, rejected
	ReviewedBy *uuid.UUID `gorm:"type:uuid" json:"reviewed_by,omitempty"`
	ReviewedAt *time.Time `json:"reviewed_at,omitempty"`

	// Relations
	Workspace Workspace `json:"-"`
	Requester User      `json:"-"`
	JoinCode  *JoinCode `json:"-"`
}

func (ar *AccessRequest) BeforeCreate(tx *gorm.DB) error {
	if ar.ID == uuid.Nil {
		ar.ID = uuid.New()
	}
	return nil
}
