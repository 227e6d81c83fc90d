package family

import (
	"time"

	"github.com/google/uuid"
)

// MaxMembers is the household size the product supports.
const MaxMembers = 5

// Space is a household sharing one recommendation context and one plant.
type Space struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name      string    `gorm:"column:name;not null" json:"name"`
	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
}

func (Space) TableName() string { return "family_space" }

// Member is a person in a family space. Member.ID is the identity subject carried in access tokens.
type Member struct {
	ID            uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	FamilySpaceID *uuid.UUID `gorm:"type:uuid;column:family_space_id;index" json:"family_space_id,omitempty"`
	DisplayName   string     `gorm:"column:display_name;not null" json:"display_name"`
	AvatarURL     string     `gorm:"column:avatar_url" json:"avatar_url"`
	PinHash       string     `gorm:"column:pin_hash" json:"-"`
	CreatedAt     time.Time  `gorm:"not null;autoCreateTime" json:"created_at"`
}

func (Member) TableName() string { return "family_member" }

// InFamily reports whether the member belongs to the given space.
func (m *Member) InFamily(familyID uuid.UUID) bool {
	return m != nil && m.FamilySpaceID != nil && *m.FamilySpaceID == familyID && familyID != uuid.Nil
}
