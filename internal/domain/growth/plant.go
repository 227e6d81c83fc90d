package growth

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Kind is the species of a plant. Only two are offered.
type Kind string

const (
	KindFlower Kind = "flower"
	KindTree   Kind = "tree"
)

// ParseKind resolves a client supplied kind. An empty value selects the default flower.
func ParseKind(raw string) (Kind, error) {
	switch Kind(strings.ToLower(strings.TrimSpace(raw))) {
	case "", KindFlower:
		return KindFlower, nil
	case KindTree:
		return KindTree, nil
	default:
		return "", ErrUnknownKind
	}
}

// Plant is the growth entity shared by a family.
//
// Growing: Completed=false, 1 <= Level < CompletionLevel.
// Completed: Completed=true, Level == CompletionLevel. Claims are tracked per member in RewardClaim.
type Plant struct {
	ID            uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	FamilySpaceID uuid.UUID  `gorm:"type:uuid;column:family_space_id;not null;index" json:"family_space_id"`
	Kind          Kind       `gorm:"column:kind;not null" json:"kind"`
	Level         int        `gorm:"column:level;not null;default:1" json:"level"`
	Experience    int        `gorm:"column:experience;not null;default:0" json:"experience"`
	Completed     bool       `gorm:"column:completed;not null;default:false" json:"completed"`
	CompletedAt   *time.Time `gorm:"column:completed_at" json:"completed_at,omitempty"`
	Version       int        `gorm:"column:version;not null;default:0" json:"-"`
	CreatedAt     time.Time  `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time  `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

func (Plant) TableName() string { return "plant" }

// ActivityRecord is an append-only log entry. (MemberID, ActivityType, ActivityDay) is unique.
type ActivityRecord struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	MemberID      uuid.UUID `gorm:"type:uuid;column:member_id;not null;uniqueIndex:idx_activity_member_type_day,priority:1" json:"member_id"`
	ActivityType  string    `gorm:"column:activity_type;not null;uniqueIndex:idx_activity_member_type_day,priority:2" json:"activity_type"`
	ActivityDay   string    `gorm:"column:activity_day;not null;uniqueIndex:idx_activity_member_type_day,priority:3" json:"activity_day"`
	FamilySpaceID uuid.UUID `gorm:"type:uuid;column:family_space_id;not null;index" json:"family_space_id"`
	PlantID       uuid.UUID `gorm:"type:uuid;column:plant_id;not null;index" json:"plant_id"`
	Points        int       `gorm:"column:points;not null" json:"points"`
	CreatedAt     time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
}

func (ActivityRecord) TableName() string { return "activity_record" }

// RewardClaim records a member's reward for a completed plant. (MemberID, PlantID) is unique.
type RewardClaim struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	MemberID      uuid.UUID `gorm:"type:uuid;column:member_id;not null;uniqueIndex:idx_reward_member_plant,priority:1" json:"member_id"`
	PlantID       uuid.UUID `gorm:"type:uuid;column:plant_id;not null;uniqueIndex:idx_reward_member_plant,priority:2" json:"plant_id"`
	FamilySpaceID uuid.UUID `gorm:"type:uuid;column:family_space_id;not null;index" json:"family_space_id"`
	RewardID      string    `gorm:"column:reward_id;not null" json:"reward_id"`
	ClaimedAt     time.Time `gorm:"column:claimed_at;not null" json:"claimed_at"`
}

func (RewardClaim) TableName() string { return "reward_claim" }

// DayKey formats the calendar day of t in loc, the unit of activity idempotency.
func DayKey(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	return t.In(loc).Format("2006-01-02")
}
