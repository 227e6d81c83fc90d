package realtime

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Channel kinds a client can subscribe to. Each family gets one channel per kind.
const (
	KindPlant    = "plant"
	KindActivity = "activity"
)

type EventType string

const (
	EventActivitySubmitted EventType = "ActivitySubmitted"
	EventPlantGrew         EventType = "PlantGrew"
	EventPlantLeveledUp    EventType = "PlantLeveledUp"
	EventPlantCompleted    EventType = "PlantCompleted"
)

// Event is the payload peers receive for one activity submission.
type Event struct {
	Type         EventType `json:"type"`
	FamilyID     uuid.UUID `json:"family_id"`
	MemberID     uuid.UUID `json:"member_id"`
	MemberName   string    `json:"member_name"`
	AvatarURL    string    `json:"avatar_url"`
	Level        int       `json:"level"`
	Experience   int       `json:"experience"`
	Threshold    int       `json:"threshold"`
	LevelUp      bool      `json:"level_up"`
	Completed    bool      `json:"completed"`
	ActivityType string    `json:"activity_type,omitempty"`
	Points       int       `json:"points"`
	OccurredAt   time.Time `json:"occurred_at"`
}

// Message is an Event addressed to a channel. It is also the envelope carried on the bus.
type Message struct {
	Channel string `json:"channel"`
	Event   Event  `json:"event"`
}

func Channel(kind string, familyID uuid.UUID) string {
	return kind + ":" + familyID.String()
}

func PlantChannel(familyID uuid.UUID) string    { return Channel(KindPlant, familyID) }
func ActivityChannel(familyID uuid.UUID) string { return Channel(KindActivity, familyID) }

// KindOf returns the kind prefix of a channel name.
func KindOf(channel string) string {
	kind, _, _ := strings.Cut(channel, ":")
	return kind
}
