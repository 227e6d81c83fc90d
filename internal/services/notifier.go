package services

import (
	"context"

	domainagg "github.com/yungbote/famspace-backend/internal/domain/aggregates"
	"github.com/yungbote/famspace-backend/internal/realtime"
)

// GrowthNotifier turns committed growth writes into realtime events.
type GrowthNotifier interface {
	ActivitySubmitted(ctx context.Context, res domainagg.SubmitActivityResult)
}

type growthNotifier struct {
	emit Emitter
}

func NewGrowthNotifier(emit Emitter) GrowthNotifier {
	return &growthNotifier{emit: emit}
}

// ActivitySubmitted sends the activity to the family's activity channel and the resulting
// plant state to its plant channel.
func (n *growthNotifier) ActivitySubmitted(ctx context.Context, res domainagg.SubmitActivityResult) {
	if n == nil || n.emit == nil {
		return
	}
	ev := ActivityEvents(res)
	n.emit.Emit(ctx, ev[0])
	n.emit.Emit(ctx, ev[1])
}

// ActivityEvents builds the activity and plant messages for one submission.
func ActivityEvents(res domainagg.SubmitActivityResult) [2]realtime.Message {
	familyID := res.Plant.FamilySpaceID
	base := realtime.Event{
		FamilyID:     familyID,
		MemberID:     res.Member.ID,
		MemberName:   res.Member.DisplayName,
		AvatarURL:    res.Member.AvatarURL,
		Level:        res.Plant.Level,
		Experience:   res.Plant.Experience,
		Threshold:    res.Threshold,
		LevelUp:      res.LevelUp,
		Completed:    res.Plant.Completed,
		ActivityType: res.Record.ActivityType,
		Points:       res.Record.Points,
		OccurredAt:   res.Record.CreatedAt.UTC(),
	}

	activity := base
	activity.Type = realtime.EventActivitySubmitted

	plant := base
	switch {
	case res.Plant.Completed:
		plant.Type = realtime.EventPlantCompleted
	case res.LevelUp:
		plant.Type = realtime.EventPlantLeveledUp
	default:
		plant.Type = realtime.EventPlantGrew
	}

	return [2]realtime.Message{
		{Channel: realtime.ActivityChannel(familyID), Event: activity},
		{Channel: realtime.PlantChannel(familyID), Event: plant},
	}
}
