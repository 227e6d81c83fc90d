package growth

import (
	"hash/fnv"

	"github.com/google/uuid"
)

// Rewards is the fixed candidate set handed out for a completed plant.
var Rewards = []string{
	"data_coupon_1gb",
	"coffee_voucher",
	"movie_ticket",
	"convenience_store_voucher",
}

// RewardPicker selects the reward a member receives for a plant.
type RewardPicker interface {
	Pick(memberID, plantID uuid.UUID) string
}

// HashPicker picks deterministically from an FNV-1a hash of (member, plant), so retries and
// replays of the same claim always name the same reward.
type HashPicker struct {
	Candidates []string
}

func (p HashPicker) Pick(memberID, plantID uuid.UUID) string {
	candidates := p.Candidates
	if len(candidates) == 0 {
		candidates = Rewards
	}
	h := fnv.New32a()
	_, _ = h.Write(memberID[:])
	_, _ = h.Write(plantID[:])
	return candidates[h.Sum32()%uint32(len(candidates))]
}
