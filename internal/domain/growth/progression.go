package growth

const (
	// CompletionLevel is reached by leveling up from MaxGrowingLevel.
	CompletionLevel = 5
	MaxGrowingLevel = CompletionLevel - 1

	MinProgressionMembers = 2
	MaxProgressionMembers = 5
)

// Activity types that earn points.
const (
	ActivityAttendance = "attendance"
	ActivityWater      = "water"
	ActivitySunlight   = "sunlight"
	ActivityNutrient   = "nutrient"
	ActivityQuiz       = "quiz"
	ActivityPhoto      = "photo"
	ActivityDiary      = "diary"
	ActivityMission    = "mission"
)

var activityPoints = map[string]int{
	ActivityAttendance: 5,
	ActivityWater:      5,
	ActivitySunlight:   5,
	ActivityNutrient:   10,
	ActivityQuiz:       10,
	ActivityPhoto:      10,
	ActivityDiary:      10,
	ActivityMission:    15,
}

// levelThresholds[members-MinProgressionMembers][level-1]; rows and columns strictly increase.
var levelThresholds = [MaxProgressionMembers - MinProgressionMembers + 1][MaxGrowingLevel]int{
	{150, 300, 450, 600},
	{200, 400, 600, 800},
	{250, 500, 750, 1000},
	{300, 600, 900, 1200},
}

// Points returns the experience earned by one activity. Unknown types earn nothing.
func Points(activityType string) int {
	return activityPoints[activityType]
}

// KnownActivity reports whether activityType has an entry in the points table.
func KnownActivity(activityType string) bool {
	_, ok := activityPoints[activityType]
	return ok
}

// Threshold is the experience needed to leave level with the given household size.
func Threshold(members, level int) (int, error) {
	if members < MinProgressionMembers || members > MaxProgressionMembers {
		return 0, ErrUnsupportedProgression
	}
	if level < 1 || level > MaxGrowingLevel {
		return 0, ErrUnsupportedProgression
	}
	return levelThresholds[members-MinProgressionMembers][level-1], nil
}

// Step is the outcome of applying points to a growing plant.
type Step struct {
	Level      int
	Experience int
	Threshold  int
	LevelUp    bool
	Completed  bool
}

// Advance applies points at (level, experience). Reaching the threshold bumps the level and
// resets experience to zero; the surplus is dropped, not carried into the next level.
func Advance(members, level, experience, points int) (Step, error) {
	threshold, err := Threshold(members, level)
	if err != nil {
		return Step{}, err
	}
	next := experience + points
	if next < threshold {
		return Step{Level: level, Experience: next, Threshold: threshold}, nil
	}
	out := Step{Level: level + 1, Experience: 0, LevelUp: true}
	if out.Level >= CompletionLevel {
		out.Level = CompletionLevel
		out.Completed = true
		out.Threshold = threshold
		return out, nil
	}
	out.Threshold, err = Threshold(members, out.Level)
	if err != nil {
		return Step{}, err
	}
	return out, nil
}
