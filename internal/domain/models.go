package domain

import "time"

// ContestStatus tracks a contest through its lifecycle.
type ContestStatus string

const (
	ContestDraft     ContestStatus = "draft"
	ContestActive    ContestStatus = "active"
	ContestCompleted ContestStatus = "completed"
	ContestArchived  ContestStatus = "archived"
)

// Contest is authored by the administration surface; the engine only reads it,
// except for lifecycle status/date stamps.
type Contest struct {
	ID                 string        `json:"id"`
	Title              string        `json:"title"`
	Status             ContestStatus `json:"status"`
	StartDate          time.Time     `json:"startDate"`
	EndDate            time.Time     `json:"endDate"`
	DrawDate           time.Time     `json:"drawDate"`
	RequiredPercentage int           `json:"requiredPercentage"` // 0 means "use the global setting"
	MinimumRank        string        `json:"minimumRank,omitempty"`
}

// Question is a single MCQ within a contest. A non-empty ArticleURL makes the
// read gate mandatory before an answer is accepted.
type Question struct {
	ID            string   `json:"id"`
	ContestID     string   `json:"contestId"`
	Text          string   `json:"text"`
	Options       []string `json:"options"`
	CorrectAnswer string   `json:"correctAnswer"`
	ArticleURL    string   `json:"articleUrl,omitempty"`
	Ordering      int      `json:"ordering"`
}

// Catalog bundles a contest with its questions, the unit the read-path cache works in.
type Catalog struct {
	Contest   Contest    `json:"contest"`
	Questions []Question `json:"questions"`
}

// ParticipationStatus tracks a single participant within a single contest.
type ParticipationStatus string

const (
	ParticipationPending    ParticipationStatus = "pending"
	ParticipationCompleted  ParticipationStatus = "completed"
	ParticipationWinner     ParticipationStatus = "winner"
	ParticipationIneligible ParticipationStatus = "ineligible"
)

// Participation is unique per (contest, user). Score and status are owned by the
// scoring engine; only the draw selector may set ParticipationWinner.
type Participation struct {
	ContestID   string              `json:"contestId"`
	UserID      string              `json:"userId"`
	Email       string              `json:"email"`
	Attempts    int                 `json:"attempts"`
	Score       int                 `json:"score"` // 0..100
	Streak      int                 `json:"streak"`
	BestStreak  int                 `json:"bestStreak"`
	Status      ParticipationStatus `json:"status"`
	CompletedAt *time.Time          `json:"completedAt,omitempty"`
}

// AnswerRecord is append-only, unique per (contest, user, question, attempt).
type AnswerRecord struct {
	ContestID     string    `json:"contestId"`
	UserID        string    `json:"userId"`
	QuestionID    string    `json:"questionId"`
	Answer        string    `json:"answer"`
	Correct       bool      `json:"correct"`
	AttemptNumber int       `json:"attemptNumber"`
	SubmittedAt   time.Time `json:"submittedAt"`
}

// AnswerSubmission models the answer signal from clients.
type AnswerSubmission struct {
	QuestionID    string
	Answer        string
	AttemptNumber int
}

// AnswerResult summarizes the outcome of a submission for a single participant.
type AnswerResult struct {
	QuestionID    string `json:"questionId"`
	Correct       bool   `json:"correct"`
	PointsAwarded int    `json:"pointsAwarded"`
	Score         int    `json:"score"`
	Streak        int    `json:"streak"`
	Completed     bool   `json:"completed"`
}

// LedgerEntry is an immutable point-award event. The ledger is the sole source
// of truth for point totals.
type LedgerEntry struct {
	UserID    string    `json:"userId"`
	Points    int       `json:"points"`
	Source    string    `json:"source"`
	ContestID string    `json:"contestId"`
	Streak    int       `json:"streak"`
	AwardedAt time.Time `json:"awardedAt"`
}

// RewardAggregate is a derived cache of a user's totals, always recomputable
// from the ledger and never allowed to drift from it.
type RewardAggregate struct {
	UserID              string `json:"userId"`
	TotalPoints         int    `json:"totalPoints"`
	CurrentStreak       int    `json:"currentStreak"`
	BestStreak          int    `json:"bestStreak"`
	CurrentRank         string `json:"currentRank"`
	ExtraParticipations int    `json:"extraParticipations"`
	Version             int64  `json:"-"` // optimistic-concurrency token, storage detail
}

// DrawEntry is one winner selection, append-only.
type DrawEntry struct {
	ContestID string    `json:"contestId"`
	UserID    string    `json:"userId"`
	Email     string    `json:"email"`
	DrawDate  time.Time `json:"drawDate"`
}

// Settings holds the global defaults contests fall back to.
type Settings struct {
	RequiredPercentage int `json:"requiredPercentage"`
	DefaultAttempts    int `json:"defaultAttempts"`
}

const (
	DefaultRequiredPercentage = 70
	DefaultAttempts           = 3
)

// Threshold resolves the draw-eligibility percentage for a contest, preferring
// the contest override, then the global setting, then the built-in default.
func Threshold(c Contest, s Settings) int {
	if c.RequiredPercentage > 0 {
		return c.RequiredPercentage
	}
	if s.RequiredPercentage > 0 {
		return s.RequiredPercentage
	}
	return DefaultRequiredPercentage
}

// AttemptsAllowance resolves the per-question retry allowance.
func AttemptsAllowance(s Settings) int {
	if s.DefaultAttempts > 0 {
		return s.DefaultAttempts
	}
	return DefaultAttempts
}
