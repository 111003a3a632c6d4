package feeds

import (
	"time"

	"github.com/dmitrymomot/pulse/pkg/coalesce"
)

// ScoresResource is the resource name scores are cached under.
const ScoresResource = "scores"

// MatchStatus is the lifecycle stage of a match.
type MatchStatus string

const (
	MatchScheduled MatchStatus = "scheduled"
	MatchLive      MatchStatus = "live"
	MatchCompleted MatchStatus = "completed"
)

// Score is the scoreboard of one match.
type Score struct {
	MatchID   string      `json:"match_id"`
	Home      string      `json:"home"`
	Away      string      `json:"away"`
	Status    MatchStatus `json:"status"`
	HomeScore int         `json:"home_score"`
	AwayScore int         `json:"away_score"`
}

// Live reports whether the match is in progress.
func (s Score) Live() bool {
	return s.Status == MatchLive
}

// ScorePolicy caches live matches for live and everything else for settled.
func ScorePolicy(live, settled time.Duration) coalesce.Policy[Score] {
	return coalesce.Volatile(Score.Live, live, settled)
}
