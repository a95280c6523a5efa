package calls

import (
	"context"
	"fmt"
	"sort"
	"time"

	"baitboard/pkg/utils"

	"github.com/redis/go-redis/v9"
)

// DashboardStats is the aggregate view the dashboard landing page renders.
// TimeWastedSeconds is the sum of completed-call durations: the headline
// number of the whole site.
type DashboardStats struct {
	TotalCalls      int `json:"totalCalls"`
	CompletedCalls  int `json:"completedCalls"`
	FailedCalls     int `json:"failedCalls"`
	NoAnswerCalls   int `json:"noAnswerCalls"`
	InProgressCalls int `json:"inProgressCalls"`
	RingingCalls    int `json:"ringingCalls"`

	RecordedCalls int `json:"recordedCalls"`
	PublicCalls   int `json:"publicCalls"`
	FeaturedCalls int `json:"featuredCalls"`

	TimeWastedSeconds      int `json:"timeWastedSeconds"`
	AverageDurationSeconds int `json:"averageDurationSeconds"`
	LongestCallSeconds     int `json:"longestCallSeconds"`
}

type LeaderboardEntry struct {
	CallID          string `json:"callId"`
	Title           string `json:"title,omitempty"`
	PersonaID       string `json:"personaId,omitempty"`
	DurationSeconds int    `json:"durationSeconds"`
	Rating          *int   `json:"rating,omitempty"`
}

type Leaderboard struct {
	ByDuration []LeaderboardEntry `json:"byDuration"`
	ByRating   []LeaderboardEntry `json:"byRating"`
}

// StatsService computes read-side aggregations. Results are cached in redis
// with a short TTL rather than invalidated on writes; staleness of a few
// seconds is fine for a stats page and keeps the write path untouched.
type StatsService struct {
	repo Repository
	rdb  *redis.Client
	ttl  time.Duration
}

// NewStatsService wires the aggregation service. rdb may be nil, in which
// case every request recomputes.
func NewStatsService(repo Repository, rdb *redis.Client, ttl time.Duration) *StatsService {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &StatsService{repo: repo, rdb: rdb, ttl: ttl}
}

const (
	cacheKeyDashboard   = "baitboard:stats:dashboard"
	cacheKeyLeaderboard = "baitboard:stats:leaderboard:%d"
)

func (s *StatsService) Dashboard(ctx context.Context) (DashboardStats, error) {
	var cached DashboardStats
	if s.cacheGet(ctx, cacheKeyDashboard, &cached) {
		return cached, nil
	}

	rows, _, err := s.repo.List(ctx, ListFilter{})
	if err != nil {
		return DashboardStats{}, err
	}

	var out DashboardStats
	for _, c := range rows {
		out.TotalCalls++
		switch c.Status {
		case StatusCompleted:
			out.CompletedCalls++
		case StatusFailed:
			out.FailedCalls++
		case StatusNoAnswer:
			out.NoAnswerCalls++
		case StatusInProgress:
			out.InProgressCalls++
		case StatusRinging:
			out.RingingCalls++
		}
		if c.RecordingURL != "" {
			out.RecordedCalls++
		}
		if c.Public {
			out.PublicCalls++
		}
		if c.Featured {
			out.FeaturedCalls++
		}
		if c.DurationSeconds != nil {
			d := *c.DurationSeconds
			out.TimeWastedSeconds += d
			if d > out.LongestCallSeconds {
				out.LongestCallSeconds = d
			}
		}
	}
	if out.CompletedCalls > 0 {
		out.AverageDurationSeconds = out.TimeWastedSeconds / out.CompletedCalls
	}

	s.cacheSet(ctx, cacheKeyDashboard, out)
	return out, nil
}

func (s *StatsService) Leaderboard(ctx context.Context, limit int) (Leaderboard, error) {
	if limit <= 0 || limit > 50 {
		limit = 10
	}
	key := fmt.Sprintf(cacheKeyLeaderboard, limit)

	var cached Leaderboard
	if s.cacheGet(ctx, key, &cached) {
		return cached, nil
	}

	rows, _, err := s.repo.List(ctx, ListFilter{Status: StatusCompleted})
	if err != nil {
		return Leaderboard{}, err
	}

	byDuration := make([]LeaderboardEntry, 0, len(rows))
	byRating := make([]LeaderboardEntry, 0, len(rows))
	for _, c := range rows {
		e := LeaderboardEntry{CallID: c.ID, Title: c.Title, PersonaID: c.PersonaID, Rating: c.Rating}
		if c.DurationSeconds != nil {
			e.DurationSeconds = *c.DurationSeconds
			byDuration = append(byDuration, e)
		}
		if c.Rating != nil {
			byRating = append(byRating, e)
		}
	}
	sort.Slice(byDuration, func(i, j int) bool { return byDuration[i].DurationSeconds > byDuration[j].DurationSeconds })
	sort.Slice(byRating, func(i, j int) bool {
		if *byRating[i].Rating == *byRating[j].Rating {
			return byRating[i].DurationSeconds > byRating[j].DurationSeconds
		}
		return *byRating[i].Rating > *byRating[j].Rating
	})
	if len(byDuration) > limit {
		byDuration = byDuration[:limit]
	}
	if len(byRating) > limit {
		byRating = byRating[:limit]
	}

	out := Leaderboard{ByDuration: byDuration, ByRating: byRating}
	s.cacheSet(ctx, key, out)
	return out, nil
}

func (s *StatsService) cacheGet(ctx context.Context, key string, out any) bool {
	if s.rdb == nil {
		return false
	}
	// Any error, redis trouble included, falls through to a recompute;
	// the cache must never take the stats page down.
	return utils.CacheGetJSON(ctx, s.rdb, key, out) == nil
}

func (s *StatsService) cacheSet(ctx context.Context, key string, v any) {
	if s.rdb == nil {
		return
	}
	_ = utils.CacheSetJSON(ctx, s.rdb, key, v, s.ttl)
}
