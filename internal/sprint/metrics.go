package sprint

import (
	"context"
	"fmt"
	"math"

	"github.com/gestia/gestia/internal/domain"
)

// BurndownPoint is one day of the ideal burndown line.
type BurndownPoint struct {
	Date           domain.CalendarDate
	IdealRemaining float64
}

// Burndown is the day-by-day projection of remaining story points across a
// sprint's planned duration. Only the ideal line is computed: actual daily
// remaining points would need a per-day snapshot table, which does not
// exist yet.
type Burndown struct {
	SprintID    int64
	TotalPoints int
	TotalDays   int
	Series      []BurndownPoint
}

// Metrics are the derived progress indicators of one sprint.
type Metrics struct {
	SprintID      int64
	State         domain.SprintState
	TotalDays     int
	ElapsedDays   int
	RemainingDays int

	TotalStories      int
	CompletedStories  int
	InProgressStories int
	PendingStories    int

	TotalPoints      int
	PointsCompleted  int
	PointsInProgress int
	PointsPending    int

	Velocity         int
	ProgressByCount  float64
	ProgressByPoints float64
}

// Burndown computes the ideal burndown line for the sprint: one entry per
// calendar day from start to end inclusive, linearly interpolated from the
// committed points down to zero on the final day.
func (s *Service) Burndown(ctx context.Context, sprintID int64) (*Burndown, error) {
	sp, err := s.sprints.GetByID(ctx, sprintID)
	if err != nil {
		return nil, err
	}

	stories, err := s.stories.ListBySprint(ctx, sprintID)
	if err != nil {
		return nil, fmt.Errorf("sprint.Burndown: %w", err)
	}

	totalPoints := 0
	for _, st := range stories {
		totalPoints += st.StoryPoints
	}

	totalDays := sp.StartDate.DaysUntil(sp.EndDate)
	perDay := 0.0
	if totalDays > 0 {
		perDay = float64(totalPoints) / float64(totalDays)
	}

	series := make([]BurndownPoint, 0, totalDays+1)
	for i := 0; i <= totalDays; i++ {
		series = append(series, BurndownPoint{
			Date:           sp.StartDate.AddDays(i),
			IdealRemaining: round2(math.Max(0, float64(totalPoints)-perDay*float64(i))),
		})
	}

	return &Burndown{
		SprintID:    sprintID,
		TotalPoints: totalPoints,
		TotalDays:   totalDays,
		Series:      series,
	}, nil
}

// Metrics computes day counters, story/point buckets, velocity and progress
// percentages for the sprint. Read-only: never mutates state.
func (s *Service) Metrics(ctx context.Context, sprintID int64) (*Metrics, error) {
	sp, err := s.sprints.GetByID(ctx, sprintID)
	if err != nil {
		return nil, err
	}

	stories, err := s.stories.ListBySprint(ctx, sprintID)
	if err != nil {
		return nil, fmt.Errorf("sprint.Metrics: %w", err)
	}

	m := &Metrics{
		SprintID:  sprintID,
		State:     sp.State,
		TotalDays: sp.StartDate.DaysUntil(sp.EndDate),
	}

	today := domain.DateOf(s.now())
	m.ElapsedDays = clampNonNegative(sp.StartDate.DaysUntil(today))
	m.RemainingDays = clampNonNegative(today.DaysUntil(sp.EndDate))

	for _, st := range stories {
		m.TotalStories++
		m.TotalPoints += st.StoryPoints

		switch {
		case st.State.Completed():
			m.CompletedStories++
			m.PointsCompleted += st.StoryPoints
		case st.State.InProgress():
			m.InProgressStories++
			m.PointsInProgress += st.StoryPoints
		default:
			m.PendingStories++
			m.PointsPending += st.StoryPoints
		}
	}

	m.Velocity = m.PointsCompleted
	if m.TotalStories > 0 {
		m.ProgressByCount = round2(float64(m.CompletedStories) / float64(m.TotalStories) * 100)
	}
	if m.TotalPoints > 0 {
		m.ProgressByPoints = round2(float64(m.PointsCompleted) / float64(m.TotalPoints) * 100)
	}

	return m, nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func clampNonNegative(v int) int {
	if v < 0 {
		return 0
	}
	return v
}
