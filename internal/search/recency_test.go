package search

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"talentmatch/internal/cv"
)

func date(y, m, d int) time.Time {
	return time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
}

func datePtr(y, m, d int) *time.Time {
	t := date(y, m, d)
	return &t
}

func TestRecencyScoreFreshWindow(t *testing.T) {
	now := date(2026, 6, 1)
	assert.Equal(t, 1.0, RecencyScore(now, now))
	assert.Equal(t, 1.0, RecencyScore(now.AddDate(0, -11, 0), now))
}

func TestRecencyScoreDecaysMonotonically(t *testing.T) {
	now := date(2026, 6, 1)
	twoYears := RecencyScore(now.AddDate(-2, 0, 0), now)
	fourYears := RecencyScore(now.AddDate(-4, 0, 0), now)

	assert.Less(t, twoYears, 1.0)
	assert.Less(t, fourYears, twoYears)
	assert.GreaterOrEqual(t, fourYears, recencyFloor)
}

func TestRecencyScoreFloor(t *testing.T) {
	now := date(2026, 6, 1)
	assert.Equal(t, recencyFloor, RecencyScore(now.AddDate(-20, 0, 0), now))
}

func TestComputeSkillRecencyKeepsLatestDate(t *testing.T) {
	parsed := &cv.ParsedResume{
		Experiences: []cv.Experience{
			{
				Company:   "Initech",
				StartDate: datePtr(2015, 1, 1),
				EndDate:   datePtr(2018, 6, 30),
				Skills:    []string{"Go", "Redis"},
			},
			{
				Company:   "Acme",
				StartDate: datePtr(2018, 7, 1),
				EndDate:   datePtr(2022, 3, 31),
				Skills:    []string{"Go", "Kubernetes"},
			},
		},
		Projects: []cv.Project{
			{
				Name:      "side project",
				StartDate: datePtr(2023, 1, 1),
				EndDate:   datePtr(2023, 8, 1),
				Skills:    []string{"Redis"},
			},
		},
	}
	recency := ComputeSkillRecency(parsed)
	require.Len(t, recency, 3)

	assert.Equal(t, date(2022, 3, 31), recency["Go"].LastUsed)
	assert.Equal(t, "experience", recency["Go"].Source)

	assert.Equal(t, date(2023, 8, 1), recency["Redis"].LastUsed)
	assert.Equal(t, "project", recency["Redis"].Source)

	assert.Equal(t, date(2022, 3, 31), recency["Kubernetes"].LastUsed)
}

func TestComputeSkillRecencyOngoingEngagementUsesStart(t *testing.T) {
	parsed := &cv.ParsedResume{
		Experiences: []cv.Experience{
			{Company: "Acme", StartDate: datePtr(2021, 1, 1), Skills: []string{"Go"}},
		},
	}

	recency := ComputeSkillRecency(parsed)
	require.Contains(t, recency, "Go")
	assert.Equal(t, date(2021, 1, 1), recency["Go"].LastUsed)
}

func TestComputeSkillRecencySkipsUndatedEngagements(t *testing.T) {
	parsed := &cv.ParsedResume{
		Experiences: []cv.Experience{
			{Company: "Unknown", Skills: []string{"Go"}},
		},
	}

	assert.Empty(t, ComputeSkillRecency(parsed))
}
