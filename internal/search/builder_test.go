package search

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"talentmatch/internal/storage"
)

type fakeBuilderStore struct {
	experiences []storage.ExperienceRow
	projects    []storage.ProjectRow
	recency     []storage.SkillRecency

	gotLexical  string
	gotVector   []float32
	gotFilters  []byte
	gotFeatures []byte
	gotVersion  int
}

func (f *fakeBuilderStore) GetExperiences(context.Context, int64) ([]storage.ExperienceRow, error) {
	return f.experiences, nil
}

func (f *fakeBuilderStore) GetProjects(context.Context, int64) ([]storage.ProjectRow, error) {
	return f.projects, nil
}

func (f *fakeBuilderStore) ListSkillRecency(context.Context, int64) ([]storage.SkillRecency, error) {
	return f.recency, nil
}

func (f *fakeBuilderStore) UpsertIndex(_ context.Context, _ int64, lexicalText string,
	embedding []float32, filtersJSON, featuresJSON []byte, version int) error {
	f.gotLexical = lexicalText
	f.gotVector = embedding
	f.gotFilters = filtersJSON
	f.gotFeatures = featuresJSON
	f.gotVersion = version
	return nil
}

func TestRebuildComposesIndexRow(t *testing.T) {
	store := &fakeBuilderStore{
		experiences: []storage.ExperienceRow{
			{Company: "Initech", Title: "SRE", StartDate: datePtr(2015, 1, 1), EndDate: datePtr(2019, 1, 1)},
		},
		recency: []storage.SkillRecency{
			{Skill: "Go", LastUsed: date(2025, 1, 1)},
			{Skill: "Redis", LastUsed: date(2020, 1, 1)},
			{Skill: "Kubernetes", LastUsed: date(2024, 1, 1)},
			{Skill: "Perl", LastUsed: date(2010, 1, 1)},
		},
	}
	b := NewBuilder(store, &fakeEmbedder{}, 2, zaptest.NewLogger(t))

	c := &storage.Candidate{
		ID: 5, Name: "Jane Doe", CurrentTitle: "Backend Engineer", CurrentCompany: "Acme",
		Location: "Berlin", YearsExp: 8, Skills: []string{"Go", "Kubernetes"},
	}
	require.NoError(t, b.Rebuild(context.Background(), c))

	assert.Contains(t, store.gotLexical, "Jane Doe")
	assert.Contains(t, store.gotLexical, "Backend Engineer")
	assert.Contains(t, store.gotLexical, "Initech")
	assert.Contains(t, store.gotLexical, "Go Kubernetes")
	assert.NotNil(t, store.gotVector)
	assert.Equal(t, 2, store.gotVersion)

	var filters filterDoc
	require.NoError(t, json.Unmarshal(store.gotFilters, &filters))
	assert.Equal(t, "Berlin", filters.Location)
	assert.Equal(t, 8, filters.YearsExp)

	var features featureDoc
	require.NoError(t, json.Unmarshal(store.gotFeatures, &features))
	assert.Equal(t, []string{"Go", "Kubernetes", "Redis"}, features.TopSkills)
	assert.Equal(t, []string{"Acme", "Initech"}, features.RecentCompanies)
}

func TestRebuildEmbeddingFailureKeepsLexicalRefresh(t *testing.T) {
	store := &fakeBuilderStore{}
	b := NewBuilder(store, &fakeEmbedder{err: errors.New("rate limited")}, 1, zaptest.NewLogger(t))

	c := &storage.Candidate{ID: 5, Name: "Jane Doe"}
	require.NoError(t, b.Rebuild(context.Background(), c))

	assert.Nil(t, store.gotVector, "a nil vector tells the store to keep the previous embedding")
	assert.Contains(t, store.gotLexical, "Jane Doe")
}
