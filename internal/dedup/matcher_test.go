package dedup

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"talentmatch/internal/cv"
	"talentmatch/internal/storage"
)

type fakeMatcherStore struct {
	byContact []*storage.Candidate
	byName    []*storage.Candidate
}

func (f *fakeMatcherStore) FindByContact(_ context.Context, _ int64, _, _ string) ([]*storage.Candidate, error) {
	return f.byContact, nil
}

func (f *fakeMatcherStore) FindByName(_ context.Context, _ int64, _ string) ([]*storage.Candidate, error) {
	return f.byName, nil
}

func TestMatchByEmail(t *testing.T) {
	existing := &storage.Candidate{ID: 1, Name: "Jane Doe", Email: "jane@example.com"}
	m := NewMatcher(&fakeMatcherStore{byContact: []*storage.Candidate{existing}})

	res, err := m.Match(context.Background(), 10, &cv.ParsedResume{Name: "J. Doe", Email: "Jane@Example.com "})
	require.NoError(t, err)
	assert.Equal(t, Match, res.Decision)
	assert.Equal(t, existing, res.Candidate)
	assert.Equal(t, 1.0, res.Confidence)
	assert.Equal(t, "email", res.Signal)
}

func TestMatchContactConflictIsAmbiguous(t *testing.T) {
	m := NewMatcher(&fakeMatcherStore{byContact: []*storage.Candidate{
		{ID: 1, Email: "jane@example.com"},
		{ID: 2, Phone: "4930555"},
	}})

	res, err := m.Match(context.Background(), 10, &cv.ParsedResume{Email: "jane@example.com", Phone: "+49 30 555"})
	require.NoError(t, err)
	assert.Equal(t, Ambiguous, res.Decision)
}

func TestMatchByNameAndCompany(t *testing.T) {
	existing := &storage.Candidate{ID: 3, Name: "Jane Doe", CurrentCompany: "Acme GmbH"}
	m := NewMatcher(&fakeMatcherStore{byName: []*storage.Candidate{existing}})

	res, err := m.Match(context.Background(), 10, &cv.ParsedResume{Name: "Jane Doe", CurrentCompany: "Acme GmbH"})
	require.NoError(t, err)
	assert.Equal(t, Match, res.Decision)
	assert.Equal(t, existing, res.Candidate)
	assert.Equal(t, "name+company", res.Signal)
}

func TestMatchDifferentCompanyIsNoMatch(t *testing.T) {
	m := NewMatcher(&fakeMatcherStore{byName: []*storage.Candidate{
		{ID: 3, Name: "Jane Doe", CurrentCompany: "Initech"},
	}})

	res, err := m.Match(context.Background(), 10, &cv.ParsedResume{Name: "Jane Doe", CurrentCompany: "Acme GmbH"})
	require.NoError(t, err)
	assert.Equal(t, NoMatch, res.Decision)
}

func TestMatchTwoWeakCandidatesIsAmbiguous(t *testing.T) {
	m := NewMatcher(&fakeMatcherStore{byName: []*storage.Candidate{
		{ID: 3, Name: "Jane Doe", CurrentCompany: "Acme GmbH"},
		{ID: 4, Name: "Jane Doe", CurrentCompany: "Acme GmbH"},
	}})

	res, err := m.Match(context.Background(), 10, &cv.ParsedResume{Name: "Jane Doe", CurrentCompany: "Acme GmbH"})
	require.NoError(t, err)
	assert.Equal(t, Ambiguous, res.Decision)
}

func TestMatchNothingKnown(t *testing.T) {
	m := NewMatcher(&fakeMatcherStore{})

	res, err := m.Match(context.Background(), 10, &cv.ParsedResume{Name: "Jane Doe"})
	require.NoError(t, err)
	assert.Equal(t, NoMatch, res.Decision)
}

func TestSimilarityRatio(t *testing.T) {
	assert.Equal(t, 1.0, similarityRatio("Acme", "acme"))
	assert.Greater(t, similarityRatio("Acme GmbH", "ACME Gmbh."), weakSimilarityThreshold)
	assert.Less(t, similarityRatio("Acme GmbH", "Initech"), weakSimilarityThreshold)
	assert.Equal(t, 0.0, similarityRatio("A", "Acme"))
}
