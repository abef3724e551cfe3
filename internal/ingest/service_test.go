package ingest

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"talentmatch/internal/cv"
	"talentmatch/internal/dedup"
	"talentmatch/internal/llm"
	"talentmatch/internal/storage"
)

// hashKey mirrors the per-tenant uniqueness of resume content.
type hashKey struct {
	userID int64
	hash   string
}

type fakeStore struct {
	resumesByHash map[hashKey]*storage.Resume
	candidates    map[int64]*storage.Candidate
	lineage       []storage.MergeLineage
	experiences   []storage.ExperienceRow
	recency       map[string]storage.SkillRecency
	nextID        int64
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		resumesByHash: map[hashKey]*storage.Resume{},
		candidates:    map[int64]*storage.Candidate{},
		recency:       map[string]storage.SkillRecency{},
	}
}

func (f *fakeStore) GetResumeByHash(_ context.Context, userID int64, hash string) (*storage.Resume, error) {
	if r, ok := f.resumesByHash[hashKey{userID, hash}]; ok {
		return r, nil
	}
	return nil, storage.ErrNotFound
}

func (f *fakeStore) CreateResume(_ context.Context, r *storage.Resume) error {
	f.nextID++
	r.ID = f.nextID
	f.resumesByHash[hashKey{r.UserID, r.TextHash}] = r
	return nil
}

func (f *fakeStore) CreateCandidate(_ context.Context, c *storage.Candidate) error {
	f.nextID++
	c.ID = f.nextID
	f.candidates[c.ID] = c
	return nil
}

func (f *fakeStore) GetCandidate(_ context.Context, _ int64, id int64) (*storage.Candidate, error) {
	if c, ok := f.candidates[id]; ok {
		return c, nil
	}
	return nil, storage.ErrNotFound
}

func (f *fakeStore) UpdateCandidate(_ context.Context, c *storage.Candidate) error {
	f.candidates[c.ID] = c
	return nil
}

func (f *fakeStore) InsertExperiences(_ context.Context, rows []storage.ExperienceRow) error {
	f.experiences = append(f.experiences, rows...)
	return nil
}

func (f *fakeStore) InsertProjects(context.Context, []storage.ProjectRow) error { return nil }

func (f *fakeStore) InsertEducation(context.Context, []storage.EducationRow) error { return nil }

func (f *fakeStore) UpsertSkillRecency(_ context.Context, _ int64, dates map[string]storage.SkillRecency) error {
	for k, v := range dates {
		f.recency[k] = v
	}
	return nil
}

func (f *fakeStore) InsertLineage(_ context.Context, records []storage.MergeLineage) error {
	f.lineage = append(f.lineage, records...)
	return nil
}

// matcher store backed by the same candidate map, scoped per tenant
func (f *fakeStore) FindByContact(_ context.Context, userID int64, email, phone string) ([]*storage.Candidate, error) {
	var out []*storage.Candidate
	for _, c := range f.candidates {
		if c.UserID != userID {
			continue
		}
		if (email != "" && c.Email == email) || (phone != "" && c.Phone == phone) {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeStore) FindByName(_ context.Context, userID int64, name string) ([]*storage.Candidate, error) {
	var out []*storage.Candidate
	for _, c := range f.candidates {
		if c.UserID == userID && strings.EqualFold(c.Name, name) {
			out = append(out, c)
		}
	}
	return out, nil
}

type fakeParser struct {
	byText map[string]*cv.ParsedResume
}

func (f *fakeParser) ParseResume(_ context.Context, text string) (*cv.ParsedResume, llm.TokenUsage, error) {
	if p, ok := f.byText[text]; ok {
		return p, llm.TokenUsage{PromptTokens: 100, CompletionTokens: 20}, nil
	}
	return &cv.ParsedResume{FullText: text}, llm.TokenUsage{}, nil
}

type fakeIndexer struct {
	rebuilt []int64
}

func (f *fakeIndexer) Rebuild(_ context.Context, c *storage.Candidate) error {
	f.rebuilt = append(f.rebuilt, c.ID)
	return nil
}

func newTestService(t *testing.T, store *fakeStore, parser Parser) (*Service, *fakeIndexer) {
	indexer := &fakeIndexer{}
	svc := NewService(store, parser, dedup.NewMatcher(store),
		dedup.NewResolver(dedup.RuleNewPriority), indexer, zaptest.NewLogger(t))
	return svc, indexer
}

func doc(text string) *cv.ExtractedDocument {
	return &cv.ExtractedDocument{Filename: "cv.pdf", FileType: "pdf", FullText: text}
}

func datePtr(y, m, d int) *time.Time {
	t := time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
	return &t
}

func TestIngestCreatesCandidate(t *testing.T) {
	store := newFakeStore()
	parser := &fakeParser{byText: map[string]*cv.ParsedResume{
		"resume one": {
			Name: "Jane Doe", Email: "jane@example.com",
			CurrentTitle: "Backend Engineer", Skills: []string{"Go"},
			Experiences: []cv.Experience{{Company: "Acme", StartDate: datePtr(2020, 1, 1), Skills: []string{"Go"}}},
		},
	}}
	svc, indexer := newTestService(t, store, parser)

	res, err := svc.Ingest(context.Background(), 1, doc("resume one"), "upload")
	require.NoError(t, err)

	assert.True(t, res.Created)
	assert.False(t, res.Merged)
	assert.Equal(t, "Jane Doe", res.Candidate.Name)
	assert.Equal(t, storage.StatusActive, res.Candidate.Status)
	assert.Len(t, store.experiences, 1)
	assert.Contains(t, store.recency, "Go")
	assert.Equal(t, []int64{res.Candidate.ID}, indexer.rebuilt)
	assert.Equal(t, 100, res.Usage.PromptTokens)
}

func TestIngestMergesSecondResumeByEmail(t *testing.T) {
	store := newFakeStore()
	parser := &fakeParser{byText: map[string]*cv.ParsedResume{
		"resume one": {
			Name: "Jane Doe", Email: "jane@example.com", Phone: "+49 30 111",
			CurrentTitle: "Backend Engineer", Skills: []string{"Go"},
		},
		"resume two": {
			Name: "Jane Doe", Email: "jane@example.com", Phone: "+49 30 222",
			CurrentTitle: "Staff Engineer", Skills: []string{"Go"},
		},
	}}
	svc, indexer := newTestService(t, store, parser)

	first, err := svc.Ingest(context.Background(), 1, doc("resume one"), "upload")
	require.NoError(t, err)
	second, err := svc.Ingest(context.Background(), 1, doc("resume two"), "upload")
	require.NoError(t, err)

	assert.True(t, second.Merged)
	assert.Equal(t, first.Candidate.ID, second.Candidate.ID, "same person, one candidate record")
	assert.Len(t, store.candidates, 1)
	assert.Equal(t, "Staff Engineer", store.candidates[first.Candidate.ID].CurrentTitle)

	// Title and phone changed; name, email and skills did not, so only
	// the changed fields leave lineage rows.
	require.Len(t, store.lineage, 2)
	byField := map[string]storage.MergeLineage{}
	for _, l := range store.lineage {
		byField[l.FieldName] = l
	}
	require.Contains(t, byField, "current_title")
	assert.Equal(t, "Backend Engineer", byField["current_title"].OldValue)
	assert.Equal(t, "Staff Engineer", byField["current_title"].NewValue)
	require.Contains(t, byField, "phone")
	assert.Equal(t, "4930222", byField["phone"].NewValue)

	assert.Len(t, indexer.rebuilt, 2, "index rebuilt on both ingests")
}

func TestIngestDuplicateHashIsNoOp(t *testing.T) {
	store := newFakeStore()
	parser := &fakeParser{byText: map[string]*cv.ParsedResume{
		"resume one": {Name: "Jane Doe", Email: "jane@example.com"},
	}}
	svc, indexer := newTestService(t, store, parser)

	_, err := svc.Ingest(context.Background(), 1, doc("resume one"), "upload")
	require.NoError(t, err)

	// Same content, different whitespace: same normalized hash.
	res, err := svc.Ingest(context.Background(), 1, doc("resume   one"), "upload")
	require.NoError(t, err)

	assert.True(t, res.Duplicate)
	assert.Len(t, store.candidates, 1)
	assert.Len(t, indexer.rebuilt, 1, "no reindex for a duplicate")
}

func TestIngestSameTextAcrossTenantsStaysIsolated(t *testing.T) {
	store := newFakeStore()
	parser := &fakeParser{byText: map[string]*cv.ParsedResume{
		"resume one": {Name: "Jane Doe", Email: "jane@example.com"},
	}}
	svc, _ := newTestService(t, store, parser)

	first, err := svc.Ingest(context.Background(), 1, doc("resume one"), "upload")
	require.NoError(t, err)
	second, err := svc.Ingest(context.Background(), 2, doc("resume one"), "upload")
	require.NoError(t, err)

	// The same document in another tenant's pool is a fresh candidate,
	// not a duplicate and not a merge into the first tenant's record.
	assert.True(t, second.Created)
	assert.False(t, second.Duplicate)
	assert.False(t, second.Merged)
	assert.NotEqual(t, first.Candidate.ID, second.Candidate.ID)
	assert.Equal(t, int64(1), first.Resume.UserID)
	assert.Equal(t, int64(2), second.Resume.UserID)
	assert.Len(t, store.candidates, 2)
}

func TestIngestRejectsResumeWithoutName(t *testing.T) {
	store := newFakeStore()
	svc, _ := newTestService(t, store, &fakeParser{})

	_, err := svc.Ingest(context.Background(), 1, doc("illegible scan"), "upload")
	assert.ErrorIs(t, err, ErrNoCandidateName)
	assert.Empty(t, store.candidates)
}

func TestIngestReleasesCandidateLocks(t *testing.T) {
	store := newFakeStore()
	parser := &fakeParser{byText: map[string]*cv.ParsedResume{
		"resume one": {Name: "Jane Doe", Email: "jane@example.com"},
	}}
	svc, _ := newTestService(t, store, parser)

	_, err := svc.Ingest(context.Background(), 1, doc("resume one"), "upload")
	require.NoError(t, err)

	svc.mu.Lock()
	defer svc.mu.Unlock()
	assert.Empty(t, svc.locks, "uncontended locks are evicted")
}

func TestIngestAmbiguousIdentityRefuses(t *testing.T) {
	store := newFakeStore()
	store.candidates[1] = &storage.Candidate{ID: 1, UserID: 1, Name: "Jane Doe", CurrentCompany: "Acme"}
	store.candidates[2] = &storage.Candidate{ID: 2, UserID: 1, Name: "Jane Doe", CurrentCompany: "Acme"}
	store.nextID = 2
	parser := &fakeParser{byText: map[string]*cv.ParsedResume{
		"resume x": {Name: "Jane Doe", CurrentCompany: "Acme"},
	}}
	svc, _ := newTestService(t, store, parser)

	_, err := svc.Ingest(context.Background(), 1, doc("resume x"), "upload")
	assert.ErrorIs(t, err, dedup.ErrAmbiguousMerge)
}
