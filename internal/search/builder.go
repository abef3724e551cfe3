package search

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"talentmatch/internal/storage"
)

// Embedder produces a dense vector for a block of text.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

type builderStore interface {
	GetExperiences(ctx context.Context, candidateID int64) ([]storage.ExperienceRow, error)
	GetProjects(ctx context.Context, candidateID int64) ([]storage.ProjectRow, error)
	ListSkillRecency(ctx context.Context, candidateID int64) ([]storage.SkillRecency, error)
	UpsertIndex(ctx context.Context, candidateID int64, lexicalText string,
		embedding []float32, filtersJSON, featuresJSON []byte, version int) error
}

// Builder rebuilds a candidate's search index row: the lexical blob,
// the embedding vector, and the precomputed filter/feature documents.
type Builder struct {
	store    builderStore
	embedder Embedder
	version  int
	log      *zap.Logger
}

func NewBuilder(store builderStore, embedder Embedder, embeddingVersion int, log *zap.Logger) *Builder {
	return &Builder{store: store, embedder: embedder, version: embeddingVersion, log: log}
}

// filterDoc is the denormalized attribute set queries filter on.
type filterDoc struct {
	Location       string `json:"location,omitempty"`
	YearsExp       int    `json:"years_experience,omitempty"`
	EducationLevel string `json:"education_level,omitempty"`
}

// featureDoc is a small ranking-time summary: the candidate's freshest
// skills and most recent employers.
type featureDoc struct {
	TopSkills       []string `json:"top_skills,omitempty"`
	RecentCompanies []string `json:"recent_companies,omitempty"`
}

// Rebuild recomputes the index row for one candidate. An embedding
// failure degrades to a lexical-only refresh instead of aborting: the
// upsert passes a nil vector, which preserves whatever was stored
// before.
func (b *Builder) Rebuild(ctx context.Context, c *storage.Candidate) error {
	experiences, err := b.store.GetExperiences(ctx, c.ID)
	if err != nil {
		return fmt.Errorf("load experiences: %w", err)
	}
	projects, err := b.store.GetProjects(ctx, c.ID)
	if err != nil {
		return fmt.Errorf("load projects: %w", err)
	}
	recency, err := b.store.ListSkillRecency(ctx, c.ID)
	if err != nil {
		return fmt.Errorf("load skill recency: %w", err)
	}

	blob := lexicalBlob(c, experiences, projects)

	filters, err := json.Marshal(filterDoc{
		Location:       c.Location,
		YearsExp:       c.YearsExp,
		EducationLevel: c.EducationLevel,
	})
	if err != nil {
		return err
	}
	features, err := json.Marshal(featureDoc{
		TopSkills:       topSkills(recency, 3),
		RecentCompanies: recentCompanies(c, experiences, 2),
	})
	if err != nil {
		return err
	}

	var embedding []float32
	if b.embedder != nil {
		embedding, err = b.embedder.Embed(ctx, blob)
		if err != nil {
			b.log.Warn("embedding failed, refreshing lexical index only",
				zap.Int64("candidate_id", c.ID), zap.Error(err))
			embedding = nil
		}
	}

	return b.store.UpsertIndex(ctx, c.ID, blob, embedding, filters, features, b.version)
}

// lexicalBlob flattens everything searchable about a candidate into one
// text document for the tsvector column.
func lexicalBlob(c *storage.Candidate, experiences []storage.ExperienceRow, projects []storage.ProjectRow) string {
	var parts []string
	add := func(s string) {
		if s = strings.TrimSpace(s); s != "" {
			parts = append(parts, s)
		}
	}

	add(c.Name)
	add(c.CurrentTitle)
	add(c.CurrentCompany)
	add(c.Location)
	add(c.EducationLevel)
	add(strings.Join(c.Skills, " "))
	for _, e := range experiences {
		add(e.Title)
		add(e.Company)
		add(strings.Join(e.Skills, " "))
		add(e.Description)
	}
	for _, p := range projects {
		add(p.Name)
		add(p.Role)
		add(strings.Join(p.Skills, " "))
		add(p.Description)
	}
	return strings.Join(parts, " ")
}

func topSkills(recency []storage.SkillRecency, n int) []string {
	sorted := make([]storage.SkillRecency, len(recency))
	copy(sorted, recency)
	sort.Slice(sorted, func(i, j int) bool {
		if !sorted[i].LastUsed.Equal(sorted[j].LastUsed) {
			return sorted[i].LastUsed.After(sorted[j].LastUsed)
		}
		return sorted[i].Skill < sorted[j].Skill
	})
	if len(sorted) > n {
		sorted = sorted[:n]
	}
	out := make([]string, 0, len(sorted))
	for _, r := range sorted {
		out = append(out, r.Skill)
	}
	return out
}

func recentCompanies(c *storage.Candidate, experiences []storage.ExperienceRow, n int) []string {
	type dated struct {
		company string
		end     time.Time
	}
	seen := map[string]bool{}
	var list []dated
	for _, e := range experiences {
		if e.Company == "" || seen[strings.ToLower(e.Company)] {
			continue
		}
		end, ok := engagementEnd(e.StartDate, e.EndDate)
		if !ok {
			continue
		}
		seen[strings.ToLower(e.Company)] = true
		list = append(list, dated{company: e.Company, end: end})
	}
	sort.Slice(list, func(i, j int) bool { return list[i].end.After(list[j].end) })

	var out []string
	if c.CurrentCompany != "" {
		out = append(out, c.CurrentCompany)
		seen[strings.ToLower(c.CurrentCompany)] = true
	}
	for _, d := range list {
		if len(out) >= n {
			break
		}
		if strings.EqualFold(d.company, c.CurrentCompany) {
			continue
		}
		out = append(out, d.company)
	}
	if len(out) > n {
		out = out[:n]
	}
	return out
}
