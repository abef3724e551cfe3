package search

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"talentmatch/internal/storage"
)

// Weights control the score fusion. They are defined for the full
// component set; whenever a component is unavailable for a query the
// remaining weights are renormalized so scores stay in [0,1].
type Weights struct {
	Vector        float64
	Lexical       float64
	SkillCoverage float64
	Recency       float64
}

func DefaultWeights() Weights {
	return Weights{Vector: 0.5, Lexical: 0.25, SkillCoverage: 0.15, Recency: 0.1}
}

// Query is a structured search request, typically produced from a job
// description by the LLM extractor or passed directly by the caller.
type Query struct {
	Text           string          `json:"text"`
	RequiredSkills []string        `json:"required_skills"`
	Filters        storage.Filters `json:"filters"`
	Limit          int             `json:"limit"`
}

// Components are the per-signal scores, all normalized to [0,1]. A
// component excluded from fusion is -1: skill coverage and recency when
// the query carried no required skills, vector when the query had no
// embedding or the candidate has none stored.
type Components struct {
	Vector        float64 `json:"vector"`
	Lexical       float64 `json:"lexical"`
	SkillCoverage float64 `json:"skill_coverage"`
	Recency       float64 `json:"recency"`
}

// RankedCandidate is one search hit with its score breakdown.
type RankedCandidate struct {
	CandidateID    int64      `json:"candidate_id"`
	Name           string     `json:"name"`
	CurrentTitle   string     `json:"current_title,omitempty"`
	CurrentCompany string     `json:"current_company,omitempty"`
	Location       string     `json:"location,omitempty"`
	YearsExp       int        `json:"years_experience"`
	Skills         []string   `json:"skills"`
	Score          float64    `json:"score"`
	Components     Components `json:"components"`
	MatchedSkills  []string   `json:"matched_skills"`
	MissingSkills  []string   `json:"missing_skills"`
	Rank           int        `json:"rank"`
}

// lexicalSaturationRank is the ts_rank value treated as a perfect
// lexical match; higher raw ranks clip to 1.0.
const lexicalSaturationRank = 0.1

// ErrEmptyQuery rejects searches with nothing to search for.
var ErrEmptyQuery = errors.New("query is empty")

type rankerStore interface {
	LexicalRecall(ctx context.Context, userID int64, tsQuery string, f storage.Filters, limit int) ([]storage.RecallHit, error)
	VectorRecall(ctx context.Context, userID int64, embedding []float32, f storage.Filters, limit int) ([]storage.RecallHit, error)
	GetSkillRecency(ctx context.Context, candidateID int64, skills []string) (map[string]time.Time, error)
}

// Ranker runs both recall paths in parallel, unions the pools and fuses
// the component scores into a single ranking.
type Ranker struct {
	store    rankerStore
	embedder Embedder
	weights  Weights

	topKLexical int
	topKVector  int
	topKFinal   int

	log *zap.Logger
}

func NewRanker(store rankerStore, embedder Embedder, weights Weights,
	topKLexical, topKVector, topKFinal int, log *zap.Logger) *Ranker {
	return &Ranker{
		store:       store,
		embedder:    embedder,
		weights:     weights,
		topKLexical: topKLexical,
		topKVector:  topKVector,
		topKFinal:   topKFinal,
		log:         log,
	}
}

// Search executes the full hybrid pipeline for one tenant. An empty
// pool is an empty result, never an error; an embedding failure demotes
// the query to lexical-only ranking.
func (r *Ranker) Search(ctx context.Context, userID int64, q Query) ([]RankedCandidate, error) {
	if strings.TrimSpace(q.Text) == "" && len(q.RequiredSkills) == 0 {
		return nil, ErrEmptyQuery
	}
	tsQuery := BuildTSQuery(q.Text, q.RequiredSkills)

	var queryEmbedding []float32
	if r.embedder != nil && strings.TrimSpace(q.Text) != "" {
		emb, err := r.embedder.Embed(ctx, q.Text)
		if err != nil {
			r.log.Warn("query embedding failed, falling back to lexical ranking", zap.Error(err))
		} else {
			queryEmbedding = emb
		}
	}

	lexical, vector, err := r.recall(ctx, userID, tsQuery, queryEmbedding, q.Filters)
	if err != nil {
		return nil, err
	}

	pool := unionPools(lexical, vector)
	if len(pool) == 0 {
		return []RankedCandidate{}, nil
	}

	required := normalizeSkills(q.RequiredSkills)
	hasVector := queryEmbedding != nil
	now := time.Now()

	ranked := make([]RankedCandidate, 0, len(pool))
	for _, hit := range pool {
		rc := RankedCandidate{
			CandidateID:    hit.CandidateID,
			Name:           hit.Name,
			CurrentTitle:   hit.CurrentTitle,
			CurrentCompany: hit.CurrentCompany,
			Location:       hit.Location,
			YearsExp:       hit.YearsExp,
			Skills:         hit.Skills,
			Components:     Components{Vector: -1, SkillCoverage: -1, Recency: -1},
		}

		rc.Components.Lexical = normalizeLexical(hit.LexicalScore)
		// A candidate with no stored embedding is scored on what it has;
		// the vector weight must not crush it with an implicit zero.
		rowHasVector := hasVector && hit.HasEmbedding
		if rowHasVector {
			rc.Components.Vector = hit.VectorScore
		}

		if len(required) > 0 {
			matched, missing := splitSkills(required, hit.Skills)
			rc.MatchedSkills, rc.MissingSkills = matched, missing
			rc.Components.SkillCoverage = float64(len(matched)) / float64(len(required))

			recencyScore, err := r.recencyComponent(ctx, hit.CandidateID, matched, now)
			if err != nil {
				return nil, err
			}
			rc.Components.Recency = recencyScore
		}

		rc.Score = fuse(r.weights, rc.Components, rowHasVector, len(required) > 0)
		ranked = append(ranked, rc)
	}

	// Deterministic order: score descending, candidate id as tie-break.
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Score != ranked[j].Score {
			return ranked[i].Score > ranked[j].Score
		}
		return ranked[i].CandidateID < ranked[j].CandidateID
	})

	limit := q.Limit
	if limit <= 0 || limit > r.topKFinal {
		limit = r.topKFinal
	}
	if len(ranked) > limit {
		ranked = ranked[:limit]
	}
	for i := range ranked {
		ranked[i].Rank = i + 1
	}
	return ranked, nil
}

// QuickSearch is the cheap lexical-only path: no embedding call, no
// component fusion, just normalized full-text rank.
func (r *Ranker) QuickSearch(ctx context.Context, userID int64, text string, f storage.Filters, limit int) ([]RankedCandidate, error) {
	tsQuery := BuildTSQuery(text, nil)
	if tsQuery == "" {
		return []RankedCandidate{}, nil
	}
	if limit <= 0 || limit > r.topKFinal {
		limit = r.topKFinal
	}

	hits, err := r.store.LexicalRecall(ctx, userID, tsQuery, f, limit)
	if err != nil {
		return nil, err
	}
	out := make([]RankedCandidate, 0, len(hits))
	for i, h := range hits {
		out = append(out, RankedCandidate{
			CandidateID:    h.CandidateID,
			Name:           h.Name,
			CurrentTitle:   h.CurrentTitle,
			CurrentCompany: h.CurrentCompany,
			Location:       h.Location,
			YearsExp:       h.YearsExp,
			Skills:         h.Skills,
			Score:          normalizeLexical(h.LexicalScore),
			Components:     Components{Vector: -1, Lexical: normalizeLexical(h.LexicalScore), SkillCoverage: -1, Recency: -1},
			Rank:           i + 1,
		})
	}
	return out, nil
}

// recall runs the two recall paths concurrently.
func (r *Ranker) recall(ctx context.Context, userID int64, tsQuery string,
	embedding []float32, f storage.Filters) (lexical, vector []storage.RecallHit, err error) {

	lexicalChan := make(chan []storage.RecallHit, 1)
	vectorChan := make(chan []storage.RecallHit, 1)
	errChan := make(chan error, 2)

	go func() {
		if tsQuery == "" {
			lexicalChan <- nil
			return
		}
		hits, err := r.store.LexicalRecall(ctx, userID, tsQuery, f, r.topKLexical)
		if err != nil {
			errChan <- fmt.Errorf("lexical recall: %w", err)
			return
		}
		lexicalChan <- hits
	}()

	go func() {
		if embedding == nil {
			vectorChan <- nil
			return
		}
		hits, err := r.store.VectorRecall(ctx, userID, embedding, f, r.topKVector)
		if err != nil {
			errChan <- fmt.Errorf("vector recall: %w", err)
			return
		}
		vectorChan <- hits
	}()

	for i := 0; i < 2; i++ {
		select {
		case lexical = <-lexicalChan:
		case vector = <-vectorChan:
		case err = <-errChan:
			return nil, nil, err
		}
	}
	return lexical, vector, nil
}

func (r *Ranker) recencyComponent(ctx context.Context, candidateID int64, matched []string, now time.Time) (float64, error) {
	if len(matched) == 0 {
		return recencyNeutral, nil
	}
	dates, err := r.store.GetSkillRecency(ctx, candidateID, matched)
	if err != nil {
		return 0, err
	}
	total := 0.0
	for _, skill := range matched {
		if last, ok := dates[strings.ToLower(skill)]; ok {
			total += RecencyScore(last, now)
		} else {
			total += recencyNeutral
		}
	}
	return total / float64(len(matched)), nil
}

// fuse combines available components with renormalized weights.
func fuse(w Weights, c Components, hasVector, hasSkills bool) float64 {
	score := w.Lexical * c.Lexical
	total := w.Lexical
	if hasVector {
		score += w.Vector * c.Vector
		total += w.Vector
	}
	if hasSkills {
		score += w.SkillCoverage*c.SkillCoverage + w.Recency*c.Recency
		total += w.SkillCoverage + w.Recency
	}
	if total == 0 {
		return 0
	}
	return score / total
}

func normalizeLexical(rank float64) float64 {
	score := rank / lexicalSaturationRank
	if score > 1.0 {
		return 1.0
	}
	return score
}

// unionPools merges the two recall pools by candidate id, keeping the
// best score from each path.
func unionPools(lexical, vector []storage.RecallHit) []storage.RecallHit {
	merged := make(map[int64]*storage.RecallHit, len(lexical)+len(vector))
	order := make([]int64, 0, len(lexical)+len(vector))

	for _, h := range lexical {
		h := h
		merged[h.CandidateID] = &h
		order = append(order, h.CandidateID)
	}
	for _, h := range vector {
		if existing, ok := merged[h.CandidateID]; ok {
			if h.VectorScore > existing.VectorScore {
				existing.VectorScore = h.VectorScore
			}
			existing.HasEmbedding = true
			continue
		}
		h := h
		merged[h.CandidateID] = &h
		order = append(order, h.CandidateID)
	}

	out := make([]storage.RecallHit, 0, len(order))
	for _, id := range order {
		out = append(out, *merged[id])
	}
	return out
}

var tsQueryTerm = regexp.MustCompile(`[^\p{L}\p{N}+#.]+`)

// BuildTSQuery turns free text and skill names into an OR tsquery
// (terms joined by |). Characters meaningful to tsquery syntax are
// stripped; + # . survive so terms like c++ and .net stay searchable.
// Only trailing dots are trimmed (sentence periods), a leading dot is
// part of the term.
func BuildTSQuery(text string, skills []string) string {
	seen := map[string]bool{}
	var terms []string
	collect := func(s string) {
		for _, term := range tsQueryTerm.Split(strings.ToLower(s), -1) {
			term = strings.TrimRight(term, ".")
			if term == "" || seen[term] {
				continue
			}
			seen[term] = true
			terms = append(terms, term)
		}
	}
	collect(text)
	for _, s := range skills {
		collect(s)
	}
	return strings.Join(terms, " | ")
}

func normalizeSkills(skills []string) []string {
	seen := map[string]bool{}
	var out []string
	for _, s := range skills {
		s = strings.TrimSpace(s)
		if s == "" || seen[strings.ToLower(s)] {
			continue
		}
		seen[strings.ToLower(s)] = true
		out = append(out, s)
	}
	return out
}

func splitSkills(required, have []string) (matched, missing []string) {
	haveSet := make(map[string]bool, len(have))
	for _, s := range have {
		haveSet[strings.ToLower(strings.TrimSpace(s))] = true
	}
	for _, s := range required {
		if haveSet[strings.ToLower(s)] {
			matched = append(matched, s)
		} else {
			missing = append(missing, s)
		}
	}
	return matched, missing
}
