// Package ingest runs the resume intake pipeline: text hashing and
// duplicate detection, LLM field extraction, identity matching, field
// merging, skill recency and index refresh.
package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"talentmatch/internal/cv"
	"talentmatch/internal/dedup"
	"talentmatch/internal/llm"
	"talentmatch/internal/search"
	"talentmatch/internal/storage"
)

// ErrNoCandidateName rejects resumes whose text yields no name to key
// identity on.
var ErrNoCandidateName = errors.New("resume has no identifiable candidate name")

// Parser extracts structured fields from plain resume text.
type Parser interface {
	ParseResume(ctx context.Context, text string) (*cv.ParsedResume, llm.TokenUsage, error)
}

// Indexer rebuilds the search index row for one candidate.
type Indexer interface {
	Rebuild(ctx context.Context, c *storage.Candidate) error
}

type ingestStore interface {
	GetResumeByHash(ctx context.Context, userID int64, textHash string) (*storage.Resume, error)
	CreateResume(ctx context.Context, r *storage.Resume) error
	CreateCandidate(ctx context.Context, c *storage.Candidate) error
	GetCandidate(ctx context.Context, userID, id int64) (*storage.Candidate, error)
	UpdateCandidate(ctx context.Context, c *storage.Candidate) error
	InsertExperiences(ctx context.Context, rows []storage.ExperienceRow) error
	InsertProjects(ctx context.Context, rows []storage.ProjectRow) error
	InsertEducation(ctx context.Context, rows []storage.EducationRow) error
	UpsertSkillRecency(ctx context.Context, candidateID int64, dates map[string]storage.SkillRecency) error
	InsertLineage(ctx context.Context, records []storage.MergeLineage) error
}

// Result reports what one ingestion did.
type Result struct {
	Candidate *storage.Candidate `json:"candidate"`
	Resume    *storage.Resume    `json:"resume"`
	Created   bool               `json:"created"`   // a new candidate was created
	Merged    bool               `json:"merged"`    // fields merged into an existing candidate
	Duplicate bool               `json:"duplicate"` // byte-identical resume, nothing done
	Signal    string             `json:"match_signal,omitempty"`
	Usage     llm.TokenUsage     `json:"-"`
}

// Service is the intake pipeline.
type Service struct {
	store    ingestStore
	parser   Parser
	matcher  *dedup.Matcher
	resolver *dedup.Resolver
	indexer  Indexer
	log      *zap.Logger

	mu    sync.Mutex
	locks map[int64]*candidateLock
}

type candidateLock struct {
	sync.Mutex
	refs int
}

func NewService(store ingestStore, parser Parser, matcher *dedup.Matcher,
	resolver *dedup.Resolver, indexer Indexer, log *zap.Logger) *Service {
	return &Service{
		store:    store,
		parser:   parser,
		matcher:  matcher,
		resolver: resolver,
		indexer:  indexer,
		log:      log,
		locks:    map[int64]*candidateLock{},
	}
}

// lockCandidate serializes merges and index rebuilds per candidate, so
// two resumes for the same person uploaded concurrently cannot
// interleave their field merges. Locks are refcounted and evicted once
// uncontended, the map does not grow with the candidate pool.
func (s *Service) lockCandidate(id int64) *candidateLock {
	s.mu.Lock()
	l, ok := s.locks[id]
	if !ok {
		l = &candidateLock{}
		s.locks[id] = l
	}
	l.refs++
	s.mu.Unlock()

	l.Lock()
	return l
}

func (s *Service) unlockCandidate(id int64, l *candidateLock) {
	l.Unlock()
	s.mu.Lock()
	l.refs--
	if l.refs == 0 {
		delete(s.locks, id)
	}
	s.mu.Unlock()
}

// Ingest runs the full pipeline for one extracted resume text.
// A byte-identical re-upload (same normalized text hash, same tenant)
// is a no-op returning the existing records. dedup.ErrAmbiguousMerge is
// returned when identity cannot be decided automatically.
func (s *Service) Ingest(ctx context.Context, userID int64, doc *cv.ExtractedDocument, source string) (*Result, error) {
	hash, err := cv.HashText(doc.FullText)
	if err != nil {
		return nil, err
	}

	existing, err := s.store.GetResumeByHash(ctx, userID, hash)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return nil, err
	}
	if existing != nil {
		candidate, err := s.store.GetCandidate(ctx, userID, existing.CandidateID)
		if err != nil {
			return nil, err
		}
		s.log.Info("duplicate resume ignored",
			zap.Int64("user_id", userID),
			zap.Int64("candidate_id", candidate.ID),
			zap.String("text_hash", hash))
		return &Result{Candidate: candidate, Resume: existing, Duplicate: true}, nil
	}

	parsed, usage, err := s.parser.ParseResume(ctx, doc.FullText)
	if err != nil {
		return nil, fmt.Errorf("parse resume: %w", err)
	}
	if parsed.Name == "" {
		return nil, ErrNoCandidateName
	}

	match, err := s.matcher.Match(ctx, userID, parsed)
	if err != nil {
		return nil, err
	}
	if match.Decision == dedup.Ambiguous {
		return nil, fmt.Errorf("%w (signal %s)", dedup.ErrAmbiguousMerge, match.Signal)
	}

	result := &Result{Usage: usage, Signal: match.Signal}
	if match.Decision == dedup.Match {
		result.Candidate = match.Candidate
		result.Merged = true
	} else {
		candidate := &storage.Candidate{
			UserID:         userID,
			Name:           parsed.Name,
			Email:          dedup.NormalizeEmail(parsed.Email),
			Phone:          dedup.NormalizePhone(parsed.Phone),
			Location:       parsed.Location,
			YearsExp:       parsed.YearsExp,
			CurrentTitle:   parsed.CurrentTitle,
			CurrentCompany: parsed.CurrentCompany,
			Skills:         parsed.Skills,
			EducationLevel: parsed.EducationLevel,
			Source:         source,
			Status:         storage.StatusActive,
		}
		if err := s.store.CreateCandidate(ctx, candidate); err != nil {
			return nil, err
		}
		result.Candidate = candidate
		result.Created = true
	}

	lock := s.lockCandidate(result.Candidate.ID)
	defer s.unlockCandidate(result.Candidate.ID, lock)

	resume, err := s.storeResume(ctx, userID, result.Candidate.ID, doc, hash, parsed)
	if err != nil {
		return nil, err
	}
	result.Resume = resume

	if result.Merged {
		lineage := s.resolver.Merge(result.Candidate, parsed, resume.ID, source)
		if len(lineage) > 0 {
			if err := s.store.UpdateCandidate(ctx, result.Candidate); err != nil {
				return nil, err
			}
			records := make([]storage.MergeLineage, len(lineage))
			for i, l := range lineage {
				records[i] = *l
			}
			if err := s.store.InsertLineage(ctx, records); err != nil {
				return nil, err
			}
		}
	}

	if err := s.storeChildren(ctx, result.Candidate.ID, resume.ID, parsed); err != nil {
		return nil, err
	}

	recency := search.ComputeSkillRecency(parsed)
	if len(recency) > 0 {
		if err := s.store.UpsertSkillRecency(ctx, result.Candidate.ID, recency); err != nil {
			return nil, err
		}
	}

	if err := s.indexer.Rebuild(ctx, result.Candidate); err != nil {
		return nil, fmt.Errorf("rebuild index: %w", err)
	}

	s.log.Info("resume ingested",
		zap.Int64("user_id", userID),
		zap.Int64("candidate_id", result.Candidate.ID),
		zap.Bool("created", result.Created),
		zap.Bool("merged", result.Merged),
		zap.String("signal", result.Signal))
	return result, nil
}

func (s *Service) storeResume(ctx context.Context, userID, candidateID int64,
	doc *cv.ExtractedDocument, hash string, parsed *cv.ParsedResume) (*storage.Resume, error) {

	parsedJSON, err := json.Marshal(parsed)
	if err != nil {
		return nil, err
	}
	resume := &storage.Resume{
		UserID:      userID,
		CandidateID: candidateID,
		FileURI:     doc.FileURI,
		FileType:    doc.FileType,
		TextContent: doc.FullText,
		TextHash:    hash,
		ParsedJSON:  parsedJSON,
	}
	if err := s.store.CreateResume(ctx, resume); err != nil {
		return nil, err
	}
	return resume, nil
}

func (s *Service) storeChildren(ctx context.Context, candidateID, resumeID int64, parsed *cv.ParsedResume) error {
	if len(parsed.Experiences) > 0 {
		rows := make([]storage.ExperienceRow, len(parsed.Experiences))
		for i, e := range parsed.Experiences {
			rows[i] = storage.ExperienceRow{
				CandidateID: candidateID, ResumeID: resumeID,
				Company: e.Company, Title: e.Title,
				StartDate: e.StartDate, EndDate: e.EndDate,
				Skills: e.Skills, Description: e.Description,
			}
		}
		if err := s.store.InsertExperiences(ctx, rows); err != nil {
			return err
		}
	}
	if len(parsed.Projects) > 0 {
		rows := make([]storage.ProjectRow, len(parsed.Projects))
		for i, p := range parsed.Projects {
			rows[i] = storage.ProjectRow{
				CandidateID: candidateID, ResumeID: resumeID,
				Name: p.Name, Role: p.Role,
				StartDate: p.StartDate, EndDate: p.EndDate,
				Skills: p.Skills, Description: p.Description,
			}
		}
		if err := s.store.InsertProjects(ctx, rows); err != nil {
			return err
		}
	}
	if len(parsed.Education) > 0 {
		rows := make([]storage.EducationRow, len(parsed.Education))
		for i, ed := range parsed.Education {
			rows[i] = storage.EducationRow{
				CandidateID: candidateID, ResumeID: resumeID,
				School: ed.School, Degree: ed.Degree, Major: ed.Major,
				StartDate: ed.StartDate, EndDate: ed.EndDate,
			}
		}
		if err := s.store.InsertEducation(ctx, rows); err != nil {
			return err
		}
	}
	return nil
}
