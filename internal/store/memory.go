package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/nvandessel/hivesight/internal/survey"
)

// InMemoryRunStore implements RunStore for tests and for runs with history disabled.
type InMemoryRunStore struct {
	mu   sync.RWMutex
	runs map[string][]byte
}

// NewInMemoryRunStore creates an empty in-memory store.
func NewInMemoryRunStore() *InMemoryRunStore {
	return &InMemoryRunStore{runs: make(map[string][]byte)}
}

// SaveRun stores a deep copy of the report.
func (s *InMemoryRunStore) SaveRun(ctx context.Context, report *survey.Report) error {
	if report == nil || report.ID == "" {
		return fmt.Errorf("run ID is required")
	}
	data, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to encode run: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs[report.ID] = data
	return nil
}

// GetRun returns a copy of the matching report.
func (s *InMemoryRunStore) GetRun(ctx context.Context, id string) (*survey.Report, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, ok := s.runs[id]
	if !ok {
		var matches []string
		for key := range s.runs {
			if id != "" && strings.HasPrefix(key, id) {
				matches = append(matches, key)
			}
		}
		switch len(matches) {
		case 0:
			return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		case 1:
			data = s.runs[matches[0]]
		default:
			return nil, fmt.Errorf("%w: %s matches %d runs", ErrAmbiguousID, id, len(matches))
		}
	}
	return decodeReport(data)
}

// ListRuns returns summaries newest first.
func (s *InMemoryRunStore) ListRuns(ctx context.Context, opts ListOptions) ([]RunSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	summaries := make([]RunSummary, 0, len(s.runs))
	for _, data := range s.runs {
		r, err := decodeReport(data)
		if err != nil {
			return nil, err
		}
		if opts.Kind != "" && r.Request.Question.Kind != opts.Kind {
			continue
		}
		summaries = append(summaries, Summarize(r))
	}

	sort.Slice(summaries, func(i, j int) bool {
		if !summaries[i].CreatedAt.Equal(summaries[j].CreatedAt) {
			return summaries[i].CreatedAt.After(summaries[j].CreatedAt)
		}
		return summaries[i].ID < summaries[j].ID
	})
	if limit := opts.limit(); len(summaries) > limit {
		summaries = summaries[:limit]
	}
	return summaries, nil
}

// DeleteRun removes a run.
func (s *InMemoryRunStore) DeleteRun(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.runs[id]; !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	delete(s.runs, id)
	return nil
}

// Close is a no-op.
func (s *InMemoryRunStore) Close() error {
	return nil
}

func decodeReport(data []byte) (*survey.Report, error) {
	var r survey.Report
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("failed to decode run: %w", err)
	}
	return &r, nil
}
