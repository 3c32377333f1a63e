package analysis

import (
	"context"
	"strings"
	"sync"

	"github.com/ayush/docmind/backend/internal/models"
	"github.com/ayush/docmind/backend/internal/prompt"
)

const defaultRecentSearches = 5

// SearchView is the observable search screen.
type SearchView struct {
	Snapshot[models.SearchResults]
	Query  string   `json:"query"`
	Recent []string `json:"recent_searches"`
}

// Search finds excerpts of the document matching a query and remembers
// the most recent successful queries.
type Search struct {
	*Orchestrator[models.SearchResults]

	mu       sync.Mutex
	query    string
	recent   []string
	capacity int
}

func NewSearch(deps Deps) *Search {
	capacity := deps.Settings.RecentSearches
	if capacity <= 0 {
		capacity = defaultRecentSearches
	}
	return &Search{Orchestrator: NewOrchestrator(searchTool, deps), capacity: capacity}
}

// Query searches for q. A blank query does nothing and sends no request.
func (s *Search) Query(ctx context.Context, q string) error {
	q = strings.TrimSpace(q)
	if q == "" {
		return nil
	}
	call, err := s.start(prompt.Options{Query: q})
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.query = q
	s.mu.Unlock()

	if _, out := s.finish(ctx, call); out == outcomeDone {
		s.remember(q)
	}
	return nil
}

// Retry runs the failed query again.
func (s *Search) Retry(ctx context.Context) error {
	call, err := s.startRetry()
	if err != nil {
		return err
	}
	if _, out := s.finish(ctx, call); out == outcomeDone {
		s.remember(call.opts.Query)
	}
	return nil
}

// remember puts q first in the recent list without duplicates.
func (s *Search) remember(q string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	recent := make([]string, 0, s.capacity)
	recent = append(recent, q)
	for _, r := range s.recent {
		if r != q && len(recent) < s.capacity {
			recent = append(recent, r)
		}
	}
	s.recent = recent
}

func (s *Search) Recent() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.recent...)
}

func (s *Search) Discard() {
	s.Orchestrator.Discard()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.query = ""
	s.recent = nil
}

func (s *Search) View() any {
	snap := s.Snapshot()
	s.mu.Lock()
	defer s.mu.Unlock()
	return SearchView{Snapshot: snap, Query: s.query, Recent: append([]string(nil), s.recent...)}
}
