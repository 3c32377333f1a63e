package analysis

import (
	"context"
	"fmt"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/ayush/docmind/backend/internal/models"
	"github.com/ayush/docmind/backend/internal/prompt"
)

// Runner is what every tool offers regardless of its result type.
type Runner interface {
	Kind() prompt.Kind
	Load(ctx context.Context, doc *models.Document) error
	Retry(ctx context.Context) error
	Discard()
	State() State
	Failure() string
	View() any
}

// Workspace holds one owner's five tools. Each tool keeps its own state.
type Workspace struct {
	Summary  *Orchestrator[models.SummaryResult]
	Quiz     *Quiz
	Chat     *Chat
	Search   *Search
	Concepts *Orchestrator[models.ConceptGraph]
}

func NewWorkspace(deps Deps) *Workspace {
	return &Workspace{
		Summary:  NewOrchestrator(summaryTool, deps),
		Quiz:     NewQuiz(deps),
		Chat:     NewChat(deps),
		Search:   NewSearch(deps),
		Concepts: NewOrchestrator(conceptsTool, deps),
	}
}

// Tool returns the runner for kind.
func (w *Workspace) Tool(kind prompt.Kind) (Runner, error) {
	switch kind {
	case prompt.Summary:
		return w.Summary, nil
	case prompt.Quiz:
		return w.Quiz, nil
	case prompt.Chat:
		return w.Chat, nil
	case prompt.Search:
		return w.Search, nil
	case prompt.Concepts:
		return w.Concepts, nil
	}
	return nil, fmt.Errorf("%w: %q", prompt.ErrUnknownTool, kind)
}

func (w *Workspace) Runners() []Runner {
	return []Runner{w.Summary, w.Quiz, w.Chat, w.Search, w.Concepts}
}

// Discard resets every tool, dropping any in-flight results.
func (w *Workspace) Discard() {
	for _, r := range w.Runners() {
		r.Discard()
	}
}

// Registry keeps a workspace per owner and expires idle ones.
type Registry struct {
	cache   *cache.Cache
	ttl     time.Duration
	newDeps func(owner string) Deps
}

func NewRegistry(ttl time.Duration, newDeps func(owner string) Deps) *Registry {
	c := cache.New(ttl, ttl/2)
	c.OnEvicted(func(_ string, v interface{}) {
		if ws, ok := v.(*Workspace); ok {
			ws.Discard()
		}
	})
	return &Registry{cache: c, ttl: ttl, newDeps: newDeps}
}

// Get returns owner's workspace, creating it on first use, and extends
// its lifetime.
func (r *Registry) Get(owner string) *Workspace {
	if v, ok := r.cache.Get(owner); ok {
		ws := v.(*Workspace)
		r.cache.Set(owner, ws, cache.DefaultExpiration)
		return ws
	}
	ws := NewWorkspace(r.newDeps(owner))
	if err := r.cache.Add(owner, ws, cache.DefaultExpiration); err != nil {
		// Lost a race with a concurrent Get.
		if v, ok := r.cache.Get(owner); ok {
			return v.(*Workspace)
		}
		r.cache.Set(owner, ws, cache.DefaultExpiration)
	}
	return ws
}

// Peek returns owner's workspace without creating one.
func (r *Registry) Peek(owner string) (*Workspace, bool) {
	v, ok := r.cache.Get(owner)
	if !ok {
		return nil, false
	}
	return v.(*Workspace), true
}

// Drop discards owner's workspace.
func (r *Registry) Drop(owner string) {
	r.cache.Delete(owner)
}

func (r *Registry) Len() int { return r.cache.ItemCount() }
