package analysis

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ayush/docmind/backend/internal/completion"
	"github.com/ayush/docmind/backend/internal/models"
	"github.com/ayush/docmind/backend/internal/prompt"
)

// Tool configures an Orchestrator for one analysis feature.
type Tool[R any] struct {
	Kind   prompt.Kind
	Decode func(res completion.Result, req prompt.Request) (R, error)

	// Failure is shown when a request fails. With ServiceMessage set the
	// completion service's own message is shown instead when it has one.
	Failure        string
	ServiceMessage bool

	// AutoRun starts one request as soon as the text is ready.
	AutoRun bool
}

func (t Tool[R]) failureMessage(err error) string {
	if t.ServiceMessage {
		if msg, ok := completion.UserMessage(err); ok {
			return msg
		}
	}
	return t.Failure
}

// Settings are the defaults merged into every request of a workspace.
type Settings struct {
	ExcerptChars   int
	Model          string
	MaxQuestions   int
	RecentSearches int
}

// Deps are the collaborators shared by the tools of one workspace.
type Deps struct {
	Owner     string
	Extractor Extractor
	Completer completion.Completer
	Recorder  Recorder
	Logger    *zap.Logger
	Settings  Settings
}

type outcome int

const (
	outcomeStale outcome = iota
	outcomeFailed
	outcomeDone
)

type call struct {
	gen  uint64
	req  prompt.Request
	opts prompt.Options
	doc  *models.Document
}

// Orchestrator drives one tool through idle, extracting, ready,
// requesting and displaying. At most one request is in flight, and a
// result that arrives after the tool was discarded or reloaded is dropped.
type Orchestrator[R any] struct {
	tool   Tool[R]
	deps   Deps
	logger *zap.Logger

	mu        sync.Mutex
	state     State
	gen       uint64
	doc       *models.Document
	text      string
	extracted bool
	result    *R
	errMsg    string
	last      *prompt.Options
}

func NewOrchestrator[R any](tool Tool[R], deps Deps) *Orchestrator[R] {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator[R]{
		tool:   tool,
		deps:   deps,
		logger: logger.With(zap.String("tool", string(tool.Kind))),
		state:  StateIdle,
	}
}

func (o *Orchestrator[R]) Kind() prompt.Kind { return o.tool.Kind }

// Load makes doc the tool's document and extracts its text. Loading the
// document that is already loaded keeps the current state. A nil document
// leaves the tool idle and returns ErrNoDocument.
func (o *Orchestrator[R]) Load(ctx context.Context, doc *models.Document) error {
	o.mu.Lock()
	if doc == nil {
		o.gen++
		o.clearLocked()
		o.mu.Unlock()
		return ErrNoDocument
	}
	if o.state != StateIdle && o.doc != nil && o.doc.Fingerprint() == doc.Fingerprint() {
		o.mu.Unlock()
		return nil
	}
	o.gen++
	gen := o.gen
	o.clearLocked()
	o.doc = doc
	o.state = StateExtracting
	o.mu.Unlock()

	text, err := o.deps.Extractor.Extract(doc)

	o.mu.Lock()
	if gen != o.gen {
		o.mu.Unlock()
		return nil
	}
	if err != nil {
		o.state = StateError
		o.errMsg = extractionMessage(err)
		o.mu.Unlock()
		o.logger.Warn("extraction failed", zap.String("document", doc.Name), zap.Error(err))
		return nil
	}
	o.text = text
	o.extracted = true
	o.state = StateReady
	o.mu.Unlock()

	o.logger.Debug("text ready", zap.String("document", doc.Name), zap.Int("chars", len([]rune(text))))

	if o.tool.AutoRun {
		if err := o.Run(ctx, prompt.Options{}); err != nil {
			o.logger.Warn("auto run skipped", zap.Error(err))
		}
	}
	return nil
}

// Run sends one request built from the extracted text and opts and waits
// for it. Pipeline failures move the tool to StateError and are not
// returned; the returned error means the request was never started.
func (o *Orchestrator[R]) Run(ctx context.Context, opts prompt.Options) error {
	c, err := o.start(opts)
	if err != nil {
		return err
	}
	o.finish(ctx, c)
	return nil
}

// Retry repeats the request that failed last.
func (o *Orchestrator[R]) Retry(ctx context.Context) error {
	c, err := o.startRetry()
	if err != nil {
		return err
	}
	o.finish(ctx, c)
	return nil
}

// Reset clears a displayed result or request error and returns to ready.
func (o *Orchestrator[R]) Reset() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	switch {
	case o.state == StateRequesting:
		return ErrBusy
	case !o.extracted:
		return ErrNotReady
	}
	o.state = StateReady
	o.result = nil
	o.errMsg = ""
	o.last = nil
	return nil
}

// Discard drops everything the tool holds. An in-flight request keeps
// running but its result is ignored.
func (o *Orchestrator[R]) Discard() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.gen++
	o.clearLocked()
}

func (o *Orchestrator[R]) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Failure is the message shown in the error state, or "".
func (o *Orchestrator[R]) Failure() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.errMsg
}

func (o *Orchestrator[R]) Snapshot() Snapshot[R] {
	o.mu.Lock()
	defer o.mu.Unlock()
	s := Snapshot[R]{
		Tool:  o.tool.Kind,
		State: o.state,
		Error: o.errMsg,
	}
	if o.doc != nil {
		info := o.doc.Info()
		s.Document = &info
	}
	if o.extracted {
		s.TextChars = len([]rune(o.text))
	}
	if o.result != nil {
		r := *o.result
		s.Result = &r
	}
	return s
}

func (o *Orchestrator[R]) View() any { return o.Snapshot() }

func (o *Orchestrator[R]) clearLocked() {
	o.state = StateIdle
	o.doc = nil
	o.text = ""
	o.extracted = false
	o.result = nil
	o.errMsg = ""
	o.last = nil
}

func (o *Orchestrator[R]) start(opts prompt.Options) (*call, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.startLocked(opts)
}

func (o *Orchestrator[R]) startRetry() (*call, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.state != StateError || o.last == nil {
		return nil, ErrNothingToRetry
	}
	return o.startLocked(*o.last)
}

func (o *Orchestrator[R]) startLocked(opts prompt.Options) (*call, error) {
	switch {
	case o.state == StateIdle:
		return nil, ErrNoDocument
	case o.state == StateRequesting:
		return nil, ErrBusy
	case !o.extracted:
		return nil, ErrNotReady
	}

	opts = o.withDefaults(opts)
	req, err := prompt.Build(o.text, o.tool.Kind, opts)
	if err != nil {
		return nil, err
	}
	o.gen++
	o.state = StateRequesting
	o.errMsg = ""
	o.last = &opts
	return &call{gen: o.gen, req: req, opts: opts, doc: o.doc}, nil
}

func (o *Orchestrator[R]) withDefaults(opts prompt.Options) prompt.Options {
	s := o.deps.Settings
	if opts.ExcerptChars <= 0 {
		opts.ExcerptChars = s.ExcerptChars
	}
	if opts.Model == "" {
		opts.Model = s.Model
	}
	if opts.MaxQuestions <= 0 {
		opts.MaxQuestions = s.MaxQuestions
	}
	return opts
}

func (o *Orchestrator[R]) finish(ctx context.Context, c *call) (R, outcome) {
	var zero R
	start := time.Now()

	res, err := o.deps.Completer.Complete(ctx, c.req)
	var out R
	if err == nil {
		out, err = o.tool.Decode(res, c.req)
	}

	o.mu.Lock()
	if c.gen != o.gen {
		o.mu.Unlock()
		o.logger.Debug("dropping stale result", zap.Duration("elapsed", time.Since(start)))
		return zero, outcomeStale
	}
	if err != nil {
		o.state = StateError
		o.result = nil
		o.errMsg = o.tool.failureMessage(err)
		o.mu.Unlock()
		o.logger.Warn("request failed", zap.Duration("elapsed", time.Since(start)), zap.Error(err))
		return zero, outcomeFailed
	}
	o.state = StateDisplaying
	o.result = &out
	o.mu.Unlock()

	o.logger.Info("request completed", zap.Duration("elapsed", time.Since(start)))
	o.record(ctx, c, out)
	return out, outcomeDone
}

func (o *Orchestrator[R]) record(ctx context.Context, c *call, out R) {
	if o.deps.Recorder == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	err := o.deps.Recorder.Record(ctx, Entry{
		Owner:    o.deps.Owner,
		Tool:     o.tool.Kind,
		Document: c.doc,
		Model:    c.req.Params.Model,
		Result:   out,
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		o.logger.Warn("record analysis", zap.Error(err))
	}
}
