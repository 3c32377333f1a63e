package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/ayush/docmind/backend/internal/analysis"
	"github.com/ayush/docmind/backend/internal/completion"
	"github.com/ayush/docmind/backend/internal/config"
	"github.com/ayush/docmind/backend/internal/document"
	"github.com/ayush/docmind/backend/internal/extract"
	"github.com/ayush/docmind/backend/internal/logger"
	"github.com/ayush/docmind/backend/internal/models"
	"github.com/ayush/docmind/backend/internal/session"
)

// owner is the single local user of the CLI.
const owner = "local"

type rootOptions struct {
	configPath string
	storePath  string
	jsonOut    bool
	quiet      bool
}

// app is the pipeline opened for one command.
type app struct {
	pipeline config.Pipeline
	logger   *zap.Logger
	bolt     *session.BoltStore
	holder   *session.Holder
	opts     *rootOptions
}

func openApp(opts *rootOptions) (*app, error) {
	// A missing .env is the normal case.
	_ = godotenv.Load()

	p := config.LoadPipeline()
	if opts.configPath != "" {
		if err := p.Overlay(opts.configPath); err != nil {
			return nil, err
		}
	}
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	path := p.StorePath
	if opts.storePath != "" {
		path = opts.storePath
	}

	log := logger.Console(opts.quiet)
	bolt, err := session.OpenBolt(path)
	if err != nil {
		return nil, err
	}
	return &app{
		pipeline: p,
		logger:   log,
		bolt:     bolt,
		holder:   session.NewHolder(bolt, log),
		opts:     opts,
	}, nil
}

func (a *app) Close() {
	if err := a.bolt.Close(); err != nil {
		a.logger.Warn("close store", zap.Error(err))
	}
	a.logger.Sync()
}

func (a *app) limits() document.Limits {
	return document.Limits{
		MaxBytes:          a.pipeline.MaxUploadBytes,
		AllowedExtensions: a.pipeline.AllowedExtensions,
	}
}

// workspace builds the tools and loads the current document into the
// one the command uses.
func (a *app) workspace(ctx context.Context) (*analysis.Workspace, *models.Document, error) {
	doc, err := a.holder.Current(ctx, owner)
	if err != nil {
		return nil, nil, err
	}
	if doc == nil {
		return nil, nil, analysis.ErrNoDocument
	}
	completer, err := completion.FromPipeline(ctx, a.pipeline, a.logger)
	if err != nil {
		return nil, nil, err
	}
	ws := analysis.NewWorkspace(analysis.Deps{
		Owner:     owner,
		Extractor: extract.New(a.logger),
		Completer: completer,
		Logger:    a.logger,
		Settings: analysis.Settings{
			ExcerptChars:   a.pipeline.ExcerptChars,
			Model:          a.pipeline.Model,
			MaxQuestions:   a.pipeline.MaxQuizQuestions,
			RecentSearches: a.pipeline.RecentSearches,
		},
	})
	return ws, doc, nil
}

// loaded opens the workspace and loads the document into the runner
// pick selects. A failed load is reported as the command's error.
func (a *app) loaded(ctx context.Context, pick func(*analysis.Workspace) analysis.Runner) (*analysis.Workspace, error) {
	ws, doc, err := a.workspace(ctx)
	if err != nil {
		return nil, err
	}
	r := pick(ws)
	if err := r.Load(ctx, doc); err != nil {
		return nil, err
	}
	if r.State() == analysis.StateError {
		return nil, errors.New(r.Failure())
	}
	return ws, nil
}
