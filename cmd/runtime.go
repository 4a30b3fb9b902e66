package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/zjrosen/implindex/internal/config"
	"github.com/zjrosen/implindex/internal/consumer"
	"github.com/zjrosen/implindex/internal/domain/implementors"
	"github.com/zjrosen/implindex/internal/handoff"
	"github.com/zjrosen/implindex/internal/log"
	"github.com/zjrosen/implindex/internal/producer"
	"github.com/zjrosen/implindex/internal/tracing"
)

// runtime wires one handoff between a producer and a consumer index for the
// lifetime of a command.
type runtime struct {
	cfg      config.Config
	tracing  *tracing.Provider
	handoff  *handoff.Handoff
	producer *producer.Producer
	index    *consumer.Index
}

func newRuntime(c config.Config) (*runtime, error) {
	policy, err := implementors.ParseDuplicatePolicy(c.DuplicatePolicy)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", config.ErrInvalidConfig, err)
	}

	tp, err := tracing.NewProvider(c.Tracing)
	if err != nil {
		return nil, fmt.Errorf("creating tracer: %w", err)
	}

	h := handoff.New(handoff.WithPolicy(policy), handoff.WithTracer(tp.Tracer()))
	p := producer.New(h, tp.Tracer())
	p.Concurrency = c.LoadConcurrency

	return &runtime{
		cfg:      c,
		tracing:  tp,
		handoff:  h,
		producer: p,
		index:    consumer.New(consumer.WithCacheTTL(c.Cache.TTL)),
	}, nil
}

// assemble loads every fragment in dir and attaches the index, in the order
// given by mode. Fragment failures are returned joined; the index still holds
// every module that loaded.
func (r *runtime) assemble(ctx context.Context, dir string, mode config.AttachMode) (loadErr error, err error) {
	if _, statErr := os.Stat(dir); statErr != nil {
		return nil, fmt.Errorf("fragments directory: %w", statErr)
	}
	fsys := os.DirFS(dir)

	if mode == config.AttachEarly {
		if _, err := r.handoff.Attach(ctx, r.index.Intake); err != nil {
			return nil, err
		}
	}

	n, loadErr := r.producer.LoadDir(ctx, fsys, ".")
	log.Info(log.CatProducer, "fragments registered", "dir", dir, "count", n, "attach", mode)

	if mode == config.AttachLate {
		if _, err := r.handoff.Attach(ctx, r.index.Intake); err != nil {
			return loadErr, err
		}
	}
	return loadErr, nil
}

// registerPaths registers fragment files given as paths inside dir.
func (r *runtime) registerPaths(ctx context.Context, dir string, paths []string) error {
	fsys := os.DirFS(dir)
	var firstErr error
	for _, p := range paths {
		rel, err := filepath.Rel(dir, p)
		if err != nil {
			rel = p
		}
		if err := r.producer.RegisterFile(ctx, fsys, filepath.ToSlash(rel)); err != nil {
			log.ErrorErr(log.CatProducer, "late fragment rejected", err, "path", p)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

func (r *runtime) Close(ctx context.Context) {
	r.index.Close()
	if err := r.tracing.Shutdown(ctx); err != nil {
		log.ErrorErr(log.CatTrace, "tracer shutdown failed", err)
	}
}
