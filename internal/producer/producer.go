// Package producer feeds module registrations into a handoff. Each module is
// registered independently: one bad fragment never blocks the others.
package producer

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"runtime"
	"slices"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/zjrosen/implindex/internal/domain/implementors"
	"github.com/zjrosen/implindex/internal/fragment"
	"github.com/zjrosen/implindex/internal/log"
	"github.com/zjrosen/implindex/internal/tracing"
)

// Submitter accepts one module's records. *handoff.Handoff satisfies it.
type Submitter interface {
	Submit(ctx context.Context, module string, records []implementors.Record) error
}

// FragmentError reports a fragment that could not be loaded or registered.
type FragmentError struct {
	Path string
	Err  error
}

func (e *FragmentError) Error() string {
	return fmt.Sprintf("fragment %s: %v", e.Path, e.Err)
}

func (e *FragmentError) Unwrap() error {
	return e.Err
}

// Producer registers modules with a Submitter.
type Producer struct {
	submitter Submitter
	tracer    trace.Tracer

	// Concurrency bounds the number of fragments loaded at once.
	// Zero or negative means GOMAXPROCS.
	Concurrency int
}

// New creates a Producer. A nil tracer disables tracing.
func New(s Submitter, tracer trace.Tracer) *Producer {
	if tracer == nil {
		tracer = tracing.Noop()
	}
	return &Producer{submitter: s, tracer: tracer}
}

// Register validates the module name and submits its records.
func (p *Producer) Register(ctx context.Context, module string, records []implementors.Record) error {
	if err := implementors.ValidateModuleName(module); err != nil {
		return err
	}
	if err := p.submitter.Submit(ctx, module, records); err != nil {
		return fmt.Errorf("register %s: %w", module, err)
	}
	log.Debug(log.CatProducer, "module registered", "module", module, "records", len(records))
	return nil
}

// LoadDir registers every fragment found under dir in fsys. Files whose
// extension is not a fragment format are skipped. Fragments load
// concurrently; failures are collected as *FragmentError values and joined,
// and do not stop the remaining fragments. Returns the number of modules
// registered.
func (p *Producer) LoadDir(ctx context.Context, fsys fs.FS, dir string) (int, error) {
	ctx, span := p.tracer.Start(ctx, tracing.SpanLoadDir, trace.WithAttributes(
		attribute.String(tracing.AttrFragmentDir, dir),
	))
	defer span.End()

	paths, err := listFragments(fsys, dir)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return 0, fmt.Errorf("list fragments in %s: %w", dir, err)
	}
	if len(paths) == 0 {
		log.Warn(log.CatProducer, "no fragments found", "dir", dir)
		return 0, nil
	}

	jobs := p.Concurrency
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}

	// Each goroutine writes only its own slot.
	errs := make([]error, len(paths))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(min(jobs, len(paths)))
	for i, name := range paths {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				errs[i] = &FragmentError{Path: name, Err: err}
				return nil
			}
			if err := p.loadOne(gctx, fsys, name); err != nil {
				errs[i] = &FragmentError{Path: name, Err: err}
			}
			return nil
		})
	}
	_ = g.Wait()

	loaded := 0
	for i, err := range errs {
		if err == nil {
			loaded++
			continue
		}
		log.ErrorErr(log.CatProducer, "fragment skipped", err, "path", paths[i])
	}
	log.Info(log.CatProducer, "fragments loaded", "dir", dir, "loaded", loaded, "failed", len(paths)-loaded)

	joined := errors.Join(errs...)
	if joined != nil {
		span.RecordError(joined)
		span.SetStatus(codes.Error, "some fragments failed")
	}
	return loaded, joined
}

// RegisterFile registers the fragment at name in fsys.
func (p *Producer) RegisterFile(ctx context.Context, fsys fs.FS, name string) error {
	if err := p.loadOne(ctx, fsys, name); err != nil {
		return &FragmentError{Path: name, Err: err}
	}
	return nil
}

func (p *Producer) loadOne(ctx context.Context, fsys fs.FS, name string) error {
	ctx, span := p.tracer.Start(ctx, tracing.SpanLoadFile, trace.WithAttributes(
		attribute.String(tracing.AttrFragmentPath, name),
	))
	defer span.End()

	format, ok := fragment.DetectFormat(name)
	if !ok {
		return fmt.Errorf("%w: %s", fragment.ErrUnknownFormat, path.Ext(name))
	}
	f, err := fsys.Open(name)
	if err != nil {
		return err
	}
	defer f.Close()

	idx, buildID, err := fragment.Decode(f, format)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	span.SetAttributes(
		attribute.String(tracing.AttrModule, idx.Name()),
		attribute.String(tracing.AttrBuildID, buildID),
	)
	return p.Register(ctx, idx.Name(), idx.Records())
}

// listFragments returns the sorted fragment paths under dir.
func listFragments(fsys fs.FS, dir string) ([]string, error) {
	var files []string
	err := fs.WalkDir(fsys, dir, func(name string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if _, ok := fragment.DetectFormat(name); ok {
			files = append(files, name)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	slices.Sort(files)
	return files, nil
}
