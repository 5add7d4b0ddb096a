// Package pipeline runs media candidates through parse, resolve, format
// and link, and records the results in the registry.
//
// A Pipeline is used by a single goroutine at a time: the one-shot run
// command or the watch-mode worker.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/Nomadcxx/cinesync/internal/config"
	"github.com/Nomadcxx/cinesync/internal/database"
	"github.com/Nomadcxx/cinesync/internal/linker"
	"github.com/Nomadcxx/cinesync/internal/logging"
	"github.com/Nomadcxx/cinesync/internal/metadata"
	"github.com/Nomadcxx/cinesync/internal/naming"
	"github.com/Nomadcxx/cinesync/internal/paths"
)

// Run modes recorded in the registry.
const (
	ModeRun       = "run"
	ModeReconcile = "reconcile"
	ModeClean     = "clean"
)

type Pipeline struct {
	libraries []config.Library
	resolver  metadata.Resolver
	links     *linker.Manager
	registry  *database.Registry
	logger    *logging.Logger
	progress  func(done, total int, o Outcome)
	notifier  Notifier
}

func New(libraries []config.Library, resolver metadata.Resolver, links *linker.Manager, registry *database.Registry, options ...func(*Pipeline)) *Pipeline {
	p := &Pipeline{
		libraries: libraries,
		resolver:  resolver,
		links:     links,
		registry:  registry,
		logger:    logging.Nop(),
	}
	for _, opt := range options {
		opt(p)
	}
	return p
}

func WithLogger(logger *logging.Logger) func(*Pipeline) {
	return func(p *Pipeline) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithProgress registers a callback invoked after every candidate of a Run.
func WithProgress(fn func(done, total int, o Outcome)) func(*Pipeline) {
	return func(p *Pipeline) {
		p.progress = fn
	}
}

// WithNotifier registers the media server refresh run after links change.
// It is never called in dry-run mode.
func WithNotifier(n Notifier) func(*Pipeline) {
	return func(p *Pipeline) {
		p.notifier = n
	}
}

// DryRun reports whether the pipeline leaves the filesystem and registry alone.
func (p *Pipeline) DryRun() bool {
	return p.links.DryRun()
}

func (p *Pipeline) Libraries() []config.Library {
	return p.libraries
}

// Process runs one candidate through the pipeline. Every failure is
// classified into the returned Outcome; Process itself never fails.
func (p *Pipeline) Process(ctx context.Context, c naming.MediaCandidate) Outcome {
	o := p.process(ctx, c)

	var ch changes
	ch.addOutcome(o)
	p.notify(ctx, &ch)
	return o
}

func (p *Pipeline) process(ctx context.Context, c naming.MediaCandidate) Outcome {
	lib, ok := p.libraryFor(c)
	if !ok {
		err := fmt.Errorf("%s is not under a configured watch directory", c.SourcePath)
		p.logger.Error("pipeline", "candidate outside watch directories", err)
		return Outcome{Candidate: c, Status: StatusFailed, Detail: err.Error(), Err: err}
	}
	if c.Kind == naming.KindUnknown {
		c.Kind = lib.Kind
	}

	previous, err := p.registry.GetLinkBySource(c.SourcePath)
	if err != nil {
		p.logger.Error("registry", "lookup failed", err, logging.F("source", c.SourcePath))
	}
	if o, ok := p.alreadyLinked(c, lib, previous); ok {
		return o
	}

	guess, err := naming.ParseWithin(c.SourcePath, lib.Watch, c.Kind)
	if err != nil {
		return p.skip(c, StatusSkipped, database.SkipReasonUnparsableName, naming.LinkTarget{}, err)
	}

	meta, err := p.resolver.Resolve(ctx, metadata.Query{
		Title:   guess.Title,
		Year:    guess.Year,
		Kind:    guess.Kind,
		Season:  guess.Season,
		Episode: guess.Episode,
	})
	switch {
	case err == nil:
	case errors.Is(err, metadata.ErrNotFound):
		p.logger.Debug("pipeline", "no metadata match, linking unverified",
			logging.F("title", guess.Title), logging.F("year", guess.Year))
		meta = nil
	default:
		return p.skip(c, StatusDeferred, database.SkipReasonResolverUnavailable, naming.LinkTarget{}, err)
	}

	target := naming.Format(c.SourcePath, lib.Target, guess, meta)
	action, err := p.links.Ensure(target)
	if err != nil {
		if errors.Is(err, linker.ErrConflict) {
			return p.skip(c, StatusSkipped, database.SkipReasonConflict, target, err)
		}
		return p.skip(c, StatusFailed, database.SkipReasonLinkCreationFailed, target, err)
	}

	o := Outcome{
		Candidate: c,
		Status:    Status(action),
		Target:    target,
		Verified:  target.Verified,
	}
	if previous != nil && previous.LinkPath != target.LinkPath() {
		o.Replaced = previous.LinkPath
	}

	if !p.DryRun() {
		p.retire(previous, target, lib)
		p.record(c, guess, meta, target)
	}
	return o
}

// alreadyLinked short-circuits verified candidates whose recorded link
// still points at them, so unchanged files cost no metadata lookups.
// Unverified links go through resolution again in case the title can now
// be matched.
func (p *Pipeline) alreadyLinked(c naming.MediaCandidate, lib config.Library, rec *database.LinkRecord) (Outcome, bool) {
	if rec == nil || !rec.Verified {
		return Outcome{}, false
	}
	if !paths.Within(lib.Target, rec.LinkPath) || !linker.Points(rec.LinkPath, c.SourcePath) {
		return Outcome{}, false
	}
	return Outcome{
		Candidate: c,
		Status:    StatusUnchanged,
		Target: naming.LinkTarget{
			Root:       lib.Target,
			FolderPath: filepath.Dir(rec.LinkPath),
			FileName:   filepath.Base(rec.LinkPath),
			SourcePath: c.SourcePath,
			Verified:   true,
		},
		Verified: true,
	}, true
}

// retire removes the link a source had before its canonical location
// moved, e.g. when an unverified title is later matched.
func (p *Pipeline) retire(previous *database.LinkRecord, target naming.LinkTarget, lib config.Library) {
	if previous == nil || previous.LinkPath == target.LinkPath() {
		return
	}
	if linker.Points(previous.LinkPath, target.SourcePath) {
		if err := p.links.Remove(previous.LinkPath, lib.Target); err != nil {
			p.logger.Error("pipeline", "failed to remove superseded link", err, logging.F("link", previous.LinkPath))
			return
		}
	}
	if err := p.registry.DeleteLinkByPath(previous.LinkPath); err != nil {
		p.logger.Error("registry", "failed to delete link row", err, logging.F("link", previous.LinkPath))
	}
}

func (p *Pipeline) record(c naming.MediaCandidate, guess *naming.ParsedGuess, meta *naming.ResolvedMetadata, target naming.LinkTarget) {
	rec := &database.LinkRecord{
		SourcePath: c.SourcePath,
		LinkPath:   target.LinkPath(),
		Kind:       guess.Kind.String(),
		Title:      guess.Title,
		Year:       guess.Year,
		Verified:   target.Verified,
	}
	if meta != nil {
		rec.Title = meta.CanonicalTitle
		rec.Year = meta.Year
		rec.ExternalID = meta.ExternalID
	}

	if err := p.registry.UpsertLink(rec); err != nil {
		p.logger.Error("registry", "failed to record link", err, logging.F("link", rec.LinkPath))
	}
	if err := p.registry.ClearSkippedItem(c.SourcePath); err != nil {
		p.logger.Error("registry", "failed to clear skipped item", err, logging.F("source", c.SourcePath))
	}
}

func (p *Pipeline) skip(c naming.MediaCandidate, status Status, reason database.SkipReason, target naming.LinkTarget, err error) Outcome {
	o := Outcome{
		Candidate: c,
		Status:    status,
		Target:    target,
		Reason:    reason,
		Detail:    err.Error(),
		Err:       err,
	}

	fields := []logging.Field{logging.F("source", c.SourcePath), logging.F("reason", string(reason))}

	// Unparsable names do not change between cycles; only report them once.
	repeat := false
	if reason == database.SkipReasonUnparsableName {
		if item, _ := p.registry.GetSkippedItem(c.SourcePath); item != nil && item.Reason == reason {
			repeat = true
		}
	}

	switch {
	case repeat:
		p.logger.Debug("pipeline", "still unparsable", fields...)
	case status == StatusFailed:
		p.logger.Error("pipeline", "candidate failed", err, fields...)
	case status == StatusDeferred:
		p.logger.Warn("pipeline", "candidate deferred", append(fields, logging.F("error", err.Error()))...)
	default:
		p.logger.Warn("pipeline", "candidate skipped", append(fields, logging.F("error", err.Error()))...)
	}

	if !p.DryRun() {
		if rerr := p.registry.InsertSkippedItem(c.SourcePath, c.Kind.String(), reason, err.Error()); rerr != nil {
			p.logger.Error("registry", "failed to record skipped item", rerr, logging.F("source", c.SourcePath))
		}
	}
	return o
}

// Run cleans stale links, processes candidates in order and records the
// run. A cancelled context stops the run between candidates.
func (p *Pipeline) Run(ctx context.Context, mode string, candidates []naming.MediaCandidate) *Summary {
	s := &Summary{Mode: mode, DryRun: p.DryRun(), StartedAt: time.Now()}

	p.cleanup(s)

	var ch changes
	for i, c := range candidates {
		if ctx.Err() != nil {
			p.logger.Warn("pipeline", "run interrupted",
				logging.F("processed", i), logging.F("remaining", len(candidates)-i))
			break
		}
		o := p.process(ctx, c)
		s.Add(o)
		ch.addOutcome(o)
		if p.progress != nil {
			p.progress(i+1, len(candidates), o)
		}
	}

	s.FinishedAt = time.Now()
	p.finish(s)

	ch.addRemoved(p.libraries, s.RemovedLinks)
	p.notify(ctx, &ch)
	return s
}

// Clean runs only the stale-link pass.
func (p *Pipeline) Clean() *Summary {
	s := &Summary{Mode: ModeClean, DryRun: p.DryRun(), StartedAt: time.Now()}
	p.cleanup(s)
	s.FinishedAt = time.Now()
	p.finish(s)

	var ch changes
	ch.addRemoved(p.libraries, s.RemovedLinks)
	p.notify(context.Background(), &ch)
	return s
}

func (p *Pipeline) cleanup(s *Summary) {
	removed, err := p.links.RemoveStale(p.roots())
	s.Removed = len(removed)
	s.RemovedLinks = removed
	s.CleanupErr = err
	if err != nil {
		p.logger.Error("pipeline", "stale link cleanup incomplete", err)
	}

	if p.DryRun() {
		return
	}
	for _, link := range removed {
		if err := p.registry.DeleteLinkByPath(link); err != nil {
			p.logger.Error("registry", "failed to delete link row", err, logging.F("link", link))
		}
	}
}

func (p *Pipeline) finish(s *Summary) {
	if _, err := p.registry.RecordRun(s.Record()); err != nil {
		p.logger.Error("registry", "failed to record run", err, logging.F("mode", s.Mode))
	}
	p.logger.Info("pipeline", "run finished",
		logging.F("mode", s.Mode),
		logging.F("created", s.Created),
		logging.F("updated", s.Updated),
		logging.F("unchanged", s.Unchanged),
		logging.F("unverified", s.Unverified),
		logging.F("skipped", s.Skipped),
		logging.F("deferred", s.Deferred),
		logging.F("failed", s.Failed),
		logging.F("removed", s.Removed),
		logging.F("duration", s.Duration().Round(time.Millisecond)))
}

// Deferred returns the candidates waiting for the metadata service. Entries
// whose source has since disappeared are dropped from the queue.
func (p *Pipeline) Deferred() ([]naming.MediaCandidate, error) {
	items, err := p.registry.GetSkippedItemsByReason(database.SkipReasonResolverUnavailable)
	if err != nil {
		return nil, err
	}

	candidates := make([]naming.MediaCandidate, 0, len(items))
	for _, item := range items {
		if _, err := os.Stat(item.Path); errors.Is(err, os.ErrNotExist) {
			if err := p.registry.ClearSkippedItem(item.Path); err != nil {
				p.logger.Error("registry", "failed to clear skipped item", err, logging.F("source", item.Path))
			}
			continue
		}
		candidates = append(candidates, naming.NewCandidate(item.Path, naming.ParseKind(item.Kind)))
	}
	return candidates, nil
}

// roots returns the stale-cleanup roots: each target directory with the
// watch directories that link into it.
func (p *Pipeline) roots() []linker.Root {
	var roots []linker.Root
	index := make(map[string]int)
	for _, lib := range p.libraries {
		target := filepath.Clean(lib.Target)
		if i, ok := index[target]; ok {
			roots[i].Watch = append(roots[i].Watch, lib.Watch)
			continue
		}
		index[target] = len(roots)
		roots = append(roots, linker.Root{Target: target, Watch: []string{lib.Watch}})
	}
	return roots
}

func (p *Pipeline) libraryFor(c naming.MediaCandidate) (config.Library, bool) {
	for _, lib := range p.libraries {
		if c.Kind != naming.KindUnknown && c.Kind != lib.Kind {
			continue
		}
		if paths.Within(lib.Watch, c.SourcePath) {
			return lib, true
		}
	}
	return config.Library{}, false
}
