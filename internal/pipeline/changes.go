package pipeline

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/Nomadcxx/cinesync/internal/config"
	"github.com/Nomadcxx/cinesync/internal/logging"
	"github.com/Nomadcxx/cinesync/internal/paths"
)

// Notifier is told which library item folders gained, moved or lost links.
type Notifier interface {
	Refresh(ctx context.Context, folders []string) error
}

// changes collects touched item folders in first-seen order. An item
// folder is the top-level "Title (Year)" folder below a target directory.
type changes struct {
	seen    map[string]bool
	folders []string
}

func (ch *changes) add(root, path string) {
	folder := itemFolder(root, path)
	if folder == "" {
		return
	}
	if ch.seen == nil {
		ch.seen = make(map[string]bool)
	}
	if ch.seen[folder] {
		return
	}
	ch.seen[folder] = true
	ch.folders = append(ch.folders, folder)
}

func (ch *changes) addOutcome(o Outcome) {
	if o.Status != StatusCreated && o.Status != StatusUpdated {
		return
	}
	ch.add(o.Target.Root, o.Target.FolderPath)
	if o.Replaced != "" {
		ch.add(o.Target.Root, filepath.Dir(o.Replaced))
	}
}

func (ch *changes) addRemoved(libraries []config.Library, links []string) {
	for _, link := range links {
		for _, lib := range libraries {
			if paths.Within(lib.Target, link) {
				ch.add(lib.Target, filepath.Dir(link))
				break
			}
		}
	}
}

// itemFolder returns the child of root that contains path, or "" when path
// is not below root.
func itemFolder(root, path string) string {
	if root == "" {
		return ""
	}
	rel, err := filepath.Rel(root, path)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return ""
	}
	first := strings.SplitN(filepath.ToSlash(rel), "/", 2)[0]
	return filepath.Join(root, first)
}

func (p *Pipeline) notify(ctx context.Context, ch *changes) {
	if p.notifier == nil || p.DryRun() || len(ch.folders) == 0 {
		return
	}
	if err := p.notifier.Refresh(ctx, ch.folders); err != nil {
		p.logger.Debug("pipeline", "media server refresh incomplete",
			logging.F("folders", len(ch.folders)), logging.F("error", err.Error()))
	}
}
