package onboarding

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/mohammadpnp/theme-setup/internal/application/importer"
	appwidget "github.com/mohammadpnp/theme-setup/internal/application/widget"
	"go.uber.org/zap"
)

// Cursor phases of a content import. Posts carry their offset as
// "posts:<n>".
const (
	phaseUsers  = "users"
	phaseTerms  = "terms"
	phasePosts  = "posts"
	phaseFinish = "finish"
)

func postsCursor(offset int) string {
	return phasePosts + ":" + strconv.Itoa(offset)
}

func parseCursor(cursor string) (phase string, offset int, err error) {
	if cursor == "" {
		return phaseUsers, 0, nil
	}
	phase, rest, found := strings.Cut(cursor, ":")
	switch phase {
	case phaseUsers, phaseTerms, phaseFinish:
		if found {
			return "", 0, fmt.Errorf("%w: %q", ErrInvalidCursor, cursor)
		}
		return phase, 0, nil
	case phasePosts:
		n, err := strconv.Atoi(rest)
		if !found || err != nil || n < 0 {
			return "", 0, fmt.Errorf("%w: %q", ErrInvalidCursor, cursor)
		}
		return phase, n, nil
	}
	return "", 0, fmt.Errorf("%w: %q", ErrInvalidCursor, cursor)
}

// importContent runs one phase of the WXR import. Every phase reopens the
// import session, so any round may run in a fresh process.
func (w *Wizard) importContent(ctx context.Context, in stepInput) (stepOutcome, error) {
	phase, offset, err := parseCursor(in.cursor)
	if err != nil {
		return stepOutcome{}, err
	}
	engine := w.deps.Engine

	doc, err := engine.Parse(ctx, in.files.Content)
	if err != nil {
		return stepOutcome{}, fmt.Errorf("%w: %v", ErrInvalidContent, err)
	}
	total := doc.CountPosts()

	if err := engine.Begin(ctx); err != nil {
		return stepOutcome{}, err
	}
	out, err := w.contentPhase(ctx, phase, offset, total, func(ctx context.Context) (importer.Summary, error) {
		switch phase {
		case phaseUsers:
			return engine.ImportUsers(ctx, doc)
		case phaseTerms:
			return engine.ImportTerms(ctx, doc)
		default:
			return engine.ImportPosts(ctx, doc, offset, w.cfg.PostsPerChunk)
		}
	})
	if err != nil {
		if endErr := engine.End(ctx); endErr != nil {
			w.logger.Warn("import hooks not restored", zap.String("phase", phase), zap.Error(endErr))
		}
		return stepOutcome{}, err
	}
	if err := engine.End(ctx); err != nil {
		return stepOutcome{}, err
	}

	if out.done {
		if err := engine.Finalize(ctx); err != nil {
			return stepOutcome{}, err
		}
		if w.deps.Pages != nil {
			if _, err := w.deps.Pages.AfterImport(ctx); err != nil {
				w.logger.Warn("reading pages not assigned", zap.Error(err))
			}
		}
	}
	return out, nil
}

func (w *Wizard) contentPhase(
	ctx context.Context,
	phase string,
	offset, total int,
	run func(context.Context) (importer.Summary, error),
) (stepOutcome, error) {
	switch phase {
	case phaseUsers:
		if w.deps.Pages != nil {
			if err := w.deps.Pages.BeforeContent(ctx); err != nil {
				w.logger.Warn("hello world post not drafted", zap.Error(err))
			}
		}
		sum, err := run(ctx)
		if err != nil {
			return stepOutcome{}, err
		}
		w.logSummary(phase, sum)
		return stepOutcome{cursor: phaseTerms, imported: 0}, nil

	case phaseTerms:
		sum, err := run(ctx)
		if err != nil {
			return stepOutcome{}, err
		}
		w.logSummary(phase, sum)
		return stepOutcome{cursor: postsCursor(0), imported: 0}, nil

	case phasePosts:
		if offset >= total {
			return stepOutcome{cursor: phaseFinish, imported: total}, nil
		}
		sum, err := run(ctx)
		if err != nil {
			return stepOutcome{}, err
		}
		w.logSummary(phase, sum)
		next := offset + w.cfg.PostsPerChunk
		if next >= total {
			return stepOutcome{cursor: phaseFinish, imported: total}, nil
		}
		return stepOutcome{cursor: postsCursor(next), imported: next}, nil

	default:
		sum, err := w.deps.Engine.Remap(ctx)
		if err != nil {
			return stepOutcome{}, err
		}
		w.logger.Info("content references remapped",
			zap.Int("posts", sum.Posts),
			zap.Int("comments", sum.Comments),
			zap.Int("terms", sum.Terms),
			zap.Int("unresolved", sum.Unresolved),
		)
		return stepOutcome{done: true, imported: AllImported}, nil
	}
}

func (w *Wizard) logSummary(phase string, sum importer.Summary) {
	w.logger.Info("content phase imported",
		zap.String("phase", phase),
		zap.Int("created", sum.Created),
		zap.Int("existing", sum.Existing),
		zap.Int("skipped", sum.Skipped),
		zap.Int("failed", sum.Failed),
	)
}

func (w *Wizard) importWidgets(ctx context.Context, in stepInput) (stepOutcome, error) {
	report, err := w.deps.Widgets.ImportFile(ctx, in.files.Widgets, w.termIDs(ctx))
	if err != nil {
		return stepOutcome{}, err
	}
	return stepOutcome{done: true, logs: appwidget.FormatReport(report)}, nil
}

func (w *Wizard) importOptions(ctx context.Context, in stepInput) (stepOutcome, error) {
	res, err := w.deps.Customizer.ImportFile(ctx, in.files.Options, w.termIDs(ctx))
	if err != nil {
		return stepOutcome{}, err
	}
	return stepOutcome{
		done: true,
		logs: fmt.Sprintf("%d customizer settings imported, %d images sideloaded", res.Mods, res.Images),
	}, nil
}

func (w *Wizard) importSliders(ctx context.Context, in stepInput) (stepOutcome, error) {
	name, err := w.deps.Sliders.Import(ctx, in.files.Sliders)
	if err != nil {
		return stepOutcome{}, err
	}
	return stepOutcome{done: true, logs: fmt.Sprintf("slider %q imported", name)}, nil
}

func (w *Wizard) importRedux(ctx context.Context, in stepInput) (stepOutcome, error) {
	n, err := w.deps.Redux.Import(ctx, in.files.Redux)
	if err != nil {
		return stepOutcome{}, err
	}
	return stepOutcome{done: true, logs: fmt.Sprintf("%d redux option sets imported", n)}, nil
}

func (w *Wizard) afterImport(ctx context.Context, _ stepInput) (stepOutcome, error) {
	set, err := w.deps.Pages.AfterImport(ctx)
	if err != nil {
		return stepOutcome{}, err
	}
	return stepOutcome{done: true, logs: fmt.Sprintf("%d site options assigned", len(set))}, nil
}
