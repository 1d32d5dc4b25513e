package onboarding

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/mohammadpnp/theme-setup/internal/domain/content"
)

const stateIgnored = "ignored"

// SetupState is the per-theme "wizard completed" flag.
type SetupState struct {
	options content.OptionStore
	slug    string
	now     func() time.Time
}

func NewSetupState(options content.OptionStore, themeSlug string) *SetupState {
	return &SetupState{options: options, slug: themeSlug, now: time.Now}
}

func (s *SetupState) completedOption() string { return "merlin_" + s.slug + "_completed" }
func (s *SetupState) childOption() string     { return "merlin_" + s.slug + "_child" }

// Ready marks the wizard finished at the current time.
func (s *SetupState) Ready(ctx context.Context) error {
	return s.set(ctx, strconv.FormatInt(s.now().Unix(), 10))
}

// Ignore records that the admin dismissed the wizard.
func (s *SetupState) Ignore(ctx context.Context) error {
	return s.set(ctx, stateIgnored)
}

func (s *SetupState) set(ctx context.Context, value string) error {
	if err := s.options.SetOption(ctx, s.completedOption(), value); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreState, err)
	}
	return nil
}

type Status struct {
	Completed   bool   `json:"completed"`
	Ignored     bool   `json:"ignored"`
	CompletedAt int64  `json:"completed_at,omitempty"`
	ChildTheme  string `json:"child_theme,omitempty"`
}

func (s *SetupState) Status(ctx context.Context) (Status, error) {
	var st Status
	raw, ok, err := s.options.GetOption(ctx, s.completedOption())
	if err != nil {
		return st, fmt.Errorf("%w: %v", ErrStoreState, err)
	}
	if ok {
		if raw == stateIgnored {
			st.Ignored = true
		} else if ts, err := strconv.ParseInt(raw, 10, 64); err == nil {
			st.Completed = true
			st.CompletedAt = ts
		}
	}
	child, _, err := s.options.GetOption(ctx, s.childOption())
	if err != nil {
		return st, fmt.Errorf("%w: %v", ErrStoreState, err)
	}
	st.ChildTheme = child
	return st, nil
}
