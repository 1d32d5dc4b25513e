package onboarding

import (
	"context"
	"fmt"
	"strings"

	"github.com/mohammadpnp/theme-setup/internal/domain/content"
	"github.com/mohammadpnp/theme-setup/internal/infrastructure/phpvalue"
	"go.uber.org/zap"
)

const activePluginsOption = "active_plugins"

type PluginAction string

const (
	PluginInstall  PluginAction = "install"
	PluginUpdate   PluginAction = "update"
	PluginActivate PluginAction = "activate"
)

func (a PluginAction) message() string {
	switch a {
	case PluginActivate:
		return "Activating"
	case PluginUpdate:
		return "Updating"
	default:
		return MessageInstalling
	}
}

type Plugin struct {
	Slug   string       `mapstructure:"slug" json:"slug"`
	Name   string       `mapstructure:"name" json:"name"`
	Action PluginAction `mapstructure:"action" json:"action"`
}

// PluginRegistry reports the work left for a plugin.
type PluginRegistry interface {
	Pending(ctx context.Context, slug string) (PluginAction, bool, error)
}

// OptionPlugins treats a configured plugin as done once active_plugins
// lists it.
type OptionPlugins struct {
	options content.OptionStore
	plugins map[string]Plugin
}

func NewOptionPlugins(options content.OptionStore, plugins []Plugin) *OptionPlugins {
	m := make(map[string]Plugin, len(plugins))
	for _, p := range plugins {
		if p.Action == "" {
			p.Action = PluginInstall
		}
		m[p.Slug] = p
	}
	return &OptionPlugins{options: options, plugins: m}
}

func (o *OptionPlugins) Pending(ctx context.Context, slug string) (PluginAction, bool, error) {
	p, ok := o.plugins[slug]
	if !ok {
		return "", false, nil
	}
	active, err := o.active(ctx)
	if err != nil {
		return "", false, err
	}
	for _, file := range active {
		if dir, _, _ := strings.Cut(file, "/"); dir == slug {
			return "", false, nil
		}
	}
	return p.Action, true, nil
}

func (o *OptionPlugins) active(ctx context.Context) ([]string, error) {
	raw, ok, err := o.options.GetOption(ctx, activePluginsOption)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", activePluginsOption, err)
	}
	if !ok || raw == "" {
		return nil, nil
	}
	decoded, err := phpvalue.DecodeArray(raw)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", activePluginsOption, err)
	}
	out := make([]string, 0, len(decoded))
	for _, v := range decoded {
		out = append(out, fmt.Sprint(v))
	}
	return out, nil
}

type PluginsConfig struct {
	TGMPAURL string
	Menu     string
}

// PluginStep answers one plugins round: a redirect into the plugin
// installer while work is left, done otherwise.
func (w *Wizard) PluginStep(ctx context.Context, slug string) (Response, error) {
	if slug == "" {
		return Response{}, ErrMissingSlug
	}
	if w.deps.Plugins == nil {
		return Response{Done: 1, Message: MessageSuccess}, nil
	}
	action, pending, err := w.deps.Plugins.Pending(ctx, slug)
	if err != nil {
		return Response{}, err
	}
	if !pending {
		w.logger.Debug("plugin processed", zap.String("slug", slug))
		return Response{Done: 1, Message: MessageSuccess}, nil
	}

	resp := Response{
		URL:          w.cfg.Plugins.TGMPAURL,
		Plugin:       []string{slug},
		TGMPAPage:    w.cfg.Plugins.Menu,
		PluginStatus: "all",
		Nonce:        w.deps.Nonces.Create("bulk-plugins"),
		Action:       "tgmpa-bulk-" + string(action),
		Action2:      -1,
		Message:      action.message(),
	}.Sign()
	resp.Message = MessageInstalling
	return resp, nil
}
