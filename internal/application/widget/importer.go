package widget

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/mohammadpnp/theme-setup/internal/domain/content"
	"github.com/mohammadpnp/theme-setup/internal/domain/widget"
	"go.uber.org/zap"
)

const (
	msgSidebarMissing = "Sidebar does not exist in theme (moving widget to Inactive)"
	msgUnsupported    = "Site does not support widget"
	msgExists         = "Widget already exists"
	msgImported       = "Imported"
	msgInactive       = "Imported to Inactive"
	noTitle           = "No Title"
)

// Config lists what the active theme registers.
type Config struct {
	// Sidebars maps sidebar id to display name.
	Sidebars map[string]string
	// Widgets maps id_base to display name.
	Widgets map[string]string
}

type Importer struct {
	options content.OptionStore
	cfg     Config
	logger  *zap.Logger
}

func NewImporter(options content.OptionStore, cfg Config, logger *zap.Logger) *Importer {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Sidebars == nil {
		cfg.Sidebars = map[string]string{}
	}
	if cfg.Widgets == nil {
		cfg.Widgets = map[string]string{}
	}
	return &Importer{options: options, cfg: cfg, logger: logger}
}

// ImportFile decodes the export at path and imports it.
func (i *Importer) ImportFile(ctx context.Context, path string, termIDs map[int64]int64) (widget.Report, error) {
	raw, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return widget.Report{}, fmt.Errorf("%w: %s", ErrFileNotFound, path)
	}
	if err != nil {
		return widget.Report{}, fmt.Errorf("read widget file: %w", err)
	}
	data, err := Decode(raw)
	if err != nil {
		return widget.Report{}, err
	}
	return i.Import(ctx, data, termIDs)
}

// Import adds every widget instance to its sidebar, or to the inactive area
// when the theme lacks the sidebar. termIDs translates nav_menu references.
func (i *Importer) Import(ctx context.Context, data widget.Data, termIDs map[int64]int64) (widget.Report, error) {
	var report widget.Report

	assignments, err := loadAssignments(ctx, i.options)
	if err != nil {
		return report, fmt.Errorf("%w: %v", ErrStoreOptions, err)
	}
	sets := map[string]*instanceSet{}
	dirty := map[string]bool{}

	for _, sidebar := range data.Sidebars {
		if sidebar.ID == widget.InactiveSidebar {
			continue
		}

		target := sidebar.ID
		result := widget.SidebarResult{ID: sidebar.ID, Name: sidebar.ID, MessageType: widget.Success}
		if name, ok := i.cfg.Sidebars[sidebar.ID]; ok {
			if name != "" {
				result.Name = name
			}
		} else {
			target = widget.InactiveSidebar
			result.MessageType = widget.Error
			result.Message = msgSidebarMissing
		}

		for _, inst := range sidebar.Widgets {
			if err := ctx.Err(); err != nil {
				return report, err
			}
			wr, err := i.importWidget(ctx, inst, target, target == sidebar.ID, termIDs, assignments, sets, dirty)
			if err != nil {
				return report, err
			}
			result.Widgets = append(result.Widgets, wr)
		}
		report.Sidebars = append(report.Sidebars, result)
	}

	for idBase := range dirty {
		encoded, err := sets[idBase].encode()
		if err != nil {
			return report, fmt.Errorf("%w: %v", ErrStoreOptions, err)
		}
		if err := i.options.SetOption(ctx, instancesOption(idBase), encoded); err != nil {
			return report, fmt.Errorf("%w: %v", ErrStoreOptions, err)
		}
	}
	if len(dirty) > 0 {
		encoded, err := assignments.encode()
		if err != nil {
			return report, fmt.Errorf("%w: %v", ErrStoreOptions, err)
		}
		if err := i.options.SetOption(ctx, sidebarsOption, encoded); err != nil {
			return report, fmt.Errorf("%w: %v", ErrStoreOptions, err)
		}
	}

	i.logger.Debug("widget import finished\n" + FormatReport(report))
	return report, nil
}

func (i *Importer) importWidget(
	ctx context.Context,
	inst widget.Instance,
	target string,
	sidebarAvailable bool,
	termIDs map[int64]int64,
	assignments *sidebarAssignments,
	sets map[string]*instanceSet,
	dirty map[string]bool,
) (widget.WidgetResult, error) {
	settings := translateMenu(inst, termIDs)

	wr := widget.WidgetResult{Name: inst.IDBase, Title: noTitle}
	if name := i.cfg.Widgets[inst.IDBase]; name != "" {
		wr.Name = name
	}
	if title, ok := settings["title"].(string); ok && title != "" {
		wr.Title = title
	}

	if _, ok := i.cfg.Widgets[inst.IDBase]; !ok {
		wr.MessageType, wr.Message = widget.Error, msgUnsupported
		return wr, nil
	}

	set, ok := sets[inst.IDBase]
	if !ok {
		loaded, err := loadInstances(ctx, i.options, inst.IDBase)
		if err != nil {
			return wr, fmt.Errorf("%w: %v", ErrStoreOptions, err)
		}
		set = loaded
		sets[inst.IDBase] = set
	}

	want := canonical(settings)
	for _, n := range set.numbers {
		id := inst.IDBase + "-" + strconv.FormatInt(n, 10)
		if assignments.contains(target, id) && canonical(set.settings[n]) == want {
			wr.MessageType, wr.Message = widget.Warning, msgExists
			return wr, nil
		}
	}

	number := set.add(settings)
	assignments.append(target, inst.IDBase+"-"+strconv.FormatInt(number, 10))
	dirty[inst.IDBase] = true

	if sidebarAvailable {
		wr.MessageType, wr.Message = widget.Success, msgImported
	} else {
		wr.MessageType, wr.Message = widget.Warning, msgInactive
	}
	return wr, nil
}

// translateMenu rewrites a custom menu widget's nav_menu through the term
// map. Unknown menus are left as they are.
func translateMenu(inst widget.Instance, termIDs map[int64]int64) map[string]any {
	settings := make(map[string]any, len(inst.Settings))
	for k, v := range inst.Settings {
		settings[k] = v
	}
	if !strings.Contains(inst.ID, "nav_menu") {
		return settings
	}
	raw, ok := settings["nav_menu"]
	if !ok {
		return settings
	}
	source := content.ParseID(fmt.Sprint(raw))
	if source == 0 {
		return settings
	}
	if dest, ok := termIDs[source]; ok {
		settings["nav_menu"] = dest
	}
	return settings
}

// FormatReport renders the report the way it is written to the log.
func FormatReport(r widget.Report) string {
	if len(r.Sidebars) == 0 {
		return "No results for widget import!"
	}
	var b strings.Builder
	for _, s := range r.Sidebars {
		fmt.Fprintf(&b, "%s : %s\n\n", s.Name, s.Message)
		for _, w := range s.Widgets {
			fmt.Fprintf(&b, "%s - %s - %s\n", w.Name, w.Title, w.Message)
		}
		b.WriteString("\n")
	}
	return b.String()
}
