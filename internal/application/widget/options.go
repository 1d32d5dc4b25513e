package widget

import (
	"context"
	"fmt"
	"sort"

	"github.com/elliotchance/phpserialize"
	"github.com/mohammadpnp/theme-setup/internal/domain/content"
	"github.com/mohammadpnp/theme-setup/internal/infrastructure/phpvalue"
)

const (
	sidebarsOption = "sidebars_widgets"
	multiwidgetKey = "_multiwidget"
)

func instancesOption(idBase string) string {
	return "widget_" + idBase
}

// instanceSet is the widget_<id_base> option: numbered instances plus the
// _multiwidget flag.
type instanceSet struct {
	numbers  []int64
	settings map[int64]map[string]any
	extra    map[string]any
}

func loadInstances(ctx context.Context, store content.OptionStore, idBase string) (*instanceSet, error) {
	set := &instanceSet{settings: map[int64]map[string]any{}, extra: map[string]any{}}

	raw, ok, err := store.GetOption(ctx, instancesOption(idBase))
	if err != nil {
		return nil, err
	}
	if !ok || raw == "" {
		set.extra[multiwidgetKey] = int64(1)
		return set, nil
	}

	decoded, err := phpserialize.UnmarshalAssociativeArray([]byte(raw))
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", instancesOption(idBase), err)
	}
	for k, v := range decoded {
		switch key := k.(type) {
		case int64:
			settings, _ := phpvalue.Normalize(v).(map[string]any)
			set.settings[key] = settings
			set.numbers = append(set.numbers, key)
		default:
			set.extra[fmt.Sprint(key)] = phpvalue.Normalize(v)
		}
	}
	if len(decoded) == 0 {
		set.extra[multiwidgetKey] = int64(1)
	}
	sort.Slice(set.numbers, func(i, j int) bool { return set.numbers[i] < set.numbers[j] })
	return set, nil
}

// add appends settings under the next free number. Number 0 is never used:
// the admin screen treats it as the instance count.
func (s *instanceSet) add(settings map[string]any) int64 {
	next := int64(0)
	if n := len(s.numbers); n > 0 {
		next = s.numbers[n-1] + 1
	}
	if next == 0 {
		next = 1
	}
	s.settings[next] = settings
	s.numbers = append(s.numbers, next)
	return next
}

// encode keeps numbered instances first and _multiwidget last.
func (s *instanceSet) encode() (string, error) {
	entries := make([]phpvalue.Entry, 0, len(s.numbers)+len(s.extra))
	for _, n := range s.numbers {
		entries = append(entries, phpvalue.Entry{Key: n, Value: s.settings[n]})
	}
	keys := make([]string, 0, len(s.extra))
	for k := range s.extra {
		if k != multiwidgetKey {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	for _, k := range keys {
		entries = append(entries, phpvalue.Entry{Key: k, Value: s.extra[k]})
	}
	if v, ok := s.extra[multiwidgetKey]; ok {
		entries = append(entries, phpvalue.Entry{Key: multiwidgetKey, Value: v})
	}
	return phpvalue.EncodeArray(entries)
}

// sidebarAssignments is the sidebars_widgets option.
type sidebarAssignments struct {
	order   []string
	widgets map[string][]string
	extra   map[string]any
}

func loadAssignments(ctx context.Context, store content.OptionStore) (*sidebarAssignments, error) {
	a := &sidebarAssignments{widgets: map[string][]string{}, extra: map[string]any{}}

	raw, ok, err := store.GetOption(ctx, sidebarsOption)
	if err != nil {
		return nil, err
	}
	if !ok || raw == "" {
		return a, nil
	}
	decoded, err := phpserialize.UnmarshalAssociativeArray([]byte(raw))
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", sidebarsOption, err)
	}
	for k, v := range decoded {
		id := fmt.Sprint(k)
		switch list := phpvalue.Normalize(v).(type) {
		case map[string]any:
			a.order = append(a.order, id)
			a.widgets[id] = orderedStrings(list)
		case []any:
			a.order = append(a.order, id)
			for _, w := range list {
				a.widgets[id] = append(a.widgets[id], fmt.Sprint(w))
			}
		default:
			a.extra[id] = list
		}
	}
	sort.Strings(a.order)
	return a, nil
}

// orderedStrings reads a PHP list decoded as a map with "0", "1", ... keys.
func orderedStrings(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return instanceLess("i-"+keys[i], "i-"+keys[j]) })
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, fmt.Sprint(m[k]))
	}
	return out
}

func (a *sidebarAssignments) contains(sidebar, instanceID string) bool {
	for _, id := range a.widgets[sidebar] {
		if id == instanceID {
			return true
		}
	}
	return false
}

func (a *sidebarAssignments) append(sidebar, instanceID string) {
	if _, ok := a.widgets[sidebar]; !ok {
		a.order = append(a.order, sidebar)
	}
	a.widgets[sidebar] = append(a.widgets[sidebar], instanceID)
}

func (a *sidebarAssignments) encode() (string, error) {
	entries := make([]phpvalue.Entry, 0, len(a.order)+len(a.extra))
	for _, id := range a.order {
		list := make([]any, 0, len(a.widgets[id]))
		for _, w := range a.widgets[id] {
			list = append(list, w)
		}
		entries = append(entries, phpvalue.Entry{Key: id, Value: list})
	}
	keys := make([]string, 0, len(a.extra))
	for k := range a.extra {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		entries = append(entries, phpvalue.Entry{Key: k, Value: a.extra[k]})
	}
	return phpvalue.EncodeArray(entries)
}
