package widget

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"regexp"
	"sort"
	"strconv"

	"github.com/elliotchance/phpserialize"
	"github.com/mohammadpnp/theme-setup/internal/domain/widget"
	"github.com/mohammadpnp/theme-setup/internal/infrastructure/phpvalue"
)

var instanceSuffix = regexp.MustCompile(`-[0-9]+$`)

// SplitInstanceID turns "text-2" into ("text", "2").
func SplitInstanceID(id string) (idBase, number string) {
	idBase = instanceSuffix.ReplaceAllString(id, "")
	if idBase == id {
		return idBase, ""
	}
	return idBase, id[len(idBase)+1:]
}

// Decode reads a widget export: JSON first, the legacy PHP-serialized form
// otherwise.
func Decode(raw []byte) (widget.Data, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return widget.Data{}, ErrEmptyFile
	}
	if json.Valid(raw) {
		return decodeJSON(raw)
	}
	return decodeSerialized(raw)
}

// decodeJSON walks the tokens so sidebars and widgets keep their file order.
func decodeJSON(raw []byte) (widget.Data, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	if err := expectDelim(dec, '{'); err != nil {
		return widget.Data{}, err
	}

	var data widget.Data
	for dec.More() {
		sidebarID, err := stringToken(dec)
		if err != nil {
			return widget.Data{}, err
		}
		sidebar := widget.Sidebar{ID: sidebarID}

		tok, err := dec.Token()
		if err != nil {
			return widget.Data{}, fmt.Errorf("%w: %v", ErrCorruptedData, err)
		}
		switch tok {
		case json.Delim('{'):
			for dec.More() {
				id, err := stringToken(dec)
				if err != nil {
					return widget.Data{}, err
				}
				var settings map[string]any
				if err := dec.Decode(&settings); err != nil {
					return widget.Data{}, fmt.Errorf("%w: widget %s: %v", ErrCorruptedData, id, err)
				}
				sidebar.Widgets = append(sidebar.Widgets, newInstance(id, settings))
			}
			if _, err := dec.Token(); err != nil {
				return widget.Data{}, fmt.Errorf("%w: %v", ErrCorruptedData, err)
			}
		case json.Delim('['):
			// An empty sidebar is exported as [].
			for dec.More() {
				var skip json.RawMessage
				if err := dec.Decode(&skip); err != nil {
					return widget.Data{}, fmt.Errorf("%w: %v", ErrCorruptedData, err)
				}
			}
			if _, err := dec.Token(); err != nil {
				return widget.Data{}, fmt.Errorf("%w: %v", ErrCorruptedData, err)
			}
		default:
			return widget.Data{}, fmt.Errorf("%w: sidebar %s is not an object", ErrCorruptedData, sidebarID)
		}
		data.Sidebars = append(data.Sidebars, sidebar)
	}
	return data, nil
}

func expectDelim(dec *json.Decoder, want json.Delim) error {
	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrCorruptedData, err)
	}
	if d, ok := tok.(json.Delim); !ok || d != want {
		return fmt.Errorf("%w: expected %s", ErrCorruptedData, want)
	}
	return nil
}

func stringToken(dec *json.Decoder) (string, error) {
	tok, err := dec.Token()
	if err == io.EOF {
		return "", fmt.Errorf("%w: unexpected end", ErrCorruptedData)
	}
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrCorruptedData, err)
	}
	s, ok := tok.(string)
	if !ok {
		return "", fmt.Errorf("%w: expected a key", ErrCorruptedData)
	}
	return s, nil
}

func decodeSerialized(raw []byte) (widget.Data, error) {
	top, err := phpserialize.UnmarshalAssociativeArray(raw)
	if err != nil {
		return widget.Data{}, fmt.Errorf("%w: %v", ErrCorruptedData, err)
	}

	ids := make([]string, 0, len(top))
	sidebars := make(map[string]map[string]any, len(top))
	for k, v := range top {
		id := fmt.Sprint(k)
		ids = append(ids, id)
		widgets, _ := phpvalue.Normalize(v).(map[string]any)
		sidebars[id] = widgets
	}
	sort.Strings(ids)

	var data widget.Data
	for _, id := range ids {
		sidebar := widget.Sidebar{ID: id}
		widgetIDs := make([]string, 0, len(sidebars[id]))
		for wid := range sidebars[id] {
			widgetIDs = append(widgetIDs, wid)
		}
		sort.Slice(widgetIDs, func(i, j int) bool { return instanceLess(widgetIDs[i], widgetIDs[j]) })
		for _, wid := range widgetIDs {
			settings, _ := sidebars[id][wid].(map[string]any)
			sidebar.Widgets = append(sidebar.Widgets, newInstance(wid, settings))
		}
		data.Sidebars = append(data.Sidebars, sidebar)
	}
	return data, nil
}

// instanceLess orders by id base, then by instance number.
func instanceLess(a, b string) bool {
	baseA, numA := SplitInstanceID(a)
	baseB, numB := SplitInstanceID(b)
	if baseA != baseB {
		return baseA < baseB
	}
	na, _ := strconv.Atoi(numA)
	nb, _ := strconv.Atoi(numB)
	return na < nb
}

func newInstance(id string, settings map[string]any) widget.Instance {
	idBase, _ := SplitInstanceID(id)
	norm, _ := phpvalue.Normalize(settings).(map[string]any)
	if norm == nil {
		norm = map[string]any{}
	}
	return widget.Instance{ID: id, IDBase: idBase, Settings: norm}
}

// canonical renders settings so two equal instances compare byte for byte.
func canonical(settings map[string]any) string {
	raw, err := json.Marshal(phpvalue.Normalize(settings))
	if err != nil {
		return ""
	}
	return string(raw)
}
