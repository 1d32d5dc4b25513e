// Package ajaxclient drives the wizard's chunked step protocol from outside
// a browser: it posts each item, follows redirects and stops an item whose
// server keeps answering the same redirect.
package ajaxclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	StatusDone    = "done"
	StatusFailed  = "failed"
	StatusStalled = "stalled"
	StatusError   = "error"

	DefaultMaxRounds = 1000
	defaultTimeout   = 2 * time.Minute
)

var (
	ErrUnexpectedStatus = errors.New("unexpected response status")
	errNotStep          = errors.New("response is not a step response")
)

// Item is one unit the driver walks, such as one content kind or one plugin.
type Item struct {
	// Label names the item in outcomes and logs.
	Label  string
	Action string
	Fields url.Values
	// RestartOnPage re-posts the initial request when a redirect target
	// answers with something other than a step response. The plugin
	// installer answers with a whole HTML page.
	RestartOnPage bool
}

// ContentItem is the initial request of one content kind.
func ContentItem(kind string, selectedIndex int) Item {
	return Item{
		Label:  kind,
		Action: "merlin_content",
		Fields: url.Values{
			"content":        {kind},
			"selected_index": {strconv.Itoa(selectedIndex)},
		},
	}
}

// PluginItem is the initial request of one plugin.
func PluginItem(slug string) Item {
	return Item{
		Label:         slug,
		Action:        "merlin_plugins",
		Fields:        url.Values{"slug": {slug}},
		RestartOnPage: true,
	}
}

type Outcome struct {
	Item     string   `json:"item"`
	Status   string   `json:"status"`
	Rounds   int      `json:"rounds"`
	Messages []string `json:"messages,omitempty"`
	// Imported is the last num_of_imported_posts the server reported.
	Imported string `json:"imported,omitempty"`
}

type Config struct {
	// AjaxURL is the absolute endpoint initial requests go to; relative
	// redirect URLs resolve against it.
	AjaxURL string
	Nonce   string
	// MaxRounds caps the requests spent on one item.
	MaxRounds int
	Timeout   time.Duration
}

type Driver struct {
	client *http.Client
	cfg    Config
	base   *url.URL
	logger *zap.Logger
}

// stepResponse keeps the decoded fields the driver branches on next to the
// raw payload it posts back.
type stepResponse struct {
	raw      map[string]any
	url      string
	hash     string
	message  string
	logs     string
	errors   string
	done     bool
	failed   bool
	imported string
}

func NewDriver(client *http.Client, cfg Config, logger *zap.Logger) (*Driver, error) {
	base, err := url.Parse(cfg.AjaxURL)
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid ajax url %q", cfg.AjaxURL)
	}
	if cfg.MaxRounds <= 0 {
		cfg.MaxRounds = DefaultMaxRounds
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Driver{client: client, cfg: cfg, base: base, logger: logger}, nil
}

// Run walks items in order. A failed item never stops the walk; only a
// cancelled context does.
func (d *Driver) Run(ctx context.Context, items []Item) ([]Outcome, error) {
	outcomes := make([]Outcome, 0, len(items))
	for _, item := range items {
		if err := ctx.Err(); err != nil {
			return outcomes, err
		}
		out := d.runItem(ctx, item)
		d.logger.Info("item processed",
			zap.String("item", out.Item),
			zap.String("status", out.Status),
			zap.Int("rounds", out.Rounds),
		)
		outcomes = append(outcomes, out)
	}
	return outcomes, ctx.Err()
}

func (d *Driver) runItem(ctx context.Context, item Item) Outcome {
	out := Outcome{Item: item.Label}
	lastHash := ""

	resp, err := d.initial(ctx, item)
	out.Rounds++
	for {
		if err != nil {
			d.logger.Warn("step request failed", zap.String("item", item.Label), zap.Error(err))
			out.Status = StatusError
			out.Messages = append(out.Messages, err.Error())
			return out
		}
		out.record(resp)

		switch {
		case resp.done:
			out.Status = StatusDone
			return out
		case resp.url == "":
			out.Status = StatusFailed
			return out
		case resp.hash != "" && resp.hash == lastHash:
			d.logger.Warn("server repeated its last redirect",
				zap.String("item", item.Label),
				zap.String("hash", resp.hash),
			)
			out.Status = StatusStalled
			return out
		}
		if out.Rounds >= d.cfg.MaxRounds {
			out.Status = StatusStalled
			out.Messages = append(out.Messages, fmt.Sprintf("gave up after %d rounds", out.Rounds))
			return out
		}
		lastHash = resp.hash

		next, err := d.follow(ctx, resp)
		out.Rounds++
		if errors.Is(err, errNotStep) && item.RestartOnPage {
			next, err = d.initial(ctx, item)
			out.Rounds++
		}
		resp = next
	}
}

func (d *Driver) initial(ctx context.Context, item Item) (stepResponse, error) {
	form := url.Values{}
	for k, v := range item.Fields {
		form[k] = append([]string(nil), v...)
	}
	form.Set("action", item.Action)
	form.Set("wpnonce", d.cfg.Nonce)
	return d.post(ctx, d.base.String(), form)
}

// follow posts a redirect's payload back to its url.
func (d *Driver) follow(ctx context.Context, resp stepResponse) (stepResponse, error) {
	target, err := d.base.Parse(resp.url)
	if err != nil {
		return stepResponse{}, fmt.Errorf("invalid redirect url %q: %w", resp.url, err)
	}
	form := encodeForm(resp.raw)
	if form.Get("wpnonce") == "" && form.Get("_wpnonce") == "" {
		form.Set("wpnonce", d.cfg.Nonce)
	}
	return d.post(ctx, target.String(), form)
}

func (d *Driver) post(ctx context.Context, target string, form url.Values) (stepResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, d.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, strings.NewReader(form.Encode()))
	if err != nil {
		return stepResponse{}, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	res, err := d.client.Do(req)
	if err != nil {
		return stepResponse{}, err
	}
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return stepResponse{}, err
	}
	if res.StatusCode >= http.StatusInternalServerError {
		return stepResponse{}, fmt.Errorf("%w: %d", ErrUnexpectedStatus, res.StatusCode)
	}
	return decodeStep(body)
}

// decodeStep accepts any JSON object carrying a message, which is how the
// browser client tells step responses from other pages.
func decodeStep(body []byte) (stepResponse, error) {
	var raw map[string]any
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		return stepResponse{}, errNotStep
	}
	if _, ok := raw["message"]; !ok {
		return stepResponse{}, errNotStep
	}

	resp := stepResponse{
		raw:      raw,
		url:      stringField(raw, "url"),
		hash:     stringField(raw, "hash"),
		message:  stringField(raw, "message"),
		logs:     stringField(raw, "logs"),
		errors:   stringField(raw, "errors"),
		imported: stringField(raw, "num_of_imported_posts"),
	}
	resp.done = truthy(raw["done"])
	resp.failed = truthy(raw["error"])
	return resp, nil
}

func (o *Outcome) record(resp stepResponse) {
	for _, m := range []string{resp.logs, resp.errors} {
		if m = strings.TrimSpace(m); m != "" {
			o.Messages = append(o.Messages, m)
		}
	}
	if resp.failed && resp.message != "" {
		o.Messages = append(o.Messages, resp.message)
	}
	if resp.imported != "" {
		o.Imported = resp.imported
	}
}

func stringField(raw map[string]any, key string) string {
	switch v := raw[key].(type) {
	case string:
		return v
	case json.Number:
		return v.String()
	case bool:
		return strconv.FormatBool(v)
	default:
		return ""
	}
}

func truthy(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case json.Number:
		return t.String() != "0"
	case string:
		return t != "" && t != "0" && t != "false"
	default:
		return false
	}
}

// encodeForm flattens a payload the way jQuery.post does: scalars as is,
// lists as key[].
func encodeForm(raw map[string]any) url.Values {
	form := url.Values{}
	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		switch v := raw[k].(type) {
		case nil:
		case []any:
			for _, e := range v {
				form.Add(k+"[]", fmt.Sprint(e))
			}
		case string:
			form.Set(k, v)
		case json.Number:
			form.Set(k, v.String())
		case bool:
			form.Set(k, strconv.FormatBool(v))
		default:
			form.Set(k, fmt.Sprint(v))
		}
	}
	return form
}
