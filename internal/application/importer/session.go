package importer

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/mohammadpnp/theme-setup/internal/domain/content"
)

const scratchPrefix = "wxr_importer."

// Deferred-reference markers written as meta on the entity that holds them.
const (
	markerParent     = "_wxr_import_parent"
	markerUserSlug   = "_wxr_import_user_slug"
	markerUser       = "_wxr_import_user"
	markerMenuItem   = "_wxr_import_menu_item"
	markerMenuParent = "_wxr_import_menu_item_parent"
	markerTerm       = "_wxr_import_term"
)

type Reason string

const (
	ReasonParent   Reason = "parent"
	ReasonAuthor   Reason = "author"
	ReasonMenuItem Reason = "menu_item"
	ReasonTerm     Reason = "term"
)

// Mapping translates source keys ("id:12", "login:alice", "key:category:news",
// "slug:news") to destination ids.
type Mapping map[string]int64

func idKey(id int64) string        { return "id:" + strconv.FormatInt(id, 10) }
func loginKey(login string) string { return "login:" + login }
func termKey(key string) string    { return "key:" + key }
func slugKey(slug string) string   { return "slug:" + slug }

// set never overwrites an entry with a different value.
func (m Mapping) set(key string, id int64) {
	if _, ok := m[key]; ok {
		return
	}
	m[key] = id
}

func (m Mapping) get(key string) (int64, bool) {
	id, ok := m[key]
	return id, ok
}

func (m Mapping) source(id int64) (int64, bool) {
	if id == 0 {
		return 0, false
	}
	return m.get(idKey(id))
}

// SourceIDs returns the numeric source id entries, e.g. for menu translation.
func (m Mapping) SourceIDs() map[int64]int64 {
	out := make(map[int64]int64)
	for k, v := range m {
		if len(k) > 3 && k[:3] == "id:" {
			if id, err := strconv.ParseInt(k[3:], 10, 64); err == nil {
				out[id] = v
			}
		}
	}
	return out
}

type Orphan struct {
	Taxonomy string   `json:"taxonomy,omitempty"`
	Reasons  []Reason `json:"reasons"`
}

func (o *Orphan) has(r Reason) bool {
	for _, existing := range o.Reasons {
		if existing == r {
			return true
		}
	}
	return false
}

// OrphanSet maps a destination id to its unresolved references.
type OrphanSet map[int64]*Orphan

func (s OrphanSet) add(id int64, taxonomy string, r Reason) {
	o, ok := s[id]
	if !ok {
		o = &Orphan{Taxonomy: taxonomy}
		s[id] = o
	}
	if !o.has(r) {
		o.Reasons = append(o.Reasons, r)
	}
}

func (s OrphanSet) ids() []int64 {
	ids := make([]int64, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Session is the cross-request state of one import run.
type Session struct {
	Users    Mapping
	Terms    Mapping
	Posts    Mapping
	Comments Mapping

	OrphanPosts    OrphanSet
	OrphanComments OrphanSet
	OrphanTerms    OrphanSet

	Sticky []int64
}

func newSession() *Session {
	return &Session{
		Users:          Mapping{},
		Terms:          Mapping{},
		Posts:          Mapping{},
		Comments:       Mapping{},
		OrphanPosts:    OrphanSet{},
		OrphanComments: OrphanSet{},
		OrphanTerms:    OrphanSet{},
	}
}

func (s *Session) entries() map[string]any {
	return map[string]any{
		"mapping.users":    &s.Users,
		"mapping.terms":    &s.Terms,
		"mapping.posts":    &s.Posts,
		"mapping.comments": &s.Comments,
		"orphans.posts":    &s.OrphanPosts,
		"orphans.comments": &s.OrphanComments,
		"orphans.terms":    &s.OrphanTerms,
		"sticky":           &s.Sticky,
	}
}

// Snapshot is a detached copy of the translation maps.
type Snapshot struct {
	Users    Mapping
	Terms    Mapping
	Posts    Mapping
	Comments Mapping
}

func (s *Session) snapshot() Snapshot {
	clone := func(m Mapping) Mapping {
		out := make(Mapping, len(m))
		for k, v := range m {
			out[k] = v
		}
		return out
	}
	return Snapshot{
		Users:    clone(s.Users),
		Terms:    clone(s.Terms),
		Posts:    clone(s.Posts),
		Comments: clone(s.Comments),
	}
}

func (s *Session) pendingOrphans() int {
	return len(s.OrphanPosts) + len(s.OrphanComments) + len(s.OrphanTerms)
}

func sessionKeys() []string {
	keys := make([]string, 0, 8)
	for k := range newSession().entries() {
		keys = append(keys, scratchPrefix+k)
	}
	sort.Strings(keys)
	return keys
}

func loadSession(ctx context.Context, scratch content.ScratchStore) (*Session, error) {
	sess := newSession()
	for name, target := range sess.entries() {
		raw, ok, err := scratch.Get(ctx, scratchPrefix+name)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrLoadSession, err)
		}
		if !ok {
			continue
		}
		if err := json.Unmarshal(raw, target); err != nil {
			return nil, fmt.Errorf("%w: decode %s: %v", ErrLoadSession, name, err)
		}
	}
	// A stored null leaves the map nil.
	fresh := newSession()
	if sess.Users == nil {
		sess.Users = fresh.Users
	}
	if sess.Terms == nil {
		sess.Terms = fresh.Terms
	}
	if sess.Posts == nil {
		sess.Posts = fresh.Posts
	}
	if sess.Comments == nil {
		sess.Comments = fresh.Comments
	}
	if sess.OrphanPosts == nil {
		sess.OrphanPosts = fresh.OrphanPosts
	}
	if sess.OrphanComments == nil {
		sess.OrphanComments = fresh.OrphanComments
	}
	if sess.OrphanTerms == nil {
		sess.OrphanTerms = fresh.OrphanTerms
	}
	return sess, nil
}

func saveSession(ctx context.Context, scratch content.ScratchStore, sess *Session, ttl time.Duration) error {
	for name, source := range sess.entries() {
		raw, err := json.Marshal(source)
		if err != nil {
			return fmt.Errorf("%w: encode %s: %v", ErrSaveSession, name, err)
		}
		if err := scratch.Set(ctx, scratchPrefix+name, raw, ttl); err != nil {
			return fmt.Errorf("%w: %v", ErrSaveSession, err)
		}
	}
	return nil
}
