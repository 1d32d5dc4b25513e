package importer

import (
	"context"
	"fmt"
	"sync"

	"github.com/mohammadpnp/theme-setup/internal/domain/content"
)

// ExistenceIndex answers "is this natural key already in the destination"
// from one warm-up read per run, plus everything created since.
type ExistenceIndex struct {
	source content.ExistenceSource

	mu       sync.Mutex
	warm     bool
	posts    map[string]int64
	comments map[string]int64
	terms    map[string]int64
}

func NewExistenceIndex(source content.ExistenceSource) *ExistenceIndex {
	return &ExistenceIndex{source: source}
}

// Warm loads the index on first use; later calls are no-ops until Reset.
func (x *ExistenceIndex) Warm(ctx context.Context) error {
	x.mu.Lock()
	defer x.mu.Unlock()

	if x.warm {
		return nil
	}

	posts, err := x.source.PostGUIDs(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrWarmIndex, err)
	}
	comments, err := x.source.CommentKeys(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrWarmIndex, err)
	}
	terms, err := x.source.TermKeys(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrWarmIndex, err)
	}

	x.posts, x.comments, x.terms = posts, comments, terms
	x.warm = true
	return nil
}

func (x *ExistenceIndex) Reset() {
	x.mu.Lock()
	x.warm = false
	x.posts, x.comments, x.terms = nil, nil, nil
	x.mu.Unlock()
}

func (x *ExistenceIndex) lookup(m map[string]int64, key string) (int64, bool) {
	x.mu.Lock()
	defer x.mu.Unlock()
	id, ok := m[key]
	return id, ok
}

func (x *ExistenceIndex) remember(m *map[string]int64, key string, id int64) {
	x.mu.Lock()
	defer x.mu.Unlock()
	if *m == nil {
		*m = make(map[string]int64)
	}
	(*m)[key] = id
}

func (x *ExistenceIndex) Post(guid string) (int64, bool) {
	if guid == "" {
		return 0, false
	}
	return x.lookup(x.posts, guid)
}

func (x *ExistenceIndex) Comment(key string) (int64, bool) {
	return x.lookup(x.comments, key)
}

func (x *ExistenceIndex) Term(key string) (int64, bool) {
	return x.lookup(x.terms, key)
}

func (x *ExistenceIndex) RememberPost(guid string, id int64) {
	if guid != "" {
		x.remember(&x.posts, guid, id)
	}
}

func (x *ExistenceIndex) RememberComment(key string, id int64) {
	x.remember(&x.comments, key, id)
}

func (x *ExistenceIndex) RememberTerm(key string, id int64) {
	x.remember(&x.terms, key, id)
}
