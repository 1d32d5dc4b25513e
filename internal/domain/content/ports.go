package content

import (
	"context"
	"io"
	"time"
)

// ObjectKind selects the meta table an operation addresses.
type ObjectKind string

const (
	ObjectPost    ObjectKind = "post"
	ObjectTerm    ObjectKind = "term"
	ObjectComment ObjectKind = "comment"
	ObjectUser    ObjectKind = "user"
)

type NewUser struct {
	Login       string
	Email       string
	DisplayName string
	FirstName   string
	LastName    string
	Password    string
	Role        string
	Description string
}

type NewTerm struct {
	Taxonomy    string
	Slug        string
	Name        string
	Description string
	Parent      int64
}

type NewPost struct {
	Type          string
	Title         string
	Content       string
	Excerpt       string
	Status        string
	Name          string
	Date          string
	DateGMT       string
	GUID          string
	Parent        int64
	MenuOrder     int
	Author        int64
	CommentStatus string
	PingStatus    string
	Password      string
	MimeType      string
}

type NewComment struct {
	PostID      int64
	Author      string
	AuthorEmail string
	AuthorIP    string
	AuthorURL   string
	Date        string
	DateGMT     string
	Content     string
	Approved    string
	Type        string
	Parent      int64
	UserID      int64
}

// PostPatch updates only the non-nil fields.
type PostPatch struct {
	Parent *int64
	Author *int64
	Status *string
}

type CommentPatch struct {
	Parent *int64
	UserID *int64
}

type UserStore interface {
	FindUserByLogin(ctx context.Context, login string) (int64, bool, error)
	CreateUser(ctx context.Context, in NewUser) (int64, error)
}

type TermStore interface {
	FindTerm(ctx context.Context, taxonomy, slug string) (int64, bool, error)
	CreateTerm(ctx context.Context, in NewTerm) (int64, error)
	TermParent(ctx context.Context, termID int64) (int64, error)
	UpdateTermParent(ctx context.Context, termID, parent int64) error
	Taxonomies(ctx context.Context) ([]string, error)
}

type PostStore interface {
	CreatePost(ctx context.Context, in NewPost) (int64, error)
	UpdatePost(ctx context.Context, postID int64, patch PostPatch) error
	FindPostByTitle(ctx context.Context, postType, title string) (int64, bool, error)
	AddPostTerms(ctx context.Context, postID int64, termIDs []int64) error
}

type CommentStore interface {
	CreateComment(ctx context.Context, in NewComment) (int64, error)
	UpdateComment(ctx context.Context, commentID int64, patch CommentPatch) error
}

type MetaStore interface {
	AddMeta(ctx context.Context, kind ObjectKind, objectID int64, key, value string) error
	GetMeta(ctx context.Context, kind ObjectKind, objectID int64, key string) ([]string, error)
	UpdateMeta(ctx context.Context, kind ObjectKind, objectID int64, key, value string) error
	// DeleteMeta removes every row for key, or only rows holding value when value is not empty.
	DeleteMeta(ctx context.Context, kind ObjectKind, objectID int64, key, value string) error
}

type OptionStore interface {
	GetOption(ctx context.Context, name string) (string, bool, error)
	SetOption(ctx context.Context, name, value string) error
	DeleteOption(ctx context.Context, name string) error
}

// Maintenance covers the bookkeeping a bulk load suspends and restores.
type Maintenance interface {
	DeferCounting(ctx context.Context, deferred bool) error
	SuspendCacheInvalidation(suspend bool)
	FlushCache(ctx context.Context) error
	RebuildTermHierarchy(ctx context.Context, taxonomy string) error
	FlushRewriteRules(ctx context.Context) error
}

// Store is the destination site.
type Store interface {
	UserStore
	TermStore
	PostStore
	CommentStore
	MetaStore
	OptionStore
	Maintenance
}

// ExistenceSource loads the natural keys already present in the destination.
type ExistenceSource interface {
	PostGUIDs(ctx context.Context) (map[string]int64, error)
	CommentKeys(ctx context.Context) (map[string]int64, error)
	TermKeys(ctx context.Context) (map[string]int64, error)
}

// ScratchStore is short-lived key/value storage shared across requests.
type ScratchStore interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

type FileStore interface {
	Create(ctx context.Context, relPath string) (io.WriteCloser, error)
	Exists(ctx context.Context, relPath string) bool
	Open(ctx context.Context, relPath string) (io.ReadCloser, error)
	Remove(ctx context.Context, relPath string) error
	URL(relPath string) string
	Path(relPath string) string
}

type FetchResult struct {
	StatusCode    int
	ContentLength int64
	ContentType   string
	Written       int64
}

// Fetcher streams a remote resource into w.
type Fetcher interface {
	Fetch(ctx context.Context, url string, w io.Writer) (FetchResult, error)
}
