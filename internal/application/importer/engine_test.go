package importer_test

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/juju/clock/testclock"
	"github.com/mohammadpnp/theme-setup/internal/application/importer"
	"github.com/mohammadpnp/theme-setup/internal/application/wxr"
	"github.com/mohammadpnp/theme-setup/internal/domain/content"
	"github.com/mohammadpnp/theme-setup/internal/infrastructure/db/models"
	"github.com/mohammadpnp/theme-setup/internal/infrastructure/scratch"
	"github.com/mohammadpnp/theme-setup/internal/infrastructure/store"
	"github.com/mohammadpnp/theme-setup/internal/infrastructure/store/storetest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

const (
	scenarioFile = "../wxr/testdata/scenario.xml"
	fullFile     = "../wxr/testdata/full.xml"
)

type harness struct {
	engine  *importer.Engine
	store   *store.Store
	scratch *scratch.MemoryStore
}

func newHarness(t *testing.T, cfg importer.Config) harness {
	t.Helper()
	st := storetest.New(t)
	sc := scratch.NewMemoryStore(testclock.NewClock(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)))
	parser := wxr.NewParser(wxr.Capabilities{Strategy: wxr.StrategyAuto}, zaptest.NewLogger(t))
	return harness{
		engine:  importer.NewEngine(st, sc, st, parser, cfg, zaptest.NewLogger(t)),
		store:   st,
		scratch: sc,
	}
}

func count(t *testing.T, st *store.Store, model any) int64 {
	t.Helper()
	var n int64
	require.NoError(t, st.DB().Model(model).Count(&n).Error)
	return n
}

func itoa(v int64) string {
	return strconv.FormatInt(v, 10)
}

func postByGUID(t *testing.T, st *store.Store, guid string) models.Post {
	t.Helper()
	var p models.Post
	require.NoError(t, st.DB().Where("guid = ?", guid).Take(&p).Error)
	return p
}

func TestImportScenario(t *testing.T) {
	t.Parallel()
	h := newHarness(t, importer.Config{})
	ctx := context.Background()

	res, err := h.engine.Import(ctx, scenarioFile)
	require.NoError(t, err)

	assert.Equal(t, 1, res.Users.Created)
	assert.Equal(t, 1, res.Terms.Created)
	assert.Equal(t, 1, res.Posts.Created)
	assert.Equal(t, 1, res.Posts.CommentsCreated)

	var alice models.User
	require.NoError(t, h.store.DB().Where("login = ?", "alice").Take(&alice).Error)
	assert.Equal(t, int64(1), count(t, h.store, &models.User{}))

	var news models.Term
	require.NoError(t, h.store.DB().Where("taxonomy = ? AND slug = ?", "category", "news").Take(&news).Error)
	assert.Zero(t, news.Parent)

	post := postByGUID(t, h.store, "http://x/?p=1")
	assert.Equal(t, alice.ID, post.Author)

	var comment models.Comment
	require.NoError(t, h.store.DB().Take(&comment).Error)
	assert.Equal(t, post.ID, comment.PostID)
	assert.Zero(t, comment.Parent)
	assert.Equal(t, int64(1), count(t, h.store, &models.Comment{}))

	var rel models.TermRelationship
	require.NoError(t, h.store.DB().Where("post_id = ?", post.ID).Take(&rel).Error)
	assert.Equal(t, news.ID, rel.TermID)

	assert.Equal(t, alice.ID, res.Mapping.Users["id:7"])
	assert.Equal(t, alice.ID, res.Mapping.Users["login:alice"])
	assert.Equal(t, post.ID, res.Mapping.Posts["id:1"])

	// The session is cleared once the run is complete.
	assert.Zero(t, h.scratch.Len())
}

func TestImportIsIdempotent(t *testing.T) {
	t.Parallel()
	h := newHarness(t, importer.Config{})
	ctx := context.Background()

	first, err := h.engine.Import(ctx, scenarioFile)
	require.NoError(t, err)

	second, err := h.engine.Import(ctx, scenarioFile)
	require.NoError(t, err)

	assert.Zero(t, second.Users.Created)
	assert.Zero(t, second.Terms.Created)
	assert.Zero(t, second.Posts.Created)
	assert.Zero(t, second.Posts.CommentsCreated)
	assert.Equal(t, 1, second.Users.Existing)
	assert.Equal(t, 1, second.Terms.Existing)
	assert.Equal(t, 1, second.Posts.Existing)
	assert.Equal(t, 1, second.Posts.CommentsExisting)

	assert.Equal(t, first.Mapping, second.Mapping)

	assert.Equal(t, int64(1), count(t, h.store, &models.User{}))
	assert.Equal(t, int64(1), count(t, h.store, &models.Term{}))
	assert.Equal(t, int64(1), count(t, h.store, &models.Post{}))
	assert.Equal(t, int64(1), count(t, h.store, &models.Comment{}))
}

func TestSubImportsResumeAcrossCalls(t *testing.T) {
	t.Parallel()
	h := newHarness(t, importer.Config{})
	ctx := context.Background()

	doc, err := h.engine.Parse(ctx, fullFile)
	require.NoError(t, err)

	_, err = h.engine.ImportUsers(ctx, doc)
	require.NoError(t, err)
	again, err := h.engine.ImportUsers(ctx, doc)
	require.NoError(t, err)
	assert.Zero(t, again.Created)
	assert.Equal(t, 2, again.Skipped)

	_, err = h.engine.ImportTerms(ctx, doc)
	require.NoError(t, err)

	for offset := 0; offset < doc.CountPosts(); offset += 2 {
		_, err := h.engine.ImportPosts(ctx, doc, offset, 2)
		require.NoError(t, err)
	}
	repeat, err := h.engine.ImportPosts(ctx, doc, 0, 0)
	require.NoError(t, err)
	assert.Zero(t, repeat.Created)

	// Six supported posts; the portfolio item has no registered type.
	assert.Equal(t, int64(6), count(t, h.store, &models.Post{}))
}

func TestFullImportResolvesForwardReferences(t *testing.T) {
	t.Parallel()
	h := newHarness(t, importer.Config{})
	ctx := context.Background()

	res, err := h.engine.Import(ctx, fullFile)
	require.NoError(t, err)
	assert.Zero(t, res.Remap.Unresolved)
	assert.Equal(t, 1, res.Posts.Skipped)

	db := h.store.DB()

	// Term parent declared before the parent itself.
	var world, news models.Term
	require.NoError(t, db.Where("slug = ?", "world").Take(&world).Error)
	require.NoError(t, db.Where("slug = ?", "news").Take(&news).Error)
	assert.Equal(t, news.ID, world.Parent)
	markers, err := h.store.GetMeta(ctx, content.ObjectTerm, world.ID, "_wxr_import_parent")
	require.NoError(t, err)
	assert.Empty(t, markers)

	color, err := h.store.GetMeta(ctx, content.ObjectTerm, news.ID, "color")
	require.NoError(t, err)
	assert.Equal(t, []string{"red"}, color)

	// Child page imported before its parent.
	parent := postByGUID(t, h.store, "http://demo.test/?page_id=100")
	child := postByGUID(t, h.store, "http://demo.test/?page_id=101")
	assert.Equal(t, parent.ID, child.Parent)

	var writer, editor models.User
	require.NoError(t, db.Where("login = ?", "writer").Take(&writer).Error)
	require.NoError(t, db.Where("login = ?", "editor").Take(&editor).Error)
	assert.Equal(t, writer.ID, child.Author)

	// Comments are created parent first and the user is translated.
	sticky := postByGUID(t, h.store, "http://demo.test/?p=200")
	var root, reply models.Comment
	require.NoError(t, db.Where("author = ?", "Root").Take(&root).Error)
	require.NoError(t, db.Where("author = ?", "Reply").Take(&reply).Error)
	assert.Equal(t, root.ID, reply.Parent)
	assert.Equal(t, writer.ID, reply.UserID)
	assert.Equal(t, sticky.ID, reply.PostID)

	editLast, err := h.store.GetMeta(ctx, content.ObjectPost, sticky.ID, "_edit_last")
	require.NoError(t, err)
	assert.Equal(t, []string{itoa(editor.ID)}, editLast)
	editLock, err := h.store.GetMeta(ctx, content.ObjectPost, sticky.ID, "_edit_lock")
	require.NoError(t, err)
	assert.Empty(t, editLock)

	var format models.Term
	require.NoError(t, db.Where("taxonomy = ? AND slug = ?", "post_format", "post-format-video").Take(&format).Error)
	var assigned []int64
	require.NoError(t, db.Model(&models.TermRelationship{}).Where("post_id = ?", sticky.ID).Order("term_id").Pluck("term_id", &assigned).Error)
	assert.Contains(t, assigned, format.ID)
	assert.Contains(t, assigned, world.ID)
	assert.Contains(t, assigned, news.ID)
	assert.Len(t, assigned, 4)

	stickyOpt, ok, err := h.store.GetOption(ctx, "sticky_posts")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "a:1:{i:0;i:"+itoa(sticky.ID)+";}", stickyOpt)

	// Menu item pointing at a page defined later in the file.
	late := postByGUID(t, h.store, "http://demo.test/?page_id=400")
	home := postByGUID(t, h.store, "http://demo.test/?p=300")
	target, err := h.store.GetMeta(ctx, content.ObjectPost, home.ID, "_menu_item_object_id")
	require.NoError(t, err)
	assert.Equal(t, []string{itoa(late.ID)}, target)
	marker, err := h.store.GetMeta(ctx, content.ObjectPost, home.ID, "_wxr_import_menu_item")
	require.NoError(t, err)
	assert.Empty(t, marker)

	custom := postByGUID(t, h.store, "http://demo.test/?p=301")
	self, err := h.store.GetMeta(ctx, content.ObjectPost, custom.ID, "_menu_item_object_id")
	require.NoError(t, err)
	assert.Equal(t, []string{itoa(custom.ID)}, self)

	hierarchy, ok, err := h.store.GetOption(ctx, "category_children")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Contains(t, hierarchy, itoa(world.ID))
}

func TestAuthorResolvedWhenUsersArriveLater(t *testing.T) {
	t.Parallel()
	h := newHarness(t, importer.Config{CurrentUserID: 99})
	ctx := context.Background()

	doc := &content.Document{
		Users: []content.User{{SourceID: 4, Login: "late", Email: "late@example.com"}},
		Posts: []content.Post{{
			SourceID: 1, Type: "post", Title: "Early", GUID: "http://y/?p=1", Author: "late", Status: "publish",
		}},
	}

	posts, err := h.engine.ImportPosts(ctx, doc, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, posts.Deferred)

	post := postByGUID(t, h.store, "http://y/?p=1")
	assert.Equal(t, int64(99), post.Author)

	_, err = h.engine.ImportUsers(ctx, doc)
	require.NoError(t, err)
	remap, err := h.engine.Remap(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, remap.Posts)

	var late models.User
	require.NoError(t, h.store.DB().Where("login = ?", "late").Take(&late).Error)
	post = postByGUID(t, h.store, "http://y/?p=1")
	assert.Equal(t, late.ID, post.Author)

	markers, err := h.store.GetMeta(ctx, content.ObjectPost, post.ID, "_wxr_import_user_slug")
	require.NoError(t, err)
	assert.Empty(t, markers)
}

func TestUnresolvedMarkersStayExactlyOnce(t *testing.T) {
	t.Parallel()
	h := newHarness(t, importer.Config{})
	ctx := context.Background()

	doc := &content.Document{
		Terms: []content.Term{
			{SourceID: 1, Taxonomy: "category", Slug: "orphan", Name: "Orphan", Parent: "missing"},
			{SourceID: 2, Taxonomy: "category", Slug: "rooted", Name: "Rooted", Parent: "top"},
		},
		Posts: []content.Post{{
			SourceID: 10, Type: "page", GUID: "http://y/?page_id=10", Parent: 999, Status: "publish",
			Terms: []content.PostTerm{{Taxonomy: "category", Slug: "never"}},
		}},
	}

	_, err := h.engine.ImportTerms(ctx, doc)
	require.NoError(t, err)
	_, err = h.engine.ImportPosts(ctx, doc, 0, 0)
	require.NoError(t, err)

	first, err := h.engine.Remap(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, first.Unresolved)

	// The orphan sets are consumed, so a second pass does nothing.
	second, err := h.engine.Remap(ctx)
	require.NoError(t, err)
	assert.Equal(t, importer.RemapSummary{}, second)

	page := postByGUID(t, h.store, "http://y/?page_id=10")
	assert.Zero(t, page.Parent)
	parentMarkers, err := h.store.GetMeta(ctx, content.ObjectPost, page.ID, "_wxr_import_parent")
	require.NoError(t, err)
	assert.Equal(t, []string{"999"}, parentMarkers)
	termMarkers, err := h.store.GetMeta(ctx, content.ObjectPost, page.ID, "_wxr_import_term")
	require.NoError(t, err)
	assert.Equal(t, []string{"category:never"}, termMarkers)

	var orphan, rooted models.Term
	require.NoError(t, h.store.DB().Where("slug = ?", "orphan").Take(&orphan).Error)
	require.NoError(t, h.store.DB().Where("slug = ?", "rooted").Take(&rooted).Error)
	termMarker, err := h.store.GetMeta(ctx, content.ObjectTerm, orphan.ID, "_wxr_import_parent")
	require.NoError(t, err)
	assert.Equal(t, []string{"missing"}, termMarker)
	assert.Zero(t, orphan.Parent)
	assert.Zero(t, rooted.Parent)
	rootMarker, err := h.store.GetMeta(ctx, content.ObjectTerm, rooted.ID, "_wxr_import_parent")
	require.NoError(t, err)
	assert.Empty(t, rootMarker)
}

func TestRejectedFileWritesNothing(t *testing.T) {
	t.Parallel()
	h := newHarness(t, importer.Config{})

	_, err := h.engine.Import(context.Background(), "../wxr/testdata/version_5_0.xml")
	require.Error(t, err)
	assert.True(t, errors.Is(err, wxr.ErrUnsupportedVersion))

	assert.Zero(t, count(t, h.store, &models.User{}))
	assert.Zero(t, count(t, h.store, &models.Post{}))
	assert.Zero(t, h.scratch.Len())
}

type fakeLoader struct {
	err   error
	calls int
}

func (f *fakeLoader) Sideload(_ context.Context, post content.Post, _ string) (importer.Attachment, error) {
	f.calls++
	if f.err != nil {
		return importer.Attachment{}, f.err
	}
	return importer.Attachment{RelPath: "2024/01/photo.jpg", URL: "http://local/2024/01/photo.jpg", MimeType: "image/jpeg"}, nil
}

func TestAttachmentFailureSkipsOnlyThatPost(t *testing.T) {
	t.Parallel()
	loader := &fakeLoader{err: importer.ErrEmptyFile}
	h := newHarness(t, importer.Config{Attachments: loader})
	ctx := context.Background()

	doc := &content.Document{Posts: []content.Post{
		{SourceID: 1, Type: "attachment", GUID: "http://y/photo.jpg", AttachmentURL: "http://y/photo.jpg"},
		{SourceID: 2, Type: "post", GUID: "http://y/?p=2", Status: "publish"},
	}}

	sum, err := h.engine.ImportPosts(ctx, doc, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Failed)
	assert.Equal(t, 1, sum.Created)
	assert.Equal(t, 1, loader.calls)
	assert.Equal(t, int64(1), count(t, h.store, &models.Post{}))
}

func TestAttachmentStoresFileMeta(t *testing.T) {
	t.Parallel()
	h := newHarness(t, importer.Config{Attachments: &fakeLoader{}})
	ctx := context.Background()

	doc := &content.Document{Posts: []content.Post{{
		SourceID: 1, Type: "attachment", GUID: "http://y/photo.jpg",
		Meta: []content.Meta{{Key: "_wp_attached_file", Value: "old/path.jpg"}},
	}}}

	_, err := h.engine.ImportPosts(ctx, doc, 0, 0)
	require.NoError(t, err)

	post := postByGUID(t, h.store, "http://y/photo.jpg")
	assert.Equal(t, "image/jpeg", post.MimeType)
	files, err := h.store.GetMeta(ctx, content.ObjectPost, post.ID, "_wp_attached_file")
	require.NoError(t, err)
	assert.Equal(t, []string{"2024/01/photo.jpg"}, files)
}

func TestTermIDsExposeSourceMapping(t *testing.T) {
	t.Parallel()
	h := newHarness(t, importer.Config{})
	ctx := context.Background()

	doc, err := h.engine.Parse(ctx, fullFile)
	require.NoError(t, err)
	_, err = h.engine.ImportTerms(ctx, doc)
	require.NoError(t, err)

	ids, err := h.engine.TermIDs(ctx)
	require.NoError(t, err)

	var menu models.Term
	require.NoError(t, h.store.DB().Where("slug = ?", "main-menu").Take(&menu).Error)
	assert.Equal(t, menu.ID, ids[40])

	require.NoError(t, h.engine.ClearSession(ctx))
	ids, err = h.engine.TermIDs(ctx)
	require.NoError(t, err)
	assert.Empty(t, ids)
}
