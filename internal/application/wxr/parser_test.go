package wxr_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/mohammadpnp/theme-setup/internal/application/wxr"
	"github.com/mohammadpnp/theme-setup/internal/domain/content"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func strategies() map[string]wxr.Parser {
	return map[string]wxr.Parser{
		"dom":    wxr.NewDOMParser(),
		"stream": wxr.NewStreamParser(),
	}
}

func fixture(name string) string {
	return filepath.Join("testdata", name)
}

func TestStrategiesProduceIdenticalDocuments(t *testing.T) {
	t.Parallel()

	for _, name := range []string{"scenario.xml", "full.xml", "version_1_0.xml", "latin1.xml", "channel_layout.xml"} {
		name := name
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			dom, err := wxr.NewDOMParser().Parse(context.Background(), fixture(name))
			require.NoError(t, err)
			stream, err := wxr.NewStreamParser().Parse(context.Background(), fixture(name))
			require.NoError(t, err)

			assert.Equal(t, dom, stream)
		})
	}
}

func TestParseScenario(t *testing.T) {
	t.Parallel()

	for name, parser := range strategies() {
		name, parser := name, parser
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			doc, err := parser.Parse(context.Background(), fixture("scenario.xml"))
			require.NoError(t, err)

			assert.Equal(t, "1.2", doc.Version)
			assert.Equal(t, "http://x", doc.BaseURL)
			require.Len(t, doc.Users, 1)
			assert.Equal(t, content.User{
				SourceID:    7,
				Login:       "alice",
				Email:       "alice@example.com",
				DisplayName: "Alice",
				FirstName:   "Alice",
				LastName:    "Smith",
			}, doc.Users[0])

			require.Len(t, doc.Terms, 1)
			assert.Equal(t, "category", doc.Terms[0].Taxonomy)
			assert.Equal(t, "news", doc.Terms[0].Slug)
			assert.Empty(t, doc.Terms[0].Parent)

			require.Len(t, doc.Posts, 1)
			post := doc.Posts[0]
			assert.Equal(t, "http://x/?p=1", post.GUID)
			assert.Equal(t, "alice", post.Author)
			assert.Equal(t, "<p>Body</p>", post.Content)
			assert.Equal(t, []content.PostTerm{{Taxonomy: "category", Slug: "news", Name: "News"}}, post.Terms)
			require.Len(t, post.Comments, 1)
			assert.Equal(t, int64(5), post.Comments[0].SourceID)
			assert.Equal(t, "127.0.0.1", post.Comments[0].AuthorIP)
			assert.Equal(t, int64(0), post.Comments[0].Parent)
		})
	}
}

func TestParseFullFixture(t *testing.T) {
	t.Parallel()

	for name, parser := range strategies() {
		name, parser := name, parser
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			doc, err := parser.Parse(context.Background(), fixture("full.xml"))
			require.NoError(t, err)

			keys := make([]string, 0, len(doc.Terms))
			for _, term := range doc.Terms {
				keys = append(keys, term.Key())
			}
			assert.Equal(t, []string{"category:world", "category:news", "post_tag:go", "nav_menu:main-menu"}, keys)
			assert.Equal(t, "news", doc.Terms[0].Parent)
			assert.Equal(t, []content.Meta{{Key: "color", Value: "red"}}, doc.Terms[1].Meta)

			require.Len(t, doc.Posts, 7)
			sticky := doc.Posts[2]
			assert.True(t, sticky.Sticky())
			assert.Equal(t, []content.PostTerm{
				{Taxonomy: "category", Slug: "world", Name: "World"},
				{Taxonomy: "post_tag", Slug: "go", Name: "Go"},
				{Taxonomy: "category", Slug: "news", Name: "News"},
				{Taxonomy: "post_format", Slug: "post-format-video", Name: "Video"},
			}, sticky.Terms)
			assert.Len(t, sticky.Meta, 3)
			require.Len(t, sticky.Comments, 2)
			assert.Equal(t, []content.Meta{{Key: "rating", Value: "5"}}, sticky.Comments[0].Meta)
			assert.Equal(t, int64(3), sticky.Comments[0].UserID)

			child := doc.Posts[0]
			assert.Equal(t, int64(100), child.Parent)
			assert.Equal(t, 3, child.MenuOrder)
			assert.Equal(t, "short", child.Excerpt)

			unknown := doc.Posts[6]
			assert.Empty(t, unknown.Title)
			assert.Empty(t, unknown.Status)
			assert.Equal(t, 7, doc.CountPosts())
		})
	}
}

func TestParseDeclaredCharset(t *testing.T) {
	t.Parallel()

	for name, parser := range strategies() {
		name, parser := name, parser
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			doc, err := parser.Parse(context.Background(), fixture("latin1.xml"))
			require.NoError(t, err)
			require.NotEmpty(t, doc.Posts)
			assert.Equal(t, "Café Démo", doc.Posts[0].Title)
		})
	}
}

func TestParseReadsOnlyChannelChildren(t *testing.T) {
	t.Parallel()

	for name, parser := range strategies() {
		name, parser := name, parser
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			doc, err := parser.Parse(context.Background(), fixture("channel_layout.xml"))
			require.NoError(t, err)
			assert.Equal(t, "1.2", doc.Version)
			require.Len(t, doc.Users, 1)
			assert.Equal(t, "early", doc.Users[0].Login)
			require.Len(t, doc.Posts, 1)
			assert.Equal(t, "Top Item", doc.Posts[0].Title)
		})
	}
}

func TestParseRejectsBadFiles(t *testing.T) {
	t.Parallel()

	cases := []struct {
		file string
		want error
	}{
		{file: "version_5_0.xml", want: wxr.ErrUnsupportedVersion},
		{file: "version_malformed.xml", want: wxr.ErrMissingVersion},
		{file: "version_missing.xml", want: wxr.ErrMissingVersion},
		{file: "truncated.xml", want: wxr.ErrMalformedXML},
		{file: "does_not_exist.xml", want: wxr.ErrFileUnreadable},
	}

	for name, parser := range strategies() {
		name, parser := name, parser
		for _, tc := range cases {
			tc := tc
			t.Run(name+"/"+tc.file, func(t *testing.T) {
				t.Parallel()

				doc, err := parser.Parse(context.Background(), fixture(tc.file))
				require.Error(t, err)
				assert.Nil(t, doc)
				if !errors.Is(err, tc.want) {
					t.Fatalf("expected %v, got %v", tc.want, err)
				}
			})
		}
	}
}

func TestNewParserPicksStrategy(t *testing.T) {
	t.Parallel()

	logger := zaptest.NewLogger(t)

	_, err := wxr.NewParser(wxr.Capabilities{Strategy: wxr.StrategyNone}, logger).Parse(context.Background(), fixture("scenario.xml"))
	require.ErrorIs(t, err, wxr.ErrNoXMLSupport)

	small, err := wxr.NewParser(wxr.Capabilities{Strategy: wxr.StrategyAuto, DOMMaxBytes: 1 << 20}, logger).Parse(context.Background(), fixture("scenario.xml"))
	require.NoError(t, err)

	large, err := wxr.NewParser(wxr.Capabilities{Strategy: wxr.StrategyAuto, DOMMaxBytes: 16}, logger).Parse(context.Background(), fixture("scenario.xml"))
	require.NoError(t, err)

	assert.Equal(t, small, large)

	_, err = wxr.NewParser(wxr.Capabilities{}, logger).Parse(context.Background(), fixture("missing.xml"))
	require.ErrorIs(t, err, wxr.ErrFileUnreadable)
}
