package onboarding

import (
	"context"
	"fmt"
	"strconv"

	"github.com/mohammadpnp/theme-setup/internal/domain/content"
	"go.uber.org/zap"
)

const helloWorldTitle = "Hello World!"

type PagesConfig struct {
	HomePageTitle string
	BlogPageTitle string
	WooCommerce   bool
}

// PageSetup assigns the reading and shop pages after an import.
type PageSetup struct {
	posts   content.PostStore
	options content.OptionStore
	cfg     PagesConfig
	logger  *zap.Logger
}

func NewPageSetup(posts content.PostStore, options content.OptionStore, cfg PagesConfig, logger *zap.Logger) *PageSetup {
	if cfg.HomePageTitle == "" {
		cfg.HomePageTitle = "Home"
	}
	if cfg.BlogPageTitle == "" {
		cfg.BlogPageTitle = "Blog"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PageSetup{posts: posts, options: options, cfg: cfg, logger: logger}
}

// BeforeContent drafts the default "Hello World!" post.
func (p *PageSetup) BeforeContent(ctx context.Context) error {
	id, ok, err := p.posts.FindPostByTitle(ctx, "post", helloWorldTitle)
	if err != nil || !ok {
		return err
	}
	draft := "draft"
	if err := p.posts.UpdatePost(ctx, id, content.PostPatch{Status: &draft}); err != nil {
		return fmt.Errorf("draft hello world post: %w", err)
	}
	p.logger.Debug("hello world post set to draft", zap.Int64("post_id", id))
	return nil
}

// AfterImport returns the options it set.
func (p *PageSetup) AfterImport(ctx context.Context) (map[string]string, error) {
	set := map[string]string{}

	assign := func(title, option string) (bool, error) {
		id, ok, err := p.posts.FindPostByTitle(ctx, "page", title)
		if err != nil || !ok {
			return false, err
		}
		value := strconv.FormatInt(id, 10)
		if err := p.options.SetOption(ctx, option, value); err != nil {
			return false, fmt.Errorf("%w: %v", ErrStoreState, err)
		}
		set[option] = value
		return true, nil
	}

	if p.cfg.WooCommerce {
		for title, option := range map[string]string{
			"Shop":       "woocommerce_shop_page_id",
			"Cart":       "woocommerce_cart_page_id",
			"Checkout":   "woocommerce_checkout_page_id",
			"My Account": "woocommerce_myaccount_page_id",
		} {
			if _, err := assign(title, option); err != nil {
				return set, err
			}
		}
	}

	for title, option := range map[string]string{
		p.cfg.HomePageTitle: "page_on_front",
		p.cfg.BlogPageTitle: "page_for_posts",
	} {
		ok, err := assign(title, option)
		if err != nil {
			return set, err
		}
		if ok {
			if err := p.options.SetOption(ctx, "show_on_front", "page"); err != nil {
				return set, fmt.Errorf("%w: %v", ErrStoreState, err)
			}
			set["show_on_front"] = "page"
		}
	}

	p.logger.Debug("reading pages assigned", zap.Any("options", set))
	return set, nil
}
