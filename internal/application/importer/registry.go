package importer

import (
	"strings"
	"sync"
)

var corePostTypes = []string{
	"post", "page", "attachment", "revision", "nav_menu_item",
	"custom_css", "customize_changeset", "oembed_cache", "user_request",
	"wp_block", "wp_template", "wp_template_part", "wp_global_styles",
	"wp_navigation", "wp_font_family", "wp_font_face",
}

var coreTaxonomies = []string{
	"category", "post_tag", "nav_menu", "link_category", "post_format",
	"wp_theme", "wp_template_part_area", "wp_pattern_category",
}

// Registry knows which post types and taxonomies the destination theme supports.
type Registry struct {
	mu          sync.RWMutex
	postTypes   map[string]struct{}
	taxonomies  map[string]struct{}
	woocommerce bool
}

func NewRegistry(postTypes, taxonomies []string, woocommerce bool) *Registry {
	r := &Registry{
		postTypes:   make(map[string]struct{}),
		taxonomies:  make(map[string]struct{}),
		woocommerce: woocommerce,
	}
	for _, t := range append(append([]string{}, corePostTypes...), postTypes...) {
		r.postTypes[t] = struct{}{}
	}
	for _, t := range append(append([]string{}, coreTaxonomies...), taxonomies...) {
		r.taxonomies[t] = struct{}{}
	}
	if woocommerce {
		for _, t := range []string{"product", "product_variation", "shop_order", "shop_coupon"} {
			r.postTypes[t] = struct{}{}
		}
		for _, t := range []string{"product_cat", "product_tag", "product_type", "product_visibility", "product_shipping_class"} {
			r.taxonomies[t] = struct{}{}
		}
	}
	return r
}

func (r *Registry) PostTypeExists(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.postTypes[name]
	return ok
}

// TaxonomyExists registers WooCommerce attribute taxonomies (pa_*) on first sight.
func (r *Registry) TaxonomyExists(name string) bool {
	r.mu.RLock()
	_, ok := r.taxonomies[name]
	r.mu.RUnlock()
	if ok {
		return true
	}
	if r.woocommerce && strings.HasPrefix(name, "pa_") {
		r.mu.Lock()
		r.taxonomies[name] = struct{}{}
		r.mu.Unlock()
		return true
	}
	return false
}
