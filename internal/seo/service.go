package seo

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"cafefinder.de/web/internal/cafe"
	"cafefinder.de/web/internal/strapi"
)

// Service loads SEO records from the content API.
type Service struct {
	finder strapi.Finder
	logger *zap.Logger
}

func NewService(finder strapi.Finder, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{finder: finder, logger: logger}
}

// Fetch returns the SEO data of the entry with slug in collection (default
// "posts"). It returns nil, nil when no entry matches.
func (s *Service) Fetch(ctx context.Context, slug, collection string) (*Data, error) {
	if strings.TrimSpace(collection) == "" {
		collection = "posts"
	}
	resp, err := s.finder.Find(ctx, collection, strapi.Query{
		Filters: strapi.Filters{}.Eq(slug, "slug"),
		Populate: map[string]any{
			"seo":      map[string]any{"populate": "*"},
			"shop_img": map[string]any{"populate": "*"},
		},
	})
	if err != nil {
		s.logger.Error("fetch seo data", zap.String("slug", slug), zap.Error(err))
		return nil, fmt.Errorf("seo: fetch %s/%s: %w", collection, slug, err)
	}
	rows := resp.Items()
	if len(rows) == 0 {
		return nil, nil
	}
	var p cafe.Post
	if err := json.Unmarshal(rows[0], &p); err != nil {
		return nil, fmt.Errorf("seo: decode %s/%s: %w", collection, slug, err)
	}
	return FromPost(p, rows[0]), nil
}

// FromPost maps a café to its SEO data. raw is kept as Data.Raw.
func FromPost(p cafe.Post, raw json.RawMessage) *Data {
	d := &Data{
		Title:       p.ShopName,
		Image:       p.Image(),
		OGType:      DefaultOGType,
		TwitterCard: DefaultTwitterCard,
		Raw:         raw,
	}
	if m := p.SEO; m != nil {
		d.Title = firstNonEmpty(m.MetaTitle, p.ShopName)
		d.Description = m.MetaDescription
		d.Keywords = m.Keywords
		d.Canonical = m.CanonicalURL
		d.OGType = firstNonEmpty(m.OGType, DefaultOGType)
		d.TwitterCard = firstNonEmpty(m.TwitterCard, DefaultTwitterCard)
	}
	return d
}
