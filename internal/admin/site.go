package admin

import (
	"context"

	"github.com/bbluechip/catalogadmin/config"
	"github.com/bbluechip/catalogadmin/internal/catalog"
	"github.com/bbluechip/catalogadmin/internal/domain"
)

// Site is the back office registry. Built once at startup and read-only
// afterwards.
type Site struct {
	Title      string
	Header     string
	IndexTitle string
	Locale     string

	Products   *ModelAdmin[domain.Product]
	Reviews    *ModelAdmin[domain.Review]
	Categories *ModelAdmin[domain.Category]
}

type SiteDescriptor struct {
	SiteTitle  string            `json:"site_title"`
	SiteHeader string            `json:"site_header"`
	IndexTitle string            `json:"index_title"`
	Locale     string            `json:"locale"`
	Models     []ModelDescriptor `json:"models"`
}

func NewSite(cfg config.AdminConfig, facade *catalog.Facade) *Site {
	return &Site{
		Title:      cfg.SiteTitle,
		Header:     cfg.SiteHeader,
		IndexTitle: cfg.IndexTitle,
		Locale:     facade.Messages().Locale(),
		Products:   NewProductAdmin(facade, cfg.InlineExtra),
		Reviews:    NewReviewAdmin(),
		Categories: NewCategoryAdmin(),
	}
}

func (s *Site) Describe() SiteDescriptor {
	return SiteDescriptor{
		SiteTitle:  s.Title,
		SiteHeader: s.Header,
		IndexTitle: s.IndexTitle,
		Locale:     s.Locale,
		Models: []ModelDescriptor{
			s.Products.Describe(),
			s.Reviews.Describe(),
			s.Categories.Describe(),
		},
	}
}

func NewProductAdmin(facade *catalog.Facade, inlineExtra int) *ModelAdmin[domain.Product] {
	return &ModelAdmin[domain.Product]{
		Model:       "product",
		VerboseName: "products",
		ListDisplay: []Column[domain.Product]{
			{Name: "name", Label: "name", Value: func(_ context.Context, p *domain.Product) (interface{}, error) {
				return p.Name, nil
			}},
			{Name: "create_date", Label: "create date", Value: func(_ context.Context, p *domain.Product) (interface{}, error) {
				return p.CreateDate, nil
			}},
			{Name: "is_in_stock", Label: "is in stock", Editable: true, Value: func(_ context.Context, p *domain.Product) (interface{}, error) {
				return p.IsInStock, nil
			}},
			{Name: "update_date", Label: "update date", Value: func(_ context.Context, p *domain.Product) (interface{}, error) {
				return p.UpdateDate, nil
			}},
			{Name: "added_days_ago", Label: "added days ago", Value: func(_ context.Context, p *domain.Product) (interface{}, error) {
				return facade.DaysSinceCreation(p), nil
			}},
			{Name: "how_many_reviews", Label: "how many reviews", Value: func(ctx context.Context, p *domain.Product) (interface{}, error) {
				return facade.ReviewCount(ctx, p)
			}},
			{Name: "bring_img_to_list", Label: "product_image", Markup: true, Value: func(_ context.Context, p *domain.Product) (interface{}, error) {
				return facade.ThumbnailMarkup(p), nil
			}},
		},
		ListFilter: []Filter{
			{Field: "is_in_stock", Kind: FilterBoolean},
			{Field: "create_date", Kind: FilterDateTimeRange},
		},
		SearchFields:  []string{"name"},
		ListPerPage:   25,
		DateHierarchy: "update_date",
		Fieldsets: []Fieldset{
			{Fields: [][]string{{"name", "slug"}, {"is_in_stock"}}},
			{
				Name:        "My section",
				Classes:     []string{"collapse"},
				Fields:      [][]string{{"description"}, {"categories"}, {"product_img"}, {"bring_image"}},
				Description: "You can use this section for optionals settings",
			},
		},
		ReadonlyFields: []Column[domain.Product]{
			{Name: "bring_image", Label: "bring image", Markup: true, Value: func(_ context.Context, p *domain.Product) (interface{}, error) {
				return facade.DetailImageMarkup(p), nil
			}},
		},
		PrepopulatedFields: map[string][]string{"slug": {"name"}},
		FilterVertical:     []string{"categories"},
		Inlines: []Inline{
			{Model: "review", FKField: "product_id", Extra: inlineExtra, Classes: []string{"collapse"}},
		},
		Actions: []Action{
			{Name: catalog.ActionMarkInStock, Label: facade.Messages().MarkInStockLabel(), Run: facade.BulkMarkInStock},
		},
	}
}

func NewReviewAdmin() *ModelAdmin[domain.Review] {
	return &ModelAdmin[domain.Review]{
		Model:       "review",
		VerboseName: "reviews",
		ListDisplay: []Column[domain.Review]{
			{Name: "__str__", Label: "review", Value: func(_ context.Context, r *domain.Review) (interface{}, error) {
				return r.String(), nil
			}},
			{Name: "created_date", Label: "created date", Value: func(_ context.Context, r *domain.Review) (interface{}, error) {
				return r.CreatedDate, nil
			}},
			{Name: "is_released", Label: "is released", Value: func(_ context.Context, r *domain.Review) (interface{}, error) {
				return r.IsReleased, nil
			}},
		},
		ListFilter: []Filter{
			{Field: "product", Kind: FilterRelatedDropdown},
		},
		ListPerPage:     50,
		RawIDFields:     []string{"product"},
		ResourceColumns: catalog.ReviewColumns,
	}
}

func NewCategoryAdmin() *ModelAdmin[domain.Category] {
	return &ModelAdmin[domain.Category]{
		Model:       "category",
		VerboseName: "categories",
		ListDisplay: []Column[domain.Category]{
			{Name: "__str__", Label: "category", Value: func(_ context.Context, c *domain.Category) (interface{}, error) {
				return c.Name, nil
			}},
		},
		SearchFields: []string{"name"},
	}
}
