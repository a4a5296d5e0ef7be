// Package catalog holds the derived values and the bulk action the back
// office shows for products, plus the review import/export resource.
package catalog

import (
	"context"
	"strings"
	"time"

	"github.com/asaskevich/EventBus"

	"github.com/bbluechip/catalogadmin/internal/domain"
)

const (
	DetailImageSize    = 400
	ThumbnailImageSize = 50
	// ThumbnailPlaceholder is shown in the list when a product has no image.
	ThumbnailPlaceholder Markup = "******"

	ActionMarkInStock = "is_in_stock"
)

const day = 24 * time.Hour

// Store is the storage the facade reads from and bulk-updates.
type Store interface {
	// CountReviews returns the number of reviews referencing the product.
	CountReviews(ctx context.Context, productID int64) (int64, error)
	// MarkInStock sets is_in_stock on every product in ids within one
	// transaction and returns the number of matched rows.
	MarkInStock(ctx context.Context, ids []int64) (int64, error)
}

// Message is a user facing notice produced by an admin action.
type Message struct {
	Level string `json:"level"`
	Text  string `json:"text"`
}

// ActionResult is returned by bulk actions
type ActionResult struct {
	Action  string  `json:"action"`
	Count   int64   `json:"count"`
	Message Message `json:"message"`
}

type Facade struct {
	store    Store
	now      func() time.Time
	mediaURL string
	messages *Messages
	bus      EventBus.Bus
}

type Option func(*Facade)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(f *Facade) { f.now = now }
}

// WithMediaURL sets the prefix joined to relative image paths.
func WithMediaURL(u string) Option {
	return func(f *Facade) { f.mediaURL = u }
}

func WithMessages(m *Messages) Option {
	return func(f *Facade) { f.messages = m }
}

// WithBus publishes a StockedEvent after every successful bulk action.
func WithBus(bus EventBus.Bus) Option {
	return func(f *Facade) { f.bus = bus }
}

func NewFacade(store Store, opts ...Option) *Facade {
	f := &Facade{
		store:    store,
		now:      time.Now,
		mediaURL: "/media/",
		messages: NewMessages("en"),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Messages returns the localized strings the facade was built with.
func (f *Facade) Messages() *Messages {
	return f.messages
}

// DaysSinceCreation is the number of whole days elapsed since the product
// was created.
func (f *Facade) DaysSinceCreation(p *domain.Product) int {
	d := f.now().Sub(p.CreateDate)
	days := d / day
	if d < 0 && d%day != 0 {
		days--
	}
	return int(days)
}

// batchReviewCounter is implemented by stores that can count a page of
// products in one query.
type batchReviewCounter interface {
	CountReviewsByProduct(ctx context.Context, productIDs []int64) (map[int64]int64, error)
}

type reviewCountsKey struct{}

// PrefetchReviewCounts counts reviews for every id up front and returns a
// context that ReviewCount answers from. Stores without batch support get
// the context back unchanged.
func (f *Facade) PrefetchReviewCounts(ctx context.Context, ids []int64) (context.Context, error) {
	counter, batched := f.store.(batchReviewCounter)
	if !batched || len(ids) == 0 {
		return ctx, nil
	}
	found, err := counter.CountReviewsByProduct(ctx, ids)
	if err != nil {
		return ctx, err
	}
	counts := make(map[int64]int64, len(ids))
	for _, id := range ids {
		counts[id] = found[id]
	}
	return context.WithValue(ctx, reviewCountsKey{}, counts), nil
}

// ReviewCount returns how many reviews reference the product.
func (f *Facade) ReviewCount(ctx context.Context, p *domain.Product) (int64, error) {
	if counts, ok := ctx.Value(reviewCountsKey{}).(map[int64]int64); ok {
		if n, hit := counts[p.ID]; hit {
			return n, nil
		}
	}
	return f.store.CountReviews(ctx, p.ID)
}

// ImageURL resolves the stored image path against the media url.
func (f *Facade) ImageURL(p *domain.Product) string {
	img := p.ProductImg
	if strings.Contains(img, "://") || strings.HasPrefix(img, "/") {
		return img
	}
	return strings.TrimSuffix(f.mediaURL, "/") + "/" + img
}

// DetailImageMarkup is the large image of the change form, or a heading
// naming the product when it has none.
func (f *Facade) DetailImageMarkup(p *domain.Product) Markup {
	if p.HasImage() {
		return imageTag(f.ImageURL(p), DetailImageSize)
	}
	return missingImageHeading(p.Name)
}

// ThumbnailMarkup is the list column image.
func (f *Facade) ThumbnailMarkup(p *domain.Product) Markup {
	if p.HasImage() {
		return imageTag(f.ImageURL(p), ThumbnailImageSize)
	}
	return ThumbnailPlaceholder
}

// BulkMarkInStock marks the selected products as in stock. Count is the
// number of matched rows, including rows that were already in stock.
// Storage errors are returned unchanged.
func (f *Facade) BulkMarkInStock(ctx context.Context, ids []int64) (*ActionResult, error) {
	var count int64
	if len(ids) > 0 {
		n, err := f.store.MarkInStock(ctx, ids)
		if err != nil {
			return nil, err
		}
		count = n
		if f.bus != nil {
			f.bus.Publish(TopicStocked, StockedEvent{IDs: ids, Count: count, At: f.now()})
		}
	}
	return &ActionResult{
		Action: ActionMarkInStock,
		Count:  count,
		Message: Message{
			Level: "success",
			Text:  f.messages.MarkedInStock(count),
		},
	}, nil
}
