package adminapi

import (
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/labstack/echo/v4"
	"github.com/spf13/cast"
	"gorm.io/gorm"

	"github.com/bbluechip/catalogadmin/internal/catalog"
	"github.com/bbluechip/catalogadmin/internal/domain"
	"github.com/bbluechip/catalogadmin/internal/webserver"
)

var slugPattern = regexp.MustCompile(`^[-a-zA-Z0-9_]+$`)

var errInvalidFilter = errors.New("invalid filter")

type productPayload struct {
	Name        string                `json:"name" validate:"required,min=1,max=200"`
	Slug        string                `json:"slug" validate:"omitempty,max=200"`
	Description string                `json:"description"`
	IsInStock   bool                  `json:"is_in_stock"`
	ProductImg  string                `json:"product_img" validate:"omitempty,max=1024"`
	Categories  []int64               `json:"categories"`
	Reviews     []inlineReviewPayload `json:"reviews" validate:"omitempty,dive"`
}

// inlineReviewPayload is one row of the review inline on the product form.
// Rows without id create a review, rows with id update it, Delete removes it.
type inlineReviewPayload struct {
	ID         int64  `json:"id"`
	Author     string `json:"author" validate:"max=100"`
	Content    string `json:"content"`
	IsReleased bool   `json:"is_released"`
	Delete     bool   `json:"delete"`
}

func (r inlineReviewPayload) blank() bool {
	return r.ID == 0 && strings.TrimSpace(r.Author) == "" && strings.TrimSpace(r.Content) == ""
}

type stockPayload struct {
	IsInStock *bool `json:"is_in_stock" validate:"required"`
}

type actionPayload struct {
	IDs []int64 `json:"ids"`
}

type productDetail struct {
	Product  domain.Product         `json:"product"`
	ImageURL string                 `json:"image_url,omitempty"`
	Readonly map[string]interface{} `json:"readonly"`
	Inline   reviewInline           `json:"inline"`
}

type reviewInline struct {
	Rows  []domain.Review `json:"rows"`
	Extra []domain.Review `json:"extra"`
}

func registerProductRoutes() {
	webserver.ApiGET("/catalog/products", listProducts)
	webserver.ApiGET("/catalog/products/:id", getProduct)
	webserver.ApiGET("/catalog/products/:id/reviews", listProductReviews)
	webserver.ApiPOST("/catalog/products", createProduct)
	webserver.ApiPUT("/catalog/products/:id", updateProduct)
	webserver.ApiPATCH("/catalog/products/:id/stock", updateProductStock)
	webserver.ApiDELETE("/catalog/products/:id", deleteProduct)
	webserver.ApiPOST("/catalog/products/actions/:action", runProductAction)
}

func listProducts(c echo.Context) error {
	pa := getSite().Products
	page, pageSize := parsePagination(c, pa.PerPage())

	db := GetDB(c).Model(&domain.Product{})
	db = searchLike(db, strings.TrimSpace(c.QueryParam("q")), pa.SearchFields...)

	db, err := applyProductFilters(c, db)
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_FILTER", err.Error(), nil)
	}

	// whitelist allowed sort columns to avoid SQL injection
	allowed := map[string]string{
		"id":          "id",
		"name":        "name",
		"create_date": "create_date",
		"update_date": "update_date",
		"is_in_stock": "is_in_stock",
	}
	sortCol, found := allowed[strings.TrimSpace(c.QueryParam("sort"))]
	if !found {
		sortCol = "id"
	}
	order := strings.ToUpper(strings.TrimSpace(c.QueryParam("order")))
	if order != "ASC" && order != "DESC" {
		order = "DESC"
	}

	var total int64
	if err := db.Count(&total).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query products", err.Error())
	}

	var products []domain.Product
	if err := db.Order(sortCol + " " + order).Offset((page - 1) * pageSize).Limit(pageSize).Find(&products).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query products", err.Error())
	}

	ids := make([]int64, 0, len(products))
	for _, p := range products {
		ids = append(ids, p.ID)
	}
	ctx, err := getCatalog().PrefetchReviewCounts(c.Request().Context(), ids)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to count reviews", err.Error())
	}

	rows := make([]map[string]interface{}, 0, len(products))
	for i := range products {
		row, err := pa.Row(ctx, &products[i])
		if err != nil {
			return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to compute product columns", err.Error())
		}
		row["id"] = products[i].ID
		rows = append(rows, row)
	}

	return paged(c, rows, total, page, pageSize)
}

// applyProductFilters handles the list_filter and date_hierarchy params:
// is_in_stock, create_date__gte / create_date__lte and year / month / day
// on update_date.
func applyProductFilters(c echo.Context, db *gorm.DB) (*gorm.DB, error) {
	if v := strings.TrimSpace(c.QueryParam("is_in_stock")); v != "" {
		inStock, err := cast.ToBoolE(v)
		if err != nil {
			return nil, fmt.Errorf("%w: is_in_stock=%s", errInvalidFilter, v)
		}
		db = db.Where("is_in_stock = ?", inStock)
	}

	if v := strings.TrimSpace(c.QueryParam("create_date__gte")); v != "" {
		t, err := dateparse.ParseIn(v, time.Local)
		if err != nil {
			return nil, fmt.Errorf("%w: create_date__gte=%s", errInvalidFilter, v)
		}
		db = db.Where("create_date >= ?", t)
	}
	if v := strings.TrimSpace(c.QueryParam("create_date__lte")); v != "" {
		t, err := dateparse.ParseIn(v, time.Local)
		if err != nil {
			return nil, fmt.Errorf("%w: create_date__lte=%s", errInvalidFilter, v)
		}
		db = db.Where("create_date <= ?", t)
	}

	start, end, err := hierarchyRange(c.QueryParam("year"), c.QueryParam("month"), c.QueryParam("day"))
	if err != nil {
		return nil, err
	}
	if !start.IsZero() {
		db = db.Where("update_date >= ? AND update_date < ?", start, end)
	}
	return db, nil
}

// hierarchyRange converts a year[/month[/day]] drill down into a half open
// time range. Zero times mean no drill down.
func hierarchyRange(year, month, day string) (time.Time, time.Time, error) {
	if year == "" {
		if month != "" || day != "" {
			return time.Time{}, time.Time{}, fmt.Errorf("%w: month and day need a year", errInvalidFilter)
		}
		return time.Time{}, time.Time{}, nil
	}
	y, err := cast.ToIntE(year)
	if err != nil || y < 1 || y > 9999 {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: year=%s", errInvalidFilter, year)
	}
	if month == "" {
		if day != "" {
			return time.Time{}, time.Time{}, fmt.Errorf("%w: day needs a month", errInvalidFilter)
		}
		start := time.Date(y, time.January, 1, 0, 0, 0, 0, time.Local)
		return start, start.AddDate(1, 0, 0), nil
	}
	m, err := cast.ToIntE(month)
	if err != nil || m < 1 || m > 12 {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: month=%s", errInvalidFilter, month)
	}
	if day == "" {
		start := time.Date(y, time.Month(m), 1, 0, 0, 0, 0, time.Local)
		return start, start.AddDate(0, 1, 0), nil
	}
	d, err := cast.ToIntE(day)
	start := time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.Local)
	if err != nil || d < 1 || start.Month() != time.Month(m) {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: day=%s", errInvalidFilter, day)
	}
	return start, start.AddDate(0, 0, 1), nil
}

func findProduct(c echo.Context, db *gorm.DB, id int64) (*domain.Product, error) {
	var p domain.Product
	if err := db.Preload("Categories").Where("id = ?", id).First(&p).Error; errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fail(c, http.StatusNotFound, "PRODUCT_NOT_FOUND", "Product not found", nil)
	} else if err != nil {
		return nil, fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query product", err.Error())
	}
	return &p, nil
}

func getProduct(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid product ID", nil)
	}
	p, ferr := findProduct(c, GetDB(c), id)
	if p == nil {
		return ferr
	}
	return productDetailResponse(c, p)
}

func productDetailResponse(c echo.Context, p *domain.Product) error {
	pa := getSite().Products
	readonly, err := pa.Readonly(c.Request().Context(), p)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to compute product fields", err.Error())
	}

	var reviews []domain.Review
	if err := GetDB(c).Where("product_id = ?", p.ID).Order("id ASC").Find(&reviews).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query reviews", err.Error())
	}

	extra := make([]domain.Review, 0)
	for _, inline := range pa.Inlines {
		for i := 0; i < inline.Extra; i++ {
			extra = append(extra, domain.Review{ProductID: p.ID})
		}
	}

	detail := productDetail{
		Product:  *p,
		Readonly: readonly,
		Inline:   reviewInline{Rows: reviews, Extra: extra},
	}
	if p.HasImage() {
		detail.ImageURL = getCatalog().ImageURL(p)
	}
	return ok(c, detail)
}

func listProductReviews(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid product ID", nil)
	}
	if p, ferr := findProduct(c, GetDB(c), id); p == nil {
		return ferr
	}
	var reviews []domain.Review
	if err := GetDB(c).Where("product_id = ?", id).Order("id ASC").Find(&reviews).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query reviews", err.Error())
	}
	return ok(c, reviews)
}

// bindProduct parses and validates the payload and resolves slug and
// categories. A non nil error has already been written to the response.
func bindProduct(c echo.Context, id int64) (*productPayload, []domain.Category, error) {
	var payload productPayload
	if err := c.Bind(&payload); err != nil {
		return nil, nil, fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse product", err.Error())
	}
	payload.Name = strings.TrimSpace(payload.Name)
	payload.Slug = strings.TrimSpace(payload.Slug)
	payload.ProductImg = strings.TrimSpace(payload.ProductImg)
	if err := c.Validate(&payload); err != nil {
		return nil, nil, handleValidationError(c, err)
	}

	if payload.Slug == "" {
		payload.Slug = catalog.Slugify(payload.Name)
	}
	if !slugPattern.MatchString(payload.Slug) {
		return nil, nil, fail(c, http.StatusBadRequest, "INVALID_SLUG", "Slug may only contain letters, numbers, underscores and hyphens", nil)
	}
	var exists int64
	if err := GetDB(c).Model(&domain.Product{}).Where("slug = ? AND id != ?", payload.Slug, id).Count(&exists).Error; err != nil {
		return nil, nil, fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to check slug", err.Error())
	}
	if exists > 0 {
		return nil, nil, fail(c, http.StatusConflict, "PRODUCT_SLUG_EXISTS", "Product with this slug already exists", nil)
	}

	categories := make([]domain.Category, 0, len(payload.Categories))
	if len(payload.Categories) > 0 {
		if err := GetDB(c).Where("id IN ?", payload.Categories).Find(&categories).Error; err != nil {
			return nil, nil, fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query categories", err.Error())
		}
		if len(categories) != len(uniqueIDs(payload.Categories)) {
			return nil, nil, fail(c, http.StatusBadRequest, "INVALID_CATEGORY", "One or more categories do not exist", nil)
		}
	}

	newRows := 0
	for _, r := range payload.Reviews {
		if r.ID == 0 && !r.Delete && !r.blank() {
			newRows++
		}
	}
	if limit := inlineExtra(); newRows > limit {
		return nil, nil, fail(c, http.StatusBadRequest, "TOO_MANY_INLINES",
			fmt.Sprintf("At most %d new reviews can be added at once", limit), nil)
	}
	return &payload, categories, nil
}

func inlineExtra() int {
	extra := 0
	for _, inline := range getSite().Products.Inlines {
		extra += inline.Extra
	}
	return extra
}

func uniqueIDs(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; !dup {
			seen[id] = struct{}{}
			out = append(out, id)
		}
	}
	return out
}

var errInlineReview = errors.New("inline review does not belong to product")

// saveProduct writes the product, its categories and inline reviews in one
// transaction.
func saveProduct(tx *gorm.DB, p *domain.Product, categories []domain.Category, reviews []inlineReviewPayload, create bool) error {
	if create {
		if err := tx.Create(p).Error; err != nil {
			return err
		}
	} else if err := tx.Omit("Categories", "Reviews").Save(p).Error; err != nil {
		return err
	}
	if err := tx.Model(p).Association("Categories").Replace(categories); err != nil {
		return err
	}
	for _, r := range reviews {
		switch {
		case r.blank():
			continue
		case r.ID == 0:
			if r.Delete {
				continue
			}
			review := domain.Review{ProductID: p.ID, Author: strings.TrimSpace(r.Author), Content: r.Content, IsReleased: r.IsReleased}
			if err := tx.Create(&review).Error; err != nil {
				return err
			}
		case r.Delete:
			res := tx.Where("id = ? AND product_id = ?", r.ID, p.ID).Delete(&domain.Review{})
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return errInlineReview
			}
		default:
			res := tx.Model(&domain.Review{}).Where("id = ? AND product_id = ?", r.ID, p.ID).Updates(map[string]interface{}{
				"author":      strings.TrimSpace(r.Author),
				"content":     r.Content,
				"is_released": r.IsReleased,
			})
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return errInlineReview
			}
		}
	}
	return nil
}

// saveProductError maps a failed save. The slug pre-check runs outside the
// transaction, so a concurrent write can still hit the unique index.
func saveProductError(c echo.Context, err error, msg string) error {
	switch {
	case errors.Is(err, errInlineReview):
		return fail(c, http.StatusBadRequest, "INVALID_INLINE", err.Error(), nil)
	case isUniqueViolation(err):
		return fail(c, http.StatusConflict, "PRODUCT_SLUG_EXISTS", "Product with this slug already exists", nil)
	default:
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", msg, err.Error())
	}
}

func createProduct(c echo.Context) error {
	payload, categories, err := bindProduct(c, 0)
	if payload == nil {
		return err
	}

	p := domain.Product{
		Name:        payload.Name,
		Slug:        payload.Slug,
		Description: payload.Description,
		IsInStock:   payload.IsInStock,
		ProductImg:  payload.ProductImg,
	}
	err = GetDB(c).Transaction(func(tx *gorm.DB) error {
		return saveProduct(tx, &p, categories, payload.Reviews, true)
	})
	if err != nil {
		return saveProductError(c, err, "Failed to create product")
	}

	logOperation(c, "add", "product", p.ID, "Added product "+p.Name)
	return productDetailResponse(c, &p)
}

func updateProduct(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid product ID", nil)
	}
	p, ferr := findProduct(c, GetDB(c), id)
	if p == nil {
		return ferr
	}

	payload, categories, err := bindProduct(c, id)
	if payload == nil {
		return err
	}

	p.Name = payload.Name
	p.Slug = payload.Slug
	p.Description = payload.Description
	p.IsInStock = payload.IsInStock
	p.ProductImg = payload.ProductImg

	err = GetDB(c).Transaction(func(tx *gorm.DB) error {
		return saveProduct(tx, p, categories, payload.Reviews, false)
	})
	if err != nil {
		return saveProductError(c, err, "Failed to update product")
	}

	logOperation(c, "change", "product", p.ID, "Changed product "+p.Name)
	p.Categories = categories
	return productDetailResponse(c, p)
}

// updateProductStock is the list_editable toggle of the product list.
func updateProductStock(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid product ID", nil)
	}
	var payload stockPayload
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse request", err.Error())
	}
	if err := c.Validate(&payload); err != nil {
		return handleValidationError(c, err)
	}

	res := GetDB(c).Model(&domain.Product{}).Where("id = ?", id).Update("is_in_stock", *payload.IsInStock)
	if res.Error != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to update product", res.Error.Error())
	}
	if res.RowsAffected == 0 {
		return fail(c, http.StatusNotFound, "PRODUCT_NOT_FOUND", "Product not found", nil)
	}

	logOperation(c, "change", "product", id, fmt.Sprintf("Changed is_in_stock to %t", *payload.IsInStock))
	return ok(c, map[string]interface{}{"id": id, "is_in_stock": *payload.IsInStock})
}

func deleteProduct(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid product ID", nil)
	}
	p, ferr := findProduct(c, GetDB(c), id)
	if p == nil {
		return ferr
	}

	err = GetDB(c).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("product_id = ?", id).Delete(&domain.Review{}).Error; err != nil {
			return err
		}
		if err := tx.Model(p).Association("Categories").Clear(); err != nil {
			return err
		}
		return tx.Delete(&domain.Product{}, id).Error
	})
	if err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to delete product", err.Error())
	}

	logOperation(c, "delete", "product", id, "Deleted product "+p.Name)
	return ok(c, map[string]interface{}{"id": id})
}

// runProductAction applies a registered bulk action to the selected ids.
func runProductAction(c echo.Context) error {
	action, found := getSite().Products.Action(c.Param("action"))
	if !found {
		return fail(c, http.StatusNotFound, "ACTION_NOT_FOUND", "Unknown action", nil)
	}
	var payload actionPayload
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse action request", err.Error())
	}

	result, err := action.Run(c.Request().Context(), payload.IDs)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Action failed", err.Error())
	}

	if len(payload.IDs) > 0 {
		logOperation(c, action.Name, "product", payload.IDs, result.Message.Text)
	}
	return ok(c, result)
}
