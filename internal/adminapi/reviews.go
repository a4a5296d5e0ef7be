package adminapi

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/spf13/cast"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/bbluechip/catalogadmin/internal/catalog"
	"github.com/bbluechip/catalogadmin/internal/domain"
	"github.com/bbluechip/catalogadmin/internal/webserver"
	"github.com/bbluechip/catalogadmin/pkg/metrics"
)

const maxImportSize = 10 << 20

type reviewPayload struct {
	ProductID  int64  `json:"product_id" validate:"required,gt=0"`
	Author     string `json:"author" validate:"max=100"`
	Content    string `json:"content"`
	IsReleased bool   `json:"is_released"`
}

type reviewListItem struct {
	domain.Review
	Label string `json:"label"`
}

type productOption struct {
	ID      int64  `json:"id"`
	Name    string `json:"name"`
	Reviews int64  `json:"reviews"`
}

func registerReviewRoutes() {
	webserver.ApiGET("/catalog/reviews", listReviews)
	webserver.ApiGET("/catalog/reviews/products", listReviewProductOptions)
	webserver.ApiGET("/catalog/reviews/export", exportReviews)
	webserver.ApiPOST("/catalog/reviews/import", importReviews)
	webserver.ApiGET("/catalog/reviews/:id", getReview)
	webserver.ApiPOST("/catalog/reviews", createReview)
	webserver.ApiPUT("/catalog/reviews/:id", updateReview)
	webserver.ApiDELETE("/catalog/reviews/:id", deleteReview)
}

// reviewQuery applies the product related dropdown filter.
func reviewQuery(c echo.Context) (*gorm.DB, error) {
	db := GetDB(c).Model(&domain.Review{})
	if v := strings.TrimSpace(c.QueryParam("product_id")); v != "" {
		productID, err := cast.ToInt64E(v)
		if err != nil || productID <= 0 {
			return nil, fmt.Errorf("%w: product_id=%s", errInvalidFilter, v)
		}
		db = db.Where("product_id = ?", productID)
	}
	return db, nil
}

func listReviews(c echo.Context) error {
	page, pageSize := parsePagination(c, getSite().Reviews.PerPage())

	db, err := reviewQuery(c)
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_FILTER", err.Error(), nil)
	}

	var total int64
	if err := db.Count(&total).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query reviews", err.Error())
	}

	var reviews []domain.Review
	if err := db.Order("id DESC").Offset((page - 1) * pageSize).Limit(pageSize).Find(&reviews).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query reviews", err.Error())
	}

	items := make([]reviewListItem, 0, len(reviews))
	for _, r := range reviews {
		items = append(items, reviewListItem{Review: r, Label: r.String()})
	}
	return paged(c, items, total, page, pageSize)
}

// listReviewProductOptions feeds the product filter dropdown.
func listReviewProductOptions(c echo.Context) error {
	var products []domain.Product
	if err := GetDB(c).Select("id", "name").Order("name ASC").Find(&products).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query products", err.Error())
	}

	ids := make([]int64, 0, len(products))
	for _, p := range products {
		ids = append(ids, p.ID)
	}
	counts, err := catalog.NewGormStore(GetDB(c)).CountReviewsByProduct(c.Request().Context(), ids)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to count reviews", err.Error())
	}

	options := make([]productOption, 0, len(products))
	for _, p := range products {
		options = append(options, productOption{ID: p.ID, Name: p.Name, Reviews: counts[p.ID]})
	}
	return ok(c, options)
}

func getReview(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid review ID", nil)
	}

	var r domain.Review
	if err := GetDB(c).Where("id = ?", id).First(&r).Error; errors.Is(err, gorm.ErrRecordNotFound) {
		return fail(c, http.StatusNotFound, "REVIEW_NOT_FOUND", "Review not found", nil)
	} else if err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query review", err.Error())
	}

	return ok(c, reviewListItem{Review: r, Label: r.String()})
}

func bindReview(c echo.Context) (*reviewPayload, error) {
	var payload reviewPayload
	if err := c.Bind(&payload); err != nil {
		return nil, fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse review", err.Error())
	}
	payload.Author = strings.TrimSpace(payload.Author)
	if err := c.Validate(&payload); err != nil {
		return nil, handleValidationError(c, err)
	}

	var exists int64
	if err := GetDB(c).Model(&domain.Product{}).Where("id = ?", payload.ProductID).Count(&exists).Error; err != nil {
		return nil, fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query product", err.Error())
	}
	if exists == 0 {
		return nil, fail(c, http.StatusBadRequest, "PRODUCT_NOT_FOUND", "Selected product does not exist", nil)
	}
	return &payload, nil
}

func createReview(c echo.Context) error {
	payload, err := bindReview(c)
	if payload == nil {
		return err
	}

	r := domain.Review{
		ProductID:  payload.ProductID,
		Author:     payload.Author,
		Content:    payload.Content,
		IsReleased: payload.IsReleased,
	}
	if err := GetDB(c).Create(&r).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to create review", err.Error())
	}

	logOperation(c, "add", "review", r.ID, "Added review "+r.String())
	return ok(c, reviewListItem{Review: r, Label: r.String()})
}

func updateReview(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid review ID", nil)
	}

	var r domain.Review
	if err := GetDB(c).Where("id = ?", id).First(&r).Error; errors.Is(err, gorm.ErrRecordNotFound) {
		return fail(c, http.StatusNotFound, "REVIEW_NOT_FOUND", "Review not found", nil)
	} else if err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query review", err.Error())
	}

	payload, err := bindReview(c)
	if payload == nil {
		return err
	}

	r.ProductID = payload.ProductID
	r.Author = payload.Author
	r.Content = payload.Content
	r.IsReleased = payload.IsReleased
	if err := GetDB(c).Save(&r).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to update review", err.Error())
	}

	logOperation(c, "change", "review", r.ID, "Changed review "+r.String())
	return ok(c, reviewListItem{Review: r, Label: r.String()})
}

func deleteReview(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid review ID", nil)
	}

	res := GetDB(c).Where("id = ?", id).Delete(&domain.Review{})
	if res.Error != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to delete review", res.Error.Error())
	}
	if res.RowsAffected == 0 {
		return fail(c, http.StatusNotFound, "REVIEW_NOT_FOUND", "Review not found", nil)
	}

	logOperation(c, "delete", "review", id, "Deleted review")
	return ok(c, map[string]interface{}{"id": id})
}

func exportFormat(raw string) string {
	format := strings.ToLower(strings.TrimSpace(raw))
	if format == "" {
		return catalog.FormatCSV
	}
	return format
}

// exportReviews downloads the filtered reviews as csv or xlsx.
func exportReviews(c echo.Context) error {
	format := exportFormat(c.QueryParam("format"))
	if format != catalog.FormatCSV && format != catalog.FormatXLSX {
		return fail(c, http.StatusBadRequest, "UNSUPPORTED_FORMAT", "Format must be csv or xlsx", nil)
	}

	db, err := reviewQuery(c)
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_FILTER", err.Error(), nil)
	}
	var reviews []domain.Review
	if err := db.Order("id ASC").Find(&reviews).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query reviews", err.Error())
	}

	var buf bytes.Buffer
	if err := catalog.ExportReviews(&buf, format, reviews); err != nil {
		return fail(c, http.StatusInternalServerError, "EXPORT_ERROR", "Failed to export reviews", err.Error())
	}
	metrics.AddCounter(metrics.ReviewExportedRows, int64(len(reviews)))
	zap.L().Info("reviews exported", zap.String("format", format), zap.Int("rows", len(reviews)))

	contentType := "text/csv; charset=utf-8"
	if format == catalog.FormatXLSX {
		contentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	filename := fmt.Sprintf("reviews-%s.%s", time.Now().Format("2006-01-02"), format)
	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", filename))
	return c.Blob(http.StatusOK, contentType, buf.Bytes())
}

// importReviews accepts a multipart upload in field "file". The format is
// taken from the form or the file extension; dry_run validates only.
func importReviews(c echo.Context) error {
	fh, err := c.FormFile("file")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Missing upload file", err.Error())
	}
	if fh.Size > maxImportSize {
		return fail(c, http.StatusBadRequest, "FILE_TOO_LARGE", "Upload exceeds 10MB", nil)
	}

	format := strings.ToLower(strings.TrimSpace(c.FormValue("format")))
	if format == "" {
		name := strings.ToLower(fh.Filename)
		if idx := strings.LastIndex(name, "."); idx >= 0 {
			format = name[idx+1:]
		}
	}
	if format != catalog.FormatCSV && format != catalog.FormatXLSX {
		return fail(c, http.StatusBadRequest, "UNSUPPORTED_FORMAT", "Format must be csv or xlsx", nil)
	}
	dryRun := cast.ToBool(c.FormValue("dry_run"))

	src, err := fh.Open()
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to read upload", err.Error())
	}
	defer src.Close()

	rows, err := catalog.ParseReviews(src, format)
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_FILE", "Unable to parse upload", err.Error())
	}

	result, err := catalog.ImportReviews(c.Request().Context(), appCtx.DB(), rows, dryRun)
	if errors.Is(err, catalog.ErrImportInvalid) {
		return c.JSON(http.StatusBadRequest, map[string]interface{}{
			"success": false,
			"code":    "IMPORT_INVALID",
			"message": "Import has invalid rows, nothing was saved",
			"data":    result,
		})
	}
	if err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to import reviews", err.Error())
	}

	if !dryRun {
		metrics.AddCounter(metrics.ReviewImportedRows, int64(result.New+result.Update))
		logOperation(c, "import", "review", "", fmt.Sprintf("Imported reviews: %d new, %d updated, %d skipped", result.New, result.Update, result.Skip))
	}
	return ok(c, result)
}
