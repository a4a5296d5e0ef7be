package adminapi

import (
	"errors"
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/bbluechip/catalogadmin/internal/domain"
	"github.com/bbluechip/catalogadmin/internal/testutil"
)

type detailResponse struct {
	Product  domain.Product         `json:"product"`
	ImageURL string                 `json:"image_url"`
	Readonly map[string]interface{} `json:"readonly"`
	Inline   struct {
		Rows  []domain.Review `json:"rows"`
		Extra []domain.Review `json:"extra"`
	} `json:"inline"`
}

func TestCreateProductFillsSlug(t *testing.T) {
	env := newTestEnv(t)
	cat := domain.Category{Name: "Drinks"}
	require.NoError(t, env.app.DB().Create(&cat).Error)

	rec := env.do(t, http.MethodPost, "/catalog/products", map[string]interface{}{
		"name":        "Green Tea",
		"description": "loose leaf",
		"categories":  []int64{cat.ID},
		"reviews": []map[string]interface{}{
			{"author": "ayse", "content": "fresh"},
			{"author": "", "content": ""},
		},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var detail detailResponse
	decode(t, rec, &detail)
	assert.Equal(t, "green-tea", detail.Product.Slug)
	assert.Equal(t, "<h3>Green Tea has not image </h3>", detail.Readonly["bring_image"])
	require.Len(t, detail.Inline.Rows, 1)
	assert.Equal(t, "ayse", detail.Inline.Rows[0].Author)
	assert.Len(t, detail.Inline.Extra, 2)
	assert.Empty(t, detail.ImageURL)

	var linked int64
	require.NoError(t, env.app.DB().Table("product_categories").Where("product_id = ?", detail.Product.ID).Count(&linked).Error)
	assert.Equal(t, int64(1), linked)

	rec = env.do(t, http.MethodPost, "/catalog/products", map[string]interface{}{"name": "Green  Tea!"})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestCreateProductValidation(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/catalog/products", map[string]interface{}{"name": ""})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodPost, "/catalog/products", map[string]interface{}{"name": "x", "slug": "bad slug"})
	resp := decode(t, rec, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "INVALID_SLUG", resp.Code)

	rec = env.do(t, http.MethodPost, "/catalog/products", map[string]interface{}{"name": "x", "categories": []int64{404}})
	resp = decode(t, rec, nil)
	assert.Equal(t, "INVALID_CATEGORY", resp.Code)

	rec = env.do(t, http.MethodPost, "/catalog/products", map[string]interface{}{
		"name": "x",
		"reviews": []map[string]interface{}{
			{"author": "a"}, {"author": "b"}, {"author": "c"},
		},
	})
	resp = decode(t, rec, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "TOO_MANY_INLINES", resp.Code)

	var count int64
	env.app.DB().Model(&domain.Product{}).Count(&count)
	assert.Zero(t, count)
}

func TestUpdateProductInlineReviews(t *testing.T) {
	env := newTestEnv(t)
	db := env.app.DB()
	p := testutil.CreateProduct(t, db, "kahve", false, time.Now())
	keep := testutil.CreateReview(t, db, p.ID, "ali")
	drop := testutil.CreateReview(t, db, p.ID, "veli")
	other := testutil.CreateProduct(t, db, "cay", false, time.Now())
	foreign := testutil.CreateReview(t, db, other.ID, "zeynep")

	rec := env.do(t, http.MethodPut, "/catalog/products/"+itoa(p.ID), map[string]interface{}{
		"name":        "Kahve",
		"slug":        "kahve",
		"product_img": "products/kahve.png",
		"reviews": []map[string]interface{}{
			{"id": keep.ID, "author": "ali", "content": "edited", "is_released": true},
			{"id": drop.ID, "delete": true},
			{"author": "new", "content": "hello"},
		},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var detail detailResponse
	decode(t, rec, &detail)
	assert.Equal(t, "Kahve", detail.Product.Name)
	assert.Equal(t, "/media/products/kahve.png", detail.ImageURL)
	assert.Equal(t, `<img src="/media/products/kahve.png" width=400 height=400></img>`, detail.Readonly["bring_image"])
	require.Len(t, detail.Inline.Rows, 2)
	assert.Equal(t, "edited", detail.Inline.Rows[0].Content)
	assert.True(t, detail.Inline.Rows[0].IsReleased)
	assert.Equal(t, "new", detail.Inline.Rows[1].Author)

	rec = env.do(t, http.MethodPut, "/catalog/products/"+itoa(p.ID), map[string]interface{}{
		"name":    "Kahve",
		"reviews": []map[string]interface{}{{"id": foreign.ID, "content": "hijack"}},
	})
	resp := decode(t, rec, nil)
	assert.Equal(t, "INVALID_INLINE", resp.Code)

	var stored domain.Review
	require.NoError(t, db.First(&stored, foreign.ID).Error)
	assert.Equal(t, "content by zeynep", stored.Content)

	rec = env.do(t, http.MethodPut, "/catalog/products/999", map[string]interface{}{"name": "none"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListProducts(t *testing.T) {
	env := newTestEnv(t)
	db := env.app.DB()
	old := testutil.CreateProduct(t, db, "old-tea", false, time.Now().Add(-10*24*time.Hour))
	testutil.CreateProduct(t, db, "fresh-coffee", true, time.Now())
	testutil.CreateReview(t, db, old.ID, "a")
	testutil.CreateReview(t, db, old.ID, "b")

	rec := env.do(t, http.MethodGet, "/catalog/products?is_in_stock=false", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var rows []map[string]interface{}
	resp := decode(t, rec, &rows)
	require.Equal(t, int64(1), resp.Total)
	assert.Equal(t, "old-tea", rows[0]["name"])
	assert.Equal(t, float64(10), rows[0]["added_days_ago"])
	assert.Equal(t, float64(2), rows[0]["how_many_reviews"])
	assert.Equal(t, "******", rows[0]["bring_img_to_list"])
	assert.Equal(t, float64(old.ID), rows[0]["id"])

	rec = env.do(t, http.MethodGet, "/catalog/products?q=COFFEE", nil)
	resp = decode(t, rec, &rows)
	require.Equal(t, int64(1), resp.Total)
	assert.Equal(t, "fresh-coffee", rows[0]["name"])

	rec = env.do(t, http.MethodGet, "/catalog/products?sort=name&order=asc", nil)
	decode(t, rec, &rows)
	require.Len(t, rows, 2)
	assert.Equal(t, "fresh-coffee", rows[0]["name"])

	rec = env.do(t, http.MethodGet, "/catalog/products?year="+time.Now().Format("2006"), nil)
	resp = decode(t, rec, nil)
	assert.GreaterOrEqual(t, resp.Total, int64(1))

	rec = env.do(t, http.MethodGet, "/catalog/products?year=1999&month=1", nil)
	resp = decode(t, rec, nil)
	assert.Zero(t, resp.Total)

	rec = env.do(t, http.MethodGet, "/catalog/products?is_in_stock=maybe", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHierarchyRange(t *testing.T) {
	start, end, err := hierarchyRange("2024", "2", "")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 2, 1, 0, 0, 0, 0, time.Local), start)
	assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.Local), end)

	start, end, err = hierarchyRange("2024", "2", "29")
	require.NoError(t, err)
	assert.Equal(t, 24*time.Hour, end.Sub(start))

	start, _, err = hierarchyRange("", "", "")
	require.NoError(t, err)
	assert.True(t, start.IsZero())

	for _, bad := range [][3]string{{"2023", "2", "29"}, {"", "2", ""}, {"2024", "13", ""}, {"2024", "", "1"}, {"x", "", ""}} {
		_, _, err := hierarchyRange(bad[0], bad[1], bad[2])
		assert.ErrorIs(t, err, errInvalidFilter, bad)
	}
}

func TestUpdateProductStock(t *testing.T) {
	env := newTestEnv(t)
	p := testutil.CreateProduct(t, env.app.DB(), "tea", false, time.Now())

	rec := env.do(t, http.MethodPatch, "/catalog/products/"+itoa(p.ID)+"/stock", map[string]bool{"is_in_stock": true})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var stored domain.Product
	require.NoError(t, env.app.DB().First(&stored, p.ID).Error)
	assert.True(t, stored.IsInStock)

	rec = env.do(t, http.MethodPatch, "/catalog/products/"+itoa(p.ID)+"/stock", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodPatch, "/catalog/products/999/stock", map[string]bool{"is_in_stock": true})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDeleteProductRemovesReviews(t *testing.T) {
	env := newTestEnv(t)
	db := env.app.DB()
	p := testutil.CreateProduct(t, db, "tea", false, time.Now())
	testutil.CreateReview(t, db, p.ID, "a")

	rec := env.do(t, http.MethodDelete, "/catalog/products/"+itoa(p.ID), nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var reviews int64
	db.Model(&domain.Review{}).Count(&reviews)
	assert.Zero(t, reviews)

	rec = env.do(t, http.MethodDelete, "/catalog/products/"+itoa(p.ID), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRunProductAction(t *testing.T) {
	env := newTestEnv(t)
	db := env.app.DB()
	a := testutil.CreateProduct(t, db, "a", false, time.Now())
	b := testutil.CreateProduct(t, db, "b", true, time.Now())
	c := testutil.CreateProduct(t, db, "c", false, time.Now())

	rec := env.do(t, http.MethodPost, "/catalog/products/actions/is_in_stock", map[string]interface{}{"ids": []int64{a.ID, b.ID}})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var result struct {
		Count   int64 `json:"count"`
		Message struct {
			Level string `json:"level"`
			Text  string `json:"text"`
		} `json:"message"`
	}
	decode(t, rec, &result)
	assert.Equal(t, int64(2), result.Count)
	assert.Equal(t, "success", result.Message.Level)
	assert.Equal(t, "2 çeşit ürün stoğa eklendi", result.Message.Text)

	var untouched domain.Product
	require.NoError(t, db.First(&untouched, c.ID).Error)
	assert.False(t, untouched.IsInStock)

	var logs int64
	db.Model(&domain.SysOprLog{}).Where("opt_action = ?", "is_in_stock").Count(&logs)
	assert.Equal(t, int64(1), logs)

	rec = env.do(t, http.MethodPost, "/catalog/products/actions/is_in_stock", map[string]interface{}{"ids": []int64{}})
	decode(t, rec, &result)
	assert.Zero(t, result.Count)

	rec = env.do(t, http.MethodPost, "/catalog/products/actions/delete_all", map[string]interface{}{"ids": []int64{a.ID}})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestInlineLimitIgnoresDeletedNewRows(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/catalog/products", map[string]interface{}{
		"name": "Mate",
		"reviews": []map[string]interface{}{
			{"author": "a", "content": "one"},
			{"author": "b", "content": "two"},
			{"author": "c", "content": "dropped", "delete": true},
		},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var detail detailResponse
	decode(t, rec, &detail)
	require.Len(t, detail.Inline.Rows, 2)
	for _, r := range detail.Inline.Rows {
		assert.NotEqual(t, "c", r.Author)
	}
}

func TestListProductsSearchMatchesWildcardsLiterally(t *testing.T) {
	env := newTestEnv(t)
	db := env.app.DB()
	testutil.CreateProduct(t, db, "plain", false, time.Now())
	testutil.CreateProduct(t, db, "fifty_pct", false, time.Now())
	testutil.CreateProduct(t, db, "half%off", false, time.Now())

	cases := map[string]int64{
		"_":     1,
		"%":     1,
		"y_p":   1,
		"f%o":   1,
		"PLAIN": 1,
		"ft_":   0,
	}
	for q, want := range cases {
		rec := env.do(t, http.MethodGet, "/catalog/products?q="+url.QueryEscape(q), nil)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		resp := decode(t, rec, nil)
		assert.Equal(t, want, resp.Total, q)
	}
}

func TestIsUniqueViolation(t *testing.T) {
	db := testutil.NewTestDB(t)
	testutil.CreateProduct(t, db, "tea", false, time.Now())

	err := db.Create(&domain.Product{Name: "Tea again", Slug: "tea"}).Error
	require.Error(t, err)
	assert.True(t, isUniqueViolation(err))
	assert.True(t, isUniqueViolation(gorm.ErrDuplicatedKey))
	assert.False(t, isUniqueViolation(errors.New("disk full")))
	assert.False(t, isUniqueViolation(nil))
}

func TestCreateProductSlugRaceReturnsConflict(t *testing.T) {
	env := newTestEnv(t)
	db := env.app.DB()

	// a rival insert lands between the slug check and the transaction
	inserted := false
	require.NoError(t, db.Callback().Create().Before("gorm:create").Register("test:rival_slug", func(tx *gorm.DB) {
		p, isProduct := tx.Statement.Dest.(*domain.Product)
		if inserted || !isProduct || p.Slug != "race" {
			return
		}
		inserted = true
		rival := domain.Product{Name: "rival", Slug: "race", CreateDate: time.Now(), UpdateDate: time.Now()}
		if err := tx.Session(&gorm.Session{NewDB: true}).Create(&rival).Error; err != nil {
			_ = tx.AddError(err)
		}
	}))

	rec := env.do(t, http.MethodPost, "/catalog/products", map[string]interface{}{"name": "Race"})
	assert.Equal(t, http.StatusConflict, rec.Code, rec.Body.String())
	resp := decode(t, rec, nil)
	assert.Equal(t, "PRODUCT_SLUG_EXISTS", resp.Code)
	assert.True(t, inserted)
}

func TestListProductsCountsReviewsOncePerPage(t *testing.T) {
	env := newTestEnv(t)
	db := env.app.DB()
	for _, name := range []string{"a", "b", "c"} {
		p := testutil.CreateProduct(t, db, name, false, time.Now())
		testutil.CreateReview(t, db, p.ID, name+"1")
	}

	reviewQueries := 0
	require.NoError(t, db.Callback().Query().Before("gorm:query").Register("test:count_review_queries", func(tx *gorm.DB) {
		if tx.Statement.Table == "reviews" {
			reviewQueries++
		}
	}))

	rec := env.do(t, http.MethodGet, "/catalog/products", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var rows []map[string]interface{}
	decode(t, rec, &rows)
	require.Len(t, rows, 3)
	for _, row := range rows {
		assert.Equal(t, float64(1), row["how_many_reviews"])
	}
	assert.Equal(t, 1, reviewQueries)
}

func TestCreateProductRomanizesSlug(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/catalog/products", map[string]interface{}{"name": "Чай"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var detail detailResponse
	decode(t, rec, &detail)
	assert.Equal(t, "chai", detail.Product.Slug)

	rec = env.do(t, http.MethodPost, "/catalog/products", map[string]interface{}{"name": "绿茶"})
	resp := decode(t, rec, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "INVALID_SLUG", resp.Code)
}
