package adminapi

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/bbluechip/catalogadmin/internal/domain"
	"github.com/bbluechip/catalogadmin/internal/webserver"
)

type categoryPayload struct {
	Name string `json:"name" validate:"required,min=1,max=200"`
}

// registerCategoryRoutes registers category CRUD routes
func registerCategoryRoutes() {
	webserver.ApiGET("/catalog/categories", listCategories)
	webserver.ApiGET("/catalog/categories/:id", getCategory)
	webserver.ApiPOST("/catalog/categories", createCategory)
	webserver.ApiPUT("/catalog/categories/:id", updateCategory)
	webserver.ApiDELETE("/catalog/categories/:id", deleteCategory)
}

func listCategories(c echo.Context) error {
	page, pageSize := parsePagination(c, getSite().Categories.PerPage())

	db := GetDB(c).Model(&domain.Category{})
	db = searchLike(db, strings.TrimSpace(c.QueryParam("q")), "name")

	var total int64
	if err := db.Count(&total).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query categories", err.Error())
	}

	var categories []domain.Category
	if err := db.Order("name ASC").Offset((page - 1) * pageSize).Limit(pageSize).Find(&categories).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query categories", err.Error())
	}

	return paged(c, categories, total, page, pageSize)
}

func findCategory(c echo.Context) (*domain.Category, error) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return nil, fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid category ID", nil)
	}
	var cat domain.Category
	if err := GetDB(c).Where("id = ?", id).First(&cat).Error; errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fail(c, http.StatusNotFound, "CATEGORY_NOT_FOUND", "Category not found", nil)
	} else if err != nil {
		return nil, fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query category", err.Error())
	}
	return &cat, nil
}

func getCategory(c echo.Context) error {
	cat, err := findCategory(c)
	if cat == nil {
		return err
	}
	return ok(c, cat)
}

func createCategory(c echo.Context) error {
	var payload categoryPayload
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse category parameters", nil)
	}
	payload.Name = strings.TrimSpace(payload.Name)
	if err := c.Validate(&payload); err != nil {
		return handleValidationError(c, err)
	}

	cat := domain.Category{Name: payload.Name}
	if err := GetDB(c).Create(&cat).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to create category", err.Error())
	}

	logOperation(c, "add", "category", cat.ID, "Added category "+cat.Name)
	return ok(c, cat)
}

func updateCategory(c echo.Context) error {
	cat, err := findCategory(c)
	if cat == nil {
		return err
	}

	var payload categoryPayload
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse category parameters", nil)
	}
	payload.Name = strings.TrimSpace(payload.Name)
	if err := c.Validate(&payload); err != nil {
		return handleValidationError(c, err)
	}

	cat.Name = payload.Name
	if err := GetDB(c).Save(cat).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to update category", err.Error())
	}

	logOperation(c, "change", "category", cat.ID, "Changed category "+cat.Name)
	return ok(c, cat)
}

// deleteCategory unlinks the category from its products before removing it.
func deleteCategory(c echo.Context) error {
	cat, err := findCategory(c)
	if cat == nil {
		return err
	}

	err = GetDB(c).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec("DELETE FROM product_categories WHERE category_id = ?", cat.ID).Error; err != nil {
			return err
		}
		return tx.Delete(&domain.Category{}, cat.ID).Error
	})
	if err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to delete category", err.Error())
	}

	logOperation(c, "delete", "category", cat.ID, "Deleted category "+cat.Name)
	return ok(c, map[string]interface{}{"id": cat.ID})
}
