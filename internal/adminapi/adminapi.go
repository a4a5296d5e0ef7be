package adminapi

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/labstack/echo/v4"
	"github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/bbluechip/catalogadmin/internal/admin"
	"github.com/bbluechip/catalogadmin/internal/app"
	"github.com/bbluechip/catalogadmin/internal/catalog"
	"github.com/bbluechip/catalogadmin/internal/domain"
	"github.com/bbluechip/catalogadmin/internal/webserver"
	"github.com/bbluechip/catalogadmin/pkg/common"
)

const maxPageSize = 500

var appCtx app.AppContext

// Init registers every admin route on the current webserver.
func Init(ctx app.AppContext) {
	appCtx = ctx
	registerAuthRoutes()
	registerSiteRoutes()
	registerProductRoutes()
	registerReviewRoutes()
	registerCategoryRoutes()
	registerOprLogRoutes()
	registerMetricsRoutes()
}

// GetDB returns the database bound to the request context
func GetDB(c echo.Context) *gorm.DB {
	return appCtx.DB().WithContext(c.Request().Context())
}

func getSite() *admin.Site {
	return appCtx.Site()
}

func getCatalog() *catalog.Facade {
	return appCtx.Catalog()
}

func ok(c echo.Context, data interface{}) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"success": true,
		"data":    data,
	})
}

func fail(c echo.Context, status int, code, message string, details interface{}) error {
	body := map[string]interface{}{
		"success": false,
		"code":    code,
		"message": message,
	}
	if details != nil {
		body["details"] = details
	}
	return c.JSON(status, body)
}

func paged(c echo.Context, data interface{}, total int64, page, pageSize int) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"success":  true,
		"data":     data,
		"total":    total,
		"page":     page,
		"pageSize": pageSize,
	})
}

// parsePagination reads page and perPage (or the older pageSize) query
// params, falling back to the model's list_per_page.
func parsePagination(c echo.Context, defaultSize int) (int, int) {
	page := 1
	if p, err := strconv.Atoi(c.QueryParam("page")); err == nil && p > 0 {
		page = p
	}
	pageSize := defaultSize
	raw := c.QueryParam("perPage")
	if raw == "" {
		raw = c.QueryParam("pageSize")
	}
	if ps, err := strconv.Atoi(raw); err == nil && ps > 0 && ps <= maxPageSize {
		pageSize = ps
	}
	return page, pageSize
}

func parseIDParam(c echo.Context, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.New("invalid id")
	}
	return id, nil
}

func handleValidationError(c echo.Context, err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		fields := make(map[string]string, len(verrs))
		for _, fe := range verrs {
			fields[strings.ToLower(fe.Field())] = fe.Tag()
		}
		return fail(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request parameters", fields)
	}
	return fail(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error(), nil)
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`)

// searchLike adds a case insensitive substring match over the columns.
// Wildcards typed by the user match literally.
func searchLike(db *gorm.DB, q string, columns ...string) *gorm.DB {
	if q == "" || len(columns) == 0 {
		return db
	}
	var clauses []string
	var args []interface{}
	if strings.EqualFold(db.Dialector.Name(), "postgres") {
		pattern := "%" + likeEscaper.Replace(q) + "%"
		for _, col := range columns {
			clauses = append(clauses, col+` ILIKE ? ESCAPE '\'`)
			args = append(args, pattern)
		}
	} else {
		pattern := "%" + likeEscaper.Replace(strings.ToLower(q)) + "%"
		for _, col := range columns {
			clauses = append(clauses, "LOWER("+col+`) LIKE ? ESCAPE '\'`)
			args = append(args, pattern)
		}
	}
	return db.Where(strings.Join(clauses, " OR "), args...)
}

// isUniqueViolation reports a write rejected by a unique index.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		return liteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			liteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}

// logOperation records an admin change in sys_opr_log.
func logOperation(c echo.Context, action, objectType string, objectID interface{}, desc string) {
	oprName := "anonymous"
	if opr := webserver.GetOperator(c); opr != nil {
		oprName = opr.Username
	}
	entry := domain.SysOprLog{
		ID:         common.UUIDint64(),
		OprName:    oprName,
		OprIp:      c.RealIP(),
		OptAction:  action,
		ObjectType: objectType,
		ObjectId:   toString(objectID),
		OptDesc:    desc,
		OptTime:    time.Now(),
	}
	if err := GetDB(c).Create(&entry).Error; err != nil {
		zap.L().Error("failed to write operator log", zap.String("action", action), zap.Error(err))
	}
}

func toString(v interface{}) string {
	switch val := v.(type) {
	case string:
		return val
	case int64:
		return strconv.FormatInt(val, 10)
	case []int64:
		parts := make([]string, 0, len(val))
		for _, id := range val {
			parts = append(parts, strconv.FormatInt(id, 10))
		}
		return strings.Join(parts, ",")
	default:
		return ""
	}
}
