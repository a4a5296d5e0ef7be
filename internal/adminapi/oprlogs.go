package adminapi

import (
	"net/http"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/labstack/echo/v4"

	"github.com/bbluechip/catalogadmin/internal/domain"
	"github.com/bbluechip/catalogadmin/internal/webserver"
)

func registerOprLogRoutes() {
	webserver.ApiGET("/system/oprlogs", listOprLogs)
}

// listOprLogs retrieves the admin change history
// @Summary get the operator log list
// @Tags System
// @Param page query int false "Page number"
// @Param perPage query int false "Items per page"
// @Param opr_name query string false "Operator name"
// @Param object_type query string false "Object type"
// @Param since query string false "Start time"
// @Success 200 {object} ListResponse
// @Router /api/v1/system/oprlogs [get]
func listOprLogs(c echo.Context) error {
	page, pageSize := parsePagination(c, 100)

	db := GetDB(c).Model(&domain.SysOprLog{})
	if v := strings.TrimSpace(c.QueryParam("opr_name")); v != "" {
		db = db.Where("opr_name = ?", v)
	}
	if v := strings.TrimSpace(c.QueryParam("object_type")); v != "" {
		db = db.Where("object_type = ?", v)
	}
	if v := strings.TrimSpace(c.QueryParam("object_id")); v != "" {
		db = db.Where("object_id = ?", v)
	}
	if v := strings.TrimSpace(c.QueryParam("since")); v != "" {
		since, err := dateparse.ParseIn(v, time.Local)
		if err != nil {
			return fail(c, http.StatusBadRequest, "INVALID_FILTER", "Invalid since time", nil)
		}
		db = db.Where("opt_time >= ?", since)
	}

	var total int64
	if err := db.Count(&total).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query operator logs", err.Error())
	}

	var logs []domain.SysOprLog
	if err := db.Order("opt_time DESC").Offset((page - 1) * pageSize).Limit(pageSize).Find(&logs).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query operator logs", err.Error())
	}

	return paged(c, logs, total, page, pageSize)
}
