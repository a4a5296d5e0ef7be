package adminapi

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/bbluechip/catalogadmin/internal/domain"
	"github.com/bbluechip/catalogadmin/internal/webserver"
	"github.com/bbluechip/catalogadmin/pkg/common"
)

const tokenTTL = 12 * time.Hour

type loginPayload struct {
	Username string `json:"username" validate:"required,max=100"`
	Password string `json:"password" validate:"required"`
}

func registerAuthRoutes() {
	webserver.ApiPOST("/login", login)
	webserver.ApiGET("/me", currentOperator)
}

func login(c echo.Context) error {
	var payload loginPayload
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse login parameters", nil)
	}
	payload.Username = strings.TrimSpace(payload.Username)
	if err := c.Validate(&payload); err != nil {
		return handleValidationError(c, err)
	}

	var opr domain.SysOpr
	err := GetDB(c).Where("username = ?", payload.Username).First(&opr).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fail(c, http.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid username or password", nil)
	} else if err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query operator", err.Error())
	}
	if opr.Status != common.ENABLED {
		return fail(c, http.StatusForbidden, "OPERATOR_DISABLED", "Operator account is disabled", nil)
	}
	if !common.CheckPassword(opr.Password, payload.Password) {
		zap.L().Warn("login failed", zap.String("username", opr.Username), zap.String("ip", c.RealIP()))
		return fail(c, http.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid username or password", nil)
	}

	token, err := webserver.CreateToken(appCtx.Config().Web.Secret, opr.Username, opr.Level, tokenTTL)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "TOKEN_ERROR", "Failed to sign token", err.Error())
	}

	now := time.Now()
	if err := GetDB(c).Model(&domain.SysOpr{}).Where("id = ?", opr.ID).Update("last_login", now).Error; err != nil {
		zap.L().Error("update last login", zap.String("username", opr.Username), zap.Error(err))
	}
	opr.LastLogin = now

	return ok(c, map[string]interface{}{
		"token":    token,
		"expires":  now.Add(tokenTTL).Unix(),
		"operator": opr,
	})
}

func currentOperator(c echo.Context) error {
	claims := webserver.GetOperator(c)
	if claims == nil {
		return fail(c, http.StatusUnauthorized, "UNAUTHORIZED", "Missing operator", nil)
	}
	var opr domain.SysOpr
	if err := GetDB(c).Where("username = ?", claims.Username).First(&opr).Error; errors.Is(err, gorm.ErrRecordNotFound) {
		return fail(c, http.StatusNotFound, "OPERATOR_NOT_FOUND", "Operator not found", nil)
	} else if err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query operator", err.Error())
	}
	return ok(c, opr)
}
