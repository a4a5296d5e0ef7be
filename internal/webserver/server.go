package webserver

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"path"
	"time"

	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"
	"go.uber.org/zap"

	"github.com/bbluechip/catalogadmin/config"
)

const (
	ApiPrefix      = "/api/v1"
	UserContextKey = "user"
	loginPath      = ApiPrefix + "/login"
)

var server *AdminServer

// AdminServer is the echo instance serving the back office api
type AdminServer struct {
	root *echo.Echo
	api  *echo.Group
	cfg  *config.AppConfig
}

// Init builds the process wide server; routes are registered afterwards
// through the Api* helpers.
func Init(cfg *config.AppConfig) {
	server = NewAdminServer(cfg)
}

func NewAdminServer(cfg *config.AppConfig) *AdminServer {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	if cfg.System.Debug {
		e.Logger.SetLevel(log.DEBUG)
	} else {
		e.Logger.SetLevel(log.INFO)
	}
	e.JSONSerializer = &jsoniterSerializer{}
	e.Validator = NewValidator()

	e.Use(middleware.Recover())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:  true,
		LogURI:     true,
		LogStatus:  true,
		LogLatency: true,
		LogError:   true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			fields := []zap.Field{
				zap.String("method", v.Method),
				zap.String("uri", v.URI),
				zap.Int("status", v.Status),
				zap.Duration("latency", v.Latency),
			}
			if v.Error != nil {
				zap.L().Warn("request failed", append(fields, zap.Error(v.Error))...)
				return nil
			}
			zap.L().Debug("request", fields...)
			return nil
		},
	}))
	e.Static("/media", path.Join(cfg.System.Workdir, "media"))

	api := e.Group(ApiPrefix)
	api.Use(echojwt.WithConfig(echojwt.Config{
		Skipper: func(c echo.Context) bool {
			return c.Path() == loginPath
		},
		ContextKey:     UserContextKey,
		ParseTokenFunc: tokenParser(cfg.Web.Secret),
	}))

	return &AdminServer{root: e, api: api, cfg: cfg}
}

// Root returns the echo instance of the current server
func Root() *echo.Echo {
	return server.root
}

func ApiGET(path string, h echo.HandlerFunc, m ...echo.MiddlewareFunc) {
	server.api.GET(path, h, m...)
}

func ApiPOST(path string, h echo.HandlerFunc, m ...echo.MiddlewareFunc) {
	server.api.POST(path, h, m...)
}

func ApiPUT(path string, h echo.HandlerFunc, m ...echo.MiddlewareFunc) {
	server.api.PUT(path, h, m...)
}

func ApiPATCH(path string, h echo.HandlerFunc, m ...echo.MiddlewareFunc) {
	server.api.PATCH(path, h, m...)
}

func ApiDELETE(path string, h echo.HandlerFunc, m ...echo.MiddlewareFunc) {
	server.api.DELETE(path, h, m...)
}

// Listen serves until ctx is cancelled, then shuts down gracefully.
func Listen(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", server.cfg.Web.Host, server.cfg.Web.Port)
	go func() {
		<-ctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.root.Shutdown(sctx); err != nil {
			zap.L().Error("web server shutdown", zap.Error(err))
		}
	}()
	zap.S().Infof("Starting admin web server at %s", addr)
	err := server.root.Start(addr)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}
