package adminapi

import (
	"github.com/labstack/echo/v4"

	"github.com/bbluechip/catalogadmin/internal/webserver"
)

func registerSiteRoutes() {
	webserver.ApiGET("/site", getSiteDescriptor)
}

// getSiteDescriptor returns titles, locale and every registered model
// admin so the front end can render lists and forms.
func getSiteDescriptor(c echo.Context) error {
	return ok(c, getSite().Describe())
}
