package app

import (
	"github.com/robfig/cron/v3"
	"gorm.io/gorm"

	"github.com/bbluechip/catalogadmin/config"
	"github.com/bbluechip/catalogadmin/internal/admin"
	"github.com/bbluechip/catalogadmin/internal/catalog"
)

// DBProvider provides database access
type DBProvider interface {
	DB() *gorm.DB
}

// ConfigProvider provides application configuration
type ConfigProvider interface {
	Config() *config.AppConfig
}

// SchedulerProvider provides task scheduling capability
type SchedulerProvider interface {
	Scheduler() *cron.Cron
}

// CatalogProvider provides the catalog facade and the admin registry built on it
type CatalogProvider interface {
	Catalog() *catalog.Facade
	Site() *admin.Site
}

// AppContext combines all provider interfaces for full application context
// Services should depend on specific providers or this combined interface
type AppContext interface {
	DBProvider
	ConfigProvider
	SchedulerProvider
	CatalogProvider

	// Application lifecycle methods
	MigrateDB(track bool) error
	InitDb()
	DropAll()
}
