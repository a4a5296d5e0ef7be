package app

import (
	"fmt"
	"os"
	"runtime/debug"
	"time"
	_ "time/tzdata"

	"github.com/asaskevich/EventBus"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/bbluechip/catalogadmin/config"
	"github.com/bbluechip/catalogadmin/internal/admin"
	"github.com/bbluechip/catalogadmin/internal/catalog"
	"github.com/bbluechip/catalogadmin/internal/domain"
	"github.com/bbluechip/catalogadmin/pkg/metrics"
)

type Application struct {
	appConfig *config.AppConfig
	gormDB    *gorm.DB
	sched     *cron.Cron
	bus       EventBus.Bus
	facade    *catalog.Facade
	site      *admin.Site
}

// Ensure Application implements all interfaces
var (
	_ DBProvider        = (*Application)(nil)
	_ ConfigProvider    = (*Application)(nil)
	_ SchedulerProvider = (*Application)(nil)
	_ CatalogProvider   = (*Application)(nil)
	_ AppContext        = (*Application)(nil)
)

func NewApplication(appConfig *config.AppConfig) *Application {
	return &Application{appConfig: appConfig}
}

func (a *Application) Config() *config.AppConfig {
	return a.appConfig
}

func (a *Application) DB() *gorm.DB {
	return a.gormDB
}

// OverrideDB replaces the application's database handle (used in tests).
func (a *Application) OverrideDB(db *gorm.DB) {
	a.gormDB = db
}

func (a *Application) Catalog() *catalog.Facade {
	return a.facade
}

func (a *Application) Site() *admin.Site {
	return a.site
}

// Scheduler returns the cron scheduler
func (a *Application) Scheduler() *cron.Cron {
	return a.sched
}

// Open sets the timezone, logger and database handle. It is all the
// migrate and initdb commands need.
func (a *Application) Open(cfg *config.AppConfig) error {
	loc, err := time.LoadLocation(cfg.System.Location)
	if err != nil {
		zap.S().Error("timezone config error")
	} else {
		time.Local = loc
	}

	initLogger(cfg)

	if cfg.Database.Type == "" {
		cfg.Database.Type = "postgres"
	}
	db, err := openDatabase(cfg.Database, cfg.System.Workdir)
	if err != nil {
		return fmt.Errorf("open %s database: %w", cfg.Database.Type, err)
	}
	a.gormDB = db
	zap.S().Infof("Database connection successful, type: %s", cfg.Database.Type)
	return nil
}

// Init prepares everything the server needs. The scheduler is built here
// but only runs under RunScheduler.
func (a *Application) Init(cfg *config.AppConfig) {
	if err := a.Open(cfg); err != nil {
		zap.S().Errorf("database connection failed: %s", err.Error())
		panic(err)
	}

	// Initialize metrics with workdir convention
	if err := metrics.InitMetrics(cfg.System.Workdir); err != nil {
		zap.S().Warn("Failed to initialize metrics:", err)
	}

	if err := a.MigrateDB(false); err != nil {
		zap.S().Errorf("database migration failed: %v", err)
	}
	a.checkSuper()

	a.InitCatalog()
	a.initJob()
}

// InitCatalog wires the facade, its event bus and the admin registry on top
// of the current database handle.
func (a *Application) InitCatalog() {
	a.bus = EventBus.New()
	if err := catalog.SubscribeMetrics(a.bus); err != nil {
		zap.L().Error("subscribe catalog metrics", zap.Error(err))
	}
	a.facade = catalog.NewFacade(
		catalog.NewGormStore(a.gormDB),
		catalog.WithMediaURL(a.appConfig.Admin.MediaURL),
		catalog.WithMessages(catalog.NewMessages(a.appConfig.Admin.Locale)),
		catalog.WithBus(a.bus),
	)
	a.site = admin.NewSite(a.appConfig.Admin, a.facade)
}

func (a *Application) MigrateDB(track bool) (err error) {
	defer func() {
		if err1 := recover(); err1 != nil {
			if os.Getenv("CATALOG_DEBUG_TRACE") != "" {
				debug.PrintStack()
			}
			err2, ok := err1.(error)
			if ok {
				err = err2
				zap.S().Error(err2.Error())
			}
		}
	}()
	db := a.gormDB
	if track {
		db = db.Debug()
	}
	return db.Migrator().AutoMigrate(domain.Tables...)
}

// DropAll drops every table, children before parents.
func (a *Application) DropAll() {
	tables := []interface{}{"product_categories"}
	for i := len(domain.Tables) - 1; i >= 0; i-- {
		tables = append(tables, domain.Tables[i])
	}
	_ = a.gormDB.Migrator().DropTable(tables...)
}

func (a *Application) InitDb() {
	a.DropAll()
	err := a.gormDB.Migrator().AutoMigrate(domain.Tables...)
	if err != nil {
		zap.S().Error(err)
		return
	}
	a.checkSuper()
}

// Release releases application resources
func (a *Application) Release() {
	if a.sched != nil {
		a.sched.Stop()
	}
	_ = metrics.Close()
	_ = zap.L().Sync()
}
