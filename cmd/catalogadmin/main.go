package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/bbluechip/catalogadmin/config"
	"github.com/bbluechip/catalogadmin/internal/adminapi"
	"github.com/bbluechip/catalogadmin/internal/app"
	"github.com/bbluechip/catalogadmin/internal/webserver"
)

var (
	version = "develop"

	cfgFile string
	track   bool
)

var rootCmd = &cobra.Command{
	Use:           "catalogadmin",
	Short:         "Product catalog back office",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return serve(cmd.Context())
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the admin api server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return serve(cmd.Context())
	},
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update database tables",
	RunE: func(cmd *cobra.Command, args []string) error {
		application, err := openDB()
		if err != nil {
			return err
		}
		defer application.Release()
		return application.MigrateDB(track)
	},
}

var initdbCmd = &cobra.Command{
	Use:   "initdb",
	Short: "Drop every table and recreate an empty database",
	RunE: func(cmd *cobra.Command, args []string) error {
		application, err := openDB()
		if err != nil {
			return err
		}
		defer application.Release()
		application.InitDb()
		zap.S().Info("database initialized")
		return nil
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(version)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (yaml)")
	migrateCmd.Flags().BoolVar(&track, "track", false, "log migration statements")
	rootCmd.AddCommand(serveCmd, migrateCmd, initdbCmd, versionCmd)
}

func setup() (*app.Application, error) {
	cfg, err := config.LoadConfig(cfgFile)
	if err != nil {
		return nil, err
	}
	application := app.NewApplication(cfg)
	application.Init(cfg)
	return application, nil
}

// openDB connects to the database without starting jobs or seeding.
func openDB() (*app.Application, error) {
	cfg, err := config.LoadConfig(cfgFile)
	if err != nil {
		return nil, err
	}
	application := app.NewApplication(cfg)
	if err := application.Open(cfg); err != nil {
		return nil, err
	}
	return application, nil
}

func serve(ctx context.Context) error {
	application, err := setup()
	if err != nil {
		return err
	}
	defer application.Release()

	cfg := application.Config()
	webserver.Init(cfg)
	adminapi.Init(application)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return webserver.Listen(gctx)
	})
	g.Go(func() error {
		return application.RunScheduler(gctx)
	})
	return g.Wait()
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
