package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/qs3c/chart_editor_server/config"
	"github.com/qs3c/chart_editor_server/internal/database"
	"github.com/qs3c/chart_editor_server/internal/pkg/logger"
)

// app 子命令共享的依赖
type app struct {
	cfg    *config.Config
	db     *gorm.DB
	logger *zap.Logger
}

// opener 按配置路径打开依赖，测试时替换
type opener func(configPath string) (*app, error)

func openApp(configPath string) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	zl, err := logger.New(cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	db, err := database.New(&cfg.Database, cfg.Server.Mode)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	return &app{cfg: cfg, db: db, logger: zl}, nil
}

func newRootCmd(open opener) *cobra.Command {
	var configPath string
	var a *app

	root := &cobra.Command{
		Use:           "admin",
		Short:         "Chart editor maintenance commands",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			a, err = open(configPath)
			return err
		},
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", defaultConfigPath(), "config file")

	current := func() *app { return a }
	root.AddCommand(
		newMigrateCmd(current),
		newSeedCmd(current),
		newSetTierCmd(current),
		newExportCmd(current),
		newActivityCmd(current),
		newPruneActivityCmd(current),
	)
	return root
}

func defaultConfigPath() string {
	if p := os.Getenv("CONFIG_PATH"); p != "" {
		return p
	}
	return "config.yaml"
}

func main() {
	if err := newRootCmd(openApp).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
