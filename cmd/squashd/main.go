package main

import (
	"context"
	"strings"

	"github.com/joho/godotenv"

	"squashd/internal/app"
	"squashd/pkg/banner"
	"squashd/pkg/config"
	"squashd/pkg/logger"
	"squashd/pkg/shutdown"
)

// build metadata - set via ldflags during build/release
var (
	version = "dev"
	commit  = "none"
)

func main() {
	_ = godotenv.Load(".env")
	flags := config.ParseConfigFlags()

	cfgPath := config.ResolveConfigPath(flags.Config, flags.Set["config"])
	cfg, envUsed, err := config.LoadEffective(cfgPath)
	if err != nil {
		logger.Init()
		shutdown.Abort("failed to load config", err, "")
	}
	flags.Apply(cfg)

	logger.InitWithLevel(cfg.Logging.Level, cfg.Logging.Format)

	srcs := []string{}
	if len(flags.Set) > 0 {
		srcs = append(srcs, "flags")
	}
	if envUsed {
		srcs = append(srcs, "env")
	}
	if _, err := config.Load(cfgPath); err == nil {
		srcs = append(srcs, "config")
	}
	verStr := version
	if commit != "none" {
		verStr = verStr + " (" + commit + ")"
	}
	banner.Print(cfg, strings.Join(srcs, ", "), verStr)

	ctx, cancel := shutdown.SetupSignalHandler(context.Background())
	defer cancel()

	if err := app.Run(ctx, cfg); err != nil {
		shutdown.Abort("daemon failed", err, cfg.Storage.DBPath)
	}
	logger.Info("shutdown_complete")
}
