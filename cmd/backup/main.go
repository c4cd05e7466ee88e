// Command backup vuelca la base PostgreSQL y conserva los últimos BACKUP_KEEP volcados.
// Pensado para ejecutarse desde cron o un CronJob, fuera del proceso del API.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/jhoicas/medstock-api/internal/infrastructure/backup"
	"github.com/jhoicas/medstock-api/pkg/config"
	"github.com/jhoicas/medstock-api/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}
	log := logger.New(logger.Config{Env: cfg.App.Env, Level: cfg.App.LogLevel})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	job := backup.NewJob(cfg.Backup.Dir, cfg.Backup.Keep, cfg.Backup.PgDumpPath, cfg.DB.ConnectionString(), log)
	path, err := job.Run(ctx)
	if err != nil {
		log.Error().Err(err).Str("dir", cfg.Backup.Dir).Msg("respaldo fallido")
		os.Exit(1)
	}
	log.Info().Str("file", path).Msg("respaldo listo")
}
