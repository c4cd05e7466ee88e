// Package backup respalda la base con pg_dump y conserva solo los N volcados más recientes.
package backup

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/jhoicas/medstock-api/pkg/logger"
)

const (
	filePrefix = "medstock-"
	fileSuffix = ".dump"
	timeLayout = "20060102-150405"
)

// DumpFunc ejecuta el volcado hacia path.
type DumpFunc func(ctx context.Context, path string) error

// Job volcado programado. Reintenta Attempts veces antes de fallar.
type Job struct {
	Dir      string
	Keep     int
	Attempts int
	Backoff  time.Duration
	dump     DumpFunc
	log      *logger.Logger
	now      func() time.Time
}

// NewJob construye el job con pg_dump (formato custom) contra dsn.
func NewJob(dir string, keep int, pgDumpPath, dsn string, log *logger.Logger) *Job {
	if pgDumpPath == "" {
		pgDumpPath = "pg_dump"
	}
	return NewJobWithDump(dir, keep, PgDump(pgDumpPath, dsn), log)
}

// NewJobWithDump permite inyectar el volcado (tests).
func NewJobWithDump(dir string, keep int, dump DumpFunc, log *logger.Logger) *Job {
	if keep <= 0 {
		keep = 1
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Job{
		Dir:      dir,
		Keep:     keep,
		Attempts: 3,
		Backoff:  5 * time.Second,
		dump:     dump,
		log:      log.Component("backup"),
		now:      time.Now,
	}
}

// PgDump ejecuta pg_dump -Fc. La salida de error del proceso se incluye en el error.
func PgDump(pgDumpPath, dsn string) DumpFunc {
	return func(ctx context.Context, path string) error {
		cmd := exec.CommandContext(ctx, pgDumpPath, "--format=custom", "--no-owner", "--file="+path, "--dbname="+dsn)
		out, err := cmd.CombinedOutput()
		if err != nil {
			return fmt.Errorf("pg_dump: %w: %s", err, strings.TrimSpace(string(out)))
		}
		return nil
	}
}

// Run vuelca a un archivo con marca de tiempo y luego poda los antiguos.
// Un volcado fallido no poda nada.
func (j *Job) Run(ctx context.Context) (string, error) {
	if err := os.MkdirAll(j.Dir, 0o750); err != nil {
		return "", fmt.Errorf("backup: crear directorio: %w", err)
	}
	path := filepath.Join(j.Dir, filePrefix+j.now().UTC().Format(timeLayout)+fileSuffix)

	attempts := max(j.Attempts, 1)
	var err error
	for i := 1; i <= attempts; i++ {
		if err = j.dump(ctx, path); err == nil {
			break
		}
		_ = os.Remove(path)
		j.log.Warn().Err(err).Int("attempt", i).Int("max_attempts", attempts).Msg("volcado fallido")
		if i == attempts {
			return "", fmt.Errorf("backup: %d intentos: %w", attempts, err)
		}
		select {
		case <-ctx.Done():
			return "", errors.Join(err, ctx.Err())
		case <-time.After(j.Backoff):
		}
	}

	removed, err := j.Prune()
	if err != nil {
		return path, err
	}
	j.log.Info().Str("file", path).Int("pruned", len(removed)).Msg("respaldo completado")
	return path, nil
}

// Prune borra los volcados más antiguos dejando Keep. Devuelve los borrados.
func (j *Job) Prune() ([]string, error) {
	entries, err := os.ReadDir(j.Dir)
	if err != nil {
		return nil, fmt.Errorf("backup: leer directorio: %w", err)
	}
	var dumps []string
	for _, e := range entries {
		name := e.Name()
		if e.Type().IsRegular() && strings.HasPrefix(name, filePrefix) && strings.HasSuffix(name, fileSuffix) {
			dumps = append(dumps, name)
		}
	}
	if len(dumps) <= j.Keep {
		return nil, nil
	}
	// El nombre lleva la fecha en orden lexicográfico.
	sort.Sort(sort.Reverse(sort.StringSlice(dumps)))
	var removed []string
	for _, name := range dumps[j.Keep:] {
		path := filepath.Join(j.Dir, name)
		if err := os.Remove(path); err != nil {
			return removed, fmt.Errorf("backup: borrar %s: %w", name, err)
		}
		removed = append(removed, path)
	}
	return removed, nil
}
