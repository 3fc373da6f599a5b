package migrations

import (
	"context"
	"fmt"
	"io/fs"
	"slices"
	"strings"

	resources "github.com/goliatone/go-resources"
)

const (
	DialectPostgres = "postgres"
	DialectSQLite   = "sqlite"

	// DefaultSourceLabel tags resource migrations inside a shared
	// persistence client.
	DefaultSourceLabel = "go-resources"

	rootDir = "data/sql/migrations"
)

// FilesystemSpec is one dialect's migration directory.
type FilesystemSpec struct {
	Dialect string
	Path    string
	FS      fs.FS
}

// Registration describes what Register handed to the callback.
type Registration struct {
	SourceLabel string
	Dialects    []string
	Filesystems []FilesystemSpec
}

type RegisterFunc func(ctx context.Context, dialect string, sourceLabel string, fsys fs.FS) error

type Option func(*Registration)

func WithSourceLabel(label string) Option {
	return func(r *Registration) {
		if label = strings.TrimSpace(label); label != "" {
			r.SourceLabel = label
		}
	}
}

// WithValidationTargets restricts registration to the named dialects.
func WithValidationTargets(dialects ...string) Option {
	return func(r *Registration) {
		if normalized := normalizeDialects(dialects); len(normalized) > 0 {
			r.Dialects = normalized
		}
	}
}

// WithFilesystems replaces the embedded schema, mostly for tests.
func WithFilesystems(filesystems ...FilesystemSpec) Option {
	return func(r *Registration) {
		kept := make([]FilesystemSpec, 0, len(filesystems))
		for _, spec := range filesystems {
			spec.Dialect = normalizeDialect(spec.Dialect)
			if spec.Dialect == "" || spec.FS == nil {
				continue
			}
			kept = append(kept, spec)
		}
		if len(kept) > 0 {
			r.Filesystems = kept
		}
	}
}

// Filesystems resolves the postgres and sqlite migration directories from
// root, defaulting to the embedded tree. Both dialects must ship the same
// set of paired up/down files.
func Filesystems(root ...fs.FS) ([]FilesystemSpec, error) {
	source := resources.GetMigrationsFS()
	if len(root) > 0 && root[0] != nil {
		source = root[0]
	}
	postgresFS, err := fs.Sub(source, rootDir)
	if err != nil {
		return nil, fmt.Errorf("migrations: resolve %s: %w", rootDir, err)
	}
	sqliteFS, err := fs.Sub(postgresFS, DialectSQLite)
	if err != nil {
		return nil, fmt.Errorf("migrations: resolve sqlite directory: %w", err)
	}
	specs := []FilesystemSpec{
		{Dialect: DialectPostgres, Path: rootDir, FS: postgresFS},
		{Dialect: DialectSQLite, Path: rootDir + "/" + DialectSQLite, FS: sqliteFS},
	}

	var reference []string
	for _, spec := range specs {
		names, err := migrationNames(spec)
		if err != nil {
			return nil, err
		}
		if reference == nil {
			reference = names
			continue
		}
		if !slices.Equal(reference, names) {
			return nil, fmt.Errorf("migrations: %s set %v differs from %v", spec.Dialect, names, reference)
		}
	}
	return specs, nil
}

// Register hands each selected dialect filesystem to register.
func Register(ctx context.Context, register RegisterFunc, opts ...Option) (Registration, error) {
	reg := Registration{
		SourceLabel: DefaultSourceLabel,
		Dialects:    []string{DialectPostgres, DialectSQLite},
	}
	if register == nil {
		return reg, fmt.Errorf("migrations: register function is required")
	}
	filesystems, err := Filesystems()
	if err != nil {
		return reg, err
	}
	reg.Filesystems = filesystems
	for _, opt := range opts {
		if opt != nil {
			opt(&reg)
		}
	}

	for _, spec := range reg.Filesystems {
		if !slices.Contains(reg.Dialects, spec.Dialect) {
			continue
		}
		if err := register(ctx, spec.Dialect, reg.SourceLabel, spec.FS); err != nil {
			return reg, fmt.Errorf("migrations: register %s from %s: %w", spec.Dialect, spec.Path, err)
		}
	}
	return reg, nil
}

// ForDialect adapts a single-dialect callback such as a persistence
// client's RegisterSQLMigrations.
func ForDialect(dialect string, register func(fs.FS)) RegisterFunc {
	target := normalizeDialect(dialect)
	return func(_ context.Context, candidate string, _ string, fsys fs.FS) error {
		if register == nil {
			return fmt.Errorf("migrations: %s callback is required", target)
		}
		if candidate == target {
			register(fsys)
		}
		return nil
	}
}

// migrationNames lists the version-prefixed names in spec, failing when an
// up file has no matching down file or the directory is empty.
func migrationNames(spec FilesystemSpec) ([]string, error) {
	ups, err := fs.Glob(spec.FS, "*.up.sql")
	if err != nil {
		return nil, fmt.Errorf("migrations: scan %s: %w", spec.Path, err)
	}
	if len(ups) == 0 {
		return nil, fmt.Errorf("migrations: %s has no up migrations", spec.Path)
	}
	names := make([]string, 0, len(ups))
	for _, up := range ups {
		name := strings.TrimSuffix(up, ".up.sql")
		if _, err := fs.Stat(spec.FS, name+".down.sql"); err != nil {
			return nil, fmt.Errorf("migrations: %s/%s has no down migration", spec.Path, name)
		}
		names = append(names, name)
	}
	slices.Sort(names)
	return names, nil
}

func normalizeDialects(dialects []string) []string {
	out := make([]string, 0, len(dialects))
	for _, dialect := range dialects {
		if dialect = normalizeDialect(dialect); dialect != "" && !slices.Contains(out, dialect) {
			out = append(out, dialect)
		}
	}
	return out
}

func normalizeDialect(dialect string) string {
	return strings.ToLower(strings.TrimSpace(dialect))
}
