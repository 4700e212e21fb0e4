package job

import (
	"context"
	"fmt"
	"strings"
)

// Store reads and writes job records.
//
// Implementations must be safe for concurrent use by independent
// orchestration runs.
type Store interface {
	// Create inserts a new job. The job must validate.
	Create(ctx context.Context, j *Job) error

	// Get returns the job or ErrNotFound.
	Get(ctx context.Context, id string) (*Job, error)

	// Update applies a terminal write or returns ErrNotFound.
	Update(ctx context.Context, id string, u Update) error

	// Delete removes the job or returns ErrNotFound. Remote assets and
	// stored source clips are not touched.
	Delete(ctx context.Context, id string) error

	// List returns jobs newest first.
	List(ctx context.Context, opts ListOptions) ([]Job, error)

	// Ping verifies the backend is reachable.
	Ping(ctx context.Context) error

	// Close releases backend resources.
	Close() error
}

// ListOptions filters List results.
type ListOptions struct {
	// Status restricts results to one status. Empty lists all.
	Status Status

	// Limit caps the number of results. Zero means no limit.
	Limit int
}

// Backend names a Store implementation.
type Backend string

const (
	BackendSQLite Backend = "sqlite"
	BackendFile   Backend = "file"
)

// Config selects and configures a Store backend.
type Config struct {
	Backend Backend

	// Dir is the root directory for the file backend.
	Dir string

	// SQL configures the sqlite/libsql backend.
	SQL SQLConfig
}

// Open constructs the configured Store.
func Open(ctx context.Context, cfg Config) (Store, error) {
	switch Backend(strings.ToLower(string(cfg.Backend))) {
	case BackendFile:
		return NewFileStore(cfg.Dir)
	case BackendSQLite, "":
		return OpenSQL(ctx, cfg.SQL)
	default:
		return nil, fmt.Errorf("unsupported job store backend %q", cfg.Backend)
	}
}

func applyLimit(jobs []Job, opts ListOptions) []Job {
	if opts.Limit > 0 && len(jobs) > opts.Limit {
		return jobs[:opts.Limit]
	}
	return jobs
}
