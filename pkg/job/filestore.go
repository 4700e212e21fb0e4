package job

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

// FileStore persists jobs as JSON documents on disk.
//
// Directory layout:
//
//	<root>/<id>/job.json
//
// Writes go through a temp file and rename so readers never observe a
// partially written record.
type FileStore struct {
	root string
	mu   sync.Mutex
	now  func() time.Time
}

var _ Store = (*FileStore)(nil)

// NewFileStore creates the root directory if needed.
func NewFileStore(root string) (*FileStore, error) {
	s := &FileStore{root: strings.TrimSpace(root), now: func() time.Time { return time.Now().UTC() }}
	if err := s.ensureRoot(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *FileStore) RootDir() string {
	return s.root
}

func (s *FileStore) jobDir(id string) string {
	return filepath.Join(s.root, id)
}

func (s *FileStore) jobPath(id string) string {
	return filepath.Join(s.jobDir(id), "job.json")
}

func (s *FileStore) ensureRoot() error {
	if s.root == "" {
		return fmt.Errorf("job store root dir is empty")
	}
	// #nosec G301 -- data directories use 0755 for multi-user access compatibility
	return os.MkdirAll(s.root, 0755)
}

func (s *FileStore) Create(ctx context.Context, j *Job) error {
	if err := j.Validate(); err != nil {
		return err
	}
	if err := checkID(j.ID); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := os.Stat(s.jobPath(j.ID)); err == nil {
		return fmt.Errorf("%w: job %s already exists", ErrInvalidJob, j.ID)
	}
	return s.write(j)
}

func (s *FileStore) Get(ctx context.Context, id string) (*Job, error) {
	if err := checkID(id); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read(id)
}

func (s *FileStore) Update(ctx context.Context, id string, u Update) error {
	if err := u.Validate(); err != nil {
		return err
	}
	if err := checkID(id); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	j, err := s.read(id)
	if err != nil {
		return err
	}
	u.apply(j, s.now())
	return s.write(j)
}

func (s *FileStore) Delete(ctx context.Context, id string) error {
	if err := checkID(id); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := os.Stat(s.jobPath(id)); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return fmt.Errorf("stat job: %w", err)
	}
	if err := os.RemoveAll(s.jobDir(id)); err != nil {
		return fmt.Errorf("delete job: %w", err)
	}
	return nil
}

func (s *FileStore) List(ctx context.Context, opts ListOptions) ([]Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := os.ReadDir(s.root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read jobs root: %w", err)
	}

	out := make([]Job, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		j, err := s.read(entry.Name())
		if err != nil {
			continue
		}
		if opts.Status != "" && j.Status != opts.Status {
			continue
		}
		out = append(out, *j)
	}

	sort.Slice(out, func(i, k int) bool {
		return out[i].CreatedAt.After(out[k].CreatedAt)
	})
	return applyLimit(out, opts), nil
}

func (s *FileStore) Ping(ctx context.Context) error {
	info, err := os.Stat(s.root)
	if err != nil {
		return fmt.Errorf("job store root: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("job store root %s is not a directory", s.root)
	}
	return nil
}

func (s *FileStore) Close() error {
	return nil
}

func (s *FileStore) read(id string) (*Job, error) {
	b, err := os.ReadFile(s.jobPath(id))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return nil, err
	}

	trimmed := strings.TrimSpace(string(b))
	if trimmed == "" {
		return nil, fmt.Errorf("job.json is empty")
	}

	var j Job
	if err := json.Unmarshal([]byte(trimmed), &j); err != nil {
		return nil, fmt.Errorf("parse job.json: %w", err)
	}
	return &j, nil
}

func (s *FileStore) write(j *Job) error {
	dir := s.jobDir(j.ID)
	// #nosec G301 -- data directories use 0755 for multi-user access compatibility
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create job dir: %w", err)
	}

	b, err := json.MarshalIndent(j, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal job record: %w", err)
	}
	b = append(b, '\n')

	tmp, err := os.CreateTemp(dir, "job.json.tmp.*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(b); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write temp job file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp job file: %w", err)
	}
	if err := os.Rename(tmpName, s.jobPath(j.ID)); err != nil {
		return fmt.Errorf("rename job file: %w", err)
	}
	return nil
}

// checkID rejects ids that would escape the store root.
func checkID(id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return fmt.Errorf("%w: id is required", ErrInvalidJob)
	}
	if strings.ContainsAny(id, `/\`) || id == "." || id == ".." {
		return fmt.Errorf("%w: id %q contains path separators", ErrInvalidJob, id)
	}
	return nil
}
