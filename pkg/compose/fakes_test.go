package compose

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/3leaps/ugcreel/pkg/job"
	"github.com/3leaps/ugcreel/pkg/objectstore"
	"github.com/3leaps/ugcreel/pkg/provider"
)

// memStore is an in-memory job.Store that records every terminal write.
type memStore struct {
	mu        sync.Mutex
	jobs      map[string]job.Job
	updates   []job.Update
	updateErr []error
}

func newMemStore(jobs ...*job.Job) *memStore {
	s := &memStore{jobs: map[string]job.Job{}}
	for _, j := range jobs {
		s.jobs[j.ID] = *j
	}
	return s
}

func (s *memStore) Create(ctx context.Context, j *job.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[j.ID] = *j
	return nil
}

func (s *memStore) Get(ctx context.Context, id string) (*job.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", job.ErrNotFound, id)
	}
	return &j, nil
}

func (s *memStore) Update(ctx context.Context, id string, u job.Update) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	s.updates = append(s.updates, u)
	if len(s.updateErr) > 0 {
		err := s.updateErr[0]
		s.updateErr = s.updateErr[1:]
		if err != nil {
			return err
		}
	}
	if err := u.Validate(); err != nil {
		return err
	}
	j, ok := s.jobs[id]
	if !ok {
		return fmt.Errorf("%w: %s", job.ErrNotFound, id)
	}
	j.Status, j.OutputReference, j.ErrorMessage = u.Status, u.OutputReference, u.ErrorMessage
	s.jobs[id] = j
	return nil
}

func (s *memStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.jobs[id]; !ok {
		return fmt.Errorf("%w: %s", job.ErrNotFound, id)
	}
	delete(s.jobs, id)
	return nil
}

func (s *memStore) List(ctx context.Context, opts job.ListOptions) ([]job.Job, error) {
	return nil, nil
}

func (s *memStore) Ping(ctx context.Context) error { return nil }
func (s *memStore) Close() error                   { return nil }

func (s *memStore) job(id string) job.Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.jobs[id]
}

func (s *memStore) writes() []job.Update {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]job.Update(nil), s.updates...)
}

// mapResolver resolves to https://storage.test/<bucket>/<path> unless the
// path is listed in fail.
type mapResolver struct {
	fail map[string]bool
}

func (r *mapResolver) ResolvePublicURL(ctx context.Context, bucket, path string) (string, error) {
	if r.fail[path] {
		return "", objectstore.Unresolvable(bucket, path, objectstore.ErrObjectNotFound)
	}
	return "https://storage.test/" + bucket + "/" + path, nil
}

type createCall struct {
	In provider.AssetInput
}

type combineCall struct {
	Assets  []provider.RemoteAsset
	Overlay *provider.CaptionOverlay
}

// fakeProvider assigns ids asset-1, asset-2, ... and reports each asset
// ready after readyAfter polls unless overridden per id.
type fakeProvider struct {
	mu sync.Mutex

	creates  []createCall
	combines []combineCall
	gets     map[string]int

	createErrs map[int]error // keyed by 1-based create call
	readyAfter int
	stuck      map[string]bool
	errored    map[string]bool
	blockGet   bool
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{
		gets:       map[string]int{},
		createErrs: map[int]error{},
		readyAfter: 2,
		stuck:      map[string]bool{},
		errored:    map[string]bool{},
	}
}

func (p *fakeProvider) CreateAsset(ctx context.Context, in provider.AssetInput) (*provider.RemoteAsset, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.creates = append(p.creates, createCall{In: in})
	n := len(p.creates)
	if err := p.createErrs[n]; err != nil {
		return nil, err
	}
	return &provider.RemoteAsset{ID: fmt.Sprintf("asset-%d", n), Status: provider.AssetPreparing}, nil
}

func (p *fakeProvider) CreateCombinedAsset(ctx context.Context, assets []provider.RemoteAsset, overlay *provider.CaptionOverlay) (*provider.RemoteAsset, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.combines = append(p.combines, combineCall{Assets: append([]provider.RemoteAsset(nil), assets...), Overlay: overlay})
	for _, a := range assets {
		if a.Status != provider.AssetReady {
			return nil, errors.New("combine input not ready")
		}
	}
	return &provider.RemoteAsset{ID: "combined", Status: provider.AssetPreparing}, nil
}

func (p *fakeProvider) GetAsset(ctx context.Context, id string) (*provider.RemoteAsset, error) {
	if p.blockGet {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.gets[id]++
	a := &provider.RemoteAsset{ID: id, Status: provider.AssetPreparing}
	switch {
	case p.errored[id]:
		a.Status = provider.AssetErrored
		a.ErrorReason = "unsupported codec"
	case p.stuck[id]:
	case p.gets[id] >= p.readyAfter:
		a.Status = provider.AssetReady
		a.OutputHandle = "pb-" + id
	}
	return a, nil
}

func (p *fakeProvider) createCalls() []createCall {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]createCall(nil), p.creates...)
}

func (p *fakeProvider) combineCalls() []combineCall {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]combineCall(nil), p.combines...)
}

func (p *fakeProvider) getCalls(id string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.gets[id]
}

func providerHTTPError(status int, body string) error {
	return &provider.RemoteProviderError{
		Op:         "CreateAsset",
		Provider:   "mux",
		StatusCode: status,
		Body:       body,
		Err:        fmt.Errorf("%s", http.StatusText(status)),
	}
}

func newJob(id, demo, caption string, pos job.CaptionPosition) *job.Job {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return &job.Job{
		ID:              id,
		AvatarPath:      "u1/avatar.mp4",
		DemoPath:        demo,
		CaptionText:     caption,
		CaptionPosition: pos,
		CaptionFont:     job.FontSans,
		Status:          job.StatusProcessing,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}
