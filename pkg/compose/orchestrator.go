// Package compose drives a video job from processing to a terminal state.
//
// One Run is one pass through the state machine:
//
//	LOAD_JOB → RESOLVE_SOURCES → CREATE_PRIMARY_ASSET → AWAIT_PRIMARY_READY
//	  → [CREATE_SECONDARY_ASSET → AWAIT_SECONDARY_READY
//	     → CREATE_COMBINED_ASSET → AWAIT_COMBINED_READY]
//	  → PERSIST_SUCCESS
//
// Any failure after LOAD_JOB short-circuits to PERSIST_FAILURE. The job record
// is not touched until the single terminal write, so re-running a job id is
// safe with respect to reads.
//
// Captions are attached inline when the primary asset is created. The
// combine step never receives an overlay.
package compose

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/3leaps/ugcreel/pkg/job"
	"github.com/3leaps/ugcreel/pkg/objectstore"
	"github.com/3leaps/ugcreel/pkg/poll"
	"github.com/3leaps/ugcreel/pkg/provider"
)

// Default storage buckets used by the editor.
const (
	DefaultAvatarBucket = "aiugcavatars"
	DefaultDemoBucket   = "demo_videos"
)

// DefaultPersistTimeout bounds a terminal write once the run's own context is
// gone.
const DefaultPersistTimeout = 10 * time.Second

// Buckets names the storage buckets holding source clips.
type Buckets struct {
	Avatar string
	Demo   string
}

// DefaultBuckets returns the editor's bucket names.
func DefaultBuckets() Buckets {
	return Buckets{Avatar: DefaultAvatarBucket, Demo: DefaultDemoBucket}
}

// Runner runs one composition. The HTTP trigger and CLI depend on this.
type Runner interface {
	Run(ctx context.Context, jobID string) (*Result, error)
}

// Options configures an Orchestrator.
type Options struct {
	Store    job.Store
	Resolver objectstore.URLResolver
	Client   provider.Client

	// Buckets defaults to DefaultBuckets().
	Buckets Buckets

	// Poll defaults to poll.DefaultConfig().
	Poll poll.Config

	// PersistTimeout defaults to DefaultPersistTimeout.
	PersistTimeout time.Duration

	Logger *zap.Logger
}

// Orchestrator implements Runner. It holds no per-job state and is safe for
// concurrent runs on distinct jobs.
type Orchestrator struct {
	store          job.Store
	resolver       objectstore.URLResolver
	client         provider.Client
	buckets        Buckets
	poll           poll.Config
	persistTimeout time.Duration
	log            *zap.Logger
}

var _ Runner = (*Orchestrator)(nil)

// Result is the outcome of a successful run.
type Result struct {
	JobID           string                 `json:"job_id"`
	OutputReference string                 `json:"output_reference"`
	Assets          []provider.RemoteAsset `json:"assets"`
	Duration        time.Duration          `json:"duration"`
}

// New validates opts and applies defaults.
func New(opts Options) (*Orchestrator, error) {
	if opts.Store == nil {
		return nil, errors.New("compose: job store is required")
	}
	if opts.Resolver == nil {
		return nil, errors.New("compose: url resolver is required")
	}
	if opts.Client == nil {
		return nil, errors.New("compose: provider client is required")
	}

	buckets := opts.Buckets
	defaults := DefaultBuckets()
	if buckets.Avatar == "" {
		buckets.Avatar = defaults.Avatar
	}
	if buckets.Demo == "" {
		buckets.Demo = defaults.Demo
	}

	pollCfg := opts.Poll
	if pollCfg.Interval == 0 && pollCfg.MaxAttempts == 0 {
		pollCfg = poll.DefaultConfig()
	}

	persistTimeout := opts.PersistTimeout
	if persistTimeout <= 0 {
		persistTimeout = DefaultPersistTimeout
	}

	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}

	return &Orchestrator{
		store:          opts.Store,
		resolver:       opts.Resolver,
		client:         opts.Client,
		buckets:        buckets,
		poll:           pollCfg,
		persistTimeout: persistTimeout,
		log:            log,
	}, nil
}

// Run drives jobID to exactly one terminal state.
//
// A missing job returns a *StageError wrapping job.ErrNotFound and performs no
// write. Every other failure is recorded on the job as failed and returned as
// a *StageError. A failed success write is returned as *PersistenceError.
func (o *Orchestrator) Run(ctx context.Context, jobID string) (*Result, error) {
	start := time.Now()
	log := o.log.With(zap.String("job_id", jobID))

	j, err := o.store.Get(ctx, jobID)
	if err != nil {
		log.Warn("Job load failed", zap.Error(err))
		return nil, &StageError{Stage: StageLoadJob, Err: err}
	}

	log.Info("Composition started",
		zap.Bool("has_demo", j.HasDemo()),
		zap.Bool("has_caption", j.CaptionText != ""))

	res, err := o.compose(ctx, j, log)
	if err != nil {
		log.Warn("Composition failed", zap.String("stage", string(FailedStage(err))), zap.Error(err))
		o.persistFailure(ctx, j.ID, err, log)
		return nil, err
	}

	if err := o.persist(ctx, j.ID, job.Completed(res.OutputReference)); err != nil {
		perr := &PersistenceError{JobID: j.ID, Status: job.StatusCompleted, Err: err}
		log.Error("Terminal write failed; job left in processing",
			zap.String("stage", string(StagePersistSuccess)),
			zap.String("output_reference", res.OutputReference),
			zap.Error(err))
		o.persistFailure(ctx, j.ID, &StageError{Stage: StagePersistSuccess, Err: err}, log)
		return nil, perr
	}

	res.Duration = time.Since(start)
	log.Info("Composition completed",
		zap.String("output_reference", res.OutputReference),
		zap.Int("assets", len(res.Assets)),
		zap.Duration("duration", res.Duration))
	return res, nil
}

func (o *Orchestrator) compose(ctx context.Context, j *job.Job, log *zap.Logger) (*Result, error) {
	avatarURL, err := o.resolver.ResolvePublicURL(ctx, o.buckets.Avatar, j.AvatarPath)
	if err != nil {
		return nil, &StageError{Stage: StageResolveSources, Err: err}
	}
	var demoURL string
	if j.HasDemo() {
		demoURL, err = o.resolver.ResolvePublicURL(ctx, o.buckets.Demo, j.DemoPath)
		if err != nil {
			return nil, &StageError{Stage: StageResolveSources, Err: err}
		}
	}

	overlay := provider.NewCaptionOverlay(j.CaptionText, provider.Anchor(j.CaptionPosition), j.CaptionFont.Family())
	primary, err := o.createAndAwait(ctx, provider.AssetInput{SourceURL: avatarURL, Overlay: overlay},
		StageCreatePrimary, StageAwaitPrimary, log)
	if err != nil {
		return nil, err
	}

	res := &Result{JobID: j.ID, Assets: []provider.RemoteAsset{*primary}}
	final, finalStage := primary, StageAwaitPrimary

	if demoURL != "" {
		secondary, err := o.createAndAwait(ctx, provider.AssetInput{SourceURL: demoURL},
			StageCreateSecondary, StageAwaitSecondary, log)
		if err != nil {
			return nil, err
		}
		res.Assets = append(res.Assets, *secondary)

		combined, err := o.client.CreateCombinedAsset(ctx, []provider.RemoteAsset{*primary, *secondary}, nil)
		if err != nil {
			return nil, &StageError{Stage: StageCreateCombined, Err: err}
		}
		log.Info("Combined asset created", zap.String("remote_id", combined.ID))

		combined, err = provider.AwaitReady(ctx, o.client, combined.ID, o.poll)
		if err != nil {
			return nil, &StageError{Stage: StageAwaitCombined, Err: err}
		}
		res.Assets = append(res.Assets, *combined)
		final, finalStage = combined, StageAwaitCombined
	}

	if final.OutputHandle == "" {
		return nil, &StageError{Stage: finalStage, Err: fmt.Errorf("asset %s is ready but has no output handle", final.ID)}
	}
	res.OutputReference = final.OutputHandle
	return res, nil
}

func (o *Orchestrator) createAndAwait(ctx context.Context, in provider.AssetInput, createStage, awaitStage Stage, log *zap.Logger) (*provider.RemoteAsset, error) {
	created, err := o.client.CreateAsset(ctx, in)
	if err != nil {
		return nil, &StageError{Stage: createStage, Err: err}
	}
	log.Info("Asset created",
		zap.String("stage", string(createStage)),
		zap.String("remote_id", created.ID),
		zap.Bool("overlay", in.Overlay != nil))

	ready, err := provider.AwaitReady(ctx, o.client, created.ID, o.poll)
	if err != nil {
		return nil, &StageError{Stage: awaitStage, Err: err}
	}
	return ready, nil
}

// persist performs a terminal write on a context detached from ctx's
// cancellation so an abandoned request still leaves a terminal job.
func (o *Orchestrator) persist(ctx context.Context, jobID string, u job.Update) error {
	wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), o.persistTimeout)
	defer cancel()
	return o.store.Update(wctx, jobID, u)
}

func (o *Orchestrator) persistFailure(ctx context.Context, jobID string, cause error, log *zap.Logger) {
	if err := o.persist(ctx, jobID, job.Failed(cause.Error())); err != nil {
		perr := &PersistenceError{JobID: jobID, Status: job.StatusFailed, Cause: cause, Err: err}
		log.Error("Terminal write failed; job left in processing",
			zap.String("stage", string(StagePersistFailure)),
			zap.NamedError("cause", cause),
			zap.Error(perr))
	}
}
