package capture

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/medkeeper/internal/client/models"
	"github.com/dmitrijs2005/medkeeper/internal/common"
	"github.com/dmitrijs2005/medkeeper/internal/logging"
)

type State string

const (
	StateIdle              State = "idle"
	StateAwaitingCapture   State = "awaiting-capture"
	StateCaptureDegraded   State = "capture-degraded"
	StateCaptured          State = "captured"
	StateRecognizing       State = "recognizing"
	StateRecognized        State = "recognized"
	StateRecognitionFailed State = "recognition-failed"
)

// Source selects the preferred input.
type Source int

const (
	SourceCamera Source = iota
	SourceGallery
)

const (
	DefaultRecognitionTimeout = 45 * time.Second
	DefaultResultTTL          = 10 * time.Second
)

type Camera interface {
	Capture(ctx context.Context) (models.Image, error)
}

type Picker interface {
	Pick(ctx context.Context) (models.Image, error)
}

type Recognizer interface {
	Recognize(ctx context.Context, img models.Image, language string) (models.RecognitionResult, error)
}

// Catalog backfills display fields of a recognized candidate.
type Catalog interface {
	SearchCatalog(ctx context.Context, query, language string) ([]models.CatalogItem, error)
}

// Gate is the admission check consulted before capture and before commit.
type Gate interface {
	CheckQuota(ctx context.Context) error
	Admit(ctx context.Context, c models.Candidate) error
}

type Creator interface {
	Create(ctx context.Context, m models.NewMedication) (models.Medication, error)
}

// Result is what the capture surface displays.
type Result struct {
	State             State
	Candidate         models.Candidate
	Medication        *models.Medication
	NeedsConfirmation bool
	Degraded          bool
	Retryable         bool
	Err               error
}

type Deps struct {
	Camera     Camera
	Picker     Picker
	Recognizer Recognizer
	Catalog    Catalog
	Gate       Gate
	Creator    Creator
	Log        logging.Logger
}

type Options struct {
	RecognitionTimeout time.Duration
	ResultTTL          time.Duration
	// Language returns the current display language.
	Language func() string
	// OnStateChange, if set, observes every transition.
	OnStateChange func(State)
}

type Pipeline struct {
	d    Deps
	opts Options

	afterFunc func(time.Duration, func()) (stop func() bool)

	mu        sync.Mutex
	state     State
	busy      bool
	surface   uint64 // bumped by Close
	shown     uint64 // bumped per displayed result
	result    *Result
	pending   *models.Candidate
	stopClear func() bool
}

func New(d Deps, opts Options) *Pipeline {
	if opts.RecognitionTimeout <= 0 {
		opts.RecognitionTimeout = DefaultRecognitionTimeout
	}
	if opts.ResultTTL <= 0 {
		opts.ResultTTL = DefaultResultTTL
	}
	if opts.Language == nil {
		opts.Language = func() string { return common.LanguageEnglish }
	}
	if d.Log == nil {
		d.Log = logging.NewNop()
	}
	return &Pipeline{
		d:     d,
		opts:  opts,
		state: StateIdle,
		afterFunc: func(ttl time.Duration, f func()) func() bool {
			return time.AfterFunc(ttl, f).Stop
		},
	}
}

func (p *Pipeline) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Current returns the displayed result, or nil once it has been cleared.
func (p *Pipeline) Current() *Result {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.result == nil {
		return nil
	}
	r := *p.result
	return &r
}

// Pending returns the candidate awaiting confirmation, if any.
func (p *Pipeline) Pending() *models.Candidate {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.pending == nil {
		return nil
	}
	c := *p.pending
	return &c
}

// Run executes one capture. Only one run may be in flight.
func (p *Pipeline) Run(ctx context.Context, src Source) (Result, error) {
	surface, err := p.begin()
	if err != nil {
		return Result{State: p.State(), Err: err}, err
	}
	defer p.end()

	if err := p.d.Gate.CheckQuota(ctx); err != nil {
		p.setState(StateIdle)
		return Result{State: StateIdle, Err: err}, err
	}

	p.setState(StateAwaitingCapture)
	img, degraded, err := p.acquire(ctx, src)
	if err != nil {
		p.setState(StateIdle)
		return Result{State: StateIdle, Degraded: degraded, Err: err}, err
	}
	if len(img.Data) == 0 {
		p.setState(StateIdle)
		return Result{State: StateIdle, Degraded: degraded, Err: common.ErrInvalidImage}, common.ErrInvalidImage
	}
	p.setState(StateCaptured)

	p.setState(StateRecognizing)
	rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.opts.RecognitionTimeout)
	rec, recErr := p.d.Recognizer.Recognize(rctx, img, p.opts.Language())
	cancel()

	if p.closedSince(surface) {
		p.d.Log.Info(ctx, "capture surface closed, discarding recognition result")
		p.setState(StateIdle)
		return Result{State: StateIdle, Err: common.ErrCaptureDiscarded}, common.ErrCaptureDiscarded
	}

	if recErr == nil && strings.TrimSpace(rec.Name) == "" {
		recErr = errors.New("no medication found in image")
	}
	if recErr != nil {
		p.d.Log.Warn(ctx, "recognition failed", "error", recErr)
		res := Result{
			State:     StateRecognitionFailed,
			Degraded:  degraded,
			Retryable: !errors.Is(recErr, common.ErrUnauthorized),
			Err:       fmt.Errorf("%w: %w", common.ErrRecognitionFailed, recErr),
		}
		p.show(res, nil)
		return res, res.Err
	}

	cand := rec.Candidate
	if !rec.AutoCommit {
		res := Result{State: StateRecognized, Candidate: cand, NeedsConfirmation: true, Degraded: degraded}
		p.show(res, &cand)
		return res, nil
	}

	res := p.commit(ctx, cand)
	res.Degraded = degraded
	p.show(res, nil)
	return res, res.Err
}

// Confirm saves the candidate that is waiting for confirmation.
func (p *Pipeline) Confirm(ctx context.Context) (Result, error) {
	p.mu.Lock()
	if p.busy {
		p.mu.Unlock()
		return Result{}, common.ErrCaptureInProgress
	}
	if p.pending == nil {
		p.mu.Unlock()
		return Result{}, common.ErrNothingToConfirm
	}
	cand := *p.pending
	p.pending = nil
	p.busy = true
	p.mu.Unlock()
	defer p.end()

	res := p.commit(ctx, cand)
	p.show(res, nil)
	return res, res.Err
}

// Dismiss drops the pending candidate and the displayed result.
func (p *Pipeline) Dismiss() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.clearLocked()
}

// Close is called when the capture surface goes away. An in-flight
// recognition keeps running but its result is dropped.
func (p *Pipeline) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.surface++
	p.clearLocked()
}

func (p *Pipeline) commit(ctx context.Context, cand models.Candidate) Result {
	cand = p.enrich(ctx, cand)

	if err := p.d.Gate.Admit(ctx, cand); err != nil {
		p.d.Log.Info(ctx, "candidate rejected", "name", cand.Name, "error", err)
		return Result{State: StateRecognized, Candidate: cand, Err: err}
	}

	med, err := p.d.Creator.Create(ctx, cand.ToNewMedication("", "", models.MethodScan))
	if err != nil {
		return Result{State: StateRecognized, Candidate: cand, Retryable: errors.Is(err, common.ErrUnavailable), Err: err}
	}
	return Result{State: StateRecognized, Candidate: cand, Medication: &med}
}

// enrich is best-effort: a failed lookup keeps the recognized fields.
func (p *Pipeline) enrich(ctx context.Context, cand models.Candidate) models.Candidate {
	if p.d.Catalog == nil {
		return cand
	}
	items, err := p.d.Catalog.SearchCatalog(ctx, cand.Name, p.opts.Language())
	if err != nil {
		p.d.Log.Warn(ctx, "catalog enrichment failed", "name", cand.Name, "error", err)
		return cand
	}
	if len(items) == 0 {
		return cand
	}
	best := items[0]
	for _, it := range items {
		if strings.EqualFold(strings.TrimSpace(it.TradeName), strings.TrimSpace(cand.Name)) {
			best = it
			break
		}
	}
	return cand.Enrich(best)
}

func (p *Pipeline) acquire(ctx context.Context, src Source) (models.Image, bool, error) {
	if src == SourceCamera {
		if p.d.Camera != nil {
			img, err := p.d.Camera.Capture(ctx)
			if err == nil {
				return img, false, nil
			}
			if errors.Is(err, common.ErrCaptureCancelled) {
				return models.Image{}, false, err
			}
			p.d.Log.Warn(ctx, "camera failed, falling back to gallery", "error", err)
		}
		p.setState(StateCaptureDegraded)
		img, err := p.pick(ctx)
		return img, true, err
	}
	img, err := p.pick(ctx)
	return img, false, err
}

func (p *Pipeline) pick(ctx context.Context) (models.Image, error) {
	if p.d.Picker == nil {
		return models.Image{}, common.ErrCameraUnavailable
	}
	return p.d.Picker.Pick(ctx)
}

func (p *Pipeline) begin() (uint64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.busy {
		return 0, common.ErrCaptureInProgress
	}
	p.busy = true
	p.clearLocked()
	return p.surface, nil
}

func (p *Pipeline) end() {
	p.mu.Lock()
	p.busy = false
	p.mu.Unlock()
}

func (p *Pipeline) closedSince(surface uint64) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.surface != surface
}

func (p *Pipeline) setState(s State) {
	p.mu.Lock()
	p.state = s
	p.mu.Unlock()
	if p.opts.OnStateChange != nil {
		p.opts.OnStateChange(s)
	}
}

// show displays res and schedules it to clear after the TTL.
func (p *Pipeline) show(res Result, pending *models.Candidate) {
	p.mu.Lock()
	if p.stopClear != nil {
		p.stopClear()
	}
	p.shown++
	seq := p.shown
	r := res
	p.result = &r
	p.pending = pending
	p.state = res.State
	p.stopClear = p.afterFunc(p.opts.ResultTTL, func() { p.expire(seq) })
	p.mu.Unlock()

	if p.opts.OnStateChange != nil {
		p.opts.OnStateChange(res.State)
	}
}

func (p *Pipeline) expire(seq uint64) {
	p.mu.Lock()
	if p.shown != seq || p.result == nil {
		p.mu.Unlock()
		return
	}
	// a candidate awaiting confirmation outlives the notice
	p.result = nil
	p.stopClear = nil
	if !p.busy {
		p.state = StateIdle
	}
	p.mu.Unlock()

	if p.opts.OnStateChange != nil {
		p.opts.OnStateChange(StateIdle)
	}
}

func (p *Pipeline) clearLocked() {
	if p.stopClear != nil {
		p.stopClear()
		p.stopClear = nil
	}
	p.result = nil
	p.pending = nil
	if !p.busy {
		p.state = StateIdle
	}
}
