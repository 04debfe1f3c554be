package ocr

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"os"
	"time"

	// Register the raster formats the engines have in common.
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/tiff"

	"github.com/knowledgehub-ai/ocr-core/internal/core/cache"
	"github.com/knowledgehub-ai/ocr-core/internal/core/imgproc"
	"github.com/knowledgehub-ai/ocr-core/internal/shared/utils"
)

// Policy selects how engine outcomes are fused into one result.
type Policy string

const (
	// PolicyPrimary is primary-plus-supplement: the primary engine supplies
	// text and confidence unconditionally, supplemental engines only enrich
	// metadata. This is the default.
	PolicyPrimary Policy = "primary"

	// PolicyBestOfN accepts the first outcome meeting the confidence
	// threshold, falling back to the highest-confidence completed outcome.
	PolicyBestOfN Policy = "best-of-n"
)

// ProcessorConfig tunes the fusion orchestrator. Zero values fall back to
// defaults in NewProcessor.
type ProcessorConfig struct {
	Policy              Policy
	ConfidenceThreshold float64
	MaxWorkers          int
	PrimaryTimeout      time.Duration
	SupplementalTimeout time.Duration
}

// Processor is the unified OCR pipeline: it runs the configured engines
// concurrently with bounded timeouts, fuses their outcomes, and caches the
// final result keyed by image content. Safe for concurrent use; no state is
// shared between calls beyond the cache store.
type Processor struct {
	primary      Provider
	supplemental []Provider // declared priority order, fixed at construction
	store        cache.Store
	cfg          ProcessorConfig
	sem          chan struct{}
}

// NewProcessor creates a processor. supplemental order is the metadata merge
// priority: later entries overwrite earlier ones on key collision. store may
// be nil to disable caching.
func NewProcessor(primary Provider, supplemental []Provider, store cache.Store, cfg ProcessorConfig) *Processor {
	if cfg.Policy == "" {
		cfg.Policy = PolicyPrimary
	}
	if cfg.ConfidenceThreshold == 0 {
		cfg.ConfidenceThreshold = 0.8
	}
	if cfg.MaxWorkers <= 0 {
		cfg.MaxWorkers = 3
	}
	if cfg.PrimaryTimeout <= 0 {
		cfg.PrimaryTimeout = 60 * time.Second
	}
	if cfg.SupplementalTimeout <= 0 {
		cfg.SupplementalTimeout = 30 * time.Second
	}

	return &Processor{
		primary:      primary,
		supplemental: supplemental,
		store:        store,
		cfg:          cfg,
		sem:          make(chan struct{}, cfg.MaxWorkers),
	}
}

// Option adjusts a single ProcessImage call.
type Option func(*callOptions)

type callOptions struct {
	preprocess   bool
	detectLayout bool
}

// WithPreprocess toggles image normalization before extraction.
func WithPreprocess(enabled bool) Option {
	return func(o *callOptions) { o.preprocess = enabled }
}

// WithLayout toggles heuristic layout analysis.
func WithLayout(enabled bool) Option {
	return func(o *callOptions) { o.detectLayout = enabled }
}

// ProcessImage extracts text and metadata from the image at path. It returns
// ErrImageLoad if the file cannot be read or decoded; every other failure
// degrades into a well-formed Result (Method "failed" when no engine
// produced anything). Results are cached by image content plus the options
// that influence the output, so a repeated call is served from cache without
// invoking any engine.
func (p *Processor) ProcessImage(ctx context.Context, path string, opts ...Option) (*Result, error) {
	o := callOptions{preprocess: true, detectLayout: true}
	for _, opt := range opts {
		opt(&o)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrImageLoad, path, err)
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrImageLoad, path, err)
	}

	key := cache.Key(data, cache.Params{
		Preprocess:   o.preprocess,
		DetectLayout: o.detectLayout,
		Threshold:    p.cfg.ConfidenceThreshold,
	})
	if cached := p.cacheGet(key); cached != nil {
		utils.LogInfo("using cached OCR result", map[string]interface{}{
			"path": path,
			"key":  key,
		})
		return cached, nil
	}

	var pre *image.Gray
	if o.preprocess {
		pre = imgproc.Normalize(img)
	}

	var layout *imgproc.LayoutInfo
	if o.detectLayout {
		bin := pre
		if bin == nil {
			bin = imgproc.Normalize(img)
		}
		li := imgproc.AnalyzeLayout(bin)
		layout = &li
	}

	req := Request{Path: path, Data: data, Image: pre}

	var result *Result
	if p.cfg.Policy == PolicyBestOfN {
		result = p.fuseBestOfN(ctx, req)
	} else {
		result = p.fusePrimary(ctx, req)
	}
	result.Layout = layout

	p.cachePut(key, result)
	return result, nil
}

type engineResult struct {
	outcome *Outcome
	err     error
}

// launch starts one engine invocation on the bounded worker pool. The
// returned channel is buffered so an abandoned engine can still deliver and
// terminate; the orchestrator never blocks on it without a deadline.
func (p *Processor) launch(ctx context.Context, prov Provider, req Request, timeout time.Duration) <-chan engineResult {
	ch := make(chan engineResult, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- engineResult{err: fmt.Errorf("engine panic: %v", r)}
			}
		}()

		cctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		select {
		case p.sem <- struct{}{}:
			defer func() { <-p.sem }()
		case <-cctx.Done():
			ch <- engineResult{err: cctx.Err()}
			return
		}

		out, err := prov.Extract(cctx, req)
		if err == nil && out == nil {
			err = fmt.Errorf("engine returned no outcome")
		}
		ch <- engineResult{outcome: out, err: err}
	}()
	return ch
}

// awaitOutcome waits for one engine with its own deadline. An engine that
// ignores its context and hangs is simply abandoned once the timer fires.
func awaitOutcome(ch <-chan engineResult, timeout time.Duration) (*Outcome, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case r := <-ch:
		return r.outcome, r.err
	case <-timer.C:
		return nil, fmt.Errorf("engine timed out after %s", timeout)
	}
}

// fusePrimary implements the primary-plus-supplement policy. The primary
// engine's outcome supplies text and confidence unconditionally; on primary
// failure the result keeps empty text and zero confidence rather than
// substituting another engine's text. Supplemental engines are merged in
// declared order, so the metadata is deterministic regardless of which
// engine finishes first.
func (p *Processor) fusePrimary(ctx context.Context, req Request) *Result {
	primaryCh := p.launch(ctx, p.primary, req, p.cfg.PrimaryTimeout)
	suppChans := make([]<-chan engineResult, len(p.supplemental))
	for i, prov := range p.supplemental {
		suppChans[i] = p.launch(ctx, prov, req, p.cfg.SupplementalTimeout)
	}

	result := &Result{
		Method:   p.primary.Method(),
		Metadata: map[string]interface{}{},
	}

	out, err := awaitOutcome(primaryCh, p.cfg.PrimaryTimeout)
	if err != nil {
		utils.LogError("primary engine failed", err, map[string]interface{}{
			"engine": p.primary.Name(),
		})
		result.Method = MethodFailed
		result.Metadata[string(p.primary.Method())+"_error"] = err.Error()
	} else {
		result.Text = out.Text
		result.Confidence = out.Confidence
		mergeMetadata(result.Metadata, out.Metadata)
	}

	for i, prov := range p.supplemental {
		out, err := awaitOutcome(suppChans[i], p.cfg.SupplementalTimeout)
		if err != nil {
			utils.LogWarn("supplemental engine contributed nothing", map[string]interface{}{
				"engine": prov.Name(),
				"error":  err.Error(),
			})
			continue
		}
		mergeMetadata(result.Metadata, out.Metadata)
	}

	enforceInvariants(result)
	return result
}

// fuseBestOfN runs every engine and accepts the first outcome, in declared
// priority order, whose confidence meets the threshold. If none qualifies it
// falls back to the highest-confidence completed outcome; if nothing
// completed, the result is a failure value, not an error.
func (p *Processor) fuseBestOfN(ctx context.Context, req Request) *Result {
	providers := make([]Provider, 0, 1+len(p.supplemental))
	providers = append(providers, p.primary)
	providers = append(providers, p.supplemental...)

	chans := make([]<-chan engineResult, len(providers))
	timeouts := make([]time.Duration, len(providers))
	for i, prov := range providers {
		timeouts[i] = p.cfg.SupplementalTimeout
		if i == 0 {
			timeouts[i] = p.cfg.PrimaryTimeout
		}
		chans[i] = p.launch(ctx, prov, req, timeouts[i])
	}

	type candidate struct {
		prov Provider
		out  *Outcome
	}
	var completed []candidate

	for i, prov := range providers {
		out, err := awaitOutcome(chans[i], timeouts[i])
		if err != nil {
			utils.LogWarn("engine failed", map[string]interface{}{
				"engine": prov.Name(),
				"error":  err.Error(),
			})
			continue
		}
		if out.Confidence >= p.cfg.ConfidenceThreshold {
			return p.resultFrom(prov, out)
		}
		completed = append(completed, candidate{prov: prov, out: out})
	}

	if len(completed) > 0 {
		best := completed[0]
		for _, c := range completed[1:] {
			if c.out.Confidence > best.out.Confidence {
				best = c
			}
		}
		return p.resultFrom(best.prov, best.out)
	}

	result := &Result{
		Method: MethodFailed,
		Metadata: map[string]interface{}{
			"error": "all OCR engines failed",
		},
	}
	enforceInvariants(result)
	return result
}

func (p *Processor) resultFrom(prov Provider, out *Outcome) *Result {
	result := &Result{
		Text:       out.Text,
		Confidence: out.Confidence,
		Method:     prov.Method(),
		Metadata:   map[string]interface{}{},
	}
	mergeMetadata(result.Metadata, out.Metadata)
	enforceInvariants(result)
	return result
}

func mergeMetadata(dst, src map[string]interface{}) {
	for k, v := range src {
		dst[k] = v
	}
}

// enforceInvariants keeps the result well-formed: empty text means zero
// confidence, and the method tag is always set.
func enforceInvariants(r *Result) {
	if r.Text == "" {
		r.Confidence = 0
	}
	if r.Method == "" {
		r.Method = MethodFailed
	}
}

// cacheGet returns a previously cached result, or nil. A corrupt entry is
// logged and treated as a miss, never surfaced as an error.
func (p *Processor) cacheGet(key string) *Result {
	if p.store == nil {
		return nil
	}
	data, ok := p.store.Get(key)
	if !ok {
		return nil
	}

	var result Result
	if err := json.Unmarshal(data, &result); err != nil || result.Method == "" {
		utils.LogWarn("discarding corrupt cache entry", map[string]interface{}{
			"key": key,
		})
		return nil
	}
	return &result
}

// cachePut stores the result. Caching is best-effort: serialization or write
// failures are logged and swallowed.
func (p *Processor) cachePut(key string, result *Result) {
	if p.store == nil {
		return
	}
	data, err := json.Marshal(result)
	if err != nil {
		utils.LogWarn("failed to serialize result for cache", map[string]interface{}{
			"key":   key,
			"error": err.Error(),
		})
		return
	}
	p.store.Put(key, data)
}
