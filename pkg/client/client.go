// Package client is the caching front end to the LLM backend. Every ask
// derives a key from (question, model), answers from the cache when it can,
// and otherwise calls the backend and caches a successful answer.
package client

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/pario-ai/llmemo/pkg/cache"
	"github.com/pario-ai/llmemo/pkg/cache/memory"
	"github.com/pario-ai/llmemo/pkg/config"
	"github.com/pario-ai/llmemo/pkg/logging"
	"github.com/pario-ai/llmemo/pkg/models"
)

// Variant selects a set of generation parameters.
type Variant string

const (
	VariantNormal Variant = "normal"
	VariantFast   Variant = "fast"
)

// ParseVariant accepts "normal", "fast" or "" (normal).
func ParseVariant(s string) (Variant, error) {
	switch Variant(s) {
	case "", VariantNormal:
		return VariantNormal, nil
	case VariantFast:
		return VariantFast, nil
	default:
		return "", fmt.Errorf("unknown variant %q", s)
	}
}

// Backend generates text and reports on the models it serves.
type Backend interface {
	Generate(ctx context.Context, req models.GenerateRequest) (string, error)
	Ping(ctx context.Context) error
	Models(ctx context.Context) ([]models.ModelInfo, error)
	Endpoint() string
}

// Observer is told about every backend call.
type Observer interface {
	BackendCall(variant, outcome string, d time.Duration)
}

// Recorder journals asks.
type Recorder interface {
	Record(ctx context.Context, rec models.HistoryRecord) error
}

// Deps are the optional collaborators of a Client.
type Deps struct {
	Logger   logging.Logger
	Observer Observer
	History  Recorder
}

// Client answers questions through the cache. A nil store disables caching.
type Client struct {
	backend Backend
	store   *memory.Store
	keyFn   cache.KeyFunc

	variants         config.VariantsConfig
	ttl              time.Duration
	separateVariants bool
	singleFlight     bool
	statusTimeout    time.Duration
	batchConcurrency int

	log      logging.Logger
	observer Observer
	history  Recorder

	mu    sync.RWMutex
	model string

	group singleflight.Group
}

// New creates a Client. The store gets one eviction pass up front so a
// reused store starts within capacity.
func New(cfg *config.Config, backend Backend, store *memory.Store, deps Deps) (*Client, error) {
	keyFn, err := cache.KeyFuncByName(cfg.Cache.KeyHash)
	if err != nil {
		return nil, err
	}
	c := &Client{
		backend:          backend,
		store:            store,
		keyFn:            keyFn,
		variants:         cfg.Variants,
		ttl:              cfg.Cache.TTL,
		separateVariants: cfg.Cache.SeparateVariants,
		singleFlight:     cfg.Cache.SingleFlight,
		statusTimeout:    cfg.StatusTimeout,
		batchConcurrency: cfg.Batch.Concurrency,
		log:              logging.OrNop(deps.Logger),
		observer:         deps.Observer,
		history:          deps.History,
		model:            cfg.Model,
	}
	if c.batchConcurrency <= 0 {
		c.batchConcurrency = 1
	}
	if c.store != nil {
		c.store.Evict()
	}
	return c, nil
}

// Ask answers with the normal variant.
func (c *Client) Ask(ctx context.Context, question string, useCache bool) (string, error) {
	return c.AskVariant(ctx, VariantNormal, question, useCache)
}

// AskFast answers with the fast variant: fewer tokens, lower temperature,
// shorter timeout.
func (c *Client) AskFast(ctx context.Context, question string, useCache bool) (string, error) {
	return c.AskVariant(ctx, VariantFast, question, useCache)
}

// Answer is the outcome of one ask.
type Answer struct {
	Text     string        `json:"answer"`
	Variant  Variant       `json:"variant"`
	Model    string        `json:"model"`
	CacheHit bool          `json:"cache_hit"`
	Latency  time.Duration `json:"-"`
}

// AskVariant answers question with the given variant. With useCache false
// the cache is neither read nor written.
func (c *Client) AskVariant(ctx context.Context, v Variant, question string, useCache bool) (string, error) {
	a, err := c.AskDetailed(ctx, v, question, useCache)
	return a.Text, err
}

// AskDetailed is AskVariant with hit and latency information.
func (c *Client) AskDetailed(ctx context.Context, v Variant, question string, useCache bool) (Answer, error) {
	return c.AskWithContext(ctx, v, "", question, useCache)
}

// AskWithContext answers question with background text prepended to the
// prompt. The background is part of the cache key, so the same question
// under different backgrounds is cached separately. An empty background
// behaves exactly like AskDetailed.
func (c *Client) AskWithContext(ctx context.Context, v Variant, background, question string, useCache bool) (Answer, error) {
	start := time.Now()
	model := c.Model()
	caching := useCache && c.store != nil
	a := Answer{Variant: v, Model: model}

	var key string
	if caching {
		key = c.key(v, background, question, model)
		if out, ok := c.store.Get(key); ok {
			c.log.Debug("cache hit", logging.Fields{"variant": string(v), "model": model, "key": key})
			a.Text, a.CacheHit, a.Latency = out, true, time.Since(start)
			c.record(ctx, question, a, nil)
			return a, nil
		}
		c.log.Debug("cache miss", logging.Fields{"variant": string(v), "model": model, "key": key})
	}

	prompt := question
	if background != "" {
		prompt = background + "\n\n" + question
	}

	var (
		out string
		err error
	)
	switch {
	case caching && c.singleFlight:
		out, err = c.fetchShared(ctx, v, model, prompt, key)
	case caching:
		out, err = c.generate(ctx, v, model, prompt)
		if err == nil {
			c.store.Put(key, out, c.ttl)
		}
	default:
		out, err = c.generate(ctx, v, model, prompt)
	}

	a.Text, a.Latency = out, time.Since(start)
	c.record(ctx, question, a, err)
	return a, err
}

// fetchShared collapses concurrent misses on one key into a single backend
// call. The call is detached from any one caller's cancellation; the
// variant timeout still bounds it. A canceled caller stops waiting but the
// call keeps running for the others.
func (c *Client) fetchShared(ctx context.Context, v Variant, model, prompt, key string) (string, error) {
	detached := context.WithoutCancel(ctx)
	ch := c.group.DoChan(key, func() (any, error) {
		out, err := c.generate(detached, v, model, prompt)
		if err != nil {
			return "", err
		}
		c.store.Put(key, out, c.ttl)
		return out, nil
	})

	select {
	case <-ctx.Done():
		return "", fmt.Errorf("%s ask: %w", v, ctx.Err())
	case res := <-ch:
		if res.Shared {
			c.log.Debug("shared backend call", logging.Fields{"variant": string(v), "key": key})
		}
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	}
}

func (c *Client) generate(ctx context.Context, v Variant, model, prompt string) (string, error) {
	params := c.params(v)
	if params.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, params.Timeout)
		defer cancel()
	}

	start := time.Now()
	out, err := c.backend.Generate(ctx, models.GenerateRequest{
		Model:  model,
		Prompt: prompt,
		Options: models.GenerateOptions{
			Temperature: params.Temperature,
			NumPredict:  params.NumPredict,
		},
	})
	if c.observer != nil {
		c.observer.BackendCall(string(v), outcome(err), time.Since(start))
	}
	if err != nil {
		c.log.Warn("backend call failed", logging.Fields{"variant": string(v), "model": model, "error": err})
		return "", fmt.Errorf("%s ask: %w", v, err)
	}
	return out, nil
}

func (c *Client) params(v Variant) config.VariantConfig {
	if v == VariantFast {
		return c.variants.Fast
	}
	return c.variants.Normal
}

// Key returns the cache key an ask would use.
func (c *Client) Key(v Variant, question, model string) string {
	return c.key(v, "", question, model)
}

func (c *Client) key(v Variant, background, question, model string) string {
	payload := cache.ContextPayload(background, question)
	if c.separateVariants {
		payload = cache.VariantPayload(string(v), payload)
	}
	return c.keyFn(payload, model)
}

func (c *Client) record(ctx context.Context, question string, a Answer, err error) {
	if c.history == nil {
		return
	}
	rec := models.HistoryRecord{
		Question:  question,
		Model:     a.Model,
		Variant:   string(a.Variant),
		CacheHit:  a.CacheHit,
		LatencyMs: a.Latency.Milliseconds(),
		Response:  a.Text,
		CreatedAt: time.Now().UTC(),
	}
	if err != nil {
		rec.Error = err.Error()
	}
	if rerr := c.history.Record(context.WithoutCancel(ctx), rec); rerr != nil {
		c.log.Warn("history record failed", logging.Fields{"error": rerr})
	}
}

// Model returns the model used for new asks.
func (c *Client) Model() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.model
}

// SetModel switches the model for later asks. Entries cached under the old
// model stay until they expire or are evicted.
func (c *Client) SetModel(name string) error {
	if name == "" {
		return fmt.Errorf("model name is required")
	}
	c.mu.Lock()
	old := c.model
	c.model = name
	c.mu.Unlock()
	c.log.Info("model changed", logging.Fields{"from": old, "to": name})
	return nil
}

// Status reports the model, endpoint, cache size and whether the backend
// answers within the status timeout.
func (c *Client) Status(ctx context.Context) models.Status {
	st := models.Status{
		Model:    c.Model(),
		Endpoint: c.backend.Endpoint(),
	}
	if c.store != nil {
		st.CacheSize = c.store.Len()
	}

	if c.statusTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.statusTimeout)
		defer cancel()
	}
	if err := c.backend.Ping(ctx); err != nil {
		c.log.Debug("backend probe failed", logging.Fields{"error": err})
	} else {
		st.BackendReachable = true
	}
	return st
}

// Models lists the models installed on the backend.
func (c *Client) Models(ctx context.Context) ([]models.ModelInfo, error) {
	if c.statusTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.statusTimeout)
		defer cancel()
	}
	return c.backend.Models(ctx)
}

// ClearCache drops every cached answer and returns how many were removed.
func (c *Client) ClearCache() int {
	if c.store == nil {
		return 0
	}
	n := c.store.Clear()
	c.log.Info("cache cleared", logging.Fields{"removed": n})
	return n
}

// CacheStats returns a snapshot of the cache.
func (c *Client) CacheStats() models.CacheStats {
	if c.store == nil {
		return models.CacheStats{}
	}
	return c.store.Stats()
}

// Optimize runs the eviction policy now.
func (c *Client) Optimize() memory.EvictResult {
	if c.store == nil {
		return memory.EvictResult{}
	}
	res := c.store.Evict()
	c.log.Info("cache optimized", logging.Fields{
		"expired":   res.Expired,
		"trimmed":   res.Trimmed,
		"remaining": res.Remaining,
	})
	return res
}
