package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/time/rate"

	commonhttp "directory-engine/internal/common/http"
	"directory-engine/internal/common/logger"
	"directory-engine/internal/schema"
)

const nameField = "name"

// Gateway wraps a Completer with prompt construction, a bounded single
// attempt and response extraction. A Gateway without a Completer is
// permanently unavailable.
type Gateway struct {
	completer Completer
	timeout   time.Duration
	limiter   *rate.Limiter
	logger    logger.Logger
}

// NewGateway builds a gateway. A nil completer yields an unavailable gateway.
func NewGateway(completer Completer, cfg Config, log logger.Logger) *Gateway {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	var limiter *rate.Limiter
	if cfg.RateLimit > 0 {
		burst := cfg.RateBurst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}

	return &Gateway{
		completer: completer,
		timeout:   timeout,
		limiter:   limiter,
		logger:    logger.Component(log, "ai-gateway"),
	}
}

// NewUnavailable returns a gateway that always reports ErrGenerationUnavailable.
func NewUnavailable(log logger.Logger) *Gateway {
	return NewGateway(nil, Config{}, log)
}

// FromConfig picks the completer for cfg.Provider. Missing credentials give
// an unavailable gateway rather than an error.
func FromConfig(cfg Config, client *commonhttp.Client, log logger.Logger) (*Gateway, error) {
	var (
		completer Completer
		err       error
	)
	switch cfg.Provider {
	case "", ProviderOpenAI:
		completer, err = NewOpenAICompleter(cfg, client)
	case ProviderGenAI:
		completer, err = NewGenAICompleter(cfg, client)
	default:
		return nil, fmt.Errorf("unknown ai provider %q", cfg.Provider)
	}

	if errors.Is(err, ErrNotConfigured) {
		return NewUnavailable(log), nil
	}
	if err != nil {
		return nil, err
	}
	return NewGateway(completer, cfg, log), nil
}

func (g *Gateway) Available() bool { return g.completer != nil }

// SynthesizeSchema asks the model for a schema matching the interview.
func (g *Gateway) SynthesizeSchema(ctx context.Context, in schema.Interview) (*schema.Model, error) {
	raw, err := g.complete(ctx, "synthesize_schema", schemaSystemPrompt, buildSchemaPrompt(in))
	if err != nil {
		return nil, err
	}

	doc, stage, err := ExtractObject(raw)
	if err != nil {
		return nil, unavailable(err)
	}
	if err := checkSchemaDocument(doc); err != nil {
		return nil, unavailable(err)
	}

	m, err := schema.FromJSONSchema(doc)
	if err != nil {
		return nil, unavailable(err)
	}

	g.logger.Debug("schema generated", map[string]interface{}{
		"stage":  string(stage),
		"fields": m.Len(),
	})
	return m, nil
}

// GenerateListingData asks the model for a listing payload. Only declared
// fields are kept and the name field always equals entityName.
func (g *Gateway) GenerateListingData(ctx context.Context, m *schema.Model, entityName, entityURL string) (schema.Payload, error) {
	raw, err := g.complete(ctx, "generate_listing", listingSystemPrompt, buildListingPrompt(m, entityName, entityURL))
	if err != nil {
		return nil, err
	}

	doc, stage, err := ExtractObject(raw)
	if err != nil {
		return nil, unavailable(err)
	}

	var generated schema.Payload
	if err := json.Unmarshal(doc, &generated); err != nil {
		return nil, unavailable(fmt.Errorf("%w: %v", ErrExtraction, err))
	}

	out := make(schema.Payload, m.Len()+1)
	for _, f := range m.Fields() {
		if v, ok := generated[f.Name]; ok {
			out[f.Name] = v
		}
	}
	out = out.CoerceLenient(m)
	out[nameField] = schema.String(entityName)

	g.logger.Debug("listing generated", map[string]interface{}{
		"stage":  string(stage),
		"fields": len(out),
	})
	return out, nil
}

// complete performs the single bounded attempt. It returns when the deadline
// passes even if the completer ignores its context.
func (g *Gateway) complete(ctx context.Context, op, system, user string) (string, error) {
	if g.completer == nil {
		return "", unavailable(ErrNotConfigured)
	}
	if g.limiter != nil && !g.limiter.Allow() {
		return "", unavailable(ErrRateLimited)
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	type result struct {
		text string
		err  error
	}
	done := make(chan result, 1)

	start := time.Now()
	go func() {
		text, err := g.completer.Complete(ctx, system, user)
		done <- result{text: text, err: err}
	}()

	var res result
	select {
	case res = <-done:
	case <-ctx.Done():
		res = result{err: ctx.Err()}
	}

	fields := map[string]interface{}{
		"operation":  op,
		"durationMs": time.Since(start).Milliseconds(),
	}

	if res.err != nil {
		if errors.Is(res.err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			res.err = fmt.Errorf("%w after %s", ErrTimeout, g.timeout)
		}
		g.logger.Warn("model call failed", withErr(fields, res.err))
		return "", unavailable(res.err)
	}
	if strings.TrimSpace(res.text) == "" {
		g.logger.Warn("model call failed", withErr(fields, ErrEmptyResponse))
		return "", unavailable(ErrEmptyResponse)
	}

	g.logger.Debug("model call completed", fields)
	return res.text, nil
}

func unavailable(cause error) error {
	return fmt.Errorf("%w: %w", ErrGenerationUnavailable, cause)
}

func withErr(fields map[string]interface{}, err error) map[string]interface{} {
	fields["error"] = err.Error()
	return fields
}
