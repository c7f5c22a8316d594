// File: internal/oracle/gemini.go
package oracle

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
	genai "google.golang.org/genai"

	"github.com/raghavx92/dealpilot-cli/internal/config"
	"github.com/raghavx92/dealpilot-cli/internal/match"
)

// Gemini implements Oracle on top of the official genai client. Each call
// sends one screenshot plus one prompt and expects a JSON payload back.
type Gemini struct {
	cli     *genai.Client
	model   string
	timeout time.Duration
	limiter *rate.Limiter
	logger  *zap.Logger
}

// NewGemini builds the vision oracle. The API key may also come from the
// environment; an empty key is a fatal precondition handled by the caller.
func NewGemini(ctx context.Context, cfg config.OracleConfig, logger *zap.Logger) (*Gemini, error) {
	cli, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("creating genai client: %w", err)
	}
	rps := cfg.RPS
	if rps <= 0 {
		rps = 1
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Gemini{
		cli:     cli,
		model:   cfg.Model,
		timeout: timeout,
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
		logger:  logger.Named("oracle.gemini"),
	}, nil
}

// generate runs one vision request with a bounded timeout and short
// exponential-backoff retries on transport errors.
func (g *Gemini) generate(ctx context.Context, shot []byte, prompt string) (string, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return "", err
	}

	callCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	contents := []*genai.Content{{
		Parts: []*genai.Part{
			{Text: prompt},
			{InlineData: &genai.Blob{MIMEType: "image/png", Data: shot}},
		},
	}}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxElapsedTime = g.timeout

	var text string
	operation := func() error {
		start := time.Now()
		resp, err := g.cli.Models.GenerateContent(callCtx, g.model, contents, nil)
		if err != nil {
			g.logger.Warn("vision request failed, retrying", zap.Error(err))
			return err
		}
		if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
			return backoff.Permanent(fmt.Errorf("model returned no content"))
		}
		text = resp.Candidates[0].Content.Parts[0].Text
		g.logger.Debug("vision request complete",
			zap.Duration("duration", time.Since(start)),
			zap.Int("response_len", len(text)))
		return nil
	}
	if err := backoff.Retry(operation, backoff.WithContext(b, callCtx)); err != nil {
		return "", err
	}
	return text, nil
}

func (g *Gemini) FindCheaper(ctx context.Context, shot []byte, currentPrice float64, title string, feats match.ProductFeatures) ([]Candidate, error) {
	text, err := g.generate(ctx, shot, cheaperPrompt(currentPrice, title, feats.PromptFilter()))
	if err != nil {
		return nil, err
	}
	candidates, ok := parseCandidates(text)
	if !ok {
		g.logger.Warn("unparseable find-cheaper response, treating as empty",
			zap.String("response", truncate(text, 200)))
		return nil, nil
	}
	return candidates, nil
}

func (g *Gemini) FindAvailable(ctx context.Context, shot []byte, currentPrice float64, title string, feats match.ProductFeatures) (Match, error) {
	text, err := g.generate(ctx, shot, availablePrompt(currentPrice, title, feats.PromptFilter()))
	if err != nil {
		return Match{}, err
	}
	m, ok := parseMatch(text)
	if !ok {
		g.logger.Warn("unparseable find-available response, treating as null",
			zap.String("response", truncate(text, 200)))
		return Match{Confidence: ConfidenceLow}, nil
	}
	return m, nil
}

func (g *Gemini) LocateProduct(ctx context.Context, shot []byte, title, priceText string) (Match, error) {
	text, err := g.generate(ctx, shot, locatePrompt(title, priceText))
	if err != nil {
		return Match{}, err
	}
	m, ok := parseMatch(text)
	if !ok {
		g.logger.Warn("unparseable locate-product response, treating as null",
			zap.String("response", truncate(text, 200)))
		return Match{Confidence: ConfidenceLow}, nil
	}
	return m, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
