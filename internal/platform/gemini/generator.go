package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"math/rand/v2"
	"strings"
	"text/template"
	"time"

	"github.com/phrazzld/engage-api/internal/config"
	"github.com/phrazzld/engage-api/internal/generation"
	"google.golang.org/genai"
)

// contentModels is the part of the genai client the generator uses.
type contentModels interface {
	GenerateContent(
		ctx context.Context,
		model string,
		contents []*genai.Content,
		config *genai.GenerateContentConfig,
	) (*genai.GenerateContentResponse, error)
}

// Generator implements generation.Generator using the Gemini API.
type Generator struct {
	logger *slog.Logger
	config config.LLMConfig
	tmpl   *template.Template
	models contentModels

	// sleep waits between retries; replaced in tests.
	sleep func(ctx context.Context, d time.Duration) error
}

var _ generation.Generator = (*Generator)(nil)

// NewGenerator creates a Generator talking to Gemini with cfg's API key and model.
func NewGenerator(ctx context.Context, logger *slog.Logger, cfg config.LLMConfig) (*Generator, error) {
	if cfg.GeminiAPIKey == "" {
		return nil, fmt.Errorf("%w: gemini API key cannot be empty", generation.ErrInvalidConfig)
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.GeminiAPIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create Gemini client: %v", generation.ErrInvalidConfig, err)
	}

	return newGenerator(client.Models, cfg, logger)
}

func newGenerator(models contentModels, cfg config.LLMConfig, logger *slog.Logger) (*Generator, error) {
	if cfg.ModelName == "" {
		return nil, fmt.Errorf("%w: model name cannot be empty", generation.ErrInvalidConfig)
	}
	tmpl, err := loadTemplate(cfg.PromptTemplatePath)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Generator{
		logger: logger.With(slog.String("component", "gemini_generator"), slog.String("model", cfg.ModelName)),
		config: cfg,
		tmpl:   tmpl,
		models: models,
		sleep:  sleepContext,
	}, nil
}

// Generate implements generation.Generator.
func (g *Generator) Generate(ctx context.Context, src generation.Source) (*generation.Content, error) {
	prompt, err := renderPrompt(g.tmpl, src)
	if err != nil {
		return nil, err
	}
	g.logger.DebugContext(ctx, "prompt rendered",
		slog.Int("prompt_length", len(prompt)),
		slog.String("subreddit", src.Subreddit))

	return g.callWithRetry(ctx, prompt)
}

// responseSchema constrains the model output to the generation.Content shape.
func responseSchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"title":   {Type: genai.TypeString},
			"content": {Type: genai.TypeString},
		},
		Required: []string{"title", "content"},
	}
}

// callWithRetry asks the model up to MaxRetries+1 times. API errors are
// treated as transient; empty, blocked or unparsable responses are not.
func (g *Generator) callWithRetry(ctx context.Context, prompt string) (*generation.Content, error) {
	maxRetries := g.config.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}
	baseDelay := time.Duration(g.config.BaseDelaySeconds) * time.Second
	if baseDelay <= 0 {
		baseDelay = 2 * time.Second
	}

	genConfig := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   responseSchema(),
		Temperature:      genai.Ptr[float32](0.8),
	}

	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		log := g.logger.With(slog.Int("attempt", attempt+1), slog.Int("max_attempts", maxRetries+1))

		resp, err := g.generateOnce(ctx, prompt, genConfig)
		if err == nil {
			content, perr := parseResponse(resp)
			if perr != nil {
				log.WarnContext(ctx, "permanent generation error, not retrying", slog.String("error", perr.Error()))
				return nil, perr
			}
			log.InfoContext(ctx, "content generated", slog.Int("content_length", len(content.Content)))
			return content, nil
		}

		lastErr = err
		log.ErrorContext(ctx, "Gemini API call failed", slog.String("error", err.Error()))
		if attempt == maxRetries {
			break
		}

		// delay = baseDelay * 2^attempt * [0.5, 1.0)
		delay := time.Duration(float64(baseDelay) * math.Pow(2, float64(attempt)) * (0.5 + rand.Float64()*0.5))
		log.InfoContext(ctx, "retrying after delay", slog.Duration("delay", delay))
		if err := g.sleep(ctx, delay); err != nil {
			return nil, fmt.Errorf("%w: %v", generation.ErrTransientFailure, err)
		}
	}

	return nil, fmt.Errorf("%w: exceeded maximum retry attempts (%d): %v",
		generation.ErrTransientFailure, maxRetries, lastErr)
}

func (g *Generator) generateOnce(
	ctx context.Context,
	prompt string,
	genConfig *genai.GenerateContentConfig,
) (*genai.GenerateContentResponse, error) {
	if g.config.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.config.RequestTimeout)
		defer cancel()
	}
	return g.models.GenerateContent(ctx, g.config.ModelName, genai.Text(prompt), genConfig)
}

func parseResponse(resp *genai.GenerateContentResponse) (*generation.Content, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return nil, fmt.Errorf("%w: no content generated", generation.ErrInvalidResponse)
	}
	candidate := resp.Candidates[0]
	if candidate.FinishReason == genai.FinishReasonSafety {
		return nil, generation.ErrContentBlocked
	}
	if candidate.Content == nil {
		return nil, fmt.Errorf("%w: empty content in response", generation.ErrInvalidResponse)
	}

	var text strings.Builder
	for _, part := range candidate.Content.Parts {
		if part != nil {
			text.WriteString(part.Text)
		}
	}

	var content generation.Content
	if err := json.Unmarshal([]byte(text.String()), &content); err != nil {
		return nil, fmt.Errorf("%w: failed to parse JSON response: %v", generation.ErrInvalidResponse, err)
	}
	if strings.TrimSpace(content.Title) == "" || strings.TrimSpace(content.Content) == "" {
		return nil, fmt.Errorf("%w: title and content are required", generation.ErrInvalidResponse)
	}
	return &content, nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
