package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/jordigilh/investigator/pkg/domain"
)

// AnthropicClient implements Client against the Anthropic Messages API.
type AnthropicClient struct {
	client     anthropic.Client
	model      string
	maxTokens  int64
	retryCount int
}

// NewAnthropicClient builds a Client from cfg. cfg.Endpoint, if set,
// overrides the default Anthropic API base URL (useful for a proxy or a
// compatible self-hosted gateway).
func NewAnthropicClient(cfg Config) *AnthropicClient {
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.Endpoint != "" {
		opts = append(opts, option.WithBaseURL(cfg.Endpoint))
	}
	maxTokens := int64(cfg.MaxTokens)
	if maxTokens == 0 {
		maxTokens = 4096
	}
	retries := cfg.RetryCount
	if retries == 0 {
		retries = 3
	}
	return &AnthropicClient{
		client:     anthropic.NewClient(opts...),
		model:      cfg.Model,
		maxTokens:  maxTokens,
		retryCount: retries,
	}
}

// complete runs prompt through the configured model and returns the
// concatenated text of every text content block in the response,
// retrying transient API errors with exponential backoff.
func (a *AnthropicClient) complete(ctx context.Context, prompt string) (string, error) {
	var response *anthropic.Message
	err := a.retryWithBackoff(ctx, func() error {
		resp, err := a.client.Messages.New(ctx, anthropic.MessageNewParams{
			Model:     anthropic.Model(a.model),
			MaxTokens: a.maxTokens,
			Messages: []anthropic.MessageParam{
				anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
			},
		})
		if err != nil {
			return err
		}
		response = resp
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("anthropic API call failed: %w", err)
	}

	var text strings.Builder
	for _, block := range response.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	return text.String(), nil
}

// retryWithBackoff retries fn up to a.retryCount times with a doubling
// delay, stopping early if ctx is cancelled.
func (a *AnthropicClient) retryWithBackoff(ctx context.Context, fn func() error) error {
	var lastErr error
	delay := 500 * time.Millisecond
	for attempt := 0; attempt <= a.retryCount; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
			delay *= 2
		}
		if err := fn(); err != nil {
			lastErr = err
			continue
		}
		return nil
	}
	return lastErr
}

// CompleteText runs prompt through the model and returns the raw text
// response, for callers (the quality judge) that have their own rubric
// prompt rather than one of the four typed operations.
func (a *AnthropicClient) CompleteText(ctx context.Context, prompt string) (string, error) {
	return a.complete(ctx, prompt)
}

func (a *AnthropicClient) GenerateHypotheses(ctx context.Context, alert domain.AnomalyAlert, investigationCtx domain.InvestigationContext) ([]domain.Hypothesis, error) {
	prompt := hypothesesPrompt(alert, investigationCtx)
	text, err := a.complete(ctx, prompt)
	if err != nil {
		return nil, err
	}
	var parsed hypothesesResponse
	if err := ParseJSON(text, &parsed); err != nil {
		return nil, fmt.Errorf("generate_hypotheses: %w", err)
	}
	hypotheses := parsed.toDomain()
	if len(hypotheses) == 0 {
		return nil, fmt.Errorf("generate_hypotheses: model returned no usable hypotheses")
	}
	return hypotheses, nil
}

func (a *AnthropicClient) GenerateQuery(ctx context.Context, alert domain.AnomalyAlert, investigationCtx domain.InvestigationContext, hypothesis domain.Hypothesis, priorQueries, failedQueries []string, critique string) (string, error) {
	prompt := queryPrompt(alert, investigationCtx, hypothesis, priorQueries, failedQueries, critique)
	text, err := a.complete(ctx, prompt)
	if err != nil {
		return "", err
	}
	var parsed queryResponse
	if err := ParseJSON(text, &parsed); err != nil {
		return "", fmt.Errorf("generate_query: %w", err)
	}
	if strings.TrimSpace(parsed.Query) == "" {
		return "", fmt.Errorf("generate_query: model returned an empty query")
	}
	return parsed.Query, nil
}

func (a *AnthropicClient) InterpretEvidence(ctx context.Context, alert domain.AnomalyAlert, hypothesis domain.Hypothesis, query string, result domain.QueryResult) (domain.Evidence, error) {
	prompt := interpretPrompt(alert, hypothesis, query, result)
	text, err := a.complete(ctx, prompt)
	if err != nil {
		return domain.Evidence{}, err
	}
	var parsed evidenceResponse
	if err := ParseJSON(text, &parsed); err != nil {
		return domain.Evidence{}, fmt.Errorf("interpret_evidence: %w", err)
	}
	return parsed.toDomain(hypothesis.ID, query, result.RowCount), nil
}

func (a *AnthropicClient) SynthesizeFindings(ctx context.Context, investigationID string, alert domain.AnomalyAlert, hypotheses []domain.Hypothesis, evidence []domain.Evidence) (domain.Finding, error) {
	prompt := synthesisPrompt(alert, hypotheses, evidence)
	text, err := a.complete(ctx, prompt)
	if err != nil {
		return domain.Finding{}, err
	}
	var parsed findingResponse
	if err := ParseJSON(text, &parsed); err != nil {
		return domain.Finding{}, fmt.Errorf("synthesize_findings: %w", err)
	}
	return parsed.toDomain(investigationID), nil
}
