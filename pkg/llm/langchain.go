package llm

import (
	"context"
	"fmt"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/anthropic"
	"github.com/tmc/langchaingo/prompts"

	"github.com/jordigilh/investigator/pkg/domain"
)

// LangchainClient implements Client via langchaingo's provider-agnostic
// llms.Model abstraction. It exists alongside AnthropicClient so the
// quality judge (pkg/judge) can run on a distinct provider/model from the
// investigation LLM without pkg/judge depending on pkg/llm's concrete
// Anthropic wiring.
type LangchainClient struct {
	model     llms.Model
	maxTokens int
	template  *prompts.PromptTemplate
}

// NewLangchainClient builds a Client backed by langchaingo's Anthropic
// provider. cfg.Provider selecting "langchain" routes judge calls here
// instead of through AnthropicClient.
func NewLangchainClient(cfg Config) (*LangchainClient, error) {
	opts := []anthropic.Option{anthropic.WithToken(cfg.APIKey)}
	if cfg.Model != "" {
		opts = append(opts, anthropic.WithModel(cfg.Model))
	}
	if cfg.Endpoint != "" {
		opts = append(opts, anthropic.WithBaseURL(cfg.Endpoint))
	}
	model, err := anthropic.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("langchain anthropic provider: %w", err)
	}
	maxTokens := cfg.MaxTokens
	if maxTokens == 0 {
		maxTokens = 4096
	}
	tpl := prompts.NewPromptTemplate("{{.prompt}}", []string{"prompt"})
	return &LangchainClient{model: model, maxTokens: maxTokens, template: &tpl}, nil
}

func (c *LangchainClient) complete(ctx context.Context, prompt string) (string, error) {
	rendered, err := c.template.Format(map[string]any{"prompt": prompt})
	if err != nil {
		return "", fmt.Errorf("render prompt template: %w", err)
	}
	return llms.GenerateFromSinglePrompt(ctx, c.model, rendered, llms.WithMaxTokens(c.maxTokens))
}

// CompleteText runs prompt through the model and returns the raw text
// response, for callers (the quality judge) that have their own rubric
// prompt rather than one of the four typed operations.
func (c *LangchainClient) CompleteText(ctx context.Context, prompt string) (string, error) {
	return c.complete(ctx, prompt)
}

func (c *LangchainClient) GenerateHypotheses(ctx context.Context, alert domain.AnomalyAlert, investigationCtx domain.InvestigationContext) ([]domain.Hypothesis, error) {
	text, err := c.complete(ctx, hypothesesPrompt(alert, investigationCtx))
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

func (c *LangchainClient) GenerateQuery(ctx context.Context, alert domain.AnomalyAlert, investigationCtx domain.InvestigationContext, hypothesis domain.Hypothesis, priorQueries, failedQueries []string, critique string) (string, error) {
	text, err := c.complete(ctx, queryPrompt(alert, investigationCtx, hypothesis, priorQueries, failedQueries, critique))
	if err != nil {
		return "", err
	}
	var parsed queryResponse
	if err := ParseJSON(text, &parsed); err != nil {
		return "", fmt.Errorf("generate_query: %w", err)
	}
	return parsed.Query, nil
}

func (c *LangchainClient) InterpretEvidence(ctx context.Context, alert domain.AnomalyAlert, hypothesis domain.Hypothesis, query string, result domain.QueryResult) (domain.Evidence, error) {
	text, err := c.complete(ctx, interpretPrompt(alert, hypothesis, query, result))
	if err != nil {
		return domain.Evidence{}, err
	}
	var parsed evidenceResponse
	if err := ParseJSON(text, &parsed); err != nil {
		return domain.Evidence{}, fmt.Errorf("interpret_evidence: %w", err)
	}
	return parsed.toDomain(hypothesis.ID, query, result.RowCount), nil
}

func (c *LangchainClient) SynthesizeFindings(ctx context.Context, investigationID string, alert domain.AnomalyAlert, hypotheses []domain.Hypothesis, evidence []domain.Evidence) (domain.Finding, error) {
	text, err := c.complete(ctx, synthesisPrompt(alert, hypotheses, evidence))
	if err != nil {
		return domain.Finding{}, err
	}
	var parsed findingResponse
	if err := ParseJSON(text, &parsed); err != nil {
		return domain.Finding{}, fmt.Errorf("synthesize_findings: %w", err)
	}
	return parsed.toDomain(investigationID), nil
}

// NewClient builds a Client from cfg.Provider: "langchain" routes through
// LangchainClient, anything else (including the empty default) uses
// AnthropicClient directly.
func NewClient(cfg Config) (Client, error) {
	if cfg.Provider == "langchain" {
		return NewLangchainClient(cfg)
	}
	return NewAnthropicClient(cfg), nil
}
