package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/causelab/causeway/internal/domain"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Completer is a single-turn chat completion transport. The oracle layers
// retries, rate limiting and response parsing on top of it.
type Completer interface {
	Complete(ctx context.Context, prompt string, maxTokens int) (string, error)
}

// Oracle adapts a chat completer into a knowledge oracle. Transport errors
// and malformed responses are retried with exponential backoff; exhaustion
// surfaces as domain.ErrOracleUnavailable so the engine can degrade instead
// of abort.
type Oracle struct {
	client  Completer
	limiter *rate.Limiter
	retries int
	backoff time.Duration
	logger  *zap.Logger
}

func NewOracle(client Completer, opts Options, logger *zap.Logger) *Oracle {
	return &Oracle{
		client:  client,
		limiter: rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), opts.Burst),
		retries: opts.MaxRetries,
		backoff: opts.Backoff,
		logger:  logger,
	}
}

var _ domain.KnowledgeOracle = (*Oracle)(nil)

// completeJSON issues the prompt and decodes the response into out. A
// response that fails to decode counts as a failed attempt just like a
// transport error; exhausting the retry budget either way surfaces as
// domain.ErrOracleUnavailable.
func (o *Oracle) completeJSON(ctx context.Context, prompt string, maxTokens int, out any) error {
	var lastErr error
	for attempt := 0; attempt <= o.retries; attempt++ {
		if attempt > 0 {
			delay := o.backoff << (attempt - 1)
			o.logger.Debug("retrying oracle call", zap.Int("attempt", attempt), zap.Duration("delay", delay), zap.Error(lastErr))
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		if err := o.limiter.Wait(ctx); err != nil {
			return err
		}
		result, err := o.client.Complete(ctx, prompt, maxTokens)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			lastErr = err
			continue
		}
		if err := json.Unmarshal([]byte(stripFences(result)), out); err != nil {
			lastErr = fmt.Errorf("parse response: %w (raw: %s)", err, result)
			continue
		}
		return nil
	}
	return fmt.Errorf("%w: %v", domain.ErrOracleUnavailable, lastErr)
}

func (o *Oracle) ProposeRoots(ctx context.Context, variables []domain.Variable) ([]domain.RootProposal, error) {
	var proposals []domain.RootProposal
	if err := o.completeJSON(ctx, fmt.Sprintf(rootsPrompt, variableList(variables)), 1024, &proposals); err != nil {
		return nil, err
	}
	for i := range proposals {
		proposals[i].Confidence = clamp01(proposals[i].Confidence)
	}
	return proposals, nil
}

func (o *Oracle) ProposeEffects(ctx context.Context, node domain.Variable, ectx domain.ExpansionContext) ([]domain.EffectProposal, error) {
	prompt := fmt.Sprintf(effectsPrompt,
		fmt.Sprintf("%s: %s", node.Name, node.Description),
		variableList(ectx.Remaining),
		orEmpty(ectx.GraphSummary))
	var proposals []domain.EffectProposal
	if err := o.completeJSON(ctx, prompt, 1024, &proposals); err != nil {
		return nil, err
	}
	for i := range proposals {
		proposals[i].Confidence = clamp01(proposals[i].Confidence)
	}
	return proposals, nil
}

func (o *Oracle) Reconcile(ctx context.Context, req domain.ReconcileRequest) (*domain.Reconciliation, error) {
	prompt := fmt.Sprintf(reconcilePrompt,
		req.Edge.String(),
		req.Edge.Mechanism,
		req.Reason,
		req.Narrative,
		orEmpty(req.GraphSummary))
	var rec domain.Reconciliation
	if err := o.completeJSON(ctx, prompt, 512, &rec); err != nil {
		return nil, err
	}
	verdict := rec.Verdict
	rec.Verdict = domain.ReconcileVerdict(strings.ToUpper(string(rec.Verdict)))
	switch rec.Verdict {
	case domain.VerdictConfirm, domain.VerdictReject, domain.VerdictModify:
	default:
		// An unrecognized verdict must not promote the edge.
		rec.Verdict = domain.VerdictReject
		rec.Explanation = fmt.Sprintf("unrecognized verdict %q in oracle response", verdict)
	}
	rec.Confidence = clamp01(rec.Confidence)
	return &rec, nil
}

func (o *Oracle) JudgePath(ctx context.Context, path []domain.Variable) (*domain.PathJudgment, error) {
	names := make([]string, len(path))
	for i, v := range path {
		names[i] = v.Name
	}
	var judgment domain.PathJudgment
	if err := o.completeJSON(ctx, fmt.Sprintf(pathPrompt, strings.Join(names, " -> ")), 512, &judgment); err != nil {
		return nil, err
	}
	judgment.Plausibility = clamp01(judgment.Plausibility)
	return &judgment, nil
}

func variableList(variables []domain.Variable) string {
	if len(variables) == 0 {
		return "(none)"
	}
	var sb strings.Builder
	for _, v := range variables {
		sb.WriteString("- ")
		sb.WriteString(v.Name)
		if v.Description != "" {
			sb.WriteString(": ")
			sb.WriteString(v.Description)
		}
		sb.WriteString("\n")
	}
	return strings.TrimRight(sb.String(), "\n")
}

// stripFences removes markdown code fences if present.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

func orEmpty(s string) string {
	if s == "" {
		return "(empty graph)"
	}
	return s
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
