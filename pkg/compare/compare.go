package compare

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/MewOmOrphic-418/AliYunDashScopeIntegration/pkg/api"
	"github.com/MewOmOrphic-418/AliYunDashScopeIntegration/pkg/debug"
	"github.com/MewOmOrphic-418/AliYunDashScopeIntegration/pkg/observability"
	"github.com/MewOmOrphic-418/AliYunDashScopeIntegration/pkg/provider"
)

// Comparison kinds, used as the "kind" metric label.
const (
	KindChat      = "chat"
	KindEmbedding = "embedding"
)

// Comparison outcomes, used as the "outcome" metric label.
const (
	OutcomeBothOK     = "both_ok"
	OutcomePartial    = "partial"
	OutcomeBothFailed = "both_failed"
)

// Outcome is the result of one provider call within a comparison. Exactly
// one of Chat/Embedding or Error is set.
type Outcome struct {
	Provider   string          `json:"provider"`
	Chat       *api.ChatResult `json:"chat,omitempty"`
	Embedding  api.Embedding   `json:"embedding,omitempty"`
	Error      *api.APIError   `json:"error,omitempty"`
	Duration   time.Duration   `json:"-"`
	DurationMS int64           `json:"duration_ms"`
}

// OK reports whether the provider call succeeded.
func (o *Outcome) OK() bool {
	return o != nil && o.Error == nil
}

// Result holds the outcomes of one comparison keyed by provider name.
type Result struct {
	ID       string              `json:"id"`
	Kind     string              `json:"kind"`
	Outcomes map[string]*Outcome `json:"outcomes"`
}

// Succeeded returns the number of outcomes without an error.
func (r *Result) Succeeded() int {
	n := 0
	for _, o := range r.Outcomes {
		if o.OK() {
			n++
		}
	}
	return n
}

// Comparator fans a request out to two providers.
type Comparator struct {
	providers [2]provider.Provider
}

// New creates a Comparator over a and b. The providers must have distinct
// names since outcomes are keyed by name.
func New(a, b provider.Provider) *Comparator {
	return &Comparator{providers: [2]provider.Provider{a, b}}
}

// Providers returns the compared providers in construction order.
func (c *Comparator) Providers() []provider.Provider {
	return c.providers[:]
}

// CompareChat sends prompt through Chat on both providers. The returned
// Result is always populated; the error is a comparison_failed APIError
// only when both calls failed.
func (c *Comparator) CompareChat(ctx context.Context, prompt string) (*Result, error) {
	return c.run(ctx, KindChat, func(ctx context.Context, p provider.Provider, o *Outcome) error {
		res, err := p.Chat(ctx, prompt)
		if err != nil {
			return err
		}
		o.Chat = res
		return nil
	})
}

// CompareEmbedding sends text through Embed on both providers.
func (c *Comparator) CompareEmbedding(ctx context.Context, text string) (*Result, error) {
	return c.run(ctx, KindEmbedding, func(ctx context.Context, p provider.Provider, o *Outcome) error {
		vec, err := p.Embed(ctx, text)
		if err != nil {
			return err
		}
		o.Embedding = vec
		return nil
	})
}

type callFunc func(ctx context.Context, p provider.Provider, o *Outcome) error

func (c *Comparator) run(ctx context.Context, kind string, call callFunc) (*Result, error) {
	result := &Result{
		ID:       api.NewComparisonID(),
		Kind:     kind,
		Outcomes: make(map[string]*Outcome, len(c.providers)),
	}

	outcomes := make([]*Outcome, len(c.providers))
	var wg sync.WaitGroup
	for i, p := range c.providers {
		wg.Add(1)
		go func(idx int, p provider.Provider) {
			defer wg.Done()
			outcomes[idx] = invoke(ctx, p, call)
		}(i, p)
	}
	wg.Wait()

	for _, o := range outcomes {
		result.Outcomes[o.Provider] = o
	}

	label := outcomeLabel(result.Succeeded(), len(outcomes))
	observability.ComparisonOutcomesTotal.WithLabelValues(kind, label).Inc()
	debug.Log("compare", "comparison finished",
		"id", result.ID,
		"kind", kind,
		"outcome", label,
	)

	if label == OutcomeBothFailed {
		return result, api.NewComparisonFailedError(summarize(outcomes))
	}
	return result, nil
}

// invoke runs one provider call, converting a panic into a failed outcome.
func invoke(ctx context.Context, p provider.Provider, call callFunc) (o *Outcome) {
	o = &Outcome{Provider: p.Name()}
	start := time.Now()

	defer func() {
		if rec := recover(); rec != nil {
			slog.Error("provider panicked during comparison",
				"provider", o.Provider,
				"panic", rec,
			)
			o.Chat = nil
			o.Embedding = nil
			o.Error = api.NewServerError(fmt.Sprintf("provider %q panicked: %v", o.Provider, rec))
		}
		o.Duration = time.Since(start)
		o.DurationMS = o.Duration.Milliseconds()
	}()

	if err := call(ctx, p, o); err != nil {
		o.Error = api.AsAPIError(err)
		slog.Warn("comparison call failed",
			"provider", o.Provider,
			"error", err.Error(),
		)
	}
	return o
}

func outcomeLabel(succeeded, total int) string {
	switch succeeded {
	case total:
		return OutcomeBothOK
	case 0:
		return OutcomeBothFailed
	default:
		return OutcomePartial
	}
}

func summarize(outcomes []*Outcome) string {
	parts := make([]string, 0, len(outcomes))
	for _, o := range outcomes {
		parts = append(parts, fmt.Sprintf("%s: %s", o.Provider, o.Error.Error()))
	}
	sort.Strings(parts)
	return "all providers failed (" + strings.Join(parts, "; ") + ")"
}
