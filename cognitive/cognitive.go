// Package cognitive implements the fixed three-stage enrichment pipeline
// (normalize, enrich, synthesize) over a Context. The enrich stage can
// delegate to a model.Model; without one it derives deterministic heuristics
// from the input and the fused sensor signals.
package cognitive

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hivemesh/hivemesh/core"
	"github.com/hivemesh/hivemesh/fusion"
	"github.com/hivemesh/hivemesh/logging"
	"github.com/hivemesh/hivemesh/model"
)

// ErrEmptyInput is returned when processing a context with no input text.
var ErrEmptyInput = errors.New("empty input")

// Stage names annotate which pipeline stages a context has passed.
const (
	StageNormalized  = "normalized"
	StageEnriched    = "enriched"
	StageSynthesized = "synthesized"
)

// Context is the unit the pipeline operates on. Signals carry fused sensor
// readings attached by the caller; Annotations and Summary are produced by
// the pipeline.
type Context struct {
	ID          string                `json:"id"`
	SessionID   string                `json:"session_id,omitempty"`
	Input       string                `json:"input"`
	Signals     []fusion.ContextValue `json:"signals,omitempty"`
	Annotations map[string]any        `json:"annotations,omitempty"`
	Summary     string                `json:"summary,omitempty"`
	Stages      []string              `json:"stages,omitempty"`
	ProcessedAt time.Time             `json:"processed_at,omitzero"`
}

// Clone returns a deep copy safe for independent mutation.
func (c Context) Clone() Context {
	cp := c
	if c.Signals != nil {
		cp.Signals = append([]fusion.ContextValue(nil), c.Signals...)
	}
	if c.Annotations != nil {
		cp.Annotations = make(map[string]any, len(c.Annotations))
		for k, v := range c.Annotations {
			cp.Annotations[k] = v
		}
	}
	if c.Stages != nil {
		cp.Stages = append([]string(nil), c.Stages...)
	}
	return cp
}

// Options configures a Processor instance.
type Options struct {
	// Model optionally backs the enrich stage. Nil keeps enrichment
	// deterministic.
	Model model.Model

	// Clock stamps processed contexts. Defaults to the wall clock.
	Clock core.Clock

	// Logger defaults to NoOpLogger if nil.
	Logger logging.Logger
}

// Processor runs contexts through the fixed pipeline. Stateless besides its
// configuration; safe for concurrent use.
type Processor struct {
	mdl    model.Model
	clock  core.Clock
	logger logging.Logger
}

// New creates a Processor.
func New(optFns ...func(o *Options)) *Processor {
	opts := Options{
		Clock:  core.NewScheduler(),
		Logger: logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}
	return &Processor{mdl: opts.Model, clock: opts.Clock, logger: opts.Logger}
}

// Process runs the three stages in order and returns the enriched context.
// The input context is not mutated.
func (p *Processor) Process(ctx context.Context, c Context) (Context, error) {
	out := c.Clone()

	if err := p.normalize(&out); err != nil {
		return Context{}, err
	}
	if err := p.enrich(ctx, &out); err != nil {
		return Context{}, err
	}
	p.synthesize(&out)

	out.ProcessedAt = p.clock.Now()
	p.logger.Debug("context processed", "context_id", out.ID, "stages", len(out.Stages))
	return out, nil
}

// normalize trims and whitespace-collapses the input and assigns an id.
func (p *Processor) normalize(c *Context) error {
	c.Input = strings.Join(strings.Fields(c.Input), " ")
	if c.Input == "" {
		return ErrEmptyInput
	}
	if c.ID == "" {
		c.ID = core.NewID()
	}
	c.Stages = append(c.Stages, StageNormalized)
	return nil
}

// enrich attaches derived annotations: input statistics, per-kind signal
// aggregates and, when a model is configured, a model-produced note.
func (p *Processor) enrich(ctx context.Context, c *Context) error {
	if c.Annotations == nil {
		c.Annotations = make(map[string]any)
	}
	c.Annotations["word_count"] = len(strings.Fields(c.Input))

	if len(c.Signals) > 0 {
		kinds := make(map[string]int)
		for _, s := range c.Signals {
			kinds[s.Kind]++
		}
		c.Annotations["signal_kinds"] = kinds
	}

	if p.mdl != nil {
		note, err := p.mdl.Complete(ctx, enrichPrompt(c.Input))
		if err != nil {
			return fmt.Errorf("enrich via %s: %w", p.mdl.Info().Provider, err)
		}
		c.Annotations["model_note"] = note
	}

	c.Stages = append(c.Stages, StageEnriched)
	return nil
}

// synthesize folds input and annotations into the summary plus an audit
// digest of the whole context.
func (p *Processor) synthesize(c *Context) {
	var sb strings.Builder
	sb.WriteString(c.Input)
	if note, ok := c.Annotations["model_note"].(string); ok && note != "" {
		sb.WriteString(" | ")
		sb.WriteString(note)
	}
	if len(c.Signals) > 0 {
		fmt.Fprintf(&sb, " | %d signal(s)", len(c.Signals))
	}
	c.Summary = sb.String()
	c.Annotations["digest"] = core.HashPayload(c.Input)
	c.Stages = append(c.Stages, StageSynthesized)
}

func enrichPrompt(input string) string {
	return "Summarize the key intent of the following in one sentence: " + input
}
