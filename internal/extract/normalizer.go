// Package extract turns free-form input (pasted text, receipt or payment
// screenshots) into a draft transaction by delegating field extraction to a
// generative model and reconciling the answer against the closed taxonomy.
package extract

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/dvloznov/autoledger/internal/domain"
	"github.com/dvloznov/autoledger/internal/taxonomy"
)

// Input is the raw material for one extraction: pasted text, an image, or
// both. At least one must be present.
type Input struct {
	Text  string
	Image *Image
}

// Image is a photographed receipt or payment screenshot.
type Image struct {
	Bytes    []byte
	MIMEType string
}

// Draft is the unvalidated candidate transaction produced by one extraction.
// It has no id and is never persisted; the caller confirms or discards it.
// Date is empty when the model gave none or gave something unparseable, in
// which case the caller defaults to today.
type Draft struct {
	Type     taxonomy.TransactionType `json:"type"`
	Amount   decimal.Decimal          `json:"amount"`
	Merchant string                   `json:"merchant"`
	Category taxonomy.Category        `json:"category"`
	Date     string                   `json:"date,omitempty"`
}

// ErrEmptyInput is returned when neither text nor image is supplied.
var ErrEmptyInput = errors.New("extract: no text or image supplied")

// AIError wraps any failure of the model call or of its answer: transport
// errors, empty responses, unparseable bodies, missing required fields.
type AIError struct {
	Op  string
	Err error
}

func (e *AIError) Error() string {
	return fmt.Sprintf("extract: %s: %v", e.Op, e.Err)
}

func (e *AIError) Unwrap() error { return e.Err }

// Analyzer is the external AI capability. Implementations send exactly one
// request per call and return the model's raw JSON object; they do not
// retry.
type Analyzer interface {
	Analyze(ctx context.Context, input Input) (map[string]interface{}, error)
}

// Normalizer runs the two-stage normalization: one Analyzer call, then
// reconciliation of the raw answer into a Draft. It is stateless and safe
// for concurrent use; single-flight sequencing is the caller's policy.
type Normalizer struct {
	analyzer Analyzer
	log      zerolog.Logger
}

// NewNormalizer creates a normalizer around the given analyzer.
func NewNormalizer(analyzer Analyzer, log zerolog.Logger) *Normalizer {
	return &Normalizer{analyzer: analyzer, log: log}
}

// Normalize performs one extraction. It makes exactly one outbound model
// call and surfaces the first failure immediately; partial answers are never
// returned.
func (n *Normalizer) Normalize(ctx context.Context, input Input) (Draft, error) {
	if input.Text == "" && input.Image == nil {
		return Draft{}, ErrEmptyInput
	}

	raw, err := n.analyzer.Analyze(ctx, input)
	if err != nil {
		return Draft{}, &AIError{Op: "analyze", Err: err}
	}

	draft, err := draftFromModelOutput(raw)
	if err != nil {
		return Draft{}, &AIError{Op: "decode model output", Err: err}
	}

	// Category reconciliation: the model's free text never overrides the
	// closed taxonomy. A miss is substituted, not rejected.
	if !taxonomy.IsValidFor(draft.Category, draft.Type) {
		fallback := taxonomy.DefaultCategory(draft.Type)
		n.log.Warn().
			Str("model_category", string(draft.Category)).
			Str("type", string(draft.Type)).
			Str("fallback", string(fallback)).
			Msg("Category outside taxonomy, using default")
		draft.Category = fallback
	}

	// A malformed date is dropped rather than failing the extraction; the
	// caller fills in today.
	if draft.Date != "" {
		if _, err := time.Parse(domain.DateLayout, draft.Date); err != nil {
			n.log.Warn().Str("model_date", draft.Date).Msg("Unparseable date from model, leaving unset")
			draft.Date = ""
		}
	}

	return draft, nil
}
