// Package ingest runs a webhook delivery through signature verification,
// payload validation and idempotent persistence.
package ingest

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"github.com/navansh03/LyftrAI-Webhook-Backend-Assignment/internal/crypto"
	"github.com/navansh03/LyftrAI-Webhook-Backend-Assignment/internal/metrics"
	"github.com/navansh03/LyftrAI-Webhook-Backend-Assignment/internal/models"
	"github.com/navansh03/LyftrAI-Webhook-Backend-Assignment/internal/store"
)

// State is a step of the ingestion state machine.
type State string

const (
	StateReceived        State = "received"
	StateAuthenticating  State = "authenticating"
	StateValidating      State = "validating"
	StatePersisting      State = "persisting"
	StateDone            State = "done"
	StateRejectedAuth    State = "rejected_auth"
	StateRejectedPayload State = "rejected_payload"
	StateFailed          State = "failed"
)

// Result classifies a terminal outcome; it is the webhook_requests_total label.
type Result string

const (
	ResultCreated          Result = "created"
	ResultDuplicate        Result = "duplicate"
	ResultInvalidSignature Result = "invalid_signature"
	ResultValidationError  Result = "validation_error"
	ResultStoreUnavailable Result = "store_unavailable"
	ResultNotConfigured    Result = "not_configured"
)

// Inserter is the part of the message store the pipeline writes through.
type Inserter interface {
	InsertIfAbsent(ctx context.Context, msg *models.Message) (store.InsertOutcome, error)
}

// Publisher receives newly stored messages. Duplicates are never published.
type Publisher interface {
	Publish(ctx context.Context, msg *models.Message) error
}

// Outcome is the terminal state of one delivery.
type Outcome struct {
	State     State
	Result    Result
	MessageID string
	Duplicate bool
	// Err is the classified failure, if any: crypto.ErrSecretNotConfigured,
	// models.ErrMalformedPayload, *models.ValidationError or store.ErrUnavailable.
	Err error
}

// Pipeline wires the verifier, validator and store together.
type Pipeline struct {
	verifier      *crypto.Verifier
	store         Inserter
	publisher     Publisher
	maxTextLength int
	logger        zerolog.Logger
}

// Option customizes a Pipeline.
type Option func(*Pipeline)

// WithPublisher fans newly stored messages out to pub.
func WithPublisher(pub Publisher) Option {
	return func(p *Pipeline) { p.publisher = pub }
}

// WithMaxTextLength bounds the text field.
func WithMaxTextLength(n int) Option {
	return func(p *Pipeline) { p.maxTextLength = n }
}

// WithLogger sets the logger used for publish failures.
func WithLogger(logger zerolog.Logger) Option {
	return func(p *Pipeline) { p.logger = logger }
}

// NewPipeline creates a pipeline. A nil verifier means no secret is
// configured and every delivery is refused.
func NewPipeline(verifier *crypto.Verifier, s Inserter, opts ...Option) *Pipeline {
	p := &Pipeline{
		verifier:      verifier,
		store:         s,
		maxTextLength: models.DefaultMaxTextLength,
		logger:        zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Ready reports whether the pipeline can accept deliveries.
func (p *Pipeline) Ready() bool {
	return p.verifier != nil
}

// Process runs one delivery. body must be the exact bytes read off the wire.
// Each step only runs when the previous one succeeded.
func (p *Pipeline) Process(ctx context.Context, body []byte, signature string) Outcome {
	out := Outcome{State: StateReceived}

	if p.verifier == nil {
		return out.fail(StateFailed, ResultNotConfigured, crypto.ErrSecretNotConfigured)
	}

	out.State = StateAuthenticating
	if !p.verifier.Verify(body, signature) {
		return out.fail(StateRejectedAuth, ResultInvalidSignature, nil)
	}

	out.State = StateValidating
	msg, err := models.ParseMessage(body, p.maxTextLength)
	if err != nil {
		return out.fail(StateRejectedPayload, ResultValidationError, err)
	}
	out.MessageID = msg.MessageID

	out.State = StatePersisting
	inserted, err := p.store.InsertIfAbsent(ctx, msg)
	if err != nil {
		if !errors.Is(err, store.ErrUnavailable) {
			err = errors.Join(store.ErrUnavailable, err)
		}
		return out.fail(StateFailed, ResultStoreUnavailable, err)
	}

	out.State = StateDone
	if inserted == store.Duplicate {
		out.Result = ResultDuplicate
		out.Duplicate = true
		return out
	}

	out.Result = ResultCreated
	p.publish(ctx, msg)
	return out
}

func (p *Pipeline) publish(ctx context.Context, msg *models.Message) {
	if p.publisher == nil {
		return
	}
	if err := p.publisher.Publish(ctx, msg); err != nil {
		metrics.EventsPublished.WithLabelValues("error").Inc()
		p.logger.Warn().
			Err(err).
			Str("message_id", msg.MessageID).
			Msg("publish ingested message failed")
		return
	}
	metrics.EventsPublished.WithLabelValues("ok").Inc()
}

func (o Outcome) fail(state State, result Result, err error) Outcome {
	o.State = state
	o.Result = result
	o.Err = err
	return o
}
