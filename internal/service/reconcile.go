package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"arcpay-merchant/internal/messaging"
	"arcpay-merchant/internal/model"
	"arcpay-merchant/internal/pubsub"
	"arcpay-merchant/internal/repository"
	"arcpay-merchant/internal/signature"
	"arcpay-merchant/internal/store"

	"github.com/rs/zerolog"
)

// Outcome classifies what a reconciliation did. Idempotent and Stale
// are successes: the delivery was understood and deliberately not
// applied, so the gateway must not redeliver it.
type Outcome string

const (
	OutcomeApplied    Outcome = "applied"
	OutcomeIdempotent Outcome = "idempotent"
	OutcomeStale      Outcome = "stale"
	OutcomeIgnored    Outcome = "ignored"
)

// Result is the post-reconciliation view. Order is the current
// snapshot for every outcome except Ignored.
type Result struct {
	Outcome Outcome
	Order   model.Order
}

// ReconcileService merges verified webhook events into the order
// store. Apply verifies first; a verification failure never reaches
// the state-mutating path.
type ReconcileService interface {
	// HandleWebhook verifies, decodes and applies a raw webhook
	// delivery. Verification failures surface before decode errors,
	// matching the boundary contract (403 beats 400 for a body that
	// is both unsigned and unparsable).
	HandleWebhook(ctx context.Context, body []byte, sig string) (*Result, error)
	Apply(ctx context.Context, event *model.WebhookEvent) (*Result, error)
}

type reconcileServiceImpl struct {
	verifier       signature.Verifier
	store          *store.Store
	publisher      *pubsub.Publisher
	orderRepo      repository.OrderRecordRepository
	transitionRepo repository.TransitionRepository
	eventPublisher messaging.EventPublisher
	testnet        bool
	logger         zerolog.Logger
}

func NewReconcileService(
	verifier signature.Verifier,
	orderStore *store.Store,
	publisher *pubsub.Publisher,
	orderRepo repository.OrderRecordRepository,
	transitionRepo repository.TransitionRepository,
	eventPublisher messaging.EventPublisher,
	testnet bool,
	logger zerolog.Logger,
) ReconcileService {
	return &reconcileServiceImpl{
		verifier:       verifier,
		store:          orderStore,
		publisher:      publisher,
		orderRepo:      orderRepo,
		transitionRepo: transitionRepo,
		eventPublisher: eventPublisher,
		testnet:        testnet,
		logger:         logger,
	}
}

func (s *reconcileServiceImpl) HandleWebhook(ctx context.Context, body []byte, sig string) (*Result, error) {
	if err := s.verifier.Verify(body, sig); err != nil {
		return nil, fmt.Errorf("verify webhook signature: %w", err)
	}

	event, err := parseWebhook(body, sig)
	if err != nil {
		return nil, err
	}
	return s.reconcile(ctx, event)
}

// parseWebhook decodes a raw webhook body into an event carrying the
// exact payload bytes the signature was computed over.
func parseWebhook(body []byte, sig string) (*model.WebhookEvent, error) {
	var payload model.WebhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("decode webhook payload: %w", err)
	}

	return &model.WebhookEvent{
		EventType:      payload.Event,
		UUID:           payload.Data.UUID,
		Status:         model.Status(payload.Data.Status),
		TxnHash:        payload.Data.TxnHash,
		CustomerWallet: payload.Data.CustomerWallet,
		RawPayload:     body,
		Signature:      sig,
	}, nil
}

// Apply runs the reconciliation state machine:
//
//  1. verify the signature over the raw payload;
//  2. synthesize a minimal created record when the uuid is unseen
//     (webhooks may outrun the create-order round trip);
//  3. rank-compare the incoming status against the stored one —
//     duplicates and backward deliveries are Idempotent no-ops,
//     events against a terminal order are Stale, forward jumps are
//     accepted without requiring adjacency;
//  4. apply accepted transitions atomically under the per-uuid lock
//     and fan the new snapshot out to subscribers.
//
// Archive, audit and bus writes after an accepted transition are
// best-effort and never change the outcome.
func (s *reconcileServiceImpl) Apply(ctx context.Context, event *model.WebhookEvent) (*Result, error) {
	if err := s.verifier.Verify(event.RawPayload, event.Signature); err != nil {
		return nil, fmt.Errorf("verify webhook signature: %w", err)
	}
	return s.reconcile(ctx, event)
}

func (s *reconcileServiceImpl) reconcile(ctx context.Context, event *model.WebhookEvent) (*Result, error) {
	if event.EventType != model.EventOrderStatusChanged {
		s.logger.Debug().Str("event", event.EventType).Msg("ignoring unknown webhook event type")
		return &Result{Outcome: OutcomeIgnored}, nil
	}
	if event.UUID == "" || !event.Status.Known() {
		s.logger.Debug().
			Str("uuid", event.UUID).
			Str("status", string(event.Status)).
			Msg("ignoring webhook with unknown order data")
		return &Result{Outcome: OutcomeIgnored}, nil
	}

	var (
		outcome   Outcome
		oldStatus model.Status
	)

	snapshot := s.store.Upsert(event.UUID, func(cur model.Order, exists bool) (model.Order, bool) {
		if !exists {
			next := model.Order{
				UUID:      event.UUID,
				Status:    model.StatusCreated,
				Testnet:   s.testnet,
				CreatedAt: time.Now(),
			}
			oldStatus = model.StatusCreated
			applyEvent(&next, event)
			next.Revision = 1
			outcome = OutcomeApplied
			return next, true
		}

		oldStatus = cur.Status
		switch {
		case cur.Status == event.Status:
			outcome = OutcomeIdempotent
			return cur, false
		case cur.Status.Terminal():
			outcome = OutcomeStale
			return cur, false
		case !forward(cur.Status, event.Status):
			outcome = OutcomeIdempotent
			return cur, false
		}

		next := cur
		applyEvent(&next, event)
		next.Revision = cur.Revision + 1
		outcome = OutcomeApplied
		return next, true
	})

	if outcome != OutcomeApplied {
		s.logger.Debug().
			Str("uuid", event.UUID).
			Str("status", string(event.Status)).
			Str("outcome", string(outcome)).
			Msg("webhook not applied")
		return &Result{Outcome: outcome, Order: snapshot}, nil
	}

	s.publisher.Publish(snapshot)
	s.persist(ctx, &snapshot, oldStatus)

	s.logger.Info().
		Str("uuid", snapshot.UUID).
		Str("from", string(oldStatus)).
		Str("to", string(snapshot.Status)).
		Uint64("revision", snapshot.Revision).
		Msg("order transition applied")

	return &Result{Outcome: OutcomeApplied, Order: snapshot}, nil
}

func (s *reconcileServiceImpl) persist(ctx context.Context, order *model.Order, oldStatus model.Status) {
	if err := s.orderRepo.Save(ctx, order); err != nil {
		s.logger.Error().Err(err).Str("uuid", order.UUID).Msg("archive order snapshot")
	}

	err := s.transitionRepo.Record(ctx, &model.OrderTransition{
		UUID:       order.UUID,
		FromStatus: string(oldStatus),
		ToStatus:   string(order.Status),
		TxnHash:    txnHash(order),
		Revision:   order.Revision,
		ReceivedAt: time.Now(),
	})
	if err != nil {
		s.logger.Error().Err(err).Str("uuid", order.UUID).Msg("record order transition")
	}

	if err := s.eventPublisher.PublishOrderStatusChanged(ctx, order, oldStatus); err != nil {
		s.logger.Error().Err(err).Str("uuid", order.UUID).Msg("publish order event")
	}
}

// forward reports whether moving from cur to next is accepted. failed
// and canceled absorb from any non-terminal state; happy-path statuses
// must strictly increase in rank, jumps allowed.
func forward(cur, next model.Status) bool {
	if next == model.StatusFailed || next == model.StatusCanceled {
		return true
	}
	curRank, ok := cur.Rank()
	if !ok {
		return false
	}
	nextRank, ok := next.Rank()
	if !ok {
		return false
	}
	return nextRank > curRank
}

// applyEvent copies the event's order data onto next. Txn hash and
// customer wallet are sticky: set on first association, never cleared.
func applyEvent(next *model.Order, event *model.WebhookEvent) {
	next.Status = event.Status
	if event.TxnHash != "" && next.Txn == nil {
		next.Txn = &model.OrderTxn{Hash: event.TxnHash}
	}
	if event.CustomerWallet != "" && next.Customer == nil {
		next.Customer = &model.OrderCustomer{Wallet: event.CustomerWallet}
	}
}

func txnHash(order *model.Order) string {
	if order.Txn == nil {
		return ""
	}
	return order.Txn.Hash
}
