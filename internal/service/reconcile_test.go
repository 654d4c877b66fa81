package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"arcpay-merchant/internal/messaging/noop"
	"arcpay-merchant/internal/model"
	"arcpay-merchant/internal/pubsub"
	"arcpay-merchant/internal/repository"
	"arcpay-merchant/internal/signature"
	"arcpay-merchant/internal/store"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

var testSecret = []byte("test-private-key")

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	// A named shared-cache DB keeps gorm's pooled connections on the
	// same in-memory database while isolating tests from each other.
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&model.OrderRecord{}, &model.OrderTransition{}))
	return db
}

type reconcileFixture struct {
	svc            ReconcileService
	store          *store.Store
	publisher      *pubsub.Publisher
	transitionRepo repository.TransitionRepository
}

func newReconcileFixture(t *testing.T) *reconcileFixture {
	t.Helper()
	db := newTestDB(t)

	orderStore := store.New()
	publisher := pubsub.NewPublisher()
	transitionRepo := repository.NewTransitionRepository(db)

	svc := NewReconcileService(
		signature.NewVerifier(testSecret),
		orderStore,
		publisher,
		repository.NewOrderRecordRepository(db),
		transitionRepo,
		noop.Publisher{},
		true,
		zerolog.Nop(),
	)

	return &reconcileFixture{
		svc:            svc,
		store:          orderStore,
		publisher:      publisher,
		transitionRepo: transitionRepo,
	}
}

func webhookBody(t *testing.T, uuid string, status model.Status, extra map[string]string) []byte {
	t.Helper()
	data := map[string]string{
		"uuid":   uuid,
		"status": string(status),
	}
	for k, v := range extra {
		data[k] = v
	}
	body, err := json.Marshal(map[string]any{
		"event": model.EventOrderStatusChanged,
		"data":  data,
	})
	require.NoError(t, err)
	return body
}

func (f *reconcileFixture) deliver(t *testing.T, uuid string, status model.Status) *Result {
	t.Helper()
	body := webhookBody(t, uuid, status, nil)
	result, err := f.svc.HandleWebhook(context.Background(), body, signature.Sign(body, testSecret))
	require.NoError(t, err)
	return result
}

func TestInvalidSignatureNeverTouchesStore(t *testing.T) {
	f := newReconcileFixture(t)

	body := webhookBody(t, "abc-1", model.StatusReceived, nil)
	_, err := f.svc.HandleWebhook(context.Background(), body, "deadbeef")
	assert.ErrorIs(t, err, signature.ErrInvalidSignature)

	_, ok := f.store.Get("abc-1")
	assert.False(t, ok, "unauthorized event must not create state")
}

func TestEventPrecedesCreation(t *testing.T) {
	f := newReconcileFixture(t)

	result := f.deliver(t, "abc-1", model.StatusReceived)
	assert.Equal(t, OutcomeApplied, result.Outcome)
	assert.Equal(t, model.StatusReceived, result.Order.Status)
	assert.Equal(t, uint64(1), result.Order.Revision)
	assert.True(t, result.Order.Testnet)

	got, ok := f.store.Get("abc-1")
	require.True(t, ok)
	assert.Equal(t, model.StatusReceived, got.Status)
}

func TestReplayIsIdempotent(t *testing.T) {
	f := newReconcileFixture(t)

	first := f.deliver(t, "abc-1", model.StatusProcessing)
	require.Equal(t, OutcomeApplied, first.Outcome)

	replay := f.deliver(t, "abc-1", model.StatusProcessing)
	assert.Equal(t, OutcomeIdempotent, replay.Outcome)
	assert.Equal(t, first.Order.Revision, replay.Order.Revision, "replay must not mutate")

	transitions, err := f.transitionRepo.ListByUUID(context.Background(), "abc-1")
	require.NoError(t, err)
	assert.Len(t, transitions, 1, "one mutation, one audit row")
}

func TestBackwardDeliveryIsIdempotent(t *testing.T) {
	f := newReconcileFixture(t)

	f.deliver(t, "abc-1", model.StatusProcessing)
	result := f.deliver(t, "abc-1", model.StatusPending)

	assert.Equal(t, OutcomeIdempotent, result.Outcome)
	assert.Equal(t, model.StatusProcessing, result.Order.Status)
}

func TestForwardJumpAccepted(t *testing.T) {
	f := newReconcileFixture(t)

	// captured arrives before processing for a fresh uuid
	result := f.deliver(t, "abc-1", model.StatusCaptured)
	assert.Equal(t, OutcomeApplied, result.Outcome)
	assert.Equal(t, model.StatusCaptured, result.Order.Status)

	late := f.deliver(t, "abc-1", model.StatusProcessing)
	assert.Equal(t, OutcomeStale, late.Outcome)

	got, _ := f.store.Get("abc-1")
	assert.Equal(t, model.StatusCaptured, got.Status)
}

func TestTerminalAbsorption(t *testing.T) {
	terminals := []model.Status{model.StatusCaptured, model.StatusFailed, model.StatusCanceled}
	for _, terminal := range terminals {
		t.Run(string(terminal), func(t *testing.T) {
			f := newReconcileFixture(t)
			uuid := "term-" + string(terminal)

			f.deliver(t, uuid, model.StatusPending)
			require.Equal(t, OutcomeApplied, f.deliver(t, uuid, terminal).Outcome)

			for _, next := range []model.Status{model.StatusProcessing, model.StatusReceived, model.StatusCaptured, model.StatusFailed} {
				result := f.deliver(t, uuid, next)
				if next == terminal {
					assert.Equal(t, OutcomeIdempotent, result.Outcome)
				} else {
					assert.Equal(t, OutcomeStale, result.Outcome)
				}
				got, _ := f.store.Get(uuid)
				assert.Equal(t, terminal, got.Status, "terminal state must never change")
			}
		})
	}
}

func TestFailureReachableFromAnyNonTerminal(t *testing.T) {
	f := newReconcileFixture(t)

	f.deliver(t, "abc-1", model.StatusReceived)
	result := f.deliver(t, "abc-1", model.StatusFailed)

	assert.Equal(t, OutcomeApplied, result.Outcome)
	assert.Equal(t, model.StatusFailed, result.Order.Status)
	assert.Equal(t, uint64(2), result.Order.Revision)
}

func TestRevisionMonotonicAcrossTransitions(t *testing.T) {
	f := newReconcileFixture(t)

	statuses := []model.Status{model.StatusPending, model.StatusProcessing, model.StatusReceived, model.StatusCaptured}
	var last uint64
	for _, st := range statuses {
		result := f.deliver(t, "abc-1", st)
		require.Equal(t, OutcomeApplied, result.Outcome)
		assert.Greater(t, result.Order.Revision, last)
		last = result.Order.Revision
	}
	assert.Equal(t, uint64(len(statuses)), last)
}

func TestTxnHashAndWalletAreSticky(t *testing.T) {
	f := newReconcileFixture(t)

	body := webhookBody(t, "abc-1", model.StatusProcessing, map[string]string{
		"txnHash":        "hash-1",
		"customerWallet": "EQwallet",
	})
	result, err := f.svc.HandleWebhook(context.Background(), body, signature.Sign(body, testSecret))
	require.NoError(t, err)
	require.Equal(t, OutcomeApplied, result.Outcome)
	require.NotNil(t, result.Order.Txn)
	assert.Equal(t, "hash-1", result.Order.Txn.Hash)
	require.NotNil(t, result.Order.Customer)
	assert.Equal(t, "EQwallet", result.Order.Customer.Wallet)

	// A later event without txn data must not clear either field.
	next := f.deliver(t, "abc-1", model.StatusReceived)
	require.NotNil(t, next.Order.Txn)
	assert.Equal(t, "hash-1", next.Order.Txn.Hash)
	require.NotNil(t, next.Order.Customer)
}

func TestUnknownEventTypeIgnored(t *testing.T) {
	f := newReconcileFixture(t)

	body := []byte(`{"event":"merchant.updated","data":{"uuid":"abc-1","status":"received"}}`)
	result, err := f.svc.HandleWebhook(context.Background(), body, signature.Sign(body, testSecret))
	require.NoError(t, err)
	assert.Equal(t, OutcomeIgnored, result.Outcome)

	_, ok := f.store.Get("abc-1")
	assert.False(t, ok)
}

func TestUnknownStatusIgnored(t *testing.T) {
	f := newReconcileFixture(t)

	body := webhookBody(t, "abc-1", model.Status("refunded"), nil)
	result, err := f.svc.HandleWebhook(context.Background(), body, signature.Sign(body, testSecret))
	require.NoError(t, err)
	assert.Equal(t, OutcomeIgnored, result.Outcome)
}

func TestMalformedBodyRejectedAfterVerification(t *testing.T) {
	f := newReconcileFixture(t)

	body := []byte(`{not json`)
	_, err := f.svc.HandleWebhook(context.Background(), body, signature.Sign(body, testSecret))
	assert.Error(t, err)
	assert.NotErrorIs(t, err, signature.ErrInvalidSignature)
}

func TestAppliedTransitionsReachSubscribers(t *testing.T) {
	f := newReconcileFixture(t)

	f.deliver(t, "abc-1", model.StatusPending)

	sub := f.publisher.Subscribe("abc-1")
	defer sub.Close()

	f.deliver(t, "abc-1", model.StatusCaptured)

	snapshot := <-sub.C()
	assert.Equal(t, model.StatusCaptured, snapshot.Status)
	assert.Equal(t, uint64(2), snapshot.Revision)

	// No-op reconciliations publish nothing.
	f.deliver(t, "abc-1", model.StatusCaptured)
	select {
	case o := <-sub.C():
		t.Fatalf("unexpected publish for no-op: %+v", o)
	default:
	}
}

func TestDistinctOrdersReconcileIndependently(t *testing.T) {
	f := newReconcileFixture(t)

	for i := 0; i < 5; i++ {
		uuid := fmt.Sprintf("ord-%d", i)
		require.Equal(t, OutcomeApplied, f.deliver(t, uuid, model.StatusPending).Outcome)
	}
	require.Equal(t, OutcomeApplied, f.deliver(t, "ord-0", model.StatusCaptured).Outcome)

	for i := 1; i < 5; i++ {
		got, ok := f.store.Get(fmt.Sprintf("ord-%d", i))
		require.True(t, ok)
		assert.Equal(t, model.StatusPending, got.Status)
	}
}
