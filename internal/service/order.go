package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"arcpay-merchant/internal/client"
	"arcpay-merchant/internal/dto"
	"arcpay-merchant/internal/model"
	"arcpay-merchant/internal/repository"
	"arcpay-merchant/internal/store"

	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

// ErrNotFound marks an unknown order uuid on query.
var ErrNotFound = errors.New("order not found")

// OrderService owns the synchronous order flows: creation through the
// gateway and state queries against the store.
type OrderService interface {
	Create(ctx context.Context, req *dto.CreateOrderRequest) (*model.Order, error)
	Get(ctx context.Context, uuid string) (*model.Order, error)
	List(ctx context.Context) []model.Order
	// PopulateStore loads archived orders into the store at boot.
	PopulateStore(ctx context.Context) (int, error)
}

type orderServiceImpl struct {
	arcPayClient client.ArcPayClient
	store        *store.Store
	orderRepo    repository.OrderRecordRepository
	logger       zerolog.Logger
}

func NewOrderService(
	arcPayClient client.ArcPayClient,
	orderStore *store.Store,
	orderRepo repository.OrderRecordRepository,
	logger zerolog.Logger,
) OrderService {
	return &orderServiceImpl{
		arcPayClient: arcPayClient,
		store:        orderStore,
		orderRepo:    orderRepo,
		logger:       logger,
	}
}

// Create forwards the order to the gateway and records the response.
// The gateway call is not retried: creation is not idempotent
// upstream, and a retry could mint a duplicate order. On gateway
// failure no local record is written.
func (s *orderServiceImpl) Create(ctx context.Context, req *dto.CreateOrderRequest) (*model.Order, error) {
	order, err := s.arcPayClient.CreateOrder(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("arcpay create order: %w", err)
	}

	// A webhook can land before this response; Upsert keeps whichever
	// state is further along.
	snapshot := s.store.Upsert(order.UUID, func(cur model.Order, exists bool) (model.Order, bool) {
		if exists {
			return cur, false
		}
		return *order, true
	})

	if err := s.orderRepo.Save(ctx, &snapshot); err != nil {
		s.logger.Error().Err(err).Str("uuid", snapshot.UUID).Msg("archive created order")
	}

	s.logger.Info().
		Str("uuid", snapshot.UUID).
		Str("orderId", snapshot.OrderID).
		Str("status", string(snapshot.Status)).
		Msg("order created")

	return &snapshot, nil
}

// Get resolves an order from the store, falling back to the durable
// archive and finally the gateway for uuids this process has not seen.
// Gateway-resolved orders are cached in the store.
func (s *orderServiceImpl) Get(ctx context.Context, uuid string) (*model.Order, error) {
	if order, ok := s.store.Get(uuid); ok {
		return &order, nil
	}

	archived, err := s.orderRepo.FindByUUID(ctx, uuid)
	if err == nil {
		cached := s.cache(*archived)
		return &cached, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		s.logger.Error().Err(err).Str("uuid", uuid).Msg("read order archive")
	}

	fetched, err := s.arcPayClient.FetchOrder(ctx, uuid)
	if err != nil {
		var apiErr *client.APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("arcpay fetch order: %w", err)
	}

	cached := s.cache(*fetched)
	return &cached, nil
}

func (s *orderServiceImpl) List(_ context.Context) []model.Order {
	return s.store.List()
}

func (s *orderServiceImpl) PopulateStore(ctx context.Context) (int, error) {
	orders, err := s.orderRepo.LoadAll(ctx)
	if err != nil {
		return 0, fmt.Errorf("load archived orders: %w", err)
	}

	for _, order := range orders {
		s.store.Put(order)
	}
	return len(orders), nil
}

// cache stores order unless a reconciliation already produced a newer
// revision for the same uuid.
func (s *orderServiceImpl) cache(order model.Order) model.Order {
	return s.store.Upsert(order.UUID, func(cur model.Order, exists bool) (model.Order, bool) {
		if exists && cur.Revision >= order.Revision {
			return cur, false
		}
		return order, true
	})
}
