package repository

import (
	"context"

	"arcpay-merchant/internal/model"

	"gorm.io/gorm"
)

// TransitionRepository records every accepted reconciliation, one row
// per revision, for audit and post-incident replay.
type TransitionRepository interface {
	Record(ctx context.Context, t *model.OrderTransition) error
	ListByUUID(ctx context.Context, uuid string) ([]*model.OrderTransition, error)
}

type transitionRepoImpl struct {
	db *gorm.DB
}

func NewTransitionRepository(db *gorm.DB) TransitionRepository {
	return &transitionRepoImpl{db: db}
}

func (r *transitionRepoImpl) Record(ctx context.Context, t *model.OrderTransition) error {
	return r.db.WithContext(ctx).Create(t).Error
}

func (r *transitionRepoImpl) ListByUUID(ctx context.Context, uuid string) ([]*model.OrderTransition, error) {
	var transitions []*model.OrderTransition
	err := r.db.WithContext(ctx).
		Where("uuid = ?", uuid).
		Order("revision ASC").
		Find(&transitions).Error
	if err != nil {
		return nil, err
	}

	return transitions, nil
}
