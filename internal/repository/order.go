package repository

import (
	"context"
	"time"

	"arcpay-merchant/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// OrderRecordRepository is the durable write-through archive behind
// the in-memory store: every accepted snapshot is saved here and the
// store is repopulated from it at boot.
type OrderRecordRepository interface {
	Save(ctx context.Context, order *model.Order) error
	FindByUUID(ctx context.Context, uuid string) (*model.Order, error)
	LoadAll(ctx context.Context) ([]model.Order, error)
}

type orderRecordRepoImpl struct {
	db *gorm.DB
}

func NewOrderRecordRepository(db *gorm.DB) OrderRecordRepository {
	return &orderRecordRepoImpl{db: db}
}

func (r *orderRecordRepoImpl) Save(ctx context.Context, order *model.Order) error {
	rec := order.ToRecord()
	rec.UpdatedAt = time.Now()

	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "uuid"}},
			UpdateAll: true,
		}).
		Create(rec).Error
}

func (r *orderRecordRepoImpl) FindByUUID(ctx context.Context, uuid string) (*model.Order, error) {
	var rec model.OrderRecord
	err := r.db.WithContext(ctx).
		Where("uuid = ?", uuid).
		First(&rec).Error
	if err != nil {
		return nil, err
	}

	order := rec.ToOrder()
	return &order, nil
}

func (r *orderRecordRepoImpl) LoadAll(ctx context.Context) ([]model.Order, error) {
	var recs []model.OrderRecord
	if err := r.db.WithContext(ctx).Find(&recs).Error; err != nil {
		return nil, err
	}

	orders := make([]model.Order, len(recs))
	for i := range recs {
		orders[i] = recs[i].ToOrder()
	}
	return orders, nil
}
