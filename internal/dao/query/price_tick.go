package query

import (
	"context"
	"fmt"
	"time"

	"gridflow/internal/dao"
	"gridflow/internal/model"
	"gridflow/internal/model/entity"
	"gridflow/utils/uuid"

	"gorm.io/gorm"
)

type priceTickDao struct {
	db *gorm.DB
}

func NewPriceTickDao(db *gorm.DB) dao.PriceTickDao {
	return &priceTickDao{db: db}
}

func (d *priceTickDao) SaveTicks(ctx context.Context, obs []model.PriceObservation) error {
	if len(obs) == 0 {
		return nil
	}
	rows := make([]entity.PriceTick, len(obs))
	for i, o := range obs {
		rows[i] = entity.PriceTick{
			ID:        uuid.NextID(),
			Symbol:    o.Symbol,
			Timestamp: o.Timestamp.UTC(),
			Price:     o.Price,
			Volume:    o.Volume,
			Bid:       o.Bid,
			Ask:       o.Ask,
			BidSize:   o.BidSize,
			AskSize:   o.AskSize,
		}
	}
	if err := d.db.WithContext(ctx).CreateInBatches(rows, batchSize).Error; err != nil {
		return fmt.Errorf("save price ticks: %w", err)
	}
	return nil
}

func (d *priceTickDao) Observations(ctx context.Context, symbols []string, from, to time.Time) ([]model.PriceObservation, error) {
	q := d.db.WithContext(ctx).Model(&entity.PriceTick{}).
		Where("symbol IN ?", symbols).
		Where("timestamp <= ?", to.UTC())
	if !from.IsZero() {
		q = q.Where("timestamp >= ?", from.UTC())
	}
	var rows []entity.PriceTick
	if err := q.Order("timestamp, symbol, id").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("load price ticks: %w", err)
	}
	out := make([]model.PriceObservation, len(rows))
	for i, r := range rows {
		out[i] = model.PriceObservation{
			Symbol:    r.Symbol,
			Timestamp: r.Timestamp.UTC(),
			Price:     r.Price,
			Volume:    r.Volume,
			Bid:       r.Bid,
			Ask:       r.Ask,
			BidSize:   r.BidSize,
			AskSize:   r.AskSize,
		}
	}
	return out, nil
}
