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

type sentimentDao struct {
	db *gorm.DB
}

func NewSentimentDao(db *gorm.DB) dao.SentimentDao {
	return &sentimentDao{db: db}
}

func (d *sentimentDao) SaveSentiment(ctx context.Context, pts []model.SentimentObservation) error {
	if len(pts) == 0 {
		return nil
	}
	rows := make([]entity.SentimentPoint, len(pts))
	for i, p := range pts {
		rows[i] = entity.SentimentPoint{
			ID:        uuid.NextID(),
			Symbol:    p.Symbol,
			Channel:   string(p.Channel),
			Timestamp: p.Timestamp.UTC(),
			Score:     p.Score,
		}
	}
	if err := d.db.WithContext(ctx).CreateInBatches(rows, batchSize).Error; err != nil {
		return fmt.Errorf("save sentiment: %w", err)
	}
	return nil
}

func (d *sentimentDao) Sentiment(ctx context.Context, symbols []string, channel model.SentimentChannel, from, to time.Time) ([]model.SentimentObservation, error) {
	q := d.db.WithContext(ctx).Model(&entity.SentimentPoint{}).
		Where("symbol IN ? AND channel = ?", symbols, string(channel)).
		Where("timestamp <= ?", to.UTC())
	if !from.IsZero() {
		q = q.Where("timestamp >= ?", from.UTC())
	}
	var rows []entity.SentimentPoint
	if err := q.Order("timestamp, symbol, id").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("load sentiment: %w", err)
	}
	out := make([]model.SentimentObservation, len(rows))
	for i, r := range rows {
		out[i] = model.SentimentObservation{
			Symbol:    r.Symbol,
			Channel:   model.SentimentChannel(r.Channel),
			Timestamp: r.Timestamp.UTC(),
			Score:     r.Score,
		}
	}
	return out, nil
}
