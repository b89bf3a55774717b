package query

import (
	"context"
	"testing"
	"time"

	"gridflow/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSentimentFiltersByChannelAndRange(t *testing.T) {
	ctx := context.Background()
	d := NewSentimentDao(openTestDB(t))
	require.NoError(t, d.SaveSentiment(ctx, nil))
	require.NoError(t, d.SaveSentiment(ctx, []model.SentimentObservation{
		{Symbol: "AAPL", Channel: model.SentimentNews, Timestamp: t0.Add(2 * time.Hour), Score: 0.4},
		{Symbol: "AAPL", Channel: model.SentimentNews, Timestamp: t0, Score: 0.1},
		{Symbol: "MSFT", Channel: model.SentimentNews, Timestamp: t0.Add(time.Hour), Score: -0.3},
		{Symbol: "AAPL", Channel: model.SentimentSocial, Timestamp: t0, Score: 0.9},
		{Symbol: "TSLA", Channel: model.SentimentNews, Timestamp: t0, Score: 0.7},
		{Symbol: "AAPL", Channel: model.SentimentNews, Timestamp: t0.Add(5 * time.Hour), Score: 1},
	}))

	pts, err := d.Sentiment(ctx, []string{"AAPL", "MSFT"}, model.SentimentNews, time.Time{}, t0.Add(2*time.Hour))
	require.NoError(t, err)
	require.Len(t, pts, 3)
	assert.Equal(t, []float64{0.1, -0.3, 0.4}, []float64{pts[0].Score, pts[1].Score, pts[2].Score})
	assert.Equal(t, model.SentimentNews, pts[0].Channel)

	pts, err = d.Sentiment(ctx, []string{"AAPL"}, model.SentimentNews, t0.Add(time.Hour), t0.Add(6*time.Hour))
	require.NoError(t, err)
	require.Len(t, pts, 2)
	assert.True(t, pts[0].Timestamp.Equal(t0.Add(2*time.Hour)))

	pts, err = d.Sentiment(ctx, []string{"AAPL"}, model.SentimentSocial, time.Time{}, t0.Add(6*time.Hour))
	require.NoError(t, err)
	require.Len(t, pts, 1)
	assert.Equal(t, 0.9, pts[0].Score)
}
