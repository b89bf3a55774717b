package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"gridflow/internal/dao/query"
	"gridflow/internal/model"
	"gridflow/internal/model/entity"
	"gridflow/internal/orchestrator"
	"gridflow/internal/strategy"
	"gridflow/pkg/db"
	pkgerrors "gridflow/pkg/errors"
	"gridflow/pkg/errors/ecode"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2024, 6, 3, 14, 30, 0, 0, time.UTC)

// buyOnce 第 0 步买入一股，之后一直持有
type buyOnce struct{}

func (buyOnce) Name() string { return "service_test_buy_once" }

func (buyOnce) New(*model.BotConfig) (strategy.Callback, error) {
	return strategy.CallbackFunc(func(req strategy.DecisionRequest) (model.Decision, error) {
		if req.Step == 0 {
			return model.Decision{Action: model.ActionBuy, PositionSize: 1}, nil
		}
		return model.HoldDecision("idle"), nil
	}), nil
}

func init() {
	strategy.Register(buyOnce{})
}

type okDispatcher struct{ runs []string }

func (d *okDispatcher) Dispatch(_ context.Context, runID string) error {
	d.runs = append(d.runs, runID)
	return nil
}

type downDispatcher struct{}

func (downDispatcher) Dispatch(context.Context, string) error {
	return errors.New("broker unavailable")
}

func newService(t *testing.T, d orchestrator.Dispatcher, maxConfigs int) (*BacktestService, *orchestrator.Launcher) {
	t.Helper()
	conn, err := db.Open(db.Config{Driver: db.DriverSQLite, DBName: ":memory:"})
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(entity.All()...))
	runs := query.NewBacktestDao(conn)
	ticks := query.NewPriceTickDao(conn)
	sentiment := query.NewSentimentDao(conn)
	orch := orchestrator.New(runs, ticks, orchestrator.Options{BatchSize: 2, Workers: 2, TopN: 1, Precision: 2},
		orchestrator.WithSentimentLoader(sentiment))
	l := orchestrator.NewLauncher(context.Background(), orch, d)
	return NewBacktestService(runs, ticks, sentiment, orch, l, maxConfigs), l
}

func spec() model.RunSpec {
	return model.RunSpec{
		Name:           "two thresholds",
		Strategy:       buyOnce{}.Name(),
		StockUniverse:  []string{"AAPL"},
		Ranges:         map[string]any{"risk_thresholds": []any{0.3, 0.6}},
		ExecutionStart: t0,
		ExecutionEnd:   t0.Add(4 * time.Hour),
		InitialFund:    1000,
	}
}

func codeOf(err error) int {
	code, _ := pkgerrors.DecodeErr(err)
	return code
}

func TestCreateRunValidates(t *testing.T) {
	s, _ := newService(t, &okDispatcher{}, 1)
	ctx := context.Background()

	bad := spec()
	bad.StockUniverse = nil
	_, _, err := s.CreateRun(ctx, bad)
	assert.Equal(t, ecode.ValidateErr, codeOf(err))

	bad = spec()
	bad.ExecutionEnd = t0.Add(-time.Hour)
	_, _, err = s.CreateRun(ctx, bad)
	assert.Equal(t, ecode.ValidateErr, codeOf(err))

	_, total, err := s.CreateRun(ctx, spec())
	assert.Equal(t, ecode.LimitErr, codeOf(err))
	assert.Equal(t, 2, total)
}

func TestControlTransitions(t *testing.T) {
	d := &okDispatcher{}
	s, _ := newService(t, d, 0)
	ctx := context.Background()

	run, total, err := s.CreateRun(ctx, spec())
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.Len(t, run.ID, 36)

	p, err := s.Progress(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RunPending, p.Status)
	assert.Equal(t, 2, p.TotalBots)

	assert.Equal(t, ecode.StateErr, codeOf(s.Pause(ctx, run.ID)))

	queued, err := s.Start(ctx, run.ID)
	require.NoError(t, err)
	assert.True(t, queued)
	assert.Equal(t, []string{run.ID}, d.runs)

	_, err = s.Start(ctx, run.ID)
	assert.Equal(t, ecode.StateErr, codeOf(err))

	require.NoError(t, s.Pause(ctx, run.ID))
	queued, err = s.Resume(ctx, run.ID)
	require.NoError(t, err)
	assert.True(t, queued)
	assert.Len(t, d.runs, 2)

	_, err = s.Top(ctx, run.ID)
	assert.Equal(t, ecode.StateErr, codeOf(err))
	assert.Equal(t, ecode.StateErr, codeOf(s.DeleteRun(ctx, run.ID)))

	require.NoError(t, s.Cancel(ctx, run.ID))
	_, err = s.Resume(ctx, run.ID)
	assert.Equal(t, ecode.StateErr, codeOf(err))

	require.NoError(t, s.DeleteRun(ctx, run.ID))
	_, err = s.GetRun(ctx, run.ID)
	assert.Equal(t, ecode.NotFoundErr, codeOf(err))
	assert.Equal(t, ecode.NotFoundErr, codeOf(s.Cancel(ctx, "missing")))
}

func TestStartFallsBackToLocalExecution(t *testing.T) {
	s, l := newService(t, downDispatcher{}, 0)
	ctx := context.Background()

	var obs []model.PriceObservation
	for i := 0; i < 4; i++ {
		obs = append(obs, model.PriceObservation{Symbol: "AAPL", Timestamp: t0.Add(time.Duration(i) * time.Hour), Price: 100 + float64(i), Volume: 5})
	}
	require.NoError(t, s.ImportTicks(ctx, obs))
	assert.Equal(t, ecode.ValidateErr, codeOf(s.ImportTicks(ctx, []model.PriceObservation{{Symbol: "AAPL"}})))

	run, _, err := s.CreateRun(ctx, spec())
	require.NoError(t, err)
	queued, err := s.Start(ctx, run.ID)
	require.NoError(t, err)
	assert.False(t, queued)
	l.Wait()

	p, err := s.Progress(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RunCompleted, p.Status)
	assert.Equal(t, 2, p.BotsCompleted)
	assert.Equal(t, 100.0, p.Progress)

	top, err := s.Top(ctx, run.ID)
	require.NoError(t, err)
	require.Len(t, top, 1)
	assert.Equal(t, 0, top[0].BotIndex)
	assert.Equal(t, 3.0, top[0].TotalProfit)

	res, err := s.Result(ctx, run.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, res.BuyCount)

	snaps, err := s.Snapshots(ctx, run.ID, 1, 0, 0)
	require.NoError(t, err)
	assert.Len(t, snaps, 4)

	_, err = s.Result(ctx, run.ID, 9)
	assert.Equal(t, ecode.NotFoundErr, codeOf(err))

	errs, err := s.Errors(ctx, run.ID)
	require.NoError(t, err)
	assert.Empty(t, errs)
}

func TestCreateRunRejectsUnknownNames(t *testing.T) {
	s, _ := newService(t, &okDispatcher{}, 0)
	ctx := context.Background()

	bad := spec()
	bad.Ranges = map[string]any{"ml_weights": map[string]any{"lstm": []any{1.0}}}
	_, _, err := s.CreateRun(ctx, bad)
	assert.Equal(t, ecode.ValidateErr, codeOf(err))
	assert.ErrorContains(t, err, "lstm")

	bad = spec()
	bad.Strategy = "no_such_strategy"
	_, _, err = s.CreateRun(ctx, bad)
	assert.Equal(t, ecode.ValidateErr, codeOf(err))

	ok := spec()
	ok.Ranges = map[string]any{"ml_weights": map[string]any{"momentum": []any{0.5, 1.0}, "linear_trend": 1}}
	_, total, err := s.CreateRun(ctx, ok)
	require.NoError(t, err)
	assert.Equal(t, 2, total)
}

func TestCreateRunRejectsOverflowingGrid(t *testing.T) {
	s, _ := newService(t, &okDispatcher{}, 0)
	vals := func(n int) []any {
		out := make([]any, n)
		for i := range out {
			out[i] = i + 1
		}
		return out
	}
	bad := spec()
	bad.Ranges = map[string]any{
		"risk_thresholds":         vals(256),
		"holding_periods":         vals(1024),
		"stop_losses":             vals(1024),
		"take_profits":            vals(1024),
		"risk_adjustment_factors": vals(1024),
		"persistence_types":       []any{"window"},
		"persistence_values":      vals(1024),
		"pattern_groups":          []any{"reversal", "indecision", "multi_candle"},
	}
	bad.SocialFlags = []bool{true, false}
	bad.NewsFlags = []bool{true, false}
	run, _, err := s.CreateRun(context.Background(), bad)
	assert.Equal(t, ecode.LimitErr, codeOf(err))
	assert.Nil(t, run)

	runs, err := s.ListRuns(context.Background(), "", 10)
	require.NoError(t, err)
	assert.Empty(t, runs)
}

func TestSentimentFlagsNeedSource(t *testing.T) {
	ctx := context.Background()
	s, _ := newService(t, &okDispatcher{}, 0)
	withNews := spec()
	withNews.NewsFlags = []bool{false, true}
	_, total, err := s.CreateRun(ctx, withNews)
	require.NoError(t, err)
	assert.Equal(t, 4, total)

	noSource := NewBacktestService(s.dao, s.ticks, nil, s.orch, s.launcher, 0)
	_, _, err = noSource.CreateRun(ctx, withNews)
	assert.Equal(t, ecode.ValidateErr, codeOf(err))
	_, _, err = noSource.CreateRun(ctx, spec())
	assert.NoError(t, err)
	assert.Equal(t, ecode.ValidateErr, codeOf(noSource.ImportSentiment(ctx, []model.SentimentObservation{
		{Symbol: "AAPL", Channel: model.SentimentNews, Timestamp: t0, Score: 0.5},
	})))
}

func TestImportSentiment(t *testing.T) {
	ctx := context.Background()
	s, _ := newService(t, &okDispatcher{}, 0)
	require.NoError(t, s.ImportSentiment(ctx, []model.SentimentObservation{
		{Symbol: "nasdaq:aapl", Channel: model.SentimentNews, Timestamp: t0, Score: 0.5},
		{Symbol: "AAPL", Channel: model.SentimentSocial, Timestamp: t0.Add(time.Hour), Score: -0.2},
	}))
	pts, err := s.sentiment.Sentiment(ctx, []string{"AAPL"}, model.SentimentNews, time.Time{}, t0.Add(time.Hour))
	require.NoError(t, err)
	require.Len(t, pts, 1)
	assert.Equal(t, 0.5, pts[0].Score)

	assert.Equal(t, ecode.ValidateErr, codeOf(s.ImportSentiment(ctx, []model.SentimentObservation{
		{Symbol: "AAPL", Channel: model.SentimentNews, Timestamp: t0, Score: 2},
	})))
	assert.Equal(t, ecode.ValidateErr, codeOf(s.ImportSentiment(ctx, []model.SentimentObservation{
		{Symbol: "AAPL", Channel: "rumour", Timestamp: t0, Score: 0.1},
	})))
}
