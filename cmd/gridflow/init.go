package api

import (
	"context"

	"gridflow/conf"
	"gridflow/internal/cache"
	"gridflow/internal/dao/query"
	"gridflow/internal/handler/backtest"
	"gridflow/internal/orchestrator"
	"gridflow/internal/router"
	"gridflow/internal/service"
	pkgcache "gridflow/pkg/cache"
	"gridflow/pkg/kafka"
	"gridflow/pkg/logger"

	"gorm.io/gorm"
)

// App 进程内的回测组件
type App struct {
	Router   Router
	worker   *service.TaskWorker
	launcher *orchestrator.Launcher
	cancel   context.CancelFunc
	base     context.Context
	producer kafka.ProducerService
	consumer kafka.ConsumerService
	done     chan struct{}
}

func InitApp(db *gorm.DB, cfg *conf.Config) *App {
	bt := cfg.Backtest
	runs := cache.NewRunStore(query.NewBacktestDao(db), pkgcache.GetRedisClient())
	ticks := query.NewPriceTickDao(db)
	sentiment := query.NewSentimentDao(db)

	extra := []orchestrator.Option{orchestrator.WithSentimentLoader(sentiment)}
	if bt.RecorderPath != "" {
		extra = append(extra, orchestrator.WithSnapshotSink(service.NewSnapshotRecorder(bt.RecorderPath)))
	}

	app := &App{done: make(chan struct{})}
	var dispatcher orchestrator.Dispatcher
	if cfg.Kafka.Broker != "" {
		app.producer = kafka.NewKafkaProducer(cfg.Kafka.Broker)
		if cfg.Kafka.TaskTopic != "" {
			dispatcher = orchestrator.NewKafkaDispatcher(app.producer, cfg.Kafka.TaskTopic)
		}
		if cfg.Kafka.ProgressTopic != "" {
			extra = append(extra, orchestrator.WithProgressPublisher(orchestrator.NewKafkaProgressPublisher(app.producer, cfg.Kafka.ProgressTopic)))
		}
	}

	orch := orchestrator.New(runs, ticks, orchestrator.Options{
		BatchSize:    bt.BatchSize,
		Workers:      bt.Workers,
		TopN:         bt.TopN,
		InitialFund:  bt.InitialFund,
		Precision:    bt.Precision,
		CandlePeriod: bt.CandlePeriod,
		ETAMargin:    bt.EtaSafetyMargin,
		Thresholds:   bt.Thresholds,

		ControlCacheSize: bt.ControlCache,
		SentimentMaxAge:  bt.SentimentMaxAge,
	}, extra...)

	// 本地执行的运行在进程退出时取消，orchestrator 会在批次边界把它们置为 paused
	app.base, app.cancel = context.WithCancel(context.Background())
	app.launcher = orchestrator.NewLauncher(app.base, orch, dispatcher)

	svc := service.NewBacktestService(runs, ticks, sentiment, orch, app.launcher, bt.MaxConfigs)
	app.Router = router.NewApiRouter(backtest.NewHandler(svc))

	if cfg.WorkerMode && cfg.Kafka.Broker != "" {
		app.consumer = kafka.NewKafkaConsumer(cfg.Kafka.Broker)
		app.worker = service.NewTaskWorker(app.consumer, orch, cfg.Kafka.TaskTopic, cfg.Kafka.GroupID)
	}
	return app
}

// Start worker 模式下开始消费任务 topic
func (a *App) Start() {
	if a.worker == nil {
		close(a.done)
		return
	}
	go func() {
		defer close(a.done)
		if err := a.worker.Run(a.base); err != nil {
			logger.Error("task worker exited", logger.Pair("err", err))
		}
	}()
}

// Stop 通知正在执行的运行在批次边界挂起
func (a *App) Stop() {
	a.cancel()
}

// Close 等待运行挂起后释放 kafka 连接
func (a *App) Close() {
	a.cancel()
	<-a.done
	a.launcher.Wait()
	if a.consumer != nil {
		a.consumer.Close()
	}
	if a.producer != nil {
		a.producer.Close()
	}
}
