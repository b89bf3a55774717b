package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"gridflow/cmd/gridflow"
	"gridflow/conf"
	"gridflow/internal/middleware"
	"gridflow/internal/model/entity"
	"gridflow/pkg/cache"
	"gridflow/pkg/db"
	"gridflow/pkg/logger"
	"gridflow/pkg/metrics"
	"gridflow/pkg/utils"
	"gridflow/utils/uuid"

	"github.com/spf13/cast"
	"gorm.io/gorm"
)

/*
示例

TOKEN=...  # operator 角色的 jwt

curl -X POST http://localhost:12180/api/v1/backtest/runs \
  -H "Authorization: Bearer $TOKEN" \
  -H "Content-Type: application/json" \
  -d '{"name":"aapl grid","stock_universe":["AAPL","MSFT"],"ranges":{"risk_thresholds":[0.3,0.5]},
       "execution_start":"2024-06-03T13:30:00Z","execution_end":"2024-06-07T20:00:00Z","initial_fund":10000}'

curl -X POST http://localhost:12180/api/v1/backtest/runs/$RUN_ID/start -H "Authorization: Bearer $TOKEN"
curl http://localhost:12180/api/v1/backtest/runs/$RUN_ID -H "Authorization: Bearer $TOKEN"
*/

func main() {
	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = "conf/config.yaml"
	}
	// 加载配置文件
	if err := conf.LoadConfig(path); err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	appCfg := &conf.AppConfig
	logger.InitLogger(&appCfg.Log, appCfg.AppName)
	defer logger.Sync()

	if nodeID := os.Getenv("NODE_ID"); nodeID != "" {
		if err := uuid.InitNode(cast.ToInt64(nodeID)); err != nil {
			logger.Fatalf("invalid NODE_ID %s: %v", nodeID, err)
		}
	}

	dbUser := os.Getenv("DB_USER")
	dbPass := os.Getenv("DB_PASSWORD")
	dbHost := os.Getenv("DB_HOST")
	dbPort := os.Getenv("DB_PORT")
	dbName := os.Getenv("DB_NAME")
	if dbUser == "" || dbPass == "" || dbHost == "" {
		dbUser = appCfg.Username
		dbPass = appCfg.Db.Password
		dbHost = appCfg.Host
		dbPort = appCfg.Port
		dbName = appCfg.DbName
	}

	// 初始化数据库
	var datasource *gorm.DB
	dbCfg := db.NewConfig(appCfg.Driver, dbUser, dbPass, dbHost, dbPort, dbName)
	err := utils.Retry(context.Background(), 5, time.Second, true, func() error {
		var err error
		datasource, err = db.Init(dbCfg)
		return err
	})
	if err != nil {
		logger.Fatalf("init database failed: %v", err)
	}
	if err := datasource.AutoMigrate(entity.All()...); err != nil {
		logger.Fatalf("migrate database failed: %v", err)
	}

	redisHost := os.Getenv("REDIS_HOST")
	redisPort := os.Getenv("REDIS_PORT")
	if redisHost != "" && redisPort != "" {
		appCfg.Redis.Addr = fmt.Sprintf("%s:%s", redisHost, redisPort)
	}
	if redisPassword := os.Getenv("REDIS_PASSWORD"); redisPassword != "" {
		appCfg.Redis.Password = redisPassword
	}
	// 初始化redis缓存，不可用时状态直接读写数据库
	if err := utils.Retry(context.Background(), 3, time.Second, false, func() error {
		return cache.InitRedis(appCfg.Redis)
	}); err != nil {
		logger.Warnf("redis unavailable, run status cache disabled: %v", err)
	}

	if broker := os.Getenv("KAFKA_BROKER"); broker != "" {
		appCfg.Kafka.Broker = broker
	}

	metrics.InitMetrics()

	app := api.InitApp(datasource, appCfg)
	app.Start()

	// 创建并启动服务
	srv := api.NewServer(appCfg)
	srv.RegisterOnShutdown(app.Stop)
	srv.Run(middleware.NewMiddleware(), app.Router)

	app.Close()
	cache.CloseRedis()
	if sqlDB, err := datasource.DB(); err == nil {
		_ = sqlDB.Close()
	}
	logger.Info("gridflow stopped")
}
