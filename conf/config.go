package conf

import (
	"fmt"
	"gopkg.in/yaml.v3"
	"os"
	"time"
)

// 配置加载（数据库、缓存、回测参数等）

type Db struct {
	Driver   string `yaml:"driver"` // mysql 或 sqlite
	DbName   string `yaml:"dbname"`
	Host     string `yaml:"host"`
	Port     string `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

type LogConfig struct {
	Level      string `yaml:"level"`
	FileName   string `yaml:"file-name"`
	TimeFormat string `yaml:"time-format"`
	MaxSize    int    `yaml:"max-size"`
	MaxBackups int    `yaml:"max-backups"`
	MaxAge     int    `yaml:"max-age"`
	Compress   bool   `yaml:"compress"`
	LocalTime  bool   `yaml:"local-time"`
	Console    bool   `yaml:"console"`
}

// RedisConfig is used to configure redis
type RedisConfig struct {
	Addr         string `yaml:"address"`
	Password     string `yaml:"password"`
	Db           int    `yaml:"db"`
	PoolSize     int    `yaml:"pool-size"`
	MinIdleConns int    `yaml:"min-idle-conns"`
	IdleTimeout  int    `yaml:"idle-timeout"`
}

type JwtConfig struct {
	Secret string `yaml:"secret"`
	JwtTtl int64  `yaml:"ttl"` // token 有效期（秒）
}

type KafkaConfig struct {
	Broker        string `yaml:"broker"`
	TaskTopic     string `yaml:"task-topic"`     // 回测任务队列
	ProgressTopic string `yaml:"progress-topic"` // 回测进度事件
	GroupID       string `yaml:"group-id"`
}

// BacktestConfig 回测引擎参数
type BacktestConfig struct {
	BatchSize       int                           `yaml:"batch-size"`        // 每批次配置数量
	Workers         int                           `yaml:"workers"`           // 并发 worker 数量，1 表示串行
	TopN            int                           `yaml:"top-n"`             // 运行结束时统计的最佳配置数量
	MaxConfigs      int                           `yaml:"max-configs"`       // 单次运行允许的最大配置数量
	InitialFund     float64                       `yaml:"initial-fund"`      // 默认初始资金
	Precision       int32                         `yaml:"precision"`         // 盈亏保留的小数位
	CandlePeriod    time.Duration                 `yaml:"candle-period"`     // K线聚合周期
	EtaSafetyMargin float64                       `yaml:"eta-safety-margin"` // ETA 安全系数
	RecorderPath    string                        `yaml:"recorder-path"`     // 快照流落盘路径，空表示不落盘
	SentimentMaxAge time.Duration                 `yaml:"sentiment-max-age"` // 舆情数据有效期，0 表示不限
	ControlCache    int                           `yaml:"control-cache"`     // 内存中保留的运行进度个数
	Thresholds      map[string]map[string]float64 `yaml:"thresholds"`        // 运行级默认阈值 kind -> key -> value
}

// WithDefaults 对未配置的字段填充默认值
func (c BacktestConfig) WithDefaults() BacktestConfig {
	if c.BatchSize <= 0 {
		c.BatchSize = 50
	}
	if c.Workers <= 0 {
		c.Workers = 4
	}
	if c.TopN <= 0 {
		c.TopN = 10
	}
	if c.MaxConfigs <= 0 {
		c.MaxConfigs = 100000
	}
	if c.InitialFund <= 0 {
		c.InitialFund = 10000
	}
	if c.Precision <= 0 {
		c.Precision = 4
	}
	if c.CandlePeriod <= 0 {
		c.CandlePeriod = 24 * time.Hour
	}
	if c.EtaSafetyMargin <= 0 {
		c.EtaSafetyMargin = 1.1
	}
	return c
}

type Config struct {
	AppName      string `yaml:"app_name"`
	Listen       string `yaml:"listen"`
	Mode         string `yaml:"mode"`
	MaxPingCount int    `yaml:"max-ping-count"`
	WorkerMode   bool   `yaml:"worker-mode"` // 是否作为 kafka 任务消费者运行

	Db       `yaml:"database"`
	Log      LogConfig      `yaml:"log"`
	Jwt      JwtConfig      `yaml:"jwt"`
	Redis    RedisConfig    `yaml:"redis"`
	Kafka    KafkaConfig    `yaml:"kafka"`
	Backtest BacktestConfig `yaml:"backtest"`
}

var AppConfig Config

func LoadConfig(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("Read config file error %w", err)
	}
	if err := yaml.Unmarshal(data, &AppConfig); err != nil {
		return fmt.Errorf("Unmarshal config yaml error: %w", err)
	}
	AppConfig.Backtest = AppConfig.Backtest.WithDefaults()
	return nil
}
