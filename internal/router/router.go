package router

import (
	"gridflow/internal/handler/backtest"
	"gridflow/internal/handler/ping"
	"gridflow/internal/middleware"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type ApiRouter struct {
	bh *backtest.Handler
}

func NewApiRouter(bh *backtest.Handler) *ApiRouter {
	return &ApiRouter{bh: bh}
}

func (api *ApiRouter) Load(g *gin.Engine) {
	g.GET("/ping", ping.Ping())
	g.GET("/metrics", gin.WrapH(promhttp.Handler()))

	base := g.Group("/api/v1/backtest")

	// 只读接口
	r := base.Group("", middleware.AuthToken(false))
	{
		r.GET("/runs", api.bh.RunList())
		r.GET("/runs/:id", api.bh.RunStatus())
		r.GET("/runs/:id/detail", api.bh.RunDetail())
		r.GET("/runs/:id/top", api.bh.TopPerformers())
		r.GET("/runs/:id/errors", api.bh.RunErrors())
		r.GET("/runs/:id/results/:index", api.bh.ResultDetail())
		r.GET("/runs/:id/results/:index/snapshots", api.bh.ResultSnapshots())
	}

	// 修改运行状态需要 operator 角色
	w := base.Group("", middleware.AuthToken(true), middleware.AntiDuplicate())
	{
		w.POST("/runs", api.bh.RunCreate())
		w.POST("/runs/:id/start", api.bh.RunStart())
		w.POST("/runs/:id/pause", api.bh.RunPause())
		w.POST("/runs/:id/cancel", api.bh.RunCancel())
		w.POST("/runs/:id/resume", api.bh.RunResume())
		w.DELETE("/runs/:id", api.bh.RunDelete())
		w.POST("/ticks", api.bh.TicksImport())
		w.POST("/sentiment", api.bh.SentimentImport())
	}
}
