package server

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/xxz807/betikbank/internal/ledger/api"
	"github.com/xxz807/betikbank/internal/platform/auth"
	"github.com/xxz807/betikbank/internal/platform/config"
	"github.com/xxz807/betikbank/internal/platform/metrics"
)

// RequestIDHeader 请求追踪头
const RequestIDHeader = "X-Request-ID"

// Server 封装 HTTP 服务
type Server struct {
	engine *gin.Engine
	logger *zap.Logger
	port   string
	server *http.Server
}

// NewServer 初始化 HTTP Server (包含网关逻辑)
func NewServer(
	logger *zap.Logger,
	cfg config.ServerConfig,
	issuer *auth.TokenIssuer,
	metric *metrics.Prometheus,
	gatherer prometheus.Gatherer,
	// 依赖注入：传入具体的 Handler
	handler *api.Handler,
) *Server {

	if logger == nil {
		logger = zap.NewNop()
	}

	// 1. 设置 Gin 模式
	if cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// ==========================================
	// Logical Gateway Layer (逻辑网关层)
	// ==========================================

	// 1. Recovery (防崩)
	r.Use(gin.Recovery())

	// 2. Request ID
	r.Use(requestID())

	// 3. Custom Logger (接入 Zap)
	r.Use(accessLog(logger))

	// 4. Metrics (按路由模板聚合，避免 path 参数撑爆标签)
	if metric != nil {
		r.Use(observe(metric))
	}

	// 5. CORS (跨域处理 - 允许前端访问)
	r.Use(cors())

	// ==========================================
	// Routing Layer (路由分发)
	// ==========================================

	v1 := r.Group("/api/v1")
	{
		// 健康检查
		v1.GET("/health", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"status": "UP"})
		})

		// 需要登录的接口
		protected := v1.Group("")
		protected.Use(auth.Middleware(issuer))

		handler.RegisterRoutes(v1, protected)
	}

	if gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	}

	return &Server{
		engine: r,
		logger: logger,
		port:   cfg.Port,
	}
}

// Handler 暴露 gin 引擎 (测试用 httptest 直接驱动)
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run 启动服务
func (s *Server) Run() error {
	s.server = &http.Server{
		Addr:              ":" + s.port,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.logger.Info("BetikBank API started", zap.String("port", s.port))
	return s.server.ListenAndServe()
}

// Shutdown 优雅停机 (Graceful Shutdown)
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(RequestIDHeader, id)
		c.Writer.Header().Set(RequestIDHeader, id)
		c.Next()
	}
}

func accessLog(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next() // 执行后续逻辑

		cost := time.Since(start)
		logger.Info("HTTP Request",
			zap.Int("status", c.Writer.Status()),
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.String("query", query),
			zap.String("ip", c.ClientIP()),
			zap.Duration("cost", cost),
			zap.String("request_id", c.GetString(RequestIDHeader)),
		)
	}
}

func observe(metric *metrics.Prometheus) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		metric.ObserveHTTP(c.Request.Method, route, strconv.Itoa(c.Writer.Status()), time.Since(start))
	}
}

func cors() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS, PUT, DELETE")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Request-ID")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
