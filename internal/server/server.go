package server

import (
	"context"
	"net/http"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/nilemart/storefront/internal/config"
	"github.com/nilemart/storefront/internal/observability/logger"
	obsmetrics "github.com/nilemart/storefront/internal/observability/metrics"
	orderdomain "github.com/nilemart/storefront/internal/order/domain"
	"github.com/nilemart/storefront/internal/payment/adapters"
	"github.com/nilemart/storefront/internal/payment/correlation"
	paymentdomain "github.com/nilemart/storefront/internal/payment/domain"
	"github.com/nilemart/storefront/internal/payment/strategy"
	"github.com/nilemart/storefront/internal/ratelimit"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(log *zap.Logger, httpMetrics *obsmetrics.HTTP, registry *prometheus.Registry) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logger.GinMiddleware(log))
	r.Use(httpMetrics.GinMiddleware())
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))

	return r
}

func registerGin(log *zap.Logger, httpMetrics *obsmetrics.HTTP, registry *prometheus.Registry) *gin.Engine {
	return NewEngine(log, httpMetrics, registry)
}

func run(lc fx.Lifecycle, cfg config.Config, r *gin.Engine, log *zap.Logger) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Info("http server listening", zap.String("addr", cfg.HTTPAddr))
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					panic(err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine     *gin.Engine
	cfg        config.Config
	db         *gorm.DB
	log        *zap.Logger
	genID      *snowflake.Node
	orderSvc   orderdomain.Service
	router     *strategy.Router
	state      paymentdomain.StateMachine
	webhookSvc paymentdomain.WebhookService
	refundSvc  paymentdomain.RefundCoordinator
	registry   *adapters.Registry
	gateways   *config.GatewayConfigHolder
	tokens     correlation.Store
	limiter    *ratelimit.CheckoutLimiter
}

type ServerParams struct {
	fx.In

	Gin        *gin.Engine
	Cfg        config.Config
	DB         *gorm.DB
	Log        *zap.Logger
	GenID      *snowflake.Node
	OrderSvc   orderdomain.Service
	Router     *strategy.Router
	State      paymentdomain.StateMachine
	WebhookSvc paymentdomain.WebhookService
	RefundSvc  paymentdomain.RefundCoordinator
	Registry   *adapters.Registry
	Gateways   *config.GatewayConfigHolder
	Tokens     correlation.Store
	Limiter    *ratelimit.CheckoutLimiter `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:     p.Gin,
		cfg:        p.Cfg,
		db:         p.DB,
		log:        p.Log.Named("server"),
		genID:      p.GenID,
		orderSvc:   p.OrderSvc,
		router:     p.Router,
		state:      p.State,
		webhookSvc: p.WebhookSvc,
		refundSvc:  p.RefundSvc,
		registry:   p.Registry,
		gateways:   p.Gateways,
		tokens:     p.Tokens,
		limiter:    p.Limiter,
	}

	svc.registerAPIRoutes()
	svc.registerPaymentRoutes()
	svc.registerAdminRoutes()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api")

	api.GET("/payment-methods", s.ListPaymentMethods)
	api.POST("/orders", s.CreateOrder)
	api.GET("/orders", s.ListOrders)
	api.GET("/orders/:order_id", s.GetOrder)
	api.POST("/orders/:order_id/pay", s.CheckoutRateLimited(), s.InitiatePayment)
	api.POST("/orders/:order_id/proof", s.CheckoutRateLimited(), s.UploadPaymentProof)
}

func (s *Server) registerPaymentRoutes() {
	s.engine.POST("/webhooks/payments/:gateway", s.HandlePaymentWebhook)
	s.engine.GET("/payments/return/:gateway", s.HandlePaymentReturn)
}

func (s *Server) registerAdminRoutes() {
	admin := s.engine.Group("/admin", s.AdminRequired())

	admin.POST("/payments/:order_id/confirm", s.ConfirmPayment)
	admin.POST("/payments/:order_id/reject", s.RejectPayment)
	admin.POST("/payments/:order_id/refund", s.RefundPayment)
}
