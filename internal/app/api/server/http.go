package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/botsmith/billing/docs"
	"github.com/botsmith/billing/internal/app/api/handlers"
	mw "github.com/botsmith/billing/internal/app/api/middleware"
	"github.com/botsmith/billing/internal/app/service/payment"
	"github.com/botsmith/billing/internal/app/service/statistics"
	subsvc "github.com/botsmith/billing/internal/app/service/subscription"
	wh "github.com/botsmith/billing/internal/app/service/webhook_handler"
	rzpclient "github.com/botsmith/billing/internal/platform/razorpay"
	cfgpkg "github.com/botsmith/billing/pkg/config"
	metrics "github.com/botsmith/billing/pkg/metrics"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

func newEngine() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	// Add request tracing middleware only; request logger & access log are attached per group in registerRoutes
	r.Use(mw.TraceMiddleware())
	return r
}

func registerRoutes(r *gin.Engine, log *zap.SugaredLogger, cfg *cfgpkg.Config, rzp *rzpclient.Client, pay *payment.Processor, sub *subsvc.Service, webhook *wh.WebhookHandler, stats *statistics.Service) {
	// Prometheus metrics
	if cfg != nil && cfg.MetricsAddr != "" {
		p := metrics.NewPrometheus(metrics.NewPrometheusOptions{
			ReqCntURLLabelMappingFn: func(c *gin.Context) string {
				if fp := c.FullPath(); fp != "" {
					return fp
				}
				return c.Request.URL.Path
			},
			Logger: log,
		})
		p.SetListenAddress(cfg.MetricsAddr)
		p.Use(r)

		log.Infow("metrics started", "addr", cfg.MetricsAddr)
	}
	// Public group: request logger + access log
	pub := r.Group("/")
	pub.Use(mw.RequestLoggerMiddleware(log), mw.AccessLogMiddleware())
	handlers.RegisterHealthRoutes(pub)
	// Swagger UI
	docs.SwaggerInfo.BasePath = "/"
	pub.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Webhook is signature-verified, never token-authenticated
	billing := r.Group("/api/v1/billing")
	billing.Use(mw.RequestLoggerMiddleware(log), mw.AccessLogMiddleware())
	handlers.RegisterWebhookRoutes(billing, webhook)

	// User-facing billing APIs behind JWT
	billingAuth := billing.Group("/")
	billingAuth.Use(mw.AuthMiddleware(cfg.Auth.JWTSecret))
	handlers.RegisterBillingRoutes(billingAuth, cfg, rzp, pay, sub)

	authGroup := r.Group("/api/v1/auth")
	authGroup.Use(mw.RequestLoggerMiddleware(log), mw.AccessLogMiddleware(), mw.AuthMiddleware(cfg.Auth.JWTSecret))
	handlers.RegisterAuthRoutes(authGroup, sub)

	// Admin APIs require the admin role on top of a valid token
	admin := r.Group("/api/v1/admin")
	admin.Use(mw.RequestLoggerMiddleware(log), mw.AccessLogMiddleware(), mw.AuthMiddleware(cfg.Auth.JWTSecret), mw.RequireAdmin())
	handlers.RegisterAdminRoutes(admin, cfg, sub, pay, stats)
}

func runServer(lc fx.Lifecycle, log *zap.SugaredLogger, cfg *cfgpkg.Config, r *gin.Engine) {
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{Addr: addr, Handler: r, ReadHeaderTimeout: 5 * time.Second}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Infow("starting HTTP server", "addr", addr)
			go func() {
				if err := srv.ListenAndServe(); err != nil {
					log.Errorf("server error: %v", err)
					panic(err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Infow("stopping HTTP server")
			shutdownCtx, cancel := context.WithTimeout(ctx, 120*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

var Module = fx.Options(
	fx.Provide(newEngine),
	fx.Invoke(registerRoutes),
	fx.Invoke(runServer),
)
