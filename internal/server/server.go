package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/smallbiznis/servicedesk/internal/activity"
	"github.com/smallbiznis/servicedesk/internal/assignee"
	"github.com/smallbiznis/servicedesk/internal/authorization"
	"github.com/smallbiznis/servicedesk/internal/catalog"
	"github.com/smallbiznis/servicedesk/internal/comment"
	"github.com/smallbiznis/servicedesk/internal/config"
	"github.com/smallbiznis/servicedesk/internal/file"
	"github.com/smallbiznis/servicedesk/internal/ledger"
	ledgerdomain "github.com/smallbiznis/servicedesk/internal/ledger/domain"
	"github.com/smallbiznis/servicedesk/internal/link"
	"github.com/smallbiznis/servicedesk/internal/notification"
	"github.com/smallbiznis/servicedesk/internal/observability"
	obsmiddleware "github.com/smallbiznis/servicedesk/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/servicedesk/internal/observability/metrics"
	obstracing "github.com/smallbiznis/servicedesk/internal/observability/tracing"
	"github.com/smallbiznis/servicedesk/internal/providers"
	"github.com/smallbiznis/servicedesk/internal/ratelimit"
	"github.com/smallbiznis/servicedesk/internal/request"
	requestdomain "github.com/smallbiznis/servicedesk/internal/request/domain"
	"github.com/smallbiznis/servicedesk/internal/user"
	userdomain "github.com/smallbiznis/servicedesk/internal/user/domain"
	"github.com/smallbiznis/servicedesk/internal/version"
	versiondomain "github.com/smallbiznis/servicedesk/internal/version/domain"
	"github.com/smallbiznis/servicedesk/internal/workspace"
	workspacedomain "github.com/smallbiznis/servicedesk/internal/workspace/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	fx.Provide(NewEngine),
	authorization.Module,
	providers.Module,
	ratelimit.Module,
	user.Module,
	workspace.Module,
	catalog.Module,
	ledger.Module,
	version.Module,
	link.Module,
	file.Module,
	assignee.Module,
	comment.Module,
	activity.Module,
	notification.Module,
	request.Module,
	fx.Provide(NewServer),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	if !obsCfg.Debug() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware(obsmiddleware.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(obsmetrics.GinMiddleware(httpMetrics))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func run(lc fx.Lifecycle, cfg config.Config, log *zap.Logger, s *Server) {
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           s.Engine(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				log.Info("http server listening", zap.String("addr", srv.Addr))
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Fatal("http server stopped", zap.Error(err))
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
	engine       *gin.Engine
	requestSvc   requestdomain.Service
	querySvc     requestdomain.QueryService
	versionSvc   versiondomain.Service
	ledgerSvc    ledgerdomain.Service
	workspaceSvc workspacedomain.Service
	userSvc      userdomain.Service
	authzSvc     authorization.Service
	limiter      *ratelimit.WriteLimiter
	log          *zap.Logger
}

type ServerParams struct {
	fx.In

	Gin          *gin.Engine
	RequestSvc   requestdomain.Service
	QuerySvc     requestdomain.QueryService
	VersionSvc   versiondomain.Service
	LedgerSvc    ledgerdomain.Service
	WorkspaceSvc workspacedomain.Service
	UserSvc      userdomain.Service
	AuthzSvc     authorization.Service
	Limiter      *ratelimit.WriteLimiter
	Log          *zap.Logger
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:       p.Gin,
		requestSvc:   p.RequestSvc,
		querySvc:     p.QuerySvc,
		versionSvc:   p.VersionSvc,
		ledgerSvc:    p.LedgerSvc,
		workspaceSvc: p.WorkspaceSvc,
		userSvc:      p.UserSvc,
		authzSvc:     p.AuthzSvc,
		limiter:      p.Limiter,
		log:          p.Log.Named("http"),
	}

	svc.registerAPIRoutes()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) logger() *zap.Logger {
	if s.log == nil {
		return zap.NewNop()
	}
	return s.log
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api/v1", CallerRequired())
	writes := WriteRateLimited(s.limiter, s.logger())

	// -------- Requests --------
	api.POST("/requests", writes, s.CreateRequest)
	api.GET("/requests", s.ListRequests)
	api.GET("/requests/:id", s.GetRequestDetail)
	api.PUT("/requests/:id", writes, s.UpdateRequest)
	api.PATCH("/requests/:id/fields", writes, s.PatchRequestFields)
	api.POST("/requests/:id/archive", writes, s.ArchiveRequest)
	api.DELETE("/requests/:id", writes, s.DeleteRequest)
	api.GET("/requests/:id/subtasks", s.GetSubtasks)
	api.GET("/requests/:id/versions", s.ListRequestVersions)

	// -------- Workspaces --------
	api.GET("/workspaces/:id/credits", s.GetWorkspaceCredits)
}
