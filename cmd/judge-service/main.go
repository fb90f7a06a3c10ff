package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"codejudge/internal/common/auth"
	"codejudge/internal/common/cache"
	"codejudge/internal/common/db"
	commonmw "codejudge/internal/common/http/middleware"
	"codejudge/internal/common/mq"
	"codejudge/internal/common/storage"
	"codejudge/internal/judge/controller"
	"codejudge/internal/judge/repository"
	"codejudge/internal/judge/sandbox/engine"
	"codejudge/internal/judge/sandbox/observer"
	"codejudge/internal/judge/sandbox/profile"
	"codejudge/internal/judge/sandbox/runner"
	"codejudge/internal/judge/service"
	"codejudge/pkg/utils/logger"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	ginprometheus "github.com/zsais/go-gin-prometheus"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

const (
	defaultConfigPath = "configs/judge_service.yaml"
	healthService     = "codejudge.JudgeService"
)

func main() {
	configPath := flag.String("config", defaultConfigPath, "Path to config file")
	flag.Parse()

	appCfg, err := loadAppConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load app config failed: %v\n", err)
		return
	}

	if err := logger.Init(appCfg.Logger); err != nil {
		fmt.Fprintf(os.Stderr, "init logger failed: %v\n", err)
		return
	}
	defer func() {
		_ = logger.Sync()
	}()
	if err := run(appCfg); err != nil {
		logger.Error(context.Background(), "judge service exited", zap.Error(err))
		os.Exit(1)
	}
}

func run(appCfg *AppConfig) error {
	bootCtx := context.Background()

	mysqlDB, err := db.NewMySQLWithConfig(&appCfg.Database)
	if err != nil {
		return fmt.Errorf("init database failed: %w", err)
	}
	defer func() {
		_ = mysqlDB.Close()
	}()

	// Redis is optional: without it problems are read straight from MySQL and
	// pollers fall back to the submission row.
	var (
		cacheClient cache.Cache
		statusStore service.StatusStore
	)
	if appCfg.Redis.Addr != "" {
		redisCache, err := cache.NewRedisCacheWithConfig(&appCfg.Redis)
		if err != nil {
			return fmt.Errorf("init redis failed: %w", err)
		}
		defer func() {
			_ = redisCache.Close()
		}()
		cacheClient = redisCache
		statusStore = repository.NewStatusRepository(redisCache, appCfg.Status.TTL)
	}

	var archiver repository.ReportArchiver
	if appCfg.MinIO.Enabled() {
		objStorage, err := storage.NewMinIOStorage(appCfg.MinIO)
		if err != nil {
			return fmt.Errorf("init minio failed: %w", err)
		}
		if err := objStorage.EnsureBucket(bootCtx, appCfg.Judge.ReportBucket); err != nil {
			return fmt.Errorf("ensure report bucket failed: %w", err)
		}
		reportArchiver, err := repository.NewObjectReportArchiver(objStorage, appCfg.Judge.ReportBucket, appCfg.Judge.ReportPrefix)
		if err != nil {
			return fmt.Errorf("init report archiver failed: %w", err)
		}
		archiver = reportArchiver
	}

	var (
		mqClient  *mq.KafkaQueue
		publisher repository.StatusEventPublisher
	)
	if appCfg.Kafka.Enabled() {
		mqClient, err = mq.NewKafkaQueue(appCfg.Kafka.toMQConfig())
		if err != nil {
			return fmt.Errorf("init kafka failed: %w", err)
		}
		defer func() {
			_ = mqClient.Close()
		}()
		publisher = repository.NewMQStatusEventPublisher(mqClient, appCfg.Status.FinalTopic)
	}

	registry, err := profile.NewRegistry(appCfg.Language)
	if err != nil {
		return fmt.Errorf("init language registry failed: %w", err)
	}
	eng, err := engine.NewEngine(appCfg.Sandbox)
	if err != nil {
		return fmt.Errorf("init sandbox engine failed: %w", err)
	}
	recorder := observer.NewPrometheusRecorder(prometheus.DefaultRegisterer)

	judgeSvc, err := service.NewService(service.Config{
		Submissions:   repository.NewSubmissionRepository(mysqlDB),
		Problems:      repository.NewProblemRepository(mysqlDB, cacheClient),
		Compiler:      runner.NewCompiler(eng, registry, appCfg.Judge.WorkRoot, recorder),
		Runner:        runner.NewRunner(eng, recorder, appCfg.Runner),
		Status:        statusStore,
		Publisher:     publisher,
		Archiver:      archiver,
		Recorder:      recorder,
		StatusTimeout: appCfg.Status.Timeout,
		SkipJudged:    appCfg.Status.SkipJudged,
		LockTTL:       appCfg.Status.LockTTL,
	})
	if err != nil {
		return fmt.Errorf("init judge service failed: %w", err)
	}

	dispatcher := service.NewDispatcher(judgeSvc, recorder, appCfg.Dispatcher)
	dispatcher.Start()

	var trigger service.Trigger = service.DispatchTrigger{Dispatcher: dispatcher}
	if mqClient != nil {
		trigger = service.QueueTrigger{Producer: mqClient, Topic: appCfg.Kafka.TriggerTopic}
		consumer := service.NewConsumer(dispatcher, mqClient, appCfg.Kafka.PoolRetry, appCfg.Kafka.SlotWait)
		opts := appCfg.Kafka.subscribeOptions()
		opts.Limiter = mq.NewTokenLimiter(appCfg.Dispatcher.Workers)
		if err := mqClient.SubscribeWithOptions(bootCtx, appCfg.Kafka.TriggerTopic, consumer.HandleMessage, opts); err != nil {
			return fmt.Errorf("subscribe kafka failed: %w", err)
		}
		if err := mqClient.Start(); err != nil {
			return fmt.Errorf("start kafka consumer failed: %w", err)
		}
	}

	tokens := auth.NewTokenService(appCfg.Auth)
	judgeController := controller.NewJudgeController(judgeSvc, registry, trigger)
	httpServer := buildHTTPServer(appCfg, judgeController, tokens)
	listener, err := net.Listen("tcp", appCfg.Server.Addr)
	if err != nil {
		return fmt.Errorf("init http listener failed: %w", err)
	}

	healthSrv := health.NewServer()
	var grpcServer *grpc.Server
	var grpcListener net.Listener
	if appCfg.GRPC.Addr != "" {
		grpcListener, err = net.Listen("tcp", appCfg.GRPC.Addr)
		if err != nil {
			return fmt.Errorf("init grpc listener failed: %w", err)
		}
		grpcServer = grpc.NewServer()
		healthpb.RegisterHealthServer(grpcServer, healthSrv)
	}
	healthSrv.SetServingStatus(healthService, healthpb.HealthCheckResponse_SERVING)

	shutdownCtx, stop := signal.NotifyContext(bootCtx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	eg, egCtx := errgroup.WithContext(shutdownCtx)
	eg.Go(func() error {
		logger.Info(bootCtx, "judge http server started", zap.String("addr", appCfg.Server.Addr))
		if err := httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server stopped: %w", err)
		}
		return nil
	})
	if grpcServer != nil {
		eg.Go(func() error {
			logger.Info(bootCtx, "judge grpc health server started", zap.String("addr", appCfg.GRPC.Addr))
			return grpcServer.Serve(grpcListener)
		})
	}

	<-egCtx.Done()
	logger.Info(bootCtx, "shutting down")
	healthSrv.SetServingStatus(healthService, healthpb.HealthCheckResponse_NOT_SERVING)

	ctx, cancel := context.WithTimeout(bootCtx, defaultShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error(ctx, "http server shutdown failed", zap.Error(err))
	}
	if mqClient != nil {
		_ = mqClient.Stop()
	}
	if err := dispatcher.Shutdown(ctx); err != nil {
		logger.Error(ctx, "dispatcher shutdown failed", zap.Error(err))
	}
	if grpcServer != nil {
		grpcServer.GracefulStop()
	}
	if err := eg.Wait(); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return err
	}
	logger.Info(ctx, "shutdown finished")
	return nil
}

func buildHTTPServer(cfg *AppConfig, judgeController *controller.JudgeController, authenticator commonmw.Authenticator) *http.Server {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(commonmw.TraceContextMiddleware())
	router.Use(requestLogger())
	if cfg.Metrics.Enabled {
		initGinMetrics(router)
		router.GET(cfg.Metrics.Path, gin.WrapH(promhttp.Handler()))
	}

	controller.RegisterRoutes(router, judgeController, authenticator)

	return &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}
}

func initGinMetrics(r *gin.Engine) {
	p := ginprometheus.NewWithConfig(ginprometheus.Config{
		Subsystem:          "gin",
		DisableBodyReading: true,
	})
	p.ReqCntURLLabelMappingFn = func(c *gin.Context) string {
		return c.FullPath()
	}
	r.Use(p.HandlerFunc())
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}

		logger.Info(
			c.Request.Context(),
			"request completed",
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		)
	}
}
