package main

import (
	"context"
	"net"
	"net/http"
	"time"

	"PRelay/data/database/mgo/mongoutil"
	"PRelay/global/config"
	"PRelay/logger"
	mid "PRelay/middleware"
	"PRelay/middleware/security"
	"PRelay/module/message"
	"PRelay/module/presence"
	"PRelay/module/relation"
	"PRelay/service/chat"
	"PRelay/service/chat/handlers"
	"PRelay/service/kafka"
	"PRelay/service/mgo"
	"PRelay/service/natsx"
	"PRelay/service/registry"
	"PRelay/service/storage"
	rds "PRelay/service/storage/redis"
	"PRelay/tools/ids"
	jwtx "PRelay/tools/security"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// healthService gRPC health 里登记的服务名
const healthService = "prelay.Relay"

// gateway 进程内所有组件；closers 按登记的逆序关闭
type gateway struct {
	cfg *config.AppConfig

	reg    *registry.Registry
	store  relation.Store
	server *chat.Server
	engine *gin.Engine
	http   *http.Server
	grpc   *grpc.Server
	health *health.Server

	closers []func(ctx context.Context) error
}

func (g *gateway) onClose(f func(ctx context.Context) error) { g.closers = append(g.closers, f) }

func newGateway(ctx context.Context, cfg *config.AppConfig) (*gateway, error) {
	g := &gateway{cfg: cfg}
	ids.SetNode(cfg.NodeID)

	store, err := g.openStore(ctx)
	if err != nil {
		g.close(context.Background())
		return nil, err
	}
	g.store = store

	sink, err := g.openSink()
	if err != nil {
		g.close(context.Background())
		return nil, err
	}

	validator := ids.ObjectIDValidator{}
	g.reg = registry.New(registry.Conf{})
	scoper := relation.NewScoper(store, validator)

	var popts []presence.Option
	mirror, err := g.openMirror(ctx)
	if err != nil {
		g.close(context.Background())
		return nil, err
	}
	if mirror != nil {
		popts = append(popts, presence.WithMirror(mirror))
	}
	broadcaster := presence.NewBroadcaster(g.reg, scoper, store, popts...)
	if mirror != nil {
		mctx, cancel := context.WithCancel(context.Background())
		go broadcaster.RunMirror(mctx, cfg.Redis.RefreshEvery)
		g.onClose(func(context.Context) error { cancel(); return nil })
	}

	relay := message.NewRelay(g.reg, scoper,
		message.WithSink(sink),
		message.WithValidator(validator),
		message.WithSinkTimeout(cfg.Sink.Timeout),
	)

	g.server = chat.NewServer(chat.Conf{
		NodeID:            cfg.NodeID,
		Path:              cfg.WS.Path,
		PingInterval:      cfg.WS.PingInterval,
		PingTimeout:       cfg.WS.PingTimeout,
		WriteWait:         cfg.WS.WriteWait,
		MaxMessageBytes:   cfg.WS.MaxMessageBytes,
		SendQueueSize:     cfg.WS.SendQueueSize,
		OpTimeout:         cfg.WS.OpTimeout,
		EnableCompression: cfg.WS.EnableCompression,
	}, g.reg, broadcaster, relay)
	handlers.RegisterAll(g.server.Disp())

	jwtOpts := jwtx.DefaultOptions([]byte(cfg.Auth.JWTSecret))
	auth := security.NewAuthenticator(validator, jwtOpts, cfg.Auth.RequireToken)

	mids := mid.NewManager(gin.Recovery(), mid.AccessLog())
	g.engine = gin.New()
	g.engine.Use(mids.Use())
	g.server.Mount(g.engine, mid.Origin(cfg.WS.AllowedOrigins), security.HandshakeGuard(auth))

	g.http = &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           g.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	if cfg.GRPCAddr != "" {
		g.grpc = grpc.NewServer()
		g.health = health.NewServer()
		healthpb.RegisterHealthServer(g.grpc, g.health)
		g.health.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
		g.health.SetServingStatus(healthService, healthpb.HealthCheckResponse_SERVING)
	}
	return g, nil
}

func (g *gateway) openStore(ctx context.Context) (relation.Store, error) {
	sc := g.cfg.Store
	switch sc.Driver {
	case config.StoreMemory:
		if sc.MemorySeed == "" {
			logger.Warn("[Scoper] memory store without seed file; every user is unknown")
			return relation.NewMemoryStore(), nil
		}
		return relation.LoadMemoryStore(sc.MemorySeed)

	case config.StorePostgres:
		pg, err := relation.OpenPgStore(ctx, sc.PostgresDSN)
		if err != nil {
			return nil, errors.Wrap(err, "open postgres store")
		}
		g.onClose(func(context.Context) error { pg.Close(); return nil })
		return pg, nil

	default:
		m := mgo.NewManager()
		mctx, cancel := context.WithCancel(context.Background())
		m.StartAsync(mctx, &mongoutil.Config{
			Uri:         sc.MongoURI,
			Address:     sc.MongoAddress,
			Database:    sc.MongoDatabase,
			Username:    sc.MongoUsername,
			Password:    sc.MongoPassword,
			AppName:     g.cfg.NodeID,
			MaxPoolSize: sc.MongoPoolSize,
		})
		g.onClose(func(ctx context.Context) error {
			cancel()
			return m.Close(ctx)
		})

		wctx, wcancel := context.WithTimeout(ctx, sc.ReadyWait)
		defer wcancel()
		if err := m.WaitReady(wctx); err != nil {
			return nil, errors.Wrap(err, "wait mongo")
		}
		return relation.NewMongoStore(m.GetDB()), nil
	}
}

func (g *gateway) openSink() (message.Sink, error) {
	switch g.cfg.Sink.Driver {
	case config.SinkNats:
		nc := g.cfg.Nats
		mode, err := natsx.ParseMode(nc.Mode)
		if err != nil {
			return nil, err
		}
		m, err := natsx.NewNatsManager(natsx.NatsxConfig{
			Servers:  nc.Servers,
			Name:     nc.Name,
			User:     nc.User,
			Password: nc.Password,
		})
		if err != nil {
			return nil, errors.Wrap(err, "connect nats")
		}
		g.onClose(func(context.Context) error { return m.Close() })
		return natsx.NewEventSink(m, nc.SubjectPrefix, mode, nc.Retries)

	case config.SinkKafka:
		kc := kafka.Config{
			Brokers:          g.cfg.Kafka.Brokers,
			TopicPattern:     g.cfg.Kafka.TopicPattern,
			TopicCount:       g.cfg.Kafka.TopicCount,
			Version:          g.cfg.Kafka.Version,
			Compression:      g.cfg.Kafka.Compression,
			AutoCreateTopics: g.cfg.Kafka.AutoCreate,
		}
		p, err := kafka.NewProducer(kc)
		if err != nil {
			return nil, errors.Wrap(err, "connect kafka")
		}
		g.onClose(func(context.Context) error { return p.Close() })
		return kafka.NewEventSink(p.Sync(), kafka.GenTopics(kc)), nil

	default:
		return message.NopSink{}, nil
	}
}

// openMirror 未启用 Redis 时返回 nil
func (g *gateway) openMirror(ctx context.Context) (presence.Mirror, error) {
	rc := g.cfg.Redis
	if !rc.Enabled {
		return nil, nil
	}
	rdb, err := rds.Open(ctx, rds.Config{Addr: rc.Addr, Password: rc.Password, DB: rc.DB})
	if err != nil {
		return nil, errors.Wrap(err, "connect redis")
	}
	g.onClose(func(context.Context) error { return rds.Close(rdb) })
	return storage.NewPresenceMirror(rdb, storage.MirrorConfig{NodeID: g.cfg.NodeID, TTL: rc.PresenceTTL}), nil
}

// run 阻塞直到 ctx 结束或某个监听失败
func (g *gateway) run(ctx context.Context) error {
	errCh := make(chan error, 2)
	go func() {
		logger.Info("[HTTP] listening", zap.String("addr", g.cfg.HTTPAddr), zap.String("ws", g.cfg.WS.Path))
		if err := g.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- errors.Wrap(err, "http server")
		}
	}()
	if g.grpc != nil {
		lis, err := net.Listen("tcp", g.cfg.GRPCAddr)
		if err != nil {
			return errors.Wrap(err, "grpc listen")
		}
		go func() {
			logger.Info("[gRPC] health listening", zap.String("addr", g.cfg.GRPCAddr))
			if err := g.grpc.Serve(lis); err != nil {
				errCh <- errors.Wrap(err, "grpc server")
			}
		}()
	}

	select {
	case <-ctx.Done():
		return nil
	case err := <-errCh:
		return err
	}
}

// shutdown 先标记不健康并拒绝新连接，再关闭全部连接（各自广播下线），最后关外部依赖
func (g *gateway) shutdown(ctx context.Context) {
	if g.health != nil {
		g.health.Shutdown()
	}
	if err := g.server.Shutdown(ctx); err != nil {
		logger.Warn("[WS] shutdown incomplete", zap.Error(err))
	}
	if err := g.http.Shutdown(ctx); err != nil {
		logger.Warn("[HTTP] shutdown", zap.Error(err))
	}
	if g.grpc != nil {
		g.grpc.GracefulStop()
	}
	g.close(ctx)
}

func (g *gateway) close(ctx context.Context) {
	for i := len(g.closers) - 1; i >= 0; i-- {
		if err := g.closers[i](ctx); err != nil {
			logger.Warn("[Gateway] close", zap.Error(err))
		}
	}
	g.closers = nil
}
