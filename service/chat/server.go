package chat

import (
	"PRelay/logger"
	"PRelay/module/message"
	"PRelay/module/presence"
	"PRelay/service/registry"
	"PRelay/tools/safe"
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Conf 传输层参数
type Conf struct {
	NodeID            string
	Path              string        // 默认 /ws
	PingInterval      time.Duration // 默认 10s
	PingTimeout       time.Duration // 默认 5s；超过 PingInterval+PingTimeout 没有 pong 即断开
	WriteWait         time.Duration
	MaxMessageBytes   int64
	SendQueueSize     int
	OpTimeout         time.Duration // 单个事件处理超时（含外部存储调用）
	EnableCompression bool
}

func (c *Conf) norm() {
	if c.Path == "" {
		c.Path = "/ws"
	}
	if c.PingInterval <= 0 {
		c.PingInterval = 10 * time.Second
	}
	if c.PingTimeout <= 0 {
		c.PingTimeout = 5 * time.Second
	}
	if c.WriteWait <= 0 {
		c.WriteWait = 10 * time.Second
	}
	if c.MaxMessageBytes <= 0 {
		c.MaxMessageBytes = 1 << 20
	}
	if c.SendQueueSize <= 0 {
		c.SendQueueSize = 256
	}
	if c.OpTimeout <= 0 {
		c.OpTimeout = 5 * time.Second
	}
}

func (c *Conf) pongWait() time.Duration { return c.PingInterval + c.PingTimeout }

type Server struct {
	conf     Conf
	reg      *registry.Registry
	presence *presence.Broadcaster
	relay    *message.Relay
	disp     *Dispatcher
	upgrader websocket.Upgrader

	mu      sync.Mutex
	closing bool
	active  sync.WaitGroup
}

func NewServer(conf Conf, reg *registry.Registry, b *presence.Broadcaster, relay *message.Relay) *Server {
	safe.MustNotNil(reg, "registry")
	safe.MustNotNil(b, "presence")
	safe.MustNotNil(relay, "relay")
	conf.norm()
	return &Server{
		conf:     conf,
		reg:      reg,
		presence: b,
		relay:    relay,
		disp:     NewDispatcher(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:    4096,
			WriteBufferSize:   4096,
			EnableCompression: conf.EnableCompression,
			// 来源校验在 gin 中间件里做
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

func (s *Server) Conf() Conf                      { return s.conf }
func (s *Server) Disp() *Dispatcher               { return s.disp }
func (s *Server) Registry() *registry.Registry    { return s.reg }
func (s *Server) Presence() *presence.Broadcaster { return s.presence }
func (s *Server) Relay() *message.Relay           { return s.relay }

// Mount 注册 WebSocket 路由和健康检查；mids 在升级前执行（来源校验、握手鉴权）
func (s *Server) Mount(r gin.IRouter, mids ...gin.HandlerFunc) {
	r.GET(s.conf.Path, append(mids, s.HandleWS)...)
	r.GET("/healthz", s.HandleHealth)
}

func (s *Server) HandleHealth(c *gin.Context) {
	users, conns := s.reg.Stats()
	status := "ok"
	code := http.StatusOK
	if s.isClosing() {
		status = "closing"
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, gin.H{"status": status, "node": s.conf.NodeID, "online": users, "connections": conns})
}

func (s *Server) isClosing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closing
}

// track 登记一条活动连接；关闭中返回 false
func (s *Server) track() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closing {
		return false
	}
	s.active.Add(1)
	return true
}

// Shutdown 拒绝新连接，关闭所有现有连接（各自触发下线广播），等待处理协程退出
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.closing = true
	s.mu.Unlock()

	all := s.reg.All()
	logger.Info("[WS] shutting down", zap.Int("connections", len(all)))
	for _, c := range all {
		if wc, ok := c.(*WsConn); ok {
			wc.closeForShutdown()
		}
	}

	done := make(chan struct{})
	go func() {
		s.active.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
