package chat

import (
	"PRelay/logger"
	"PRelay/middleware/security"
	"PRelay/tools/errs"
	"PRelay/tools/ids"
	"context"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// HandleWS 握手已由 HandshakeGuard 通过；这里升级、登记、读循环、收尾
func (s *Server) HandleWS(c *gin.Context) {
	id, ok := security.IdentityFrom(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
			"code":    errs.ErrInvalidIdentifier.Reason,
			"message": errs.ErrInvalidIdentifier.Msg,
		})
		return
	}
	if !s.track() {
		c.AbortWithStatus(http.StatusServiceUnavailable)
		return
	}
	defer s.active.Done()

	ws, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// 常见：非 WebSocket 请求
		logger.Info("[WS] upgrade failed", zap.String("remote", c.ClientIP()), zap.Error(err))
		return
	}

	conn, err := newWsConn(ids.ConnID(), id.UserID, ws, &s.conf)
	if err != nil {
		closeQuiet(ws)
		return
	}
	go conn.writeLoop()

	if err := s.presence.Join(conn); err != nil {
		logger.Warn("[WS] admit failed", zap.String("conn", conn.ID()), zap.String("user", conn.UserID()), zap.Error(err))
		conn.Close()
		<-conn.Closed()
		return
	}
	logger.Info("[WS] connected", zap.String("conn", conn.ID()), zap.String("user", conn.UserID()), zap.String("remote", conn.Remote()))

	ctx, cancel := context.WithCancel(context.Background())
	s.readLoop(ctx, conn)
	cancel()

	conn.Close()
	s.presence.Leave(conn.ID())
	<-conn.Closed()
	logger.Info("[WS] disconnected", zap.String("conn", conn.ID()), zap.String("user", conn.UserID()))
}

// readLoop 只读不写；出错即退出。handler 里的 panic 只结束本连接
func (s *Server) readLoop(ctx context.Context, conn *WsConn) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("[WS] handler panic", zap.String("conn", conn.ID()), zap.Error(errs.ErrPanic(r)))
		}
	}()

	ws := conn.ws
	ws.SetReadLimit(s.conf.MaxMessageBytes)
	_ = ws.SetReadDeadline(time.Now().Add(s.conf.pongWait()))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(s.conf.pongWait()))
	})

	cc := &ChatContext{S: s}
	for {
		mt, data, err := ws.ReadMessage()
		if err != nil {
			logReadErr(conn, err)
			return
		}
		_ = ws.SetReadDeadline(time.Now().Add(s.conf.pongWait()))
		if mt != websocket.TextMessage && mt != websocket.BinaryMessage {
			continue
		}

		frame, err := ParseFrameJSON(data)
		if err != nil {
			sample := data
			if len(sample) > 256 {
				sample = sample[:256]
			}
			logger.Info("[WS] bad frame", zap.String("conn", conn.ID()), zap.Error(err), zap.ByteString("sample", sample))
			continue
		}
		s.dispatch(ctx, cc, conn, frame)
	}
}

func (s *Server) dispatch(ctx context.Context, cc *ChatContext, conn *WsConn, f *InFrame) {
	h := s.disp.GetHandler(f.Event)
	if h == nil {
		return
	}
	opCtx, cancel := context.WithTimeout(ctx, s.conf.OpTimeout)
	defer cancel()

	ack := h.Handle(opCtx, cc, conn, f.Data)
	if ack == nil || !f.WantsAck() {
		return
	}
	if err := conn.emitAck(f.AckID, ack); err != nil {
		logger.Debug("[WS] ack dropped", zap.String("conn", conn.ID()), zap.String("event", f.Event), zap.Error(err))
	}
}

func logReadErr(conn *WsConn, err error) {
	if websocket.IsCloseError(err,
		websocket.CloseNormalClosure,
		websocket.CloseGoingAway,
		websocket.CloseNoStatusReceived,
	) {
		logger.Debug("[WS] peer closed", zap.String("conn", conn.ID()), zap.Error(err))
		return
	}
	if ne, ok := err.(net.Error); ok && ne.Timeout() {
		logger.Info("[WS] pong timeout", zap.String("conn", conn.ID()), zap.String("user", conn.UserID()))
		return
	}
	logger.Debug("[WS] read err", zap.String("conn", conn.ID()), zap.Error(err))
}
