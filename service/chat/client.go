package chat

import (
	"PRelay/logger"
	"PRelay/module/message"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var (
	ErrConnClosed     = errors.New("connection closed")
	ErrSendQueueFull  = errors.New("send queue full")
	errNilWebsocket   = errors.New("nil websocket")
	closeNormalFrame  = websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	closeRestartFrame = websocket.FormatCloseMessage(websocket.CloseServiceRestart, "server shutting down")
)

// WsConn 一条已鉴权的 WebSocket 连接。
// 所有写操作都经由 send 队列交给唯一的写协程，调用方从不直接写 socket。
type WsConn struct {
	id        string
	userID    string
	ws        *websocket.Conn
	remote    string
	createdAt time.Time
	conf      *Conf

	send       chan []byte
	done       chan struct{}
	writerDone chan struct{}
	closeOnce  sync.Once
	closeFrame []byte
}

func newWsConn(id, userID string, ws *websocket.Conn, conf *Conf) (*WsConn, error) {
	if ws == nil {
		return nil, errNilWebsocket
	}
	c := &WsConn{
		id:         id,
		userID:     userID,
		ws:         ws,
		createdAt:  time.Now(),
		conf:       conf,
		send:       make(chan []byte, conf.SendQueueSize),
		done:       make(chan struct{}),
		writerDone: make(chan struct{}),
		closeFrame: closeNormalFrame,
	}
	if ra := ws.RemoteAddr(); ra != nil {
		c.remote = ra.String()
	}
	return c, nil
}

func (c *WsConn) ID() string     { return c.id }
func (c *WsConn) UserID() string { return c.userID }
func (c *WsConn) Remote() string { return c.remote }

// Emit 非阻塞入队；队列满时丢弃并返回 ErrSendQueueFull
func (c *WsConn) Emit(event string, payload any) error {
	b, err := encodeFrame(OutFrame{Event: event, Data: payload})
	if err != nil {
		return err
	}
	return c.enqueue(b)
}

func (c *WsConn) emitAck(ackID json.RawMessage, ack *message.Ack) error {
	b, err := encodeFrame(OutFrame{Event: EventAck, Data: ack, AckID: ackID})
	if err != nil {
		return err
	}
	return c.enqueue(b)
}

func (c *WsConn) enqueue(b []byte) error {
	select {
	case <-c.done:
		return ErrConnClosed
	default:
	}
	select {
	case c.send <- b:
		return nil
	case <-c.done:
		return ErrConnClosed
	default:
		logger.Warn("[WS] send queue full, drop frame", zap.String("conn", c.id), zap.String("user", c.userID))
		return ErrSendQueueFull
	}
}

// Close 幂等；写协程收尾后关闭底层连接
func (c *WsConn) Close() {
	c.closeOnce.Do(func() { close(c.done) })
}

func (c *WsConn) closeForShutdown() {
	c.closeOnce.Do(func() {
		c.closeFrame = closeRestartFrame
		close(c.done)
	})
}

// Closed 写协程已退出
func (c *WsConn) Closed() <-chan struct{} { return c.writerDone }

// writeLoop 唯一写协程：业务帧 + 定时 ping；退出时发 Close 帧并关闭 socket
func (c *WsConn) writeLoop() {
	ticker := time.NewTicker(c.conf.PingInterval)
	defer func() {
		ticker.Stop()
		closeQuiet(c.ws)
		close(c.writerDone)
	}()

	for {
		select {
		case b := <-c.send:
			if err := c.write(b); err != nil {
				logger.Info("[WS] write err", zap.String("conn", c.id), zap.String("user", c.userID), zap.Error(err))
				c.Close()
				return
			}
		case <-ticker.C:
			if err := c.ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(c.conf.WriteWait)); err != nil {
				logger.Info("[WS] ping err", zap.String("conn", c.id), zap.Error(err))
				c.Close()
				return
			}
		case <-c.done:
			c.flush()
			_ = c.ws.WriteControl(websocket.CloseMessage, c.closeFrame, time.Now().Add(c.conf.WriteWait))
			return
		}
	}
}

// flush 关闭前尽量把已入队的帧写完
func (c *WsConn) flush() {
	for {
		select {
		case b := <-c.send:
			if err := c.write(b); err != nil {
				return
			}
		default:
			return
		}
	}
}

func (c *WsConn) write(b []byte) error {
	_ = c.ws.SetWriteDeadline(time.Now().Add(c.conf.WriteWait))
	return c.ws.WriteMessage(websocket.TextMessage, b)
}

func closeQuiet(ws *websocket.Conn) {
	if ws != nil {
		_ = ws.Close()
	}
}
