package mgo

import (
	"PRelay/data/database/mgo/mongoutil"
	"PRelay/logger"
	"context"
	"errors"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

var ErrNotStarted = errors.New("mongo manager not started")

// MongoManager 后台建连（退避重试）+ 周期健康检查。
// 驱动自身会重连，这里只负责首次就绪通知和健康状态，不替换 client。
type MongoManager struct {
	mu        sync.RWMutex
	client    *mongoutil.Client
	readyCh   chan struct{} // 首次就绪通知；只会被 close 一次
	readyOnce sync.Once
	started   atomic.Bool
	healthy   atomic.Bool

	lastErr atomic.Value // error
}

func NewManager() *MongoManager {
	return &MongoManager{readyCh: make(chan struct{})}
}

// StartAsync 一直运行到 ctx.Done()；首次连上时 close readyCh
func (m *MongoManager) StartAsync(ctx context.Context, cfg *mongoutil.Config) {
	if !m.started.CompareAndSwap(false, true) {
		return
	}
	go func() {
		const (
			baseBackoff = 200 * time.Millisecond
			maxBackoff  = 5 * time.Second
			healthEvery = 10 * time.Second
			failThresh  = 3 // 连续失败阈值
		)

		// ===== 连接阶段（带退避重试） =====
		attempt := 0
		for {
			cli, err := mongoutil.NewMongoDB(ctx, cfg)
			if err == nil {
				m.mu.Lock()
				m.client = cli
				m.mu.Unlock()
				m.healthy.Store(true)
				m.readyOnce.Do(func() { close(m.readyCh) })
				logger.Info("[Mongo] connected", zap.String("db", cfg.Database))
				break
			}
			m.lastErr.Store(err)
			logger.Warn("[Mongo] connect failed", zap.Int("attempt", attempt), zap.Error(err))

			// 退避 + 抖动
			backoff := baseBackoff << attempt
			if backoff > maxBackoff {
				backoff = maxBackoff
			}
			jitter := time.Duration(rand.Int63n(int64(backoff/5) + 1))
			timer := time.NewTimer(backoff - jitter/2)
			select {
			case <-ctx.Done():
				timer.Stop()
				return
			case <-timer.C:
			}
			if attempt < 6 {
				attempt++
			}
		}

		// ===== 健康检查阶段 =====
		fail := 0
		ticker := time.NewTicker(healthEvery)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				pctx, cancel := context.WithTimeout(ctx, 3*time.Second)
				err := m.client.Ping(pctx)
				cancel()
				if err == nil {
					if fail >= failThresh {
						logger.Info("[Mongo] recovered")
					}
					fail = 0
					m.healthy.Store(true)
					continue
				}
				fail++
				m.lastErr.Store(err)
				if fail == failThresh {
					m.healthy.Store(false)
					logger.Error("[Mongo] unhealthy", zap.Int("fails", fail), zap.Error(err))
				}
			}
		}
	}()
}

// Ready 首次连接成功时会 close；可 select 等待
func (m *MongoManager) Ready() <-chan struct{} { return m.readyCh }

func (m *MongoManager) WaitReady(ctx context.Context) error {
	if !m.started.Load() {
		return ErrNotStarted
	}
	select {
	case <-m.readyCh:
		return nil
	case <-ctx.Done():
		if err := m.Err(); err != nil {
			return err
		}
		return ctx.Err()
	}
}

// Healthy 最近的健康检查是否通过
func (m *MongoManager) Healthy() bool { return m.healthy.Load() }

// Err 最近一次错误
func (m *MongoManager) Err() error {
	if v := m.lastErr.Load(); v != nil {
		return v.(error)
	}
	return nil
}

func (m *MongoManager) TryGetDB() (*mongo.Database, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.client == nil {
		return nil, false
	}
	return m.client.GetDB(), true
}

func (m *MongoManager) GetDB() *mongo.Database {
	db, ok := m.TryGetDB()
	if !ok {
		panic("Mongo not ready: wait Ready() or use TryGetDB()")
	}
	return db
}

func (m *MongoManager) Close(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.client == nil {
		return nil
	}
	err := m.client.Close(ctx)
	m.client = nil
	m.healthy.Store(false)
	return err
}
