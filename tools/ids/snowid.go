package ids

import (
	"hash/fnv"
	"strconv"
	"sync"
	"time"
)

// 连接ID：41 位毫秒时间戳 | 10 位节点 | 12 位序列
const (
	nodeBits = 10
	seqBits  = 12
	maxNode  = 1<<nodeBits - 1
	seqMask  = 1<<seqBits - 1
)

var epoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

type Generator struct {
	mu      sync.Mutex
	nodeID  int64
	seq     int64
	lastMS  int64
	nowFunc func() time.Time
}

var (
	defaultGen     *Generator
	defaultGenOnce sync.Once
)

func NewGenerator(nodeID int64) *Generator {
	if nodeID < 0 || nodeID > maxNode {
		nodeID = 1
	}
	return &Generator{nodeID: nodeID, nowFunc: time.Now}
}

func def() *Generator {
	defaultGenOnce.Do(func() { defaultGen = NewGenerator(1) })
	return defaultGen
}

// SetNode 按节点名设置默认生成器的 nodeID，main() 启动时调用一次
func SetNode(node string) {
	h := fnv.New32a()
	_, _ = h.Write([]byte(node))
	g := def()
	g.mu.Lock()
	g.nodeID = int64(h.Sum32() % (maxNode + 1))
	g.mu.Unlock()
}

// ConnID 生成新的连接ID（默认生成器）
func ConnID() string {
	return strconv.FormatInt(def().Next(), 10)
}

func (g *Generator) Next() int64 {
	g.mu.Lock()
	defer g.mu.Unlock()

	for {
		now := g.nowFunc().Sub(epoch).Milliseconds()
		if now < g.lastMS {
			// 时钟回拨，等待追上
			time.Sleep(time.Duration(g.lastMS-now) * time.Millisecond)
			continue
		}
		if now == g.lastMS {
			g.seq = (g.seq + 1) & seqMask
			if g.seq == 0 {
				// 序列溢出，等到下一毫秒
				for now <= g.lastMS {
					now = g.nowFunc().Sub(epoch).Milliseconds()
				}
			}
		} else {
			g.seq = 0
		}
		g.lastMS = now
		return now<<(nodeBits+seqBits) | g.nodeID<<seqBits | g.seq
	}
}
