// Package feed 进程内的变更订阅：每次提交写入后发布完整快照，订阅者总是拿到最新的一份。
package feed

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// GameTopic 游戏记录主题
func GameTopic(gameID string) string {
	return "game:" + gameID
}

// PlayersTopic 玩家列表主题
func PlayersTopic(gameID string) string {
	return "players:" + gameID
}

// Snapshot 一次完整快照
type Snapshot struct {
	Topic       string      `json:"topic"`
	Seq         uint64      `json:"seq"`
	Payload     interface{} `json:"payload"`
	PublishedAt time.Time   `json:"published_at"`
}

// Handler 快照处理函数，在订阅自己的 goroutine 中调用
type Handler func(Snapshot)

// Broker 快照分发中心
type Broker struct {
	mu     sync.RWMutex
	topics map[string]map[string]*subscription
	seq    atomic.Uint64
	closed bool
	logger *zap.Logger
}

type subscription struct {
	id      string
	topic   string
	handler Handler

	mu       sync.Mutex
	slot     chan Snapshot // 容量为1，新快照覆盖未消费的旧快照
	lastSeq  uint64
	done     chan struct{}
	stopOnce sync.Once
}

// NewBroker 创建分发中心
func NewBroker(logger *zap.Logger) *Broker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Broker{
		topics: make(map[string]map[string]*subscription),
		logger: logger,
	}
}

// Subscribe 订阅主题，返回幂等的取消函数
func (b *Broker) Subscribe(topic string, handler Handler) func() {
	sub := b.add(topic, handler)
	return func() { b.unsubscribe(sub) }
}

// SubscribeWith 订阅后加载当前快照并立即投递。
// 当前快照的序号在加载前预留，加载期间发布的更新不会被它覆盖。
func (b *Broker) SubscribeWith(topic string, load func() (interface{}, error), handler Handler) (func(), error) {
	sub := b.add(topic, handler)
	unsubscribe := func() { b.unsubscribe(sub) }

	seq := b.seq.Add(1)
	current, err := load()
	if err != nil {
		unsubscribe()
		return nil, err
	}
	sub.offer(Snapshot{Topic: topic, Seq: seq, Payload: current, PublishedAt: time.Now().UTC()})
	return unsubscribe, nil
}

func (b *Broker) add(topic string, handler Handler) *subscription {
	sub := &subscription{
		id:      uuid.NewString(),
		topic:   topic,
		handler: handler,
		slot:    make(chan Snapshot, 1),
		done:    make(chan struct{}),
	}

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		sub.stop()
		return sub
	}
	subs, ok := b.topics[topic]
	if !ok {
		subs = make(map[string]*subscription)
		b.topics[topic] = subs
	}
	subs[sub.id] = sub
	b.mu.Unlock()

	go sub.run(b.logger)

	b.logger.Debug("新增订阅", zap.String("topic", topic), zap.String("subscription_id", sub.id))
	return sub
}

// Publish 向主题的所有订阅者投递快照
func (b *Broker) Publish(topic string, payload interface{}) {
	snap := Snapshot{
		Topic:       topic,
		Seq:         b.seq.Add(1),
		Payload:     payload,
		PublishedAt: time.Now().UTC(),
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, sub := range b.topics[topic] {
		sub.offer(snap)
	}
}

// SubscriberCount 主题订阅数
func (b *Broker) SubscriberCount(topic string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.topics[topic])
}

// Close 关闭所有订阅
func (b *Broker) Close() {
	b.mu.Lock()
	b.closed = true
	topics := b.topics
	b.topics = make(map[string]map[string]*subscription)
	b.mu.Unlock()

	for _, subs := range topics {
		for _, sub := range subs {
			sub.stop()
		}
	}
}

func (b *Broker) unsubscribe(sub *subscription) {
	b.mu.Lock()
	if subs, ok := b.topics[sub.topic]; ok {
		delete(subs, sub.id)
		if len(subs) == 0 {
			delete(b.topics, sub.topic)
		}
	}
	b.mu.Unlock()

	sub.stop()
	b.logger.Debug("取消订阅", zap.String("topic", sub.topic), zap.String("subscription_id", sub.id))
}

// offer 覆盖式写入；序号更旧的快照直接丢弃
func (s *subscription) offer(snap Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if snap.Seq <= s.lastSeq {
		return
	}
	s.lastSeq = snap.Seq

	select {
	case <-s.slot:
	default:
	}
	s.slot <- snap
}

func (s *subscription) run(logger *zap.Logger) {
	for {
		select {
		case <-s.done:
			return
		case snap := <-s.slot:
			select {
			case <-s.done:
				return
			default:
			}
			s.deliver(snap, logger)
		}
	}
}

func (s *subscription) deliver(snap Snapshot, logger *zap.Logger) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("订阅处理函数panic",
				zap.String("topic", s.topic),
				zap.Any("panic", r))
		}
	}()
	s.handler(snap)
}

func (s *subscription) stop() {
	s.stopOnce.Do(func() { close(s.done) })
}
