package rpclient

import (
	"sync"
	"time"
)

// completion - единое представление ожидающего запроса: и колбэк,
// и Future сводятся к вызову этой функции ровно один раз.
type completion func(msg *AppMessage, err error)

type pendingRequest struct {
	seq      uint32
	kind     string
	complete completion
	timer    *time.Timer
	sentAt   time.Time
}

// pendingTable - таблица запросов, ожидающих ответа, по seq.
// Запись удаляется ровно один раз (take/drain); кто удалил - тот и вызывает completion.
type pendingTable struct {
	mu sync.Mutex
	m  map[uint32]*pendingRequest
}

func newPendingTable() *pendingTable {
	return &pendingTable{m: make(map[uint32]*pendingRequest)}
}

func (t *pendingTable) insert(p *pendingRequest) {
	t.mu.Lock()
	t.m[p.seq] = p
	t.mu.Unlock()
}

// arm заводит таймер для ещё не завершённой записи. Если ответ уже
// пришёл (записи нет), таймер не создаётся и возвращается false.
func (t *pendingTable) arm(seq uint32, d time.Duration, onExpire func(*pendingRequest)) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	p, ok := t.m[seq]
	if !ok {
		return false
	}
	p.timer = time.AfterFunc(d, func() {
		if p, ok := t.take(seq); ok {
			onExpire(p)
		}
	})
	return true
}

// take удаляет запись и останавливает её таймер.
func (t *pendingTable) take(seq uint32) (*pendingRequest, bool) {
	t.mu.Lock()
	p, ok := t.m[seq]
	if ok {
		delete(t.m, seq)
	}
	t.mu.Unlock()
	if ok && p.timer != nil {
		p.timer.Stop()
	}
	return p, ok
}

// drain опустошает таблицу целиком (разрыв соединения).
func (t *pendingTable) drain() []*pendingRequest {
	t.mu.Lock()
	out := make([]*pendingRequest, 0, len(t.m))
	for seq, p := range t.m {
		out = append(out, p)
		delete(t.m, seq)
	}
	t.mu.Unlock()
	for _, p := range out {
		if p.timer != nil {
			p.timer.Stop()
		}
	}
	return out
}

func (t *pendingTable) has(seq uint32) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.m[seq]
	return ok
}

func (t *pendingTable) len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.m)
}
