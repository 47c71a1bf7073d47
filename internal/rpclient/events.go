package rpclient

import (
	"sync"

	"github.com/cskr/pubsub"
)

// Event - одно из: ConnectingEvent, ConnectedEvent, DisconnectedEvent,
// ErrorEvent, RequestEvent, MessageEvent.
type Event interface {
	// Topic - имя вида события, оно же топик для Subscribe.
	Topic() string
}

const (
	TopicConnecting   = "connecting"
	TopicConnected    = "connected"
	TopicDisconnected = "disconnected"
	TopicError        = "error"
	TopicRequest      = "request"
	TopicMessage      = "message"
)

type ConnectingEvent struct{}

type ConnectedEvent struct{}

// DisconnectedEvent: Reason == nil при штатном Disconnect.
type DisconnectedEvent struct {
	Reason error
}

type ErrorEvent struct {
	Err error
}

// RequestEvent - запрос отправлен в сокет.
type RequestEvent struct {
	Seq     uint32
	Request *AppRequest
}

// MessageEvent - каждое разобранное входящее сообщение. Matched == false
// означает broadcast: seq равен 0 или не найден среди ожидающих.
type MessageEvent struct {
	Seq     uint32
	Message *AppMessage
	Matched bool
}

func (ConnectingEvent) Topic() string   { return TopicConnecting }
func (ConnectedEvent) Topic() string    { return TopicConnected }
func (DisconnectedEvent) Topic() string { return TopicDisconnected }
func (ErrorEvent) Topic() string        { return TopicError }
func (RequestEvent) Topic() string      { return TopicRequest }
func (MessageEvent) Topic() string      { return TopicMessage }

// emitter - синхронные слушатели плюс каналы подписки через pubsub.
type emitter struct {
	mu        sync.RWMutex
	listeners []listener
	nextID    int

	busOnce sync.Once
	bus     *pubsub.PubSub
	busSize int
	hasSubs bool
}

type listener struct {
	id int
	fn func(Event)
}

func newEmitter(busSize int) *emitter {
	return &emitter{busSize: busSize}
}

func (e *emitter) on(fn func(Event)) func() {
	e.mu.Lock()
	id := e.nextID
	e.nextID++
	e.listeners = append(e.listeners, listener{id: id, fn: fn})
	e.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			e.mu.Lock()
			for i, l := range e.listeners {
				if l.id == id {
					e.listeners = append(e.listeners[:i:i], e.listeners[i+1:]...)
					break
				}
			}
			e.mu.Unlock()
		})
	}
}

// subscribe возвращает канал событий выбранных топиков (все, если пусто).
// Медленный читатель тормозит доставку: pubsub блокируется на полном канале.
func (e *emitter) subscribe(topics ...string) (<-chan Event, func()) {
	e.busOnce.Do(func() { e.bus = pubsub.New(e.busSize) })
	if len(topics) == 0 {
		topics = []string{TopicConnecting, TopicConnected, TopicDisconnected, TopicError, TopicRequest, TopicMessage}
	}
	ch := e.bus.Sub(topics...)

	e.mu.Lock()
	e.hasSubs = true
	e.mu.Unlock()

	out := make(chan Event, e.busSize)
	stop := make(chan struct{})
	go func() {
		defer close(out)
		// после отмены продолжаем вычитывать ch, пока pubsub его не закроет
		for v := range ch {
			select {
			case <-stop:
			default:
				select {
				case out <- v.(Event):
				case <-stop:
				}
			}
		}
	}()

	var once sync.Once
	return out, func() {
		once.Do(func() {
			close(stop)
			e.bus.Unsub(ch)
		})
	}
}

func (e *emitter) emit(ev Event) {
	e.mu.RLock()
	fns := make([]func(Event), 0, len(e.listeners))
	for _, l := range e.listeners {
		fns = append(fns, l.fn)
	}
	subs := e.hasSubs
	e.mu.RUnlock()

	for _, fn := range fns {
		fn(ev)
	}
	if subs {
		e.bus.Pub(ev, ev.Topic())
	}
}
