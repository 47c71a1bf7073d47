package rpclient

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// ========================= transport =========================

const (
	DefaultProxyBase = "wss://companion-rust.facepunch.com"

	readLimit    = 64 << 20
	pingInterval = 10 * time.Second
	pongWait     = 30 * time.Second
	closeTimeout = 500 * time.Millisecond
)

// ConnState - состояние единственного соединения клиента.
type ConnState int32

const (
	StateIdle ConnState = iota
	StateConnecting
	StateOpen
	StateClosing
	StateClosed
	StateError
)

func (s ConnState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateClosing:
		return "closing"
	case StateClosed:
		return "closed"
	case StateError:
		return "error"
	}
	return fmt.Sprintf("ConnState(%d)", int32(s))
}

type transportHooks struct {
	connected func()
	frame     func(data []byte)
	// closed вызывается ровно один раз на каждую попытку open;
	// err == nil - штатное закрытие через close().
	closed func(err error)
}

type transport struct {
	url          string
	useProxy     bool
	dialer       *websocket.Dialer
	writeTimeout time.Duration
	log          *zap.Logger
	hooks        transportHooks

	mu       sync.Mutex
	state    ConnState
	conn     *websocket.Conn
	gen      uint64 // растёт на каждый open/close, отсекает устаревшие горутины
	pingStop chan struct{}

	// кадр сейчас отдаётся в hooks.frame; close() в это время откладывает
	// hooks.closed до конца доставки, чтобы кадр не пришёл после закрытия
	delivering   bool
	closePending bool

	wmu          sync.Mutex   // сериализует запись в websocket
	lastActivity atomic.Int64 // unix nanos последнего принятого кадра/pong
}

// формирует адрес ws/wss: напрямую к серверу или через прокси Facepunch
func wsURL(server string, port int, useProxy bool, proxyBase string) string {
	if useProxy {
		return fmt.Sprintf("%s/game/%s/%d", proxyBase, server, port)
	}
	return "ws://" + net.JoinHostPort(server, strconv.Itoa(port))
}

func (t *transport) State() ConnState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// open начинает подключение и сразу возвращается; результат приходит
// через hooks.connected либо hooks.closed(err).
func (t *transport) open(ctx context.Context) error {
	t.mu.Lock()
	switch t.state {
	case StateConnecting, StateOpen, StateClosing:
		t.mu.Unlock()
		return ErrAlreadyConnected
	}
	t.state = StateConnecting
	t.gen++
	gen := t.gen
	t.mu.Unlock()

	go t.dial(ctx, gen)
	return nil
}

func (t *transport) dial(ctx context.Context, gen uint64) {
	t.log.Debug("dialing", zap.String("url", t.url))
	conn, _, err := t.dialer.DialContext(ctx, t.url, nil)

	t.mu.Lock()
	if t.gen != gen {
		// close() успел раньше - соединение уже никому не нужно
		t.mu.Unlock()
		if conn != nil {
			_ = conn.Close()
		}
		return
	}
	if err != nil {
		t.state = StateError
		t.mu.Unlock()
		t.hooks.closed(errors.Wrap(err, "dial"))
		return
	}

	conn.SetReadLimit(readLimit)
	t.touchActivity()
	t.conn = conn
	t.state = StateOpen
	if t.useProxy {
		// через прокси Facepunch pong есть - держим соединение ping'ами
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			t.touchActivity()
			return conn.SetReadDeadline(time.Now().Add(pongWait))
		})
		t.pingStop = make(chan struct{})
		go t.pingLoop(conn, t.pingStop)
	}
	t.mu.Unlock()

	t.hooks.connected()
	go t.readLoop(conn, gen)
}

func (t *transport) readLoop(conn *websocket.Conn, gen uint64) {
	for {
		typ, data, err := conn.ReadMessage()
		if err != nil {
			t.fail(gen, err)
			return
		}
		t.touchActivity()
		if typ != websocket.BinaryMessage {
			t.log.Debug("skipping non-binary frame", zap.Int("type", typ))
			continue
		}
		if !t.deliver(gen, data) {
			return
		}
	}
}

// deliver отдаёт кадр, только если соединение gen ещё открыто. Если close()
// случился во время доставки, hooks.closed вызывается отсюда, после кадра.
func (t *transport) deliver(gen uint64, data []byte) bool {
	t.mu.Lock()
	if t.gen != gen || t.state != StateOpen {
		t.mu.Unlock()
		return false
	}
	t.delivering = true
	t.mu.Unlock()

	t.hooks.frame(data)

	t.mu.Lock()
	t.delivering = false
	closed := t.closePending
	if closed {
		t.closePending = false
		t.state = StateClosed
	}
	t.mu.Unlock()
	if closed {
		t.hooks.closed(nil)
		return false
	}
	return true
}

// fail - соединение упало само (ошибка сети или закрытие сервером).
func (t *transport) fail(gen uint64, err error) {
	t.mu.Lock()
	if t.gen != gen || t.state != StateOpen {
		// локальный close() уже всё сообщил
		t.mu.Unlock()
		return
	}
	if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
		t.state = StateClosed
	} else {
		t.state = StateError
	}
	conn := t.conn
	t.conn = nil
	t.stopPingLocked()
	t.mu.Unlock()

	_ = conn.Close()
	t.hooks.closed(errors.Wrap(err, "read"))
}

// send пишет кадр; вне состояния open - ErrNotConnected.
func (t *transport) send(frame []byte) error {
	t.mu.Lock()
	if t.state != StateOpen || t.conn == nil {
		t.mu.Unlock()
		return ErrNotConnected
	}
	conn := t.conn
	t.mu.Unlock()

	t.wmu.Lock()
	defer t.wmu.Unlock()
	_ = conn.SetWriteDeadline(time.Now().Add(t.writeTimeout))
	if err := conn.WriteMessage(websocket.BinaryMessage, frame); err != nil {
		return errors.Wrap(err, "write")
	}
	return nil
}

// close - штатное закрытие. Новые кадры после него не доставляются; кадр,
// который уже в доставке, доходит раньше hooks.closed.
func (t *transport) close() {
	t.mu.Lock()
	switch t.state {
	case StateIdle, StateClosing, StateClosed, StateError:
		t.mu.Unlock()
		return
	}
	t.state = StateClosing
	t.gen++
	conn := t.conn
	t.conn = nil
	t.stopPingLocked()
	t.mu.Unlock()

	if conn != nil {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, "closing"),
			time.Now().Add(closeTimeout))
		_ = conn.Close()
	}

	t.mu.Lock()
	if t.delivering {
		// остаёмся в closing, пока кадр не доставлен
		t.closePending = true
		t.mu.Unlock()
		return
	}
	t.state = StateClosed
	t.mu.Unlock()
	t.hooks.closed(nil)
}

func (t *transport) pingLoop(conn *websocket.Conn, stop <-chan struct{}) {
	tick := time.NewTicker(pingInterval)
	defer tick.Stop()
	for {
		select {
		case <-stop:
			return
		case <-tick.C:
			if err := conn.WriteControl(websocket.PingMessage, []byte("ping"), time.Now().Add(t.writeTimeout)); err != nil {
				t.log.Debug("ping failed", zap.Error(err))
			}
		}
	}
}

func (t *transport) stopPingLocked() {
	if t.pingStop != nil {
		close(t.pingStop)
		t.pingStop = nil
	}
}

func (t *transport) touchActivity() {
	t.lastActivity.Store(time.Now().UnixNano())
}

func (t *transport) sinceLastActivity() time.Duration {
	n := t.lastActivity.Load()
	if n == 0 {
		return time.Hour
	}
	return time.Since(time.Unix(0, n))
}
