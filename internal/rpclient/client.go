package rpclient

import (
	"context"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const (
	DefaultRequestTimeout = 10 * time.Second
	DefaultWriteTimeout   = 5 * time.Second

	defaultEventBuffer = 64

	tracerName = "github.com/EgorLis/rustplus/internal/rpclient"
)

type RustPlusConfig struct {
	Server      string `json:"server"`
	Port        int    `json:"port"`
	PlayerID    uint64 `json:"player_id"`
	PlayerToken int32  `json:"player_token"`
	UseProxy    bool   `json:"use_proxy"`
}

// Callback получает либо ответ (msg != nil), либо ошибку разрыва соединения.
type Callback func(msg *AppMessage, err error)

type RustPlus struct {
	server      string
	port        int
	playerID    uint64
	playerToken int32
	useProxy    bool

	log            *zap.Logger
	requestTimeout time.Duration
	metrics        *metrics
	tracer         trace.Tracer
	events         *emitter
	tr             *transport

	// sendMu держит выдачу seq и запись в сокет вместе:
	// порядок отправки совпадает с порядком вызовов SendRequest.
	sendMu  sync.Mutex
	seq     uint32
	pending *pendingTable
}

type options struct {
	logger         *zap.Logger
	requestTimeout time.Duration
	writeTimeout   time.Duration
	proxyBase      string
	registerer     prometheus.Registerer
	dialer         *websocket.Dialer
	eventBuffer    int
	tracerProvider trace.TracerProvider
}

// Option настраивает клиента.
type Option func(*options)

// WithLogger задаёт zap-логгер (по умолчанию - zap.NewNop()).
func WithLogger(l *zap.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithRequestTimeout - таймаут SendRequestAsync, если он не передан явно.
func WithRequestTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.requestTimeout = d
		}
	}
}

func WithWriteTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.writeTimeout = d
		}
	}
}

// WithProxyBase подменяет адрес прокси Facepunch (используется при useProxy).
func WithProxyBase(base string) Option {
	return func(o *options) { o.proxyBase = base }
}

// WithRegisterer регистрирует метрики клиента в prometheus.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(o *options) { o.registerer = reg }
}

func WithDialer(d *websocket.Dialer) Option {
	return func(o *options) {
		if d != nil {
			o.dialer = d
		}
	}
}

// WithTracerProvider - откуда брать трейсер для спанов Await
// (по умолчанию глобальный провайдер otel).
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(o *options) {
		if tp != nil {
			o.tracerProvider = tp
		}
	}
}

// WithEventBuffer - ёмкость каналов Subscribe.
func WithEventBuffer(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.eventBuffer = n
		}
	}
}

func New(server string, port int, playerID uint64, playerToken int32, useProxy bool, opts ...Option) *RustPlus {
	o := options{
		logger:         zap.NewNop(),
		requestTimeout: DefaultRequestTimeout,
		writeTimeout:   DefaultWriteTimeout,
		proxyBase:      DefaultProxyBase,
		dialer:         websocket.DefaultDialer,
		eventBuffer:    defaultEventBuffer,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.tracerProvider == nil {
		o.tracerProvider = otel.GetTracerProvider()
	}

	addr := net.JoinHostPort(server, strconv.Itoa(port))
	rp := &RustPlus{
		server:         server,
		port:           port,
		playerID:       playerID,
		playerToken:    playerToken,
		useProxy:       useProxy,
		log:            o.logger.With(zap.String("component", "rpclient"), zap.String("server", addr)),
		requestTimeout: o.requestTimeout,
		metrics:        newMetrics(o.registerer, addr),
		tracer:         o.tracerProvider.Tracer(tracerName),
		events:         newEmitter(o.eventBuffer),
		pending:        newPendingTable(),
	}
	rp.tr = &transport{
		url:          wsURL(server, port, useProxy, o.proxyBase),
		useProxy:     useProxy,
		dialer:       o.dialer,
		writeTimeout: o.writeTimeout,
		log:          rp.log,
		hooks: transportHooks{
			connected: rp.onConnected,
			frame:     rp.onFrame,
			closed:    rp.onClosed,
		},
	}
	return rp
}

// NewFromConfig - то же, что New, по JSON-конфигу.
func NewFromConfig(cfg RustPlusConfig, opts ...Option) *RustPlus {
	return New(cfg.Server, cfg.Port, cfg.PlayerID, cfg.PlayerToken, cfg.UseProxy, opts...)
}

// ========================= жизненный цикл =========================

// Connect начинает подключение и не блокируется: итог придёт событием
// ConnectedEvent либо ErrorEvent + DisconnectedEvent.
func (rp *RustPlus) Connect(ctx context.Context) error {
	if err := rp.tr.open(ctx); err != nil {
		return err
	}
	rp.log.Info("connecting")
	rp.events.emit(ConnectingEvent{})
	return nil
}

// ConnectAndWait - Connect, дожидающийся результата подключения.
func (rp *RustPlus) ConnectAndWait(ctx context.Context) error {
	result := make(chan error, 1)
	off := rp.On(func(ev Event) {
		switch e := ev.(type) {
		case ConnectedEvent:
			select {
			case result <- nil:
			default:
			}
		case DisconnectedEvent:
			err := e.Reason
			if err == nil {
				err = ErrConnectionClosed
			}
			select {
			case result <- err:
			default:
			}
		}
	})
	defer off()

	if err := rp.Connect(ctx); err != nil {
		return err
	}
	select {
	case err := <-result:
		return err
	case <-ctx.Done():
		rp.Disconnect()
		return ctx.Err()
	}
}

// Disconnect закрывает соединение; все ожидающие запросы завершаются
// с *ConnectionClosedError.
func (rp *RustPlus) Disconnect() {
	rp.tr.close()
}

func (rp *RustPlus) IsConnected() bool {
	return rp.tr.State() == StateOpen
}

// State - текущее состояние соединения.
func (rp *RustPlus) State() ConnState {
	return rp.tr.State()
}

// SinceLastActivity - сколько прошло с последнего принятого кадра или pong.
func (rp *RustPlus) SinceLastActivity() time.Duration {
	return rp.tr.sinceLastActivity()
}

// Pending - число запросов, ожидающих ответа.
func (rp *RustPlus) Pending() int {
	return rp.pending.len()
}

// On регистрирует синхронного слушателя событий; возвращает функцию отписки.
// Слушатель вызывается из горутины чтения - долгую работу выносите наружу.
func (rp *RustPlus) On(fn func(Event)) (off func()) {
	return rp.events.on(fn)
}

// Subscribe - канал событий указанных топиков (Topic*); пусто - все.
func (rp *RustPlus) Subscribe(topics ...string) (<-chan Event, func()) {
	return rp.events.subscribe(topics...)
}

// ========================= запросы =========================

// SendRequest отправляет AppRequest и сразу возвращает присвоенный seq.
// cb (если не nil) будет вызван ровно один раз: с ответом на этот seq
// либо с ошибкой разрыва. Вне состояния open - ErrNotConnected, seq не тратится.
func (rp *RustPlus) SendRequest(req *AppRequest, cb Callback) (uint32, error) {
	var complete completion
	if cb != nil {
		complete = completion(cb)
	}
	return rp.submit(req, complete, 0)
}

// SendRequestAsync - как SendRequest, но результат отдаётся через Future.
// timeout <= 0 - таймаут клиента по умолчанию (10s).
func (rp *RustPlus) SendRequestAsync(req *AppRequest, timeout time.Duration) (*Future, error) {
	if timeout <= 0 {
		timeout = rp.requestTimeout
	}
	var fut *Future
	complete := func(msg *AppMessage, err error) {
		if err != nil {
			fut.resolve(nil, err)
			return
		}
		resp := msg.GetResponse()
		if e := resp.GetError(); e != nil {
			fut.resolve(nil, &ServerError{Seq: resp.Seq, Message: e.GetError()})
			return
		}
		fut.resolve(resp, nil)
	}
	// ответ может прийти раньше, чем submit вернёт seq
	fut = newFuture(0)
	seq, err := rp.submit(req, complete, timeout)
	if err != nil {
		return nil, err
	}
	fut.seq = seq
	return fut, nil
}

// Await - блокирующая обёртка над SendRequestAsync. Каждый вызов пишет
// спан "rustplus <kind>" с seq ответа.
func (rp *RustPlus) Await(ctx context.Context, req *AppRequest) (resp *AppResponse, err error) {
	ctx, span := rp.tracer.Start(ctx, "rustplus "+req.Kind(),
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String("rustplus.server", rp.server)),
	)
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	timeout := rp.requestTimeout
	if dl, ok := ctx.Deadline(); ok {
		d := time.Until(dl)
		if d <= 0 {
			return nil, context.DeadlineExceeded
		}
		if d < timeout {
			timeout = d
		}
	}
	fut, err := rp.SendRequestAsync(req, timeout)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.Int64("rustplus.seq", int64(fut.Seq())))
	return fut.Wait(ctx)
}

func (rp *RustPlus) submit(req *AppRequest, complete completion, timeout time.Duration) (uint32, error) {
	seq, sent, err := rp.sendLocked(req, complete, timeout)
	if err != nil || !sent {
		return seq, err
	}

	// события и лог - уже без sendMu: слушатель может слать запросы сам
	kind := req.Kind()
	rp.metrics.requestsTotal.WithLabelValues(kind).Inc()
	rp.log.Debug("request sent", zap.Uint32("seq", seq), zap.String("kind", kind))
	rp.events.emit(RequestEvent{Seq: seq, Request: req})
	return seq, nil
}

// sendLocked выдаёт seq и пишет кадр под sendMu. sent == false без ошибки -
// кадр не ушёл, но исход уже отдан в completion.
func (rp *RustPlus) sendLocked(req *AppRequest, complete completion, timeout time.Duration) (seq uint32, sent bool, err error) {
	rp.sendMu.Lock()
	defer rp.sendMu.Unlock()

	if !rp.IsConnected() {
		return 0, false, ErrNotConnected
	}

	seq = rp.seq + 1
	frame, err := EncodeRequest(Header{Seq: seq, PlayerID: rp.playerID, PlayerToken: rp.playerToken}, req)
	if err != nil {
		return 0, false, err
	}

	kind := req.Kind()
	if complete != nil {
		rp.pending.insert(&pendingRequest{seq: seq, kind: kind, complete: complete, sentAt: time.Now()})
		rp.metrics.pending.Inc()
	}

	if err := rp.tr.send(frame); err != nil {
		seq, err = rp.sendFailedLocked(seq, kind, complete != nil, err)
		return seq, false, err
	}
	rp.seq = seq

	if complete != nil && timeout > 0 {
		rp.pending.arm(seq, timeout, rp.expire)
	}
	return seq, true, nil
}

// sendFailedLocked разбирает ошибку записи кадра. Если запись из таблицы уже
// забрал CancelAll, он же сообщил об ошибке через completion: второй раз
// не сообщаем, seq считается выданным.
func (rp *RustPlus) sendFailedLocked(seq uint32, kind string, tracked bool, err error) (uint32, error) {
	if tracked {
		if _, ok := rp.pending.take(seq); !ok {
			rp.seq = seq
			return seq, nil
		}
		rp.metrics.pending.Dec()
	}
	// сеть упала между проверкой и записью - запись убрали, seq не тратим
	if errors.Is(err, ErrNotConnected) {
		return 0, err
	}
	return 0, errors.Wrapf(err, "send %s", kind)
}

func (rp *RustPlus) expire(p *pendingRequest) {
	rp.metrics.pending.Dec()
	rp.metrics.timeoutsTotal.Inc()
	rp.log.Debug("request timed out", zap.Uint32("seq", p.seq), zap.String("kind", p.kind))
	p.complete(nil, ErrTimeout)
}

// CancelAll завершает все ожидающие запросы ошибкой *ConnectionClosedError.
// После возврата таблица пуста.
func (rp *RustPlus) CancelAll(reason error) {
	drained := rp.pending.drain()
	if len(drained) == 0 {
		return
	}
	rp.log.Debug("cancelling pending requests", zap.Int("count", len(drained)), zap.Error(reason))
	rp.metrics.pending.Sub(float64(len(drained)))
	rp.metrics.cancelledTotal.Add(float64(len(drained)))
	err := &ConnectionClosedError{Reason: reason}
	for _, p := range drained {
		p.complete(nil, err)
	}
}

// ========================= входящие =========================

func (rp *RustPlus) onConnected() {
	rp.log.Info("connected")
	rp.events.emit(ConnectedEvent{})
}

func (rp *RustPlus) onFrame(data []byte) {
	msg, err := DecodeFrame(data)
	if err != nil {
		// битый кадр выбрасываем, соединение и остальные запросы не трогаем
		rp.metrics.decodeErrors.Inc()
		rp.log.Warn("dropping malformed frame", zap.Int("len", len(data)), zap.Error(err))
		rp.events.emit(ErrorEvent{Err: err})
		return
	}

	seq := msg.Seq()
	matched := false
	if seq != 0 {
		if p, ok := rp.pending.take(seq); ok {
			matched = true
			rp.metrics.pending.Dec()
			rp.metrics.latency.Observe(time.Since(p.sentAt).Seconds())
			p.complete(msg, nil)
		}
	}

	if matched {
		rp.metrics.messagesTotal.WithLabelValues("response").Inc()
	} else {
		rp.metrics.messagesTotal.WithLabelValues("broadcast").Inc()
	}
	rp.events.emit(MessageEvent{Seq: seq, Message: msg, Matched: matched})
}

func (rp *RustPlus) onClosed(err error) {
	if err != nil {
		rp.log.Error("connection lost", zap.Error(err))
		rp.events.emit(ErrorEvent{Err: err})
	} else {
		rp.log.Info("disconnected")
	}
	rp.CancelAll(err)
	rp.events.emit(DisconnectedEvent{Reason: err})
}
