package bot

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/EgorLis/rustplus/internal/bmapi"
	"github.com/EgorLis/rustplus/internal/rpclient"
)

const (
	botPrefix = "[bot]"

	defaultBackoffMin = time.Second
	defaultBackoffMax = 30 * time.Second
	bmScanInterval    = time.Minute
)

// Client - часть rpclient.RustPlus, которой пользуется бот.
type Client interface {
	Connect(ctx context.Context) error
	Disconnect()
	IsConnected() bool
	SinceLastActivity() time.Duration
	Subscribe(topics ...string) (<-chan rpclient.Event, func())

	SendTeamMessage(message string, cb rpclient.Callback) error
	SetEntityValue(entityID uint32, value bool, cb rpclient.Callback) error
	GetEntityInfo(entityID uint32, cb rpclient.Callback) error
	Strobe(ctx context.Context, entityID uint32, interval time.Duration, start bool)
	Await(ctx context.Context, req *rpclient.AppRequest) (*rpclient.AppResponse, error)
}

var _ Client = (*rpclient.RustPlus)(nil)

type RustPlusBot struct {
	log *zap.Logger
	bm  *bmapi.Client
	rpc Client

	mu        sync.Mutex
	alarms    map[uint32]smartAlarm
	bt1switch *smartSwitch
	bt2switch *smartSwitch
	strobe    *strobeState

	checkPlayerDeath *playerDeath

	cfg       *configStore
	soundDir  string
	playSound func(path string) error

	heartbeat  heartbeatConf
	backoffMin time.Duration
	backoffMax time.Duration

	ctx    context.Context
	cancel context.CancelFunc
	unsub  func()
	wg     sync.WaitGroup

	// чтобы не дёргать re-init слишком часто при серии быстрых реконнектов
	reinitMu   sync.Mutex
	lastReinit time.Time

	// death-watch
	dwMu      sync.Mutex
	dwRunning bool
	dwCancel  context.CancelFunc
	dwEvery   time.Duration
}

type strobeState struct {
	id     uint32
	cancel context.CancelFunc
}

func New(logger *zap.Logger) *RustPlusBot {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RustPlusBot{
		log:        logger.With(zap.String("component", "bot")),
		alarms:     make(map[uint32]smartAlarm),
		soundDir:   "sounds",
		playSound:  PlaySoundFile,
		backoffMin: defaultBackoffMin,
		backoffMax: defaultBackoffMax,
	}
}

func (bot *RustPlusBot) SetRustPlusClient(c Client) {
	bot.rpc = c
}

func (bot *RustPlusBot) SetBattleMetrics(bm *bmapi.Client) {
	bot.bm = bm
}

// SetSoundDir - каталог со звуками для alarm/death (по умолчанию ./sounds).
func (bot *RustPlusBot) SetSoundDir(dir string) {
	bot.soundDir = dir
}

// SetReconnectBackoff - пределы экспоненциальной задержки между попытками.
func (bot *RustPlusBot) SetReconnectBackoff(min, max time.Duration) {
	if min > 0 {
		bot.backoffMin = min
	}
	if max >= bot.backoffMin {
		bot.backoffMax = max
	}
}

func (bot *RustPlusBot) SetCheckPlayerDeath(steamID uint64, sound *string) {
	death := &playerDeath{steamID: steamID}
	if sound != nil {
		death.callback = bot.callbackForSound(*sound)
	}
	bot.dwMu.Lock()
	bot.checkPlayerDeath = death
	bot.dwMu.Unlock()
}

func (bot *RustPlusBot) SetSwitch(number int, switchId uint32, switchName string) error {
	if number < 1 || number > 2 {
		return errors.New("такую кнопку нельзя установить")
	}
	sw := &smartSwitch{id: switchId, name: switchName}

	bot.mu.Lock()
	if number == 1 {
		bot.bt1switch = sw
	} else {
		bot.bt2switch = sw
	}
	bot.mu.Unlock()

	bot.initSwitch(sw)
	return nil
}

func (bot *RustPlusBot) SetAlarm(alarmId uint32, alarmName, alarmMsg string, triggerFunc func()) {
	bot.mu.Lock()
	bot.alarms[alarmId] = smartAlarm{name: alarmName, msg: alarmMsg, callback: triggerFunc}
	bot.mu.Unlock()
	bot.initAlarmByID(alarmId)
}

func (bot *RustPlusBot) RemoveAlarm(alarmId uint32) {
	bot.mu.Lock()
	delete(bot.alarms, alarmId)
	bot.mu.Unlock()
}

// Start подключается и запускает обработку событий. Соединение
// переподнимается с backoff, пока не вызван Stop.
func (bot *RustPlusBot) Start(ctx context.Context) error {
	if bot == nil {
		return errors.New("бот не инициализирован")
	}
	if bot.rpc == nil {
		return errors.New("модуль rpc не инициализирован")
	}
	if bot.cancel != nil {
		return errors.New("уже запущен")
	}

	ctx, cancel := context.WithCancel(ctx)
	events, unsub := bot.rpc.Subscribe(
		rpclient.TopicConnected, rpclient.TopicDisconnected,
		rpclient.TopicError, rpclient.TopicMessage,
	)
	bot.ctx, bot.cancel, bot.unsub = ctx, cancel, unsub

	if err := bot.rpc.Connect(ctx); err != nil {
		cancel()
		unsub()
		bot.cancel = nil
		return err
	}

	bot.wg.Add(1)
	go func() {
		defer bot.wg.Done()
		bot.run(ctx, events)
	}()

	if bot.heartbeat.enabled() {
		bot.wg.Add(1)
		go func() {
			defer bot.wg.Done()
			bot.heartbeatLoop(ctx)
		}()
	}

	if bot.cfg != nil {
		bot.wg.Add(1)
		go func() {
			defer bot.wg.Done()
			if err := bot.cfg.Watch(ctx, bot.applyConfig); err != nil {
				bot.log.Warn("config watch stopped", zap.Error(err))
			}
		}()
	}

	if bot.bm != nil {
		if err := bot.bm.StartScan(ctx, bmScanInterval, bot.say); err != nil {
			bot.log.Warn("battlemetrics scan", zap.Error(err))
		}
	}
	return nil
}

func (bot *RustPlusBot) Stop() {
	if bot.cancel == nil {
		return
	}
	bot.cancel()
	bot.StopDeathWatch()
	bot.stopStrobe()
	if bot.bm != nil {
		bot.bm.Stop()
	}
	bot.wg.Wait()
	bot.unsub()
	bot.rpc.Disconnect()
	bot.cancel = nil
}

// run - единственный читатель событий клиента. Здесь нельзя ждать ответов
// (Await): события и ответы приходят из одной горутины чтения.
func (bot *RustPlusBot) run(ctx context.Context, events <-chan rpclient.Event) {
	backoff := bot.backoffMin
	var retry <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return

		case <-retry:
			retry = nil
			err := bot.rpc.Connect(ctx)
			if err == nil || errors.Is(err, rpclient.ErrAlreadyConnected) {
				continue
			}
			bot.log.Warn("reconnect failed", zap.Duration("wait", backoff), zap.Error(err))
			retry = time.After(backoff)
			backoff = nextBackoff(backoff, bot.backoffMax)

		case ev, ok := <-events:
			if !ok {
				return
			}
			switch e := ev.(type) {
			case rpclient.ConnectedEvent:
				bot.log.Info("connected")
				backoff = bot.backoffMin
				go bot.reinitDevices()
			case rpclient.DisconnectedEvent:
				if ctx.Err() != nil {
					return
				}
				bot.log.Warn("disconnected", zap.Duration("reconnect_in", backoff), zap.Error(e.Reason))
				retry = time.After(backoff)
				backoff = nextBackoff(backoff, bot.backoffMax)
			case rpclient.ErrorEvent:
				bot.log.Debug("client error", zap.Error(e.Err))
			case rpclient.MessageEvent:
				if !e.Matched {
					bot.handleBroadcast(e.Message.GetBroadcast())
				}
			}
		}
	}
}

func nextBackoff(cur, max time.Duration) time.Duration {
	cur *= 2
	if cur > max {
		return max
	}
	return cur
}

func (bot *RustPlusBot) handleBroadcast(b *rpclient.AppBroadcast) {
	if b == nil {
		return
	}

	// --- чат-команды ---
	if chat := b.GetTeamMessage(); chat != nil {
		message := chat.GetMessage()
		text := strings.TrimSpace(message.GetMessage())
		if strings.HasPrefix(text, botPrefix) {
			return
		}
		bot.log.Info("team chat", zap.String("player", message.GetName()), zap.String("text", text))
		if strings.HasPrefix(text, "!") {
			if err := bot.HandleCommand(text); err != nil {
				bot.say(fmt.Sprintf("err: %v", err))
			}
		}
		return
	}

	// --- smart alarm ---
	if ec := b.GetEntityChanged(); ec != nil {
		bot.mu.Lock()
		alarm, watched := bot.alarms[ec.EntityID]
		bot.mu.Unlock()
		if !watched || !ec.GetPayload().GetValue() {
			return
		}
		bot.say(fmt.Sprintf("[ALARM TRIGGERED] %s (%d): %s", alarm.name, ec.EntityID, alarm.msg))
		if alarm.callback != nil {
			go alarm.callback()
		}
	}
}

// say пишет в командный чат от имени бота.
func (bot *RustPlusBot) say(msg string) {
	text := botPrefix + " " + msg
	bot.log.Info("say", zap.String("text", text))
	if err := bot.rpc.SendTeamMessage(text, nil); err != nil {
		bot.log.Warn("team message not sent", zap.Error(err))
	}
}

// re-init всех девайсов при (ре)подключении
func (bot *RustPlusBot) reinitDevices() {
	// антидребезг: серия Connected подряд схлопывается в один вызов
	bot.reinitMu.Lock()
	if time.Since(bot.lastReinit) < 2*time.Second {
		bot.reinitMu.Unlock()
		return
	}
	bot.lastReinit = time.Now()
	bot.reinitMu.Unlock()

	bot.mu.Lock()
	switches := []*smartSwitch{bot.bt1switch, bot.bt2switch}
	ids := make([]uint32, 0, len(bot.alarms))
	for id := range bot.alarms {
		ids = append(ids, id)
	}
	bot.mu.Unlock()

	// синхронизируем свитчи: читаем текущее значение (НЕ переключаем)
	for _, sw := range switches {
		bot.initSwitch(sw)
	}
	for _, id := range ids {
		bot.initAlarmByID(id)
	}
}
