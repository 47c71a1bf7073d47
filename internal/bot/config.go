package bot

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/EgorLis/rustplus/internal/bmapi"
)

type SwitchConf struct {
	ID   uint32 `json:"id"`
	Name string `json:"name"`
}

type AlarmConf struct {
	ID    uint32 `json:"id"`
	Name  string `json:"name"`
	Msg   string `json:"msg"`
	Sound string `json:"sound"` // "none" или "1.mp3"
}

type PlayerConf struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type BotConfig struct {
	BT1    *SwitchConf          `json:"bt1,omitempty"`
	BT2    *SwitchConf          `json:"bt2,omitempty"`
	Alarms map[uint32]AlarmConf `json:"alarms"`
	// Список отслеживаемых игроков для BM:
	Players []PlayerConf `json:"players"`
}

func (c BotConfig) clone() BotConfig {
	out := c
	if c.BT1 != nil {
		v := *c.BT1
		out.BT1 = &v
	}
	if c.BT2 != nil {
		v := *c.BT2
		out.BT2 = &v
	}
	out.Alarms = make(map[uint32]AlarmConf, len(c.Alarms))
	for k, v := range c.Alarms {
		out.Alarms[k] = v
	}
	out.Players = append([]PlayerConf(nil), c.Players...)
	return out
}

// configStore хранит BotConfig в JSON-файле. raw - последнее прочитанное
// или записанное содержимое: по нему Watch отличает свои записи от чужих.
type configStore struct {
	mu   sync.Mutex
	path string
	data BotConfig
	raw  []byte
	log  *zap.Logger
}

func newConfigStore(path string, log *zap.Logger) *configStore {
	return &configStore{
		path: filepath.Clean(path),
		data: BotConfig{Alarms: map[uint32]AlarmConf{}},
		log:  log,
	}
}

// UseConfig подключает файл конфига, применяет его и включает горячую
// перезагрузку при Start.
func (bot *RustPlusBot) UseConfig(path string) error {
	bot.cfg = newConfigStore(path, bot.log)
	if err := bot.cfg.Load(); err != nil {
		return err
	}
	bot.applyConfig(bot.cfg.snapshot())
	return nil
}

// applyConfig приводит рантайм к конфигу: BT1/BT2, alarms, игроки BM.
func (bot *RustPlusBot) applyConfig(c BotConfig) {
	if c.BT1 != nil && !bot.switchMatches(1, c.BT1) {
		_ = bot.SetSwitch(1, c.BT1.ID, c.BT1.Name)
	}
	if c.BT2 != nil && !bot.switchMatches(2, c.BT2) {
		_ = bot.SetSwitch(2, c.BT2.ID, c.BT2.Name)
	}

	bot.mu.Lock()
	var stale []uint32
	for id := range bot.alarms {
		if _, ok := c.Alarms[id]; !ok {
			stale = append(stale, id)
		}
	}
	for _, id := range stale {
		delete(bot.alarms, id)
	}
	bot.mu.Unlock()
	for _, a := range c.Alarms {
		bot.SetAlarm(a.ID, a.Name, a.Msg, bot.callbackForSound(a.Sound))
	}

	if bot.bm != nil {
		want := make(map[string]bool, len(c.Players))
		var ps []bmapi.Player
		for _, p := range c.Players {
			want[p.ID] = true
			ps = append(ps, bmapi.Player{ID: p.ID, Name: p.Name})
		}
		for id := range bot.bm.Tracked() {
			if !want[id] {
				bot.bm.RemovePlayer(id)
			}
		}
		bot.bm.AddPlayer(ps...)
	}
	bot.log.Info("config applied",
		zap.Int("alarms", len(c.Alarms)), zap.Int("players", len(c.Players)))
}

func (bot *RustPlusBot) switchMatches(number int, sc *SwitchConf) bool {
	bot.mu.Lock()
	defer bot.mu.Unlock()
	sw := bot.bt1switch
	if number == 2 {
		sw = bot.bt2switch
	}
	return sw != nil && sw.id == sc.ID && sw.name == sc.Name
}

func (cs *configStore) Load() error {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	if err := os.MkdirAll(filepath.Dir(cs.path), 0o755); err != nil {
		return errors.Wrap(err, "config dir")
	}
	b, err := os.ReadFile(cs.path)
	if err != nil {
		if os.IsNotExist(err) {
			return cs.saveLocked() // создаём пустой
		}
		return errors.Wrap(err, "read config")
	}
	return cs.parseLocked(b)
}

func (cs *configStore) parseLocked(b []byte) error {
	data := BotConfig{}
	if err := json.Unmarshal(b, &data); err != nil {
		return errors.Wrapf(err, "parse %s", cs.path)
	}
	if data.Alarms == nil {
		data.Alarms = map[uint32]AlarmConf{}
	}
	cs.data, cs.raw = data, b
	return nil
}

func (cs *configStore) Save() error {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	return cs.saveLocked()
}

func (cs *configStore) saveLocked() error {
	b, err := json.MarshalIndent(&cs.data, "", "  ")
	if err != nil {
		return errors.Wrap(err, "encode config")
	}
	if err := os.WriteFile(cs.path, b, 0o644); err != nil {
		return errors.Wrap(err, "write config")
	}
	cs.raw = b
	return nil
}

// update меняет конфиг и сразу сохраняет его на диск.
func (cs *configStore) update(fn func(c *BotConfig)) error {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	fn(&cs.data)
	return cs.saveLocked()
}

func (cs *configStore) snapshot() BotConfig {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	return cs.data.clone()
}

// reload перечитывает файл; changed == false, если содержимое не менялось.
func (cs *configStore) reload() (c BotConfig, changed bool, err error) {
	b, err := os.ReadFile(cs.path)
	if err != nil {
		return BotConfig{}, false, errors.Wrap(err, "read config")
	}
	cs.mu.Lock()
	defer cs.mu.Unlock()
	if bytes.Equal(b, cs.raw) {
		return BotConfig{}, false, nil
	}
	if err := cs.parseLocked(b); err != nil {
		return BotConfig{}, false, err
	}
	return cs.data.clone(), true, nil
}

// Watch следит за файлом конфига и зовёт onChange после каждой внешней
// правки. Следим за каталогом: редакторы часто пишут через rename.
func (cs *configStore) Watch(ctx context.Context, onChange func(BotConfig)) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Wrap(err, "fsnotify")
	}
	defer w.Close()
	if err := w.Add(filepath.Dir(cs.path)); err != nil {
		return errors.Wrapf(err, "watch %s", filepath.Dir(cs.path))
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != cs.path || !ev.Has(fsnotify.Write|fsnotify.Create) {
				continue
			}
			c, changed, err := cs.reload()
			if err != nil {
				// полузаписанный файл: дождёмся следующего события
				cs.log.Warn("config reload failed", zap.Error(err))
				continue
			}
			if changed {
				cs.log.Info("config changed on disk", zap.String("path", cs.path))
				onChange(c)
			}
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			cs.log.Warn("config watcher", zap.Error(err))
		}
	}
}
