package bot

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/EgorLis/rustplus/internal/rpclient"
)

type smartSwitch struct {
	id    uint32
	name  string
	state bool
}

func (bot *RustPlusBot) initSwitch(sw *smartSwitch) {
	if sw == nil || bot.rpc == nil || !bot.rpc.IsConnected() {
		return
	}
	id := sw.id
	err := bot.rpc.GetEntityInfo(id, func(m *rpclient.AppMessage, err error) {
		if err != nil {
			return
		}
		info := m.GetResponse().GetEntityInfo()
		if info == nil {
			return
		}
		val := info.GetPayload().GetValue()
		bot.mu.Lock()
		sw.state = val
		bot.mu.Unlock()
		bot.log.Info("switch init", zap.String("name", sw.name), zap.Uint32("id", id), zap.Bool("value", val))
	})
	if err != nil {
		bot.log.Debug("switch init", zap.Uint32("id", id), zap.Error(err))
	}
}

// turnSwitch переключает BT1/BT2 в противоположное известное состояние.
func (bot *RustPlusBot) turnSwitch(number int) string {
	bot.mu.Lock()
	defer bot.mu.Unlock()

	var sw *smartSwitch
	switch number {
	case 1:
		sw = bot.bt1switch
	case 2:
		sw = bot.bt2switch
	default:
		return "Неверные данные"
	}
	if sw == nil {
		return "Кнопка не инициализирована!"
	}

	want := !sw.state
	if err := bot.rpc.SetEntityValue(sw.id, want, nil); err != nil {
		return fmt.Sprintf("%s: %s", sw.name, err)
	}
	sw.state = want
	if want {
		return fmt.Sprintf("%s : on", sw.name)
	}
	return fmt.Sprintf("%s : off", sw.name)
}

func (bot *RustPlusBot) switchStatus(sw *smartSwitch) string {
	if sw == nil {
		return "unset"
	}
	return fmt.Sprintf("%s(%d)=%t", sw.name, sw.id, sw.state)
}
