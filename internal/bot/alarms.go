package bot

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/EgorLis/rustplus/internal/rpclient"
)

type smartAlarm struct {
	name     string
	msg      string
	callback func()
}

// initAlarmByID читает текущее состояние сигнализации (только лог).
func (bot *RustPlusBot) initAlarmByID(id uint32) {
	if bot.rpc == nil || !bot.rpc.IsConnected() {
		return
	}
	err := bot.rpc.GetEntityInfo(id, func(m *rpclient.AppMessage, err error) {
		if err != nil {
			return
		}
		resp := m.GetResponse()
		if e := resp.GetError(); e != nil {
			bot.log.Warn("alarm init", zap.Uint32("id", id), zap.String("server_error", e.GetError()))
			return
		}
		info := resp.GetEntityInfo()
		if info == nil {
			return
		}
		// имя берём на момент колбэка
		bot.mu.Lock()
		a, ok := bot.alarms[id]
		bot.mu.Unlock()
		name := fmt.Sprintf("alarm_%d", id)
		if ok {
			name = a.name
		}
		bot.log.Info("alarm init",
			zap.String("name", name), zap.Uint32("id", id),
			zap.Int32("type", info.Type), zap.Bool("value", info.GetPayload().GetValue()))
	})
	if err != nil {
		bot.log.Debug("alarm init", zap.Uint32("id", id), zap.Error(err))
	}
}
