package bot

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/EgorLis/rustplus/internal/rpclient"
)

// heartbeatConf - app-heartbeat для прямого подключения: сервер не отвечает
// на ws ping, поэтому живость проверяем лёгким getTeamInfo.
type heartbeatConf struct {
	every   time.Duration // как часто проверять
	idle    time.Duration // сколько тишины считать подозрительной
	timeout time.Duration // сколько ждать ответа
}

func (h heartbeatConf) enabled() bool { return h.every > 0 }

// EnableHeartbeat включает app-heartbeat (25s/20s/8s). Через прокси
// он не нужен: там работает ws ping/pong.
func (bot *RustPlusBot) EnableHeartbeat() {
	bot.heartbeat = heartbeatConf{every: 25 * time.Second, idle: 20 * time.Second, timeout: 8 * time.Second}
}

func (bot *RustPlusBot) heartbeatLoop(ctx context.Context) {
	tick := time.NewTicker(bot.heartbeat.every)
	defer tick.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-tick.C:
			if !bot.rpc.IsConnected() || bot.rpc.SinceLastActivity() <= bot.heartbeat.idle {
				continue
			}
			bot.probe(ctx)
		}
	}
}

// probe шлёт getTeamInfo; нет ответа - соединение считаем подвисшим и
// закрываем, дальше его переподнимет run.
func (bot *RustPlusBot) probe(ctx context.Context) {
	pctx, cancel := context.WithTimeout(ctx, bot.heartbeat.timeout)
	defer cancel()

	_, err := bot.rpc.Await(pctx, &rpclient.AppRequest{GetTeamInfo: &rpclient.AppEmpty{}})
	var srvErr *rpclient.ServerError
	switch {
	case err == nil, errors.As(err, &srvErr):
		// любой ответ сервера - признак жизни
		return
	case ctx.Err() != nil, errors.Is(err, rpclient.ErrNotConnected), errors.Is(err, rpclient.ErrConnectionClosed):
		return
	}
	bot.log.Warn("heartbeat failed, dropping connection", zap.Error(err))
	bot.rpc.Disconnect()
}
