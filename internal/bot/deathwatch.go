package bot

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/EgorLis/rustplus/internal/rpclient"
)

const deathPollTimeout = 8 * time.Second

type playerDeath struct {
	steamID      uint64
	muState      sync.Mutex
	initialized  bool
	lastOnline   bool
	lastAlive    bool
	lastDeathAt  uint32
	lastLogoutAt time.Time
	callback     func()
}

func (bot *RustPlusBot) StartDeathWatch(every time.Duration) error {
	bot.dwMu.Lock()
	defer bot.dwMu.Unlock()

	if bot.checkPlayerDeath == nil {
		return errors.New("death-watch: steamID не задан (!death set <steamid>)")
	}
	if every <= 0 {
		return errors.New("death-watch: интервал должен быть > 0")
	}
	if bot.dwRunning {
		// интервал обновляется на лету
		bot.dwEvery = every
		return nil
	}

	parent := bot.ctx
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancel(parent)
	bot.dwCancel = cancel
	bot.dwEvery = every
	bot.dwRunning = true

	go bot.deathPollLoop(ctx, every)
	return nil
}

func (bot *RustPlusBot) StopDeathWatch() {
	bot.dwMu.Lock()
	defer bot.dwMu.Unlock()
	if !bot.dwRunning {
		return
	}
	bot.dwRunning = false
	if bot.dwCancel != nil {
		bot.dwCancel()
		bot.dwCancel = nil
	}
}

func (bot *RustPlusBot) deathWatchStatus() (bool, time.Duration) {
	bot.dwMu.Lock()
	defer bot.dwMu.Unlock()
	return bot.dwRunning, bot.dwEvery
}

// checkDeath сравнивает снимок команды с прошлым. Первый снимок только
// запоминается. Возвращает true, если персонаж умер.
func (pd *playerDeath) checkDeath(ti *rpclient.AppTeamInfo) (died bool, name string) {
	var me *rpclient.AppTeamMember
	for _, m := range ti.GetMembers() {
		if m.GetSteamId() == pd.steamID {
			me = m
			break
		}
	}
	if me == nil {
		return false, ""
	}

	pd.muState.Lock()
	defer pd.muState.Unlock()

	if !pd.initialized {
		pd.initialized = true
		pd.lastOnline, pd.lastAlive, pd.lastDeathAt = me.IsOnline, me.IsAlive, me.DeathTime
		if !me.IsOnline {
			pd.lastLogoutAt = time.Now()
		}
		return false, me.Name
	}

	if pd.lastOnline && !me.IsOnline {
		pd.lastLogoutAt = time.Now()
	}
	// смерть: упал флаг alive либо сменился deathTime (умер и уже возродился
	// между опросами)
	died = (pd.lastAlive && !me.IsAlive) ||
		(me.DeathTime != 0 && pd.lastDeathAt != 0 && me.DeathTime != pd.lastDeathAt)

	pd.lastAlive, pd.lastOnline, pd.lastDeathAt = me.IsAlive, me.IsOnline, me.DeathTime
	return died, me.Name
}

// deathPollLoop живёт, пока не вызовут StopDeathWatch.
func (bot *RustPlusBot) deathPollLoop(ctx context.Context, every time.Duration) {
	t := time.NewTicker(every)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if cur := bot.currentDeathEvery(); cur != every {
				every = cur
				t.Reset(every)
			}
			// нет соединения - ждём следующего тика, реконнектом занимается run
			if !bot.rpc.IsConnected() {
				continue
			}
			bot.pollDeath(ctx)
		}
	}
}

func (bot *RustPlusBot) currentDeathEvery() time.Duration {
	bot.dwMu.Lock()
	defer bot.dwMu.Unlock()
	return bot.dwEvery
}

func (bot *RustPlusBot) pollDeath(ctx context.Context) {
	bot.dwMu.Lock()
	pd := bot.checkPlayerDeath
	bot.dwMu.Unlock()
	if pd == nil {
		return
	}

	pctx, cancel := context.WithTimeout(ctx, deathPollTimeout)
	defer cancel()
	resp, err := bot.rpc.Await(pctx, &rpclient.AppRequest{GetTeamInfo: &rpclient.AppEmpty{}})
	if err != nil {
		bot.log.Debug("death-watch poll", zap.Error(err))
		return
	}
	died, name := pd.checkDeath(resp.GetTeamInfo())
	if !died {
		return
	}
	bot.log.Info("player died", zap.Uint64("steam_id", pd.steamID), zap.String("name", name))
	bot.say(fmt.Sprintf("%s умер 💀", name))
	if pd.callback != nil {
		go pd.callback()
	}
}
