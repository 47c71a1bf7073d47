package bot

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/EgorLis/rustplus/internal/rpclient"
)

func newTestBot(t *testing.T) (*RustPlusBot, *fakeClient) {
	t.Helper()
	b := New(nil)
	fc := newFakeClient()
	b.SetRustPlusClient(fc)
	b.playSound = func(string) error { return nil }
	return b, fc
}

func waitSaid(t *testing.T, fc *fakeClient, want string) {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case s := <-fc.saidCh:
			if s == want {
				return
			}
		case <-deadline:
			t.Fatalf("bot never said %q; said %q", want, fc.saidAll())
		}
	}
}

func TestStart_RequiresClient(t *testing.T) {
	assert.Error(t, New(nil).Start(context.Background()))
}

func TestStart_Twice(t *testing.T) {
	b, fc := newTestBot(t)
	require.NoError(t, b.Start(context.Background()))
	defer b.Stop()
	assert.Error(t, b.Start(context.Background()))
	assert.Equal(t, 1, fc.connectCount())
}

func TestRun_ChatCommands(t *testing.T) {
	b, fc := newTestBot(t)
	require.NoError(t, b.Start(context.Background()))
	defer b.Stop()

	fc.events <- teamMessage("egor", "[bot] !bt")
	fc.events <- teamMessage("egor", "just chatting")
	fc.events <- teamMessage("egor", "!bt")
	waitSaid(t, fc, "[bot] BT1: unset | BT2: unset")

	fc.events <- teamMessage("egor", "!nope")
	waitSaid(t, fc, "[bot] err: unknown command. try !help")
	assert.Len(t, fc.saidAll(), 2)
}

func TestRun_MatchedResponsesIgnored(t *testing.T) {
	b, fc := newTestBot(t)
	require.NoError(t, b.Start(context.Background()))
	defer b.Stop()

	ev := teamMessage("egor", "!bt").(rpclient.MessageEvent)
	ev.Matched = true
	fc.events <- ev
	fc.events <- teamMessage("egor", "!bt")
	waitSaid(t, fc, "[bot] BT1: unset | BT2: unset")
	assert.Len(t, fc.saidAll(), 1)
}

func TestRun_ReconnectsWithBackoff(t *testing.T) {
	b, fc := newTestBot(t)
	b.SetReconnectBackoff(10*time.Millisecond, 40*time.Millisecond)
	require.NoError(t, b.Start(context.Background()))
	defer b.Stop()

	fc.mu.Lock()
	fc.connected = false
	fc.connectFn = func() error { return errors.New("dial refused") }
	fc.mu.Unlock()

	fc.events <- rpclient.DisconnectedEvent{Reason: errors.New("eof")}
	assert.Eventually(t, func() bool { return fc.connectCount() >= 4 }, 2*time.Second, 5*time.Millisecond)

	fc.mu.Lock()
	fc.connectFn = nil
	fc.mu.Unlock()
	assert.Eventually(t, fc.IsConnected, 2*time.Second, 5*time.Millisecond)
}

func TestRun_NoReconnectAfterStop(t *testing.T) {
	b, fc := newTestBot(t)
	b.SetReconnectBackoff(10*time.Millisecond, 10*time.Millisecond)
	require.NoError(t, b.Start(context.Background()))
	b.Stop()

	n := fc.connectCount()
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, n, fc.connectCount())
	assert.Equal(t, 1, fc.disconnectCount())
}

func TestNextBackoff(t *testing.T) {
	d := time.Second
	var got []time.Duration
	for i := 0; i < 7; i++ {
		d = nextBackoff(d, 30*time.Second)
		got = append(got, d)
	}
	assert.Equal(t, []time.Duration{
		2 * time.Second, 4 * time.Second, 8 * time.Second, 16 * time.Second,
		30 * time.Second, 30 * time.Second, 30 * time.Second,
	}, got)
}

func TestAlarm_Triggers(t *testing.T) {
	b, fc := newTestBot(t)
	b.SetSoundDir("snd")
	played := make(chan string, 1)
	b.playSound = func(p string) error { played <- p; return nil }

	require.NoError(t, b.HandleCommand(`!alarm add 42 door msg="дом рейдят" sound=2.mp3`))
	waitSaid(t, fc, "[bot] alarm added: door(42)")

	b.handleBroadcast(entityChanged(42, false).(rpclient.MessageEvent).Message.Broadcast)
	b.handleBroadcast(entityChanged(43, true).(rpclient.MessageEvent).Message.Broadcast)
	b.handleBroadcast(entityChanged(42, true).(rpclient.MessageEvent).Message.Broadcast)
	waitSaid(t, fc, "[bot] [ALARM TRIGGERED] door (42): дом рейдят")

	select {
	case p := <-played:
		assert.Equal(t, "snd/2.mp3", p)
	case <-time.After(time.Second):
		t.Fatal("sound not played")
	}
	assert.Len(t, fc.saidAll(), 2)
}

func TestHeartbeat_DropsSilentConnection(t *testing.T) {
	b, fc := newTestBot(t)
	b.heartbeat = heartbeatConf{every: 10 * time.Millisecond, idle: 5 * time.Millisecond, timeout: 20 * time.Millisecond}
	fc.idle = time.Minute
	fc.awaitFn = func(ctx context.Context, req *rpclient.AppRequest) (*rpclient.AppResponse, error) {
		assert.NotNil(t, req.GetTeamInfo)
		return nil, rpclient.ErrTimeout
	}

	require.NoError(t, b.Start(context.Background()))
	defer b.Stop()
	assert.Eventually(t, func() bool { return fc.disconnectCount() >= 1 }, 2*time.Second, 5*time.Millisecond)
}

func TestHeartbeat_ServerErrorCountsAsAlive(t *testing.T) {
	b, fc := newTestBot(t)
	b.heartbeat = heartbeatConf{every: time.Second, idle: time.Second, timeout: 50 * time.Millisecond}
	fc.awaitFn = func(context.Context, *rpclient.AppRequest) (*rpclient.AppResponse, error) {
		return nil, &rpclient.ServerError{Seq: 1, Message: "rate_limit"}
	}
	b.probe(context.Background())
	assert.Zero(t, fc.disconnectCount())

	fc.awaitFn = func(context.Context, *rpclient.AppRequest) (*rpclient.AppResponse, error) {
		return nil, &rpclient.ConnectionClosedError{}
	}
	b.probe(context.Background())
	assert.Zero(t, fc.disconnectCount())
}

func TestHeartbeat_SkipsActiveConnection(t *testing.T) {
	b, fc := newTestBot(t)
	b.heartbeat = heartbeatConf{every: 10 * time.Millisecond, idle: time.Minute, timeout: 20 * time.Millisecond}
	called := make(chan struct{}, 1)
	fc.awaitFn = func(context.Context, *rpclient.AppRequest) (*rpclient.AppResponse, error) {
		called <- struct{}{}
		return nil, rpclient.ErrTimeout
	}
	require.NoError(t, b.Start(context.Background()))
	defer b.Stop()

	select {
	case <-called:
		t.Fatal("probe sent on an active connection")
	case <-time.After(60 * time.Millisecond):
	}
}
