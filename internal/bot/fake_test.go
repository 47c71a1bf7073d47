package bot

import (
	"context"
	"sync"
	"time"

	"github.com/EgorLis/rustplus/internal/rpclient"
)

type entityWrite struct {
	id    uint32
	value bool
}

type strobeCall struct {
	id       uint32
	interval time.Duration
	ctx      context.Context
}

// fakeClient - Client без сети: пишет всё, что бот отправил, и отдаёт
// события из канала events.
type fakeClient struct {
	mu        sync.Mutex
	connected bool
	connects  int
	disconns  int
	idle      time.Duration
	said      []string
	writes    []entityWrite
	infoReqs  []uint32
	strobes   []strobeCall
	awaitFn   func(ctx context.Context, req *rpclient.AppRequest) (*rpclient.AppResponse, error)
	connectFn func() error

	events chan rpclient.Event
	saidCh chan string
}

func newFakeClient() *fakeClient {
	return &fakeClient{
		connected: true,
		events:    make(chan rpclient.Event, 16),
		saidCh:    make(chan string, 64),
	}
}

func (f *fakeClient) Connect(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.connects++
	if f.connectFn != nil {
		return f.connectFn()
	}
	f.connected = true
	return nil
}

func (f *fakeClient) Disconnect() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.disconns++
	f.connected = false
}

func (f *fakeClient) IsConnected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connected
}

func (f *fakeClient) SinceLastActivity() time.Duration {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.idle
}

func (f *fakeClient) Subscribe(...string) (<-chan rpclient.Event, func()) {
	return f.events, func() {}
}

func (f *fakeClient) SendTeamMessage(message string, _ rpclient.Callback) error {
	f.mu.Lock()
	f.said = append(f.said, message)
	f.mu.Unlock()
	f.saidCh <- message
	return nil
}

func (f *fakeClient) SetEntityValue(id uint32, value bool, _ rpclient.Callback) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.connected {
		return rpclient.ErrNotConnected
	}
	f.writes = append(f.writes, entityWrite{id: id, value: value})
	return nil
}

func (f *fakeClient) GetEntityInfo(id uint32, cb rpclient.Callback) error {
	f.mu.Lock()
	f.infoReqs = append(f.infoReqs, id)
	f.mu.Unlock()
	if cb != nil {
		cb(&rpclient.AppMessage{Response: &rpclient.AppResponse{
			EntityInfo: &rpclient.AppEntityInfo{Type: 1, Payload: &rpclient.AppEntityPayload{Value: true, HasValue: true}},
		}}, nil)
	}
	return nil
}

func (f *fakeClient) Strobe(ctx context.Context, id uint32, interval time.Duration, _ bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.strobes = append(f.strobes, strobeCall{id: id, interval: interval, ctx: ctx})
}

func (f *fakeClient) Await(ctx context.Context, req *rpclient.AppRequest) (*rpclient.AppResponse, error) {
	f.mu.Lock()
	fn := f.awaitFn
	f.mu.Unlock()
	if fn == nil {
		return &rpclient.AppResponse{Success: &rpclient.AppEmpty{}}, nil
	}
	return fn(ctx, req)
}

func (f *fakeClient) saidAll() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.said...)
}

func (f *fakeClient) connectCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connects
}

func (f *fakeClient) disconnectCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.disconns
}

func teamMessage(name, text string) rpclient.Event {
	return rpclient.MessageEvent{Message: &rpclient.AppMessage{Broadcast: &rpclient.AppBroadcast{
		TeamMessage: &rpclient.AppNewTeamMessage{Message: &rpclient.AppTeamMessage{Name: name, Message: text}},
	}}}
}

func entityChanged(id uint32, value bool) rpclient.Event {
	return rpclient.MessageEvent{Message: &rpclient.AppMessage{Broadcast: &rpclient.AppBroadcast{
		EntityChanged: &rpclient.AppEntityChanged{EntityID: id, Payload: &rpclient.AppEntityPayload{Value: value, HasValue: true}},
	}}}
}
