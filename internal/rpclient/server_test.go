package rpclient

import (
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// received - запрос, который тестовый сервер получил от клиента.
type received struct {
	conn *serverConn
	hdr  Header
	req  *AppRequest
}

type serverConn struct {
	ws  *websocket.Conn
	wmu sync.Mutex
}

func (c *serverConn) send(t *testing.T, msg *AppMessage) {
	t.Helper()
	c.sendRaw(t, EncodeMessage(msg))
}

func (c *serverConn) sendRaw(t *testing.T, data []byte) {
	t.Helper()
	require.NoError(t, c.write(data))
}

func (c *serverConn) write(data []byte) error {
	c.wmu.Lock()
	defer c.wmu.Unlock()
	return c.ws.WriteMessage(websocket.BinaryMessage, data)
}

func (c *serverConn) close() {
	c.wmu.Lock()
	defer c.wmu.Unlock()
	_ = c.ws.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseGoingAway, "server restart"),
		time.Now().Add(time.Second))
	_ = c.ws.Close()
}

// fakeServer - Rust+ сервер на httptest: читает AppRequest и отдаёт их
// в канал requests (или в handler, если он задан).
type fakeServer struct {
	t        *testing.T
	srv      *httptest.Server
	requests chan received
	handler  func(r received)

	mu    sync.Mutex
	conns []*serverConn
}

func newFakeServer(t *testing.T, handler func(r received)) *fakeServer {
	t.Helper()
	fs := &fakeServer{t: t, requests: make(chan received, 64), handler: handler}
	upgrader := websocket.Upgrader{}
	fs.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Logf("upgrade: %v", err)
			return
		}
		sc := &serverConn{ws: ws}
		fs.mu.Lock()
		fs.conns = append(fs.conns, sc)
		fs.mu.Unlock()

		for {
			_, data, err := ws.ReadMessage()
			if err != nil {
				return
			}
			hdr, req, err := DecodeRequest(data)
			if err != nil {
				t.Logf("server decode: %v", err)
				continue
			}
			rcv := received{conn: sc, hdr: hdr, req: req}
			if fs.handler != nil {
				fs.handler(rcv)
				continue
			}
			fs.requests <- rcv
		}
	}))
	t.Cleanup(fs.srv.Close)
	return fs
}

func (fs *fakeServer) hostPort() (string, int) {
	host, port, err := net.SplitHostPort(fs.srv.Listener.Addr().String())
	require.NoError(fs.t, err)
	p, err := strconv.Atoi(port)
	require.NoError(fs.t, err)
	return host, p
}

func (fs *fakeServer) lastConn() *serverConn {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	if len(fs.conns) == 0 {
		return nil
	}
	return fs.conns[len(fs.conns)-1]
}

func (fs *fakeServer) next() received {
	fs.t.Helper()
	select {
	case r := <-fs.requests:
		return r
	case <-time.After(2 * time.Second):
		fs.t.Fatal("server did not receive a request")
		return received{}
	}
}

// echo отвечает Success на каждый запрос.
func echo(r received) {
	_ = r.conn.write(EncodeMessage(&AppMessage{
		Response: &AppResponse{Seq: r.hdr.Seq, Success: &AppEmpty{}},
	}))
}

func newConnectedClient(t *testing.T, fs *fakeServer, opts ...Option) *RustPlus {
	t.Helper()
	host, port := fs.hostPort()
	opts = append([]Option{WithLogger(zap.NewNop())}, opts...)
	rp := New(host, port, 76561198000000000, -12345, false, opts...)
	require.NoError(t, rp.ConnectAndWait(testContext(t)))
	t.Cleanup(rp.Disconnect)
	return rp
}
