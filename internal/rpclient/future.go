package rpclient

import (
	"context"
	"sync"
)

// Future - результат SendRequestAsync. Разрешается ровно один раз:
// ответом сервера, ErrTimeout, *ServerError или *ConnectionClosedError.
type Future struct {
	seq  uint32
	once sync.Once
	done chan struct{}
	resp *AppResponse
	err  error
}

func newFuture(seq uint32) *Future {
	return &Future{seq: seq, done: make(chan struct{})}
}

func (f *Future) resolve(resp *AppResponse, err error) {
	f.once.Do(func() {
		f.resp, f.err = resp, err
		close(f.done)
	})
}

// Seq - номер, присвоенный запросу.
func (f *Future) Seq() uint32 { return f.seq }

// Done закрывается после разрешения.
func (f *Future) Done() <-chan struct{} { return f.done }

// Result возвращает итог; до закрытия Done результат - (nil, nil).
func (f *Future) Result() (*AppResponse, error) {
	select {
	case <-f.done:
		return f.resp, f.err
	default:
		return nil, nil
	}
}

// Wait блокируется до разрешения или отмены ctx. Отмена ctx не снимает
// запрос с ожидания: запись всё равно уйдёт по ответу, таймауту или разрыву.
func (f *Future) Wait(ctx context.Context) (*AppResponse, error) {
	select {
	case <-f.done:
		return f.resp, f.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
