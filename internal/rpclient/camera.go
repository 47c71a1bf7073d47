package rpclient

import (
	"context"
	"sync"

	"github.com/pkg/errors"
)

// ========================= удобный враппер Camera =========================

// Camera помнит последний запрошенный индекс кадра. Повтор индекса сервер
// трактует как запрос кешированного кадра; клиент индекс не проверяет.
type Camera struct {
	rp *RustPlus
	id string

	mu    sync.Mutex
	frame uint32
	sub   bool
}

func (rp *RustPlus) GetCamera(identifier string) *Camera {
	return &Camera{rp: rp, id: identifier}
}

func (c *Camera) ID() string { return c.id }

// LastFrame - индекс последнего запрошенного кадра (0 - ещё не запрашивали).
func (c *Camera) LastFrame() uint32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.frame
}

// Frame запрашивает кадр с заданным индексом как есть.
func (c *Camera) Frame(frame uint32, cb Callback) error {
	if err := c.rp.GetCameraFrame(c.id, frame, cb); err != nil {
		return err
	}
	c.mu.Lock()
	c.frame = frame
	c.mu.Unlock()
	return nil
}

// NextFrame запрашивает следующий (свежий) кадр и ждёт его.
func (c *Camera) NextFrame(ctx context.Context) (*AppCameraFrame, error) {
	c.mu.Lock()
	next := c.frame + 1
	c.mu.Unlock()

	resp, err := c.rp.Await(ctx, &AppRequest{
		GetCameraFrame: &AppCameraFrameRequest{Identifier: c.id, Frame: next},
	})
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	if next > c.frame {
		c.frame = next
	}
	c.mu.Unlock()
	if resp.CameraFrame == nil {
		return nil, errors.Errorf("camera %s: response carries no frame", c.id)
	}
	return resp.CameraFrame, nil
}

func (c *Camera) Subscribe(cb Callback) error {
	if err := c.rp.SubscribeToCamera(c.id, cb); err != nil {
		return err
	}
	c.mu.Lock()
	c.sub = true
	c.mu.Unlock()
	return nil
}

func (c *Camera) Unsubscribe(cb Callback) error {
	c.mu.Lock()
	if !c.sub {
		c.mu.Unlock()
		return nil
	}
	c.sub = false
	c.mu.Unlock()
	return c.rp.UnsubscribeFromCamera(cb)
}

func (c *Camera) Input(buttons int32, dx, dy float32, cb Callback) error {
	return c.rp.SendCameraInput(buttons, dx, dy, cb)
}
