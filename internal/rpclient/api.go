package rpclient

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// ========================= high-level API =========================

func (rp *RustPlus) SetEntityValue(entityID uint32, value bool, cb Callback) error {
	_, err := rp.SendRequest(&AppRequest{
		EntityID:       entityID,
		SetEntityValue: &AppSetEntityValue{Value: value},
	}, cb)
	return err
}

func (rp *RustPlus) TurnSmartSwitchOn(entityID uint32, cb Callback) error {
	return rp.SetEntityValue(entityID, true, cb)
}

func (rp *RustPlus) TurnSmartSwitchOff(entityID uint32, cb Callback) error {
	return rp.SetEntityValue(entityID, false, cb)
}

// DefaultStrobeInterval - интервал Strobe, если передан interval <= 0.
const DefaultStrobeInterval = 100 * time.Millisecond

// Strobe быстро переключает свитч, пока не отменят ctx. Каждое переключение -
// отдельный запрос без ожидания ответа. Сервер довольно быстро начнёт
// отвечать rate_limit, клиент это не отслеживает.
func (rp *RustPlus) Strobe(ctx context.Context, entityID uint32, interval time.Duration, start bool) {
	if interval <= 0 {
		interval = DefaultStrobeInterval
	}
	if err := rp.SetEntityValue(entityID, start, nil); err != nil {
		rp.log.Debug("strobe", zap.Uint32("entity", entityID), zap.Error(err))
	}
	t := time.NewTicker(interval)
	go func() {
		defer t.Stop()
		val := start
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				val = !val
				if err := rp.SetEntityValue(entityID, val, nil); err != nil {
					rp.log.Debug("strobe", zap.Uint32("entity", entityID), zap.Error(err))
				}
			}
		}
	}()
}

func (rp *RustPlus) SendTeamMessage(message string, cb Callback) error {
	_, err := rp.SendRequest(&AppRequest{
		SendTeamMessage: &AppSendMessage{Message: message},
	}, cb)
	return err
}

func (rp *RustPlus) GetEntityInfo(entityID uint32, cb Callback) error {
	_, err := rp.SendRequest(&AppRequest{
		EntityID:      entityID,
		GetEntityInfo: &AppEmpty{},
	}, cb)
	return err
}

func (rp *RustPlus) GetMap(cb Callback) error {
	_, err := rp.SendRequest(&AppRequest{GetMap: &AppEmpty{}}, cb)
	return err
}

func (rp *RustPlus) GetTime(cb Callback) error {
	_, err := rp.SendRequest(&AppRequest{GetTime: &AppEmpty{}}, cb)
	return err
}

func (rp *RustPlus) GetMapMarkers(cb Callback) error {
	_, err := rp.SendRequest(&AppRequest{GetMapMarkers: &AppEmpty{}}, cb)
	return err
}

func (rp *RustPlus) GetInfo(cb Callback) error {
	_, err := rp.SendRequest(&AppRequest{GetInfo: &AppEmpty{}}, cb)
	return err
}

func (rp *RustPlus) GetTeamInfo(cb Callback) error {
	_, err := rp.SendRequest(&AppRequest{GetTeamInfo: &AppEmpty{}}, cb)
	return err
}

func (rp *RustPlus) GetTeamChat(cb Callback) error {
	_, err := rp.SendRequest(&AppRequest{GetTeamChat: &AppEmpty{}}, cb)
	return err
}

func (rp *RustPlus) PromoteToLeader(steamID uint64, cb Callback) error {
	_, err := rp.SendRequest(&AppRequest{
		PromoteToLeader: &AppPromoteToLeader{SteamID: steamID},
	}, cb)
	return err
}

// CheckSubscription - подписан ли игрок на push-уведомления сущности.
func (rp *RustPlus) CheckSubscription(entityID uint32, cb Callback) error {
	_, err := rp.SendRequest(&AppRequest{
		EntityID:          entityID,
		CheckSubscription: &AppEmpty{},
	}, cb)
	return err
}

func (rp *RustPlus) SetSubscription(entityID uint32, value bool, cb Callback) error {
	_, err := rp.SendRequest(&AppRequest{
		EntityID:        entityID,
		SetSubscription: &AppFlag{Value: value},
	}, cb)
	return err
}

// GetCameraFrame - кадр CCTV-камеры. frame нужно увеличивать на каждый
// запрос, иначе сервер вернёт закешированный кадр.
func (rp *RustPlus) GetCameraFrame(identifier string, frame uint32, cb Callback) error {
	_, err := rp.SendRequest(&AppRequest{
		GetCameraFrame: &AppCameraFrameRequest{Identifier: identifier, Frame: frame},
	}, cb)
	return err
}

func (rp *RustPlus) SubscribeToCamera(identifier string, cb Callback) error {
	_, err := rp.SendRequest(&AppRequest{
		CameraSubscribe: &AppCameraSubscribe{CameraID: identifier},
	}, cb)
	return err
}

func (rp *RustPlus) UnsubscribeFromCamera(cb Callback) error {
	_, err := rp.SendRequest(&AppRequest{CameraUnsubscribe: &AppEmpty{}}, cb)
	return err
}

func (rp *RustPlus) SendCameraInput(buttons int32, dx, dy float32, cb Callback) error {
	_, err := rp.SendRequest(&AppRequest{
		CameraInput: &AppCameraInput{
			Buttons:    buttons,
			MouseDelta: Vector2{X: dx, Y: dy},
		},
	}, cb)
	return err
}
