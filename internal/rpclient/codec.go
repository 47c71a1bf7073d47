package rpclient

import (
	"github.com/pkg/errors"
	"google.golang.org/protobuf/encoding/protowire"
)

// Header - служебные поля, которые клиент добавляет к каждому AppRequest.
type Header struct {
	Seq         uint32
	PlayerID    uint64
	PlayerToken int32
}

// EncodeRequest сериализует AppRequest в бинарный кадр.
// Детерминирована и без побочных эффектов.
func EncodeRequest(h Header, req *AppRequest) ([]byte, error) {
	if req == nil {
		return nil, &EncodingError{Field: "request", Reason: "nil request"}
	}
	switch kinds := req.kinds(); len(kinds) {
	case 0:
		return nil, &EncodingError{Field: "request", Reason: "no request kind set"}
	case 1:
	default:
		return nil, &EncodingError{Field: "request", Reason: "more than one request kind set"}
	}

	b := make([]byte, 0, 32)
	b = appendVarintField(b, 1, uint64(h.Seq))
	b = appendVarintField(b, 2, h.PlayerID)
	b = appendInt32Field(b, 3, h.PlayerToken)
	if req.EntityID != 0 {
		b = appendVarintField(b, 4, uint64(req.EntityID))
	}

	switch {
	case req.GetInfo != nil:
		b = appendEmptyField(b, 8)
	case req.GetTime != nil:
		b = appendEmptyField(b, 9)
	case req.GetMap != nil:
		b = appendEmptyField(b, 10)
	case req.GetTeamInfo != nil:
		b = appendEmptyField(b, 11)
	case req.GetTeamChat != nil:
		b = appendEmptyField(b, 12)
	case req.SendTeamMessage != nil:
		b = appendBytesField(b, 13, appendStringField(nil, 1, req.SendTeamMessage.Message))
	case req.GetEntityInfo != nil:
		if req.EntityID == 0 {
			return nil, &EncodingError{Field: "entityId", Reason: "required for getEntityInfo"}
		}
		b = appendEmptyField(b, 14)
	case req.SetEntityValue != nil:
		if req.EntityID == 0 {
			return nil, &EncodingError{Field: "entityId", Reason: "required for setEntityValue"}
		}
		b = appendBytesField(b, 15, appendBoolField(nil, 1, req.SetEntityValue.Value))
	case req.CheckSubscription != nil:
		b = appendEmptyField(b, 16)
	case req.SetSubscription != nil:
		b = appendBytesField(b, 17, appendBoolField(nil, 1, req.SetSubscription.Value))
	case req.GetMapMarkers != nil:
		b = appendEmptyField(b, 18)
	case req.GetCameraFrame != nil:
		if req.GetCameraFrame.Identifier == "" {
			return nil, &EncodingError{Field: "getCameraFrame.identifier", Reason: "empty camera identifier"}
		}
		var body []byte
		body = appendStringField(body, 1, req.GetCameraFrame.Identifier)
		body = appendVarintField(body, 2, uint64(req.GetCameraFrame.Frame))
		b = appendBytesField(b, 19, body)
	case req.PromoteToLeader != nil:
		b = appendBytesField(b, 20, appendVarintField(nil, 1, req.PromoteToLeader.SteamID))
	case req.CameraSubscribe != nil:
		if req.CameraSubscribe.CameraID == "" {
			return nil, &EncodingError{Field: "cameraSubscribe.cameraId", Reason: "empty camera identifier"}
		}
		b = appendBytesField(b, 22, appendStringField(nil, 1, req.CameraSubscribe.CameraID))
	case req.CameraUnsubscribe != nil:
		b = appendEmptyField(b, 23)
	case req.CameraInput != nil:
		var delta []byte
		delta = appendFloatField(delta, 1, req.CameraInput.MouseDelta.X)
		delta = appendFloatField(delta, 2, req.CameraInput.MouseDelta.Y)
		var body []byte
		body = appendInt32Field(body, 1, req.CameraInput.Buttons)
		body = appendBytesField(body, 2, delta)
		b = appendBytesField(b, 24, body)
	}
	return b, nil
}

// DecodeFrame разбирает входящий кадр в AppMessage.
// Неизвестные поля пропускаются; ошибка всегда *DecodingError.
func DecodeFrame(frame []byte) (*AppMessage, error) {
	msg := &AppMessage{Raw: frame}
	err := walkFields(frame, func(num protowire.Number, typ protowire.Type, v []byte) error {
		switch num {
		case 1:
			body, err := readBytes(num, typ, v)
			if err != nil {
				return err
			}
			msg.Response, err = decodeResponse(body)
			return errors.Wrap(err, "response")
		case 2:
			body, err := readBytes(num, typ, v)
			if err != nil {
				return err
			}
			msg.Broadcast, err = decodeBroadcast(body)
			return errors.Wrap(err, "broadcast")
		}
		return nil
	})
	if err != nil {
		return nil, &DecodingError{Len: len(frame), Err: err}
	}
	return msg, nil
}

// EncodeMessage - обратная к DecodeFrame операция для подмножества полей,
// которое нужно серверной стороне (тестовый сервер, эмуляторы).
func EncodeMessage(msg *AppMessage) []byte {
	var b []byte
	if msg == nil {
		return b
	}
	if r := msg.Response; r != nil {
		b = appendBytesField(b, 1, encodeResponse(r))
	}
	if bc := msg.Broadcast; bc != nil {
		b = appendBytesField(b, 2, encodeBroadcast(bc))
	}
	return b
}

// DecodeRequest разбирает кадр AppRequest (серверная сторона).
func DecodeRequest(frame []byte) (Header, *AppRequest, error) {
	var h Header
	req := &AppRequest{}
	err := walkFields(frame, func(num protowire.Number, typ protowire.Type, v []byte) error {
		var err error
		switch num {
		case 1:
			h.Seq, err = readUint32(num, typ, v)
		case 2:
			h.PlayerID, err = readVarint(num, typ, v)
		case 3:
			h.PlayerToken, err = readInt32(num, typ, v)
		case 4:
			req.EntityID, err = readUint32(num, typ, v)
		case 8:
			req.GetInfo = &AppEmpty{}
		case 9:
			req.GetTime = &AppEmpty{}
		case 10:
			req.GetMap = &AppEmpty{}
		case 11:
			req.GetTeamInfo = &AppEmpty{}
		case 12:
			req.GetTeamChat = &AppEmpty{}
		case 13:
			req.SendTeamMessage = &AppSendMessage{}
			err = decodeSub(num, typ, v, func(n protowire.Number, t protowire.Type, v []byte) (err error) {
				if n == 1 {
					req.SendTeamMessage.Message, err = readString(n, t, v)
				}
				return err
			})
		case 14:
			req.GetEntityInfo = &AppEmpty{}
		case 15:
			req.SetEntityValue = &AppSetEntityValue{}
			err = decodeSub(num, typ, v, func(n protowire.Number, t protowire.Type, v []byte) (err error) {
				if n == 1 {
					req.SetEntityValue.Value, err = readBool(n, t, v)
				}
				return err
			})
		case 16:
			req.CheckSubscription = &AppEmpty{}
		case 17:
			req.SetSubscription = &AppFlag{}
			err = decodeSub(num, typ, v, func(n protowire.Number, t protowire.Type, v []byte) (err error) {
				if n == 1 {
					req.SetSubscription.Value, err = readBool(n, t, v)
				}
				return err
			})
		case 18:
			req.GetMapMarkers = &AppEmpty{}
		case 19:
			req.GetCameraFrame = &AppCameraFrameRequest{}
			err = decodeSub(num, typ, v, func(n protowire.Number, t protowire.Type, v []byte) (err error) {
				switch n {
				case 1:
					req.GetCameraFrame.Identifier, err = readString(n, t, v)
				case 2:
					req.GetCameraFrame.Frame, err = readUint32(n, t, v)
				}
				return err
			})
		case 20:
			req.PromoteToLeader = &AppPromoteToLeader{}
			err = decodeSub(num, typ, v, func(n protowire.Number, t protowire.Type, v []byte) (err error) {
				if n == 1 {
					req.PromoteToLeader.SteamID, err = readVarint(n, t, v)
				}
				return err
			})
		case 22:
			req.CameraSubscribe = &AppCameraSubscribe{}
			err = decodeSub(num, typ, v, func(n protowire.Number, t protowire.Type, v []byte) (err error) {
				if n == 1 {
					req.CameraSubscribe.CameraID, err = readString(n, t, v)
				}
				return err
			})
		case 23:
			req.CameraUnsubscribe = &AppEmpty{}
		case 24:
			req.CameraInput = &AppCameraInput{}
			err = decodeSub(num, typ, v, func(n protowire.Number, t protowire.Type, v []byte) (err error) {
				switch n {
				case 1:
					req.CameraInput.Buttons, err = readInt32(n, t, v)
				case 2:
					err = decodeSub(n, t, v, func(n protowire.Number, t protowire.Type, v []byte) (err error) {
						switch n {
						case 1:
							req.CameraInput.MouseDelta.X, err = readFloat(n, t, v)
						case 2:
							req.CameraInput.MouseDelta.Y, err = readFloat(n, t, v)
						}
						return err
					})
				}
				return err
			})
		}
		return err
	})
	if err != nil {
		return h, nil, &DecodingError{Len: len(frame), Err: err}
	}
	return h, req, nil
}

// decodeSub читает вложенное сообщение и обходит его поля.
func decodeSub(num protowire.Number, typ protowire.Type, v []byte, fn fieldFunc) error {
	body, err := readBytes(num, typ, v)
	if err != nil {
		return err
	}
	return walkFields(body, fn)
}
