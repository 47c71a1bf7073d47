package rpclient

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/encoding/protowire"
)

func TestEncodeRequest_Header(t *testing.T) {
	h := Header{Seq: 7, PlayerID: 76561198000000000, PlayerToken: -1}
	b, err := EncodeRequest(h, &AppRequest{GetTime: &AppEmpty{}})
	require.NoError(t, err)

	got, req, err := DecodeRequest(b)
	require.NoError(t, err)
	assert.Equal(t, h, got)
	assert.NotNil(t, req.GetTime)
	assert.Equal(t, "getTime", req.Kind())
}

func TestEncodeRequest_NegativeTokenIsSignExtended(t *testing.T) {
	b, err := EncodeRequest(Header{Seq: 1, PlayerID: 1, PlayerToken: -12345}, &AppRequest{GetInfo: &AppEmpty{}})
	require.NoError(t, err)

	var raw uint64
	require.NoError(t, walkFields(b, func(num protowire.Number, typ protowire.Type, v []byte) (err error) {
		if num == 3 {
			raw, err = readVarint(num, typ, v)
		}
		return err
	}))
	// int32 на проводе - 64-битный varint
	assert.Equal(t, uint64(0xffffffffffffcfc7), raw)
}

func TestEncodeRequest_Deterministic(t *testing.T) {
	req := &AppRequest{EntityID: 559662, SetEntityValue: &AppSetEntityValue{Value: true}}
	h := Header{Seq: 3, PlayerID: 42, PlayerToken: 99}
	a, err := EncodeRequest(h, req)
	require.NoError(t, err)
	b, err := EncodeRequest(h, req)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestEncodeRequest_Invalid(t *testing.T) {
	cases := []struct {
		name  string
		req   *AppRequest
		field string
	}{
		{"nil", nil, "request"},
		{"no kind", &AppRequest{EntityID: 1}, "request"},
		{"two kinds", &AppRequest{GetTime: &AppEmpty{}, GetMap: &AppEmpty{}}, "request"},
		{"entity info without id", &AppRequest{GetEntityInfo: &AppEmpty{}}, "entityId"},
		{"set value without id", &AppRequest{SetEntityValue: &AppSetEntityValue{Value: true}}, "entityId"},
		{"empty camera", &AppRequest{GetCameraFrame: &AppCameraFrameRequest{Frame: 1}}, "getCameraFrame.identifier"},
		{"empty camera subscribe", &AppRequest{CameraSubscribe: &AppCameraSubscribe{}}, "cameraSubscribe.cameraId"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := EncodeRequest(Header{Seq: 1}, tc.req)
			var encErr *EncodingError
			require.True(t, errors.As(err, &encErr), "got %v", err)
			assert.Equal(t, tc.field, encErr.Field)
		})
	}
}

func TestEncodeRequest_AllKindsDecode(t *testing.T) {
	reqs := []*AppRequest{
		{GetInfo: &AppEmpty{}},
		{GetMap: &AppEmpty{}},
		{GetTeamInfo: &AppEmpty{}},
		{GetTeamChat: &AppEmpty{}},
		{GetMapMarkers: &AppEmpty{}},
		{SendTeamMessage: &AppSendMessage{Message: "привет"}},
		{EntityID: 5, GetEntityInfo: &AppEmpty{}},
		{EntityID: 5, SetEntityValue: &AppSetEntityValue{Value: true}},
		{EntityID: 5, CheckSubscription: &AppEmpty{}},
		{EntityID: 5, SetSubscription: &AppFlag{Value: true}},
		{GetCameraFrame: &AppCameraFrameRequest{Identifier: "DOME1", Frame: 3}},
		{PromoteToLeader: &AppPromoteToLeader{SteamID: 76561198000000001}},
		{CameraSubscribe: &AppCameraSubscribe{CameraID: "DOME1"}},
		{CameraUnsubscribe: &AppEmpty{}},
		{CameraInput: &AppCameraInput{Buttons: -1, MouseDelta: Vector2{X: 1.5, Y: -2}}},
	}
	for _, want := range reqs {
		t.Run(want.Kind(), func(t *testing.T) {
			b, err := EncodeRequest(Header{Seq: 1}, want)
			require.NoError(t, err)
			_, got, err := DecodeRequest(b)
			require.NoError(t, err)
			assert.Equal(t, want, got)
		})
	}
}

func TestDecodeFrame_Response(t *testing.T) {
	in := &AppMessage{Response: &AppResponse{
		Seq: 12,
		EntityInfo: &AppEntityInfo{
			Type:    1,
			Payload: &AppEntityPayload{Value: true, HasValue: true},
		},
	}}
	msg, err := DecodeFrame(EncodeMessage(in))
	require.NoError(t, err)
	assert.Equal(t, uint32(12), msg.Seq())
	assert.True(t, msg.GetResponse().GetEntityInfo().GetPayload().GetValue())
	assert.Nil(t, msg.GetBroadcast())
}

func TestDecodeFrame_BroadcastHasNoSeq(t *testing.T) {
	in := &AppMessage{Broadcast: &AppBroadcast{EntityChanged: &AppEntityChanged{
		EntityID: 33,
		Payload:  &AppEntityPayload{Value: false, HasValue: true},
	}}}
	msg, err := DecodeFrame(EncodeMessage(in))
	require.NoError(t, err)
	assert.Zero(t, msg.Seq())
	ec := msg.GetBroadcast().GetEntityChanged()
	require.NotNil(t, ec)
	assert.Equal(t, uint32(33), ec.EntityID)
	assert.False(t, ec.GetPayload().GetValue())
}

func TestDecodeFrame_SkipsUnknownFields(t *testing.T) {
	b := EncodeMessage(&AppMessage{Response: &AppResponse{Seq: 4, Success: &AppEmpty{}}})
	b = protowire.AppendTag(b, 99, protowire.VarintType)
	b = protowire.AppendVarint(b, 123)
	b = protowire.AppendTag(b, 100, protowire.Fixed64Type)
	b = protowire.AppendFixed64(b, 1)

	msg, err := DecodeFrame(b)
	require.NoError(t, err)
	assert.Equal(t, uint32(4), msg.Seq())
	assert.NotNil(t, msg.Response.Success)
	assert.Equal(t, b, msg.Raw)
}

func TestDecodeFrame_Malformed(t *testing.T) {
	cases := map[string][]byte{
		"truncated length": {0x0a, 0xff, 0xff},
		"truncated body":   {0x0a, 0x05, 0x08},
		"bad tag":          {0x00},
		"wrong wire type":  {0x08, 0x01},
	}
	for name, frame := range cases {
		t.Run(name, func(t *testing.T) {
			msg, err := DecodeFrame(frame)
			assert.Nil(t, msg)
			var decErr *DecodingError
			require.True(t, errors.As(err, &decErr), "got %v", err)
			assert.Equal(t, len(frame), decErr.Len)
		})
	}
}

func TestDecodeFrame_Empty(t *testing.T) {
	msg, err := DecodeFrame(nil)
	require.NoError(t, err)
	assert.Nil(t, msg.Response)
	assert.Nil(t, msg.Broadcast)
	assert.Zero(t, msg.Seq())
}

func TestDecodeFrame_CameraField(t *testing.T) {
	frame := &AppMessage{Response: &AppResponse{Seq: 1, CameraFrame: &AppCameraFrame{
		Identifier: "OILRIG2L1", Frame: 9, JpgImage: []byte{0xff, 0xd8, 0xff},
	}}}
	msg, err := DecodeFrame(EncodeMessage(frame))
	require.NoError(t, err)
	require.NotNil(t, msg.Response.CameraFrame)
	assert.Nil(t, msg.Response.CameraInfo)
	assert.Equal(t, "OILRIG2L1", msg.Response.CameraFrame.Identifier)
	assert.Equal(t, uint32(9), msg.Response.CameraFrame.Frame)

	info := &AppMessage{Response: &AppResponse{Seq: 2, CameraInfo: &AppCameraInfo{Width: 160, Height: 90}}}
	msg, err = DecodeFrame(EncodeMessage(info))
	require.NoError(t, err)
	assert.Nil(t, msg.Response.CameraFrame)
	require.NotNil(t, msg.Response.CameraInfo)
	assert.Equal(t, int32(160), msg.Response.CameraInfo.Width)
	assert.Equal(t, int32(90), msg.Response.CameraInfo.Height)
}

func TestDecodeFrame_TeamChat(t *testing.T) {
	in := &AppMessage{Response: &AppResponse{Seq: 3, TeamChat: &AppTeamChat{Messages: []*AppTeamMessage{
		{SteamID: 1, Name: "a", Message: "one", Time: 100},
		{SteamID: 2, Name: "b", Message: "two", Time: 101},
	}}}}
	msg, err := DecodeFrame(EncodeMessage(in))
	require.NoError(t, err)
	require.Len(t, msg.Response.TeamChat.Messages, 2)
	assert.Equal(t, "two", msg.Response.TeamChat.Messages[1].GetMessage())
	assert.Equal(t, "a", msg.Response.TeamChat.Messages[0].GetName())
}

func TestDecodeFrame_ServerError(t *testing.T) {
	msg, err := DecodeFrame(EncodeMessage(&AppMessage{Response: &AppResponse{
		Seq: 8, Error: &AppError{Error: "rate_limit"},
	}}))
	require.NoError(t, err)
	assert.Equal(t, "rate_limit", msg.GetResponse().GetError().GetError())
}
