package rpclient

// Подмножество схемы rustplus.proto, с которым работает клиент.
// Номера полей зафиксированы в codec.go; всё, что сюда не попало,
// доступно через AppMessage.Raw.

// ========================= запросы =========================

type AppEmpty struct{}

type AppSendMessage struct {
	Message string
}

type AppSetEntityValue struct {
	Value bool
}

type AppFlag struct {
	Value bool
}

type AppCameraFrameRequest struct {
	Identifier string
	Frame      uint32
}

type AppPromoteToLeader struct {
	SteamID uint64
}

type AppCameraSubscribe struct {
	CameraID string
}

type Vector2 struct {
	X, Y float32
}

type AppCameraInput struct {
	Buttons    int32
	MouseDelta Vector2
}

// AppRequest - тело запроса. Должен быть задан ровно один вид запроса;
// seq, playerId и playerToken проставляет клиент.
type AppRequest struct {
	EntityID uint32

	GetInfo           *AppEmpty
	GetTime           *AppEmpty
	GetMap            *AppEmpty
	GetTeamInfo       *AppEmpty
	GetTeamChat       *AppEmpty
	SendTeamMessage   *AppSendMessage
	GetEntityInfo     *AppEmpty
	SetEntityValue    *AppSetEntityValue
	CheckSubscription *AppEmpty
	SetSubscription   *AppFlag
	GetMapMarkers     *AppEmpty
	GetCameraFrame    *AppCameraFrameRequest
	PromoteToLeader   *AppPromoteToLeader
	CameraSubscribe   *AppCameraSubscribe
	CameraUnsubscribe *AppEmpty
	CameraInput       *AppCameraInput
}

// Kind - короткое имя вида запроса, используется в логах и метриках.
func (r *AppRequest) Kind() string {
	kinds := r.kinds()
	switch len(kinds) {
	case 0:
		return "none"
	case 1:
		return kinds[0]
	default:
		return "multiple"
	}
}

func (r *AppRequest) kinds() []string {
	if r == nil {
		return nil
	}
	var out []string
	add := func(set bool, name string) {
		if set {
			out = append(out, name)
		}
	}
	add(r.GetInfo != nil, "getInfo")
	add(r.GetTime != nil, "getTime")
	add(r.GetMap != nil, "getMap")
	add(r.GetTeamInfo != nil, "getTeamInfo")
	add(r.GetTeamChat != nil, "getTeamChat")
	add(r.SendTeamMessage != nil, "sendTeamMessage")
	add(r.GetEntityInfo != nil, "getEntityInfo")
	add(r.SetEntityValue != nil, "setEntityValue")
	add(r.CheckSubscription != nil, "checkSubscription")
	add(r.SetSubscription != nil, "setSubscription")
	add(r.GetMapMarkers != nil, "getMapMarkers")
	add(r.GetCameraFrame != nil, "getCameraFrame")
	add(r.PromoteToLeader != nil, "promoteToLeader")
	add(r.CameraSubscribe != nil, "cameraSubscribe")
	add(r.CameraUnsubscribe != nil, "cameraUnsubscribe")
	add(r.CameraInput != nil, "cameraInput")
	return out
}

// ========================= входящие =========================

// AppMessage - разобранный входящий кадр: либо Response, либо Broadcast.
type AppMessage struct {
	Response  *AppResponse
	Broadcast *AppBroadcast

	// исходные байты кадра, для полей вне поддерживаемого подмножества
	Raw []byte
}

// Seq - номер запроса, на который отвечает сообщение; 0 для broadcast.
func (m *AppMessage) Seq() uint32 {
	if m == nil || m.Response == nil {
		return 0
	}
	return m.Response.Seq
}

func (m *AppMessage) GetResponse() *AppResponse {
	if m == nil {
		return nil
	}
	return m.Response
}

func (m *AppMessage) GetBroadcast() *AppBroadcast {
	if m == nil {
		return nil
	}
	return m.Broadcast
}

type AppResponse struct {
	Seq         uint32
	Success     *AppEmpty
	Error       *AppError
	Info        *AppInfo
	Time        *AppTime
	Map         *AppMap
	TeamInfo    *AppTeamInfo
	TeamChat    *AppTeamChat
	EntityInfo  *AppEntityInfo
	Flag        *AppFlag
	MapMarkers  *AppMapMarkers
	CameraFrame *AppCameraFrame
	CameraInfo  *AppCameraInfo
}

func (r *AppResponse) GetError() *AppError {
	if r == nil {
		return nil
	}
	return r.Error
}

func (r *AppResponse) GetEntityInfo() *AppEntityInfo {
	if r == nil {
		return nil
	}
	return r.EntityInfo
}

func (r *AppResponse) GetTeamInfo() *AppTeamInfo {
	if r == nil {
		return nil
	}
	return r.TeamInfo
}

func (r *AppResponse) GetInfo() *AppInfo {
	if r == nil {
		return nil
	}
	return r.Info
}

type AppError struct {
	Error string
}

func (e *AppError) GetError() string {
	if e == nil {
		return ""
	}
	return e.Error
}

type AppInfo struct {
	Name          string
	HeaderImage   string
	URL           string
	Map           string
	MapSize       uint32
	WipeTime      uint32
	Players       uint32
	MaxPlayers    uint32
	QueuedPlayers uint32
	Seed          uint32
	Salt          uint32
}

type AppTime struct {
	DayLengthMinutes float32
	TimeScale        float32
	Sunrise          float32
	Sunset           float32
	Time             float32
}

type AppMonument struct {
	Token string
	X, Y  float32
}

type AppMap struct {
	Width       uint32
	Height      uint32
	JpgImage    []byte
	OceanMargin int32
	Monuments   []AppMonument
	Background  string
}

type AppTeamMember struct {
	SteamID   uint64
	Name      string
	X, Y      float32
	IsOnline  bool
	SpawnTime uint32
	IsAlive   bool
	DeathTime uint32
}

func (m *AppTeamMember) GetSteamId() uint64 {
	if m == nil {
		return 0
	}
	return m.SteamID
}

type AppTeamInfo struct {
	LeaderSteamID uint64
	Members       []*AppTeamMember
}

func (t *AppTeamInfo) GetMembers() []*AppTeamMember {
	if t == nil {
		return nil
	}
	return t.Members
}

type AppTeamMessage struct {
	SteamID uint64
	Name    string
	Message string
	Color   string
	Time    uint32
}

type AppTeamChat struct {
	Messages []*AppTeamMessage
}

type AppEntityPayload struct {
	Value            bool
	HasValue         bool
	Capacity         int32
	HasProtection    bool
	ProtectionExpiry uint32
}

type AppEntityInfo struct {
	Type    int32
	Payload *AppEntityPayload
}

func (e *AppEntityInfo) GetPayload() *AppEntityPayload {
	if e == nil {
		return nil
	}
	return e.Payload
}

type AppMarker struct {
	ID       uint32
	Type     int32
	X, Y     float32
	SteamID  uint64
	Rotation float32
	Radius   float32
	Name     string
}

type AppMapMarkers struct {
	Markers []*AppMarker
}

// AppCameraFrame - кадр CCTV (getCameraFrame).
type AppCameraFrame struct {
	Identifier string
	Frame      uint32
	JpgImage   []byte
}

// AppCameraInfo - ответ на cameraSubscribe.
type AppCameraInfo struct {
	Width        int32
	Height       int32
	NearPlane    float32
	FarPlane     float32
	ControlFlags int32
}

type AppBroadcast struct {
	TeamChanged   *AppTeamChanged
	TeamMessage   *AppNewTeamMessage
	EntityChanged *AppEntityChanged
}

func (b *AppBroadcast) GetTeamMessage() *AppNewTeamMessage {
	if b == nil {
		return nil
	}
	return b.TeamMessage
}

func (b *AppBroadcast) GetEntityChanged() *AppEntityChanged {
	if b == nil {
		return nil
	}
	return b.EntityChanged
}

type AppTeamChanged struct {
	PlayerID uint64
	TeamInfo *AppTeamInfo
}

type AppNewTeamMessage struct {
	Message *AppTeamMessage
}

type AppEntityChanged struct {
	EntityID uint32
	Payload  *AppEntityPayload
}

func (m *AppNewTeamMessage) GetMessage() *AppTeamMessage {
	if m == nil {
		return nil
	}
	return m.Message
}

func (p *AppEntityPayload) GetValue() bool {
	if p == nil {
		return false
	}
	return p.Value
}

func (e *AppEntityChanged) GetPayload() *AppEntityPayload {
	if e == nil {
		return nil
	}
	return e.Payload
}
