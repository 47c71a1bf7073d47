package rpclient

import "google.golang.org/protobuf/encoding/protowire"

// ========================= AppResponse =========================

func decodeResponse(b []byte) (*AppResponse, error) {
	r := &AppResponse{}
	err := walkFields(b, func(num protowire.Number, typ protowire.Type, v []byte) (err error) {
		switch num {
		case 1:
			r.Seq, err = readUint32(num, typ, v)
		case 4:
			r.Success = &AppEmpty{}
		case 5:
			r.Error = &AppError{}
			err = decodeSub(num, typ, v, func(n protowire.Number, t protowire.Type, v []byte) (err error) {
				if n == 1 {
					r.Error.Error, err = readString(n, t, v)
				}
				return err
			})
		case 6:
			r.Info = &AppInfo{}
			err = decodeSub(num, typ, v, r.Info.field)
		case 7:
			r.Time = &AppTime{}
			err = decodeSub(num, typ, v, r.Time.field)
		case 8:
			r.Map = &AppMap{}
			err = decodeSub(num, typ, v, r.Map.field)
		case 9:
			r.TeamInfo = &AppTeamInfo{}
			err = decodeSub(num, typ, v, r.TeamInfo.field)
		case 10:
			r.TeamChat = &AppTeamChat{}
			err = decodeSub(num, typ, v, func(n protowire.Number, t protowire.Type, v []byte) error {
				if n != 1 {
					return nil
				}
				m := &AppTeamMessage{}
				r.TeamChat.Messages = append(r.TeamChat.Messages, m)
				return decodeSub(n, t, v, m.field)
			})
		case 11:
			r.EntityInfo = &AppEntityInfo{}
			err = decodeSub(num, typ, v, r.EntityInfo.field)
		case 12:
			r.Flag = &AppFlag{}
			err = decodeSub(num, typ, v, func(n protowire.Number, t protowire.Type, v []byte) (err error) {
				if n == 1 {
					r.Flag.Value, err = readBool(n, t, v)
				}
				return err
			})
		case 13:
			r.MapMarkers = &AppMapMarkers{}
			err = decodeSub(num, typ, v, func(n protowire.Number, t protowire.Type, v []byte) error {
				if n != 1 {
					return nil
				}
				m := &AppMarker{}
				r.MapMarkers.Markers = append(r.MapMarkers.Markers, m)
				return decodeSub(n, t, v, m.field)
			})
		case 15:
			// поле 15 в разных ревизиях схемы: кадр камеры (identifier - строка)
			// или AppCameraInfo (width - varint). Различаем по типу первого поля.
			var body []byte
			if body, err = readBytes(num, typ, v); err != nil {
				return err
			}
			if isCameraFrame(body) {
				r.CameraFrame = &AppCameraFrame{}
				err = walkFields(body, r.CameraFrame.field)
			} else {
				r.CameraInfo = &AppCameraInfo{}
				err = walkFields(body, r.CameraInfo.field)
			}
		}
		return err
	})
	return r, err
}

func isCameraFrame(body []byte) bool {
	num, typ, n := protowire.ConsumeTag(body)
	return n > 0 && num == 1 && typ == protowire.BytesType
}

func encodeResponse(r *AppResponse) []byte {
	var b []byte
	b = appendVarintField(b, 1, uint64(r.Seq))
	if r.Success != nil {
		b = appendEmptyField(b, 4)
	}
	if r.Error != nil {
		b = appendBytesField(b, 5, appendStringField(nil, 1, r.Error.Error))
	}
	if r.Info != nil {
		b = appendBytesField(b, 6, r.Info.encode())
	}
	if r.Time != nil {
		b = appendBytesField(b, 7, r.Time.encode())
	}
	if r.Map != nil {
		b = appendBytesField(b, 8, r.Map.encode())
	}
	if r.TeamInfo != nil {
		b = appendBytesField(b, 9, r.TeamInfo.encode())
	}
	if r.TeamChat != nil {
		var chat []byte
		for _, m := range r.TeamChat.Messages {
			chat = appendBytesField(chat, 1, m.encode())
		}
		b = appendBytesField(b, 10, chat)
	}
	if r.EntityInfo != nil {
		b = appendBytesField(b, 11, r.EntityInfo.encode())
	}
	if r.Flag != nil {
		b = appendBytesField(b, 12, appendBoolField(nil, 1, r.Flag.Value))
	}
	if r.MapMarkers != nil {
		var markers []byte
		for _, m := range r.MapMarkers.Markers {
			markers = appendBytesField(markers, 1, m.encode())
		}
		b = appendBytesField(b, 13, markers)
	}
	if r.CameraFrame != nil {
		b = appendBytesField(b, 15, r.CameraFrame.encode())
	} else if r.CameraInfo != nil {
		b = appendBytesField(b, 15, r.CameraInfo.encode())
	}
	return b
}

// ========================= AppBroadcast =========================

func decodeBroadcast(b []byte) (*AppBroadcast, error) {
	bc := &AppBroadcast{}
	err := walkFields(b, func(num protowire.Number, typ protowire.Type, v []byte) (err error) {
		switch num {
		case 4:
			bc.TeamChanged = &AppTeamChanged{}
			err = decodeSub(num, typ, v, func(n protowire.Number, t protowire.Type, v []byte) (err error) {
				switch n {
				case 1:
					bc.TeamChanged.PlayerID, err = readVarint(n, t, v)
				case 2:
					bc.TeamChanged.TeamInfo = &AppTeamInfo{}
					err = decodeSub(n, t, v, bc.TeamChanged.TeamInfo.field)
				}
				return err
			})
		case 5:
			bc.TeamMessage = &AppNewTeamMessage{}
			err = decodeSub(num, typ, v, func(n protowire.Number, t protowire.Type, v []byte) error {
				if n != 1 {
					return nil
				}
				bc.TeamMessage.Message = &AppTeamMessage{}
				return decodeSub(n, t, v, bc.TeamMessage.Message.field)
			})
		case 6:
			bc.EntityChanged = &AppEntityChanged{}
			err = decodeSub(num, typ, v, func(n protowire.Number, t protowire.Type, v []byte) (err error) {
				switch n {
				case 1:
					bc.EntityChanged.EntityID, err = readUint32(n, t, v)
				case 2:
					bc.EntityChanged.Payload = &AppEntityPayload{}
					err = decodeSub(n, t, v, bc.EntityChanged.Payload.field)
				}
				return err
			})
		}
		return err
	})
	return bc, err
}

func encodeBroadcast(bc *AppBroadcast) []byte {
	var b []byte
	if tc := bc.TeamChanged; tc != nil {
		var body []byte
		body = appendVarintField(body, 1, tc.PlayerID)
		if tc.TeamInfo != nil {
			body = appendBytesField(body, 2, tc.TeamInfo.encode())
		}
		b = appendBytesField(b, 4, body)
	}
	if tm := bc.TeamMessage; tm != nil {
		var body []byte
		if tm.Message != nil {
			body = appendBytesField(body, 1, tm.Message.encode())
		}
		b = appendBytesField(b, 5, body)
	}
	if ec := bc.EntityChanged; ec != nil {
		var body []byte
		body = appendVarintField(body, 1, uint64(ec.EntityID))
		if ec.Payload != nil {
			body = appendBytesField(body, 2, ec.Payload.encode())
		}
		b = appendBytesField(b, 6, body)
	}
	return b
}

// ========================= вложенные сообщения =========================

func (i *AppInfo) field(num protowire.Number, typ protowire.Type, v []byte) (err error) {
	switch num {
	case 1:
		i.Name, err = readString(num, typ, v)
	case 2:
		i.HeaderImage, err = readString(num, typ, v)
	case 3:
		i.URL, err = readString(num, typ, v)
	case 4:
		i.Map, err = readString(num, typ, v)
	case 5:
		i.MapSize, err = readUint32(num, typ, v)
	case 6:
		i.WipeTime, err = readUint32(num, typ, v)
	case 7:
		i.Players, err = readUint32(num, typ, v)
	case 8:
		i.MaxPlayers, err = readUint32(num, typ, v)
	case 9:
		i.QueuedPlayers, err = readUint32(num, typ, v)
	case 10:
		i.Seed, err = readUint32(num, typ, v)
	case 11:
		i.Salt, err = readUint32(num, typ, v)
	}
	return err
}

func (i *AppInfo) encode() []byte {
	var b []byte
	b = appendStringField(b, 1, i.Name)
	b = appendStringField(b, 2, i.HeaderImage)
	b = appendStringField(b, 3, i.URL)
	b = appendStringField(b, 4, i.Map)
	b = appendVarintField(b, 5, uint64(i.MapSize))
	b = appendVarintField(b, 6, uint64(i.WipeTime))
	b = appendVarintField(b, 7, uint64(i.Players))
	b = appendVarintField(b, 8, uint64(i.MaxPlayers))
	b = appendVarintField(b, 9, uint64(i.QueuedPlayers))
	b = appendVarintField(b, 10, uint64(i.Seed))
	b = appendVarintField(b, 11, uint64(i.Salt))
	return b
}

func (t *AppTime) field(num protowire.Number, typ protowire.Type, v []byte) (err error) {
	switch num {
	case 1:
		t.DayLengthMinutes, err = readFloat(num, typ, v)
	case 2:
		t.TimeScale, err = readFloat(num, typ, v)
	case 3:
		t.Sunrise, err = readFloat(num, typ, v)
	case 4:
		t.Sunset, err = readFloat(num, typ, v)
	case 5:
		t.Time, err = readFloat(num, typ, v)
	}
	return err
}

func (t *AppTime) encode() []byte {
	var b []byte
	b = appendFloatField(b, 1, t.DayLengthMinutes)
	b = appendFloatField(b, 2, t.TimeScale)
	b = appendFloatField(b, 3, t.Sunrise)
	b = appendFloatField(b, 4, t.Sunset)
	b = appendFloatField(b, 5, t.Time)
	return b
}

func (m *AppMap) field(num protowire.Number, typ protowire.Type, v []byte) (err error) {
	switch num {
	case 1:
		m.Width, err = readUint32(num, typ, v)
	case 2:
		m.Height, err = readUint32(num, typ, v)
	case 3:
		m.JpgImage, err = readBytes(num, typ, v)
	case 4:
		m.OceanMargin, err = readInt32(num, typ, v)
	case 5:
		var mon AppMonument
		err = decodeSub(num, typ, v, func(n protowire.Number, t protowire.Type, v []byte) (err error) {
			switch n {
			case 1:
				mon.Token, err = readString(n, t, v)
			case 2:
				mon.X, err = readFloat(n, t, v)
			case 3:
				mon.Y, err = readFloat(n, t, v)
			}
			return err
		})
		m.Monuments = append(m.Monuments, mon)
	case 6:
		m.Background, err = readString(num, typ, v)
	}
	return err
}

func (m *AppMap) encode() []byte {
	var b []byte
	b = appendVarintField(b, 1, uint64(m.Width))
	b = appendVarintField(b, 2, uint64(m.Height))
	b = appendBytesField(b, 3, m.JpgImage)
	b = appendInt32Field(b, 4, m.OceanMargin)
	for _, mon := range m.Monuments {
		var body []byte
		body = appendStringField(body, 1, mon.Token)
		body = appendFloatField(body, 2, mon.X)
		body = appendFloatField(body, 3, mon.Y)
		b = appendBytesField(b, 5, body)
	}
	if m.Background != "" {
		b = appendStringField(b, 6, m.Background)
	}
	return b
}

func (t *AppTeamInfo) field(num protowire.Number, typ protowire.Type, v []byte) (err error) {
	switch num {
	case 1:
		t.LeaderSteamID, err = readVarint(num, typ, v)
	case 2:
		m := &AppTeamMember{}
		t.Members = append(t.Members, m)
		err = decodeSub(num, typ, v, m.field)
	}
	return err
}

func (t *AppTeamInfo) encode() []byte {
	var b []byte
	b = appendVarintField(b, 1, t.LeaderSteamID)
	for _, m := range t.Members {
		b = appendBytesField(b, 2, m.encode())
	}
	return b
}

func (m *AppTeamMember) field(num protowire.Number, typ protowire.Type, v []byte) (err error) {
	switch num {
	case 1:
		m.SteamID, err = readVarint(num, typ, v)
	case 2:
		m.Name, err = readString(num, typ, v)
	case 3:
		m.X, err = readFloat(num, typ, v)
	case 4:
		m.Y, err = readFloat(num, typ, v)
	case 5:
		m.IsOnline, err = readBool(num, typ, v)
	case 6:
		m.SpawnTime, err = readUint32(num, typ, v)
	case 7:
		m.IsAlive, err = readBool(num, typ, v)
	case 8:
		m.DeathTime, err = readUint32(num, typ, v)
	}
	return err
}

func (m *AppTeamMember) encode() []byte {
	var b []byte
	b = appendVarintField(b, 1, m.SteamID)
	b = appendStringField(b, 2, m.Name)
	b = appendFloatField(b, 3, m.X)
	b = appendFloatField(b, 4, m.Y)
	b = appendBoolField(b, 5, m.IsOnline)
	b = appendVarintField(b, 6, uint64(m.SpawnTime))
	b = appendBoolField(b, 7, m.IsAlive)
	b = appendVarintField(b, 8, uint64(m.DeathTime))
	return b
}

func (m *AppTeamMessage) field(num protowire.Number, typ protowire.Type, v []byte) (err error) {
	switch num {
	case 1:
		m.SteamID, err = readVarint(num, typ, v)
	case 2:
		m.Name, err = readString(num, typ, v)
	case 3:
		m.Message, err = readString(num, typ, v)
	case 4:
		m.Color, err = readString(num, typ, v)
	case 5:
		m.Time, err = readUint32(num, typ, v)
	}
	return err
}

func (m *AppTeamMessage) encode() []byte {
	var b []byte
	b = appendVarintField(b, 1, m.SteamID)
	b = appendStringField(b, 2, m.Name)
	b = appendStringField(b, 3, m.Message)
	if m.Color != "" {
		b = appendStringField(b, 4, m.Color)
	}
	b = appendVarintField(b, 5, uint64(m.Time))
	return b
}

func (m *AppTeamMessage) GetMessage() string {
	if m == nil {
		return ""
	}
	return m.Message
}

func (m *AppTeamMessage) GetName() string {
	if m == nil {
		return ""
	}
	return m.Name
}

func (e *AppEntityInfo) field(num protowire.Number, typ protowire.Type, v []byte) (err error) {
	switch num {
	case 1:
		e.Type, err = readInt32(num, typ, v)
	case 3:
		e.Payload = &AppEntityPayload{}
		err = decodeSub(num, typ, v, e.Payload.field)
	}
	return err
}

func (e *AppEntityInfo) encode() []byte {
	var b []byte
	b = appendInt32Field(b, 1, e.Type)
	if e.Payload != nil {
		b = appendBytesField(b, 3, e.Payload.encode())
	}
	return b
}

func (p *AppEntityPayload) field(num protowire.Number, typ protowire.Type, v []byte) (err error) {
	switch num {
	case 1:
		p.Value, err = readBool(num, typ, v)
		p.HasValue = err == nil
	case 3:
		p.Capacity, err = readInt32(num, typ, v)
	case 4:
		p.HasProtection, err = readBool(num, typ, v)
	case 5:
		p.ProtectionExpiry, err = readUint32(num, typ, v)
	}
	return err
}

func (p *AppEntityPayload) encode() []byte {
	var b []byte
	if p.HasValue || p.Value {
		b = appendBoolField(b, 1, p.Value)
	}
	if p.Capacity != 0 {
		b = appendInt32Field(b, 3, p.Capacity)
	}
	if p.HasProtection {
		b = appendBoolField(b, 4, true)
		b = appendVarintField(b, 5, uint64(p.ProtectionExpiry))
	}
	return b
}

func (m *AppMarker) field(num protowire.Number, typ protowire.Type, v []byte) (err error) {
	switch num {
	case 1:
		m.ID, err = readUint32(num, typ, v)
	case 2:
		m.Type, err = readInt32(num, typ, v)
	case 3:
		m.X, err = readFloat(num, typ, v)
	case 4:
		m.Y, err = readFloat(num, typ, v)
	case 5:
		m.SteamID, err = readVarint(num, typ, v)
	case 6:
		m.Rotation, err = readFloat(num, typ, v)
	case 7:
		m.Radius, err = readFloat(num, typ, v)
	case 11:
		m.Name, err = readString(num, typ, v)
	}
	return err
}

func (m *AppMarker) encode() []byte {
	var b []byte
	b = appendVarintField(b, 1, uint64(m.ID))
	b = appendInt32Field(b, 2, m.Type)
	b = appendFloatField(b, 3, m.X)
	b = appendFloatField(b, 4, m.Y)
	if m.SteamID != 0 {
		b = appendVarintField(b, 5, m.SteamID)
	}
	if m.Name != "" {
		b = appendStringField(b, 11, m.Name)
	}
	return b
}

func (f *AppCameraFrame) field(num protowire.Number, typ protowire.Type, v []byte) (err error) {
	switch num {
	case 1:
		f.Identifier, err = readString(num, typ, v)
	case 2:
		f.Frame, err = readUint32(num, typ, v)
	case 3:
		f.JpgImage, err = readBytes(num, typ, v)
	}
	return err
}

func (f *AppCameraFrame) encode() []byte {
	var b []byte
	b = appendStringField(b, 1, f.Identifier)
	b = appendVarintField(b, 2, uint64(f.Frame))
	b = appendBytesField(b, 3, f.JpgImage)
	return b
}

func (c *AppCameraInfo) field(num protowire.Number, typ protowire.Type, v []byte) (err error) {
	switch num {
	case 1:
		c.Width, err = readInt32(num, typ, v)
	case 2:
		c.Height, err = readInt32(num, typ, v)
	case 3:
		c.NearPlane, err = readFloat(num, typ, v)
	case 4:
		c.FarPlane, err = readFloat(num, typ, v)
	case 5:
		c.ControlFlags, err = readInt32(num, typ, v)
	}
	return err
}

func (c *AppCameraInfo) encode() []byte {
	var b []byte
	b = appendInt32Field(b, 1, c.Width)
	b = appendInt32Field(b, 2, c.Height)
	b = appendFloatField(b, 3, c.NearPlane)
	b = appendFloatField(b, 4, c.FarPlane)
	b = appendInt32Field(b, 5, c.ControlFlags)
	return b
}
