package rpclient

import (
	"math"

	"github.com/pkg/errors"
	"google.golang.org/protobuf/encoding/protowire"
)

// ========================= запись =========================

func appendVarintField(b []byte, num protowire.Number, v uint64) []byte {
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, v)
}

func appendInt32Field(b []byte, num protowire.Number, v int32) []byte {
	// int32 в protobuf кодируется расширением знака до 64 бит
	return appendVarintField(b, num, uint64(int64(v)))
}

func appendBoolField(b []byte, num protowire.Number, v bool) []byte {
	return appendVarintField(b, num, protowire.EncodeBool(v))
}

func appendFloatField(b []byte, num protowire.Number, v float32) []byte {
	b = protowire.AppendTag(b, num, protowire.Fixed32Type)
	return protowire.AppendFixed32(b, math.Float32bits(v))
}

func appendBytesField(b []byte, num protowire.Number, v []byte) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, v)
}

func appendStringField(b []byte, num protowire.Number, v string) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendString(b, v)
}

// пустое вложенное сообщение (AppEmpty) - тег + нулевая длина
func appendEmptyField(b []byte, num protowire.Number) []byte {
	return appendBytesField(b, num, nil)
}

// ========================= чтение =========================

type fieldFunc func(num protowire.Number, typ protowire.Type, v []byte) error

// walkFields обходит поля сообщения; v - сырое значение поля без тега.
func walkFields(b []byte, fn fieldFunc) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return errors.Wrap(protowire.ParseError(n), "tag")
		}
		b = b[n:]
		m := protowire.ConsumeFieldValue(num, typ, b)
		if m < 0 {
			return errors.Wrapf(protowire.ParseError(m), "field %d", num)
		}
		if err := fn(num, typ, b[:m]); err != nil {
			return err
		}
		b = b[m:]
	}
	return nil
}

func wrongType(num protowire.Number, typ protowire.Type) error {
	return errors.Errorf("field %d: unexpected wire type %d", num, typ)
}

func readVarint(num protowire.Number, typ protowire.Type, v []byte) (uint64, error) {
	if typ != protowire.VarintType {
		return 0, wrongType(num, typ)
	}
	x, n := protowire.ConsumeVarint(v)
	if n < 0 {
		return 0, errors.Wrapf(protowire.ParseError(n), "field %d", num)
	}
	return x, nil
}

func readUint32(num protowire.Number, typ protowire.Type, v []byte) (uint32, error) {
	x, err := readVarint(num, typ, v)
	return uint32(x), err
}

func readInt32(num protowire.Number, typ protowire.Type, v []byte) (int32, error) {
	x, err := readVarint(num, typ, v)
	return int32(x), err
}

func readBool(num protowire.Number, typ protowire.Type, v []byte) (bool, error) {
	x, err := readVarint(num, typ, v)
	return protowire.DecodeBool(x), err
}

func readFloat(num protowire.Number, typ protowire.Type, v []byte) (float32, error) {
	if typ != protowire.Fixed32Type {
		return 0, wrongType(num, typ)
	}
	x, n := protowire.ConsumeFixed32(v)
	if n < 0 {
		return 0, errors.Wrapf(protowire.ParseError(n), "field %d", num)
	}
	return math.Float32frombits(x), nil
}

func readBytes(num protowire.Number, typ protowire.Type, v []byte) ([]byte, error) {
	if typ != protowire.BytesType {
		return nil, wrongType(num, typ)
	}
	x, n := protowire.ConsumeBytes(v)
	if n < 0 {
		return nil, errors.Wrapf(protowire.ParseError(n), "field %d", num)
	}
	return x, nil
}

func readString(num protowire.Number, typ protowire.Type, v []byte) (string, error) {
	x, err := readBytes(num, typ, v)
	return string(x), err
}
