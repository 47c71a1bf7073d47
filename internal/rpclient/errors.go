package rpclient

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	// ErrNotConnected - запрос отклонён локально: соединение не в состоянии open.
	ErrNotConnected = errors.New("rpclient: not connected")
	// ErrAlreadyConnected - Connect вызван, пока соединение ещё живо.
	ErrAlreadyConnected = errors.New("rpclient: already connected")
	// ErrTimeout - ответ не пришёл за отведённое время.
	ErrTimeout = errors.New("rpclient: timeout waiting for response")
	// ErrConnectionClosed - соединение упало, пока запрос ждал ответа.
	ErrConnectionClosed = errors.New("rpclient: connection closed")
)

// EncodingError - AppRequest не соответствует схеме.
type EncodingError struct {
	Field  string
	Reason string
}

func (e *EncodingError) Error() string {
	return fmt.Sprintf("rpclient: cannot encode request (field=%s): %s", e.Field, e.Reason)
}

// DecodingError - входящий кадр не разбирается как AppMessage.
type DecodingError struct {
	Len int
	Err error
}

func (e *DecodingError) Error() string {
	return fmt.Sprintf("rpclient: malformed frame (%d bytes): %v", e.Len, e.Err)
}

func (e *DecodingError) Unwrap() error { return e.Err }

// ServerError - сервер ответил AppError (например "not_found", "rate_limit").
type ServerError struct {
	Seq     uint32
	Message string
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("rpclient: server error for seq %d: %s", e.Seq, e.Message)
}

// ConnectionClosedError отдаётся каждому ожидающему запросу при разрыве.
// Reason - что именно закрыло соединение (nil при штатном Disconnect).
type ConnectionClosedError struct {
	Reason error
}

func (e *ConnectionClosedError) Error() string {
	if e.Reason == nil {
		return ErrConnectionClosed.Error()
	}
	return fmt.Sprintf("%s: %v", ErrConnectionClosed.Error(), e.Reason)
}

func (e *ConnectionClosedError) Is(target error) bool { return target == ErrConnectionClosed }

func (e *ConnectionClosedError) Unwrap() error { return e.Reason }
