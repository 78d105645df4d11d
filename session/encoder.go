package session

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"time"
)

const (
	tokenFormatVersionCurrent = 1

	maxTokenBytes = math.MaxUint16
)

// CurrentTokenFormatVersion is the version byte written by [EncodeToken].
const CurrentTokenFormatVersion = tokenFormatVersionCurrent

// EncodeToken serialises a bearer token and its declared expiry:
//
//	[version:1][expiry unix seconds:8 BE][token length:2 BE][token]
//
// A zero expiry is stored as 0 and decodes back to the zero time.
func EncodeToken(token string, expiresAt time.Time) ([]byte, error) {
	if token == "" {
		return nil, errors.New("token empty")
	}
	if len(token) > maxTokenBytes {
		return nil, errors.New("token too long")
	}

	var buf bytes.Buffer
	buf.Grow(1 + 8 + 2 + len(token))
	buf.WriteByte(tokenFormatVersionCurrent)

	var exp int64
	if !expiresAt.IsZero() {
		exp = expiresAt.Unix()
	}
	if err := binary.Write(&buf, binary.BigEndian, exp); err != nil {
		return nil, err
	}
	if err := binary.Write(&buf, binary.BigEndian, uint16(len(token))); err != nil {
		return nil, err
	}
	buf.WriteString(token)

	return buf.Bytes(), nil
}

// DecodeToken reverses [EncodeToken]. Any malformed input returns an error
// wrapping [ErrCorrupt].
func DecodeToken(data []byte) (string, time.Time, error) {
	reader := bytes.NewReader(data)

	version, err := reader.ReadByte()
	if err != nil {
		return "", time.Time{}, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	if version != tokenFormatVersionCurrent {
		return "", time.Time{}, fmt.Errorf("%w: unsupported token entry version %d", ErrCorrupt, version)
	}

	var exp int64
	if err := binary.Read(reader, binary.BigEndian, &exp); err != nil {
		return "", time.Time{}, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}

	var n uint16
	if err := binary.Read(reader, binary.BigEndian, &n); err != nil {
		return "", time.Time{}, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	if n == 0 {
		return "", time.Time{}, fmt.Errorf("%w: empty token", ErrCorrupt)
	}

	tok := make([]byte, n)
	if _, err := io.ReadFull(reader, tok); err != nil {
		return "", time.Time{}, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	if reader.Len() != 0 {
		return "", time.Time{}, fmt.Errorf("%w: trailing bytes", ErrCorrupt)
	}

	var expiresAt time.Time
	if exp != 0 {
		expiresAt = time.Unix(exp, 0)
	}
	return string(tok), expiresAt, nil
}
