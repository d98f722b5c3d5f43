package formstate

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"math"
)

const snapshotFormatVersion = 1

// ErrSnapshotCorrupt is returned when a stored blob cannot be decoded.
var ErrSnapshotCorrupt = errors.New("form snapshot corrupt")

// Encode serializes s. Short strings use a 1-byte length prefix; the link token
// value uses a 2-byte prefix because signed tokens exceed 255 bytes.
func Encode(s *Snapshot) ([]byte, error) {
	if s == nil {
		return nil, errors.New("nil snapshot")
	}

	var buf bytes.Buffer
	buf.WriteByte(snapshotFormatVersion)

	if err := writeShort(&buf, "formID", s.FormID); err != nil {
		return nil, err
	}

	buf.WriteByte(s.Mode)
	buf.WriteByte(s.View)

	for _, field := range []struct {
		name  string
		value string
	}{
		{"account userID", s.AccountUserID},
		{"account email", s.AccountEmail},
		{"account firstName", s.AccountFirstName},
		{"account lastName", s.AccountLastName},
		{"link token id", s.LinkTokenID},
	} {
		if err := writeShort(&buf, field.name, field.value); err != nil {
			return nil, err
		}
	}

	// The link token value is the only field needing a 2-byte length.
	if len(s.LinkTokenValue) > math.MaxUint16 {
		return nil, errors.New("link token value too long")
	}
	if err := binary.Write(&buf, binary.BigEndian, uint16(len(s.LinkTokenValue))); err != nil {
		return nil, err
	}
	buf.WriteString(s.LinkTokenValue)
	if err := binary.Write(&buf, binary.BigEndian, s.LinkTokenExpiresAt); err != nil {
		return nil, err
	}

	if err := binary.Write(&buf, binary.BigEndian, s.CreatedAt); err != nil {
		return nil, err
	}
	if err := binary.Write(&buf, binary.BigEndian, s.UpdatedAt); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

// Decode parses a blob produced by Encode.
func Decode(data []byte) (*Snapshot, error) {
	s, err := decode(data)
	if err != nil {
		if errors.Is(err, ErrSnapshotCorrupt) {
			return nil, err
		}
		return nil, errors.Join(ErrSnapshotCorrupt, err)
	}
	return s, nil
}

func decode(data []byte) (*Snapshot, error) {
	reader := bytes.NewReader(data)

	version, err := reader.ReadByte()
	if err != nil {
		return nil, err
	}
	if version != snapshotFormatVersion {
		return nil, ErrSnapshotCorrupt
	}

	s := &Snapshot{}

	if s.FormID, err = readShort(reader); err != nil {
		return nil, err
	}
	if s.Mode, err = reader.ReadByte(); err != nil {
		return nil, err
	}
	if s.View, err = reader.ReadByte(); err != nil {
		return nil, err
	}
	for _, dst := range []*string{
		&s.AccountUserID,
		&s.AccountEmail,
		&s.AccountFirstName,
		&s.AccountLastName,
		&s.LinkTokenID,
	} {
		if *dst, err = readShort(reader); err != nil {
			return nil, err
		}
	}

	var n uint16
	if err := binary.Read(reader, binary.BigEndian, &n); err != nil {
		return nil, err
	}
	value := make([]byte, n)
	if _, err := io.ReadFull(reader, value); err != nil {
		return nil, err
	}
	s.LinkTokenValue = string(value)
	if err := binary.Read(reader, binary.BigEndian, &s.LinkTokenExpiresAt); err != nil {
		return nil, err
	}

	if err := binary.Read(reader, binary.BigEndian, &s.CreatedAt); err != nil {
		return nil, err
	}
	if err := binary.Read(reader, binary.BigEndian, &s.UpdatedAt); err != nil {
		return nil, err
	}
	if reader.Len() != 0 {
		return nil, ErrSnapshotCorrupt
	}

	return s, nil
}

func writeShort(buf *bytes.Buffer, name, value string) error {
	if len(value) > 255 {
		return errors.New(name + " too long")
	}
	buf.WriteByte(byte(len(value)))
	buf.WriteString(value)
	return nil
}

func readShort(reader *bytes.Reader) (string, error) {
	n, err := reader.ReadByte()
	if err != nil {
		return "", err
	}
	value := make([]byte, n)
	if _, err := io.ReadFull(reader, value); err != nil {
		return "", err
	}
	return string(value), nil
}
