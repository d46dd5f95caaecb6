package channel

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

// Record layout (all integers little-endian uint16):
//
//	 0  channel type (4 = CDTV, 3 = CATV)
//	 2  major channel
//	 4  minor channel
//	 6  physical transmission channel
//	 8  program number
//	10  reserved, always 0xFFFF
//	12  display number, 4 bytes NUL padded
//	22  title length
//	24  title, UTF-8

// DecodeRecord parses one RecordSize byte chunk of a channel list.
func DecodeRecord(rec []byte) (Descriptor, error) {
	var d Descriptor
	if len(rec) != RecordSize {
		return d, newFormatError(ErrRecordSize, len(rec), "channel record is %d bytes, want %d", len(rec), RecordSize)
	}

	t := u16(rec, 0)
	switch Type(t) {
	case CableDigitalTV, CableAnalogTV:
		d.Type = Type(t)
	default:
		return d, newFormatError(ErrUnknownChannelType, int(t), "unknown channel type %d", t)
	}

	d.Major = u16(rec, 2)
	d.Minor = u16(rec, 4)
	d.PTC = u16(rec, 6)
	d.ProgramNumber = u16(rec, 8)

	if r := u16(rec, 10); r != reservedMarker {
		return d, newFormatError(ErrReservedMismatch, int(r), "reserved field mismatch (%04x)", r)
	}

	d.DisplayNumber = decodeDisplayNumber(rec[displayNumberOffset : displayNumberOffset+displayNumberSize])

	n := int(u16(rec, titleLenOffset))
	if n > MaxTitleLen {
		return d, newFormatError(ErrTitleDecode, n, "title length %d exceeds the %d bytes available", n, MaxTitleLen)
	}
	title := rec[titleOffset : titleOffset+n]
	if !utf8.Valid(title) {
		return d, newFormatError(ErrTitleDecode, n, "title is not valid UTF-8: %q", title)
	}
	d.Title = string(title)
	return d, nil
}

// EncodeRecord is the inverse of DecodeRecord. Bytes the decoder ignores
// are left zero.
func EncodeRecord(d Descriptor) ([]byte, error) {
	if len(d.DisplayNumber) > displayNumberSize {
		return nil, fmt.Errorf("display number %q longer than %d bytes", d.DisplayNumber, displayNumberSize)
	}
	if len(d.Title) > MaxTitleLen {
		return nil, fmt.Errorf("title %q longer than %d bytes", d.Title, MaxTitleLen)
	}
	rec := make([]byte, RecordSize)
	binary.LittleEndian.PutUint16(rec[0:2], uint16(d.Type))
	binary.LittleEndian.PutUint16(rec[2:4], d.Major)
	binary.LittleEndian.PutUint16(rec[4:6], d.Minor)
	binary.LittleEndian.PutUint16(rec[6:8], d.PTC)
	binary.LittleEndian.PutUint16(rec[8:10], d.ProgramNumber)
	binary.LittleEndian.PutUint16(rec[10:12], reservedMarker)
	copy(rec[displayNumberOffset:], d.DisplayNumber)
	binary.LittleEndian.PutUint16(rec[titleLenOffset:titleLenOffset+2], uint16(len(d.Title)))
	copy(rec[titleOffset:], d.Title)
	return rec, nil
}

func u16(buf []byte, offset int) uint16 {
	return binary.LittleEndian.Uint16(buf[offset : offset+2])
}

// Display numbers are ASCII digits in practice; anything that is not UTF-8
// is read as Latin-1 so the value still prints.
func decodeDisplayNumber(raw []byte) string {
	raw = bytes.TrimRight(raw, "\x00")
	if utf8.Valid(raw) {
		return string(raw)
	}
	s, err := charmap.ISO8859_1.NewDecoder().Bytes(raw)
	if err != nil {
		return string(raw)
	}
	return string(s)
}
