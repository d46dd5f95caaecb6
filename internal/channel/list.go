package channel

import (
	"errors"
	"fmt"
)

// DecodeList splits a channel list blob into its records. The blob is a
// HeaderSize byte header, which is ignored, followed by one or more
// RecordSize byte records. Any malformed record fails the whole list.
func DecodeList(blob []byte) (List, error) {
	if len(blob) < MinListSize {
		fe := newFormatError(ErrBlobTooSmall, len(blob),
			"channel list is smaller than it has to be for at least one channel (%d bytes (actual) vs. %d bytes)",
			len(blob), MinListSize)
		fe.AddContext("channel list: %x", blob)
		return nil, fe
	}
	if (len(blob)-HeaderSize)%RecordSize != 0 {
		fe := newFormatError(ErrMisalignedBlob, len(blob),
			"channel list's size (%d) minus %d (header) is not a multiple of %d bytes",
			len(blob), HeaderSize, RecordSize)
		fe.AddContext("channel list of %d bytes", len(blob))
		return nil, fe
	}

	list := make(List, 0, (len(blob)-HeaderSize)/RecordSize)
	for pos := HeaderSize; pos < len(blob); pos += RecordSize {
		chunk := blob[pos : pos+RecordSize]
		d, err := DecodeRecord(chunk)
		if err != nil {
			var fe *FormatError
			if errors.As(err, &fe) {
				fe.Offset = pos
				fe.AddContext("chunk starting at %d: %x", pos, chunk)
				return nil, fe
			}
			return nil, fmt.Errorf("chunk starting at %d: %w", pos, err)
		}
		list = append(list, d)
	}
	return list, nil
}

// EncodeList builds a channel list blob with a zero header.
func EncodeList(list List) ([]byte, error) {
	blob := make([]byte, HeaderSize, HeaderSize+len(list)*RecordSize)
	for i, d := range list {
		rec, err := EncodeRecord(d)
		if err != nil {
			return nil, fmt.Errorf("channel %d: %w", i, err)
		}
		blob = append(blob, rec...)
	}
	return blob, nil
}
