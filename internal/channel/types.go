package channel

import "fmt"

// Layout of the binary channel list served by the TV.
const (
	HeaderSize  = 128
	RecordSize  = 124
	MinListSize = HeaderSize + RecordSize

	reservedMarker      = 0xFFFF
	displayNumberOffset = 12
	displayNumberSize   = 4
	titleLenOffset      = 22
	titleOffset         = 24

	// MaxTitleLen is the number of title bytes that fit in a record. The
	// nominal field is 106 bytes but the record ends after 100 of them.
	MaxTitleLen = RecordSize - titleOffset
)

// Type is the transport type of a channel.
type Type uint16

const (
	CableAnalogTV  Type = 3
	CableDigitalTV Type = 4
)

// String returns the token the TV expects in <ChType>.
func (t Type) String() string {
	switch t {
	case CableDigitalTV:
		return "CDTV"
	case CableAnalogTV:
		return "CATV"
	default:
		return fmt.Sprintf("Type(%d)", uint16(t))
	}
}

// MarshalText lets JSON output carry CDTV/CATV instead of the raw number.
func (t Type) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

func (t *Type) UnmarshalText(b []byte) error {
	switch string(b) {
	case "CDTV":
		*t = CableDigitalTV
	case "CATV":
		*t = CableAnalogTV
	default:
		return fmt.Errorf("%w %q", ErrUnknownChannelType, b)
	}
	return nil
}

// Descriptor is one decoded channel list entry. It is a plain value; copies
// never share state.
type Descriptor struct {
	Type          Type   `json:"type"`
	Major         uint16 `json:"major"`
	Minor         uint16 `json:"minor"`
	PTC           uint16 `json:"ptc"`
	ProgramNumber uint16 `json:"programNumber"`
	DisplayNumber string `json:"displayNumber"`
	Title         string `json:"title"`
}

// List holds descriptors in the order they appear in the channel list.
type List []Descriptor

// DisplayString renders the channel the way `sstcs list` prints it.
func (d Descriptor) DisplayString() string {
	return fmt.Sprintf("[%s] %4s %s", d.Type, d.DisplayNumber, d.Title)
}

func (d Descriptor) String() string {
	return fmt.Sprintf("<Channel %s %q ChType=%s MajorCh=%d MinorCh=%d PTC=%d ProgNum=%d>",
		d.DisplayNumber, d.Title, d.Type, d.Major, d.Minor, d.PTC, d.ProgramNumber)
}
