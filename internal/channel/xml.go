package channel

import (
	"strconv"
	"strings"
)

// XML renders the <Channel> document SetMainTVChannel takes. The TV is picky
// about the exact shape, so this is built by hand rather than marshaled.
// Every piece is a type token or a decimal number, so nothing needs escaping.
func (d Descriptor) XML() string {
	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8" ?><Channel><ChType>`)
	b.WriteString(d.Type.String())
	b.WriteString(`</ChType><MajorCh>`)
	b.WriteString(strconv.FormatUint(uint64(d.Major), 10))
	b.WriteString(`</MajorCh><MinorCh>`)
	b.WriteString(strconv.FormatUint(uint64(d.Minor), 10))
	b.WriteString(`</MinorCh><PTC>`)
	b.WriteString(strconv.FormatUint(uint64(d.PTC), 10))
	b.WriteString(`</PTC><ProgNum>`)
	b.WriteString(strconv.FormatUint(uint64(d.ProgramNumber), 10))
	b.WriteString(`</ProgNum></Channel>`)
	return b.String()
}
