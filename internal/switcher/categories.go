package switcher

import (
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Category is a channel list category code as the TV spells it, e.g. "0x12".
type Category string

// categories holds the fallback codes in the order they are tried, with a
// human readable label for logs.
var categories = func() *orderedmap.OrderedMap[Category, string] {
	m := orderedmap.New[Category, string]()
	m.Set("0x11", "favorites 1")
	m.Set("0x12", "favorites 2")
	m.Set("0x13", "favorites 3")
	m.Set("0x14", "favorites 4")
	m.Set("0x15", "favorites 5")
	m.Set("0x03", "TV")
	m.Set("0x04", "Radio")
	m.Set("0x06", "analogue")
	m.Set("0x01", "all")
	return m
}()

// Fallbacks returns the fallback sequence, most specific category first and
// "all" last. The slice is a fresh copy.
func Fallbacks() []Category {
	out := make([]Category, 0, categories.Len())
	for pair := categories.Oldest(); pair != nil; pair = pair.Next() {
		out = append(out, pair.Key)
	}
	return out
}

// Label names a known category code. Unknown codes are returned as "".
func Label(c Category) string {
	label, _ := categories.Get(c)
	return label
}

func (c Category) String() string {
	if label := Label(c); label != "" {
		return string(c) + " (" + label + ")"
	}
	return string(c)
}
