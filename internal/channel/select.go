package channel

// Selection is the result of Select. Matches lists every descriptor whose
// title matched, in list order; Channel is the first of them.
type Selection struct {
	Channel Descriptor
	Matches List
}

// Ambiguous reports whether more than one channel carried the title. This
// is a quirk of the TV's list, not an error.
func (s Selection) Ambiguous() bool {
	return len(s.Matches) > 1
}

// Select finds the channel whose title equals title exactly.
func Select(list List, title string) (Selection, error) {
	var matches List
	for _, d := range list {
		if d.Title == title {
			matches = append(matches, d)
		}
	}
	if len(matches) == 0 {
		return Selection{}, &NotFoundError{Title: title}
	}
	return Selection{Channel: matches[0], Matches: matches}, nil
}
