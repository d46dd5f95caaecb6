package channel

import (
	"errors"
	"testing"
)

func TestSelect(t *testing.T) {
	erste := Descriptor{Type: CableDigitalTV, Major: 1, PTC: 515, DisplayNumber: "101", Title: "Das Erste HD"}
	list := List{erste}

	sel, err := Select(list, "Das Erste HD")
	if err != nil {
		t.Fatalf("Select returned error: %v", err)
	}
	if sel.Channel != erste {
		t.Fatalf("Channel = %+v, want %+v", sel.Channel, erste)
	}
	if sel.Ambiguous() {
		t.Fatalf("single match reported as ambiguous")
	}

	_, err = Select(nil, "Das Erste HD")
	if !errors.Is(err, ErrChannelNotFound) {
		t.Fatalf("expected ErrChannelNotFound, got %v", err)
	}
	var nf *NotFoundError
	if !errors.As(err, &nf) || nf.Title != "Das Erste HD" {
		t.Fatalf("expected NotFoundError naming the title, got %v", err)
	}
}

func TestSelectExactMatch(t *testing.T) {
	list := List{
		{Title: "das erste hd"},
		{Title: "Das Erste HD "},
		{Title: "Das Erste"},
	}
	if _, err := Select(list, "Das Erste HD"); !errors.Is(err, ErrChannelNotFound) {
		t.Fatalf("expected ErrChannelNotFound for near misses, got %v", err)
	}
}

func TestSelectMultipleMatches(t *testing.T) {
	list := List{
		{Type: CableDigitalTV, DisplayNumber: "5", Title: "other"},
		{Type: CableDigitalTV, DisplayNumber: "101", Title: "ZDF"},
		{Type: CableAnalogTV, DisplayNumber: "2", Title: "ZDF"},
	}
	sel, err := Select(list, "ZDF")
	if err != nil {
		t.Fatalf("Select returned error: %v", err)
	}
	if !sel.Ambiguous() {
		t.Fatalf("expected ambiguous selection")
	}
	if len(sel.Matches) != 2 {
		t.Fatalf("len(Matches) = %d, want 2", len(sel.Matches))
	}
	if sel.Channel.DisplayNumber != "101" {
		t.Fatalf("picked %q, want the first match 101", sel.Channel.DisplayNumber)
	}

	again, err := Select(list, "ZDF")
	if err != nil {
		t.Fatalf("second Select returned error: %v", err)
	}
	if again.Channel != sel.Channel {
		t.Fatalf("Select not stable: %+v vs %+v", again.Channel, sel.Channel)
	}
}
