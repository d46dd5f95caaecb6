package report

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/yath/sstcs/internal/channel"
)

// ChannelReport describes one channel list for output.
type ChannelReport struct {
	Generated time.Time    `json:"generated"`
	Source    string       `json:"source"`
	Category  string       `json:"category,omitempty"`
	Digest    string       `json:"digest"`
	Channels  channel.List `json:"channels"`
}

// WriteText prints one line per channel in list order.
func WriteText(w io.Writer, list channel.List) error {
	for _, d := range list {
		if _, err := fmt.Fprintln(w, d.DisplayString()); err != nil {
			return err
		}
	}
	return nil
}

func WriteJSON(w io.Writer, rep ChannelReport) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(rep)
}

// SaveJSON writes the same document as WriteJSON to out.
func SaveJSON(rep ChannelReport, out string) error {
	b, err := json.MarshalIndent(rep, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(out, append(b, '\n'), 0o644)
}
