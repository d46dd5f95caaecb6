// Package control runs the end to end workflow against one TV: look up the
// channel list, download and decode it, pick a channel and switch to it.
package control

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/yath/sstcs/internal/channel"
	"github.com/yath/sstcs/internal/common"
	"github.com/yath/sstcs/internal/switcher"
	"github.com/yath/sstcs/internal/upnp"
)

// Agent is the part of the MainTVAgent2 service the workflow uses.
type Agent interface {
	switcher.Invoker
	GetChannelListURL(ctx context.Context) (upnp.ChannelListInfo, error)
}

// Fetcher downloads the channel list.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// Snapshot is a decoded channel list together with where it came from.
type Snapshot struct {
	Channels channel.List
	Category switcher.Category
	URL      string
	Digest   string
	Raw      []byte
}

// Controller ties the collaborators together. Metrics and History are
// optional.
type Controller struct {
	Agent   Agent
	Fetcher Fetcher
	Log     *common.Logger
	Metrics *common.Metrics
	History *common.History
}

func (c *Controller) log() *common.Logger {
	if c.Log == nil {
		c.Log = common.NewLogger("control")
	}
	return c.Log
}

// Download fetches the TV's current channel list without decoding it.
func (c *Controller) Download(ctx context.Context) (Snapshot, error) {
	info, err := c.Agent.GetChannelListURL(ctx)
	if err != nil {
		return Snapshot{}, err
	}
	c.log().Debugf("channel list at %s, current category %s", info.ChannelListURL, info.ChannelListType)

	raw, err := c.Fetcher.Fetch(ctx, info.ChannelListURL)
	if err != nil {
		return Snapshot{}, err
	}
	c.Metrics.AddBytes(int64(len(raw)))
	return Snapshot{
		Category: switcher.Category(info.ChannelListType),
		URL:      info.ChannelListURL,
		Digest:   common.Digest(raw),
		Raw:      raw,
	}, nil
}

// Channels fetches and decodes the TV's current channel list.
func (c *Controller) Channels(ctx context.Context) (Snapshot, error) {
	snap, err := c.Download(ctx)
	if err != nil {
		return snap, err
	}
	snap.Channels, err = channel.DecodeList(snap.Raw)
	if err != nil {
		return snap, fmt.Errorf("decode channel list from %s: %w", snap.URL, err)
	}
	c.Metrics.SetChannels(len(snap.Channels))
	c.log().Debugf("decoded %d channels", len(snap.Channels))
	return snap, nil
}

// SwitchTo tunes the TV to the channel titled title. The returned error is
// nil only when the switch succeeded; the outcome is valid whenever the
// switch protocol ran.
func (c *Controller) SwitchTo(ctx context.Context, title string) (switcher.Outcome, error) {
	snap, err := c.Channels(ctx)
	if err != nil {
		return switcher.Outcome{}, err
	}

	sel, err := channel.Select(snap.Channels, title)
	if err != nil {
		return switcher.Outcome{}, err
	}
	if sel.Ambiguous() {
		var names []string
		for _, m := range sel.Matches {
			names = append(names, m.String())
		}
		c.log().Warnf("more than one channel matches %q, using the first one:\n%s", title, strings.Join(names, "\n"))
	}
	c.log().Infof("switching to %s", sel.Channel)

	s := &switcher.Switcher{Invoker: countingInvoker{c.Agent, c.Metrics}, Log: common.NewLogger("switch")}
	out := s.Switch(ctx, sel.Channel, snap.Category)
	c.record(sel.Channel, out)
	if err := out.Err(); err != nil {
		return out, err
	}
	c.log().Infof("switched to %s", sel.Channel.DisplayString())
	return out, nil
}

func (c *Controller) record(ch channel.Descriptor, out switcher.Outcome) {
	if c.History == nil {
		return
	}
	entry := common.HistoryEntry{
		Title:         ch.Title,
		DisplayNumber: ch.DisplayNumber,
		Categories:    out.Categories(),
		State:         out.State.String(),
		Result:        out.Result,
		Ts:            time.Now().UTC(),
	}
	if err := out.Err(); err != nil {
		entry.Error = err.Error()
	}
	if err := c.History.Append(entry); err != nil {
		c.log().Warnf("cannot write history to %s: %v", c.History.Path(), err)
	}
}

type countingInvoker struct {
	inv     switcher.Invoker
	metrics *common.Metrics
}

func (ci countingInvoker) Invoke(ctx context.Context, req switcher.Request) (string, error) {
	ci.metrics.IncAttempt()
	return ci.inv.Invoke(ctx, req)
}
