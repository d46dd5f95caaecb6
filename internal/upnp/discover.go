package upnp

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/huin/goupnp"

	"github.com/yath/sstcs/internal/common"
)

var (
	ErrNoDevice         = errors.New("no matching device found")
	ErrMultipleServices = errors.New("device has more than one matching service")
)

// Options select the device and service to talk to.
type Options struct {
	DeviceType       string
	ServiceID        string
	DiscoveryTimeout time.Duration
	ActionTimeout    time.Duration
}

func (o Options) withDefaults() Options {
	if o.DeviceType == "" {
		o.DeviceType = DefaultDeviceType
	}
	if o.ServiceID == "" {
		o.ServiceID = DefaultServiceID
	}
	if o.DiscoveryTimeout <= 0 {
		o.DiscoveryTimeout = 5 * time.Second
	}
	return o
}

var discoverLog = common.NewLogger("upnp.discover")

// Discover searches the network for a device of opts.DeviceType and returns
// an agent for its MainTVAgent2 service. When several devices answer, the
// first one carrying the service wins.
func Discover(ctx context.Context, opts Options) (*Agent, error) {
	opts = opts.withDefaults()
	ctx, cancel := context.WithTimeout(ctx, opts.DiscoveryTimeout)
	defer cancel()

	discoverLog.Debugf("searching for %s (timeout %s)", opts.DeviceType, opts.DiscoveryTimeout)
	devices, err := goupnp.DiscoverDevicesCtx(ctx, opts.DeviceType)
	if err != nil {
		return nil, fmt.Errorf("discover %s: %w", opts.DeviceType, err)
	}

	var found []*Agent
	for _, md := range devices {
		if md.Err != nil {
			discoverLog.Debugf("skipping %s: %v", md.USN, md.Err)
			continue
		}
		agent, err := agentFromRoot(md.Root, md.Location, opts)
		if errors.Is(err, ErrNoDevice) {
			continue
		}
		if err != nil {
			return nil, err
		}
		found = append(found, agent)
	}
	if len(found) == 0 {
		return nil, fmt.Errorf("%w: %s with service %s", ErrNoDevice, opts.DeviceType, opts.ServiceID)
	}
	if len(found) > 1 {
		discoverLog.Warnf("found %d devices, using the one at %s", len(found), found[0].Location)
	}
	return found[0], nil
}

// AgentFromURL skips the search and reads the device description at
// location directly.
func AgentFromURL(ctx context.Context, location string, opts Options) (*Agent, error) {
	opts = opts.withDefaults()
	loc, err := url.Parse(location)
	if err != nil {
		return nil, fmt.Errorf("device url %q: %w", location, err)
	}
	ctx, cancel := context.WithTimeout(ctx, opts.DiscoveryTimeout)
	defer cancel()
	root, err := goupnp.DeviceByURLCtx(ctx, loc)
	if err != nil {
		return nil, fmt.Errorf("device description %s: %w", location, err)
	}
	return agentFromRoot(root, loc, opts)
}

func agentFromRoot(root *goupnp.RootDevice, loc *url.URL, opts Options) (*Agent, error) {
	var (
		agent *Agent
		err   error
	)
	root.Device.VisitDevices(func(dev *goupnp.Device) {
		if agent != nil || err != nil || dev.DeviceType != opts.DeviceType {
			return
		}
		var matches []goupnp.Service
		for _, svc := range dev.Services {
			if svc.ServiceId == opts.ServiceID {
				matches = append(matches, svc)
			}
		}
		switch len(matches) {
		case 0:
			discoverLog.Debugf("%s (%s) has no %s service", dev.FriendlyName, dev.UDN, opts.ServiceID)
		case 1:
			svc := matches[0]
			discoverLog.Infof("using %s (%s)", dev.FriendlyName, dev.UDN)
			agent = NewAgent(svc.ControlURL.URL, svc.ServiceType, opts.ActionTimeout)
			if loc != nil {
				agent.Location = loc.String()
			}
		default:
			err = fmt.Errorf("%w: %s offers %d %s services", ErrMultipleServices, dev.FriendlyName, len(matches), opts.ServiceID)
		}
	})
	if err != nil {
		return nil, err
	}
	if agent == nil {
		return nil, ErrNoDevice
	}
	return agent, nil
}

// Resolve picks the agent to use: an explicit location first, then a
// cached one, then a network search. A cached location that no longer
// answers is forgotten. Successful searches are remembered in dc.
func Resolve(ctx context.Context, location string, dc *DeviceCache, opts Options) (*Agent, error) {
	opts = opts.withDefaults()
	if location != "" {
		return AgentFromURL(ctx, location, opts)
	}
	if dc != nil {
		if cached, ok := dc.Lookup(opts.DeviceType); ok {
			agent, err := AgentFromURL(ctx, cached, opts)
			if err == nil {
				discoverLog.Debugf("using cached device at %s", cached)
				return agent, nil
			}
			discoverLog.Warnf("cached device at %s unusable, searching: %v", cached, err)
			dc.Forget(opts.DeviceType)
		}
	}
	agent, err := Discover(ctx, opts)
	if err != nil {
		return nil, err
	}
	if dc != nil {
		dc.Remember(opts.DeviceType, agent.Location)
	}
	return agent, nil
}
