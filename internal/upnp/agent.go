package upnp

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/huin/goupnp/soap"

	"github.com/yath/sstcs/internal/common"
	"github.com/yath/sstcs/internal/switcher"
)

// Identifiers of the Samsung main TV agent.
const (
	DefaultDeviceType  = "urn:samsung.com:device:MainTVServer2:1"
	DefaultServiceID   = "urn:samsung.com:serviceId:MainTVAgent2"
	DefaultServiceType = "urn:samsung.com:service:MainTVAgent2:1"
)

var ErrActionResult = errors.New("action returned an error result")

// ChannelListInfo holds the out-arguments of GetChannelListURL.
type ChannelListInfo struct {
	Result             string
	ChannelListVersion string
	SupportChannelList string
	ChannelListURL     string
	ChannelListType    string
	SatelliteID        string
	Sort               string
}

// Agent calls actions on one MainTVAgent2 service.
type Agent struct {
	client      *soap.SOAPClient
	serviceType string
	timeout     time.Duration
	log         *common.Logger

	// Location is the description URL the agent was resolved from, if any.
	Location string
}

// NewAgent returns an agent talking to controlURL. A zero timeout means
// the caller's context alone bounds each action.
func NewAgent(controlURL url.URL, serviceType string, timeout time.Duration) *Agent {
	if serviceType == "" {
		serviceType = DefaultServiceType
	}
	return &Agent{
		client:      soap.NewSOAPClient(controlURL),
		serviceType: serviceType,
		timeout:     timeout,
		log:         common.NewLogger("upnp"),
	}
}

// ControlURL returns the SOAP endpoint.
func (a *Agent) ControlURL() string {
	return a.client.EndpointURL.String()
}

func (a *Agent) perform(ctx context.Context, action string, in, out any) error {
	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}
	a.log.Debugf("%s#%s -> %s", a.serviceType, action, a.ControlURL())
	if err := a.client.PerformActionCtx(ctx, a.serviceType, action, in, out); err != nil {
		return fmt.Errorf("%s: %w", action, err)
	}
	return nil
}

// GetChannelListURL asks the TV where its channel list can be downloaded
// and which category it currently shows.
func (a *Agent) GetChannelListURL(ctx context.Context) (ChannelListInfo, error) {
	var info ChannelListInfo
	if err := a.perform(ctx, "GetChannelListURL", nil, &info); err != nil {
		return info, err
	}
	a.log.Debugf("GetChannelListURL: %+v", info)
	if info.Result != "" && info.Result != switcher.ResultOK {
		return info, fmt.Errorf("GetChannelListURL: %w: %q", ErrActionResult, info.Result)
	}
	if info.ChannelListURL == "" {
		return info, fmt.Errorf("GetChannelListURL: %w: empty ChannelListURL", ErrActionResult)
	}
	return info, nil
}

type setMainTVChannelArgs struct {
	ChannelListType string
	SatelliteID     string
	Channel         string
}

type setMainTVChannelReply struct {
	Result string
}

// Invoke performs SetMainTVChannel and returns its Result.
func (a *Agent) Invoke(ctx context.Context, req switcher.Request) (string, error) {
	in := &setMainTVChannelArgs{
		ChannelListType: string(req.Category),
		SatelliteID:     req.SatelliteID,
		Channel:         req.Channel,
	}
	var reply setMainTVChannelReply
	if err := a.perform(ctx, "SetMainTVChannel", in, &reply); err != nil {
		return "", err
	}
	return reply.Result, nil
}
