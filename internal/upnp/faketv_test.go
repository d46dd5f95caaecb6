package upnp

import (
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
)

const descriptionXML = `<?xml version="1.0"?>
<root xmlns="urn:schemas-upnp-org:device-1-0">
  <specVersion><major>1</major><minor>0</minor></specVersion>
  <device>
    <deviceType>urn:samsung.com:device:MainTVServer2:1</deviceType>
    <friendlyName>[TV] Living Room</friendlyName>
    <manufacturer>Samsung Electronics</manufacturer>
    <modelName>UE40D6500</modelName>
    <UDN>uuid:0ee6b280-00fa-1000-8f6c-f47b5e000001</UDN>
    <serviceList>
      <service>
        <serviceType>urn:samsung.com:service:MainTVAgent2:1</serviceType>
        <serviceId>urn:samsung.com:serviceId:MainTVAgent2</serviceId>
        <controlURL>/smp_4_</controlURL>
        <eventSubURL>/smp_5_</eventSubURL>
        <SCPDURL>/smp_3_</SCPDURL>
      </service>
    </serviceList>
  </device>
</root>`

type soapCall struct {
	Action          string
	SOAPAction      string
	ChannelListType string
	SatelliteID     string
	Channel         string
}

// fakeTV serves a device description, the MainTVAgent2 control endpoint and
// a channel list blob.
type fakeTV struct {
	*httptest.Server

	mu      sync.Mutex
	calls   []soapCall
	results []string
	blob    []byte
	fault   bool
}

func newFakeTV(t *testing.T) *fakeTV {
	t.Helper()
	tv := &fakeTV{}
	mux := http.NewServeMux()
	mux.HandleFunc("/dmr.xml", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/xml")
		io.WriteString(w, descriptionXML)
	})
	mux.HandleFunc("/smp_4_", tv.control)
	mux.HandleFunc("/channels.dat", func(w http.ResponseWriter, r *http.Request) {
		tv.mu.Lock()
		defer tv.mu.Unlock()
		w.Write(tv.blob)
	})
	tv.Server = httptest.NewServer(mux)
	t.Cleanup(tv.Close)
	return tv
}

func (tv *fakeTV) control(w http.ResponseWriter, r *http.Request) {
	var env struct {
		Body struct {
			Action struct {
				XMLName         xml.Name
				ChannelListType string
				SatelliteID     string
				Channel         string
			} `xml:",any"`
		} `xml:"Body"`
	}
	if err := xml.NewDecoder(r.Body).Decode(&env); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	a := env.Body.Action
	tv.mu.Lock()
	defer tv.mu.Unlock()
	tv.calls = append(tv.calls, soapCall{
		Action:          a.XMLName.Local,
		SOAPAction:      r.Header.Get("SOAPACTION"),
		ChannelListType: a.ChannelListType,
		SatelliteID:     a.SatelliteID,
		Channel:         a.Channel,
	})

	w.Header().Set("Content-Type", `text/xml; charset="utf-8"`)
	if tv.fault {
		w.WriteHeader(http.StatusInternalServerError)
		io.WriteString(w, `<?xml version="1.0"?><s:Envelope xmlns:s="http://schemas.xmlsoap.org/soap/envelope/"><s:Body><s:Fault><faultcode>s:Client</faultcode><faultstring>UPnPError</faultstring><detail><UPnPError xmlns="urn:schemas-upnp-org:control-1-0"><errorCode>401</errorCode><errorDescription>Invalid Action</errorDescription></UPnPError></detail></s:Fault></s:Body></s:Envelope>`)
		return
	}

	var args string
	switch a.XMLName.Local {
	case "GetChannelListURL":
		args = fmt.Sprintf(`<Result>OK</Result><ChannelListVersion>1</ChannelListVersion><SupportChannelList>1</SupportChannelList><ChannelListURL>%s/channels.dat</ChannelListURL><ChannelListType>0x12</ChannelListType><SatelliteID>0</SatelliteID><Sort>0</Sort>`, tv.URL)
	case "SetMainTVChannel":
		res := "OK"
		if len(tv.results) > 0 {
			res, tv.results = tv.results[0], tv.results[1:]
		}
		args = "<Result>" + res + "</Result>"
	}
	fmt.Fprintf(w, `<?xml version="1.0"?><s:Envelope xmlns:s="http://schemas.xmlsoap.org/soap/envelope/" s:encodingStyle="http://schemas.xmlsoap.org/soap/encoding/"><s:Body><u:%sResponse xmlns:u="urn:samsung.com:service:MainTVAgent2:1">%s</u:%sResponse></s:Body></s:Envelope>`,
		a.XMLName.Local, args, a.XMLName.Local)
}

func (tv *fakeTV) recorded() []soapCall {
	tv.mu.Lock()
	defer tv.mu.Unlock()
	return append([]soapCall(nil), tv.calls...)
}
