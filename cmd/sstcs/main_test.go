package main

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/yath/sstcs/internal/channel"
	"github.com/yath/sstcs/internal/common"
	"github.com/yath/sstcs/internal/report"
)

var lineup = channel.List{
	{Type: channel.CableDigitalTV, Major: 1, PTC: 515, DisplayNumber: "101", Title: "Das Erste HD"},
	{Type: channel.CableDigitalTV, Major: 2, PTC: 515, ProgramNumber: 11110, DisplayNumber: "102", Title: "ZDF HD"},
	{Type: channel.CableAnalogTV, Major: 3, PTC: 21, DisplayNumber: "3", Title: "Bayerisches Fernsehen Süd"},
}

func encodeLineup(t *testing.T) []byte {
	t.Helper()
	blob, err := channel.EncodeList(lineup)
	if err != nil {
		t.Fatalf("EncodeList: %v", err)
	}
	return blob
}

// testEnv writes a config that keeps every side effect inside a temp dir.
func testEnv(t *testing.T) (dir, configPath string) {
	t.Helper()
	dir = t.TempDir()
	configPath = writeConfig(t, dir, "logLevels: error\ncacheFile: devices.gob\nhistoryFile: history.jsonl\n")
	return dir, configPath
}

func TestChannelArg(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Das Erste HD", "Das Erste HD"},
		{"Bayerisches Fernsehen Süd", "Bayerisches Fernsehen Süd"},
		{"Bayerisches Fernsehen S\xfcd", "Bayerisches Fernsehen Süd"},
	}
	for _, tc := range tests {
		if got := channelArg(tc.in); got != tc.want {
			t.Fatalf("channelArg(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestRunUsageErrors(t *testing.T) {
	_, cfg := testEnv(t)
	tests := [][]string{
		nil,
		{"frobnicate"},
		{"decode", "-config", cfg},
		{"decode", "-config", cfg, "-in", "x.dat", "-format", "xml"},
		{"decode", "-config", cfg, "-in", "x.dat", "-format", "pdf"},
		{"switch", "-config", cfg},
		{"fetch", "-config", cfg},
		{"decode", "-config", cfg, "-in", "x.dat", "-L", "chatty"},
	}
	for _, args := range tests {
		var out bytes.Buffer
		if code := run(context.Background(), args, &out); code != exitUsage {
			t.Fatalf("run(%q) = %d, want %d", args, code, exitUsage)
		}
	}
}

func TestDecodeCmd(t *testing.T) {
	dir, cfg := testEnv(t)
	in := filepath.Join(dir, "channels.dat")
	if err := os.WriteFile(in, encodeLineup(t), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	var out bytes.Buffer
	if code := run(context.Background(), []string{"decode", "-config", cfg, "-in", in}, &out); code != exitOK {
		t.Fatalf("decode exit code = %d", code)
	}
	want := "[CDTV]  101 Das Erste HD\n[CDTV]  102 ZDF HD\n[CATV]    3 Bayerisches Fernsehen Süd\n"
	if out.String() != want {
		t.Fatalf("decode output =\n%s\nwant\n%s", out.String(), want)
	}

	out.Reset()
	if code := run(context.Background(), []string{"decode", "-config", cfg, "-in", in, "-match", "HD$", "-format", "json"}, &out); code != exitOK {
		t.Fatalf("decode -format json exit code = %d", code)
	}
	if !strings.Contains(out.String(), `"title": "ZDF HD"`) || strings.Contains(out.String(), "Bayerisches") {
		t.Fatalf("unexpected json output:\n%s", out.String())
	}

	pdf := filepath.Join(dir, "channels.pdf")
	out.Reset()
	if code := run(context.Background(), []string{"decode", "-config", cfg, "-in", in, "-format", "pdf", "-out", pdf}, &out); code != exitOK {
		t.Fatalf("decode -format pdf exit code = %d", code)
	}
	if info, err := os.Stat(pdf); err != nil || info.Size() == 0 {
		t.Fatalf("pdf not written: %v", err)
	}
}

func TestDecodeCmdOutputFiles(t *testing.T) {
	dir, cfg := testEnv(t)
	in := filepath.Join(dir, "channels.dat")
	if err := os.WriteFile(in, encodeLineup(t), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	txt := filepath.Join(dir, "channels.txt")
	var out bytes.Buffer
	if code := run(context.Background(), []string{"decode", "-config", cfg, "-in", in, "-out", txt}, &out); code != exitOK {
		t.Fatalf("decode -out exit code = %d", code)
	}
	got, err := os.ReadFile(txt)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if want := "[CDTV]  101 Das Erste HD\n[CDTV]  102 ZDF HD\n[CATV]    3 Bayerisches Fernsehen Süd\n"; string(got) != want {
		t.Fatalf("text file =\n%s\nwant\n%s", got, want)
	}
	if out.String() != "Wrote "+txt+"\n" {
		t.Fatalf("stdout = %q", out.String())
	}

	js := filepath.Join(dir, "channels.json")
	if code := run(context.Background(), []string{"decode", "-config", cfg, "-in", in, "-format", "json", "-out", js}, io.Discard); code != exitOK {
		t.Fatalf("decode -format json -out exit code = %d", code)
	}
	raw, err := os.ReadFile(js)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	var rep report.ChannelReport
	if err := json.Unmarshal(raw, &rep); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if len(rep.Channels) != len(lineup) || rep.Channels[2] != lineup[2] || rep.Source != in {
		t.Fatalf("json report = %+v", rep)
	}

	missing := filepath.Join(dir, "no-such-dir", "channels.txt")
	if code := run(context.Background(), []string{"decode", "-config", cfg, "-in", in, "-out", missing}, io.Discard); code != exitFailure {
		t.Fatalf("unwritable -out exit code = %d, want %d", code, exitFailure)
	}
}

func TestDecodeCmdFormatError(t *testing.T) {
	dir, cfg := testEnv(t)
	blob := encodeLineup(t)
	binary.LittleEndian.PutUint16(blob[channel.HeaderSize+channel.RecordSize+10:], 0x1234)
	in := filepath.Join(dir, "broken.dat")
	if err := os.WriteFile(in, blob, 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	err := decodeCmd([]string{"-config", cfg, "-in", in}, io.Discard)
	if err == nil || !strings.Contains(err.Error(), "reserved field mismatch (1234)") {
		t.Fatalf("decodeCmd error = %v", err)
	}
	if code := run(context.Background(), []string{"decode", "-config", cfg, "-in", in}, io.Discard); code != exitFailure {
		t.Fatalf("exit code = %d, want %d", code, exitFailure)
	}
}

// newFakeTV answers the two MainTVAgent2 actions and serves blob.
func newFakeTV(t *testing.T, blob []byte, results ...string) (*httptest.Server, *[]string) {
	t.Helper()
	var categories []string
	var srv *httptest.Server
	mux := http.NewServeMux()
	mux.HandleFunc("/dmr.xml", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<?xml version="1.0"?><root xmlns="urn:schemas-upnp-org:device-1-0"><specVersion><major>1</major><minor>0</minor></specVersion><device><deviceType>urn:samsung.com:device:MainTVServer2:1</deviceType><friendlyName>[TV] Test</friendlyName><UDN>uuid:test</UDN><serviceList><service><serviceType>urn:samsung.com:service:MainTVAgent2:1</serviceType><serviceId>urn:samsung.com:serviceId:MainTVAgent2</serviceId><controlURL>/smp_4_</controlURL><eventSubURL>/smp_5_</eventSubURL><SCPDURL>/smp_3_</SCPDURL></service></serviceList></device></root>`)
	})
	mux.HandleFunc("/channels.dat", func(w http.ResponseWriter, r *http.Request) {
		w.Write(blob)
	})
	mux.HandleFunc("/smp_4_", func(w http.ResponseWriter, r *http.Request) {
		var env struct {
			Body struct {
				Action struct {
					XMLName         xml.Name
					ChannelListType string
				} `xml:",any"`
			} `xml:"Body"`
		}
		if err := xml.NewDecoder(r.Body).Decode(&env); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		action := env.Body.Action.XMLName.Local
		var args string
		switch action {
		case "GetChannelListURL":
			args = "<Result>OK</Result><ChannelListURL>" + srv.URL + "/channels.dat</ChannelListURL><ChannelListType>0x12</ChannelListType><SatelliteID>0</SatelliteID>"
		case "SetMainTVChannel":
			categories = append(categories, env.Body.Action.ChannelListType)
			res := "OK"
			if len(results) > 0 {
				res, results = results[0], results[1:]
			}
			args = "<Result>" + res + "</Result>"
		}
		fmt.Fprintf(w, `<?xml version="1.0"?><s:Envelope xmlns:s="http://schemas.xmlsoap.org/soap/envelope/"><s:Body><u:%sResponse xmlns:u="urn:samsung.com:service:MainTVAgent2:1">%s</u:%sResponse></s:Body></s:Envelope>`, action, args, action)
	})
	srv = httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, &categories
}

func TestSwitchCmd(t *testing.T) {
	dir, cfg := testEnv(t)
	tv, categories := newFakeTV(t, encodeLineup(t), "NOTOK_InvalidCh", "OK")

	var out bytes.Buffer
	code := run(context.Background(), []string{"switch", "-config", cfg, "-device-url", tv.URL + "/dmr.xml", "-channel", "ZDF HD"}, &out)
	if code != exitOK {
		t.Fatalf("switch exit code = %d", code)
	}
	if got := strings.Join(*categories, ","); got != "0x12,0x11" {
		t.Fatalf("categories = %s, want 0x12,0x11", got)
	}
	if !strings.Contains(out.String(), `Switched to "ZDF HD"`) {
		t.Fatalf("output = %q", out.String())
	}

	entries, err := common.ReadHistory(filepath.Join(dir, "history.jsonl"))
	if err != nil {
		t.Fatalf("ReadHistory: %v", err)
	}
	if len(entries) != 1 || entries[0].Title != "ZDF HD" || entries[0].State != "succeeded" {
		t.Fatalf("history = %+v", entries)
	}
}

func TestSwitchCmdFailures(t *testing.T) {
	_, cfg := testEnv(t)
	tv, categories := newFakeTV(t, encodeLineup(t), "WeirdValue")
	args := []string{"switch", "-config", cfg, "-device-url", tv.URL + "/dmr.xml"}

	if code := run(context.Background(), append(args, "-channel", "arte"), io.Discard); code != exitFailure {
		t.Fatalf("unknown channel exit code = %d, want %d", code, exitFailure)
	}
	if len(*categories) != 0 {
		t.Fatalf("switch attempted for an unknown channel")
	}
	if code := run(context.Background(), append(args, "Das Erste HD"), io.Discard); code != exitFailure {
		t.Fatalf("unexpected result exit code = %d, want %d", code, exitFailure)
	}
	if len(*categories) != 1 {
		t.Fatalf("invocations = %d, want 1", len(*categories))
	}
}

func TestListAndFetchCmd(t *testing.T) {
	dir, cfg := testEnv(t)
	blob := encodeLineup(t)
	tv, _ := newFakeTV(t, blob)
	conn := []string{"-config", cfg, "-device-url", tv.URL + "/dmr.xml"}

	var out bytes.Buffer
	if code := run(context.Background(), append([]string{"list"}, append(conn, "-match", "^ZDF")...), &out); code != exitOK {
		t.Fatalf("list exit code = %d", code)
	}
	if out.String() != "[CDTV]  102 ZDF HD\n" {
		t.Fatalf("list output = %q", out.String())
	}

	saved := filepath.Join(dir, "saved.dat")
	out.Reset()
	if code := run(context.Background(), append([]string{"fetch"}, append(conn, "-out", saved)...), &out); code != exitOK {
		t.Fatalf("fetch exit code = %d", code)
	}
	got, err := os.ReadFile(saved)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if !bytes.Equal(got, blob) {
		t.Fatalf("fetched blob differs from the served one")
	}
	if !strings.Contains(out.String(), common.Digest(blob)) {
		t.Fatalf("fetch output missing digest: %q", out.String())
	}
}
