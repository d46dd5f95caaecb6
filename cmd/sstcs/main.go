package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"

	"github.com/yath/sstcs/internal/channel"
	"github.com/yath/sstcs/internal/common"
	"github.com/yath/sstcs/internal/control"
	"github.com/yath/sstcs/internal/report"
	"github.com/yath/sstcs/internal/upnp"
)

var (
	version   = "dev"
	buildDate = "unknown"
)

const (
	exitOK      = 0
	exitUsage   = 1
	exitFailure = 2
)

var log = common.NewLogger("")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdout io.Writer) int {
	if len(args) < 1 {
		usage(stdout)
		return exitUsage
	}
	var err error
	switch args[0] {
	case "switch":
		err = switchCmd(ctx, args[1:], stdout)
	case "list":
		err = listCmd(ctx, args[1:], stdout)
	case "decode":
		err = decodeCmd(args[1:], stdout)
	case "fetch":
		err = fetchCmd(ctx, args[1:], stdout)
	case "help", "-h", "--help":
		usage(stdout)
		return exitOK
	default:
		usage(stdout)
		return exitUsage
	}

	var ue usageError
	switch {
	case err == nil:
		return exitOK
	case errors.As(err, &ue):
		fmt.Fprintln(os.Stderr, err)
		return exitUsage
	default:
		log.Errorf("%v", err)
		return exitFailure
	}
}

func usage(w io.Writer) {
	fmt.Fprintf(w, `sstcs %s (built %s) <command> [options]

Commands:
  switch  -channel <title> [connection options]
  list    [-format text|json|pdf] [-out <file>] [-match <regex>] [connection options]
  decode  -in <channels.dat> [-format text|json|pdf] [-out <file>] [-match <regex>]
  fetch   -out <channels.dat> [connection options]

Connection options:
  -config <file> -device-type <urn> -device-url <url> -no-cache -metrics -L <levels>
`, version, buildDate)
}

type usageError struct {
	msg string
}

func (e usageError) Error() string { return e.msg }

func usagef(format string, args ...any) error {
	return usageError{msg: fmt.Sprintf(format, args...)}
}

// levelsFlag collects repeated -L values.
type levelsFlag []string

func (l *levelsFlag) String() string { return strings.Join(*l, ",") }

func (l *levelsFlag) Set(v string) error {
	*l = append(*l, v)
	return nil
}

// commonFlags are shared by every subcommand.
type commonFlags struct {
	configPath string
	levels     levelsFlag
}

func addCommonFlags(fs *flag.FlagSet) *commonFlags {
	cf := &commonFlags{}
	fs.StringVar(&cf.configPath, "config", defaultConfigPath(), "configuration file")
	fs.Var(&cf.levels, "L", "log levels, e.g. debug or info,upnp=debug (repeatable)")
	return cf
}

func (cf *commonFlags) setup(fs *flag.FlagSet) (config, error) {
	explicit := false
	fs.Visit(func(f *flag.Flag) {
		if f.Name == "config" {
			explicit = true
		}
	})
	cfg, err := loadConfig(cf.configPath, explicit)
	if err != nil {
		return cfg, fmt.Errorf("load config: %w", err)
	}
	if err := setupLogging(cfg, cf.levels); err != nil {
		return cfg, usagef("log levels: %v", err)
	}
	return cfg, nil
}

// connFlags select the TV.
type connFlags struct {
	*commonFlags
	deviceType string
	deviceURL  string
	noCache    bool
	metrics    bool
}

func addConnFlags(fs *flag.FlagSet) *connFlags {
	cf := &connFlags{commonFlags: addCommonFlags(fs)}
	fs.StringVar(&cf.deviceType, "device-type", "", "UPnP device type to search for")
	fs.StringVar(&cf.deviceURL, "device-url", "", "device description URL, skips discovery")
	fs.BoolVar(&cf.noCache, "no-cache", false, "ignore the discovered device cache")
	fs.BoolVar(&cf.metrics, "metrics", false, "print run metrics")
	return cf
}

type session struct {
	ctrl    *control.Controller
	metrics *common.Metrics
	print   bool
}

func (cf *connFlags) connect(ctx context.Context, fs *flag.FlagSet) (*session, error) {
	cfg, err := cf.setup(fs)
	if err != nil {
		return nil, err
	}
	if cf.deviceType != "" {
		cfg.DeviceType = cf.deviceType
	}
	if cf.deviceURL != "" {
		cfg.DeviceURL = cf.deviceURL
	}
	cacheFile := cfg.CacheFile
	if cf.noCache {
		cacheFile = ""
	}

	metrics := common.NewMetrics()
	metrics.Start()

	cache, err := upnp.OpenDeviceCache(cacheFile, cfg.CacheTTL)
	if err != nil {
		log.Warnf("%v", err)
		cache, _ = upnp.OpenDeviceCache("", cfg.CacheTTL)
	}
	agent, err := upnp.Resolve(ctx, cfg.DeviceURL, cache, upnp.Options{
		DeviceType:       cfg.DeviceType,
		ServiceID:        cfg.ServiceID,
		DiscoveryTimeout: cfg.DiscoveryTimeout,
		ActionTimeout:    cfg.ActionTimeout,
	})
	if err != nil {
		return nil, err
	}
	if err := cache.Save(); err != nil {
		log.Warnf("%v", err)
	}

	ctrl := &control.Controller{
		Agent:   agent,
		Fetcher: upnp.NewFetcher(cfg.FetchTimeout),
		Metrics: metrics,
	}
	if cfg.HistoryFile != "" {
		ctrl.History = common.NewHistory(cfg.HistoryFile)
	}
	return &session{ctrl: ctrl, metrics: metrics, print: cf.metrics}, nil
}

func (s *session) finish() {
	s.metrics.Stop()
	if s.print {
		log.Infof("%s", s.metrics.Snapshot())
	}
}

// channelArg decodes a title given on the command line. Bytes that are not
// UTF-8 are taken as ISO-8859-1.
func channelArg(s string) string {
	if utf8.ValidString(s) {
		return s
	}
	dec, err := charmap.ISO8859_1.NewDecoder().String(s)
	if err != nil {
		return s
	}
	return dec
}

func switchCmd(ctx context.Context, args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("switch", flag.ContinueOnError)
	cf := addConnFlags(fs)
	title := fs.String("channel", "", "channel title, exactly as the TV lists it")
	if err := fs.Parse(args); err != nil {
		return usagef("%v", err)
	}
	name := *title
	if name == "" && fs.NArg() == 1 {
		name = fs.Arg(0)
	}
	if name == "" {
		return usagef("required: -channel")
	}
	name = channelArg(name)

	s, err := cf.connect(ctx, fs)
	if err != nil {
		return err
	}
	defer s.finish()
	out, err := s.ctrl.SwitchTo(ctx, name)
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "Switched to %q (category %s)\n", name, out.Category)
	return nil
}

type outputFlags struct {
	format string
	out    string
	match  string
}

func addOutputFlags(fs *flag.FlagSet) *outputFlags {
	of := &outputFlags{}
	fs.StringVar(&of.format, "format", "text", "output format: text, json or pdf")
	fs.StringVar(&of.out, "out", "", "output file (default stdout; required for pdf)")
	fs.StringVar(&of.match, "match", "", "only channels whose title matches this regular expression")
	return of
}

func (of *outputFlags) validate() error {
	switch of.format {
	case "text", "json":
	case "pdf":
		if of.out == "" {
			return usagef("-format pdf requires -out")
		}
	default:
		return usagef("unknown format %q", of.format)
	}
	return nil
}

func (of *outputFlags) render(stdout io.Writer, rep report.ChannelReport) error {
	list, err := report.Filter(rep.Channels, of.match)
	if err != nil {
		return usagef("%v", err)
	}
	rep.Channels = list
	if of.format == "pdf" {
		if err := report.SavePDF(rep, of.out); err != nil {
			return fmt.Errorf("write pdf: %w", err)
		}
		fmt.Fprintln(stdout, "Wrote", of.out)
		return nil
	}

	switch {
	case of.out == "" && of.format == "json":
		return report.WriteJSON(stdout, rep)
	case of.out == "":
		return report.WriteText(stdout, rep.Channels)
	case of.format == "json":
		if err := report.SaveJSON(rep, of.out); err != nil {
			return fmt.Errorf("write json: %w", err)
		}
	default:
		if err := saveText(of.out, rep.Channels); err != nil {
			return fmt.Errorf("write text: %w", err)
		}
	}
	fmt.Fprintln(stdout, "Wrote", of.out)
	return nil
}

func saveText(path string, list channel.List) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := report.WriteText(f, list); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func listCmd(ctx context.Context, args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("list", flag.ContinueOnError)
	cf := addConnFlags(fs)
	of := addOutputFlags(fs)
	if err := fs.Parse(args); err != nil {
		return usagef("%v", err)
	}
	if err := of.validate(); err != nil {
		return err
	}

	s, err := cf.connect(ctx, fs)
	if err != nil {
		return err
	}
	defer s.finish()
	snap, err := s.ctrl.Channels(ctx)
	if err != nil {
		return err
	}
	return of.render(stdout, report.ChannelReport{
		Generated: time.Now().UTC(),
		Source:    snap.URL,
		Category:  string(snap.Category),
		Digest:    snap.Digest,
		Channels:  snap.Channels,
	})
}

func decodeCmd(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("decode", flag.ContinueOnError)
	cf := addCommonFlags(fs)
	of := addOutputFlags(fs)
	in := fs.String("in", "", "saved channel list")
	if err := fs.Parse(args); err != nil {
		return usagef("%v", err)
	}
	if *in == "" {
		return usagef("required: -in")
	}
	if err := of.validate(); err != nil {
		return err
	}
	if _, err := cf.setup(fs); err != nil {
		return err
	}

	blob, digest, err := common.ReadBlob(*in)
	if err != nil {
		return err
	}
	list, err := channel.DecodeList(blob)
	if err != nil {
		return fmt.Errorf("decode %s: %w", *in, err)
	}
	log.Debugf("%s: %d channels, sha256 %s", *in, len(list), digest)
	return of.render(stdout, report.ChannelReport{
		Generated: time.Now().UTC(),
		Source:    *in,
		Digest:    digest,
		Channels:  list,
	})
}

func fetchCmd(ctx context.Context, args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("fetch", flag.ContinueOnError)
	cf := addConnFlags(fs)
	out := fs.String("out", "", "where to save the raw channel list")
	if err := fs.Parse(args); err != nil {
		return usagef("%v", err)
	}
	if *out == "" {
		return usagef("required: -out")
	}

	s, err := cf.connect(ctx, fs)
	if err != nil {
		return err
	}
	defer s.finish()
	snap, err := s.ctrl.Download(ctx)
	if err != nil {
		return err
	}
	if err := common.WriteBlob(*out, snap.Raw); err != nil {
		return err
	}
	fmt.Fprintf(stdout, "Wrote %s (%s, sha256 %s)\n", *out, common.FormatBytes(int64(len(snap.Raw))), snap.Digest)
	if _, err := channel.DecodeList(snap.Raw); err != nil {
		log.Warnf("saved channel list does not decode: %v", err)
	}
	return nil
}
