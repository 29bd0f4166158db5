package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"net"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"text/tabwriter"
	"time"

	"unifimon/internal/addrutil"
	"unifimon/internal/api"
	"unifimon/internal/config"
	"unifimon/internal/extract"
	"unifimon/internal/metrics"
	"unifimon/internal/model"
	"unifimon/internal/panel"
	"unifimon/internal/poller"
	"unifimon/internal/schedule"
	"unifimon/internal/stunutil"
)

var version = "dev"

const usage = `unifimon - UniFi gateway WAN monitor

Usage:
  unifimon init --config <path>
  unifimon run --config <path> [--listen addr] [--interval-sec n]
  unifimon fetch --config <path> [--format text|json|csv]
  unifimon doctor --config <path>
  unifimon version

Without --config, $HOME/.unifimon/config.yaml is used. run creates a default
config there when none exists.
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	cmd := os.Args[1]
	switch cmd {
	case "-h", "--help", "help":
		fmt.Print(usage)
	case "init":
		handleInit(os.Args[2:])
	case "run":
		handleRun(os.Args[2:])
	case "fetch":
		handleFetch(os.Args[2:])
	case "doctor":
		handleDoctor(os.Args[2:])
	case "version":
		fmt.Println(version)
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", cmd)
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
}

func handleInit(args []string) {
	fs := flag.NewFlagSet("init", flag.ExitOnError)
	configPath := fs.String("config", "", "path to YAML config")
	controllerURL := fs.String("controller", "", "controller base URL")
	apiKey := fs.String("api-key", "", "UniFi API key")
	site := fs.String("site", "", "site name")
	wanIndex := fs.Int("wan", config.DefaultWANIndex, "WAN index")
	force := fs.Bool("force", false, "overwrite an existing config")
	_ = fs.Parse(args)

	path := resolveConfigPath(*configPath)
	if _, err := os.Stat(path); err == nil && !*force {
		fatal(fmt.Errorf("%s already exists (use --force to overwrite)", path))
	}

	cfg := config.Default()
	if *controllerURL != "" {
		cfg.Gateway.ControllerURL = *controllerURL
	}
	if *apiKey != "" {
		cfg.Gateway.APIKey = *apiKey
	}
	if *site != "" {
		cfg.Gateway.SiteName = *site
	}
	cfg.Gateway.WANIndex = *wanIndex
	config.ApplyDefaults(&cfg)
	if err := config.Validate(cfg); err != nil {
		fatal(err)
	}
	if err := config.Save(path, cfg); err != nil {
		fatal(err)
	}
	fmt.Fprintf(os.Stdout, "wrote %s\n", path)
}

func handleRun(args []string) {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	configPath := fs.String("config", "", "path to YAML config")
	listen := fs.String("listen", "", "override panel listen address")
	intervalSec := fs.Int("interval-sec", 0, "override poll interval in seconds")
	_ = fs.Parse(args)

	path := resolveConfigPath(*configPath)
	cfg, created, err := config.LoadOrCreate(path)
	if err != nil {
		fatal(err)
	}
	if created {
		log.Printf("wrote default config to %s", path)
	}
	if *listen != "" {
		cfg.Panel.Listen = *listen
	}
	if *intervalSec > 0 {
		cfg.Poll.IntervalSec = *intervalSec
	}
	if err := config.Validate(cfg); err != nil {
		fatal(err)
	}
	if config.APIKeyIsPlaceholder(cfg.Gateway) {
		log.Printf("WARNING: gateway.api_key in %s is still the placeholder; polls will fail until it is set", path)
	}

	client, err := newClient(cfg.Gateway)
	if err != nil {
		fatal(err)
	}

	recorder := metrics.NewFailureRecorder()
	p := poller.New(client, poller.Config{
		Site:     cfg.Gateway.SiteName,
		WANIndex: cfg.Gateway.WANIndex,
	}, recorder)
	metrics.Registry.MustRegister(metrics.NewSnapshotCollector(p.Snapshot))

	srv := panel.NewServer(cfg.Panel, p, metrics.Registry)

	ctx, cancel := signalContext()
	defer cancel()

	log.Printf("unifimon %s polling %s site=%s wan=%d every %s",
		version, cfg.Gateway.ControllerURL, cfg.Gateway.SiteName, cfg.Gateway.WANIndex, cfg.Poll.Interval())
	if config.InsecureSkipVerify(cfg.Gateway) {
		log.Printf("tls certificate verification disabled for %s", cfg.Gateway.ControllerURL)
	}

	var wg sync.WaitGroup
	errCh := make(chan error, 2)
	wg.Add(2)
	go func() {
		defer wg.Done()
		errCh <- schedule.Run(ctx, cfg.Poll.Interval(), func(ctx context.Context) error {
			// Fetch failures are logged and counted by the recorder.
			if err := p.Poll(ctx); errors.Is(err, poller.ErrPollInProgress) {
				return err
			}
			return nil
		})
	}()
	go func() {
		defer wg.Done()
		errCh <- srv.ListenAndServe(ctx)
	}()

	// Either component failing stops the other.
	go func() {
		for err := range errCh {
			if err != nil {
				log.Printf("shutting down: %v", err)
				cancel()
			}
		}
	}()

	<-ctx.Done()
	log.Println("shutting down...")
	wg.Wait()
	close(errCh)
}

func handleFetch(args []string) {
	fs := flag.NewFlagSet("fetch", flag.ExitOnError)
	configPath := fs.String("config", "", "path to YAML config")
	format := fs.String("format", "text", "output format: text|json|csv")
	_ = fs.Parse(args)

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fatal(err)
	}
	if err := config.Validate(cfg); err != nil {
		fatal(err)
	}

	client, err := newClient(cfg.Gateway)
	if err != nil {
		fatal(err)
	}
	p := poller.New(client, poller.Config{Site: cfg.Gateway.SiteName, WANIndex: cfg.Gateway.WANIndex}, nil)

	ctx, cancel := signalContext()
	defer cancel()
	if err := p.Poll(ctx); err != nil {
		fatal(fmt.Errorf("poll failed (%s): %w", poller.Classify(err), err))
	}
	snap := p.Snapshot()

	switch *format {
	case "text":
		writeTable(snap)
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		fatal(enc.Encode(metrics.Entries(snap)))
	case "csv":
		fatal(metrics.WriteCSV(os.Stdout, snap))
	default:
		fatal(fmt.Errorf("unknown format %q", *format))
	}
}

func handleDoctor(args []string) {
	fs := flag.NewFlagSet("doctor", flag.ExitOnError)
	configPath := fs.String("config", "", "path to YAML config")
	_ = fs.Parse(args)

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fatal(err)
	}

	g := cfg.Gateway
	fmt.Fprintf(os.Stdout, "controller_url=%s site=%s wan_index=%d\n", g.ControllerURL, g.SiteName, g.WANIndex)
	fmt.Fprintf(os.Stdout, "insecure_skip_verify=%v ca_file=%q proxy=%q timeout=%s\n",
		config.InsecureSkipVerify(g), g.CAFile, g.Proxy, g.Timeout())
	if config.APIKeyIsPlaceholder(g) {
		fmt.Fprintln(os.Stdout, "warning: api_key is still the placeholder")
	}
	if err := config.Validate(cfg); err != nil {
		fmt.Fprintf(os.Stdout, "config error: %v\n", err)
		return
	}

	ctx, cancel := signalContext()
	defer cancel()

	if hostPort, ok := addrutil.HostPort(g.ControllerURL); ok && g.Proxy == "" {
		start := time.Now()
		conn, err := (&net.Dialer{Timeout: g.Timeout()}).DialContext(ctx, "tcp", hostPort)
		if err != nil {
			fmt.Fprintf(os.Stdout, "tcp %s: %v\n", hostPort, err)
		} else {
			conn.Close()
			fmt.Fprintf(os.Stdout, "tcp %s: ok (%s)\n", hostPort, time.Since(start).Round(time.Millisecond))
		}
	}

	client, err := newClient(g)
	if err != nil {
		fmt.Fprintf(os.Stdout, "client error: %v\n", err)
		return
	}
	body, err := client.AggregatedDashboard(ctx, g.SiteName)
	if err != nil {
		fmt.Fprintf(os.Stdout, "dashboard: %s failure: %v\n", poller.Classify(err), err)
	} else if doc, err := extract.Decode(body); err != nil {
		fmt.Fprintf(os.Stdout, "dashboard: decode failure: %v\n", err)
	} else {
		count := extract.WANCount(doc)
		fmt.Fprintf(os.Stdout, "dashboard: ok, %d bytes, wan_details=%d\n", len(body), count)
		if g.WANIndex >= count {
			fmt.Fprintf(os.Stdout, "warning: wan_index=%d is out of range; WAN values will read 0\n", g.WANIndex)
		}
		writeTable(metrics.Derive(extract.SampleOf(doc, g.WANIndex), time.Now()))
	}

	egress, err := stunutil.Probe(ctx, cfg.Doctor.STUNServers, 3*time.Second)
	if err != nil {
		fmt.Fprintf(os.Stdout, "egress: stun probe failed: %v\n", err)
		return
	}
	fmt.Fprintf(os.Stdout, "egress: public_addr=%s nat=%s servers=%d\n", egress.Addr, egress.NATType, egress.Servers)
}

func writeTable(snap model.Snapshot) {
	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tVALUE\tUNIT")
	for _, e := range metrics.Entries(snap) {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", e.ID, metrics.FormatValue(e.Value), e.Unit)
	}
	_ = tw.Flush()
}

func newClient(g config.GatewayConfig) (*api.Client, error) {
	return api.NewClient(g.ControllerURL, api.Options{
		APIKey:             g.APIKey,
		InsecureSkipVerify: config.InsecureSkipVerify(g),
		CAFile:             g.CAFile,
		Proxy:              g.Proxy,
		Timeout:            g.Timeout(),
	})
}

func resolveConfigPath(path string) string {
	if path != "" {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "unifimon.yaml"
	}
	return filepath.Join(home, ".unifimon", "config.yaml")
}

func loadConfig(path string) (config.Config, error) {
	return config.Load(resolveConfigPath(path))
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-signals
		cancel()
	}()
	return ctx, cancel
}

func fatal(err error) {
	if err == nil {
		return
	}
	fmt.Fprintln(os.Stderr, err)
	os.Exit(1)
}
