package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"

	"github.com/ghalamif/simlink"
	"github.com/ghalamif/simlink/internal/domain"
)

func main() {
	if len(os.Args) < 2 {
		printUsage(os.Stdout)
		os.Exit(1)
	}

	cmd := os.Args[1]
	var err error

	switch cmd {
	case "run":
		err = runCommand(os.Args[2:])
	case "validate":
		err = validateCommand(os.Args[2:])
	case "stats":
		err = statsCommand(os.Args[2:])
	case "send":
		err = sendCommand(os.Args[2:])
	case "help", "-h", "--help":
		printUsage(os.Stdout)
		return
	default:
		printUsage(os.Stderr)
		err = fmt.Errorf("unknown command %q", cmd)
	}

	if err != nil {
		log.Fatalf("simlink-edge %s: %v", cmd, err)
	}
}

func runCommand(args []string) error {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	cfgPath := fs.String("config", "./data/config.yaml", "Path to link configuration file")
	debug := fs.Bool("debug", false, "Enable debug logging (overrides logging.debug)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, loadErr := simlink.LoadConfigOrDefault(*cfgPath)
	if cfg == nil {
		return fmt.Errorf("load config: %w", loadErr)
	}

	logger, sync, err := simlink.NewLogger(cfg.Logging.Debug || *debug)
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	defer sync()

	if loadErr != nil {
		logger.Error(loadErr, "config not loaded, using defaults", "path", *cfgPath)
	}

	session, err := simlink.NewSession(cfg, simlink.WithLogger(logger))
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return session.Run(ctx)
}

func validateCommand(args []string) error {
	fs := flag.NewFlagSet("validate", flag.ExitOnError)
	cfgPath := fs.String("config", "./data/config.yaml", "Path to configuration file to validate")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := simlink.LoadConfig(*cfgPath)
	if err != nil {
		return err
	}
	fmt.Printf("config %s looks good: telemetry %s @ %d Hz, control %s\n",
		*cfgPath, cfg.TelemetryAddr(), cfg.Telemetry.SampleRateHz, cfg.ControlAddr())
	return nil
}

func sendCommand(args []string) error {
	fs := flag.NewFlagSet("send", flag.ExitOnError)
	addr := fs.String("addr", "127.0.0.1:9997", "Control address of the running link")
	opName := fs.String("op", "", "Opcode name or number, e.g. TRACTION_CONTROL_LEVEL or 1")
	value := fs.String("value", "", "Payload: integer level, fraction, or on/off")
	list := fs.Bool("list", false, "List opcodes and exit")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *list {
		for _, op := range domain.Opcodes() {
			fmt.Printf("%2d  %-24s %s\n", uint32(op), op, op.Kind())
		}
		return nil
	}

	op, err := domain.ParseOpcode(*opName)
	if err != nil {
		return err
	}
	cmd, err := domain.ParseCommand(op, *value)
	if err != nil {
		return err
	}

	raddr, err := net.ResolveUDPAddr("udp", *addr)
	if err != nil {
		return err
	}
	conn, err := net.DialUDP("udp", nil, raddr)
	if err != nil {
		return err
	}
	defer conn.Close()

	if _, err := conn.Write(simlink.EncodeCommand(cmd)); err != nil {
		return err
	}
	fmt.Printf("sent %s=%v to %s\n", cmd.Op, cmd.Value(), raddr)
	return nil
}

func statsCommand(args []string) error {
	fs := flag.NewFlagSet("stats", flag.ExitOnError)
	url := fs.String("url", "http://localhost:9100/metrics", "Prometheus metrics endpoint")
	interval := fs.Duration("interval", 2*time.Second, "Refresh interval")
	if err := fs.Parse(args); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ticker := time.NewTicker(*interval)
	defer ticker.Stop()

	client := &http.Client{Timeout: *interval}

	fmt.Printf("Streaming metrics from %s (Ctrl+C to stop)\n", *url)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := printMetricsSnapshot(client, *url); err != nil {
				fmt.Fprintf(os.Stderr, "stats error: %v\n", err)
			}
		}
	}
}

var statsTargets = []struct {
	metric string
	label  string
}{
	{"simlink_frames_sent_total", "sent"},
	{"simlink_frames_dropped_total", "dropped"},
	{"simlink_samples_skipped_total", "skipped"},
	{"simlink_commands_applied_total", "applied"},
	{"simlink_commands_rejected_total", "rejected"},
	{"simlink_parse_errors_total", "parse_err"},
	{"simlink_commands_stale_total", "stale"},
	{"simlink_control_backlog_length", "backlog"},
}

func printMetricsSnapshot(client *http.Client, url string) error {
	resp, err := client.Get(url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %s", resp.Status)
	}

	values, err := scrape(resp.Body)
	if err != nil {
		return err
	}

	parts := make([]string, 0, len(statsTargets))
	for _, t := range statsTargets {
		parts = append(parts, fmt.Sprintf("%s=%.0f", t.label, values[t.metric]))
	}
	fmt.Printf("[%s] %s\n", time.Now().Format(time.RFC3339), strings.Join(parts, " "))
	return nil
}

// scrape sums every counter and gauge in a text exposition across label sets.
func scrape(r io.Reader) (map[string]float64, error) {
	var parser expfmt.TextParser
	families, err := parser.TextToMetricFamilies(r)
	if err != nil {
		return nil, fmt.Errorf("parse metrics: %w", err)
	}

	out := make(map[string]float64, len(families))
	names := make([]string, 0, len(families))
	for name := range families {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		mf := families[name]
		for _, m := range mf.GetMetric() {
			switch mf.GetType() {
			case dto.MetricType_COUNTER:
				out[name] += m.GetCounter().GetValue()
			case dto.MetricType_GAUGE:
				out[name] += m.GetGauge().GetValue()
			}
		}
	}
	if len(out) == 0 {
		return nil, errors.New("no counters or gauges in response")
	}
	return out, nil
}

func printUsage(w io.Writer) {
	fmt.Fprint(w, `simlink CLI

Usage:
  simlink-edge <command> [flags]

Commands:
  run        Start the telemetry/control link using the provided config
  validate   Load and validate a config file without starting the link
  stats      Poll the Prometheus metrics endpoint and print live counters
  send       Encode one control command and send it to a running link

Examples:
  simlink-edge run -config ./data/config.yaml
  simlink-edge validate -config ./data/config.yaml
  simlink-edge stats -url http://localhost:9100/metrics -interval 1s
  simlink-edge send -op TRACTION_CONTROL_LEVEL -value 4
  simlink-edge send -op LEFT_INDICATOR -value on
`)
}
