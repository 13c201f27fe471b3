package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/sloppy/homenetsafe/internal/config"
	"github.com/sloppy/homenetsafe/internal/dashboard"
	"github.com/sloppy/homenetsafe/internal/db"
	"github.com/sloppy/homenetsafe/internal/discovery"
	"github.com/sloppy/homenetsafe/internal/export"
	"github.com/sloppy/homenetsafe/internal/logging"
	"github.com/sloppy/homenetsafe/internal/notify"
	"github.com/sloppy/homenetsafe/internal/registration"
	"github.com/sloppy/homenetsafe/internal/scope"
	"github.com/sloppy/homenetsafe/internal/web"
)

func usage() string {
	return "Usage: homenetsafe <serve|import|mdns-scan|devices|manual|register|unregister|export> [--config file] [--db path]"
}

func main() {
	os.Exit(run(os.Args, os.Stdout, os.Stderr))
}

func run(args []string, out, errOut io.Writer) int {
	if len(args) < 2 {
		fmt.Fprintln(out, usage())
		return 1
	}

	command := strings.ToLower(args[1])
	switch command {
	case "serve":
		return runServe(args[2:], out, errOut)
	case "import":
		return runImport(args[2:], out, errOut)
	case "mdns-scan":
		return runMDNSScan(args[2:], out, errOut)
	case "devices":
		return runDevices(args[2:], out, errOut)
	case "manual":
		return runManual(args[2:], out, errOut)
	case "register":
		return runRegister(args[2:], out, errOut)
	case "unregister":
		return runUnregister(args[2:], out, errOut)
	case "export":
		return runExport(args[2:], out, errOut)
	case "help", "-h", "--help":
		fmt.Fprintln(out, usage())
		return 0
	default:
		fmt.Fprintf(errOut, "unknown command: %s\n", command)
		fmt.Fprintln(out, usage())
		return 1
	}
}

// app holds the wired components shared by every command.
type app struct {
	cfg      *config.Config
	logger   zerolog.Logger
	db       *db.DB
	matcher  *scope.Matcher
	notices  *notify.Channel
	regs     *registration.Store
	service  *dashboard.Service
	mqtt     *notify.MQTTSink
	closeFns []func()
}

type appOptions struct {
	logOutput io.Writer
	withMQTT  bool
	withMDNS  bool
}

// loadConfig pulls --config and --db out of args and returns the merged
// configuration with the remaining arguments.
func loadConfig(args []string) (*config.Config, []string, error) {
	configPath, remaining, err := extractFlag(args, "config", "")
	if err != nil {
		return nil, nil, err
	}
	dbPath, remaining, err := extractFlag(remaining, "db", "")
	if err != nil {
		return nil, nil, err
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}
	if dbPath != "" {
		cfg.Database.Path = dbPath
	}
	return cfg, remaining, nil
}

func openApp(cfg *config.Config, opts appOptions) (*app, error) {
	logCfg := logging.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format, Output: cfg.Logging.Output}
	var logger zerolog.Logger
	if opts.logOutput != nil {
		logger = logging.NewWithWriter(logCfg, opts.logOutput)
	} else {
		logger = logging.New(logCfg)
	}

	database, err := db.Open(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	a := &app{cfg: cfg, logger: logger, db: database}
	a.closeFns = append(a.closeFns, func() { database.Close() })

	includeAll := len(cfg.Discovery.Scope) == 0
	matcher, err := scope.NewMatcher(scope.FromLists(cfg.Discovery.Scope, cfg.Discovery.Exclude), includeAll)
	if err != nil {
		a.close()
		return nil, fmt.Errorf("scope matcher: %w", err)
	}
	a.matcher = matcher

	var channelOpts []notify.Option
	if opts.withMQTT && cfg.MQTT.Enabled {
		sink, err := notify.ConnectMQTT(notify.MQTTConfig{
			Broker:   cfg.MQTT.Broker,
			ClientID: cfg.MQTT.ClientID,
			Topic:    cfg.MQTT.Topic,
			QoS:      byte(cfg.MQTT.QoS),
			Username: cfg.MQTT.Username,
			Password: cfg.MQTT.Password,
		})
		if err != nil {
			logger.Warn().Err(err).Str("broker", cfg.MQTT.Broker).Msg("mqtt unavailable, notices stay local")
		} else {
			a.mqtt = sink
			channelOpts = append(channelOpts, notify.WithSink(sink))
		}
	}
	a.notices = notify.NewChannel(cfg.Notify.DisplayDuration, logging.WithComponent(logger, "notify"), channelOpts...)
	var sink closer
	if a.mqtt != nil {
		sink = a.mqtt
	}
	a.closeFns = append(a.closeFns, noticeShutdown(a.notices, sink))

	a.regs = registration.NewStore(database, logging.WithComponent(logger, "registration"))

	var scanner dashboard.Scanner
	if opts.withMDNS && cfg.Discovery.MDNS.Enabled {
		mdns, err := discovery.NewMDNSScanner(discovery.MDNSConfig{
			Service: cfg.Discovery.MDNS.Service,
			Domain:  cfg.Discovery.MDNS.Domain,
			Timeout: cfg.Discovery.MDNS.Timeout,
		})
		if err != nil {
			logger.Warn().Err(err).Msg("mdns scanner unavailable, scans reuse stored devices")
		} else {
			scanner = &discovery.MDNSJob{Scanner: mdns, DB: database, Matcher: matcher}
		}
	}

	a.service = dashboard.New(dashboard.Deps{
		Source:        discovery.NewStoreSource(database),
		Manual:        database,
		Registrations: a.regs,
		History:       database,
		Notices:       a.notices,
		Scanner:       scanner,
	}, dashboard.Options{
		StaleAfter: cfg.Inventory.StaleAfter,
		Logger:     logging.WithComponent(logger, "dashboard"),
	})
	return a, nil
}

type closer interface {
	Close()
}

// noticeShutdown drains the notice channel before disconnecting its sink so
// in-flight publishes still reach the broker.
func noticeShutdown(channel, sink closer) func() {
	return func() {
		channel.Close()
		if sink != nil {
			sink.Close()
		}
	}
}

func (a *app) close() {
	for i := len(a.closeFns) - 1; i >= 0; i-- {
		a.closeFns[i]()
	}
}

func runServe(args []string, out, errOut io.Writer) int {
	cfg, remaining, err := loadConfig(args)
	if err != nil {
		fmt.Fprintln(errOut, err)
		return 1
	}
	portRaw, remaining, err := extractFlag(remaining, "port", "")
	if err != nil {
		fmt.Fprintln(errOut, err)
		return 1
	}
	if portRaw != "" {
		port, err := strconv.Atoi(portRaw)
		if err != nil || port < 1 || port > 65535 {
			fmt.Fprintf(errOut, "invalid port: %s\n", portRaw)
			return 1
		}
		cfg.Server.Port = port
	}
	if len(remaining) > 0 {
		fmt.Fprintf(errOut, "unexpected arguments: %s\n", strings.Join(remaining, " "))
		return 1
	}

	a, err := openApp(cfg, appOptions{withMQTT: true, withMDNS: true})
	if err != nil {
		fmt.Fprintln(errOut, err)
		return 1
	}
	defer a.close()

	server := web.NewServer(a.service, a.notices, logging.WithComponent(a.logger, "web"))
	httpServer := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- httpServer.ListenAndServe()
	}()
	fmt.Fprintf(out, "listening on http://%s\n", cfg.Server.Addr())
	a.logger.Info().Str("addr", cfg.Server.Addr()).Str("db", cfg.Database.Path).Msg("server started")

	select {
	case err := <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			fmt.Fprintf(errOut, "serve: %v\n", err)
			return 1
		}
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			fmt.Fprintf(errOut, "shutdown: %v\n", err)
			return 1
		}
		a.logger.Info().Msg("server stopped")
	}
	return 0
}

func runImport(args []string, out, errOut io.Writer) int {
	cfg, remaining, err := loadConfig(args)
	if err != nil {
		fmt.Fprintln(errOut, err)
		return 1
	}
	if len(remaining) < 1 {
		fmt.Fprintln(errOut, "import requires an nmap XML file path")
		return 1
	}
	filePath := remaining[0]
	if !filepath.IsAbs(filePath) {
		if abs, err := filepath.Abs(filePath); err == nil {
			filePath = abs
		}
	}

	a, err := openApp(cfg, appOptions{logOutput: errOut})
	if err != nil {
		fmt.Fprintln(errOut, err)
		return 1
	}
	defer a.close()

	stats, err := discovery.ImportXMLFile(a.db, a.matcher, filePath, time.Now().UTC())
	if err != nil {
		fmt.Fprintf(errOut, "import: %v\n", err)
		return 1
	}
	a.logger.Info().Int64("scan_run_id", stats.ID).Int("found", stats.DevicesFound).Msg("nmap import finished")
	fmt.Fprintf(out, "imported %s: %d found (%d new, %d updated), %d marked offline, %d skipped\n",
		filepath.Base(filePath), stats.DevicesFound, stats.New, stats.Updated, stats.MarkedOffline, stats.DevicesSkipped)
	return 0
}

func runMDNSScan(args []string, out, errOut io.Writer) int {
	cfg, remaining, err := loadConfig(args)
	if err != nil {
		fmt.Fprintln(errOut, err)
		return 1
	}
	service, remaining, err := extractFlag(remaining, "service", cfg.Discovery.MDNS.Service)
	if err != nil {
		fmt.Fprintln(errOut, err)
		return 1
	}
	timeoutRaw, remaining, err := extractFlag(remaining, "timeout", cfg.Discovery.MDNS.Timeout.String())
	if err != nil {
		fmt.Fprintln(errOut, err)
		return 1
	}
	timeout, err := time.ParseDuration(timeoutRaw)
	if err != nil || timeout <= 0 {
		fmt.Fprintf(errOut, "invalid timeout: %s\n", timeoutRaw)
		return 1
	}
	if len(remaining) > 0 {
		fmt.Fprintf(errOut, "unexpected arguments: %s\n", strings.Join(remaining, " "))
		return 1
	}

	a, err := openApp(cfg, appOptions{logOutput: errOut})
	if err != nil {
		fmt.Fprintln(errOut, err)
		return 1
	}
	defer a.close()

	scanner, err := discovery.NewMDNSScanner(discovery.MDNSConfig{
		Service: service,
		Domain:  cfg.Discovery.MDNS.Domain,
		Timeout: timeout,
	})
	if err != nil {
		fmt.Fprintf(errOut, "mdns: %v\n", err)
		return 1
	}
	job := &discovery.MDNSJob{Scanner: scanner, DB: a.db, Matcher: a.matcher}
	stats, err := job.Scan(context.Background())
	if err != nil {
		fmt.Fprintf(errOut, "mdns scan: %v\n", err)
		return 1
	}
	fmt.Fprintf(out, "mdns %s: %d found (%d new), %d skipped\n", service, stats.DevicesFound, stats.New, stats.DevicesSkipped)
	return 0
}

func runDevices(args []string, out, errOut io.Writer) int {
	cfg, remaining, err := loadConfig(args)
	if err != nil {
		fmt.Fprintln(errOut, err)
		return 1
	}
	if len(remaining) > 0 {
		fmt.Fprintf(errOut, "unexpected arguments: %s\n", strings.Join(remaining, " "))
		return 1
	}
	a, err := openApp(cfg, appOptions{logOutput: errOut})
	if err != nil {
		fmt.Fprintln(errOut, err)
		return 1
	}
	defer a.close()

	snap := a.service.Refresh(context.Background())
	if err := export.WriteText(snap, out); err != nil {
		fmt.Fprintf(errOut, "devices: %v\n", err)
		return 1
	}
	return 0
}

func runManual(args []string, out, errOut io.Writer) int {
	cfg, remaining, err := loadConfig(args)
	if err != nil {
		fmt.Fprintln(errOut, err)
		return 1
	}
	name, remaining, err := extractFlag(remaining, "name", "")
	if err != nil {
		fmt.Fprintln(errOut, err)
		return 1
	}
	ip, remaining, err := extractFlag(remaining, "ip", "")
	if err != nil {
		fmt.Fprintln(errOut, err)
		return 1
	}
	mac, remaining, err := extractFlag(remaining, "mac", "")
	if err != nil {
		fmt.Fprintln(errOut, err)
		return 1
	}
	if len(remaining) < 1 {
		fmt.Fprintln(errOut, "manual command requires subcommand: list|add --name n --ip a [--mac m]|remove <id>")
		return 1
	}

	a, err := openApp(cfg, appOptions{logOutput: errOut})
	if err != nil {
		fmt.Fprintln(errOut, err)
		return 1
	}
	defer a.close()

	ctx := context.Background()
	switch sub := remaining[0]; sub {
	case "list":
		devices, err := a.service.ManualDevices()
		if err != nil {
			fmt.Fprintf(errOut, "list manual devices: %v\n", err)
			return 1
		}
		for _, m := range devices {
			fmt.Fprintf(out, "%d\t%s\t%s\t%s\n", m.ID, m.Name, m.IPAddress, m.MACAddress)
		}
		return 0
	case "add":
		_, created, err := a.service.AddManual(ctx, dashboard.ManualInput{Name: name, Address: ip, MAC: mac})
		if err != nil {
			fmt.Fprintf(errOut, "add manual device: %v\n", err)
			return 1
		}
		fmt.Fprintf(out, "added manual device %d\t%s\t%s\n", created.ID, created.Name, created.IPAddress)
		return 0
	case "remove":
		if len(remaining) < 2 {
			fmt.Fprintln(errOut, "manual remove requires a device id")
			return 1
		}
		id, err := strconv.ParseInt(remaining[1], 10, 64)
		if err != nil {
			fmt.Fprintf(errOut, "invalid device id: %s\n", remaining[1])
			return 1
		}
		if _, err := a.service.RemoveManual(ctx, id); err != nil {
			fmt.Fprintf(errOut, "remove manual device: %v\n", err)
			return 1
		}
		fmt.Fprintf(out, "removed manual device %d\n", id)
		return 0
	default:
		fmt.Fprintf(errOut, "unknown manual subcommand: %s\n", sub)
		return 1
	}
}

func runRegister(args []string, out, errOut io.Writer) int {
	cfg, remaining, err := loadConfig(args)
	if err != nil {
		fmt.Fprintln(errOut, err)
		return 1
	}
	name, remaining, err := extractFlag(remaining, "name", "")
	if err != nil {
		fmt.Fprintln(errOut, err)
		return 1
	}
	notes, remaining, err := extractFlag(remaining, "notes", "")
	if err != nil {
		fmt.Fprintln(errOut, err)
		return 1
	}
	if len(remaining) != 1 {
		fmt.Fprintln(errOut, "register requires exactly one MAC address")
		return 1
	}

	a, err := openApp(cfg, appOptions{logOutput: errOut})
	if err != nil {
		fmt.Fprintln(errOut, err)
		return 1
	}
	defer a.close()

	snap, err := a.service.Register(context.Background(), remaining[0], name, notes)
	if err != nil {
		fmt.Fprintf(errOut, "register: %v\n", err)
		return 1
	}
	fmt.Fprintf(out, "registered %s (trust: %s)\n", strings.ToLower(strings.TrimSpace(remaining[0])), snap.Trust)
	return 0
}

func runUnregister(args []string, out, errOut io.Writer) int {
	cfg, remaining, err := loadConfig(args)
	if err != nil {
		fmt.Fprintln(errOut, err)
		return 1
	}
	if len(remaining) != 1 {
		fmt.Fprintln(errOut, "unregister requires exactly one MAC address")
		return 1
	}

	a, err := openApp(cfg, appOptions{logOutput: errOut})
	if err != nil {
		fmt.Fprintln(errOut, err)
		return 1
	}
	defer a.close()

	snap, err := a.service.Unregister(context.Background(), remaining[0])
	if err != nil {
		fmt.Fprintf(errOut, "unregister: %v\n", err)
		return 1
	}
	fmt.Fprintf(out, "unregistered %s (trust: %s)\n", strings.ToLower(strings.TrimSpace(remaining[0])), snap.Trust)
	return 0
}

func runExport(args []string, out, errOut io.Writer) int {
	cfg, remaining, err := loadConfig(args)
	if err != nil {
		fmt.Fprintln(errOut, err)
		return 1
	}
	format, remaining, err := extractFlag(remaining, "format", export.FormatCSV)
	if err != nil {
		fmt.Fprintln(errOut, err)
		return 1
	}
	outputPath, remaining, err := extractFlag(remaining, "o", "")
	if err != nil {
		fmt.Fprintln(errOut, err)
		return 1
	}
	if outputPath == "" {
		outputPath, remaining, err = extractFlag(remaining, "output", "")
		if err != nil {
			fmt.Fprintln(errOut, err)
			return 1
		}
	}
	if outputPath == "" {
		fmt.Fprintln(errOut, "export requires --output or -o")
		return 1
	}
	if len(remaining) > 0 {
		fmt.Fprintf(errOut, "unexpected arguments: %s\n", strings.Join(remaining, " "))
		return 1
	}
	format = strings.ToLower(format)
	switch format {
	case export.FormatCSV, export.FormatJSON, export.FormatText:
	default:
		fmt.Fprintf(errOut, "unknown export format: %s\n", format)
		return 1
	}

	a, err := openApp(cfg, appOptions{logOutput: errOut})
	if err != nil {
		fmt.Fprintln(errOut, err)
		return 1
	}
	defer a.close()

	file, err := os.Create(outputPath)
	if err != nil {
		fmt.Fprintf(errOut, "create output: %v\n", err)
		return 1
	}
	defer file.Close()

	snap := a.service.Refresh(context.Background())
	if err := export.Write(snap, format, file); err != nil {
		fmt.Fprintf(errOut, "export %s: %v\n", format, err)
		return 1
	}
	fmt.Fprintf(out, "exported %s (%s)\n", outputPath, format)
	return 0
}

// extractFlag finds a string flag (e.g., --db value) anywhere in args and returns its value and remaining args.
func extractFlag(args []string, name string, defaultVal string) (string, []string, error) {
	val := defaultVal
	var remaining []string
	for i := 0; i < len(args); i++ {
		arg := args[i]
		if arg == "--"+name || arg == "-"+name {
			if i+1 >= len(args) {
				return "", nil, fmt.Errorf("%s flag requires a value", arg)
			}
			val = args[i+1]
			i++
			continue
		}
		remaining = append(remaining, arg)
	}
	return val, remaining, nil
}
