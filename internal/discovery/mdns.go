package discovery

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/grandcat/zeroconf"

	"github.com/sloppy/homenetsafe/internal/db"
	"github.com/sloppy/homenetsafe/internal/scope"
)

const (
	// DefaultMDNSService is the service type browsed when none is configured.
	DefaultMDNSService = "_http._tcp"
	// DefaultMDNSDomain is the mDNS domain.
	DefaultMDNSDomain = "local."
	// DefaultMDNSTimeout bounds one browse window.
	DefaultMDNSTimeout = 3 * time.Second
)

type browseFunc func(ctx context.Context, service, domain string, entries chan<- *zeroconf.ServiceEntry) error

// MDNSConfig controls the mDNS browse window.
type MDNSConfig struct {
	Service string
	Domain  string
	Timeout time.Duration

	browseFn browseFunc
}

func (c MDNSConfig) withDefaults() MDNSConfig {
	out := c
	if out.Service == "" {
		out.Service = DefaultMDNSService
	}
	if out.Domain == "" {
		out.Domain = DefaultMDNSDomain
	}
	if out.Timeout <= 0 {
		out.Timeout = DefaultMDNSTimeout
	}
	return out
}

// MDNSScanner collects service announcements during a bounded window.
type MDNSScanner struct {
	cfg    MDNSConfig
	browse browseFunc
}

// NewMDNSScanner creates a scanner with config defaults applied.
func NewMDNSScanner(config MDNSConfig) (*MDNSScanner, error) {
	cfg := config.withDefaults()

	browse := cfg.browseFn
	if browse == nil {
		resolver, err := zeroconf.NewResolver(nil)
		if err != nil {
			return nil, err
		}
		browse = resolver.Browse
	}
	return &MDNSScanner{cfg: cfg, browse: browse}, nil
}

// Scan browses for one window and returns every host that answered. Entries
// without an IPv4 address are dropped; repeated addresses keep the first entry.
func (s *MDNSScanner) Scan(ctx context.Context) (Observations, error) {
	scanCtx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	entries := make(chan *zeroconf.ServiceEntry, 32)
	var (
		mu    sync.Mutex
		order []string
		hosts = make(map[string]Observation)
	)
	collectorDone := make(chan struct{})

	go func() {
		defer close(collectorDone)
		for {
			select {
			case <-scanCtx.Done():
				return
			case entry, ok := <-entries:
				if !ok {
					return
				}
				if entry == nil {
					continue
				}
				obs, ok := observationFromEntry(entry)
				if !ok {
					continue
				}
				mu.Lock()
				if _, dup := hosts[obs.IPAddress]; !dup {
					hosts[obs.IPAddress] = obs
					order = append(order, obs.IPAddress)
				}
				mu.Unlock()
			}
		}
	}()

	if err := s.browse(scanCtx, s.cfg.Service, s.cfg.Domain, entries); err != nil {
		cancel()
		<-collectorDone
		return Observations{}, err
	}

	<-scanCtx.Done()
	<-collectorDone

	// A timeout just means the browse window ended naturally.
	if err := ctx.Err(); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		return Observations{}, err
	}

	mu.Lock()
	defer mu.Unlock()
	var out Observations
	for _, ip := range order {
		out.Hosts = append(out.Hosts, hosts[ip])
	}
	return out, nil
}

func observationFromEntry(entry *zeroconf.ServiceEntry) (Observation, bool) {
	var ip string
	for _, addr := range entry.AddrIPv4 {
		if addr != nil && addr.To4() != nil {
			ip = addr.String()
			break
		}
	}
	if ip == "" {
		return Observation{}, false
	}

	txt := txtToMap(entry.Text)
	name := strings.TrimSpace(entry.Instance)
	if name == "" {
		name = strings.TrimSuffix(strings.TrimSpace(entry.HostName), ".")
	}
	return Observation{
		IPAddress:  ip,
		MACAddress: normalizeMAC(txt["mac"]),
		Vendor:     strings.TrimSpace(txt["manufacturer"]),
		Hostname:   name,
		HostState:  "up",
	}, true
}

func txtToMap(records []string) map[string]string {
	out := make(map[string]string, len(records))
	for _, record := range records {
		key, value, ok := strings.Cut(record, "=")
		if !ok {
			continue
		}
		out[strings.ToLower(strings.TrimSpace(key))] = strings.TrimSpace(value)
	}
	return out
}

// MDNSJob runs an mDNS browse and imports the result. mDNS only sees hosts
// that advertise a service, so absent devices are left untouched.
type MDNSJob struct {
	Scanner *MDNSScanner
	DB      *db.DB
	Matcher *scope.Matcher
	Now     func() time.Time
}

// Scan browses and imports one window.
func (j *MDNSJob) Scan(ctx context.Context) (ImportStats, error) {
	obs, err := j.Scanner.Scan(ctx)
	if err != nil {
		return ImportStats{}, err
	}
	now := time.Now
	if j.Now != nil {
		now = j.Now
	}
	return ImportObservations(j.DB, j.Matcher, obs, ImportOptions{
		Source:   db.SourceMDNS,
		Filename: j.Scanner.cfg.Service,
	}, now())
}
