package discovery

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/grandcat/zeroconf"

	"github.com/sloppy/homenetsafe/internal/db"
)

func TestMDNSScannerCollectsEntries(t *testing.T) {
	cfg := MDNSConfig{
		Timeout: 40 * time.Millisecond,
		browseFn: func(ctx context.Context, service, domain string, entries chan<- *zeroconf.ServiceEntry) error {
			if service != DefaultMDNSService || domain != DefaultMDNSDomain {
				t.Errorf("unexpected browse target %s %s", service, domain)
			}
			entries <- testServiceEntry("Living Room TV", "tv.local.", "192.168.1.30", "mac=F0:18:98:AA:BB:CC")
			entries <- testServiceEntry("", "printer.local.", "192.168.1.31")
			entries <- testServiceEntry("Living Room TV again", "tv.local.", "192.168.1.30")
			entries <- testServiceEntry("v6 only", "v6.local.", "")
			<-ctx.Done()
			return nil
		},
	}

	scanner, err := NewMDNSScanner(cfg)
	if err != nil {
		t.Fatalf("NewMDNSScanner failed: %v", err)
	}
	obs, err := scanner.Scan(context.Background())
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(obs.Hosts) != 2 {
		t.Fatalf("expected 2 hosts, got %+v", obs.Hosts)
	}
	if obs.Hosts[0].Hostname != "Living Room TV" || obs.Hosts[0].MACAddress != "f0:18:98:aa:bb:cc" {
		t.Fatalf("unexpected first host %+v", obs.Hosts[0])
	}
	if obs.Hosts[1].Hostname != "printer.local" || obs.Hosts[1].MACAddress != "" {
		t.Fatalf("unexpected second host %+v", obs.Hosts[1])
	}
	if !obs.Hosts[1].Up() {
		t.Fatalf("expected mDNS hosts to be up")
	}
}

func TestMDNSScannerBrowseError(t *testing.T) {
	scanner, err := NewMDNSScanner(MDNSConfig{
		Timeout: time.Second,
		browseFn: func(ctx context.Context, service, domain string, entries chan<- *zeroconf.ServiceEntry) error {
			return errors.New("no multicast interface")
		},
	})
	if err != nil {
		t.Fatalf("NewMDNSScanner failed: %v", err)
	}
	if _, err := scanner.Scan(context.Background()); err == nil {
		t.Fatalf("expected browse error")
	}
}

func TestMDNSScannerCallerCancel(t *testing.T) {
	scanner, err := NewMDNSScanner(MDNSConfig{
		Timeout: time.Minute,
		browseFn: func(ctx context.Context, service, domain string, entries chan<- *zeroconf.ServiceEntry) error {
			<-ctx.Done()
			return nil
		},
	})
	if err != nil {
		t.Fatalf("NewMDNSScanner failed: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	go func() {
		time.Sleep(5 * time.Millisecond)
		cancel()
	}()
	if _, err := scanner.Scan(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestMDNSJobImportsWithoutOfflineMarking(t *testing.T) {
	database := newTestDB(t)
	defer database.Close()

	now := time.Date(2025, 10, 1, 12, 0, 0, 0, time.UTC)
	if _, err := ImportObservations(database, nil, Observations{Hosts: []Observation{
		{IPAddress: "192.168.1.2", HostState: "up"},
	}}, ImportOptions{}, now); err != nil {
		t.Fatalf("seed: %v", err)
	}

	scanner, err := NewMDNSScanner(MDNSConfig{
		Timeout: 30 * time.Millisecond,
		browseFn: func(ctx context.Context, service, domain string, entries chan<- *zeroconf.ServiceEntry) error {
			entries <- testServiceEntry("Speaker", "speaker.local.", "192.168.1.40", "manufacturer=Sonos")
			<-ctx.Done()
			return nil
		},
	})
	if err != nil {
		t.Fatalf("NewMDNSScanner failed: %v", err)
	}

	job := &MDNSJob{Scanner: scanner, DB: database, Now: func() time.Time { return now }}
	stats, err := job.Scan(context.Background())
	if err != nil {
		t.Fatalf("job scan: %v", err)
	}
	if stats.Source != db.SourceMDNS || stats.New != 1 || stats.MarkedOffline != 0 {
		t.Fatalf("unexpected stats %+v", stats)
	}
	d, ok, err := database.GetDiscoveredDeviceByIP("192.168.1.40")
	if err != nil || !ok {
		t.Fatalf("get: ok=%v err=%v", ok, err)
	}
	if d.Vendor != "Sonos" || d.Hostname != "Speaker" {
		t.Fatalf("unexpected device %+v", d)
	}
	seeded, _, err := database.GetDiscoveredDeviceByIP("192.168.1.2")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if seeded.Status != db.StatusOnline {
		t.Fatalf("expected seeded device untouched, got %q", seeded.Status)
	}
}

func testServiceEntry(instance, host, ip string, txt ...string) *zeroconf.ServiceEntry {
	entry := zeroconf.NewServiceEntry(instance, DefaultMDNSService, DefaultMDNSDomain)
	entry.HostName = host
	entry.Text = txt
	if ip != "" {
		entry.AddrIPv4 = []net.IP{net.ParseIP(ip)}
	}
	return entry
}
