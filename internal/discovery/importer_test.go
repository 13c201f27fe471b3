package discovery

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sloppy/homenetsafe/internal/db"
	"github.com/sloppy/homenetsafe/internal/inventory"
	"github.com/sloppy/homenetsafe/internal/scope"
	"github.com/sloppy/homenetsafe/internal/testutil"
)

func newTestDB(t *testing.T) *db.DB {
	t.Helper()
	dir := testutil.TempDir(t)
	database, err := db.Open(filepath.Join(dir, "test.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	return database
}

func mustMatcher(t *testing.T, includes ...string) *scope.Matcher {
	t.Helper()
	m, err := scope.NewMatcher(scope.FromLists(includes, nil), true)
	if err != nil {
		t.Fatalf("new matcher: %v", err)
	}
	return m
}

func TestImportXMLFile(t *testing.T) {
	database := newTestDB(t)
	defer database.Close()

	now := time.Date(2025, 10, 1, 12, 0, 0, 0, time.UTC)
	stats, err := ImportXMLFile(database, mustMatcher(t, "192.168.1.0/24"), filepath.Join("testdata", "home.xml"), now)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if stats.DevicesFound != 3 || stats.New != 3 {
		t.Fatalf("expected 3 new devices, got %+v", stats)
	}
	if stats.OutOfScope != 1 || stats.Invalid != 1 || stats.DevicesSkipped != 2 {
		t.Fatalf("expected one out-of-scope and one invalid host, got %+v", stats)
	}
	if stats.Filename != "home.xml" || stats.Source != db.SourceNmap {
		t.Fatalf("unexpected scan run %+v", stats.ScanRun)
	}

	devices, err := database.ListDiscoveredDevices()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(devices) != 3 {
		t.Fatalf("expected 3 devices, got %d", len(devices))
	}
	if devices[0].MACAddress != "a0:40:a0:11:22:33" {
		t.Fatalf("expected normalized mac, got %q", devices[0].MACAddress)
	}
	if devices[2].Status != db.StatusOffline {
		t.Fatalf("expected down host stored offline, got %q", devices[2].Status)
	}

	run, ok, err := database.LatestScanRun()
	if err != nil || !ok {
		t.Fatalf("latest run: ok=%v err=%v", ok, err)
	}
	if run.DevicesFound != 3 || run.DevicesSkipped != 2 {
		t.Fatalf("expected stored counts 3/2, got %d/%d", run.DevicesFound, run.DevicesSkipped)
	}

	events, err := database.ListDeviceEvents("a0:40:a0:11:22:33", 0)
	if err != nil {
		t.Fatalf("events: %v", err)
	}
	if len(events) != 1 || events[0].Event != db.EventDiscovered || events[0].Detail != "Netgear" {
		t.Fatalf("expected one discovered event, got %+v", events)
	}
}

func TestImportMarksMissingDevicesOffline(t *testing.T) {
	database := newTestDB(t)
	defer database.Close()

	matcher := mustMatcher(t)
	now1 := time.Date(2025, 10, 1, 12, 0, 0, 0, time.UTC)
	first := Observations{Hosts: []Observation{
		{IPAddress: "10.0.0.1", MACAddress: "AA:BB:CC:00:00:01", HostState: "up"},
		{IPAddress: "10.0.0.2", MACAddress: "AA:BB:CC:00:00:02", HostState: "up"},
	}}
	if _, err := ImportObservations(database, matcher, first, ImportOptions{MarkMissingOffline: true}, now1); err != nil {
		t.Fatalf("import1: %v", err)
	}

	now2 := now1.Add(time.Hour)
	second := Observations{Hosts: []Observation{
		{IPAddress: "10.0.0.1", HostState: "up", Hostname: "laptop"},
	}}
	stats, err := ImportObservations(database, matcher, second, ImportOptions{MarkMissingOffline: true}, now2)
	if err != nil {
		t.Fatalf("import2: %v", err)
	}
	if stats.Updated != 1 || stats.MarkedOffline != 1 {
		t.Fatalf("expected 1 updated and 1 marked offline, got %+v", stats)
	}

	gone, ok, err := database.GetDiscoveredDeviceByIP("10.0.0.2")
	if err != nil || !ok {
		t.Fatalf("get device: ok=%v err=%v", ok, err)
	}
	if gone.Status != db.StatusOffline {
		t.Fatalf("expected offline, got %q", gone.Status)
	}
	if !gone.LastSeen.Equal(now1) {
		t.Fatalf("expected last_seen untouched at %v, got %v", now1, gone.LastSeen)
	}

	kept, _, err := database.GetDiscoveredDeviceByIP("10.0.0.1")
	if err != nil {
		t.Fatalf("get device: %v", err)
	}
	if kept.MACAddress != "aa:bb:cc:00:00:01" || kept.Hostname != "laptop" {
		t.Fatalf("expected merge of new hostname with stored mac, got %+v", kept)
	}
	if !kept.FirstSeen.Equal(now1) || !kept.LastSeen.Equal(now2) {
		t.Fatalf("expected first_seen %v and last_seen %v, got %v/%v", now1, now2, kept.FirstSeen, kept.LastSeen)
	}

	events, err := database.ListDeviceEvents("10.0.0.2", 0)
	if err != nil {
		t.Fatalf("events: %v", err)
	}
	if len(events) != 2 || events[0].Event != db.EventOffline {
		t.Fatalf("expected offline then discovered events, got %+v", events)
	}

	// A third run that sees the device again records it coming back.
	if _, err := ImportObservations(database, matcher, first, ImportOptions{MarkMissingOffline: true}, now2.Add(time.Hour)); err != nil {
		t.Fatalf("import3: %v", err)
	}
	events, err = database.ListDeviceEvents("10.0.0.2", 1)
	if err != nil {
		t.Fatalf("events: %v", err)
	}
	if len(events) != 1 || events[0].Event != db.EventOnline {
		t.Fatalf("expected online event, got %+v", events)
	}
}

func TestPartialImportLeavesAbsentDevices(t *testing.T) {
	database := newTestDB(t)
	defer database.Close()

	matcher := mustMatcher(t)
	now := time.Now().UTC()
	if _, err := ImportObservations(database, matcher, Observations{Hosts: []Observation{
		{IPAddress: "10.0.0.1", HostState: "up"},
	}}, ImportOptions{MarkMissingOffline: true}, now); err != nil {
		t.Fatalf("import1: %v", err)
	}
	stats, err := ImportObservations(database, matcher, Observations{Hosts: []Observation{
		{IPAddress: "10.0.0.9", HostState: "up"},
	}}, ImportOptions{Source: db.SourceMDNS}, now)
	if err != nil {
		t.Fatalf("import2: %v", err)
	}
	if stats.MarkedOffline != 0 {
		t.Fatalf("expected partial import not to mark devices offline, got %+v", stats)
	}
	d, _, err := database.GetDiscoveredDeviceByIP("10.0.0.1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if d.Status != db.StatusOnline {
		t.Fatalf("expected status online, got %q", d.Status)
	}
}

func TestImportXMLRollsBackOnDecodeError(t *testing.T) {
	database := newTestDB(t)
	defer database.Close()

	path := filepath.Join(testutil.TempDir(t), "broken.xml")
	body := `<nmaprun><host><status state="up"/><address addr="10.0.0.1" addrtype="ipv4"/></host><host><status`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := ImportXMLFile(database, mustMatcher(t), path, time.Now()); err == nil {
		t.Fatalf("expected decode error")
	}
	devices, err := database.ListDiscoveredDevices()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(devices) != 0 {
		t.Fatalf("expected rollback, got %d devices", len(devices))
	}
	if _, ok, _ := database.LatestScanRun(); ok {
		t.Fatalf("expected scan run to roll back")
	}
}

func TestStoreSource(t *testing.T) {
	database := newTestDB(t)
	defer database.Close()

	now := time.Date(2025, 10, 1, 12, 0, 0, 0, time.UTC)
	if _, err := ImportXMLFile(database, nil, filepath.Join("testdata", "home.xml"), now); err != nil {
		t.Fatalf("import: %v", err)
	}

	source := NewStoreSource(database)
	devices, err := source.Devices(context.Background())
	if err != nil {
		t.Fatalf("devices: %v", err)
	}
	if len(devices) != 4 {
		t.Fatalf("expected 4 devices without scope filtering, got %d", len(devices))
	}
	if devices[0].Identity != inventory.Identity("a0:40:a0:11:22:33") || devices[0].Name != "router.lan" {
		t.Fatalf("unexpected first device %+v", devices[0])
	}
	if devices[0].Status != inventory.StatusOnline || devices[2].Status != inventory.StatusOffline {
		t.Fatalf("unexpected statuses %q/%q", devices[0].Status, devices[2].Status)
	}
	if devices[3].Identity.Matchable() {
		t.Fatalf("expected device without MAC to be non-matchable")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := source.Devices(ctx); err == nil {
		t.Fatalf("expected cancelled context error")
	}
}
