package db

import (
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/sloppy/homenetsafe/internal/testutil"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	dir := testutil.TempDir(t)
	db, err := Open(filepath.Join(dir, "test.db"))
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	return db
}

func TestManualDeviceCRUD(t *testing.T) {
	db := newTestDB(t)
	defer db.Close()

	now := time.Date(2025, 10, 1, 9, 0, 0, 0, time.UTC)
	first, err := db.CreateManualDevice(ManualDevice{Name: "NAS", IPAddress: "192.168.1.50", MACAddress: "aa:bb:cc:00:00:01"}, now)
	if err != nil {
		t.Fatalf("create manual device: %v", err)
	}
	if first.Vendor != DefaultManualVendor {
		t.Fatalf("expected default vendor %q, got %q", DefaultManualVendor, first.Vendor)
	}
	if !first.FirstSeen.Equal(now) || !first.LastSeen.Equal(now) {
		t.Fatalf("expected timestamps to default to now, got %v/%v", first.FirstSeen, first.LastSeen)
	}
	second, err := db.CreateManualDevice(ManualDevice{Name: "Printer", IPAddress: "192.168.1.20", Vendor: "Canon"}, now)
	if err != nil {
		t.Fatalf("create manual device: %v", err)
	}

	devices, err := db.ListManualDevices()
	if err != nil {
		t.Fatalf("list manual devices: %v", err)
	}
	if len(devices) != 2 || devices[0].ID != first.ID || devices[1].ID != second.ID {
		t.Fatalf("expected insertion order, got %+v", devices)
	}

	if devices[1].Vendor != "Canon" {
		t.Fatalf("expected vendor Canon, got %q", devices[1].Vendor)
	}

	if err := db.DeleteManualDevice(first.ID, now); err != nil {
		t.Fatalf("delete manual device: %v", err)
	}
	devices, err = db.ListManualDevices()
	if err != nil {
		t.Fatalf("list manual devices: %v", err)
	}
	if len(devices) != 1 || devices[0].ID != second.ID {
		t.Fatalf("expected only the printer to remain, got %+v", devices)
	}
	if err := db.DeleteManualDevice(first.ID, now); !errors.Is(err, sql.ErrNoRows) {
		t.Fatalf("expected sql.ErrNoRows on second delete, got %v", err)
	}

	events, err := db.ListDeviceEvents("aa:bb:cc:00:00:01", 0)
	if err != nil {
		t.Fatalf("list events: %v", err)
	}
	if len(events) != 2 || events[0].Event != EventManualRemoved || events[1].Event != EventManualAdded {
		t.Fatalf("expected removed then added events, got %+v", events)
	}
}

func TestManualDeviceDuplicateAddress(t *testing.T) {
	db := newTestDB(t)
	defer db.Close()

	now := time.Now()
	if _, err := db.CreateManualDevice(ManualDevice{Name: "TV", IPAddress: "10.0.0.5"}, now); err != nil {
		t.Fatalf("create manual device: %v", err)
	}
	_, err := db.CreateManualDevice(ManualDevice{Name: "Other", IPAddress: "10.0.0.5"}, now)
	if !errors.Is(err, ErrDuplicateAddress) {
		t.Fatalf("expected ErrDuplicateAddress, got %v", err)
	}

	devices, err := db.ListManualDevices()
	if err != nil {
		t.Fatalf("list manual devices: %v", err)
	}
	if len(devices) != 1 {
		t.Fatalf("expected the failed insert to leave one device, got %d", len(devices))
	}
	events, err := db.ListDeviceEvents("10.0.0.5", 0)
	if err != nil {
		t.Fatalf("list events: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("expected rollback of the duplicate's event, got %d events", len(events))
	}
}

func TestDiscoveredDeviceUpsertKeepsFirstSeen(t *testing.T) {
	db := newTestDB(t)
	defer db.Close()

	t1 := time.Date(2025, 10, 1, 8, 0, 0, 0, time.UTC)
	t2 := t1.Add(2 * time.Hour)

	tx, err := db.Begin()
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	if _, err := tx.UpsertDiscoveredDevice(DiscoveredDevice{
		IPAddress: "192.168.1.10", MACAddress: "aa:bb:cc:dd:ee:01", Vendor: "Apple", Hostname: "phone",
		Status: StatusOnline, LastSeen: t1,
	}); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	updated, err := tx.UpsertDiscoveredDevice(DiscoveredDevice{
		IPAddress: "192.168.1.10", Status: StatusOffline, FirstSeen: t2, LastSeen: t2,
	})
	if err != nil {
		t.Fatalf("upsert again: %v", err)
	}
	if err := tx.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}

	if !updated.FirstSeen.Equal(t1) {
		t.Fatalf("expected first_seen %v kept, got %v", t1, updated.FirstSeen)
	}
	if !updated.LastSeen.Equal(t2) {
		t.Fatalf("expected last_seen %v, got %v", t2, updated.LastSeen)
	}
	if updated.MACAddress != "aa:bb:cc:dd:ee:01" || updated.Vendor != "Apple" || updated.Hostname != "phone" {
		t.Fatalf("expected empty values not to overwrite, got %+v", updated)
	}
	if updated.Status != StatusOffline {
		t.Fatalf("expected status offline, got %q", updated.Status)
	}

	devices, err := db.ListDiscoveredDevices()
	if err != nil {
		t.Fatalf("list discovered: %v", err)
	}
	if len(devices) != 1 {
		t.Fatalf("expected 1 device, got %d", len(devices))
	}
}

func TestDocumentRoundTrip(t *testing.T) {
	db := newTestDB(t)
	defer db.Close()

	if _, ok, err := db.LoadDocument("missing"); err != nil || ok {
		t.Fatalf("expected missing document: ok=%v err=%v", ok, err)
	}
	if err := db.SaveDocument("k", []byte(`{"a":1}`)); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := db.SaveDocument("k", []byte(`{"b":2}`)); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	body, ok, err := db.LoadDocument("k")
	if err != nil || !ok {
		t.Fatalf("load: ok=%v err=%v", ok, err)
	}
	if string(body) != `{"b":2}` {
		t.Fatalf("expected overwritten body, got %s", body)
	}
}

func TestDeviceStats(t *testing.T) {
	db := newTestDB(t)
	defer db.Close()

	now := time.Now()
	tx, err := db.Begin()
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	for ip, status := range map[string]string{
		"10.0.0.1": StatusOnline,
		"10.0.0.2": StatusOnline,
		"10.0.0.3": StatusOffline,
		"10.0.0.4": StatusUnknown,
	} {
		if _, err := tx.UpsertDiscoveredDevice(DiscoveredDevice{IPAddress: ip, Status: status, LastSeen: now}); err != nil {
			t.Fatalf("upsert %s: %v", ip, err)
		}
	}
	if err := tx.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}
	if _, err := db.CreateManualDevice(ManualDevice{Name: "NAS", IPAddress: "10.0.0.50"}, now); err != nil {
		t.Fatalf("create manual: %v", err)
	}

	stats, err := db.GetDeviceStats()
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	want := DeviceStats{Total: 5, Online: 2, Offline: 1, Unknown: 2}
	if stats != want {
		t.Fatalf("expected %+v, got %+v", want, stats)
	}
}

func TestScanRunsAndEvents(t *testing.T) {
	db := newTestDB(t)
	defer db.Close()

	base := time.Date(2025, 10, 1, 8, 0, 0, 0, time.UTC)
	tx, err := db.Begin()
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	run, err := tx.InsertScanRun(ScanRun{Source: SourceNmap, Filename: "scan.xml", RunTime: base})
	if err != nil {
		t.Fatalf("insert scan run: %v", err)
	}
	if err := tx.UpdateScanRunCounts(run.ID, 3, 1); err != nil {
		t.Fatalf("update counts: %v", err)
	}
	for i, name := range []string{EventDiscovered, EventOffline, EventOnline} {
		if _, err := tx.InsertDeviceEvent(DeviceEvent{
			Identity:  "aa:bb",
			IPAddress: "10.0.0.1",
			Event:     name,
			ScanRunID: sql.NullInt64{Int64: run.ID, Valid: true},
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}); err != nil {
			t.Fatalf("insert event: %v", err)
		}
	}
	if err := tx.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}

	latest, ok, err := db.LatestScanRun()
	if err != nil || !ok {
		t.Fatalf("latest scan run: ok=%v err=%v", ok, err)
	}
	if latest.DevicesFound != 3 || latest.DevicesSkipped != 1 {
		t.Fatalf("expected counts 3/1, got %d/%d", latest.DevicesFound, latest.DevicesSkipped)
	}
	runs, err := db.ListScanRuns(5)
	if err != nil || len(runs) != 1 {
		t.Fatalf("list scan runs: %d err=%v", len(runs), err)
	}

	events, err := db.ListDeviceEvents("aa:bb", 2)
	if err != nil {
		t.Fatalf("list events: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("expected limit 2, got %d", len(events))
	}
	if events[0].Event != EventOnline || events[1].Event != EventOffline {
		t.Fatalf("expected newest first, got %s, %s", events[0].Event, events[1].Event)
	}
	if !events[0].ScanRunID.Valid || events[0].ScanRunID.Int64 != run.ID {
		t.Fatalf("expected scan run id %d, got %+v", run.ID, events[0].ScanRunID)
	}

	all, err := db.ListDeviceEvents("", 0)
	if err != nil {
		t.Fatalf("list all events: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 events, got %d", len(all))
	}
}
