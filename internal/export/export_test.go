package export

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sloppy/homenetsafe/internal/dashboard"
	"github.com/sloppy/homenetsafe/internal/inventory"
	"github.com/sloppy/homenetsafe/internal/testutil"
)

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteJSON(fixtureSnapshot(), &buf); err != nil {
		t.Fatalf("export json: %v", err)
	}

	expected := readFixture(t, "snapshot.json")
	if strings.TrimSpace(buf.String()) != strings.TrimSpace(expected) {
		t.Fatalf("json export mismatch\nexpected:\n%s\n\ngot:\n%s", expected, buf.String())
	}
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteCSV(fixtureSnapshot(), &buf); err != nil {
		t.Fatalf("export csv: %v", err)
	}

	expected := readFixture(t, "snapshot.csv")
	if strings.TrimSpace(buf.String()) != strings.TrimSpace(expected) {
		t.Fatalf("csv export mismatch\nexpected:\n%s\n\ngot:\n%s", expected, buf.String())
	}
}

func TestWriteCSVHeaderOnlyForEmptySnapshot(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteCSV(dashboard.Snapshot{}, &buf); err != nil {
		t.Fatalf("export csv: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected header only, got %d lines", len(lines))
	}
	if lines[0] != "name,ip,mac,vendor,type,status,first_seen,last_seen,registered,notes" {
		t.Fatalf("unexpected csv header: %s", lines[0])
	}
}

func TestWriteJSONUnknownRatioIsNull(t *testing.T) {
	snap := dashboard.Snapshot{
		ID:      "pass-2",
		TakenAt: time.Date(2024, 1, 5, 12, 0, 0, 0, time.UTC),
		Trust:   inventory.TrustCaution,
		Result:  inventory.Result{Empty: inventory.ReasonNoData},
	}
	var buf bytes.Buffer
	if err := WriteJSON(snap, &buf); err != nil {
		t.Fatalf("export json: %v", err)
	}

	var decoded map[string]any
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if ratio, ok := decoded["unregistered_ratio"]; !ok || ratio != nil {
		t.Fatalf("expected null ratio, got %v", ratio)
	}
	if decoded["empty"] != "no-data" {
		t.Fatalf("expected empty reason, got %v", decoded["empty"])
	}
	if devices, ok := decoded["unregistered"].([]any); !ok || len(devices) != 0 {
		t.Fatalf("expected empty unregistered list, got %v", decoded["unregistered"])
	}
}

func TestWriteText(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteText(fixtureSnapshot(), &buf); err != nil {
		t.Fatalf("export text: %v", err)
	}
	out := buf.String()
	for _, want := range []string{
		"Trust: at_risk",
		"Unregistered (1)",
		"Registered (2)",
		"NAS",
		"1 hour ago",
		"2 days ago (stale)",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("text export missing %q:\n%s", want, out)
		}
	}
}

func TestWriteUnknownFormat(t *testing.T) {
	if err := Write(fixtureSnapshot(), "xml", &bytes.Buffer{}); err == nil {
		t.Fatalf("expected error for unknown format")
	}
}

func TestWriteToFile(t *testing.T) {
	dir := testutil.TempDir(t)
	path := filepath.Join(dir, Filename(FormatCSV, time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC)))
	if filepath.Base(path) != "homenetsafe-devices-2024-01-05.csv" {
		t.Fatalf("unexpected filename: %s", filepath.Base(path))
	}

	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := Write(fixtureSnapshot(), FormatCSV, f); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if strings.TrimSpace(string(content)) != strings.TrimSpace(readFixture(t, "snapshot.csv")) {
		t.Fatalf("file content mismatch:\n%s", content)
	}
}

func fixtureSnapshot() dashboard.Snapshot {
	day := func(d, h int) time.Time { return time.Date(2024, 1, d, h, 0, 0, 0, time.UTC) }
	return dashboard.Snapshot{
		ID:                "pass-1",
		TakenAt:           day(5, 12),
		Trust:             inventory.TrustAtRisk,
		UnregisteredRatio: 0.5,
		RatioKnown:        true,
		Result: inventory.Result{Inventory: inventory.Inventory{
			UnregisteredDiscovered: []inventory.ReconciledDevice{{
				Identity:  "aa:bb:cc:00:00:02",
				Name:      "phone",
				Address:   "192.168.1.23",
				Vendor:    "Apple",
				FirstSeen: day(1, 8),
				LastSeen:  day(5, 11),
				Status:    inventory.StatusOnline,
				Source:    inventory.SourceDiscovered,
				Kind:      inventory.KindPhone,
			}},
			Registered: []inventory.ReconciledDevice{
				{
					Name:       "NAS",
					Address:    "192.168.1.50",
					Vendor:     "Manual",
					FirstSeen:  day(2, 0),
					Status:     inventory.StatusUnknown,
					Registered: true,
					Source:     inventory.SourceManual,
					ManualID:   3,
					Kind:       inventory.KindServer,
				},
				{
					Identity:   "aa:bb:cc:00:00:01",
					Name:       "Router",
					Address:    "192.168.1.1",
					Vendor:     "Netgear",
					FirstSeen:  day(1, 0),
					LastSeen:   day(3, 0),
					Status:     inventory.StatusOffline,
					Registered: true,
					Notes:      "hall, upstairs",
					Source:     inventory.SourceDiscovered,
					Kind:       inventory.KindNetwork,
					Stale:      true,
				},
			},
		}},
	}
}

func readFixture(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join("testdata", name)
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read fixture: %v", err)
	}
	return string(content)
}
