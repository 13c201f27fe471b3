package discovery

import (
	"database/sql"
	"encoding/xml"
	"fmt"
	"io"
	"net"
	"net/netip"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sloppy/homenetsafe/internal/db"
	"github.com/sloppy/homenetsafe/internal/scope"
)

// ImportOptions controls how a run is recorded.
type ImportOptions struct {
	Source   string
	Filename string
	// MarkMissingOffline flips stored devices absent from the run to offline.
	// Only complete sweeps should set it.
	MarkMissingOffline bool
}

// ImportStats holds results of an import operation.
type ImportStats struct {
	db.ScanRun
	New           int
	Updated       int
	MarkedOffline int
	OutOfScope    int
	Invalid       int
}

type importRun struct {
	tx      *db.Tx
	matcher *scope.Matcher
	now     time.Time
	stats   ImportStats
	seen    map[string]struct{}
}

// ImportXMLFile opens an nmap XML file and imports it as a full sweep.
func ImportXMLFile(database *db.DB, matcher *scope.Matcher, path string, now time.Time) (ImportStats, error) {
	f, err := os.Open(path)
	if err != nil {
		return ImportStats{}, fmt.Errorf("open xml: %w", err)
	}
	defer f.Close()

	return ImportXML(database, matcher, filepath.Base(path), f, now)
}

// ImportXML streams an nmap XML document within a single transaction.
func ImportXML(database *db.DB, matcher *scope.Matcher, filename string, r io.Reader, now time.Time) (ImportStats, error) {
	run, err := beginImport(database, matcher, ImportOptions{Source: db.SourceNmap, Filename: filename}, now)
	if err != nil {
		return ImportStats{}, err
	}
	defer run.tx.Rollback()

	dec := xml.NewDecoder(r)
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return ImportStats{}, fmt.Errorf("decode xml: %w", err)
		}

		start, ok := tok.(xml.StartElement)
		if !ok || start.Name.Local != "host" {
			continue
		}

		var host nmapHost
		if err := dec.DecodeElement(&host, &start); err != nil {
			return ImportStats{}, fmt.Errorf("decode host: %w", err)
		}
		if err := run.importHost(observationFromHost(host)); err != nil {
			return ImportStats{}, err
		}
	}

	return run.finish(true)
}

// ImportObservations merges observations into the device store in one
// transaction.
func ImportObservations(database *db.DB, matcher *scope.Matcher, obs Observations, options ImportOptions, now time.Time) (ImportStats, error) {
	run, err := beginImport(database, matcher, options, now)
	if err != nil {
		return ImportStats{}, err
	}
	defer run.tx.Rollback()

	for _, o := range obs.Hosts {
		if err := run.importHost(o); err != nil {
			return ImportStats{}, err
		}
	}
	return run.finish(options.MarkMissingOffline)
}

func beginImport(database *db.DB, matcher *scope.Matcher, options ImportOptions, now time.Time) (*importRun, error) {
	if options.Source == "" {
		options.Source = db.SourceNmap
	}
	tx, err := database.Begin()
	if err != nil {
		return nil, err
	}
	record, err := tx.InsertScanRun(db.ScanRun{
		Source:   options.Source,
		Filename: options.Filename,
		RunTime:  now,
	})
	if err != nil {
		tx.Rollback()
		return nil, err
	}
	return &importRun{
		tx:      tx,
		matcher: matcher,
		now:     now,
		stats:   ImportStats{ScanRun: record},
		seen:    make(map[string]struct{}),
	}, nil
}

func (r *importRun) importHost(o Observation) error {
	addr, err := netip.ParseAddr(strings.TrimSpace(o.IPAddress))
	if err != nil || !addr.Is4() {
		r.stats.Invalid++
		return nil
	}
	ip := addr.String()

	if r.matcher != nil {
		inScope, err := r.matcher.InScope(ip)
		if err != nil {
			return err
		}
		if !inScope {
			r.stats.OutOfScope++
			return nil
		}
	}

	existing, found, err := r.tx.GetDiscoveredDeviceByIP(ip)
	if err != nil {
		return err
	}

	status := db.StatusOffline
	lastSeen := existing.LastSeen
	if o.Up() {
		status = db.StatusOnline
		lastSeen = r.now
	}
	if !found {
		lastSeen = r.now
	}

	device, err := r.tx.UpsertDiscoveredDevice(db.DiscoveredDevice{
		IPAddress:  ip,
		MACAddress: normalizeMAC(o.MACAddress),
		Hostname:   strings.TrimSpace(o.Hostname),
		Vendor:     strings.TrimSpace(o.Vendor),
		Status:     status,
		FirstSeen:  r.now,
		LastSeen:   lastSeen,
	})
	if err != nil {
		return err
	}
	if _, dup := r.seen[ip]; !dup {
		r.stats.DevicesFound++
		if found {
			r.stats.Updated++
		} else {
			r.stats.New++
		}
	}
	r.seen[ip] = struct{}{}

	switch {
	case !found:
		return r.event(device, db.EventDiscovered, pickNonEmpty(device.Vendor, device.Hostname))
	case existing.Status != device.Status:
		return r.event(device, device.Status, "")
	}
	return nil
}

func (r *importRun) finish(markMissing bool) (ImportStats, error) {
	if markMissing {
		devices, err := r.tx.ListDiscoveredDevices()
		if err != nil {
			return ImportStats{}, err
		}
		for _, d := range devices {
			if _, ok := r.seen[d.IPAddress]; ok || d.Status == db.StatusOffline {
				continue
			}
			if err := r.tx.SetDiscoveredStatus(d.ID, db.StatusOffline); err != nil {
				return ImportStats{}, err
			}
			d.Status = db.StatusOffline
			if err := r.event(d, db.EventOffline, "missing from scan"); err != nil {
				return ImportStats{}, err
			}
			r.stats.MarkedOffline++
		}
	}

	r.stats.DevicesSkipped = r.stats.OutOfScope + r.stats.Invalid
	if err := r.tx.UpdateScanRunCounts(r.stats.ID, r.stats.DevicesFound, r.stats.DevicesSkipped); err != nil {
		return ImportStats{}, err
	}
	if err := r.tx.Commit(); err != nil {
		return ImportStats{}, fmt.Errorf("commit import: %w", err)
	}
	return r.stats, nil
}

func (r *importRun) event(d db.DiscoveredDevice, name, detail string) error {
	_, err := r.tx.InsertDeviceEvent(db.DeviceEvent{
		Identity:  d.MACAddress,
		IPAddress: d.IPAddress,
		Event:     name,
		Detail:    detail,
		ScanRunID: sql.NullInt64{Int64: r.stats.ID, Valid: true},
		CreatedAt: r.now,
	})
	return err
}

// normalizeMAC returns the lowercase colon form of a hardware address, or
// the empty string when raw does not parse.
func normalizeMAC(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	hw, err := net.ParseMAC(raw)
	if err != nil {
		return ""
	}
	return strings.ToLower(hw.String())
}

func pickNonEmpty(primary, fallback string) string {
	if strings.TrimSpace(primary) != "" {
		return primary
	}
	return fallback
}
