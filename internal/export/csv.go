// Package export writes a reconciled snapshot as CSV, JSON or a text table.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"time"

	"github.com/sloppy/homenetsafe/internal/dashboard"
	"github.com/sloppy/homenetsafe/internal/inventory"
)

// Formats accepted by Write.
const (
	FormatCSV  = "csv"
	FormatJSON = "json"
	FormatText = "text"
)

// Write dispatches on format.
func Write(snap dashboard.Snapshot, format string, w io.Writer) error {
	switch format {
	case FormatCSV:
		return WriteCSV(snap, w)
	case FormatJSON:
		return WriteJSON(snap, w)
	case FormatText:
		return WriteText(snap, w)
	default:
		return fmt.Errorf("unknown export format %q", format)
	}
}

// Filename is the suggested download name for an export taken at t.
func Filename(format string, t time.Time) string {
	ext := format
	if format == FormatText {
		ext = "txt"
	}
	return fmt.Sprintf("homenetsafe-devices-%s.%s", t.UTC().Format("2006-01-02"), ext)
}

// WriteCSV writes one row per device: discovered devices first, manual
// devices last.
func WriteCSV(snap dashboard.Snapshot, w io.Writer) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(csvHeader()); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, d := range exportOrder(snap) {
		if err := writer.Write(csvRow(d)); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return nil
}

func exportOrder(snap dashboard.Snapshot) []inventory.ReconciledDevice {
	inv := snap.Result.Inventory
	out := make([]inventory.ReconciledDevice, 0, len(inv.UnregisteredDiscovered)+len(inv.Registered))
	out = append(out, inv.UnregisteredDiscovered...)
	var manual []inventory.ReconciledDevice
	for _, d := range inv.Registered {
		if d.Source == inventory.SourceManual {
			manual = append(manual, d)
			continue
		}
		out = append(out, d)
	}
	return append(out, manual...)
}

func boolToString(value bool) string {
	if value {
		return "true"
	}
	return "false"
}

func formatTime(value time.Time) string {
	if value.IsZero() {
		return ""
	}
	return value.UTC().Format(time.RFC3339)
}

func typeLabel(source inventory.Source) string {
	if source == inventory.SourceManual {
		return "Manual"
	}
	return "Discovered"
}

func csvHeader() []string {
	return []string{
		"name",
		"ip",
		"mac",
		"vendor",
		"type",
		"status",
		"first_seen",
		"last_seen",
		"registered",
		"notes",
	}
}

func csvRow(d inventory.ReconciledDevice) []string {
	return []string{
		d.Name,
		d.Address,
		d.Identity.String(),
		d.Vendor,
		typeLabel(d.Source),
		string(d.Status),
		formatTime(d.FirstSeen),
		formatTime(d.LastSeen),
		boolToString(d.Registered),
		d.Notes,
	}
}
