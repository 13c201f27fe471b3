package export

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/dustin/go-humanize"

	"github.com/sloppy/homenetsafe/internal/dashboard"
	"github.com/sloppy/homenetsafe/internal/inventory"
)

// WriteText writes a readable table of the snapshot, grouped by partition.
func WriteText(snap dashboard.Snapshot, w io.Writer) error {
	fmt.Fprintf(w, "Trust: %s\n", snap.Trust)
	fmt.Fprintf(w, "Taken: %s\n", snap.TakenAt.UTC().Format("2006-01-02 15:04:05"))
	if snap.Result.Empty != "" {
		fmt.Fprintf(w, "Discovery: %s\n", snap.Result.Empty)
	}
	for _, warning := range snap.Warnings {
		fmt.Fprintf(w, "Warning: %s\n", warning)
	}

	sections := []struct {
		title   string
		devices []inventory.ReconciledDevice
	}{
		{"Unregistered", snap.Result.Inventory.UnregisteredDiscovered},
		{"Registered", snap.Result.Inventory.Registered},
	}
	for _, section := range sections {
		fmt.Fprintf(w, "\n%s (%d)\n", section.title, len(section.devices))
		if len(section.devices) == 0 {
			continue
		}
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "NAME\tIP\tMAC\tVENDOR\tTYPE\tSTATUS\tLAST SEEN")
		for _, d := range section.devices {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
				orDash(d.Name),
				orDash(d.Address),
				orDash(d.Identity.String()),
				vendorLabel(d.Vendor),
				typeLabel(d.Source),
				d.Status,
				lastSeenLabel(d, snap),
			)
		}
		if err := tw.Flush(); err != nil {
			return fmt.Errorf("flush table: %w", err)
		}
	}
	return nil
}

func lastSeenLabel(d inventory.ReconciledDevice, snap dashboard.Snapshot) string {
	if d.LastSeen.IsZero() {
		return "-"
	}
	label := humanize.RelTime(d.LastSeen, snap.TakenAt, "ago", "from now")
	if d.Stale {
		label += " (stale)"
	}
	return label
}

func vendorLabel(vendor string) string {
	if vendor == "" {
		return "Unknown"
	}
	return vendor
}

func orDash(value string) string {
	if value == "" {
		return "-"
	}
	return value
}
