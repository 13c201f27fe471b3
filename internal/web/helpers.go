package web

import (
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/sloppy/homenetsafe/internal/dashboard"
	"github.com/sloppy/homenetsafe/internal/db"
	"github.com/sloppy/homenetsafe/internal/inventory"
	"github.com/sloppy/homenetsafe/internal/notify"
)

// pageView is everything the dashboard page renders.
type pageView struct {
	Snapshot  dashboard.Snapshot
	Stats     db.DeviceStats
	HasStats  bool
	Notice    notify.Notice
	HasNotice bool
	Scanning  bool
}

func vendorLabel(vendor string) string {
	if strings.TrimSpace(vendor) == "" {
		return "Unknown"
	}
	return vendor
}

func nameLabel(d inventory.ReconciledDevice) string {
	if strings.TrimSpace(d.Name) != "" {
		return d.Name
	}
	if d.Address != "" {
		return d.Address
	}
	return "Unnamed device"
}

func lastSeenLabel(lastSeen, now time.Time) string {
	if lastSeen.IsZero() {
		return "Never"
	}
	return humanize.RelTime(lastSeen, now, "ago", "from now")
}

func trustLabel(level inventory.TrustLevel) string {
	switch level {
	case inventory.TrustSecure:
		return "Secure"
	case inventory.TrustAtRisk:
		return "At risk"
	default:
		return "Caution"
	}
}

func trustSummary(snap dashboard.Snapshot) string {
	if !snap.RatioKnown {
		return "No discovered devices to assess yet."
	}
	unregistered := len(snap.Result.Inventory.UnregisteredDiscovered)
	if unregistered == 0 {
		return "Every discovered device is registered."
	}
	return fmt.Sprintf("%s of discovered devices are unregistered (%d %s).",
		percent(snap.UnregisteredRatio), unregistered, plural(unregistered, "device", "devices"))
}

func percent(ratio float64) string {
	return humanize.FtoaWithDigits(ratio*100, 1) + "%"
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}

func kindLabel(kind inventory.Kind) string {
	if kind == "" {
		return "-"
	}
	return strings.ReplaceAll(string(kind), "_", " ")
}

func sourceLabel(source inventory.Source) string {
	if source == inventory.SourceManual {
		return "Manual"
	}
	return "Discovered"
}

func emptyMessage(reason inventory.EmptyReason) string {
	switch reason {
	case inventory.ReasonNoData:
		return "Discovery data is unavailable right now."
	case inventory.ReasonZeroDevices:
		return "No devices discovered yet. Run a scan."
	default:
		return ""
	}
}
