package web

import (
	"context"
	"fmt"
	"html"
	"io"
	"net/http"

	"github.com/a-h/templ"

	"github.com/sloppy/homenetsafe/internal/inventory"
)

func render(w http.ResponseWriter, r *http.Request, component templ.Component) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := component.Render(r.Context(), w); err != nil {
		http.Error(w, "render failed", http.StatusInternalServerError)
	}
}

func layout(title string, body templ.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if _, err := io.WriteString(w, "<!doctype html><html lang=\"en\"><head><meta charset=\"utf-8\"><meta name=\"viewport\" content=\"width=device-width, initial-scale=1\">"); err != nil {
			return err
		}
		if _, err := fmt.Fprintf(w, "<title>%s</title>", html.EscapeString(title)); err != nil {
			return err
		}
		if _, err := io.WriteString(w, layoutStyles); err != nil {
			return err
		}
		if _, err := io.WriteString(w, "</head><body><main class=\"shell\">"); err != nil {
			return err
		}
		if err := body.Render(ctx, w); err != nil {
			return err
		}
		if _, err := io.WriteString(w, "</main></body></html>"); err != nil {
			return err
		}
		return nil
	})
}

func dashboardPage(view pageView) templ.Component {
	body := templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if _, err := io.WriteString(w, "<header class=\"page-header\"><p class=\"eyebrow\">HomeNetSafe</p><h1>Home network</h1><p class=\"subhead\">Know every device on your network. Register the ones you trust.</p></header>"); err != nil {
			return err
		}
		if view.HasNotice {
			if err := noticeBanner(view).Render(ctx, w); err != nil {
				return err
			}
		}
		if err := shieldCard(view).Render(ctx, w); err != nil {
			return err
		}
		if err := statsCard(view).Render(ctx, w); err != nil {
			return err
		}
		if err := unregisteredCard(view).Render(ctx, w); err != nil {
			return err
		}
		if err := registeredCard(view).Render(ctx, w); err != nil {
			return err
		}
		if err := manualForm().Render(ctx, w); err != nil {
			return err
		}
		return nil
	})
	return layout("HomeNetSafe - Dashboard", body)
}

func noticeBanner(view pageView) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		_, err := fmt.Fprintf(w, "<div class=\"notice notice--%s\" role=\"status\" data-expires-at=\"%s\">%s</div>",
			html.EscapeString(string(view.Notice.Kind)),
			view.Notice.ExpiresAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
			html.EscapeString(view.Notice.Message))
		return err
	})
}

func shieldCard(view pageView) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		snap := view.Snapshot
		if _, err := fmt.Fprintf(w, "<section class=\"card shield shield--%s\"><div><p class=\"stat-label\">Network status</p><p class=\"shield-level\">%s</p><p class=\"subhead\">%s</p></div>",
			html.EscapeString(string(snap.Trust)),
			html.EscapeString(trustLabel(snap.Trust)),
			html.EscapeString(trustSummary(snap))); err != nil {
			return err
		}
		if _, err := io.WriteString(w, "<div class=\"page-actions\"><form method=\"post\" action=\"/scan\">"); err != nil {
			return err
		}
		if view.Scanning {
			if _, err := io.WriteString(w, "<button type=\"submit\" disabled>Scanning...</button>"); err != nil {
				return err
			}
		} else {
			if _, err := io.WriteString(w, "<button type=\"submit\">Scan network</button>"); err != nil {
				return err
			}
		}
		if _, err := io.WriteString(w, "</form><a class=\"back-link\" href=\"/export?format=csv\">Export CSV</a><a class=\"back-link\" href=\"/export?format=json\">Export JSON</a></div>"); err != nil {
			return err
		}
		for _, warning := range snap.Warnings {
			if _, err := fmt.Fprintf(w, "<p class=\"warning\">%s</p>", html.EscapeString(warning)); err != nil {
				return err
			}
		}
		if _, err := io.WriteString(w, "</section>"); err != nil {
			return err
		}
		return nil
	})
}

func statsCard(view pageView) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if !view.HasStats {
			return nil
		}
		if _, err := io.WriteString(w, "<section class=\"card\"><h2>Devices</h2><div class=\"stats-grid\">"); err != nil {
			return err
		}
		for _, stat := range []struct {
			Label string
			Value int
		}{
			{"Total", view.Stats.Total},
			{"Online", view.Stats.Online},
			{"Offline", view.Stats.Offline},
			{"Unknown", view.Stats.Unknown},
		} {
			if _, err := fmt.Fprintf(w, "<div><p class=\"stat-label\">%s</p><p class=\"stat-value\">%d</p></div>", stat.Label, stat.Value); err != nil {
				return err
			}
		}
		if _, err := io.WriteString(w, "</div></section>"); err != nil {
			return err
		}
		return nil
	})
}

func unregisteredCard(view pageView) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		snap := view.Snapshot
		devices := snap.Result.Inventory.UnregisteredDiscovered
		if _, err := fmt.Fprintf(w, "<section class=\"card\" id=\"unregistered\"><h2>Unregistered devices (%d)</h2>", len(devices)); err != nil {
			return err
		}
		if len(devices) == 0 {
			msg := emptyMessage(snap.Result.Empty)
			if msg == "" {
				msg = "Nothing to review."
			}
			if _, err := fmt.Fprintf(w, "<p class=\"empty\">%s</p></section>", html.EscapeString(msg)); err != nil {
				return err
			}
			return nil
		}
		if _, err := io.WriteString(w, "<div class=\"table-wrap\"><table class=\"device-table\"><thead><tr><th>Name</th><th>IP</th><th>MAC</th><th>Vendor</th><th>Type</th><th>Last seen</th><th>Register</th></tr></thead><tbody>"); err != nil {
			return err
		}
		for _, d := range devices {
			if err := deviceCells(w, d); err != nil {
				return err
			}
			if _, err := fmt.Fprintf(w, "<td>%s</td><td class=\"muted\">%s</td>", html.EscapeString(kindLabel(d.Kind)), html.EscapeString(lastSeenLabel(d.LastSeen, snap.TakenAt))); err != nil {
				return err
			}
			if !d.Identity.Matchable() {
				if _, err := io.WriteString(w, "<td class=\"muted\">No MAC address</td></tr>"); err != nil {
					return err
				}
				continue
			}
			if _, err := fmt.Fprintf(w, "<td><form method=\"post\" action=\"/devices/register\" class=\"inline-form\"><input type=\"hidden\" name=\"identity\" value=\"%s\"><input name=\"name\" placeholder=\"Name\" value=\"%s\"><input name=\"notes\" placeholder=\"Notes\"><button type=\"submit\">Register</button></form></td></tr>",
				html.EscapeString(d.Identity.String()),
				html.EscapeString(d.Name)); err != nil {
				return err
			}
		}
		if _, err := io.WriteString(w, "</tbody></table></div></section>"); err != nil {
			return err
		}
		return nil
	})
}

func registeredCard(view pageView) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		snap := view.Snapshot
		devices := snap.Result.Inventory.Registered
		if _, err := fmt.Fprintf(w, "<section class=\"card\" id=\"registered\"><h2>Registered devices (%d)</h2>", len(devices)); err != nil {
			return err
		}
		if len(devices) == 0 {
			if _, err := io.WriteString(w, "<p class=\"empty\">No registered devices yet.</p></section>"); err != nil {
				return err
			}
			return nil
		}
		if _, err := io.WriteString(w, "<div class=\"table-wrap\"><table class=\"device-table\"><thead><tr><th>Name</th><th>IP</th><th>MAC</th><th>Vendor</th><th>Source</th><th>Last seen</th><th>Notes</th><th></th></tr></thead><tbody>"); err != nil {
			return err
		}
		for _, d := range devices {
			if err := deviceCells(w, d); err != nil {
				return err
			}
			if _, err := fmt.Fprintf(w, "<td>%s</td><td class=\"muted\">%s</td><td>%s</td>",
				sourceLabel(d.Source),
				html.EscapeString(lastSeenLabel(d.LastSeen, snap.TakenAt)),
				html.EscapeString(d.Notes)); err != nil {
				return err
			}
			if d.Source == inventory.SourceManual {
				if _, err := fmt.Fprintf(w, "<td><form method=\"post\" action=\"/manual-devices/%d/remove\"><button class=\"ghost\" type=\"submit\">Remove</button></form></td></tr>", d.ManualID); err != nil {
					return err
				}
				continue
			}
			if _, err := fmt.Fprintf(w, "<td><form method=\"post\" action=\"/devices/unregister\"><input type=\"hidden\" name=\"identity\" value=\"%s\"><button class=\"ghost\" type=\"submit\">Unregister</button></form></td></tr>", html.EscapeString(d.Identity.String())); err != nil {
				return err
			}
		}
		if _, err := io.WriteString(w, "</tbody></table></div></section>"); err != nil {
			return err
		}
		return nil
	})
}

// deviceCells opens a row and writes the name, address, MAC and vendor cells.
func deviceCells(w io.Writer, d inventory.ReconciledDevice) error {
	rowClass := ""
	if d.Stale {
		rowClass = " class=\"stale\""
	}
	mac := d.Identity.String()
	if mac == "" {
		mac = "-"
	}
	_, err := fmt.Fprintf(w, "<tr%s><td><span class=\"status-dot status-dot--%s\"></span>%s</td><td class=\"mono\">%s</td><td class=\"mono\">%s</td><td>%s</td>",
		rowClass,
		html.EscapeString(string(d.Status)),
		html.EscapeString(nameLabel(d)),
		html.EscapeString(d.Address),
		html.EscapeString(mac),
		html.EscapeString(vendorLabel(d.Vendor)))
	return err
}

func manualForm() templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		_, err := io.WriteString(w, "<section class=\"card\"><h2>Add a device</h2><form method=\"post\" action=\"/manual-devices/add\" class=\"device-form\"><label>Name<input name=\"name\" placeholder=\"Living room TV\" required></label><label>IP address<input name=\"ip\" placeholder=\"192.168.1.40\" required></label><label>MAC address<input name=\"mac\" placeholder=\"aa:bb:cc:dd:ee:ff\"></label><div class=\"form-actions\"><button type=\"submit\">Add device</button></div></form></section>")
		return err
	})
}
