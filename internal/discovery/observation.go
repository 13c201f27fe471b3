// Package discovery produces the discovered-device snapshot: it imports
// nmap results and mDNS announcements into the device store and serves the
// stored devices back to reconciliation.
package discovery

import "strings"

// Observations holds the hosts seen by one discovery run.
type Observations struct {
	Hosts []Observation
}

// Observation is one host as reported by a scanner.
type Observation struct {
	IPAddress  string
	MACAddress string
	Vendor     string
	Hostname   string
	HostState  string
}

// Up reports whether the scanner saw the host alive.
func (o Observation) Up() bool {
	return strings.EqualFold(strings.TrimSpace(o.HostState), "up")
}
