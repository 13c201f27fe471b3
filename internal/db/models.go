package db

import (
	"database/sql"
	"time"
)

// Device liveness values stored in discovered_device.status.
const (
	StatusOnline  = "online"
	StatusOffline = "offline"
	StatusUnknown = "unknown"
)

// Scan run sources.
const (
	SourceNmap = "nmap"
	SourceMDNS = "mdns"
)

// Device history event names.
const (
	EventDiscovered    = "discovered"
	EventOnline        = "online"
	EventOffline       = "offline"
	EventRegistered    = "registered"
	EventUnregistered  = "unregistered"
	EventManualAdded   = "manual_added"
	EventManualRemoved = "manual_removed"
)

// DiscoveredDevice is a device recorded by the discovery process, keyed by address.
type DiscoveredDevice struct {
	ID         int64
	IPAddress  string
	MACAddress string
	Hostname   string
	Vendor     string
	Status     string
	FirstSeen  time.Time
	LastSeen   time.Time
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// ManualDevice is a user-entered device.
type ManualDevice struct {
	ID         int64
	Name       string
	IPAddress  string
	MACAddress string
	Vendor     string
	FirstSeen  time.Time
	LastSeen   time.Time
	CreatedAt  time.Time
}

// ScanRun tracks one discovery import.
type ScanRun struct {
	ID             int64
	Source         string
	Filename       string
	RunTime        time.Time
	DevicesFound   int
	DevicesSkipped int
}

// DeviceEvent is one entry of a device's history.
type DeviceEvent struct {
	ID        int64
	Identity  string
	IPAddress string
	Event     string
	Detail    string
	ScanRunID sql.NullInt64
	CreatedAt time.Time
}

// DeviceStats counts devices by liveness.
type DeviceStats struct {
	Total   int
	Online  int
	Offline int
	Unknown int
}
