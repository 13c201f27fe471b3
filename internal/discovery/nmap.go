package discovery

import (
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"strings"
)

// Internal parsing structs matching nmap XML.
type nmapRun struct {
	Args  string     `xml:"args,attr"`
	Hosts []nmapHost `xml:"host"`
}

type nmapHost struct {
	Addresses []nmapAddress `xml:"address"`
	Status    nmapHostState `xml:"status"`
	Hostnames nmapHostnames `xml:"hostnames"`
}

type nmapHostState struct {
	State string `xml:"state,attr"`
}

type nmapAddress struct {
	Addr     string `xml:"addr,attr"`
	AddrType string `xml:"addrtype,attr"`
	Vendor   string `xml:"vendor,attr"`
}

type nmapHostnames struct {
	Hostnames []nmapHostname `xml:"hostname"`
}

type nmapHostname struct {
	Name string `xml:"name,attr"`
}

// ParseXMLFile reads an nmap XML file from disk.
func ParseXMLFile(path string) (Observations, error) {
	f, err := os.Open(path)
	if err != nil {
		return Observations{}, fmt.Errorf("open xml: %w", err)
	}
	defer f.Close()
	return ParseXML(f)
}

// ParseXML parses nmap XML from a reader into Observations.
func ParseXML(r io.Reader) (Observations, error) {
	var run nmapRun
	dec := xml.NewDecoder(r)
	if err := dec.Decode(&run); err != nil {
		return Observations{}, fmt.Errorf("decode xml: %w", err)
	}

	var obs Observations
	for _, h := range run.Hosts {
		obs.Hosts = append(obs.Hosts, observationFromHost(h))
	}
	return obs, nil
}

func firstAddress(addrs []nmapAddress, addrType string) (nmapAddress, bool) {
	for _, a := range addrs {
		if strings.EqualFold(a.AddrType, addrType) {
			return a, true
		}
	}
	return nmapAddress{}, false
}

func firstHostname(h nmapHostnames) string {
	if len(h.Hostnames) == 0 {
		return ""
	}
	return h.Hostnames[0].Name
}

func observationFromHost(h nmapHost) Observation {
	obs := Observation{
		Hostname:  firstHostname(h.Hostnames),
		HostState: strings.ToLower(strings.TrimSpace(h.Status.State)),
	}
	if a, ok := firstAddress(h.Addresses, "ipv4"); ok {
		obs.IPAddress = a.Addr
	} else if len(h.Addresses) > 0 && !strings.EqualFold(h.Addresses[0].AddrType, "mac") {
		obs.IPAddress = h.Addresses[0].Addr
	}
	if a, ok := firstAddress(h.Addresses, "mac"); ok {
		obs.MACAddress = a.Addr
		obs.Vendor = a.Vendor
	}
	return obs
}
