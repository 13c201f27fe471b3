package inventory

import "strings"

// Kind is a coarse device category guessed from vendor and name.
type Kind string

const (
	KindPhone       Kind = "phone"
	KindConsole     Kind = "console"
	KindSingleBoard Kind = "single_board"
	KindSpeaker     Kind = "speaker"
	KindPrinter     Kind = "printer"
	KindNetwork     Kind = "network"
	KindServer      Kind = "server"
	KindSmartHome   Kind = "smart_home"
	KindComputer    Kind = "computer"
)

type kindRule struct {
	kind    Kind
	vendors []string
	names   []string
}

// Evaluated in order; the first rule with a matching keyword wins.
var kindRules = []kindRule{
	{kind: KindPhone, vendors: []string{"apple"}, names: []string{"iphone", "ipad"}},
	{kind: KindPhone, vendors: []string{"samsung"}, names: []string{"android"}},
	{kind: KindConsole, vendors: []string{"nintendo"}},
	{kind: KindSingleBoard, vendors: []string{"raspberry"}},
	{kind: KindSpeaker, vendors: []string{"amazon"}, names: []string{"echo", "alexa"}},
	{kind: KindPrinter, vendors: []string{"hp", "canon", "epson"}, names: []string{"printer"}},
	{kind: KindNetwork, vendors: []string{"netgear", "linksys"}, names: []string{"router"}},
	{kind: KindServer, vendors: []string{"proxmox"}, names: []string{"server"}},
	{kind: KindSmartHome, vendors: []string{"tuya"}, names: []string{"smart"}},
}

// ClassifyKind guesses a device category. Unknown devices are computers.
func ClassifyKind(vendor, name string) Kind {
	v := strings.ToLower(vendor)
	n := strings.ToLower(name)
	for _, rule := range kindRules {
		if containsAny(v, rule.vendors) || containsAny(n, rule.names) {
			return rule.kind
		}
	}
	return KindComputer
}

func containsAny(s string, needles []string) bool {
	if s == "" {
		return false
	}
	for _, needle := range needles {
		if strings.Contains(s, needle) {
			return true
		}
	}
	return false
}
