package inventory

// TrustLevel is the aggregate "shield" signal of an inventory.
type TrustLevel string

const (
	TrustSecure  TrustLevel = "secure"
	TrustCaution TrustLevel = "caution"
	TrustAtRisk  TrustLevel = "at_risk"
)

// atRiskRatio is inclusive: half the network unregistered is at risk.
const atRiskRatio = 0.5

// UnregisteredRatio returns the fraction of discovered devices without a
// registration. ok is false for an empty or missing list.
func UnregisteredRatio(discovered []DiscoveredDevice, regs Registrations) (ratio float64, ok bool) {
	devices := dedupeDiscovered(discovered)
	if len(devices) == 0 {
		return 0, false
	}
	regs = normalizeRegistrations(regs)
	unregistered := 0
	for _, d := range devices {
		if _, found := regs.Lookup(d.Identity); !found {
			unregistered++
		}
	}
	return float64(unregistered) / float64(len(devices)), true
}

// DeriveTrust maps discovered devices and registrations onto a trust level.
// A nil or empty list yields caution.
func DeriveTrust(discovered []DiscoveredDevice, regs Registrations) TrustLevel {
	ratio, ok := UnregisteredRatio(discovered, regs)
	return trustFromRatio(ratio, ok)
}

// Trust derives the trust level from the discovery-derived rows of the
// inventory; manual rows carry no liveness and are ignored.
func (inv Inventory) Trust() TrustLevel {
	ratio, ok := inv.UnregisteredRatio()
	return trustFromRatio(ratio, ok)
}

// UnregisteredRatio is the inventory counterpart of the package function.
func (inv Inventory) UnregisteredRatio() (float64, bool) {
	unregistered := len(inv.UnregisteredDiscovered)
	total := unregistered
	for _, d := range inv.Registered {
		if d.Source == SourceDiscovered {
			total++
		}
	}
	if total == 0 {
		return 0, false
	}
	return float64(unregistered) / float64(total), true
}

func trustFromRatio(ratio float64, ok bool) TrustLevel {
	switch {
	case !ok:
		return TrustCaution
	case ratio == 0:
		return TrustSecure
	case ratio >= atRiskRatio:
		return TrustAtRisk
	default:
		return TrustCaution
	}
}
