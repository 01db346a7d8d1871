package phystopo

import "fmt"

// FidelityTable is the 5-entry closed-form fidelity lookup of spec §4.1,
// keyed on hop count (one vs. two) and the endpoint node types.
//
// Field names follow the user-config keys of spec §6
// (ConfGridStatic.fidelities): "o" stands for orbit (SAT), "g" for ground
// (OGS). FO/FG are the one-hop fidelities, keyed by the type of the
// non-transmitting endpoint; FOO/FOG/FGG are the two-hop (relayed)
// fidelities, keyed by the unordered pair of endpoint types.
type FidelityTable struct {
	FO  float64 // one-hop, other endpoint is SAT
	FG  float64 // one-hop, other endpoint is OGS
	FOO float64 // two-hop, both endpoints SAT
	FOG float64 // two-hop, one SAT one OGS
	FGG float64 // two-hop, both endpoints OGS
}

// Validate checks every entry lies in [0,1] (spec §6).
func (ft FidelityTable) Validate() error {
	for name, v := range map[string]float64{
		"f_o": ft.FO, "f_g": ft.FG, "f_oo": ft.FOO, "f_og": ft.FOG, "f_gg": ft.FGG,
	} {
		if v < 0 || v > 1 {
			return fmt.Errorf("phystopo: fidelity %s=%f outside [0,1]", name, v)
		}
	}
	return nil
}

// OneHop returns the one-hop fidelity given the type of the endpoint that
// is not the transmitting node.
func (ft FidelityTable) OneHop(other NodeType) float64 {
	if other == SAT {
		return ft.FO
	}
	return ft.FG
}

// TwoHop returns the two-hop (relayed) fidelity for an unordered pair of
// endpoint types.
func (ft FidelityTable) TwoHop(a, b NodeType) float64 {
	switch {
	case a == SAT && b == SAT:
		return ft.FOO
	case a == OGS && b == OGS:
		return ft.FGG
	default:
		return ft.FOG
	}
}
