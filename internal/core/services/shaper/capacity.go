package shaper

import "math"

// phy20 and phy40 are the PHY bit-rate tables (Mbit/s) indexed by MCS
// (0..7) for 20 MHz and 40 MHz channel widths. 10 MHz is half of 20 MHz.
var (
	phy20 = [8]float64{6.5, 13, 19.5, 26, 39, 52, 58.5, 65}
	phy40 = [8]float64{13.5, 27, 40.5, 54, 81, 108, 121.5, 135}
)

func clampMCS(mcs int) int {
	if mcs < 0 {
		return 0
	}
	if mcs > 7 {
		return 7
	}
	return mcs
}

// phyMbps looks up the usable PHY bit rate for a given width/MCS pair.
func phyMbps(widthMHz, mcs int) float64 {
	mcs = clampMCS(mcs)
	switch widthMHz {
	case 40:
		return phy40[mcs]
	case 10:
		return phy20[mcs] * 0.5
	default:
		return phy20[mcs]
	}
}

// effFor returns the configured spectral-efficiency factor for a width.
func (cfg Config) effFor(widthMHz int) float64 {
	switch widthMHz {
	case 40:
		return cfg.Eff40
	case 10:
		return cfg.Eff10
	default:
		return cfg.Eff20
	}
}

// Capacity computes usable_kbps and alloc_kbps for one (mcs, width) sample,
// per spec.md §3/§4.2.
func (cfg Config) Capacity(mcs, widthMHz int) (usableKbps, allocKbps int) {
	phy := phyMbps(widthMHz, mcs)
	eff := cfg.effFor(widthMHz)
	usable := math.Round(phy * 1000 * eff)
	alloc := usable * float64(100-cfg.HeadroomPct) / 100
	if alloc < 100 {
		alloc = 100
	}
	return int(usable), int(alloc)
}
