package shaper

import "github.com/snokvist/fpvcore/internal/core/domain"

// Allocate computes the four class rates/ceils for a given total budget,
// per spec.md §4.2 "Allocation algorithm". alloc is clamped to >= 100 kbps
// by the caller (Capacity already does this for the telemetry-derived path).
func (cfg Config) Allocate(alloc int) domain.Rates {
	if alloc < 100 {
		alloc = 100
	}
	vFloor, mFloor, tFloor, dFloor := cfg.VideoFloorKbps, cfg.MavFloorKbps, cfg.TunFloorKbps, cfg.DefFloorKbps
	sumFloors := vFloor + mFloor + tFloor + dFloor

	var rVideo, rMav, rTun, rDef int
	if alloc < sumFloors {
		scale := float64(alloc) / float64(sumFloors)
		rMav = int(float64(mFloor) * scale)
		if rMav < cfg.MavMinFloorKbps {
			rMav = cfg.MavMinFloorKbps
		}
		rTun = int(float64(tFloor) * scale)
		rDef = int(float64(dFloor) * scale)
		rVideo = alloc - (rMav + rTun + rDef)
		if rVideo < 0 {
			rVideo = 0
		}
	} else {
		rMav, rTun, rDef = mFloor, tFloor, dFloor
		rVideo = alloc - (mFloor + tFloor + dFloor)
	}

	cMav := maxInt(cfg.MavCeilMaxKbps, rMav)
	cTun := maxInt(cfg.TunCeilMaxKbps, rTun)
	cDef := maxInt(cfg.DefCeilMaxKbps, rDef)

	cVideo := rVideo + rVideo*cfg.CeilMarginPct/100
	if cVideo < rVideo {
		cVideo = rVideo
	}
	videoCeilCap := cfg.VideoCeilMaxKbps
	if alloc < videoCeilCap {
		videoCeilCap = alloc
	}
	if cVideo > videoCeilCap {
		cVideo = videoCeilCap
	}
	if cVideo < rVideo {
		cVideo = rVideo
	}

	return domain.Rates{
		AllocTotalKbps: alloc,
		Video: domain.TrafficClass{
			Kind: domain.ClassVideo, Mark: cfg.MarkVideo, ClassID: "1:10", Priority: 2,
			FloorKbps: vFloor, CeilMaxKbps: cfg.VideoCeilMaxKbps, RateKbps: rVideo, CeilKbps: cVideo,
		},
		Mavlink: domain.TrafficClass{
			Kind: domain.ClassMavlink, Mark: cfg.MarkMavlink, ClassID: "1:20", Priority: 1,
			FloorKbps: mFloor, CeilMaxKbps: cfg.MavCeilMaxKbps, RateKbps: rMav, CeilKbps: cMav,
		},
		Tunnel: domain.TrafficClass{
			Kind: domain.ClassTunnel, Mark: cfg.MarkTunnel, ClassID: "1:30", Priority: 3,
			FloorKbps: tFloor, CeilMaxKbps: cfg.TunCeilMaxKbps, RateKbps: rTun, CeilKbps: cTun,
		},
		Default: domain.TrafficClass{
			Kind: domain.ClassDefault, Mark: cfg.MarkDefault, ClassID: "1:40", Priority: 4,
			FloorKbps: dFloor, CeilMaxKbps: cfg.DefCeilMaxKbps, RateKbps: rDef, CeilKbps: cDef,
		},
	}
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
