package link

import "github.com/snokvist/fpvcore/internal/core/domain"

// Config is the link controller's tunable policy, loaded from the
// [general]/[master]/[staN] sections of the INI config file.
type Config struct {
	PollMs      int64
	HystMs      int64
	HystDb      int
	FloorDb     int
	PingToMs    int64
	PingFailMax uint8
	MasterIface string

	Stations []domain.Station
}
