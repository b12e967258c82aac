package ports

import "time"

type Policy struct {
	SampleInterval      time.Duration
	PollInterval        time.Duration
	MaxCommandsPerCycle int
	MaxCommandAge       time.Duration
}
