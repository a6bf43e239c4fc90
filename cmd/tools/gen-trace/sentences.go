package main

import (
	"time"

	"github.com/helmside/paddlesense/internal/wandwire"
)

// nominal battery voltage reported in heartbeats
const batteryMV = 3700

func buildORI(uptime time.Duration, angle float64) string {
	return wandwire.BuildORI(uptime.Milliseconds(), angle, 0, 0, 1000)
}

func buildHBT(uptime time.Duration) string {
	return wandwire.BuildHBT(uptime.Milliseconds(), batteryMV)
}
