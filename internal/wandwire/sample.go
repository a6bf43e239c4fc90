package wandwire

import (
	"time"

	"github.com/helmside/paddlesense/internal/gesture"
)

// RawSample converts an orientation sentence into an engine sample. The wand
// timestamps with uptime; base anchors uptime zero on the session timeline so
// sample spacing follows the wand's clock, not arrival jitter.
func (o ORI) RawSample(base time.Time) gesture.RawSample {
	return gesture.RawSample{
		Timestamp: base.Add(time.Duration(o.UptimeMS) * time.Millisecond),
		Angle:     o.Roll,
		Pitch:     o.Pitch,
		Yaw:       o.Yaw,
		Accel:     float64(o.AccelMG) / 1000,
	}
}
