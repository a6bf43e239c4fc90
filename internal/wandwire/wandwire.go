// Package wandwire implements the paddle wand's NMEA-0183 style line
// protocol. The wand streams proprietary sentences at ~50 Hz over serial:
//
//	$PWORI,<uptime_ms>,<roll>,<pitch>,<yaw>,<accel_mg>*hh  orientation sample
//	$PWHBT,<uptime_ms>,<battery_mv>*hh                     heartbeat/battery
//
// and accepts two-letter command codes wrapped as $PWCMD,<code>*hh. Framing
// and checksum validation are delegated to go-nmea; this package registers
// the proprietary sentence parsers and renders outbound sentences.
package wandwire

import (
	"fmt"
	"strings"

	nmea "github.com/adrianmo/go-nmea"
)

// Sentence type identifiers as they appear on the wire.
const (
	PrefixORI = "PWORI"
	PrefixHBT = "PWHBT"
	PrefixCMD = "PWCMD"
)

// ORI is one orientation sample. Roll is the primary paddle axis; pitch,
// yaw, and accel are optional on the wand and zero when not reported.
type ORI struct {
	nmea.BaseSentence
	UptimeMS int64   // milliseconds since wand boot
	Roll     float64 // degrees
	Pitch    float64 // degrees
	Yaw      float64 // degrees
	AccelMG  int64   // milli-g
}

// HBT is the wand's liveness heartbeat, sent once a second even when the
// orientation stream is stopped.
type HBT struct {
	nmea.BaseSentence
	UptimeMS  int64
	BatteryMV int64
}

func newORI(s nmea.BaseSentence) (nmea.Sentence, error) {
	p := nmea.NewParser(s)
	return ORI{
		BaseSentence: s,
		UptimeMS:     p.Int64(0, "uptime_ms"),
		Roll:         p.Float64(1, "roll"),
		Pitch:        p.Float64(2, "pitch"),
		Yaw:          p.Float64(3, "yaw"),
		AccelMG:      p.Int64(4, "accel_mg"),
	}, p.Err()
}

func newHBT(s nmea.BaseSentence) (nmea.Sentence, error) {
	p := nmea.NewParser(s)
	return HBT{
		BaseSentence: s,
		UptimeMS:     p.Int64(0, "uptime_ms"),
		BatteryMV:    p.Int64(1, "battery_mv"),
	}, p.Err()
}

func init() {
	// The library splits a proprietary prefix into talker "P" plus the
	// remainder; register under both spellings so parsing works either way.
	for typ, fn := range map[string]nmea.ParserFunc{
		PrefixORI: newORI, PrefixORI[1:]: newORI,
		PrefixHBT: newHBT, PrefixHBT[1:]: newHBT,
	} {
		nmea.MustRegisterParser(typ, fn)
	}
}

// ParseLine parses one wire line into an ORI or HBT sentence. Lines carrying
// other sentence types parse without error but are not wand traffic; callers
// type-switch on the result. Checksum or framing faults return an error.
func ParseLine(line string) (nmea.Sentence, error) {
	return nmea.Parse(strings.TrimSpace(line))
}

// xorChecksum computes the NMEA checksum over the payload between "$" and
// "*", rendered as two uppercase hex digits.
func xorChecksum(payload string) string {
	var sum byte
	for i := 0; i < len(payload); i++ {
		sum ^= payload[i]
	}
	return fmt.Sprintf("%02X", sum)
}

// frame wraps a payload in $...*hh framing.
func frame(payload string) string {
	return "$" + payload + "*" + xorChecksum(payload)
}

// BuildORI renders an orientation sentence for the mock wand and the trace
// generator.
func BuildORI(uptimeMS int64, roll, pitch, yaw float64, accelMG int64) string {
	return frame(fmt.Sprintf("%s,%d,%.2f,%.2f,%.2f,%d", PrefixORI, uptimeMS, roll, pitch, yaw, accelMG))
}

// BuildHBT renders a heartbeat sentence.
func BuildHBT(uptimeMS, batteryMV int64) string {
	return frame(fmt.Sprintf("%s,%d,%d", PrefixHBT, uptimeMS, batteryMV))
}

// BuildCMD wraps an allow-listed command code as a checksummed sentence.
func BuildCMD(code string) (string, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if !IsAllowedCommand(code) {
		return "", fmt.Errorf("command %q not in allow-list", code)
	}
	return frame(fmt.Sprintf("%s,%s", PrefixCMD, code)), nil
}
