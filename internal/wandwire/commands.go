package wandwire

// Command codes understood by the wand firmware. Anything outside this list
// is refused before it reaches the serial port.
const (
	CmdStreamStart = "ST" // begin the 50 Hz orientation stream
	CmdStreamStop  = "SP" // stop the orientation stream (heartbeats continue)
	CmdPing        = "PG" // request an immediate heartbeat
	CmdCalibrate   = "CA" // light the calibration guidance LED sequence
	CmdLEDOff      = "LE" // extinguish all guidance LEDs
	CmdVersion     = "VN" // request a firmware version heartbeat comment
)

// AllowedCommands is the outbound command allow-list, in display order for
// the admin send-command page.
var AllowedCommands = []string{
	CmdStreamStart,
	CmdStreamStop,
	CmdPing,
	CmdCalibrate,
	CmdLEDOff,
	CmdVersion,
}

// IsAllowedCommand reports whether code is on the allow-list.
func IsAllowedCommand(code string) bool {
	for _, c := range AllowedCommands {
		if c == code {
			return true
		}
	}
	return false
}
