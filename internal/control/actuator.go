package control

// Switch is the binary heater output.
type Switch interface {
	On() error
	Off() error
}

// Binarize maps a PID command to a heater state: on iff command > 0.
func Binarize(command float64) bool {
	return command > 0
}

// Drive applies the binarized command to sw and reports the resulting state.
func Drive(sw Switch, command float64) (bool, error) {
	on := Binarize(command)
	if on {
		return true, sw.On()
	}
	return false, sw.Off()
}
