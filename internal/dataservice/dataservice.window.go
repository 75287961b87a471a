package dataservice

import (
	"github.com/ChilliBits/particulate-matter-api/internal/errors"
)

// Window is a closed interval [From, To] in milliseconds since the Unix epoch.
type Window struct {
	From int64
	To   int64
}

// NormalizeWindow turns raw from/to inputs into a canonical window. A zero
// input is unspecified: to defaults to nowMs, from to windowMs before to.
// A defaulted from is clamped at 0.
func NormalizeWindow(fromRaw, toRaw, nowMs, windowMs int64) (Window, error) {
	if fromRaw < 0 || toRaw < 0 || (fromRaw != 0 && toRaw != 0 && fromRaw > toRaw) {
		return Window{}, errors.NewInvalidTimeRangeError(fromRaw, toRaw)
	}

	to := toRaw
	if to == 0 {
		to = nowMs
	}
	from := fromRaw
	if from == 0 {
		from = max(to-windowMs, 0)
	}
	return Window{From: from, To: to}, nil
}

// Window normalizes from/to against the service clock and default window.
func (s *DataService) Window(fromRaw, toRaw int64) (Window, error) {
	return NormalizeWindow(fromRaw, toRaw, s.nowMs(), s.cfg.DefaultWindow.Milliseconds())
}
