package logic

// PumpControl holds the administrative flags of one pump.
type PumpControl struct {
	ScheduleEnabled bool
	ManualOverride  bool
	DesiredOn       bool
}

// NewPumpControl returns the power-on state: schedule enabled, no override, off.
func NewPumpControl() PumpControl {
	return PumpControl{ScheduleEnabled: true}
}

// Decide arbitrates the output of one pump at now.
//
// A manual override returns DesiredOn untouched and ignores the schedule.
// Otherwise a disabled schedule forces the pump off, and an enabled schedule
// turns it on iff now is inside a window. In both of those cases DesiredOn is
// updated to the verdict, so it always reflects the last known state.
func Decide(s Schedule, c *PumpControl, now TimeOfDay) Decision {
	if c.ManualOverride {
		return Decision{On: c.DesiredOn, Reason: ReasonManual}
	}

	var d Decision
	switch {
	case !c.ScheduleEnabled:
		d = Decision{On: false, Reason: ReasonDisabled}
	case s.Active(now):
		d = Decision{On: true, Reason: ReasonSchedule}
	default:
		d = Decision{On: false, Reason: ReasonIdle}
	}
	c.DesiredOn = d.On
	return d
}

// Evaluate is Decide without the reason.
func Evaluate(s Schedule, c *PumpControl, now TimeOfDay) bool {
	return Decide(s, c, now).On
}
