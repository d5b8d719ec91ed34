package scheduling

import "time"

// Default daily template: 09:00-18:00 in 30-minute slots, with a lunch
// break 13:00-14:00 and a snack break 16:00-16:30. A slot is suppressed
// when its start minute falls inside a break; partially overlapping slots
// are dropped, never truncated.
const (
	workdayStartMinute = 9 * 60
	workdayEndMinute   = 18 * 60

	// DefaultSlotMinutes is the template slot length and the fallback
	// appointment duration.
	DefaultSlotMinutes = 30
)

type breakWindow struct {
	startMinute int // inclusive
	endMinute   int // exclusive
}

var breakWindows = []breakWindow{
	{13 * 60, 14 * 60},      // lunch
	{16 * 60, 16*60 + 30},   // snack
}

// GenerateDefaultSlots produces the ordered candidate intervals for the
// given calendar day. The time-of-day of date is ignored; slots are built
// in date's location. Pure: same date in, same slots out.
func GenerateDefaultSlots(date time.Time) []TimeSlot {
	midnight := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, date.Location())

	var slots []TimeSlot
	for minute := workdayStartMinute; minute < workdayEndMinute; minute += DefaultSlotMinutes {
		if inBreak(minute) {
			continue
		}
		end := minute + DefaultSlotMinutes
		if end > workdayEndMinute {
			break
		}
		slots = append(slots, TimeSlot{
			StartTime: midnight.Add(time.Duration(minute) * time.Minute),
			EndTime:   midnight.Add(time.Duration(end) * time.Minute),
			IsBooked:  false,
		})
	}
	return slots
}

func inBreak(minuteOfDay int) bool {
	for _, b := range breakWindows {
		if minuteOfDay >= b.startMinute && minuteOfDay < b.endMinute {
			return true
		}
	}
	return false
}
