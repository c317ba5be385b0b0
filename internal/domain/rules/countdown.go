package rules

import "time"

type Countdown struct {
	Remaining time.Duration
	Days      int
	Hours     int
	Minutes   int
	Seconds   int
	Revealed  bool
}

func CountdownTo(now, revealAt time.Time) Countdown {
	remaining := revealAt.Sub(now)
	if remaining <= 0 {
		return Countdown{Revealed: true}
	}

	total := int(remaining / time.Second)
	return Countdown{
		Remaining: remaining,
		Days:      total / 86400,
		Hours:     (total % 86400) / 3600,
		Minutes:   (total % 3600) / 60,
		Seconds:   total % 60,
	}
}
