package domain

// ScheduleEntry is a recurring wall-clock check time
type ScheduleEntry struct {
	CronTime string
	Label    string
}

// DefaultSchedule returns the daily check times, in the bot's local time zone
func DefaultSchedule() []ScheduleEntry {
	return []ScheduleEntry{
		{CronTime: "0 9 * * *", Label: "09:00"},
		{CronTime: "0 14 * * *", Label: "14:00"},
		{CronTime: "0 18 * * *", Label: "18:00"},
		{CronTime: "0 21 * * *", Label: "21:00"},
		{CronTime: "0 23 * * *", Label: "23:00"},
	}
}
