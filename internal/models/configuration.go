package models

import "strconv"

// ConfigurationType defines supported types for setting values.
type ConfigurationType string

const (
	ConfigurationTypeString  ConfigurationType = "STRING"
	ConfigurationTypeInteger ConfigurationType = "INTEGER"
	ConfigurationTypeTime    ConfigurationType = "TIME"
)

// Setting keys persisted in the settings store.
const (
	SettingClassStartTime       = "class_start_time"
	SettingClassDurationMinutes = "class_duration_minutes"
	SettingClassesPerQuarter    = "classes_per_quarter"
	SettingGraceMinutes         = "grace_minutes"
)

// Configuration is one key/value row of the settings store.
type Configuration struct {
	Key   string            `json:"key"`
	Value string            `json:"value"`
	Type  ConfigurationType `json:"type"`
}

// Settings is the typed view of the schedule settings.
type Settings struct {
	ClassStartTime       string `json:"class_start_time"`
	ClassDurationMinutes int    `json:"class_duration_minutes"`
	ClassesPerQuarter    int    `json:"classes_per_quarter"`
	GraceMinutes         int    `json:"grace_minutes"`
}

// ClassEndTime derives the end of class from start and duration.
func (s Settings) ClassEndTime() string {
	start, ok := ParseTimeOfDay(s.ClassStartTime)
	if !ok {
		return ""
	}
	return start.Add(s.ClassDurationMinutes).Format()
}

// EndsSameDay reports whether class end and the late threshold both fall
// before midnight. Classes never span midnight.
func (s Settings) EndsSameDay() bool {
	start, ok := ParseTimeOfDay(s.ClassStartTime)
	if !ok {
		return false
	}
	return int(start)+max(s.ClassDurationMinutes, s.GraceMinutes) < minutesPerDay
}

// Schedule returns the immutable schedule value passed to each sync.
func (s Settings) Schedule() ClassSchedule {
	return ClassSchedule{
		Start:        s.ClassStartTime,
		End:          s.ClassEndTime(),
		GraceMinutes: s.GraceMinutes,
	}
}

// Values flattens the settings into store rows.
func (s Settings) Values() []Configuration {
	return []Configuration{
		{Key: SettingClassStartTime, Value: s.ClassStartTime, Type: ConfigurationTypeTime},
		{Key: SettingClassDurationMinutes, Value: strconv.Itoa(s.ClassDurationMinutes), Type: ConfigurationTypeInteger},
		{Key: SettingClassesPerQuarter, Value: strconv.Itoa(s.ClassesPerQuarter), Type: ConfigurationTypeInteger},
		{Key: SettingGraceMinutes, Value: strconv.Itoa(s.GraceMinutes), Type: ConfigurationTypeInteger},
	}
}
