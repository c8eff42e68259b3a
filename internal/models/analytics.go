package models

import "time"

// WeekStat is one bar of the quarter chart.
type WeekStat struct {
	Label   string `json:"label"`
	Present int    `json:"present"`
	Absent  int    `json:"absent"`
}

// QuarterStats feeds the dashboard analytics card.
type QuarterStats struct {
	NumberOfStudents     int        `json:"number_of_students"`
	TotalPresent         int        `json:"total_present"`
	TotalAbsent          int        `json:"total_absent"`
	PresentPercent       int        `json:"present_percent"`
	Weeks                []WeekStat `json:"weeks"`
	ClassDurationMinutes int        `json:"class_duration_minutes"`
}

// StatusBreakdown counts today's statuses.
type StatusBreakdown struct {
	Present  int `json:"present"`
	Late     int `json:"late"`
	Absent   int `json:"absent"`
	Unsynced int `json:"unsynced"`
}

// LateThreshold is the "late after" banner shown above the attendance table.
type LateThreshold struct {
	ClassStart   string `json:"class_start"`
	ClassEnd     string `json:"class_end"`
	GraceMinutes int    `json:"grace_minutes"`
	LateAfter    string `json:"late_after"`
	Label        string `json:"label"`
}

// SystemMetrics is a lightweight snapshot of process counters.
type SystemMetrics struct {
	RequestsTotal            uint64    `json:"requests_total"`
	AverageRequestDurationMs float64   `json:"average_request_duration_ms"`
	SyncRuns                 uint64    `json:"sync_runs"`
	CacheHits                uint64    `json:"cache_hits"`
	CacheMisses              uint64    `json:"cache_misses"`
	CacheHitRatio            float64   `json:"cache_hit_ratio"`
	Goroutines               int       `json:"goroutines"`
	GeneratedAt              time.Time `json:"generated_at"`
}
