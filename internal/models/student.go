package models

// Student is the roster view of an attendance record.
type Student struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Photo        string `json:"photo"`
	Attended     int    `json:"attended"`
	ClassesTotal int    `json:"classes_total"`
}

// StudentFilter narrows roster listings.
type StudentFilter struct {
	Search   string
	Page     int
	PageSize int
}
