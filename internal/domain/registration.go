package domain

import "strings"

// Registration is the canonical shape a pending record and its user profile
// normalize into. It is built fresh per synchronization attempt and never
// persisted.
type Registration struct {
	FirstName       string
	SecondName      string
	FarmName        string
	Location        string
	Latitude        float64
	Longitude       float64
	FarmSize        string
	Phone           string
	NormalizedPhone string
	Details         string
	Crops           []string
	Fertilizers     []FertilizerEntry
}

// FullName joins the first and second names, tolerating either being empty.
func (r Registration) FullName() string {
	return strings.TrimSpace(r.FirstName + " " + r.SecondName)
}
