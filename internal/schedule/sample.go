package schedule

import "meetcal/internal/model"

// SampleCatalogue is the reference workload: two external commitments and
// nine recurring meetings for a project lead.
func SampleCatalogue() Catalogue {
	oneToOneTimes := []string{"10:00", "10:30", "11:00", "11:30", "13:00", "13:30"}
	return Catalogue{
		Reservations: []model.ReservationSpec{
			{Day: "Monday", Start: "14:00", Minutes: 60, Source: "sample"},
			{Day: "Wednesday", Start: "15:00", Minutes: 30, Source: "sample"},
		},
		Meetings: []model.MeetingSpec{
			{Name: "One-to-one with Ian", Category: "one-to-one", Minutes: 30, Preferred: oneToOneTimes, Recurrence: "weekly"},
			{Name: "One-to-one with Fari", Category: "one-to-one", Minutes: 30, Preferred: oneToOneTimes, Recurrence: "weekly"},
			{Name: "One-to-one with Perith", Category: "one-to-one", Minutes: 30, Preferred: oneToOneTimes, Recurrence: "weekly"},
			{Name: "Rotating one-to-one", Category: "one-to-one", Minutes: 30, Recurrence: "weekly"},
			{Name: "Weekly Management", Category: "management", Minutes: 60, FixedDay: "Tuesday", Recurrence: "weekly"},
			{Name: "Project All-hands", Category: "management", Minutes: 60, Preferred: []string{"11:00", "11:30"}, FixedDay: "Wednesday", Recurrence: "weekly"},
			{Name: "BIM Review", Category: "management", Minutes: 60, Recurrence: "fortnightly"},
			{Name: "Client Update", Category: "client update", Minutes: 90, Recurrence: "monthly"},
			{Name: "Contractor Update", Category: "client update", Minutes: 60, FixedDay: "Thursday", Recurrence: "weekly"},
		},
	}
}
