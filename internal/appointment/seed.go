package appointment

import "time"

// SeedDemoPatients registers the two demo patients used in walkthroughs. It
// returns how many records were newly created.
func SeedDemoPatients(registry *Registry) int {
	seeds := []struct {
		id  Identity
		rec Record
	}{
		{
			id: Identity{FirstName: "John", LastName: "Doe", InsuranceID: "ID12345"},
			rec: Record{
				Symptoms:            []string{"headache", "fever"},
				PreferredDoctorName: "Dr. Bob Seuss",
				PreferredAppointmentTimes: []time.Time{
					time.Date(2023, 10, 1, 10, 0, 0, 0, time.UTC),
					time.Date(2023, 10, 1, 11, 0, 0, 0, time.UTC),
					time.Date(2023, 10, 1, 12, 0, 0, 0, time.UTC),
				},
				ScheduledDoctorName:      "Dr. Bob Seuss",
				ScheduledAppointmentTime: timePtr(time.Date(2023, 10, 1, 12, 0, 0, 0, time.UTC)),
			},
		},
		{
			id: Identity{FirstName: "Jane", LastName: "Doe", InsuranceID: "ID45678"},
			rec: Record{
				Symptoms:            []string{"itchy eyes", "redness"},
				PreferredDoctorName: "Dr. Bob Seuss",
				PreferredAppointmentTimes: []time.Time{
					time.Date(2023, 9, 10, 10, 0, 0, 0, time.UTC),
					time.Date(2023, 9, 10, 14, 0, 0, 0, time.UTC),
					time.Date(2023, 9, 10, 16, 0, 0, 0, time.UTC),
				},
				ScheduledDoctorName:      "Dr. Ong",
				ScheduledAppointmentTime: timePtr(time.Date(2023, 9, 10, 14, 0, 0, 0, time.UTC)),
			},
		},
	}

	created := 0
	for _, seed := range seeds {
		key := seed.id.Key()
		if !registry.TryRegister(key) {
			continue
		}
		rec := seed.rec
		registry.Update(key, func(r *Record) {
			*r = rec.clone()
		})
		created++
	}
	return created
}

func timePtr(t time.Time) *time.Time {
	return &t
}
