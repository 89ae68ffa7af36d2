package functions

import "github.com/hackgods/patient-appointment-agent/internal/appointment"

const insuranceIDDescription = "The patient's insurance ID. Insurance ID should strictly adhere to this format: ID followed by a 5 digit number, for example ID23345."

func identityParameters() []Parameter {
	return []Parameter{
		String("firstName", "The patient's first name", true),
		String("lastName", "The patient's last name", true),
		String("insuranceId", insuranceIDDescription, true),
	}
}

// PatientArgs addresses a patient by identity only.
type PatientArgs struct {
	FirstName   string `json:"firstName"`
	LastName    string `json:"lastName"`
	InsuranceID string `json:"insuranceId"`
}

func (PatientArgs) Parameters() []Parameter {
	return identityParameters()
}

func (a PatientArgs) identity() appointment.Identity {
	return appointment.Identity{FirstName: a.FirstName, LastName: a.LastName, InsuranceID: a.InsuranceID}
}

type StoreSymptomsArgs struct {
	PatientArgs
	Symptoms []string `json:"symptoms"`
}

func (StoreSymptomsArgs) Parameters() []Parameter {
	return append(identityParameters(),
		Array("symptoms", "The list of patient's symptoms", true, String("symptom", "A symptom described by the patient", false)),
	)
}

type StorePreferredDoctorArgs struct {
	PatientArgs
	PreferredDoctorName string `json:"preferredDoctorName"`
}

func (StorePreferredDoctorArgs) Parameters() []Parameter {
	return append(identityParameters(),
		String("preferredDoctorName", "The patient's preferred doctor's name", true),
	)
}

type StorePreferredTimeSlotsArgs struct {
	PatientArgs
	PreferredAppointmentTimes []string `json:"preferredAppointmentTimes"`
}

func (StorePreferredTimeSlotsArgs) Parameters() []Parameter {
	return append(identityParameters(),
		Array("preferredAppointmentTimes", "The list of patient's preferred appointment times", true,
			String("time", "Date and time in ISO 8601 format, for example 2024-05-01T14:30:00Z", false)),
	)
}

type ScheduleGivenDoctorArgs struct {
	PatientArgs
	DoctorName string `json:"doctorName"`
	TimeSlot   string `json:"timeSlot"`
}

func (ScheduleGivenDoctorArgs) Parameters() []Parameter {
	return append(identityParameters(),
		String("doctorName", "Name of the doctor with whom the patient wants to schedule an appointment", true),
		String("timeSlot", "Time slot in which the patient wants to schedule an appointment with the doctor, in ISO 8601 format.", true),
	)
}
