package appointment

import (
	"encoding/json"
	"time"
)

// Identity is the (first name, last name, insurance id) triple every
// workflow operation is addressed by.
type Identity struct {
	FirstName   string `json:"firstName"`
	LastName    string `json:"lastName"`
	InsuranceID string `json:"insuranceId"`
}

// Record holds the appointment state of one registered patient.
type Record struct {
	Symptoms                  []string    `json:"symptoms"`
	PreferredDoctorName       string      `json:"preferredDoctorName"`
	PreferredAppointmentTimes []time.Time `json:"preferredAppointmentTimes"`
	ScheduledDoctorName       string      `json:"scheduledDoctorName"`
	ScheduledAppointmentTime  *time.Time  `json:"scheduledAppointmentTime"`
}

// clone returns a deep copy so callers never alias registry memory.
func (r *Record) clone() Record {
	out := Record{
		PreferredDoctorName: r.PreferredDoctorName,
		ScheduledDoctorName: r.ScheduledDoctorName,
	}
	if r.Symptoms != nil {
		out.Symptoms = append([]string(nil), r.Symptoms...)
	}
	if r.PreferredAppointmentTimes != nil {
		out.PreferredAppointmentTimes = append([]time.Time(nil), r.PreferredAppointmentTimes...)
	}
	if r.ScheduledAppointmentTime != nil {
		t := *r.ScheduledAppointmentTime
		out.ScheduledAppointmentTime = &t
	}
	return out
}

// AlternateOffer is a doctor the patient could see instead, with candidate slots.
type AlternateOffer struct {
	DoctorName string      `json:"alternateDoctorName"`
	TimeSlots  []time.Time `json:"alternatePreferredTimeSlots"`
}

// Result is the payload of a successful (or partially successful) operation.
// The concrete variants are BoolResult, RecordResult, OffersResult and
// IdentityResult; a nil Result means no payload.
type Result interface {
	isResult()
}

type (
	BoolResult     bool
	RecordResult   Record
	OffersResult   []AlternateOffer
	IdentityResult Identity
)

func (BoolResult) isResult()     {}
func (RecordResult) isResult()   {}
func (OffersResult) isResult()   {}
func (IdentityResult) isResult() {}

// Response is the envelope returned to the AI agent. Error is empty on
// success. A few precondition failures still carry the current record so the
// agent can see what is missing.
type Response struct {
	Error  string
	Result Result
}

// Failed reports whether the operation produced an error message.
func (r Response) Failed() bool {
	return r.Error != ""
}

// MarshalJSON renders the wire shape {"errorResponse": ..., "functionResult": ...}.
func (r Response) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		ErrorResponse  string `json:"errorResponse"`
		FunctionResult Result `json:"functionResult"`
	}{
		ErrorResponse:  r.Error,
		FunctionResult: r.Result,
	})
}

func fail(msg string) Response {
	return Response{Error: msg}
}

func failWithRecord(msg string, rec Record) Response {
	return Response{Error: msg, Result: RecordResult(rec)}
}

func ok(result Result) Response {
	return Response{Result: result}
}
