package appointment

import (
	"strings"
	"time"

	"github.com/hackgods/patient-appointment-agent/pkg/logging"
)

// Error messages read by the AI agent to decide its next step.
const (
	msgRequiredEmpty   = "One or more of the required parameters are empty."
	msgInsuranceFormat = "Insurance ID is not in the correct format. It should be ID followed by 5 digits."
	msgNotRegistered   = "Patient is not registered in the system yet."
	msgTimeSlotFormat  = "Date time should be in the ISO 8601 format YYYY-MM-DDTHH:MM:SS, optionally with a UTC offset, for example 2024-05-01T14:30:00Z."
	prefixRegistration = "Patient registration failed. "
	prefixRetrieve     = "Could not retrieve patient registration. "

	MsgSymptomsMissing   = "Patient symptoms are not gathered yet."
	MsgDoctorUnavailable = "Preferred doctor is not available during preferred time slots."
)

type Service struct {
	registry *Registry
	policy   AvailabilityPolicy
	logger   *logging.Logger
	now      func() time.Time
	loc      *time.Location
}

type Option func(*Service)

// WithClock replaces time.Now, used to generate alternate offers.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithLocation sets the location for date-times given without an offset.
func WithLocation(loc *time.Location) Option {
	return func(s *Service) { s.loc = loc }
}

func WithLogger(logger *logging.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func NewService(registry *Registry, policy AvailabilityPolicy, opts ...Option) *Service {
	s := &Service{
		registry: registry,
		policy:   policy,
		now:      time.Now,
		loc:      time.UTC,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.policy == nil {
		s.policy = DemoAvailability{}
	}
	if s.logger == nil {
		s.logger = logging.Default()
	}
	return s
}

// Registry exposes the underlying registry, used for metrics.
func (s *Service) Registry() *Registry {
	return s.registry
}

// validateIdentity runs the shared identity checks. The returned message is empty
// when both pass.
func validateIdentity(id Identity, prefix string) string {
	if id.FirstName == "" || id.LastName == "" || id.InsuranceID == "" {
		return prefix + msgRequiredEmpty
	}
	if !IsInsuranceIDValid(id.InsuranceID) {
		return prefix + msgInsuranceFormat
	}
	return ""
}

// registered validates id and looks up its record.
func (s *Service) registered(id Identity) (Key, Record, string) {
	if msg := validateIdentity(id, prefixRegistration); msg != "" {
		return "", Record{}, msg
	}
	key := id.Key()
	rec, found := s.registry.Get(key)
	if !found {
		return "", Record{}, msgNotRegistered
	}
	return key, rec, ""
}

// CheckIfPatientRegistered reports whether the patient is registered.
func (s *Service) CheckIfPatientRegistered(id Identity) Response {
	if msg := validateIdentity(id, prefixRegistration); msg != "" {
		return fail(msg)
	}
	return ok(BoolResult(s.registry.Contains(id.Key())))
}

// RetrievePatientRegistrationInfo returns the patient's full record.
func (s *Service) RetrievePatientRegistrationInfo(id Identity) Response {
	if msg := validateIdentity(id, prefixRetrieve); msg != "" {
		return fail(msg)
	}
	rec, found := s.registry.Get(id.Key())
	if !found {
		return fail("The patient is not registered yet.")
	}
	return ok(RecordResult(rec))
}

// RegisterPatient creates an empty record for the patient. Registering an
// already registered patient succeeds and keeps the stored record.
func (s *Service) RegisterPatient(id Identity) Response {
	if msg := validateIdentity(id, prefixRegistration); msg != "" {
		return fail(msg)
	}
	if s.registry.TryRegister(id.Key()) {
		s.logger.Debug("patient registered", "key", string(id.Key()))
	}
	return ok(IdentityResult(id))
}

// StoreSymptoms replaces the patient's symptoms.
func (s *Service) StoreSymptoms(id Identity, symptoms []string) Response {
	key, _, msg := s.registered(id)
	if msg != "" {
		return fail(msg)
	}
	if len(symptoms) == 0 {
		return fail("Symptoms are empty. Ask patient to provide list of symptoms.")
	}
	stored := append([]string(nil), symptoms...)
	rec, _ := s.registry.Update(key, func(r *Record) {
		r.Symptoms = stored
	})
	return ok(RecordResult(rec))
}

// StorePreferredDoctorDetails sets the preferred doctor. When symptoms have not
// been gathered yet the doctor is still stored and the record is returned
// together with a warning.
func (s *Service) StorePreferredDoctorDetails(id Identity, preferredDoctorName string) Response {
	key, _, msg := s.registered(id)
	if msg != "" {
		return fail(msg)
	}
	if strings.TrimSpace(preferredDoctorName) == "" {
		return fail("Preferred doctor name is empty.")
	}
	rec, _ := s.registry.Update(key, func(r *Record) {
		r.PreferredDoctorName = preferredDoctorName
	})
	if len(rec.Symptoms) == 0 {
		return failWithRecord("Preferred doctor details are stored, but patient symptoms are not gathered yet.", rec)
	}
	return ok(RecordResult(rec))
}

// StorePreferredTimeSlots replaces the preferred appointment times. Either
// every slot parses and the whole list is stored, or nothing changes.
func (s *Service) StorePreferredTimeSlots(id Identity, preferredTimeSlots []string) Response {
	key, rec, msg := s.registered(id)
	if msg != "" {
		return fail(msg)
	}
	if len(rec.Symptoms) == 0 {
		return failWithRecord(MsgSymptomsMissing, rec)
	}
	if len(preferredTimeSlots) == 0 {
		return failWithRecord("Preferred time slots are empty.", rec)
	}

	times := make([]time.Time, 0, len(preferredTimeSlots))
	for _, slot := range preferredTimeSlots {
		t, parsed := ParseTimeSlot(slot, s.loc)
		if !parsed {
			return failWithRecord("Could not parse availability time provided. "+msgTimeSlotFormat, rec)
		}
		times = append(times, t)
	}

	rec, _ = s.registry.Update(key, func(r *Record) {
		r.PreferredAppointmentTimes = times
	})
	return ok(RecordResult(rec))
}

// CheckPreferredDoctorAvailabilityAndScheduleVisit books the preferred doctor
// at the first preferred time when the doctor is available, and otherwise
// returns alternate offers alongside an error.
func (s *Service) CheckPreferredDoctorAvailabilityAndScheduleVisit(id Identity) Response {
	_, rec, msg := s.registered(id)
	if msg != "" {
		return fail(msg)
	}
	if strings.TrimSpace(rec.PreferredDoctorName) == "" {
		return fail("Required parameter - preferred doctor name is empty.")
	}
	if len(rec.PreferredAppointmentTimes) == 0 {
		return fail("Preferred availability times are required and is not provided yet.")
	}

	if !s.policy.Available(rec.PreferredDoctorName) {
		return Response{
			Error:  MsgDoctorUnavailable,
			Result: OffersResult(s.policy.Alternatives(s.now())),
		}
	}

	first := rec.PreferredAppointmentTimes[0]
	resp := s.ScheduleAppointmentWithAGivenDoctor(id, rec.PreferredDoctorName, first.Format(time.RFC3339Nano))
	if resp.Failed() {
		return fail(resp.Error)
	}
	return resp
}

// ScheduleAppointmentWithAGivenDoctor books doctorName at timeSlot.
func (s *Service) ScheduleAppointmentWithAGivenDoctor(id Identity, doctorName, timeSlot string) Response {
	if strings.TrimSpace(doctorName) == "" {
		return fail("Required parameter - doctor name is empty.")
	}
	if strings.TrimSpace(timeSlot) == "" {
		return fail("Required parameter - time slot is empty.")
	}
	at, parsed := ParseTimeSlot(timeSlot, s.loc)
	if !parsed {
		return fail("Could not parse time slot provided. " + msgTimeSlotFormat)
	}

	key, rec, msg := s.registered(id)
	if msg != "" {
		return fail(msg)
	}
	if len(rec.Symptoms) == 0 {
		return failWithRecord(MsgSymptomsMissing, rec)
	}

	rec, _ = s.registry.Update(key, func(r *Record) {
		r.ScheduledDoctorName = doctorName
		r.ScheduledAppointmentTime = &at
	})
	s.logger.Info("appointment scheduled", "key", string(key), "doctor", doctorName, "time", at)
	return ok(RecordResult(rec))
}

// ScheduleAppointmentWithOnCallDoctor books the on-call doctor at the
// patient's first preferred time.
func (s *Service) ScheduleAppointmentWithOnCallDoctor(id Identity) Response {
	key, rec, msg := s.registered(id)
	if msg != "" {
		return fail(msg)
	}
	if len(rec.PreferredAppointmentTimes) == 0 {
		return failWithRecord("Preferred availability times are empty.", rec)
	}

	at := rec.PreferredAppointmentTimes[0]
	rec, _ = s.registry.Update(key, func(r *Record) {
		r.ScheduledDoctorName = OnCallDoctorName
		r.ScheduledAppointmentTime = &at
	})
	s.logger.Info("appointment scheduled", "key", string(key), "doctor", OnCallDoctorName, "time", at)
	return ok(RecordResult(rec))
}
