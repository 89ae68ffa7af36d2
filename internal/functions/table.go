package functions

import (
	"errors"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/hackgods/patient-appointment-agent/internal/appointment"
)

const (
	CheckIfPatientRegistered                         = "CheckIfPatientRegistered"
	RetrievePatientRegistrationInfo                  = "RetrievePatientRegistrationInfo"
	RegisterPatient                                  = "RegisterPatient"
	StoreSymptoms                                    = "StoreSymptoms"
	StorePreferredDoctorDetails                      = "StorePreferredDoctorDetails"
	StorePreferredTimeSlots                          = "StorePreferredTimeSlots"
	CheckPreferredDoctorAvailabilityAndScheduleVisit = "CheckPreferredDoctorAvailabilityAndScheduleVisit"
	ScheduleAppointmentWithAGivenDoctor              = "ScheduleAppointmentWithAGivenDoctor"
	ScheduleAppointmentWithOnCallDoctor              = "ScheduleAppointmentWithOnCallDoctor"
)

// DefaultEnabled lists the functions published to the AI agent unless
// configured otherwise.
var DefaultEnabled = []string{RetrievePatientRegistrationInfo, RegisterPatient}

// Names lists every bindable function in table order.
var Names = []string{
	CheckIfPatientRegistered,
	RetrievePatientRegistrationInfo,
	RegisterPatient,
	StoreSymptoms,
	StorePreferredDoctorDetails,
	StorePreferredTimeSlots,
	CheckPreferredDoctorAvailabilityAndScheduleVisit,
	ScheduleAppointmentWithAGivenDoctor,
	ScheduleAppointmentWithOnCallDoctor,
}

var ErrUnknownFunction = errors.New("unknown function")

// Known reports whether name is one of Names.
func Known(name string) bool {
	for _, n := range Names {
		if n == name {
			return true
		}
	}
	return false
}

// Workflow is the set of appointment operations the table dispatches to.
type Workflow interface {
	CheckIfPatientRegistered(id appointment.Identity) appointment.Response
	RetrievePatientRegistrationInfo(id appointment.Identity) appointment.Response
	RegisterPatient(id appointment.Identity) appointment.Response
	StoreSymptoms(id appointment.Identity, symptoms []string) appointment.Response
	StorePreferredDoctorDetails(id appointment.Identity, preferredDoctorName string) appointment.Response
	StorePreferredTimeSlots(id appointment.Identity, preferredTimeSlots []string) appointment.Response
	CheckPreferredDoctorAvailabilityAndScheduleVisit(id appointment.Identity) appointment.Response
	ScheduleAppointmentWithAGivenDoctor(id appointment.Identity, doctorName, timeSlot string) appointment.Response
	ScheduleAppointmentWithOnCallDoctor(id appointment.Identity) appointment.Response
}

// Binding ties a published function description to the operation it invokes.
type Binding struct {
	function Function
	schema   *jsonschema.Schema
	call     func(text string) (appointment.Response, error)
}

func (b *Binding) Function() Function {
	return b.function
}

// Call extracts typed arguments from text and runs the operation. Extraction
// failures are returned as errors and the operation is not run.
func (b *Binding) Call(text string) (appointment.Response, error) {
	return b.call(text)
}

func bind[T Arguments](name, description string, op func(T) appointment.Response) (*Binding, error) {
	params := Describe[T]()
	schema, err := compileSchema(name, params)
	if err != nil {
		return nil, fmt.Errorf("function %s: %w", name, err)
	}
	return &Binding{
		function: Function{Name: name, Description: description, Parameters: params},
		schema:   schema,
		call: func(text string) (appointment.Response, error) {
			args, err := Extract[T](text, schema)
			if err != nil {
				return appointment.Response{}, err
			}
			return op(args), nil
		},
	}, nil
}

// Table maps function names to bindings. Every workflow operation is bound;
// only the enabled subset is published.
type Table struct {
	bindings map[string]*Binding
	order    []string
	enabled  map[string]bool
}

// NewTable binds every operation of w and publishes the functions named in
// enabled, in table order.
func NewTable(w Workflow, enabled []string) (*Table, error) {
	builders := []func() (*Binding, error){
		func() (*Binding, error) {
			return bind(CheckIfPatientRegistered,
				"Checks if the patient is already registered. The function returns true or false or an error message if there was an error.",
				func(a PatientArgs) appointment.Response { return w.CheckIfPatientRegistered(a.identity()) })
		},
		func() (*Binding, error) {
			return bind(RetrievePatientRegistrationInfo,
				"Retrieves the patient's registration details. If found, the function returns the registered patient details, else an error message.",
				func(a PatientArgs) appointment.Response { return w.RetrievePatientRegistrationInfo(a.identity()) })
		},
		func() (*Binding, error) {
			return bind(RegisterPatient,
				"Registers a new patient. If successful, the function returns the registered patient details, else an error message.",
				func(a PatientArgs) appointment.Response { return w.RegisterPatient(a.identity()) })
		},
		func() (*Binding, error) {
			return bind(StoreSymptoms,
				"Stores symptoms from the patient. If successful, the function returns the registered patient details, else an error message.",
				func(a StoreSymptomsArgs) appointment.Response { return w.StoreSymptoms(a.identity(), a.Symptoms) })
		},
		func() (*Binding, error) {
			return bind(StorePreferredDoctorDetails,
				"Stores the patient's preferred doctor's name. If successful, the function returns the registered patient details, else an error message.",
				func(a StorePreferredDoctorArgs) appointment.Response {
					return w.StorePreferredDoctorDetails(a.identity(), a.PreferredDoctorName)
				})
		},
		func() (*Binding, error) {
			return bind(StorePreferredTimeSlots,
				"Stores preferred appointment time slots as a list of ISO 8601 date-time strings from the patient. If successful, the function returns the registered patient details, else an error message.",
				func(a StorePreferredTimeSlotsArgs) appointment.Response {
					return w.StorePreferredTimeSlots(a.identity(), a.PreferredAppointmentTimes)
				})
		},
		func() (*Binding, error) {
			return bind(CheckPreferredDoctorAvailabilityAndScheduleVisit,
				"Checks if the preferred doctor is available during any of the patient's preferred time slots. If available, it schedules the appointment and returns the appointment details. If not available, it returns a list of alternate doctors and time slots.",
				func(a PatientArgs) appointment.Response {
					return w.CheckPreferredDoctorAvailabilityAndScheduleVisit(a.identity())
				})
		},
		func() (*Binding, error) {
			return bind(ScheduleAppointmentWithAGivenDoctor,
				"Schedules an appointment with the given doctor in the given time slot and returns the appointment details.",
				func(a ScheduleGivenDoctorArgs) appointment.Response {
					return w.ScheduleAppointmentWithAGivenDoctor(a.identity(), a.DoctorName, a.TimeSlot)
				})
		},
		func() (*Binding, error) {
			return bind(ScheduleAppointmentWithOnCallDoctor,
				"Schedules an appointment with the on-call doctor during one of the patient's preferred time slot. If successful, the function returns the appointment details, else an error message.",
				func(a PatientArgs) appointment.Response { return w.ScheduleAppointmentWithOnCallDoctor(a.identity()) })
		},
	}

	t := &Table{
		bindings: make(map[string]*Binding, len(builders)),
		enabled:  make(map[string]bool, len(enabled)),
	}
	for _, build := range builders {
		b, err := build()
		if err != nil {
			return nil, err
		}
		name := b.function.Name
		t.bindings[name] = b
		t.order = append(t.order, name)
	}
	for _, name := range enabled {
		if _, ok := t.bindings[name]; !ok {
			return nil, fmt.Errorf("enable %q: %w", name, ErrUnknownFunction)
		}
		t.enabled[name] = true
	}
	return t, nil
}

// ListCallableFunctions returns the published functions in table order.
func (t *Table) ListCallableFunctions() []Function {
	out := make([]Function, 0, len(t.enabled))
	for _, name := range t.order {
		if t.enabled[name] {
			out = append(out, t.bindings[name].function)
		}
	}
	return out
}

// SchemaDocument is a published function with its parameters as JSON Schema.
type SchemaDocument struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

// Schemas returns the published functions with JSON Schema parameters.
func (t *Table) Schemas() []SchemaDocument {
	fns := t.ListCallableFunctions()
	out := make([]SchemaDocument, 0, len(fns))
	for _, fn := range fns {
		out = append(out, SchemaDocument{
			Name:        fn.Name,
			Description: fn.Description,
			Parameters:  JSONSchema(fn.Parameters),
		})
	}
	return out
}

// Enabled reports whether name is published to the AI agent.
func (t *Table) Enabled(name string) bool {
	return t.enabled[name]
}

// Resolve finds the binding for name, published or not.
func (t *Table) Resolve(name string) (*Binding, error) {
	b, ok := t.bindings[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownFunction, name)
	}
	return b, nil
}

// Invoke resolves name and calls it with the raw argument text.
func (t *Table) Invoke(name, arguments string) (appointment.Response, error) {
	b, err := t.Resolve(name)
	if err != nil {
		return appointment.Response{}, err
	}
	return b.Call(arguments)
}
