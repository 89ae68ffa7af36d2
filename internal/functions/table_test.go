package functions

import (
	"encoding/json"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hackgods/patient-appointment-agent/internal/appointment"
	"github.com/hackgods/patient-appointment-agent/pkg/logging"
)

// recordingWorkflow counts calls and remembers the last arguments.
type recordingWorkflow struct {
	calls    map[string]int
	lastID   appointment.Identity
	lastArgs []string
}

func newRecordingWorkflow() *recordingWorkflow {
	return &recordingWorkflow{calls: map[string]int{}}
}

func (w *recordingWorkflow) hit(name string, id appointment.Identity, args ...string) appointment.Response {
	w.calls[name]++
	w.lastID = id
	w.lastArgs = args
	return appointment.Response{Result: appointment.BoolResult(true)}
}

func (w *recordingWorkflow) CheckIfPatientRegistered(id appointment.Identity) appointment.Response {
	return w.hit(CheckIfPatientRegistered, id)
}

func (w *recordingWorkflow) RetrievePatientRegistrationInfo(id appointment.Identity) appointment.Response {
	return w.hit(RetrievePatientRegistrationInfo, id)
}

func (w *recordingWorkflow) RegisterPatient(id appointment.Identity) appointment.Response {
	return w.hit(RegisterPatient, id)
}

func (w *recordingWorkflow) StoreSymptoms(id appointment.Identity, symptoms []string) appointment.Response {
	return w.hit(StoreSymptoms, id, symptoms...)
}

func (w *recordingWorkflow) StorePreferredDoctorDetails(id appointment.Identity, name string) appointment.Response {
	return w.hit(StorePreferredDoctorDetails, id, name)
}

func (w *recordingWorkflow) StorePreferredTimeSlots(id appointment.Identity, slots []string) appointment.Response {
	return w.hit(StorePreferredTimeSlots, id, slots...)
}

func (w *recordingWorkflow) CheckPreferredDoctorAvailabilityAndScheduleVisit(id appointment.Identity) appointment.Response {
	return w.hit(CheckPreferredDoctorAvailabilityAndScheduleVisit, id)
}

func (w *recordingWorkflow) ScheduleAppointmentWithAGivenDoctor(id appointment.Identity, doctor, slot string) appointment.Response {
	return w.hit(ScheduleAppointmentWithAGivenDoctor, id, doctor, slot)
}

func (w *recordingWorkflow) ScheduleAppointmentWithOnCallDoctor(id appointment.Identity) appointment.Response {
	return w.hit(ScheduleAppointmentWithOnCallDoctor, id)
}

const janeArgs = `{"firstName":"Jane","lastName":"Roe","insuranceId":"ID45678"}`

func newServiceTable(t *testing.T, enabled []string) *Table {
	t.Helper()
	svc := appointment.NewService(appointment.NewRegistry(), appointment.DemoAvailability{},
		appointment.WithClock(func() time.Time { return time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC) }),
		appointment.WithLogger(logging.NewWithWriter(io.Discard, "error")),
	)
	table, err := NewTable(svc, enabled)
	require.NoError(t, err)
	return table
}

func TestListCallableFunctionsDefault(t *testing.T) {
	table, err := NewTable(newRecordingWorkflow(), DefaultEnabled)
	require.NoError(t, err)

	fns := table.ListCallableFunctions()
	require.Len(t, fns, 2)
	assert.Equal(t, RetrievePatientRegistrationInfo, fns[0].Name)
	assert.Equal(t, RegisterPatient, fns[1].Name)

	names := []string{}
	for _, p := range fns[1].Parameters {
		names = append(names, p.Name)
		assert.True(t, p.IsRequired)
		assert.Equal(t, TypeString, p.Type)
	}
	assert.Equal(t, []string{"firstName", "lastName", "insuranceId"}, names)

	assert.True(t, table.Enabled(RegisterPatient))
	assert.False(t, table.Enabled(StoreSymptoms))
}

func TestListCallableFunctionsKeepsTableOrder(t *testing.T) {
	table, err := NewTable(newRecordingWorkflow(), []string{ScheduleAppointmentWithOnCallDoctor, StoreSymptoms, CheckIfPatientRegistered})
	require.NoError(t, err)

	fns := table.ListCallableFunctions()
	require.Len(t, fns, 3)
	assert.Equal(t, CheckIfPatientRegistered, fns[0].Name)
	assert.Equal(t, StoreSymptoms, fns[1].Name)
	assert.Equal(t, ScheduleAppointmentWithOnCallDoctor, fns[2].Name)

	symptoms := fns[1].Parameters[3]
	assert.Equal(t, TypeArray, symptoms.Type)
	require.NotNil(t, symptoms.ArrayItem)
	assert.Equal(t, TypeString, symptoms.ArrayItem.Type)
}

func TestNewTableRejectsUnknownEnabledName(t *testing.T) {
	_, err := NewTable(newRecordingWorkflow(), []string{"CancelAppointment"})
	assert.ErrorIs(t, err, ErrUnknownFunction)
}

func TestSchemas(t *testing.T) {
	table, err := NewTable(newRecordingWorkflow(), []string{StorePreferredTimeSlots})
	require.NoError(t, err)

	docs := table.Schemas()
	require.Len(t, docs, 1)
	assert.Equal(t, StorePreferredTimeSlots, docs[0].Name)
	assert.Equal(t, "object", docs[0].Parameters["type"])
	assert.Equal(t, []string{"firstName", "lastName", "insuranceId", "preferredAppointmentTimes"}, docs[0].Parameters["required"])
}

func TestInvokeUnknownFunction(t *testing.T) {
	table, err := NewTable(newRecordingWorkflow(), nil)
	require.NoError(t, err)

	_, err = table.Invoke("CancelAppointment", janeArgs)
	assert.ErrorIs(t, err, ErrUnknownFunction)
}

func TestInvokeRoutesArguments(t *testing.T) {
	w := newRecordingWorkflow()
	table, err := NewTable(w, nil)
	require.NoError(t, err)

	resp, err := table.Invoke(ScheduleAppointmentWithAGivenDoctor,
		`Here you go: {"firstName":"Jane","lastName":"Roe","insuranceId":"ID45678","doctorName":"Dr. Sam Smith","timeSlot":"2024-05-02T09:00:00Z"}`)
	require.NoError(t, err)
	assert.False(t, resp.Failed())
	assert.Equal(t, 1, w.calls[ScheduleAppointmentWithAGivenDoctor])
	assert.Equal(t, appointment.Identity{FirstName: "Jane", LastName: "Roe", InsuranceID: "ID45678"}, w.lastID)
	assert.Equal(t, []string{"Dr. Sam Smith", "2024-05-02T09:00:00Z"}, w.lastArgs)
}

func TestInvokeInvalidArgumentsSkipsOperation(t *testing.T) {
	w := newRecordingWorkflow()
	table, err := NewTable(w, DefaultEnabled)
	require.NoError(t, err)

	tests := []struct {
		name string
		text string
	}{
		{"no object", "register Jane please"},
		{"malformed", `{"firstName": Jane}`},
		{"missing required", `{"firstName":"Jane","lastName":"Roe"}`},
		{"wrong type", `{"firstName":"Jane","lastName":"Roe","insuranceId":45678}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := table.Invoke(RegisterPatient, tt.text)
			assert.ErrorIs(t, err, ErrInvalidArguments)
		})
	}
	assert.Zero(t, w.calls[RegisterPatient])
}

func TestInvokeAcceptsCapitalizedKeys(t *testing.T) {
	table := newServiceTable(t, DefaultEnabled)

	resp, err := table.Invoke(RegisterPatient, `{"FirstName":"Jane","LastName":"Roe","InsuranceId":"ID45678"}`)
	require.NoError(t, err)
	require.False(t, resp.Failed(), resp.Error)
	assert.Equal(t, appointment.IdentityResult{FirstName: "Jane", LastName: "Roe", InsuranceID: "ID45678"}, resp.Result)

	after, err := table.Invoke(RetrievePatientRegistrationInfo, janeArgs)
	require.NoError(t, err)
	assert.False(t, after.Failed(), after.Error)
}

func TestInvokeRetrieveBeforeAndAfterRegister(t *testing.T) {
	table := newServiceTable(t, DefaultEnabled)

	before, err := table.Invoke(RetrievePatientRegistrationInfo, janeArgs)
	require.NoError(t, err)
	assert.NotEmpty(t, before.Error)
	assert.Nil(t, before.Result)

	b, err := json.Marshal(before)
	require.NoError(t, err)
	assert.JSONEq(t, `{"errorResponse":"The patient is not registered yet.","functionResult":null}`, string(b))

	registered, err := table.Invoke(RegisterPatient, janeArgs)
	require.NoError(t, err)
	assert.False(t, registered.Failed())

	after, err := table.Invoke(RetrievePatientRegistrationInfo, janeArgs)
	require.NoError(t, err)
	assert.Empty(t, after.Error)
	assert.Equal(t, appointment.RecordResult(appointment.Record{}), after.Result)

	b, err = json.Marshal(after)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"errorResponse": "",
		"functionResult": {
			"symptoms": null,
			"preferredDoctorName": "",
			"preferredAppointmentTimes": null,
			"scheduledDoctorName": "",
			"scheduledAppointmentTime": null
		}
	}`, string(b))
}

func TestInvokeFullFlowThroughTable(t *testing.T) {
	table := newServiceTable(t, nil)

	steps := []struct {
		name string
		args string
	}{
		{RegisterPatient, janeArgs},
		{StoreSymptoms, `{"firstName":"Jane","lastName":"Roe","insuranceId":"ID45678","symptoms":["sore throat"]}`},
		{StorePreferredDoctorDetails, `{"firstName":"Jane","lastName":"Roe","insuranceId":"ID45678","preferredDoctorName":"Dr. Sam Smith"}`},
		{StorePreferredTimeSlots, `{"firstName":"Jane","lastName":"Roe","insuranceId":"ID45678","preferredAppointmentTimes":["2024-05-02T09:00:00Z"]}`},
	}
	for _, step := range steps {
		resp, err := table.Invoke(step.name, step.args)
		require.NoError(t, err, step.name)
		require.False(t, resp.Failed(), "%s: %s", step.name, resp.Error)
	}

	resp, err := table.Invoke(CheckPreferredDoctorAvailabilityAndScheduleVisit, janeArgs)
	require.NoError(t, err)
	require.False(t, resp.Failed(), resp.Error)

	rec, ok := resp.Result.(appointment.RecordResult)
	require.True(t, ok, "expected RecordResult, got %T", resp.Result)
	assert.Equal(t, "Dr. Sam Smith", rec.ScheduledDoctorName)
	require.NotNil(t, rec.ScheduledAppointmentTime)
	assert.True(t, rec.ScheduledAppointmentTime.Equal(time.Date(2024, 5, 2, 9, 0, 0, 0, time.UTC)))
}

func TestNamesMatchTableOrder(t *testing.T) {
	table, err := NewTable(newRecordingWorkflow(), Names)
	require.NoError(t, err)

	fns := table.ListCallableFunctions()
	require.Len(t, fns, len(Names))
	for i, fn := range fns {
		assert.Equal(t, Names[i], fn.Name)
		assert.True(t, Known(fn.Name))
	}
	assert.False(t, Known("CancelAppointment"))
}
