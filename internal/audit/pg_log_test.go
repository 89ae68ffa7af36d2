package audit

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockLog(t *testing.T) (*PgLog, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return newPgLogWithQuerier(mock), mock
}

func TestEnsureSchema(t *testing.T) {
	log, mock := newMockLog(t)

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS function_calls").WillReturnResult(pgxmock.NewResult("CREATE", 0))
	require.NoError(t, log.EnsureSchema(context.Background()))

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS function_calls").WillReturnError(errors.New("permission denied"))
	assert.Error(t, log.EnsureSchema(context.Background()))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecord(t *testing.T) {
	log, mock := newMockLog(t)
	result := json.RawMessage(`{"firstName":"Jane","lastName":"Roe","insuranceId":"ID45678"}`)

	mock.ExpectExec("INSERT INTO function_calls").
		WithArgs(pgxmock.AnyArg(), "RegisterPatient", `{"firstName":"Jane"}`, "", []byte(result), int64(12), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := log.Record(context.Background(), Call{
		FunctionName: "RegisterPatient",
		Arguments:    `{"firstName":"Jane"}`,
		Result:       result,
		Duration:     12 * time.Millisecond,
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordNullResult(t *testing.T) {
	log, mock := newMockLog(t)
	id := uuid.New()

	mock.ExpectExec("INSERT INTO function_calls").
		WithArgs(id, "RetrievePatientRegistrationInfo", "{}", "The patient is not registered yet.", nil, int64(0), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := log.Record(context.Background(), Call{
		ID:            id,
		FunctionName:  "RetrievePatientRegistrationInfo",
		Arguments:     "{}",
		ErrorResponse: "The patient is not registered yet.",
		Result:        json.RawMessage("null"),
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordError(t *testing.T) {
	log, mock := newMockLog(t)

	mock.ExpectExec("INSERT INTO function_calls").WillReturnError(errors.New("connection reset"))
	err := log.Record(context.Background(), Call{FunctionName: "RegisterPatient"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "insert function call")
}

func TestRecent(t *testing.T) {
	log, mock := newMockLog(t)
	id := uuid.New()
	created := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)

	rows := pgxmock.NewRows([]string{"id", "function_name", "arguments", "error_response", "result", "duration_ms", "created_at"}).
		AddRow(id, "RegisterPatient", `{"firstName":"Jane"}`, "", []byte(`{"firstName":"Jane"}`), int64(7), created)
	mock.ExpectQuery("SELECT id, function_name").WithArgs(10).WillReturnRows(rows)

	calls, err := log.Recent(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, calls, 1)

	c := calls[0]
	assert.Equal(t, id, c.ID)
	assert.Equal(t, "RegisterPatient", c.FunctionName)
	assert.Equal(t, 7*time.Millisecond, c.Duration)
	assert.True(t, created.Equal(c.CreatedAt))
	assert.JSONEq(t, `{"firstName":"Jane"}`, string(c.Result))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCallJSON(t *testing.T) {
	c := Call{
		ID:           uuid.MustParse("3f1c2a9e-8d4b-4e62-9f0a-6b7c5d4e3a21"),
		FunctionName: "RegisterPatient",
		Arguments:    "{}",
		Result:       json.RawMessage(`true`),
		Duration:     1500 * time.Millisecond,
		CreatedAt:    time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC),
	}
	b, err := json.Marshal(c)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"id": "3f1c2a9e-8d4b-4e62-9f0a-6b7c5d4e3a21",
		"functionName": "RegisterPatient",
		"arguments": "{}",
		"errorResponse": "",
		"functionResult": true,
		"durationMs": 1500,
		"createdAt": "2024-05-01T08:00:00Z"
	}`, string(b))
}
