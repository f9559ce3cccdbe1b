package apperror

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestStatusMapping(t *testing.T) {
	tests := []struct {
		kind Kind
		want int
	}{
		{KindValidation, http.StatusBadRequest},
		{KindNotFound, http.StatusNotFound},
		{KindUnauthorized, http.StatusUnauthorized},
		{KindForbidden, http.StatusForbidden},
		{KindConflict, http.StatusConflict},
		{KindInternal, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, New(tt.kind, "x").Status())
	}
}

func TestFromDB(t *testing.T) {
	err := FromDB(gorm.ErrRecordNotFound, "tour")
	assert.Equal(t, KindNotFound, err.Kind)
	assert.Contains(t, err.Message, "tour")

	err = FromDB(&pq.Error{Code: "23505"}, "user")
	assert.Equal(t, KindConflict, err.Kind)

	// invalid_text_representation, e.g. a numeric bind against a text column
	err = FromDB(&pq.Error{Code: "22P02"}, "tour")
	assert.Equal(t, KindValidation, err.Kind)

	// undefined operator for the bound parameter type
	err = FromDB(&pq.Error{Code: "42883"}, "tour")
	assert.Equal(t, KindValidation, err.Kind)

	err = FromDB(errors.New("connection refused"), "user")
	assert.Equal(t, KindInternal, err.Kind)
}

func respondBody(t *testing.T, err error) (int, map[string]string) {
	t.Helper()
	rec := httptest.NewRecorder()
	Respond(rec, err)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return rec.Code, body
}

func TestRespond_OperationalErrorExposesMessage(t *testing.T) {
	code, body := respondBody(t, NotFound("no tour found with that ID"))

	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "fail", body["status"])
	assert.Equal(t, "no tour found with that ID", body["message"])
}

func TestRespond_InternalErrorSuppressesDetail(t *testing.T) {
	code, body := respondBody(t, Internal("database exploded", errors.New("secret detail")))

	assert.Equal(t, http.StatusInternalServerError, code)
	assert.Equal(t, "error", body["status"])
	assert.NotContains(t, body["message"], "secret detail")
	assert.NotContains(t, body["message"], "database exploded")
}

func TestRespond_UnknownErrorIsGeneric500(t *testing.T) {
	code, body := respondBody(t, errors.New("nil pointer somewhere"))

	assert.Equal(t, http.StatusInternalServerError, code)
	assert.NotContains(t, body["message"], "nil pointer")
}

func TestUnwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := Wrap(KindValidation, "invalid", cause)

	assert.ErrorIs(t, err, cause)
}
