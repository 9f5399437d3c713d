package errors

import (
	"errors"
	"testing"

	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func TestClassifyDBError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected DatabaseErrorType
		label    string
	}{
		{"record not found", gorm.ErrRecordNotFound, ErrorTypeNotFound, "not_found"},
		{"duplicate key", &mysql.MySQLError{Number: 1062, Message: "Duplicate entry"}, ErrorTypeDuplicateKey, "duplicate_key"},
		{"data too long", &mysql.MySQLError{Number: 1406, Message: "Data too long"}, ErrorTypeDataTooLong, "data_too_long"},
		{"missing table", &mysql.MySQLError{Number: 1146, Message: "Table doesn't exist"}, ErrorTypeMissingTable, "missing_table"},
		{"other mysql", &mysql.MySQLError{Number: 1213, Message: "Deadlock"}, ErrorTypeDBUnknown, "unknown"},
		{"connection", errors.New("dial tcp 127.0.0.1:3306: Connection Refused"), ErrorTypeDBConnection, "connection"},
		{"unknown", errors.New("boom"), ErrorTypeDBUnknown, "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dbErr := ClassifyDBError(tt.err)
			assert.NotNil(t, dbErr)
			assert.Equal(t, tt.expected, dbErr.Type)
			assert.Equal(t, tt.label, dbErr.Type.String())
			assert.True(t, errors.Is(dbErr, tt.err))
		})
	}
}

func TestClassifyDBError_Nil(t *testing.T) {
	assert.Nil(t, ClassifyDBError(nil))
}

func TestDatabaseError_Error(t *testing.T) {
	dbErr := ClassifyDBError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry"})
	assert.Contains(t, dbErr.Error(), "MySQL error 1062")

	plain := ClassifyDBError(errors.New("boom"))
	assert.Equal(t, "unknown database error: boom", plain.Error())
}
