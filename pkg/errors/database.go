package errors

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-sql-driver/mysql"
	"gorm.io/gorm"
)

// DatabaseErrorType represents the type of database error.
type DatabaseErrorType int

const (
	// ErrorTypeDBUnknown represents an unknown database error.
	ErrorTypeDBUnknown DatabaseErrorType = iota
	// ErrorTypeDuplicateKey represents a duplicate key constraint violation (MySQL 1062).
	ErrorTypeDuplicateKey
	// ErrorTypeDataTooLong represents a data too long error (MySQL 1406).
	ErrorTypeDataTooLong
	// ErrorTypeMissingTable represents a write into a table that does not exist (MySQL 1146).
	ErrorTypeMissingTable
	// ErrorTypeNotFound represents a record not found error.
	ErrorTypeNotFound
	// ErrorTypeDBConnection represents a database connection error.
	ErrorTypeDBConnection
)

// String returns the log label of the type.
func (t DatabaseErrorType) String() string {
	switch t {
	case ErrorTypeDuplicateKey:
		return "duplicate_key"
	case ErrorTypeDataTooLong:
		return "data_too_long"
	case ErrorTypeMissingTable:
		return "missing_table"
	case ErrorTypeNotFound:
		return "not_found"
	case ErrorTypeDBConnection:
		return "connection"
	default:
		return "unknown"
	}
}

// DatabaseError wraps a database error with classification information.
type DatabaseError struct {
	Type         DatabaseErrorType
	OriginalErr  error
	MySQLErrCode uint16
	Message      string
}

// Error implements the error interface.
func (e *DatabaseError) Error() string {
	if e.MySQLErrCode > 0 {
		return fmt.Sprintf("%s (MySQL error %d): %v", e.Message, e.MySQLErrCode, e.OriginalErr)
	}
	return fmt.Sprintf("%s: %v", e.Message, e.OriginalErr)
}

// Unwrap returns the underlying error for errors.Is and errors.As compatibility.
func (e *DatabaseError) Unwrap() error {
	return e.OriginalErr
}

// ClassifyDBError classifies a database error into a specific error type.
func ClassifyDBError(err error) *DatabaseError {
	if err == nil {
		return nil
	}

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &DatabaseError{Type: ErrorTypeNotFound, OriginalErr: err, Message: "record not found"}
	}

	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) {
		dbErr := &DatabaseError{Type: ErrorTypeDBUnknown, OriginalErr: err, MySQLErrCode: mysqlErr.Number, Message: "MySQL error"}
		switch mysqlErr.Number {
		case 1062: // ER_DUP_ENTRY
			dbErr.Type, dbErr.Message = ErrorTypeDuplicateKey, "duplicate key constraint violation"
		case 1406: // ER_DATA_TOO_LONG
			dbErr.Type, dbErr.Message = ErrorTypeDataTooLong, "data too long for column"
		case 1146: // ER_NO_SUCH_TABLE
			dbErr.Type, dbErr.Message = ErrorTypeMissingTable, "table does not exist"
		}
		return dbErr
	}

	if isConnectionError(err.Error()) {
		return &DatabaseError{Type: ErrorTypeDBConnection, OriginalErr: err, Message: "database connection error"}
	}

	return &DatabaseError{Type: ErrorTypeDBUnknown, OriginalErr: err, Message: "unknown database error"}
}

// isConnectionError checks if the error message indicates a connection problem.
func isConnectionError(errMsg string) bool {
	lower := strings.ToLower(errMsg)
	for _, keyword := range []string{
		"connection refused",
		"connection reset",
		"broken pipe",
		"no such host",
		"timeout",
		"connection lost",
		"can't connect",
		"dial tcp",
		"bad connection",
	} {
		if strings.Contains(lower, keyword) {
			return true
		}
	}
	return false
}
