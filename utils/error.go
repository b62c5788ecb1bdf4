package utils

import (
	"errors"
	"fmt"
)

// Error taxonomy. Handlers map these to HTTP statuses with errors.Is;
// model operations never surface raw gorm or transport errors directly.
var (
	ErrorRecordNotFound = errors.New("record not found")
	ErrorValidation     = errors.New("validation failed")
	ErrorGateway        = errors.New("gateway call failed")
	ErrorConflict       = errors.New("conflict")
)

func ValidationErrorf(format string, a ...any) error {
	return fmt.Errorf("%w: %s", ErrorValidation, fmt.Sprintf(format, a...))
}

func NotFoundErrorf(format string, a ...any) error {
	return fmt.Errorf("%w: %s", ErrorRecordNotFound, fmt.Sprintf(format, a...))
}

func GatewayError(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %v", ErrorGateway, err)
}

func ConflictErrorf(format string, a ...any) error {
	return fmt.Errorf("%w: %s", ErrorConflict, fmt.Sprintf(format, a...))
}

func ErrorPanic(err error) {
	if err != nil {
		panic(err)
	}
}
