package services

import "fmt"

// CommandError is a user-visible command failure: a stable numeric code
// plus the text shown on the page. The codes are part of the client
// protocol and must not change.
type CommandError struct {
	Code int
	Text string
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("command error %d: %s", e.Code, e.Text)
}

var (
	ErrInvalidLocation  = &CommandError{Code: 101, Text: "Location field invalid."}
	ErrInvalidType      = &CommandError{Code: 102, Text: "Type field invalid."}
	ErrInvalidOccupancy = &CommandError{Code: 103, Text: "Occupancy field invalid."}

	ErrNoSessionRecords = &CommandError{Code: 104, Text: "Session id does not match existing record."}
	ErrNoLocationMatch  = &CommandError{Code: 105, Text: "Location field does not match existing record."}
	ErrNoTypeMatch      = &CommandError{Code: 106, Text: "Vehicle type field does not match existing record."}
	ErrNoOccupancyMatch = &CommandError{Code: 107, Text: "Occupancy field does not match existing record."}
	ErrAlreadyUndone    = &CommandError{Code: 108, Text: "Record matches an existing undo."}
)
