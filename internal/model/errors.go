package model

import (
	"fmt"
	"net/http"
)

// UnknownProviderError is returned when a provider id does not resolve.
type UnknownProviderError struct {
	ProviderID string
}

func (e *UnknownProviderError) Error() string {
	return fmt.Sprintf("unknown provider %q", e.ProviderID)
}

func (e *UnknownProviderError) StatusCode() int {
	return http.StatusNotFound
}

// SlotNotFoundError is returned when a slot id is not in the current slot set.
type SlotNotFoundError struct {
	SlotID string
}

func (e *SlotNotFoundError) Error() string {
	return fmt.Sprintf("slot %q not found", e.SlotID)
}

func (e *SlotNotFoundError) StatusCode() int {
	return http.StatusNotFound
}

// SlotAlreadyBookedError is returned when a reservation targets a slot
// that is no longer available. It is a conflict, never a no-op.
type SlotAlreadyBookedError struct {
	SlotID string
}

func (e *SlotAlreadyBookedError) Error() string {
	return fmt.Sprintf("slot %q is already booked", e.SlotID)
}

func (e *SlotAlreadyBookedError) StatusCode() int {
	return http.StatusConflict
}
