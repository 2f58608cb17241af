package api

import (
	"errors"
	"net/http"

	"comicdao/consensus/conductor"
	"comicdao/consensus/governor"
	"comicdao/consensus/registry"
)

var errBadRequest = errors.New("bad request")

func statusFor(err error) int {
	switch {
	case errors.Is(err, conductor.ErrNotWired):
		return http.StatusServiceUnavailable
	case errors.Is(err, conductor.ErrBadSignature):
		return http.StatusUnauthorized
	case errors.Is(err, governor.ErrUnknownProposal),
		errors.Is(err, registry.ErrNotFound),
		errors.Is(err, registry.ErrIndexOutOfRange):
		return http.StatusNotFound
	case errors.Is(err, conductor.ErrReplay),
		errors.Is(err, governor.ErrDuplicateProposal),
		errors.Is(err, governor.ErrAlreadyVoted),
		errors.Is(err, governor.ErrAlreadyExecuted):
		return http.StatusConflict
	}
	return http.StatusBadRequest
}
