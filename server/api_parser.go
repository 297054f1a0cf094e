package chserver

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/asaskevich/govalidator"
	"github.com/google/uuid"
	"github.com/gorilla/mux"

	errors2 "github.com/openrport/userd/server/api/errors"
	"github.com/openrport/userd/server/routes"
)

func parseRequestBody(reqBody io.ReadCloser, dest interface{}) error {
	dec := json.NewDecoder(reqBody)
	dec.DisallowUnknownFields()
	err := dec.Decode(dest)
	if err == io.EOF { // is handled separately to return an informative error message
		return errors2.NewBadRequest(errors2.ErrCodeInvalidBody, "Missing body with json data.", nil)
	}
	if err != nil {
		return bodyError(err, "Invalid JSON data.")
	}

	// only whitespace may follow the JSON value
	if _, err := dec.Token(); err != io.EOF {
		return bodyError(err, "Unexpected data after JSON value.")
	}

	return nil
}

func bodyError(err error, message string) error {
	var maxBytesErr *http.MaxBytesError
	if errors.As(err, &maxBytesErr) {
		return errors2.NewAPIError(
			http.StatusRequestEntityTooLarge,
			errors2.ErrCodeInvalidBody,
			"Request body is too large.",
			err,
		)
	}
	return errors2.NewBadRequest(errors2.ErrCodeInvalidBody, message, err)
}

// parseUserID reads the user id path parameter. Only the canonical
// 8-4-4-4-12 form is accepted.
func parseUserID(req *http.Request) (uuid.UUID, error) {
	raw := mux.Vars(req)[routes.ParamUserID]
	if raw == "" {
		return uuid.Nil, errors2.NewBadRequest(errors2.ErrCodeInvalidID, "Empty user id provided.", nil)
	}
	if !govalidator.IsUUID(raw) {
		return uuid.Nil, errors2.NewBadRequest(errors2.ErrCodeInvalidID, "Invalid user id: "+raw, nil)
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, errors2.NewBadRequest(errors2.ErrCodeInvalidID, "Invalid user id: "+raw, err)
	}
	return id, nil
}
