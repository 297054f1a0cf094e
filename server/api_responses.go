package chserver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/openrport/userd/server/api"
	errors2 "github.com/openrport/userd/server/api/errors"
	"github.com/openrport/userd/server/api/users"
)

func (al *APIListener) writeJSONResponse(w http.ResponseWriter, statusCode int, response interface{}) {
	b, err := json.Marshal(response)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=UTF-8")
	w.WriteHeader(statusCode)
	if _, err := w.Write(b); err != nil {
		al.Errorf("error writing response: %s", err)
	}
}

// statusClientClosedRequest is the nginx status for a client that went away
// before the response was written.
const statusClientClosedRequest = 499

// jsonError writes err using the status and code of an APIError or of a
// repository error kind. Anything else is a 500.
func (al *APIListener) jsonError(w http.ResponseWriter, req *http.Request, err error) {
	statusCode := http.StatusInternalServerError
	errCode := ""
	title := err.Error()
	detail := ""

	if apiErr, ok := errors2.AsAPIError(err); ok {
		statusCode = apiErr.HTTPStatus
		errCode = apiErr.ErrCode
		title = apiErr.Error()
		if apiErr.Err != nil && apiErr.Message != "" {
			detail = apiErr.Err.Error()
		}
	} else {
		switch users.KindOf(err) {
		case users.KindInvalidID, users.KindDoesNotExist:
			statusCode = http.StatusNotFound
			errCode = errors2.ErrCodeUserNotFound
			title = "user not found"
			detail = err.Error()
		case users.KindAlreadyExists:
			statusCode = http.StatusConflict
			errCode = errors2.ErrCodeUserAlreadyExists
			title = "user already exists"
			detail = err.Error()
		case users.KindLock:
			errCode = errors2.ErrCodeStoreUnavailable
			title = "user store unavailable"
			detail = err.Error()
		}
	}

	requestID := api.GetRequestID(req.Context())
	if errors.Is(err, context.Canceled) {
		statusCode = statusClientClosedRequest
		al.Debugf("request %s canceled: %s", requestID, err)
	} else if statusCode >= http.StatusInternalServerError {
		al.Errorf("request %s failed: %s", requestID, err)
	}

	errPayload := api.NewErrorPayloadWithCode(errCode, title, detail)
	al.Debugf("error payload: %+v", errPayload)
	al.writeJSONResponse(w, statusCode, errPayload)
}

func (al *APIListener) jsonErrorResponseWithTitle(w http.ResponseWriter, statusCode int, title string) {
	errPayload := api.NewErrorPayloadWithCode("", title, "")
	al.Debugf("error payload: %+v", errPayload)
	al.writeJSONResponse(w, statusCode, errPayload)
}
