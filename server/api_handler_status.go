package chserver

import (
	"net/http"

	"github.com/openrport/userd/server/api"
	chshare "github.com/openrport/userd/share"
)

func (al *APIListener) handleGetHealth(w http.ResponseWriter, req *http.Request) {
	al.writeJSONResponse(w, http.StatusOK, api.NewSuccessPayload(map[string]string{
		"status": "ok",
	}))
}

func (al *APIListener) handleGetStatus(w http.ResponseWriter, req *http.Request) {
	al.writeJSONResponse(w, http.StatusOK, api.NewSuccessPayload(map[string]interface{}{
		"version": chshare.BuildVersion,
		"storage": al.config.Storage.Driver,
	}))
}

func (al *APIListener) handleNotFound(w http.ResponseWriter, req *http.Request) {
	al.jsonErrorResponseWithTitle(w, http.StatusNotFound, "Not found.")
}

func (al *APIListener) handleMethodNotAllowed(w http.ResponseWriter, req *http.Request) {
	al.jsonErrorResponseWithTitle(w, http.StatusMethodNotAllowed, "Method not allowed.")
}
