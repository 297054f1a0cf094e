package chserver

import (
	"net/http"
	"time"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"

	"github.com/openrport/userd/server/api"
	errors2 "github.com/openrport/userd/server/api/errors"
	"github.com/openrport/userd/server/api/users"
)

type UserIDPayload struct {
	ID uuid.UUID `json:"id"`
}

// UserPayload is the request body of POST and PUT. Timestamps are accepted so that
// a fetched user can be sent back as is, but the repository owns their values.
type UserPayload struct {
	ID         uuid.UUID         `json:"id"`
	Name       *string           `json:"name"`
	BirthDate  civil.Date        `json:"birth_date"`
	CustomData *users.CustomData `json:"custom_data"`
	CreatedAt  *time.Time        `json:"created_at"`
	UpdatedAt  *time.Time        `json:"updated_at"`
}

func (p UserPayload) Validate() error {
	if p.Name == nil {
		return errors2.NewBadRequest(errors2.ErrCodeInvalidBody, "Missing name.", nil)
	}
	if p.BirthDate.IsZero() {
		return errors2.NewBadRequest(errors2.ErrCodeInvalidBody, "Missing birth_date.", nil)
	}
	if !p.BirthDate.IsValid() {
		return errors2.NewBadRequest(errors2.ErrCodeInvalidBody, "Invalid birth_date: "+p.BirthDate.String(), nil)
	}
	if p.CustomData == nil {
		return errors2.NewBadRequest(errors2.ErrCodeInvalidBody, "Missing custom_data.", nil)
	}
	return nil
}

func (p UserPayload) ToUser() users.User {
	return users.User{
		ID:         p.ID,
		Name:       *p.Name,
		BirthDate:  p.BirthDate,
		CustomData: *p.CustomData,
	}
}

func parseUserPayload(req *http.Request) (users.User, error) {
	var payload UserPayload
	if err := parseRequestBody(req.Body, &payload); err != nil {
		return users.User{}, err
	}
	if err := payload.Validate(); err != nil {
		return users.User{}, err
	}
	return payload.ToUser(), nil
}

func (al *APIListener) handleGetUser(w http.ResponseWriter, req *http.Request) {
	userID, err := parseUserID(req)
	if err != nil {
		al.jsonError(w, req, err)
		return
	}

	user, err := al.repo.Get(req.Context(), userID)
	if err != nil {
		al.jsonError(w, req, err)
		return
	}

	al.writeJSONResponse(w, http.StatusOK, api.NewSuccessPayload(user))
}

func (al *APIListener) handlePostUser(w http.ResponseWriter, req *http.Request) {
	user, err := parseUserPayload(req)
	if err != nil {
		al.jsonError(w, req, err)
		return
	}

	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}

	created, err := al.repo.Create(req.Context(), user)
	if err != nil {
		al.jsonError(w, req, err)
		return
	}

	al.Debugf("User [%s] created.", created.ID)
	al.writeJSONResponse(w, http.StatusCreated, api.NewSuccessPayload(created))
}

func (al *APIListener) handlePutUser(w http.ResponseWriter, req *http.Request) {
	userID, err := parseUserID(req)
	if err != nil {
		al.jsonError(w, req, err)
		return
	}

	user, err := parseUserPayload(req)
	if err != nil {
		al.jsonError(w, req, err)
		return
	}

	if user.ID != uuid.Nil && user.ID != userID {
		al.jsonError(w, req, errors2.NewBadRequest(
			errors2.ErrCodeInvalidID,
			"User id in body does not match the id in path.",
			nil,
		))
		return
	}
	user.ID = userID

	updated, err := al.repo.Update(req.Context(), user)
	if err != nil {
		al.jsonError(w, req, err)
		return
	}

	al.Debugf("User [%s] updated.", userID)
	al.writeJSONResponse(w, http.StatusOK, api.NewSuccessPayload(updated))
}

func (al *APIListener) handleDeleteUser(w http.ResponseWriter, req *http.Request) {
	userID, err := parseUserID(req)
	if err != nil {
		al.jsonError(w, req, err)
		return
	}

	deleted, err := al.repo.Delete(req.Context(), userID)
	if err != nil {
		al.jsonError(w, req, err)
		return
	}

	al.Debugf("User [%s] deleted.", deleted)
	al.writeJSONResponse(w, http.StatusOK, api.NewSuccessPayload(UserIDPayload{ID: deleted}))
}
