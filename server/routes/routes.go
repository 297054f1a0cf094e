package routes

const (
	ParamUserID = "user_id"

	AllRoutesPrefix = "/api/v1"
	HealthRoute     = "/health"
	UsersRoute      = "/users"
	UserRoute       = UsersRoute + "/{" + ParamUserID + "}"

	// LegacyUserRoute is the read-only path served before the API moved under AllRoutesPrefix.
	LegacyUserRoute = "/v1/user/{" + ParamUserID + "}"
)
