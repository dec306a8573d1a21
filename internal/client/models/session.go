package models

// User is the profile returned by the backend on login and persisted next to
// the credential.
type User struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Identity string `json:"identity"`
}

// Session pairs the opaque bearer credential with the user profile it was
// issued for. A non-nil Session means every authenticated request carries
// the credential until the session is invalidated.
type Session struct {
	Credential string
	User       User
}
