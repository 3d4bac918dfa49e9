package git

// PollStatus represents the last polled state of the repo.
type PollStatus struct {
	Ref  string `json:"ref"`
	SHA  string `json:"sha"`
	ETag string `json:"etag"`
}

// Commit is the decoded commit body returned by the hosting service.
//
// It is nil when the service reported that nothing changed.
type Commit map[string]interface{}

// CloneOptions configures a clone.
type CloneOptions struct {
	URL    string
	Branch string
	// Username defaults to "x-access-token" when a Token is provided.
	Username string
	Token    string
}
