package models

// GenerationRequest is the immutable input to a single generation attempt.
type GenerationRequest struct {
	Topic        string `json:"topic"`
	ContentType  string `json:"contentType"`
	ReferenceURL string `json:"referenceUrl,omitempty"`
}

// GenerationResult is the sole output of a successful generation. Scripts
// are not persisted; the caller may offer copy/download.
type GenerationResult struct {
	Script string `json:"script"`

	// StyleApplied reports whether a style guide was derived from the
	// reference URL and fed into the writer. False when no URL was given
	// or when analysis failed and the fail-open path was taken.
	StyleApplied bool `json:"styleApplied"`
}

// Identity keys a usage record: either an authenticated user id or an
// anonymous token. The two populations are tracked in separate stores and
// never reconciled.
type Identity struct {
	UserID    string
	AnonToken string
}

// IsAnonymous reports whether the identity is tracked by token only.
func (id Identity) IsAnonymous() bool {
	return id.UserID == ""
}

// Key returns the stable counter key for this identity.
func (id Identity) Key() string {
	if id.IsAnonymous() {
		return id.AnonToken
	}
	return id.UserID
}
