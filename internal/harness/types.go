package harness

import "github.com/roach88/rowdelta/internal/changes"

// Result is the outcome of a test scenario execution.
type Result struct {
	// Pass indicates overall test success.
	// True if every assertion held.
	Pass bool `json:"pass"`

	// Changes is the computed change listing in its plain form.
	Changes []changes.Record `json:"changes"`

	// Errors contains assertion failure messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	listing *changes.Changes
}

// NewResult creates a new passing result for a change listing.
func NewResult(listing *changes.Changes) *Result {
	return &Result{
		Pass:    true,
		Changes: listing.Records(),
		Errors:  []string{},
		listing: listing,
	}
}

// Listing returns the computed changes.
func (r *Result) Listing() *changes.Changes {
	return r.listing
}

// AddError adds an assertion failure and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
