package webservice

import "time"

// Remote status vocabulary, normalized from the municipal situation codes.
// Anything the gateway cannot recognize is passed through verbatim and the
// workflow falls back to its conservative default.
const (
	StatusProcessing = "PROCESSING"
	StatusApproved   = "APPROVED"
	StatusRejected   = "REJECTED"
)

// SendResult is the parsed outcome of a send or cancel call. Success=false
// with a nil error means the webservice explicitly refused the document.
type SendResult struct {
	Success          bool
	Protocol         string
	RemoteNumber     string
	RemoteCode       string
	VerificationCode string
	DocumentLink     string
	RemoteDate       time.Time
	Observations     string
}

// QueryResult is the parsed outcome of a processing-status query.
type QueryResult struct {
	Status        string
	RemoteNumber  string
	RemoteCode    string
	DocumentLink  string
	RemoteDate    time.Time
	ProcessedDate time.Time
	Observations  string
}
