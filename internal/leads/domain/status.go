// Package domain provides core business rules for the leads bounded context.
package domain

// Status is the lifecycle stage of a lead.
type Status string

const (
	StatusNew        Status = "New"
	StatusInProgress Status = "In progress"
	StatusWon        Status = "Won"
	StatusLost       Status = "Lost"
)

// Statuses lists the lifecycle stages in reporting order.
var Statuses = []Status{StatusNew, StatusInProgress, StatusWon, StatusLost}

var knownStatuses = map[Status]struct{}{
	StatusNew:        {},
	StatusInProgress: {},
	StatusWon:        {},
	StatusLost:       {},
}

// terminalStatuses are outcomes after which no follow-up is expected.
var terminalStatuses = map[Status]bool{
	StatusWon:  true,
	StatusLost: true,
}

func IsKnownStatus(status Status) bool {
	_, ok := knownStatuses[status]
	return ok
}

// IsTerminal reports whether the status is a final outcome (Won or Lost).
// The state machine does not block transitions out of terminal statuses;
// this is informational for reporting and listing.
func IsTerminal(status Status) bool {
	return terminalStatuses[status]
}

// Source identifies the ingestion channel of a lead.
type Source string

const (
	SourceWebsite   Source = "website"
	SourceFacebook  Source = "facebook"
	SourceManual    Source = "manual"
	SourceMessaging Source = "messaging"
)

var knownSources = map[Source]struct{}{
	SourceWebsite:   {},
	SourceFacebook:  {},
	SourceManual:    {},
	SourceMessaging: {},
}

func IsKnownSource(source Source) bool {
	_, ok := knownSources[source]
	return ok
}
