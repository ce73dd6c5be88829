package domain

import "time"

// DocumentUpsertedEvent is the inbound message announcing a document was
// created or edited upstream. The first event observed for an unknown
// document id implicitly creates the document.
type DocumentUpsertedEvent struct {
	DocumentID string
	Content    DocumentContent
	ReceivedAt time.Time
}

// DocumentRevertedEvent notifies downstream owners of the live copy that the
// current pointer moved back to an earlier version, so they can resynchronize.
type DocumentRevertedEvent struct {
	EventID       string
	DocumentID    string
	VersionNumber int64
	Content       DocumentContent
	RevertedAt    time.Time
}
