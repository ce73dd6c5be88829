package domain

import "time"

// Version is one historical record of a document. Rows are append-only;
// IsCurrent is the only field that changes after creation.
type Version struct {
	ID            string
	DocumentID    string
	VersionNumber int64
	IsCurrent     bool
	ContentID     string
	CreatedAt     time.Time
}

// DocumentContent carries the content fields captured into a snapshot when a
// document is published or edited.
type DocumentContent struct {
	Title        string
	Description  string
	Body         string
	Category     string
	DepartmentID string
	Visibility   string
	CoverURL     string
	DocumentURLs []string
	CapturedAt   time.Time
}

// ContentSnapshot is the immutable payload referenced by exactly one version.
type ContentSnapshot struct {
	ID           string
	Title        string
	Description  string
	Body         string
	Category     string
	DepartmentID string
	Visibility   string
	CoverURL     string
	DocumentURLs []string
	CapturedAt   time.Time
}

// Content returns the snapshot's content fields without the storage identifier.
func (s ContentSnapshot) Content() DocumentContent {
	return DocumentContent{
		Title:        s.Title,
		Description:  s.Description,
		Body:         s.Body,
		Category:     s.Category,
		DepartmentID: s.DepartmentID,
		Visibility:   s.Visibility,
		CoverURL:     s.CoverURL,
		DocumentURLs: s.DocumentURLs,
		CapturedAt:   s.CapturedAt,
	}
}

// VersionSummary is the projection served by the history listing.
type VersionSummary struct {
	VersionNumber int64
	IsCurrent     bool
}
