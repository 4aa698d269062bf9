package models

import (
	"encoding/json"
	"strings"
	"time"
)

// * Layouts accepted for the snapshot "date" field; GitHub returns
// * RFC3339, `git log --date=iso` emits the space-separated form
var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05 -0700",
	"2006-01-02T15:04:05-0700",
	"2006-01-02",
}

type Author struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

type FileChange struct {
	Path         string `json:"filename"`
	LinesAdded   int    `json:"lines_added"`
	LinesDeleted int    `json:"lines_deleted"`
}

// * One historical commit as persisted in a snapshot. Timestamp is zero
// * when the recorded date could not be parsed.
type CommitRecord struct {
	ID          string       `json:"commit_hash"`
	Author      Author       `json:"author"`
	Timestamp   time.Time    `json:"-"`
	RawDate     string       `json:"date"`
	Message     string       `json:"message"`
	FileChanges []FileChange `json:"file_changes"`
}

func (c *CommitRecord) HasTimestamp() bool {
	return !c.Timestamp.IsZero()
}

func (c *CommitRecord) UnmarshalJSON(data []byte) error {
	type alias CommitRecord
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}

	*c = CommitRecord(a)
	c.Timestamp = ParseCommitDate(c.RawDate)
	return nil
}

func (c CommitRecord) MarshalJSON() ([]byte, error) {
	if c.RawDate == "" && !c.Timestamp.IsZero() {
		c.RawDate = c.Timestamp.UTC().Format(time.RFC3339)
	}
	type alias CommitRecord
	return json.Marshal(alias(c))
}

// * ParseCommitDate tries the known date layouts and returns the zero
// * time when none match
func ParseCommitDate(raw string) time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}

type AuthorCommitCount struct {
	AuthorName  string `json:"author_name"`
	CommitCount int    `json:"commit_count"`
}
