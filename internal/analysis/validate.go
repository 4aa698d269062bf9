package analysis

import (
	"fmt"

	"github.com/KOFI-GYIMAH/git-insights/internal/models"
	"github.com/KOFI-GYIMAH/git-insights/pkg/logger"
	"github.com/hashicorp/go-multierror"
)

// * Validate quarantines records without a commit hash or author name,
// * with a diagnostic instead of a failure. An unparseable date is not a
// * validation error; it only excludes the record from weekly bucketing.
func Validate(commits []models.CommitRecord) []models.CommitRecord {
	valid := make([]models.CommitRecord, 0, len(commits))
	var diagnostics *multierror.Error

	for i, c := range commits {
		switch {
		case c.ID == "":
			diagnostics = multierror.Append(diagnostics,
				fmt.Errorf("record %d: missing commit hash", i))
		case c.Author.Name == "":
			diagnostics = multierror.Append(diagnostics,
				fmt.Errorf("record %d (commit %s): missing author name", i, c.ID))
		default:
			valid = append(valid, c)
		}
	}

	if diagnostics != nil {
		logger.Warn("quarantined %d malformed commit record(s): %v",
			diagnostics.Len(), diagnostics)
	}

	return valid
}
