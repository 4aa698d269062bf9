package source

import (
	"context"
	"time"

	"github.com/KOFI-GYIMAH/git-insights/internal/models"
)

// * Source produces the raw commit history of one repository, newest
// * first, limited to commits after since. A zero since means the full
// * configured horizon.
type Source interface {
	FetchCommits(ctx context.Context, owner, name string, since time.Time) ([]models.CommitRecord, error)
}
