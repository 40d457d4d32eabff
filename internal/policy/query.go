package policy

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// QueryCompiler rewrites list queries so the data store applies the same
// rules Evaluate applies row-by-row. Both paths must stay equivalent; the
// equivalence test in query_test.go is the contract.
type QueryCompiler struct {
	db *gorm.DB
}

func NewQueryCompiler(db *gorm.DB) *QueryCompiler {
	return &QueryCompiler{db: db}
}

// Apply appends one predicate per policy, ANDed together. alias qualifies the
// target table when the policy subject is reached via a join (a lesson's
// ownership lives on its parent course); pass "" when the query root is the
// subject itself. Unknown policies compile to no predicate, matching the
// engine's permissive default.
func (c *QueryCompiler) Apply(q *gorm.DB, policies []Policy, userID uuid.UUID, alias string) *gorm.DB {
	prefix := ""
	if alias != "" {
		prefix = alias + "."
	}
	for _, p := range policies {
		switch p {
		case OwnerOnly:
			q = q.Where(prefix+"owner_id = ?", userID)
		case NotPublished:
			q = q.Where(prefix+"is_published = ?", false)
		case PublishedOnly:
			q = q.Where(prefix+"is_published = ?", true)
		case PublishedOrOwner:
			q = q.Where(
				c.db.Where(prefix+"is_published = ?", true).
					Or(prefix+"owner_id = ?", userID),
			)
		}
	}
	return q
}
