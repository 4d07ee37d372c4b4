package access

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/dicoevent/backend/internal/models"
)

// Filter restricts a listing. Unrestricted filters match everything; a
// restricted filter matches resources whose organizer or owner equals one
// of the set IDs. A restricted filter with neither set matches nothing.
type Filter struct {
	Unrestricted bool
	OrganizerID  *uuid.UUID
	OwnerID      *uuid.UUID
}

// All returns the unrestricted filter.
func All() Filter { return Filter{Unrestricted: true} }

// Matches applies the predicate to a resolved chain.
func (f Filter) Matches(t models.Target) bool {
	if f.Unrestricted {
		return true
	}
	if f.OrganizerID != nil && *f.OrganizerID == t.OrganizerID {
		return true
	}
	return f.OwnerID != nil && *f.OwnerID == t.OwnerID
}

// Where renders the filter as a SQL condition over the given organizer and
// owner columns. Placeholders are numbered after argOffset existing
// arguments.
func (f Filter) Where(organizerCol, ownerCol string, argOffset int) (string, []any) {
	if f.Unrestricted {
		return "TRUE", nil
	}
	var (
		clause string
		args   []any
	)
	add := func(col string, v any) {
		args = append(args, v)
		cond := fmt.Sprintf("%s = $%d", col, argOffset+len(args))
		if clause == "" {
			clause = cond
		} else {
			clause += " OR " + cond
		}
	}
	if f.OrganizerID != nil {
		add(organizerCol, *f.OrganizerID)
	}
	if f.OwnerID != nil {
		add(ownerCol, *f.OwnerID)
	}
	if clause == "" {
		return "FALSE", nil
	}
	return "(" + clause + ")", args
}
