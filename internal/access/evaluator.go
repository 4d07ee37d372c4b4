// Package access decides whether an actor may perform an action on an
// event, ticket, registration or payment.
//
// A decision is the union of four grant sources, checked in order:
//
//   - public reads: anyone, anonymous included, may read events and tickets;
//   - role capabilities: a fixed table keyed by role and resource type;
//   - organizer chain: an organizer may act on resources whose ownership
//     chain ends at an event they organize;
//   - ownership: a user may act on their own registrations and payments.
//
// Anonymous actors that reach no public grant get ErrUnauthenticated;
// authenticated actors with no grant get ErrForbidden.
package access

import (
	"github.com/google/uuid"

	"github.com/dicoevent/backend/internal/models"
	"github.com/dicoevent/backend/pkg/apperr"
)

// Action is an operation on a resource or collection.
type Action int

const (
	ReadSingle Action = iota
	ReadList
	Create
	Update
	Delete
)

func (a Action) String() string {
	switch a {
	case ReadSingle:
		return "read"
	case ReadList:
		return "list"
	case Create:
		return "create"
	case Update:
		return "update"
	case Delete:
		return "delete"
	}
	return "unknown"
}

type actionSet map[Action]bool

var (
	allActions = actionSet{ReadSingle: true, ReadList: true, Create: true, Update: true, Delete: true}
	readOnly   = actionSet{ReadSingle: true, ReadList: true}
	writeOnly  = actionSet{Create: true, Update: true, Delete: true}
	ownActions = actionSet{ReadSingle: true, Create: true, Update: true, Delete: true}
)

// capabilities are unconditional role grants.
var capabilities = map[Role]map[models.ResourceType]actionSet{
	RoleSuperuser: {
		models.ResourceEvent:        allActions,
		models.ResourceTicket:       allActions,
		models.ResourceRegistration: allActions,
		models.ResourcePayment:      allActions,
	},
	RoleAdmin: {
		models.ResourceEvent:        allActions,
		models.ResourceTicket:       allActions,
		models.ResourceRegistration: readOnly,
		models.ResourcePayment:      readOnly,
	},
}

// public grants apply to every actor, anonymous included.
var public = map[models.ResourceType]actionSet{
	models.ResourceEvent:  readOnly,
	models.ResourceTicket: readOnly,
}

// organizerChain grants apply when the actor is an organizer and the
// target's chain ends at them.
var organizerChain = map[models.ResourceType]actionSet{
	models.ResourceEvent:        writeOnly,
	models.ResourceTicket:       writeOnly,
	models.ResourceRegistration: {ReadSingle: true},
	models.ResourcePayment:      {ReadSingle: true},
}

// ownership grants apply when the actor is the target's owner.
var ownership = map[models.ResourceType]actionSet{
	models.ResourceRegistration: ownActions,
	models.ResourcePayment:      ownActions,
}

// Evaluator is the access decision function. It holds no state.
type Evaluator struct{}

// NewEvaluator returns an evaluator.
func NewEvaluator() *Evaluator { return &Evaluator{} }

// Authorize returns nil when actor may perform action on target. For
// Create, target carries the chain the new resource will have.
func (e *Evaluator) Authorize(actor Actor, action Action, target models.Target) error {
	if public[target.Type][action] {
		return nil
	}
	if !actor.Authenticated() {
		return apperr.Unauthenticated()
	}
	role := actor.Role()
	if capabilities[role][target.Type][action] {
		return nil
	}
	if actor.InGroup(models.GroupOrganizer) && matches(actor.UserID, target.OrganizerID) &&
		organizerChain[target.Type][action] {
		return nil
	}
	if matches(actor.UserID, target.OwnerID) && ownership[target.Type][action] {
		return nil
	}
	return apperr.Forbidden("not allowed to " + action.String() + " this " + string(target.Type))
}

// ListFilter returns the visibility predicate for listing rt.
func (e *Evaluator) ListFilter(actor Actor, rt models.ResourceType) (Filter, error) {
	if public[rt][ReadList] {
		return All(), nil
	}
	if !actor.Authenticated() {
		return Filter{}, apperr.Unauthenticated()
	}
	if capabilities[actor.Role()][rt][ReadList] {
		return All(), nil
	}
	id := actor.UserID
	f := Filter{OwnerID: &id}
	if actor.InGroup(models.GroupOrganizer) && organizerChain[rt][ReadSingle] {
		f.OrganizerID = &id
	}
	return f, nil
}

func matches(actor, id uuid.UUID) bool {
	return id != uuid.Nil && actor == id
}
