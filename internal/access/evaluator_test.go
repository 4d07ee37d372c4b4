package access

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dicoevent/backend/internal/models"
	"github.com/dicoevent/backend/pkg/apperr"
)

var (
	superID     = uuid.New()
	adminID     = uuid.New()
	organizerID = uuid.New()
	otherOrgID  = uuid.New()
	userID      = uuid.New()
	user2ID     = uuid.New()

	superuser = Actor{UserID: superID, Superuser: true}
	admin     = Actor{UserID: adminID, Groups: []string{models.GroupAdmin}}
	organizer = Actor{UserID: organizerID, Groups: []string{models.GroupOrganizer}}
	otherOrg  = Actor{UserID: otherOrgID, Groups: []string{models.GroupOrganizer}}
	user      = Actor{UserID: userID}
	user2     = Actor{UserID: user2ID}
)

func TestRolePrecedence(t *testing.T) {
	assert.Equal(t, RoleAnonymous, Anonymous().Role())
	assert.Equal(t, RoleUser, user.Role())
	assert.Equal(t, RoleOrganizer, organizer.Role())
	assert.Equal(t, RoleAdmin, Actor{UserID: adminID, Groups: []string{models.GroupOrganizer, models.GroupAdmin}}.Role())
	assert.Equal(t, RoleSuperuser, Actor{UserID: superID, Superuser: true, Groups: []string{models.GroupAdmin}}.Role())
}

func TestAuthorize(t *testing.T) {
	event := models.Target{Type: models.ResourceEvent, OrganizerID: organizerID}
	ticket := models.Target{Type: models.ResourceTicket, OrganizerID: organizerID}
	reg := models.Target{Type: models.ResourceRegistration, OrganizerID: organizerID, OwnerID: userID}
	pay := models.Target{Type: models.ResourcePayment, OrganizerID: organizerID, OwnerID: userID}

	tests := []struct {
		name   string
		actor  Actor
		action Action
		target models.Target
		want   error
	}{
		{"anonymous reads event", Anonymous(), ReadSingle, event, nil},
		{"anonymous lists tickets", Anonymous(), ReadList, ticket, nil},
		{"anonymous creates event", Anonymous(), Create, event, apperr.ErrUnauthenticated},
		{"anonymous updates event", Anonymous(), Update, event, apperr.ErrUnauthenticated},
		{"anonymous deletes event", Anonymous(), Delete, event, apperr.ErrUnauthenticated},
		{"anonymous reads registration", Anonymous(), ReadSingle, reg, apperr.ErrUnauthenticated},

		{"superuser deletes payment", superuser, Delete, pay, nil},
		{"superuser creates registration", superuser, Create, reg, nil},

		{"admin reads registration", admin, ReadSingle, reg, nil},
		{"admin reads payment", admin, ReadSingle, pay, nil},
		{"admin updates event", admin, Update, event, nil},
		{"admin deletes ticket", admin, Delete, ticket, nil},
		{"admin cannot forge registration", admin, Create, reg, apperr.ErrForbidden},
		{"admin cannot update payment", admin, Update, pay, apperr.ErrForbidden},

		{"organizer creates own event", organizer, Create, event, nil},
		{"organizer updates own ticket", organizer, Update, ticket, nil},
		{"organizer reads registration via chain", organizer, ReadSingle, reg, nil},
		{"organizer reads payment via chain", organizer, ReadSingle, pay, nil},
		{"organizer cannot delete registration", organizer, Delete, reg, apperr.ErrForbidden},
		{"other organizer cannot update event", otherOrg, Update, event, apperr.ErrForbidden},
		{"other organizer cannot read registration", otherOrg, ReadSingle, reg, apperr.ErrForbidden},

		{"user reads own registration", user, ReadSingle, reg, nil},
		{"user updates own payment", user, Update, pay, nil},
		{"user cannot create event", user, Create, models.Target{Type: models.ResourceEvent, OrganizerID: userID}, apperr.ErrForbidden},
		{"user cannot update ticket", user, Update, ticket, apperr.ErrForbidden},
		{"other user cannot read registration", user2, ReadSingle, reg, apperr.ErrForbidden},
	}
	e := NewEvaluator()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := e.Authorize(tt.actor, tt.action, tt.target)
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestOrganizerFallsThroughToOwnership(t *testing.T) {
	// otherOrg registered for organizer's event: not the organizer, but the owner.
	reg := models.Target{Type: models.ResourceRegistration, OrganizerID: organizerID, OwnerID: otherOrgID}
	assert.NoError(t, NewEvaluator().Authorize(otherOrg, Update, reg))
}

func TestListFilter(t *testing.T) {
	e := NewEvaluator()

	f, err := e.ListFilter(Anonymous(), models.ResourceEvent)
	require.NoError(t, err)
	assert.True(t, f.Unrestricted)

	_, err = e.ListFilter(Anonymous(), models.ResourceRegistration)
	assert.ErrorIs(t, err, apperr.ErrUnauthenticated)

	for _, a := range []Actor{superuser, admin} {
		f, err = e.ListFilter(a, models.ResourcePayment)
		require.NoError(t, err)
		assert.True(t, f.Unrestricted)
	}

	f, err = e.ListFilter(organizer, models.ResourceRegistration)
	require.NoError(t, err)
	require.NotNil(t, f.OrganizerID)
	assert.Equal(t, organizerID, *f.OrganizerID)
	assert.True(t, f.Matches(models.Target{OrganizerID: organizerID, OwnerID: userID}))
	assert.True(t, f.Matches(models.Target{OrganizerID: otherOrgID, OwnerID: organizerID}))
	assert.False(t, f.Matches(models.Target{OrganizerID: otherOrgID, OwnerID: userID}))

	f, err = e.ListFilter(user, models.ResourceRegistration)
	require.NoError(t, err)
	assert.Nil(t, f.OrganizerID)
	assert.True(t, f.Matches(models.Target{OrganizerID: organizerID, OwnerID: userID}))
	assert.False(t, f.Matches(models.Target{OrganizerID: userID, OwnerID: user2ID}))
}

func TestEmptyRestrictedFilterMatchesNothing(t *testing.T) {
	assert.False(t, Filter{}.Matches(models.Target{}))
}
