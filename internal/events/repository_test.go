package events

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/dicoevent/backend/internal/models"
	"github.com/dicoevent/backend/pkg/database"
)

// TestRepositoryDeleteCascades runs against a real PostgreSQL when
// TICKETING_TEST_DATABASE_URL is set.
func TestRepositoryDeleteCascades(t *testing.T) {
	dsn := os.Getenv("TICKETING_TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TICKETING_TEST_DATABASE_URL not set")
	}
	ctx := context.Background()
	pool, err := database.NewPostgresPool(ctx, dsn, 2, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	require.NoError(t, database.Migrate(ctx, pool))

	suffix := uuid.NewString()[:8]
	var orgID, userID uuid.UUID
	require.NoError(t, pool.QueryRow(ctx,
		`INSERT INTO users (username, email, password_hash) VALUES ($1, $2, 'x') RETURNING id`,
		"org-"+suffix, "org-"+suffix+"@example.test").Scan(&orgID))
	require.NoError(t, pool.QueryRow(ctx,
		`INSERT INTO users (username, email, password_hash) VALUES ($1, $2, 'x') RETURNING id`,
		"u-"+suffix, "u-"+suffix+"@example.test").Scan(&userID))
	t.Cleanup(func() { _, _ = pool.Exec(context.Background(), `DELETE FROM users WHERE id = ANY($1)`, []uuid.UUID{orgID, userID}) })

	repo := NewRepository(pool)
	start := time.Date(2026, 6, 1, 10, 0, 0, 0, time.UTC)
	e, err := repo.Create(ctx, &models.Event{Name: "E", StartTime: start, EndTime: start.Add(time.Hour), Status: models.EventStatusScheduled, OrganizerID: orgID})
	require.NoError(t, err)

	var ticketID, regID, paymentID uuid.UUID
	require.NoError(t, pool.QueryRow(ctx,
		`INSERT INTO tickets (name, price, sales_start, sales_end, quota, event_id) VALUES ('K', 10.50, $1, $1, 10, $2) RETURNING id`,
		start, e.ID).Scan(&ticketID))
	require.NoError(t, pool.QueryRow(ctx,
		`INSERT INTO registrations (user_id, ticket_id) VALUES ($1, $2) RETURNING id`,
		userID, ticketID).Scan(&regID))
	require.NoError(t, pool.QueryRow(ctx,
		`INSERT INTO payments (registration_id, payment_method, amount_paid) VALUES ($1, 'cash', 10.50) RETURNING id`,
		regID).Scan(&paymentID))
	_, err = pool.Exec(ctx, `INSERT INTO media (image, event_id) VALUES ('poster.png', $1)`, e.ID)
	require.NoError(t, err)

	removed, err := repo.Delete(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{e.ID}, removed.EventIDs)
	assert.Equal(t, []uuid.UUID{ticketID}, removed.TicketIDs)
	assert.Equal(t, []uuid.UUID{regID}, removed.RegistrationIDs)
	assert.Equal(t, []uuid.UUID{paymentID}, removed.PaymentIDs)

	for table, id := range map[string]uuid.UUID{"events": e.ID, "tickets": ticketID, "registrations": regID, "payments": paymentID} {
		var n int
		require.NoError(t, pool.QueryRow(ctx, `SELECT count(*) FROM `+table+` WHERE id = $1`, id).Scan(&n))
		assert.Zero(t, n, table)
	}
	var media int
	require.NoError(t, pool.QueryRow(ctx, `SELECT count(*) FROM media WHERE event_id = $1`, e.ID).Scan(&media))
	assert.Zero(t, media)

	_, err = repo.Get(ctx, e.ID)
	assert.Error(t, err)
}
