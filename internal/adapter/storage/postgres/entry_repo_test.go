package postgres

import (
	"context"
	"testing"
	"time"

	"venue-wallet-engine/internal/core/domain"

	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEntryRepo_Stats(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewEntryRepo(mock)
	walletID := uuid.New()
	firstAt := time.Now().UTC().Add(-time.Hour)

	mock.ExpectQuery(`SELECT COUNT\(\*\), MIN\(created_at\) FROM entry_records`).
		WithArgs(walletID, "venue-1").
		WillReturnRows(pgxmock.NewRows([]string{"count", "min"}).AddRow(2, &firstAt))

	stats, err := repo.Stats(context.Background(), walletID, "venue-1")
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Count)
	require.NotNil(t, stats.FirstEntryAt)
	assert.Equal(t, firstAt, *stats.FirstEntryAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEntryRepo_Stats_NoEntries(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewEntryRepo(mock)
	walletID := uuid.New()

	mock.ExpectQuery(`SELECT COUNT\(\*\), MIN\(created_at\) FROM entry_records`).
		WithArgs(walletID, "venue-1").
		WillReturnRows(pgxmock.NewRows([]string{"count", "min"}).AddRow(0, (*time.Time)(nil)))

	stats, err := repo.Stats(context.Background(), walletID, "venue-1")
	require.NoError(t, err)
	assert.Equal(t, 0, stats.Count)
	assert.Nil(t, stats.FirstEntryAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEntryRepo_Create(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewEntryRepo(mock)
	rec := &domain.EntryRecord{
		ID:        uuid.New(),
		WalletID:  uuid.New(),
		VenueID:   "venue-1",
		GatewayID: "gate-7",
		Method:    "nfc",
		Sequence:  1,
		Kind:      domain.EntryKindInitial,
		Fees:      domain.FeeBreakdown{InitialFee: 2500, Total: 2500},
		ReceiptID: uuid.New(),
		CreatedAt: time.Now().UTC().Truncate(time.Microsecond),
	}

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO entry_records").
		WithArgs(rec.ID, rec.WalletID, rec.VenueID, rec.GatewayID, rec.Method,
			rec.Sequence, rec.Kind, pgxmock.AnyArg(), rec.ReceiptID, rec.CreatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	tx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	err = repo.Create(context.Background(), tx, rec)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEntryRepo_ListByWalletVenue(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewEntryRepo(mock)
	walletID := uuid.New()

	cols := []string{"id", "wallet_id", "venue_id", "gateway_id", "method",
		"sequence", "kind", "fees", "receipt_id", "created_at"}
	rows := pgxmock.NewRows(cols).
		AddRow(uuid.New(), walletID, "venue-1", "gate-7", "nfc", 1,
			domain.EntryKindInitial, []byte(`{"total":2500}`), uuid.New(), time.Now().UTC()).
		AddRow(uuid.New(), walletID, "venue-1", "gate-3", "qr", 2,
			domain.EntryKindReentry, []byte(`{"total":1025}`), uuid.New(), time.Now().UTC())

	mock.ExpectQuery("SELECT .+ FROM entry_records").
		WithArgs(walletID, "venue-1").
		WillReturnRows(rows)

	records, err := repo.ListByWalletVenue(context.Background(), walletID, "venue-1")
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, domain.EntryKindInitial, records[0].Kind)
	assert.Equal(t, domain.EntryKindReentry, records[1].Kind)
	assert.Equal(t, int64(1025), records[1].Fees.Total)
	assert.NoError(t, mock.ExpectationsWereMet())
}
