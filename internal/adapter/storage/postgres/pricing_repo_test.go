package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pricingColumns() []string {
	return []string{"venue_id", "version", "initial_fee", "reentry_venue_fee",
		"reentry_platform_fee", "purchase_fee_bps", "reentry_allowed",
		"max_reentries", "reentry_window_seconds", "tax", "splits"}
}

func TestPricingRepo_GetConfig(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewPricingRepo(mock)
	maxReentries := 3
	windowSeconds := int64(14400)
	tax := []byte(`{"state_bps":600,"local_bps":100}`)
	splits := []byte(`[{"party":"venue","share_bps":7000},{"party":"platform","share_bps":3000}]`)

	mock.ExpectQuery("SELECT .+ FROM pricing_configs").
		WithArgs("venue-1").
		WillReturnRows(pgxmock.NewRows(pricingColumns()).AddRow(
			"venue-1", 2, int64(2500), int64(1000), int64(25), int64(250),
			true, &maxReentries, &windowSeconds, tax, splits,
		))

	cfg, err := repo.GetConfig(context.Background(), "venue-1")
	require.NoError(t, err)
	require.NotNil(t, cfg)
	assert.Equal(t, int64(2500), cfg.InitialFee)
	assert.True(t, cfg.ReentryAllowed)
	require.NotNil(t, cfg.MaxReentries)
	assert.Equal(t, 3, *cfg.MaxReentries)
	require.NotNil(t, cfg.ReentryWindow)
	assert.Equal(t, 4*time.Hour, *cfg.ReentryWindow)
	require.NotNil(t, cfg.Tax)
	assert.Equal(t, int64(600), cfg.Tax.StateBps)
	require.Len(t, cfg.Splits, 2)
	assert.Equal(t, "venue", cfg.Splits[0].Party)
	assert.Equal(t, int64(7000), cfg.Splits[0].ShareBps)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPricingRepo_GetConfig_NoOptionalPolicy(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewPricingRepo(mock)

	mock.ExpectQuery("SELECT .+ FROM pricing_configs").
		WithArgs("venue-2").
		WillReturnRows(pgxmock.NewRows(pricingColumns()).AddRow(
			"venue-2", 1, int64(2500), int64(0), int64(0), int64(0),
			false, (*int)(nil), (*int64)(nil), ([]byte)(nil), ([]byte)(nil),
		))

	cfg, err := repo.GetConfig(context.Background(), "venue-2")
	require.NoError(t, err)
	require.NotNil(t, cfg)
	assert.False(t, cfg.ReentryAllowed)
	assert.Nil(t, cfg.MaxReentries)
	assert.Nil(t, cfg.ReentryWindow)
	assert.Nil(t, cfg.Tax)
	assert.Empty(t, cfg.Splits)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPricingRepo_GetConfig_NotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewPricingRepo(mock)

	mock.ExpectQuery("SELECT .+ FROM pricing_configs").
		WithArgs("missing").
		WillReturnRows(pgxmock.NewRows(pricingColumns()))

	cfg, err := repo.GetConfig(context.Background(), "missing")
	require.NoError(t, err)
	assert.Nil(t, cfg)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPricingRepo_GetItem(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewPricingRepo(mock)

	mock.ExpectQuery("SELECT .+ FROM vendor_items").
		WithArgs("item-9").
		WillReturnRows(pgxmock.NewRows([]string{"id", "venue_id", "name", "category", "unit_price", "available"}).
			AddRow("item-9", "venue-1", "Lager", "alcohol", int64(800), true))

	item, err := repo.GetItem(context.Background(), "item-9")
	require.NoError(t, err)
	require.NotNil(t, item)
	assert.Equal(t, "Lager", item.Name)
	assert.Equal(t, int64(800), item.UnitPrice)
	assert.True(t, item.Available)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPricingRepo_GetItem_NotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewPricingRepo(mock)

	mock.ExpectQuery("SELECT .+ FROM vendor_items").
		WithArgs("missing").
		WillReturnRows(pgxmock.NewRows([]string{"id", "venue_id", "name", "category", "unit_price", "available"}))

	item, err := repo.GetItem(context.Background(), "missing")
	require.NoError(t, err)
	assert.Nil(t, item)
	assert.NoError(t, mock.ExpectationsWereMet())
}
