package service

import (
	"context"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/firmline/firmline/internal/contact/domain"
	"github.com/firmline/firmline/internal/contact/repository"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newTestResolver(t *testing.T) (domain.Service, *gorm.DB) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&domain.Contact{}))

	node, err := snowflake.NewNode(2)
	require.NoError(t, err)

	return New(Params{
		Log:   zap.NewNop(),
		GenID: node,
		Repo:  repository.Provide(),
	}), db
}

func TestNormalizePhone(t *testing.T) {
	cases := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"+1 (415) 555-0199", "14155550199", false},
		{"415.555.0199", "4155550199", false},
		{"  555 0199 ", "5550199", false},
		{"+1", "", true},
		{"", "", true},
		{"not a phone", "", true},
	}
	for _, tc := range cases {
		got, err := domain.NormalizePhone(tc.in)
		if tc.wantErr {
			assert.ErrorIs(t, err, domain.ErrInvalidPhone, tc.in)
			continue
		}
		require.NoError(t, err, tc.in)
		assert.Equal(t, tc.want, got, tc.in)
	}
}

func TestResolve_ReusesExistingByNormalizedPhone(t *testing.T) {
	svc, db := newTestResolver(t)
	firmID := snowflake.ID(7)

	first, err := svc.Resolve(context.Background(), db, domain.ResolveRequest{
		FirmID:   firmID,
		Phone:    "+1 (415) 555-0199",
		FullName: "Dana Whitfield",
	})
	require.NoError(t, err)

	// Different formatting of the same number resolves to the same row.
	second, err := svc.Resolve(context.Background(), db, domain.ResolveRequest{
		FirmID: firmID,
		Phone:  "14155550199",
	})
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	var count int64
	require.NoError(t, db.Model(&domain.Contact{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestResolve_LastWriteWinsWithoutClearing(t *testing.T) {
	svc, db := newTestResolver(t)
	firmID := snowflake.ID(7)

	_, err := svc.Resolve(context.Background(), db, domain.ResolveRequest{
		FirmID:   firmID,
		Phone:    "4155550199",
		FullName: "Dana Whitfield",
		Email:    "old@example.com",
	})
	require.NoError(t, err)

	// A later call refreshes descriptive fields with the new values.
	got, err := svc.Resolve(context.Background(), db, domain.ResolveRequest{
		FirmID:   firmID,
		Phone:    "4155550199",
		FullName: "Dana Whitfield-Jones",
		Email:    "new@example.com",
	})
	require.NoError(t, err)
	assert.Equal(t, "Dana Whitfield-Jones", got.FullName)
	assert.Equal(t, "new@example.com", got.Email)

	// Empty incoming fields never clear what is stored.
	got, err = svc.Resolve(context.Background(), db, domain.ResolveRequest{
		FirmID: firmID,
		Phone:  "4155550199",
	})
	require.NoError(t, err)
	assert.Equal(t, "Dana Whitfield-Jones", got.FullName)
	assert.Equal(t, "new@example.com", got.Email)
}

func TestResolve_ScopedByFirm(t *testing.T) {
	svc, db := newTestResolver(t)

	a, err := svc.Resolve(context.Background(), db, domain.ResolveRequest{
		FirmID: snowflake.ID(1),
		Phone:  "4155550199",
	})
	require.NoError(t, err)
	b, err := svc.Resolve(context.Background(), db, domain.ResolveRequest{
		FirmID: snowflake.ID(2),
		Phone:  "4155550199",
	})
	require.NoError(t, err)
	assert.NotEqual(t, a.ID, b.ID)
}

func TestResolve_InvalidPhone(t *testing.T) {
	svc, db := newTestResolver(t)

	_, err := svc.Resolve(context.Background(), db, domain.ResolveRequest{
		FirmID: snowflake.ID(1),
		Phone:  "n/a",
	})
	assert.ErrorIs(t, err, domain.ErrInvalidPhone)
}
