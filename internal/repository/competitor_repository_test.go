package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func competitors(t *testing.T) *CompetitorRepo {
	repo := NewCompetitorRepo(newTestDB(t))
	clock := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	repo.now = func() time.Time {
		clock = clock.Add(time.Minute)
		return clock
	}
	return repo
}

func TestCompetitorCreateTrimsURL(t *testing.T) {
	repo := competitors(t)
	ctx := context.Background()

	c, err := repo.Create(ctx, CompetitorCreate{URL: " http://x/1 ", ProductCode: str("A-100")})
	require.NoError(t, err)
	assert.Equal(t, "http://x/1", c.URL)
	assert.Equal(t, "A-100", *c.ProductCode)
	require.NotNil(t, c.Timestamp)
	assert.True(t, time.Date(2025, 3, 1, 12, 1, 0, 0, time.UTC).Equal(*c.Timestamp))
	assert.Nil(t, c.Title)
	assert.False(t, c.Price.Valid)
}

func TestCompetitorCreateRejectsBlankURL(t *testing.T) {
	repo := competitors(t)
	ctx := context.Background()

	for _, url := range []string{"", "   ", "\t\n"} {
		_, err := repo.Create(ctx, CompetitorCreate{URL: url})
		var verr *ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, "url", verr.Field)
	}
	all, err := repo.List(ctx, CompetitorQuery{})
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestCompetitorDuplicateIsConflict(t *testing.T) {
	repo := competitors(t)
	ctx := context.Background()

	_, err := repo.Create(ctx, CompetitorCreate{URL: "http://x/1"})
	require.NoError(t, err)
	_, err = repo.Create(ctx, CompetitorCreate{URL: "http://x/1 "})
	assert.ErrorIs(t, err, ErrConflict)
}

func TestCompetitorDeleteTwice(t *testing.T) {
	repo := competitors(t)
	ctx := context.Background()

	_, err := repo.Create(ctx, CompetitorCreate{URL: " http://x/1 "})
	require.NoError(t, err)

	require.NoError(t, repo.Delete(ctx, "http://x/1"))
	assert.ErrorIs(t, repo.Delete(ctx, "http://x/1"), ErrNotFound)
	_, err = repo.Get(ctx, "http://x/1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCompetitorListNewestFirstAndSearch(t *testing.T) {
	repo := competitors(t)
	ctx := context.Background()

	for _, u := range []string{"http://x/1", "http://x/2", "http://y/3"} {
		_, err := repo.Create(ctx, CompetitorCreate{URL: u, ProductName: str("Taladro " + u[len(u)-1:])})
		require.NoError(t, err)
	}

	all, err := repo.List(ctx, CompetitorQuery{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "http://y/3", all[0].URL)
	assert.Equal(t, "http://x/1", all[2].URL)

	found, err := repo.List(ctx, CompetitorQuery{Search: "X/"})
	require.NoError(t, err)
	assert.Len(t, found, 2)

	found, err = repo.List(ctx, CompetitorQuery{Search: "taladro 3"})
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "http://y/3", found[0].URL)
}

func TestCompetitorUpdateURL(t *testing.T) {
	repo := competitors(t)
	ctx := context.Background()

	_, err := repo.Create(ctx, CompetitorCreate{URL: "http://x/1"})
	require.NoError(t, err)

	c, err := repo.UpdateURL(ctx, "http://x/1", " http://x/9 ")
	require.NoError(t, err)
	assert.Equal(t, "http://x/9", c.URL)

	_, err = repo.UpdateURL(ctx, "http://missing", "http://x/10")
	assert.ErrorIs(t, err, ErrNotFound)
}
