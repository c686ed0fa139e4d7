// Package repotest holds behaviour tests shared by every storage driver.
package repotest

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Lixing-Zhang/nutri-catalog/backend/internal/models"
	"github.com/Lixing-Zhang/nutri-catalog/backend/internal/nutriscore"
	"github.com/Lixing-Zhang/nutri-catalog/backend/internal/repository"
)

var now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func product(name, category string, facts nutriscore.NutritionFacts, ingredients ...string) *models.Product {
	p := models.NewProduct(uuid.NewString(), models.ProductInput{
		Name:           name,
		Brand:          "Test Brand",
		Category:       category,
		Ingredients:    ingredients,
		NutritionFacts: facts,
	}, now)
	return &p
}

// Products exercises a ProductRepository. The repository must start empty.
func Products(t *testing.T, repo repository.ProductRepository) {
	ctx := context.Background()

	oats := product("Oats", "cereals", nutriscore.NutritionFacts{Fiber: 9}, "Whole grain oats")
	flakes := product("Frosted Flakes", "cereals", nutriscore.NutritionFacts{Calories: 150, Sugar: 12})
	almonds := product("almonds", "nuts", nutriscore.NutritionFacts{Calories: 160, Fat: 14, Fiber: 3.5, Protein: 6})
	bar := product("Brittle Bar", "nuts", nutriscore.NutritionFacts{Fat: 1.5}, "Peanuts", "Sugar")

	for _, p := range []*models.Product{oats, flakes, almonds, bar} {
		require.NoError(t, repo.Create(ctx, p))
	}

	t.Run("get by id", func(t *testing.T) {
		got, err := repo.GetByID(ctx, oats.ID)
		require.NoError(t, err)
		assert.Equal(t, "Oats", got.Name)
		assert.Equal(t, nutriscore.GradeA, got.Rating)
		assert.Equal(t, oats.NutriScore, got.NutriScore)
		assert.Equal(t, []string{"Whole grain oats"}, got.Ingredients)
		assert.InDelta(t, 9, got.NutritionFacts.Fiber.Float(), 0.0001)

		_, err = repo.GetByID(ctx, uuid.NewString())
		assert.ErrorIs(t, err, repository.ErrProductNotFound)
		_, err = repo.GetByID(ctx, "not-a-uuid")
		assert.ErrorIs(t, err, repository.ErrProductNotFound)
	})

	t.Run("get all is ordered by rating then name", func(t *testing.T) {
		got, total, err := repo.GetAll(ctx, models.ProductFilter{})
		require.NoError(t, err)
		assert.Equal(t, 4, total)
		assert.Equal(t, []string{"Oats", "Brittle Bar", "almonds", "Frosted Flakes"}, names(got))
	})

	t.Run("filters", func(t *testing.T) {
		tests := []struct {
			name   string
			filter models.ProductFilter
			want   []string
			total  int
		}{
			{"category", models.ProductFilter{Category: "nuts"}, []string{"Brittle Bar", "almonds"}, 2},
			{"rating", models.ProductFilter{Rating: nutriscore.GradeA}, []string{"Oats"}, 1},
			{"keyword in name", models.ProductFilter{Keyword: "FLAKES"}, []string{"Frosted Flakes"}, 1},
			{"keyword in ingredients", models.ProductFilter{Keyword: "peanut"}, []string{"Brittle Bar"}, 1},
			{"limit keeps total", models.ProductFilter{Limit: 2}, []string{"Oats", "Brittle Bar"}, 4},
			{"offset", models.ProductFilter{Limit: 2, Offset: 3}, []string{"Frosted Flakes"}, 4},
			{"offset past end", models.ProductFilter{Offset: 10}, nil, 4},
			{"no match", models.ProductFilter{Keyword: "zzz"}, nil, 0},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				got, total, err := repo.GetAll(ctx, tt.filter)
				require.NoError(t, err)
				assert.Equal(t, tt.total, total)
				assert.Equal(t, tt.want, names(got))
			})
		}
	})

	t.Run("categories and ratings", func(t *testing.T) {
		cats, err := repo.Categories(ctx)
		require.NoError(t, err)
		assert.Equal(t, []models.Category{
			{Name: "cereals", DisplayName: "Cereals", Count: 2},
			{Name: "nuts", DisplayName: "Nuts", Count: 2},
		}, cats)

		counts, err := repo.CountByRating(ctx)
		require.NoError(t, err)
		assert.Len(t, counts, 5)
		assert.Equal(t, 1, counts[nutriscore.GradeA])
		assert.Equal(t, 0, counts[nutriscore.GradeE])

		sum := 0
		for _, n := range counts {
			sum += n
		}
		assert.Equal(t, 4, sum)
	})

	t.Run("list by category", func(t *testing.T) {
		got, err := repo.ListByCategory(ctx, "cereals")
		require.NoError(t, err)
		assert.Equal(t, []string{"Oats", "Frosted Flakes"}, names(got))
	})

	t.Run("update", func(t *testing.T) {
		changed := *flakes
		changed.Apply(models.ProductInput{
			Name:           "Frosted Flakes Lite",
			Category:       "cereals",
			NutritionFacts: nutriscore.NutritionFacts{Protein: 1.7},
		}, now.Add(time.Hour))
		require.NoError(t, repo.Update(ctx, &changed))

		got, err := repo.GetByID(ctx, flakes.ID)
		require.NoError(t, err)
		assert.Equal(t, "Frosted Flakes Lite", got.Name)
		assert.Equal(t, nutriscore.GradeA, got.Rating)

		missing := *flakes
		missing.ID = uuid.NewString()
		assert.ErrorIs(t, repo.Update(ctx, &missing), repository.ErrProductNotFound)
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, repo.Delete(ctx, bar.ID))
		_, err := repo.GetByID(ctx, bar.ID)
		assert.ErrorIs(t, err, repository.ErrProductNotFound)
		assert.ErrorIs(t, repo.Delete(ctx, bar.ID), repository.ErrProductNotFound)
	})
}

// Users exercises a UserRepository. The repository must start empty.
func Users(t *testing.T, repo repository.UserRepository) {
	ctx := context.Background()

	user := &models.User{
		ID:           uuid.NewString(),
		Username:     "jane",
		Email:        "jane@example.com",
		PasswordHash: "hash-1",
		Role:         models.RoleUser,
		CreatedAt:    now,
	}
	require.NoError(t, repo.Create(ctx, user))

	dup := *user
	dup.ID = uuid.NewString()
	dup.Email = "JANE@example.com"
	assert.ErrorIs(t, repo.Create(ctx, &dup), repository.ErrUserExists)

	got, err := repo.GetByEmail(ctx, "Jane@Example.com")
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)
	assert.Equal(t, "hash-1", got.PasswordHash)

	got, err = repo.GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "jane", got.Username)

	_, err = repo.GetByID(ctx, uuid.NewString())
	assert.ErrorIs(t, err, repository.ErrUserNotFound)
	_, err = repo.GetByID(ctx, "not-a-uuid")
	assert.ErrorIs(t, err, repository.ErrUserNotFound)
	_, err = repo.GetByEmail(ctx, "nobody@example.com")
	assert.ErrorIs(t, err, repository.ErrUserNotFound)

	require.NoError(t, repo.UpdatePassword(ctx, user.ID, "hash-2"))
	got, err = repo.GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "hash-2", got.PasswordHash)
	assert.ErrorIs(t, repo.UpdatePassword(ctx, uuid.NewString(), "x"), repository.ErrUserNotFound)

	emails, err := repo.ListEmails(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"jane@example.com"}, emails)
}

// Sessions exercises a SessionRepository. The repository must start empty.
func Sessions(t *testing.T, repo repository.SessionRepository) {
	ctx := context.Background()
	userID := uuid.NewString()

	live := &models.Session{SessionID: uuid.NewString(), UserID: userID, CreatedAt: now, ExpiresAt: now.Add(time.Hour)}
	stale := &models.Session{SessionID: uuid.NewString(), UserID: userID, CreatedAt: now.Add(-2 * time.Hour), ExpiresAt: now.Add(-time.Hour)}
	require.NoError(t, repo.Create(ctx, live))
	require.NoError(t, repo.Create(ctx, stale))

	got, err := repo.Get(ctx, live.SessionID)
	require.NoError(t, err)
	assert.Equal(t, userID, got.UserID)
	assert.True(t, got.ExpiresAt.Equal(live.ExpiresAt))

	removed, err := repo.DeleteExpired(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	_, err = repo.Get(ctx, stale.SessionID)
	assert.ErrorIs(t, err, repository.ErrSessionNotFound)
	_, err = repo.Get(ctx, "not-a-uuid")
	assert.ErrorIs(t, err, repository.ErrSessionNotFound)

	require.NoError(t, repo.Delete(ctx, live.SessionID))
	require.NoError(t, repo.Delete(ctx, live.SessionID))
	_, err = repo.Get(ctx, live.SessionID)
	assert.ErrorIs(t, err, repository.ErrSessionNotFound)

	otherID := uuid.NewString()
	first := &models.Session{SessionID: uuid.NewString(), UserID: userID, CreatedAt: now, ExpiresAt: now.Add(time.Hour)}
	second := &models.Session{SessionID: uuid.NewString(), UserID: userID, CreatedAt: now, ExpiresAt: now.Add(2 * time.Hour)}
	other := &models.Session{SessionID: uuid.NewString(), UserID: otherID, CreatedAt: now, ExpiresAt: now.Add(time.Hour)}
	for _, s := range []*models.Session{first, second, other} {
		require.NoError(t, repo.Create(ctx, s))
	}

	removed, err = repo.DeleteByUser(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, 2, removed)
	for _, s := range []*models.Session{first, second} {
		_, err = repo.Get(ctx, s.SessionID)
		assert.ErrorIs(t, err, repository.ErrSessionNotFound)
	}
	got, err = repo.Get(ctx, other.SessionID)
	require.NoError(t, err)
	assert.Equal(t, otherID, got.UserID)

	removed, err = repo.DeleteByUser(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, 0, removed)

	token := &models.ResetToken{Token: uuid.NewString(), UserID: userID, ExpiresAt: now.Add(time.Hour)}
	require.NoError(t, repo.CreateResetToken(ctx, token))

	consumed, err := repo.ConsumeResetToken(ctx, token.Token)
	require.NoError(t, err)
	assert.Equal(t, userID, consumed.UserID)

	_, err = repo.ConsumeResetToken(ctx, token.Token)
	assert.ErrorIs(t, err, repository.ErrTokenNotFound)
}

func names(products []models.Product) []string {
	if len(products) == 0 {
		return nil
	}
	out := make([]string, len(products))
	for i, p := range products {
		out[i] = p.Name
	}
	return out
}
