package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"jostrid/internal/core"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test.db")
	repo, err := NewSQLiteRepository(dbPath)
	if err != nil {
		t.Fatalf("Failed to create repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func seedUsers(t *testing.T, repo *SQLiteRepository) (core.User, core.User) {
	t.Helper()

	ctx := context.Background()
	alva, err := repo.UpsertUser(ctx, "Alva", "alva@example.com")
	if err != nil {
		t.Fatalf("UpsertUser(alva) error = %v", err)
	}
	bea, err := repo.UpsertUser(ctx, "Bea", "bea@example.com")
	if err != nil {
		t.Fatalf("UpsertUser(bea) error = %v", err)
	}
	return alva, bea
}

func TestUpsertUser(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	first, err := repo.UpsertUser(ctx, "Alva", "alva@example.com")
	if err != nil {
		t.Fatalf("UpsertUser() error = %v", err)
	}
	if first.ID == 0 {
		t.Fatal("expected a generated user ID")
	}

	// Returning login with a changed display name keeps the same row.
	second, err := repo.UpsertUser(ctx, "Alva Svensson", "alva@example.com")
	if err != nil {
		t.Fatalf("UpsertUser() second error = %v", err)
	}
	if second.ID != first.ID {
		t.Fatalf("upsert created a new user: %d vs %d", second.ID, first.ID)
	}
	if second.Name != "Alva Svensson" {
		t.Fatalf("display name not refreshed: %q", second.Name)
	}
}

func TestUpdateUserPhone(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	alva, _ := seedUsers(t, repo)

	phone := "+46701234567"
	updated, err := repo.UpdateUserPhone(ctx, alva.ID, &phone)
	if err != nil {
		t.Fatalf("UpdateUserPhone() error = %v", err)
	}
	if updated.PhoneNumber == nil || *updated.PhoneNumber != phone {
		t.Fatalf("phone not stored: %+v", updated.PhoneNumber)
	}

	cleared, err := repo.UpdateUserPhone(ctx, alva.ID, nil)
	if err != nil {
		t.Fatalf("UpdateUserPhone(nil) error = %v", err)
	}
	if cleared.PhoneNumber != nil {
		t.Fatalf("phone not cleared: %v", *cleared.PhoneNumber)
	}

	if _, err := repo.UpdateUserPhone(ctx, 9999, &phone); !errors.Is(err, ErrNotFound) {
		t.Fatalf("unknown user: got %v, want ErrNotFound", err)
	}
}

func TestExpenseRoundTrip(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	alva, bea := seedUsers(t, repo)

	categories, err := repo.ListCategories(ctx)
	if err != nil || len(categories) == 0 {
		t.Fatalf("ListCategories() = %v, %v", categories, err)
	}

	created, err := repo.CreateExpense(ctx, core.Expense{
		Name:      "willys",
		Total:     13500,
		Currency:  "SEK",
		CreatedAt: time.Now().UTC(),
		PaidBy:    alva,
		Category:  &categories[0],
		Shares: []core.Share{
			{UserID: alva.ID, Share: 6750},
			{UserID: bea.ID, Share: -6750},
		},
	})
	if err != nil {
		t.Fatalf("CreateExpense() error = %v", err)
	}
	if created.ID == 0 {
		t.Fatal("expected a generated expense ID")
	}

	got, err := repo.GetExpense(ctx, created.ID)
	if err != nil {
		t.Fatalf("GetExpense() error = %v", err)
	}
	if got.Name != "willys" || got.Total != 13500 || got.Currency != "SEK" {
		t.Fatalf("unexpected expense %+v", got)
	}
	if got.PaidBy.ID != alva.ID {
		t.Fatalf("payer = %d, want %d", got.PaidBy.ID, alva.ID)
	}
	if got.Category == nil || got.Category.ID != categories[0].ID {
		t.Fatalf("category not joined: %+v", got.Category)
	}
	if len(got.Shares) != 2 {
		t.Fatalf("shares = %+v", got.Shares)
	}
	if err := got.Validate(); err != nil {
		t.Fatalf("stored expense fails validation: %v", err)
	}
}

func TestUpdateExpenseReplacesShares(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	alva, bea := seedUsers(t, repo)

	created, err := repo.CreateExpense(ctx, core.Expense{
		Name:      "rent",
		Total:     10000,
		Currency:  "SEK",
		CreatedAt: time.Now().UTC(),
		PaidBy:    alva,
		Shares: []core.Share{
			{UserID: alva.ID, Share: 5000},
			{UserID: bea.ID, Share: -5000},
		},
	})
	if err != nil {
		t.Fatalf("CreateExpense() error = %v", err)
	}

	created.Name = "rent march"
	created.Total = 12000
	created.Shares = []core.Share{
		{UserID: alva.ID, Share: 4000},
		{UserID: bea.ID, Share: -4000},
	}

	updated, err := repo.UpdateExpense(ctx, created)
	if err != nil {
		t.Fatalf("UpdateExpense() error = %v", err)
	}
	if updated.Name != "rent march" || updated.Total != 12000 {
		t.Fatalf("update did not take: %+v", updated)
	}
	if len(updated.Shares) != 2 || updated.Shares[0].Share+updated.Shares[1].Share != 0 {
		t.Fatalf("shares not replaced: %+v", updated.Shares)
	}

	missing := created
	missing.ID = 9999
	if _, err := repo.UpdateExpense(ctx, missing); !errors.Is(err, ErrNotFound) {
		t.Fatalf("unknown expense: got %v, want ErrNotFound", err)
	}
}

func TestDeleteExpense(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	alva, bea := seedUsers(t, repo)

	created, err := repo.CreateExpense(ctx, core.Expense{
		Name:      "coffee",
		Total:     90,
		Currency:  "SEK",
		CreatedAt: time.Now().UTC(),
		PaidBy:    alva,
		Shares: []core.Share{
			{UserID: alva.ID, Share: 45},
			{UserID: bea.ID, Share: -45},
		},
	})
	if err != nil {
		t.Fatalf("CreateExpense() error = %v", err)
	}

	if err := repo.DeleteExpense(ctx, created.ID); err != nil {
		t.Fatalf("DeleteExpense() error = %v", err)
	}
	if _, err := repo.GetExpense(ctx, created.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}

	// Deleting an unknown ID is an error, not a silent no-op.
	if err := repo.DeleteExpense(ctx, created.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("double delete: got %v, want ErrNotFound", err)
	}
}

func TestListExpenses(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	alva, bea := seedUsers(t, repo)
	carl, err := repo.UpsertUser(ctx, "Carl", "carl@example.com")
	if err != nil {
		t.Fatalf("UpsertUser(carl) error = %v", err)
	}

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for i, e := range []core.Expense{
		{Name: "shared", Total: 100, Currency: "SEK", PaidBy: alva,
			Shares: []core.Share{{UserID: alva.ID, Share: 50}, {UserID: bea.ID, Share: -50}}},
		{Name: "without bea", Total: 200, Currency: "SEK", PaidBy: alva,
			Shares: []core.Share{{UserID: alva.ID, Share: 100}, {UserID: carl.ID, Share: -100}}},
		{Name: "latest", Total: 300, Currency: "SEK", PaidBy: bea,
			Shares: []core.Share{{UserID: bea.ID, Share: 150}, {UserID: alva.ID, Share: -150}}},
	} {
		e.CreatedAt = base.Add(time.Duration(i) * time.Hour)
		if _, err := repo.CreateExpense(ctx, e); err != nil {
			t.Fatalf("CreateExpense(%s) error = %v", e.Name, err)
		}
	}

	// The collection is household-wide: no participant filter, every
	// expense visible regardless of who asks.
	all, err := repo.ListExpenses(ctx, 0, 0)
	if err != nil {
		t.Fatalf("ListExpenses() error = %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("got %d expenses, want 3", len(all))
	}
	if all[0].Name != "latest" || all[2].Name != "shared" {
		t.Fatalf("expected newest first, got %q ... %q", all[0].Name, all[2].Name)
	}

	paged, err := repo.ListExpenses(ctx, 2, 1)
	if err != nil {
		t.Fatalf("ListExpenses(paged) error = %v", err)
	}
	if len(paged) != 2 || paged[0].Name != "without bea" {
		t.Fatalf("unexpected page %+v", paged)
	}
}

func TestImageRoundTrip(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	alva, bea := seedUsers(t, repo)

	expense, err := repo.CreateExpense(ctx, core.Expense{
		Name:      "dinner",
		Total:     40000,
		Currency:  "SEK",
		CreatedAt: time.Now().UTC(),
		PaidBy:    alva,
		Shares: []core.Share{
			{UserID: alva.ID, Share: 20000},
			{UserID: bea.ID, Share: -20000},
		},
	})
	if err != nil {
		t.Fatalf("CreateExpense() error = %v", err)
	}

	saved, err := repo.SaveImage(ctx, Image{
		ExpenseID:   expense.ID,
		Filename:    "receipt.jpg",
		ContentType: "image/jpeg",
		Data:        []byte{0xff, 0xd8, 0xff},
	})
	if err != nil {
		t.Fatalf("SaveImage() error = %v", err)
	}

	got, err := repo.GetImage(ctx, saved.ID)
	if err != nil {
		t.Fatalf("GetImage() error = %v", err)
	}
	if got.Filename != "receipt.jpg" || got.ContentType != "image/jpeg" || len(got.Data) != 3 {
		t.Fatalf("unexpected image %+v", got)
	}

	list, err := repo.ListImagesForExpense(ctx, expense.ID)
	if err != nil || len(list) != 1 {
		t.Fatalf("ListImagesForExpense() = %+v, %v", list, err)
	}

	if _, err := repo.SaveImage(ctx, Image{ExpenseID: 9999}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("image for unknown expense: got %v, want ErrNotFound", err)
	}
}
