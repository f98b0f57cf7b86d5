package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"jostrid/internal/core"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

// Image is a receipt photo attached to an expense.
type Image struct {
	ID          int64     `json:"id"`
	ExpenseID   int64     `json:"expense_id"`
	Filename    string    `json:"filename"`
	ContentType string    `json:"content_type"`
	Data        []byte    `json:"-"`
	UploadedAt  time.Time `json:"uploaded_at"`
}

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// UpsertUser creates a user keyed on email, refreshing the display name on
// returning logins. Used by the OAuth callback.
func (r *SQLiteRepository) UpsertUser(ctx context.Context, name, email string) (core.User, error) {
	var user core.User
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO user (name, email) VALUES (?, ?)
		ON CONFLICT(email) DO UPDATE SET name = excluded.name
		RETURNING id, name, email, phone_number`,
		name, email,
	).Scan(&user.ID, &user.Name, &user.Email, &user.PhoneNumber)
	if err != nil {
		return core.User{}, fmt.Errorf("upsert user: %w", err)
	}

	slog.InfoContext(ctx, "User upserted", "id", user.ID, "email", user.Email)
	return user, nil
}

// GetUser retrieves a single user by ID.
func (r *SQLiteRepository) GetUser(ctx context.Context, id int64) (core.User, error) {
	var user core.User
	err := r.db.QueryRowContext(ctx,
		"SELECT id, name, email, phone_number FROM user WHERE id = ?", id,
	).Scan(&user.ID, &user.Name, &user.Email, &user.PhoneNumber)
	if errors.Is(err, sql.ErrNoRows) {
		return core.User{}, fmt.Errorf("user %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return core.User{}, fmt.Errorf("get user: %w", err)
	}
	return user, nil
}

// ListUsers returns every registered user ordered by name.
func (r *SQLiteRepository) ListUsers(ctx context.Context) ([]core.User, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT id, name, email, phone_number FROM user ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var users []core.User
	for rows.Next() {
		var u core.User
		if err := rows.Scan(&u.ID, &u.Name, &u.Email, &u.PhoneNumber); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// UpdateUserPhone sets or clears a user's Swish phone number.
func (r *SQLiteRepository) UpdateUserPhone(ctx context.Context, id int64, phone *string) (core.User, error) {
	res, err := r.db.ExecContext(ctx,
		"UPDATE user SET phone_number = ? WHERE id = ?", phone, id)
	if err != nil {
		return core.User{}, fmt.Errorf("update user phone: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return core.User{}, fmt.Errorf("user %d: %w", id, ErrNotFound)
	}
	return r.GetUser(ctx, id)
}

// ListCategories returns every expense category ordered by name.
func (r *SQLiteRepository) ListCategories(ctx context.Context) ([]core.Category, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT id, name FROM expense_category ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var categories []core.Category
	for rows.Next() {
		var c core.Category
		if err := rows.Scan(&c.ID, &c.Name); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

// CreateCategory inserts a new expense category.
func (r *SQLiteRepository) CreateCategory(ctx context.Context, name string) (core.Category, error) {
	var c core.Category
	err := r.db.QueryRowContext(ctx,
		"INSERT INTO expense_category (name) VALUES (?) RETURNING id, name", name,
	).Scan(&c.ID, &c.Name)
	if err != nil {
		return core.Category{}, fmt.Errorf("create category: %w", err)
	}
	return c, nil
}

// CreateExpense persists an expense and its shares in one transaction and
// returns the stored expense with its generated ID.
func (r *SQLiteRepository) CreateExpense(ctx context.Context, e core.Expense) (core.Expense, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return core.Expense{}, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	var categoryID *int64
	if e.Category != nil {
		categoryID = &e.Category.ID
	}

	var id int64
	err = tx.QueryRowContext(ctx, `
		INSERT INTO expense (name, total, currency, created_at, paid_by, category_id, is_payment)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		RETURNING id`,
		e.Name, e.Total, e.Currency, e.CreatedAt, e.PaidBy.ID, categoryID, e.IsPayment,
	).Scan(&id)
	if err != nil {
		return core.Expense{}, fmt.Errorf("insert expense: %w", err)
	}

	if err := insertShares(ctx, tx, id, e.Shares); err != nil {
		return core.Expense{}, err
	}

	if err := tx.Commit(); err != nil {
		return core.Expense{}, fmt.Errorf("commit transaction: %w", err)
	}

	slog.InfoContext(ctx, "Expense saved",
		"id", id,
		"name", e.Name,
		"total", e.Total,
		"currency", e.Currency,
		"is_payment", e.IsPayment)

	return r.GetExpense(ctx, id)
}

// UpdateExpense replaces an expense and its shares. The expense must exist.
func (r *SQLiteRepository) UpdateExpense(ctx context.Context, e core.Expense) (core.Expense, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return core.Expense{}, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	var categoryID *int64
	if e.Category != nil {
		categoryID = &e.Category.ID
	}

	res, err := tx.ExecContext(ctx, `
		UPDATE expense
		SET name = ?, total = ?, currency = ?, paid_by = ?, category_id = ?, is_payment = ?
		WHERE id = ?`,
		e.Name, e.Total, e.Currency, e.PaidBy.ID, categoryID, e.IsPayment, e.ID)
	if err != nil {
		return core.Expense{}, fmt.Errorf("update expense: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return core.Expense{}, fmt.Errorf("expense %d: %w", e.ID, ErrNotFound)
	}

	if _, err := tx.ExecContext(ctx,
		"DELETE FROM account_share WHERE expense_id = ?", e.ID); err != nil {
		return core.Expense{}, fmt.Errorf("clear shares: %w", err)
	}
	if err := insertShares(ctx, tx, e.ID, e.Shares); err != nil {
		return core.Expense{}, err
	}

	if err := tx.Commit(); err != nil {
		return core.Expense{}, fmt.Errorf("commit transaction: %w", err)
	}

	return r.GetExpense(ctx, e.ID)
}

// DeleteExpense removes an expense. Deleting an unknown ID is an error, not
// a no-op.
func (r *SQLiteRepository) DeleteExpense(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM expense WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete expense: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete expense: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("expense %d: %w", id, ErrNotFound)
	}

	slog.InfoContext(ctx, "Expense deleted", "id", id)
	return nil
}

const expenseColumns = `
	e.id, e.name, e.total, e.currency, e.created_at, e.is_payment,
	u.id, u.name, u.email, u.phone_number,
	c.id, c.name`

const expenseBaseQuery = `
	SELECT ` + expenseColumns + `
	FROM expense e
	JOIN user u ON u.id = e.paid_by
	LEFT JOIN expense_category c ON c.id = e.category_id`

// GetExpense retrieves a single expense with payer, category and shares.
func (r *SQLiteRepository) GetExpense(ctx context.Context, id int64) (core.Expense, error) {
	row := r.db.QueryRowContext(ctx, expenseBaseQuery+" WHERE e.id = ?", id)

	e, err := scanExpense(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Expense{}, fmt.Errorf("expense %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return core.Expense{}, fmt.Errorf("get expense: %w", err)
	}

	shares, err := r.sharesFor(ctx, []int64{e.ID})
	if err != nil {
		return core.Expense{}, err
	}
	e.Shares = shares[e.ID]
	return e, nil
}

// ListExpenses returns the full expense collection, newest first. Balances
// fold over this whole set, so there is no participant filter. limit <= 0
// means no limit.
func (r *SQLiteRepository) ListExpenses(ctx context.Context, limit, offset int) ([]core.Expense, error) {
	query := expenseBaseQuery + `
		ORDER BY e.created_at DESC, e.id DESC`
	var args []any
	if limit > 0 {
		query += " LIMIT ? OFFSET ?"
		args = append(args, limit, offset)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	defer rows.Close()

	var expenses []core.Expense
	var ids []int64
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, fmt.Errorf("scan expense: %w", err)
		}
		expenses = append(expenses, e)
		ids = append(ids, e.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate expenses: %w", err)
	}

	shares, err := r.sharesFor(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range expenses {
		expenses[i].Shares = shares[expenses[i].ID]
	}
	return expenses, nil
}

// SaveImage attaches a receipt image to an expense.
func (r *SQLiteRepository) SaveImage(ctx context.Context, img Image) (Image, error) {
	if _, err := r.GetExpense(ctx, img.ExpenseID); err != nil {
		return Image{}, err
	}

	err := r.db.QueryRowContext(ctx, `
		INSERT INTO image (expense_id, filename, content_type, data, uploaded_at)
		VALUES (?, ?, ?, ?, ?)
		RETURNING id, uploaded_at`,
		img.ExpenseID, img.Filename, img.ContentType, img.Data, time.Now().UTC(),
	).Scan(&img.ID, &img.UploadedAt)
	if err != nil {
		return Image{}, fmt.Errorf("save image: %w", err)
	}
	return img, nil
}

// GetImage retrieves a receipt image with its payload.
func (r *SQLiteRepository) GetImage(ctx context.Context, id int64) (Image, error) {
	var img Image
	err := r.db.QueryRowContext(ctx, `
		SELECT id, expense_id, filename, content_type, data, uploaded_at
		FROM image WHERE id = ?`, id,
	).Scan(&img.ID, &img.ExpenseID, &img.Filename, &img.ContentType, &img.Data, &img.UploadedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Image{}, fmt.Errorf("image %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return Image{}, fmt.Errorf("get image: %w", err)
	}
	return img, nil
}

// ListImagesForExpense returns image metadata (without payloads) for an
// expense.
func (r *SQLiteRepository) ListImagesForExpense(ctx context.Context, expenseID int64) ([]Image, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, expense_id, filename, content_type, uploaded_at
		FROM image WHERE expense_id = ? ORDER BY uploaded_at`, expenseID)
	if err != nil {
		return nil, fmt.Errorf("list images: %w", err)
	}
	defer rows.Close()

	var images []Image
	for rows.Next() {
		var img Image
		if err := rows.Scan(&img.ID, &img.ExpenseID, &img.Filename, &img.ContentType, &img.UploadedAt); err != nil {
			return nil, fmt.Errorf("scan image: %w", err)
		}
		images = append(images, img)
	}
	return images, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanExpense(row rowScanner) (core.Expense, error) {
	var (
		e            core.Expense
		categoryID   sql.NullInt64
		categoryName sql.NullString
	)
	err := row.Scan(
		&e.ID, &e.Name, &e.Total, &e.Currency, &e.CreatedAt, &e.IsPayment,
		&e.PaidBy.ID, &e.PaidBy.Name, &e.PaidBy.Email, &e.PaidBy.PhoneNumber,
		&categoryID, &categoryName,
	)
	if err != nil {
		return core.Expense{}, err
	}
	if categoryID.Valid {
		e.Category = &core.Category{ID: categoryID.Int64, Name: categoryName.String}
	}
	return e, nil
}

func insertShares(ctx context.Context, tx *sql.Tx, expenseID int64, shares []core.Share) error {
	for _, s := range shares {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO account_share (expense_id, user_id, share) VALUES (?, ?, ?)",
			expenseID, s.UserID, s.Share); err != nil {
			return fmt.Errorf("insert share for user %d: %w", s.UserID, err)
		}
	}
	return nil
}

func (r *SQLiteRepository) sharesFor(ctx context.Context, expenseIDs []int64) (map[int64][]core.Share, error) {
	result := make(map[int64][]core.Share, len(expenseIDs))
	if len(expenseIDs) == 0 {
		return result, nil
	}

	query := "SELECT expense_id, user_id, share FROM account_share WHERE expense_id IN (?" +
		strings.Repeat(",?", len(expenseIDs)-1) + ") ORDER BY expense_id, user_id"
	args := make([]any, len(expenseIDs))
	for i, id := range expenseIDs {
		args[i] = id
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("load shares: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var s core.Share
		if err := rows.Scan(&s.ExpenseID, &s.UserID, &s.Share); err != nil {
			return nil, fmt.Errorf("scan share: %w", err)
		}
		result[s.ExpenseID] = append(result[s.ExpenseID], s)
	}
	return result, rows.Err()
}
