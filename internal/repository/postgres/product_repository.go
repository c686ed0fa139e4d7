package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/Lixing-Zhang/nutri-catalog/backend/internal/models"
	"github.com/Lixing-Zhang/nutri-catalog/backend/internal/nutriscore"
	"github.com/Lixing-Zhang/nutri-catalog/backend/internal/repository"
)

const productColumns = `id, name, brand, category, description, price, ingredients,
	nutrition_facts, rating, nutri_score, created_at, updated_at`

// ProductRepository implements repository.ProductRepository on Postgres.
type ProductRepository struct {
	db *sql.DB
}

func NewProductRepository(db *sql.DB) *ProductRepository {
	return &ProductRepository{db: db}
}

type scanner interface {
	Scan(dest ...any) error
}

func scanProduct(row scanner) (models.Product, error) {
	var (
		p           models.Product
		ingredients []byte
		facts       []byte
		rating      string
	)
	err := row.Scan(&p.ID, &p.Name, &p.Brand, &p.Category, &p.Description, &p.Price,
		&ingredients, &facts, &rating, &p.NutriScore, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return p, err
	}
	if err := json.Unmarshal(ingredients, &p.Ingredients); err != nil {
		return p, fmt.Errorf("decode ingredients: %w", err)
	}
	if err := json.Unmarshal(facts, &p.NutritionFacts); err != nil {
		return p, fmt.Errorf("decode nutrition facts: %w", err)
	}
	p.Rating = nutriscore.Grade(rating)
	return p, nil
}

func productArgs(p *models.Product) ([]any, error) {
	ingredients := p.Ingredients
	if ingredients == nil {
		ingredients = []string{}
	}
	ing, err := json.Marshal(ingredients)
	if err != nil {
		return nil, fmt.Errorf("encode ingredients: %w", err)
	}
	facts, err := json.Marshal(p.NutritionFacts)
	if err != nil {
		return nil, fmt.Errorf("encode nutrition facts: %w", err)
	}
	return []any{p.ID, p.Name, p.Brand, p.Category, p.Description, p.Price,
		ing, facts, string(p.Rating), p.NutriScore, p.CreatedAt, p.UpdatedAt}, nil
}

// whereClause builds the WHERE clause and its arguments for filter.
func whereClause(filter models.ProductFilter) (string, []any) {
	var (
		conds []string
		args  []any
	)
	if filter.Category != "" {
		args = append(args, filter.Category)
		conds = append(conds, fmt.Sprintf("category = $%d", len(args)))
	}
	if filter.Rating != "" {
		args = append(args, string(filter.Rating))
		conds = append(conds, fmt.Sprintf("rating = $%d", len(args)))
	}
	if filter.Keyword != "" {
		args = append(args, "%"+escapeLike(filter.Keyword)+"%")
		n := len(args)
		conds = append(conds, fmt.Sprintf(`(name ILIKE $%[1]d OR brand ILIKE $%[1]d OR description ILIKE $%[1]d
			OR EXISTS (SELECT 1 FROM jsonb_array_elements_text(ingredients) AS i WHERE i ILIKE $%[1]d))`, n))
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

func (r *ProductRepository) GetAll(ctx context.Context, filter models.ProductFilter) ([]models.Product, int, error) {
	where, args := whereClause(filter)

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM products`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count products: %w", err)
	}

	query := `SELECT ` + productColumns + ` FROM products` + where +
		` ORDER BY rating, lower(name) COLLATE "C"`
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	products, err := r.query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	return products, total, nil
}

func (r *ProductRepository) query(ctx context.Context, query string, args ...any) ([]models.Product, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	products := []models.Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

func (r *ProductRepository) GetByID(ctx context.Context, id string) (*models.Product, error) {
	pid, ok := parseID(id)
	if !ok {
		return nil, repository.ErrProductNotFound
	}
	p, err := scanProduct(r.db.QueryRowContext(ctx,
		`SELECT `+productColumns+` FROM products WHERE id = $1`, pid))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrProductNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get product %s: %w", id, err)
	}
	return &p, nil
}

func (r *ProductRepository) Create(ctx context.Context, product *models.Product) error {
	args, err := productArgs(product)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO products (`+productColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`, args...)
	if err != nil {
		return fmt.Errorf("create product: %w", err)
	}
	return nil
}

func (r *ProductRepository) Update(ctx context.Context, product *models.Product) error {
	args, err := productArgs(product)
	if err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx,
		`UPDATE products
		 SET name = $2, brand = $3, category = $4, description = $5, price = $6,
		     ingredients = $7, nutrition_facts = $8, rating = $9, nutri_score = $10,
		     created_at = $11, updated_at = $12
		 WHERE id = $1`, args...)
	if err != nil {
		return fmt.Errorf("update product %s: %w", product.ID, err)
	}
	return expectRow(res, repository.ErrProductNotFound)
}

func (r *ProductRepository) Delete(ctx context.Context, id string) error {
	pid, ok := parseID(id)
	if !ok {
		return repository.ErrProductNotFound
	}
	res, err := r.db.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, pid)
	if err != nil {
		return fmt.Errorf("delete product %s: %w", id, err)
	}
	return expectRow(res, repository.ErrProductNotFound)
}

func (r *ProductRepository) Categories(ctx context.Context) ([]models.Category, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT category, COUNT(*) FROM products GROUP BY category ORDER BY category COLLATE "C"`)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	categories := []models.Category{}
	for rows.Next() {
		var c models.Category
		if err := rows.Scan(&c.Name, &c.Count); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		c.DisplayName = models.CategoryDisplayName(c.Name)
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

func (r *ProductRepository) CountByRating(ctx context.Context) (map[nutriscore.Grade]int, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT rating, COUNT(*) FROM products GROUP BY rating`)
	if err != nil {
		return nil, fmt.Errorf("count ratings: %w", err)
	}
	defer rows.Close()

	counts := repository.CountRatings(nil)
	for rows.Next() {
		var (
			rating string
			n      int
		)
		if err := rows.Scan(&rating, &n); err != nil {
			return nil, fmt.Errorf("scan rating count: %w", err)
		}
		if g := nutriscore.Grade(rating); g.Valid() {
			counts[g] = n
		}
	}
	return counts, rows.Err()
}

func (r *ProductRepository) ListByCategory(ctx context.Context, category string) ([]models.Product, error) {
	products, _, err := r.GetAll(ctx, models.ProductFilter{Category: category})
	return products, err
}

// parseID reports whether id is a UUID. Ids that are not cannot match a
// UUID primary key, so callers treat them as not found.
func parseID(id string) (uuid.UUID, bool) {
	u, err := uuid.Parse(id)
	return u, err == nil
}

func expectRow(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return notFound
	}
	return nil
}
