package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"

	"github.com/mmeshcher/coffeeshop/internal/model"
)

const productColumns = `id, name, description, price, image, roast_level, grind, size, stock, created_at, updated_at`

// CreateProduct добавляет товар в каталог.
func (r *PostgresRepository) CreateProduct(ctx context.Context, p model.Product) (*model.Product, error) {
	priceCents, err := model.DecimalToCents(p.Price)
	if err != nil {
		return nil, fmt.Errorf("product price: %w", err)
	}

	row := r.pool.QueryRow(ctx,
		`INSERT INTO products (name, description, price, image, roast_level, grind, size, stock)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING `+productColumns,
		p.Name, p.Description, priceCents, p.Image, p.RoastLevel, p.Grind, p.Size, p.Stock,
	)
	created, err := scanProduct(row)
	if err != nil {
		if pgErrorCode(err) == pgerrcode.UniqueViolation {
			return nil, fmt.Errorf("%w: %s", ErrProductExists, p.Name)
		}
		return nil, err
	}
	return created, nil
}

// GetProduct возвращает товар по идентификатору.
func (r *PostgresRepository) GetProduct(ctx context.Context, id int64) (*model.Product, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+productColumns+` FROM products WHERE id = $1`,
		id,
	)
	return scanProduct(row)
}

// GetProductsByIDs возвращает найденные товары по набору идентификаторов. Отсутствующие пропускаются.
func (r *PostgresRepository) GetProductsByIDs(ctx context.Context, ids []int64) (map[int64]model.Product, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+productColumns+` FROM products WHERE id = ANY($1)`,
		ids,
	)
	if err != nil {
		return nil, fmt.Errorf("select products: %w", err)
	}
	defer rows.Close()

	res := make(map[int64]model.Product, len(ids))
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		res[p.ID] = *p
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return res, nil
}

// ListProducts возвращает товары каталога, новые первыми.
func (r *PostgresRepository) ListProducts(ctx context.Context, f model.ProductFilter) ([]model.Product, error) {
	var (
		conds []string
		args  []any
	)
	addCond := func(column, value string) {
		if value == "" {
			return
		}
		args = append(args, value)
		conds = append(conds, fmt.Sprintf("lower(%s) = lower($%d)", column, len(args)))
	}
	addCond("roast_level", f.RoastLevel)
	addCond("grind", f.Grind)
	addCond("size", f.Size)
	if f.AvailableOnly {
		conds = append(conds, "stock > 0")
	}

	query := `SELECT ` + productColumns + ` FROM products`
	if len(conds) > 0 {
		query += ` WHERE ` + strings.Join(conds, " AND ")
	}
	query += ` ORDER BY created_at DESC, id DESC`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("select products: %w", err)
	}
	defer rows.Close()

	var products []model.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, *p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return products, nil
}

// UpdateProduct обновляет только переданные поля товара.
func (r *PostgresRepository) UpdateProduct(ctx context.Context, id int64, upd model.ProductUpdate) (*model.Product, error) {
	var priceCents *int64
	if upd.Price != nil {
		v, err := model.DecimalToCents(*upd.Price)
		if err != nil {
			return nil, fmt.Errorf("product price: %w", err)
		}
		priceCents = &v
	}

	row := r.pool.QueryRow(ctx,
		`UPDATE products SET
			name        = COALESCE($2::text, name),
			description = COALESCE($3::text, description),
			price       = COALESCE($4::bigint, price),
			image       = COALESCE($5::text, image),
			roast_level = COALESCE($6::text, roast_level),
			grind       = COALESCE($7::text, grind),
			size        = COALESCE($8::text, size),
			stock       = COALESCE($9::integer, stock),
			updated_at  = now()
		 WHERE id = $1
		 RETURNING `+productColumns,
		id, upd.Name, upd.Description, priceCents, upd.Image, upd.RoastLevel, upd.Grind, upd.Size, upd.Stock,
	)
	updated, err := scanProduct(row)
	if err != nil {
		if pgErrorCode(err) == pgerrcode.UniqueViolation {
			return nil, ErrProductExists
		}
		return nil, err
	}
	return updated, nil
}

// DeleteProduct удаляет товар. Товар, на который ссылаются заказы, удалить нельзя.
func (r *PostgresRepository) DeleteProduct(ctx context.Context, id int64) error {
	cmdTag, err := r.pool.Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		if pgErrorCode(err) == pgerrcode.ForeignKeyViolation {
			return ErrProductInUse
		}
		return fmt.Errorf("delete product: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrProductNotFound
	}
	return nil
}

func scanProduct(row pgx.Row) (*model.Product, error) {
	var (
		p          model.Product
		priceCents int64
	)
	err := row.Scan(&p.ID, &p.Name, &p.Description, &priceCents, &p.Image,
		&p.RoastLevel, &p.Grind, &p.Size, &p.Stock, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("scan product: %w", err)
	}
	p.Price = model.CentsToDecimal(priceCents)
	return &p, nil
}
