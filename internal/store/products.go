package store

import (
	"context"
	"fmt"
	"strings"

	"image-search-service/internal/models"

	"github.com/jmoiron/sqlx"
)

// productColumns selects the full catalog row plus the display image. The
// subquery orders is_primary first so a product with zero or several primary
// images still yields exactly one URL.
const productColumns = `
	p.id, p.product_id, p.product_title, p.description, p.category,
	p.sub_category, p.product_type, p.gender, p.colour, p.brand,
	p.price, p.in_stock, p.created_at,
	(SELECT pi.image_url FROM product_images pi
	 WHERE pi.product_id = p.id
	 ORDER BY pi.is_primary DESC, pi.created_at ASC
	 LIMIT 1) AS image_url`

// sortColumns maps API sort fields onto catalog columns.
var sortColumns = map[models.SortField]string{
	models.SortByName:       "p.product_title",
	models.SortByPrice:      "p.price",
	models.SortByCreatedAt:  "p.created_at",
	models.SortByPopularity: "p.popularity",
}

// distinctColumns whitelists the columns the enumeration endpoints may query.
var distinctColumns = map[string]string{
	"category":     "category",
	"gender":       "gender",
	"sub_category": "sub_category",
	"product_type": "product_type",
	"colour":       "colour",
	"brand":        "brand",
}

// ListProducts executes the combined filter predicate and returns one page of
// products plus the total count matching the filter before paging.
func (s *Store) ListProducts(ctx context.Context, filter models.FilterSpec, sort models.SortSpec, page models.PageSpec) ([]models.Product, int, error) {
	where, args := buildWhere(filter)

	countQuery := "SELECT COUNT(*) FROM products p" + where
	var total int
	if err := s.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count products: %v: %w", err, models.ErrStoreUnavailable)
	}

	query, args := buildListQuery(filter, sort, page)
	products := []models.Product{}
	if err := s.db.SelectContext(ctx, &products, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list products: %v: %w", err, models.ErrStoreUnavailable)
	}

	return products, total, nil
}

// GetProductsByExternalIDs resolves external product ids to full catalog
// rows. Ids with no catalog row are simply absent from the returned map.
func (s *Store) GetProductsByExternalIDs(ctx context.Context, ids []string) (map[string]models.Product, error) {
	if len(ids) == 0 {
		return map[string]models.Product{}, nil
	}

	query, args, err := sqlx.In(
		"SELECT"+productColumns+" FROM products p WHERE p.product_id IN (?)", ids)
	if err != nil {
		return nil, fmt.Errorf("build id lookup: %w", err)
	}
	query = s.db.Rebind(query)

	var products []models.Product
	if err := s.db.SelectContext(ctx, &products, query, args...); err != nil {
		return nil, fmt.Errorf("fetch products by ids: %v: %w", err, models.ErrStoreUnavailable)
	}

	out := make(map[string]models.Product, len(products))
	for _, p := range products {
		out[p.ProductID] = p
	}
	return out, nil
}

// DistinctValues returns the distinct non-empty values of a whitelisted
// catalog column, sorted ascending.
func (s *Store) DistinctValues(ctx context.Context, field string) ([]string, error) {
	col, ok := distinctColumns[field]
	if !ok {
		return nil, fmt.Errorf("unknown enumeration field: %s", field)
	}

	query := fmt.Sprintf(
		"SELECT DISTINCT %s FROM products WHERE %s IS NOT NULL AND %s <> '' ORDER BY %s",
		col, col, col, col)

	values := []string{}
	if err := s.db.SelectContext(ctx, &values, query); err != nil {
		return nil, fmt.Errorf("distinct %s: %v: %w", field, err, models.ErrStoreUnavailable)
	}
	return values, nil
}

// buildWhere renders the AND-combined filter predicate with positional args.
func buildWhere(filter models.FilterSpec) (string, []interface{}) {
	clauses := []string{}
	args := []interface{}{}

	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.Search != "" {
		p := arg("%" + escapeLikeTerm(filter.Search) + "%")
		clauses = append(clauses, fmt.Sprintf(
			"(p.product_title ILIKE %s OR p.description ILIKE %s OR p.brand ILIKE %s)", p, p, p))
	}
	if filter.Gender != "" {
		clauses = append(clauses, "p.gender = "+arg(filter.Gender))
	}
	if filter.Category != "" {
		clauses = append(clauses, "p.category = "+arg(filter.Category))
	}
	if filter.SubCategory != "" {
		clauses = append(clauses, "p.sub_category = "+arg(filter.SubCategory))
	}
	if filter.ProductType != "" {
		clauses = append(clauses, "p.product_type = "+arg(filter.ProductType))
	}
	if filter.Colour != "" {
		clauses = append(clauses, "p.colour = "+arg(filter.Colour))
	}
	if filter.MinPrice != nil {
		clauses = append(clauses, "p.price >= "+arg(*filter.MinPrice))
	}
	if filter.MaxPrice != nil {
		clauses = append(clauses, "p.price <= "+arg(*filter.MaxPrice))
	}
	if filter.InStock != nil {
		clauses = append(clauses, "p.in_stock = "+arg(*filter.InStock))
	}

	if len(clauses) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

// escapeLikeTerm neutralizes ILIKE pattern metacharacters so the search term
// matches literally: "100%" matches "100%", not every row starting with 100.
func escapeLikeTerm(term string) string {
	return likeEscaper.Replace(term)
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// buildListQuery renders the page query. The ORDER BY always ends in
// p.product_id ASC: without a unique final sort key, rows sharing a sort
// value can duplicate or vanish across page boundaries.
func buildListQuery(filter models.FilterSpec, sort models.SortSpec, page models.PageSpec) (string, []interface{}) {
	where, args := buildWhere(filter)

	col, ok := sortColumns[sort.Field]
	if !ok {
		col = sortColumns[models.SortByName]
	}
	dir := "ASC"
	if sort.Order == models.SortDesc {
		dir = "DESC"
	}

	query := fmt.Sprintf(
		"SELECT%s FROM products p%s ORDER BY %s %s, p.product_id ASC LIMIT $%d OFFSET $%d",
		productColumns, where, col, dir, len(args)+1, len(args)+2)

	args = append(args, page.PageSize, (page.Page-1)*page.PageSize)
	return query, args
}
