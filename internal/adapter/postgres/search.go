package postgres

import (
	"context"
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"
	json "github.com/goccy/go-json"

	"github.com/quarryhq/quarry/internal/domain"
)

func builder() sq.StatementBuilderType {
	return sq.StatementBuilder.PlaceholderFormat(sq.Dollar)
}

// fieldRef locates a queryable field: either a real column of the target
// table or a path into the JSONB source.
type fieldRef struct {
	col  string
	path []string
}

func (f fieldRef) isColumn() bool { return f.col != "" }

// expr returns the SQL expression and its bind args.
func (f fieldRef) expr() (string, []any) {
	if f.isColumn() {
		return f.col, nil
	}
	return "source #>> ?", []any{f.path}
}

// resolveField maps a caller field name onto the snapshots or events table.
// A ".keyword" suffix is accepted and ignored, matching search-backend
// field conventions.
func resolveField(kind, field string) fieldRef {
	field = strings.TrimSuffix(field, ".keyword")

	if kind == domain.KindEvents {
		switch field {
		case "id", "_id":
			return fieldRef{col: "doc_id"}
		case "version":
			return fieldRef{col: "version"}
		case "_meta.created":
			return fieldRef{col: "created"}
		case "_meta.author", "author":
			return fieldRef{col: "author"}
		}
	} else {
		switch field {
		case "id", "_id":
			return fieldRef{col: "doc_id"}
		case "_version", "_meta.version":
			return fieldRef{col: "version"}
		}
	}
	return fieldRef{path: strings.Split(field, ".")}
}

// wildcardPattern converts search wildcards (`*`, `?`) to a LIKE pattern.
func wildcardPattern(p string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	p = r.Replace(p)
	p = strings.ReplaceAll(p, "*", "%")
	return strings.ReplaceAll(p, "?", "_")
}

// queryPredicates translates the caller query into squirrel conjuncts.
func queryPredicates(kind string, q domain.Query) []sq.Sqlizer {
	var preds []sq.Sqlizer

	for field, v := range q.Term {
		f := resolveField(kind, field)
		if f.isColumn() {
			preds = append(preds, sq.Eq{f.col: v})
			continue
		}
		expr, args := f.expr()
		preds = append(preds, sq.Expr(expr+" = ?", append(args, fmt.Sprint(v))...))
	}

	for field, vs := range q.Terms {
		f := resolveField(kind, field)
		if f.isColumn() {
			preds = append(preds, sq.Eq{f.col: vs})
			continue
		}
		strs := make([]string, len(vs))
		for i, v := range vs {
			strs[i] = fmt.Sprint(v)
		}
		expr, args := f.expr()
		preds = append(preds, sq.Expr(expr+" = ANY(?)", append(args, strs)...))
	}

	for field, pattern := range q.Wildcard {
		f := resolveField(kind, field)
		expr, args := f.expr()
		preds = append(preds, sq.Expr(expr+" LIKE ?", append(args, wildcardPattern(pattern))...))
	}

	return preds
}

// Search runs a query against one or more aliases. Requests with
// req.Scroll > 0 additionally open a scroll cursor; requests with req.Agg
// return deduplicated field values instead of hits.
func (g *Gateway) Search(ctx context.Context, req domain.SearchRequest) (domain.SearchResult, error) {
	kind, pred, err := g.resolveTargets(ctx, req.Index)
	if err != nil {
		return domain.SearchResult{}, err
	}

	if req.Agg != nil {
		return g.aggregate(ctx, kind, pred, req)
	}

	res, err := g.page(ctx, kind, pred, req)
	if err != nil {
		return domain.SearchResult{}, err
	}
	if req.Scroll > 0 {
		res.ScrollID = g.openScroll(req, len(res.Hits))
	}
	return res, nil
}

// page runs the count and hits queries for one result page.
func (g *Gateway) page(ctx context.Context, kind string, pred sq.Sqlizer, req domain.SearchRequest) (domain.SearchResult, error) {
	table := "snapshots"
	if kind == domain.KindEvents {
		table = "events"
	}

	preds := append([]sq.Sqlizer{pred}, queryPredicates(kind, req.Query)...)

	countQ := builder().Select("count(*)").From(table)
	for _, p := range preds {
		countQ = countQ.Where(p)
	}
	sql, args, err := countQ.ToSql()
	if err != nil {
		return domain.SearchResult{}, fmt.Errorf("build count query: %w", err)
	}

	var res domain.SearchResult
	if err := g.pool.QueryRow(ctx, sql, args...).Scan(&res.Total); err != nil {
		return domain.SearchResult{}, mapError(err, req.Index, "")
	}

	size := req.Size
	if size <= 0 {
		size = g.cfg.DefaultPageSize
	}
	if size > g.cfg.MaxPageSize {
		size = g.cfg.MaxPageSize
	}

	hitsQ := builder().
		Select("index_name", "doc_id", "version", "source").
		From(table)
	for _, p := range preds {
		hitsQ = hitsQ.Where(p)
	}
	for _, s := range req.Sort {
		f := resolveField(kind, s.Field)
		dir := "ASC"
		if s.Order == domain.SortDesc {
			dir = "DESC"
		}
		if f.isColumn() {
			hitsQ = hitsQ.OrderBy(f.col + " " + dir)
		} else {
			hitsQ = hitsQ.OrderByClause(sq.Expr("source #>> ? "+dir, f.path))
		}
	}
	// Stable fallback order so paging never shuffles.
	hitsQ = hitsQ.OrderBy("index_name", "doc_id")

	sql, args, err = hitsQ.
		Offset(uint64(max(req.From, 0))).
		Limit(uint64(size)).
		ToSql()
	if err != nil {
		return domain.SearchResult{}, fmt.Errorf("build search query: %w", err)
	}

	rows, err := g.pool.Query(ctx, sql, args...)
	if err != nil {
		return domain.SearchResult{}, mapError(err, req.Index, "")
	}
	defer rows.Close()

	for rows.Next() {
		var h domain.Hit
		var source []byte
		if err := rows.Scan(&h.Index, &h.ID, &h.Version, &source); err != nil {
			return domain.SearchResult{}, mapError(err, req.Index, "")
		}
		h.Source = json.RawMessage(source)
		res.Hits = append(res.Hits, h)
	}
	if err := rows.Err(); err != nil {
		return domain.SearchResult{}, mapError(err, req.Index, "")
	}
	return res, nil
}

// aggregate runs a distinct-values (terms aggregation) query.
func (g *Gateway) aggregate(ctx context.Context, kind string, pred sq.Sqlizer, req domain.SearchRequest) (domain.SearchResult, error) {
	table := "snapshots"
	if kind == domain.KindEvents {
		table = "events"
	}

	f := resolveField(kind, req.Agg.Field)
	expr, exprArgs := f.expr()

	size := req.Agg.Size
	if size <= 0 {
		size = 100
	}

	q := builder().
		Select().
		Column(sq.Alias(sq.Expr("DISTINCT "+expr, exprArgs...), "val")).
		From(table).
		Where(pred).
		Where(sq.Expr(expr+" IS NOT NULL", exprArgs...))
	for _, p := range queryPredicates(kind, req.Query) {
		q = q.Where(p)
	}
	if req.Agg.Include != "" {
		q = q.Where(sq.Expr(expr+" LIKE ?", append(exprArgs, wildcardPattern(req.Agg.Include))...))
	}

	sql, args, err := q.OrderBy("val").Limit(uint64(size)).ToSql()
	if err != nil {
		return domain.SearchResult{}, fmt.Errorf("build aggregation query: %w", err)
	}

	rows, err := g.pool.Query(ctx, sql, args...)
	if err != nil {
		return domain.SearchResult{}, mapError(err, req.Index, "")
	}
	defer rows.Close()

	var res domain.SearchResult
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return domain.SearchResult{}, mapError(err, req.Index, "")
		}
		res.Values = append(res.Values, v)
	}
	if err := rows.Err(); err != nil {
		return domain.SearchResult{}, mapError(err, req.Index, "")
	}
	res.Total = int64(len(res.Values))
	return res, nil
}
