// Package query translates request query strings into filtered, sorted,
// projected and paginated database queries.
//
// Parsing is pure: Parse turns url.Values into an Options value without
// touching the database. Apply then chains the stages onto a gorm query in
// order (filter, sort, field selection, pagination); nothing executes until
// the caller runs the final query.
package query

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/Tosino95/natours/internal/apperror"
	"gorm.io/gorm"
)

// Reserved control keys, never treated as entity filter fields.
const (
	keyPage   = "page"
	keySort   = "sort"
	keyLimit  = "limit"
	keyFields = "fields"
)

const (
	DefaultPage  = 1
	DefaultLimit = 100
)

// Op is a comparison operator in a filter condition.
type Op string

const (
	OpEq  Op = "="
	OpGte Op = ">="
	OpGt  Op = ">"
	OpLte Op = "<="
	OpLt  Op = "<"
)

var suffixOps = map[string]Op{
	"gte": OpGte,
	"gt":  OpGt,
	"lte": OpLte,
	"lt":  OpLt,
}

// Filter is a single conjunctive field constraint.
type Filter struct {
	Field string
	Op    Op
	Value string
}

// Sort is one key of a composite ordering.
type Sort struct {
	Field string
	Desc  bool
}

// Options is the parsed query specification.
type Options struct {
	Filters []Filter
	Sorts   []Sort
	Fields  []string
	Page    int
	Limit   int
}

// Parse builds Options from raw query values. Comparison suffixes use the
// bracket form, e.g. price[gte]=500. Control keys (page, sort, limit, fields)
// are consumed here and never leak into the filter list.
func Parse(values url.Values) (Options, error) {
	opts := Options{Page: DefaultPage, Limit: DefaultLimit}

	for key, vals := range values {
		switch key {
		case keyPage, keySort, keyLimit, keyFields:
			continue
		}
		field, op := splitKey(key)
		for _, v := range vals {
			opts.Filters = append(opts.Filters, Filter{Field: field, Op: op, Value: v})
		}
	}

	if raw := values.Get(keySort); raw != "" {
		for _, part := range strings.Split(raw, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			if strings.HasPrefix(part, "-") {
				opts.Sorts = append(opts.Sorts, Sort{Field: part[1:], Desc: true})
			} else {
				opts.Sorts = append(opts.Sorts, Sort{Field: part})
			}
		}
	}

	if raw := values.Get(keyFields); raw != "" {
		for _, part := range strings.Split(raw, ",") {
			if part = strings.TrimSpace(part); part != "" {
				opts.Fields = append(opts.Fields, part)
			}
		}
	}

	if raw := values.Get(keyPage); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return Options{}, apperror.Newf(apperror.KindValidation, "invalid page value %q", raw)
		}
		opts.Page = n
	}
	if raw := values.Get(keyLimit); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return Options{}, apperror.Newf(apperror.KindValidation, "invalid limit value %q", raw)
		}
		opts.Limit = n
	}

	return opts, nil
}

// splitKey separates a comparison suffix from a field name: "price[gte]"
// becomes ("price", OpGte); a bare key is an equality constraint.
func splitKey(key string) (string, Op) {
	open := strings.IndexByte(key, '[')
	if open <= 0 || !strings.HasSuffix(key, "]") {
		return key, OpEq
	}
	if op, ok := suffixOps[key[open+1:len(key)-1]]; ok {
		return key[:open], op
	}
	return key, OpEq
}

// Skip is the offset implied by page and limit.
func (o Options) Skip() int {
	return (o.Page - 1) * o.Limit
}

// CheckPage reports a client error when the requested page lies entirely
// beyond the matching result count. The first page of an empty result is a
// normal empty list, not an error.
func (o Options) CheckPage(total int64) error {
	if o.Page > 1 && int64(o.Skip()) >= total {
		return apperror.NotFound("this page does not exist")
	}
	return nil
}

// Schema declares how an entity is exposed to querying. Field names in
// requests are the JSON names; Columns whitelists them and maps each onto its
// database column. Anything not listed cannot be filtered, sorted or
// selected.
type Schema struct {
	// Columns maps exposed field name to column name.
	Columns map[string]string

	// Excluded columns are stripped from every projection, even when
	// explicitly requested.
	Excluded []string

	// BaseFilter is composed into every query at construction time. It is
	// the explicit replacement for implicit store-level query rewriting
	// (soft-deleted users, secret tours).
	BaseFilter func(tx *gorm.DB) *gorm.DB

	// DefaultSort applies when the request names no sort keys.
	// Defaults to newest-first by creation time.
	DefaultSort string
}

func (s Schema) column(field string) (string, bool) {
	col, ok := s.Columns[field]
	return col, ok
}

func (s Schema) excluded(col string) bool {
	for _, e := range s.Excluded {
		if e == col {
			return true
		}
	}
	return false
}

// Apply chains the four stages onto tx and returns the composed query. The
// result is still lazy; the caller decides when to execute it.
func (o Options) Apply(tx *gorm.DB, s Schema) (*gorm.DB, error) {
	tx, err := o.ApplyFilter(tx, s)
	if err != nil {
		return nil, err
	}
	tx, err = o.applySort(tx, s)
	if err != nil {
		return nil, err
	}
	tx, err = o.applyFields(tx, s)
	if err != nil {
		return nil, err
	}
	return tx.Offset(o.Skip()).Limit(o.Limit), nil
}

// ApplyFilter composes the base filter and the request's conjunctive
// constraints. Exposed separately so list handlers can count matches on the
// filtered set before pagination.
func (o Options) ApplyFilter(tx *gorm.DB, s Schema) (*gorm.DB, error) {
	if s.BaseFilter != nil {
		tx = s.BaseFilter(tx)
	}
	for _, f := range o.Filters {
		col, ok := s.column(f.Field)
		if !ok {
			return nil, apperror.Newf(apperror.KindValidation, "cannot filter by %q", f.Field)
		}
		tx = tx.Where(fmt.Sprintf("%s %s ?", col, f.Op), coerce(f.Value))
	}
	return tx, nil
}

func (o Options) applySort(tx *gorm.DB, s Schema) (*gorm.DB, error) {
	if len(o.Sorts) == 0 {
		order := s.DefaultSort
		if order == "" {
			order = "created_at DESC"
		}
		return tx.Order(order), nil
	}
	for _, srt := range o.Sorts {
		col, ok := s.column(srt.Field)
		if !ok {
			return nil, apperror.Newf(apperror.KindValidation, "cannot sort by %q", srt.Field)
		}
		if srt.Desc {
			col += " DESC"
		}
		tx = tx.Order(col)
	}
	return tx, nil
}

func (o Options) applyFields(tx *gorm.DB, s Schema) (*gorm.DB, error) {
	if len(o.Fields) == 0 {
		if len(s.Excluded) > 0 {
			tx = tx.Omit(s.Excluded...)
		}
		return tx, nil
	}

	cols := make([]string, 0, len(o.Fields)+1)
	for _, f := range o.Fields {
		col, ok := s.column(f)
		if !ok {
			return nil, apperror.Newf(apperror.KindValidation, "cannot select field %q", f)
		}
		if s.excluded(col) {
			continue
		}
		cols = append(cols, col)
	}
	// The identifier always rides along so responses stay addressable.
	if _, ok := s.Columns["id"]; ok && !contains(cols, "id") {
		cols = append(cols, "id")
	}
	return tx.Select(cols), nil
}

func contains(ss []string, s string) bool {
	for _, v := range ss {
		if v == s {
			return true
		}
	}
	return false
}

// coerce converts a raw query value into a typed bind parameter so numeric
// and boolean columns compare correctly.
func coerce(v string) any {
	if n, err := strconv.ParseInt(v, 10, 64); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(v, 64); err == nil {
		return f
	}
	if b, err := strconv.ParseBool(v); err == nil {
		return b
	}
	return v
}
