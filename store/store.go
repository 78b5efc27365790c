// Package store is the persistence boundary: explicit record structs from
// the model package, validated before every write, stored through
// go-repository-bun repositories.
package store

import (
	"context"
	"fmt"
	"reflect"
	"strings"

	goerrors "github.com/goliatone/go-errors"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/schema"
)

// IsNotFound reports whether err means no record matched a lookup. It
// accepts errors produced by the repository layer and by NotFound.
func IsNotFound(err error) bool {
	return repository.IsRecordNotFound(err)
}

// IsInvalid reports whether err is a validation failure raised before a
// write.
func IsInvalid(err error) bool {
	return goerrors.IsValidation(err)
}

// NotFound returns the record-not-found error for what, described by detail.
func NotFound(what, detail string) error {
	return fmt.Errorf("%s %s: %w", what, detail, repository.NewRecordNotFound())
}

// Lookup addresses a single record by id or by its secondary key. When both
// are set the secondary key wins, matching how the cache resolves them.
type Lookup struct {
	ID  string
	Key string
}

// ByID looks a record up by primary id.
func ByID(id string) Lookup { return Lookup{ID: id} }

// ByKey looks a record up by secondary key (slug, username).
func ByKey(key string) Lookup { return Lookup{Key: key} }

func (l Lookup) String() string {
	if l.Key != "" {
		return "key=" + l.Key
	}
	return "id=" + l.ID
}

// Store is the per-entity persistence contract.
type Store[T any] interface {
	FindUnique(ctx context.Context, lookup Lookup) (T, error)
	FindMany(ctx context.Context, ids []string) ([]T, error)
	Create(ctx context.Context, record *T) error
	Update(ctx context.Context, record *T) error
	// Delete removes the record and returns it as it was before deletion.
	Delete(ctx context.Context, id string) (T, error)
}

// LoadFn completes freshly scanned rows, typically with has-many relations.
type LoadFn[T any] func(ctx context.Context, rows []T) error

// unpaged lifts the default page size of repository List calls.
var unpaged = repository.SelectPaginate(0, 0)

// IDFn exposes the string primary key of a record.
type IDFn[T any] func(*T) *string

// Table is a generic Store over a go-repository-bun repository.
type Table[T any] struct {
	db        *bun.DB
	repo      repository.Repository[*T]
	id        IDFn[T]
	keyColumn string
	load      LoadFn[T]
}

// TableOption configures a Table.
type TableOption[T any] func(*Table[T])

// WithKeyColumn sets the column holding the secondary key. Lookups on it
// are case insensitive.
func WithKeyColumn[T any](column string) TableOption[T] {
	return func(t *Table[T]) { t.keyColumn = column }
}

// WithLoad registers a relation loader run after every select.
func WithLoad[T any](fn LoadFn[T]) TableOption[T] {
	return func(t *Table[T]) { t.load = fn }
}

// NewTable creates a Table over db. id exposes the record primary key to the
// repository handlers.
func NewTable[T any](db *bun.DB, id IDFn[T], opts ...TableOption[T]) *Table[T] {
	t := &Table[T]{db: db, id: id}
	for _, opt := range opts {
		opt(t)
	}
	t.repo = repository.NewRepository[*T](db, Handlers(id, t.keyColumn))
	return t
}

// Handlers builds the repository model handlers for a record with a string
// primary key. Ids that are not UUIDs map to a stable name based UUID so the
// repository never mistakes them for unset ids.
func Handlers[T any](id IDFn[T], identifier string) repository.ModelHandlers[*T] {
	if identifier == "" {
		identifier = "id"
	}
	return repository.ModelHandlers[*T]{
		NewRecord: func() *T { return new(T) },
		GetID: func(record *T) uuid.UUID {
			return recordUUID(*id(record))
		},
		SetID: func(record *T, v uuid.UUID) {
			*id(record) = v.String()
		},
		GetIdentifier: func() string { return identifier },
	}
}

func recordUUID(id string) uuid.UUID {
	if id == "" {
		return uuid.Nil
	}
	if u, err := uuid.Parse(id); err == nil {
		return u
	}
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(id))
}

// DB returns the underlying handle.
func (t *Table[T]) DB() *bun.DB {
	return t.db
}

// Repository returns the repository backing the table.
func (t *Table[T]) Repository() repository.Repository[*T] {
	return t.repo
}

func (t *Table[T]) FindUnique(ctx context.Context, lookup Lookup) (T, error) {
	var (
		zero T
		row  *T
		err  error
	)

	switch {
	case lookup.Key != "" && t.keyColumn != "":
		row, err = t.byKey(ctx, lookup.Key)
	case lookup.ID != "":
		row, err = t.repo.GetByID(ctx, lookup.ID)
	default:
		err = repository.NewRecordNotFound()
	}
	if err != nil {
		return zero, t.mapNotFound(err, lookup.String())
	}

	rows := []T{*row}
	if err := t.complete(ctx, rows); err != nil {
		return zero, err
	}
	return rows[0], nil
}

// byKey tries the exact identifier first and falls back to a case
// insensitive match.
func (t *Table[T]) byKey(ctx context.Context, key string) (*T, error) {
	key = strings.TrimSpace(key)

	row, err := t.repo.GetByIdentifier(ctx, key)
	if err == nil || !repository.IsRecordNotFound(err) {
		return row, err
	}

	return t.repo.Get(ctx, repository.SelectRawProcessor(func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("lower(?TableAlias.?) = ?", bun.Ident(t.keyColumn), strings.ToLower(key))
	}))
}

func (t *Table[T]) FindMany(ctx context.Context, ids []string) ([]T, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	records, _, err := t.repo.List(ctx,
		repository.SelectColumnIn("id", ids),
		unpaged,
	)
	if err != nil {
		return nil, err
	}

	rows := make([]T, len(records))
	for i, r := range records {
		rows[i] = *r
	}
	if err := t.complete(ctx, rows); err != nil {
		return nil, err
	}
	return rows, nil
}

func (t *Table[T]) Create(ctx context.Context, record *T) error {
	handlers := t.repo.Handlers()
	if handlers.GetID(record) == uuid.Nil {
		handlers.SetID(record, uuid.New())
	}
	if err := validate(record); err != nil {
		return err
	}
	_, err := t.repo.Create(ctx, record)
	return err
}

// Update writes every column of record, zero values included.
func (t *Table[T]) Update(ctx context.Context, record *T) error {
	if err := validate(record); err != nil {
		return err
	}

	_, err := t.repo.Update(ctx, record, allColumns(record))
	if repository.IsSQLExpectedCountViolation(err) {
		return NotFound(typeName[T](), ByID(*t.id(record)).String())
	}
	return err
}

func (t *Table[T]) Delete(ctx context.Context, id string) (T, error) {
	row, err := t.FindUnique(ctx, ByID(id))
	if err != nil {
		return row, err
	}

	if err := t.repo.Delete(ctx, &row); err != nil {
		return row, err
	}
	return row, nil
}

// DeleteWhere removes every row matched by criteria.
func (t *Table[T]) DeleteWhere(ctx context.Context, criteria ...repository.DeleteCriteria) error {
	return t.repo.DeleteWhere(ctx, criteria...)
}

func (t *Table[T]) complete(ctx context.Context, rows []T) error {
	if t.load == nil || len(rows) == 0 {
		return nil
	}
	return t.load(ctx, rows)
}

func (t *Table[T]) mapNotFound(err error, lookup string) error {
	if repository.IsRecordNotFound(err) {
		return NotFound(typeName[T](), lookup)
	}
	return err
}

// allColumns pins every data column of record into the SET clause. The
// repository update omits zero values otherwise, which would make cleared
// fields impossible to persist.
func allColumns[T any](record *T) repository.UpdateCriteria {
	return repository.UpdateRawProcessor(func(q *bun.UpdateQuery) *bun.UpdateQuery {
		table := q.DB().Table(reflect.TypeOf(record).Elem())
		strct := reflect.ValueOf(record).Elem()
		for _, f := range table.DataFields {
			q = q.Value(f.Name, "?", columnValue{field: f, strct: strct})
		}
		return q
	})
}

type columnValue struct {
	field *schema.Field
	strct reflect.Value
}

func (v columnValue) AppendQuery(fmter schema.Formatter, b []byte) ([]byte, error) {
	return v.field.AppendValue(fmter, b, v.strct), nil
}

func typeName[T any]() string {
	var zero T
	return fmt.Sprintf("%T", zero)
}

func validate(record any) error {
	v, ok := record.(interface{ Validate() error })
	if !ok {
		return nil
	}
	if err := goerrors.ValidateWithOzzo(v.Validate, fmt.Sprintf("invalid %T", record)); err != nil {
		return err
	}
	return nil
}
