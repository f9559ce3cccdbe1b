// Package resource generates the five CRUD operations for an entity type.
// Handlers assume authorization has already been decided by middleware placed
// before them; their only side effects are against the backing store.
package resource

import (
	"net/http"
	"reflect"

	"github.com/Tosino95/natours/internal/apperror"
	"github.com/Tosino95/natours/internal/query"
	"github.com/Tosino95/natours/internal/utils"
	"github.com/go-chi/chi/v5"
	"gorm.io/gorm"
)

// Validator is implemented by entities with schema-level constraints. It is
// evaluated against the fully materialized candidate record, so constraints
// may reference sibling fields.
type Validator interface {
	Validate() error
}

// Derived is implemented by entities with read-time computed fields. Derive
// runs explicitly after every fetch; derived fields are never persisted.
type Derived interface {
	Derive()
}

// Hook runs inside a write operation with the entity involved.
type Hook[T any] func(tx *gorm.DB, entity *T) error

// Resource produces HTTP handlers for one entity type.
type Resource[T any] struct {
	DB     *gorm.DB
	Name   string // singular, used in messages and response keys
	Plural string // response key for lists
	Schema query.Schema

	// GetPreloads are relations eager-loaded by GetByID.
	GetPreloads []string
	// ListPreloads are relations eager-loaded by List.
	ListPreloads []string

	// BeforeCreate may fill derived or defaulted fields from the request
	// before validation runs.
	BeforeCreate func(r *http.Request, entity *T) error
	// BeforeUpdate runs after the payload is merged onto the stored entity
	// and before validation; used to pin fields an update must not change.
	BeforeUpdate func(stored, merged *T) error
	// AfterCreate, AfterUpdate and AfterDelete run after a successful write,
	// e.g. to recompute denormalized aggregates.
	AfterCreate Hook[T]
	AfterUpdate Hook[T]
	AfterDelete Hook[T]
}

func (rs *Resource[T]) model() *gorm.DB { return rs.DB.Model(new(T)) }

// List applies the query pipeline (filter, sort, projection, pagination) and
// returns the page with a result count.
func (rs *Resource[T]) List(w http.ResponseWriter, r *http.Request) {
	opts, err := query.Parse(r.URL.Query())
	if err != nil {
		apperror.Respond(w, err)
		return
	}

	filtered, err := opts.ApplyFilter(rs.model(), rs.Schema)
	if err != nil {
		apperror.Respond(w, err)
		return
	}
	var total int64
	if err := filtered.Count(&total).Error; err != nil {
		apperror.Respond(w, apperror.FromDB(err, rs.Name))
		return
	}
	if err := opts.CheckPage(total); err != nil {
		apperror.Respond(w, err)
		return
	}

	tx, err := opts.Apply(rs.model(), rs.Schema)
	if err != nil {
		apperror.Respond(w, err)
		return
	}
	for _, rel := range rs.ListPreloads {
		tx = tx.Preload(rel)
	}

	var items []T
	if err := tx.Find(&items).Error; err != nil {
		apperror.Respond(w, apperror.FromDB(err, rs.Name))
		return
	}
	for i := range items {
		derive(&items[i])
	}
	utils.SuccessList(w, len(items), map[string]any{rs.Plural: items})
}

// GetByID fetches one entity, eager-loading the declared relations.
func (rs *Resource[T]) GetByID(w http.ResponseWriter, r *http.Request) {
	entity, err := rs.fetch(chi.URLParam(r, "id"))
	if err != nil {
		apperror.Respond(w, err)
		return
	}
	utils.Success(w, http.StatusOK, map[string]any{rs.Name: entity})
}

// Create validates and inserts a new entity from the request payload.
func (rs *Resource[T]) Create(w http.ResponseWriter, r *http.Request) {
	entity := new(T)
	if err := utils.DecodeJSON(r, entity); err != nil {
		apperror.Respond(w, apperror.Wrap(apperror.KindValidation, "invalid request body", err))
		return
	}
	if rs.BeforeCreate != nil {
		if err := rs.BeforeCreate(r, entity); err != nil {
			apperror.Respond(w, err)
			return
		}
	}
	if err := validate(entity); err != nil {
		apperror.Respond(w, err)
		return
	}
	if err := rs.DB.Create(entity).Error; err != nil {
		apperror.Respond(w, apperror.FromDB(err, rs.Name))
		return
	}
	if err := rs.runHook(rs.AfterCreate, entity); err != nil {
		apperror.Respond(w, err)
		return
	}
	derive(entity)
	utils.Success(w, http.StatusCreated, map[string]any{rs.Name: entity})
}

// Update applies a partial update: the stored entity is fetched, the payload
// merged onto it, constraints re-validated against the merged result, and the
// whole row saved.
func (rs *Resource[T]) Update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	entity, err := rs.fetchForWrite(id)
	if err != nil {
		apperror.Respond(w, err)
		return
	}
	stored := *entity
	if err := utils.DecodeJSON(r, entity); err != nil {
		apperror.Respond(w, apperror.Wrap(apperror.KindValidation, "invalid request body", err))
		return
	}
	// The identifier comes from the URL; a payload cannot move the row.
	setID(entity, id)
	if rs.BeforeUpdate != nil {
		if err := rs.BeforeUpdate(&stored, entity); err != nil {
			apperror.Respond(w, err)
			return
		}
	}
	if err := validate(entity); err != nil {
		apperror.Respond(w, err)
		return
	}
	if err := rs.DB.Where("id = ?", id).Save(entity).Error; err != nil {
		apperror.Respond(w, apperror.FromDB(err, rs.Name))
		return
	}
	if err := rs.runHook(rs.AfterUpdate, entity); err != nil {
		apperror.Respond(w, err)
		return
	}
	derive(entity)
	utils.Success(w, http.StatusOK, map[string]any{rs.Name: entity})
}

// Delete removes an entity by id; a successful deletion returns no body.
func (rs *Resource[T]) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	entity, err := rs.fetchForWrite(id)
	if err != nil {
		apperror.Respond(w, err)
		return
	}
	if err := rs.DB.Where("id = ?", id).Delete(new(T)).Error; err != nil {
		apperror.Respond(w, apperror.FromDB(err, rs.Name))
		return
	}
	if err := rs.runHook(rs.AfterDelete, entity); err != nil {
		apperror.Respond(w, err)
		return
	}
	utils.NoContent(w)
}

// fetch loads one entity through the base filter with read preloads.
func (rs *Resource[T]) fetch(id string) (*T, error) {
	tx := rs.model()
	if rs.Schema.BaseFilter != nil {
		tx = rs.Schema.BaseFilter(tx)
	}
	for _, rel := range rs.GetPreloads {
		tx = tx.Preload(rel)
	}
	entity := new(T)
	if err := tx.First(entity, "id = ?", id).Error; err != nil {
		return nil, apperror.FromDB(err, rs.Name)
	}
	derive(entity)
	return entity, nil
}

// fetchForWrite loads one entity without preloads for update/delete.
func (rs *Resource[T]) fetchForWrite(id string) (*T, error) {
	tx := rs.model()
	if rs.Schema.BaseFilter != nil {
		tx = rs.Schema.BaseFilter(tx)
	}
	entity := new(T)
	if err := tx.First(entity, "id = ?", id).Error; err != nil {
		return nil, apperror.FromDB(err, rs.Name)
	}
	return entity, nil
}

func (rs *Resource[T]) runHook(h Hook[T], entity *T) error {
	if h == nil {
		return nil
	}
	return h(rs.DB, entity)
}

// setID overwrites the entity's string ID field, if it has one. Update calls
// it after merging the payload so a body carrying "id" cannot repoint the row.
func setID(entity any, id string) {
	f := reflect.ValueOf(entity).Elem().FieldByName("ID")
	if f.IsValid() && f.CanSet() && f.Kind() == reflect.String {
		f.SetString(id)
	}
}

func derive(entity any) {
	if d, ok := entity.(Derived); ok {
		d.Derive()
	}
}

func validate(entity any) error {
	v, ok := entity.(Validator)
	if !ok {
		return nil
	}
	if err := v.Validate(); err != nil {
		return apperror.Wrap(apperror.KindValidation, err.Error(), err)
	}
	return nil
}
