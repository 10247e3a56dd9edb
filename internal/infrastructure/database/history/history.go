// Package history versions every mutation of the domain tables: a
// gorm plugin stamps optimistic-lock versions, guards updates and
// deletes against stale versions, and writes one immutable snapshot
// record per committed mutation. Records survive deletion of the live
// row and share the transaction of the mutation they describe.
package history

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/moyogo/clld/internal/entity"
)

// Op is the kind of mutation a record describes.
type Op string

const (
	OpCreate Op = "create"
	OpUpdate Op = "update"
	OpDelete Op = "delete"
)

// Record is one immutable snapshot of a versioned object. For creates
// the snapshot holds the created state, for updates and deletes the
// state the mutation replaced. (object_type, object_pk, version) is
// unique, which keeps version numbers free of duplicates under
// concurrent writers.
type Record struct {
	PK         int64          `gorm:"primaryKey;autoIncrement" json:"pk"`
	ChangeID   string         `gorm:"size:36;not null" json:"change_id"`
	ObjectType string         `gorm:"size:40;not null;uniqueIndex:uq_history_object_version,priority:1" json:"object_type"`
	ObjectPK   int64          `gorm:"not null;uniqueIndex:uq_history_object_version,priority:2" json:"object_pk"`
	Version    int            `gorm:"not null;uniqueIndex:uq_history_object_version,priority:3" json:"version"`
	Op         Op             `gorm:"size:10;not null" json:"op"`
	ChangedBy  string         `gorm:"size:100" json:"changed_by,omitempty"`
	ChangedAt  time.Time      `gorm:"not null" json:"changed_at"`
	Snapshot   datatypes.JSON `json:"snapshot"`
}

func (Record) TableName() string { return "history_records" }

// Subject is implemented by every versioned model.
type Subject interface {
	ObjectKind() entity.Kind
	ObjectPK() int64
	CurrentVersion() int
	SetVersion(int)
}

var errBatchVersioned = errors.New("history: batch writes of versioned models are not supported")

const instancePrior = "history:prior"

// Plugin hooks the versioning callbacks into a gorm DB. Install with
// db.Use(history.New()).
type Plugin struct{}

func New() *Plugin { return &Plugin{} }

func (*Plugin) Name() string { return "history" }

func (p *Plugin) Initialize(db *gorm.DB) error {
	create := db.Callback().Create()
	if err := create.Before("gorm:create").Register("history:before_create", p.beforeCreate); err != nil {
		return err
	}
	if err := create.After("gorm:create").Register("history:after_create", p.afterCreate); err != nil {
		return err
	}
	update := db.Callback().Update()
	if err := update.Before("gorm:update").Register("history:before_update", p.beforeUpdate); err != nil {
		return err
	}
	if err := update.After("gorm:update").Register("history:after_update", p.afterUpdate); err != nil {
		return err
	}
	del := db.Callback().Delete()
	if err := del.Before("gorm:delete").Register("history:before_delete", p.beforeDelete); err != nil {
		return err
	}
	return del.After("gorm:delete").Register("history:after_delete", p.afterDelete)
}

type target struct {
	sub Subject
	rv  reflect.Value
}

// targets collects the versioned models a statement writes. Most
// statements carry a single struct; create supports slices as well.
func targets(db *gorm.DB) []target {
	rv := db.Statement.ReflectValue
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		out := make([]target, 0, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			ev := rv.Index(i)
			if ev.Kind() == reflect.Ptr {
				if ev.IsNil() {
					continue
				}
				if s, ok := ev.Interface().(Subject); ok {
					out = append(out, target{s, ev.Elem()})
				}
				continue
			}
			if ev.CanAddr() {
				if s, ok := ev.Addr().Interface().(Subject); ok {
					out = append(out, target{s, ev})
				}
			}
		}
		return out
	case reflect.Struct:
		if rv.CanAddr() {
			if s, ok := rv.Addr().Interface().(Subject); ok {
				return []target{{s, rv}}
			}
		}
	}
	return nil
}

func (p *Plugin) beforeCreate(db *gorm.DB) {
	if db.Error != nil || db.Statement.Schema == nil {
		return
	}
	for _, t := range targets(db) {
		if t.sub.CurrentVersion() < 1 {
			t.sub.SetVersion(1)
		}
	}
}

func (p *Plugin) afterCreate(db *gorm.DB) {
	if db.Error != nil || db.Statement.Schema == nil {
		return
	}
	for _, t := range targets(db) {
		if t.sub.ObjectPK() <= 0 {
			continue
		}
		snap, err := stateOf(db, t.rv)
		if err != nil {
			_ = db.AddError(err)
			return
		}
		p.record(db, OpCreate, t.sub, t.sub.CurrentVersion(), snap)
	}
}

func (p *Plugin) beforeUpdate(db *gorm.DB) {
	sub, ok := singleTarget(db)
	if !ok {
		return
	}
	loaded := sub.CurrentVersion()
	if sub.ObjectPK() <= 0 || loaded < 1 {
		_ = db.AddError(fmt.Errorf("history: update %s pk=%d version=%d: %w",
			sub.ObjectKind(), sub.ObjectPK(), loaded, entity.ErrInvalidPK))
		return
	}
	prior, err := priorState(db, sub.ObjectPK())
	if err != nil {
		_ = db.AddError(err)
		return
	}
	db.InstanceSet(instancePrior, prior)
	db.Statement.AddClause(clause.Where{Exprs: []clause.Expression{
		clause.Eq{Column: clause.Column{Name: "version"}, Value: loaded},
	}})
	sub.SetVersion(loaded + 1)
}

func (p *Plugin) afterUpdate(db *gorm.DB) {
	sub, ok := singleTarget(db)
	if !ok || db.Error != nil {
		return
	}
	prior, ok := db.InstanceGet(instancePrior)
	if !ok {
		return
	}
	if db.RowsAffected == 0 {
		_ = db.AddError(fmt.Errorf("%s pk=%d: %w", sub.ObjectKind(), sub.ObjectPK(), entity.ErrVersionConflict))
		return
	}
	p.record(db, OpUpdate, sub, sub.CurrentVersion(), prior.(datatypes.JSON))
}

func (p *Plugin) beforeDelete(db *gorm.DB) {
	sub, ok := singleTarget(db)
	if !ok {
		return
	}
	loaded := sub.CurrentVersion()
	if sub.ObjectPK() <= 0 || loaded < 1 {
		_ = db.AddError(fmt.Errorf("history: delete %s pk=%d version=%d: %w",
			sub.ObjectKind(), sub.ObjectPK(), loaded, entity.ErrInvalidPK))
		return
	}
	prior, err := priorState(db, sub.ObjectPK())
	if err != nil {
		_ = db.AddError(err)
		return
	}
	db.InstanceSet(instancePrior, prior)
	db.Statement.AddClause(clause.Where{Exprs: []clause.Expression{
		clause.Eq{Column: clause.Column{Name: "version"}, Value: loaded},
	}})
}

func (p *Plugin) afterDelete(db *gorm.DB) {
	sub, ok := singleTarget(db)
	if !ok || db.Error != nil {
		return
	}
	prior, ok := db.InstanceGet(instancePrior)
	if !ok {
		return
	}
	if db.RowsAffected == 0 {
		_ = db.AddError(fmt.Errorf("%s pk=%d: %w", sub.ObjectKind(), sub.ObjectPK(), entity.ErrVersionConflict))
		return
	}
	p.record(db, OpDelete, sub, sub.CurrentVersion()+1, prior.(datatypes.JSON))
}

func singleTarget(db *gorm.DB) (Subject, bool) {
	if db.Statement.Schema == nil {
		return nil, false
	}
	ts := targets(db)
	switch len(ts) {
	case 0:
		return nil, false
	case 1:
		return ts[0].sub, db.Error == nil
	default:
		_ = db.AddError(errBatchVersioned)
		return nil, false
	}
}

// stateOf serializes the column-backed fields of a model into JSON,
// keyed by column name. Association fields carry no column and are
// left out.
func stateOf(db *gorm.DB, rv reflect.Value) (datatypes.JSON, error) {
	fields := db.Statement.Schema.Fields
	state := make(map[string]any, len(fields))
	for _, f := range fields {
		if f.DBName == "" {
			continue
		}
		val, _ := f.ValueOf(db.Statement.Context, rv)
		state[f.DBName] = val
	}
	bts, err := json.Marshal(state)
	if err != nil {
		return nil, fmt.Errorf("history: serialize %s state: %w", db.Statement.Table, err)
	}
	return datatypes.JSON(bts), nil
}

// priorState reads the live row as stored, inside the statement's
// transaction, so the snapshot reflects what the mutation replaces.
func priorState(db *gorm.DB, pk int64) (datatypes.JSON, error) {
	row := map[string]any{}
	tx := db.Session(&gorm.Session{NewDB: true}).WithContext(db.Statement.Context)
	err := tx.Table(db.Statement.Table).Where("pk = ?", pk).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		// row already gone; the zero-rows check reports the conflict
		return datatypes.JSON("null"), nil
	}
	if err != nil {
		return nil, fmt.Errorf("history: read prior state of %s pk=%d: %w", db.Statement.Table, pk, err)
	}
	bts, err := json.Marshal(row)
	if err != nil {
		return nil, fmt.Errorf("history: serialize prior state of %s pk=%d: %w", db.Statement.Table, pk, err)
	}
	return datatypes.JSON(bts), nil
}

func (p *Plugin) record(db *gorm.DB, op Op, sub Subject, version int, snapshot datatypes.JSON) {
	rec := &Record{
		ChangeID:   uuid.NewString(),
		ObjectType: string(sub.ObjectKind()),
		ObjectPK:   sub.ObjectPK(),
		Version:    version,
		Op:         op,
		ChangedBy:  Actor(db.Statement.Context),
		ChangedAt:  time.Now().UTC(),
		Snapshot:   snapshot,
	}
	tx := db.Session(&gorm.Session{NewDB: true, SkipHooks: true}).WithContext(db.Statement.Context)
	if err := tx.Create(rec).Error; err != nil {
		_ = db.AddError(fmt.Errorf("history: record %s of %s pk=%d: %w", op, rec.ObjectType, rec.ObjectPK, err))
	}
}
