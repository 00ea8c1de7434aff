// Package memory holds in-process implementations of the reconcile stores.
// All stores created from one DB share state and a single transaction lock.
package memory

import (
	"context"
	"sync"

	"github.com/DFE-Digital/teaching-record-system-sub005/internal/reconcile/models"
	id "github.com/DFE-Digital/teaching-record-system-sub005/pkg/domain"
	dErrors "github.com/DFE-Digital/teaching-record-system-sub005/pkg/domain-errors"
)

// firstTrn is the first TRN handed out by the in-memory allocator.
const firstTrn = 3000000

type txKey struct{}

// DB is the shared backing state. RunInTx serialises units of work with a
// coarse lock and restores a snapshot when the unit fails.
type DB struct {
	mu sync.Mutex

	persons     map[id.PersonID]models.Person
	personOrder []id.PersonID
	nextTrn     int

	batches    map[id.BatchID]models.Batch
	batchOrder []id.BatchID
	rows       map[id.BatchID][]models.RowOutcome
	tasks      []models.SupportTask
	watermarks map[string]models.Watermark
	outbox     []models.OutboxEntry
}

func NewDB() *DB {
	return &DB{
		persons:    make(map[id.PersonID]models.Person),
		nextTrn:    firstTrn,
		batches:    make(map[id.BatchID]models.Batch),
		rows:       make(map[id.BatchID][]models.RowOutcome),
		watermarks: make(map[string]models.Watermark),
	}
}

func (db *DB) Persons() *PersonStore       { return &PersonStore{db: db} }
func (db *DB) Batches() *BatchStore        { return &BatchStore{db: db} }
func (db *DB) Tasks() *TaskStore           { return &TaskStore{db: db} }
func (db *DB) Watermarks() *WatermarkStore { return &WatermarkStore{db: db} }
func (db *DB) Outbox() *OutboxStore        { return &OutboxStore{db: db} }

// RunInTx runs fn holding the store lock. A call made with a context that
// already belongs to a unit of this DB joins it.
func (db *DB) RunInTx(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	if db.inTx(ctx) {
		return fn(ctx)
	}
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}

	db.mu.Lock()
	defer db.mu.Unlock()

	snap := db.snapshot()
	defer func() {
		if p := recover(); p != nil {
			db.restore(snap)
			panic(p)
		}
	}()
	if err := fn(context.WithValue(ctx, txKey{}, db)); err != nil {
		db.restore(snap)
		return err
	}
	return nil
}

func (db *DB) inTx(ctx context.Context) bool {
	owner, ok := ctx.Value(txKey{}).(*DB)
	return ok && owner == db
}

// lock takes the store lock unless ctx already holds it.
func (db *DB) lock(ctx context.Context) func() {
	if db.inTx(ctx) {
		return func() {}
	}
	db.mu.Lock()
	return db.mu.Unlock
}

type snapshot struct {
	persons     map[id.PersonID]models.Person
	personOrder int
	nextTrn     int
	batches     map[id.BatchID]models.Batch
	batchOrder  int
	rows        map[id.BatchID][]models.RowOutcome
	tasks       int
	watermarks  map[string]models.Watermark
	outbox      []models.OutboxEntry
}

func (db *DB) snapshot() snapshot {
	s := snapshot{
		persons:     make(map[id.PersonID]models.Person, len(db.persons)),
		personOrder: len(db.personOrder),
		nextTrn:     db.nextTrn,
		batches:     make(map[id.BatchID]models.Batch, len(db.batches)),
		batchOrder:  len(db.batchOrder),
		rows:        make(map[id.BatchID][]models.RowOutcome, len(db.rows)),
		tasks:       len(db.tasks),
		watermarks:  make(map[string]models.Watermark, len(db.watermarks)),
		outbox:      append([]models.OutboxEntry(nil), db.outbox...),
	}
	for k, v := range db.persons {
		s.persons[k] = v
	}
	for k, v := range db.batches {
		s.batches[k] = v
	}
	for k, v := range db.rows {
		s.rows[k] = v
	}
	for k, v := range db.watermarks {
		s.watermarks[k] = v
	}
	return s
}

// restore rolls back to s. Slices that only grow are truncated; rows appended
// beyond a restored header are unreachable.
func (db *DB) restore(s snapshot) {
	db.persons = s.persons
	db.personOrder = db.personOrder[:s.personOrder]
	db.nextTrn = s.nextTrn
	db.batches = s.batches
	db.batchOrder = db.batchOrder[:s.batchOrder]
	db.rows = s.rows
	db.tasks = db.tasks[:s.tasks]
	db.watermarks = s.watermarks
	db.outbox = s.outbox
}
