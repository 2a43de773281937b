package services

import (
	"context"
	"io"
	"sort"
	"strings"
	"sync"

	"github.com/autoattend/autoattend-backend/internal/database"
	"github.com/autoattend/autoattend-backend/internal/models"
	"github.com/sirupsen/logrus"
)

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

// fakeEmployees is an in-memory EmployeeLookup
type fakeEmployees struct {
	byHex  map[string]*models.BadgeHolder
	byName []*models.BadgeHolder
	err    error
}

func newFakeEmployees() *fakeEmployees {
	return &fakeEmployees{byHex: map[string]*models.BadgeHolder{}}
}

func (f *fakeEmployees) add(holder *models.BadgeHolder, hex string) {
	if hex != "" {
		f.byHex[hex] = holder
	}
	f.byName = append(f.byName, holder)
}

func (f *fakeEmployees) FindActiveByHex(ctx context.Context, hex string) (*models.BadgeHolder, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.byHex[hex], nil
}

func (f *fakeEmployees) FindActiveByName(ctx context.Context, name string) (*models.BadgeHolder, error) {
	if f.err != nil {
		return nil, f.err
	}
	for _, h := range f.byName {
		if strings.EqualFold(h.Name, name) {
			return h, nil
		}
	}
	return nil, nil
}

// fakeLedger is an in-memory AttendanceLedger. A single mutex stands in for the
// per-employee advisory lock, and inserts staged inside a failed callback are discarded.
type fakeLedger struct {
	mu        sync.Mutex
	records   map[int64][]models.AttendanceRecord
	nextID    int64
	insertErr error
	readErr   error
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{records: map[int64][]models.AttendanceRecord{}}
}

func (l *fakeLedger) WithEmployeeLock(ctx context.Context, employeeID int64, fn func(tx database.LedgerTx) error) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	tx := &fakeLedgerTx{ledger: l}
	if err := fn(tx); err != nil {
		return err
	}
	for _, r := range tx.staged {
		l.records[r.EmployeeID] = append(l.records[r.EmployeeID], r)
	}
	return nil
}

func (l *fakeLedger) seed(record models.AttendanceRecord) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.nextID++
	record.ID = l.nextID
	l.records[record.EmployeeID] = append(l.records[record.EmployeeID], record)
}

func (l *fakeLedger) count(employeeID int64) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.records[employeeID])
}

type fakeLedgerTx struct {
	ledger *fakeLedger
	staged []models.AttendanceRecord
}

func (tx *fakeLedgerTx) sorted(employeeID int64) []models.AttendanceRecord {
	all := append([]models.AttendanceRecord{}, tx.ledger.records[employeeID]...)
	sort.SliceStable(all, func(i, j int) bool {
		return all[i].RecordedAt.After(all[j].RecordedAt)
	})
	return all
}

func (tx *fakeLedgerTx) LastRecord(ctx context.Context, employeeID int64) (*models.AttendanceRecord, error) {
	if tx.ledger.readErr != nil {
		return nil, tx.ledger.readErr
	}
	all := tx.sorted(employeeID)
	if len(all) == 0 {
		return nil, nil
	}
	return &all[0], nil
}

func (tx *fakeLedgerTx) LastRecordWithStatus(ctx context.Context, employeeID int64, status models.AttendanceStatus) (*models.AttendanceRecord, error) {
	if tx.ledger.readErr != nil {
		return nil, tx.ledger.readErr
	}
	for _, r := range tx.sorted(employeeID) {
		if r.Status == status {
			rec := r
			return &rec, nil
		}
	}
	return nil, nil
}

func (tx *fakeLedgerTx) Insert(ctx context.Context, record *models.AttendanceRecord) error {
	if tx.ledger.insertErr != nil {
		return tx.ledger.insertErr
	}
	tx.ledger.nextID++
	record.ID = tx.ledger.nextID
	tx.staged = append(tx.staged, *record)
	return nil
}

// fakePublisher records published events
type fakePublisher struct {
	mu     sync.Mutex
	events []models.AttendanceRecordedEvent
	err    error
}

func (p *fakePublisher) PublishAttendanceRecorded(ctx context.Context, event models.AttendanceRecordedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return p.err
}
