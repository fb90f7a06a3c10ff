package repository

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"io"
	"reflect"
	"sync"

	"codejudge/internal/common/db"
	"codejudge/internal/common/mq"
	"codejudge/internal/common/storage"
)

type execCall struct {
	query string
	args  []interface{}
}

// fakeDB serves canned rows and records statements.
type fakeDB struct {
	mu       sync.Mutex
	row      []interface{}
	rowErr   error
	rows     [][]interface{}
	queries  int
	execs    []execCall
	affected int64
	lastID   int64
}

func (f *fakeDB) Query(ctx context.Context, query string, args ...interface{}) (db.Rows, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries++
	return &fakeRows{rows: f.rows, idx: -1}, nil
}

func (f *fakeDB) QueryRow(ctx context.Context, query string, args ...interface{}) db.Row {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries++
	return &fakeRow{values: f.row, err: f.rowErr}
}

func (f *fakeDB) Exec(ctx context.Context, query string, args ...interface{}) (db.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.execs = append(f.execs, execCall{query: query, args: args})
	return fakeResult{affected: f.affected, lastID: f.lastID}, nil
}

func (f *fakeDB) Transaction(ctx context.Context, fn func(tx db.Transaction) error) error {
	return fmt.Errorf("not supported")
}

func (f *fakeDB) BeginTx(ctx context.Context, opts *db.TxOptions) (db.Transaction, error) {
	return nil, fmt.Errorf("not supported")
}

func (f *fakeDB) Ping(ctx context.Context) error { return nil }
func (f *fakeDB) Close() error                   { return nil }
func (f *fakeDB) Stats() db.Stats                { return db.Stats{} }

type fakeResult struct {
	affected int64
	lastID   int64
}

func (r fakeResult) LastInsertId() (int64, error) { return r.lastID, nil }
func (r fakeResult) RowsAffected() (int64, error) { return r.affected, nil }

type fakeRow struct {
	values []interface{}
	err    error
}

func (r *fakeRow) Scan(dest ...interface{}) error {
	if r.err != nil {
		return r.err
	}
	if r.values == nil {
		return fmt.Errorf("scan failed: %w", sql.ErrNoRows)
	}
	return assign(r.values, dest)
}

type fakeRows struct {
	rows [][]interface{}
	idx  int
}

func (r *fakeRows) Next() bool {
	r.idx++
	return r.idx < len(r.rows)
}

func (r *fakeRows) Scan(dest ...interface{}) error { return assign(r.rows[r.idx], dest) }
func (r *fakeRows) Close() error                   { return nil }
func (r *fakeRows) Err() error                     { return nil }

func assign(values []interface{}, dest []interface{}) error {
	if len(values) != len(dest) {
		return fmt.Errorf("expected %d columns, got %d", len(dest), len(values))
	}
	for i, v := range values {
		target := reflect.ValueOf(dest[i]).Elem()
		target.Set(reflect.ValueOf(v).Convert(target.Type()))
	}
	return nil
}

type fakeProducer struct {
	topic    string
	messages []*mq.Message
	err      error
}

func (p *fakeProducer) Publish(ctx context.Context, topic string, message *mq.Message) error {
	if p.err != nil {
		return p.err
	}
	p.topic = topic
	p.messages = append(p.messages, message)
	return nil
}

type memoryStorage struct {
	objects map[string][]byte
}

func newMemoryStorage() *memoryStorage {
	return &memoryStorage{objects: make(map[string][]byte)}
}

func (s *memoryStorage) PutObject(ctx context.Context, bucket, objectKey string, reader io.Reader, sizeBytes int64, contentType string) error {
	data, err := io.ReadAll(reader)
	if err != nil {
		return err
	}
	s.objects[bucket+"/"+objectKey] = data
	return nil
}

func (s *memoryStorage) GetObject(ctx context.Context, bucket, objectKey string) (io.ReadCloser, error) {
	data, ok := s.objects[bucket+"/"+objectKey]
	if !ok {
		return nil, fmt.Errorf("object not found")
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (s *memoryStorage) StatObject(ctx context.Context, bucket, objectKey string) (storage.ObjectStat, error) {
	data, ok := s.objects[bucket+"/"+objectKey]
	if !ok {
		return storage.ObjectStat{}, fmt.Errorf("object not found")
	}
	return storage.ObjectStat{SizeBytes: int64(len(data))}, nil
}

func (s *memoryStorage) EnsureBucket(ctx context.Context, bucket string) error { return nil }
