package postgres

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/stretchr/testify/require"

	"github.com/inkwell-db/inkwell/es"
	"github.com/inkwell-db/inkwell/es/projection"
	"github.com/inkwell-db/inkwell/es/store"
)

func newMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db, mock
}

func testEvents(n int) []es.Event {
	events := make([]es.Event, n)
	for i := range events {
		events[i] = es.Event{
			EventID:    uuid.New(),
			EventType:  "FundsDeposited",
			Payload:    []byte(`{"amount":"5"}`),
			Metadata:   []byte(`{}`),
			RecordedAt: time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC),
		}
	}
	return events
}

func expectHeadVersion(mock sqlmock.Sqlmock, streamID string, version int64, exists bool) {
	q := mock.ExpectQuery("SELECT version").WithArgs(streamID)
	if exists {
		q.WillReturnRows(sqlmock.NewRows([]string{"version"}).AddRow(version))
	} else {
		q.WillReturnError(sql.ErrNoRows)
	}
}

func TestStore_AppendToStream_NewStream(t *testing.T) {
	db, mock := newMockDB(t)
	s := NewStore(DefaultStoreConfig())
	events := testEvents(2)

	expectHeadVersion(mock, "acct-1", 0, false)
	mock.ExpectQuery("INSERT INTO events").
		WithArgs("acct-1", "Account", int64(1), events[0].EventID, "FundsDeposited", events[0].Payload, events[0].Metadata, events[0].RecordedAt).
		WillReturnRows(sqlmock.NewRows([]string{"global_position"}).AddRow(int64(10)))
	mock.ExpectQuery("INSERT INTO events").
		WithArgs("acct-1", "Account", int64(2), events[1].EventID, "FundsDeposited", events[1].Payload, events[1].Metadata, events[1].RecordedAt).
		WillReturnRows(sqlmock.NewRows([]string{"global_position"}).AddRow(int64(11)))
	mock.ExpectExec("INSERT INTO stream_heads").
		WithArgs("acct-1", "Account", int64(2)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	version, err := s.AppendToStream(context.Background(), db, "acct-1", "Account", es.NoStream(), events)
	require.NoError(t, err)
	require.Equal(t, int64(2), version)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_AppendToStream_ExactVersionContinues(t *testing.T) {
	db, mock := newMockDB(t)
	s := NewStore(DefaultStoreConfig())
	events := testEvents(1)

	expectHeadVersion(mock, "acct-1", 3, true)
	mock.ExpectQuery("INSERT INTO events").
		WithArgs("acct-1", "Account", int64(4), sqlmock.AnyArg(), "FundsDeposited", sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"global_position"}).AddRow(int64(42)))
	mock.ExpectExec("INSERT INTO stream_heads").
		WithArgs("acct-1", "Account", int64(4)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	version, err := s.AppendToStream(context.Background(), db, "acct-1", "Account", es.Exact(3), events)
	require.NoError(t, err)
	require.Equal(t, int64(4), version)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_AppendToStream_ExpectedVersionChecks(t *testing.T) {
	tests := []struct {
		name     string
		expected es.ExpectedVersion
		version  int64
		exists   bool
		wantErr  error
	}{
		{
			name:     "exact mismatch fails without persisting",
			expected: es.Exact(5),
			version:  3,
			exists:   true,
			wantErr:  store.ErrConcurrencyConflict,
		},
		{
			name:     "no-stream on existing stream",
			expected: es.NoStream(),
			version:  1,
			exists:   true,
			wantErr:  store.ErrStreamAlreadyExists,
		},
		{
			name:     "stream-exists on missing stream",
			expected: es.StreamExists(),
			exists:   false,
			wantErr:  store.ErrStreamNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock := newMockDB(t)
			s := NewStore(DefaultStoreConfig())

			expectHeadVersion(mock, "acct-1", tt.version, tt.exists)

			_, err := s.AppendToStream(context.Background(), db, "acct-1", "Account", tt.expected, testEvents(1))
			require.ErrorIs(t, err, tt.wantErr)

			// No insert was attempted.
			require.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestStore_AppendToStream_NoEvents(t *testing.T) {
	db, mock := newMockDB(t)
	s := NewStore(DefaultStoreConfig())

	_, err := s.AppendToStream(context.Background(), db, "acct-1", "Account", es.Any(), nil)
	require.ErrorIs(t, err, store.ErrNoEvents)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_AppendToStream_UniqueViolationIsConflict(t *testing.T) {
	db, mock := newMockDB(t)
	s := NewStore(DefaultStoreConfig())

	expectHeadVersion(mock, "acct-1", 3, true)
	mock.ExpectQuery("INSERT INTO events").
		WillReturnError(&pq.Error{Code: "23505"})

	_, err := s.AppendToStream(context.Background(), db, "acct-1", "Account", es.Any(), testEvents(1))
	require.ErrorIs(t, err, store.ErrConcurrencyConflict)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_AppendToStream_InlineProjection(t *testing.T) {
	db, mock := newMockDB(t)

	codec := es.JSONCodec{}
	reg := projection.New("account_summary", "AccountSummary")
	projection.Creates(reg, codec, "FundsDeposited", func(_ es.PersistedEvent) (map[string]int, error) {
		return map[string]int{"events": 1}, nil
	})

	docs := NewDocumentStore(DefaultDocumentConfig())
	engine := projection.NewEngine(docs, reg)
	s := NewStore(DefaultStoreConfig(), WithProjections(engine))

	expectHeadVersion(mock, "acct-1", 0, false)
	mock.ExpectQuery("INSERT INTO events").
		WillReturnRows(sqlmock.NewRows([]string{"global_position"}).AddRow(int64(1)))
	mock.ExpectExec("INSERT INTO stream_heads").
		WillReturnResult(sqlmock.NewResult(0, 1))

	// Inline projection runs against the same handle: document miss, then create.
	mock.ExpectQuery("SELECT doc_type, doc_id, data, version_token, updated_at").
		WithArgs("AccountSummary", "acct-1").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectExec("INSERT INTO documents").
		WithArgs("AccountSummary", "acct-1", []byte(`{"events":1}`), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	version, err := s.AppendToStream(context.Background(), db, "acct-1", "Account", es.NoStream(), testEvents(1))
	require.NoError(t, err)
	require.Equal(t, int64(1), version)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_AppendToStream_ProjectionFailureAbortsAppend(t *testing.T) {
	db, mock := newMockDB(t)

	boom := errors.New("boom")
	reg := projection.New("broken", "Broken").
		Creates("FundsDeposited", func(_ es.PersistedEvent) ([]byte, error) {
			return nil, boom
		})

	docs := NewDocumentStore(DefaultDocumentConfig())
	engine := projection.NewEngine(docs, reg)
	s := NewStore(DefaultStoreConfig(), WithProjections(engine))

	expectHeadVersion(mock, "acct-1", 0, false)
	mock.ExpectQuery("INSERT INTO events").
		WillReturnRows(sqlmock.NewRows([]string{"global_position"}).AddRow(int64(1)))
	mock.ExpectExec("INSERT INTO stream_heads").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("SELECT doc_type, doc_id, data, version_token, updated_at").
		WillReturnError(sql.ErrNoRows)

	_, err := s.AppendToStream(context.Background(), db, "acct-1", "Account", es.NoStream(), testEvents(1))
	require.ErrorIs(t, err, boom)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_GetVersion(t *testing.T) {
	t.Run("existing stream", func(t *testing.T) {
		db, mock := newMockDB(t)
		s := NewStore(DefaultStoreConfig())

		expectHeadVersion(mock, "acct-1", 7, true)

		version, err := s.GetVersion(context.Background(), db, "acct-1")
		require.NoError(t, err)
		require.Equal(t, int64(7), version)
	})

	t.Run("missing stream", func(t *testing.T) {
		db, mock := newMockDB(t)
		s := NewStore(DefaultStoreConfig())

		expectHeadVersion(mock, "nope", 0, false)

		_, err := s.GetVersion(context.Background(), db, "nope")
		require.ErrorIs(t, err, store.ErrStreamNotFound)
	})
}

func TestStore_StreamExists(t *testing.T) {
	db, mock := newMockDB(t)
	s := NewStore(DefaultStoreConfig())

	expectHeadVersion(mock, "acct-1", 2, true)
	expectHeadVersion(mock, "nope", 0, false)

	exists, err := s.StreamExists(context.Background(), db, "acct-1")
	require.NoError(t, err)
	require.True(t, exists)

	exists, err = s.StreamExists(context.Background(), db, "nope")
	require.NoError(t, err)
	require.False(t, exists)
}

func eventRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"global_position", "stream_id", "aggregate_type", "version",
		"event_id", "event_type", "payload", "metadata", "recorded_at",
	})
}

func TestStore_FetchStream(t *testing.T) {
	db, mock := newMockDB(t)
	s := NewStore(DefaultStoreConfig())

	recorded := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	rows := eventRows().
		AddRow(int64(10), "acct-1", "Account", int64(1), uuid.NewString(), "AccountOpened", []byte(`{}`), []byte(`{}`), recorded).
		AddRow(int64(11), "acct-1", "Account", int64(2), uuid.NewString(), "FundsDeposited", []byte(`{}`), []byte(`{}`), recorded)

	mock.ExpectQuery("FROM events").
		WithArgs("acct-1", int64(1), int64(0)).
		WillReturnRows(rows)

	it, err := s.FetchStream(context.Background(), db, "acct-1", 1, 0)
	require.NoError(t, err)
	defer it.Close()

	var versions []int64
	for it.Next() {
		e := it.Event()
		require.Equal(t, "acct-1", e.StreamID)
		versions = append(versions, e.Version)
	}
	require.NoError(t, it.Err())
	require.Equal(t, []int64{1, 2}, versions)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_ReadStream_MissingStream(t *testing.T) {
	db, mock := newMockDB(t)
	s := NewStore(DefaultStoreConfig())

	mock.ExpectQuery("FROM events").
		WithArgs("nope", int64(1), int64(0)).
		WillReturnRows(eventRows())

	_, err := s.ReadStream(context.Background(), db, "nope")
	require.ErrorIs(t, err, store.ErrStreamNotFound)
}

func TestStore_ReadAll(t *testing.T) {
	db, mock := newMockDB(t)
	s := NewStore(DefaultStoreConfig())

	recorded := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	rows := eventRows().
		AddRow(int64(5), "acct-1", "Account", int64(1), uuid.NewString(), "AccountOpened", []byte(`{}`), []byte(`{}`), recorded).
		AddRow(int64(6), "acct-2", "Account", int64(1), uuid.NewString(), "AccountOpened", []byte(`{}`), []byte(`{}`), recorded)

	mock.ExpectQuery("WHERE global_position").
		WithArgs(int64(4), 100).
		WillReturnRows(rows)

	events, err := s.ReadAll(context.Background(), db, 4, 100)
	require.NoError(t, err)
	require.Len(t, events, 2)
	require.Equal(t, int64(5), events[0].GlobalPosition)
	require.Equal(t, int64(6), events[1].GlobalPosition)
}

func TestStore_DeleteStream(t *testing.T) {
	db, mock := newMockDB(t)
	s := NewStore(DefaultStoreConfig())

	mock.ExpectExec("DELETE FROM events").
		WithArgs("acct-1").
		WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec("DELETE FROM stream_heads").
		WithArgs("acct-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	deleted, err := s.DeleteStream(context.Background(), db, "acct-1")
	require.NoError(t, err)
	require.Equal(t, int64(3), deleted)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestIsUniqueViolation(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"pq unique violation", &pq.Error{Code: "23505"}, true},
		{"pq other code", &pq.Error{Code: "23503"}, false},
		{"message fallback", errors.New(`duplicate key value violates unique constraint "events_stream_id_version_key"`), true},
		{"unrelated", errors.New("connection refused"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, IsUniqueViolation(tt.err))
		})
	}
}
