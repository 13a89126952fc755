package datasource

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog"

	"github.com/spektr-org/tabula/dataframe"
	tberrors "github.com/spektr-org/tabula/errors"
)

// ============================================================================
// FIXTURES
// ============================================================================

// memStore is an in-memory Store.
type memStore struct{ text string }

func (m *memStore) Read(context.Context) (string, error) { return m.text, nil }

func (m *memStore) Write(_ context.Context, text string) error {
	m.text = text
	return nil
}

// fakeS3 keeps objects in a map keyed by bucket/key.
type fakeS3 struct {
	objects map[string]string
	puts    []*awss3.PutObjectInput
	err     error
}

func (f *fakeS3) GetObject(_ context.Context, in *awss3.GetObjectInput, _ ...func(*awss3.Options)) (*awss3.GetObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	body, ok := f.objects[aws.ToString(in.Bucket)+"/"+aws.ToString(in.Key)]
	if !ok {
		return nil, errors.New("NoSuchKey")
	}
	return &awss3.GetObjectOutput{Body: io.NopCloser(strings.NewReader(body))}, nil
}

func (f *fakeS3) PutObject(_ context.Context, in *awss3.PutObjectInput, _ ...func(*awss3.Options)) (*awss3.PutObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	data, _ := io.ReadAll(in.Body)
	if f.objects == nil {
		f.objects = make(map[string]string)
	}
	f.objects[aws.ToString(in.Bucket)+"/"+aws.ToString(in.Key)] = string(data)
	f.puts = append(f.puts, in)
	return &awss3.PutObjectOutput{}, nil
}

func openTestDB(t *testing.T, opts ...Option) *SQL {
	t.Helper()
	db, err := OpenSQLite(filepath.Join(t.TempDir(), "test.db"), opts...)
	if err != nil {
		t.Fatalf("OpenSQLite failed: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// ============================================================================
// FILE / STREAM
// ============================================================================

func TestFileRoundTrip(t *testing.T) {
	ctx := context.Background()
	f := File{Path: filepath.Join(t.TempDir(), "out.csv")}
	if err := f.Write(ctx, "a,b\r\n1,2"); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	got, err := f.Read(ctx)
	if err != nil || got != "a,b\r\n1,2" {
		t.Errorf("Read: got %q, %v", got, err)
	}
}

func TestFileMissingIsIOFailure(t *testing.T) {
	_, err := File{Path: filepath.Join(t.TempDir(), "nope.csv")}.Read(context.Background())
	if !tberrors.IsIOFailure(err) || !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected IO_FAILURE wrapping ErrNotExist, got %v", err)
	}
}

func TestFileHonoursCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := File{Path: filepath.Join(t.TempDir(), "x")}.Write(ctx, "x")
	if !tberrors.IsIOFailure(err) || !errors.Is(err, context.Canceled) {
		t.Errorf("expected cancelled IO_FAILURE, got %v", err)
	}
}

func TestStream(t *testing.T) {
	var out bytes.Buffer
	s := Stream{In: strings.NewReader("hello"), Out: &out}
	got, err := s.Read(context.Background())
	if err != nil || got != "hello" {
		t.Errorf("Read: got %q, %v", got, err)
	}
	if err := s.Write(context.Background(), "bye"); err != nil || out.String() != "bye" {
		t.Errorf("Write: got %q, %v", out.String(), err)
	}
	if _, err := (Stream{}).Read(context.Background()); !tberrors.IsIOFailure(err) {
		t.Errorf("expected IO_FAILURE for nil reader, got %v", err)
	}
}

// ============================================================================
// SNAPPY
// ============================================================================

func TestSnappyRoundTrip(t *testing.T) {
	inner := &memStore{}
	s := Snappy{Inner: inner}
	text := strings.Repeat("region,amount\r\nnorth,10\r\n", 50)

	if err := s.Write(context.Background(), text); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if len(inner.text) >= len(text) {
		t.Errorf("expected compression, got %d >= %d bytes", len(inner.text), len(text))
	}
	got, err := s.Read(context.Background())
	if err != nil || got != text {
		t.Errorf("Read mismatch: %v", err)
	}
}

func TestSnappyCorruptInput(t *testing.T) {
	_, err := Snappy{Inner: &memStore{text: "\xff\xff\xff not snappy"}}.Read(context.Background())
	if !tberrors.IsIOFailure(err) {
		t.Errorf("expected IO_FAILURE, got %v", err)
	}
}

// ============================================================================
// S3
// ============================================================================

func TestS3ObjectReadWrite(t *testing.T) {
	client := &fakeS3{}
	var logs bytes.Buffer
	obj := (&S3Object{Client: client, Bucket: "data", Key: "in/sales.json", ContentType: "application/json"}).
		WithLogger(zerolog.New(&logs).Level(zerolog.DebugLevel))

	if err := obj.Write(context.Background(), "[]"); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if got := aws.ToString(client.puts[0].ContentType); got != "application/json" {
		t.Errorf("content type: got %q", got)
	}
	got, err := obj.Read(context.Background())
	if err != nil || got != "[]" {
		t.Errorf("Read: got %q, %v", got, err)
	}
	if !strings.Contains(logs.String(), `"location":"s3://data/in/sales.json"`) {
		t.Errorf("expected debug logs, got %s", logs.String())
	}
}

func TestS3ObjectFailures(t *testing.T) {
	obj := &S3Object{Client: &fakeS3{err: errors.New("AccessDenied")}, Bucket: "b", Key: "k"}
	if _, err := obj.Read(context.Background()); !tberrors.IsIOFailure(err) {
		t.Errorf("Read: expected IO_FAILURE, got %v", err)
	}
	if err := obj.Write(context.Background(), "x"); !tberrors.IsIOFailure(err) {
		t.Errorf("Write: expected IO_FAILURE, got %v", err)
	}
}

func TestParseS3URL(t *testing.T) {
	bucket, key, err := ParseS3URL("s3://data/2024/sales.csv")
	if err != nil || bucket != "data" || key != "2024/sales.csv" {
		t.Errorf("got %q %q %v", bucket, key, err)
	}
	for _, bad := range []string{"data/sales.csv", "s3://data", "s3:///key"} {
		if _, _, err := ParseS3URL(bad); !tberrors.IsInvalidArgument(err) {
			t.Errorf("%q: expected INVALID_ARGUMENT, got %v", bad, err)
		}
	}
}

func TestS3ConfigValidate(t *testing.T) {
	cfg := S3Config{}
	cfg.ApplyDefaults()
	if cfg.Region != DefaultRegion {
		t.Errorf("region default: got %q", cfg.Region)
	}
	if err := cfg.Validate(); !tberrors.IsInvalidArgument(err) {
		t.Errorf("expected INVALID_ARGUMENT, got %v", err)
	}
	if _, err := NewS3Object(context.Background(), S3Config{Bucket: "b"}); err == nil {
		t.Error("expected error for missing key")
	}
}

// ============================================================================
// OPEN
// ============================================================================

func TestOpen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "data.csv.sz")

	store, err := Open(ctx, path, S3Config{})
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	sz, ok := store.(Snappy)
	if !ok || sz.Inner != (File{Path: path}) {
		t.Fatalf("expected snappy-wrapped file, got %#v", store)
	}

	if store, _ := Open(ctx, "-", S3Config{}); reflect.TypeOf(store) != reflect.TypeOf(Stream{}) {
		t.Errorf("expected stdio stream, got %T", store)
	}
	if _, err := Open(ctx, "s3://bucket-only", S3Config{}); !tberrors.IsInvalidArgument(err) {
		t.Errorf("expected INVALID_ARGUMENT, got %v", err)
	}
}

// ============================================================================
// SQL
// ============================================================================

func TestSQLWriteThenQuery(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	df := dataframe.MustNew(dataframe.Config{
		ColumnNames: []string{"Region", "Amount", "Note"},
		Rows: [][]any{
			{"North", 10, nil},
			{"South", 2.5, "late"},
		},
	})
	n, err := db.WriteTable(ctx, "sales", df)
	if err != nil || n != 2 {
		t.Fatalf("WriteTable: got %d, %v", n, err)
	}

	out, err := db.Query(ctx, `SELECT "Region", "Amount", "Note" FROM sales WHERE "Amount" > ? ORDER BY "Region"`, 1)
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if got := out.GetColumnNames(); !reflect.DeepEqual(got, []string{"Region", "Amount", "Note"}) {
		t.Errorf("columns: got %v", got)
	}
	rows, err := out.ToRows()
	if err != nil {
		t.Fatalf("ToRows failed: %v", err)
	}
	want := [][]any{{"North", 10, nil}, {"South", 2.5, "late"}}
	if !reflect.DeepEqual(rows, want) {
		t.Errorf("rows: got %#v, want %#v", rows, want)
	}
}

func TestSQLQueryIsLazy(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	if _, err := db.DB().ExecContext(ctx, `CREATE TABLE t (v)`); err != nil {
		t.Fatal(err)
	}

	df, err := db.Query(ctx, `SELECT v FROM t`)
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if n, _ := df.Count(); n != 0 {
		t.Errorf("expected empty table, got %d rows", n)
	}

	if _, err := db.DB().ExecContext(ctx, `INSERT INTO t VALUES (1), (2)`); err != nil {
		t.Fatal(err)
	}
	if n, _ := df.Count(); n != 2 {
		t.Errorf("each enumeration should re-run the query, got %d rows", n)
	}
	if n, _ := df.Take(1).Count(); n != 1 {
		t.Errorf("Take(1): got %d", n)
	}
}

func TestSQLErrors(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	if _, err := db.Query(ctx, `SELECT * FROM missing`); !tberrors.IsIOFailure(err) {
		t.Errorf("expected IO_FAILURE, got %v", err)
	}
	if _, err := db.WriteTable(ctx, "t", dataframe.Empty()); !tberrors.IsInvalidArgument(err) {
		t.Errorf("expected INVALID_ARGUMENT, got %v", err)
	}
}

func TestSQLDropTableSurfacesOnEnumeration(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	if _, err := db.DB().ExecContext(ctx, `CREATE TABLE t (v)`); err != nil {
		t.Fatal(err)
	}
	df, err := db.Query(ctx, `SELECT v FROM t`)
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if _, err := db.DB().ExecContext(ctx, `DROP TABLE t`); err != nil {
		t.Fatal(err)
	}
	if _, err := df.ToRows(); !tberrors.IsIOFailure(err) {
		t.Errorf("expected IO_FAILURE from enumeration, got %v", err)
	}
}
