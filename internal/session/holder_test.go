package session

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ayush/docmind/backend/internal/models"
)

type memStore struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newMemStore() *memStore { return &memStore{data: map[string][]byte{}} }

func (m *memStore) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	if !ok {
		return nil, ErrNotFound
	}
	return v, nil
}

func (m *memStore) Set(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

func (m *memStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

func sampleDoc() *models.Document {
	raw := []byte{0x25, 0x50, 0x44, 0x46, 0x00, 0xff, 0x10, 0x80}
	return &models.Document{
		Name:         "lecture-3.pdf",
		MimeType:     models.MimePDF,
		SizeBytes:    int64(len(raw)),
		LastModified: time.Date(2024, 3, 5, 10, 30, 15, 250_000_000, time.UTC),
		RawBytes:     raw,
	}
}

func assertSameDocument(t *testing.T, want, got *models.Document) {
	t.Helper()
	require.NotNil(t, got)
	assert.Equal(t, want.Name, got.Name)
	assert.Equal(t, want.MimeType, got.MimeType)
	assert.Equal(t, want.SizeBytes, got.SizeBytes)
	assert.True(t, want.LastModified.Equal(got.LastModified), "%s != %s", want.LastModified, got.LastModified)
	assert.Equal(t, want.RawBytes, got.RawBytes)
}

func TestHolderRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	doc := sampleDoc()

	require.NoError(t, NewHolder(store, zap.NewNop()).SetCurrent(ctx, "u1", doc))

	// A fresh holder over the same store stands in for a reload.
	got, err := NewHolder(store, zap.NewNop()).Current(ctx, "u1")
	require.NoError(t, err)
	assertSameDocument(t, doc, got)
}

func TestHolderRecordLayout(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	require.NoError(t, NewHolder(store, nil).SetCurrent(ctx, "u1", sampleDoc()))

	raw := store.data[RecordKey+":u1"]
	assert.JSONEq(t, `{"name":"lecture-3.pdf","type":"application/pdf","lastModified":1709634615250,"data":"JVBERgD/EIA="}`, string(raw))
}

func TestHolderAbsent(t *testing.T) {
	got, err := NewHolder(newMemStore(), nil).Current(context.Background(), "nobody")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestHolderDiscardsCorruptRecord(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"not json", `{"name":`},
		{"bad base64", `{"name":"a.txt","type":"text/plain","lastModified":0,"data":"%%%"}`},
		{"no name", `{"type":"text/plain","lastModified":0,"data":""}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			store := newMemStore()
			store.data[RecordKey+":u1"] = []byte(tt.raw)

			got, err := NewHolder(store, nil).Current(ctx, "u1")
			require.NoError(t, err)
			assert.Nil(t, got)
			assert.NotContains(t, store.data, RecordKey+":u1")
		})
	}
}

func TestHolderLastWriteWins(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	h := NewHolder(store, nil)

	first := sampleDoc()
	second := &models.Document{Name: "notes.txt", MimeType: "text/plain", SizeBytes: 2, LastModified: time.UnixMilli(5), RawBytes: []byte("hi")}
	require.NoError(t, h.SetCurrent(ctx, "u1", first))
	require.NoError(t, h.SetCurrent(ctx, "u1", second))

	got, err := h.Current(ctx, "u1")
	require.NoError(t, err)
	assertSameDocument(t, second, got)
	assert.Len(t, store.data, 1)
}

func TestHolderClear(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	h := NewHolder(store, nil)
	require.NoError(t, h.SetCurrent(ctx, "u1", sampleDoc()))
	require.NoError(t, h.SetCurrent(ctx, "u2", sampleDoc()))

	require.NoError(t, h.Clear(ctx, "u1"))
	got, err := h.Current(ctx, "u1")
	require.NoError(t, err)
	assert.Nil(t, got)
	assert.NotContains(t, store.data, RecordKey+":u1")

	other, err := h.Current(ctx, "u2")
	require.NoError(t, err)
	assert.NotNil(t, other)

	require.NoError(t, h.SetCurrent(ctx, "u2", nil))
	assert.Empty(t, store.data)
}

func TestBoltStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "docmind.db")

	store, err := OpenBolt(path)
	require.NoError(t, err)
	doc := sampleDoc()
	require.NoError(t, NewHolder(store, nil).SetCurrent(ctx, "local", doc))
	require.NoError(t, store.Close())

	reopened, err := OpenBolt(path)
	require.NoError(t, err)
	defer reopened.Close()

	h := NewHolder(reopened, nil)
	got, err := h.Current(ctx, "local")
	require.NoError(t, err)
	assertSameDocument(t, doc, got)

	require.NoError(t, h.Clear(ctx, "local"))
	_, err = reopened.Get(ctx, RecordKey+":local")
	assert.ErrorIs(t, err, ErrNotFound)
}
