package s3blob

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/alanyoungcy/marketwire/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type upload struct {
	body        []byte
	contentType string
	partSize    int64
	multipart   bool
}

type memWriter struct {
	objects map[string]upload
	err     error
}

func newMemWriter() *memWriter {
	return &memWriter{objects: make(map[string]upload)}
}

func (m *memWriter) Put(_ context.Context, path string, data io.Reader, contentType string) error {
	if m.err != nil {
		return m.err
	}
	b, err := io.ReadAll(data)
	if err != nil {
		return err
	}
	m.objects[path] = upload{body: b, contentType: contentType}
	return nil
}

func (m *memWriter) PutMultipart(_ context.Context, path string, data io.Reader, partSize int64) error {
	if m.err != nil {
		return m.err
	}
	b, err := io.ReadAll(data)
	if err != nil {
		return err
	}
	m.objects[path] = upload{body: b, partSize: partSize, multipart: true}
	return nil
}

var runAt = time.Date(2026, 3, 14, 9, 30, 5, 0, time.FixedZone("EST", -5*3600))

func TestArchiveFeedWritesJSONL(t *testing.T) {
	w := newMemWriter()
	a := NewArchiver(w, "marketwire/", 8<<20)

	records := []domain.NormalizedMarket{
		{Source: domain.SourceKalshi, SourceID: "KXFED-26MAR", Title: "Fed cuts in March?", Probability: 12, Volume24h: decimal.NewFromInt(900)},
		{Source: domain.SourceKalshi, SourceID: "KXCPI-26", Title: "CPI above 3% & rising", Probability: 40, Volume24h: decimal.RequireFromString("10.5")},
	}
	require.NoError(t, a.ArchiveFeed(context.Background(), runAt, domain.SourceKalshi, records))

	obj, ok := w.objects["marketwire/feeds/kalshi/2026-03-14/143005Z.jsonl"]
	require.True(t, ok, "keys: %v", w.objects)
	assert.True(t, obj.multipart)
	assert.Equal(t, int64(8<<20), obj.partSize)

	var got []domain.NormalizedMarket
	sc := bufio.NewScanner(bytes.NewReader(obj.body))
	for sc.Scan() {
		var m domain.NormalizedMarket
		require.NoError(t, json.Unmarshal(sc.Bytes(), &m))
		got = append(got, m)
	}
	require.Len(t, got, 2)
	assert.Equal(t, "KXFED-26MAR", got[0].SourceID)
	assert.True(t, got[1].Volume24h.Equal(decimal.RequireFromString("10.5")))
	assert.Contains(t, string(obj.body), "CPI above 3% & rising")
}

func TestArchiveFeedUploadFailure(t *testing.T) {
	w := newMemWriter()
	w.err = errors.New("access denied")
	a := NewArchiver(w, "", 0)

	err := a.ArchiveFeed(context.Background(), runAt, domain.SourcePolymarket, []domain.NormalizedMarket{{SourceID: "x"}})
	assert.ErrorContains(t, err, "s3blob: archive polymarket feed: access denied")
}

func TestArchiveEdition(t *testing.T) {
	w := newMemWriter()
	a := NewArchiver(w, "", 0)
	m := domain.EditionManifest{
		EditionID:    "e1",
		Type:         domain.EditionDaily,
		Date:         "2026-03-14",
		VolumeNumber: 7,
		Articles:     []domain.ManifestEntry{{Position: 1, Slug: "fed-holds"}},
	}
	require.NoError(t, a.ArchiveEdition(context.Background(), m))

	obj, ok := w.objects["editions/2026-03-14/vol-0007.json"]
	require.True(t, ok)
	assert.Equal(t, contentTypeJSON, obj.contentType)

	var back domain.EditionManifest
	require.NoError(t, json.Unmarshal(obj.body, &back))
	assert.Equal(t, "fed-holds", back.Articles[0].Slug)
}

func TestWithScheme(t *testing.T) {
	assert.Equal(t, "https://minio.local:9000", withScheme("minio.local:9000", true))
	assert.Equal(t, "http://minio.local:9000", withScheme("minio.local:9000", false))
	assert.Equal(t, "http://127.0.0.1:9000", withScheme("http://127.0.0.1:9000", true))
}
