package s3blob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/alanyoungcy/marketwire/internal/domain"
)

const (
	contentTypeJSON  = "application/json"
	contentTypeJSONL = "application/x-ndjson"
)

// Archiver lays out feed snapshots and edition manifests under a key
// prefix:
//
//	{prefix}feeds/{source}/2026-03-14/093000Z.jsonl
//	{prefix}editions/2026-03-14/vol-0007.json
type Archiver struct {
	writer   domain.BlobWriter
	prefix   string
	partSize int64
}

// NewArchiver creates an Archiver. A non-empty prefix should end in "/".
func NewArchiver(writer domain.BlobWriter, prefix string, partSize int64) *Archiver {
	return &Archiver{writer: writer, prefix: prefix, partSize: partSize}
}

// ArchiveFeed streams one venue's normalized listing as JSONL. Records are
// encoded while the upload reads them, so the feed is never buffered whole.
func (a *Archiver) ArchiveFeed(ctx context.Context, runAt time.Time, source domain.Source, records []domain.NormalizedMarket) error {
	path := a.FeedPath(runAt, source)

	pr, pw := io.Pipe()
	go func() {
		pw.CloseWithError(writeJSONL(pw, records))
	}()
	err := a.writer.PutMultipart(ctx, path, pr, a.partSize)
	// Unblock the encoder if the upload stopped reading early.
	pr.CloseWithError(io.ErrClosedPipe)
	if err != nil {
		return fmt.Errorf("s3blob: archive %s feed: %w", source, err)
	}
	return nil
}

// ArchiveEdition uploads the manifest as indented JSON.
func (a *Archiver) ArchiveEdition(ctx context.Context, m domain.EditionManifest) error {
	body, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("s3blob: encode manifest %s: %w", m.EditionID, err)
	}
	if err := a.writer.Put(ctx, a.EditionPath(m), bytes.NewReader(body), contentTypeJSON); err != nil {
		return fmt.Errorf("s3blob: archive edition %d: %w", m.VolumeNumber, err)
	}
	return nil
}

func (a *Archiver) FeedPath(runAt time.Time, source domain.Source) string {
	t := runAt.UTC()
	return fmt.Sprintf("%sfeeds/%s/%s/%sZ.jsonl", a.prefix, source, t.Format(time.DateOnly), t.Format("150405"))
}

func (a *Archiver) EditionPath(m domain.EditionManifest) string {
	return fmt.Sprintf("%seditions/%s/vol-%04d.json", a.prefix, m.Date, m.VolumeNumber)
}

func writeJSONL[T any](w io.Writer, records []T) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	for i, rec := range records {
		if err := enc.Encode(rec); err != nil {
			return fmt.Errorf("jsonl record %d: %w", i, err)
		}
	}
	return nil
}
