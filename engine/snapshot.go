package engine

import (
	"bufio"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"io"

	"github.com/klauspost/compress/zstd"

	"github.com/hupe1980/lexgo/index"
	"github.com/hupe1980/lexgo/resource"
	"github.com/hupe1980/lexgo/store"
)

// Snapshot container: a fixed header identifying format and codec, then a
// zstd stream of (kind, key, value) records covering the index's raw key
// space, closed by an end marker and a CRC of the uncompressed record bytes.
// Records carry the bucket kind rather than the full bucket name, so a
// snapshot can be imported into an index with a different name.

var (
	snapshotMagic = [8]byte{'l', 'e', 'x', 'g', 'o', 's', 'n', 'p'}

	// ErrSnapshotFormat is returned when a snapshot header or record stream
	// is malformed.
	ErrSnapshotFormat = errors.New("engine: invalid snapshot format")

	// ErrSnapshotChecksum is returned when the record stream fails its CRC.
	ErrSnapshotChecksum = errors.New("engine: snapshot checksum mismatch")
)

const snapshotVersion = 1

// ExportSnapshot writes the index's raw key space to w. The export runs in
// one read transaction and observes a consistent committed state. Ingestion
// throttling applies to the written stream.
func (e *Engine) ExportSnapshot(ctx context.Context, w io.Writer) error {
	if e.closed.Load() {
		return ErrClosed
	}

	bw := bufio.NewWriter(resource.NewThrottledWriter(ctx, e.rc, w))
	if _, err := bw.Write(snapshotMagic[:]); err != nil {
		return err
	}
	if err := bw.WriteByte(snapshotVersion); err != nil {
		return err
	}
	if err := writeString(bw, e.name); err != nil {
		return err
	}
	if err := writeString(bw, e.codec.Name()); err != nil {
		return err
	}

	zw, err := zstd.NewWriter(bw)
	if err != nil {
		return err
	}
	crc := crc32.NewIEEE()
	out := io.MultiWriter(zw, crc)

	err = e.st.View(func(tx store.Tx) error {
		for _, kind := range index.AllKinds {
			if err := ctx.Err(); err != nil {
				return err
			}
			bucket := e.buckets.ForKind(kind)
			c := tx.Cursor(bucket)
			for k, v := c.First(); k != nil; k, v = c.Next() {
				if err := writeRecord(out, kind, k, v); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		_ = zw.Close()
		return err
	}

	// End marker, then the CRC of everything before it.
	if err := writeString(out, ""); err != nil {
		return err
	}
	var sum [4]byte
	binary.BigEndian.PutUint32(sum[:], crc.Sum32())
	if _, err := zw.Write(sum[:]); err != nil {
		return err
	}
	if err := zw.Close(); err != nil {
		return err
	}
	return bw.Flush()
}

// ImportSnapshot replaces the index's raw key space with the snapshot read
// from r, inside one transaction. Schema and settings carried by the
// snapshot take effect immediately. Ingestion throttling applies to the
// decompressed stream.
func (e *Engine) ImportSnapshot(ctx context.Context, r io.Reader) error {
	if e.closed.Load() {
		return ErrClosed
	}

	br := bufio.NewReader(resource.NewThrottledReader(ctx, e.rc, r))

	var magic [8]byte
	if _, err := io.ReadFull(br, magic[:]); err != nil {
		return fmt.Errorf("%w: %w", ErrSnapshotFormat, err)
	}
	if magic != snapshotMagic {
		return fmt.Errorf("%w: bad magic %q", ErrSnapshotFormat, magic[:])
	}
	version, err := br.ReadByte()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrSnapshotFormat, err)
	}
	if version != snapshotVersion {
		return fmt.Errorf("%w: unsupported version %d", ErrSnapshotFormat, version)
	}
	if _, err := readString(br); err != nil { // source index name, informational
		return fmt.Errorf("%w: %w", ErrSnapshotFormat, err)
	}
	if _, err := readString(br); err != nil { // codec name, informational
		return fmt.Errorf("%w: %w", ErrSnapshotFormat, err)
	}

	zr, err := zstd.NewReader(br)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrSnapshotFormat, err)
	}
	defer zr.Close()

	if err := e.rc.AcquireIngest(ctx); err != nil {
		return err
	}
	defer e.rc.ReleaseIngest()

	e.mu.Lock()
	defer e.mu.Unlock()

	// The reader buffers ahead of what the record loop consumes, so the CRC
	// is fed from the decoded framing rather than the raw stream. That keeps
	// the trailing checksum bytes out of the hash.
	crc := crc32.NewIEEE()
	cr := bufio.NewReader(zr)

	err = e.st.Update(func(tx store.Tx) error {
		for _, bucket := range e.buckets.All() {
			if err := tx.DeleteBucket(bucket); err != nil {
				return err
			}
		}
		for {
			kind, key, value, done, err := readRecord(cr)
			if err != nil {
				return err
			}
			if done {
				if err := writeString(crc, ""); err != nil {
					return err
				}
				break
			}
			if err := writeRecord(crc, kind, key, value); err != nil {
				return err
			}
			bucket := e.buckets.ForKind(kind)
			if bucket == nil {
				return fmt.Errorf("%w: unknown bucket kind %q", ErrSnapshotFormat, kind)
			}
			if err := tx.Put(bucket, key, value); err != nil {
				return err
			}
		}

		want := crc.Sum32()
		var sum [4]byte
		if _, err := io.ReadFull(cr, sum[:]); err != nil {
			return fmt.Errorf("%w: %w", ErrSnapshotFormat, err)
		}
		if binary.BigEndian.Uint32(sum[:]) != want {
			return ErrSnapshotChecksum
		}
		return nil
	})
	if err != nil {
		return err
	}

	// Pick up the imported schema and settings.
	return e.reloadConfig()
}

func (e *Engine) reloadConfig() error {
	schema := e.state.Load().schema
	settings := e.state.Load().settings
	err := e.st.View(func(tx store.Tx) error {
		if raw := tx.Get(e.buckets.Meta, []byte(index.MetaSchema)); raw != nil {
			if err := e.codec.Unmarshal(raw, &schema); err != nil {
				return err
			}
		}
		if raw := tx.Get(e.buckets.Meta, []byte(index.MetaSettings)); raw != nil {
			if err := e.codec.Unmarshal(raw, &settings); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	next, err := e.buildState(schema, settings)
	if err != nil {
		return err
	}
	e.state.Store(next)
	return nil
}

func writeRecord(w io.Writer, kind string, key, value []byte) error {
	if err := writeString(w, kind); err != nil {
		return err
	}
	if err := writeBytes(w, key); err != nil {
		return err
	}
	return writeBytes(w, value)
}

// readRecord returns done=true on the end marker (empty kind).
func readRecord(r *bufio.Reader) (kind string, key, value []byte, done bool, err error) {
	kind, err = readString(r)
	if err != nil {
		return "", nil, nil, false, fmt.Errorf("%w: %w", ErrSnapshotFormat, err)
	}
	if kind == "" {
		return "", nil, nil, true, nil
	}
	if key, err = readBytes(r); err != nil {
		return "", nil, nil, false, fmt.Errorf("%w: %w", ErrSnapshotFormat, err)
	}
	if value, err = readBytes(r); err != nil {
		return "", nil, nil, false, fmt.Errorf("%w: %w", ErrSnapshotFormat, err)
	}
	return kind, key, value, false, nil
}

func writeString(w io.Writer, s string) error {
	return writeBytes(w, []byte(s))
}

func writeBytes(w io.Writer, b []byte) error {
	var buf [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(buf[:], uint64(len(b)))
	if _, err := w.Write(buf[:n]); err != nil {
		return err
	}
	_, err := w.Write(b)
	return err
}

func readString(r *bufio.Reader) (string, error) {
	b, err := readBytes(r)
	return string(b), err
}

func readBytes(r *bufio.Reader) ([]byte, error) {
	n, err := binary.ReadUvarint(r)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, nil
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(r, b); err != nil {
		return nil, err
	}
	return b, nil
}
