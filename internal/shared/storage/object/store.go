package object

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
	"io"
	"mime"
	"net/http"
	"path"
	"strings"
)

// ErrTooLarge is returned by ReadAll when an object exceeds the caller's limit.
var ErrTooLarge = errors.New("object exceeds size limit")

// Object describes a stored blob.
type Object struct {
	Key      string
	Size     int64
	MimeType string
	SHA256   string
}

// ObjectStore defines the contract for saving and retrieving artifact bytes.
// Objects are never deleted through this interface.
type ObjectStore interface {
	Save(ctx context.Context, owner string, fileName string, r io.Reader) (Object, error)
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}

// ReadAll reads a whole object, failing with ErrTooLarge past limit bytes (limit <= 0 disables the check).
func ReadAll(ctx context.Context, store ObjectStore, key string, limit int64) ([]byte, error) {
	body, err := store.Open(ctx, key)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	var r io.Reader = body
	if limit > 0 {
		r = io.LimitReader(body, limit+1)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read object %s: %w", key, err)
	}
	if limit > 0 && int64(len(data)) > limit {
		return nil, ErrTooLarge
	}
	return data, nil
}

// Digest wraps a reader and records size and sha256 of everything read through it.
type Digest struct {
	r io.Reader
	h hash.Hash
	n int64
}

// NewDigest returns a Digest reading from r.
func NewDigest(r io.Reader) *Digest {
	return &Digest{r: r, h: sha256.New()}
}

func (d *Digest) Read(p []byte) (int, error) {
	n, err := d.r.Read(p)
	if n > 0 {
		d.h.Write(p[:n])
		d.n += int64(n)
	}
	return n, err
}

// Size returns the number of bytes read so far.
func (d *Digest) Size() int64 { return d.n }

// Sum returns the hex sha256 of the bytes read so far.
func (d *Digest) Sum() string { return hex.EncodeToString(d.h.Sum(nil)) }

// DetectMimeType prefers the extension mapping and falls back to content sniffing.
func DetectMimeType(fileName string, head []byte) string {
	if byExt := mime.TypeByExtension(strings.ToLower(path.Ext(fileName))); byExt != "" {
		return byExt
	}
	return http.DetectContentType(head)
}
