package storage

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/a3tai/mcp-cerfa/internal/cerfa"
	"github.com/a3tai/mcp-cerfa/internal/config"
)

type storedObject struct {
	body        []byte
	contentType string
	header      http.Header
}

// s3Stub answers the handful of path-style S3 calls the store makes.
type s3Stub struct {
	mu      sync.Mutex
	buckets map[string]bool
	objects map[string]storedObject
	failPut bool
}

func newS3Stub() *s3Stub {
	return &s3Stub{buckets: map[string]bool{}, objects: map[string]storedObject{}}
}

func (s *s3Stub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	bucket, key, _ := strings.Cut(strings.TrimPrefix(r.URL.Path, "/"), "/")
	switch {
	case key == "" && r.Method == http.MethodHead:
		if !s.buckets[bucket] {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusOK)
	case key == "" && r.Method == http.MethodPut:
		s.buckets[bucket] = true
		w.WriteHeader(http.StatusOK)
	case r.Method == http.MethodPut:
		if s.failPut {
			writeS3Error(w, http.StatusForbidden, "AccessDenied", key)
			return
		}
		body, _ := io.ReadAll(r.Body)
		if r.Header.Get("X-Amz-Decoded-Content-Length") != "" {
			body = decodeChunked(body)
		}
		s.objects[bucket+"/"+key] = storedObject{body: body, contentType: r.Header.Get("Content-Type"), header: r.Header.Clone()}
		w.Header().Set("ETag", `"d41d8cd98f00b204e9800998ecf8427e"`)
		w.WriteHeader(http.StatusOK)
	case r.Method == http.MethodGet:
		obj, ok := s.objects[bucket+"/"+key]
		if !ok {
			writeS3Error(w, http.StatusNotFound, "NoSuchKey", key)
			return
		}
		w.Header().Set("Content-Type", obj.contentType)
		w.Header().Set("Content-Length", strconv.Itoa(len(obj.body)))
		w.Header().Set("ETag", `"d41d8cd98f00b204e9800998ecf8427e"`)
		w.Header().Set("Last-Modified", time.Now().UTC().Format(http.TimeFormat))
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(obj.body)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (s *s3Stub) object(key string) (storedObject, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	obj, ok := s.objects[key]
	return obj, ok
}

func writeS3Error(w http.ResponseWriter, status int, code, key string) {
	w.Header().Set("Content-Type", "application/xml")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, `<?xml version="1.0" encoding="UTF-8"?><Error><Code>`+code+`</Code><Message>`+code+`</Message><Key>`+key+`</Key></Error>`)
}

// decodeChunked strips aws-chunked framing from a streaming upload.
func decodeChunked(b []byte) []byte {
	var out []byte
	for len(b) > 0 {
		i := bytes.Index(b, []byte("\r\n"))
		if i < 0 {
			break
		}
		size, _, _ := strings.Cut(string(b[:i]), ";")
		n, err := strconv.ParseInt(size, 16, 64)
		if err != nil || n == 0 {
			break
		}
		b = b[i+2:]
		out = append(out, b[:n]...)
		b = b[n+2:]
	}
	return out
}

func newTestStore(t *testing.T, prefix string) (*MinioStore, *s3Stub) {
	t.Helper()
	stub := newS3Stub()
	srv := httptest.NewServer(stub)
	t.Cleanup(srv.Close)

	u, err := url.Parse(srv.URL)
	require.NoError(t, err)

	store, err := NewMinioStore(config.StorageConfig{
		Endpoint:  u.Host,
		AccessKey: "minioadmin",
		SecretKey: "minioadmin",
		Bucket:    "cerfa",
		Region:    "us-east-1",
		Prefix:    prefix,
		URLExpiry: time.Hour,
	}, zaptest.NewLogger(t))
	require.NoError(t, err)
	return store, stub
}

func TestEnsureBucket(t *testing.T) {
	store, stub := newTestStore(t, "")
	ctx := context.Background()

	require.NoError(t, store.EnsureBucket(ctx))
	assert.True(t, stub.buckets["cerfa"])

	// Second call sees the bucket and does nothing.
	require.NoError(t, store.EnsureBucket(ctx))
}

func TestObjectKey(t *testing.T) {
	store, _ := newTestStore(t, "/tenant-a/")
	assert.Equal(t, "tenant-a/cerfas/cerfa-42.pdf", store.ObjectKey("cerfa-42.pdf"))

	store, _ = newTestStore(t, "")
	assert.Equal(t, "cerfas/cerfa-42.pdf", store.ObjectKey("cerfa-42.pdf"))
}

func TestStore(t *testing.T) {
	store, stub := newTestStore(t, "documents")
	ctx := context.Background()
	pdf := []byte("%PDF-1.7\n%fake\n")

	doc, err := store.Store(ctx, "cerfa-C-1-1700000000000.pdf", pdf, map[string]string{
		"contractId":          "c-1",
		"fieldMappingVersion": "1.0.0",
	})
	require.NoError(t, err)

	assert.Equal(t, "documents/cerfas/cerfa-C-1-1700000000000.pdf", doc.Reference)
	assert.Contains(t, doc.URL, "/cerfa/documents/cerfas/cerfa-C-1-1700000000000.pdf")
	assert.Contains(t, doc.URL, "X-Amz-Expires=3600")
	assert.Contains(t, doc.URL, "X-Amz-Signature=")

	obj, ok := stub.object("cerfa/" + doc.Reference)
	require.True(t, ok)
	assert.Equal(t, pdf, obj.body)
	assert.Equal(t, "application/pdf", obj.contentType)
	assert.Equal(t, "c-1", obj.header.Get("X-Amz-Meta-Contractid"))
	assert.Equal(t, "1.0.0", obj.header.Get("X-Amz-Meta-Fieldmappingversion"))
}

func TestStore_WriteFailure(t *testing.T) {
	store, stub := newTestStore(t, "")
	stub.failPut = true

	_, err := store.Store(context.Background(), "cerfa-1.pdf", []byte("%PDF"), nil)
	require.Error(t, err)

	var writeErr *StoreWriteError
	require.ErrorAs(t, err, &writeErr)
	assert.Equal(t, "cerfas/cerfa-1.pdf", writeErr.Object)
}

func TestPresignedURL(t *testing.T) {
	store, _ := newTestStore(t, "")

	first, err := store.PresignedURL(context.Background(), "cerfas/a.pdf")
	require.NoError(t, err)

	u, err := url.Parse(first)
	require.NoError(t, err)
	assert.Equal(t, "/cerfa/cerfas/a.pdf", u.Path)
	assert.Equal(t, "3600", u.Query().Get("X-Amz-Expires"))
}

func TestGet(t *testing.T) {
	store, _ := newTestStore(t, "")
	ctx := context.Background()

	_, err := store.Store(ctx, "a.pdf", []byte("%PDF-a"), nil)
	require.NoError(t, err)

	data, err := store.Get(ctx, "cerfas/a.pdf")
	require.NoError(t, err)
	assert.Equal(t, []byte("%PDF-a"), data)

	_, err = store.Get(ctx, "cerfas/missing.pdf")
	assert.ErrorIs(t, err, ErrObjectNotFound)
}

func TestObjectTemplate(t *testing.T) {
	store, stub := newTestStore(t, "")
	stub.objects["cerfa/templates/cerfa_10103-10.pdf"] = storedObject{body: []byte("%PDF-template"), contentType: "application/pdf"}

	src := ObjectTemplate{Store: store, Key: "templates/cerfa_10103-10.pdf"}
	assert.Equal(t, "object:cerfa/templates/cerfa_10103-10.pdf", src.String())

	data, err := src.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []byte("%PDF-template"), data)

	_, err = ObjectTemplate{Store: store, Key: "templates/none.pdf"}.Load(context.Background())
	var loadErr *cerfa.TemplateLoadError
	require.ErrorAs(t, err, &loadErr)
	assert.Equal(t, cerfa.KindTemplateRead, loadErr.Kind)
	assert.ErrorIs(t, err, ErrObjectNotFound)
}
