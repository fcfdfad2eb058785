package blob

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	aws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockS3 is a tiny fake S3 subset sufficient to drive the store without network access.
type mockS3 struct {
	mu    sync.Mutex
	state map[string]mockObject
}

type mockObject struct {
	body        []byte
	contentType string
}

func empty(status int) *http.Response {
	return &http.Response{StatusCode: status, Body: io.NopCloser(bytes.NewReader(nil)), Header: http.Header{}}
}

func (m *mockS3) RoundTrip(req *http.Request) (*http.Response, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	parts := strings.SplitN(strings.TrimPrefix(req.URL.Path, "/"), "/", 2)
	key := ""
	if len(parts) == 2 {
		key = parts[1]
	}
	if req.Method == http.MethodGet && req.URL.Query().Get("list-type") == "2" {
		return m.list(req.URL.Query().Get("prefix")), nil
	}

	switch req.Method {
	case http.MethodHead, http.MethodGet:
		obj, ok := m.state[key]
		if !ok {
			return empty(http.StatusNotFound), nil
		}
		resp := &http.Response{StatusCode: http.StatusOK, Header: http.Header{
			"Content-Length": {strconv.Itoa(len(obj.body))},
			"Content-Type":   {obj.contentType},
			"Etag":           {"\"etag123\""},
			"Last-Modified":  {time.Now().UTC().Format(http.TimeFormat)},
		}}
		if req.Method == http.MethodGet {
			resp.Body = io.NopCloser(bytes.NewReader(obj.body))
		} else {
			resp.Body = io.NopCloser(bytes.NewReader(nil))
		}
		return resp, nil
	case http.MethodPut:
		body, _ := io.ReadAll(req.Body)
		if strings.Contains(req.Header.Get("Content-Encoding"), "aws-chunked") {
			if dec, ok := decodeAWSChunked(body); ok {
				body = dec
			}
		}
		m.state[key] = mockObject{body: body, contentType: req.Header.Get("Content-Type")}
		resp := empty(http.StatusOK)
		resp.Header.Set("Etag", "\"etag123\"")
		return resp, nil
	case http.MethodDelete:
		delete(m.state, key)
		return empty(http.StatusNoContent), nil
	}
	return empty(http.StatusNotImplemented), nil
}

func (m *mockS3) list(prefix string) *http.Response {
	var keys []string
	for k := range m.state {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	var b strings.Builder
	b.WriteString(`<?xml version="1.0"?><ListBucketResult><IsTruncated>false</IsTruncated>`)
	for _, k := range keys {
		fmt.Fprintf(&b, "<Contents><Key>%s</Key><Size>%d</Size><LastModified>2024-01-01T00:00:00Z</LastModified></Contents>",
			k, len(m.state[k].body))
	}
	b.WriteString("</ListBucketResult>")
	return &http.Response{StatusCode: http.StatusOK, Body: io.NopCloser(strings.NewReader(b.String())),
		Header: http.Header{"Content-Type": {"application/xml"}}}
}

// decodeAWSChunked strips aws-chunked framing: <hex>\r\n<data>\r\n ... 0\r\n<trailers>.
func decodeAWSChunked(b []byte) ([]byte, bool) {
	r := bufio.NewReader(bytes.NewReader(b))
	var out bytes.Buffer
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			return nil, false
		}
		sizeField := strings.TrimSpace(line)
		if i := strings.IndexByte(sizeField, ';'); i >= 0 {
			sizeField = sizeField[:i]
		}
		size, err := strconv.ParseInt(sizeField, 16, 64)
		if err != nil {
			return nil, false
		}
		if size == 0 {
			return out.Bytes(), true
		}
		if _, err := io.CopyN(&out, r, size); err != nil {
			return nil, false
		}
		if _, err := r.Discard(2); err != nil {
			return nil, false
		}
	}
}

func newMockS3Store(t *testing.T) *S3Store {
	t.Helper()
	cfg, err := config.LoadDefaultConfig(context.Background(),
		config.WithRegion("us-east-1"),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider("AKIA", "SECRET", "")),
	)
	require.NoError(t, err)
	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String("https://mock.s3.local")
		o.HTTPClient = &http.Client{Transport: &mockS3{state: make(map[string]mockObject)}}
		o.UsePathStyle = true
	})
	return newS3FromClient(client, "landcover-test")
}

func TestS3Store(t *testing.T) {
	store := newMockS3Store(t)
	assert.Equal(t, DriverS3, store.Driver())
	exerciseStore(t, store)
}

func TestS3Store_PresignURL(t *testing.T) {
	store := newMockS3Store(t)
	ctx := context.Background()

	url, err := store.PresignURL(ctx, "plots/r1/temporal_analysis.png", SignedURLOptions{Expiry: time.Minute})
	require.NoError(t, err)
	assert.Contains(t, url, "landcover-test/plots/r1/temporal_analysis.png")
	assert.Contains(t, url, "X-Amz-Expires=60")

	_, err = store.PresignURL(ctx, "plots/r1/temporal_analysis.png", SignedURLOptions{Method: "DELETE"})
	assert.ErrorIs(t, err, ErrUnsupported)
}

func TestDecodeAWSChunked(t *testing.T) {
	payload := []byte("line one\r\nline two")
	framed := fmt.Sprintf("%x\r\n%s\r\n0\r\nx-amz-checksum-crc32:AAAA\r\n\r\n", len(payload), payload)

	got, ok := decodeAWSChunked([]byte(framed))
	require.True(t, ok)
	assert.Equal(t, payload, got)

	_, ok = decodeAWSChunked([]byte("not chunked"))
	assert.False(t, ok)
}
