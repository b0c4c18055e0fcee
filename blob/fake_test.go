package blob

import (
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"
)

// fakeService is an in-memory storage account served over HTTP.
type fakeService struct {
	mu         sync.Mutex
	containers map[string]*fakeContainer
	props      []byte
	stats      bool
	requests   []*http.Request
	modified   time.Time
	etag       int
}

type fakeContainer struct {
	metadata Metadata
	blobs    map[string]*fakeBlob
}

type fakeBlob struct {
	data     []byte
	headers  BlobHTTPHeaders
	metadata Metadata
	etag     string
}

func newFakeService(t *testing.T) (*fakeService, *httptest.Server) {
	t.Helper()
	f := &fakeService{
		containers: map[string]*fakeContainer{},
		modified:   time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)
	return f, srv
}

func (f *fakeService) Requests() []*http.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*http.Request(nil), f.requests...)
}

func (f *fakeService) nextETag() string {
	f.etag++
	return fmt.Sprintf("\"0x%d\"", f.etag)
}

func (f *fakeService) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, r.Clone(r.Context()))
	w.Header().Set(requestIDHeader, strconv.Itoa(len(f.requests)))

	parts := strings.SplitN(strings.TrimPrefix(r.URL.Path, "/"), "/", 2)
	q := r.URL.Query()
	switch {
	case parts[0] == "":
		f.serveAccount(w, r, q)
	case len(parts) == 1:
		f.serveContainer(w, r, parts[0], q)
	default:
		f.serveBlob(w, r, parts[0], parts[1])
	}
}

func (f *fakeService) serveAccount(w http.ResponseWriter, r *http.Request, q map[string][]string) {
	get := func(k string) string {
		if v := q[k]; len(v) > 0 {
			return v[0]
		}
		return ""
	}
	switch {
	case get("restype") == "account" && r.Method == http.MethodHead:
		w.Header().Set(skuNameHeader, "Standard_RAGRS")
		w.Header().Set(accountKindHeader, "StorageV2")
		w.WriteHeader(http.StatusOK)
	case get("comp") == "properties" && r.Method == http.MethodGet:
		body := f.props
		if body == nil {
			body = []byte(`<StorageServiceProperties></StorageServiceProperties>`)
		}
		_, _ = w.Write(body)
	case get("comp") == "properties" && r.Method == http.MethodPut:
		f.props, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusAccepted)
	case get("comp") == "stats":
		if !f.stats {
			writeError(w, http.StatusBadRequest, "InvalidQueryParameterValue")
			return
		}
		writeXML(w, StorageServiceStats{GeoReplication: &GeoReplication{
			Status:       "live",
			LastSyncTime: Time{f.modified},
		}})
	case get("comp") == "list":
		f.listContainers(w, r)
	default:
		writeError(w, http.StatusBadRequest, "UnsupportedQueryParameter")
	}
}

func (f *fakeService) listContainers(w http.ResponseWriter, r *http.Request) {
	names := make([]string, 0, len(f.containers))
	for name := range f.containers {
		names = append(names, name)
	}
	page, next := window(names, r.URL.Query())

	out := ListContainersSegmentResponse{
		ServiceEndpoint: "http://" + r.Host + "/",
		Prefix:          r.URL.Query().Get("prefix"),
		Marker:          r.URL.Query().Get("marker"),
		NextMarker:      next,
	}
	for _, name := range page {
		item := ContainerItem{Name: name, Properties: ContainerProperties{
			LastModified: Time{f.modified},
			ETag:         "\"c\"",
			LeaseState:   "available",
		}}
		if r.URL.Query().Get("include") == "metadata" {
			item.Metadata = f.containers[name].metadata
		}
		out.ContainerItems = append(out.ContainerItems, item)
	}
	writeXML(w, out)
}

func (f *fakeService) serveContainer(w http.ResponseWriter, r *http.Request, name string, q map[string][]string) {
	if len(q["restype"]) == 0 || q["restype"][0] != "container" {
		writeError(w, http.StatusBadRequest, "InvalidQueryParameterValue")
		return
	}
	comp := ""
	if v := q["comp"]; len(v) > 0 {
		comp = v[0]
	}
	c, exists := f.containers[name]

	switch {
	case r.Method == http.MethodPut && comp == "":
		if exists {
			writeError(w, http.StatusConflict, "ContainerAlreadyExists")
			return
		}
		f.containers[name] = &fakeContainer{metadata: metadataFrom(r.Header), blobs: map[string]*fakeBlob{}}
		w.WriteHeader(http.StatusCreated)
	case !exists:
		writeError(w, http.StatusNotFound, "ContainerNotFound")
	case r.Method == http.MethodDelete:
		delete(f.containers, name)
		w.WriteHeader(http.StatusAccepted)
	case r.Method == http.MethodPut && comp == "metadata":
		c.metadata = metadataFrom(r.Header)
		w.WriteHeader(http.StatusOK)
	case r.Method == http.MethodGet && comp == "list":
		f.listBlobs(w, r, name, c)
	case (r.Method == http.MethodGet || r.Method == http.MethodHead) && comp == "":
		setMetadata(w.Header(), c.metadata)
		w.Header().Set("ETag", "\"c\"")
		w.Header().Set("Last-Modified", f.modified.Format(http.TimeFormat))
		w.Header().Set(leaseStateHeader, "available")
		w.WriteHeader(http.StatusOK)
	default:
		writeError(w, http.StatusBadRequest, "UnsupportedHttpVerb")
	}
}

func (f *fakeService) listBlobs(w http.ResponseWriter, r *http.Request, container string, c *fakeContainer) {
	names := make([]string, 0, len(c.blobs))
	for name := range c.blobs {
		names = append(names, name)
	}
	page, next := window(names, r.URL.Query())

	out := ListBlobsFlatSegmentResponse{
		ServiceEndpoint: "http://" + r.Host + "/",
		ContainerName:   container,
		Prefix:          r.URL.Query().Get("prefix"),
		Marker:          r.URL.Query().Get("marker"),
		NextMarker:      next,
	}
	for _, name := range page {
		b := c.blobs[name]
		item := BlobItem{Name: name, Properties: BlobProperties{
			LastModified:  Time{f.modified},
			ETag:          b.etag,
			ContentLength: int64(len(b.data)),
			ContentType:   b.headers.ContentType,
			BlobType:      blockBlobType,
		}}
		if r.URL.Query().Get("include") == "metadata" {
			item.Metadata = b.metadata
		}
		out.BlobItems = append(out.BlobItems, item)
	}
	writeXML(w, out)
}

func (f *fakeService) serveBlob(w http.ResponseWriter, r *http.Request, container, name string) {
	c, ok := f.containers[container]
	if !ok {
		writeError(w, http.StatusNotFound, "ContainerNotFound")
		return
	}
	b, exists := c.blobs[name]

	switch r.Method {
	case http.MethodPut:
		if r.Header.Get(blobTypeHeader) != blockBlobType {
			writeError(w, http.StatusBadRequest, "MissingRequiredHeader")
			return
		}
		data, _ := io.ReadAll(r.Body)
		b = &fakeBlob{
			data:     data,
			metadata: metadataFrom(r.Header),
			etag:     f.nextETag(),
			headers: BlobHTTPHeaders{
				ContentType:        r.Header.Get("x-ms-blob-content-type"),
				ContentEncoding:    r.Header.Get("x-ms-blob-content-encoding"),
				ContentLanguage:    r.Header.Get("x-ms-blob-content-language"),
				ContentDisposition: r.Header.Get("x-ms-blob-content-disposition"),
				CacheControl:       r.Header.Get("x-ms-blob-cache-control"),
			},
		}
		c.blobs[name] = b
		w.Header().Set("ETag", b.etag)
		w.Header().Set("Last-Modified", f.modified.Format(http.TimeFormat))
		w.WriteHeader(http.StatusCreated)
		return
	case http.MethodDelete:
		if !exists {
			writeError(w, http.StatusNotFound, "BlobNotFound")
			return
		}
		delete(c.blobs, name)
		w.WriteHeader(http.StatusAccepted)
		return
	}

	if !exists {
		writeError(w, http.StatusNotFound, "BlobNotFound")
		return
	}
	h := w.Header()
	setMetadata(h, b.metadata)
	h.Set("ETag", b.etag)
	h.Set("Last-Modified", f.modified.Format(http.TimeFormat))
	h.Set(blobTypeHeader, blockBlobType)
	if b.headers.ContentType != "" {
		h.Set("Content-Type", b.headers.ContentType)
	}
	if b.headers.CacheControl != "" {
		h.Set("Cache-Control", b.headers.CacheControl)
	}

	data, status := b.data, http.StatusOK
	if rng := r.Header.Get(rangeHeader); rng != "" {
		start, end, ok := parseRange(rng, int64(len(b.data)))
		if !ok {
			writeError(w, http.StatusRequestedRangeNotSatisfiable, "InvalidRange")
			return
		}
		data, status = b.data[start:end+1], http.StatusPartialContent
		h.Set(contentRangeHeader, fmt.Sprintf("bytes %d-%d/%d", start, end, len(b.data)))
	}
	h.Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(status)
	if r.Method == http.MethodGet {
		_, _ = w.Write(data)
	}
}

// window applies marker and maxresults to names. The marker of the next page
// is the first name it holds.
func window(names []string, q map[string][]string) (page []string, next string) {
	sort.Strings(names)
	first := func(k string) string {
		if v := q[k]; len(v) > 0 {
			return v[0]
		}
		return ""
	}
	prefix, marker := first("prefix"), first("marker")
	limit, err := strconv.Atoi(first("maxresults"))
	if err != nil || limit <= 0 {
		limit = 5000
	}
	for _, name := range names {
		if !strings.HasPrefix(name, prefix) || name < marker {
			continue
		}
		if len(page) == limit {
			return page, name
		}
		page = append(page, name)
	}
	return page, ""
}

func parseRange(v string, size int64) (start, end int64, ok bool) {
	r, found := strings.CutPrefix(v, "bytes=")
	if !found {
		return 0, 0, false
	}
	from, to, _ := strings.Cut(r, "-")
	start, err := strconv.ParseInt(from, 10, 64)
	if err != nil || start >= size {
		return 0, 0, false
	}
	end = size - 1
	if to != "" {
		if end, err = strconv.ParseInt(to, 10, 64); err != nil {
			return 0, 0, false
		}
		if end >= size {
			end = size - 1
		}
	}
	return start, end, start <= end
}

func writeXML(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/xml")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(xml.Header))
	_ = xml.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string) {
	w.Header().Set("x-ms-error-code", code)
	w.Header().Set("Content-Type", "application/xml")
	w.WriteHeader(status)
	fmt.Fprintf(w, "%s<Error><Code>%s</Code><Message>%s</Message></Error>", xml.Header, code, http.StatusText(status))
}
