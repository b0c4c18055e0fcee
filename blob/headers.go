package blob

import (
	"net/http"
	"sort"
	"strings"
	"time"
)

// Headers used by the handles.
const (
	metaPrefix         = "x-ms-meta-"
	requestIDHeader    = "x-ms-request-id"
	blobTypeHeader     = "x-ms-blob-type"
	leaseStateHeader   = "x-ms-lease-state"
	skuNameHeader      = "x-ms-sku-name"
	accountKindHeader  = "x-ms-account-kind"
	blockBlobType      = "BlockBlob"
	rangeHeader        = "x-ms-range"
	contentRangeHeader = "Content-Range"
)

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// setMetadata writes m as x-ms-meta-* headers.
func setMetadata(h http.Header, m Metadata) {
	for _, k := range sortedKeys(m) {
		h.Set(metaPrefix+strings.ToLower(k), m[k])
	}
}

// metadataFrom reads x-ms-meta-* headers.
func metadataFrom(h http.Header) Metadata {
	m := Metadata{}
	for k, v := range h {
		lk := strings.ToLower(k)
		if name, ok := strings.CutPrefix(lk, metaPrefix); ok && len(v) > 0 {
			m[name] = v[0]
		}
	}
	return m
}

func (h BlobHTTPHeaders) apply(hdr http.Header) {
	set := func(k, v string) {
		if v != "" {
			hdr.Set(k, v)
		}
	}
	set("x-ms-blob-content-type", h.ContentType)
	set("x-ms-blob-content-encoding", h.ContentEncoding)
	set("x-ms-blob-content-language", h.ContentLanguage)
	set("x-ms-blob-content-disposition", h.ContentDisposition)
	set("x-ms-blob-cache-control", h.CacheControl)
}

func httpHeadersFrom(hdr http.Header) BlobHTTPHeaders {
	return BlobHTTPHeaders{
		ContentType:        hdr.Get("Content-Type"),
		ContentEncoding:    hdr.Get("Content-Encoding"),
		ContentLanguage:    hdr.Get("Content-Language"),
		ContentDisposition: hdr.Get("Content-Disposition"),
		CacheControl:       hdr.Get("Cache-Control"),
	}
}

func lastModified(hdr http.Header) time.Time {
	t, err := http.ParseTime(hdr.Get("Last-Modified"))
	if err != nil {
		return time.Time{}
	}
	return t
}
