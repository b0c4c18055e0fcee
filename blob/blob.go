package blob

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/jonwraymond/blobpipe/pipeline"
)

// BlobURL addresses a blob.
type BlobURL struct {
	storageURL
}

// NewBlobURL creates a BlobURL for the blob at rawURL.
func NewBlobURL(rawURL string, p *pipeline.Pipeline) (BlobURL, error) {
	s, err := newStorageURL(rawURL, p)
	if err != nil {
		return BlobURL{}, err
	}
	return BlobURL{storageURL: s}, nil
}

// URL returns a copy of the blob URL.
func (b BlobURL) URL() url.URL { return *b.u }

// String returns the blob URL.
func (b BlobURL) String() string { return b.u.String() }

// Pipeline returns the pipeline requests are sent through.
func (b BlobURL) Pipeline() *pipeline.Pipeline { return b.p }

// WithPipeline returns a BlobURL for the same blob that sends through p.
// b is not modified.
func (b BlobURL) WithPipeline(p *pipeline.Pipeline) BlobURL {
	return BlobURL{storageURL: storageURL{u: b.u, p: p}}
}

// Upload writes body as a block blob, replacing any existing blob. body is
// rewound before every try.
func (b BlobURL) Upload(ctx context.Context, body io.ReadSeeker, headers BlobHTTPHeaders, metadata Metadata) (*UploadResponse, error) {
	h := http.Header{}
	h.Set(blobTypeHeader, blockBlobType)
	headers.apply(h)
	setMetadata(h, metadata)
	if body == nil {
		body = bytes.NewReader(nil)
	}

	resp, err := b.sendNoBody(ctx, operation{
		name:    "UploadBlob",
		method:  http.MethodPut,
		header:  h,
		body:    body,
		success: []int{http.StatusCreated},
	})
	if err != nil {
		return nil, err
	}
	return &UploadResponse{
		ETag:         resp.Header.Get("ETag"),
		LastModified: lastModified(resp.Header),
		RequestID:    resp.Header.Get(requestIDHeader),
	}, nil
}

// Download reads count bytes starting at offset. A count of zero reads to
// the end of the blob. The caller must close the returned Body.
func (b BlobURL) Download(ctx context.Context, offset, count int64) (*DownloadResponse, error) {
	if offset < 0 || count < 0 {
		return nil, fmt.Errorf("%w: offset %d count %d", ErrInvalidRange, offset, count)
	}
	h := http.Header{}
	switch {
	case count > 0:
		h.Set(rangeHeader, fmt.Sprintf("bytes=%d-%d", offset, offset+count-1))
	case offset > 0:
		h.Set(rangeHeader, fmt.Sprintf("bytes=%d-", offset))
	}

	resp, err := b.send(ctx, operation{
		name:    "DownloadBlob",
		method:  http.MethodGet,
		header:  h,
		success: []int{http.StatusOK, http.StatusPartialContent},
	})
	if err != nil {
		return nil, err
	}
	return &DownloadResponse{
		Body:          resp.Body,
		StatusCode:    resp.StatusCode,
		ContentLength: parseContentLength(resp.Header.Get("Content-Length")),
		ContentRange:  resp.Header.Get(contentRangeHeader),
		ETag:          resp.Header.Get("ETag"),
		LastModified:  lastModified(resp.Header),
		HTTPHeaders:   httpHeadersFrom(resp.Header),
		Metadata:      metadataFrom(resp.Header),
	}, nil
}

// Delete deletes the blob.
func (b BlobURL) Delete(ctx context.Context) error {
	_, err := b.sendNoBody(ctx, operation{
		name:    "DeleteBlob",
		method:  http.MethodDelete,
		success: []int{http.StatusAccepted},
	})
	return err
}

// GetProperties returns the blob's properties and metadata.
func (b BlobURL) GetProperties(ctx context.Context) (*BlobPropertiesResponse, error) {
	resp, err := b.sendNoBody(ctx, operation{
		name:    "GetBlobProperties",
		method:  http.MethodHead,
		success: []int{http.StatusOK},
	})
	if err != nil {
		return nil, err
	}
	return &BlobPropertiesResponse{
		ETag:          resp.Header.Get("ETag"),
		LastModified:  lastModified(resp.Header),
		ContentLength: parseContentLength(resp.Header.Get("Content-Length")),
		BlobType:      resp.Header.Get(blobTypeHeader),
		HTTPHeaders:   httpHeadersFrom(resp.Header),
		Metadata:      metadataFrom(resp.Header),
		RequestID:     resp.Header.Get(requestIDHeader),
	}, nil
}
