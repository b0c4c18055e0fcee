package blob

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/jonwraymond/blobpipe/paging"
	"github.com/jonwraymond/blobpipe/pipeline"
)

// ContainerURL addresses a container.
type ContainerURL struct {
	storageURL
}

// NewContainerURL creates a ContainerURL for the container at rawURL.
func NewContainerURL(rawURL string, p *pipeline.Pipeline) (ContainerURL, error) {
	s, err := newStorageURL(rawURL, p)
	if err != nil {
		return ContainerURL{}, err
	}
	return ContainerURL{storageURL: s}, nil
}

// URL returns a copy of the container URL.
func (c ContainerURL) URL() url.URL { return *c.u }

// String returns the container URL.
func (c ContainerURL) String() string { return c.u.String() }

// Pipeline returns the pipeline requests are sent through.
func (c ContainerURL) Pipeline() *pipeline.Pipeline { return c.p }

// WithPipeline returns a ContainerURL for the same container that sends
// through p. c is not modified.
func (c ContainerURL) WithPipeline(p *pipeline.Pipeline) ContainerURL {
	return ContainerURL{storageURL: storageURL{u: c.u, p: p}}
}

// NewBlobURL returns a handle for the named blob that shares c's pipeline.
func (c ContainerURL) NewBlobURL(name string) (BlobURL, error) {
	u, err := c.child(name)
	if err != nil {
		return BlobURL{}, err
	}
	return BlobURL{storageURL: storageURL{u: u, p: c.p}}, nil
}

func containerQuery(comp string) url.Values {
	q := url.Values{"restype": {"container"}}
	if comp != "" {
		q.Set("comp", comp)
	}
	return q
}

// Create creates the container with optional metadata.
func (c ContainerURL) Create(ctx context.Context, metadata Metadata) error {
	h := http.Header{}
	setMetadata(h, metadata)
	_, err := c.sendNoBody(ctx, operation{
		name:    "CreateContainer",
		method:  http.MethodPut,
		query:   containerQuery(""),
		header:  h,
		success: []int{http.StatusCreated},
	})
	return err
}

// Delete marks the container for deletion.
func (c ContainerURL) Delete(ctx context.Context) error {
	_, err := c.sendNoBody(ctx, operation{
		name:    "DeleteContainer",
		method:  http.MethodDelete,
		query:   containerQuery(""),
		success: []int{http.StatusAccepted},
	})
	return err
}

// GetProperties returns the container's properties and metadata.
func (c ContainerURL) GetProperties(ctx context.Context) (*ContainerPropertiesResponse, error) {
	resp, err := c.sendNoBody(ctx, operation{
		name:    "GetContainerProperties",
		method:  http.MethodGet,
		query:   containerQuery(""),
		success: []int{http.StatusOK},
	})
	if err != nil {
		return nil, err
	}
	return &ContainerPropertiesResponse{
		ETag:         resp.Header.Get("ETag"),
		LastModified: lastModified(resp.Header),
		LeaseState:   resp.Header.Get(leaseStateHeader),
		Metadata:     metadataFrom(resp.Header),
		RequestID:    resp.Header.Get(requestIDHeader),
	}, nil
}

// SetMetadata replaces the container's metadata.
func (c ContainerURL) SetMetadata(ctx context.Context, metadata Metadata) error {
	h := http.Header{}
	setMetadata(h, metadata)
	_, err := c.sendNoBody(ctx, operation{
		name:    "SetContainerMetadata",
		method:  http.MethodPut,
		query:   containerQuery("metadata"),
		header:  h,
		success: []int{http.StatusOK},
	})
	return err
}

// ListBlobsOptions filters a blob listing.
type ListBlobsOptions struct {
	// Prefix restricts the listing to names with this prefix.
	Prefix string

	// MaxResults caps the blobs per segment. Zero uses the service default.
	MaxResults int

	// IncludeMetadata returns each blob's metadata.
	IncludeMetadata bool
}

func (o ListBlobsOptions) query(marker string) url.Values {
	q := containerQuery("list")
	if o.Prefix != "" {
		q.Set("prefix", o.Prefix)
	}
	if marker != "" {
		q.Set("marker", marker)
	}
	if o.MaxResults > 0 {
		q.Set("maxresults", strconv.Itoa(o.MaxResults))
	}
	if o.IncludeMetadata {
		q.Set("include", "metadata")
	}
	return q
}

// ListBlobsFlatSegment returns the segment of the flat blob listing that
// starts at marker.
func (c ContainerURL) ListBlobsFlatSegment(ctx context.Context, marker string, o ListBlobsOptions) (*ListBlobsFlatSegmentResponse, error) {
	var seg ListBlobsFlatSegmentResponse
	_, err := c.sendXML(ctx, operation{
		name:    "ListBlobs",
		method:  http.MethodGet,
		query:   o.query(marker),
		success: []int{http.StatusOK},
	}, &seg)
	if err != nil {
		return nil, err
	}
	return &seg, nil
}

// BlobLister lists the blobs of a container.
var BlobLister = paging.NewLister[ContainerURL, *ListBlobsFlatSegmentResponse, ListBlobsOptions, BlobItem](
	func(ctx context.Context, c ContainerURL, marker string, o ListBlobsOptions) (*ListBlobsFlatSegmentResponse, error) {
		return c.ListBlobsFlatSegment(ctx, marker, o)
	},
	func(seg *ListBlobsFlatSegmentResponse) []BlobItem {
		return seg.BlobItems
	},
)

// ListBlobs returns a Pager over the container's blobs.
func (c ContainerURL) ListBlobs(o ListBlobsOptions) *paging.Pager[ContainerURL, *ListBlobsFlatSegmentResponse, ListBlobsOptions, BlobItem] {
	return BlobLister.Pager(c, o)
}
