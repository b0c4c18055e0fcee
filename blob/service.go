package blob

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/jonwraymond/blobpipe/paging"
	"github.com/jonwraymond/blobpipe/pipeline"
)

// ServiceURL addresses a storage account.
type ServiceURL struct {
	storageURL
}

// NewServiceURL creates a ServiceURL for the account endpoint rawURL.
func NewServiceURL(rawURL string, p *pipeline.Pipeline) (ServiceURL, error) {
	s, err := newStorageURL(rawURL, p)
	if err != nil {
		return ServiceURL{}, err
	}
	return ServiceURL{storageURL: s}, nil
}

// URL returns a copy of the account URL.
func (s ServiceURL) URL() url.URL { return *s.u }

// String returns the account URL.
func (s ServiceURL) String() string { return s.u.String() }

// Pipeline returns the pipeline requests are sent through.
func (s ServiceURL) Pipeline() *pipeline.Pipeline { return s.p }

// WithPipeline returns a ServiceURL for the same account that sends through p.
// s is not modified.
func (s ServiceURL) WithPipeline(p *pipeline.Pipeline) ServiceURL {
	return ServiceURL{storageURL: storageURL{u: s.u, p: p}}
}

// NewContainerURL returns a handle for the named container that shares s's pipeline.
func (s ServiceURL) NewContainerURL(name string) (ContainerURL, error) {
	u, err := s.child(name)
	if err != nil {
		return ContainerURL{}, err
	}
	return ContainerURL{storageURL: storageURL{u: u, p: s.p}}, nil
}

func serviceQuery(comp string) url.Values {
	return url.Values{"restype": {"service"}, "comp": {comp}}
}

// GetProperties returns the account's service properties.
func (s ServiceURL) GetProperties(ctx context.Context) (*StorageServiceProperties, error) {
	var props StorageServiceProperties
	_, err := s.sendXML(ctx, operation{
		name:    "GetServiceProperties",
		method:  http.MethodGet,
		query:   serviceQuery("properties"),
		success: []int{http.StatusOK},
	}, &props)
	if err != nil {
		return nil, err
	}
	return &props, nil
}

// SetProperties replaces the account's service properties.
func (s ServiceURL) SetProperties(ctx context.Context, props StorageServiceProperties) error {
	body, err := xml.Marshal(props)
	if err != nil {
		return fmt.Errorf("blob: encode service properties: %w", err)
	}
	_, err = s.sendNoBody(ctx, operation{
		name:    "SetServiceProperties",
		method:  http.MethodPut,
		query:   serviceQuery("properties"),
		header:  http.Header{"Content-Type": {"application/xml"}},
		body:    bytes.NewReader(body),
		success: []int{http.StatusAccepted},
	})
	return err
}

// GetStatistics returns replication statistics. The service answers this
// only on the secondary endpoint.
func (s ServiceURL) GetStatistics(ctx context.Context) (*StorageServiceStats, error) {
	var stats StorageServiceStats
	_, err := s.sendXML(ctx, operation{
		name:    "GetServiceStats",
		method:  http.MethodGet,
		query:   serviceQuery("stats"),
		success: []int{http.StatusOK},
	}, &stats)
	if err != nil {
		return nil, err
	}
	return &stats, nil
}

// GetAccountInfo returns the account's SKU and kind.
func (s ServiceURL) GetAccountInfo(ctx context.Context) (*AccountInfo, error) {
	resp, err := s.sendNoBody(ctx, operation{
		name:    "GetAccountInfo",
		method:  http.MethodHead,
		query:   url.Values{"restype": {"account"}, "comp": {"properties"}},
		success: []int{http.StatusOK},
	})
	if err != nil {
		return nil, err
	}
	return &AccountInfo{
		SKUName:     resp.Header.Get(skuNameHeader),
		AccountKind: resp.Header.Get(accountKindHeader),
		RequestID:   resp.Header.Get(requestIDHeader),
	}, nil
}

// ListContainersOptions filters a container listing.
type ListContainersOptions struct {
	// Prefix restricts the listing to names with this prefix.
	Prefix string

	// MaxResults caps the containers per segment. Zero uses the service default.
	MaxResults int

	// IncludeMetadata returns each container's metadata.
	IncludeMetadata bool
}

func (o ListContainersOptions) query(marker string) url.Values {
	q := url.Values{"comp": {"list"}}
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

// ListContainersSegment returns the segment of the container listing that
// starts at marker. Pass "" for the first segment; an empty NextMarker in
// the response ends the listing.
func (s ServiceURL) ListContainersSegment(ctx context.Context, marker string, o ListContainersOptions) (*ListContainersSegmentResponse, error) {
	var seg ListContainersSegmentResponse
	_, err := s.sendXML(ctx, operation{
		name:    "ListContainers",
		method:  http.MethodGet,
		query:   o.query(marker),
		success: []int{http.StatusOK},
	}, &seg)
	if err != nil {
		return nil, err
	}
	return &seg, nil
}

// ContainerLister lists the containers of an account.
var ContainerLister = paging.NewLister[ServiceURL, *ListContainersSegmentResponse, ListContainersOptions, ContainerItem](
	func(ctx context.Context, s ServiceURL, marker string, o ListContainersOptions) (*ListContainersSegmentResponse, error) {
		return s.ListContainersSegment(ctx, marker, o)
	},
	func(seg *ListContainersSegmentResponse) []ContainerItem {
		return seg.ContainerItems
	},
)

// ListContainers returns a Pager over the account's containers.
func (s ServiceURL) ListContainers(o ListContainersOptions) *paging.Pager[ServiceURL, *ListContainersSegmentResponse, ListContainersOptions, ContainerItem] {
	return ContainerLister.Pager(s, o)
}
