package blob

import (
	"encoding/xml"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// Time is a timestamp in the RFC 1123 form the service uses in headers and
// listing bodies.
type Time struct {
	time.Time
}

// UnmarshalText parses an RFC 1123 timestamp. Empty text leaves t zero.
func (t *Time) UnmarshalText(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "" {
		t.Time = time.Time{}
		return nil
	}
	parsed, err := http.ParseTime(s)
	if err != nil {
		return err
	}
	t.Time = parsed
	return nil
}

// MarshalText formats t in RFC 1123 form.
func (t Time) MarshalText() ([]byte, error) {
	if t.IsZero() {
		return nil, nil
	}
	return []byte(t.UTC().Format(http.TimeFormat)), nil
}

// Metadata holds user-defined name/value pairs. Names are stored lower case.
type Metadata map[string]string

// UnmarshalXML decodes <Metadata><name>value</name>...</Metadata>.
func (m *Metadata) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	out := Metadata{}
	for {
		tok, err := d.Token()
		if err != nil {
			return err
		}
		switch el := tok.(type) {
		case xml.StartElement:
			var v string
			if err := d.DecodeElement(&v, &el); err != nil {
				return err
			}
			out[strings.ToLower(el.Name.Local)] = v
		case xml.EndElement:
			if el.Name == start.Name {
				*m = out
				return nil
			}
		}
	}
}

// MarshalXML encodes m with one element per entry.
func (m Metadata) MarshalXML(e *xml.Encoder, start xml.StartElement) error {
	if err := e.EncodeToken(start); err != nil {
		return err
	}
	for _, k := range sortedKeys(m) {
		if err := e.EncodeElement(m[k], xml.StartElement{Name: xml.Name{Local: k}}); err != nil {
			return err
		}
	}
	return e.EncodeToken(start.End())
}

// ContainerProperties are the system properties of a container.
type ContainerProperties struct {
	LastModified Time   `xml:"Last-Modified"`
	ETag         string `xml:"Etag"`
	LeaseStatus  string `xml:"LeaseStatus,omitempty"`
	LeaseState   string `xml:"LeaseState,omitempty"`
	PublicAccess string `xml:"PublicAccess,omitempty"`
}

// ContainerItem is one container in a listing.
type ContainerItem struct {
	Name       string              `xml:"Name"`
	Properties ContainerProperties `xml:"Properties"`
	Metadata   Metadata            `xml:"Metadata,omitempty"`
}

// ListContainersSegmentResponse is one segment of a container listing.
type ListContainersSegmentResponse struct {
	XMLName         xml.Name        `xml:"EnumerationResults"`
	ServiceEndpoint string          `xml:"ServiceEndpoint,attr"`
	Prefix          string          `xml:"Prefix,omitempty"`
	Marker          string          `xml:"Marker,omitempty"`
	MaxResults      int             `xml:"MaxResults,omitempty"`
	ContainerItems  []ContainerItem `xml:"Containers>Container"`
	NextMarker      string          `xml:"NextMarker"`
}

// ContinuationMarker returns the marker of the next segment.
func (r *ListContainersSegmentResponse) ContinuationMarker() string {
	return r.NextMarker
}

// BlobProperties are the system properties of a blob.
type BlobProperties struct {
	LastModified  Time   `xml:"Last-Modified"`
	ETag          string `xml:"Etag"`
	ContentLength int64  `xml:"Content-Length"`
	ContentType   string `xml:"Content-Type,omitempty"`
	BlobType      string `xml:"BlobType,omitempty"`
}

// BlobItem is one blob in a listing.
type BlobItem struct {
	Name       string         `xml:"Name"`
	Properties BlobProperties `xml:"Properties"`
	Metadata   Metadata       `xml:"Metadata,omitempty"`
}

// ListBlobsFlatSegmentResponse is one segment of a flat blob listing.
type ListBlobsFlatSegmentResponse struct {
	XMLName         xml.Name   `xml:"EnumerationResults"`
	ServiceEndpoint string     `xml:"ServiceEndpoint,attr"`
	ContainerName   string     `xml:"ContainerName,attr"`
	Prefix          string     `xml:"Prefix,omitempty"`
	Marker          string     `xml:"Marker,omitempty"`
	MaxResults      int        `xml:"MaxResults,omitempty"`
	BlobItems       []BlobItem `xml:"Blobs>Blob"`
	NextMarker      string     `xml:"NextMarker"`
}

// ContinuationMarker returns the marker of the next segment.
func (r *ListBlobsFlatSegmentResponse) ContinuationMarker() string {
	return r.NextMarker
}

// RetentionPolicy configures how long analytics data is kept.
type RetentionPolicy struct {
	Enabled bool `xml:"Enabled"`
	Days    *int `xml:"Days,omitempty"`
}

// Logging configures analytics logging.
type Logging struct {
	Version         string          `xml:"Version"`
	Delete          bool            `xml:"Delete"`
	Read            bool            `xml:"Read"`
	Write           bool            `xml:"Write"`
	RetentionPolicy RetentionPolicy `xml:"RetentionPolicy"`
}

// StorageServiceProperties are the account-level service settings.
type StorageServiceProperties struct {
	XMLName               xml.Name `xml:"StorageServiceProperties"`
	Logging               *Logging `xml:"Logging,omitempty"`
	DefaultServiceVersion string   `xml:"DefaultServiceVersion,omitempty"`
}

// GeoReplication reports the state of replication to the secondary.
type GeoReplication struct {
	Status       string `xml:"Status"`
	LastSyncTime Time   `xml:"LastSyncTime"`
}

// StorageServiceStats are replication statistics, served by the secondary.
type StorageServiceStats struct {
	XMLName        xml.Name        `xml:"StorageServiceStats"`
	GeoReplication *GeoReplication `xml:"GeoReplication"`
}

// AccountInfo describes the account behind a service URL.
type AccountInfo struct {
	SKUName     string
	AccountKind string
	RequestID   string
}

// ContainerPropertiesResponse is the result of ContainerURL.GetProperties.
type ContainerPropertiesResponse struct {
	ETag         string
	LastModified time.Time
	LeaseState   string
	Metadata     Metadata
	RequestID    string
}

// BlobHTTPHeaders are the standard headers stored with a blob.
type BlobHTTPHeaders struct {
	ContentType        string
	ContentEncoding    string
	ContentLanguage    string
	ContentDisposition string
	CacheControl       string
}

// BlobPropertiesResponse is the result of BlobURL.GetProperties.
type BlobPropertiesResponse struct {
	ETag          string
	LastModified  time.Time
	ContentLength int64
	BlobType      string
	HTTPHeaders   BlobHTTPHeaders
	Metadata      Metadata
	RequestID     string
}

// UploadResponse is the result of BlobURL.Upload.
type UploadResponse struct {
	ETag         string
	LastModified time.Time
	RequestID    string
}

// DownloadResponse is the result of BlobURL.Download. The caller must close Body.
type DownloadResponse struct {
	Body          io.ReadCloser
	StatusCode    int
	ContentLength int64
	ContentRange  string
	ETag          string
	LastModified  time.Time
	HTTPHeaders   BlobHTTPHeaders
	Metadata      Metadata
}

func parseContentLength(v string) int64 {
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return -1
	}
	return n
}
