// Package s3 fetches partitions addressed by s3:// URLs. Some openFDA
// mirrors publish the bulk exports in S3 buckets; this downloader gives
// those partitions the same conditional-fetch semantics the HTTP path
// has, using GetObject's IfModifiedSince condition.
package s3

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/pkg/errors"

	"github.com/biobricks-ai/openfda/manifest"
)

// Downloader implements the download package's Downloader interface for
// the "s3" URL scheme.
type Downloader struct {
	svc s3iface.S3API
}

// NewDownloader creates a Downloader for the given region using the
// ambient AWS credential chain.
func NewDownloader(region string) (*Downloader, error) {
	sess, err := session.NewSession(&aws.Config{Region: aws.String(region)})
	if err != nil {
		return nil, errors.Wrap(err, "creating aws session")
	}
	return &Downloader{svc: s3.New(sess)}, nil
}

// Get retrieves s3://<bucket>/<key>. A non-empty ifModifiedSince becomes
// the GetObject IfModifiedSince condition; S3 answers those with a 304,
// reported here as notModified.
func (d *Downloader) Get(ctx context.Context, rawurl, ifModifiedSince string) (io.ReadCloser, string, bool, error) {
	u, err := url.Parse(rawurl)
	if err != nil {
		return nil, "", false, errors.Wrapf(err, "parsing url %q", rawurl)
	}
	key := strings.TrimPrefix(u.Path, "/")
	if u.Host == "" || key == "" {
		return nil, "", false, errors.Errorf("url %q is not a valid s3 object address", rawurl)
	}
	input := &s3.GetObjectInput{
		Bucket: aws.String(u.Host),
		Key:    aws.String(key),
	}
	if ifModifiedSince != "" {
		if t := manifest.ParseDate(ifModifiedSince); !t.IsZero() {
			input.IfModifiedSince = aws.Time(t)
		}
	}
	out, err := d.svc.GetObjectWithContext(ctx, input)
	if err != nil {
		if reqErr, ok := err.(awserr.RequestFailure); ok && reqErr.StatusCode() == http.StatusNotModified {
			return nil, "", true, nil
		}
		return nil, "", false, errors.Wrapf(err, "getting s3 object %s/%s", u.Host, key)
	}
	lastModified := ""
	if out.LastModified != nil {
		lastModified = out.LastModified.UTC().Format(http.TimeFormat)
	}
	return out.Body, lastModified, false, nil
}
