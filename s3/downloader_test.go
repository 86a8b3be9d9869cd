package s3

import (
	"context"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
)

type fakeS3 struct {
	s3iface.S3API
	lastInput *s3.GetObjectInput
	output    *s3.GetObjectOutput
	err       error
}

func (f *fakeS3) GetObjectWithContext(ctx aws.Context, in *s3.GetObjectInput, opts ...request.Option) (*s3.GetObjectOutput, error) {
	f.lastInput = in
	if f.err != nil {
		return nil, f.err
	}
	return f.output, nil
}

func TestGetParsesObjectAddress(t *testing.T) {
	mod := time.Date(2024, 1, 12, 10, 30, 0, 0, time.UTC)
	fake := &fakeS3{output: &s3.GetObjectOutput{
		Body:         io.NopCloser(strings.NewReader("payload")),
		LastModified: aws.Time(mod),
	}}
	d := &Downloader{svc: fake}

	body, lastModified, notModified, err := d.Get(context.Background(), "s3://my-bucket/drug/event/q1/part.json", "")
	if err != nil {
		t.Fatalf("getting object: %v", err)
	}
	if notModified {
		t.Fatal("unexpected notModified")
	}
	defer body.Close()
	if got := aws.StringValue(fake.lastInput.Bucket); got != "my-bucket" {
		t.Fatalf("bucket: got %q", got)
	}
	if got := aws.StringValue(fake.lastInput.Key); got != "drug/event/q1/part.json" {
		t.Fatalf("key: got %q", got)
	}
	if lastModified != mod.Format(http.TimeFormat) {
		t.Fatalf("lastModified: got %q", lastModified)
	}
}

func TestGetConditional(t *testing.T) {
	fake := &fakeS3{output: &s3.GetObjectOutput{Body: io.NopCloser(strings.NewReader(""))}}
	d := &Downloader{svc: fake}

	_, _, _, err := d.Get(context.Background(), "s3://b/k.json", "Fri, 12 Jan 2024 10:30:00 GMT")
	if err != nil {
		t.Fatalf("getting object: %v", err)
	}
	want := time.Date(2024, 1, 12, 10, 30, 0, 0, time.UTC)
	if got := aws.TimeValue(fake.lastInput.IfModifiedSince); !got.Equal(want) {
		t.Fatalf("IfModifiedSince: got %v, want %v", got, want)
	}
}

func TestGetNotModified(t *testing.T) {
	fake := &fakeS3{err: awserr.NewRequestFailure(
		awserr.New("NotModified", "not modified", nil), http.StatusNotModified, "reqid")}
	d := &Downloader{svc: fake}

	_, _, notModified, err := d.Get(context.Background(), "s3://b/k.json", "Fri, 12 Jan 2024 10:30:00 GMT")
	if err != nil {
		t.Fatalf("304 should not be an error: %v", err)
	}
	if !notModified {
		t.Fatal("expected notModified")
	}
}

func TestGetRejectsBadAddress(t *testing.T) {
	d := &Downloader{svc: &fakeS3{}}
	if _, _, _, err := d.Get(context.Background(), "s3://bucket-only", ""); err == nil {
		t.Fatal("expected error for url without a key")
	}
}
