package s3store

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
)

type fakePutObject struct {
	input *s3.PutObjectInput
	body  []byte
	err   error
}

func (f *fakePutObject) PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.input = params
	b, err := io.ReadAll(params.Body)
	if err != nil {
		return nil, err
	}
	f.body = b
	return &s3.PutObjectOutput{}, nil
}

func TestPutImage(t *testing.T) {
	fake := &fakePutObject{}
	store := New(fake, "food-bucket", "https://cdn.example.com/")

	url, err := store.PutImage(context.Background(), "food-images/7/1700000000000-my lunch.png", "image/png", []byte("img"))
	if err != nil {
		t.Fatalf("PutImage: %v", err)
	}

	if want := "https://cdn.example.com/food-images/7/1700000000000-my%20lunch.png"; url != want {
		t.Errorf("expected %q, got %q", want, url)
	}
	if aws.ToString(fake.input.Bucket) != "food-bucket" {
		t.Errorf("unexpected bucket %q", aws.ToString(fake.input.Bucket))
	}
	if aws.ToString(fake.input.Key) != "food-images/7/1700000000000-my lunch.png" {
		t.Errorf("unexpected key %q", aws.ToString(fake.input.Key))
	}
	if aws.ToString(fake.input.ContentType) != "image/png" {
		t.Errorf("unexpected content type %q", aws.ToString(fake.input.ContentType))
	}
	if fake.input.ACL != s3types.ObjectCannedACLPublicRead {
		t.Errorf("expected public-read ACL, got %q", fake.input.ACL)
	}
	if string(fake.body) != "img" {
		t.Errorf("unexpected body %q", fake.body)
	}
}

func TestPutImage_Error(t *testing.T) {
	store := New(&fakePutObject{err: errors.New("AccessDenied")}, "b", "https://cdn")

	if _, err := store.PutImage(context.Background(), "k.png", "image/png", nil); err == nil {
		t.Fatal("expected error")
	}
}

func TestDefaultPublicURL(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		want string
	}{
		{"aws", Config{Bucket: "b", Region: "eu-west-1"}, "https://b.s3.eu-west-1.amazonaws.com"},
		{"aws default region", Config{Bucket: "b"}, "https://b.s3.us-east-1.amazonaws.com"},
		{"custom endpoint", Config{Bucket: "b", Endpoint: "http://localhost:9000/"}, "http://localhost:9000/b"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := defaultPublicURL(tc.cfg); got != tc.want {
				t.Errorf("expected %q, got %q", tc.want, got)
			}
		})
	}
}

func TestNewFromConfig_RequiresBucket(t *testing.T) {
	if _, err := NewFromConfig(context.Background(), Config{}); err == nil {
		t.Error("expected error without bucket")
	}
}
