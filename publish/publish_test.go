package publish_test

import (
	"context"
	"io"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/go-cmp/cmp"
	"github.com/pkg/errors"
	"github.com/stackgraph/stackgraph/publish"
	"github.com/stackgraph/stackgraph/synth"
)

type fakeS3 struct {
	objects map[string][]byte
	meta    map[string]map[string]string
	err     error
}

func (f *fakeS3) PutObject(ctx context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	b, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	key := aws.ToString(in.Bucket) + "/" + aws.ToString(in.Key)
	if f.objects == nil {
		f.objects = make(map[string][]byte)
		f.meta = make(map[string]map[string]string)
	}
	f.objects[key] = b
	f.meta[key] = in.Metadata
	return &s3.PutObjectOutput{}, nil
}

func document(t *testing.T) *synth.Document {
	t.Helper()
	doc := &synth.Document{
		Stack:     "nmos",
		Resources: []synth.Resource{{Name: "nmos-test-vpc", Kind: "network"}},
	}
	sum, err := doc.ComputeDigest()
	if err != nil {
		t.Fatal(err)
	}
	doc.Digest = sum
	return doc
}

func TestS3_Publish(t *testing.T) {
	client := &fakeS3{}
	p := &publish.S3{Client: client, Bucket: "docs", Prefix: "stacks"}
	doc := document(t)

	key, err := p.Publish(context.Background(), doc)
	if err != nil {
		t.Fatalf("Publish() err = %v", err)
	}
	if want := "stacks/nmos/" + doc.Digest + ".json"; key != want {
		t.Errorf("Publish() key = %q, want %q", key, want)
	}

	got, err := synth.DecodeBytes(client.objects["docs/"+key])
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(got, doc); diff != "" {
		t.Errorf("Uploaded document (-got, +want)\n%s", diff)
	}
	if diff := cmp.Diff(client.meta["docs/"+key], map[string]string{"stack": "nmos", "digest": doc.Digest}); diff != "" {
		t.Errorf("Metadata (-got, +want)\n%s", diff)
	}
}

func TestS3_Publish_errors(t *testing.T) {
	tampered := document(t)
	tampered.Resources[0].Name = "changed"
	unnamed := document(t)
	unnamed.Stack = ""

	tests := []struct {
		name   string
		client *fakeS3
		doc    *synth.Document
	}{
		{"Digest", &fakeS3{}, tampered},
		{"NoStack", &fakeS3{}, unnamed},
		{"Upload", &fakeS3{err: errors.New("access denied")}, document(t)},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			p := &publish.S3{Client: tc.client, Bucket: "docs"}
			if _, err := p.Publish(context.Background(), tc.doc); err == nil {
				t.Error("Publish() did not return an error")
			}
			if len(tc.client.objects) != 0 {
				t.Error("Publish() uploaded an object")
			}
		})
	}
}
