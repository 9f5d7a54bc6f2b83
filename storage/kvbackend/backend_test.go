package kvbackend

import (
	"bytes"
	"context"
	"path/filepath"
	"sort"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/go-cmp/cmp"
	"github.com/stackgraph/stackgraph/storage"
)

func TestBackend_io(t *testing.T) {
	tests := []struct {
		name   string
		create func(t *testing.T) storage.KVBackend
	}{
		{
			"Memory",
			func(*testing.T) storage.KVBackend { return &Memory{} },
		},
		{
			"Bolt",
			func(t *testing.T) storage.KVBackend {
				bolt, err := NewBoltWithFile(filepath.Join(t.TempDir(), "sub", "state.db"))
				if err != nil {
					t.Fatal(err)
				}
				t.Cleanup(func() {
					if err := bolt.Close(); err != nil {
						t.Errorf("close db: %v", err)
					}
				})
				return bolt
			},
		},
		{
			"DynamoDB",
			func(*testing.T) storage.KVBackend {
				return &DynamoDB{Client: &fakeDynamo{}, TableName: "state"}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			be := tt.create(t)
			ctx := context.Background()

			_, err := be.Get(ctx, "foo/bar")
			if !storage.IsNotFound(err) {
				t.Errorf("Get() non-existing err = %v, want %v", err, storage.ErrNotFound)
			}

			if err := be.Put(ctx, "foo/bar", []byte("baz")); err != nil {
				t.Fatalf("Put() err = %v", err)
			}
			assertValue(t, be, "foo/bar", []byte("baz"))

			if err := be.Put(ctx, "foo/bar", []byte("qux")); err != nil {
				t.Fatalf("Put() update err = %v", err)
			}
			assertValue(t, be, "foo/bar", []byte("qux"))

			if err := be.Put(ctx, "foo/baz", []byte("123")); err != nil {
				t.Fatalf("Put() err = %v", err)
			}
			if err := be.Put(ctx, "foo/nested/key", []byte("x")); err != nil {
				t.Fatalf("Put() err = %v", err)
			}

			assertScan(t, be, "nonexisting", map[string][]byte{})
			assertScan(t, be, "foo", map[string][]byte{
				"foo/bar": []byte("qux"),
				"foo/baz": []byte("123"),
			})
			assertScan(t, be, "foo/nested", map[string][]byte{
				"foo/nested/key": []byte("x"),
			})

			if err := be.Delete(ctx, "foo/nonexisting"); !storage.IsNotFound(err) {
				t.Errorf("Delete() non-existing err = %v, want %v", err, storage.ErrNotFound)
			}
			if err := be.Delete(ctx, "foo/bar"); err != nil {
				t.Errorf("Delete() err = %v", err)
			}
			if _, err := be.Get(ctx, "foo/bar"); !storage.IsNotFound(err) {
				t.Errorf("Get() deleted err = %v, want %v", err, storage.ErrNotFound)
			}

			if err := be.Put(ctx, "noslash", nil); err == nil {
				t.Error("Put() without slash did not return an error")
			}
		})
	}
}

func TestBolt_reopen(t *testing.T) {
	file := filepath.Join(t.TempDir(), "state.db")
	ctx := context.Background()

	b, err := NewBoltWithFile(file)
	if err != nil {
		t.Fatal(err)
	}
	if err := b.Put(ctx, "a/b", []byte("c")); err != nil {
		t.Fatal(err)
	}
	if err := b.Close(); err != nil {
		t.Fatal(err)
	}

	b, err = NewBoltWithFile(file)
	if err != nil {
		t.Fatal(err)
	}
	defer b.Close()
	assertValue(t, b, "a/b", []byte("c"))
}

func TestBolt_canceled(t *testing.T) {
	b, err := NewBoltWithFile(filepath.Join(t.TempDir(), "state.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer b.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := b.Put(ctx, "a/b", nil); err != context.Canceled {
		t.Errorf("Put() err = %v, want %v", err, context.Canceled)
	}
}

func assertValue(t *testing.T, be storage.KVBackend, key string, want []byte) {
	t.Helper()
	got, err := be.Get(context.Background(), key)
	if err != nil {
		t.Fatalf("Get(%q) err = %v", key, err)
	}
	if !bytes.Equal(got, want) {
		t.Errorf("Get(%q) = %q, want %q", key, got, want)
	}
}

func assertScan(t *testing.T, be storage.KVBackend, prefix string, want map[string][]byte) {
	t.Helper()
	got, err := be.Scan(context.Background(), prefix)
	if err != nil {
		t.Fatalf("Scan(%q) err = %v", prefix, err)
	}
	if diff := cmp.Diff(got, want); diff != "" {
		t.Errorf("Scan(%q) (-got, +want)\n%s", prefix, diff)
	}
}

// fakeDynamo is an in-memory DynamoDB table keyed on Bucket and Key. Query
// returns one item per page to exercise pagination.
type fakeDynamo struct {
	mu    sync.Mutex
	items map[[2]string]map[string]types.AttributeValue
}

func str(item map[string]types.AttributeValue, name string) string {
	s, _ := item[name].(*types.AttributeValueMemberS)
	if s == nil {
		return ""
	}
	return s.Value
}

func itemID(item map[string]types.AttributeValue) [2]string {
	return [2]string{str(item, attrBucket), str(item, attrKey)}
}

func (f *fakeDynamo) PutItem(_ context.Context, in *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.items == nil {
		f.items = make(map[[2]string]map[string]types.AttributeValue)
	}
	f.items[itemID(in.Item)] = in.Item
	return &dynamodb.PutItemOutput{}, nil
}

func (f *fakeDynamo) GetItem(_ context.Context, in *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return &dynamodb.GetItemOutput{Item: f.items[itemID(in.Key)]}, nil
}

func (f *fakeDynamo) DeleteItem(_ context.Context, in *dynamodb.DeleteItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := itemID(in.Key)
	if _, ok := f.items[id]; !ok {
		return nil, &types.ConditionalCheckFailedException{Message: aws.String("The conditional request failed")}
	}
	delete(f.items, id)
	return &dynamodb.DeleteItemOutput{}, nil
}

func (f *fakeDynamo) Query(_ context.Context, in *dynamodb.QueryInput, _ ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	bucket := str(in.ExpressionAttributeValues, ":b")
	var keys []string
	for id := range f.items {
		if id[0] == bucket {
			keys = append(keys, id[1])
		}
	}
	sort.Strings(keys)
	start := 0
	if in.ExclusiveStartKey != nil {
		after := str(in.ExclusiveStartKey, attrKey)
		start = sort.SearchStrings(keys, after) + 1
	}
	out := &dynamodb.QueryOutput{}
	if start < len(keys) {
		item := f.items[[2]string{bucket, keys[start]}]
		out.Items = []map[string]types.AttributeValue{item}
		if start+1 < len(keys) {
			out.LastEvaluatedKey = item
		}
	}
	return out, nil
}
