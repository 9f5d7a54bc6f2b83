package synth

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"

	"github.com/pkg/errors"
	"github.com/stackgraph/stackgraph/envmap"
	"github.com/stackgraph/stackgraph/graph"
	"gopkg.in/yaml.v3"
)

// A Document is the output of synthesis.
type Document struct {
	Stack string `json:"stack"`

	// Resources are in creation-safe order.
	Resources []Resource `json:"resources"`

	// Edges is the edge set the order was derived from.
	Edges []graph.Edge `json:"edges"`

	// Config is the configuration snapshot, in insertion order.
	Config []envmap.Pair `json:"config"`

	// Digest is the hex encoded SHA-256 of the document without the digest.
	Digest string `json:"digest,omitempty"`
}

// A Resource is a single node in the output document.
type Resource struct {
	Name string     `json:"name"`
	Kind graph.Kind `json:"kind"`
	Unit string     `json:"unit,omitempty"`

	// Attributes holds the evaluated attributes, JSON encoded.
	Attributes map[string]json.RawMessage `json:"attributes,omitempty"`

	// DependsOn lists the nodes that must exist before this one.
	DependsOn []string `json:"depends_on,omitempty"`

	// ReadyAfter lists the nodes that must be ready before this one.
	ReadyAfter []string `json:"ready_after,omitempty"`

	Gate *graph.Gate `json:"gate,omitempty"`

	// WaitFor lists the gates in ReadyAfter that were not ready at synthesis
	// time. It is only set when gates are deferred.
	WaitFor []string `json:"wait_for,omitempty"`
}

// Order returns the resource names in document order.
func (d *Document) Order() []string {
	out := make([]string, len(d.Resources))
	for i, r := range d.Resources {
		out[i] = r.Name
	}
	return out
}

// Resource returns a resource by name.
func (d *Document) Resource(name string) (Resource, bool) {
	for _, r := range d.Resources {
		if r.Name == name {
			return r, true
		}
	}
	return Resource{}, false
}

// ComputeDigest computes the digest of the document. The current digest is
// ignored.
func (d *Document) ComputeDigest() (string, error) {
	cp := *d
	cp.Digest = ""
	b, err := json.Marshal(cp)
	if err != nil {
		return "", errors.Wrap(err, "marshal")
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:]), nil
}

// Verify checks that the digest matches the contents.
func (d *Document) Verify() error {
	sum, err := d.ComputeDigest()
	if err != nil {
		return err
	}
	if sum != d.Digest {
		return errors.Errorf("digest mismatch: document has %q, contents hash to %q", d.Digest, sum)
	}
	return nil
}

// EncodeJSON writes the document as indented JSON.
func (d *Document) EncodeJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return errors.Wrap(enc.Encode(d), "encode json")
}

// EncodeYAML writes the document as YAML. Fields appear in the same order as
// in the JSON encoding.
func (d *Document) EncodeYAML(w io.Writer) error {
	b, err := json.Marshal(d)
	if err != nil {
		return errors.Wrap(err, "marshal")
	}
	// JSON is valid YAML; decoding into a node keeps the field order.
	var root yaml.Node
	if err := yaml.Unmarshal(b, &root); err != nil {
		return errors.Wrap(err, "convert to yaml")
	}
	blockStyle(&root)
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(&root); err != nil {
		return errors.Wrap(err, "encode yaml")
	}
	return errors.Wrap(enc.Close(), "encode yaml")
}

// blockStyle clears the flow and quoting styles that come from JSON input.
// The encoder still quotes scalars that would otherwise change type.
func blockStyle(n *yaml.Node) {
	n.Style = 0
	for _, c := range n.Content {
		blockStyle(c)
	}
}

// Decode reads a JSON encoded document.
func Decode(r io.Reader) (*Document, error) {
	var doc Document
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&doc); err != nil {
		return nil, errors.Wrap(err, "decode document")
	}
	return &doc, nil
}

// DecodeBytes decodes a JSON encoded document from a byte slice.
func DecodeBytes(b []byte) (*Document, error) {
	return Decode(bytes.NewReader(b))
}
