package cdkemit

import (
	"encoding/json"
	"strings"
	"unicode"

	"github.com/iancoleman/strcase"
	"github.com/pkg/errors"
)

// LogicalID converts a node name to a CloudFormation logical id.
//
//	nmos-test-vpc     NmosTestVpc
//	testingContainer  TestingContainer
func LogicalID(name string) string {
	return strings.Map(func(r rune) rune {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			return r
		}
		return -1
	}, strcase.ToCamel(name))
}

// properties decodes attributes into CloudFormation properties. Attribute
// names and the keys of objects in lists are converted to camel case. Other
// object keys, such as environment variable names, are kept.
func properties(attrs map[string]json.RawMessage) (map[string]interface{}, error) {
	out := make(map[string]interface{}, len(attrs))
	for k, raw := range attrs {
		var v interface{}
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, errors.Wrapf(err, "decode %s", k)
		}
		out[strcase.ToCamel(k)] = camelListObjects(v)
	}
	return out, nil
}

func camelListObjects(v interface{}) interface{} {
	list, ok := v.([]interface{})
	if !ok {
		return v
	}
	out := make([]interface{}, len(list))
	for i, item := range list {
		obj, ok := item.(map[string]interface{})
		if !ok {
			out[i] = item
			continue
		}
		m := make(map[string]interface{}, len(obj))
		for k, v := range obj {
			m[strcase.ToCamel(k)] = camelListObjects(v)
		}
		out[i] = m
	}
	return out
}
