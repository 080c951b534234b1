// Package jsonpatch applies RFC 7396 merge patches and RFC 6902 operation
// patches to JSON documents stored in the mock tree.
package jsonpatch

import (
	"encoding/json"
	"errors"
	"fmt"

	jp "github.com/evanphx/json-patch/v5"
)

// ErrMalformed reports a patch document that cannot be decoded or applied
// (bad JSON, missing path on remove/replace). Callers map it to a 400 with
// this exact message.
var ErrMalformed = errors.New("PATCH body request malformed")

// UnsupportedOpError reports a JSON-Patch operation outside the supported
// set {add, remove, replace, move, copy}.
type UnsupportedOpError struct {
	Op string
}

func (e *UnsupportedOpError) Error() string {
	return "PATCH operation not supported: " + e.Op
}

var allowedOps = map[string]struct{}{
	"add":     {},
	"remove":  {},
	"replace": {},
	"move":    {},
	"copy":    {},
}

// Merge applies an RFC 7396 merge patch: null deletes a key, nested objects
// recurse, scalars and arrays replace.
func Merge(doc, patch []byte) ([]byte, error) {
	out, err := jp.MergePatch(doc, patch)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return out, nil
}

// Operations applies an RFC 6902 patch: the operations are validated first,
// then applied in order. The input document is never modified.
func Operations(doc, patch []byte) ([]byte, error) {
	if err := validateOps(patch); err != nil {
		return nil, err
	}

	decoded, err := jp.DecodePatch(patch)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	out, err := decoded.Apply(doc)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return out, nil
}

// validateOps rejects the patch before application when any operation is
// outside the supported set, so a later op cannot partially apply first.
func validateOps(patch []byte) error {
	var ops []struct {
		Op string `json:"op"`
	}
	if err := json.Unmarshal(patch, &ops); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	for _, op := range ops {
		if _, ok := allowedOps[op.Op]; !ok {
			return &UnsupportedOpError{Op: op.Op}
		}
	}
	return nil
}
