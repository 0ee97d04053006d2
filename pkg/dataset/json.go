package dataset

import (
	"encoding/json"
	"io"

	errs "github.com/matzehuels/tapesched/pkg/errors"
)

// ReadJSON decodes a JSON dataset from r. Unknown fields are rejected.
// ReadJSON does not close r.
func ReadJSON(r io.Reader) (*Dataset, error) {
	var doc document
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&doc); err != nil {
		return nil, errs.Wrap(errs.ErrCodeInvalidFormat, err, "decode json dataset")
	}
	return doc.dataset(), nil
}

// WriteJSON encodes ds as indented JSON. The output can be read back with
// [ReadJSON].
func WriteJSON(ds *Dataset, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(ds.document()); err != nil {
		return errs.Wrap(errs.ErrCodeInternal, err, "encode json dataset")
	}
	return nil
}
