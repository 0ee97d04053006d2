package dataset

import (
	"io"

	"github.com/BurntSushi/toml"

	errs "github.com/matzehuels/tapesched/pkg/errors"
)

// ReadTOML decodes a TOML dataset from r. Keys that do not belong to the
// dataset shape are rejected.
func ReadTOML(r io.Reader) (*Dataset, error) {
	var doc document
	md, err := toml.NewDecoder(r).Decode(&doc)
	if err != nil {
		return nil, errs.Wrap(errs.ErrCodeInvalidFormat, err, "decode toml dataset")
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, errs.New(errs.ErrCodeInvalidFormat, "unknown key %q in toml dataset", undecoded[0].String())
	}
	return doc.dataset(), nil
}

// WriteTOML encodes ds as TOML.
func WriteTOML(ds *Dataset, w io.Writer) error {
	if err := toml.NewEncoder(w).Encode(ds.document()); err != nil {
		return errs.Wrap(errs.ErrCodeInternal, err, "encode toml dataset")
	}
	return nil
}
