package dataset

import (
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/matzehuels/tapesched/pkg/cache"
	errs "github.com/matzehuels/tapesched/pkg/errors"
	"github.com/matzehuels/tapesched/pkg/tape"
)

// Format identifies a dataset encoding.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatTOML Format = "toml"
)

// FormatFromPath picks the format for path by its extension.
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON
	case ".toml":
		return FormatTOML
	default:
		return FormatText
	}
}

// Dataset is one scheduling input.
type Dataset struct {
	Name  string
	Head  tape.HeadPosition
	Batch tape.Batch
}

// document is the JSON and TOML shape of a dataset.
type document struct {
	Name     string            `json:"name,omitempty" toml:"name,omitempty"`
	Head     tape.HeadPosition `json:"head" toml:"head"`
	Count    *int              `json:"count,omitempty" toml:"count,omitempty"`
	Requests []tape.Request    `json:"requests" toml:"requests"`
}

func (d document) dataset() *Dataset {
	count := len(d.Requests)
	if d.Count != nil {
		count = *d.Count
	}
	return &Dataset{
		Name:  d.Name,
		Head:  d.Head,
		Batch: tape.Batch{Count: count, Requests: d.Requests},
	}
}

func (ds *Dataset) document() document {
	count := ds.Batch.Count
	reqs := ds.Batch.Requests
	if reqs == nil {
		reqs = []tape.Request{}
	}
	return document{Name: ds.Name, Head: ds.Head, Count: &count, Requests: reqs}
}

// Hash returns a content hash of the head and batch. The name is not part
// of the hash, so renamed copies of one case share cache entries.
func (ds *Dataset) Hash() string {
	doc := ds.document()
	doc.Name = ""
	data, _ := json.Marshal(doc)
	return cache.Hash(data)
}

// Read decodes a dataset in the given format from r.
func Read(r io.Reader, format Format) (*Dataset, error) {
	switch format {
	case FormatJSON:
		return ReadJSON(r)
	case FormatTOML:
		return ReadTOML(r)
	case FormatText, "":
		return ReadText(r)
	default:
		return nil, errs.New(errs.ErrCodeUnsupported, "unsupported dataset format %q", format)
	}
}

// Load reads the dataset at path, choosing the format from its extension.
// When the file does not name the dataset, the base file name without
// extension is used.
func Load(path string) (*Dataset, error) {
	if err := errs.ValidatePath(path); err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil, errs.Wrap(errs.ErrCodeFileNotFound, err, "dataset %s", path)
	}
	if err != nil {
		return nil, errs.Wrap(errs.ErrCodeInvalidPath, err, "open %s", path)
	}
	defer f.Close()

	ds, err := Read(f, FormatFromPath(path))
	if err != nil {
		return nil, err
	}
	if ds.Name == "" {
		ds.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return ds, nil
}

// Save writes ds to path in the format chosen by its extension.
func Save(ds *Dataset, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return errs.Wrap(errs.ErrCodeInvalidPath, err, "create %s", path)
	}
	defer f.Close()

	switch FormatFromPath(path) {
	case FormatJSON:
		return WriteJSON(ds, f)
	case FormatTOML:
		return WriteTOML(ds, f)
	default:
		return WriteText(ds, f)
	}
}
