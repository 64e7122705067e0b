package document

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	errs "github.com/matzehuels/stepgrid/pkg/errors"
)

// WriteJSON stamps SavedAt and encodes d to w.
func WriteJSON(d *Document, w io.Writer) error {
	d.normalize()
	d.SavedAt = time.Now().UTC()

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(d); err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	return nil
}

// Export writes d to a JSON file at path.
func Export(d *Document, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()
	return WriteJSON(d, f)
}

// ReadJSON decodes and validates a document from r. Documents without a
// version are read as version 1. The entities are checked by rebuilding
// the store.
func ReadJSON(r io.Reader) (*Document, error) {
	var d Document
	if err := json.NewDecoder(r).Decode(&d); err != nil {
		return nil, errs.Wrap(errs.ErrCodeInvalidDocument, err, "decode")
	}
	if err := d.Validate(); err != nil {
		return nil, err
	}
	d.normalize()
	if _, err := d.Store(); err != nil {
		return nil, err
	}
	return &d, nil
}

// Import reads a document from the JSON file at path.
func Import(path string) (*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errs.Wrap(errs.ErrCodeDocumentNotFound, err, "open %s", path)
		}
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return ReadJSON(f)
}
