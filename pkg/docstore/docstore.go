// Package docstore persists documents by ID.
//
// Two backends implement [Store]:
//
//   - [FileStore]: one JSON file per document under ~/.config/stepgrid/documents
//   - [MongoStore]: a MongoDB collection, for shared deployments
//
// Both store the exact bytes written by [document.WriteJSON], so a document
// pulled from either backend resolves to the same plans it was pushed with.
package docstore

import (
	"context"
	"path/filepath"
	"strings"
	"time"

	"github.com/matzehuels/stepgrid/pkg/document"
	errs "github.com/matzehuels/stepgrid/pkg/errors"
)

// Store saves and loads documents.
type Store interface {
	// Get loads a document. A missing ID is DOCUMENT_NOT_FOUND.
	Get(ctx context.Context, id string) (*document.Document, error)

	// Put saves d under d.ID, replacing any previous version.
	Put(ctx context.Context, d *document.Document) error

	// Delete removes a document. Deleting a missing ID is not an error.
	Delete(ctx context.Context, id string) error

	// List summarizes every stored document, newest first.
	List(ctx context.Context) ([]Summary, error)

	Close() error
}

// Summary describes a stored document without its contents.
type Summary struct {
	ID       string    `json:"id" bson:"_id"`
	SavedAt  time.Time `json:"savedAt" bson:"saved_at"`
	Entities int       `json:"entities" bson:"entities"`
	Steps    int       `json:"steps" bson:"steps"`
}

func summarize(d *document.Document) Summary {
	return Summary{ID: d.ID, SavedAt: d.SavedAt, Entities: len(d.Entities), Steps: d.Timeline().Len()}
}

// checkID rejects IDs that cannot name a file.
func checkID(id string) error {
	if id == "" || id == "." || id == ".." || filepath.Base(id) != id || strings.ContainsAny(id, `/\`) {
		return errs.New(errs.ErrCodeInvalidInput, "invalid document id %q", id)
	}
	return nil
}

func notFound(id string) error {
	return errs.New(errs.ErrCodeDocumentNotFound, "document %s not found", id)
}
