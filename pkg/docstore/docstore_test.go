package docstore

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/matzehuels/stepgrid/pkg/binding"
	"github.com/matzehuels/stepgrid/pkg/document"
	errs "github.com/matzehuels/stepgrid/pkg/errors"
	"github.com/matzehuels/stepgrid/pkg/scene"
	"github.com/matzehuels/stepgrid/pkg/variable"
)

func sampleDoc(t *testing.T) *document.Document {
	t.Helper()
	tx := scene.New().Begin()
	err := tx.Insert(scene.Entity{
		ID:       tx.NewID("shape"),
		Position: binding.Position{Row: binding.Fixed(2), Col: binding.Formula("i")},
		Z:        tx.NewZ(),
		Payload:  scene.NewShape(scene.ShapeCircle),
	})
	if err != nil {
		t.Fatal(err)
	}
	d := document.New()
	d.Snapshots = []variable.Snapshot{{"i": variable.Int(1)}, {"i": variable.Int(2)}}
	d.SetStore(tx.Commit())
	return d
}

// testStore runs the Store contract against s.
func testStore(t *testing.T, s Store) {
	ctx := context.Background()
	d := sampleDoc(t)

	if _, err := s.Get(ctx, d.ID); !errs.Is(err, errs.ErrCodeDocumentNotFound) {
		t.Fatalf("Get before Put: %v", err)
	}
	if err := s.Put(ctx, d); err != nil {
		t.Fatal(err)
	}

	got, err := s.Get(ctx, d.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.ID != d.ID || len(got.Entities) != 1 || got.Timeline().Len() != 2 {
		t.Errorf("Get = %s", got)
	}
	if f := got.Entities[0].Position.Col; f.IsFixed() || f.Text() != "i" {
		t.Errorf("formula binding lost: %v", f)
	}

	list, err := s.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	var found bool
	for _, sum := range list {
		if sum.ID == d.ID {
			found = true
			if sum.Entities != 1 || sum.Steps != 2 || sum.SavedAt.IsZero() {
				t.Errorf("summary = %+v", sum)
			}
		}
	}
	if !found {
		t.Errorf("List missing %s: %+v", d.ID, list)
	}

	if err := s.Delete(ctx, d.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Get(ctx, d.ID); !errs.Is(err, errs.ErrCodeDocumentNotFound) {
		t.Errorf("Get after Delete: %v", err)
	}
	if err := s.Delete(ctx, d.ID); err != nil {
		t.Errorf("second Delete: %v", err)
	}
}

func TestFileStore(t *testing.T) {
	s, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	testStore(t, s)
}

func TestFileStoreListOrder(t *testing.T) {
	ctx := context.Background()
	s, _ := NewFileStore(t.TempDir())

	older, newer := sampleDoc(t), sampleDoc(t)
	if err := s.Put(ctx, older); err != nil {
		t.Fatal(err)
	}
	time.Sleep(10 * time.Millisecond)
	if err := s.Put(ctx, newer); err != nil {
		t.Fatal(err)
	}
	// Unreadable files are skipped.
	if err := os.WriteFile(filepath.Join(s.Path(), "junk.json"), []byte("{"), 0o600); err != nil {
		t.Fatal(err)
	}

	list, err := s.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 2 || list[0].ID != newer.ID || list[1].ID != older.ID {
		t.Errorf("List = %+v", list)
	}
}

func TestInvalidIDs(t *testing.T) {
	ctx := context.Background()
	s, _ := NewFileStore(t.TempDir())
	for _, id := range []string{"", ".", "..", "../escape", `a\b`, "a/b"} {
		t.Run(id, func(t *testing.T) {
			if _, err := s.Get(ctx, id); !errs.Is(err, errs.ErrCodeInvalidInput) {
				t.Errorf("Get(%q) = %v", id, err)
			}
			if err := s.Delete(ctx, id); !errs.Is(err, errs.ErrCodeInvalidInput) {
				t.Errorf("Delete(%q) = %v", id, err)
			}
		})
	}
}

func TestMongoStore(t *testing.T) {
	uri := os.Getenv("STEPGRID_MONGO_URI")
	if uri == "" {
		t.Skip("STEPGRID_MONGO_URI not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	s, err := NewMongoStore(ctx, MongoOptions{URI: uri, Database: "stepgrid_test"})
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	testStore(t, s)
}
