package sample_test

import (
	"errors"
	"testing"

	"github.com/goliatone/go-embedform/internal/sample"
	"github.com/goliatone/go-embedform/pkg/testsupport"
)

func TestStoreSeedIsIdempotent(t *testing.T) {
	store := newStore(t)
	ctx := testsupport.Context()

	first, err := store.Seed(ctx)
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	again, err := store.Seed(ctx)
	if err != nil {
		t.Fatalf("seed again: %v", err)
	}
	if first != again || first.Slug != "field-notes" {
		t.Fatalf("unexpected seeded blog %+v / %+v", first, again)
	}
	posts, err := store.Posts(ctx, first.ID)
	if err != nil || len(posts) != 2 {
		t.Fatalf("expected two seeded posts, got %d (%v)", len(posts), err)
	}
}

func TestStoreUpdatePostKeepsCover(t *testing.T) {
	store := newStore(t)
	ctx := testsupport.Context()
	blog, err := store.Seed(ctx)
	if err != nil {
		t.Fatalf("seed: %v", err)
	}

	post, err := store.CreatePost(ctx, sample.Post{BlogID: blog.ID, Title: "With cover!", Body: "b", CoverName: "c.png", CoverSize: 3})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if post.Slug != "with-cover" {
		t.Fatalf("unexpected slug %q", post.Slug)
	}

	updated, err := store.UpdatePost(ctx, sample.Post{ID: post.ID, Title: "Renamed", Body: "b2"})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.CoverName != "c.png" || updated.Title != "Renamed" || updated.Publish {
		t.Fatalf("unexpected update result %+v", updated)
	}

	if _, err := store.Post(ctx, 999); !errors.Is(err, sample.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := store.CreatePost(ctx, sample.Post{BlogID: 999, Title: "x"}); !errors.Is(err, sample.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for a missing blog, got %v", err)
	}
}
