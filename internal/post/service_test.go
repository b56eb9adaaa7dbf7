package post

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/postly/service/internal/media"
)

// memStore is an in-memory Store used by service and handler tests.
type memStore struct {
	posts     map[string]Post
	order     []string
	createErr error
}

func newMemStore() *memStore {
	return &memStore{posts: map[string]Post{}}
}

func (m *memStore) Create(ctx context.Context, title, description string, imageURL *string) (*Post, error) {
	if m.createErr != nil {
		return nil, m.createErr
	}
	now := time.Now().UTC()
	p := Post{
		ID:          uuid.NewString(),
		Title:       title,
		Description: description,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if imageURL != nil {
		v := *imageURL
		p.Image = &v
	}
	m.posts[p.ID] = p
	m.order = append(m.order, p.ID)
	return &p, nil
}

func (m *memStore) GetAll(ctx context.Context) ([]Post, error) {
	out := []Post{}
	for _, id := range m.order {
		if p, ok := m.posts[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *memStore) GetByID(ctx context.Context, id string) (*Post, error) {
	p, ok := m.posts[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &p, nil
}

func (m *memStore) Update(ctx context.Context, id string, fields UpdateFields) (*Post, error) {
	p, ok := m.posts[id]
	if !ok {
		return nil, ErrNotFound
	}
	p.Title = fields.Title
	p.Description = fields.Description
	if fields.ImageURL != nil {
		v := *fields.ImageURL
		p.Image = &v
	}
	p.UpdatedAt = time.Now().UTC()
	m.posts[id] = p
	return &p, nil
}

func (m *memStore) Delete(ctx context.Context, id string) error {
	delete(m.posts, id)
	return nil
}

// fakeStorage is an in-memory storage.Storage so tests exercise the real
// media.ObjectUploader allow-list and key generation.
type fakeStorage struct {
	objects map[string][]byte
	removed []string
	putErr  error
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{objects: map[string][]byte{}}
}

func (f *fakeStorage) Put(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error {
	if f.putErr != nil {
		return f.putErr
	}
	b, err := io.ReadAll(reader)
	if err != nil {
		return err
	}
	f.objects[key] = b
	return nil
}

func (f *fakeStorage) Remove(ctx context.Context, key string) error {
	delete(f.objects, key)
	f.removed = append(f.removed, key)
	return nil
}

func (f *fakeStorage) URL(key string) string {
	return "http://cdn.test/" + key
}

func newTestService() (*Service, *memStore, *fakeStorage) {
	store := newMemStore()
	fs := newFakeStorage()
	svc := NewService(store, media.NewObjectUploader(fs, "post"))
	return svc, store, fs
}

func jpegFile(content string) *FileUpload {
	return &FileUpload{
		Filename:    "photo.jpg",
		ContentType: "image/jpeg",
		Size:        int64(len(content)),
		Reader:      strings.NewReader(content),
	}
}

func TestCreateWithoutFile(t *testing.T) {
	svc, _, fs := newTestService()

	p, err := svc.Create(context.Background(), Input{Title: "A", Description: "B"}, nil)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if p.ID == "" {
		t.Error("expected a generated id")
	}
	if p.Title != "A" || p.Description != "B" {
		t.Errorf("got %q/%q, want A/B", p.Title, p.Description)
	}
	if p.Image != nil {
		t.Errorf("image should be absent, got %q", *p.Image)
	}
	if len(fs.objects) != 0 {
		t.Errorf("no upload should have happened, stored %d objects", len(fs.objects))
	}
}

func TestCreateWithFile(t *testing.T) {
	svc, _, fs := newTestService()

	p, err := svc.Create(context.Background(), Input{Title: "A", Description: "B"}, jpegFile("jpeg-bytes"))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if p.Image == nil {
		t.Fatal("expected image URL on post")
	}
	if !strings.HasPrefix(*p.Image, "http://cdn.test/post/") {
		t.Errorf("image URL %q not under the post folder", *p.Image)
	}
	if len(fs.objects) != 1 {
		t.Fatalf("expected 1 stored object, got %d", len(fs.objects))
	}
}

func TestCreateUnsupportedExtension(t *testing.T) {
	svc, store, fs := newTestService()

	file := &FileUpload{Filename: "anim.gif", Size: 3, Reader: strings.NewReader("gif")}
	_, err := svc.Create(context.Background(), Input{Title: "A", Description: "B"}, file)
	if !errors.Is(err, media.ErrUnsupportedMediaType) {
		t.Fatalf("got %v, want ErrUnsupportedMediaType", err)
	}
	if len(store.posts) != 0 {
		t.Error("no post record should exist after a refused upload")
	}
	if len(fs.objects) != 0 {
		t.Error("no object should have been stored")
	}
}

func TestCreateInvalidInputBeforeUpload(t *testing.T) {
	svc, store, fs := newTestService()

	for _, in := range []Input{
		{Title: "", Description: "B"},
		{Title: "A", Description: ""},
		{},
	} {
		_, err := svc.Create(context.Background(), in, jpegFile("jpeg-bytes"))
		if !errors.Is(err, ErrInvalidInput) {
			t.Fatalf("input %+v: got %v, want ErrInvalidInput", in, err)
		}
	}
	if len(fs.objects) != 0 || len(fs.removed) != 0 {
		t.Error("validation must fail before any upload is attempted")
	}
	if len(store.posts) != 0 {
		t.Error("no post record should exist")
	}
}

func TestCreateStoreFailureRemovesOrphan(t *testing.T) {
	svc, store, fs := newTestService()
	store.createErr = fmt.Errorf("connection reset")

	_, err := svc.Create(context.Background(), Input{Title: "A", Description: "B"}, jpegFile("jpeg-bytes"))
	if err == nil {
		t.Fatal("expected store error")
	}
	if len(fs.removed) != 1 {
		t.Fatalf("expected the orphaned upload to be removed, removed=%v", fs.removed)
	}
	if len(fs.objects) != 0 {
		t.Error("orphaned object still present")
	}
}

func TestGetByIDAfterCreate(t *testing.T) {
	svc, _, _ := newTestService()

	created, err := svc.Create(context.Background(), Input{Title: "A", Description: "B"}, nil)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	got, err := svc.GetByID(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.ID != created.ID || got.Title != created.Title || got.Description != created.Description {
		t.Errorf("GetByID returned %+v, want %+v", got, created)
	}
}

func TestUpdateWithoutFileKeepsImage(t *testing.T) {
	svc, _, _ := newTestService()

	created, err := svc.Create(context.Background(), Input{Title: "A", Description: "B"}, jpegFile("jpeg-bytes"))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	oldURL := *created.Image

	updated, err := svc.Update(context.Background(), created.ID, Input{Title: "A2", Description: "B2"}, nil)
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.Title != "A2" || updated.Description != "B2" {
		t.Errorf("fields not replaced: %+v", updated)
	}
	if updated.Image == nil || *updated.Image != oldURL {
		t.Errorf("image changed on file-less update: got %v, want %q", updated.Image, oldURL)
	}
}

func TestUpdateWithFileReplacesImage(t *testing.T) {
	svc, _, _ := newTestService()

	created, err := svc.Create(context.Background(), Input{Title: "A", Description: "B"}, jpegFile("old"))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	oldURL := *created.Image

	updated, err := svc.Update(context.Background(), created.ID, Input{Title: "A", Description: "B"}, jpegFile("new"))
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.Image == nil || *updated.Image == oldURL {
		t.Errorf("image not replaced: got %v, old %q", updated.Image, oldURL)
	}
}

func TestUpdateUnknownID(t *testing.T) {
	svc, _, fs := newTestService()

	_, err := svc.Update(context.Background(), uuid.NewString(), Input{Title: "A", Description: "B"}, jpegFile("jpeg-bytes"))
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("got %v, want ErrNotFound", err)
	}
	if len(fs.removed) != 1 {
		t.Error("upload for a nonexistent post should be cleaned up")
	}
}

func TestDeleteIsIdempotent(t *testing.T) {
	svc, _, _ := newTestService()

	created, err := svc.Create(context.Background(), Input{Title: "A", Description: "B"}, nil)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if err := svc.Delete(context.Background(), created.ID); err != nil {
		t.Fatalf("first delete: %v", err)
	}
	if err := svc.Delete(context.Background(), created.ID); err != nil {
		t.Fatalf("second delete: %v", err)
	}

	if _, err := svc.GetByID(context.Background(), created.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("got %v, want ErrNotFound after delete", err)
	}
}

func TestGetAllAfterDelete(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	var ids []string
	for i := 0; i < 5; i++ {
		p, err := svc.Create(ctx, Input{Title: fmt.Sprintf("t%d", i), Description: fmt.Sprintf("d%d", i)}, nil)
		if err != nil {
			t.Fatalf("Create %d: %v", i, err)
		}
		ids = append(ids, p.ID)
	}

	if err := svc.Delete(ctx, ids[2]); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	posts, err := svc.GetAll(ctx)
	if err != nil {
		t.Fatalf("GetAll: %v", err)
	}
	if len(posts) != 4 {
		t.Fatalf("got %d posts, want 4", len(posts))
	}
	for _, p := range posts {
		if p.ID == ids[2] {
			t.Error("deleted post still listed")
		}
	}
}
