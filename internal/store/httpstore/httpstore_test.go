package httpstore_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	"github.com/idilsaglam/cloudtodo/internal/auth"
	"github.com/idilsaglam/cloudtodo/internal/model"
	"github.com/idilsaglam/cloudtodo/internal/server"
	"github.com/idilsaglam/cloudtodo/internal/store"
	"github.com/idilsaglam/cloudtodo/internal/store/blobfs"
	"github.com/idilsaglam/cloudtodo/internal/store/httpstore"
	"github.com/idilsaglam/cloudtodo/internal/store/sqlstore"
	"github.com/idilsaglam/cloudtodo/internal/todosync"
)

var secret = []byte("e2e-secret")

// backend starts the real server over sqlite and a blob directory.
func backend(t *testing.T) *httpstore.Client {
	t.Helper()
	dir := t.TempDir()
	records, err := sqlstore.Open(filepath.Join(dir, "todos.db"))
	if err != nil {
		t.Fatalf("sqlstore.Open: %v", err)
	}
	t.Cleanup(func() { records.Close() })

	ts := httptest.NewUnstartedServer(nil)
	base := "http://" + ts.Listener.Addr().String()
	blobs, err := blobfs.New(filepath.Join(dir, "blobs"), base+"/storage/v1/object/public/images")
	if err != nil {
		t.Fatalf("blobfs.New: %v", err)
	}
	ts.Config.Handler = server.New(records, blobs, server.Options{Secret: secret, Logger: log.New(io.Discard)}).Handler()
	ts.Start()
	t.Cleanup(ts.Close)

	key, err := auth.GenerateKey(secret, auth.RoleAnon, time.Hour, time.Now())
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	c, err := httpstore.New(httpstore.Options{URL: ts.URL, Key: key, Timeout: 5 * time.Second})
	if err != nil {
		t.Fatalf("httpstore.New: %v", err)
	}
	return c
}

func TestNew_Validation(t *testing.T) {
	if _, err := httpstore.New(httpstore.Options{URL: "not a url", Key: "k"}); err == nil {
		t.Error("New accepted a bad url")
	}
	if _, err := httpstore.New(httpstore.Options{URL: "https://x.test"}); err == nil {
		t.Error("New accepted a missing key")
	}
}

func TestRecords_RoundTrip(t *testing.T) {
	c := backend(t)
	ctx := context.Background()

	td, err := c.Insert(ctx, model.NewTodo{Text: "Buy milk"})
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if err := c.Update(ctx, td.ID, model.Patch{Completed: model.BoolPtr(true)}); err != nil {
		t.Fatalf("Update: %v", err)
	}
	todos, err := c.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(todos) != 1 || !todos[0].Completed || todos[0].Text != "Buy milk" || todos[0].ImageURL != nil {
		t.Errorf("List = %+v", todos)
	}
	if err := c.Delete(ctx, td.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := c.Delete(ctx, td.ID); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("second Delete err = %v, want ErrNotFound", err)
	}
}

func TestBlobs_NoOverwriteAndPublicURL(t *testing.T) {
	c := backend(t)
	ctx := context.Background()
	key := "1700000000000-my cat.png"

	if err := c.Upload(ctx, key, []byte("png"), store.UploadOptions{ContentType: "image/png", CacheControl: "3600"}); err != nil {
		t.Fatalf("Upload: %v", err)
	}
	err := c.Upload(ctx, key, []byte("png2"), store.UploadOptions{})
	if !errors.Is(err, store.ErrExists) {
		t.Errorf("second Upload err = %v, want ErrExists", err)
	}

	resp, err := http.Get(c.PublicURL(key))
	if err != nil {
		t.Fatalf("GET public url: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK || string(body) != "png" {
		t.Errorf("public GET = %d %q", resp.StatusCode, body)
	}

	if err := c.Remove(ctx, key); err != nil {
		t.Fatalf("Remove: %v", err)
	}
}

func TestSynchronizer_EndToEnd(t *testing.T) {
	c := backend(t)
	ctx := context.Background()
	s := todosync.New(c, c, todosync.WithReporter(todosync.ReporterFunc(func(op todosync.Op, err error) {
		t.Errorf("unexpected %s failure: %v", op, err)
	})))

	view := &todosync.ListView{}
	sess := &todosync.Session{}
	sess.SetText("Photo")
	sess.Select(&todosync.File{Name: "cat.png", Data: []byte("png")})
	created := s.Create(ctx, sess)
	created.Apply(view)
	if !created.OK() || !created.Todo.HasImage() {
		t.Fatalf("create = %+v", created)
	}

	key, err := todosync.KeyFromURL(created.Todo.Image())
	if err != nil {
		t.Fatalf("KeyFromURL: %v", err)
	}
	item, _ := view.Get(created.Todo.ID)
	s.Dispatch(ctx, todosync.ToggleItem, item).Apply(view)
	item, _ = view.Get(created.Todo.ID)
	if !item.Completed {
		t.Error("toggle not applied")
	}

	s.Dispatch(ctx, todosync.DeleteItem, item).Apply(view)
	if view.Len() != 0 {
		t.Errorf("view len = %d after delete", view.Len())
	}
	resp, err := http.Get(c.PublicURL(key))
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("blob still served after delete: %d", resp.StatusCode)
	}

	loaded := &todosync.ListView{}
	s.Load(ctx).Apply(loaded)
	if loaded.Len() != 0 {
		t.Errorf("load after delete = %d items", loaded.Len())
	}
}
