package todosync

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/idilsaglam/cloudtodo/internal/model"
	"github.com/idilsaglam/cloudtodo/internal/store"
)

// fakeRecords is an in-memory record store with failure injection.
type fakeRecords struct {
	rows  map[string]model.Todo
	seq   int
	clock time.Time
	calls int

	failList, failInsert, failUpdate, failDelete error

	onInsert func() // runs before each insert
}

func newFakeRecords() *fakeRecords {
	return &fakeRecords{
		rows:  map[string]model.Todo{},
		clock: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	}
}

func (f *fakeRecords) List(ctx context.Context) ([]model.Todo, error) {
	f.calls++
	if f.failList != nil {
		return nil, f.failList
	}
	out := make([]model.Todo, 0, len(f.rows))
	for _, t := range f.rows {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (f *fakeRecords) Insert(ctx context.Context, n model.NewTodo) (model.Todo, error) {
	f.calls++
	if f.onInsert != nil {
		f.onInsert()
	}
	if f.failInsert != nil {
		return model.Todo{}, f.failInsert
	}
	f.seq++
	f.clock = f.clock.Add(time.Second)
	t := model.Todo{ID: fmt.Sprintf("t%d", f.seq), Text: n.Text, ImageURL: n.ImageURL, CreatedAt: f.clock}
	f.rows[t.ID] = t
	return t, nil
}

func (f *fakeRecords) Update(ctx context.Context, id string, p model.Patch) error {
	f.calls++
	if f.failUpdate != nil {
		return f.failUpdate
	}
	t, ok := f.rows[id]
	if !ok {
		return store.ErrNotFound
	}
	if p.Completed != nil {
		t.Completed = *p.Completed
	}
	if p.Text != nil {
		t.Text = *p.Text
	}
	f.rows[id] = t
	return nil
}

func (f *fakeRecords) Delete(ctx context.Context, id string) error {
	f.calls++
	if f.failDelete != nil {
		return f.failDelete
	}
	if _, ok := f.rows[id]; !ok {
		return store.ErrNotFound
	}
	delete(f.rows, id)
	return nil
}

type fakeBlobs struct {
	objects    map[string][]byte
	removed    []string
	calls      int
	failUpload error
	failRemove error
}

func newFakeBlobs() *fakeBlobs { return &fakeBlobs{objects: map[string][]byte{}} }

func (f *fakeBlobs) Upload(ctx context.Context, key string, data []byte, opt store.UploadOptions) error {
	f.calls++
	if f.failUpload != nil {
		return f.failUpload
	}
	if _, ok := f.objects[key]; ok && !opt.Upsert {
		return store.ErrExists
	}
	f.objects[key] = data
	return nil
}

func (f *fakeBlobs) PublicURL(key string) string {
	return "https://cdn.example.test/storage/v1/object/public/images/" + key
}

func (f *fakeBlobs) Remove(ctx context.Context, keys ...string) error {
	f.calls++
	f.removed = append(f.removed, keys...)
	if f.failRemove != nil {
		return f.failRemove
	}
	for _, k := range keys {
		delete(f.objects, k)
	}
	return nil
}

type reported struct {
	op  Op
	err error
}

func setup(t *testing.T) (*Synchronizer, *fakeRecords, *fakeBlobs, *[]reported) {
	t.Helper()
	recs, blobs := newFakeRecords(), newFakeBlobs()
	var got []reported
	s := New(recs, blobs,
		WithReporter(ReporterFunc(func(op Op, err error) { got = append(got, reported{op, err}) })),
		WithClock(func() time.Time { return time.UnixMilli(1700000000000) }),
	)
	return s, recs, blobs, &got
}

func create(t *testing.T, s *Synchronizer, view View, text string, f *File) Change {
	t.Helper()
	sess := &Session{}
	sess.SetText(text)
	sess.Select(f)
	ch := s.Create(context.Background(), sess)
	ch.Apply(view)
	return ch
}

func TestLoad_NewestFirst(t *testing.T) {
	s, _, _, _ := setup(t)
	ctx := context.Background()
	scratch := &ListView{}
	for _, text := range []string{"first", "second", "third"} {
		if ch := create(t, s, scratch, text, nil); !ch.OK() {
			t.Fatalf("create %q failed", text)
		}
	}

	view := &ListView{}
	s.Load(ctx).Apply(view)

	items := view.Items()
	if len(items) != 3 {
		t.Fatalf("len = %d, want 3", len(items))
	}
	for i := 0; i+1 < len(items); i++ {
		if !items[i].CreatedAt.After(items[i+1].CreatedAt) {
			t.Errorf("item %d (%s) not newer than item %d (%s)", i, items[i].Text, i+1, items[i+1].Text)
		}
	}
	if items[0].Text != "third" {
		t.Errorf("head = %q, want third", items[0].Text)
	}
	// Creates prepend, so the scratch view agrees with a fresh load.
	if diff := cmp.Diff(view.Items(), scratch.Items()); diff != "" {
		t.Errorf("created view differs from loaded view (-load +create):\n%s", diff)
	}
}

func TestLoad_FailureLeavesViewAlone(t *testing.T) {
	s, recs, _, rep := setup(t)
	recs.failList = errors.New("connection refused")

	view := &ListView{}
	ch := s.Load(context.Background())
	ch.Apply(view)

	if ch.OK() {
		t.Error("Load reported success")
	}
	if view.Len() != 0 {
		t.Errorf("view has %d items, want 0", view.Len())
	}
	if len(*rep) != 1 || (*rep)[0].op != OpLoad {
		t.Errorf("reports = %v, want one OpLoad", *rep)
	}
}

func TestCreate_RoundTrip(t *testing.T) {
	s, _, blobs, rep := setup(t)
	view := &ListView{}
	if ch := create(t, s, view, "  Buy milk  ", nil); ch.Kind != Prepend {
		t.Fatalf("kind = %v, want prepend", ch.Kind)
	}
	if blobs.calls != 0 {
		t.Errorf("blob calls = %d, want 0", blobs.calls)
	}

	loaded := &ListView{}
	s.Load(context.Background()).Apply(loaded)
	items := loaded.Items()
	if len(items) != 1 {
		t.Fatalf("len = %d, want 1", len(items))
	}
	got := items[0]
	if got.Text != "Buy milk" || got.Completed || got.ImageURL != nil {
		t.Errorf("got %+v, want text=Buy milk completed=false image_url=nil", got)
	}
	if len(*rep) != 0 {
		t.Errorf("unexpected reports: %v", *rep)
	}
}

func TestCreate_WithImage(t *testing.T) {
	s, _, blobs, _ := setup(t)
	view := &ListView{}
	ch := create(t, s, view, "Photo", &File{Name: "cat.png", Data: []byte("png")})
	if !ch.OK() {
		t.Fatal("create failed")
	}

	wantKey := "1700000000000-cat.png"
	if _, ok := blobs.objects[wantKey]; !ok {
		t.Errorf("blob %q not uploaded; have %v", wantKey, blobs.objects)
	}
	if got, want := ch.Todo.Image(), blobs.PublicURL(wantKey); got != want {
		t.Errorf("image_url = %q, want %q", got, want)
	}
}

func TestCreate_UploadFailureDegrades(t *testing.T) {
	s, recs, blobs, rep := setup(t)
	blobs.failUpload = errors.New("bucket is full")

	sess := &Session{}
	sess.SetText("Photo")
	sess.Select(&File{Name: "cat.png", Data: []byte("png")})
	ch := s.Create(context.Background(), sess)

	if ch.Kind != Prepend {
		t.Fatalf("kind = %v, want prepend", ch.Kind)
	}
	if ch.Todo.ImageURL != nil {
		t.Errorf("image_url = %q, want nil", ch.Todo.Image())
	}
	if len(recs.rows) != 1 {
		t.Errorf("rows = %d, want 1", len(recs.rows))
	}
	if len(*rep) != 1 || (*rep)[0].op != OpUpload {
		t.Errorf("reports = %v, want one OpUpload", *rep)
	}
	if sess.Selected() != nil || sess.Text() != "" {
		t.Error("session not cleared after successful create")
	}
}

func TestCreate_InsertFailureKeepsSession(t *testing.T) {
	s, recs, _, rep := setup(t)
	recs.failInsert = errors.New("permission denied")

	f := &File{Name: "cat.png", Data: []byte("png")}
	sess := &Session{}
	sess.SetText("Photo")
	sess.Select(f)

	view := &ListView{}
	ch := s.Create(context.Background(), sess)
	ch.Apply(view)

	if ch.OK() {
		t.Error("create reported success")
	}
	if view.Len() != 0 {
		t.Errorf("view has %d items, want 0", view.Len())
	}
	if sess.Selected() != f || sess.Text() != "Photo" {
		t.Error("session cleared after failed insert")
	}
	if len(*rep) != 1 || (*rep)[0].op != OpInsert {
		t.Errorf("reports = %v, want one OpInsert", *rep)
	}
}

func TestCreate_KeepsFileSelectedDuringInsert(t *testing.T) {
	s, recs, _, _ := setup(t)

	first := &File{Name: "cat.png", Data: []byte("png")}
	second := &File{Name: "dog.png", Data: []byte("png")}
	sess := &Session{}
	sess.SetText("Photo")
	sess.Select(first)
	recs.onInsert = func() { sess.Select(second) }

	ch := s.Create(context.Background(), sess)
	if !ch.OK() || !ch.Todo.HasImage() {
		t.Fatalf("create = %+v, want success with image", ch)
	}
	if sess.Selected() != second {
		t.Error("file selected during the insert was dropped")
	}
	if sess.Text() != "" {
		t.Errorf("text = %q, want cleared", sess.Text())
	}
}

func TestCreate_BlankIsNoop(t *testing.T) {
	for _, text := range []string{"", "   ", "\t\n"} {
		s, recs, blobs, rep := setup(t)
		view := &ListView{}
		view.Prepend(model.Todo{ID: "existing", Text: "keep"})

		ch := create(t, s, view, text, &File{Name: "a.png", Data: []byte("x")})

		if ch.OK() {
			t.Errorf("%q: create reported success", text)
		}
		if recs.calls+blobs.calls != 0 {
			t.Errorf("%q: %d remote calls, want 0", text, recs.calls+blobs.calls)
		}
		if view.Len() != 1 {
			t.Errorf("%q: view changed", text)
		}
		if len(*rep) != 0 {
			t.Errorf("%q: unexpected reports %v", text, *rep)
		}
	}
}

func TestToggle_TwiceRestores(t *testing.T) {
	s, recs, _, _ := setup(t)
	ctx := context.Background()
	view := &ListView{}
	ch := create(t, s, view, "Walk dog", nil)
	id := ch.Todo.ID

	for i, want := range []bool{true, false} {
		item, _ := view.Get(id)
		s.Dispatch(ctx, ToggleItem, item).Apply(view)

		shown, _ := view.Get(id)
		if shown.Completed != want {
			t.Errorf("step %d: visual completed = %v, want %v", i, shown.Completed, want)
		}
		if remote := recs.rows[id].Completed; remote != shown.Completed {
			t.Errorf("step %d: remote %v diverges from visual %v", i, remote, shown.Completed)
		}
	}
}

func TestToggle_FailureLeavesState(t *testing.T) {
	s, recs, _, rep := setup(t)
	ctx := context.Background()
	view := &ListView{}
	id := create(t, s, view, "Walk dog", nil).Todo.ID
	recs.failUpdate = errors.New("timeout")

	before, _ := view.Get(id)
	ch := s.Dispatch(ctx, ToggleItem, before)
	ch.Apply(view)
	after, _ := view.Get(id)

	if ch.OK() {
		t.Error("toggle reported success")
	}
	if after.Completed != before.Completed {
		t.Errorf("completed changed from %v to %v", before.Completed, after.Completed)
	}
	if len(*rep) != 1 || (*rep)[0].op != OpUpdate {
		t.Errorf("reports = %v, want one OpUpdate", *rep)
	}
}

func TestDelete_RemovesRecordAndBlob(t *testing.T) {
	s, recs, blobs, _ := setup(t)
	ctx := context.Background()
	view := &ListView{}
	item := create(t, s, view, "Photo", &File{Name: "cat.png", Data: []byte("png")}).Todo

	s.Dispatch(ctx, DeleteItem, item).Apply(view)

	if view.Len() != 0 {
		t.Errorf("view has %d items, want 0", view.Len())
	}
	if _, ok := recs.rows[item.ID]; ok {
		t.Error("record still present")
	}
	if diff := cmp.Diff([]string{"1700000000000-cat.png"}, blobs.removed); diff != "" {
		t.Errorf("removed keys (-want +got):\n%s", diff)
	}
}

func TestDelete_BlobFailureDoesNotBlock(t *testing.T) {
	s, recs, blobs, rep := setup(t)
	ctx := context.Background()
	view := &ListView{}
	item := create(t, s, view, "Photo", &File{Name: "cat.png", Data: []byte("png")}).Todo
	blobs.failRemove = errors.New("storage down")

	ch := s.Delete(ctx, item.ID, item.Image())
	ch.Apply(view)

	if ch.Kind != Remove {
		t.Fatalf("kind = %v, want remove", ch.Kind)
	}
	if len(blobs.removed) != 1 {
		t.Errorf("remove attempts = %d, want 1", len(blobs.removed))
	}
	if len(recs.rows) != 0 {
		t.Error("record still present")
	}
	loaded := &ListView{}
	s.Load(ctx).Apply(loaded)
	if loaded.Len() != 0 {
		t.Error("deleted record returned by load")
	}
	if len(*rep) != 1 || (*rep)[0].op != OpRemoveBlob {
		t.Errorf("reports = %v, want one OpRemoveBlob", *rep)
	}
}

func TestDelete_RecordFailureKeepsItem(t *testing.T) {
	s, recs, _, rep := setup(t)
	view := &ListView{}
	item := create(t, s, view, "Walk dog", nil).Todo
	recs.failDelete = errors.New("conflict")

	s.Dispatch(context.Background(), DeleteItem, item).Apply(view)

	if _, ok := view.Get(item.ID); !ok {
		t.Error("item removed after failed delete")
	}
	if len(*rep) != 1 || (*rep)[0].op != OpDelete {
		t.Errorf("reports = %v, want one OpDelete", *rep)
	}
}

func TestKeyFromURL(t *testing.T) {
	tests := []struct {
		url     string
		want    string
		wantErr bool
	}{
		{"https://x.test/storage/v1/object/public/images/17-cat.png", "17-cat.png", false},
		{"https://x.test/storage/v1/object/public/images/17-my%20cat.png", "17-my cat.png", false},
		{"file:///var/lib/todo/blobs/17-cat.png", "17-cat.png", false},
		{"https://x.test/", "", true},
		{"://bad", "", true},
	}
	for _, tt := range tests {
		got, err := KeyFromURL(tt.url)
		if (err != nil) != tt.wantErr {
			t.Errorf("KeyFromURL(%q) err = %v, wantErr %v", tt.url, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("KeyFromURL(%q) = %q, want %q", tt.url, got, tt.want)
		}
	}
}

func TestBlobKey(t *testing.T) {
	got := BlobKey(time.UnixMilli(42), "/home/me/Pictures/cat.png")
	if got != "42-cat.png" {
		t.Errorf("BlobKey = %q, want 42-cat.png", got)
	}
}
