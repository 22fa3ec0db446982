package notes

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/nao1215/technotes/internal/querycache"
	"github.com/nao1215/technotes/internal/resource"
	"github.com/nao1215/technotes/pkg/httpclient"
	"github.com/nao1215/technotes/pkg/session"
)

const notesFixture = `[
	{"_id":"n1","user":"u1","username":"dave","title":"Fix printer","text":"jammed","completed":true,"ticket":500},
	{"_id":"n2","user":"u2","username":"kate","title":"Order toner","text":"black","completed":false,"ticket":501},
	{"_id":"n3","user":"u1","username":"dave","title":"Replace fan","text":"noisy","completed":false,"ticket":502}
]`

// fakeAPI はノートAPIを模したテストサーバー。
type fakeAPI struct {
	mu       sync.Mutex
	gets     int
	lastBody map[string]any
	lastVerb string
	// reply は更新系リクエストへの応答ボディ。空なら {"message":"ok"} を返す。
	reply    string
}

func (f *fakeAPI) handler(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	if r.Method == http.MethodGet {
		f.gets++
		_, _ = io.WriteString(w, notesFixture)
		return
	}
	f.lastVerb = r.Method
	f.lastBody = map[string]any{}
	_ = json.NewDecoder(r.Body).Decode(&f.lastBody)
	if f.reply != "" {
		_, _ = io.WriteString(w, f.reply)
		return
	}
	_, _ = io.WriteString(w, `{"message":"ok"}`)
}

func (f *fakeAPI) setReply(body string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reply = body
}

// last は最後に受け取った更新系リクエストを返す。
func (f *fakeAPI) last() (string, map[string]any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastVerb, f.lastBody
}

func newTestAPI(t *testing.T) (*API, *fakeAPI) {
	t.Helper()
	fake := &fakeAPI{}
	srv := httptest.NewServer(http.HandlerFunc(fake.handler))
	t.Cleanup(srv.Close)

	v, err := resource.NewValidator()
	if err != nil {
		t.Fatalf("NewValidator() error = %v", err)
	}
	sess := session.New()
	sess.SetToken("token")
	return New(httpclient.New(srv.URL, sess), querycache.New(), v), fake
}

func TestAPI_GetNotesSortsOpenFirst(t *testing.T) {
	t.Parallel()

	api, _ := newTestAPI(t)
	st, err := api.GetNotes(context.Background(), false)
	if err != nil {
		t.Fatalf("GetNotes() error = %v", err)
	}

	want := []string{"n2", "n3", "n1"}
	got := st.SelectIDs()
	if len(got) != len(want) {
		t.Fatalf("SelectIDs() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("SelectIDs() = %v, want %v", got, want)
		}
	}

	n, ok := api.SelectByID("n1")
	if !ok {
		t.Fatal("SelectByID(n1) not found")
	}
	if n.Username != "dave" || n.Ticket != 500 || !n.Completed {
		t.Errorf("SelectByID(n1) = %+v", n)
	}
	if all := api.SelectAll(); len(all) != 3 || all[0].ID != "n2" {
		t.Errorf("SelectAll() = %+v", all)
	}
}

func TestAPI_MutationsInvalidateList(t *testing.T) {
	t.Parallel()

	api, fake := newTestAPI(t)
	ctx := context.Background()

	if _, err := api.GetNotes(ctx, false); err != nil {
		t.Fatalf("GetNotes() error = %v", err)
	}

	if _, err := api.AddNewNote(ctx, NewNote{User: "u1", Title: "t", Text: "x"}); err != nil {
		t.Fatalf("AddNewNote() error = %v", err)
	}
	if verb, body := fake.last(); verb != http.MethodPost || body["title"] != "t" {
		t.Errorf("POST body = %v", body)
	}
	if _, err := api.GetNotes(ctx, false); err != nil {
		t.Fatalf("GetNotes() error = %v", err)
	}

	if _, err := api.UpdateNote(ctx, UpdateNote{ID: "n3", User: "u1", Title: "t", Text: "x", Completed: true}); err != nil {
		t.Fatalf("UpdateNote() error = %v", err)
	}
	if verb, body := fake.last(); verb != http.MethodPatch || body["completed"] != true {
		t.Errorf("PATCH body = %v", body)
	}
	if _, err := api.GetNotes(ctx, false); err != nil {
		t.Fatalf("GetNotes() error = %v", err)
	}

	if _, err := api.DeleteNote(ctx, "n2"); err != nil {
		t.Fatalf("DeleteNote() error = %v", err)
	}
	if verb, body := fake.last(); verb != http.MethodDelete || body["id"] != "n2" {
		t.Errorf("DELETE body = %v", body)
	}
	if _, err := api.GetNotes(ctx, false); err != nil {
		t.Fatalf("GetNotes() error = %v", err)
	}

	fake.mu.Lock()
	defer fake.mu.Unlock()
	if fake.gets != 4 {
		t.Errorf("GETリクエスト数 = %d, want 4", fake.gets)
	}
}

func TestAPI_MutationsAcceptStringReply(t *testing.T) {
	t.Parallel()

	t.Run("更新はJSON文字列の応答をメッセージとして返すこと", func(t *testing.T) {
		t.Parallel()

		api, fake := newTestAPI(t)
		fake.setReply(`"Fix printer updated"`)

		msg, err := api.UpdateNote(context.Background(), UpdateNote{ID: "n1", User: "u1", Title: "Fix printer", Text: "jammed", Completed: true})
		if err != nil {
			t.Fatalf("UpdateNote() error = %v", err)
		}
		if msg.Message != "Fix printer updated" {
			t.Errorf("Message = %q, want %q", msg.Message, "Fix printer updated")
		}
	})

	t.Run("削除はJSON文字列の応答をメッセージとして返すこと", func(t *testing.T) {
		t.Parallel()

		api, fake := newTestAPI(t)
		fake.setReply(`"Note 'Fix printer' with ID n1 deleted"`)

		msg, err := api.DeleteNote(context.Background(), "n1")
		if err != nil {
			t.Fatalf("DeleteNote() error = %v", err)
		}
		if msg.Message != "Note 'Fix printer' with ID n1 deleted" {
			t.Errorf("Message = %q", msg.Message)
		}
		if verb, body := fake.last(); verb != http.MethodDelete || body["id"] != "n1" {
			t.Errorf("DELETE body = %v", body)
		}
	})
}

func TestAPI_ValidatesInput(t *testing.T) {
	t.Parallel()

	api, fake := newTestAPI(t)
	ctx := context.Background()

	if _, err := api.AddNewNote(ctx, NewNote{User: "u1", Title: "t"}); !errors.Is(err, resource.ErrInvalidInput) {
		t.Errorf("AddNewNote() error = %v, want ErrInvalidInput", err)
	}
	if _, err := api.UpdateNote(ctx, UpdateNote{User: "u1", Title: "t", Text: "x"}); !errors.Is(err, resource.ErrInvalidInput) {
		t.Errorf("UpdateNote() error = %v, want ErrInvalidInput", err)
	}
	if _, err := api.DeleteNote(ctx, ""); !errors.Is(err, resource.ErrInvalidInput) {
		t.Errorf("DeleteNote() error = %v, want ErrInvalidInput", err)
	}

	if verb, _ := fake.last(); verb != "" {
		t.Errorf("検証失敗時にリクエストが送信された: %s", verb)
	}
}
