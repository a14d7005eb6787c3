package server_test

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/hazyhaar/lanshare/dbopen"
	"github.com/hazyhaar/lanshare/item"
	"github.com/hazyhaar/lanshare/server"
	"github.com/hazyhaar/lanshare/store"

	_ "modernc.org/sqlite"
)

func newServer(t *testing.T, opts ...server.Option) *httptest.Server {
	t.Helper()
	db := dbopen.OpenMemory(t)
	st, err := store.New(db, filepath.Join(t.TempDir(), "uploads"))
	if err != nil {
		t.Fatalf("store.New: %v", err)
	}
	r := chi.NewRouter()
	server.New(st, opts...).RegisterHTTP(r)
	ts := httptest.NewServer(r)
	t.Cleanup(ts.Close)
	return ts
}

func postSnippet(t *testing.T, ts *httptest.Server, content string) item.Item {
	t.Helper()
	body, _ := json.Marshal(map[string]string{"content": content})
	resp, err := http.Post(ts.URL+"/snippets", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("POST /snippets: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("POST /snippets status = %d", resp.StatusCode)
	}
	var it item.Item
	if err := json.NewDecoder(resp.Body).Decode(&it); err != nil {
		t.Fatalf("decode snippet response: %v", err)
	}
	return it
}

func postFile(t *testing.T, ts *httptest.Server, name, contentType, payload string) (*http.Response, item.Item) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	hdr := make(textproto.MIMEHeader)
	hdr.Set("Content-Disposition", `form-data; name="file"; filename="`+name+`"`)
	if contentType != "" {
		hdr.Set("Content-Type", contentType)
	}
	part, err := mw.CreatePart(hdr)
	if err != nil {
		t.Fatalf("create part: %v", err)
	}
	io.WriteString(part, payload)
	mw.Close()

	resp, err := http.Post(ts.URL+"/files", mw.FormDataContentType(), &buf)
	if err != nil {
		t.Fatalf("POST /files: %v", err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	var it item.Item
	if resp.StatusCode == http.StatusCreated {
		if err := json.NewDecoder(resp.Body).Decode(&it); err != nil {
			t.Fatalf("decode file response: %v", err)
		}
	}
	return resp, it
}

func errorMessage(t *testing.T, resp *http.Response) string {
	t.Helper()
	var body struct {
		Error string `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	return body.Error
}

func TestSnippetLifecycle(t *testing.T) {
	ts := newServer(t)

	created := postSnippet(t, ts, "remember the wifi password is hunter2")
	if created.ID == "" || !created.IsText() {
		t.Fatalf("created = %+v", created)
	}
	if created.Name != "remember the wifi password is hunter2" {
		t.Errorf("Name = %q", created.Name)
	}

	resp, err := http.Get(ts.URL + "/items")
	if err != nil {
		t.Fatalf("GET /items: %v", err)
	}
	defer resp.Body.Close()
	var items []item.Item
	if err := json.NewDecoder(resp.Body).Decode(&items); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(items) != 1 || items[0].ID != created.ID {
		t.Fatalf("items = %+v", items)
	}

	req, _ := http.NewRequest(http.MethodDelete, ts.URL+"/items/"+created.ID, nil)
	dresp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("DELETE: %v", err)
	}
	dresp.Body.Close()
	if dresp.StatusCode != http.StatusNoContent {
		t.Fatalf("DELETE status = %d", dresp.StatusCode)
	}
}

func TestSnippetRejectsEmptyContent(t *testing.T) {
	ts := newServer(t)
	resp, err := http.Post(ts.URL+"/snippets", "application/json",
		strings.NewReader(`{"content": ""}`))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
	if msg := errorMessage(t, resp); msg != "content is required" {
		t.Errorf("error = %q", msg)
	}
}

func TestSnippetRejectsMalformedBody(t *testing.T) {
	ts := newServer(t)
	resp, err := http.Post(ts.URL+"/snippets", "application/json",
		strings.NewReader(`{not json`))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}

func TestFileUploadAndDownload(t *testing.T) {
	ts := newServer(t)

	resp, it := postFile(t, ts, "report.txt", "text/plain", "quarterly numbers")
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("upload status = %d", resp.StatusCode)
	}
	if !it.IsFile() || it.FileName != "report.txt" || it.Size != int64(len("quarterly numbers")) {
		t.Fatalf("item = %+v", it)
	}

	dl, err := http.Get(ts.URL + "/files/" + it.ID + "/download")
	if err != nil {
		t.Fatalf("download: %v", err)
	}
	defer dl.Body.Close()
	if dl.StatusCode != http.StatusOK {
		t.Fatalf("download status = %d", dl.StatusCode)
	}
	if cd := dl.Header.Get("Content-Disposition"); !strings.Contains(cd, "report.txt") {
		t.Errorf("Content-Disposition = %q", cd)
	}
	data, _ := io.ReadAll(dl.Body)
	if string(data) != "quarterly numbers" {
		t.Errorf("payload = %q", data)
	}
}

func TestFileUploadMissingField(t *testing.T) {
	ts := newServer(t)
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, _ := mw.CreateFormField("other")
	io.WriteString(fw, "nope")
	mw.Close()

	resp, err := http.Post(ts.URL+"/files", mw.FormDataContentType(), &buf)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}

func TestFileUploadTooLarge(t *testing.T) {
	ts := newServer(t, server.WithMaxFileBytes(512))
	resp, _ := postFile(t, ts, "big.bin", "application/octet-stream",
		strings.Repeat("x", 4096))
	if resp.StatusCode != http.StatusRequestEntityTooLarge {
		t.Fatalf("status = %d, want 413", resp.StatusCode)
	}
}

func TestDownloadOfSnippetIs404(t *testing.T) {
	ts := newServer(t)
	it := postSnippet(t, ts, "not downloadable")

	resp, err := http.Get(ts.URL + "/files/" + it.ID + "/download")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", resp.StatusCode)
	}
}

func TestDeleteMissingItem(t *testing.T) {
	ts := newServer(t)
	req, _ := http.NewRequest(http.MethodDelete, ts.URL+"/items/itm_nope", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", resp.StatusCode)
	}
	if msg := errorMessage(t, resp); msg != "item not found" {
		t.Errorf("error = %q", msg)
	}
}

func TestListOrderAndWireShape(t *testing.T) {
	ts := newServer(t)
	postSnippet(t, ts, "older")
	_, up := postFile(t, ts, "newer.bin", "", "abc")

	resp, err := http.Get(ts.URL + "/items")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	raw, _ := io.ReadAll(resp.Body)

	var generic []map[string]any
	if err := json.Unmarshal(raw, &generic); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(generic) != 2 {
		t.Fatalf("len = %d", len(generic))
	}
	if generic[0]["id"] != up.ID {
		t.Errorf("first item = %v, want newest %s", generic[0]["id"], up.ID)
	}
	// size travels as a JSON string
	if sz, ok := generic[0]["size"].(string); !ok || sz != "3" {
		t.Errorf("size = %#v, want \"3\"", generic[0]["size"])
	}
	// text rows carry no file fields
	for _, k := range []string{"fileName", "contentType", "size"} {
		if _, present := generic[1][k]; present {
			t.Errorf("text item leaked %q", k)
		}
	}
}

func TestGetItem(t *testing.T) {
	ts := newServer(t)
	it := postSnippet(t, ts, "fetch me")

	resp, err := http.Get(ts.URL + "/items/" + it.ID)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var got item.Item
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatal(err)
	}
	if got.Content != "fetch me" {
		t.Errorf("Content = %q", got.Content)
	}

	missing, err := http.Get(ts.URL + "/items/itm_missing")
	if err != nil {
		t.Fatal(err)
	}
	defer missing.Body.Close()
	if missing.StatusCode != http.StatusNotFound {
		t.Errorf("missing status = %d", missing.StatusCode)
	}
}
