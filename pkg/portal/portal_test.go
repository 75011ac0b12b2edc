package portal

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"golang.org/x/text/encoding/charmap"

	"github.com/richiMarchi/netlab/pkg/codes"
)

const codesPage = `<html><head><title>vlab</title></head><body>
<h1>Δικτυακός   προγραμματισμός : Java network socket programming (8ο εξάμηνο)</h1>
<table>
<tr><td>Client public address:</td><td> 94.66.1.2 </td></tr>
<tr><td>Client listening port:</td><td>48012</td></tr>
<tr><td>Server listening port:</td><td>38012</td></tr>
<tr><td>Echo request code:</td><td>E5432</td></tr>
<tr><td>Image request code:</td><td>M8120</td></tr>
<tr><td>Sound request code:</td><td>A0456 (sound)</td></tr>
</table>
<p>Valid until: 12:30</p>
</body></html>`

func isoBytes(t *testing.T, s string) string {
	t.Helper()
	out, err := charmap.ISO8859_7.NewEncoder().String(s)
	if err != nil {
		t.Fatalf("encode %q: %v", s, err)
	}
	return out
}

func portalServer(t *testing.T, creds Credentials) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/start", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method", http.StatusMethodNotAllowed)
			return
		}
		if err := r.ParseForm(); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if r.PostForm.Get("fi") != isoBytes(t, creds.FirstName) ||
			r.PostForm.Get("fa") != isoBytes(t, creds.LastName) ||
			r.PostForm.Get("am") != creds.ID || r.PostForm.Get("x") != "1" {
			http.Error(w, "bad credentials", http.StatusForbidden)
			return
		}
		w.Write([]byte(`<a href="vlabProject.php?session=90210&x=2">continue</a>`))
	})
	mux.HandleFunc("/project", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("session") != "90210" || q.Get("x") != "2" ||
			q.Get("fi") != isoBytes(t, creds.FirstName) ||
			q.Get("fa") != isoBytes(t, creds.LastName) || q.Get("am") != creds.ID {
			http.Error(w, "bad session", http.StatusForbidden)
			return
		}
		if strings.Contains(r.URL.RawQuery, "+") {
			http.Error(w, "spaces must be %20", http.StatusBadRequest)
			return
		}
		w.Write([]byte(isoBytes(t, codesPage)))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestExtract(t *testing.T) {
	t.Parallel()

	creds := Credentials{FirstName: "Νίκος Άγγελος", LastName: "Παπαδόπουλος-Γεωργίου", ID: "1234"}
	srv := portalServer(t, creds)

	e := New(creds)
	e.LoginURL = srv.URL + "/start"
	e.CodesURL = srv.URL + "/project"
	got, err := e.Extract(context.Background())
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	want, _ := codes.FromFields([]string{"94.66.1.2", "48012", "38012", "E5432", "M8120", "A0456"})
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("codes mismatch (-want +got):\n%s", diff)
	}
	if !got.ClientListeningPort.IsInt() || got.EchoRequestCode.IsInt() {
		t.Fatalf("unexpected coercion: %+v", got.Map())
	}
}

func TestExtractWithoutSession(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<p>login failed</p>"))
	}))
	defer srv.Close()

	e := New(Credentials{FirstName: "a", LastName: "b", ID: "1"})
	e.LoginURL = srv.URL
	e.CodesURL = srv.URL
	if _, err := e.Extract(context.Background()); !errors.Is(err, ErrNoSession) {
		t.Fatalf("err=%v want ErrNoSession", err)
	}
}

func TestExtractHTTPError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	e := New(Credentials{FirstName: "a", LastName: "b", ID: "1"})
	e.LoginURL = srv.URL
	if _, err := e.Extract(context.Background()); err == nil {
		t.Fatal("expected error on 503")
	}
}

func TestSessionID(t *testing.T) {
	t.Parallel()

	id, err := SessionID("foo session=77 bar session=88")
	if err != nil || id != "77" {
		t.Fatalf("SessionID=%q,%v", id, err)
	}
	if _, err := SessionID("session=abc"); !errors.Is(err, ErrNoSession) {
		t.Fatalf("err=%v", err)
	}
}

func TestPageTextAndFields(t *testing.T) {
	t.Parallel()

	text, err := PageText(strings.NewReader("<div>a\n\t b:<b> c  d</b>:e</div>"))
	if err != nil {
		t.Fatal(err)
	}
	if text != "a b: c d:e" {
		t.Fatalf("text=%q", text)
	}

	if _, err := Fields("only:two:segments"); !errors.Is(err, ErrShortPage) {
		t.Fatalf("err=%v", err)
	}
	if _, err := Fields("a:b:c:  :e:f:g:h"); !errors.Is(err, ErrShortPage) {
		t.Fatalf("empty segment err=%v", err)
	}
	fields, err := Fields("x:y: 1 one: 2 two:3:4:5:6 six:z")
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"1", "2", "3", "4", "5", "6"}, fields); diff != "" {
		t.Fatalf("fields (-want +got):\n%s", diff)
	}
}
