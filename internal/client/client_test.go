package client

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestMonitor_SendsURLPayloadAndReturnsBody(t *testing.T) {
	var gotBody, gotCT, gotKey string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/monitor" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
		gotCT = r.Header.Get("Content-Type")
		gotKey = r.Header.Get("X-API-Key")
		w.WriteHeader(http.StatusOK)
		io.WriteString(w, `{"status":"ok","count":3}`)
	}))
	defer ts.Close()

	c := New(ts.URL+"/", "pub_key", time.Second)
	body, err := c.Monitor(context.Background(), "https://example.com")
	if err != nil {
		t.Fatalf("Monitor: %v", err)
	}
	if gotBody != `{"url":"https://example.com"}` {
		t.Fatalf("request body = %q", gotBody)
	}
	if gotCT != "application/json" {
		t.Fatalf("content type = %q", gotCT)
	}
	if gotKey != "pub_key" {
		t.Fatalf("api key header = %q", gotKey)
	}
	if string(body) != `{"status":"ok","count":3}` {
		t.Fatalf("response body = %q", body)
	}
}

func TestMonitor_ReturnsBodyOnNon2xx(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		io.WriteString(w, `{"error":"boom"}`)
	}))
	defer ts.Close()

	c := New(ts.URL, "", time.Second)
	body, err := c.Monitor(context.Background(), "https://example.com")
	if err != nil {
		t.Fatalf("transport error not expected: %v", err)
	}
	if string(body) != `{"error":"boom"}` {
		t.Fatalf("body = %q", body)
	}
}

func TestAddWatch_DecodesItemAndSurfacesAPIError(t *testing.T) {
	calls := 0
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusOK)
			io.WriteString(w, `{"status":"ok","item":{"id":"x1","url":"https://p-bandai.jp/item/item-1/","title":"T"}}`)
			return
		}
		w.WriteHeader(http.StatusConflict)
		io.WriteString(w, `{"error":"このURLは既に登録されています"}`)
	}))
	defer ts.Close()

	c := New(ts.URL, "adm_key", time.Second)
	item, err := c.AddWatch(context.Background(), "https://p-bandai.jp/item/item-1/")
	if err != nil {
		t.Fatalf("AddWatch: %v", err)
	}
	if item == nil || string(item.ID) != "x1" || item.Title != "T" {
		t.Fatalf("unexpected item: %+v", item)
	}

	_, err = c.AddWatch(context.Background(), "https://p-bandai.jp/item/item-1/")
	if err == nil {
		t.Fatal("duplicate should error")
	}
	if got := err.Error(); got != "409 Conflict: このURLは既に登録されています" {
		t.Fatalf("error = %q", got)
	}
}

func TestWatchlist(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/watchlist" || r.Method != http.MethodGet {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		io.WriteString(w, `[{"id":"a","url":"https://p-bandai.jp/item/item-1/"}]`)
	}))
	defer ts.Close()

	c := New(ts.URL, "", time.Second)
	items, err := c.Watchlist(context.Background())
	if err != nil {
		t.Fatalf("Watchlist: %v", err)
	}
	if len(items) != 1 || items[0].URL != "https://p-bandai.jp/item/item-1/" {
		t.Fatalf("unexpected items: %+v", items)
	}
}

func TestImportCSV_UploadsMultipart(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parse multipart: %v", err)
		}
		f, hdr, err := r.FormFile("file")
		if err != nil {
			t.Errorf("form file: %v", err)
		} else {
			f.Close()
			if hdr.Filename != "list.csv" {
				t.Errorf("filename = %q", hdr.Filename)
			}
		}
		io.WriteString(w, `{"message":"1件 登録しました","results":{"success":["T"],"errors":[]}}`)
	}))
	defer ts.Close()

	c := New(ts.URL, "adm_key", time.Second)
	csv := strings.NewReader("url\nhttps://p-bandai.jp/item/item-1/\n")
	report, err := c.ImportCSV(context.Background(), "list.csv", csv)
	if err != nil {
		t.Fatalf("ImportCSV: %v", err)
	}
	if report.Message != "1件 登録しました" || len(report.Results.Success) != 1 {
		t.Fatalf("unexpected report: %+v", report)
	}
}
