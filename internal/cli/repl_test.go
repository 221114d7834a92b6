package cli

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/mkurata/pbwatch/internal/client"
)

func replServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	// Method-prefixed ServeMux patterns need Go 1.22+; dispatch on r.Method
	// instead so the scaffolding works on older toolchains.
	mux.HandleFunc("/api/monitor", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
			return
		}
		io.WriteString(w, `{"status":"ok","count":3}`)
	})
	mux.HandleFunc("/api/watchlist", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			io.WriteString(w, `[{"id":"a","url":"https://p-bandai.jp/item/item-1/","title":"T","statusText":"在庫あり"}]`)
		case http.MethodPost:
			io.WriteString(w, `{"status":"ok","item":{"id":"a","title":"T","statusText":"在庫あり"}}`)
		default:
			http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		}
	})
	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)
	return ts
}

func runREPL(t *testing.T, ts *httptest.Server, script string) string {
	t.Helper()
	var out strings.Builder
	r := &REPL{
		In:  strings.NewReader(script),
		Out: &out,
		API: client.New(ts.URL, "", time.Second),
	}
	require.NoError(t, r.Run(context.Background()))
	return out.String()
}

func TestREPL_SearchPrettyPrints(t *testing.T) {
	out := runREPL(t, replServer(t), "p-bandai.jp/item/item-1/\n/quit\n")
	require.Contains(t, out, "調査中...")
	require.Contains(t, out, "{\n  \"status\": \"ok\",\n  \"count\": 3\n}")
}

func TestREPL_Commands(t *testing.T) {
	ts := replServer(t)

	out := runREPL(t, ts, "/ls\n/quit\n")
	require.Contains(t, out, "在庫あり\tT\thttps://p-bandai.jp/item/item-1/")

	out = runREPL(t, ts, "/add p-bandai.jp/item/item-1/\n/quit\n")
	require.Contains(t, out, "登録しました: T (在庫あり)")

	out = runREPL(t, ts, "/nope\n/quit\n")
	require.Contains(t, out, "不明なコマンドです: /nope")

	out = runREPL(t, ts, "/help\n")
	require.Contains(t, out, "/add <url>")
}

func TestEnsureScheme(t *testing.T) {
	require.Equal(t, "https://p-bandai.jp", ensureScheme("p-bandai.jp"))
	require.Equal(t, "http://x", ensureScheme("http://x"))
	require.Equal(t, "", ensureScheme("  "))
}
