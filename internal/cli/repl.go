package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/mkurata/pbwatch/internal/client"
	"github.com/mkurata/pbwatch/internal/console"
)

const replHelp = `コマンド:
  /add <url>   商品を監視リストに登録
  /ls          監視リストを表示
  /help        このヘルプ
  /quit        終了
URLを入力するとその場で在庫を確認します。`

// REPL is the interactive prompt. Every non-command line is treated as a
// product URL and checked through the search handler.
type REPL struct {
	In  io.Reader
	Out io.Writer
	API *client.Client
}

func (r *REPL) Run(ctx context.Context) error {
	fmt.Fprintln(r.Out, "pbwatch — URLを入力してください (/help でコマンド一覧)")

	query := &console.Field{}
	sink := &console.WriterSink{W: r.Out}
	searcher := console.NewSearcher(query, sink, r.API)

	sc := bufio.NewScanner(r.In)
	for {
		fmt.Fprint(r.Out, "> ")
		if !sc.Scan() {
			break
		}
		line := strings.TrimSpace(sc.Text())
		switch {
		case line == "":
			continue
		case line == "/quit", line == "/exit":
			return nil
		case line == "/help":
			fmt.Fprintln(r.Out, replHelp)
		case line == "/ls":
			r.listWatchlist(ctx)
		case strings.HasPrefix(line, "/add "):
			r.addWatch(ctx, strings.TrimSpace(strings.TrimPrefix(line, "/add ")))
		case strings.HasPrefix(line, "/"):
			fmt.Fprintf(r.Out, "不明なコマンドです: %s\n", line)
		default:
			query.Set(ensureScheme(line))
			// the prompt is sequential, so wait for the result before
			// reading the next line
			<-searcher.Search(ctx)
		}
	}
	return sc.Err()
}

func (r *REPL) addWatch(ctx context.Context, target string) {
	if target == "" {
		fmt.Fprintln(r.Out, "URLを指定してください: /add <url>")
		return
	}
	item, err := r.API.AddWatch(ctx, ensureScheme(target))
	if err != nil {
		fmt.Fprintf(r.Out, "登録できませんでした: %v\n", err)
		return
	}
	fmt.Fprintf(r.Out, "登録しました: %s (%s)\n", item.Title, item.StatusText)
}

func (r *REPL) listWatchlist(ctx context.Context) {
	items, err := r.API.Watchlist(ctx)
	if err != nil {
		fmt.Fprintf(r.Out, "一覧を取得できませんでした: %v\n", err)
		return
	}
	if len(items) == 0 {
		fmt.Fprintln(r.Out, "監視中の商品はありません")
		return
	}
	for _, it := range items {
		fmt.Fprintf(r.Out, "%s\t%s\t%s\n", it.StatusText, it.Title, it.URL)
	}
}
