package httpapi

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/mkurata/pbwatch/internal/domain"
	"github.com/mkurata/pbwatch/internal/probe"
	"github.com/mkurata/pbwatch/internal/repo"
)

// CSV bulk import caps; one registration probes the shop, so keep bursts small.
const maxCSVRows = 5

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

type urlPayload struct {
	URL string `json:"url"`
}

// probeOrFail runs one synchronous check for immediate feedback and, on
// failure, classifies DNS so the log separates dead URLs from shop throttling.
func (s *Server) probeOrFail(r *http.Request, target string) (probe.Result, bool) {
	out := s.Checker.Check(r.Context(), target)
	if out.OK && out.Snapshot != nil {
		return out, true
	}

	dns := probe.CheckDNS(extractHost(target))
	s.Logger.Info("dns_check",
		zap.String("domain", dns.Domain),
		zap.String("class", dns.Class),
		zap.Bool("has_a_or_aaaa", dns.HasAOrAAAA),
		zap.Strings("nameservers", dns.Nameservers),
		zap.String("cname", dns.CNAME),
		zap.String("resolver_error", dns.ResolverError),
	)
	s.Logger.Warn("probe_failed",
		zap.String("url", target),
		zap.Int("status", out.StatusCode),
		zap.String("reason", out.Message),
		zap.String("dns_class", dns.Class),
	)
	return out, false
}

func (s *Server) handleMonitor(w http.ResponseWriter, r *http.Request) {
	var p urlPayload
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil || p.URL == "" {
		writeError(w, http.StatusBadRequest, "URLが指定されていません")
		return
	}
	if !isValidHTTPURL(p.URL) {
		writeError(w, http.StatusBadRequest, "URLの形式が正しくありません")
		return
	}
	target := normalizeHTTPURL(p.URL)

	s.Logger.Info("monitor_requested", zap.String("url", target))

	out, ok := s.probeOrFail(r, target)
	if !ok {
		writeError(w, http.StatusInternalServerError, "商品情報の取得に失敗しました。URLを確認してください。")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"preview":    out.Snapshot,
		"latency_ms": out.LatencyMS,
		"checked_at": time.Now().UTC(),
	})
}

func (s *Server) handleAddWatch(w http.ResponseWriter, r *http.Request) {
	var p urlPayload
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil || p.URL == "" {
		writeError(w, http.StatusBadRequest, "URLが指定されていません")
		return
	}
	if !isValidHTTPURL(p.URL) {
		writeError(w, http.StatusBadRequest, "URLの形式が正しくありません")
		return
	}
	target := normalizeHTTPURL(p.URL)

	out, ok := s.probeOrFail(r, target)
	if !ok {
		writeError(w, http.StatusInternalServerError, "商品情報の取得に失敗しました。URLを確認してください。")
		return
	}
	snap := out.Snapshot

	now := time.Now().UTC()
	item := &domain.WatchItem{
		URL:         target,
		Title:       snap.Title,
		Price:       snap.Price,
		ImageURL:    snap.ImageURL,
		InStock:     snap.InStock,
		StatusText:  snap.StatusText,
		CreatedAt:   now,
		LastChecked: now,
	}
	if err := s.Items.Add(r.Context(), item); err != nil {
		if errors.Is(err, repo.ErrDuplicateURL) {
			writeError(w, http.StatusConflict, "このURLは既に登録されています")
			return
		}
		s.Logger.Error("watchlist_add_error", zap.String("url", target), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "登録に失敗しました")
		return
	}
	// seed notification state so the watcher only pushes on a real change
	_ = s.State.Set(r.Context(), string(item.ID), item.InStock, time.Time{})

	s.Logger.Info("added_watch_item",
		zap.String("item_id", string(item.ID)),
		zap.String("url", target),
		zap.String("title", item.Title),
		zap.Bool("in_stock", item.InStock),
		zap.Float64("latency_ms", out.LatencyMS),
	)

	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "item": item})
}

func (s *Server) handleListWatchlist(w http.ResponseWriter, r *http.Request) {
	items, err := s.Items.List(r.Context())
	if err != nil {
		s.Logger.Error("watchlist_list_error", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "一覧の取得に失敗しました")
		return
	}
	if items == nil {
		items = []*domain.WatchItem{}
	}
	writeJSON(w, http.StatusOK, items)
}

func (s *Server) handleImportCSV(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(1 << 20); err != nil {
		writeError(w, http.StatusBadRequest, "ファイルが送信されていません")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "ファイルが送信されていません")
		return
	}
	defer file.Close()
	if header.Filename == "" {
		writeError(w, http.StatusBadRequest, "ファイルが選択されていません")
		return
	}

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("CSV解析エラー: %v", err))
		return
	}
	if len(records) < 2 {
		writeError(w, http.StatusBadRequest, "CSVデータが空です")
		return
	}
	head, rows := records[0], records[1:]
	if len(rows) > maxCSVRows {
		writeError(w, http.StatusBadRequest, "一度に登録できるのは最大5件までです")
		return
	}

	urlCol := findURLColumn(head)
	if urlCol < 0 {
		writeError(w, http.StatusBadRequest, "CSVの一行目に 'url' という列が必要です")
		return
	}

	report := domain.ImportReport{
		Results: domain.ImportResults{Success: []string{}, Errors: []string{}},
	}
	for i, row := range rows {
		line := i + 1 // 1-based over data rows, matching the UI's wording
		var target string
		if urlCol < len(row) {
			target = strings.TrimSpace(row[urlCol])
		}
		if target == "" {
			report.Results.Errors = append(report.Results.Errors, fmt.Sprintf("%d行目: URLが見つかりません", line))
			continue
		}
		if !strings.Contains(target, "p-bandai.jp") {
			report.Results.Errors = append(report.Results.Errors, fmt.Sprintf("%d行目: プレミアムバンダイのURLではありません", line))
			continue
		}

		out, ok := s.probeOrFail(r, normalizeHTTPURL(target))
		if !ok {
			report.Results.Errors = append(report.Results.Errors, fmt.Sprintf("%d行目: 商品情報の取得に失敗しました", line))
			continue
		}
		snap := out.Snapshot

		now := time.Now().UTC()
		item := &domain.WatchItem{
			URL:         normalizeHTTPURL(target),
			Title:       snap.Title,
			Price:       snap.Price,
			ImageURL:    snap.ImageURL,
			InStock:     snap.InStock,
			StatusText:  snap.StatusText,
			CreatedAt:   now,
			LastChecked: now,
		}
		if err := s.Items.Add(r.Context(), item); err != nil {
			if errors.Is(err, repo.ErrDuplicateURL) {
				report.Results.Errors = append(report.Results.Errors, fmt.Sprintf("%d行目: このURLは既に登録されています", line))
			} else {
				s.Logger.Error("csv_import_store_error", zap.String("url", item.URL), zap.Error(err))
				report.Results.Errors = append(report.Results.Errors, fmt.Sprintf("%d行目: DB保存エラー", line))
			}
			continue
		}
		_ = s.State.Set(r.Context(), string(item.ID), item.InStock, time.Time{})
		report.Results.Success = append(report.Results.Success, snap.Title)
	}

	report.Message = fmt.Sprintf("%d件 登録しました", len(report.Results.Success))
	s.Logger.Info("csv_imported",
		zap.Int("success", len(report.Results.Success)),
		zap.Int("errors", len(report.Results.Errors)),
	)
	writeJSON(w, http.StatusOK, report)
}

// findURLColumn locates the url column, tolerating BOMs, case and stray
// whitespace in the header cell.
func findURLColumn(head []string) int {
	for i, cell := range head {
		cell = strings.TrimPrefix(cell, "\ufeff")
		if strings.EqualFold(strings.TrimSpace(cell), "url") {
			return i
		}
	}
	return -1
}

const testNotificationText = `PB Stock Monitor Pro です。

このメッセージが届いていれば、
LINE通知設定は正常に動作しています 👍`

func (s *Server) handleNotifyTest(w http.ResponseWriter, r *http.Request) {
	if s.Notifier == nil || s.LineUserID == "" {
		writeError(w, http.StatusBadRequest, "LINE USER ID が未設定です")
		return
	}
	if err := s.Notifier.Send(r.Context(), "🧪 テスト通知", testNotificationText); err != nil {
		s.Logger.Error("notify_test_error", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "通知の送信に失敗しました")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
