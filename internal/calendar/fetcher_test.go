package calendar

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/yogacal/yogacal/internal/cache"
	apperrors "github.com/yogacal/yogacal/internal/shared/errors"
)

var testClock = func() time.Time {
	return time.Date(2024, time.June, 12, 9, 30, 0, 0, time.UTC)
}

const pdfPayload = "%PDF-1.4 fake calendar body"

// newCalendarServer 模拟日历页面与 PDF 资源，按路径分别计数请求次数。
func newCalendarServer(t *testing.T, pageHits, pdfHits *atomic.Int64) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	var server *httptest.Server

	mux.HandleFunc("/calendar/", func(w http.ResponseWriter, r *http.Request) {
		pageHits.Add(1)
		fmt.Fprintf(w, `<html><body><a href="%s/cal.pdf">Click here to Download the Free PDF</a></body></html>`, server.URL)
	})
	mux.HandleFunc("/cal.pdf", func(w http.ResponseWriter, r *http.Request) {
		pdfHits.Add(1)
		w.Header().Set("Content-Type", "application/pdf")
		io.WriteString(w, pdfPayload)
	})

	server = httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func newTestFetcher(t *testing.T, dir string) *Fetcher {
	t.Helper()

	store, err := cache.NewStore(dir)
	if err != nil {
		t.Fatalf("创建缓存失败: %v", err)
	}

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	fetcher := NewFetcher(store, &http.Client{Timeout: 5 * time.Second}, logger)
	fetcher.now = testClock
	return fetcher
}

func TestFetchDownloadsAndCaches(t *testing.T) {
	var pageHits, pdfHits atomic.Int64
	server := newCalendarServer(t, &pageHits, &pdfHits)
	dir := t.TempDir()
	fetcher := newTestFetcher(t, dir)

	path, err := fetcher.Fetch(context.Background(), server.URL+"/calendar/", false)
	if err != nil {
		t.Fatalf("抓取失败: %v", err)
	}
	if path != filepath.Join(dir, "2024june.pdf") {
		t.Fatalf("缓存路径不符: %s", path)
	}

	body, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("读取缓存文件失败: %v", err)
	}
	if string(body) != pdfPayload {
		t.Fatalf("缓存内容与下载正文不一致: %q", body)
	}
	if pageHits.Load() != 1 || pdfHits.Load() != 1 {
		t.Fatalf("首次抓取应各发一次请求，得到 page=%d pdf=%d", pageHits.Load(), pdfHits.Load())
	}
}

func TestFetchIsIdempotentWithinMonth(t *testing.T) {
	var pageHits, pdfHits atomic.Int64
	server := newCalendarServer(t, &pageHits, &pdfHits)
	fetcher := newTestFetcher(t, t.TempDir())

	first, err := fetcher.Fetch(context.Background(), server.URL+"/calendar/", false)
	if err != nil {
		t.Fatalf("首次抓取失败: %v", err)
	}
	second, err := fetcher.Fetch(context.Background(), server.URL+"/calendar/", false)
	if err != nil {
		t.Fatalf("二次抓取失败: %v", err)
	}

	if first != second {
		t.Fatalf("两次调用应返回同一路径: %s vs %s", first, second)
	}
	if pageHits.Load() != 1 || pdfHits.Load() != 1 {
		t.Fatalf("缓存命中后不应再发请求，得到 page=%d pdf=%d", pageHits.Load(), pdfHits.Load())
	}
}

func TestFetchForceRefreshRedownloads(t *testing.T) {
	var pageHits, pdfHits atomic.Int64
	server := newCalendarServer(t, &pageHits, &pdfHits)
	fetcher := newTestFetcher(t, t.TempDir())

	if _, err := fetcher.Fetch(context.Background(), server.URL+"/calendar/", false); err != nil {
		t.Fatalf("首次抓取失败: %v", err)
	}
	if _, err := fetcher.Fetch(context.Background(), server.URL+"/calendar/", true); err != nil {
		t.Fatalf("强制刷新失败: %v", err)
	}

	if pageHits.Load() != 2 || pdfHits.Load() != 2 {
		t.Fatalf("强制刷新应重新下载，得到 page=%d pdf=%d", pageHits.Load(), pdfHits.Load())
	}
}

func TestFetchCacheHitSkipsPageURLRequirement(t *testing.T) {
	var pageHits, pdfHits atomic.Int64
	server := newCalendarServer(t, &pageHits, &pdfHits)
	fetcher := newTestFetcher(t, t.TempDir())

	path, err := fetcher.Fetch(context.Background(), server.URL+"/calendar/", false)
	if err != nil {
		t.Fatalf("首次抓取失败: %v", err)
	}

	// 缓存已就位时不再需要页面地址。
	cached, err := fetcher.Fetch(context.Background(), "", false)
	if err != nil {
		t.Fatalf("缓存命中不应要求页面地址: %v", err)
	}
	if cached != path {
		t.Fatalf("路径不一致: %s vs %s", cached, path)
	}
}

func TestFetchRequiresPageURLOnMiss(t *testing.T) {
	fetcher := newTestFetcher(t, t.TempDir())

	_, err := fetcher.Fetch(context.Background(), "", false)
	if !apperrors.IsCode(err, apperrors.ErrorCodeInvalidArgument) {
		t.Fatalf("缓存未命中且无页面地址应返回 INVALID_ARGUMENT，得到 %v", err)
	}
}

func TestFetchPageStatusErrorWritesNothing(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	t.Cleanup(server.Close)

	dir := t.TempDir()
	fetcher := newTestFetcher(t, dir)

	_, err := fetcher.Fetch(context.Background(), server.URL+"/calendar/", false)
	if !apperrors.IsCode(err, apperrors.ErrorCodeConnectivity) {
		t.Fatalf("页面非 2xx 应返回 CONNECTIVITY_ERROR，得到 %v", err)
	}
	if !strings.Contains(err.Error(), "404") {
		t.Fatalf("诊断信息应包含状态码: %v", err)
	}

	entries, readErr := os.ReadDir(dir)
	if readErr != nil {
		t.Fatalf("读取缓存目录失败: %v", readErr)
	}
	if len(entries) != 0 {
		t.Fatalf("页面抓取失败时不应写入任何文件，目录内有 %d 项", len(entries))
	}
}

func TestFetchPDFStatusError(t *testing.T) {
	mux := http.NewServeMux()
	var server *httptest.Server
	mux.HandleFunc("/calendar/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `<html><body><a href="%s/cal.pdf">Click here to Download the Free PDF</a></body></html>`, server.URL)
	})
	mux.HandleFunc("/cal.pdf", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})
	server = httptest.NewServer(mux)
	t.Cleanup(server.Close)

	fetcher := newTestFetcher(t, t.TempDir())

	_, err := fetcher.Fetch(context.Background(), server.URL+"/calendar/", false)
	if !apperrors.IsCode(err, apperrors.ErrorCodeConnectivity) {
		t.Fatalf("PDF 非 2xx 应返回 CONNECTIVITY_ERROR，得到 %v", err)
	}
	if !strings.Contains(err.Error(), "500") {
		t.Fatalf("诊断信息应包含状态码: %v", err)
	}
}

func TestFetchAmbiguousLinks(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `<html><body>
<a href="/a.pdf">Click here to Download the Free PDF</a>
<a href="/b.pdf">Click here to Download the Free PDF</a>
</body></html>`)
	}))
	t.Cleanup(server.Close)

	fetcher := newTestFetcher(t, t.TempDir())

	_, err := fetcher.Fetch(context.Background(), server.URL+"/calendar/", false)
	if !apperrors.IsCode(err, apperrors.ErrorCodeAmbiguousResult) {
		t.Fatalf("多重匹配应返回 AMBIGUOUS_RESULT，得到 %v", err)
	}
}
