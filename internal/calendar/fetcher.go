package calendar

import (
	"context"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/yogacal/yogacal/internal/cache"
	"github.com/yogacal/yogacal/internal/logging"
	apperrors "github.com/yogacal/yogacal/internal/shared/errors"
)

// Fetcher 负责 "取或复用" 当月日历 PDF：缓存命中直接返回本地路径，
// 未命中时抓取页面、提取下载链接并原子写入缓存。
type Fetcher struct {
	store  cache.Store
	client *http.Client
	logger *logrus.Logger

	// now 可在测试中替换，让缓存键对模拟日期保持确定性。
	now func() time.Time
}

// NewFetcher 构造 Fetcher，默认使用 time.Now 作为时钟。
func NewFetcher(store cache.Store, client *http.Client, logger *logrus.Logger) *Fetcher {
	return &Fetcher{
		store:  store,
		client: client,
		logger: logger,
		now:    time.Now,
	}
}

// Fetch 返回当月日历 PDF 的本地路径。forceRefresh 为 true 时先删除已有
// 缓存再重新下载；否则同月内的重复调用不产生任何网络请求。
func (f *Fetcher) Fetch(ctx context.Context, pageURL string, forceRefresh bool) (string, error) {
	key := MonthKeyFor(f.now()).String()

	if forceRefresh {
		if err := f.store.Remove(ctx, key); err != nil {
			return "", err
		}
	}

	if result, err := f.store.Get(ctx, key); err == nil {
		result.Reader.Close()
		f.logger.WithFields(logging.FetchFields(pageURL, key, true)).Info("复用当月缓存")
		return result.Entry.FilePath, nil
	} else if err != cache.ErrNotFound {
		return "", err
	}

	if pageURL == "" {
		return "", apperrors.New(apperrors.ErrorCodeInvalidArgument, "未提供页面地址")
	}

	downloadLink, err := f.locateDownloadLink(ctx, pageURL)
	if err != nil {
		return "", err
	}

	entry, err := f.downloadArtifact(ctx, key, downloadLink)
	if err != nil {
		return "", err
	}

	fields := logging.FetchFields(pageURL, key, false)
	fields["download_link"] = downloadLink
	fields["size_bytes"] = entry.SizeBytes
	f.logger.WithFields(fields).Info("日历下载完成")

	return entry.FilePath, nil
}

// locateDownloadLink 抓取页面并按锚文本匹配出唯一下载链接。
func (f *Fetcher) locateDownloadLink(ctx context.Context, pageURL string) (string, error) {
	resp, err := f.get(ctx, pageURL)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	return extractDownloadLink(resp.Body, DownloadMarker)
}

// downloadArtifact 下载 PDF 正文并流式写入缓存，写入由 Store 保证原子性。
func (f *Fetcher) downloadArtifact(ctx context.Context, key, downloadLink string) (*cache.Entry, error) {
	resp, err := f.get(ctx, downloadLink)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	return f.store.Put(ctx, key, resp.Body, cache.PutOptions{})
}

// get 发出一次 GET 并校验状态码，非 2xx 一律按连接性错误上抛。
func (f *Fetcher) get(ctx context.Context, rawURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrorCodeInvalidArgument, err, "非法请求地址 '%s'", rawURL)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrorCodeConnectivity, err, "请求 '%s' 失败", rawURL)
	}
	if resp.StatusCode/100 != 2 {
		resp.Body.Close()
		return nil, apperrors.New(apperrors.ErrorCodeConnectivity, "请求 '%s' 返回状态码 %d", rawURL, resp.StatusCode)
	}
	return resp, nil
}
