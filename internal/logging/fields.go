package logging

import (
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// NewRunID 为单次调用生成关联 ID，贯穿该次运行的所有日志。
func NewRunID() string {
	return uuid.NewString()
}

// BaseFields 构建 action + run_id 基础字段，便于不同入口复用。
func BaseFields(action, runID string) logrus.Fields {
	return logrus.Fields{
		"action": action,
		"run_id": runID,
	}
}

// FetchFields 提供抓取流程的页面/缓存字段，供 Fetcher 日志复用。
func FetchFields(pageURL, cacheKey string, cacheHit bool) logrus.Fields {
	return logrus.Fields{
		"page_url":  pageURL,
		"cache_key": cacheKey,
		"cache_hit": cacheHit,
	}
}
