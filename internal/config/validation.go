package config

import (
	"errors"
	"fmt"
	"net/url"
)

// Validate 针对语义级别做进一步校验，防止非法配置进入抓取流程。
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("配置为空")
	}

	if c.StorageDir == "" {
		return newFieldError("StorageDir", "不能为空")
	}
	if c.HTTPTimeout.DurationValue() <= 0 {
		return newFieldError("HTTPTimeout", "必须大于 0")
	}
	if c.LogMaxSize < 0 {
		return newFieldError("LogMaxSize", "不能为负数")
	}
	if c.LogMaxBackups < 0 {
		return newFieldError("LogMaxBackups", "不能为负数")
	}

	// PageURL 允许为空：当月缓存已存在时抓取流程不需要它。
	if c.PageURL != "" {
		if err := validatePageURL(c.PageURL); err != nil {
			return fmt.Errorf("PageURL: %w", err)
		}
	}

	return nil
}

func validatePageURL(raw string) error {
	parsed, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("仅支持 http/https，页面地址: %s", raw)
	}
	if parsed.Host == "" {
		return fmt.Errorf("页面地址缺少 Host: %s", raw)
	}
	return nil
}
