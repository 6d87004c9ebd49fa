package viewer

import (
	"fmt"
	"net/url"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/sirupsen/logrus"

	apperrors "github.com/yogacal/yogacal/internal/shared/errors"
)

// viewerAliases 将常用查看器名称映射到候选可执行文件，按顺序探测 PATH。
var viewerAliases = map[string][]string{
	"firefox":  {"firefox"},
	"chrome":   {"google-chrome", "google-chrome-stable", "chrome"},
	"chromium": {"chromium", "chromium-browser"},
	"edge":     {"microsoft-edge", "msedge"},
}

// Launcher 请求本地查看器打开缓存文件。只报告 "发起打开请求" 是否成功，
// 不等待也不观察查看器进程本身。
type Launcher struct {
	logger *logrus.Logger

	// lookPath/startProcess 可在测试中替换，避免真正拉起进程。
	lookPath     func(name string) (string, error)
	startProcess func(name string, args ...string) error
}

// Option 调整 Launcher 的进程探测/启动行为，测试中用它替换真实 exec。
type Option func(*Launcher)

// WithLookPath 替换 PATH 探测实现。
func WithLookPath(fn func(name string) (string, error)) Option {
	return func(l *Launcher) { l.lookPath = fn }
}

// WithStartProcess 替换进程启动实现。
func WithStartProcess(fn func(name string, args ...string) error) Option {
	return func(l *Launcher) { l.startProcess = fn }
}

// NewLauncher 构造 Launcher，默认直接探测 PATH 并启动进程。
func NewLauncher(logger *logrus.Logger, opts ...Option) *Launcher {
	launcher := &Launcher{
		logger:   logger,
		lookPath: exec.LookPath,
		startProcess: func(name string, args ...string) error {
			return exec.Command(name, args...).Start()
		},
	}
	for _, opt := range opts {
		opt(launcher)
	}
	return launcher
}

// Open 将本地文件交给查看器显示。using 为空时使用平台默认打开方式，
// 指定名称但无法解析时返回 INVALID_ARGUMENT。
func (l *Launcher) Open(filePath, using string) error {
	if _, err := os.Stat(filePath); err != nil {
		return apperrors.Wrap(apperrors.ErrorCodeNotFound, err, "文件 '%s' 不存在", filePath)
	}

	abs, err := filepath.Abs(filePath)
	if err != nil {
		return fmt.Errorf("解析绝对路径失败: %w", err)
	}
	fileURL := fileURLFor(abs)

	bin, args, err := l.resolveCommand(using)
	if err != nil {
		return err
	}

	if err := l.startProcess(bin, append(args, fileURL)...); err != nil {
		return fmt.Errorf("启动查看器失败: %w", err)
	}

	l.logger.WithFields(logrus.Fields{
		"action":   "open",
		"viewer":   bin,
		"file_url": fileURL,
	}).Info("已发起打开请求")

	return nil
}

// resolveCommand 将查看器名称解析为可执行文件；空名称退回平台默认打开器。
func (l *Launcher) resolveCommand(using string) (string, []string, error) {
	name := strings.ToLower(strings.TrimSpace(using))
	if name == "" {
		return l.platformOpener()
	}

	candidates := viewerAliases[name]
	if candidates == nil {
		candidates = []string{name}
	}
	for _, candidate := range candidates {
		if bin, err := l.lookPath(candidate); err == nil {
			return bin, nil, nil
		}
	}
	return "", nil, apperrors.New(apperrors.ErrorCodeInvalidArgument, "未找到名为 '%s' 的查看器", using)
}

// platformOpener 返回当前平台的默认文件打开命令。
func (l *Launcher) platformOpener() (string, []string, error) {
	switch runtime.GOOS {
	case "darwin":
		return "open", nil, nil
	case "windows":
		return "rundll32", []string{"url.dll,FileProtocolHandler"}, nil
	default:
		if bin, err := l.lookPath("xdg-open"); err == nil {
			return bin, nil, nil
		}
		return "", nil, apperrors.New(apperrors.ErrorCodeInvalidArgument, "当前平台没有可用的默认打开器")
	}
}

// fileURLFor 把绝对路径转成 file:// URL，空格等字符交给 url 包转义。
func fileURLFor(abs string) string {
	u := url.URL{
		Scheme: "file",
		Path:   filepath.ToSlash(abs),
	}
	if !strings.HasPrefix(u.Path, "/") {
		u.Path = "/" + u.Path
	}
	return u.String()
}
