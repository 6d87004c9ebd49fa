package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/yogacal/yogacal/internal/cache"
	"github.com/yogacal/yogacal/internal/calendar"
	"github.com/yogacal/yogacal/internal/config"
	"github.com/yogacal/yogacal/internal/logging"
	"github.com/yogacal/yogacal/internal/upstream"
	"github.com/yogacal/yogacal/internal/viewer"
)

// cliOptions 汇总 CLI 标志解析后的结果，便于在测试中注入。
type cliOptions struct {
	configPath     string
	configExplicit bool
	dir            string
	using          string
	forceDL        bool
	checkOnly      bool
	showVersion    bool
}

var (
	stdOut io.Writer = os.Stdout
	stdErr io.Writer = os.Stderr
)

func main() {
	opts, err := parseCLIFlags(os.Args[1:])
	if err != nil {
		fmt.Fprintln(stdErr, err.Error())
		os.Exit(2)
	}
	os.Exit(run(opts))
}

// run 根据解析到的 CLI 选项执行业务流程，并返回退出码，方便测试。
func run(opts cliOptions) int {
	if opts.showVersion {
		printVersion()
		return 0
	}

	cfg, err := loadConfig(opts)
	if err != nil {
		fmt.Fprintf(stdErr, "加载配置失败: %v\n", err)
		return 1
	}

	logger, err := logging.InitLogger(cfg)
	if err != nil {
		fmt.Fprintf(stdErr, "初始化日志失败: %v\n", err)
		return 1
	}

	runID := logging.NewRunID()

	if opts.checkOnly {
		fields := logging.BaseFields("check_config", runID)
		fields["storage_dir"] = cfg.StorageDir
		fields["page_url"] = cfg.PageURL
		fields["viewer"] = cfg.Viewer
		fields["result"] = "ok"
		logger.WithFields(fields).Info("配置校验通过")
		return 0
	}

	// CLI 流程遵循“配置 → 磁盘缓存 → HTTP 客户端 → Fetcher → Launcher”顺序，
	// Fetcher 产出的本地路径是两个组件之间唯一的数据。
	store, err := cache.NewStore(cfg.StorageDir)
	if err != nil {
		fmt.Fprintf(stdErr, "初始化缓存目录失败: %v\n", err)
		return 1
	}

	client := upstream.NewClient(cfg.HTTPTimeout.DurationValue())
	fetcher := calendar.NewFetcher(store, client, logger)

	fields := logging.BaseFields("fetch", runID)
	fields["storage_dir"] = cfg.StorageDir
	fields["force_dl"] = opts.forceDL
	logger.WithFields(fields).Info("开始获取当月日历")

	path, err := fetcher.Fetch(context.Background(), cfg.PageURL, opts.forceDL)
	if err != nil {
		fmt.Fprintf(stdErr, "获取日历失败: %v\n", err)
		return 1
	}

	launcher := viewer.NewLauncher(logger)
	if err := launcher.Open(path, cfg.Viewer); err != nil {
		fmt.Fprintf(stdErr, "打开日历失败: %v\n", err)
		return 1
	}

	fmt.Fprintln(stdOut, path)
	return 0
}

// loadConfig 加载配置并套用 CLI 标志覆盖；显式指定的配置文件缺失视为错误。
func loadConfig(opts cliOptions) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if opts.configExplicit {
		cfg, err = config.Load(opts.configPath)
	} else {
		cfg, err = config.LoadOrDefault(opts.configPath)
	}
	if err != nil {
		return nil, err
	}

	if opts.dir != "" {
		cfg.StorageDir = opts.dir
	}
	if opts.using != "" {
		cfg.Viewer = opts.using
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// parseCLIFlags 解析 CLI 参数，并结合环境变量计算最终的配置路径。
func parseCLIFlags(args []string) (cliOptions, error) {
	fs := flag.NewFlagSet("yogacal", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	var (
		configFlag string
		dirFlag    string
		usingFlag  string
		forceDL    bool
		checkOnly  bool
		showVer    bool
	)

	fs.StringVar(&configFlag, "config", "", "配置文件路径（默认 ./config.toml，可被 YOGACAL_CONFIG 覆盖）")
	fs.StringVar(&dirFlag, "dir", "", "日历 PDF 的缓存目录（默认可执行文件旁的 .calendars）")
	fs.StringVar(&usingFlag, "using", "", "打开日历使用的查看器名称（默认 firefox）")
	fs.BoolVar(&forceDL, "force-dl", false, "即使当月缓存已存在也强制重新下载")
	fs.BoolVar(&checkOnly, "check-config", false, "仅校验配置后退出")
	fs.BoolVar(&showVer, "version", false, "显示版本信息")

	if err := fs.Parse(args); err != nil {
		return cliOptions{}, fmt.Errorf("解析参数失败: %w", err)
	}

	path := os.Getenv("YOGACAL_CONFIG")
	explicit := path != ""
	if configFlag != "" {
		path = configFlag
		explicit = true
	}
	if path == "" {
		path = "config.toml"
	}

	return cliOptions{
		configPath:     path,
		configExplicit: explicit,
		dir:            dirFlag,
		using:          usingFlag,
		forceDL:        forceDL,
		checkOnly:      checkOnly,
		showVersion:    showVer,
	}, nil
}
