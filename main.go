package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v3"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/any-hub/tarball-proxy/internal/accesslog"
	"github.com/any-hub/tarball-proxy/internal/archive"
	"github.com/any-hub/tarball-proxy/internal/cache"
	"github.com/any-hub/tarball-proxy/internal/config"
	"github.com/any-hub/tarball-proxy/internal/logging"
	"github.com/any-hub/tarball-proxy/internal/proxy"
	"github.com/any-hub/tarball-proxy/internal/server"
	"github.com/any-hub/tarball-proxy/internal/server/routes"
	"github.com/any-hub/tarball-proxy/internal/upstream"
	"github.com/any-hub/tarball-proxy/internal/version"
)

// configEnvKey 允许通过环境变量指定 dotenv 配置文件路径。
const configEnvKey = "TARBALL_PROXY_CONFIG"

// cliOptions 汇总 CLI 标志解析后的结果，便于在测试中注入。
type cliOptions struct {
	configPath  string
	checkOnly   bool
	showVersion bool
}

var (
	stdOut io.Writer = os.Stdout
	stdErr io.Writer = os.Stderr
)

func main() {
	os.Exit(execute(os.Args[1:]))
}

// execute 通过 cobra 解析参数并执行 run，返回进程退出码。
func execute(args []string) int {
	code := 0
	cmd := newRootCommand(func(opts cliOptions) {
		code = run(opts)
	})
	cmd.SetArgs(args)
	cmd.SetOut(stdOut)
	cmd.SetErr(stdErr)
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(stdErr, "解析参数失败: %v\n", err)
		return 2
	}
	return code
}

func newRootCommand(action func(cliOptions)) *cobra.Command {
	var opts cliOptions
	cmd := &cobra.Command{
		Use:           "tarball-proxy",
		Short:         "Serve individual files out of registry package tarballs",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			opts.configPath = resolveConfigPath(opts.configPath)
			action(opts)
			return nil
		},
	}
	cmd.Flags().StringVar(&opts.configPath, "config", "", "dotenv 配置文件路径（默认 ./.env，可被 "+configEnvKey+" 覆盖）")
	cmd.Flags().BoolVar(&opts.checkOnly, "check-config", false, "仅校验配置后退出")
	cmd.Flags().BoolVar(&opts.showVersion, "version", false, "显示版本信息")
	return cmd
}

// parseCLIFlags 解析 CLI 参数，并结合环境变量计算最终的配置路径。
func parseCLIFlags(args []string) (cliOptions, error) {
	var parsed cliOptions
	ran := false
	cmd := newRootCommand(func(opts cliOptions) {
		parsed = opts
		ran = true
	})
	cmd.SetArgs(args)
	cmd.SetOut(io.Discard)
	cmd.SetErr(io.Discard)
	if err := cmd.Execute(); err != nil {
		return cliOptions{}, fmt.Errorf("解析参数失败: %w", err)
	}
	if !ran {
		return cliOptions{}, errors.New("解析参数失败: 未执行命令")
	}
	return parsed, nil
}

// resolveConfigPath 按 flag → 环境变量 的顺序确定配置路径，均为空时交给 config.Load 使用默认 .env。
func resolveConfigPath(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	return os.Getenv(configEnvKey)
}

// run 根据解析到的 CLI 选项执行业务流程，并返回退出码，方便测试。
func run(opts cliOptions) int {
	if opts.showVersion {
		printVersion()
		return 0
	}

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		fmt.Fprintf(stdErr, "加载配置失败: %v\n", err)
		return 1
	}

	logger, err := logging.InitLogger(cfg)
	if err != nil {
		fmt.Fprintf(stdErr, "初始化日志失败: %v\n", err)
		return 1
	}

	displayPath := opts.configPath
	if displayPath == "" {
		displayPath = config.DefaultConfigFile
	}
	if cfg.PartialCredentials() {
		logger.WithFields(logging.BaseFields("config", displayPath)).
			Warn("USERNAME/PASSWORD 只设置了一个，将以匿名方式访问上游")
	}

	if opts.checkOnly {
		fields := logging.BaseFields("check_config", displayPath)
		fields["registry"] = cfg.RegistryHost()
		fields["credentials"] = cfg.AuthMode()
		fields["result"] = "ok"
		logger.WithFields(fields).Info("配置校验通过")
		return 0
	}

	// 启动顺序：配置 → 缓存 → 访问日志 → 上游 fetcher → Fiber server，
	// 各能力在此一次性选定，请求路径上不再判断开关。
	store, err := buildCache(cfg)
	if err != nil {
		fmt.Fprintf(stdErr, "初始化缓存失败: %v\n", err)
		return 1
	}

	access, err := buildAccessLog(context.Background(), cfg, logger)
	if err != nil {
		fmt.Fprintf(stdErr, "初始化访问日志失败: %v\n", err)
		return 1
	}
	defer access.close()

	fetcher := upstream.NewFetcher(upstream.NewClient(cfg), upstream.FetcherOptions{
		BaseURL:   cfg.RegistryURL,
		Username:  cfg.Username,
		Password:  cfg.Password,
		UserAgent: version.UserAgent(),
	})
	service := proxy.NewService(proxy.ServiceOptions{
		Fetcher:   fetcher,
		Extractor: archive.NewExtractor(),
		Cache:     store,
		Recorder:  access.recorder,
		Logger:    logger,
		Coalesce:  cfg.CoalesceFetches,
	})

	fields := logging.BaseFields("startup", displayPath)
	fields["registry"] = cfg.RegistryHost()
	fields["listen_port"] = cfg.Port
	fields["credentials"] = cfg.AuthMode()
	fields["cache"] = cachePolicy(store)
	fields["cache_enabled"] = service.CachingEnabled()
	fields["access_log"] = cfg.UseDB
	fields["version"] = version.Full()
	logger.WithFields(fields).Info("配置加载完成")

	status := newStatusSource(cfg, store, access)
	if err := startHTTPServer(cfg, status, proxy.NewHandler(service, logger), logger); err != nil {
		fmt.Fprintf(stdErr, "HTTP 服务启动失败: %v\n", err)
		return 1
	}
	return 0
}

// buildCache 在 USE_CACHE 关闭时返回 nil，表示不启用缓存。
func buildCache(cfg *config.Config) (cache.Store, error) {
	if !cfg.UseCache {
		return nil, nil
	}
	return cache.NewStore(cache.Options{
		MaxEntries: cfg.CacheMaxEntries,
		TTL:        cfg.CacheTTL.DurationValue(),
	})
}

func cachePolicy(store cache.Store) string {
	if store == nil {
		return "disabled"
	}
	return store.Policy()
}

// accessLog 是按 USE_DB 选定的访问日志能力，records 仅在启用持久化时非空。
type accessLog struct {
	recorder accesslog.Recorder
	records  routes.RecordCounter
	close    func()
}

// buildAccessLog 根据 USE_DB 选择 NopRecorder 或基于 SQLite 的 AsyncRecorder，
// close 会先排空队列再关闭数据库。
func buildAccessLog(ctx context.Context, cfg *config.Config, logger *logrus.Logger) (*accessLog, error) {
	if !cfg.UseDB {
		return &accessLog{recorder: accesslog.NopRecorder{}, close: func() {}}, nil
	}

	db, err := accesslog.OpenSQLite(ctx, cfg.DBPath)
	if err != nil {
		return nil, err
	}
	logger.WithFields(logrus.Fields{
		"action":         "access_log",
		"db_path":        cfg.DBPath,
		"schema_version": db.SchemaVersion(),
	}).Info("Database synchronized")

	recorder := accesslog.NewAsyncRecorder(db, logger, cfg.AccessLogQueue)
	return &accessLog{
		recorder: recorder,
		records:  db,
		close: func() {
			_ = recorder.Close()
			if err := db.Close(); err != nil {
				logger.WithError(err).WithField("action", "access_log").Warn("access_log_close_failed")
			}
		},
	}, nil
}

func newStatusSource(cfg *config.Config, store cache.Store, access *accessLog) routes.StatusSource {
	return routes.StatusSource{
		Version:          version.Full(),
		RegistryHost:     cfg.RegistryHost(),
		Cache:            store,
		AccessLogEnabled: cfg.UseDB,
		AccessLog:        access.records,
		Coalesce:         cfg.CoalesceFetches,
	}
}

func startHTTPServer(cfg *config.Config, status routes.StatusSource, proxyHandler server.ProxyHandler, logger *logrus.Logger) error {
	app, err := server.NewApp(server.AppOptions{
		Logger:     logger,
		Proxy:      proxyHandler,
		ListenPort: cfg.Port,
	})
	if err != nil {
		return err
	}
	// 通配路由会把 /-/ 前缀交给 c.Next()，诊断路由因此可以在其后注册。
	routes.RegisterStatusRoutes(app, status)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	listenDone := make(chan struct{})
	defer close(listenDone)
	go func() {
		select {
		case <-ctx.Done():
		case <-listenDone:
			return
		}
		if err := app.Shutdown(); err != nil {
			logger.WithError(err).WithField("action", "shutdown").Warn("Fiber 服务关闭失败")
		}
	}()

	logger.WithFields(logrus.Fields{
		"action": "listen",
		"port":   cfg.Port,
	}).Infof("Server is running on %s", cfg.AdvertisedAddress())

	return app.Listen(cfg.ListenAddress(), fiber.ListenConfig{DisableStartupMessage: true})
}
