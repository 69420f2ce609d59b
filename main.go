package main

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"

	"github.com/TIANLI0/MaskKit/config"
	"github.com/TIANLI0/MaskKit/handler"
	"github.com/TIANLI0/MaskKit/middleware"
	"github.com/TIANLI0/MaskKit/service"
	"github.com/TIANLI0/MaskKit/utils"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

//go:embed static
var staticFiles embed.FS

var (
	Version   = "dev"
	BuildTime = "unknown"
	BuildID   = "unknown"
	GitCommit = "unknown"
	GitBranch = "unknown"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	v := viper.New()
	var configPath string

	cmd := &cobra.Command{
		Use:          "maskkit <dataset>",
		Short:        "Step through an image/mask dataset and erase mask regions with a brush",
		Args:         cobra.ExactArgs(1),
		Version:      Version,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			v.Set("dataset.root", args[0])
			cfg, err := config.FromViper(v, configPath)
			if err != nil {
				return err
			}
			return run(cfg)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&configPath, "config", "c", "", "path to a YAML config file")
	flags.Float64P("transparency", "t", 0.2, "initial mask overlay transparency (0-1)")
	flags.IntP("brush", "b", 20, "initial brush radius in image pixels")
	flags.String("port", ":8080", "listen address of the editor UI")
	flags.String("mode", "debug", "gin mode (debug, release)")
	flags.String("log-level", "", "log level (debug, info, warn, error); empty uses the mode default")

	_ = v.BindPFlag("editor.transparency", flags.Lookup("transparency"))
	_ = v.BindPFlag("editor.brush", flags.Lookup("brush"))
	_ = v.BindPFlag("server.port", flags.Lookup("port"))
	_ = v.BindPFlag("server.mode", flags.Lookup("mode"))
	_ = v.BindPFlag("server.log_level", flags.Lookup("log-level"))

	return cmd
}

func run(cfg *config.Config) error {
	if err := utils.InitLogger(cfg.Server.Mode, cfg.Server.LogLevel); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer utils.Sync()

	utils.Logger.Info("starting MaskKit",
		zap.String("version", Version),
		zap.String("build_time", BuildTime),
		zap.String("git_commit", GitCommit),
		zap.String("git_branch", GitBranch),
		zap.String("dataset", cfg.Dataset.Root))

	ds, err := service.PrepareDataset(
		filepath.Join(cfg.Dataset.Root, cfg.Dataset.ImageDir),
		filepath.Join(cfg.Dataset.Root, cfg.Dataset.MaskDir),
		cfg.Dataset.Extensions)
	if err != nil {
		utils.Logger.Error("invalid dataset", zap.Error(err))
		return err
	}

	editor, err := service.NewEditor(ds, cfg.Editor)
	if err != nil {
		utils.Logger.Error("failed to open editor", zap.Error(err))
		return err
	}

	if cfg.Session.Enabled {
		sessions := service.NewSessionStore(&cfg.Redis)
		defer sessions.Close()
		restoreSession(sessions, editor, cfg.Dataset.Root)
	}

	gin.SetMode(cfg.Server.Mode)
	r, err := newRouter(editor)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	utils.Logger.Info("server starting", zap.String("port", cfg.Server.Port))
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		utils.Logger.Error("server stopped", zap.Error(err))
		return err
	}
	return nil
}

// newRouter 组装 gin 路由；界面文件编译进二进制，不依赖工作目录
func newRouter(editor *service.Editor) (*gin.Engine, error) {
	assets, err := fs.Sub(staticFiles, "static")
	if err != nil {
		return nil, err
	}
	index, err := fs.ReadFile(assets, "index.html")
	if err != nil {
		return nil, err
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.Logger())
	r.Use(middleware.CORS())

	r.StaticFS("/static", http.FS(assets))
	r.GET("/", func(c *gin.Context) {
		c.Data(http.StatusOK, "text/html; charset=utf-8", index)
	})

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"version": Version,
		})
	})

	r.GET("/version", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"version":    Version,
			"build_time": BuildTime,
			"build_id":   BuildID,
			"git_commit": GitCommit,
			"git_branch": GitBranch,
		})
	})

	handler.NewEditorHandler(editor).Register(r.Group("/api/v1"))
	return r, nil
}

// restoreSession 恢复上次的编辑位置，redis 不可用时仅关闭会话功能
func restoreSession(sessions *service.SessionStore, editor *service.Editor, root string) {
	ctx := context.Background()
	if err := sessions.Ping(ctx); err != nil {
		utils.Logger.Warn("redis connection failed, session disabled", zap.Error(err))
		return
	}

	key, err := service.SessionKey(root)
	if err != nil {
		utils.Logger.Warn("failed to derive session key", zap.Error(err))
		return
	}

	state, err := sessions.GetState(ctx, key)
	if err != nil {
		utils.Logger.Warn("failed to get session", zap.Error(err))
	}
	if state != nil {
		if err := editor.Restore(*state); err != nil {
			utils.Logger.Warn("failed to restore session", zap.Error(err))
		} else {
			utils.Logger.Info("session restored", zap.String("key", key), zap.Int("index", state.Index))
		}
	}

	editor.OnStateChange(sessions.Tracker(key))
}
