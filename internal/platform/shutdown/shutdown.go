package shutdown

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/SlpAus/michelin-vote-backend/pkg/lifecycle"
)

const (
	defaultHTTPTimeout       = 15 * time.Second
	defaultBackgroundTimeout = 5 * time.Second
)

// Closer 是停机最后阶段需要释放的资源
type Closer struct {
	Name  string
	Close func() error
}

// Coordinator 负责编排应用程序的优雅停机流程。
type Coordinator struct {
	Manager *lifecycle.Manager
	// Closers 在后台服务退出后按顺序关闭
	Closers []Closer

	HTTPTimeout       time.Duration
	BackgroundTimeout time.Duration

	logger *slog.Logger
}

// NewCoordinator 创建一个新的停机协调器。
func NewCoordinator(manager *lifecycle.Manager, logger *slog.Logger, closers ...Closer) *Coordinator {
	return &Coordinator{
		Manager:           manager,
		Closers:           closers,
		HTTPTimeout:       defaultHTTPTimeout,
		BackgroundTimeout: defaultBackgroundTimeout,
		logger:            logger,
	}
}

// ListenForSignalsAndShutdown 阻塞直到收到 SIGINT/SIGTERM 或 serverErr 有值，然后执行停机。
// 因服务器异常退出而停机时返回该错误。
func (c *Coordinator) ListenForSignalsAndShutdown(server *http.Server, serverErr <-chan error) error {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	var err error
	select {
	case sig := <-sigChan:
		c.logger.Info("收到关闭信号，开始优雅停机...", "signal", sig.String())
	case err = <-serverErr:
		c.logger.Error("HTTP服务器异常退出，开始停机...", "error", err)
	}

	c.Shutdown(server)
	return err
}

// Shutdown 依次关闭HTTP服务器、后台服务和底层资源。
func (c *Coordinator) Shutdown(server *http.Server) {
	// 关闭HTTP服务器，允许正在进行的请求完成
	shutdownCtx, cancel := context.WithTimeout(context.Background(), c.HTTPTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		c.logger.Error("Gin服务器关闭错误", "error", err)
	} else {
		c.logger.Info("Gin服务器已关闭。")
	}

	// 通知后台服务退出并等待
	c.Manager.Shutdown()
	if remaining := c.Manager.WaitWithTimeout(c.BackgroundTimeout); len(remaining) > 0 {
		c.logger.Warn("部分后台服务未能在超时前退出", "services", remaining, "timeout", c.BackgroundTimeout)
	} else {
		c.logger.Info("所有后台服务已关闭。")
	}

	for _, closer := range c.Closers {
		if err := closer.Close(); err != nil {
			c.logger.Error("关闭资源失败", "resource", closer.Name, "error", err)
		} else {
			c.logger.Info("资源已关闭", "resource", closer.Name)
		}
	}

	c.logger.Info("优雅停机完成。")
}
