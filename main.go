package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cloudwego/eino-ext/components/model/ark"
	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"storybook/internal/catalog"
	"storybook/internal/config"
	"storybook/internal/image"
	"storybook/internal/prompt"
	"storybook/internal/server"
	"storybook/internal/session"
	"storybook/internal/story"
	"storybook/internal/tools"
	"storybook/internal/volc"
)

func main() {
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	logrus.SetLevel(logrus.InfoLevel)

	// .env is a development convenience; production injects real env vars.
	if os.Getenv("APP_ENV") != "production" {
		godotenv.Load()
	}

	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("invalid configuration")
	}

	cat := catalog.New()
	prompts := prompt.NewBuilder(cfg.PromptVersion)

	arkClient := volc.NewArkClient(cfg.ArkBaseURL, cfg.ArkAPIKey, cfg.UpstreamTimeout, cfg.MockAPIs)

	var chat einomodel.BaseChatModel
	if cfg.MockAPIs {
		chat = &story.MockChatModel{}
		logrus.Warn("ARK_MOCK set, using canned upstream responses")
	} else {
		chat, err = ark.NewChatModel(context.Background(), &ark.ChatModelConfig{
			APIKey:     cfg.ArkAPIKey,
			Region:     "cn-beijing",
			HTTPClient: &http.Client{Timeout: cfg.UpstreamTimeout},
			Model:      cfg.ChatModel,
		})
		if err != nil {
			logrus.WithError(err).Fatal("failed to create chat model")
		}
	}

	stories := story.NewGenerator(chat, prompts, cfg.StoryRetries, cfg.UpstreamTimeout)
	images := image.NewRenderer(arkClient, prompts, cfg.ImageModel, cfg.ImageSize, cfg.UpstreamTimeout)

	store, err := session.NewStore(cfg.SessionRoot)
	if err != nil {
		logrus.WithError(err).Fatal("failed to open session store")
	}

	storyTool := tools.NewStoryTool(stories, cat)

	srv := server.New(cat, stories, images, store, storyTool,
		cfg.ArkAPIKey != "" || cfg.MockAPIs,
		arkClient.HasCredentials() || cfg.MockAPIs,
		cfg.MockAPIs)

	if cfg.Production() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.Default()
	srv.Routes(router)

	httpSrv := &http.Server{
		Addr:    cfg.BindAddr,
		Handler: router,
	}

	go func() {
		logrus.WithField("addr", cfg.BindAddr).Info("server listening")
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.WithError(err).Fatal("server failed")
		}
	}()

	// Expired sessions are reclaimed in the background until shutdown.
	sweepDone := make(chan struct{})
	go func() {
		ticker := time.NewTicker(cfg.SweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				store.Sweep(cfg.SessionTTL)
			case <-sweepDone:
				return
			}
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logrus.Info("shutting down")
	close(sweepDone)

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(ctx); err != nil {
		logrus.WithError(err).Fatal("forced shutdown")
	}

	// Last sweep on the way out so short-lived deployments do not leak
	// session directories.
	store.Sweep(cfg.SessionTTL)
	logrus.Info("server stopped")
}
