package main

import (
	"context"
	"errors"
	"html/template"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/joho/godotenv/autoload"

	"github.com/gin-gonic/gin"
	"github.com/microcosm-cc/bluemonday"
	"go.uber.org/zap"

	"github.com/kanileenas/portfolio/internal/contact"
	"github.com/kanileenas/portfolio/internal/content"
	"github.com/kanileenas/portfolio/internal/logging"
	"github.com/kanileenas/portfolio/internal/view"
	"github.com/kanileenas/portfolio/internal/visitors"
)

// server carries everything the handlers need.
type server struct {
	cfg       Config
	site      *content.Site
	about     template.HTML
	views     *view.Registry
	visitors  *visitors.Store
	submitter contact.Submitter
	strip     *bluemonday.Policy
	logger    *zap.Logger
}

func main() {
	cfg, err := loadConfig()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		log.Fatalf("build logger: %v", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	site, err := content.LoadFile(cfg.ContentFile)
	if err != nil {
		logger.Fatal("load content", zap.Error(err))
	}

	views := view.NewRegistry(site, view.DefaultOptions(), cfg.ViewTTL, logger)
	views.SetLimit(cfg.ViewLimit)
	go views.Run(ctx, time.Minute)

	var store *visitors.Store
	if cfg.TrackVisitors {
		store, err = visitors.Open(cfg.VisitorDSN, logger)
		if err != nil {
			logger.Fatal("open visitor store", zap.Error(err))
		}
		defer store.Close()
		go store.RunCleanup(ctx, 24*time.Hour, cfg.VisitorRetention)
		logger.Info("visitor tracking enabled with hashed IP addresses")
	}

	srv, err := newServer(cfg, site, views, store, contact.Simulated{Delay: cfg.ContactDelay}, logger)
	if err != nil {
		logger.Fatal("build server", zap.Error(err))
	}

	httpSrv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           srv.router(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("shutdown", zap.Error(err))
		}
	}()

	logger.Info("portfolio listening", zap.String("addr", httpSrv.Addr), zap.String("mode", gin.Mode()))
	if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal("listen", zap.Error(err))
	}
}

func newServer(cfg Config, site *content.Site, views *view.Registry, store *visitors.Store, sub contact.Submitter, logger *zap.Logger) (*server, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	about, err := site.AboutHTML()
	if err != nil {
		return nil, err
	}
	return &server{
		cfg:       cfg,
		site:      site,
		about:     about,
		views:     views,
		visitors:  store,
		submitter: sub,
		strip:     bluemonday.StrictPolicy(),
		logger:    logger,
	}, nil
}

func (s *server) router() *gin.Engine {
	r := gin.New()
	r.Use(logging.Recovery(s.logger), logging.Requests(s.logger))
	if s.visitors != nil {
		r.Use(visitors.Middleware(s.visitors))
	}
	r.SetFuncMap(template.FuncMap{
		"year": func() int { return time.Now().Year() },
		// catalog hrefs are trusted; html/template would otherwise reject tel: links
		"trustedURL": func(u string) template.URL { return template.URL(u) },
	})
	r.LoadHTMLGlob(s.cfg.TemplatesGlob)

	r.Static("/images", "./images")
	r.Static("/static", "./static")

	r.GET("/healthz", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})

	// Home page route: every load mounts a fresh view
	r.GET("/", s.index)

	r.POST("/contact", s.submitContact)
	r.GET("/api/stats", s.stats)

	v := r.Group("/views/:id", s.withView)
	{
		v.GET("/state", s.state)
		v.DELETE("", s.unmount)
		v.POST("/unmount", s.unmount)

		v.POST("/sections/:section/intersect", s.intersect)
		v.POST("/scroll", s.scroll)

		v.GET("/counters", s.counters)
		v.GET("/counters/stream", s.counterStream)

		v.GET("/skills", s.skills)
		v.GET("/portfolio", s.portfolio)

		v.GET("/certificates/:cert", s.openCertificate)
		v.POST("/lightbox/click", s.clickLightbox)
		v.DELETE("/lightbox", s.closeLightbox)
	}
	return r
}
