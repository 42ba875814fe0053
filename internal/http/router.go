package http

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"sipelan-service/internal/http/middleware"
)

type RouterConfig struct {
	Env            string
	MaxUploadBytes int64
	// RateLimit builds a limiter for a named public endpoint. Nil disables limiting.
	RateLimit func(name string) gin.HandlerFunc
}

func NewRouter(handler *Handler, authMiddleware gin.HandlerFunc, log zerolog.Logger, cfg RouterConfig) *gin.Engine {
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger(log))
	router.Use(cors.New(cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:    []string{"*"},
		ExposeHeaders:   []string{"Content-Type", middleware.RequestIDHeader},
		MaxAge:          12 * time.Hour,
	}))
	if cfg.MaxUploadBytes > 0 {
		// multipart parts beyond this spill to temp files
		router.MaxMultipartMemory = cfg.MaxUploadBytes
	}

	limit := func(name string) gin.HandlerFunc {
		if cfg.RateLimit == nil {
			return func(c *gin.Context) { c.Next() }
		}
		return cfg.RateLimit(name)
	}

	router.GET("/healthz", handler.healthz)

	public := router.Group("")
	{
		public.POST("/pengaduan", limit("submit"), handler.submitComplaint)
		public.GET("/pengaduan/tracking/:kode", limit("tracking"), handler.trackComplaint)
		public.GET("/kategori", handler.listCategories)
		public.POST("/auth/login", limit("login"), handler.login)
	}

	protected := router.Group("")
	protected.Use(authMiddleware)
	{
		protected.GET("/auth/me", handler.me)

		protected.GET("/pengaduan", handler.listComplaints)
		protected.GET("/pengaduan/statistik", handler.complaintStatistics)
		protected.GET("/pengaduan/:id", handler.getComplaint)
		protected.PUT("/pengaduan/:id/status", handler.updateComplaintStatus)
		protected.POST("/pengaduan/:id/tanggapan", handler.respondToComplaint)

		protected.POST("/disposisi", handler.createDisposition)
		protected.GET("/disposisi", handler.listDispositions)

		protected.GET("/bidang", handler.listBidang)
	}

	admin := protected.Group("")
	admin.Use(middleware.RequireAdmin())
	{
		admin.POST("/bidang", handler.createBidang)
		admin.PUT("/bidang/:id", handler.updateBidang)
		admin.DELETE("/bidang/:id", handler.deleteBidang)
		admin.POST("/kategori", handler.createCategory)
		admin.POST("/users", handler.createUser)
	}

	return router
}
