package main

import (
	"context"
	"errors"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"classtrack/internal/attendance"
	"classtrack/internal/auth"
	"classtrack/internal/broadcast"
	"classtrack/internal/config"
	"classtrack/internal/credential"
	"classtrack/internal/httpmiddleware"
	"classtrack/internal/session"
	"classtrack/internal/store"
)

func main() {
	cfg := config.Load()

	// Set Gin mode based on environment
	if cfg.Env == "production" || cfg.Env == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := runHTTP(cfg); err != nil {
		log.Fatalf("http server failed: %v", err)
	}
}

func runHTTP(cfg config.App) error {
	var db *store.DB
	var err error
	if cfg.StoreBackend != "memory" {
		db, err = store.NewDB(cfg.DatabaseURL)
		if err != nil {
			log.Printf("warning: db not reachable: %v", err)
		} else if err := db.EnsureSchema(context.Background()); err != nil {
			log.Printf("warning: schema bootstrap failed: %v", err)
		}
	}
	defer func() {
		if db != nil {
			_ = db.Close()
		}
	}()

	redisClient := store.NewRedis(cfg.RedisAddr)

	var sessions session.Store
	var records attendance.Store
	if cfg.StoreBackend == "memory" {
		sessions = session.NewMemoryStore()
		records = attendance.NewMemoryStore()
	} else {
		sessions = session.NewRepository(db.Client)
		records = attendance.NewRepository(db.Client)
	}

	var caster broadcast.Broadcaster
	if cfg.BroadcastBackend == "memory" {
		caster = broadcast.NewMemory()
	} else {
		caster = broadcast.NewRedis(redisClient.Client)
	}

	issuer := credential.NewIssuer(sessions, caster, cfg.QRWindow)
	verifier := attendance.NewVerifier(sessions, records, caster)

	r := gin.New()

	// Recovery middleware
	r.Use(gin.Recovery())

	// Custom logger
	r.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		SkipPaths: []string{"/healthz", "/metrics"},
	}))

	// CORS middleware
	r.Use(corsMiddleware())

	// Security headers
	r.Use(securityHeaders())

	// Rate limiting
	r.Use(httpmiddleware.NewSimpleTokenBucket(cfg.RateLimitPerMin, cfg.RateLimitPerMin).GinMiddleware())

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.GET("/healthz", func(c *gin.Context) {
		redisHealthy := redisClient.Healthy(c.Request.Context())
		dbHealthy := db != nil || cfg.StoreBackend == "memory"
		status := http.StatusOK
		if !redisHealthy || !dbHealthy {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, gin.H{"status": "ok", "redis": redisHealthy, "db": dbHealthy})
	})

	r.POST("/v1/auth/register", func(c *gin.Context) {
		var req struct {
			UserID string `json:"user_id" binding:"required"`
			Role   string `json:"role" binding:"required,oneof=teacher student"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		tokens, err := auth.Issue(req.UserID, req.Role, cfg.JWTIssuer, cfg.JWTSigningKey, cfg.AccessTTL, cfg.RefreshTTL)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "token issue failed"})
			return
		}

		_ = redisClient.SaveRefreshToken(c.Request.Context(), tokens.RefreshToken, req.UserID, cfg.RefreshTTL)

		c.JSON(http.StatusCreated, gin.H{
			"access_token":  tokens.AccessToken,
			"refresh_token": tokens.RefreshToken,
			"expires_at":    tokens.AccessExp.Unix(),
		})
	})

	r.POST("/v1/auth/refresh", func(c *gin.Context) {
		var req struct {
			RefreshToken string `json:"refresh_token" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		claims, err := auth.Parse(req.RefreshToken, cfg.JWTSigningKey, cfg.JWTIssuer)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid refresh token"})
			return
		}
		subject, err := redisClient.LookupRefreshToken(c.Request.Context(), req.RefreshToken)
		if err != nil || subject != claims.Subject {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "refresh token not recognized"})
			return
		}

		tokens, err := auth.Issue(claims.Subject, claims.Role, cfg.JWTIssuer, cfg.JWTSigningKey, cfg.AccessTTL, cfg.RefreshTTL)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "token issue failed"})
			return
		}
		_ = redisClient.RevokeRefreshToken(c.Request.Context(), req.RefreshToken)
		_ = redisClient.SaveRefreshToken(c.Request.Context(), tokens.RefreshToken, claims.Subject, cfg.RefreshTTL)

		c.JSON(http.StatusOK, gin.H{
			"access_token":  tokens.AccessToken,
			"refresh_token": tokens.RefreshToken,
			"expires_at":    tokens.AccessExp.Unix(),
		})
	})

	authGroup := r.Group("/v1", auth.Bearer(cfg.JWTSigningKey, cfg.JWTIssuer))

	authGroup.POST("/sessions", auth.RequireRole(auth.RoleTeacher), func(c *gin.Context) {
		var req struct {
			Subject          string   `json:"subject" binding:"required"`
			Classroom        string   `json:"classroom" binding:"required"`
			Date             string   `json:"date" binding:"required"`
			StartTime        string   `json:"start_time" binding:"required"`
			EndTime          string   `json:"end_time" binding:"required"`
			EnrolledStudents []string `json:"enrolled_students"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		date, err := time.Parse("2006-01-02", req.Date)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "date must be YYYY-MM-DD"})
			return
		}

		claims := auth.FromContext(c)
		s, err := sessions.Create(c.Request.Context(), session.Session{
			TeacherID:        claims.Subject,
			Subject:          req.Subject,
			Classroom:        req.Classroom,
			Date:             date,
			StartTime:        req.StartTime,
			EndTime:          req.EndTime,
			EnrolledStudents: req.EnrolledStudents,
		})
		if err != nil {
			c.JSON(errStatus(err), gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusCreated, gin.H{"session": sessionView(s)})
	})

	authGroup.GET("/sessions/:id", func(c *gin.Context) {
		s, err := sessions.Get(c.Request.Context(), c.Param("id"))
		if err != nil {
			c.JSON(errStatus(err), gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"session": sessionView(s)})
	})

	authGroup.POST("/sessions/:id/deactivate", auth.RequireRole(auth.RoleTeacher), func(c *gin.Context) {
		claims := auth.FromContext(c)
		s, err := sessions.Get(c.Request.Context(), c.Param("id"))
		if err != nil {
			c.JSON(errStatus(err), gin.H{"error": err.Error()})
			return
		}
		if s.TeacherID != claims.Subject {
			c.JSON(http.StatusForbidden, gin.H{"error": "not authorized for this session"})
			return
		}
		if err := sessions.Deactivate(c.Request.Context(), s.ID); err != nil {
			c.JSON(errStatus(err), gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "deactivated"})
	})

	authGroup.POST("/sessions/:id/qrcode", auth.RequireRole(auth.RoleTeacher), func(c *gin.Context) {
		claims := auth.FromContext(c)
		issued, err := issuer.Issue(c.Request.Context(), c.Param("id"), claims.Subject)
		if err != nil {
			c.JSON(errStatus(err), gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"qr_code":     issued.QRDataURL,
			"expiry_time": issued.ExpiresAt,
		})
	})

	authGroup.POST("/attendance/qr", auth.RequireRole(auth.RoleStudent), func(c *gin.Context) {
		var req struct {
			QRData string `json:"qr_data" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		claims := auth.FromContext(c)
		rec, err := verifier.Verify(c.Request.Context(), req.QRData, claims.Subject, time.Now().UTC())
		if err != nil {
			c.JSON(errStatus(err), gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"attendance": gin.H{
				"id":            rec.ID,
				"subject":       rec.Subject,
				"check_in_time": rec.CheckInTime,
				"status":        rec.Status,
			},
		})
	})

	authGroup.GET("/attendance", func(c *gin.Context) {
		claims := auth.FromContext(c)
		var f attendance.Filter
		if v := c.Query("start_date"); v != "" {
			if parsed, err := time.Parse("2006-01-02", v); err == nil {
				f.From = parsed
			}
		}
		if v := c.Query("end_date"); v != "" {
			if parsed, err := time.Parse("2006-01-02", v); err == nil {
				f.To = parsed
			}
		}
		f.Subject = c.Query("subject")

		recs, err := records.List(c.Request.Context(), claims.Subject, f)
		if err != nil {
			c.JSON(errStatus(err), gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"attendance": recordViews(recs),
			"statistics": attendance.Summarize(recs),
		})
	})

	authGroup.GET("/sessions/:id/events", func(c *gin.Context) {
		events, cancel, err := caster.Subscribe(c.Request.Context(), c.Param("id"))
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "event stream unavailable"})
			return
		}
		defer cancel()

		c.Writer.Header().Set("Cache-Control", "no-cache")
		c.Stream(func(w io.Writer) bool {
			select {
			case evt, ok := <-events:
				if !ok {
					return false
				}
				c.SSEvent(evt.Name, evt)
				return true
			case <-c.Request.Context().Done():
				return false
			}
		})
	})

	// Graceful shutdown
	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Printf("Starting server on :%s", cfg.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	// Give outstanding requests 10 seconds to complete
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced shutdown: %v", err)
	}

	log.Println("Server exited")
	return nil
}

// sessionView is the public session shape; the active token never leaves
// the registry.
func sessionView(s session.Session) gin.H {
	return gin.H{
		"id":                s.ID,
		"teacher_id":        s.TeacherID,
		"subject":           s.Subject,
		"classroom":         s.Classroom,
		"date":              s.Date.Format("2006-01-02"),
		"start_time":        s.StartTime,
		"end_time":          s.EndTime,
		"enrolled_students": s.EnrolledStudents,
		"attendance_count":  s.AttendanceCount,
		"active":            s.Active,
		"qr_expiry":         s.QRExpiry,
	}
}

func recordViews(recs []attendance.Record) []gin.H {
	views := make([]gin.H, 0, len(recs))
	for _, rec := range recs {
		views = append(views, gin.H{
			"id":            rec.ID,
			"session_id":    rec.SessionID,
			"subject":       rec.Subject,
			"status":        rec.Status,
			"method":        rec.Method,
			"location":      rec.Location,
			"verified":      rec.Verified,
			"check_in_time": rec.CheckInTime,
			"day":           rec.Day.Format("2006-01-02"),
		})
	}
	return views
}

// errStatus maps the domain error taxonomy to HTTP statuses.
func errStatus(err error) int {
	switch {
	case errors.Is(err, session.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, credential.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, attendance.ErrNotEnrolled):
		return http.StatusForbidden
	case errors.Is(err, credential.ErrMalformed):
		return http.StatusBadRequest
	case errors.Is(err, attendance.ErrCredentialInvalid):
		return http.StatusBadRequest
	case errors.Is(err, attendance.ErrAlreadyMarked):
		return http.StatusConflict
	case errors.Is(err, store.ErrUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// CORS middleware for browser requests
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if origin == "" {
			origin = "*"
		}

		c.Header("Access-Control-Allow-Origin", origin)
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization")
		c.Header("Access-Control-Allow-Credentials", "true")
		c.Header("Access-Control-Max-Age", "86400")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// Security headers middleware
func securityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("X-XSS-Protection", "1; mode=block")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")

		// Only add HSTS in production
		if gin.Mode() == gin.ReleaseMode {
			c.Header("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}

		c.Next()
	}
}
