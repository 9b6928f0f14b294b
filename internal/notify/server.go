package notify

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"adminbot/internal/models"
)

// Notifier delivers a new-order announcement to chats
type Notifier interface {
	NotifyNewOrder(ctx context.Context, order models.Order, recipients []int64) int
}

// Server accepts new-order webhooks from the backend
type Server struct {
	notifier   Notifier
	recipients []int64
	secret     string
	logger     *zap.Logger
	router     *gin.Engine
	server     *http.Server
}

type newOrderRequest struct {
	Order *models.Order `json:"order"`
}

// NewServer creates the notification server. An empty secret disables the
// X-Webhook-Secret check.
func NewServer(port int, secret string, recipients []int64, notifier Notifier, logger *zap.Logger) *Server {
	s := &Server{
		notifier:   notifier,
		recipients: recipients,
		secret:     secret,
		logger:     logger,
	}

	router := gin.New()
	router.Use(requestLogger(logger), gin.Recovery())
	router.POST("/webhook/new-order", s.handleNewOrder)
	s.router = router

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
	return s
}

// Handler returns the HTTP handler, used in tests
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves in the background until Shutdown
func (s *Server) Start() {
	go func() {
		s.logger.Info("Starting notification server", zap.String("addr", s.server.Addr))
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("Notification server error", zap.Error(err))
		}
	}()
}

// Shutdown stops the server gracefully
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *Server) handleNewOrder(c *gin.Context) {
	if s.secret != "" && subtle.ConstantTimeCompare([]byte(c.GetHeader("X-Webhook-Secret")), []byte(s.secret)) != 1 {
		s.logger.Warn("Rejected notification with bad secret", zap.String("client_ip", c.ClientIP()))
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid webhook secret"})
		return
	}

	var req newOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Order == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No order data"})
		return
	}

	s.logger.Info("New order received via webhook", zap.Int64("order_id", req.Order.ID))

	sent := s.notifier.NotifyNewOrder(c.Request.Context(), *req.Order, s.recipients)
	if sent == 0 && len(s.recipients) > 0 {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Notification failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "notified": sent > 0})
}

// requestLogger logs every request through zap
func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Info("HTTP request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		)
	}
}
