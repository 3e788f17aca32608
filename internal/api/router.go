package api

import (
	"net/http"
	"strings"
	"time"

	"bidding-app/internal/api/handlers"
	"bidding-app/internal/api/middleware"
	"bidding-app/internal/domain"
	"bidding-app/internal/infrastructure/websocket"
	"bidding-app/pkg/logger"

	"github.com/gorilla/mux"
	"github.com/labstack/echo/v4"
	echoMiddleware "github.com/labstack/echo/v4/middleware"
)

// RouterConfig holds the router settings. AllowedOrigins lists browser
// origins allowed to make credentialed calls; empty allows every origin
// without credentials.
type RouterConfig struct {
	HubPath        string
	ServiceName    string
	Version        string
	AllowedOrigins []string
}

// NewRouter wires the product offer REST API (echo) and the notification hub
// (gorilla/mux) behind one handler.
func NewRouter(cfg RouterConfig, productOffers *handlers.ProductOfferHandler,
	hub *websocket.HubHandler, connManager *websocket.ConnectionManager, events domain.EventSubscriber,
	log logger.Logger) *echo.Echo {
	hubPath := "/" + strings.Trim(cfg.HubPath, "/")

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Middleware
	e.Use(echoMiddleware.RequestID())
	e.Use(echoMiddleware.Recover())
	allowOrigins, allowCredentials := []string{"*"}, false
	if len(cfg.AllowedOrigins) > 0 {
		allowOrigins, allowCredentials = cfg.AllowedOrigins, true
	}
	e.Use(echoMiddleware.CORSWithConfig(echoMiddleware.CORSConfig{
		AllowOrigins: allowOrigins,
		AllowMethods:    []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders: []string{
			echo.HeaderOrigin,
			echo.HeaderContentType,
			echo.HeaderAccept,
			echo.HeaderAuthorization,
			echo.HeaderXRequestedWith,
		},
		AllowCredentials: allowCredentials,
		MaxAge:           86400,
	}))

	// Request logging middleware
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			req := c.Request()
			log.Info("Request handled",
				"request_id", c.Response().Header().Get(echo.HeaderXRequestID),
				"method", req.Method,
				"path", req.URL.Path,
				"status", c.Response().Status,
				"remote_addr", c.RealIP(),
				"latency", time.Since(start).String())
			return err
		}
	})

	// API routes
	api := e.Group("/api/ProductOffer")
	api.GET("/getProducts", productOffers.GetProducts)
	api.POST("/placeBid", productOffers.PlaceBid)
	api.GET("/bidHistory/:id", productOffers.GetBidHistory)

	// Hub routes are served by mux with its own CORS handling.
	hubRouter := mux.NewRouter()
	hubRouter.Use(middleware.CORSWithLogging(cfg.AllowedOrigins, log))
	hubRouter.HandleFunc(hubPath+"/negotiate", hub.Negotiate).Methods(http.MethodPost, http.MethodOptions)
	hubRouter.HandleFunc(hubPath, hub.HandleConnection).Methods(http.MethodGet)
	hubHandler := echo.WrapHandler(hubRouter)
	e.Any(hubPath, hubHandler)
	e.Any(hubPath+"/*", hubHandler)

	// Health check endpoint
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]interface{}{
			"status":            "ok",
			"service":           cfg.ServiceName,
			"timestamp":         time.Now().Format(time.RFC3339),
			"connections":       connManager.Count(),
			"event_subscribers": events.Subscribers(),
			"version":           cfg.Version,
		})
	})

	return e
}
