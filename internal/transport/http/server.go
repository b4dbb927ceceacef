package http

import (
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"medtree/internal/bootstrap"
	"medtree/internal/transport/http/handler"
	"medtree/internal/transport/http/middleware"
	"medtree/internal/transport/http/response"
)

func NewRouter(app *bootstrap.App) *gin.Engine {
	gin.SetMode(app.Config.App.GinMode)
	router := gin.New()
	router.MaxMultipartMemory = app.Config.MaxUploadBytes()

	if app.Config.Tracing.Enabled {
		router.Use(otelgin.Middleware(app.Config.App.Name))
	}
	router.Use(
		middleware.RequestID(),
		middleware.RequestLogger(app.Logger),
		middleware.Recovery(app.Logger),
		middleware.CORS(app.Config.App.FrontendURL),
	)

	uploadHandler := handler.NewUploadHandler(app.Structure, app.Logger, app.Config.MaxUploadBytes(), app.Config.IsDev())
	explainHandler := handler.NewExplainHandler(app.Explain)
	chatHandler := handler.NewChatHandler(app.Chat)
	healthHandler := handler.NewHealthHandler(app.Chat)

	router.POST("/upload-pdf", uploadHandler.UploadPDF)
	router.POST("/get-analogy", explainHandler.GetAnalogy)
	router.POST("/get-clinical", explainHandler.GetClinical)
	router.POST("/start-chat", chatHandler.StartChat)
	router.POST("/chat-message", chatHandler.SendMessage)
	router.POST("/end-chat", chatHandler.EndChat)
	router.GET("/health", healthHandler.Check)

	serveFrontend := frontendHandler(app.Config.App.StaticDir)
	router.NoRoute(func(c *gin.Context) {
		if serveFrontend(c) {
			return
		}
		response.Error(c, http.StatusNotFound, "Not found", c.Request.Method+" "+c.Request.URL.Path)
	})

	return router
}

// frontendHandler serves files under dir at the site root, with "/" mapped to
// index.html. API routes win because it only runs for unmatched requests.
func frontendHandler(dir string) func(c *gin.Context) bool {
	if dir == "" {
		return func(*gin.Context) bool { return false }
	}
	root, err := filepath.Abs(dir)
	if err != nil {
		return func(*gin.Context) bool { return false }
	}

	return func(c *gin.Context) bool {
		if c.Request.Method != http.MethodGet && c.Request.Method != http.MethodHead {
			return false
		}
		rel := path.Clean("/" + c.Request.URL.Path)
		if rel == "/" {
			rel = "/index.html"
		}
		file := filepath.Join(root, filepath.FromSlash(rel))
		if !strings.HasPrefix(file, root+string(filepath.Separator)) {
			return false
		}
		info, err := os.Stat(file)
		if err != nil || info.IsDir() {
			return false
		}
		c.File(file)
		return true
	}
}
