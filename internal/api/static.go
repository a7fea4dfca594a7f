package api

import (
	"embed"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-contrib/static"
	"github.com/gin-gonic/gin"
)

// Embedded diagnostics page served at "/". Unlike the dashboard bundles this
// pattern usually serves, there's no build step here: it's a single static
// page linking to the JSON endpoints and the Swagger UI.
//
//go:embed web/*
var embeddedWeb embed.FS

func getEmbedFS() static.ServeFileSystem {
	fs, err := static.EmbedFolder(embeddedWeb, "web")
	if err != nil {
		panic("failed to get embedded web filesystem: " + err.Error())
	}
	return fs
}

// mountStatic serves the diagnostics page at "/" and falls back to
// index.html for any unmatched non-API route.
func mountStatic(r *gin.Engine, logger *slog.Logger) {
	webFS := getEmbedFS()
	r.Use(static.Serve("/", webFS))

	r.NoRoute(func(c *gin.Context) {
		if strings.HasPrefix(c.Request.RequestURI, "/api") || strings.HasPrefix(c.Request.RequestURI, "/swagger") {
			return
		}
		index, err := webFS.Open("index.html")
		if err != nil {
			logger.Error("failed to open index.html", "error", err)
			return
		}
		defer index.Close()
		stat, _ := index.Stat()
		http.ServeContent(c.Writer, c.Request, "index.html", stat.ModTime(), index)
	})
}
