package api

import (
	"embed"
	"io/fs"
	"net/http"
	"os"

	"github.com/yegors/intel-pipeline/pkg/logger"
)

//go:embed web/static
var staticFS embed.FS

// NewStaticFileHandler serves dir when it is set and exists, and the
// embedded assets otherwise.
func NewStaticFileHandler(dir string, log *logger.Logger) http.Handler {
	if dir != "" {
		if info, err := os.Stat(dir); err == nil && info.IsDir() {
			log.Info("Serving static files from directory", logger.String("dir", dir))
			return http.FileServer(http.Dir(dir))
		}
		log.Warn("Static files directory not found, using embedded assets", logger.String("dir", dir))
	}

	sub, err := fs.Sub(staticFS, "web/static")
	if err != nil {
		// the embed pattern guarantees the directory
		panic(err)
	}
	return http.FileServer(http.FS(sub))
}
