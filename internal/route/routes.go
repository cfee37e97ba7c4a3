package route

import (
	"net/http"
	"os"
	"path/filepath"

	"autosendpic/internal/config"
	"autosendpic/internal/handler"
	"autosendpic/internal/logger"
	"autosendpic/internal/middleware"
	"autosendpic/internal/repository"
	"autosendpic/internal/service/websocket"
)

// StaticDirectory holds the HTML pages and assets.
const StaticDirectory = "static"

// dynamicHTMLHandler serves /path as /static/path.html if the file exists; otherwise 404.
func dynamicHTMLHandler(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Path

	if path == "/" {
		path = "/index"
	}

	filePath := filepath.Join(StaticDirectory, filepath.Clean(path)+".html")

	if _, err := os.Stat(filePath); os.IsNotExist(err) {
		http.NotFound(w, r)
		return
	}

	http.ServeFile(w, r, filePath)
}

// Deps groups what the routes need.
type Deps struct {
	Controller handler.Controller
	Hub        *websocket.HubService
	Pictures   repository.PictureRepository
	Config     *config.Config
	Logger     *logger.Logger
	Session    string
}

// SetupRoutes registers HTTP routes, static file serving, API endpoints,
// and wraps the mux with the authentication middleware.
func SetupRoutes(d Deps) http.Handler {
	mux := http.NewServeMux()
	ctrl, log := d.Controller, d.Logger

	// Static files
	mux.Handle("/static/", http.StripPrefix("/static/", http.FileServer(http.Dir(StaticDirectory))))

	// Pipeline control
	mux.HandleFunc("/api/send/start", handler.StartSendHandler(ctrl, log))
	mux.HandleFunc("/api/send/stop", handler.StopSendHandler(ctrl, log))
	mux.HandleFunc("/api/send/toggle", handler.ToggleSendHandler(ctrl, log))
	mux.HandleFunc("/api/flash/toggle", handler.ToggleFlashHandler(ctrl, log))
	mux.HandleFunc("/api/snapshot", handler.SnapshotHandler(ctrl, log))
	mux.HandleFunc("/api/status", handler.StatusHandler(ctrl, log))
	mux.HandleFunc("/api/location", handler.LocationHandler(ctrl, log))
	mux.HandleFunc("/api/events", handler.EventsWebsocketHandler(d.Hub, log))

	// Catalog
	if d.Pictures != nil {
		mux.HandleFunc("/api/pictures", handler.GetPicturesHandler(d.Pictures, log))
		mux.HandleFunc("/api/pictures/view", handler.ViewPictureHandler(d.Pictures, log))
		mux.HandleFunc("/api/pictures/clear", handler.ClearPicturesHandler(d.Pictures, log))
	}

	// Log endpoints
	for _, name := range []string{"info", "warning", "error"} {
		file := name + ".log"
		mux.HandleFunc("/logs/"+name, handler.ShowLogsHandler(d.Config.LogDirectory, file))
		mux.HandleFunc("/logs/"+name+"/clear", handler.ClearLogsHandler(log, file))
	}

	// Auth endpoints
	mux.HandleFunc("/auth/login", handler.LoginHandler(d.Config.Password, d.Session, log))
	mux.HandleFunc("/auth/logout", handler.LogoutHandler)

	// Automatic HTML handler mapping for example: /settings -> /static/settings.html
	mux.HandleFunc("/", dynamicHTMLHandler)

	// Apply middleware
	return middleware.AuthMiddleware(d.Session, mux)
}
