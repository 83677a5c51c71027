package strokecmd

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/MeKo-Tech/stroke/internal/canvas"
	"github.com/MeKo-Tech/stroke/internal/protocol"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve a live canvas over HTTP: POST framed messages, GET a flattened PNG back",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("addr", "127.0.0.1:8089", "Listen address (host:port)")
	serveCmd.Flags().Int32("width", 2048, "Canvas width in pixels")
	serveCmd.Flags().Int32("height", 2048, "Canvas height in pixels")

	mustBind := func(key, name string) {
		if err := viper.BindPFlag(key, serveCmd.Flags().Lookup(name)); err != nil {
			panic(fmt.Sprintf("failed to bind flag: %v", err))
		}
	}
	mustBind("serve.addr", "addr")
	mustBind("serve.width", "width")
	mustBind("serve.height", "height")
}

// canvasServer exposes a single live CanvasState over HTTP for debugging: a
// POST of a framed message stream mutates it, a GET flattens and returns the
// current state as a PNG. Not a multi-session server — one canvas, no auth,
// meant for local inspection during a replay or a client integration test.
type canvasServer struct {
	mu    sync.Mutex
	state *canvas.CanvasState
}

func (s *canvasServer) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok"))
}

func (s *canvasServer) handleCanvasPNG(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	w.Header().Set("Content-Type", "image/png")
	if err := encodePNG(w, s.state); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func (s *canvasServer) handleApply(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	for {
		msg, err := protocol.ReadMessage(r.Body)
		if err != nil {
			break
		}
		s.state.ReceiveMessage(msg)
		count++
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprintf(w, "applied %d messages\n", count)
}

func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func runServe(cmd *cobra.Command, args []string) error {
	if logger == nil {
		initLogging()
	}

	addr := viper.GetString("serve.addr")
	width := viper.GetInt32("serve.width")
	height := viper.GetInt32("serve.height")

	state := canvas.NewCanvasState(width, height)
	state.SetLogger(logger)
	srv := &canvasServer{state: state}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", srv.handleHealthz)
	mux.Handle("/canvas.png", withCORS(http.HandlerFunc(srv.handleCanvasPNG)))
	mux.Handle("/apply", withCORS(http.HandlerFunc(srv.handleApply)))

	logger.Info("canvas debug server listening", "addr", addr, "width", width, "height", height)
	httpServer := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	return httpServer.ListenAndServe()
}
