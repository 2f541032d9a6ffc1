package main

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"quotefeed/internal/app"
	"quotefeed/internal/config"
	"quotefeed/internal/logging"
	"quotefeed/internal/provider"
)

const maxSymbols = 1000

// quoteFetcher is the part of *feed.Feed the handlers use.
type quoteFetcher interface {
	FetchOne(ctx context.Context, symbol string) provider.Quote
	FetchMany(ctx context.Context, symbols []string) []provider.Quote
}

type quotesResponse struct {
	Quotes []provider.Quote `json:"quotes"`
}

func main() {
	cfg, err := config.Load(os.Getenv("CONFIG_FILE"))
	if err != nil {
		logrus.Fatalf("config: %v", err)
	}
	log := logging.New(cfg.Log)

	f, err := app.NewFeed(cfg, log)
	if err != nil {
		log.Fatalf("feed: %v", err)
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           newHandler(f, cfg.Feed.Symbols, log),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Infof("server listening on :%s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server: %v", err)
		}
	}()

	// graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
}

func newHandler(f quoteFetcher, defaults []string, log logrus.FieldLogger) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("/api/quotes", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			handleGetQuotes(w, r, f, defaults, log)
		case http.MethodPost:
			handlePostQuotes(w, r, f, log)
		default:
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		}
	})
	mux.HandleFunc("/api/quote", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		handleGetQuote(w, r, f, log)
	})
	return withJSONHeaders(withGzip(recoverPanic(log, limitBody(mux))))
}

func handleGetQuotes(w http.ResponseWriter, r *http.Request, f quoteFetcher, defaults []string, log logrus.FieldLogger) {
	symbols := defaults
	if q := r.URL.Query().Get("symbols"); strings.TrimSpace(q) != "" {
		symbols = config.SplitSymbols(q)
	}
	if len(symbols) > maxSymbols {
		http.Error(w, "too many symbols (max 1000)", http.StatusBadRequest)
		return
	}
	writeJSON(w, log, quotesResponse{Quotes: f.FetchMany(r.Context(), symbols)})
}

type postBody struct {
	Symbols []string `json:"symbols"`
}

func handlePostQuotes(w http.ResponseWriter, r *http.Request, f quoteFetcher, log logrus.FieldLogger) {
	var b postBody
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&b); err != nil {
		http.Error(w, "invalid JSON body", http.StatusBadRequest)
		return
	}
	symbols := config.SplitSymbols(strings.Join(b.Symbols, ","))
	if len(symbols) > maxSymbols {
		http.Error(w, "too many symbols (max 1000)", http.StatusBadRequest)
		return
	}
	writeJSON(w, log, quotesResponse{Quotes: f.FetchMany(r.Context(), symbols)})
}

func handleGetQuote(w http.ResponseWriter, r *http.Request, f quoteFetcher, log logrus.FieldLogger) {
	symbol := strings.ToUpper(strings.TrimSpace(r.URL.Query().Get("symbol")))
	if symbol == "" {
		http.Error(w, "missing symbol query param", http.StatusBadRequest)
		return
	}
	writeJSON(w, log, f.FetchOne(r.Context(), symbol))
}

// writeJSON encodes v before writing the status so an encoding failure can
// still be reported as a 500.
func writeJSON(w http.ResponseWriter, log logrus.FieldLogger, v any) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		log.WithError(err).Error("encoding response")
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func withJSONHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		// Basic CORS so the dashboard can call us from the browser.
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type,Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// withGzip compresses response when client supports gzip.
func withGzip(next http.Handler) http.Handler {
	var gzPool = sync.Pool{New: func() any {
		w, _ := gzip.NewWriterLevel(io.Discard, gzip.BestSpeed)
		return w
	}}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.Header.Get("Accept-Encoding"), "gzip") {
			next.ServeHTTP(w, r)
			return
		}
		gz := gzPool.Get().(*gzip.Writer)
		gz.Reset(w)
		defer func() {
			_ = gz.Close()
			gz.Reset(io.Discard)
			gzPool.Put(gz)
		}()
		w.Header().Set("Content-Encoding", "gzip")
		w.Header().Add("Vary", "Accept-Encoding")
		next.ServeHTTP(gzipResponseWriter{ResponseWriter: w, Writer: gz}, r)
	})
}

type gzipResponseWriter struct {
	http.ResponseWriter
	Writer io.Writer
}

func (g gzipResponseWriter) Write(b []byte) (int, error) {
	return g.Writer.Write(b)
}

// limitBody caps request body size.
func limitBody(next http.Handler) http.Handler {
	const maxBody = 1 << 20 // 1MB
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost && r.Body != nil {
			r.Body = http.MaxBytesReader(w, r.Body, maxBody)
		}
		next.ServeHTTP(w, r)
	})
}

func recoverPanic(log logrus.FieldLogger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				log.WithField("path", r.URL.Path).Errorf("handler panic: %v", rec)
				http.Error(w, "internal server error", http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, r)
	})
}
