package assets

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// Serve exposes the bundled documents over HTTP on addr until ctx ends.
// It returns the base URL once the listener is up, so URL sources can be
// exercised without a network. Use ":0" or "127.0.0.1:0" for a free port.
func Serve(ctx context.Context, addr string, log *zap.Logger) (string, error) {
	if log == nil {
		log = zap.NewNop()
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return "", fmt.Errorf("assets: listen %s: %w", addr, err)
	}

	srv := &http.Server{
		Handler:           http.FileServer(http.FS(FS)),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("asset server stopped", zap.Error(err))
		}
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	base := "http://" + ln.Addr().String()
	log.Info("serving bundled assets", zap.String("url", base))
	return base, nil
}
