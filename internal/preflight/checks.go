package preflight

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"mergeversions/internal/libstore"
	"mergeversions/internal/media"
	"mergeversions/internal/services"
	"mergeversions/internal/services/jellyfin"
)

const jellyfinCheckTimeout = 5 * time.Second

// CheckJellyfin verifies Jellyfin connectivity and authentication.
func CheckJellyfin(ctx context.Context, baseURL, apiKey string) Result {
	const name = "Jellyfin"

	if strings.TrimSpace(baseURL) == "" {
		return Result{Name: name, Detail: "missing url"}
	}
	if strings.TrimSpace(apiKey) == "" {
		return Result{Name: name, Detail: "missing api key"}
	}

	checkCtx, cancel := context.WithTimeout(ctx, jellyfinCheckTimeout)
	defer cancel()

	client := jellyfin.New(baseURL, apiKey, jellyfin.WithHTTPClient(&http.Client{Timeout: jellyfinCheckTimeout}))
	info, err := client.Ping(checkCtx)
	if err != nil {
		return Result{Name: name, Detail: summarizeJellyfinError(err)}
	}
	detail := "Reachable"
	if info.Version != "" {
		detail = fmt.Sprintf("Reachable (%s %s)", info.ServerName, info.Version)
	}
	return Result{Name: name, Passed: true, Detail: detail}
}

// CheckSQLite verifies the local library index opens and reports its size.
func CheckSQLite(ctx context.Context, path string) Result {
	const name = "Library index"

	if strings.TrimSpace(path) == "" {
		return Result{Name: name, Detail: "missing path"}
	}
	store, err := libstore.OpenPath(path)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: %v)", path, err)}
	}
	defer store.Close()

	movies, err := store.Count(ctx, media.KindMovie)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: %v)", path, err)}
	}
	episodes, err := store.Count(ctx, media.KindEpisode)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (%d movies, %d episodes)", path, movies, episodes)}
}

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

func summarizeJellyfinError(err error) string {
	if errors.Is(err, services.ErrConfiguration) {
		return "auth failed (invalid api key)"
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, services.ErrTimeout) {
		return "check timed out (server unresponsive)"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "check timed out (server unreachable)"
	}
	var statusErr *jellyfin.StatusError
	if errors.As(err, &statusErr) {
		return fmt.Sprintf("auth check failed (%d)", statusErr.StatusCode)
	}
	return fmt.Sprintf("auth check failed (%v)", err)
}
