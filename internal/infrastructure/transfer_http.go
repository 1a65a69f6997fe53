package infrastructure

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/yourusername/sonic-extract-go/internal/domain"
	"go.uber.org/zap"
)

// HTTPTransferWorker streams a remote media file to a local destination.
// Bytes land in a .part staging file that is promoted on completion, so a
// partially transferred destination is never observable. Pause requests
// are honored at chunk boundaries; when the source supports range
// requests a paused transfer resumes from the recorded byte offset,
// otherwise the worker reports a restart and begins over.
type HTTPTransferWorker struct {
	config *domain.TransferConfig
	client *http.Client
	logger *zap.Logger
}

// NewHTTPTransferWorker creates a transfer worker. The configured timeout
// bounds response headers only; body streaming is governed by the task
// context.
func NewHTTPTransferWorker(config *domain.TransferConfig, logger *zap.Logger) *HTTPTransferWorker {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.ResponseHeaderTimeout = config.Timeout
	return &HTTPTransferWorker{
		config: config,
		client: &http.Client{Transport: transport},
		logger: logger,
	}
}

// Run executes one transfer attempt
func (w *HTTPTransferWorker) Run(ctx context.Context, req domain.TransferRequest, pause <-chan struct{}, cb domain.TransferCallbacks) error {
	partPath := req.Destination + ".part"

	if err := os.MkdirAll(filepath.Dir(req.Destination), 0755); err != nil {
		return fmt.Errorf("%w: failed to create destination directory: %v", domain.ErrTransfer, err)
	}

	offset := req.ResumeOffset
	if offset > 0 {
		info, err := os.Stat(partPath)
		if err != nil || info.Size() != offset {
			// staging file is gone or does not match the recorded
			// offset, start over
			offset = 0
		}
	}

	resp, resumable, err := w.open(ctx, req.Reference, offset)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if offset > 0 && resp.StatusCode == http.StatusOK {
		// the source ignored our Range header
		w.logger.Warn("Source does not support range requests, restarting",
			zap.String("task_id", req.TaskID),
			zap.String("reference", req.Reference))
		if cb.OnResumeFallback != nil {
			cb.OnResumeFallback()
		}
		offset = 0
	}

	file, err := w.openPart(partPath, offset)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrTransfer, err)
	}
	defer file.Close()

	total := totalSize(resp, offset, req.Metadata)
	written := offset
	lastPercent := -1
	buf := make([]byte, w.config.ChunkSize)

	for {
		select {
		case <-ctx.Done():
			// cancellation leaves no partial output behind
			file.Close()
			os.Remove(partPath)
			return ctx.Err()
		case <-pause:
			if err := file.Sync(); err != nil {
				return fmt.Errorf("%w: failed to flush staging file: %v", domain.ErrTransfer, err)
			}
			if cb.OnPauseAck != nil {
				cb.OnPauseAck(written, resumable)
			}
			return domain.ErrTransferPaused
		default:
		}

		n, rerr := resp.Body.Read(buf)
		if n > 0 {
			if _, werr := file.Write(buf[:n]); werr != nil {
				return fmt.Errorf("%w: failed to write staging file: %v", domain.ErrTransfer, werr)
			}
			written += int64(n)
			if percent := percentOf(written, total); percent != lastPercent {
				lastPercent = percent
				if cb.OnProgress != nil {
					cb.OnProgress(percent)
				}
			}
		}
		if rerr == io.EOF {
			break
		}
		if rerr != nil {
			if ctx.Err() != nil {
				file.Close()
				os.Remove(partPath)
				return ctx.Err()
			}
			return fmt.Errorf("%w: read from source: %v", domain.ErrTransfer, rerr)
		}
	}

	if err := file.Close(); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrTransfer, err)
	}
	if err := os.Rename(partPath, req.Destination); err != nil {
		return fmt.Errorf("%w: failed to promote staging file: %v", domain.ErrTransfer, err)
	}

	w.logger.Debug("Transfer finished",
		zap.String("task_id", req.TaskID),
		zap.String("destination", req.Destination),
		zap.Int64("bytes", written))
	return nil
}

// open issues the GET request, ranged when offset is nonzero, and reports
// whether the source supports continuation
func (w *HTTPTransferWorker) open(ctx context.Context, reference string, offset int64) (*http.Response, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reference, nil)
	if err != nil {
		return nil, false, fmt.Errorf("%w: %v", domain.ErrTransfer, err)
	}
	if offset > 0 {
		req.Header.Set("Range", fmt.Sprintf("bytes=%d-", offset))
	}

	resp, err := w.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, false, ctx.Err()
		}
		return nil, false, fmt.Errorf("%w: %v", domain.ErrTransfer, err)
	}

	switch resp.StatusCode {
	case http.StatusOK, http.StatusPartialContent:
	default:
		resp.Body.Close()
		return nil, false, fmt.Errorf("%w: source returned status %d", domain.ErrTransfer, resp.StatusCode)
	}

	resumable := resp.StatusCode == http.StatusPartialContent ||
		resp.Header.Get("Accept-Ranges") == "bytes"
	return resp, resumable, nil
}

// openPart opens the staging file, appending when continuing from an
// offset and truncating otherwise
func (w *HTTPTransferWorker) openPart(path string, offset int64) (*os.File, error) {
	if offset > 0 {
		return os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0644)
	}
	return os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0644)
}

// totalSize works out the expected final size, preferring the response
// length and falling back to resolved metadata
func totalSize(resp *http.Response, offset int64, meta *domain.MediaMetadata) int64 {
	if resp.ContentLength > 0 {
		return offset + resp.ContentLength
	}
	if meta != nil && meta.SizeBytes > 0 {
		return meta.SizeBytes
	}
	return 0
}

// percentOf computes transfer progress, returning 0 when the total is
// unknown
func percentOf(written, total int64) int {
	if total <= 0 {
		return 0
	}
	percent := int(written * 100 / total)
	if percent > 100 {
		percent = 100
	}
	return percent
}

var _ domain.TransferWorker = (*HTTPTransferWorker)(nil)
