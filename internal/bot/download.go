package bot

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"path/filepath"
	"strings"

	"github.com/gezibash/netbridge/pkg/logging"
)

const downloadChunk = 32 << 10

// destination maps a remote file path to a sink name: the base name inside
// baseDir, or the bare base name when the remote path is absolute.
func destination(baseDir, remote string) (string, bool) {
	name := path.Base(remote)
	if remote == "" || name == "." || name == "/" {
		return "", false
	}
	if path.IsAbs(remote) || baseDir == "" {
		return name, true
	}
	return path.Join(filepath.ToSlash(baseDir), name), true
}

// redactURL hides the token secret in a file download URL.
func redactURL(raw string) string {
	const marker = "/file/bot"
	i := strings.Index(raw, marker)
	if i < 0 {
		return raw
	}
	rest := raw[i+len(marker):]
	j := strings.IndexByte(rest, '/')
	if j < 0 {
		return raw
	}
	return raw[:i] + marker + logging.RedactToken(rest[:j]) + rest[j:]
}

func (w *worker) download(ctx context.Context, r GetFile) error {
	f, err := w.api.GetFile(ctx, r.FileID)
	if err != nil {
		return w.fail(ctx, "get file error: %v", err)
	}
	name, ok := destination(r.BaseDir, f.FilePath)
	if !ok {
		return w.fail(ctx, "can't get file path")
	}

	fileURL := w.api.FileURL(f.FilePath)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fileURL, nil)
	if err != nil {
		return w.fail(ctx, "get file error: %v", err)
	}
	resp, err := w.client.Do(req)
	if err != nil {
		return w.fail(ctx, "get file error: %s", redactURL(err.Error()))
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return w.fail(ctx, "%s: %s", resp.Status, redactURL(fileURL))
	}

	out, err := w.sink.Create(ctx, name)
	if err != nil {
		return w.fail(ctx, "file create error: %v", err)
	}

	total := int64(f.FileSize)
	if total <= 0 {
		total = resp.ContentLength
	}

	var (
		done    int64
		lastPct = -1
		buf     = make([]byte, downloadChunk)
	)
	for {
		n, rerr := resp.Body.Read(buf)
		if n > 0 {
			if _, err := out.Write(buf[:n]); err != nil {
				_ = out.Abort()
				return w.fail(ctx, "can't write to file: %v", err)
			}
			done += int64(n)
			w.metrics.Bytes("bot", "download", n)

			if total > 0 {
				pct := int(min(done*100/total, 100))
				if pct != lastPct {
					lastPct = pct
					if !w.be.Progress(ctx, uint8(pct)) {
						_ = out.Abort()
						return w.fail(ctx, "download aborted: progress not delivered")
					}
				}
			}
		}
		if errors.Is(rerr, io.EOF) {
			break
		}
		if rerr != nil {
			_ = out.Abort()
			return w.fail(ctx, "get file error: %v", rerr)
		}
	}

	loc, err := out.Commit(ctx)
	if err != nil {
		return w.fail(ctx, "%v", err)
	}
	w.log.InfoContext(ctx, "file downloaded", "file_id", r.FileID, "location", loc, "bytes", done)
	w.be.Debug(ctx, fmt.Sprintf("file downloaded to '%s'", loc))
	return nil
}
