package edge

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"
)

// TranscodeFunc converts a raw recording into an uploadable MP4 and
// returns the output path.
type TranscodeFunc func(ctx context.Context, rawPath string) (string, error)

// ExecTranscode shells out to MP4Box, falling back to ffmpeg stream
// copy when MP4Box is not installed.
func ExecTranscode(ctx context.Context, rawPath string) (string, error) {
	mp4Path := strings.TrimSuffix(rawPath, filepath.Ext(rawPath)) + ".mp4"

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, "MP4Box", "-add", rawPath, mp4Path)
	cmd.Stderr = &stderr
	if err := cmd.Run(); err == nil {
		return mp4Path, nil
	}

	stderr.Reset()
	cmd = exec.CommandContext(ctx, "ffmpeg", "-y", "-i", rawPath, "-c", "copy", mp4Path)
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("transcode failed: %w, stderr: %s", err, stderr.String())
	}

	return mp4Path, nil
}

// CopyTranscode passes the raw file through unchanged; used by the
// simulated device, whose recordings are already self-contained.
func CopyTranscode(_ context.Context, rawPath string) (string, error) {
	return rawPath, nil
}
