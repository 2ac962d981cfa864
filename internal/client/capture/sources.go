package capture

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/dmitrijs2005/medkeeper/internal/client/models"
	"github.com/dmitrijs2005/medkeeper/internal/common"
	"github.com/dmitrijs2005/medkeeper/internal/filex"
	"github.com/dmitrijs2005/medkeeper/internal/netx"
)

const DefaultMaxImageBytes = 10 << 20

// CommandCamera captures a photo by running an external command that writes
// the image to stdout, e.g. "fswebcam --no-banner -".
type CommandCamera struct {
	Command  string
	MaxBytes int64
}

func (c CommandCamera) Capture(ctx context.Context) (models.Image, error) {
	fields := strings.Fields(c.Command)
	if len(fields) == 0 {
		return models.Image{}, fmt.Errorf("%w: no capture command configured", common.ErrCameraUnavailable)
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, fields[0], fields[1:]...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return models.Image{}, common.ErrCaptureCancelled
		}
		return models.Image{}, fmt.Errorf("%w: %v: %s", common.ErrCameraUnavailable, err, strings.TrimSpace(stderr.String()))
	}

	limit := c.MaxBytes
	if limit <= 0 {
		limit = DefaultMaxImageBytes
	}
	if int64(stdout.Len()) > limit {
		return models.Image{}, fmt.Errorf("%w: %w", common.ErrInvalidImage, filex.ErrFileTooLarge)
	}
	ct, err := netx.SniffImage(stdout.Bytes())
	if err != nil {
		return models.Image{}, fmt.Errorf("%w: %w", common.ErrCameraUnavailable, err)
	}
	return models.Image{Filename: "camera" + extFor(ct), ContentType: ct, Data: stdout.Bytes()}, nil
}

// FilePicker picks an image from disk. Prompt asks for the path; an empty
// answer cancels.
type FilePicker struct {
	Prompt   func(ctx context.Context) (string, error)
	MaxBytes int64
}

func (f FilePicker) Pick(ctx context.Context) (models.Image, error) {
	if f.Prompt == nil {
		return models.Image{}, common.ErrCaptureCancelled
	}
	path, err := f.Prompt(ctx)
	if err != nil {
		return models.Image{}, err
	}
	path = strings.Trim(strings.TrimSpace(path), `"'`)
	if path == "" {
		return models.Image{}, common.ErrCaptureCancelled
	}

	limit := f.MaxBytes
	if limit <= 0 {
		limit = DefaultMaxImageBytes
	}
	data, err := filex.ReadLimited(path, limit)
	if err != nil {
		if errors.Is(err, filex.ErrFileTooLarge) {
			return models.Image{}, fmt.Errorf("%w: %w", common.ErrInvalidImage, err)
		}
		return models.Image{}, err
	}
	ct, err := netx.SniffImage(data)
	if err != nil {
		return models.Image{}, fmt.Errorf("%w: %w", common.ErrInvalidImage, err)
	}
	return models.Image{Filename: filepath.Base(path), ContentType: ct, Data: data}, nil
}

func extFor(contentType string) string {
	switch contentType {
	case "image/jpeg":
		return ".jpg"
	case "image/png":
		return ".png"
	case "image/webp":
		return ".webp"
	case "image/heic":
		return ".heic"
	default:
		return ""
	}
}
