package services

import (
	"context"
	"encoding/base64"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"agent-optimus/models"
	"agent-optimus/storage"
	"agent-optimus/utils"
)

var unsafeNameRegexp = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// Uploader is the entry point for property CSV uploads.
type Uploader struct {
	bucket   storage.Bucket
	importer *Importer
	logger   *utils.Logger
	now      func() time.Time
}

func NewUploader(bucket storage.Bucket, importer *Importer, logger *utils.Logger) *Uploader {
	return &Uploader{bucket: bucket, importer: importer, logger: logger, now: time.Now}
}

// SubmitUpload stores the decoded file under the caller's upload prefix and
// imports it before returning.
func (u *Uploader) SubmitUpload(ctx context.Context, caller *models.Caller, fileName, fileContentBase64 string) (*CallResult, error) {
	if caller == nil || caller.ID == "" {
		return nil, newError(CodeUnauthenticated, "You must be logged in to upload files.", nil)
	}
	if fileName == "" || fileContentBase64 == "" {
		return nil, newError(CodeInvalidArgument, "Missing file name or content.", nil)
	}

	data, err := decodePayload(fileContentBase64)
	if err != nil {
		return nil, newError(CodeInvalidArgument, "File content is not valid base64.", err)
	}

	path := UploadPath(caller.ID, fileName, u.now(), uuid.NewString())
	if err := u.bucket.Put(ctx, path, data, "text/csv"); err != nil {
		u.logger.Error("[uploader] Storing upload %s for %s failed: %v", path, caller.ID, err)
		return nil, newError(CodeInternal, "An error occurred while processing the file.", err)
	}
	u.logger.Info("[uploader] Stored %s (%d bytes) for %s", path, len(data), caller.ID)

	summary, err := u.importer.Import(ctx, path, caller.ID)
	if err != nil {
		u.logger.Error("[uploader] Processing %s for %s failed: %v", path, caller.ID, err)
		return nil, newError(CodeInternal, "An error occurred while processing the file.", err)
	}

	return &CallResult{
		Success: true,
		Message: fmt.Sprintf("Successfully processed %d properties.", summary.Committed),
	}, nil
}

// UploadPath scopes an upload to its owner. uploadID keeps concurrent
// uploads of the same name apart.
func UploadPath(ownerID, fileName string, at time.Time, uploadID string) string {
	name := unsafeNameRegexp.ReplaceAllString(filepath.Base(filepath.ToSlash(fileName)), "_")
	if name == "" || name == "." || name == ".." {
		name = "upload.csv"
	}
	return fmt.Sprintf("uploads/%s/%d_%s_%s", ownerID, at.UnixMilli(), uploadID, name)
}

// decodePayload accepts plain base64 or a data URL.
func decodePayload(s string) ([]byte, error) {
	if strings.HasPrefix(s, "data:") {
		if i := strings.Index(s, "base64,"); i >= 0 {
			s = s[i+len("base64,"):]
		}
	}
	s = strings.Map(func(r rune) rune {
		switch r {
		case '\n', '\r', ' ', '\t':
			return -1
		}
		return r
	}, s)
	return base64.StdEncoding.DecodeString(s)
}
