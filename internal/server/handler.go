package server

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/ginjaninja78/NFe-to-XLSX-conversion/internal/converter"
	"github.com/ginjaninja78/NFe-to-XLSX-conversion/internal/mapping"
	"github.com/ginjaninja78/NFe-to-XLSX-conversion/internal/profile"
	"github.com/ginjaninja78/NFe-to-XLSX-conversion/internal/validation"
	"github.com/ginjaninja78/NFe-to-XLSX-conversion/internal/xlsxwriter"
	"github.com/ginjaninja78/NFe-to-XLSX-conversion/pkg/utils"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// health handles GET /health
func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// listProfiles handles GET /api/v1/profiles
func (s *Server) listProfiles(c *gin.Context) {
	if s.profiles == nil {
		RespondOK(c, []profile.Profile{})
		return
	}
	list, err := s.profiles.List(c.Request.Context())
	if err != nil {
		s.handleError(c, err)
		return
	}
	RespondOK(c, list)
}

// convert handles POST /api/v1/convert
//
// Form fields:
//   - files: one or more XML documents (required)
//   - last_modified: optional Unix milliseconds, one per file in order
//   - mapping: optional YAML mapping document
//   - profile: optional stored profile id or name
//   - multiple_sheets, format_currency: optional booleans
//   - confirm: must be true above the confirmation threshold
func (s *Server) convert(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.cfg.Server.MaxUploadMB<<20)

	form, err := c.MultipartForm()
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			RespondError(c, http.StatusRequestEntityTooLarge, "UPLOAD_TOO_LARGE",
				fmt.Sprintf("upload exceeds %d MB", s.cfg.Server.MaxUploadMB))
			return
		}
		RespondError(c, http.StatusBadRequest, "INVALID_FORM", "expected a multipart form")
		return
	}

	headers := form.File["files"]
	if len(headers) == 0 {
		RespondError(c, http.StatusBadRequest, "MISSING_FILES", "at least one XML file is required in field files")
		return
	}

	switch validation.CheckFileCount(len(headers), s.cfg.MaxFiles, s.cfg.ConfirmThreshold) {
	case validation.Reject:
		RespondError(c, http.StatusBadRequest, "TOO_MANY_FILES",
			fmt.Sprintf("%d files sent, the limit is %d", len(headers), s.cfg.MaxFiles))
		return
	case validation.NeedsConfirmation:
		if ok, _ := strconv.ParseBool(c.PostForm("confirm")); !ok {
			RespondError(c, http.StatusPreconditionRequired, "CONFIRMATION_REQUIRED",
				fmt.Sprintf("%d files is above %d; resend with confirm=true", len(headers), s.cfg.ConfirmThreshold))
			return
		}
	}

	multipleSheets, err := boolField(c, "multiple_sheets", s.cfg.MultipleSheets)
	if err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_OPTION", err.Error())
		return
	}
	formatCurrency, err := boolField(c, "format_currency", s.cfg.FormatCurrency)
	if err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_OPTION", err.Error())
		return
	}

	m, err := s.requestMapping(c, form)
	if err != nil {
		if errors.Is(err, profile.ErrNotFound) {
			s.handleError(c, err)
			return
		}
		RespondError(c, http.StatusBadRequest, "INVALID_MAPPING", err.Error())
		return
	}
	if res := validation.ValidateMapping(m); !res.IsValid {
		RespondError(c, http.StatusBadRequest, "INVALID_MAPPING", validation.FormatErrors(res.Errors))
		return
	}

	inputs, err := inputFiles(headers, form.Value["last_modified"])
	if err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_OPTION", err.Error())
		return
	}

	wb, err := s.conv.Run(c.Request.Context(), inputs, m, converter.RunOptions{
		FormatCurrency: formatCurrency,
		Formats:        s.formats,
		Workbook: xlsxwriter.GenerateOptions{
			MultipleSheets:  multipleSheets,
			MaxRowsPerSheet: s.cfg.MaxRowsPerSheet,
		},
	})
	if err != nil {
		s.handleError(c, err)
		return
	}

	stats := wb.Result.Stats
	s.log.Info("conversion served",
		zap.String("request_id", c.GetString(requestIDKey)),
		zap.Int("files", stats.FilesProcessed),
		zap.Int("failed", stats.FilesFailed),
		zap.Int("rows", stats.RowsGenerated))

	name := utils.GenerateOutputFileName(s.cfg.OutputNameFormat, nil)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	c.Header("X-Files-Processed", strconv.Itoa(stats.FilesProcessed))
	c.Header("X-Files-Failed", strconv.Itoa(stats.FilesFailed))
	c.Header("X-Rows-Generated", strconv.Itoa(stats.RowsGenerated))
	c.Data(http.StatusOK, xlsxContentType, wb.Data)
}

// requestMapping picks the mapping for a request: an uploaded YAML
// document, then a named profile, then the active profile, then the
// built-in default.
func (s *Server) requestMapping(c *gin.Context, form *multipart.Form) (*mapping.FieldMapping, error) {
	if fhs := form.File["mapping"]; len(fhs) > 0 {
		data, err := readPart(fhs[0])
		if err != nil {
			return nil, err
		}
		return mapping.ParseYAML(data)
	}

	if s.profiles != nil {
		ctx := c.Request.Context()
		if ref := c.PostForm("profile"); ref != "" {
			p, err := s.profiles.Find(ctx, ref)
			if err != nil {
				return nil, err
			}
			return p.FieldMapping()
		}
		p, err := s.profiles.Active(ctx)
		switch {
		case err == nil:
			return p.FieldMapping()
		case !errors.Is(err, profile.ErrNotFound):
			return nil, err
		}
	}

	return mapping.Default(), nil
}

func inputFiles(headers []*multipart.FileHeader, lastModified []string) ([]converter.InputFile, error) {
	now := time.Now()
	files := make([]converter.InputFile, len(headers))
	for i, fh := range headers {
		fh := fh
		modified := now
		if i < len(lastModified) && lastModified[i] != "" {
			ms, err := strconv.ParseInt(lastModified[i], 10, 64)
			if err != nil {
				return nil, fmt.Errorf("last_modified[%d]: %w", i, err)
			}
			modified = time.UnixMilli(ms).UTC()
		}

		files[i] = converter.InputFile{
			Name:         fh.Filename,
			Size:         fh.Size,
			LastModified: modified,
			Open: func() (io.ReadCloser, error) {
				return fh.Open()
			},
		}
	}
	return files, nil
}

func readPart(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", fh.Filename, err)
	}
	defer f.Close()
	return io.ReadAll(f)
}

func boolField(c *gin.Context, name string, def bool) (bool, error) {
	raw, ok := c.GetPostForm(name)
	if !ok || raw == "" {
		return def, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("%s: expected a boolean, got %q", name, raw)
	}
	return v, nil
}
