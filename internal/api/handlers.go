package api

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/gin-gonic/gin"

	"github.com/piwi3910/cutplan/internal/export"
	"github.com/piwi3910/cutplan/internal/importer"
	"github.com/piwi3910/cutplan/internal/model"
	"github.com/piwi3910/cutplan/internal/report"
	"github.com/piwi3910/cutplan/internal/service"
)

var errUnknownFormat = errors.New("unknown export format")

type exporter struct {
	contentType string
	ext         string
	write       func(io.Writer, report.Response) error
}

var exporters = map[string]exporter{
	"pdf":    {"application/pdf", "pdf", export.PDF},
	"labels": {"application/pdf", "labels.pdf", export.Labels},
	"xlsx":   {"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", "xlsx", export.XLSX},
	"dxf":    {"application/dxf", "dxf", export.DXF},
}

func (s *Server) submit(c *gin.Context) {
	var req model.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		s.fail(c, fmt.Errorf("%w: %v", service.ErrInvalidRequest, err))
		return
	}
	t, err := s.svc.Submit(req)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.Header("Location", "/api/v1/tasks/"+t.ID)
	c.JSON(http.StatusAccepted, t.Snapshot())
}

func (s *Server) list(c *gin.Context) {
	c.JSON(http.StatusOK, s.svc.List())
}

func (s *Server) get(c *gin.Context) {
	t, err := s.svc.Get(c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, t.Snapshot())
}

func (s *Server) result(c *gin.Context) {
	resp, err := s.svc.Report(c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) export(c *gin.Context) {
	ex, ok := exporters[c.Param("format")]
	if !ok {
		s.fail(c, fmt.Errorf("%w: %s", errUnknownFormat, c.Param("format")))
		return
	}
	resp, err := s.svc.Report(c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	var buf bytes.Buffer
	if err := ex.write(&buf, resp); err != nil {
		s.fail(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="cutplan-%s.%s"`, resp.TaskID, ex.ext))
	c.Data(http.StatusOK, ex.contentType, buf.Bytes())
}

func (s *Server) stop(c *gin.Context) {
	s.halt(c, s.svc.Stop)
}

func (s *Server) terminate(c *gin.Context) {
	s.halt(c, s.svc.Terminate)
}

func (s *Server) halt(c *gin.Context, halt func(string) error) {
	id := c.Param("id")
	if err := halt(id); err != nil {
		s.fail(c, err)
		return
	}
	t, err := s.svc.Get(id)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, t.Snapshot())
}

// importList parses an uploaded CSV, Excel or DXF panel list. Row problems
// are reported in the body, not as an error status.
func (s *Server) importList(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		s.fail(c, fmt.Errorf("%w: %v", service.ErrInvalidRequest, err))
		return
	}

	dir, err := os.MkdirTemp("", "cutplan-import-")
	if err != nil {
		s.fail(c, err)
		return
	}
	defer os.RemoveAll(dir)

	path := filepath.Join(dir, filepath.Base(file.Filename))
	if err := c.SaveUploadedFile(file, path); err != nil {
		s.fail(c, err)
		return
	}
	res := importer.Import(path)
	if res.Panels == nil {
		res.Panels = []model.PanelInput{}
	}
	c.JSON(http.StatusOK, res)
}

// statusFor maps service errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrInvalidRequest), errors.Is(err, errUnknownFormat):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrTaskNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrServiceBusy):
		return http.StatusServiceUnavailable
	case errors.Is(err, model.ErrInvalidTransition):
		return http.StatusConflict
	case errors.Is(err, export.ErrNothingToExport):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) fail(c *gin.Context, err error) {
	code := statusFor(err)
	if code == http.StatusInternalServerError {
		s.log.Errorw("request failed", "path", c.FullPath(), "error", err)
	}
	if code == http.StatusServiceUnavailable {
		c.Header("Retry-After", "1")
	}
	c.AbortWithStatusJSON(code, gin.H{"error": err.Error(), "status": code})
}
