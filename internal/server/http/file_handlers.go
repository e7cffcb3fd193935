package httpserver

import (
	"errors"
	"mime"
	"net/http"
	"strconv"

	"github.com/and161185/filevault/internal/errs"
	"github.com/and161185/filevault/internal/model"
	"github.com/and161185/filevault/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/gofrs/uuid/v5"
)

// multipartSlack covers form boundaries and part headers on top of the file.
const multipartSlack = 1 << 20

func (s *Server) handleUpload(c *gin.Context) {
	if s.opts.MaxUploadSize > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.opts.MaxUploadSize+multipartSlack)
	}
	fh, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.writeError(c, errs.Validation("file too large"))
			return
		}
		s.writeError(c, errs.Validation("file is required"))
		return
	}
	f, err := fh.Open()
	if err != nil {
		s.writeError(c, err)
		return
	}
	defer f.Close()

	rec, err := s.files.Store(c.Request.Context(), currentUser(c).ID, model.Upload{
		OriginalName: fh.Filename,
		Size:         fh.Size,
		MimeType:     fh.Header.Get("Content-Type"),
		Body:         f,
	})
	if err != nil {
		s.writeError(c, err)
		return
	}
	respond(c, http.StatusCreated, rec, "file uploaded successfully")
}

func queryInt(c *gin.Context, key string, def int) (int, bool) {
	v := c.Query(key)
	if v == "" {
		return def, true
	}
	n, err := strconv.Atoi(v)
	return n, err == nil
}

func (s *Server) handleList(c *gin.Context) {
	page, okPage := queryInt(c, "page", 1)
	limit, okLimit := queryInt(c, "limit", service.DefaultPageSize)
	if !okPage || !okLimit {
		s.writeError(c, errs.Validation("page and limit must be numbers"))
		return
	}
	files, err := s.files.List(c.Request.Context(), currentUser(c).ID, page, limit)
	if err != nil {
		s.writeError(c, err)
		return
	}
	respond(c, http.StatusOK, files, "files fetched successfully")
}

// fileID parses the path id; an unparsable id names no file.
func (s *Server) fileID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.FromString(c.Param("fileId"))
	if err != nil {
		s.writeError(c, errs.NotFound("file not found"))
		return uuid.Nil, false
	}
	return id, true
}

func (s *Server) handleGetFile(c *gin.Context) {
	id, ok := s.fileID(c)
	if !ok {
		return
	}
	rec, err := s.files.GetMetadata(c.Request.Context(), id, currentUser(c).ID)
	if err != nil {
		s.writeError(c, err)
		return
	}
	respond(c, http.StatusOK, rec, "file fetched successfully")
}

func (s *Server) handleDownload(c *gin.Context) {
	id, ok := s.fileID(c)
	if !ok {
		return
	}
	rec, rc, err := s.files.Download(c.Request.Context(), id, currentUser(c).ID)
	if err != nil {
		s.writeError(c, err)
		return
	}
	defer rc.Close()

	disposition := mime.FormatMediaType("attachment", map[string]string{"filename": rec.OriginalName})
	if disposition == "" {
		disposition = "attachment"
	}
	c.DataFromReader(http.StatusOK, rec.Size, rec.MimeType, rc, map[string]string{
		"Content-Disposition": disposition,
	})
}

func (s *Server) handleDeleteFile(c *gin.Context) {
	id, ok := s.fileID(c)
	if !ok {
		return
	}
	if err := s.files.Delete(c.Request.Context(), id, currentUser(c).ID); err != nil {
		s.writeError(c, err)
		return
	}
	respond(c, http.StatusOK, nil, "file deleted successfully")
}
