package httpapi

import (
	"errors"
	"io"
	"net/http"

	"github.com/dmitrijs2005/idverifier/internal/common"
	"github.com/dmitrijs2005/idverifier/internal/server/models"
	"github.com/labstack/echo/v4"
)

// multipartOverhead is headroom for multipart framing on top of the file.
const multipartOverhead = 64 << 10

func (s *Server) handleVerify(c echo.Context) error {
	fh, err := c.FormFile("file")
	if err != nil {
		return c.JSON(http.StatusBadRequest, errorBody{Error: "file is required"})
	}

	meta := uploadMeta{
		Filename:    fh.Filename,
		ContentType: fh.Header.Get(echo.HeaderContentType),
		Size:        fh.Size,
	}
	if err := validateUpload(meta, s.maxUploadBytes); err != nil {
		return c.JSON(http.StatusBadRequest, errorBody{Error: err.Error()})
	}

	f, err := fh.Open()
	if err != nil {
		return err
	}
	defer f.Close()

	content, err := io.ReadAll(io.LimitReader(f, s.maxUploadBytes+1))
	if err != nil {
		return err
	}
	if int64(len(content)) > s.maxUploadBytes {
		return c.JSON(http.StatusBadRequest, errorBody{Error: "file is too large"})
	}

	ctx := c.Request().Context()
	res, err := s.verification.Verify(ctx, models.Document{
		Filename:    fh.Filename,
		ContentType: meta.ContentType,
		Content:     content,
	})
	switch {
	case err == nil:
		s.logger.Info(ctx, "document verified",
			"username", c.Get(ctxUsernameKey), "sha256", res.DocumentSHA256, "risk", res.RiskLevel)
		return c.JSON(http.StatusOK, res)
	case errors.Is(err, common.ErrDocumentRejected):
		return c.JSON(http.StatusBadRequest, errorBody{Error: err.Error()})
	case errors.Is(err, common.ErrProviderUnavailable):
		return c.JSON(http.StatusServiceUnavailable, errorBody{Error: "verification provider unavailable"})
	}

	s.logger.Error(ctx, "verification failed", "error", err)
	return c.JSON(http.StatusInternalServerError, errorBody{Error: "internal server error"})
}
