package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/idverifier/internal/common"
	"github.com/dmitrijs2005/idverifier/internal/logging"
	"github.com/dmitrijs2005/idverifier/internal/server/models"
)

// VerificationProvider analyzes an identity document, e.g. an OCR or
// tamper-detection backend.
type VerificationProvider interface {
	Analyze(ctx context.Context, doc models.Document) (*models.VerificationResult, error)
}

// DocumentArchive persists an uploaded document and returns its key.
type DocumentArchive interface {
	Store(ctx context.Context, contentType, sha256 string, body []byte) (string, error)
}

// UnavailableProvider is used when no real provider is configured.
type UnavailableProvider struct{}

func (UnavailableProvider) Analyze(context.Context, models.Document) (*models.VerificationResult, error) {
	return nil, common.ErrProviderUnavailable
}

type VerificationService struct {
	provider VerificationProvider
	archive  DocumentArchive
	logger   logging.Logger
}

// NewVerificationService wires a provider and an optional archive (nil
// disables archiving). A nil provider means UnavailableProvider.
func NewVerificationService(provider VerificationProvider, archive DocumentArchive, logger logging.Logger) *VerificationService {
	if provider == nil {
		provider = UnavailableProvider{}
	}
	return &VerificationService{
		provider: provider,
		archive:  archive,
		logger:   logger.With("module", "verification"),
	}
}

// ErrEmptyResult is returned when a provider reports neither a result nor
// an error.
var ErrEmptyResult = errors.New("verification provider returned no result")

// Verify fingerprints the document and hands it to the provider. Only a
// successfully analyzed document is archived.
func (s *VerificationService) Verify(ctx context.Context, doc models.Document) (*models.VerificationResult, error) {
	if len(doc.Content) == 0 {
		return nil, fmt.Errorf("%w: empty document", common.ErrDocumentRejected)
	}

	sum := sha256.Sum256(doc.Content)
	doc.SHA256 = hex.EncodeToString(sum[:])

	res, err := s.provider.Analyze(ctx, doc)
	if err != nil {
		return nil, err
	}
	if res == nil {
		return nil, ErrEmptyResult
	}

	if s.archive != nil {
		key, err := s.archive.Store(ctx, doc.ContentType, doc.SHA256, doc.Content)
		if err != nil {
			s.logger.Error(ctx, "document archive failed", "sha256", doc.SHA256, "error", err)
			return nil, fmt.Errorf("archive document: %w", err)
		}
		res.ArchiveKey = key
		s.logger.Info(ctx, "document archived", "key", key, "sha256", doc.SHA256)
	}

	res.DocumentSHA256 = doc.SHA256
	if res.RiskLevel == "" {
		res.RiskLevel = models.RiskLevelForScore(res.RiskScore)
	}
	return res, nil
}
