package levy

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/marketlevy/backend/internal/domain/market"
	"github.com/marketlevy/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// QRPayload is the JSON printed on a trader's identity card. Only TraderID is
// trusted when scanned; the rest is for display on offline readers.
type QRPayload struct {
	TraderID     uuid.UUID `json:"traderId"`
	BusinessName string    `json:"businessName"`
	MarketID     uuid.UUID `json:"marketId"`
	Timestamp    time.Time `json:"timestamp"`
	Prefix       string    `json:"prefix"`
}

// DecodeQRPayload parses scanned QR content. Both the JSON payload and a bare
// trader id are accepted.
func DecodeQRPayload(raw string) (*QRPayload, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, shared.NewValidationError("QR payload is empty")
	}

	if id, err := uuid.Parse(raw); err == nil {
		return &QRPayload{TraderID: id}, nil
	}

	var payload QRPayload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return nil, shared.NewValidationError("QR payload is not a trader code")
	}
	if payload.TraderID == uuid.Nil {
		return nil, shared.NewValidationError("QR payload has no trader id")
	}
	return &payload, nil
}

// QREncoder renders a payload string as a PNG image
type QREncoder interface {
	EncodePNG(content string) ([]byte, error)
}

// QRArchive stores rendered QR images. Returns the location of the stored object.
type QRArchive interface {
	Put(ctx context.Context, key string, png []byte) (string, error)
}

// TraderQRCode is a rendered trader identity code
type TraderQRCode struct {
	TraderID uuid.UUID
	Payload  string
	PNG      []byte
	// Location is empty when no archive is configured or archiving failed
	Location string
}

// QRCodeService renders trader identity codes
type QRCodeService struct {
	directory market.Directory
	encoder   QREncoder
	archive   QRArchive
	prefix    string
	logger    *zap.Logger
	now       func() time.Time
	boundary  boundary
}

// QRCodeServiceConfig holds dependencies for the QRCodeService
type QRCodeServiceConfig struct {
	Directory market.Directory
	Encoder   QREncoder
	// Archive is optional
	Archive QRArchive
	Prefix  string
	Logger  *zap.Logger
	Clock   func() time.Time
}

// NewQRCodeService creates a new QRCodeService
func NewQRCodeService(cfg QRCodeServiceConfig) *QRCodeService {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	return &QRCodeService{
		directory: cfg.Directory,
		encoder:   cfg.Encoder,
		archive:   cfg.Archive,
		prefix:    cfg.Prefix,
		logger:    log,
		now:       clock,
		boundary:  boundary{logger: log},
	}
}

// RenderTraderQR builds the trader's payload and renders it as a PNG
func (s *QRCodeService) RenderTraderQR(ctx context.Context, traderID uuid.UUID) (code *TraderQRCode, err error) {
	ctx, span, started := s.boundary.start(ctx, "levy_qr", "render")
	defer s.boundary.finish(ctx, span, "levy_qr.render", started, &err)

	trader, err := s.directory.FindTraderByID(ctx, traderID)
	if err != nil {
		return nil, err
	}
	if trader == nil {
		return nil, shared.NewNotFoundError("Trader")
	}

	body, err := json.Marshal(QRPayload{
		TraderID:     trader.ID,
		BusinessName: trader.BusinessName,
		MarketID:     trader.MarketID,
		Timestamp:    s.now().UTC(),
		Prefix:       s.prefix,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode QR payload: %w", err)
	}

	png, err := s.encoder.EncodePNG(string(body))
	if err != nil {
		return nil, fmt.Errorf("failed to render QR image: %w", err)
	}

	code = &TraderQRCode{TraderID: trader.ID, Payload: string(body), PNG: png}

	if s.archive != nil {
		key := fmt.Sprintf("markets/%s/traders/%s.png", trader.MarketID, trader.ID)
		location, archiveErr := s.archive.Put(ctx, key, png)
		if archiveErr != nil {
			s.logger.Warn("Failed to archive trader QR code",
				zap.String("trader_id", trader.ID.String()),
				zap.String("key", key),
				zap.Error(archiveErr),
			)
		} else {
			code.Location = location
		}
	}

	return code, nil
}
