package wxr

import (
	"context"
	"fmt"
	"os"

	"github.com/mohammadpnp/theme-setup/internal/domain/content"
	"go.uber.org/zap"
)

type Parser interface {
	Parse(ctx context.Context, path string) (*content.Document, error)
}

type Strategy string

const (
	StrategyAuto   Strategy = "auto"
	StrategyDOM    Strategy = "dom"
	StrategyStream Strategy = "stream"
	StrategyNone   Strategy = "none"
)

const defaultDOMMaxBytes = 32 << 20

type Capabilities struct {
	Strategy Strategy
	// DOMMaxBytes is the largest file the auto strategy loads whole.
	DOMMaxBytes int64
}

// NewParser picks a strategy once, from configuration and what the host allows.
func NewParser(caps Capabilities, logger *zap.Logger) Parser {
	if logger == nil {
		logger = zap.NewNop()
	}
	if caps.DOMMaxBytes <= 0 {
		caps.DOMMaxBytes = defaultDOMMaxBytes
	}

	switch caps.Strategy {
	case StrategyDOM:
		return NewDOMParser()
	case StrategyStream:
		return NewStreamParser()
	case StrategyAuto, "":
		return &autoParser{
			dom:      NewDOMParser(),
			stream:   NewStreamParser(),
			maxBytes: caps.DOMMaxBytes,
			logger:   logger,
		}
	default:
		logger.Warn("no xml strategy available", zap.String("strategy", string(caps.Strategy)))
		return unavailableParser{}
	}
}

type autoParser struct {
	dom      Parser
	stream   Parser
	maxBytes int64
	logger   *zap.Logger
}

func (p *autoParser) Parse(ctx context.Context, path string) (*content.Document, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFileUnreadable, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%w: %s is a directory", ErrFileUnreadable, path)
	}
	if info.Size() > p.maxBytes {
		p.logger.Debug("streaming large export", zap.String("path", path), zap.Int64("bytes", info.Size()))
		return p.stream.Parse(ctx, path)
	}
	return p.dom.Parse(ctx, path)
}

type unavailableParser struct{}

func (unavailableParser) Parse(context.Context, string) (*content.Document, error) {
	return nil, ErrNoXMLSupport
}
