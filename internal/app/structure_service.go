package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"medtree/internal/ai"
	"medtree/internal/chunker"
	"medtree/internal/model"
	"medtree/internal/platform/logger"
	"medtree/internal/prompt"
	"medtree/internal/tree"
)

const tracerName = "medtree/internal/app"

type StructureService struct {
	llm          Completer
	events       EventPublisher
	log          *logger.Logger
	maxLength    int
	chunkTimeout time.Duration
	now          func() time.Time
}

type StructureOptions struct {
	MaxLength    int
	ChunkTimeout time.Duration
}

type AnalyzeInput struct {
	Filename string
	Text     string
}

// StructureResult is the outcome of folding over every chunk of one document.
type StructureResult struct {
	Trees    []*model.LearningNode
	Failures []ChunkFailure
}

type AnalyzeResult struct {
	Tree            *model.LearningNode
	Filename        string
	OriginalLength  int
	ChunksProcessed int
	ChunksFailed    int
	Failures        []ChunkFailure
}

func NewStructureService(llm Completer, events EventPublisher, log *logger.Logger, opts StructureOptions) *StructureService {
	if opts.MaxLength <= 0 {
		opts.MaxLength = 4000
	}
	if log == nil {
		log = logger.Nop()
	}
	return &StructureService{
		llm:          llm,
		events:       events,
		log:          log,
		maxLength:    opts.MaxLength,
		chunkTimeout: opts.ChunkTimeout,
		now:          time.Now,
	}
}

// RequestStructure asks the model for the topic hierarchy of one chunk.
// Every failure comes back as a *ChunkError carrying the chunk index.
func (s *StructureService) RequestStructure(ctx context.Context, index int, chunk string) (*model.LearningNode, error) {
	if s.chunkTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.chunkTimeout)
		defer cancel()
	}

	raw, err := s.llm.CompleteJSON(ctx, []ai.ChatMessage{
		{Role: model.RoleUser, Content: prompt.Structure(chunk)},
	})
	if err != nil {
		return nil, &ChunkError{Index: index, Err: upstreamError(err)}
	}

	node, err := tree.Decode([]byte(raw))
	if err != nil {
		return nil, &ChunkError{Index: index, Err: err}
	}
	return node, nil
}

// Structure folds over the chunks in document order. A failing chunk is
// recorded and skipped; only cancellation of ctx stops the fold.
func (s *StructureService) Structure(ctx context.Context, chunks []string) (StructureResult, error) {
	var result StructureResult
	for i, chunk := range chunks {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		node, err := s.RequestStructure(ctx, i, chunk)
		if err != nil {
			s.log.Warn("chunk structure failed", "chunk", i+1, "of", len(chunks), "error", err)
			result.Failures = append(result.Failures, ChunkFailure{Index: i, Reason: failureReason(err)})
			continue
		}
		result.Trees = append(result.Trees, node)
	}
	return result, nil
}

func (s *StructureService) Analyze(ctx context.Context, input AnalyzeInput) (*AnalyzeResult, error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "structure.analyze")
	defer span.End()

	if strings.TrimSpace(input.Text) == "" {
		return nil, ErrEmptyDocument
	}

	chunks, err := chunker.Split(input.Text, s.maxLength)
	if err != nil {
		return nil, fmt.Errorf("split document failed: %w", err)
	}
	if len(chunks) == 0 {
		return nil, ErrEmptyDocument
	}
	s.log.Info("document split", "filename", input.Filename, "chunks", len(chunks))

	folded, err := s.Structure(ctx, chunks)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	result := &AnalyzeResult{
		Tree:            tree.Merge(folded.Trees),
		Filename:        input.Filename,
		OriginalLength:  utf8.RuneCountInString(input.Text),
		ChunksProcessed: len(chunks),
		ChunksFailed:    len(folded.Failures),
		Failures:        folded.Failures,
	}
	s.log.Info("document structured",
		"filename", result.Filename,
		"chunks", result.ChunksProcessed,
		"failed", result.ChunksFailed,
		"tree_nodes", result.Tree.Size(),
	)
	span.SetAttributes(
		attribute.Int("medtree.chunks.processed", result.ChunksProcessed),
		attribute.Int("medtree.chunks.failed", result.ChunksFailed),
	)

	publishEvent(ctx, s.events, s.log, model.Event{
		Type:            model.EventAnalysisCompleted,
		Filename:        result.Filename,
		OriginalLength:  result.OriginalLength,
		ChunksProcessed: result.ChunksProcessed,
		ChunksFailed:    result.ChunksFailed,
		OccurredAt:      s.now().UTC(),
	})
	return result, nil
}

func failureReason(err error) string {
	var chunkErr *ChunkError
	if errors.As(err, &chunkErr) {
		return chunkErr.Err.Error()
	}
	return err.Error()
}
