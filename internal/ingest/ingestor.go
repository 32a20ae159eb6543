// Package ingest feeds a typed event JSONL stream through the reducer engine
// and keeps a resume cursor.
package ingest

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"

	"launchpadIndexer/internal/model"
	"launchpadIndexer/internal/reducer"
)

const (
	defaultCheckpointEvery = 1000
	defaultProgressEvery   = 10000
)

// Applier applies one event. *reducer.Engine satisfies it.
type Applier interface {
	Apply(ctx context.Context, event model.Event) (reducer.Outcome, error)
}

// Config controls ingestion behavior.
type Config struct {
	StateStore StateStore
	// CheckpointEvery saves the cursor after this many applied events.
	CheckpointEvery int
	ProgressEvery   int
}

// Summary counts what a run did.
type Summary struct {
	Total     int
	Resumed   int
	Applied   int
	Duplicate int
	Skipped   int
	Observed  int
	Last      model.Position
}

func (s *Summary) count(outcome reducer.Outcome) {
	switch outcome {
	case reducer.Applied:
		s.Applied++
	case reducer.Duplicate:
		s.Duplicate++
	case reducer.Skipped:
		s.Skipped++
	case reducer.Observed:
		s.Observed++
	}
}

// Ingestor reads typed events in stream order and applies them one by one.
type Ingestor struct {
	cfg    Config
	engine Applier
	logger *zap.Logger
}

func NewIngestor(cfg Config, engine Applier, logger *zap.Logger) *Ingestor {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.CheckpointEvery <= 0 {
		cfg.CheckpointEvery = defaultCheckpointEvery
	}
	if cfg.ProgressEvery <= 0 {
		cfg.ProgressEvery = defaultProgressEvery
	}
	return &Ingestor{cfg: cfg, engine: engine, logger: logger}
}

// Run ingests a typed events JSONL file.
func (i *Ingestor) Run(ctx context.Context, inputPath string) (Summary, error) {
	file, err := os.Open(inputPath)
	if err != nil {
		return Summary{}, fmt.Errorf("open input: %w", err)
	}
	defer file.Close()
	return i.RunReader(ctx, file)
}

// RunReader ingests typed events from r. Events at or before the saved cursor
// are skipped. A malformed or out-of-order event stops the run; the cursor is
// left at the last event that was applied.
func (i *Ingestor) RunReader(ctx context.Context, r io.Reader) (Summary, error) {
	if i.engine == nil {
		return Summary{}, fmt.Errorf("engine is nil")
	}

	cursor, resume, err := i.loadCursor(ctx)
	if err != nil {
		return Summary{}, err
	}
	if resume {
		i.logger.Info("resuming", zap.String("after", cursor.String()))
	}

	scanner := bufio.NewScanner(r)
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 10*1024*1024)

	var (
		summary Summary
		last    model.Position
		seen    bool
		unsaved int
		lineNo  int
	)
	checkpoint := func(ctx context.Context) error {
		if !seen || unsaved == 0 {
			return nil
		}
		if err := i.saveCursor(ctx, last); err != nil {
			return err
		}
		unsaved = 0
		return nil
	}
	fail := func(err error) (Summary, error) {
		summary.Last = last
		// Save the cursor even when the run stops on cancellation.
		if cpErr := checkpoint(context.WithoutCancel(ctx)); cpErr != nil {
			i.logger.Error("save cursor after failure", zap.Error(cpErr))
		}
		return summary, err
	}

	for scanner.Scan() {
		lineNo++
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		if err := ctx.Err(); err != nil {
			return fail(err)
		}
		summary.Total++

		var record model.TypedEventRecord
		if err := json.Unmarshal(line, &record); err != nil {
			return fail(fmt.Errorf("line %d: %w: %w", lineNo, reducer.ErrInvalidEvent, err))
		}

		pos := record.Position()
		if resume && !cursor.Less(pos) {
			summary.Resumed++
			continue
		}
		if seen && pos.Less(last) {
			return fail(fmt.Errorf("line %d: %w: position %s after %s", lineNo, reducer.ErrInvalidEvent, pos, last))
		}

		event, err := record.Event()
		if err != nil {
			return fail(fmt.Errorf("line %d at %s: %w: %w", lineNo, pos, reducer.ErrInvalidEvent, err))
		}

		outcome, err := i.engine.Apply(ctx, event)
		if err != nil {
			return fail(fmt.Errorf("line %d: %w", lineNo, err))
		}
		summary.count(outcome)
		last = pos
		seen = true
		unsaved++

		if unsaved >= i.cfg.CheckpointEvery {
			if err := checkpoint(ctx); err != nil {
				return fail(err)
			}
		}
		if summary.Total%i.cfg.ProgressEvery == 0 {
			i.logger.Info("ingest progress",
				zap.Int("events", summary.Total),
				zap.Int("applied", summary.Applied),
				zap.String("position", pos.String()),
			)
		}
	}
	if err := scanner.Err(); err != nil {
		return fail(fmt.Errorf("scan input: %w", err))
	}

	summary.Last = last
	if !seen && resume {
		summary.Last = cursor
	}
	if err := checkpoint(ctx); err != nil {
		return summary, err
	}

	i.logger.Info("ingest complete",
		zap.Int("total", summary.Total),
		zap.Int("resumed", summary.Resumed),
		zap.Int("applied", summary.Applied),
		zap.Int("duplicate", summary.Duplicate),
		zap.Int("skipped", summary.Skipped),
		zap.Int("observed", summary.Observed),
		zap.String("last", summary.Last.String()),
	)
	return summary, nil
}

func (i *Ingestor) loadCursor(ctx context.Context) (model.Position, bool, error) {
	if i.cfg.StateStore == nil {
		return model.Position{}, false, nil
	}
	pos, ok, err := i.cfg.StateStore.Load(ctx)
	if err != nil {
		return model.Position{}, false, fmt.Errorf("load cursor: %w", err)
	}
	return pos, ok, nil
}

func (i *Ingestor) saveCursor(ctx context.Context, pos model.Position) error {
	if i.cfg.StateStore == nil {
		return nil
	}
	if err := i.cfg.StateStore.Save(ctx, pos); err != nil {
		return fmt.Errorf("save cursor: %w", err)
	}
	return nil
}
