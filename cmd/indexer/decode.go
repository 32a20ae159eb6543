package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"launchpadIndexer/internal/config"
	"launchpadIndexer/internal/decode"
	"launchpadIndexer/internal/model"
	"launchpadIndexer/internal/storage"
)

func runDecode(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadDecode(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if cfg.In == "" {
		return fmt.Errorf("input path is required")
	}
	if cfg.Out == "" {
		return fmt.Errorf("output path is required")
	}
	if cfg.Errors == "" {
		return fmt.Errorf("errors path is required")
	}

	decoder, err := decode.NewDecoder(decode.Config{Topic0Map: cfg.Topic0Map})
	if err != nil {
		return err
	}

	inputFile, err := os.Open(cfg.In)
	if err != nil {
		return fmt.Errorf("open input: %w", err)
	}
	defer inputFile.Close()

	outWriter, err := storage.NewJSONLWriter(cfg.Out, false)
	if err != nil {
		return err
	}
	defer outWriter.Close()

	errWriter, err := storage.NewJSONLWriter(cfg.Errors, false)
	if err != nil {
		return err
	}
	defer errWriter.Close()

	logger.Info("decode start",
		zap.String("in", cfg.In),
		zap.String("out", cfg.Out),
		zap.String("errors", cfg.Errors),
		zap.Int("topic0_overrides", len(cfg.Topic0Map)),
	)

	scanner := bufio.NewScanner(inputFile)
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 10*1024*1024)

	var total, decoded, skipped, failed int
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		total++

		var record model.LogRecord
		if err := json.Unmarshal(line, &record); err != nil {
			failed++
			writeDecodeError(errWriter, model.DecodeError{Error: err.Error()})
			continue
		}
		if len(record.Topics) == 0 {
			failed++
			writeDecodeError(errWriter, decodeErrorFromRecord(record, fmt.Errorf("missing topic0")))
			continue
		}

		if !decoder.CanDecode(record.Topic0()) {
			skipped++
			continue
		}

		event, err := decoder.Decode(record)
		if err != nil {
			failed++
			logger.Debug("decode failed", zap.String("position", record.Position().String()), zap.Error(err))
			writeDecodeError(errWriter, decodeErrorFromRecord(record, err))
			continue
		}

		if err := outWriter.Write(event); err != nil {
			return err
		}
		decoded++
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("scan input: %w", err)
	}

	logger.Info("decode complete",
		zap.Int("total", total),
		zap.Int("decoded", decoded),
		zap.Int("skipped", skipped),
		zap.Int("failed", failed),
	)

	return nil
}

func decodeErrorFromRecord(record model.LogRecord, err error) model.DecodeError {
	return model.DecodeError{
		ChainID:     record.ChainID,
		BlockNumber: record.BlockNumber,
		TxHash:      record.TxHash,
		LogIndex:    record.LogIndex,
		Address:     record.Address,
		Topic0:      record.Topic0(),
		Error:       err.Error(),
	}
}

func writeDecodeError(writer *storage.JSONLWriter, errRecord model.DecodeError) {
	if writer == nil {
		return
	}
	_ = writer.Write(errRecord)
}
