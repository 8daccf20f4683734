package utils

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"go.uber.org/zap"

	custom_logger "github.com/instill-ai/shelf-eval/pkg/logger"
)

// ProgressReader logs how much of a large input file has been consumed.
type ProgressReader struct {
	r io.Reader

	filename   string
	n          float64
	lastPrintN float64
	lastPrint  time.Time
	logger     *zap.Logger
}

func NewProgressReader(ctx context.Context, r io.Reader, filename string) *ProgressReader {
	logger, _ := custom_logger.GetZapLogger(ctx)
	return &ProgressReader{
		r:         r,
		logger:    logger,
		filename:  filename,
		lastPrint: time.Now(),
	}
}

func (pr *ProgressReader) Read(p []byte) (int, error) {
	n, err := pr.r.Read(p)
	bf := float64(n)
	bf /= (1 << 20)
	pr.n += bf

	if time.Since(pr.lastPrint) > time.Second ||
		(err != nil && pr.n != pr.lastPrintN) {

		pr.logger.Debug(fmt.Sprintf("Read %3.1fMiB of %s", pr.n, pr.filename))
		pr.lastPrintN = pr.n
		pr.lastPrint = time.Now()
	}
	return n, err
}

// WriteToFp takes in a file pointer and byte array and writes the byte array into the file
// returns error if pointer is nil or error in writing to file
func WriteToFp(fp *os.File, data []byte) error {
	if fp == nil {
		return os.ErrInvalid
	}
	w := 0
	for w < len(data) {
		nw, err := fp.Write(data[w:])
		if err != nil {
			return err
		}
		w += nw
	}
	return nil
}

// WriteFile creates path and writes data to it.
func WriteFile(path string, data []byte) error {
	if err := ValidateFilePath(path); err != nil {
		return err
	}
	fp, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := WriteToFp(fp, data); err != nil {
		fp.Close()
		return err
	}
	return fp.Close()
}
