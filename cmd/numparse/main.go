package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"log"
	"os"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/instill-ai/shelf-eval/config"
	"github.com/instill-ai/shelf-eval/pkg/textnum"
	"github.com/instill-ai/shelf-eval/pkg/utils"

	custom_logger "github.com/instill-ai/shelf-eval/pkg/logger"
)

// numparse reads a whitespace separated block of numbers, from -in or stdin,
// and prints one row per line.
func main() {
	fs := flag.NewFlagSet(os.Args[0], flag.ExitOnError)
	configFile := config.ConfigFlag(fs)
	in := fs.String("in", "", "input file, stdin when empty")
	asJSON := fs.Bool("json", false, "print the rows as a JSON array")
	_ = fs.Parse(os.Args[1:])

	if err := config.Init(*configFile); err != nil {
		log.Fatal(err.Error())
	}

	logger, _ := custom_logger.GetZapLogger(context.Background())
	defer func() {
		// can't handle the error due to https://github.com/uber-go/zap/issues/880
		_ = logger.Sync()
	}()

	src := os.Stdin
	if *in != "" {
		if err := utils.ValidateFilePath(*in); err != nil {
			logger.Fatal(err.Error())
		}
		f, err := os.Open(*in)
		if err != nil {
			logger.Fatal("failed to open input", zap.Error(err))
		}
		defer f.Close()
		src = f
	}

	rows, err := textnum.Parse(src)
	if err != nil {
		logger.Fatal("failed to parse numbers", zap.Error(err))
	}
	logger.Debug("parsed", zap.Int("rows", len(rows)))

	out := bufio.NewWriter(os.Stdout)
	defer out.Flush()

	if *asJSON {
		if err := json.NewEncoder(out).Encode(rows); err != nil {
			logger.Fatal("failed to encode rows", zap.Error(err))
		}
		return
	}
	for _, row := range rows {
		fields := make([]string, len(row))
		for i, v := range row {
			fields[i] = strconv.FormatFloat(v, 'g', -1, 64)
		}
		_, _ = out.WriteString(strings.Join(fields, " ") + "\n")
	}
}
