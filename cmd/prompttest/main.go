package main

// Run one generation against the configured provider without the API:
//   go run ./cmd/prompttest -file results.xml -title "Sprint 12"

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"test-report-backend/internal/artifacts"
	"test-report-backend/internal/bootstrap"
	"test-report-backend/internal/classify"
	"test-report-backend/internal/llm"
	"test-report-backend/internal/shared/config"
)

func main() {
	cfg := config.Load()

	filePath := flag.String("file", "", "Path to a test result file (xml, json, html, csv, txt, log)")
	previousPath := flag.String("previous", "", "Path to a previous report; switches to the versioning prompt")
	title := flag.String("title", "Reporte de pruebas", "Report title")
	instruction := flag.String("prompt", "", "Additional instruction (optional)")
	requester := flag.String("requester", "prompttest", "Requester name")
	outPath := flag.String("out", "", "Path to write the generated report (optional)")
	provider := flag.String("provider", cfg.LLMProvider, "LLM provider (openai, gemini, stub)")
	model := flag.String("model", cfg.LLMModel, "LLM model")
	printPrompt := flag.Bool("print-prompt", false, "Print the rendered prompt and exit")
	flag.Parse()

	if strings.TrimSpace(*filePath) == "" {
		exitErr("file path is required")
	}
	if !artifacts.IsValidFormat(*filePath) {
		exitErr(fmt.Sprintf("unsupported test result file type: %s", filepath.Ext(*filePath)))
	}
	fileBytes, err := os.ReadFile(*filePath)
	if err != nil {
		exitErr(fmt.Sprintf("read file: %v", err))
	}

	var prompt string
	if strings.TrimSpace(*previousPath) != "" {
		previous, err := os.ReadFile(*previousPath)
		if err != nil {
			exitErr(fmt.Sprintf("read previous report: %v", err))
		}
		prompt = llm.BuildVersioningPrompt(llm.VersioningPromptInput{
			FileContent:     string(fileBytes),
			PreviousContent: string(previous),
			Instruction:     *instruction,
			RequesterName:   *requester,
		})
	} else {
		prompt = llm.BuildInitialPrompt(llm.InitialPromptInput{
			FileContent:   string(fileBytes),
			Instruction:   *instruction,
			RequesterName: *requester,
			DocumentID:    "prompttest",
			Title:         *title,
		})
	}

	if *printPrompt {
		writeStdout(prompt)
		return
	}

	cfg.LLMProvider = strings.ToLower(strings.TrimSpace(*provider))
	cfg.LLMModel = *model
	streamer, err := bootstrap.NewStreamer(cfg)
	if err != nil {
		exitErr(err.Error())
	}
	gen := llm.NewGenerator(streamer, llm.Options{
		Provider:    cfg.LLMProvider,
		MaxAttempts: cfg.Generation.MaxAttempts,
		Backoff:     cfg.Generation.Backoff,
		MaxChars:    cfg.Generation.MaxChars,
	})

	raw, err := gen.Generate(context.Background(), prompt)
	if err != nil {
		exitErr(fmt.Sprintf("generate: %v", err))
	}

	result := classify.Classify(raw)
	if result.IsError {
		exitErr(fmt.Sprintf("rejected by provider: %s", result.Detail))
	}

	if *outPath != "" {
		if err := os.WriteFile(*outPath, []byte(result.Content), 0o644); err != nil {
			exitErr(fmt.Sprintf("write output: %v", err))
		}
	}
	writeStdout(result.Content)
}

func writeStdout(s string) {
	if _, err := os.Stdout.WriteString(s); err != nil {
		exitErr(fmt.Sprintf("write stdout: %v", err))
	}
	if s == "" || s[len(s)-1] != '\n' {
		_, _ = os.Stdout.WriteString("\n")
	}
}

func exitErr(msg string) {
	_, _ = fmt.Fprintln(os.Stderr, msg)
	os.Exit(1)
}
