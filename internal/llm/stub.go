package llm

import (
	"context"
	"unicode/utf8"
)

const stubReport = `[CONTEO]
{"totalExecutions": 1, "passed": 1, "failed": 0}

[TEL]
{"documentRevisionHistory": [], "introduction": "Reporte generado sin proveedor externo.", "testExecutionLog": []}

[TIR]
{"documentApprovalHistory": {}, "documentRevisionHistory": [], "testIncidentReports": []}
`

// StubStreamer emits a canned response in fixed-size chunks. It backs local
// development when no provider key is configured.
type StubStreamer struct {
	Response  string
	ChunkSize int
}

func (s StubStreamer) Stream(ctx context.Context, prompt string, onChunk func(string) error) error {
	resp := s.Response
	if resp == "" {
		resp = stubReport
	}
	size := s.ChunkSize
	if size <= 0 {
		size = 64
	}
	_ = prompt
	for len(resp) > 0 {
		if err := ctx.Err(); err != nil {
			return err
		}
		n := min(size, len(resp))
		// keep multi-byte runes whole
		for n < len(resp) && !utf8.RuneStart(resp[n]) {
			n++
		}
		if err := onChunk(resp[:n]); err != nil {
			return err
		}
		resp = resp[n:]
	}
	return nil
}
