// Package serve exposes the engine over NDJSON on stdio so a host process
// can drive pattern tests, parsing, and template generation without linking
// against the library.
package serve

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"time"

	"github.com/regexflow/regexflow/pkg/generator"
	"github.com/regexflow/regexflow/pkg/service"
)

// Version is the server protocol version
const Version = "1.0.0"

// Server manages the streaming engine
type Server struct {
	templates *service.TemplateService
	parsing   *service.ParsingService
	generate  *generator.Generator
	encoder   *json.Encoder
	decoder   *json.Decoder
}

// NewServer creates a new streaming server
func NewServer(templates *service.TemplateService, parsing *service.ParsingService, in io.Reader, out io.Writer) *Server {
	return &Server{
		templates: templates,
		parsing:   parsing,
		generate:  generator.New(),
		encoder:   json.NewEncoder(out),
		decoder:   json.NewDecoder(bufio.NewReader(in)),
	}
}

// Run starts the server main loop
func (s *Server) Run(ctx context.Context) error {
	// Send ready signal
	s.sendReady()

	// Use buffered channels for incoming requests
	reqChan := make(chan Request, 1)
	errChan := make(chan error, 1)

	go func() {
		for {
			var req Request
			if err := s.decoder.Decode(&req); err != nil {
				errChan <- err
				return
			}
			select {
			case reqChan <- req:
			case <-ctx.Done():
				return
			}
		}
	}()

	// Process requests until stdin closes or context cancels
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-errChan:
			// Drain any pending requests before handling EOF
			for {
				select {
				case req := <-reqChan:
					if s.processRequest(ctx, req) {
						return nil
					}
				default:
					// No more pending requests
					if err == io.EOF {
						return nil
					}
					s.sendError("decode", err.Error())
					return nil
				}
			}
		case req := <-reqChan:
			if s.processRequest(ctx, req) {
				return nil
			}
		}
	}
}

// processRequest handles a single request and returns true if the server should exit
func (s *Server) processRequest(ctx context.Context, req Request) bool {
	switch req.Type {
	case "test":
		s.handleTest(ctx, req.Payload)
	case "parse":
		s.handleParse(ctx, req.Payload)
	case "generate":
		s.handleGenerate(req.Payload)
	case "close":
		return true
	default:
		s.sendError("unknown", "unknown request type: "+req.Type)
	}
	return false
}

func (s *Server) sendReady() {
	data, _ := json.Marshal(ReadyData{Version: Version})
	s.encoder.Encode(Response{
		Success: true,
		Type:    "ready",
		Data:    data,
	})
}

func (s *Server) handleTest(ctx context.Context, payload json.RawMessage) {
	var p TestPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		s.sendError("test", err.Error())
		return
	}

	res, err := s.templates.TestPattern(ctx, service.TestPatternRequest{
		Pattern: p.Pattern,
		Sample:  p.Sample,
		Timeout: time.Duration(p.TimeoutMS) * time.Millisecond,
	})
	if err != nil {
		s.sendError("test", err.Error())
		return
	}

	out := TestData{
		Matched:   res.Matched,
		Fields:    res.Fields,
		ElapsedMS: res.Elapsed.Milliseconds(),
	}
	if res.Err != nil {
		out.Error = res.Err.Error()
	}

	data, _ := json.Marshal(out)
	s.encoder.Encode(Response{
		Success: true,
		Type:    "test",
		Data:    data,
	})
}

func (s *Server) handleParse(ctx context.Context, payload json.RawMessage) {
	var p ParsePayload
	if err := json.Unmarshal(payload, &p); err != nil {
		s.sendError("parse", err.Error())
		return
	}

	outcome, err := s.parsing.Parse(ctx, p.UserID, p.Text, p.Sender)
	if err != nil {
		s.sendError("parse", err.Error())
		return
	}

	data, _ := json.Marshal(ParseData{
		Status:      outcome.Status,
		Duplicate:   outcome.Duplicate,
		MessageID:   outcome.MessageLog.ID,
		Transaction: outcome.Transaction,
	})
	s.encoder.Encode(Response{
		Success: true,
		Type:    "parse",
		Data:    data,
	})
}

func (s *Server) handleGenerate(payload json.RawMessage) {
	var p GeneratePayload
	if err := json.Unmarshal(payload, &p); err != nil {
		s.sendError("generate", err.Error())
		return
	}

	draft := s.generate.Generate(p.Sample, p.Sender)
	data, _ := json.Marshal(draft)
	s.encoder.Encode(Response{
		Success: draft.Success,
		Type:    "generate",
		Data:    data,
	})
}

func (s *Server) sendError(reqType, msg string) {
	s.encoder.Encode(Response{
		Success: false,
		Type:    reqType,
		Error:   msg,
	})
}
