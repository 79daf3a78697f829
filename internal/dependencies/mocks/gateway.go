package mocks

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/playroomlabs/partyroom/internal/gen"
)

// TextReply is a queued response for GenerateText
type TextReply struct {
	Text string
	Err  error
}

// ImageReply is a queued response for GenerateImage
type ImageReply struct {
	Data []byte
	Err  error
}

// StructuredReply is a queued response for GenerateStructured
type StructuredReply struct {
	Text string
	Data json.RawMessage
	Err  error
}

// MockGateway implements the generation gateway with queued replies.
// When a queue is empty a generic successful result is returned. All
// prompts are recorded for assertion.
type MockGateway struct {
	mu sync.Mutex

	TextReplies       []TextReply
	ImageReplies      []ImageReply
	StructuredReplies []StructuredReply

	TextPrompts       []string
	ImagePrompts      []string
	StructuredPrompts []string
}

var _ gen.Gateway = (*MockGateway)(nil)

// NewMockGateway creates an empty mock gateway
func NewMockGateway() *MockGateway {
	return &MockGateway{}
}

// QueueText appends a text reply to the queue
func (g *MockGateway) QueueText(text string, err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.TextReplies = append(g.TextReplies, TextReply{Text: text, Err: err})
}

// QueueImage appends an image reply to the queue
func (g *MockGateway) QueueImage(data []byte, err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.ImageReplies = append(g.ImageReplies, ImageReply{Data: data, Err: err})
}

// QueueStructured appends a structured reply to the queue
func (g *MockGateway) QueueStructured(text string, data json.RawMessage, err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.StructuredReplies = append(g.StructuredReplies, StructuredReply{Text: text, Data: data, Err: err})
}

func (g *MockGateway) GenerateText(ctx context.Context, prompt, image string) (*gen.TextResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.TextPrompts = append(g.TextPrompts, prompt)
	if len(g.TextReplies) == 0 {
		return &gen.TextResult{Text: "generated text"}, nil
	}
	reply := g.TextReplies[0]
	g.TextReplies = g.TextReplies[1:]
	if reply.Err != nil {
		return nil, reply.Err
	}
	return &gen.TextResult{Text: reply.Text}, nil
}

func (g *MockGateway) GenerateImage(ctx context.Context, prompt, image string) (*gen.ImageResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.ImagePrompts = append(g.ImagePrompts, prompt)
	if len(g.ImageReplies) == 0 {
		return &gen.ImageResult{ImageData: []byte("generated image")}, nil
	}
	reply := g.ImageReplies[0]
	g.ImageReplies = g.ImageReplies[1:]
	if reply.Err != nil {
		return nil, reply.Err
	}
	return &gen.ImageResult{ImageData: reply.Data}, nil
}

func (g *MockGateway) GenerateStructured(ctx context.Context, prompt string) (*gen.StructuredResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.StructuredPrompts = append(g.StructuredPrompts, prompt)
	if len(g.StructuredReplies) == 0 {
		return &gen.StructuredResult{Text: "generated outcome"}, nil
	}
	reply := g.StructuredReplies[0]
	g.StructuredReplies = g.StructuredReplies[1:]
	if reply.Err != nil {
		return nil, reply.Err
	}
	return &gen.StructuredResult{Text: reply.Text, Data: reply.Data}, nil
}

// PromptCount returns the total number of prompts recorded
func (g *MockGateway) PromptCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.TextPrompts) + len(g.ImagePrompts) + len(g.StructuredPrompts)
}
