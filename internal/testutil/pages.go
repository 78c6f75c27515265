package testutil

import (
	"context"
	"fmt"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// PageScript replays a fixed sequence of listing pages and records every request.
// Errors are keyed by the zero-based call index.
type PageScript struct {
	Pages  []*s3.ListObjectsV2Output
	Errors map[int]error

	mu     sync.Mutex
	inputs []s3.ListObjectsV2Input
}

// NewPageScript creates a script that serves pages in order.
func NewPageScript(pages ...*s3.ListObjectsV2Output) *PageScript {
	return &PageScript{
		Pages:  pages,
		Errors: map[int]error{},
	}
}

// FailOn makes call number call (zero-based) return err.
func (p *PageScript) FailOn(call int, err error) *PageScript {
	p.Errors[call] = err
	return p
}

// ListObjectsV2 serves the next scripted page.
func (p *PageScript) ListObjectsV2(
	ctx context.Context,
	params *s3.ListObjectsV2Input,
	_ ...func(*s3.Options),
) (*s3.ListObjectsV2Output, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	call := len(p.inputs)
	p.inputs = append(p.inputs, *params)

	if err, ok := p.Errors[call]; ok {
		return nil, err
	}
	if call >= len(p.Pages) {
		return nil, fmt.Errorf("page script: unexpected call %d", call)
	}
	return p.Pages[call], nil
}

// Calls returns how many requests were made.
func (p *PageScript) Calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.inputs)
}

// Tokens returns the continuation token sent with each request, "" when absent.
func (p *PageScript) Tokens() []string {
	p.mu.Lock()
	defer p.mu.Unlock()

	tokens := make([]string, len(p.inputs))
	for i, in := range p.inputs {
		tokens[i] = aws.ToString(in.ContinuationToken)
	}
	return tokens
}

// Input returns a copy of request number call.
func (p *PageScript) Input(call int) s3.ListObjectsV2Input {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.inputs[call]
}

// Mock wraps the script in a MockS3Client.
func (p *PageScript) Mock() *MockS3Client {
	return &MockS3Client{ListObjectsV2Func: p.ListObjectsV2}
}
