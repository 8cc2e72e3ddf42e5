package node

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"

	"github.com/loadfile/loadfile/internal/models"
)

type fakeControl struct {
	mu      sync.Mutex
	name    string
	kind    Kind
	value   string
	options []string
	onClick func()
}

func (c *fakeControl) Name() string { return c.name }
func (c *fakeControl) Kind() Kind   { return c.kind }

func (c *fakeControl) Value() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.value
}

func (c *fakeControl) SetValue(v string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.value = v
}

func (c *fakeControl) Options() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.options...)
}

func (c *fakeControl) SetOptions(opts []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.options = opts
}

type fakeNode struct {
	mu       sync.Mutex
	id       string
	controls []*fakeControl
	dirty    int
}

func newFakeNode(id string) *fakeNode {
	return &fakeNode{id: id}
}

// newFileNode returns a node with a populated file selector
func newFileNode(options []string, value string) *fakeNode {
	n := newFakeNode("node-1")
	n.AddControl(ControlSpec{Kind: KindCombo, Name: "file", Options: options, Value: value})
	return n
}

func (n *fakeNode) ID() string   { return n.id }
func (n *fakeNode) Type() string { return "LoadFileWithButton" }

func (n *fakeNode) Controls() []Control {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]Control, 0, len(n.controls))
	for _, c := range n.controls {
		out = append(out, c)
	}
	return out
}

func (n *fakeNode) AddControl(spec ControlSpec) Control {
	n.mu.Lock()
	defer n.mu.Unlock()
	c := &fakeControl{
		name:    spec.Name,
		kind:    spec.Kind,
		value:   spec.Value,
		options: spec.Options,
		onClick: spec.OnClick,
	}
	n.controls = append(n.controls, c)
	return c
}

func (n *fakeNode) RemoveControl(c Control) {
	n.mu.Lock()
	defer n.mu.Unlock()
	for i, fc := range n.controls {
		if Control(fc) == c {
			n.controls = append(n.controls[:i], n.controls[i+1:]...)
			return
		}
	}
}

func (n *fakeNode) SetDirtyCanvas() {
	n.mu.Lock()
	n.dirty++
	n.mu.Unlock()
}

func (n *fakeNode) dirtyCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.dirty
}

func (n *fakeNode) names() []string {
	var out []string
	for _, c := range n.Controls() {
		out = append(out, c.Name())
	}
	return out
}

func (n *fakeNode) countNamed(name string) int {
	count := 0
	for _, c := range n.Controls() {
		if c.Name() == name {
			count++
		}
	}
	return count
}

func (n *fakeNode) click(name string) {
	c := FindControl(n, name)
	if c == nil {
		panic("no control " + name)
	}
	c.(*fakeControl).onClick()
}

func (n *fakeNode) selector() (options []string, value string) {
	sel, _ := FileSelector(n)
	return sel.Options(), sel.Value()
}

type fakeClient struct {
	mu         sync.Mutex
	uploadFn   func(ctx context.Context, name string, data []byte) (*models.UploadResult, error)
	fetchFn    func(ctx context.Context) ([]models.FileListEntry, error)
	uploads    []string
	fetchCalls int
}

func (c *fakeClient) Upload(ctx context.Context, name string, content io.Reader) (*models.UploadResult, error) {
	data, err := io.ReadAll(content)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	c.uploads = append(c.uploads, name)
	fn := c.uploadFn
	c.mu.Unlock()
	if fn == nil {
		return &models.UploadResult{StoredName: name}, nil
	}
	return fn(ctx, name, data)
}

func (c *fakeClient) FetchFiles(ctx context.Context) ([]models.FileListEntry, error) {
	c.mu.Lock()
	c.fetchCalls++
	fn := c.fetchFn
	c.mu.Unlock()
	if fn == nil {
		return []models.FileListEntry{}, nil
	}
	return fn(ctx)
}

func listOf(names ...string) func(context.Context) ([]models.FileListEntry, error) {
	return func(context.Context) ([]models.FileListEntry, error) {
		entries := make([]models.FileListEntry, 0, len(names))
		for _, n := range names {
			entries = append(entries, models.FileListEntry{Name: n})
		}
		return entries, nil
	}
}

func failingList(context.Context) ([]models.FileListEntry, error) {
	return nil, errors.New("dial tcp 127.0.0.1:8188: connect: connection refused")
}

type trackedReader struct {
	io.Reader
	mu     sync.Mutex
	closed bool
}

func (r *trackedReader) Close() error {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()
	return nil
}

func (r *trackedReader) isClosed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closed
}

type fakePicker struct {
	mu     sync.Mutex
	file   *PickedFile
	err    error
	accept []string
	opened int
	closed int
}

func pickFile(name, content string) (*fakePicker, *trackedReader) {
	r := &trackedReader{Reader: strings.NewReader(content)}
	return &fakePicker{file: &PickedFile{Name: name, Content: r}}, r
}

func (p *fakePicker) NewPicker(accept []string) (Picker, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.accept = accept
	p.opened++
	return p, nil
}

func (p *fakePicker) Pick(context.Context) (*PickedFile, error) {
	if p.err != nil {
		return nil, p.err
	}
	return p.file, nil
}

func (p *fakePicker) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed++
	return nil
}

type fakeNotifier struct {
	mu       sync.Mutex
	messages []string
}

func (n *fakeNotifier) Alert(message string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.messages = append(n.messages, message)
}

func (n *fakeNotifier) alerts() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.messages...)
}
