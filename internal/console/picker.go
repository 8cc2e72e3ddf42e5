package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/loadfile/loadfile/internal/filetype"
	"github.com/loadfile/loadfile/internal/node"
	"github.com/loadfile/loadfile/internal/pathutil"
)

// PathPicker picks the file given on the command line, or prompts for a
// path on In when Path is empty. An empty answer cancels.
type PathPicker struct {
	Path string
	In   io.Reader
	Out  io.Writer
}

// NewPicker implements node.PickerFactory
func (p *PathPicker) NewPicker(accept []string) (node.Picker, error) {
	in, out := p.In, p.Out
	if in == nil {
		in = os.Stdin
	}
	if out == nil {
		out = os.Stderr
	}
	return &pathPicker{path: p.Path, in: in, out: out, accept: accept}, nil
}

type pathPicker struct {
	path   string
	in     io.Reader
	out    io.Writer
	accept []string
}

func (p *pathPicker) Pick(ctx context.Context) (*node.PickedFile, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	path := strings.TrimSpace(p.path)
	if path == "" {
		fmt.Fprintf(p.out, "File to upload (%s): ", filetype.Accept(p.accept))
		line, err := bufio.NewReader(p.in).ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("failed to read path: %w", err)
		}
		path = strings.Trim(strings.TrimSpace(line), `"'`)
		if path == "" {
			return nil, node.ErrNoSelection
		}
	}

	if !filetype.Allowed(path, p.accept) {
		return nil, fmt.Errorf("%s: file type not allowed (accepted: %s)", filepath.Base(path), filetype.Accept(p.accept))
	}

	name := filepath.Base(path)
	path, err := pathutil.ResolveAbsolutePath(path)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path: %w", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("cannot access file: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s is a directory", path)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}

	return &node.PickedFile{Name: name, Content: f}, nil
}

// Close releases nothing; the picked file is owned by the controller.
func (p *pathPicker) Close() error {
	return nil
}
