// Package filetype classifies files by extension into the load modes the
// LoadFileWithButton node understands.
package filetype

import (
	"mime"
	"path/filepath"
	"sort"
	"strings"
)

// Mode is a load mode of the node's load_mode control
type Mode string

const (
	ModeAuto   Mode = "auto"
	ModeImage  Mode = "image"
	ModeVideo  Mode = "video"
	ModeModel  Mode = "model"
	ModeText   Mode = "text"
	ModeBinary Mode = "binary"
)

// Modes returns the load_mode options in display order
func Modes() []string {
	return []string{
		string(ModeAuto), string(ModeImage), string(ModeVideo),
		string(ModeModel), string(ModeText), string(ModeBinary),
	}
}

var groups = []struct {
	mode Mode
	exts []string
}{
	{ModeImage, []string{".png", ".jpg", ".jpeg", ".gif", ".bmp", ".tiff", ".webp"}},
	{ModeVideo, []string{".mp4", ".avi", ".mov", ".mkv", ".webm", ".flv"}},
	{ModeModel, []string{".pt", ".pth", ".safetensors", ".ckpt", ".bin"}},
	{ModeText, []string{".txt", ".json", ".yaml", ".yml", ".xml", ".csv"}},
}

var byExt = func() map[string]Mode {
	m := make(map[string]Mode)
	for _, g := range groups {
		for _, ext := range g.exts {
			m[ext] = g.mode
		}
	}
	return m
}()

// Detect resolves the load mode of a file name. Unknown extensions are binary.
func Detect(name string) Mode {
	if m, ok := byExt[strings.ToLower(filepath.Ext(name))]; ok {
		return m
	}
	return ModeBinary
}

// Resolve returns mode unless it is auto, in which case the mode is detected
// from name.
func Resolve(mode Mode, name string) Mode {
	if mode == ModeAuto || mode == "" {
		return Detect(name)
	}
	return mode
}

// AllowedExtensions returns the default picker allow-list in group order
func AllowedExtensions() []string {
	var exts []string
	for _, g := range groups {
		exts = append(exts, g.exts...)
	}
	return exts
}

// Accept renders an allow-list as a comma separated accept string
// (".png,.jpg,..."). An empty list yields the default allow-list.
func Accept(exts []string) string {
	if len(exts) == 0 {
		exts = AllowedExtensions()
	}
	return strings.Join(exts, ",")
}

// Allowed reports whether name carries one of exts. An empty list means
// the default allow-list.
func Allowed(name string, exts []string) bool {
	if len(exts) == 0 {
		exts = AllowedExtensions()
	}
	ext := strings.ToLower(filepath.Ext(name))
	if ext == "" {
		return false
	}
	for _, e := range exts {
		if strings.EqualFold(e, ext) {
			return true
		}
	}
	return false
}

// ContentType guesses the MIME type used for the multipart file part
func ContentType(name string) string {
	if ct := mime.TypeByExtension(strings.ToLower(filepath.Ext(name))); ct != "" {
		return ct
	}
	return "application/octet-stream"
}

// Count tallies names by detected mode, returning modes sorted by name.
func Count(names []string) ([]Mode, map[Mode]int) {
	counts := make(map[Mode]int)
	for _, n := range names {
		counts[Detect(n)]++
	}
	modes := make([]Mode, 0, len(counts))
	for m := range counts {
		modes = append(modes, m)
	}
	sort.Slice(modes, func(i, j int) bool { return modes[i] < modes[j] })
	return modes, counts
}
