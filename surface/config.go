package surface

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/milk9111/animsurface/anim"
)

// SourceKind names the populated variant of an AssetSource.
type SourceKind int

const (
	SourceNone SourceKind = iota
	SourcePath
	SourceURL
	SourceBuffer
	SourceFile
)

func (k SourceKind) String() string {
	switch k {
	case SourcePath:
		return "path"
	case SourceURL:
		return "url"
	case SourceBuffer:
		return "buffer"
	case SourceFile:
		return "file"
	}
	return "none"
}

// AssetSource says where the animation comes from. Exactly one field must
// be set; use the From* constructors.
type AssetSource struct {
	LocalPath string
	URL       string
	Buffer    []byte
	File      *anim.File
}

// FromPath loads a file relative to the controller's local fetcher.
func FromPath(p string) AssetSource { return AssetSource{LocalPath: p} }

// FromURL loads a hosted asset over http(s).
func FromURL(u string) AssetSource { return AssetSource{URL: u} }

// FromBuffer decodes bytes the caller already holds.
func FromBuffer(b []byte) AssetSource { return AssetSource{Buffer: b} }

// FromFile reuses a parsed file, typically from Controller.LoadFile.
func FromFile(f *anim.File) AssetSource { return AssetSource{File: f} }

// Kind returns the populated variant, or an error when none or several are.
func (s AssetSource) Kind() (SourceKind, error) {
	var kinds []SourceKind
	if s.LocalPath != "" {
		kinds = append(kinds, SourcePath)
	}
	if s.URL != "" {
		kinds = append(kinds, SourceURL)
	}
	if s.Buffer != nil {
		kinds = append(kinds, SourceBuffer)
	}
	if s.File != nil {
		kinds = append(kinds, SourceFile)
	}

	switch len(kinds) {
	case 0:
		return SourceNone, fmt.Errorf("no asset source set")
	case 1:
		return kinds[0], nil
	}
	names := make([]string, len(kinds))
	for i, k := range kinds {
		names[i] = k.String()
	}
	return SourceNone, fmt.Errorf("multiple asset sources set: %s", strings.Join(names, ", "))
}

func (s AssetSource) String() string {
	k, err := s.Kind()
	if err != nil {
		return "invalid source"
	}
	switch k {
	case SourcePath:
		return "path " + s.LocalPath
	case SourceURL:
		return "url " + s.URL
	case SourceBuffer:
		return fmt.Sprintf("buffer (%d bytes)", len(s.Buffer))
	}
	return "shared file"
}

// Config is everything Load needs besides the surface. It is validated at
// load time and cannot change afterwards without a new Load.
type Config struct {
	Source AssetSource
	// StateMachines to run; if empty, Animations play instead.
	StateMachines []string
	Animations    []string
	// Artboard defaults to the asset's first artboard.
	Artboard   string
	Fit        anim.Fit
	Alignment  anim.Alignment
	Autoplay   bool
	FPSCounter bool
}

// Validate checks everything that can be checked without the asset.
func (c Config) Validate() error {
	kind, err := c.Source.Kind()
	if err != nil {
		return err
	}
	if kind == SourceURL {
		u, err := url.Parse(c.Source.URL)
		if err != nil {
			return fmt.Errorf("invalid url: %w", err)
		}
		if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("url %q must be absolute http(s)", c.Source.URL)
		}
	}
	for _, n := range append(append([]string(nil), c.StateMachines...), c.Animations...) {
		if strings.TrimSpace(n) == "" {
			return fmt.Errorf("empty state machine or animation name")
		}
	}
	return nil
}
