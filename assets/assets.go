// Package assets bundles the sample programs.
package assets

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"path"
	"sort"
	"strings"
)

// Sample programs, one per feature of the vm.
// Sources are in samples/, regenerate the archive after editing them.
//
//go:generate sh -c "GZIP=-n tar --sort=name --owner=0 --group=0 --numeric-owner --mtime='2025-01-01 00:00Z' -czf samples.tar.gz -C samples ."
//go:embed samples.tar.gz
var SamplesTargz []byte

// ErrUnknownSample is returned by Sample for names not in the archive.
var ErrUnknownSample = errors.New("unknown sample")

// Samples returns the sample sources keyed by name, without the .s extension.
func Samples() (map[string]string, error) {
	r, err := gzip.NewReader(bytes.NewReader(SamplesTargz))
	if err != nil {
		return nil, fmt.Errorf("failed to create gzip reader: %w", err)
	}
	defer func() { _ = r.Close() }() // Best effort.

	out := map[string]string{}
	tr := tar.NewReader(r)
	for {
		hdr, err := tr.Next()
		if err != nil {
			if err == io.EOF {
				break // End of archive.
			}
			return nil, fmt.Errorf("failed to read tar entry: %w", err)
		}
		if hdr.Typeflag != tar.TypeReg || !strings.HasSuffix(hdr.Name, ".s") {
			continue
		}
		buf := bytes.NewBuffer(nil)
		if _, err := io.Copy(buf, tr); err != nil {
			return nil, fmt.Errorf("failed to read file %q: %w", hdr.Name, err)
		}
		out[strings.TrimSuffix(path.Base(hdr.Name), ".s")] = buf.String()
	}
	return out, nil
}

// Names returns the sorted sample names.
func Names() ([]string, error) {
	samples, err := Samples()
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(samples))
	for name := range samples {
		out = append(out, name)
	}
	sort.Strings(out)
	return out, nil
}

// Sample returns the source of the named sample.
func Sample(name string) (string, error) {
	samples, err := Samples()
	if err != nil {
		return "", err
	}
	src, ok := samples[name]
	if !ok {
		return "", fmt.Errorf("%w %q", ErrUnknownSample, name)
	}
	return src, nil
}
