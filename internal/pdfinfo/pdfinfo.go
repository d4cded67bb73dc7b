// Package pdfinfo counts pages in source PDFs.
//
// Counting tries the Go reader first, then falls back to pdfcpu, which
// tolerates more damaged cross-reference tables.
package pdfinfo

import (
	"errors"
	"fmt"

	pdflib "github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"

	"github.com/dgallion1/binder/internal/diag"
)

func init() {
	// pdfcpu otherwise creates a config directory under the user's home.
	api.DisableConfigDir()
}

// Counter reports the number of pages in a PDF file.
type Counter interface {
	Name() string
	CountPages(path string) (int, error)
}

// Reader counts pages with ledongthuc/pdf.
type Reader struct{}

func (Reader) Name() string { return "pdf" }

func (Reader) CountPages(path string) (n int, err error) {
	// The reader panics on some malformed trailers.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pdf reader panic: %v", r)
		}
	}()
	f, reader, err := pdflib.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()
	return reader.NumPage(), nil
}

// PDFCPU counts pages with pdfcpu.
type PDFCPU struct{}

func (PDFCPU) Name() string { return "pdfcpu" }

func (PDFCPU) CountPages(path string) (n int, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pdfcpu panic: %v", r)
		}
	}()
	return api.PageCountFile(path)
}

// Chain tries counters in order and returns the first positive count.
type Chain []Counter

// Default is the production counter order.
func Default() Chain {
	return Chain{Reader{}, PDFCPU{}}
}

func (c Chain) Name() string { return "chain" }

// CountPages returns a *diag.MalformedSourceError when no counter produces
// a positive page count.
func (c Chain) CountPages(path string) (int, error) {
	if len(c) == 0 {
		return 0, errors.New("no page counters configured")
	}
	var errs []error
	for _, counter := range c {
		n, err := counter.CountPages(path)
		if err == nil && n > 0 {
			return n, nil
		}
		if err == nil {
			err = errors.New("zero pages")
		}
		errs = append(errs, fmt.Errorf("%s: %w", counter.Name(), err))
	}
	return 0, &diag.MalformedSourceError{Path: path, Err: errors.Join(errs...)}
}
