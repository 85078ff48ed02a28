package fasta

import (
	"bufio"
	"bytes"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"strings"

	"smod/internal/model"
)

// Read loads every record of a FASTA file. "-" reads stdin and a ".gz"
// suffix is decompressed.
func Read(path string) ([]model.Sequence, error) {
	rc, err := openReader(path)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	seqs, err := ReadFrom(rc)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return seqs, nil
}

// ReadFrom parses FASTA records. Headers keep their full text without the
// leading '>'; symbols are upper-cased with line breaks removed.
func ReadFrom(r io.Reader) ([]model.Sequence, error) {
	br := bufio.NewReader(r)
	var (
		out    []model.Sequence
		header string
		open   bool
		buf    []byte
		lineNo int
	)
	flush := func() {
		if open {
			out = append(out, model.Sequence{Header: header, Symbols: string(buf)})
		}
	}

	for {
		line, err := br.ReadBytes('\n')
		eof := err == io.EOF
		if err != nil && !eof {
			return nil, err
		}
		lineNo++
		line = bytes.TrimRight(line, "\r\n")
		switch {
		case len(line) > 0 && line[0] == '>':
			flush()
			header = strings.TrimSpace(string(line[1:]))
			open = true
			buf = buf[:0]
		case len(bytes.TrimSpace(line)) == 0 || line[0] == ';':
		default:
			if !open {
				return nil, fmt.Errorf("line %d: sequence data before first header", lineNo)
			}
			buf = append(buf, bytes.ToUpper(bytes.TrimSpace(line))...)
		}
		if eof {
			break
		}
	}
	flush()
	return out, nil
}

// ID is the first whitespace-delimited field of a header.
func ID(header string) string {
	fields := strings.Fields(header)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

func openReader(path string) (io.ReadCloser, error) {
	if path == "-" {
		return io.NopCloser(os.Stdin), nil
	}
	fh, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	if strings.HasSuffix(path, ".gz") {
		gr, err := gzip.NewReader(fh)
		if err != nil {
			fh.Close()
			return nil, err
		}
		return struct {
			io.Reader
			io.Closer
		}{Reader: gr, Closer: fh}, nil
	}
	return fh, nil
}
