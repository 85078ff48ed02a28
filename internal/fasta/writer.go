package fasta

import (
	"bufio"
	"fmt"
	"io"

	"smod/internal/model"
)

// LineWidth is the wrap width of written sequences.
const LineWidth = 60

// Write emits records as FASTA.
func Write(w io.Writer, seqs []model.Sequence) error {
	bw := bufio.NewWriter(w)
	for _, s := range seqs {
		if _, err := fmt.Fprintf(bw, ">%s\n", s.Header); err != nil {
			return err
		}
		for start := 0; start < len(s.Symbols); start += LineWidth {
			end := min(start+LineWidth, len(s.Symbols))
			if _, err := fmt.Fprintln(bw, s.Symbols[start:end]); err != nil {
				return err
			}
		}
	}
	return bw.Flush()
}
