package rangedl

import (
	"fmt"
	"io"
	"os"
	"sort"
)

// splice concatenates every part's temp file into the final output, in
// ascending (start, to) order, trimming any trailing surplus a part may
// have written past its declared end, and deletes each temp file as it
// is consumed.
func (e *Engine) splice() error {
	parts := e.snapshotParts()
	sort.Slice(parts, func(i, j int) bool { return partLess(parts[i], parts[j]) })

	flags := os.O_CREATE | os.O_WRONLY
	if e.cfg.OpenType == OpenAppend {
		flags |= os.O_APPEND
	} else {
		if err := preallocateOutput(e.OutputPath(), e.FileSize()); err != nil {
			e.logger.Warnf("preallocating output file: %v", err)
		}
	}
	out, err := os.OpenFile(e.OutputPath(), flags, 0644)
	if err != nil {
		return fmt.Errorf("opening output file: %w", err)
	}
	defer out.Close()

	buf := make([]byte, e.cfg.ChunkSize)
	for _, p := range parts {
		if err := e.spliceOne(out, p, buf); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) spliceOne(out *os.File, p *Part, buf []byte) error {
	start, to := p.Range()
	want := to - start

	f, err := os.Open(p.fileName)
	if err != nil {
		return fmt.Errorf("opening part %d temp file: %w", p.num, err)
	}
	defer f.Close()
	defer os.Remove(p.fileName)

	var written int64
	for written < want {
		n, rerr := f.Read(buf)
		if n > 0 {
			chunk := buf[:n]
			if written+int64(n) > want {
				chunk = chunk[:want-written]
			}
			if _, werr := out.Write(chunk); werr != nil {
				return fmt.Errorf("writing part %d to output: %w", p.num, werr)
			}
			written += int64(len(chunk))
		}
		if rerr != nil {
			if rerr == io.EOF {
				break
			}
			return fmt.Errorf("reading part %d temp file: %w", p.num, rerr)
		}
	}

	if written < want {
		return ErrPartTooShort
	}
	return nil
}
