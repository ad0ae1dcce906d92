package stream

import (
	"bufio"
	"bytes"
	"fmt"
	"io"

	"github.com/hyle-oof/oofprover/internal/models"
)

const maxLineSize = 64 << 20

// LoadBlocks reads node state events, one JSON object per line, and returns
// the blocks they carry in file order. Blank lines are ignored.
func LoadBlocks(r io.Reader) ([]*models.Block, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	var blocks []*models.Block
	line := 0
	for scanner.Scan() {
		line++
		raw := bytes.TrimSpace(scanner.Bytes())
		if len(raw) == 0 {
			continue
		}
		block, err := DecodeEvent(raw)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if block == nil {
			continue
		}
		if n := len(blocks); n > 0 && block.Height <= blocks[n-1].Height {
			return nil, fmt.Errorf("line %d: block %d is not after block %d", line, block.Height, blocks[n-1].Height)
		}
		blocks = append(blocks, block)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read blocks: %w", err)
	}
	return blocks, nil
}
