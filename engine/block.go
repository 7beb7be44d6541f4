package engine

import (
	"fmt"
	"time"
)

// BlockHeader carries the consensus fields the application cares about.
type BlockHeader struct {
	Height          int64
	Time            time.Time
	ChainID         string
	Hash            []byte
	ProposerAddress []byte
}

// Block is a committed block: a header plus the transactions delivered
// while it was built.
type Block struct {
	Header       BlockHeader
	Transactions []*Transaction
}

// Blockchain is the in-memory sequence of committed blocks. Heights are
// contiguous starting at 1.
type Blockchain struct {
	blocks []*Block
}

// NewBlockchain creates an empty chain.
func NewBlockchain() *Blockchain {
	return &Blockchain{}
}

// Height returns the height of the last committed block, 0 when empty.
func (c *Blockchain) Height() int64 { return int64(len(c.blocks)) }

// Length returns the number of committed blocks.
func (c *Blockchain) Length() int { return len(c.blocks) }

// Blocks returns the committed blocks in height order. The returned slice
// must not be mutated.
func (c *Blockchain) Blocks() []*Block { return c.blocks }

// AddBlock appends a block, enforcing height continuity.
func (c *Blockchain) AddBlock(block *Block) error {
	expected := c.Height() + 1
	if block.Header.Height != expected {
		return &AddBlockError{Expected: expected, Got: block.Header.Height}
	}
	c.blocks = append(c.blocks, block)
	return nil
}

// BlockBuilder accumulates a block between begin-block and commit. The
// header is set exactly once per block.
type BlockBuilder struct {
	header       *BlockHeader
	transactions []*Transaction
}

// NewBlockBuilder creates an empty builder.
func NewBlockBuilder() *BlockBuilder {
	return &BlockBuilder{}
}

// Reset discards the header and transactions for a new block.
func (b *BlockBuilder) Reset() {
	b.header = nil
	b.transactions = nil
}

// SetHeader records the block header. Setting it twice without a reset is
// an internal error.
func (b *BlockBuilder) SetHeader(header BlockHeader) error {
	if b.header != nil {
		return fmt.Errorf("%w: block header already set", ErrInternal)
	}
	b.header = &header
	return nil
}

// AddTransaction appends a delivered transaction.
func (b *BlockBuilder) AddTransaction(tx *Transaction) {
	b.transactions = append(b.transactions, tx)
}

// Build assembles the block. It fails if no header was set.
func (b *BlockBuilder) Build() (*Block, error) {
	if b.header == nil {
		return nil, fmt.Errorf("%w: block header not set", ErrInternal)
	}
	return &Block{Header: *b.header, Transactions: b.transactions}, nil
}
