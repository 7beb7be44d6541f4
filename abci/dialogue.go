package abci

import (
	"fmt"
	"sync"

	"github.com/blockberries/tenderberry/logging"
)

// DialogueLabel identifies one request/response exchange.
type DialogueLabel struct {
	ConversationID string
	MessageSeq     uint64
}

// String renders the label for logging.
func (l DialogueLabel) String() string {
	return fmt.Sprintf("%s#%d", l.ConversationID, l.MessageSeq)
}

// Dialogue is the correlation state of one in-flight request: who sent it
// and which performative it used, so the reply can be paired and validated.
type Dialogue struct {
	label        DialogueLabel
	counterparty string
	request      Performative
}

// Label returns the dialogue's identifier.
func (d *Dialogue) Label() DialogueLabel { return d.label }

// Counterparty returns the connection identifier the request came from.
func (d *Dialogue) Counterparty() string { return d.counterparty }

// Request returns the performative of the opening request.
func (d *Dialogue) Request() Performative { return d.request }

// Dialogues tracks in-flight exchanges. New dialogues are created when a
// request is decoded and retired when its response is encoded.
type Dialogues struct {
	mu      sync.Mutex
	logger  *logging.Logger
	counter uint64
	byLabel map[DialogueLabel]*Dialogue
}

// NewDialogues creates an empty registry.
func NewDialogues(logger *logging.Logger) *Dialogues {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Dialogues{
		logger:  logger,
		byLabel: make(map[DialogueLabel]*Dialogue),
	}
}

// Create opens a dialogue for a request from the given counterparty.
func (ds *Dialogues) Create(counterparty string, request Performative) *Dialogue {
	ds.mu.Lock()
	defer ds.mu.Unlock()
	ds.counter++
	d := &Dialogue{
		label: DialogueLabel{
			ConversationID: fmt.Sprintf("%s/%d", counterparty, ds.counter),
			MessageSeq:     1,
		},
		counterparty: counterparty,
		request:      request,
	}
	ds.byLabel[d.label] = d
	return d
}

// Get looks up an in-flight dialogue.
func (ds *Dialogues) Get(label DialogueLabel) (*Dialogue, bool) {
	ds.mu.Lock()
	defer ds.mu.Unlock()
	d, ok := ds.byLabel[label]
	return d, ok
}

// Retire removes a dialogue once its response has been encoded.
func (ds *Dialogues) Retire(label DialogueLabel) {
	ds.mu.Lock()
	defer ds.mu.Unlock()
	delete(ds.byLabel, label)
}

// Len returns the number of in-flight dialogues.
func (ds *Dialogues) Len() int {
	ds.mu.Lock()
	defer ds.mu.Unlock()
	return len(ds.byLabel)
}

// Clear drops all correlation state, used when a channel disconnects.
func (ds *Dialogues) Clear() {
	ds.mu.Lock()
	defer ds.mu.Unlock()
	if len(ds.byLabel) > 0 {
		ds.logger.Warn("dropping in-flight dialogues", logging.Count(len(ds.byLabel)))
	}
	ds.byLabel = make(map[DialogueLabel]*Dialogue)
}
