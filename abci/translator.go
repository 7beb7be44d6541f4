package abci

import (
	"errors"
	"fmt"

	"github.com/blockberries/tenderberry/logging"
	"github.com/blockberries/tenderberry/wire"
)

// Translator errors.
var (
	// ErrUnknownRequestKind is returned for a request variant the protocol
	// does not model. Callers log and drop the frame.
	ErrUnknownRequestKind = errors.New("unknown request kind")

	// ErrUnknownResponseKind is returned for a message that carries no
	// recognizable response body.
	ErrUnknownResponseKind = errors.New("unknown response kind")

	// ErrPerformativeMismatch is returned when a response does not answer
	// the performative of its dialogue's request.
	ErrPerformativeMismatch = errors.New("response does not answer the request performative")
)

// Translator converts between the wire protocol and the internal message
// model. It is stateless per call; the only state it keeps is the dialogue
// registry pairing in-flight requests with their responses.
type Translator struct {
	address   string
	logger    *logging.Logger
	dialogues *Dialogues
}

// NewTranslator creates a translator. address names the application side
// of every envelope.
func NewTranslator(address string, logger *logging.Logger) *Translator {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Translator{
		address:   address,
		logger:    logger,
		dialogues: NewDialogues(logger),
	}
}

// Dialogues exposes the registry so channels can route replies and clear
// correlation state on disconnect.
func (t *Translator) Dialogues() *Dialogues { return t.dialogues }

// Decode turns a decoded wire request into an internal envelope, opening a
// dialogue for the exchange. counterparty identifies the originating
// connection.
func (t *Translator) Decode(req *wire.Request, counterparty string) (Envelope, *Dialogue, error) {
	p, ok := requestPerformative(req.Value)
	if !ok {
		return Envelope{}, nil, fmt.Errorf("%w: %T", ErrUnknownRequestKind, req.Value)
	}
	d := t.dialogues.Create(counterparty, p)
	env := Envelope{
		Sender:    counterparty,
		Recipient: t.address,
		Label:     d.Label(),
		Message:   NewMessage(p, req.Value),
	}
	return env, d, nil
}

// Encode turns a response message into its wire form, enforcing that it
// answers the dialogue's request. The dialogue is retired on success.
func (t *Translator) Encode(msg Message, d *Dialogue) (*wire.Response, error) {
	value, ok := responseValue(msg)
	if !ok {
		return nil, fmt.Errorf("%w: performative %q with body %T",
			ErrUnknownResponseKind, msg.Performative, msg.Value)
	}
	if !msg.Performative.Answers(d.Request()) {
		return nil, fmt.Errorf("%w: %q does not answer %q",
			ErrPerformativeMismatch, msg.Performative, d.Request())
	}
	t.dialogues.Retire(d.Label())
	return &wire.Response{Value: value}, nil
}
