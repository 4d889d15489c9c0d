package flow

import "errors"

var (
	// Configuration errors, returned before any event is produced.
	ErrNoSymbols       = errors.New("flow: at least one symbol is required")
	ErrEmptySymbol     = errors.New("flow: empty symbol")
	ErrDuplicateSymbol = errors.New("flow: duplicate symbol")
	ErrNegativeCount   = errors.New("flow: negative event count")
	ErrInvalidPolicy   = errors.New("flow: invalid action policy")

	// Stream errors, reported by Validator and the CSV reader.
	ErrMalformedEvent   = errors.New("flow: malformed event")
	ErrUnknownOrder     = errors.New("flow: order was never issued")
	ErrOrderCancelled   = errors.New("flow: order already cancelled")
	ErrIDOutOfSequence  = errors.New("flow: NEW order id out of sequence")
	ErrClockRegression  = errors.New("flow: timestamp went backwards")
	ErrMissingCSVHeader = errors.New("flow: missing csv header")
)
