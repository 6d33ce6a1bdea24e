package result

import (
	"errors"
	"fmt"
)

// Code is the outcome of a contract operation or of an executed instruction.
// Every non-success code is terminal for the enclosing transaction: the host
// discards all state written by the call.
type Code int

// Contract result codes, grouped by the component that raises them.
const (
	Success Code = 0

	// Sale ledger (100-119)
	Unauthorized      Code = 100
	AlreadyOnSale     Code = 101
	NotOnSale         Code = 102
	AlreadyExpired    Code = 103
	NotExpired        Code = 104
	AlreadyFinished   Code = 105
	LowerThanPrevious Code = 106
	InvalidSaleType   Code = 107

	// Settlement and payment (120-139)
	InvalidBuyParam    Code = 120
	InvalidUserOrPrice Code = 121
	IncorrectFunds     Code = 122
	InvalidCw20Token   Code = 123

	// Administration and minting (140-159)
	CountNotMatch  Code = 140
	WrongLength    Code = 141
	Uninitialized  Code = 142
	Disabled       Code = 143
	SoldOut        Code = 144
	AlreadyLinked  Code = 145
	InvalidReplyID Code = 146
	NotFound       Code = 147

	// Claim stages (160-179)
	StageNotBegun      Code = 160
	StageExpired       Code = 161
	Claimed            Code = 162
	VerificationFailed Code = 163

	// Host (200-219)
	InvalidMessage    Code = 200
	InsufficientFunds Code = 201
	SlippageExceeded  Code = 202
	UnknownContract   Code = 203
	BadSequence       Code = 204
	BadSignature      Code = 205

	// Internal covers infrastructure failures that carry no contract code.
	Internal Code = 255
)

// String returns the symbolic name of the code.
func (c Code) String() string {
	switch c {
	case Success:
		return "Success"
	case Unauthorized:
		return "Unauthorized"
	case AlreadyOnSale:
		return "AlreadyOnSale"
	case NotOnSale:
		return "NotOnSale"
	case AlreadyExpired:
		return "AlreadyExpired"
	case NotExpired:
		return "NotExpired"
	case AlreadyFinished:
		return "AlreadyFinished"
	case LowerThanPrevious:
		return "LowerThanPrevious"
	case InvalidSaleType:
		return "InvalidSaleType"
	case InvalidBuyParam:
		return "InvalidBuyParam"
	case InvalidUserOrPrice:
		return "InvalidUserOrPrice"
	case IncorrectFunds:
		return "IncorrectFunds"
	case InvalidCw20Token:
		return "InvalidCw20Token"
	case CountNotMatch:
		return "CountNotMatch"
	case WrongLength:
		return "WrongLength"
	case Uninitialized:
		return "Uninitialized"
	case Disabled:
		return "Disabled"
	case SoldOut:
		return "SoldOut"
	case AlreadyLinked:
		return "AlreadyLinked"
	case InvalidReplyID:
		return "InvalidReplyID"
	case NotFound:
		return "NotFound"
	case StageNotBegun:
		return "StageNotBegun"
	case StageExpired:
		return "StageExpired"
	case Claimed:
		return "Claimed"
	case VerificationFailed:
		return "VerificationFailed"
	case InvalidMessage:
		return "InvalidMessage"
	case InsufficientFunds:
		return "InsufficientFunds"
	case SlippageExceeded:
		return "SlippageExceeded"
	case UnknownContract:
		return "UnknownContract"
	case BadSequence:
		return "BadSequence"
	case BadSignature:
		return "BadSignature"
	case Internal:
		return "Internal"
	default:
		return fmt.Sprintf("Unknown(%d)", int(c))
	}
}

// Message returns a human-readable description of the code.
func (c Code) Message() string {
	switch c {
	case Success:
		return "The operation was applied."
	case Unauthorized:
		return "Caller is not allowed to perform this operation."
	case AlreadyOnSale:
		return "Token is already on sale."
	case NotOnSale:
		return "Token is not on sale."
	case AlreadyExpired:
		return "Sale no longer accepts requests."
	case NotExpired:
		return "Sale cannot be settled yet."
	case AlreadyFinished:
		return "Fixed price sale already has a buyer."
	case LowerThanPrevious:
		return "Price does not exceed the required floor."
	case InvalidSaleType:
		return "Sale type and duration cannot be combined."
	case InvalidBuyParam:
		return "Sale has no winning request."
	case InvalidUserOrPrice:
		return "Payer is not the winner or paid less than the winning price."
	case IncorrectFunds:
		return "Attached funds are missing or not supported."
	case InvalidCw20Token:
		return "Token contract is not supported."
	case CountNotMatch:
		return "Batch fields have different lengths."
	case WrongLength:
		return "Token ids and prices have different lengths."
	case Uninitialized:
		return "Linked token contract is not set."
	case Disabled:
		return "Contract is disabled."
	case SoldOut:
		return "No tokens left."
	case AlreadyLinked:
		return "Linked token contract is already set."
	case InvalidReplyID:
		return "Unknown reply id."
	case NotFound:
		return "Entry not found."
	case StageNotBegun:
		return "Claim stage has not begun."
	case StageExpired:
		return "Claim stage has expired."
	case Claimed:
		return "Address has already claimed."
	case VerificationFailed:
		return "Merkle proof does not match the root."
	case InvalidMessage:
		return "Message could not be decoded."
	case InsufficientFunds:
		return "Balance too low for the transfer."
	case SlippageExceeded:
		return "Swap returned less than the minimum receive."
	case UnknownContract:
		return "No contract at this address."
	case BadSequence:
		return "Sequence number does not match the account."
	case BadSignature:
		return "Signature does not verify."
	default:
		return c.String()
	}
}

// Error implements the error interface so a Code can be returned and
// matched with errors.Is directly.
func (c Code) Error() string {
	return c.String() + ": " + c.Message()
}

// IsSuccess reports whether the code is Success.
func (c Code) IsSuccess() bool {
	return c == Success
}

// IsHost reports whether the code was raised by the host rather than by a
// contract.
func (c Code) IsHost() bool {
	return c >= InvalidMessage && c < Internal
}

// Of extracts the Code carried by err. Wrapped codes are found with
// errors.As; errors without a code map to Internal.
func Of(err error) Code {
	if err == nil {
		return Success
	}
	var c Code
	if errors.As(err, &c) {
		return c
	}
	return Internal
}

// Wrap attaches context to a code while keeping it matchable.
func Wrap(c Code, format string, args ...interface{}) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), c)
}
