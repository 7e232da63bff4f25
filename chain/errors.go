package chain

import (
	"errors"
)

var (
	// ErrInvalidArgument is returned when a nil or otherwise unusable value is passed to an API
	ErrInvalidArgument = errors.New("Invalid argument")
	// ErrInvalidPreviousLink is returned when an appended blocks previous hash does not match the current head
	ErrInvalidPreviousLink = errors.New("Blocks previous hash was not the head hash")
	// ErrMalformedBlock is returned when a block cannot be restored from its serialized form
	ErrMalformedBlock = errors.New("Malformed block")
	// ErrNoGenesisBlock is returned when a non-empty block set contains no block linking to the sentinel
	ErrNoGenesisBlock = errors.New("No genesis block found")
	// ErrHashNotFound is returned when no block with the requested hash exists
	ErrHashNotFound = errors.New("Hash not found")
	// ErrIndexNotFound is returned when no block at the requested position exists
	ErrIndexNotFound = errors.New("Index not found")
	// ErrChainNotFound is returned when no metadata is stored under the requested chain name
	ErrChainNotFound = errors.New("Chain not found")
	// ErrNothingToRollback is returned when a rollback is requested on an already valid chain
	ErrNothingToRollback = errors.New("Chain is valid, nothing to roll back")
	// ErrMiningExhausted is returned when the nonce space is exhausted without finding a sealed hash
	ErrMiningExhausted = errors.New("Mining exhausted the nonce space")
	// ErrStorage wraps adapter level failures
	ErrStorage = errors.New("Storage failure")
)
