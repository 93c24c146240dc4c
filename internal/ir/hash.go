package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content-addressed identity.
// Version suffix enables future algorithm migration.
const (
	DomainSelection = "bsync/selection/v1"
	DomainTrace     = "bsync/trace/v1"
	DomainProgram   = "bsync/program/v1"
)

// hashWithDomain computes SHA-256 hash with domain separation.
// Format: SHA256(domain + 0x00 + data)
// The null byte separator prevents domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// SelectionHash computes the content-addressed identity of one selected event
// at a given step. Two runs that select the same event at the same logical
// step produce the same hash.
func SelectionHash(seq int64, eventType string, data IRValue) (string, error) {
	if data == nil {
		data = IRNull{}
	}
	obj := IRObject{
		"seq":  IRInt(seq),
		"type": IRString(eventType),
		"data": data,
	}

	canonical, err := MarshalCanonical(obj)
	if err != nil {
		return "", fmt.Errorf("SelectionHash: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainSelection, canonical), nil
}

// TraceHash folds an ordered list of selection hashes into one digest.
// Used by replay to compare whole runs.
func TraceHash(selectionHashes []string) (string, error) {
	arr := make(IRArray, len(selectionHashes))
	for i, h := range selectionHashes {
		arr[i] = IRString(h)
	}

	canonical, err := MarshalCanonical(arr)
	if err != nil {
		return "", fmt.Errorf("TraceHash: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainTrace, canonical), nil
}

// ProgramHash computes the identity of a compiled program spec.
func ProgramHash(spec ProgramSpec) (string, error) {
	canonical, err := MarshalCanonical(spec.toIR())
	if err != nil {
		return "", fmt.Errorf("ProgramHash: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainProgram, canonical), nil
}

// MustSelectionHash is like SelectionHash but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustSelectionHash(seq int64, eventType string, data IRValue) string {
	h, err := SelectionHash(seq, eventType, data)
	if err != nil {
		panic(err)
	}
	return h
}
