package domain

import (
	"encoding/json"
	"errors"
	"fmt"
)

// AnswerSheetVersion is the current encoding version written by AnswerSheet.Encode.
const AnswerSheetVersion = 1

// ErrUnsupportedAnswerSheet is returned when decoding an unknown encoding version.
var ErrUnsupportedAnswerSheet = errors.New("unsupported answer sheet version")

// AnswerSheet maps a question ID to the IDs of the selected options, in the
// order they were selected.
type AnswerSheet map[string][]string

type answerSheetEnvelope struct {
	Version int                 `json:"v"`
	Answers map[string][]string `json:"answers"`
}

// Encode serializes the sheet with a version envelope. Option order is kept and
// questions are written in key order, so equal sheets encode to identical bytes.
func (s AnswerSheet) Encode() ([]byte, error) {
	answers := make(map[string][]string, len(s))
	for q, opts := range s {
		cp := append([]string{}, opts...)
		answers[q] = cp
	}
	return json.Marshal(answerSheetEnvelope{Version: AnswerSheetVersion, Answers: answers})
}

// DecodeAnswerSheet parses bytes produced by Encode.
func DecodeAnswerSheet(data []byte) (AnswerSheet, error) {
	var env answerSheetEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("decode answer sheet: %w", err)
	}
	if env.Version != AnswerSheetVersion {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedAnswerSheet, env.Version)
	}
	sheet := make(AnswerSheet, len(env.Answers))
	for q, opts := range env.Answers {
		sheet[q] = opts
	}
	return sheet, nil
}
