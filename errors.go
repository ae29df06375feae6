package bpmn

import (
	stderrors "errors"
	"strings"

	apperrors "github.com/goliatone/go-errors"
)

const (
	ErrCodeDuplicateID           = "DUPLICATE_ID"
	ErrCodeUnknownNode           = "UNKNOWN_NODE"
	ErrCodeUnknownEdge           = "UNKNOWN_EDGE"
	ErrCodeInvalidDefaultFlow    = "INVALID_DEFAULT_FLOW"
	ErrCodeMalformedDocument     = "MALFORMED_DOCUMENT"
	ErrCodeInvalidAttribute      = "INVALID_ATTRIBUTE"
	ErrCodeEmptyName             = "EMPTY_NAME"
	ErrCodeValidationViolation   = "VALIDATION_VIOLATION"
	ErrCodeAutoFixPartialFailure = "AUTOFIX_PARTIAL_FAILURE"
	ErrCodeVersionConflict       = "VERSION_CONFLICT"
	ErrCodeNotFound              = "NOT_FOUND"
)

var (
	ErrDuplicateID = apperrors.New("duplicate id", apperrors.CategoryConflict).
			WithTextCode(ErrCodeDuplicateID)
	ErrUnknownNode = apperrors.New("unknown node", apperrors.CategoryBadInput).
			WithTextCode(ErrCodeUnknownNode)
	ErrUnknownEdge = apperrors.New("unknown edge", apperrors.CategoryBadInput).
			WithTextCode(ErrCodeUnknownEdge)
	ErrInvalidDefaultFlow = apperrors.New("default flow is not an outgoing flow of the gateway", apperrors.CategoryBadInput).
				WithTextCode(ErrCodeInvalidDefaultFlow)
	ErrMalformedDocument = apperrors.New("malformed document", apperrors.CategoryBadInput).
				WithTextCode(ErrCodeMalformedDocument)
	ErrInvalidAttribute = apperrors.New("invalid attribute", apperrors.CategoryBadInput).
				WithTextCode(ErrCodeInvalidAttribute)
	ErrEmptyName = apperrors.New("name must not be empty", apperrors.CategoryBadInput).
			WithTextCode(ErrCodeEmptyName)
	ErrValidationViolation = apperrors.New("document violates structural rules", apperrors.CategoryValidation).
				WithTextCode(ErrCodeValidationViolation)
	ErrAutoFixPartialFailure = apperrors.New("auto-fix failed for some gateways", apperrors.CategoryHandler).
					WithTextCode(ErrCodeAutoFixPartialFailure)
	ErrVersionConflict = apperrors.New("version conflict", apperrors.CategoryConflict).
				WithTextCode(ErrCodeVersionConflict)
	ErrNotFound = apperrors.New("not found", apperrors.CategoryBadInput).
			WithTextCode(ErrCodeNotFound)
)

// NewError clones one of the sentinels above with a specific message,
// an optional cause and metadata.
func NewError(base *apperrors.Error, message string, source error, metadata map[string]any) *apperrors.Error {
	if base == nil {
		base = ErrMalformedDocument
	}
	err := base.Clone()
	if text := strings.TrimSpace(message); text != "" {
		err.Message = text
	}
	if source != nil {
		err.Source = source
	}
	if len(metadata) > 0 {
		err = err.WithMetadata(metadata)
	}
	return err
}

// Code returns the text code carried by err, or "" when err is not one of ours.
func Code(err error) string {
	var ge *apperrors.Error
	if stderrors.As(err, &ge) {
		return ge.TextCode
	}
	return ""
}

// IsCode reports whether err carries the given text code.
func IsCode(err error, code string) bool {
	return err != nil && Code(err) == code
}

func duplicateID(kind, id string) error {
	return NewError(ErrDuplicateID, kind+" id "+quote(id)+" already exists", nil, map[string]any{"id": id, "kind": kind})
}

func unknownNode(id string) error {
	return NewError(ErrUnknownNode, "node "+quote(id)+" does not exist", nil, map[string]any{"node_id": id})
}

func unknownEdge(id string) error {
	return NewError(ErrUnknownEdge, "edge "+quote(id)+" does not exist", nil, map[string]any{"edge_id": id})
}

func invalidAttribute(id, msg string) error {
	return NewError(ErrInvalidAttribute, msg, nil, map[string]any{"id": id})
}

func malformed(msg string, source error) error {
	return NewError(ErrMalformedDocument, "malformed document: "+msg, source, nil)
}

func quote(s string) string {
	return `"` + s + `"`
}
