// Package relation describes the polymorphic parent of collaborator rows
// such as assignees, links, files, comments and activities.
package relation

import (
	"database/sql/driver"
	"errors"
	"fmt"

	"github.com/bwmarrin/snowflake"
)

type Kind string

const (
	KindRequest   Kind = "request"
	KindWorkspace Kind = "workspace"
	KindComment   Kind = "comment"
)

var ErrInvalidKind = errors.New("invalid_relation_kind")

func ParseKind(raw string) (Kind, error) {
	switch k := Kind(raw); k {
	case KindRequest, KindWorkspace, KindComment:
		return k, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidKind, raw)
	}
}

func (k Kind) Valid() bool {
	_, err := ParseKind(string(k))
	return err == nil
}

func (k Kind) Value() (driver.Value, error) {
	if !k.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidKind, string(k))
	}
	return string(k), nil
}

func (k *Kind) Scan(src any) error {
	var raw string
	switch v := src.(type) {
	case string:
		raw = v
	case []byte:
		raw = string(v)
	case nil:
		*k = ""
		return nil
	default:
		return fmt.Errorf("relation: cannot scan %T into Kind", src)
	}
	parsed, err := ParseKind(raw)
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// Ref identifies the owner of a collaborator row.
type Ref struct {
	ID   snowflake.ID
	Kind Kind
}

func Request(id snowflake.ID) Ref {
	return Ref{ID: id, Kind: KindRequest}
}

func Workspace(id snowflake.ID) Ref {
	return Ref{ID: id, Kind: KindWorkspace}
}

func Comment(id snowflake.ID) Ref {
	return Ref{ID: id, Kind: KindComment}
}

func (r Ref) String() string {
	return fmt.Sprintf("%s:%s", r.Kind, r.ID)
}
