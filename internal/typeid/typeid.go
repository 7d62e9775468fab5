package typeid

import (
	"fmt"

	"go.jetify.com/typeid/v2"
)

const (
	PrefixProject   = "proj"
	PrefixLayer     = "layer"
	PrefixSnapshot  = "snap"
	PrefixBone      = "bone"
	PrefixBonePoint = "bpt"
	PrefixPin       = "pin"
	PrefixAnimation = "anim"
)

func New(prefix string) string {
	id := typeid.MustGenerate(prefix)
	return id.String()
}

func NewProjectID() string   { return New(PrefixProject) }
func NewLayerID() string     { return New(PrefixLayer) }
func NewSnapshotID() string  { return New(PrefixSnapshot) }
func NewBoneID() string      { return New(PrefixBone) }
func NewBonePointID() string { return New(PrefixBonePoint) }
func NewPinID() string       { return New(PrefixPin) }
func NewAnimationID() string { return New(PrefixAnimation) }

func Validate(id, expectedPrefix string) error {
	parsed, err := typeid.Parse(id)
	if err != nil {
		return fmt.Errorf("invalid typeid %q: %w", id, err)
	}
	if parsed.Prefix() != expectedPrefix {
		return fmt.Errorf("expected prefix %q but got %q in id %q", expectedPrefix, parsed.Prefix(), id)
	}
	return nil
}
