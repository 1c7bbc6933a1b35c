package thumbnail

import (
	"errors"
	"fmt"
	"strings"

	"github.com/disintegration/imaging"
)

// ErrUnknownSize is returned by ParseSize for names outside the size set.
var ErrUnknownSize = errors.New("unknown thumbnail size")

// Size is one of the fixed thumbnail sizes.
type Size int

const (
	// SizeIcon fits within 150px and favours speed.
	SizeIcon Size = iota
	// SizePreview fits within 400px.
	SizePreview
	// SizeLarge fits within 800px.
	SizeLarge
)

var allSizes = [...]Size{SizeIcon, SizePreview, SizeLarge}

// AllSizes returns every size, smallest first.
func AllSizes() []Size {
	sizes := allSizes
	return sizes[:]
}

// MaxDimension is the bound applied to the longer side of the source image.
func (s Size) MaxDimension() int {
	switch s {
	case SizeIcon:
		return 150
	case SizePreview:
		return 400
	case SizeLarge:
		return 800
	default:
		return 0
	}
}

// DirName is the on-disk subdirectory holding thumbnails of this size.
func (s Size) DirName() string {
	switch s {
	case SizeIcon:
		return "icon"
	case SizePreview:
		return "preview"
	case SizeLarge:
		return "large"
	default:
		return fmt.Sprintf("size(%d)", int(s))
	}
}

func (s Size) String() string {
	return s.DirName()
}

// Filter returns the resampling filter for the size. Icons use the cheaper
// triangle filter; the loss is invisible at 150px.
func (s Size) Filter() imaging.ResampleFilter {
	if s == SizeIcon {
		return imaging.Linear
	}
	return imaging.CatmullRom
}

// ParseSize is the inverse of DirName.
func ParseSize(name string) (Size, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "icon":
		return SizeIcon, nil
	case "preview":
		return SizePreview, nil
	case "large":
		return SizeLarge, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownSize, name)
	}
}
